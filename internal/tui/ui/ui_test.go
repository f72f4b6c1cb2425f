package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/rivo/tview"
)

type namedBox struct {
	*tview.Box
	name string
}

func (n namedBox) Name() string { return n.name }

func TestPagesStack(t *testing.T) {
	p := NewPages()
	for _, name := range []string{"conversations", "messages", "help"} {
		p.Add(namedBox{Box: tview.NewBox(), name: name})
	}
	var changes [][]string
	p.SetOnChange(func(stack []string) { changes = append(changes, stack) })

	p.Reset("conversations")
	p.Push("messages")
	p.Push("messages")
	p.Push("help")
	if got := strings.Join(p.Stack(), ">"); got != "conversations>messages>help" {
		t.Fatalf("stack = %s", got)
	}
	if top := p.Pop(); top != "help" || p.Current() != "messages" {
		t.Errorf("Pop() = %q, current = %q", top, p.Current())
	}
	p.Pop()
	if top := p.Pop(); top != "" || p.Current() != "conversations" {
		t.Errorf("root popped: Pop() = %q, current = %q", top, p.Current())
	}
	if len(changes) != 5 {
		t.Errorf("got %d change notifications, want 5", len(changes))
	}
}

func TestRenderBadge(t *testing.T) {
	theme := DefaultTheme()
	tests := []struct {
		count int64
		want  string
	}{
		{0, ""},
		{-2, ""},
		{7, " 7 "},
		{99, " 99 "},
		{250, " 99+ "},
	}
	for _, tt := range tests {
		got := Render(theme, tt.count)
		if !strings.Contains(got, "Chat") {
			t.Errorf("Render(%d) = %q, missing tab label", tt.count, got)
		}
		if tt.want == "" {
			if strings.Contains(got, Tag(theme.BadgeBg)) {
				t.Errorf("Render(%d) = %q, want no bubble", tt.count, got)
			}
			continue
		}
		if !strings.Contains(got, tt.want) {
			t.Errorf("Render(%d) = %q, want bubble %q", tt.count, got, tt.want)
		}
	}
}

func TestFlashExpiry(t *testing.T) {
	var f FlashModel
	if f.Current() != nil {
		t.Fatal("empty model has a message")
	}
	f.Warn("socket %s", "down")
	m := f.Current()
	if m == nil || m.Text != "socket down" || m.Level != FlashWarn {
		t.Fatalf("Current() = %+v", m)
	}

	f.mu.Lock()
	f.current.Expires = time.Now().Add(-time.Second)
	f.mu.Unlock()
	if f.Current() != nil {
		t.Error("expired message still shown")
	}
}

func TestPromptCompletesCommands(t *testing.T) {
	p := NewPrompt(DefaultTheme(), []string{"login", "logout", "refresh", "read"})
	p.Activate(PromptCommand)

	tests := []struct {
		text string
		want []string
	}{
		{"lo", []string{"login", "logout"}},
		{"RE", []string{"refresh", "read"}},
		{"login u1", nil},
		{"", nil},
		{"zzz", nil},
	}
	for _, tt := range tests {
		got := p.complete(tt.text)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("complete(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}

	p.Activate(PromptFilter)
	if got := p.complete("lo"); got != nil {
		t.Errorf("filter mode completed %v", got)
	}
}
