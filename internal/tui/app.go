// Package tui is the terminal client of the resort daemon.
package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/resort/internal/tui/client"
	"github.com/matheus3301/resort/internal/tui/keys"
	"github.com/matheus3301/resort/internal/tui/model"
	"github.com/matheus3301/resort/internal/tui/ui"
	"github.com/matheus3301/resort/internal/tui/views"
	"github.com/rivo/tview"
	"google.golang.org/grpc/status"
)

const (
	pollInterval  = 5 * time.Second
	watchRetry    = 2 * time.Second
	headerHeight  = 7
	promptHeight  = 3
	statusTimeout = 5 * time.Second
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	vm       *model.ViewModel
	daemon   *client.Client
	registry *keys.Registry
	flash    ui.FlashModel

	root        *tview.Flex
	pages       *ui.Pages
	byName      map[string]tview.Primitive
	crumbs      *ui.Crumbs
	menu        *ui.Menu
	sessionInfo *ui.SessionInfo
	badge       *ui.Badge
	prompt      *ui.Prompt
	flashBar    *ui.FlashBar
	statusBar   *views.StatusBar
	convList    *views.ConversationList
	msgView     *views.MessageView
	info        *views.ConversationInfo
	help        *views.HelpView

	lastUnread int64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application.
func NewApp(c *client.Client, sessionName string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:         tview.NewApplication(),
		theme:       theme,
		vm:          model.NewViewModel(c),
		daemon:      c,
		registry:    keys.NewRegistry(),
		pages:       ui.NewPages(),
		byName:      make(map[string]tview.Primitive),
		crumbs:      ui.NewCrumbs(theme),
		menu:        ui.NewMenu(theme),
		sessionInfo: ui.NewSessionInfo(theme),
		badge:       ui.NewBadge(theme),
		prompt:      ui.NewPrompt(theme, commandNames),
		flashBar:    ui.NewFlashBar(theme),
		statusBar:   views.NewStatusBar(theme),
		convList:    views.NewConversationList(theme),
		msgView:     views.NewMessageView(theme),
		info:        views.NewConversationInfo(theme),
		help:        views.NewHelpView(theme),
		lastUnread:  -1,
		ctx:         ctx,
		cancel:      cancel,
	}

	a.statusBar.SetSession(sessionName)
	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "Quit", Visible: true,
		Handler: a.Stop,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'r',
		Description: "Refresh", Visible: true,
		Handler: a.refresh,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '0',
		Description: "Mark all read", Visible: true,
		Handler: a.markAllRead,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':',
		Description: "Command", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptCommand) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?',
		Description: "Help", Visible: true,
		Handler: func() { a.pages.Push(a.help.Name()) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyEscape, Label: "Esc",
		Description: "Back", Visible: true,
		Handler: a.back,
	})

	list := a.convList.Name()
	a.registry.AddView(list, &keys.Action{
		Key: tcell.KeyEnter, Label: "Enter",
		Description: "Open", Visible: true,
		Handler: func() { a.openConversation(a.convList.Selected()) },
	})
	a.registry.AddView(list, &keys.Action{
		Key: tcell.KeyRune, Rune: 'd',
		Description: "Details", Visible: true,
		Handler: func() { a.showDetails(a.convList.Selected()) },
	})
	a.registry.AddView(list, &keys.Action{
		Key: tcell.KeyRune, Rune: '/',
		Description: "Filter", Visible: true,
		Handler: func() { a.showPrompt(ui.PromptFilter) },
	})
	for i := 1; i <= 9; i++ {
		n := i
		a.registry.AddView(list, &keys.Action{
			Key: tcell.KeyRune, Rune: rune('0' + n), Label: "1-9",
			Description: "Jump", Visible: n == 1,
			Handler: func() { a.openConversation(a.convList.ByIndex(n)) },
		})
	}

	a.registry.AddView(a.msgView.Name(), &keys.Action{
		Key: tcell.KeyRune, Rune: 'd',
		Description: "Details", Visible: true,
		Handler: func() { a.showDetails(a.vm.ActiveConversation()) },
	})
}

func (a *App) setupCallbacks() {
	a.pages.SetOnChange(func(stack []string) {
		a.crumbs.Update(stack)
		current := stack[len(stack)-1]
		a.menu.Update(a.registry.Hints(current))
		if p, ok := a.byName[current]; ok {
			a.app.SetFocus(p)
		}
	})

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.convList.SetFilter(text)
		case ui.PromptCommand:
			a.execute(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) setupLayout() {
	for _, p := range []ui.Page{a.convList, a.msgView, a.info, a.help} {
		a.pages.Add(p)
		a.byName[p.Name()] = p
	}

	header := tview.NewFlex().
		AddItem(ui.NewLogo(a.theme), 20, 0, false).
		AddItem(a.sessionInfo, 0, 1, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(a.badge, 14, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, headerHeight, 0, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.prompt, 0, 0, false).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.flashBar, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.pages.Reset(a.convList.Name())

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Let the prompt handle every key while it has focus.
		if a.app.GetFocus() == tview.Primitive(a.prompt) {
			return event
		}
		if a.registry.HandleEvent(a.pages.Current(), event) {
			return nil
		}
		return event
	})
}

func (a *App) showPrompt(mode ui.PromptMode) {
	a.prompt.Activate(mode)
	if mode == ui.PromptFilter {
		a.prompt.SetText(a.convList.Filter())
	}
	a.root.ResizeItem(a.prompt, promptHeight, 0)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	a.root.ResizeItem(a.prompt, 0, 0)
	if p, ok := a.byName[a.pages.Current()]; ok {
		a.app.SetFocus(p)
	}
}

// back pops the page stack; on the list it clears the filter instead.
func (a *App) back() {
	if a.pages.Pop() != "" {
		return
	}
	if a.convList.Filter() != "" {
		a.convList.SetFilter("")
	}
}

func (a *App) execute(cmd Command) {
	switch cmd.Name {
	case CmdRefresh:
		a.refresh()
	case CmdRead:
		a.markAllRead()
	case CmdLogin:
		userID, role, ok := cmd.LoginArgs()
		if !ok {
			a.flash.Warn("usage: login <user> [customer|owner]")
			a.render()
			return
		}
		a.async("login", func(ctx context.Context) error {
			if err := a.vm.Login(ctx, userID, role); err != nil {
				return err
			}
			a.flash.Info("logged in as %s", userID)
			return a.vm.LoadConversations(ctx)
		})
	case CmdLogout:
		a.async("logout", func(ctx context.Context) error {
			if err := a.vm.Logout(ctx); err != nil {
				return err
			}
			a.flash.Info("logged out")
			a.app.QueueUpdateDraw(func() { a.pages.Reset(a.convList.Name()) })
			return nil
		})
	case CmdHelp:
		a.pages.Push(a.help.Name())
	case CmdQuit:
		a.Stop()
	default:
		a.flash.Warn("unknown command %q", cmd.Name)
		a.render()
	}
}

func (a *App) refresh() {
	a.async("refresh", func(ctx context.Context) error {
		if err := a.vm.Refresh(ctx); err != nil {
			return err
		}
		a.flash.Info("refreshed")
		return a.vm.LoadConversations(ctx)
	})
}

func (a *App) markAllRead() {
	a.async("mark read", a.vm.MarkAllRead)
}

func (a *App) openConversation(id string) {
	if id == "" {
		return
	}
	a.async("load messages", func(ctx context.Context) error {
		if err := a.vm.LoadMessages(ctx, id); err != nil {
			return err
		}
		conv, _ := a.vm.Conversation(id)
		msgs := a.vm.Messages()
		role := a.vm.Status().Role
		a.app.QueueUpdateDraw(func() {
			a.msgView.Update(conv, msgs, role)
			a.pages.Push(a.msgView.Name())
		})
		return nil
	})
}

func (a *App) showDetails(id string) {
	conv, ok := a.vm.Conversation(id)
	if !ok {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, statusTimeout)
		defer cancel()
		var favorite *bool
		if fav, err := a.daemon.IsFavorite(ctx, conv.ResortID); err == nil {
			favorite = &fav
		}
		a.app.QueueUpdateDraw(func() {
			a.info.Update(conv, favorite)
			a.pages.Push(a.info.Name())
		})
	}()
}

// async runs fn off the UI goroutine and flashes its error.
func (a *App) async(what string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, statusTimeout)
		defer cancel()
		if err := fn(ctx); err != nil && a.ctx.Err() == nil {
			a.flash.Err(what, errors.New(status.Convert(err).Message()))
		}
		a.app.QueueUpdateDraw(a.render)
	}()
}

// render copies view model state into the widgets. Must run on the UI
// goroutine.
func (a *App) render() {
	st := a.vm.Status()
	unread := a.vm.Unread()

	a.sessionInfo.Update(st, unread)
	a.badge.Update(unread)
	a.statusBar.SetState(st.State)
	a.statusBar.SetUnread(unread)
	a.convList.Update(a.vm.Conversations())
	a.flashBar.Update(a.flash.Current())

	// A badge change means per-row counts moved too.
	if unread != a.lastUnread {
		a.lastUnread = unread
		go a.loadConversations()
	}
}

func (a *App) loadConversations() {
	ctx, cancel := context.WithTimeout(a.ctx, statusTimeout)
	defer cancel()
	_ = a.vm.LoadConversations(ctx)
}

func (a *App) poll() {
	ctx, cancel := context.WithTimeout(a.ctx, statusTimeout)
	defer cancel()
	if err := a.vm.LoadStatus(ctx); err != nil {
		if a.ctx.Err() == nil {
			a.flash.Err("daemon", errors.New(status.Convert(err).Message()))
		}
		return
	}
	_ = a.vm.LoadConversations(ctx)
}

// watchLoop follows the badge stream, reconnecting after errors.
func (a *App) watchLoop() {
	for {
		err := a.vm.WatchUnread(a.ctx)
		if a.ctx.Err() != nil {
			return
		}
		if err != nil {
			a.flash.Warn("badge stream lost: %s", status.Convert(err).Message())
		}
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(watchRetry):
		}
	}
}

func (a *App) refreshLoop() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	clock := time.NewTicker(time.Second)
	defer clock.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.vm.RefreshCh():
			a.app.QueueUpdateDraw(a.render)
		case <-ticker.C:
			go a.poll()
		case <-clock.C:
			a.app.QueueUpdateDraw(func() {
				a.statusBar.Tick()
				a.flashBar.Update(a.flash.Current())
			})
		}
	}
}

// Run starts the TUI application and blocks until it quits.
func (a *App) Run() error {
	go func() {
		a.poll()
		if a.vm.Status().UserID == "" {
			a.flash.Info("no session: use :login <user> [role]")
		}
		a.app.QueueUpdateDraw(a.render)

		go a.watchLoop()
		a.refreshLoop()
	}()

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("run terminal ui: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the TUI.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
