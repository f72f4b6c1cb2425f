package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDir(t *testing.T) {
	t.Setenv("RESORT_HOME", "")
	home, _ := os.UserHomeDir()
	got := Dir("main")
	want := filepath.Join(home, ".resort", "sessions", "main")
	if got != want {
		t.Errorf("Dir(main) = %q, want %q", got, want)
	}
}

func TestBaseDirOverride(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("RESORT_HOME", tmp)
	if got := BaseDir(); got != tmp {
		t.Errorf("BaseDir() = %q, want %q", got, tmp)
	}
}

func TestSessionFiles(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"socket", SocketPath("test"), filepath.Join("sessions", "test", "daemon.sock")},
		{"lock", LockPath("test"), filepath.Join("sessions", "test", "LOCK")},
		{"db", DBPath("test"), filepath.Join("sessions", "test", "resort.db")},
		{"settings", SessionConfigPath("test"), filepath.Join("sessions", "test", "session.toml")},
		{"dotenv", DotenvPath("test"), filepath.Join("sessions", "test", ".env")},
		{"log", LogPath("test"), filepath.Join("sessions", "test", "logs", "resortd.log")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.HasSuffix(tt.got, tt.want) {
				t.Errorf("path = %q, want suffix %q", tt.got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv("RESORT_HOME", t.TempDir())

	if err := EnsureDir("test"); err != nil {
		t.Fatalf("EnsureDir() error = %v", err)
	}
	for _, dir := range []string{Dir("test"), LogDir("test")} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("%s not created: %v", dir, err)
		}
		if !info.IsDir() || info.Mode().Perm() != 0700 {
			t.Errorf("%s: mode %v", dir, info.Mode())
		}
	}
}

func TestResolve(t *testing.T) {
	t.Setenv("RESORT_HOME", t.TempDir())
	t.Setenv(EnvSession, "")

	if got := Resolve("work"); got != "work" {
		t.Errorf("Resolve(flag) = %q, want work", got)
	}
	if got := Resolve(""); got != DefaultSessionName {
		t.Errorf("Resolve() without config = %q, want %q", got, DefaultSessionName)
	}
	if err := os.WriteFile(ConfigPath(), []byte(`default_session = "beach"`), 0600); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "beach" {
		t.Errorf("Resolve() with config = %q, want beach", got)
	}
	t.Setenv(EnvSession, "desk")
	if got := Resolve(""); got != "desk" {
		t.Errorf("Resolve() with env = %q, want desk", got)
	}
	if got := Resolve("work"); got != "work" {
		t.Errorf("flag should win over env, got %q", got)
	}
}
