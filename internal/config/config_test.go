package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Save(path, &Config{DefaultSession: "work"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultSession != "work" {
		t.Errorf("DefaultSession = %q, want %q", loaded.DefaultSession, "work")
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load("/nonexistent/config.toml"); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.toml")
	if err := SaveSession(path, DefaultSession()); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestLoadSessionMissingUsesDefaults(t *testing.T) {
	s, err := LoadSession(filepath.Join(t.TempDir(), "session.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if s.APIURL != DefaultAPIURL || s.RefreshInterval.Duration != DefaultRefreshInterval {
		t.Errorf("defaults not applied: %+v", s)
	}
}

func TestLoadSessionOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	content := `api_url = "https://api.example.com"
user_id = "cust-1"
refresh_interval = "30s"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := LoadSession(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.APIURL != "https://api.example.com" || s.UserID != "cust-1" {
		t.Errorf("session = %+v", s)
	}
	if s.RefreshInterval.Duration != 30*time.Second {
		t.Errorf("RefreshInterval = %v, want 30s", s.RefreshInterval)
	}
	if s.SocketURL != DefaultSocketURL || s.ConnectBackoff.Duration != DefaultConnectBackoff {
		t.Errorf("unset keys lost their defaults: %+v", s)
	}
}

func TestSessionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	want := DefaultSession()
	want.Token = "tok"
	want.Role = "owner"
	want.ConnectBackoffMax = Duration{time.Minute}

	if err := SaveSession(path, want); err != nil {
		t.Fatal(err)
	}
	got, err := LoadSession(path)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *want {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestLoadSessionInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	if err := os.WriteFile(path, []byte(`refresh_interval = "soon"`), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSession(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAPIURL: "https://prod.example.com/api",
		EnvToken:  "secret",
		EnvRole:   "",
	}
	s := DefaultSession()
	s.Role = "customer"
	s.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	if s.APIURL != "https://prod.example.com/api" || s.Token != "secret" {
		t.Errorf("env not applied: %+v", s)
	}
	if s.Role != "customer" {
		t.Errorf("empty env value overrode role: %q", s.Role)
	}
}

func TestLoadDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("RESORT_USER_ID=from-dotenv\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvUserID, "")
	_ = os.Unsetenv(EnvUserID)

	LoadDotenv(filepath.Join(t.TempDir(), "missing.env"), path)
	if got := os.Getenv(EnvUserID); got != "from-dotenv" {
		t.Errorf("%s = %q, want from-dotenv", EnvUserID, got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Session)
		wantErr bool
	}{
		{"defaults", func(*Session) {}, false},
		{"https and wss", func(s *Session) { s.APIURL = "https://a.example"; s.SocketURL = "wss://a.example/ws" }, false},
		{"api not http", func(s *Session) { s.APIURL = "ftp://a.example" }, true},
		{"socket not ws", func(s *Session) { s.SocketURL = "http://a.example" }, true},
		{"missing host", func(s *Session) { s.APIURL = "http://" }, true},
		{"negative refresh", func(s *Session) { s.RefreshInterval = Duration{-time.Second} }, true},
		{"zero refresh disables", func(s *Session) { s.RefreshInterval = Duration{} }, false},
		{"zero backoff", func(s *Session) { s.ConnectBackoff = Duration{} }, true},
		{"max below min", func(s *Session) { s.ConnectBackoffMax = Duration{time.Millisecond} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSession()
			tt.mutate(s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
