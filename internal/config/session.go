package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	DefaultAPIURL            = "http://localhost:5000/api"
	DefaultSocketURL         = "ws://localhost:5000/socket"
	DefaultRefreshInterval   = 5 * time.Minute
	DefaultConnectBackoff    = time.Second
	DefaultConnectBackoffMax = 30 * time.Second
)

// Environment variables that override session.toml.
const (
	EnvAPIURL    = "RESORT_API_URL"
	EnvSocketURL = "RESORT_SOCKET_URL"
	EnvToken     = "RESORT_TOKEN"
	EnvUserID    = "RESORT_USER_ID"
	EnvRole      = "RESORT_ROLE"
)

// Duration is a time.Duration written as a string ("5m") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Session is the per-session sessions/<name>/session.toml.
type Session struct {
	APIURL            string   `toml:"api_url"`
	SocketURL         string   `toml:"socket_url"`
	Token             string   `toml:"token,omitempty"`
	UserID            string   `toml:"user_id,omitempty"`
	Role              string   `toml:"role,omitempty"`
	RefreshInterval   Duration `toml:"refresh_interval"`
	ConnectBackoff    Duration `toml:"connect_backoff"`
	ConnectBackoffMax Duration `toml:"connect_backoff_max"`
}

// DefaultSession returns the settings used for keys missing from session.toml.
func DefaultSession() *Session {
	return &Session{
		APIURL:            DefaultAPIURL,
		SocketURL:         DefaultSocketURL,
		RefreshInterval:   Duration{DefaultRefreshInterval},
		ConnectBackoff:    Duration{DefaultConnectBackoff},
		ConnectBackoffMax: Duration{DefaultConnectBackoffMax},
	}
}

// LoadSession reads session.toml over the defaults. A missing file yields the defaults.
func LoadSession(path string) (*Session, error) {
	s := DefaultSession()
	if _, err := toml.DecodeFile(path, s); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return s, nil
}

// SaveSession writes session.toml with 0600 permissions; it may hold a token.
func SaveSession(path string, s *Session) error {
	return writeTOML(path, s)
}

// LoadDotenv loads .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotenv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// ApplyEnv overrides settings from RESORT_* variables found by lookup.
func (s *Session) ApplyEnv(lookup func(string) (string, bool)) {
	for env, field := range map[string]*string{
		EnvAPIURL:    &s.APIURL,
		EnvSocketURL: &s.SocketURL,
		EnvToken:     &s.Token,
		EnvUserID:    &s.UserID,
		EnvRole:      &s.Role,
	} {
		if v, ok := lookup(env); ok && v != "" {
			*field = v
		}
	}
}

// Validate checks the URLs and durations.
func (s *Session) Validate() error {
	if err := checkURL(s.APIURL, "http", "https"); err != nil {
		return fmt.Errorf("api_url: %w", err)
	}
	if err := checkURL(s.SocketURL, "ws", "wss"); err != nil {
		return fmt.Errorf("socket_url: %w", err)
	}
	if s.RefreshInterval.Duration < 0 {
		return fmt.Errorf("refresh_interval must not be negative")
	}
	if s.ConnectBackoff.Duration <= 0 {
		return fmt.Errorf("connect_backoff must be positive")
	}
	if s.ConnectBackoffMax.Duration < s.ConnectBackoff.Duration {
		return fmt.Errorf("connect_backoff_max must be at least connect_backoff")
	}
	return nil
}

func checkURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%q is not a %v URL", raw, schemes)
}
