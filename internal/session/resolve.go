package session

import (
	"os"

	"github.com/matheus3301/resort/internal/config"
)

const (
	DefaultSessionName = "main"

	// EnvSession names the session when no flag is given.
	EnvSession = "RESORT_SESSION"
)

// Resolve picks the active session name: the --session flag, then
// $RESORT_SESSION, then default_session from config.toml, then "main".
func Resolve(flagOverride string) string {
	if flagOverride != "" {
		return flagOverride
	}
	if name := os.Getenv(EnvSession); name != "" {
		return name
	}
	if cfg, err := config.Load(ConfigPath()); err == nil && cfg.DefaultSession != "" {
		return cfg.DefaultSession
	}
	return DefaultSessionName
}
