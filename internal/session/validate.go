package session

import (
	"fmt"
	"regexp"
)

// MaxNameLen keeps the daemon socket path, which embeds the name, well under
// the 108-byte sun_path limit.
const MaxNameLen = 32

// Names start with a letter or digit so they never parse as a flag.
var nameRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateName checks that name is usable as a session directory and socket
// name.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("session name is empty")
	case len(name) > MaxNameLen:
		return fmt.Errorf("invalid session name %q: longer than %d characters", name, MaxNameLen)
	case !nameRegexp.MatchString(name):
		return fmt.Errorf("invalid session name %q: use lowercase letters, digits, '-' and '_', starting with a letter or digit", name)
	}
	return nil
}
