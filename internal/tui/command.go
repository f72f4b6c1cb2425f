package tui

import "strings"

// Command represents a parsed command.
type Command struct {
	Name string
	Args string
}

// Command names accepted in command mode.
const (
	CmdRefresh = "refresh"
	CmdRead    = "read"
	CmdLogin   = "login"
	CmdLogout  = "logout"
	CmdHelp    = "help"
	CmdQuit    = "quit"
)

// commandNames feeds prompt completion.
var commandNames = []string{CmdHelp, CmdLogin, CmdLogout, CmdQuit, CmdRead, CmdRefresh}

var commandAliases = map[string]string{
	"q": CmdQuit,
	"h": CmdHelp,
	"r": CmdRefresh,
}

// ParseCommand parses a command string (without the leading ':').
func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)
	parts := strings.SplitN(input, " ", 2)
	cmd := Command{Name: strings.ToLower(parts[0])}
	if full, ok := commandAliases[cmd.Name]; ok {
		cmd.Name = full
	}
	if len(parts) > 1 {
		cmd.Args = strings.TrimSpace(parts[1])
	}
	return cmd
}

// LoginArgs reads "<user> [role]". The role defaults to customer.
func (c Command) LoginArgs() (userID, role string, ok bool) {
	fields := strings.Fields(c.Args)
	switch len(fields) {
	case 1:
		return fields[0], "customer", true
	case 2:
		return fields[0], strings.ToLower(fields[1]), true
	default:
		return "", "", false
	}
}
