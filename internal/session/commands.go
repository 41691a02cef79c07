package session

import "strings"

type commandType string

const (
	cmdQuit      commandType = "quit"
	cmdRestart   commandType = "restart"
	cmdDebug     commandType = "debug"
	cmdLook      commandType = "look"
	cmdInventory commandType = "inventory"
	cmdNone      commandType = "" // not a reserved word; narrate it
)

var knownCommands = map[string]commandType{
	"quit":      cmdQuit,
	"exit":      cmdQuit,
	"q":         cmdQuit,
	"restart":   cmdRestart,
	"debug":     cmdDebug,
	"look":      cmdLook,
	"l":         cmdLook,
	"inventory": cmdInventory,
	"i":         cmdInventory,
}

// parseCommand matches the whole line, case-insensitively, against the
// reserved words. "look at the tree" is an action, not a command.
func parseCommand(input string) commandType {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if cmd, ok := knownCommands[trimmed]; ok {
		return cmd
	}
	return cmdNone
}
