package nuki

import (
	"strconv"
	"strings"
)

// ActionCode is the integer the bridge expects in the action parameter.
type ActionCode int

// Bridge action codes.
const (
	ActionUnlock    ActionCode = 1
	ActionLock      ActionCode = 2
	ActionUnlatch   ActionCode = 3
	ActionLockAndGo ActionCode = 4
	// ActionLockAndGoThenUnlatch is a valid wire value with no command name.
	// It can only be sent by calling Client.SendAction directly.
	ActionLockAndGoThenUnlatch ActionCode = 5
)

// String returns the command name, or the bare number for codes without one.
func (c ActionCode) String() string {
	switch c {
	case ActionUnlock:
		return CommandUnlock
	case ActionLock:
		return CommandLock
	case ActionUnlatch:
		return CommandUnlatch
	case ActionLockAndGo:
		return CommandLockAndGo
	case ActionLockAndGoThenUnlatch:
		return "lock-and-go-then-unlatch"
	default:
		return strconv.Itoa(int(c))
	}
}

// Valid reports whether the bridge knows this code.
func (c ActionCode) Valid() bool {
	return c >= ActionUnlock && c <= ActionLockAndGoThenUnlatch
}

// Exposed command names.
const (
	CommandUnlock    = "unlock"
	CommandLock      = "lock"
	CommandUnlatch   = "unlatch"
	CommandLockAndGo = "lock-and-go"
)

// Command pairs an exposed name with its wire code.
type Command struct {
	Name   string     `json:"name"`
	Action ActionCode `json:"action"`
}

// Commands lists the exposed commands in display order.
var Commands = []Command{
	{Name: CommandUnlock, Action: ActionUnlock},
	{Name: CommandLock, Action: ActionLock},
	{Name: CommandUnlatch, Action: ActionUnlatch},
	{Name: CommandLockAndGo, Action: ActionLockAndGo},
}

// commandAliases maps spellings accepted from older clients.
var commandAliases = map[string]string{
	"lockngo":     CommandLockAndGo,
	"lock_and_go": CommandLockAndGo,
}

// ParseCommand resolves a command name to its action code. Matching is
// case-insensitive and ignores surrounding whitespace. Names outside the
// exposed set return a *BridgeError of kind KindUnknownCommand.
func ParseCommand(name string) (ActionCode, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := commandAliases[key]; ok {
		key = alias
	}
	for _, cmd := range Commands {
		if cmd.Name == key {
			return cmd.Action, nil
		}
	}
	return 0, &BridgeError{Kind: KindUnknownCommand, Command: name}
}
