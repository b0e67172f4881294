package model

// CommandKind enumerates the moderation operations reachable from the chat
// surface. Every inbound interaction (slash command, ban button, reason
// modal) reduces to exactly one Command before it touches the ledger.
type CommandKind int

const (
	CmdUnknown CommandKind = iota
	CmdBan
	CmdUnban
	CmdCheckBan
	CmdListBans
	CmdTopBans
	CmdHelp
)

func (k CommandKind) String() string {
	switch k {
	case CmdBan:
		return "ban"
	case CmdUnban:
		return "unban"
	case CmdCheckBan:
		return "checkban"
	case CmdListBans:
		return "listbans"
	case CmdTopBans:
		return "topbans"
	case CmdHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ParseCommandKind converts a chat command name to a CommandKind.
// Unrecognized names map to CmdUnknown, never an error.
func ParseCommandKind(name string) CommandKind {
	switch name {
	case "ban":
		return CmdBan
	case "unban":
		return CmdUnban
	case "checkban":
		return CmdCheckBan
	case "listbans":
		return CmdListBans
	case "topbans":
		return CmdTopBans
	case "help":
		return CmdHelp
	default:
		return CmdUnknown
	}
}

// Command is a parsed moderation command. Only the fields relevant to its
// Kind are set.
type Command struct {
	Kind     CommandKind
	PlayerID string // Ban, Unban, CheckBan
	Reason   string // Ban
	Username string // Ban, optional; resolved when empty
	Limit    int    // ListBans, TopBans; 0 = operation default
}
