package server

import (
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// Calling-convention flags. The low two bits carry the argument count; the
// rest modify parsing and dispatch.
const (
	CSNoArgs      = 0x00000 // No arguments
	CSOneArg      = 0x00001 // One argument
	CSTwoArg      = 0x00002 // Two arguments
	CSNargMask    = 0x00003 // Argument count mask
	CSArgv        = 0x00004 // Arg2 is in ARGV form
	CSInterp      = 0x00010 // Interpret arg2 if 2 args, arg1 if 1
	CSNoInterp    = 0x00020 // Never interp arg2 if 2 or arg1 if 1
	CSCause       = 0x00040 // (historical; cause always passed here)
	CSUnparse     = 0x00080 // Pass unparsed command to handler
	CSCmdArg      = 0x00100 // Pass in enclosing command args
	CSStrip       = 0x00200 // Strip braces even when not interpreting
	CSStripAround = 0x00400 // Strip braces around entire string only
	CSAdded       = 0x00800 // Command was added by @addcommand
	CSLeadin      = 0x01000 // Command is a single-letter lead-in
	CSPreserve    = 0x02000 // For hooks, preserve global registers
	CSNoSquish    = 0x04000 // Do not space-compress
	CSFunction    = 0x08000 // Can be called through command()
	CSActor       = 0x10000 // Added command runs as typer, not object
	CSPrivate     = 0x20000 // For hooks, use private global registers
)

// AddEnt is one obj/attr pattern attached to a command by @addcommand.
// Order matters: patterns are tried in attach order.
type AddEnt struct {
	Thing gamedb.DBRef
	Attr  int
	Name  string
}

// Handler signatures, one per calling convention. Exactly one of the
// handler fields on a Command is set; dispatch selects it from CallSeq.
type (
	HandlerNoArg         func(g *Game, player, cause gamedb.DBRef, key int)
	HandlerOneArg        func(g *Game, player, cause gamedb.DBRef, key int, arg string)
	HandlerOneArgCmd     func(g *Game, player, cause gamedb.DBRef, key int, arg string, cargs []string)
	HandlerTwoArg        func(g *Game, player, cause gamedb.DBRef, key int, arg1, arg2 string)
	HandlerTwoArgCmd     func(g *Game, player, cause gamedb.DBRef, key int, arg1, arg2 string, cargs []string)
	HandlerTwoArgArgv    func(g *Game, player, cause gamedb.DBRef, key int, arg1 string, argv []string)
	HandlerTwoArgArgvCmd func(g *Game, player, cause gamedb.DBRef, key int, arg1 string, argv []string, cargs []string)
	HandlerUnparsed      func(g *Game, player gamedb.DBRef, command string)
)

// Command is one entry in the command table.
type Command struct {
	Name     string
	Switches []NameTab // nil when the command takes no switches
	Perms    int       // CA_* access mask
	Extra    int       // key bits OR'd in before switch folding
	CallSeq  int       // CS_* flags

	UserPerms *HookEnt // user-defined permission attribute
	PreHook   *HookEnt
	PostHook  *HookEnt

	NoArg         HandlerNoArg
	OneArg        HandlerOneArg
	OneArgCmd     HandlerOneArgCmd
	TwoArg        HandlerTwoArg
	TwoArgCmd     HandlerTwoArgCmd
	TwoArgArgv    HandlerTwoArgArgv
	TwoArgArgvCmd HandlerTwoArgArgvCmd
	Unparsed      HandlerUnparsed

	Added []*AddEnt // CS_ADDED pattern list, in attach order
}

// CmdTable is the command registry: a name map plus a table of
// single-character lead-ins indexed by byte value.
type CmdTable struct {
	commands map[string]*Command
	prefix   [256]*Command
}

func NewCmdTable() *CmdTable {
	return &CmdTable{commands: make(map[string]*Command)}
}

// Register adds a command under its name and any aliases. Single-character
// names marked CS_LEADIN also claim a prefix slot.
func (t *CmdTable) Register(cmd *Command, aliases ...string) {
	t.commands[strings.ToLower(cmd.Name)] = cmd
	for _, a := range aliases {
		t.commands[strings.ToLower(a)] = cmd
	}
	t.resetPrefixCmds()
}

// Bind maps a single name to an existing command without touching the
// command's other bindings. @addcommand uses it to park a shadowed builtin
// under its "__" name.
func (t *CmdTable) Bind(name string, cmd *Command) {
	t.commands[strings.ToLower(name)] = cmd
	t.resetPrefixCmds()
}

// Lookup finds a command by exact (lowercased) name.
func (t *CmdTable) Lookup(name string) *Command {
	return t.commands[strings.ToLower(name)]
}

// Prefix returns the lead-in command claimed by a first-character byte.
func (t *CmdTable) Prefix(ch byte) *Command {
	return t.prefix[ch]
}

// Remove deletes one name binding (not the command's other aliases).
func (t *CmdTable) Remove(name string) {
	delete(t.commands, strings.ToLower(name))
	t.resetPrefixCmds()
}

// ReplaceAll repoints every binding of old to repl, or deletes the
// bindings when repl is nil. Used when @addcommand shadows a builtin that
// has aliases and when @delcommand unwinds it.
func (t *CmdTable) ReplaceAll(old, repl *Command) {
	for name, cmd := range t.commands {
		if cmd == old {
			if repl == nil {
				delete(t.commands, name)
			} else {
				t.commands[name] = repl
			}
		}
	}
	t.resetPrefixCmds()
}

// Names returns all registered names in no particular order.
func (t *CmdTable) Names() []string {
	names := make([]string, 0, len(t.commands))
	for name := range t.commands {
		names = append(names, name)
	}
	return names
}

// resetPrefixCmds rebuilds the lead-in table so one-letter commands can be
// overloaded by @addcommand and restored by @delcommand.
func (t *CmdTable) resetPrefixCmds() {
	for i := range t.prefix {
		t.prefix[i] = nil
	}
	for name, cmd := range t.commands {
		if len(name) == 1 && cmd.CallSeq&CSLeadin != 0 {
			t.prefix[name[0]] = cmd
		}
	}
}
