package server

import (
	"fmt"
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// AddcmdPreserve makes an added command run as the typer instead of the
// object holding the pattern.
const AddcmdPreserve = 1

// processAdded matches a typed command against the obj/attr patterns
// attached by @addcommand and runs every pattern that hits. Global
// registers are saved around the whole scan.
func (g *Game) processAdded(cmdp *Command, player, cause gamedb.DBRef, switchp, unpCommand string) {
	saved := g.State.SaveRegs()
	defer g.State.RestoreRegs(saved)

	// Rebuild the line the patterns match against: the canonical command
	// name, any switches, and the argument text from the original input.
	// A lead-in command keeps its one-character prefix glued to the rest.
	leadin := cmdp.CallSeq&CSLeadin != 0
	var rest string
	if leadin {
		if len(unpCommand) > 0 {
			rest = unpCommand[1:]
		}
	} else if idx := strings.IndexByte(unpCommand, ' '); idx >= 0 {
		rest = unpCommand[idx+1:]
	}

	var sb strings.Builder
	if rest == "" {
		if leadin {
			sb.WriteString(unpCommand)
		} else {
			sb.WriteString(cmdp.Name)
		}
		if switchp != "" {
			sb.WriteByte('/')
			sb.WriteString(switchp)
		}
	} else {
		sb.WriteString(cmdp.Name)
		if switchp != "" {
			sb.WriteByte('/')
			sb.WriteString(switchp)
		}
		if !leadin {
			sb.WriteByte(' ')
		}
		sb.WriteString(rest)
	}
	matchLine := sb.String()

	cmdMatches := 0
	for _, add := range cmdp.Added {
		text, aflags := g.atrGetInfo(add.Thing, add.Attr)
		if len(text) < 2 {
			break
		}
		// Skip the '$' and the first pattern character, then find the
		// unescaped ':' splitting pattern from action.
		idx := findUnescapedColon(text[2:])
		if idx < 0 {
			break
		}
		sep := idx + 2
		pat := text[1:sep]
		action := text[sep+1:]

		var args []string
		var ok bool
		if aflags&gamedb.AFRegexp != 0 {
			ok = regexpMatch(pat, matchLine, aflags&gamedb.AFCase == 0, &args)
		} else {
			ok = matchWild(pat, matchLine, &args)
		}
		if ok && (!g.Conf.AddcmdObeyUselocks || CouldDoIt(g, player, add.Thing, gamedb.A_Luse)) {
			executor := add.Thing
			if cmdp.CallSeq&CSActor != 0 && !IsGod(g, player) {
				executor = player
			}
			g.ProcessCmdline(executor, player, action, args, nil)
			cmdMatches++
		}
		if cmdMatches > 0 && g.Conf.AddcmdObeyStop && StopMatch(g, add.Thing) {
			break
		}
	}

	if cmdMatches == 0 && !g.Conf.AddcmdMatchBlindly {
		// Nothing we have for this added command matched what was
		// typed. That is a Huh?, not a fall-through to other matching.
		g.Notify(player, g.Conf.HuhMsg)
		g.logBadCommand(player, matchLine)
	}
}

// validAddName rejects empty names, reserved "__" names, and names with
// whitespace or escape characters.
func validAddName(name string) bool {
	if name == "" || strings.HasPrefix(name, "__") {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] == ' ' || name[i] == '\t' || name[i] == '\x1b' {
			return false
		}
	}
	return true
}

// DoAddCommand attaches an obj/attr pattern to a command name, shadowing
// any builtin of the same name under a "__" alias.
func DoAddCommand(g *Game, player, cause gamedb.DBRef, key int, name, command string) {
	if !validAddName(name) {
		g.Notify(player, "That is not a valid command name.")
		return
	}
	name = strings.ToLower(name)

	thing, atr, ok := g.ParseObjAttr(player, command)
	if !ok {
		g.Notify(player, "No such attribute.")
		return
	}

	old := g.Commands.Lookup(name)

	if old != nil && old.CallSeq&CSAdded != 0 {
		for _, add := range old.Added {
			if add.Thing == thing && add.Attr == atr {
				g.Notifyf(player, "%s already added.", name)
				return
			}
		}
		old.Added = append(old.Added, &AddEnt{Thing: thing, Attr: atr, Name: name})
		if key&AddcmdPreserve != 0 {
			old.CallSeq |= CSActor
		} else {
			old.CallSeq &^= CSActor
		}
	} else {
		callseq := CSAdded | CSOneArg
		if old != nil && old.CallSeq&CSLeadin != 0 {
			callseq |= CSLeadin
		}
		if key&AddcmdPreserve != 0 {
			callseq |= CSActor
		}
		cmd := &Command{
			Name:    name,
			CallSeq: callseq,
			Added:   []*AddEnt{{Thing: thing, Attr: atr, Name: name}},
		}
		if old != nil {
			g.Commands.Remove(name)
		}
		g.Commands.Register(cmd)
		if old != nil && name == old.Name {
			// Aliases of the builtin now reach the added command;
			// the builtin itself parks under the "__" name.
			g.Commands.ReplaceAll(old, cmd)
			g.Commands.Bind(name, cmd)
			g.Commands.Bind("__"+old.Name, old)
		}
	}

	g.Notifyf(player, "Command %s added.", name)
}

// restoreShadowed puts a "__"-parked builtin back under its real name
// after the added command that shadowed it goes away.
func (g *Game) restoreShadowed(name string, old *Command) {
	shadowName := "__" + name
	if builtin := g.Commands.Lookup(shadowName); builtin != nil {
		g.Commands.Bind(builtin.Name, builtin)
		if name != builtin.Name {
			g.Commands.Bind(name, builtin)
		}
		g.Commands.ReplaceAll(old, builtin)
		g.Commands.Bind(shadowName, builtin)
	} else {
		g.Commands.ReplaceAll(old, nil)
		g.Commands.Remove(name)
	}
}

// DoDelCommand detaches an obj/attr pattern from an added command, or with
// no pattern removes the whole entry, restoring any shadowed builtin.
func DoDelCommand(g *Game, player, cause gamedb.DBRef, key int, name, command string) {
	if name == "" {
		g.Notify(player, "Sorry.")
		return
	}
	name = strings.ToLower(name)

	var thing gamedb.DBRef
	atr := -1
	if command != "" {
		var ok bool
		thing, atr, ok = g.ParseObjAttr(player, command)
		if !ok {
			g.Notify(player, "No such attribute.")
			return
		}
	}

	old := g.Commands.Lookup(name)
	if old == nil || old.CallSeq&CSAdded == 0 {
		g.Notify(player, "Command not found in command table.")
		return
	}

	if command == "" {
		old.Added = nil
		g.restoreShadowed(name, old)
		g.Notify(player, "Done")
		return
	}

	for i, add := range old.Added {
		if add.Thing == thing && add.Attr == atr {
			old.Added = append(old.Added[:i], old.Added[i+1:]...)
			if len(old.Added) == 0 {
				g.restoreShadowed(name, old)
			}
			g.Notify(player, "Done")
			return
		}
	}
	g.Notify(player, "Command not found in command table.")
}

// DoListCommands lists the obj/attr patterns behind added commands.
func DoListCommands(g *Game, player, cause gamedb.DBRef, key int, name string) {
	name = strings.ToLower(name)

	describe := func(bound string, cmd *Command) bool {
		if bound != cmd.Name {
			g.Notifyf(player, "%s: alias for %s", bound, cmd.Name)
			return true
		}
		found := false
		for _, add := range cmd.Added {
			attrName := g.DB.GetAttrName(add.Attr)
			if attrName == "" {
				attrName = fmt.Sprintf("%d", add.Attr)
			}
			g.Notifyf(player, "%s: #%d/%s", add.Name, add.Thing, attrName)
			found = true
		}
		return found
	}

	if name != "" {
		old := g.Commands.Lookup(name)
		if old == nil || old.CallSeq&CSAdded == 0 {
			g.Notifyf(player, "%s not found in command table.", name)
			return
		}
		describe(name, old)
		return
	}

	didit := false
	for _, bound := range g.Commands.Names() {
		cmd := g.Commands.Lookup(bound)
		if cmd != nil && cmd.CallSeq&CSAdded != 0 && !strings.HasPrefix(bound, "__") {
			if describe(bound, cmd) {
				didit = true
			}
		}
	}
	if !didit {
		g.Notify(player, "No added commands found in command table.")
	}
}

// DoHook installs, removes, or lists the pre/post hooks and user-defined
// permission check on a command.
func DoHook(g *Game, player, cause gamedb.DBRef, key int, cmdName, target string) {
	cmdp := g.Commands.Lookup(strings.ToLower(strings.TrimSpace(cmdName)))
	if cmdp == nil {
		g.Notify(player, "That is not a valid command.")
		return
	}

	hookName := func(hp *HookEnt, label string) {
		if hp == nil {
			g.Notifyf(player, "%s: none", label)
			return
		}
		attrName := g.DB.GetAttrName(hp.Attr)
		if attrName == "" {
			g.Notifyf(player, "%s contains bad attribute number.", label)
			return
		}
		g.Notifyf(player, "%s: #%d/%s", label, hp.Thing, attrName)
	}

	if key == 0 {
		hookName(cmdp.PreHook, "Before Hook")
		hookName(cmdp.PostHook, "After Hook")
		hookName(cmdp.UserPerms, "User Permissions")
		return
	}

	if key&HookPreserve != 0 {
		cmdp.CallSeq &^= CSPrivate
		cmdp.CallSeq |= CSPreserve
		g.Notify(player, "Hooks will preserve the state of the global registers.")
		return
	}
	if key&HookNoPreserve != 0 {
		cmdp.CallSeq &^= CSPreserve | CSPrivate
		g.Notify(player, "Hooks will not preserve the state of the global registers.")
		return
	}
	if key&HookPrivate != 0 {
		cmdp.CallSeq &^= CSPreserve
		cmdp.CallSeq |= CSPrivate
		g.Notify(player, "Hooks will use private global registers.")
		return
	}

	// No target means hook deletion.
	if strings.TrimSpace(target) == "" {
		switch {
		case key&HookBefore != 0:
			cmdp.PreHook = nil
			g.Notify(player, "Hook removed.")
		case key&HookAfter != 0:
			cmdp.PostHook = nil
			g.Notify(player, "Hook removed.")
		case key&HookPermit != 0:
			cmdp.UserPerms = nil
			g.Notify(player, "User-defined permissions removed.")
		default:
			g.Notify(player, "Unknown command switch.")
		}
		return
	}

	thing, atr, ok := g.ParseObjAttr(player, target)
	if !ok {
		g.Notify(player, "No such attribute.")
		return
	}
	if !Controls(g, player, thing) {
		g.Notify(player, g.Conf.NoPermMsg)
		return
	}
	_, aowner, aflags := g.atrGetOwnerFlags(thing, atr)
	if !CanReadAttr(g, player, thing, g.DB.AttrFlags(atr), aflags, aowner) {
		g.Notify(player, g.Conf.NoPermMsg)
		return
	}

	hp := &HookEnt{Thing: thing, Attr: atr}
	switch {
	case key&HookBefore != 0:
		cmdp.PreHook = hp
		g.Notify(player, "Hook added.")
	case key&HookAfter != 0:
		cmdp.PostHook = hp
		g.Notify(player, "Hook added.")
	case key&HookPermit != 0:
		cmdp.UserPerms = hp
		g.Notify(player, "User-defined permissions will now be checked.")
	default:
		g.Notify(player, "Unknown command switch.")
	}
}
