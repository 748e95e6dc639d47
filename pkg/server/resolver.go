package server

import (
	"log"
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/eval"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// compressSpaces collapses interior whitespace runs to single spaces and
// drops trailing whitespace. Leading whitespace is the caller's problem.
func compressSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		for i < len(s) && !isSpaceByte(s[i]) {
			b.WriteByte(s[i])
			i++
		}
		for i < len(s) && isSpaceByte(s[i]) {
			i++
		}
		if i < len(s) {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// firstWord splits the command into its first word and the argument text
// after any intervening whitespace.
func firstWord(s string) (word, arg string) {
	i := 0
	for i < len(s) && !isSpaceByte(s[i]) {
		i++
	}
	word = s[:i]
	for i < len(s) && isSpaceByte(s[i]) {
		i++
	}
	return word, s[i:]
}

// runExit sends the player through a matched exit. With exit_calls_move
// on, the line is rewritten as "goto <command>" and run through the
// command table, so an @addcommand'd goto still gets its shot. Otherwise
// the move happens directly, bracketed by the goto command's hooks.
func (g *Game) runExit(exit gamedb.DBRef, player, cause gamedb.DBRef, interactive bool, command string, divertMaster bool, args []string) {
	if g.Conf.ExitCallsMove {
		cmdp := g.Commands.Lookup("goto")
		if cmdp != nil {
			gbuf := cmdp.Name + " " + command
			g.ProcessCmdent(cmdp, "", player, cause, interactive, command, gbuf, args)
		}
		return
	}
	g.CallPreHook(g.gotoCmd, player, cause, args)
	g.moveExit(player, exit, divertMaster)
	g.CallPostHook(g.gotoCmd, player, cause, args)
}

// ProcessCommand resolves and executes one command line for player.
// It returns the line as typed (leading whitespace eaten), which callers
// use for logging.
func (g *Game) ProcessCommand(player, cause gamedb.DBRef, interactive bool, command string, args []string) string {
	st := g.State

	if st.CmdInvkCtr == g.Conf.CmdInvkLim {
		return command
	}
	st.CmdInvkCtr++

	cmdsave := st.DebugCmd
	st.DebugCmd = "< ProcessCommand >"
	defer func() { st.DebugCmd = cmdsave }()

	if !g.DB.Valid(player) {
		log.Printf("ERROR: CMD PLYR: bad player in ProcessCommand: %d", player)
		return command
	}

	pObj := g.DB.Get(player)
	if pObj.IsGoing() || (g.Halted(player) && !(g.isPlayer(player) && interactive)) {
		g.Notifyf(g.Owner(player), "Attempt to execute command by halted object #%d", player)
		return command
	}

	g.logSuspectCommand(player, command)
	if g.Metrics != nil {
		g.Metrics.CommandsTotal.Inc()
	}

	if g.VerboseObj(player) {
		g.Notifyf(g.Owner(player), "%s] %s", g.Name(player), command)
	}

	// Eat leading whitespace, and space-compress if configured.
	for len(command) > 0 && isSpaceByte(command[0]) {
		command = command[1:]
	}
	preserved := command
	st.DebugCmd = command
	st.CurrCmd = preserved

	if g.Conf.SpaceCompress {
		command = compressSpaces(command)
	}

	for _, ic := range g.Interceptors {
		if ic(g, player, cause, interactive, command, args) {
			return preserved
		}
	}

	// Single-letter leadins come first; they are the most frequently
	// executed commands and can never be "home".
	if len(command) > 0 {
		if cmdp := g.Commands.Prefix(command[0]); cmdp != nil {
			g.ProcessCmdent(cmdp, "", player, cause, interactive, command, command, args)
			return preserved
		}
	}

	// The home command. No hooks here: home is not part of the
	// traditional command table.
	if g.hasLocation(player) && strings.EqualFold(command, "home") {
		if (g.Fixed(player) || g.Fixed(g.Owner(player))) && !g.WizRoy(player) {
			g.Notify(player, g.Conf.FixedHomeMsg)
			return preserved
		}
		DoMove(g, player, cause, 0, "home")
		return preserved
	}

	// Only check for exits if we may use the goto command.
	if g.CheckCmdAccess(player, g.gotoCmd, args) {
		if exit := matchExitInRoom(g, player, g.Location(player), command); exit != gamedb.Nothing {
			g.runExit(exit, player, cause, interactive, command, false, args)
			return preserved
		}
		if master := g.MasterRoomRef(); g.DB.Valid(master) {
			if exit := matchExitInRoom(g, player, master, command); exit != gamedb.Nothing {
				g.runExit(exit, player, cause, interactive, command, true, args)
				return preserved
			}
		}
	}

	// Split out a lowercased command word and the argument text, and
	// strip any /switches off the word.
	lcWord, arg := firstWord(command)
	lcWord = strings.ToLower(lcWord)
	var switches string
	if i := strings.IndexByte(lcWord, '/'); i >= 0 {
		switches = lcWord[i+1:]
		lcWord = lcWord[:i]
	}

	if cmdp := g.Commands.Lookup(lcWord); cmdp != nil {
		DebugLog("builtin %s matched for #%d", cmdp.Name, player)
		unp := command
		if g.Conf.SpaceCompress && cmdp.CallSeq&CSNoSquish != 0 {
			// No space compression for this command; go back to
			// the line as typed.
			unp = preserved
			_, arg = firstWord(preserved)
		}
		g.ProcessCmdent(cmdp, switches, player, cause, interactive, arg, unp, args)
		return preserved
	}

	// No builtin matched. Evaluate the command line so chains of
	// $-commands work, then try enter/leave aliases and $-commands.
	evaled := g.exec(player, cause, cause, command, eval.EvEval|eval.EvFCheck|eval.EvStrip, args)
	succ := 0

	loc := g.Location(player)
	if g.hasLocation(player) && g.DB.Valid(loc) {
		// Leave alias on the location, if we may use 'leave'.
		if g.CheckCmdAccess(player, g.leaveCmd, args) {
			if alias := g.atrPGet(loc, gamedb.A_Lalias); alias != "" {
				if matchesExitFromList(evaled, alias) {
					g.CallPreHook(g.leaveCmd, player, cause, args)
					DoLeave(g, player, player, 0)
					g.CallPostHook(g.leaveCmd, player, cause, args)
					return preserved
				}
			}
		}
		// Enter aliases on things here, if we may use 'enter'.
		if g.CheckCmdAccess(player, g.enterCmd, args) {
			for _, thing := range g.DB.SafeContents(loc) {
				if alias := g.atrPGet(thing, gamedb.A_Ealias); alias != "" {
					if matchesExitFromList(evaled, alias) {
						g.CallPreHook(g.enterCmd, player, cause, args)
						g.enterObject(player, thing, false)
						g.CallPostHook(g.enterCmd, player, cause, args)
						return preserved
					}
				}
			}
		}
	}

	// $-command cascade. At each stage, stop if we matched on an
	// object carrying the STOP_MATCH flag.
	gotStop := false

	if matchMine(g, player) {
		if atrMatch(g, player, player, AmatchCmd, evaled, preserved, true) > 0 {
			succ++
			gotStop = g.StopMatch(player)
		}
	}

	if !gotStop && g.hasLocation(player) {
		if lObj := g.DB.Get(loc); lObj != nil {
			succ += listCheck(g, lObj.Contents, player, AmatchCmd, evaled, preserved, true, &gotStop)
		}
		if !gotStop && atrMatch(g, loc, player, AmatchCmd, evaled, preserved, true) > 0 {
			succ++
			gotStop = g.StopMatch(loc)
		}
	}

	if !gotStop && g.hasContents(player) {
		succ += listCheck(g, pObj.Contents, player, AmatchCmd, evaled, preserved, true, &gotStop)
	}

	// Local master rooms: walk the location's parent chain, checking
	// the contents of parents flagged ZONE_PARENT. Those matches skip
	// the contents' own parents unless match_zone_parents says so.
	locObj := g.DB.Get(loc)
	if g.hasLocation(player) && locObj != nil {
		if succ == 0 && g.Conf.LocalMasters {
			pcount := 0
			parent := locObj.Parent
			for succ == 0 && !gotStop && g.DB.Valid(parent) &&
				g.zoneParent(parent) && pcount < g.Conf.ParentNestLim {
				if g.hasContents(parent) {
					succ += listCheck(g, g.DB.Get(parent).Contents, player,
						AmatchCmd, evaled, preserved, g.Conf.MatchZoneParents, &gotStop)
				}
				parent = g.DB.Get(parent).Parent
				pcount++
			}
		}

		// MUX-style zones on the location.
		if succ == 0 && g.Conf.HaveZones && locObj.Zone != gamedb.Nothing {
			zone := locObj.Zone
			if zObj := g.DB.Get(zone); zObj != nil && zObj.ObjType() == gamedb.TypeRoom {
				// Zone of the location is a parent room.
				if loc != pObj.Zone {
					if exit := matchExitInRoom(g, player, zone, command); exit != gamedb.Nothing {
						g.runExit(exit, player, cause, interactive, command, true, args)
						return preserved
					}
					if !gotStop {
						succ += listCheck(g, zObj.Contents, player,
							AmatchCmd, evaled, preserved, true, &gotStop)
					}
				}
			} else if !gotStop && succ == 0 {
				// Area zone object.
				succ += atrMatch(g, zone, player, AmatchCmd, evaled, preserved, true)
			}
		}
	}

	// Local master rooms off the player's own parent chain, unless it
	// would repeat the location checks above.
	if succ == 0 && g.Conf.LocalMasters {
		parent := pObj.Parent
		locParent := gamedb.Nothing
		if locObj != nil {
			locParent = locObj.Parent
		}
		if !g.hasLocation(player) || locObj == nil ||
			(parent != loc && parent != locParent) {
			pcount := 0
			for succ == 0 && !gotStop && g.DB.Valid(parent) &&
				g.zoneParent(parent) && pcount < g.Conf.ParentNestLim {
				if g.hasContents(parent) {
					succ += listCheck(g, g.DB.Get(parent).Contents, player,
						AmatchCmd, evaled, preserved, false, &gotStop)
				}
				parent = g.DB.Get(parent).Parent
				pcount++
			}
		}
	}

	// The player's personal zone, if it wasn't the location's zone.
	if !gotStop && succ == 0 && g.Conf.HaveZones && pObj.Zone != gamedb.Nothing {
		locZone := gamedb.Nothing
		if locObj != nil {
			locZone = locObj.Zone
		}
		if !g.hasLocation(player) || locObj == nil || locZone != pObj.Zone {
			succ += atrMatch(g, pObj.Zone, player, AmatchCmd, evaled, preserved, true)
		}
	}

	// Last chance: the master room.
	if !gotStop && succ == 0 {
		master := g.MasterRoomRef()
		if g.DB.Valid(master) && g.hasContents(master) {
			succ += listCheck(g, g.DB.Get(master).Contents, player,
				AmatchCmd, evaled, preserved, false, &gotStop)
			if !gotStop && atrMatch(g, master, player, AmatchCmd, evaled, preserved, false) > 0 {
				succ++
			}
		}
	}

	if succ == 0 {
		for _, h := range g.NoMatchHooks {
			if h(g, player, cause, interactive, evaled, preserved, args) {
				succ++
			}
		}
	}

	if succ == 0 {
		DebugLog("no match for %q from #%d", command, player)
		g.Notify(player, g.Conf.HuhMsg)
		g.logBadCommand(player, command)
	}
	return preserved
}

func (g *Game) zoneParent(ref gamedb.DBRef) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.HasFlag2(gamedb.Flag2ZoneParent)
}
