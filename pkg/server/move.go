package server

import (
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// Hush bits suppress the usual movement messages.
const (
	HushEnter = 0x1
	HushLeave = 0x2
	HushExit  = 0x4
)

// MoveQuiet is the switch key for goto/enter/leave.
const MoveQuiet = 0x1

const noGoMsg = "You can't go that way."

func (g *Game) homeOf(thing gamedb.DBRef) gamedb.DBRef {
	obj := g.DB.Get(thing)
	if obj == nil {
		return gamedb.Nothing
	}
	return obj.Link
}

func (g *Game) isDark(ref gamedb.DBRef) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.HasFlag(gamedb.FlagDark)
}

func (g *Game) isTerse(ref gamedb.DBRef) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.HasFlag(gamedb.FlagTerse)
}

func (g *Game) isBlind(ref gamedb.DBRef) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.HasFlag2(gamedb.Flag2Blind)
}

func (g *Game) isSticky(ref gamedb.DBRef) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.HasFlag(gamedb.FlagSticky)
}

func (g *Game) enterOK(ref gamedb.DBRef) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.HasFlag(gamedb.FlagEnterOK)
}

// darkMover: dark wizards move without their audience noticing.
func (g *Game) darkMover(ref gamedb.DBRef) bool {
	return g.Wizard(ref) && g.isDark(ref)
}

// canHear is true for things whose movement the room should narrate.
func (g *Game) canHear(ref gamedb.DBRef) bool {
	if g.isPlayer(ref) {
		return true
	}
	obj := g.DB.Get(ref)
	if obj == nil {
		return false
	}
	return obj.HasFlag(gamedb.FlagPuppet) || obj.HasFlag2(gamedb.Flag2HasListen)
}

// removeContents unlinks thing from loc's contents chain.
func (g *Game) removeContents(loc, thing gamedb.DBRef) {
	lObj := g.DB.Get(loc)
	tObj := g.DB.Get(thing)
	if lObj == nil || tObj == nil {
		return
	}
	if lObj.Contents == thing {
		lObj.Contents = tObj.Next
	} else {
		prev := lObj.Contents
		for count := 0; g.DB.Valid(prev) && count < g.DB.Size+1; count++ {
			pObj := g.DB.Get(prev)
			if pObj == nil {
				break
			}
			if pObj.Next == thing {
				pObj.Next = tObj.Next
				break
			}
			prev = pObj.Next
		}
	}
	tObj.Next = gamedb.Nothing
}

// insertContents links thing at the head of loc's contents chain.
func (g *Game) insertContents(loc, thing gamedb.DBRef) {
	lObj := g.DB.Get(loc)
	tObj := g.DB.Get(thing)
	if lObj == nil || tObj == nil {
		return
	}
	tObj.Next = lObj.Contents
	lObj.Contents = thing
}

// moveObject physically relocates thing. No messages, no actions.
func (g *Game) moveObject(thing, dest gamedb.DBRef) {
	src := g.Location(thing)
	if src != gamedb.Nothing {
		g.removeContents(src, thing)
	}
	if dest == gamedb.Home {
		dest = g.homeOf(thing)
	}
	tObj := g.DB.Get(thing)
	if tObj == nil {
		return
	}
	if dest != gamedb.Nothing && g.DB.Valid(dest) {
		g.insertContents(dest, thing)
	} else {
		tObj.Next = gamedb.Nothing
	}
	tObj.Location = dest
	g.PersistObject(tObj)
	if src != gamedb.Nothing {
		g.PersistObject(g.DB.Get(src))
	}
	if g.DB.Valid(dest) {
		g.PersistObject(g.DB.Get(dest))
	}
}

// processLeaveLoc runs the LEAVE side of a move: the old location's
// leave attributes, the destination's OXENTER, and the departure message.
func (g *Game) processLeaveLoc(thing, dest, cause gamedb.DBRef, canhear bool, hush int) {
	loc := g.Location(thing)
	if loc == gamedb.Nothing || loc == dest {
		return
	}
	if dest == gamedb.Home {
		dest = g.homeOf(thing)
	}

	g.CallMoveHook(thing, cause, false)

	quiet := !(g.Wizard(loc) ||
		(!g.isDark(thing) && !g.isDark(loc)) ||
		(canhear && !g.darkMover(thing))) ||
		hush&HushLeave != 0

	oattr, aattr := gamedb.A_Oleave, gamedb.A_Aleave
	if quiet {
		oattr, aattr = 0, 0
	}
	pattr := gamedb.A_Leave
	if g.isTerse(thing) {
		pattr = 0
	}
	DidIt(g, thing, loc, pattr, "", oattr, "", aattr)

	if dest != gamedb.Nothing && !quiet {
		DidIt(g, thing, dest, 0, "", gamedb.A_Oxenter, "", 0)
	}

	if !quiet && !g.isBlind(thing) && !g.isBlind(loc) {
		if (!g.isDark(thing) && !g.isDark(loc)) ||
			(canhear && !g.darkMover(thing)) {
			g.NotifyExcept(loc, thing, g.Name(thing)+" has left.")
		}
	}
}

// processEnterLoc runs the ENTER side of a move: the new location's
// enter attributes, the source's OXLEAVE, and the arrival message.
func (g *Game) processEnterLoc(thing, src, cause gamedb.DBRef, canhear bool, hush int) {
	loc := g.Location(thing)
	if loc == gamedb.Nothing || loc == src {
		return
	}

	g.CallMoveHook(thing, cause, true)

	quiet := !(g.Wizard(loc) ||
		(!g.isDark(thing) && !g.isDark(loc)) ||
		(canhear && !g.darkMover(thing))) ||
		hush&HushEnter != 0

	oattr, aattr := gamedb.A_Oenter, gamedb.A_Aenter
	if quiet {
		oattr, aattr = 0, 0
	}
	pattr := gamedb.A_Enter
	if g.isTerse(thing) {
		pattr = 0
	}
	DidIt(g, thing, loc, pattr, "", oattr, "", aattr)

	if src != gamedb.Nothing && !quiet {
		DidIt(g, thing, src, 0, "", gamedb.A_Oxleave, "", 0)
	}

	if !quiet && canhear && !g.isBlind(thing) && !g.isBlind(loc) &&
		!g.darkMover(thing) {
		g.NotifyExcept(loc, thing, g.Name(thing)+" has arrived.")
	}
}

// moveViaGeneric is the standard move: leave messages, relocation, MOVE
// attributes, enter messages.
func (g *Game) moveViaGeneric(thing, dest, cause gamedb.DBRef, hush int) {
	if dest == gamedb.Home {
		dest = g.homeOf(thing)
	}
	src := g.Location(thing)
	canhear := g.canHear(thing)
	g.processLeaveLoc(thing, dest, cause, canhear, hush)
	g.moveObject(thing, dest)
	DidIt(g, thing, thing, gamedb.A_Move, "", gamedb.A_Omove, "", gamedb.A_Amove)
	g.processEnterLoc(thing, src, cause, canhear, hush)
}

// moveViaExit is generic movement plus the exit's succ/drop messages.
func (g *Game) moveViaExit(thing, dest, cause, exit gamedb.DBRef, hush int) {
	if dest == gamedb.Home {
		dest = g.homeOf(thing)
	}
	src := g.Location(thing)
	canhear := g.canHear(thing)

	quiet := g.darkMover(thing) || hush&HushExit != 0

	oattr, aattr := gamedb.A_Osucc, gamedb.A_Asucc
	if quiet {
		oattr, aattr = 0, 0
	}
	pattr := gamedb.A_Succ
	if g.isTerse(thing) {
		pattr = 0
	}
	DidIt(g, thing, exit, pattr, "", oattr, "", aattr)

	g.processLeaveLoc(thing, dest, cause, canhear, hush)
	g.moveObject(thing, dest)

	oattr, aattr = gamedb.A_Odrop, gamedb.A_Adrop
	if quiet {
		oattr, aattr = 0, 0
	}
	pattr = gamedb.A_Drop
	if g.isTerse(thing) {
		pattr = 0
	}
	DidIt(g, thing, exit, pattr, "", oattr, "", aattr)

	DidIt(g, thing, thing, gamedb.A_Move, "", gamedb.A_Omove, "", gamedb.A_Amove)
	g.processEnterLoc(thing, src, cause, canhear, hush)
}

// moveExit sends player through exit if its lock passes, otherwise runs
// the exit's fail attributes.
func (g *Game) moveExit(player, exit gamedb.DBRef, divertMaster bool) {
	g.moveExitHush(player, exit, divertMaster, 0)
}

func (g *Game) moveExitHush(player, exit gamedb.DBRef, divertMaster bool, hush int) {
	dest := g.Location(exit)
	if dest == gamedb.Home {
		dest = g.homeOf(player)
	}
	_ = divertMaster

	if g.DB.Valid(dest) && CouldDoIt(g, player, exit, gamedb.A_Lock) {
		dObj := g.DB.Get(dest)
		switch dObj.ObjType() {
		case gamedb.TypeRoom:
			g.moveViaExit(player, dest, gamedb.Nothing, exit, hush)
		case gamedb.TypePlayer, gamedb.TypeThing:
			if dObj.IsGoing() {
				g.Notify(player, noGoMsg)
				return
			}
			g.moveViaExit(player, dest, gamedb.Nothing, exit, hush)
		default:
			g.Notify(player, noGoMsg)
		}
		return
	}

	oattr, aattr := gamedb.A_Ofail, gamedb.A_Afail
	if g.isDark(player) || hush&HushExit != 0 {
		oattr, aattr = 0, 0
	}
	DidIt(g, player, exit, gamedb.A_Fail, noGoMsg, oattr, "", aattr)
}

// DoMove moves the player via an exit name or "home".
func DoMove(g *Game, player, cause gamedb.DBRef, key int, direction string) {
	if strings.EqualFold(direction, "home") {
		if (g.Fixed(player) || g.Fixed(g.Owner(player))) && !g.WizRoy(player) {
			g.Notify(player, g.Conf.FixedHomeMsg)
			return
		}
		loc := g.Location(player)
		if loc != gamedb.Nothing && !g.isDark(player) && !g.isDark(loc) {
			g.NotifyExcept(loc, player, g.Name(player)+" goes home.")
		}
		for i := 0; i < 3; i++ {
			g.Notify(player, "There's no place like home...")
		}
		g.moveViaGeneric(player, gamedb.Home, gamedb.Nothing, 0)
		return
	}

	exit := matchExitInRoom(g, player, g.Location(player), direction)
	if exit == gamedb.Nothing {
		if master := g.MasterRoomRef(); g.DB.Valid(master) {
			exit = matchExitInRoom(g, player, master, direction)
		}
	}
	if exit == gamedb.Nothing {
		if loc := g.DB.Get(g.Location(player)); loc != nil && loc.Zone != gamedb.Nothing {
			if zObj := g.DB.Get(loc.Zone); zObj != nil && zObj.ObjType() == gamedb.TypeRoom {
				exit = matchExitInRoom(g, player, loc.Zone, direction)
			}
		}
	}

	if exit == gamedb.Nothing {
		g.Notify(player, noGoMsg)
		return
	}
	hush := 0
	if key&MoveQuiet != 0 && g.Controls(player, exit) {
		hush = HushExit
	}
	g.moveExitHush(player, exit, false, hush)
}

// enterObject puts the player inside a thing, honoring ENTER_OK and the
// enter lock.
func (g *Game) enterObject(player, thing gamedb.DBRef, quiet bool) {
	oattr, aattr := gamedb.A_Oefail, gamedb.A_Aefail
	if quiet {
		oattr, aattr = 0, 0
	}
	switch {
	case !g.enterOK(thing) && !g.Controls(player, thing):
		DidIt(g, player, thing, gamedb.A_Efail, g.Conf.NoPermMsg, oattr, "", aattr)
	case player == thing:
		g.Notify(player, "You can't enter yourself!")
	case CouldDoIt(g, player, thing, gamedb.A_Lenter):
		hush := 0
		if quiet {
			hush = HushEnter
		}
		g.moveViaGeneric(player, thing, gamedb.Nothing, hush)
	default:
		DidIt(g, player, thing, gamedb.A_Efail, "You can't enter that.", oattr, "", aattr)
	}
}

// DoEnter is the enter command: get inside a thing or player here.
func DoEnter(g *Game, player, cause gamedb.DBRef, key int, what string) {
	thing := g.MatchObject(player, what)
	if thing == gamedb.Nothing {
		g.Notify(player, "I don't see that here.")
		return
	}
	switch g.DB.Get(thing).ObjType() {
	case gamedb.TypePlayer, gamedb.TypeThing:
		quiet := key&MoveQuiet != 0 && g.Controls(player, thing)
		g.enterObject(player, thing, quiet)
	default:
		g.Notify(player, g.Conf.NoPermMsg)
	}
}

// DoLeave is the leave command: step out of the containing object.
func DoLeave(g *Game, player, cause gamedb.DBRef, key int) {
	loc := g.Location(player)
	lObj := g.DB.Get(loc)
	if lObj == nil || lObj.ObjType() == gamedb.TypeRoom || lObj.IsGoing() {
		g.Notify(player, "You can't leave.")
		return
	}
	hush := 0
	if key&MoveQuiet != 0 && g.Controls(player, loc) {
		hush = HushLeave
	}
	if CouldDoIt(g, player, loc, gamedb.A_Lleave) {
		g.moveViaGeneric(player, g.Location(loc), gamedb.Nothing, hush)
		return
	}
	oattr, aattr := gamedb.A_Olfail, gamedb.A_Alfail
	if hush != 0 {
		oattr, aattr = 0, 0
	}
	DidIt(g, player, loc, gamedb.A_Lfail, "You can't leave.", oattr, "", aattr)
}
