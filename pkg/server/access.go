package server

import (
	"github.com/crystal-mush/gomushcore/pkg/eval"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// Command and switch permission bits. A mask is the OR of zero or more of
// these; CheckAccess decides whether an object clears it.
const (
	CAPublic   = 0x00000000 // No access restrictions
	CAGod      = 0x00000001 // God only
	CAWizard   = 0x00000002 // Wizards only
	CABuilder  = 0x00000004 // Builders only
	CAImmortal = 0x00000008 // Immortals only
	CAStaff    = 0x00000010 // Must have STAFF flag
	CAHead     = 0x00000020 // Must have HEAD flag
	CAModuleOK = 0x00000040 // Must have USE_MODULE power
	CAAdmin    = 0x00000080 // Wizard or royalty

	CANoHaven   = 0x00000100 // Not by HAVEN players
	CANoRobot   = 0x00000200 // Not by ROBOT players
	CANoSlave   = 0x00000400 // Not by SLAVE players
	CANoSuspect = 0x00000800 // Not by SUSPECT players
	CANoGuest   = 0x00001000 // Not by GUEST players

	CAMarker0 = 0x00002000
	CAMarker1 = 0x00004000
	CAMarker2 = 0x00008000
	CAMarker3 = 0x00010000
	CAMarker4 = 0x00020000
	CAMarker5 = 0x00040000
	CAMarker6 = 0x00080000
	CAMarker7 = 0x00100000
	CAMarker8 = 0x00200000
	CAMarker9 = 0x00400000

	CAGblBuild  = 0x00800000 // Requires the global BUILDING flag
	CAGblInterp = 0x01000000 // Requires the global INTERP flag
	CADisabled  = 0x02000000 // Command completely disabled
	CAStatic    = 0x04000000 // Cannot be changed at runtime
	CANoDecomp  = 0x08000000 // Don't include in @decompile

	CALocation = 0x10000000 // Invoker must have a location
	CAContents = 0x20000000 // Invoker must have contents
	CAPlayer   = 0x40000000 // Invoker must be a player
)

const (
	CAIsPrivMask = CAGod | CAWizard | CABuilder | CAImmortal | CAStaff |
		CAHead | CAAdmin | CAModuleOK
	CAIsNotMask = CANoHaven | CANoRobot | CANoSlave | CANoSuspect | CANoGuest
	CAMarkerMask = CAMarker0 | CAMarker1 | CAMarker2 | CAMarker3 | CAMarker4 |
		CAMarker5 | CAMarker6 | CAMarker7 | CAMarker8 | CAMarker9
)

// markerFlags maps the CA marker bits, in order, to the third-word flag
// each one requires.
var markerFlags = [10]struct {
	mask int
	flag int
}{
	{CAMarker0, gamedb.Flag3Marker0},
	{CAMarker1, gamedb.Flag3Marker1},
	{CAMarker2, gamedb.Flag3Marker2},
	{CAMarker3, gamedb.Flag3Marker3},
	{CAMarker4, gamedb.Flag3Marker4},
	{CAMarker5, gamedb.Flag3Marker5},
	{CAMarker6, gamedb.Flag3Marker6},
	{CAMarker7, gamedb.Flag3Marker7},
	{CAMarker8, gamedb.Flag3Marker8},
	{CAMarker9, gamedb.Flag3Marker9},
}

// checkPrivBits tests the "must be one of" privilege group.
func checkPrivBits(g *Game, player gamedb.DBRef, mask int) bool {
	return ((mask&CAWizard) != 0 && Wizard(g, player)) ||
		((mask&CAAdmin) != 0 && WizRoy(g, player)) ||
		((mask&CABuilder) != 0 && Builder(g, player)) ||
		((mask&CAStaff) != 0 && Staff(g, player)) ||
		((mask&CAHead) != 0 && Head(g, player)) ||
		((mask&CAImmortal) != 0 && Immortal(g, player)) ||
		((mask&CAModuleOK) != 0 && CanUseModule(g, player))
}

// checkMarkerBits tests the marker group: any requested marker flag on the
// player satisfies it.
func checkMarkerBits(g *Game, player gamedb.DBRef, mask int) bool {
	obj := g.DB.Get(player)
	if obj == nil {
		return false
	}
	for _, m := range markerFlags {
		if mask&m.mask != 0 && obj.HasFlag3(m.flag) {
			return true
		}
	}
	return false
}

// CheckAccess decides whether player clears a CA_* permission mask.
// Disabled and static entries fail outright; God and conf-file startup
// bypass everything else. A mask whose only privilege bit is CA_GOD can
// then never pass. The privilege bits and the marker bits each form a
// "must have one of" group; when both groups are present, satisfying
// either suffices. Finally the must-not-be bits are applied, except to
// wizards.
func CheckAccess(g *Game, player gamedb.DBRef, mask int) bool {
	if mask&(CADisabled|CAStatic) != 0 {
		return false
	}
	if IsGod(g, player) || g.State.Initializing {
		return true
	}

	mval := mask & (CAIsPrivMask | CAMarkerMask)
	if mval == CAGod {
		return false
	}
	if mval != 0 {
		priv := mask & CAIsPrivMask
		marker := mask & CAMarkerMask
		switch {
		case priv != 0 && marker == 0:
			if !checkPrivBits(g, player, mask) {
				return false
			}
		case priv == 0 && marker != 0:
			if !checkMarkerBits(g, player, mask) {
				return false
			}
		default:
			if !checkPrivBits(g, player, mask) && !checkMarkerBits(g, player, mask) {
				return false
			}
		}
	}

	if (mask&CAIsNotMask) != 0 && !Wizard(g, player) {
		if ((mask&CANoHaven) != 0 && PlayerHaven(g, player)) ||
			((mask&CANoRobot) != 0 && Robot(g, player)) ||
			((mask&CANoSlave) != 0 && Slave(g, player)) ||
			((mask&CANoSuspect) != 0 && Suspect(g, player)) ||
			((mask&CANoGuest) != 0 && Guest(g, player)) {
			return false
		}
	}
	return true
}

// ModPerm is one external permission callout. All registered callouts must
// agree before a guarded command runs.
type ModPerm func(g *Game, player gamedb.DBRef) bool

// CheckModAccess runs a callout sequence, treating each like a permission
// check. Nil entries are skipped; an empty list passes.
func CheckModAccess(g *Game, player gamedb.DBRef, perms []ModPerm) bool {
	for _, fn := range perms {
		if fn == nil {
			continue
		}
		if !fn(g, player) {
			return false
		}
	}
	return true
}

// CheckUserdefAccess evaluates a command's user-defined permission
// obj/attr pair. The attribute runs with the hook object as executor and
// the invoking player as enactor, against a private copy of the global
// registers, and its result is read as softcode truth. A missing or empty
// attribute is a failure.
func CheckUserdefAccess(g *Game, player gamedb.DBRef, hookp *HookEnt, cargs []string) bool {
	text := g.atrGet(hookp.Thing, hookp.Attr)
	if text == "" {
		return false
	}

	saved := g.State.SaveRegs()
	result := g.exec(hookp.Thing, player, player,
		text, eval.EvEval|eval.EvFCheck, cargs)
	g.State.RestoreRegs(saved)

	return eval.Xlate(result)
}

// CheckCmdAccess combines the mask check with any user-defined permission
// on the command. God ignores user-defined permissions.
func CheckCmdAccess(g *Game, player gamedb.DBRef, cmdp *Command, cargs []string) bool {
	if !CheckAccess(g, player, cmdp.Perms) {
		return false
	}
	if cmdp.UserPerms == nil || IsGod(g, player) {
		return true
	}
	return CheckUserdefAccess(g, player, cmdp.UserPerms, cargs)
}
