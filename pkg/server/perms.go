package server

import (
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// IsGod returns true if player is the God player.
func IsGod(g *Game, player gamedb.DBRef) bool {
	return player == gamedb.DBRef(g.Conf.GodDBRef)
}

// Inherits returns true if obj inherits privilege from its owner.
// Players always inherit. Non-players inherit if they have INHERIT set,
// or their owner has INHERIT set, or they are their own owner.
func Inherits(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	if o == nil {
		return false
	}
	if o.ObjType() == gamedb.TypePlayer {
		return true
	}
	if o.HasFlag(gamedb.FlagInherit) {
		return true
	}
	if o.Owner == obj {
		return true
	}
	if owner := g.DB.Get(o.Owner); owner != nil {
		return owner.HasFlag(gamedb.FlagInherit)
	}
	return false
}

// Wizard returns true if obj is an effective wizard: it carries the WIZARD
// flag itself, or its owner does and the object inherits.
func Wizard(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	if o == nil {
		return false
	}
	if o.HasFlag(gamedb.FlagWizard) {
		return true
	}
	owner := g.DB.Get(o.Owner)
	return owner != nil && owner.HasFlag(gamedb.FlagWizard) && Inherits(g, obj)
}

// Royalty returns true if obj has the ROYALTY flag. Unlike Wizard this
// does not consult the owner.
func Royalty(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasFlag(gamedb.FlagRoyalty)
}

// WizRoy returns true if obj is either an effective wizard or royalty.
func WizRoy(g *Game, obj gamedb.DBRef) bool {
	return Wizard(g, obj) || Royalty(g, obj)
}

// Immortal returns true if obj is effectively immortal, with the same
// owner-inheritance rule as Wizard.
func Immortal(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	if o == nil {
		return false
	}
	if o.HasFlag(gamedb.FlagImmortal) {
		return true
	}
	owner := g.DB.Get(o.Owner)
	return owner != nil && owner.HasFlag(gamedb.FlagImmortal) && Inherits(g, obj)
}

// Builder returns true if obj may build: effective WizRoy or the BUILDER
// power.
func Builder(g *Game, obj gamedb.DBRef) bool {
	if WizRoy(g, obj) {
		return true
	}
	o := g.DB.Get(obj)
	return o != nil && o.HasPower(1, gamedb.Pow2Builder)
}

// Staff returns true if obj carries the STAFF flag.
func Staff(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasFlag2(gamedb.Flag2Staff)
}

// Head returns true if obj carries the HEAD flag.
func Head(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasFlag2(gamedb.Flag2Head)
}

// CanUseModule returns true if obj holds the USE_MODULE power.
func CanUseModule(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasPower(1, gamedb.Pow2UseModule)
}

// Robot returns true if obj is flagged as a robot.
func Robot(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasFlag(gamedb.FlagRobot)
}

// Slave returns true if obj carries the SLAVE flag.
func Slave(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasFlag2(gamedb.Flag2Slave)
}

// Suspect returns true if obj or its owner is marked SUSPECT.
func Suspect(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	if o == nil {
		return false
	}
	if o.HasFlag2(gamedb.Flag2Suspect) {
		return true
	}
	owner := g.DB.Get(o.Owner)
	return owner != nil && owner.HasFlag2(gamedb.Flag2Suspect)
}

// Guest returns true if obj holds the guest power.
func Guest(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasPower(0, gamedb.PowGuest)
}

// PlayerHaven is true for a player hiding behind the HAVEN flag.
func PlayerHaven(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.ObjType() == gamedb.TypePlayer && o.HasFlag(gamedb.FlagHaven)
}

// Fixed returns true if obj may not move itself around.
func Fixed(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasFlag2(gamedb.Flag2Fixed)
}

// VerboseObj returns true if obj echoes its commands to its owner.
func VerboseObj(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasFlag(gamedb.FlagVerbose)
}

// Halted returns true if obj may not run commands.
func Halted(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasFlag(gamedb.FlagHalt)
}

// StopMatch returns true if a $-command match on obj ends the matching
// cascade.
func StopMatch(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasFlag2(gamedb.Flag2StopMatch)
}

// NoCommand returns true if $-command matching should skip obj entirely.
func NoCommand(g *Game, obj gamedb.DBRef) bool {
	o := g.DB.Get(obj)
	return o != nil && o.HasFlag3(gamedb.Flag3NoCommand)
}

// HasCommands returns true if obj is marked as carrying $-commands. When
// the COMMANDS flag is not required by configuration every object
// qualifies.
func HasCommands(g *Game, obj gamedb.DBRef) bool {
	if !g.Conf.ReqCmdsFlag {
		return true
	}
	o := g.DB.Get(obj)
	return o != nil && o.HasFlag2(gamedb.Flag2HasCommands)
}

// ControlAll returns true if obj has POW_CONTROL_ALL or is an effective
// wizard.
func ControlAll(g *Game, obj gamedb.DBRef) bool {
	if Wizard(g, obj) {
		return true
	}
	o := g.DB.Get(obj)
	return o != nil && o.HasPower(0, gamedb.PowControlAll)
}

// SeeAll returns true if obj has POW_EXAM_ALL or is effective WizRoy.
func SeeAll(g *Game, obj gamedb.DBRef) bool {
	if WizRoy(g, obj) {
		return true
	}
	o := g.DB.Get(obj)
	return o != nil && o.HasPower(0, gamedb.PowExamAll)
}

// PassLocks returns true if player has the POW_PASS_LOCKS power.
func PassLocks(g *Game, player gamedb.DBRef) bool {
	o := g.DB.Get(player)
	return o != nil && o.HasPower(0, gamedb.PowPassLocks)
}

// CheckZone checks if player passes the zone control lock chain for thing:
// 1. thing must not be a player
// 2. thing must have CONTROL_OK
// 3. thing's zone master object (ZMO) must have a control lock set
// 4. player must pass the ZMO's control lock
// 5. On failure, recurse on the ZMO's zone up to the nesting limit
func CheckZone(g *Game, player, thing gamedb.DBRef, depth int) bool {
	if depth > g.Conf.ZoneNestLim {
		return false
	}

	tObj := g.DB.Get(thing)
	if tObj == nil {
		return false
	}
	if tObj.ObjType() == gamedb.TypePlayer {
		return false
	}
	if !tObj.HasFlag2(gamedb.Flag2ControlOK) {
		return false
	}
	if tObj.Zone == gamedb.Nothing {
		return false
	}
	zmo := tObj.Zone

	lockText := g.atrGet(zmo, gamedb.A_Lcontrol)
	if lockText == "" {
		return false
	}
	parsed := ParseBoolExp(g, player, lockText)
	if EvalBoolExp(g, player, zmo, zmo, parsed, 0) {
		return true
	}

	zmoObj := g.DB.Get(zmo)
	if zmoObj == nil || zmoObj.Zone == gamedb.Nothing {
		return false
	}
	return CheckZone(g, player, zmo, depth+1)
}

// CheckZoneForPlayer checks the zone control chain when thing IS a player.
// CONTROL_OK is checked on the zone master object instead of thing itself.
func CheckZoneForPlayer(g *Game, player, thing gamedb.DBRef, depth int) bool {
	if depth > g.Conf.ZoneNestLim {
		return false
	}
	tObj := g.DB.Get(thing)
	if tObj == nil || tObj.ObjType() != gamedb.TypePlayer {
		return false
	}
	if tObj.Zone == gamedb.Nothing {
		return false
	}
	zmo := tObj.Zone
	zmoObj := g.DB.Get(zmo)
	if zmoObj == nil || !zmoObj.HasFlag2(gamedb.Flag2ControlOK) {
		return false
	}
	lockText := g.atrGet(zmo, gamedb.A_Lcontrol)
	if lockText == "" {
		return false
	}
	parsed := ParseBoolExp(g, player, lockText)
	if EvalBoolExp(g, player, zmo, zmo, parsed, 0) {
		return true
	}
	return CheckZone(g, player, zmo, depth+1)
}

// Examinable returns true if player can examine target: target has VISUAL,
// player has SeeAll, same owner, or zone control.
func Examinable(g *Game, player, target gamedb.DBRef) bool {
	if tObj := g.DB.Get(target); tObj != nil && tObj.HasFlag(gamedb.FlagVisual) {
		return true
	}
	if SeeAll(g, player) {
		return true
	}
	pObj := g.DB.Get(player)
	tObj := g.DB.Get(target)
	if pObj != nil && tObj != nil && pObj.Owner == tObj.Owner {
		return true
	}
	return CheckZone(g, player, target, 0)
}

// Controls returns true if player controls target:
// 1. identity always controls
// 2. nobody controls God except God
// 3. ControlAll (wizard or POW_CONTROL_ALL)
// 4. ownership, subject to the inheritance rules
// 5. zone-based control
func Controls(g *Game, player, target gamedb.DBRef) bool {
	if player == target {
		return true
	}
	if IsGod(g, target) && !IsGod(g, player) {
		return false
	}
	if ControlAll(g, player) {
		return true
	}
	tObj := g.DB.Get(target)
	if tObj != nil && tObj.Owner == player {
		if Inherits(g, player) || !Inherits(g, target) {
			return true
		}
	}
	return CheckZone(g, player, target, 0)
}

// SeesHiddenAttrs returns true if player can see AF_MDARK attributes.
func SeesHiddenAttrs(g *Game, player gamedb.DBRef) bool {
	if WizRoy(g, player) {
		return true
	}
	o := g.DB.Get(player)
	return o != nil && o.HasPower(0, gamedb.PowMdarkAttr)
}

// SetsWizAttrs returns true if player can modify AF_WIZARD attributes.
func SetsWizAttrs(g *Game, player gamedb.DBRef) bool {
	if Wizard(g, player) {
		return true
	}
	o := g.DB.Get(player)
	return o != nil && o.HasPower(0, gamedb.PowWizAttr)
}

// CanReadAttr checks if player can read an attribute on target, merging
// the attribute definition's flags with the per-instance flags:
//  1. AF_INTERNAL — never visible
//  2. AF_IS_LOCK — not visible via examine/get
//  3. AF_VISUAL — visible to anyone
//  4. Not Examinable AND player doesn't own the attr — blocked
//  5. AF_MDARK without SeesHiddenAttrs — blocked
//  6. AF_DARK for non-God — blocked
func CanReadAttr(g *Game, player, target gamedb.DBRef, defFlags, instFlags int, attrOwner gamedb.DBRef) bool {
	merged := defFlags | instFlags

	if merged&gamedb.AFInternal != 0 {
		return false
	}
	if merged&gamedb.AFIsLock != 0 {
		return false
	}
	if merged&gamedb.AFVisual != 0 {
		return true
	}
	if IsGod(g, player) {
		return true
	}
	if !Examinable(g, player, target) && attrOwner != player {
		return false
	}
	if merged&gamedb.AFMDark != 0 && !SeesHiddenAttrs(g, player) {
		return false
	}
	if merged&gamedb.AFDark != 0 {
		return false
	}
	return true
}

// Method forms of the checks above, for call sites that already hold a
// Game receiver.

func (g *Game) Wizard(obj gamedb.DBRef) bool     { return Wizard(g, obj) }
func (g *Game) WizRoy(obj gamedb.DBRef) bool     { return WizRoy(g, obj) }
func (g *Game) Fixed(obj gamedb.DBRef) bool      { return Fixed(g, obj) }
func (g *Game) Halted(obj gamedb.DBRef) bool     { return Halted(g, obj) }
func (g *Game) VerboseObj(obj gamedb.DBRef) bool { return VerboseObj(g, obj) }
func (g *Game) StopMatch(obj gamedb.DBRef) bool  { return StopMatch(g, obj) }

func (g *Game) Controls(player, target gamedb.DBRef) bool {
	return Controls(g, player, target)
}

func (g *Game) CheckCmdAccess(player gamedb.DBRef, cmdp *Command, cargs []string) bool {
	return CheckCmdAccess(g, player, cmdp, cargs)
}

// CanSetAttr checks if player can write an attribute on target:
//  1. AF_INTERNAL, AF_IS_LOCK, AF_CONST — never writable
//  2. God can always write
//  3. attrs on God are off-limits to everyone else
//  4. AF_GOD and per-instance AF_LOCK — blocked
//  5. must control target; AF_WIZARD additionally needs SetsWizAttrs
func CanSetAttr(g *Game, player, target gamedb.DBRef, defFlags, instFlags int) bool {
	merged := defFlags | instFlags

	if merged&gamedb.AFInternal != 0 || merged&gamedb.AFIsLock != 0 || merged&gamedb.AFConst != 0 {
		return false
	}
	if IsGod(g, player) {
		return true
	}
	if IsGod(g, target) {
		return false
	}
	if merged&gamedb.AFGod != 0 {
		return false
	}
	if instFlags&gamedb.AFLock != 0 {
		return false
	}
	if !Controls(g, player, target) {
		return false
	}
	if merged&gamedb.AFWizard != 0 && !SetsWizAttrs(g, player) {
		return false
	}
	return true
}
