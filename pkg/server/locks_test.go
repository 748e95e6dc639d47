package server

import (
	"testing"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

func TestParseBoolExpShapes(t *testing.T) {
	g, _ := newTestGame(t)

	b := ParseBoolExp(g, testGod, "#3")
	if b == nil || b.Type != gamedb.BoolConst || b.Thing != 3 {
		t.Errorf("parse #3 = %+v", b)
	}

	b = ParseBoolExp(g, testGod, "!#3")
	if b == nil || b.Type != gamedb.BoolNot || b.Sub1.Thing != 3 {
		t.Errorf("parse !#3 = %+v", b)
	}

	b = ParseBoolExp(g, testGod, "#1&#3")
	if b == nil || b.Type != gamedb.BoolAnd || b.Sub1.Thing != 1 || b.Sub2.Thing != 3 {
		t.Errorf("parse #1&#3 = %+v", b)
	}

	b = ParseBoolExp(g, testGod, "#1|#3")
	if b == nil || b.Type != gamedb.BoolOr {
		t.Errorf("parse #1|#3 = %+v", b)
	}

	// AND binds tighter than OR.
	b = ParseBoolExp(g, testGod, "#1|#2&#3")
	if b == nil || b.Type != gamedb.BoolOr || b.Sub2.Type != gamedb.BoolAnd {
		t.Errorf("precedence parse = %+v", b)
	}

	g.DB.AddAttrDef(256, "COLOR", 0)
	b = ParseBoolExp(g, testGod, "color:red*")
	if b == nil || b.Type != gamedb.BoolAttr || b.Thing != 256 || b.StrVal != "red*" {
		t.Errorf("parse attr lock = %+v", b)
	}

	// Names are resolved at parse time; unknown names become impossible.
	b = ParseBoolExp(g, testGod, "nonesuch")
	if b == nil || b.Type != gamedb.BoolConst || b.Thing != int(gamedb.Nothing) {
		t.Errorf("unresolved name = %+v", b)
	}

	if ParseBoolExp(g, testGod, "") != nil {
		t.Error("empty lock should parse to nil")
	}
}

func TestEvalBoolExpConst(t *testing.T) {
	g, _ := newTestGame(t)

	b := ParseBoolExp(g, testGod, "#3")
	if !EvalBoolExp(g, testPlayer, testGod, testGod, b, 0) {
		t.Error("player should pass their own dbref lock")
	}
	if EvalBoolExp(g, testGod, testPlayer, testPlayer, b, 0) {
		t.Error("someone else should not pass")
	}

	// Carrying the named object also passes a const lock.
	key := addTestObject(g.DB, 70, "Brass Key", gamedb.TypeThing, testGod)
	addToRoom(g.DB, testGod, 70)
	_ = key
	keyLock := ParseBoolExp(g, testGod, "#70")
	if !EvalBoolExp(g, testGod, testPlayer, testPlayer, keyLock, 0) {
		t.Error("carrying the key should pass")
	}
}

func TestEvalBoolExpOperators(t *testing.T) {
	g, _ := newTestGame(t)

	not := ParseBoolExp(g, testGod, "!#3")
	if EvalBoolExp(g, testPlayer, testGod, testGod, not, 0) {
		t.Error("negated self lock should fail")
	}

	or := ParseBoolExp(g, testGod, "#1|#3")
	if !EvalBoolExp(g, testPlayer, testGod, testGod, or, 0) {
		t.Error("or lock with a matching arm should pass")
	}

	and := ParseBoolExp(g, testGod, "#1&#3")
	if EvalBoolExp(g, testPlayer, testGod, testGod, and, 0) {
		t.Error("and lock with one failing arm should fail")
	}
}

func TestEvalBoolExpIsAndOwner(t *testing.T) {
	g, _ := newTestGame(t)

	// =#70 requires being that exact object, carrying is not enough.
	addTestObject(g.DB, 70, "Brass Key", gamedb.TypeThing, testGod)
	addToRoom(g.DB, testGod, 70)
	is := ParseBoolExp(g, testGod, "=#70")
	if EvalBoolExp(g, testGod, testPlayer, testPlayer, is, 0) {
		t.Error("carrier passed an is-lock")
	}
	if !EvalBoolExp(g, 70, testPlayer, testPlayer, is, 0) {
		t.Error("the object itself failed its is-lock")
	}

	// $#70 passes anything with the same owner.
	owner := ParseBoolExp(g, testGod, "$#70")
	if !EvalBoolExp(g, testGod, testPlayer, testPlayer, owner, 0) {
		t.Error("owner should pass the owner lock")
	}
	if EvalBoolExp(g, testPlayer, testGod, testGod, owner, 0) {
		t.Error("unrelated player passed the owner lock")
	}
}

func TestEvalBoolExpAttr(t *testing.T) {
	g, _ := newTestGame(t)
	g.DB.AddAttrDef(256, "COLOR", 0)
	g.DB.Get(testPlayer).SetAttr(256, "red")

	b := ParseBoolExp(g, testGod, "color:r*")
	if !EvalBoolExp(g, testPlayer, testGod, testGod, b, 0) {
		t.Error("attribute lock should match the player's attr")
	}
	if EvalBoolExp(g, testGod, testPlayer, testPlayer, b, 0) {
		t.Error("attribute lock matched an object without the attr")
	}
}

func TestEvalBoolExpIndirect(t *testing.T) {
	g, _ := newTestGame(t)
	keyring := addTestObject(g.DB, 71, "Keyring", gamedb.TypeThing, testGod)
	keyring.SetAttr(gamedb.A_Lock, "#3")

	b := ParseBoolExp(g, testGod, "@#71")
	if !EvalBoolExp(g, testPlayer, testGod, testGod, b, 0) {
		t.Error("indirect lock should follow the referenced object's lock")
	}
	if EvalBoolExp(g, testGod, testPlayer, testPlayer, b, 0) {
		t.Error("indirect lock passed the wrong player")
	}

	// Header locks also resolve through indirection.
	keyring.SetAttr(gamedb.A_Lock, "")
	keyring.Lock = &gamedb.BoolExp{Type: gamedb.BoolConst, Thing: 3}
	if !EvalBoolExp(g, testPlayer, testGod, testGod, b, 0) {
		t.Error("header lock not honored through indirection")
	}
}

func TestUnparseBoolExp(t *testing.T) {
	g, _ := newTestGame(t)

	b := ParseBoolExp(g, testGod, "!#3")
	if got := UnparseBoolExp(g, b); got != "!Rhea(#3)" {
		t.Errorf("unparse = %q", got)
	}

	g.DB.AddAttrDef(256, "COLOR", 0)
	b = ParseBoolExp(g, testGod, "color:r*")
	if got := UnparseBoolExp(g, b); got != "COLOR:r*" {
		t.Errorf("unparse attr = %q", got)
	}

	if got := UnparseBoolExp(g, nil); got != "" {
		t.Errorf("unparse nil = %q", got)
	}
}

func TestCouldDoIt(t *testing.T) {
	g, _ := newTestGame(t)
	chest := addTestObject(g.DB, 72, "Chest", gamedb.TypeThing, testGod)
	chest.SetAttr(gamedb.A_Lock, "#1")

	if CouldDoIt(g, testPlayer, 72, gamedb.A_Lock) {
		t.Error("mortal passed a god-keyed lock")
	}
	// Wizards bypass locks on anything but God.
	if !CouldDoIt(g, testGod, 72, gamedb.A_Lock) {
		t.Error("wizard blocked by an ordinary lock")
	}

	// No lock at all means unlocked.
	open := addTestObject(g.DB, 73, "Open Box", gamedb.TypeThing, testGod)
	_ = open
	if !CouldDoIt(g, testPlayer, 73, gamedb.A_Lock) {
		t.Error("unlocked object blocked a player")
	}
}

func TestCouldDoItStrict(t *testing.T) {
	g, _ := newTestGame(t)
	chest := addTestObject(g.DB, 74, "Chest", gamedb.TypeThing, testGod)
	chest.SetAttr(gamedb.A_Lock, "#3")

	if !CouldDoItStrict(g, testPlayer, 74, gamedb.A_Lock) {
		t.Error("keyed player failed the strict check")
	}
	if CouldDoItStrict(g, testGod, 74, gamedb.A_Lock) {
		t.Error("strict check should not grant a wizard bypass")
	}
}
