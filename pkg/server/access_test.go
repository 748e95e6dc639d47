package server

import (
	"testing"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

func TestCheckAccessPublic(t *testing.T) {
	g, _ := newTestGame(t)

	if !CheckAccess(g, testPlayer, CAPublic) {
		t.Error("mortal denied a public command")
	}
}

func TestCheckAccessDisabledAndStatic(t *testing.T) {
	g, _ := newTestGame(t)

	// Even God cannot run disabled or static entries.
	for _, mask := range []int{CADisabled, CAStatic, CADisabled | CAWizard} {
		if CheckAccess(g, testGod, mask) {
			t.Errorf("mask %#x passed for God, want denial", mask)
		}
	}
}

func TestCheckAccessGodOnly(t *testing.T) {
	g, _ := newTestGame(t)

	if !CheckAccess(g, testGod, CAGod) {
		t.Error("God denied a god-only command")
	}
	// A wizard is not God.
	wiz := addTestObject(g.DB, 20, "Wizzo", gamedb.TypePlayer, 20)
	wiz.Flags[0] |= gamedb.FlagWizard
	if CheckAccess(g, 20, CAGod) {
		t.Error("wizard passed a god-only command")
	}
}

func TestCheckAccessWizardBit(t *testing.T) {
	g, _ := newTestGame(t)

	if CheckAccess(g, testPlayer, CAWizard) {
		t.Error("mortal passed a wizard command")
	}

	pObj := g.DB.Get(testPlayer)
	pObj.Flags[0] |= gamedb.FlagWizard
	if !CheckAccess(g, testPlayer, CAWizard) {
		t.Error("wizard denied a wizard command")
	}
}

func TestCheckAccessMarkerBits(t *testing.T) {
	g, _ := newTestGame(t)

	if CheckAccess(g, testPlayer, CAMarker3) {
		t.Error("unmarked player passed a marker-gated command")
	}
	pObj := g.DB.Get(testPlayer)
	pObj.Flags[2] |= gamedb.Flag3Marker3
	if !CheckAccess(g, testPlayer, CAMarker3) {
		t.Error("marked player denied a marker-gated command")
	}
	// Any requested marker suffices.
	if !CheckAccess(g, testPlayer, CAMarker0|CAMarker3|CAMarker9) {
		t.Error("player with one of several requested markers denied")
	}
}

func TestCheckAccessPrivOrMarker(t *testing.T) {
	g, _ := newTestGame(t)

	// Both groups present: satisfying either passes.
	mask := CAWizard | CAMarker5
	if CheckAccess(g, testPlayer, mask) {
		t.Error("mortal with neither group passed")
	}

	pObj := g.DB.Get(testPlayer)
	pObj.Flags[2] |= gamedb.Flag3Marker5
	if !CheckAccess(g, testPlayer, mask) {
		t.Error("marker holder denied when either group should suffice")
	}

	pObj.Flags[2] = 0
	pObj.Flags[0] |= gamedb.FlagWizard
	if !CheckAccess(g, testPlayer, mask) {
		t.Error("wizard denied when either group should suffice")
	}
}

func TestCheckAccessRestrictionBits(t *testing.T) {
	g, _ := newTestGame(t)

	pObj := g.DB.Get(testPlayer)
	pObj.Flags[0] |= gamedb.FlagRobot
	if CheckAccess(g, testPlayer, CANoRobot) {
		t.Error("robot passed a no-robot command")
	}

	// Wizards skip the must-not-be checks.
	pObj.Flags[0] |= gamedb.FlagWizard
	if !CheckAccess(g, testPlayer, CANoRobot) {
		t.Error("wizard robot denied, restrictions should not apply")
	}
}

func TestCheckAccessInitializingBypass(t *testing.T) {
	g, _ := newTestGame(t)

	g.State.Initializing = true
	if !CheckAccess(g, testPlayer, CAWizard) {
		t.Error("startup evaluation denied a restricted command")
	}
}

func TestCheckModAccess(t *testing.T) {
	g, _ := newTestGame(t)

	allow := func(*Game, gamedb.DBRef) bool { return true }
	deny := func(*Game, gamedb.DBRef) bool { return false }

	if !CheckModAccess(g, testPlayer, nil) {
		t.Error("empty callout list should pass")
	}
	if !CheckModAccess(g, testPlayer, []ModPerm{allow, nil, allow}) {
		t.Error("all-allow callouts should pass")
	}
	if CheckModAccess(g, testPlayer, []ModPerm{allow, deny}) {
		t.Error("one denying callout should fail the check")
	}
}

func TestCheckUserdefAccess(t *testing.T) {
	g, _ := newTestGame(t)
	gate := addTestObject(g.DB, 21, "Gate", gamedb.TypeThing, testGod)
	g.DB.AddAttrDef(256, "CANUSE", 0)

	hook := &HookEnt{Thing: 21, Attr: 256}

	// Missing attribute fails.
	if CheckUserdefAccess(g, testPlayer, hook, nil) {
		t.Error("empty permission attribute passed")
	}

	gate.SetAttr(256, "1")
	if !CheckUserdefAccess(g, testPlayer, hook, nil) {
		t.Error("true permission attribute denied")
	}

	gate.SetAttr(256, "0")
	if CheckUserdefAccess(g, testPlayer, hook, nil) {
		t.Error("false permission attribute passed")
	}
}

func TestCheckCmdAccessGodSkipsUserPerms(t *testing.T) {
	g, _ := newTestGame(t)
	gate := addTestObject(g.DB, 22, "Gate", gamedb.TypeThing, testGod)
	g.DB.AddAttrDef(256, "CANUSE", 0)
	gate.SetAttr(256, "0")

	cmd := &Command{
		Name:      "testcmd",
		Perms:     CAPublic,
		UserPerms: &HookEnt{Thing: 22, Attr: 256},
	}

	if CheckCmdAccess(g, testPlayer, cmd, nil) {
		t.Error("mortal passed a command with a false user permission")
	}
	if !CheckCmdAccess(g, testGod, cmd, nil) {
		t.Error("God should ignore user-defined permissions")
	}
}
