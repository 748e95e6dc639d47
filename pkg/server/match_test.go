package server

import (
	"testing"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
	"github.com/google/go-cmp/cmp"
)

func TestMatchWild(t *testing.T) {
	cases := []struct {
		pattern, str string
		want         bool
		args         []string
	}{
		{"get *", "get Lamp", true, []string{"Lamp"}},
		{"get *", "GET lamp", true, []string{"lamp"}},
		{"get *", "drop lamp", false, nil},
		{"* gives you *", "Bob gives you a rock", true, []string{"Bob", "a rock"}},
		{"press ? button", "press A button", true, []string{"A"}},
		{"press ? button", "press AB button", false, nil},
		{"exact", "exact", true, nil},
		{"exact", "exactly", false, nil},
		{"*", "", true, []string{""}},
	}
	for _, tc := range cases {
		var args []string
		got := matchWild(tc.pattern, tc.str, &args)
		if got != tc.want {
			t.Errorf("matchWild(%q, %q) = %v, want %v", tc.pattern, tc.str, got, tc.want)
			continue
		}
		if tc.want && tc.args != nil {
			if diff := cmp.Diff(tc.args, args); diff != "" {
				t.Errorf("matchWild(%q, %q) captures mismatch (-want +got):\n%s",
					tc.pattern, tc.str, diff)
			}
		}
	}
}

func TestRegexpMatch(t *testing.T) {
	var args []string
	if !regexpMatch(`^get (\w+)$`, "get lamp", true, &args) {
		t.Fatal("regexp pattern failed to match")
	}
	// Group 0 is the whole match, group 1 the capture.
	if len(args) < 2 || args[0] != "get lamp" || args[1] != "lamp" {
		t.Errorf("captures = %v", args)
	}

	if regexpMatch(`^GET`, "get lamp", false, nil) {
		t.Error("case-sensitive pattern should not match")
	}
	if !regexpMatch(`^GET`, "get lamp", true, nil) {
		t.Error("caseless pattern should match")
	}
	if regexpMatch(`([unclosed`, "anything", true, nil) {
		t.Error("invalid pattern should fail quietly")
	}
}

func TestFindUnescapedColon(t *testing.T) {
	cases := []struct {
		s    string
		want int
	}{
		{"pattern:action", 7},
		{"no colon here", -1},
		{`a\:b:c`, 4},
		{`\:`, -1},
	}
	for _, tc := range cases {
		if got := findUnescapedColon(tc.s); got != tc.want {
			t.Errorf("findUnescapedColon(%q) = %d, want %d", tc.s, got, tc.want)
		}
	}
}

func TestMatchesExitFromList(t *testing.T) {
	list := "North;n;out"
	cases := []struct {
		str  string
		want bool
	}{
		{"north", true},
		{"NORTH", true},
		{"n", true},
		{"out", true},
		{"o", false},
		{"nor", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := matchesExitFromList(tc.str, list); got != tc.want {
			t.Errorf("matchesExitFromList(%q, %q) = %v, want %v", tc.str, list, got, tc.want)
		}
	}
}

func TestMatchExitInRoom(t *testing.T) {
	g, _ := newTestGame(t)
	addTestObject(g.DB, 40, "East;e", gamedb.TypeExit, testGod)
	room := g.DB.Get(testRoomZero)
	room.Exits = 40
	exit := g.DB.Get(40)
	exit.Location = testMasterRoom
	exit.Link = testMasterRoom

	if got := matchExitInRoom(g, testPlayer, testRoomZero, "e"); got != 40 {
		t.Errorf("alias match = %d, want 40", got)
	}
	if got := matchExitInRoom(g, testPlayer, testRoomZero, "west"); got != gamedb.Nothing {
		t.Errorf("bogus exit name matched %d", got)
	}

	// Exits on a room parent are inherited.
	child := addTestObject(g.DB, 41, "Inner Room", gamedb.TypeRoom, testGod)
	child.Parent = testRoomZero
	if got := matchExitInRoom(g, testPlayer, 41, "east"); got != 40 {
		t.Errorf("parent exit match = %d, want 40", got)
	}
}

func TestAtrMatchQueuesAction(t *testing.T) {
	g, _ := newTestGame(t)
	thing := addTestObject(g.DB, 42, "Vendor", gamedb.TypeThing, testGod)
	thing.Flags[1] |= gamedb.Flag2HasCommands
	g.DB.AddAttrDef(256, "BUYCMD", 0)
	thing.SetAttr(256, "$buy *:@pemit %#=You bought %0.")

	got := atrMatch(g, 42, testPlayer, AmatchCmd, "buy hat", "buy hat", true)
	if got == 0 {
		t.Fatal("matching pattern did not fire")
	}
	imm, _, _ := g.Queue.Stats()
	if imm != 1 {
		t.Errorf("queued %d entries, want 1", imm)
	}
	ent := g.Queue.First()
	if ent.Executor != 42 || ent.Cause != testPlayer {
		t.Errorf("entry executor/cause = %d/%d, want 42/%d", ent.Executor, ent.Cause, testPlayer)
	}
	if len(ent.Args) != 1 || ent.Args[0] != "hat" {
		t.Errorf("entry args = %v, want [hat]", ent.Args)
	}
}

func TestAtrMatchRequiresCommandsFlag(t *testing.T) {
	g, _ := newTestGame(t)
	thing := addTestObject(g.DB, 43, "Mute", gamedb.TypeThing, testGod)
	g.DB.AddAttrDef(256, "BUYCMD", 0)
	thing.SetAttr(256, "$buy *:think bought")

	if atrMatch(g, 43, testPlayer, AmatchCmd, "buy hat", "buy hat", true) != 0 {
		t.Error("matched without the commands flag while the flag is required")
	}

	g.Conf.ReqCmdsFlag = false
	if atrMatch(g, 43, testPlayer, AmatchCmd, "buy hat", "buy hat", true) == 0 {
		t.Error("no match with the flag requirement lifted")
	}
}

func TestAtrMatchHaltedObject(t *testing.T) {
	g, _ := newTestGame(t)
	thing := addTestObject(g.DB, 44, "Stopped", gamedb.TypeThing, testGod)
	thing.Flags[1] |= gamedb.Flag2HasCommands
	thing.Flags[0] |= gamedb.FlagHalt
	g.DB.AddAttrDef(256, "BUYCMD", 0)
	thing.SetAttr(256, "$buy *:think bought")

	if atrMatch(g, 44, testPlayer, AmatchCmd, "buy hat", "buy hat", true) != 0 {
		t.Error("halted object matched a command pattern")
	}
}

func TestAtrMatchUseLock(t *testing.T) {
	g, _ := newTestGame(t)
	thing := addTestObject(g.DB, 45, "Guarded", gamedb.TypeThing, testGod)
	thing.Flags[1] |= gamedb.Flag2HasCommands
	g.DB.AddAttrDef(256, "BUYCMD", 0)
	thing.SetAttr(256, "$buy *:think bought")
	// Use lock that only God passes.
	thing.SetAttr(gamedb.A_Luse, "#1")

	if atrMatch(g, 45, testPlayer, AmatchCmd, "buy hat", "buy hat", true) != 0 {
		t.Error("use-locked object matched for a mortal")
	}
}

func TestListCheckStopMatch(t *testing.T) {
	g, _ := newTestGame(t)
	g.DB.AddAttrDef(256, "CMD", 0)

	first := addTestObject(g.DB, 46, "First", gamedb.TypeThing, testGod)
	first.Flags[1] |= gamedb.Flag2HasCommands | gamedb.Flag2StopMatch
	first.SetAttr(256, "$ping:think pong1")

	second := addTestObject(g.DB, 47, "Second", gamedb.TypeThing, testGod)
	second.Flags[1] |= gamedb.Flag2HasCommands
	second.SetAttr(256, "$ping:think pong2")

	first.Next = 47

	stop := false
	got := listCheck(g, 46, testPlayer, AmatchCmd, "ping", "ping", true, &stop)
	if got != 1 {
		t.Fatal("chain match failed")
	}
	if !stop {
		t.Error("stop status not set by the stopping object")
	}
	imm, _, _ := g.Queue.Stats()
	if imm != 1 {
		t.Errorf("queued %d entries, want 1 (second object should not run)", imm)
	}
}

func TestMatchMinePlayerNeedsBothKnobs(t *testing.T) {
	g, _ := newTestGame(t)
	addTestObject(g.DB, 48, "Golem", gamedb.TypeThing, testPlayer)

	cases := []struct {
		own, ownPl           bool
		wantPlayer, wantThing bool
	}{
		{false, false, false, false},
		{true, false, false, true},
		{false, true, false, false},
		{true, true, true, true},
	}
	for _, tc := range cases {
		g.Conf.MatchOwnCommands = tc.own
		g.Conf.PlayerMatchOwnCommands = tc.ownPl
		if got := matchMine(g, testPlayer); got != tc.wantPlayer {
			t.Errorf("player matchMine(own=%v, player_own=%v) = %v, want %v",
				tc.own, tc.ownPl, got, tc.wantPlayer)
		}
		if got := matchMine(g, 48); got != tc.wantThing {
			t.Errorf("thing matchMine(own=%v) = %v, want %v", tc.own, got, tc.wantThing)
		}
	}
}
