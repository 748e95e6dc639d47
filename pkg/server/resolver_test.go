package server

import (
	"testing"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

func TestProcessCommandHuh(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCommand(testPlayer, testPlayer, true, "frobnicate widget", nil)
	if got := cap.Last(testPlayer); got != g.Conf.HuhMsg {
		t.Errorf("got %q, want %q", got, g.Conf.HuhMsg)
	}
}

func TestProcessCommandReturnsPreserved(t *testing.T) {
	g, _ := newTestGame(t)

	got := g.ProcessCommand(testPlayer, testPlayer, true, "   think ok", nil)
	if got != "think ok" {
		t.Errorf("preserved command = %q, want %q", got, "think ok")
	}
}

func TestProcessCommandBuiltin(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCommand(testPlayer, testPlayer, true, "think [add(1,2)]", nil)
	if got := cap.Last(testPlayer); got != "3" {
		t.Errorf("think result = %q, want %q", got, "3")
	}
}

func TestProcessCommandSayLeadin(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCommand(testPlayer, testPlayer, true, "\"hello", nil)
	if !cap.Contains(testPlayer, `You say "hello"`) {
		t.Errorf("speaker lines = %v", cap.Lines(testPlayer))
	}
	if !cap.Contains(testGod, `Rhea says "hello"`) {
		t.Errorf("room lines = %v", cap.Lines(testGod))
	}
}

func TestProcessCommandPoseLeadin(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCommand(testPlayer, testPlayer, true, ":grins.", nil)
	if !cap.Contains(testGod, "Rhea grins.") {
		t.Errorf("room lines = %v", cap.Lines(testGod))
	}

	cap.Reset()
	g.ProcessCommand(testPlayer, testPlayer, true, ";'s eyes glow.", nil)
	if !cap.Contains(testGod, "Rhea's eyes glow.") {
		t.Errorf("semipose lines = %v", cap.Lines(testGod))
	}
}

func TestProcessCommandHomeFixed(t *testing.T) {
	g, cap := newTestGame(t)
	pObj := g.DB.Get(testPlayer)
	pObj.Flags[1] |= gamedb.Flag2Fixed

	g.ProcessCommand(testPlayer, testPlayer, true, "home", nil)
	if got := cap.Last(testPlayer); got != g.Conf.FixedHomeMsg {
		t.Errorf("got %q, want %q", got, g.Conf.FixedHomeMsg)
	}
}

func TestProcessCommandHome(t *testing.T) {
	g, _ := newTestGame(t)
	addTestObject(g.DB, 50, "Den", gamedb.TypeRoom, testPlayer)
	pObj := g.DB.Get(testPlayer)
	pObj.Link = 50

	g.ProcessCommand(testPlayer, testPlayer, true, "home", nil)
	if got := g.Location(testPlayer); got != 50 {
		t.Errorf("player location = %d, want 50", got)
	}
}

func TestProcessCommandExitMatch(t *testing.T) {
	g, _ := newTestGame(t)
	addTestObject(g.DB, 51, "Hall", gamedb.TypeRoom, testGod)
	exit := addTestObject(g.DB, 52, "East;e", gamedb.TypeExit, testGod)
	exit.Location = 51
	exit.Link = 51
	g.DB.Get(testRoomZero).Exits = 52

	g.ProcessCommand(testPlayer, testPlayer, true, "e", nil)
	if got := g.Location(testPlayer); got != 51 {
		t.Errorf("player location = %d, want 51", got)
	}
}

func TestProcessCommandDollarPattern(t *testing.T) {
	g, cap := newTestGame(t)
	vendor := addTestObject(g.DB, 53, "Vendor", gamedb.TypeThing, testGod)
	vendor.Flags[1] |= gamedb.Flag2HasCommands
	addToRoom(g.DB, testRoomZero, 53)
	g.DB.AddAttrDef(256, "BUYCMD", 0)
	vendor.SetAttr(256, "$buy *:@pemit %#=One %0, coming right up.")

	g.ProcessCommand(testPlayer, testPlayer, true, "buy hat", nil)
	g.ProcessQueue(10)
	if got := cap.Last(testPlayer); got != "One hat, coming right up." {
		t.Errorf("got %q, want vendor reply", got)
	}
}

func TestProcessCommandDollarPatternNow(t *testing.T) {
	g, cap := newTestGame(t)
	vendor := addTestObject(g.DB, 54, "Vendor", gamedb.TypeThing, testGod)
	vendor.Flags[1] |= gamedb.Flag2HasCommands
	addToRoom(g.DB, testRoomZero, 54)
	g.DB.AddAttrDef(256, "BUYCMD", gamedb.AFNow)
	vendor.SetAttr(256, "$buy *:@pemit %#=Instantly: %0.")

	g.ProcessCommand(testPlayer, testPlayer, true, "buy hat", nil)
	// No queue run; the immediate flag executes the action inline.
	if got := cap.Last(testPlayer); got != "Instantly: hat." {
		t.Errorf("got %q, want inline vendor reply", got)
	}
}

func TestProcessCommandMasterRoomFallback(t *testing.T) {
	g, cap := newTestGame(t)
	global := addTestObject(g.DB, 55, "Globals", gamedb.TypeThing, testGod)
	global.Flags[1] |= gamedb.Flag2HasCommands
	addToRoom(g.DB, testMasterRoom, 55)
	g.DB.AddAttrDef(256, "VERCMD", 0)
	global.SetAttr(256, "$+version:@pemit %#=Version 1.")

	g.ProcessCommand(testPlayer, testPlayer, true, "+version", nil)
	g.ProcessQueue(10)
	if got := cap.Last(testPlayer); got != "Version 1." {
		t.Errorf("got %q, want master room command output", got)
	}
}

func TestProcessCommandHaltedInvoker(t *testing.T) {
	g, cap := newTestGame(t)
	thing := addTestObject(g.DB, 56, "Frozen", gamedb.TypeThing, testPlayer)
	thing.Flags[0] |= gamedb.FlagHalt
	addToRoom(g.DB, testRoomZero, 56)

	g.ProcessCommand(56, testPlayer, false, "think nope", nil)
	if !cap.Contains(testPlayer, "Attempt to execute command by halted object #56") {
		t.Errorf("owner lines = %v", cap.Lines(testPlayer))
	}
}

func TestProcessCommandVerboseEcho(t *testing.T) {
	g, cap := newTestGame(t)
	thing := addTestObject(g.DB, 57, "Chatty", gamedb.TypeThing, testPlayer)
	thing.Flags[0] |= gamedb.FlagVerbose
	addToRoom(g.DB, testRoomZero, 57)

	g.ProcessCommand(57, testPlayer, false, "think quiet", nil)
	if !cap.Contains(testPlayer, "Chatty] think quiet") {
		t.Errorf("owner lines = %v", cap.Lines(testPlayer))
	}
}

func TestProcessCommandSpaceCompression(t *testing.T) {
	g, _ := newTestGame(t)

	got := g.ProcessCommand(testPlayer, testPlayer, true, "think   a    b", nil)
	// The preserved copy keeps the original spacing for NOSQUISH commands.
	if got != "think   a    b" {
		t.Errorf("preserved = %q", got)
	}
}

func TestFirstWord(t *testing.T) {
	cases := []struct {
		in, word, arg string
	}{
		{"look here", "look", "here"},
		{"look", "look", ""},
		{"look   at thing", "look", "at thing"},
	}
	for _, tc := range cases {
		word, arg := firstWord(tc.in)
		if word != tc.word || arg != tc.arg {
			t.Errorf("firstWord(%q) = (%q, %q), want (%q, %q)",
				tc.in, word, arg, tc.word, tc.arg)
		}
	}
}

func TestCompressSpaces(t *testing.T) {
	if got := compressSpaces("a   b\t\tc"); got != "a b c" {
		t.Errorf("compressSpaces = %q", got)
	}
	if got := compressSpaces("plain"); got != "plain" {
		t.Errorf("compressSpaces(plain) = %q", got)
	}
}

func TestProcessCommandInvocationCeiling(t *testing.T) {
	g, cap := newTestGame(t)

	g.Conf.CmdInvkLim = 0
	got := g.ProcessCommand(testPlayer, testPlayer, true, "think hi", nil)
	if got != "think hi" {
		t.Errorf("got %q, want the line back unchanged", got)
	}
	if lines := cap.Lines(testPlayer); len(lines) != 0 {
		t.Errorf("expected silence past the ceiling, got %v", lines)
	}

	// A counter already at the ceiling behaves the same way.
	g.Conf.CmdInvkLim = 5
	g.State.CmdInvkCtr = 5
	got = g.ProcessCommand(testPlayer, testPlayer, true, "think again", nil)
	if got != "think again" {
		t.Errorf("got %q, want the line back unchanged", got)
	}
	if lines := cap.Lines(testPlayer); len(lines) != 0 {
		t.Errorf("expected silence past the ceiling, got %v", lines)
	}
}
