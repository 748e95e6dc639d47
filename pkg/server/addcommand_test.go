package server

import (
	"testing"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

func TestValidAddName(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"zap", true},
		{"+vote", true},
		{"", false},
		{"__shadow", false},
		{"two words", false},
		{"tab\tname", false},
	}
	for _, tc := range cases {
		if got := validAddName(tc.name); got != tc.want {
			t.Errorf("validAddName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAddCommandLifecycle(t *testing.T) {
	g, cap := newTestGame(t)
	holder := addTestObject(g.DB, 90, "Softcode", gamedb.TypeThing, testGod)
	addToRoom(g.DB, testMasterRoom, 90)
	g.DB.AddAttrDef(256, "ZAPCMD", 0)
	holder.SetAttr(256, "$zap *:@pemit %#=Zapped %0!")

	g.ProcessCommand(testGod, testGod, true, "@addcommand zap=#90/zapcmd", nil)
	if got := cap.Last(testGod); got != "Command zap added." {
		t.Errorf("got %q", got)
	}

	cmd := g.Commands.Lookup("zap")
	if cmd == nil || cmd.CallSeq&CSAdded == 0 {
		t.Fatal("added command not registered")
	}

	cap.Reset()
	g.ProcessCommand(testPlayer, testPlayer, true, "zap dragon", nil)
	if got := cap.Last(testPlayer); got != "Zapped dragon!" {
		t.Errorf("got %q, want Zapped dragon!", got)
	}

	cap.Reset()
	g.ProcessCommand(testGod, testGod, true, "@delcommand zap", nil)
	if got := cap.Last(testGod); got != "Done" {
		t.Errorf("got %q", got)
	}
	if g.Commands.Lookup("zap") != nil {
		t.Error("deleted command still registered")
	}
}

func TestAddCommandMortalDenied(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCommand(testPlayer, testPlayer, true, "@addcommand zap=me/desc", nil)
	if got := cap.Last(testPlayer); got != g.Conf.NoPermMsg {
		t.Errorf("got %q, want %q", got, g.Conf.NoPermMsg)
	}
}

func TestAddCommandBadName(t *testing.T) {
	g, cap := newTestGame(t)
	addTestObject(g.DB, 91, "Softcode", gamedb.TypeThing, testGod)
	g.DB.AddAttrDef(256, "ZAPCMD", 0)

	g.ProcessCommand(testGod, testGod, true, "@addcommand __bad=#91/zapcmd", nil)
	if got := cap.Last(testGod); got != "That is not a valid command name." {
		t.Errorf("got %q", got)
	}

	g.ProcessCommand(testGod, testGod, true, "@addcommand zap=#91/missing", nil)
	if got := cap.Last(testGod); got != "No such attribute." {
		t.Errorf("got %q", got)
	}
}

func TestAddCommandShadowsBuiltin(t *testing.T) {
	g, cap := newTestGame(t)
	holder := addTestObject(g.DB, 92, "Softcode", gamedb.TypeThing, testGod)
	addToRoom(g.DB, testMasterRoom, 92)
	g.DB.AddAttrDef(256, "THINKCMD", 0)
	holder.SetAttr(256, "$think *:@pemit %#=Shadowed: %0")

	g.ProcessCommand(testGod, testGod, true, "@addcommand think=#92/thinkcmd", nil)

	cap.Reset()
	g.ProcessCommand(testPlayer, testPlayer, true, "think deep", nil)
	if got := cap.Last(testPlayer); got != "Shadowed: deep" {
		t.Errorf("got %q, want the softcode shadow", got)
	}

	// The builtin survives under its double-underscore name.
	if g.Commands.Lookup("__think") == nil {
		t.Error("shadowed builtin not parked under __think")
	}

	// Deleting the added command restores the builtin.
	g.ProcessCommand(testGod, testGod, true, "@delcommand think", nil)
	cap.Reset()
	g.ProcessCommand(testPlayer, testPlayer, true, "think [add(1,1)]", nil)
	if got := cap.Last(testPlayer); got != "2" {
		t.Errorf("got %q, want the restored builtin", got)
	}
}

func TestAddCommandNoMatchHuh(t *testing.T) {
	g, cap := newTestGame(t)
	g.Conf.AddcmdMatchBlindly = false
	holder := addTestObject(g.DB, 93, "Softcode", gamedb.TypeThing, testGod)
	addToRoom(g.DB, testMasterRoom, 93)
	g.DB.AddAttrDef(256, "ZAPCMD", 0)
	holder.SetAttr(256, "$zap dragon:@pemit %#=Slain.")

	g.ProcessCommand(testGod, testGod, true, "@addcommand zap=#93/zapcmd", nil)

	cap.Reset()
	g.ProcessCommand(testPlayer, testPlayer, true, "zap kitten", nil)
	if got := cap.Last(testPlayer); got != g.Conf.HuhMsg {
		t.Errorf("got %q, want %q", got, g.Conf.HuhMsg)
	}
}

func TestAddCommandStacksPatterns(t *testing.T) {
	g, cap := newTestGame(t)
	a := addTestObject(g.DB, 94, "First", gamedb.TypeThing, testGod)
	b := addTestObject(g.DB, 95, "Second", gamedb.TypeThing, testGod)
	addToRoom(g.DB, testMasterRoom, 94)
	addToRoom(g.DB, testMasterRoom, 95)
	g.DB.AddAttrDef(256, "CMD", 0)
	a.SetAttr(256, "$poll *:@pemit %#=first says %0")
	b.SetAttr(256, "$poll *:@pemit %#=second says %0")

	g.ProcessCommand(testGod, testGod, true, "@addcommand poll=#94/cmd", nil)
	g.ProcessCommand(testGod, testGod, true, "@addcommand poll=#95/cmd", nil)

	cap.Reset()
	g.ProcessCommand(testPlayer, testPlayer, true, "poll hi", nil)
	lines := cap.Lines(testPlayer)
	if len(lines) != 2 || lines[0] != "first says hi" || lines[1] != "second says hi" {
		t.Errorf("lines = %v, want both handlers in attach order", lines)
	}
}
