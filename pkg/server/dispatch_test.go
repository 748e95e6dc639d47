package server

import (
	"testing"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// probeResult records what a probe command handler was called with.
type probeResult struct {
	called bool
	key    int
	arg    string
	arg1   string
	argv   []string
}

func probeSwitches() []NameTab {
	return []NameTab{
		{Name: "loud", MinLen: 1, Perm: CAPublic, Flag: 0x100 | SwMultiple},
		{Name: "soft", MinLen: 1, Perm: CAPublic, Flag: 0x200 | SwMultiple},
		{Name: "once", MinLen: 1, Perm: CAPublic, Flag: 0x400},
		{Name: "twice", MinLen: 1, Perm: CAPublic, Flag: 0x800},
		{Name: "admin", MinLen: 1, Perm: CAWizard, Flag: 0x1000},
	}
}

func TestProcessCmdentUnknownSwitch(t *testing.T) {
	g, cap := newTestGame(t)
	cmd := &Command{
		Name: "probe", Switches: probeSwitches(), Perms: CAPublic,
		CallSeq: CSOneArg,
		OneArg:  func(g *Game, player, cause gamedb.DBRef, key int, arg string) {},
	}

	g.ProcessCmdent(cmd, "bogus", testPlayer, testPlayer, true, "", "probe/bogus", nil)
	want := "Unrecognized switch 'bogus' for command 'probe'."
	if got := cap.Last(testPlayer); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestProcessCmdentNoSwitchesAllowed(t *testing.T) {
	g, cap := newTestGame(t)
	cmd := &Command{
		Name: "plain", Perms: CAPublic, CallSeq: CSOneArg,
		OneArg: func(g *Game, player, cause gamedb.DBRef, key int, arg string) {},
	}

	g.ProcessCmdent(cmd, "loud", testPlayer, testPlayer, true, "", "plain/loud", nil)
	want := "Command plain does not take switches."
	if got := cap.Last(testPlayer); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestProcessCmdentIllegalCombination(t *testing.T) {
	g, cap := newTestGame(t)
	cmd := &Command{
		Name: "probe", Switches: probeSwitches(), Perms: CAPublic,
		CallSeq: CSOneArg,
		OneArg:  func(g *Game, player, cause gamedb.DBRef, key int, arg string) {},
	}

	g.ProcessCmdent(cmd, "once/twice", testPlayer, testPlayer, true, "", "probe/once/twice", nil)
	if got := cap.Last(testPlayer); got != "Illegal combination of switches." {
		t.Errorf("got %q, want illegal-combination message", got)
	}
}

func TestProcessCmdentSwitchFolding(t *testing.T) {
	g, _ := newTestGame(t)
	var res probeResult
	cmd := &Command{
		Name: "probe", Switches: probeSwitches(), Perms: CAPublic,
		Extra: 0x1, CallSeq: CSOneArg,
		OneArg: func(g *Game, player, cause gamedb.DBRef, key int, arg string) {
			res = probeResult{called: true, key: key, arg: arg}
		},
	}

	// Two combinable switches plus one unique one all fold into the key,
	// alongside the command's default bits.
	g.ProcessCmdent(cmd, "loud/soft/once", testPlayer, testPlayer, true, "hi", "probe hi", nil)
	if !res.called {
		t.Fatal("handler not called")
	}
	if want := 0x1 | 0x100 | 0x200 | 0x400; res.key != want {
		t.Errorf("key = %#x, want %#x", res.key, want)
	}
	if res.arg != "hi" {
		t.Errorf("arg = %q, want %q", res.arg, "hi")
	}
}

func TestProcessCmdentSwitchPermission(t *testing.T) {
	g, cap := newTestGame(t)
	var res probeResult
	cmd := &Command{
		Name: "probe", Switches: probeSwitches(), Perms: CAPublic,
		CallSeq: CSOneArg,
		OneArg: func(g *Game, player, cause gamedb.DBRef, key int, arg string) {
			res.called = true
			res.key = key
		},
	}

	g.ProcessCmdent(cmd, "admin", testPlayer, testPlayer, true, "", "probe/admin", nil)
	if res.called {
		t.Error("handler ran despite a denied switch")
	}
	if got := cap.Last(testPlayer); got != g.Conf.NoPermMsg {
		t.Errorf("got %q, want %q", got, g.Conf.NoPermMsg)
	}

	g.ProcessCmdent(cmd, "admin", testGod, testGod, true, "", "probe/admin", nil)
	if !res.called || res.key != 0x1000 {
		t.Errorf("God denied a wizard switch: called=%v key=%#x", res.called, res.key)
	}
}

func TestProcessCmdentObjtypeGate(t *testing.T) {
	g, cap := newTestGame(t)
	addTestObject(g.DB, 30, "Widget", gamedb.TypeThing, testPlayer)

	cmd := &Command{
		Name: "players-only", Perms: CAPlayer, CallSeq: CSNoArgs,
		NoArg: func(g *Game, player, cause gamedb.DBRef, key int) {},
	}
	g.ProcessCmdent(cmd, "", 30, testPlayer, false, "", "players-only", nil)
	if got := cap.Last(30); got != "Command incompatible with invoker's type." {
		t.Errorf("got %q, want objtype message", got)
	}
}

func TestProcessCmdentPermDenied(t *testing.T) {
	g, cap := newTestGame(t)
	cmd := &Command{
		Name: "wizonly", Perms: CAWizard, CallSeq: CSNoArgs,
		NoArg: func(g *Game, player, cause gamedb.DBRef, key int) {},
	}

	g.ProcessCmdent(cmd, "", testPlayer, testPlayer, true, "", "wizonly", nil)
	if got := cap.Last(testPlayer); got != g.Conf.NoPermMsg {
		t.Errorf("got %q, want %q", got, g.Conf.NoPermMsg)
	}
}

func TestProcessCmdentOneArgEval(t *testing.T) {
	g, _ := newTestGame(t)
	var res probeResult
	cmd := &Command{
		Name: "calc", Perms: CAPublic, CallSeq: CSOneArg | CSInterp,
		OneArg: func(g *Game, player, cause gamedb.DBRef, key int, arg string) {
			res = probeResult{called: true, arg: arg}
		},
	}

	g.ProcessCmdent(cmd, "", testPlayer, testPlayer, true, "[add(2,3)]", "calc [add(2,3)]", nil)
	if !res.called || res.arg != "5" {
		t.Errorf("arg = %q, want evaluated %q", res.arg, "5")
	}
}

func TestProcessCmdentTwoArgSplit(t *testing.T) {
	g, _ := newTestGame(t)
	var res probeResult
	cmd := &Command{
		Name: "pair", Perms: CAPublic, CallSeq: CSTwoArg | CSInterp,
		TwoArg: func(g *Game, player, cause gamedb.DBRef, key int, arg1, arg2 string) {
			res = probeResult{called: true, arg1: arg1, arg: arg2}
		},
	}

	g.ProcessCmdent(cmd, "", testPlayer, testPlayer, true, "left = right side", "pair left=right side", nil)
	if !res.called {
		t.Fatal("handler not called")
	}
	if res.arg1 != "left" || res.arg != "right side" {
		t.Errorf("split = (%q, %q), want (left, right side)", res.arg1, res.arg)
	}
}

func TestProcessCmdentArgvSplit(t *testing.T) {
	g, _ := newTestGame(t)
	var res probeResult
	cmd := &Command{
		Name: "vec", Perms: CAPublic, CallSeq: CSTwoArg | CSArgv | CSInterp,
		TwoArgArgv: func(g *Game, player, cause gamedb.DBRef, key int, arg1 string, argv []string) {
			res = probeResult{called: true, arg1: arg1, argv: argv}
		},
	}

	g.ProcessCmdent(cmd, "", testPlayer, testPlayer, true, "head=a, b, c", "vec head=a, b, c", nil)
	if !res.called {
		t.Fatal("handler not called")
	}
	if res.arg1 != "head" || len(res.argv) != 3 || res.argv[0] != "a" || res.argv[2] != "c" {
		t.Errorf("argv call = (%q, %v)", res.arg1, res.argv)
	}
}

func TestProcessCmdentHooksShareRegisters(t *testing.T) {
	g, _ := newTestGame(t)
	hookObj := addTestObject(g.DB, 31, "Hooker", gamedb.TypeThing, testGod)
	g.DB.AddAttrDef(256, "BEFORE", 0)
	g.DB.AddAttrDef(257, "AFTER", 0)
	hookObj.SetAttr(256, "[setq(0,pre)]")
	hookObj.SetAttr(257, "[setq(1,post)]")

	cmd := &Command{
		Name: "hooked", Perms: CAPublic, CallSeq: CSNoArgs,
		PreHook:  &HookEnt{Thing: 31, Attr: 256},
		PostHook: &HookEnt{Thing: 31, Attr: 257},
		NoArg:    func(g *Game, player, cause gamedb.DBRef, key int) {},
	}

	g.ProcessCmdent(cmd, "", testPlayer, testPlayer, true, "", "hooked", nil)
	if g.State.RData == nil {
		t.Fatal("no register data after hook run")
	}
	if g.State.RData.QRegs[0] != "pre" || g.State.RData.QRegs[1] != "post" {
		t.Errorf("hook registers = (%q, %q), want (pre, post)",
			g.State.RData.QRegs[0], g.State.RData.QRegs[1])
	}
}
