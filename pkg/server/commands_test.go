package server

import (
	"testing"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

func TestSayCommandWord(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCommand(testPlayer, testPlayer, true, "say how now", nil)
	if !cap.Contains(testPlayer, `You say "how now"`) {
		t.Errorf("speaker lines = %v", cap.Lines(testPlayer))
	}
	if !cap.Contains(testGod, `Rhea says "how now"`) {
		t.Errorf("room lines = %v", cap.Lines(testGod))
	}
}

func TestPoseCommandWord(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCommand(testPlayer, testPlayer, true, "pose waves.", nil)
	if !cap.Contains(testGod, "Rhea waves.") {
		t.Errorf("room lines = %v", cap.Lines(testGod))
	}
}

func TestEmitLeadin(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCommand(testPlayer, testPlayer, true, `\The walls hum.`, nil)
	if !cap.Contains(testGod, "The walls hum.") {
		t.Errorf("room lines = %v", cap.Lines(testGod))
	}
	// Emits carry no speaker name.
	if cap.Contains(testGod, "Rhea") {
		t.Errorf("emit leaked the speaker name: %v", cap.Lines(testGod))
	}
}

func TestPemit(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCommand(testGod, testGod, true, "@pemit *rhea=A voice from nowhere.", nil)
	if got := cap.Last(testPlayer); got != "A voice from nowhere." {
		t.Errorf("got %q", got)
	}

	cap.Reset()
	g.ProcessCommand(testGod, testGod, true, "@pemit nonesuch=hi", nil)
	if got := cap.Last(testGod); got != "I don't see that here." {
		t.Errorf("got %q", got)
	}
}

func TestThinkEvaluates(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCommand(testPlayer, testPlayer, true, "think [ucstr(shout)]", nil)
	if got := cap.Last(testPlayer); got != "SHOUT" {
		t.Errorf("got %q, want SHOUT", got)
	}
}

func TestSwitchFirstMatch(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer,
		"@switch/first/now apple=a*,think fruit,b*,think berry,think other", nil, nil)
	got := cap.Lines(testPlayer)
	if len(got) != 1 || got[0] != "fruit" {
		t.Errorf("lines = %v, want [fruit]", got)
	}
}

func TestSwitchAllMatches(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer,
		"@switch/all/now abc=a*,think one,*c,think two", nil, nil)
	got := cap.Lines(testPlayer)
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("lines = %v, want [one two]", got)
	}
}

func TestSwitchDefault(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer,
		"@switch/now zebra=a*,think fruit,think fallback", nil, nil)
	got := cap.Lines(testPlayer)
	if len(got) != 1 || got[0] != "fallback" {
		t.Errorf("lines = %v, want [fallback]", got)
	}
}

func TestSwitchExprToken(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer,
		"@switch/now apple=a*,think got #$, think no", nil, nil)
	got := cap.Lines(testPlayer)
	if len(got) != 1 || got[0] != "got apple" {
		t.Errorf("lines = %v, want [got apple]", got)
	}
}

func TestSwitchQueuesWithoutNow(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer, "@switch x=x,think deferred", nil, nil)
	if got := cap.Lines(testPlayer); len(got) != 0 {
		t.Errorf("action ran inline: %v", got)
	}
	g.ProcessQueue(10)
	if got := cap.Last(testPlayer); got != "deferred" {
		t.Errorf("got %q, want deferred", got)
	}
}

func TestForceQueued(t *testing.T) {
	g, cap := newTestGame(t)
	addTestObject(g.DB, 60, "Puppet", gamedb.TypeThing, testPlayer)
	addToRoom(g.DB, testRoomZero, 60)

	g.ProcessCommand(testPlayer, testPlayer, true, "@force puppet=@pemit #3=obeyed", nil)
	g.ProcessQueue(10)
	if got := cap.Last(testPlayer); got != "obeyed" {
		t.Errorf("got %q, want obeyed", got)
	}
}

func TestForceNow(t *testing.T) {
	g, cap := newTestGame(t)
	addTestObject(g.DB, 61, "Puppet", gamedb.TypeThing, testPlayer)
	addToRoom(g.DB, testRoomZero, 61)

	g.ProcessCommand(testPlayer, testPlayer, true, "@force/now puppet=@pemit #3=right away", nil)
	if got := cap.Last(testPlayer); got != "right away" {
		t.Errorf("got %q, want inline execution", got)
	}
}

func TestForceRequiresControl(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCommand(testPlayer, testPlayer, true, "@force *god=think betrayal", nil)
	if got := cap.Last(testPlayer); got != g.Conf.NoPermMsg {
		t.Errorf("got %q, want %q", got, g.Conf.NoPermMsg)
	}
}

func TestForcePrefixed(t *testing.T) {
	g, cap := newTestGame(t)
	addTestObject(g.DB, 62, "Puppet", gamedb.TypeThing, testPlayer)
	addToRoom(g.DB, testRoomZero, 62)

	g.ProcessCommand(testPlayer, testPlayer, true, "#62 @pemit #3=prefixed", nil)
	g.ProcessQueue(10)
	if got := cap.Last(testPlayer); got != "prefixed" {
		t.Errorf("got %q, want prefixed", got)
	}
}

func TestSetFlag(t *testing.T) {
	g, cap := newTestGame(t)
	thing := addTestObject(g.DB, 63, "Statue", gamedb.TypeThing, testPlayer)
	addToRoom(g.DB, testRoomZero, 63)

	g.ProcessCommand(testPlayer, testPlayer, true, "@set statue=STICKY", nil)
	if got := cap.Last(testPlayer); got != "Set." {
		t.Errorf("got %q, want Set.", got)
	}
	if !thing.HasFlag(gamedb.FlagSticky) {
		t.Error("flag not set on the object")
	}

	g.ProcessCommand(testPlayer, testPlayer, true, "@set statue=!STICKY", nil)
	if thing.HasFlag(gamedb.FlagSticky) {
		t.Error("flag not cleared")
	}

	g.ProcessCommand(testPlayer, testPlayer, true, "@set statue=FROBLY", nil)
	if got := cap.Last(testPlayer); got != "I don't understand that flag." {
		t.Errorf("got %q", got)
	}
}

func TestSetAttribute(t *testing.T) {
	g, cap := newTestGame(t)
	addTestObject(g.DB, 64, "Sign", gamedb.TypeThing, testPlayer)
	addToRoom(g.DB, testRoomZero, 64)

	g.ProcessCommand(testPlayer, testPlayer, true, "@set sign=DESC:Keep out.", nil)
	if got := cap.Last(testPlayer); got != "Set." {
		t.Errorf("got %q, want Set.", got)
	}
	if got := g.atrGet(64, gamedb.A_Desc); got != "Keep out." {
		t.Errorf("attr = %q, want %q", got, "Keep out.")
	}
	g.ProcessCommand(testPlayer, testPlayer, true, "@set sign=DESC:", nil)
	if got := g.atrGet(64, gamedb.A_Desc); got != "" {
		t.Errorf("attr = %q, want cleared", got)
	}
}

func TestAmpersandSetsVAttr(t *testing.T) {
	g, _ := newTestGame(t)

	g.ProcessCommand(testPlayer, testPlayer, true, "&NOTES me=remember the milk", nil)
	def, ok := g.DB.AttrByName["NOTES"]
	if !ok {
		t.Fatal("attribute definition not created")
	}
	if got := g.atrGet(testPlayer, def.Number); got != "remember the milk" {
		t.Errorf("attr = %q", got)
	}
}

func TestTrigger(t *testing.T) {
	g, cap := newTestGame(t)
	thing := addTestObject(g.DB, 65, "Bell", gamedb.TypeThing, testPlayer)
	addToRoom(g.DB, testRoomZero, 65)
	g.DB.AddAttrDef(256, "RING", 0)
	thing.SetAttr(256, "@pemit #3=Dong %0!")

	g.ProcessCommand(testPlayer, testPlayer, true, "@trigger bell/ring=twice", nil)
	if got := cap.Last(testPlayer); got != "Triggered." {
		t.Errorf("got %q, want Triggered.", got)
	}
	g.ProcessQueue(10)
	if got := cap.Last(testPlayer); got != "Dong twice!" {
		t.Errorf("got %q, want Dong twice!", got)
	}
}

func TestWaitSemaphore(t *testing.T) {
	g, cap := newTestGame(t)
	addTestObject(g.DB, 66, "Gate", gamedb.TypeThing, testPlayer)
	addToRoom(g.DB, testRoomZero, 66)

	g.ProcessCommand(testPlayer, testPlayer, true, "@wait gate=@pemit #3=released", nil)
	if got := g.atrGet(66, gamedb.A_Semaphore); got != "1" {
		t.Errorf("semaphore count = %q, want 1", got)
	}
	_, _, sem := g.Queue.Stats()
	if sem != 1 {
		t.Fatalf("semaphore queue = %d, want 1", sem)
	}

	g.ProcessQueue(10)
	if cap.Contains(testPlayer, "released") {
		t.Fatal("blocked entry ran before notify")
	}

	g.ProcessCommand(testPlayer, testPlayer, true, "@notify gate", nil)
	g.ProcessQueue(10)
	if got := cap.Last(testPlayer); got != "released" {
		t.Errorf("got %q, want released", got)
	}
	if got := g.atrGet(66, gamedb.A_Semaphore); got != "" {
		t.Errorf("semaphore count = %q, want cleared", got)
	}
}

func TestWaitSemaphorePreNotified(t *testing.T) {
	g, cap := newTestGame(t)
	addTestObject(g.DB, 67, "Gate", gamedb.TypeThing, testPlayer)
	addToRoom(g.DB, testRoomZero, 67)

	// A notify before any wait drives the count negative; the next wait
	// runs without blocking.
	g.ProcessCommand(testPlayer, testPlayer, true, "@notify gate", nil)
	if got := g.atrGet(67, gamedb.A_Semaphore); got != "-1" {
		t.Errorf("semaphore count = %q, want -1", got)
	}

	g.ProcessCommand(testPlayer, testPlayer, true, "@wait gate=@pemit #3=straight through", nil)
	g.ProcessQueue(10)
	if got := cap.Last(testPlayer); got != "straight through" {
		t.Errorf("got %q, want straight through", got)
	}
}

func TestNotifyAll(t *testing.T) {
	g, cap := newTestGame(t)
	addTestObject(g.DB, 68, "Gate", gamedb.TypeThing, testPlayer)
	addToRoom(g.DB, testRoomZero, 68)

	g.ProcessCommand(testPlayer, testPlayer, true, "@wait gate=@pemit #3=one", nil)
	g.ProcessCommand(testPlayer, testPlayer, true, "@wait gate=@pemit #3=two", nil)
	g.ProcessCommand(testPlayer, testPlayer, true, "@notify/all gate", nil)
	g.ProcessQueue(10)

	lines := cap.Lines(testPlayer)
	found := 0
	for _, l := range lines {
		if l == "one" || l == "two" {
			found++
		}
	}
	if found != 2 {
		t.Errorf("lines = %v, want both blocked entries released", lines)
	}
	if got := g.atrGet(68, gamedb.A_Semaphore); got != "" {
		t.Errorf("semaphore count = %q, want cleared", got)
	}
}

func TestDrainDiscards(t *testing.T) {
	g, cap := newTestGame(t)
	addTestObject(g.DB, 69, "Gate", gamedb.TypeThing, testPlayer)
	addToRoom(g.DB, testRoomZero, 69)

	g.ProcessCommand(testPlayer, testPlayer, true, "@wait gate=@pemit #3=never", nil)
	g.ProcessCommand(testPlayer, testPlayer, true, "@drain gate", nil)
	g.ProcessQueue(10)

	if cap.Contains(testPlayer, "never") {
		t.Error("drained entry still ran")
	}
	_, _, sem := g.Queue.Stats()
	if sem != 0 {
		t.Errorf("semaphore queue = %d, want 0", sem)
	}
	if got := g.atrGet(69, gamedb.A_Semaphore); got != "" {
		t.Errorf("semaphore count = %q, want cleared", got)
	}
}

func TestHalt(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer, "@wait 100=think never", nil, nil)
	g.ProcessCommand(testPlayer, testPlayer, true, "@halt", nil)
	if got := cap.Last(testPlayer); got != "Halted: 1 queue entries removed." {
		t.Errorf("got %q", got)
	}
	_, waiting, _ := g.Queue.Stats()
	if waiting != 0 {
		t.Errorf("wait queue = %d, want 0", waiting)
	}
}
