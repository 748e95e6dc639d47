package server

import (
	"testing"
	"time"

	"github.com/crystal-mush/gomushcore/pkg/eval"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

func qentry(executor, cause gamedb.DBRef, cmd string) *QueueEntry {
	return &QueueEntry{
		Executor: executor,
		Cause:    cause,
		Command:  cmd,
		SemObj:   gamedb.Nothing,
	}
}

func TestQueueAddOrdering(t *testing.T) {
	q := NewCommandQueue()
	q.Add(qentry(3, 3, "first"))
	q.Add(qentry(3, 3, "second"))

	if e := q.PopImmediate(); e == nil || e.Command != "first" {
		t.Errorf("pop 1 = %v", e)
	}
	if e := q.PopImmediate(); e == nil || e.Command != "second" {
		t.Errorf("pop 2 = %v", e)
	}
	if e := q.PopImmediate(); e != nil {
		t.Errorf("pop 3 = %v, want nil", e)
	}
}

func TestQueueCommandSkipsHalted(t *testing.T) {
	g, _ := newTestGame(t)
	thing := addTestObject(g.DB, 80, "Frozen", gamedb.TypeThing, testPlayer)
	thing.Flags[0] |= gamedb.FlagHalt

	g.Queue.QueueCommand(g, 80, testPlayer, "think no", nil, nil)
	imm, _, _ := g.Queue.Stats()
	if imm != 0 {
		t.Errorf("queued %d entries for a halted object", imm)
	}

	g.Queue.QueueCommand(g, 80, testPlayer, "", nil, nil)
	g.Queue.QueueCommand(g, gamedb.Nothing, testPlayer, "think no", nil, nil)
	imm, _, _ = g.Queue.Stats()
	if imm != 0 {
		t.Errorf("queued %d empty/invalid entries", imm)
	}
}

func TestQueueWaitPromotion(t *testing.T) {
	q := NewCommandQueue()

	past := qentry(3, 3, "ready")
	past.WaitUntil = time.Now().Add(-time.Second)
	future := qentry(3, 3, "later")
	future.WaitUntil = time.Now().Add(time.Hour)

	q.AddWait(future)
	q.AddWait(past)

	if n := q.PromoteReady(); n != 1 {
		t.Fatalf("promoted %d, want 1", n)
	}
	if e := q.PopImmediate(); e == nil || e.Command != "ready" {
		t.Errorf("promoted entry = %v", e)
	}
	_, waiting, _ := q.Stats()
	if waiting != 1 {
		t.Errorf("wait queue = %d, want 1", waiting)
	}
}

func TestQueueWaitSorted(t *testing.T) {
	q := NewCommandQueue()
	base := time.Now().Add(-time.Minute)

	for i, cmd := range []string{"c", "a", "b"} {
		e := qentry(3, 3, cmd)
		// c at +2, a at +0, b at +1
		e.WaitUntil = base.Add(time.Duration((i+2)%3) * time.Millisecond)
		q.AddWait(e)
	}
	q.PromoteReady()

	var got []string
	for e := q.PopImmediate(); e != nil; e = q.PopImmediate() {
		got = append(got, e.Command)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("promotion order = %v, want [a b c]", got)
	}
}

func TestQueueSemaphoreWake(t *testing.T) {
	q := NewCommandQueue()
	for _, cmd := range []string{"one", "two", "three"} {
		e := qentry(3, 3, cmd)
		e.SemObj = 66
		e.SemAttr = gamedb.A_Semaphore
		q.AddSemaphore(e)
	}

	if n := q.NotifySemaphore(66, gamedb.A_Semaphore, 2); n != 2 {
		t.Fatalf("woke %d, want 2", n)
	}
	imm, _, sem := q.Stats()
	if imm != 2 || sem != 1 {
		t.Errorf("buckets = (%d, %d), want (2, 1)", imm, sem)
	}

	// The wrong attribute wakes nothing.
	if n := q.NotifySemaphore(66, 999, 1); n != 0 {
		t.Errorf("woke %d on wrong attr", n)
	}

	if n := q.DrainSemaphore(66, gamedb.A_Semaphore); n != 1 {
		t.Errorf("drained %d, want 1", n)
	}
}

func TestQueueHalt(t *testing.T) {
	q := NewCommandQueue()
	q.Add(qentry(3, 3, "mine"))
	q.Add(qentry(5, 5, "theirs"))
	waiter := qentry(3, 3, "waiting")
	waiter.WaitUntil = time.Now().Add(time.Hour)
	q.AddWait(waiter)

	if n := q.Halt(3); n != 2 {
		t.Errorf("halted %d, want 2", n)
	}
	imm, waiting, _ := q.Stats()
	if imm != 1 || waiting != 0 {
		t.Errorf("buckets = (%d, %d), want (1, 0)", imm, waiting)
	}

	if n := q.HaltAll(); n != 1 {
		t.Errorf("halt all removed %d, want 1", n)
	}
}

func TestQueueCountByOwner(t *testing.T) {
	g, _ := newTestGame(t)
	addTestObject(g.DB, 81, "Mine", gamedb.TypeThing, testPlayer)
	addTestObject(g.DB, 82, "Theirs", gamedb.TypeThing, testGod)

	g.Queue.Add(qentry(81, testPlayer, "a"))
	g.Queue.Add(qentry(82, testGod, "b"))
	g.Queue.Add(qentry(testPlayer, testPlayer, "c"))

	if n := g.Queue.CountByOwner(g.DB, testPlayer); n != 2 {
		t.Errorf("CountByOwner = %d, want 2", n)
	}
}

func TestRunOneSwapsRegisters(t *testing.T) {
	g, cap := newTestGame(t)

	rdata := eval.NewRegisterData()
	rdata.QRegs[0] = "carried"
	e := qentry(testPlayer, testPlayer, "think %q0")
	e.RData = rdata
	g.Queue.Add(e)

	if !g.RunOne() {
		t.Fatal("RunOne found nothing")
	}
	if got := cap.Last(testPlayer); got != "carried" {
		t.Errorf("got %q, want the saved register value", got)
	}
	imm, _, _ := g.Queue.Stats()
	if imm != 0 {
		t.Errorf("entry not removed after running: %d", imm)
	}
}

func TestRunOneSkipsHaltedExecutor(t *testing.T) {
	g, cap := newTestGame(t)
	thing := addTestObject(g.DB, 83, "Frozen", gamedb.TypeThing, testPlayer)

	g.Queue.Add(qentry(83, testPlayer, "think no"))
	thing.Flags[0] |= gamedb.FlagHalt

	if !g.RunOne() {
		t.Fatal("RunOne should consume the dead entry")
	}
	if len(cap.Lines(testPlayer)) != 0 {
		t.Error("halted executor still produced output")
	}
	imm, _, _ := g.Queue.Stats()
	if imm != 0 {
		t.Errorf("dead entry left in queue: %d", imm)
	}
}

func TestProcessQueueLimit(t *testing.T) {
	g, _ := newTestGame(t)
	for i := 0; i < 5; i++ {
		g.Queue.Add(qentry(testPlayer, testPlayer, "think x"))
	}

	if ran := g.ProcessQueue(2); ran != 2 {
		t.Errorf("ran %d, want 2", ran)
	}
	imm, _, _ := g.Queue.Stats()
	if imm != 3 {
		t.Errorf("remaining = %d, want 3", imm)
	}
}

func TestQueueHaltDetectedMidList(t *testing.T) {
	g, cap := newTestGame(t)

	// The second segment halts the executor's queue; the third must not run.
	g.Queue.Add(qentry(testPlayer, testPlayer, "think one;@halt;think three"))
	g.ProcessQueue(10)

	lines := cap.Lines(testPlayer)
	for _, l := range lines {
		if l == "three" {
			t.Errorf("lines = %v; halted list kept running", lines)
		}
	}
	if len(lines) == 0 || lines[0] != "one" {
		t.Errorf("lines = %v, want the first segment to run", lines)
	}
}
