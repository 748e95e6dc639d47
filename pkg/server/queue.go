package server

import (
	"log"
	"sync"
	"time"

	"github.com/crystal-mush/gomushcore/pkg/eval"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// QueueEntry is one queued command awaiting execution.
type QueueEntry struct {
	Executor  gamedb.DBRef       // Object that will run the command
	Cause     gamedb.DBRef       // Enactor who triggered it
	Command   string             // Command text to execute
	Args      []string           // Captured args (%0-%9)
	RData     *eval.RegisterData // Saved register state
	WaitUntil time.Time          // When to execute (zero = immediate)
	SemObj    gamedb.DBRef       // Semaphore object (Nothing = none)
	SemAttr   int                // Semaphore attribute number
}

// CommandQueue holds pending commands in three buckets: runnable now,
// waiting on a timer, and blocked on a semaphore.
type CommandQueue struct {
	mu        sync.Mutex
	immediate []*QueueEntry
	waitQueue []*QueueEntry
	semQueue  []*QueueEntry
	maxPerObj int
}

// NewCommandQueue creates an empty command queue.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{
		maxPerObj: 1000,
	}
}

// QueueCommand queues a command for the executor with the given register
// snapshot. This is the path $-command matches and triggered actions take.
func (q *CommandQueue) QueueCommand(g *Game, executor, cause gamedb.DBRef, action string, args []string, rdata *eval.RegisterData) {
	if action == "" || !g.DB.Valid(executor) {
		return
	}
	if g.Halted(executor) {
		return
	}
	q.Add(&QueueEntry{
		Executor: executor,
		Cause:    cause,
		Command:  action,
		Args:     args,
		RData:    rdata,
		SemObj:   gamedb.Nothing,
	})
}

// QueueAttrAction queues the text of an action attribute, carrying the
// current global registers so %q-substitutions survive into the action.
func (q *CommandQueue) QueueAttrAction(g *Game, thing, player gamedb.DBRef, actionText string, args []string) {
	if actionText == "" {
		return
	}
	q.QueueCommand(g, thing, player, actionText, args, g.State.SaveRegs())
}

// Add queues an entry for immediate execution.
func (q *CommandQueue) Add(entry *QueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.maxPerObj > 0 {
		count := 0
		for _, e := range q.immediate {
			if e.Executor == entry.Executor {
				count++
			}
		}
		if count >= q.maxPerObj {
			log.Printf("QUEUE: dropping entry for #%d — per-object limit (%d) reached", entry.Executor, q.maxPerObj)
			return
		}
	}
	q.immediate = append(q.immediate, entry)
}

// AddWait queues an entry for delayed execution, sorted by wake time.
func (q *CommandQueue) AddWait(entry *QueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	inserted := false
	for i, e := range q.waitQueue {
		if entry.WaitUntil.Before(e.WaitUntil) {
			q.waitQueue = append(q.waitQueue[:i+1], q.waitQueue[i:]...)
			q.waitQueue[i] = entry
			inserted = true
			break
		}
	}
	if !inserted {
		q.waitQueue = append(q.waitQueue, entry)
	}
}

// AddSemaphore queues an entry blocked on a semaphore.
func (q *CommandQueue) AddSemaphore(entry *QueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.semQueue = append(q.semQueue, entry)
}

// NotifySemaphore wakes up to count entries blocked on the semaphore.
// Returns the number woken.
func (q *CommandQueue) NotifySemaphore(obj gamedb.DBRef, attr int, count int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	woken := 0
	var remaining []*QueueEntry
	for _, e := range q.semQueue {
		if e.SemObj == obj && e.SemAttr == attr && woken < count {
			q.immediate = append(q.immediate, e)
			woken++
		} else {
			remaining = append(remaining, e)
		}
	}
	q.semQueue = remaining
	return woken
}

// DrainSemaphore discards all entries blocked on the semaphore.
func (q *CommandQueue) DrainSemaphore(obj gamedb.DBRef, attr int) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	var remaining []*QueueEntry
	for _, e := range q.semQueue {
		if e.SemObj == obj && e.SemAttr == attr {
			removed++
		} else {
			remaining = append(remaining, e)
		}
	}
	q.semQueue = remaining
	return removed
}

// PromoteReady moves wait-queue entries whose time has come onto the
// immediate queue. Returns the number promoted.
func (q *CommandQueue) PromoteReady() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	cutoff := 0
	for i, e := range q.waitQueue {
		if e.WaitUntil.After(now) {
			break
		}
		cutoff = i + 1
	}
	if cutoff > 0 {
		q.immediate = append(q.immediate, q.waitQueue[:cutoff]...)
		q.waitQueue = q.waitQueue[cutoff:]
	}
	return cutoff
}

// First returns the head of the immediate queue without removing it.
// The line sequencer compares against this to notice when the entry it
// is running has been halted out from under it.
func (q *CommandQueue) First() *QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.immediate) == 0 {
		return nil
	}
	return q.immediate[0]
}

// PopImmediate returns and removes the next immediate entry, or nil.
func (q *CommandQueue) PopImmediate() *QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.immediate) == 0 {
		return nil
	}
	entry := q.immediate[0]
	q.immediate = q.immediate[1:]
	return entry
}

// Halt removes all queued entries for an object. Returns the count removed.
func (q *CommandQueue) Halt(executor gamedb.DBRef) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	filter := func(entries []*QueueEntry) []*QueueEntry {
		var result []*QueueEntry
		for _, e := range entries {
			if e.Executor == executor {
				removed++
			} else {
				result = append(result, e)
			}
		}
		return result
	}
	q.immediate = filter(q.immediate)
	q.waitQueue = filter(q.waitQueue)
	q.semQueue = filter(q.semQueue)
	return removed
}

// HaltAll empties every queue. Returns the count removed.
func (q *CommandQueue) HaltAll() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := len(q.immediate) + len(q.waitQueue) + len(q.semQueue)
	q.immediate = nil
	q.waitQueue = nil
	q.semQueue = nil
	return removed
}

// CountByOwner reports how many queued entries run as objects owned by owner.
func (q *CommandQueue) CountByOwner(db *gamedb.Database, owner gamedb.DBRef) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	count := 0
	countFor := func(entries []*QueueEntry) {
		for _, e := range entries {
			if obj, ok := db.Objects[e.Executor]; ok && obj.Owner == owner {
				count++
			}
		}
	}
	countFor(q.immediate)
	countFor(q.waitQueue)
	countFor(q.semQueue)
	return count
}

// Stats returns the size of each queue bucket.
func (q *CommandQueue) Stats() (immediate, waiting, semaphore int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.immediate), len(q.waitQueue), len(q.semQueue)
}

// Peek returns up to n entries across the queues without removing them.
func (q *CommandQueue) Peek(n int) []*QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	var result []*QueueEntry
	for _, bucket := range [][]*QueueEntry{q.immediate, q.waitQueue, q.semQueue} {
		for _, e := range bucket {
			if len(result) >= n {
				return result
			}
			result = append(result, e)
		}
	}
	return result
}

// RunOne executes the next immediate entry, if any. The entry's saved
// registers replace the global set for the duration of the run.
func (g *Game) RunOne() bool {
	g.Queue.PromoteReady()
	entry := g.Queue.First()
	if entry == nil {
		return false
	}
	if !g.DB.Valid(entry.Executor) || g.Halted(entry.Executor) {
		g.Queue.PopImmediate()
		return true
	}

	// Each queue entry is a fresh top-level invocation.
	g.State.CmdInvkCtr = 0
	g.State.CmdNestLev = 0

	saved := g.State.RData
	if entry.RData != nil {
		g.State.RData = entry.RData
	} else {
		g.State.RData = eval.NewRegisterData()
	}
	g.ProcessCmdline(entry.Executor, entry.Cause, entry.Command, entry.Args, entry)
	g.State.RData = saved

	// The sequencer leaves the entry at the head so it can detect halts;
	// remove it now if it is still there.
	if g.Queue.First() == entry {
		g.Queue.PopImmediate()
	}
	return true
}

// ProcessQueue drains the immediate queue, up to limit entries in one pass.
func (g *Game) ProcessQueue(limit int) int {
	ran := 0
	for limit <= 0 || ran < limit {
		if !g.RunOne() {
			break
		}
		ran++
	}
	return ran
}
