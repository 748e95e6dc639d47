package server

import (
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// splitSegment peels the next command segment off a ;-delimited list,
// honoring %-escapes, \-escapes, and {}/[]/() nesting. A top-level '|'
// also ends the segment but stays at the head of the remainder so the
// caller can see the segment is being piped into the next one.
func splitSegment(input string) (seg, rest string, more bool) {
	var stack []byte
	braceLev := 0
	i := 0
	for i < len(input) {
		c := input[i]
		if braceLev > 0 {
			switch c {
			case '\\', '%':
				if i+1 < len(input) {
					i++
				}
			case '{':
				braceLev++
			case '}':
				braceLev--
			}
			i++
			continue
		}
		switch c {
		case '\\', '%':
			if i+1 < len(input) {
				i++
			}
		case '{':
			braceLev++
		case '[':
			stack = append(stack, ']')
		case '(':
			stack = append(stack, ')')
		case ']', ')':
			// unwind to the matching opener, if any
			for tp := len(stack) - 1; tp >= 0; tp-- {
				if stack[tp] == c {
					stack = stack[:tp]
					break
				}
			}
		case ';':
			if len(stack) == 0 {
				return input[:i], input[i+1:], true
			}
		case '|':
			if len(stack) == 0 {
				return input[:i], input[i:], true
			}
		}
		i++
	}
	return input, "", false
}

// ProcessCmdline executes a semicolon/pipe-delimited series of commands.
// args are the positional %0-%9 captures in effect for every segment.
// When the list came off the queue, qent identifies its entry; the list
// aborts if that entry stops being the queue head (something halted it).
func (g *Game) ProcessCmdline(player, cause gamedb.DBRef, cmdline string, args []string, qent *QueueEntry) {
	st := g.State
	if st.CmdNestLev == g.Conf.CmdNestLim {
		return
	}
	st.CmdNestLev++

	snap := st.snapshot()
	defer func() {
		st.restore(snap)
		st.CmdNestLev--
	}()
	st.CurrEnactor = cause
	st.CurrPlayer = player

	saveInPipe := st.InPipe
	savePoutObj := st.PoutObj
	savePout := st.Pout
	saveHasPout := st.HasPout

	st.BreakCalled = false

	rest := cmdline
	more := true
	for more && (qent == nil || qent == g.Queue.First()) && !st.BreakCalled {
		var cp string
		cp, rest, more = splitSegment(rest)
		if g.Conf.SpaceCompress {
			cp = strings.TrimSpace(cp)
		}
		if cp == "" {
			continue
		}

		numPipes := 0
		for more && strings.HasPrefix(rest, "|") &&
			(qent == nil || qent == g.Queue.First()) &&
			numPipes < g.Conf.NtfyNestLim {
			rest = rest[1:]
			numPipes++

			st.InPipe = true
			st.PoutObj = player
			st.DebugCmd = cp
			st.PushSink(player)

			// No lag check on piped commands.
			g.ProcessCommand(player, cause, false, cp, args)

			st.Pout = st.PopSink()
			st.HasPout = true

			cp, rest, more = splitSegment(rest)
			if g.Conf.SpaceCompress {
				cp = strings.TrimSpace(cp)
			}
		}

		st.InPipe = saveInPipe
		st.PoutObj = savePoutObj
		st.DebugCmd = cp

		// Is the queue still linked like we think it is?
		if qent != nil && qent != g.Queue.First() {
			st.Pout = savePout
			st.HasPout = saveHasPout
			break
		}

		var begin time.Time
		var beginUser unix.Timeval
		if g.Conf.LagCheck {
			begin = time.Now()
			if g.Conf.TrackUserTime {
				var ru unix.Rusage
				if unix.Getrusage(unix.RUSAGE_SELF, &ru) == nil {
					beginUser = ru.Utime
				}
			}
		}

		logCmd := g.ProcessCommand(player, cause, false, cp, args)

		st.Pout = savePout
		st.HasPout = saveHasPout

		if g.Conf.LagCheck {
			elapsed := time.Since(begin)
			if elapsed.Seconds() >= g.Conf.MaxCmdSecs {
				enactor := cause
				if qent != nil {
					enactor = qent.Cause
				}
				g.logCPUOverrun(player, enactor, elapsed.Seconds(), logCmd)
			}

			dSec := int(elapsed / time.Second)
			dUsec := int(elapsed % time.Second / time.Microsecond)
			if g.Conf.TrackUserTime {
				var ru unix.Rusage
				if unix.Getrusage(unix.RUSAGE_SELF, &ru) == nil {
					dSec = int(ru.Utime.Sec - beginUser.Sec)
					dUsec = int(ru.Utime.Usec - beginUser.Usec)
				}
			}
			if obj := g.DB.Get(player); obj != nil {
				obj.TimeUsedSec += dSec
				obj.TimeUsedUsec += dUsec
				if obj.TimeUsedUsec < 0 {
					obj.TimeUsedUsec += 1000000
					obj.TimeUsedSec--
				} else if obj.TimeUsedUsec >= 1000000 {
					obj.TimeUsedSec += obj.TimeUsedUsec / 1000000
					obj.TimeUsedUsec = obj.TimeUsedUsec % 1000000
				}
			}
		}
	}
}
