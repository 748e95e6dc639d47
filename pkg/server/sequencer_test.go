package server

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestSplitSegment(t *testing.T) {
	cases := []struct {
		in       string
		seg, rest string
		more     bool
	}{
		{"think a;think b", "think a", "think b", true},
		{"think a", "think a", "", false},
		{`think a\;b`, `think a\;b`, "", false},
		{"{think a;think b};think c", "{think a;think b}", "think c", true},
		{"think [first(a;b)];think c", "think [first(a;b)]", "think c", true},
		{"think a|think b", "think a", "|think b", true},
		{"", "", "", false},
	}
	for _, tc := range cases {
		seg, rest, more := splitSegment(tc.in)
		if seg != tc.seg || rest != tc.rest || more != tc.more {
			t.Errorf("splitSegment(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.in, seg, rest, more, tc.seg, tc.rest, tc.more)
		}
	}
}

func TestProcessCmdlineMultipleSegments(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer, "think one;think two;think three", nil, nil)
	want := []string{"one", "two", "three"}
	got := cap.Lines(testPlayer)
	if len(got) != len(want) {
		t.Fatalf("lines = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestProcessCmdlinePipe(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer, "think hello|think <%|>", nil, nil)
	got := cap.Lines(testPlayer)
	if len(got) != 1 || got[0] != "<hello>" {
		t.Errorf("lines = %v, want [<hello>]", got)
	}
}

func TestProcessCmdlinePipeChain(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer, "think a|think %|b|think %|c", nil, nil)
	got := cap.Lines(testPlayer)
	if len(got) != 1 || got[0] != "abc" {
		t.Errorf("lines = %v, want [abc]", got)
	}
}

func TestProcessCmdlineBreak(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer, "think one;@break 1;think two", nil, nil)
	got := cap.Lines(testPlayer)
	if len(got) != 1 || got[0] != "one" {
		t.Errorf("lines = %v, want [one]", got)
	}

	cap.Reset()
	g.ProcessCmdline(testPlayer, testPlayer, "think one;@break 0;think two", nil, nil)
	got = cap.Lines(testPlayer)
	if len(got) != 2 || got[1] != "two" {
		t.Errorf("lines = %v, want [one two]", got)
	}
}

func TestProcessCmdlineAssert(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer, "@assert 1;think kept", nil, nil)
	if got := cap.Lines(testPlayer); len(got) != 1 || got[0] != "kept" {
		t.Errorf("lines = %v, want [kept]", got)
	}

	cap.Reset()
	g.ProcessCmdline(testPlayer, testPlayer, "@assert 0;think dropped", nil, nil)
	if got := cap.Lines(testPlayer); len(got) != 0 {
		t.Errorf("lines = %v, want none", got)
	}
}

func TestProcessCmdlineBreakWithCommand(t *testing.T) {
	g, cap := newTestGame(t)

	g.ProcessCmdline(testPlayer, testPlayer, "@break 1=think from break;think skipped", nil, nil)
	g.ProcessQueue(10)
	got := cap.Lines(testPlayer)
	if len(got) != 1 || got[0] != "from break" {
		t.Errorf("lines = %v, want [from break]", got)
	}
}

func TestProcessCmdlineNestingLimit(t *testing.T) {
	g, cap := newTestGame(t)
	g.Conf.CmdNestLim = 0

	g.ProcessCmdline(testPlayer, testPlayer, "think never", nil, nil)
	if got := cap.Lines(testPlayer); len(got) != 0 {
		t.Errorf("lines = %v, want none past the nesting limit", got)
	}
}

func TestProcessCmdlineLagDiagnostics(t *testing.T) {
	g, _ := newTestGame(t)
	g.Conf.LagCheck = true
	g.Conf.MaxCmdSecs = 0 // every non-piped segment crosses the threshold

	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	g.ProcessCmdline(testPlayer, testPlayer, "think a|think b;think c", nil, nil)

	if got := strings.Count(buf.String(), "CMD CPU:"); got != 2 {
		t.Errorf("CPU diagnostics = %d, want 2 (piped segment exempt)\nlog: %s",
			got, buf.String())
	}
}

func TestProcessCmdlineTimeUsed(t *testing.T) {
	g, _ := newTestGame(t)
	g.Conf.LagCheck = true
	g.Conf.MaxCmdSecs = 1000

	g.ProcessCmdline(testPlayer, testPlayer, "say hi;say bye", nil, nil)

	obj := g.DB.Get(testPlayer)
	if obj.TimeUsedSec < 0 || obj.TimeUsedUsec < 0 || obj.TimeUsedUsec >= 1000000 {
		t.Errorf("time used not normalized: %ds %dus", obj.TimeUsedSec, obj.TimeUsedUsec)
	}
	if obj.TimeUsedSec == 0 && obj.TimeUsedUsec == 0 {
		t.Error("no time accumulated across the chain")
	}
}

func TestProcessCmdlinePipeRestoresOutput(t *testing.T) {
	g, cap := newTestGame(t)

	g.State.Pout = "outer"
	g.State.HasPout = true
	g.ProcessCmdline(testPlayer, testPlayer, "think a|think in:%|;think after:%|", nil, nil)

	if !cap.Contains(testPlayer, "in:a") {
		t.Errorf("piped segment missed the captured output: %v", cap.Lines(testPlayer))
	}
	if !cap.Contains(testPlayer, "after:outer") {
		t.Errorf("segment after the pipe chain should see the saved output, not the pipe buffer: %v",
			cap.Lines(testPlayer))
	}
	if g.State.Pout != "outer" || !g.State.HasPout {
		t.Errorf("pipe output not restored: %q %v", g.State.Pout, g.State.HasPout)
	}
}
