package server

import (
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/eval"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// Runtime control bits, toggled at runtime without a conf reload.
const (
	CFBuild  = 0x0001 // building allowed
	CFInterp = 0x0002 // queueing and triggering allowed
)

// outSink captures notify() output for one pipe segment.
type outSink struct {
	obj gamedb.DBRef
	buf strings.Builder
}

// MushState is the interpreter state threaded through command processing.
// The C ancestor kept these in globals; here the Game owns exactly one and
// every entry point snapshots the fields it mutates and restores them with
// defer, so recursive dispatch unwinds cleanly.
type MushState struct {
	Initializing bool // startup conf processing bypasses access checks
	ControlFlags int  // CFBuild | CFInterp

	CmdInvkCtr int // commands executed this top-level invocation
	CmdNestLev int // ProcessCmdline recursion depth

	BreakCalled bool // @break has aborted the current action list

	DebugCmd string // label for diagnostics: what we're working on
	CurrCmd  string // the whole current command, pre-compression

	CurrEnactor gamedb.DBRef
	CurrPlayer  gamedb.DBRef

	// Pipe redirection. Pout carries the previous segment's captured
	// output (read back through %|); sinks is the stack of capture
	// buffers for segments currently executing inside a pipe.
	InPipe  bool
	PoutObj gamedb.DBRef
	Pout    string
	HasPout bool
	sinks   []*outSink

	RData *eval.RegisterData // global q-registers, shared across a command list
}

// PushSink starts capturing notify output destined for obj.
func (st *MushState) PushSink(obj gamedb.DBRef) {
	st.sinks = append(st.sinks, &outSink{obj: obj})
}

// PopSink stops the innermost capture and returns what it collected.
func (st *MushState) PopSink() string {
	n := len(st.sinks)
	if n == 0 {
		return ""
	}
	s := st.sinks[n-1]
	st.sinks = st.sinks[:n-1]
	return s.buf.String()
}

// ActiveSink returns the innermost capture buffer if it is collecting
// output for target, nil otherwise.
func (st *MushState) ActiveSink(target gamedb.DBRef) *outSink {
	n := len(st.sinks)
	if n == 0 {
		return nil
	}
	if s := st.sinks[n-1]; s.obj == target {
		return s
	}
	return nil
}

// NewMushState returns interpreter state with both control bits set.
func NewMushState() *MushState {
	return &MushState{
		ControlFlags: CFBuild | CFInterp,
		CurrEnactor:  gamedb.Nothing,
		CurrPlayer:   gamedb.Nothing,
		PoutObj:      gamedb.Nothing,
		RData:        eval.NewRegisterData(),
	}
}

// stateSnapshot holds the fields ProcessCmdline and ProcessCommand scope.
type stateSnapshot struct {
	debugCmd    string
	currEnactor gamedb.DBRef
	currPlayer  gamedb.DBRef
	inPipe      bool
	poutObj     gamedb.DBRef
	pout        string
	hasPout     bool
}

func (st *MushState) snapshot() stateSnapshot {
	return stateSnapshot{
		debugCmd:    st.DebugCmd,
		currEnactor: st.CurrEnactor,
		currPlayer:  st.CurrPlayer,
		inPipe:      st.InPipe,
		poutObj:     st.PoutObj,
		pout:        st.Pout,
		hasPout:     st.HasPout,
	}
}

func (st *MushState) restore(s stateSnapshot) {
	st.DebugCmd = s.debugCmd
	st.CurrEnactor = s.currEnactor
	st.CurrPlayer = s.currPlayer
	st.InPipe = s.inPipe
	st.PoutObj = s.poutObj
	st.Pout = s.pout
	st.HasPout = s.hasPout
}

// SaveRegs clones the global registers so a hook or added command can run
// without clobbering them.
func (st *MushState) SaveRegs() *eval.RegisterData {
	if st.RData == nil {
		return nil
	}
	return st.RData.Clone()
}

// RestoreRegs puts a saved register set back.
func (st *MushState) RestoreRegs(saved *eval.RegisterData) {
	if saved == nil {
		saved = eval.NewRegisterData()
	}
	st.RData = saved
}
