package server

import (
	"github.com/crystal-mush/gomushcore/pkg/eval"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// @hook switch values.
const (
	HookBefore     = 1  // pre-command hook
	HookAfter      = 2  // post-command hook
	HookPreserve   = 4  // preserve global regs around hooks
	HookNoPreserve = 8  // don't preserve global regs
	HookPermit     = 16 // user-defined permissions
	HookPrivate    = 32 // private global regs
)

// HookEnt names an attribute on an object; hooks and user-defined
// permissions are stored this way.
type HookEnt struct {
	Thing gamedb.DBRef
	Attr  int
}

// processHook evaluates a hook's obj/attr pair. The hook object is the
// executor; the player who ran the hooked command is the enactor. The
// result is discarded, hooks act through side effects. saveGlobs carries
// the command's CS_PRESERVE/CS_PRIVATE bits: preserve snapshots the global
// registers around the call, private gives the hook a fresh register set.
func (g *Game) processHook(hp *HookEnt, saveGlobs int, player, cause gamedb.DBRef, cargs []string) {
	text := g.atrGet(hp.Thing, hp.Attr)

	var saved *eval.RegisterData
	if saveGlobs&CSPreserve != 0 {
		saved = g.State.SaveRegs()
	} else if saveGlobs&CSPrivate != 0 {
		saved = g.State.RData
		g.State.RData = eval.NewRegisterData()
	}

	g.exec(hp.Thing, player, player, text, eval.EvEval|eval.EvFCheck, cargs)

	if saveGlobs&CSPreserve != 0 {
		g.State.RestoreRegs(saved)
	} else if saveGlobs&CSPrivate != 0 {
		g.State.RData = saved
	}
}

// CallPreHook runs a command's before-hook. Added commands never fire
// hooks here; their segments re-enter the dispatcher and would run them
// twice.
func (g *Game) CallPreHook(cmdp *Command, player, cause gamedb.DBRef, cargs []string) {
	if cmdp == nil || cmdp.PreHook == nil || cmdp.CallSeq&CSAdded != 0 {
		return
	}
	g.processHook(cmdp.PreHook, cmdp.CallSeq&(CSPreserve|CSPrivate), player, cause, cargs)
}

// CallPostHook runs a command's after-hook.
func (g *Game) CallPostHook(cmdp *Command, player, cause gamedb.DBRef, cargs []string) {
	if cmdp == nil || cmdp.PostHook == nil || cmdp.CallSeq&CSAdded != 0 {
		return
	}
	g.processHook(cmdp.PostHook, cmdp.CallSeq&(CSPreserve|CSPrivate), player, cause, cargs)
}

// CallMoveHook lets movement done outside the command table (drop-tos,
// @teleport and the like) still fire the goto command's hooks. after
// selects the post-hook.
func (g *Game) CallMoveHook(player, cause gamedb.DBRef, after bool) {
	if g.gotoCmd == nil {
		return
	}
	if after {
		g.CallPostHook(g.gotoCmd, player, cause, nil)
	} else {
		g.CallPreHook(g.gotoCmd, player, cause, nil)
	}
}
