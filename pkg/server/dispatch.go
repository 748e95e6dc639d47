package server

import (
	"fmt"

	"github.com/crystal-mush/gomushcore/pkg/eval"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// invalidObjtype reports whether player's object type is incompatible with
// the command's CA_LOCATION / CA_CONTENTS / CA_PLAYER requirements.
func invalidObjtype(g *Game, player gamedb.DBRef, perms int) bool {
	if perms&CALocation != 0 && !g.hasLocation(player) {
		return true
	}
	if perms&CAContents != 0 && !g.hasContents(player) {
		return true
	}
	if perms&CAPlayer != 0 && !g.isPlayer(player) {
		return true
	}
	return false
}

// ProcessCmdent runs a single resolved command entry: access checks,
// switch folding, hook calls, argument evaluation, and the handler call.
// switchp holds the raw '/'-separated switch text, arg the raw argument
// text, and unpCommand the full unparsed command line.
func (g *Game) ProcessCmdent(cmdp *Command, switchp string, player, cause gamedb.DBRef, interactive bool, arg, unpCommand string, cargs []string) {
	if invalidObjtype(g, player, cmdp.Perms) {
		g.Notify(player, "Command incompatible with invoker's type.")
		return
	}

	if !CheckCmdAccess(g, player, cmdp, cargs) {
		g.Notify(player, g.Conf.NoPermMsg)
		return
	}

	// Global control flags gate restricted commands unless the invoker
	// carries the matching privilege.
	if cmdp.Perms&CAGblBuild != 0 && g.State.ControlFlags&CFBuild == 0 && !Builder(g, player) {
		g.Notify(player, "Sorry, building is not allowed now.")
		return
	}
	if cmdp.Perms&CAGblInterp != 0 && g.State.ControlFlags&CFInterp == 0 && !Builder(g, player) {
		g.Notify(player, "Sorry, queueing and triggering are not allowed now.")
		return
	}

	key := cmdp.Extra &^ SwMultiple
	gotUnique := false
	if key&SwGotUnique != 0 {
		gotUnique = true
		key &^= SwGotUnique
	}

	// Fold the given switches into the key, rejecting unknown switches and
	// illegal combinations of two non-multiple switches.
	if switchp != "" && cmdp.Switches != nil {
		rest := switchp
		for rest != "" {
			var sw string
			sw, rest, _ = eval.ParseTo(rest, '/', 0)
			xkey := SearchNameTab(g, player, cmdp.Switches, sw)
			switch {
			case xkey == SwitchNotFound:
				g.Notify(player, fmt.Sprintf("Unrecognized switch '%s' for command '%s'.", sw, cmdp.Name))
				return
			case xkey == SwitchNoPerm:
				g.Notify(player, g.Conf.NoPermMsg)
				return
			case xkey&SwMultiple == 0:
				if gotUnique {
					g.Notify(player, "Illegal combination of switches.")
					return
				}
				gotUnique = true
				key |= xkey
			default:
				key |= xkey &^ SwMultiple
			}
		}
	} else if switchp != "" && cmdp.CallSeq&CSAdded == 0 {
		g.Notify(player, fmt.Sprintf("Command %s does not take switches.", cmdp.Name))
		return
	}

	g.CallPreHook(cmdp, player, cause, cargs)

	// Select how arguments get evaluated.
	var interp int
	switch {
	case cmdp.CallSeq&CSInterp != 0 && key&SwNoEval != 0:
		interp = eval.EvStrip
		key &^= SwNoEval
	case cmdp.CallSeq&CSInterp != 0 || !(interactive || cmdp.CallSeq&CSNoInterp != 0):
		interp = eval.EvEval | eval.EvStrip
	case cmdp.CallSeq&CSStrip != 0:
		interp = eval.EvStrip
	case cmdp.CallSeq&CSStripAround != 0:
		interp = eval.EvStripAround
	}

	switch cmdp.CallSeq & CSNargMask {
	case CSNoArgs:
		if cmdp.NoArg != nil {
			cmdp.NoArg(g, player, cause, key)
		}

	case CSOneArg:
		if cmdp.CallSeq&CSUnparse != 0 {
			if cmdp.Unparsed != nil {
				cmdp.Unparsed(g, player, unpCommand)
			}
			break
		}

		var buf string
		if interp&eval.EvEval != 0 && cmdp.CallSeq&CSAdded == 0 {
			buf = g.exec(player, cause, cause, arg, interp|eval.EvFCheck, cargs)
		} else {
			buf, _, _ = eval.ParseTo(arg, 0, interp|eval.EvStripLS|eval.EvStripTS)
		}

		switch {
		case cmdp.CallSeq&CSAdded != 0:
			g.processAdded(cmdp, player, cause, switchp, unpCommand)
		case cmdp.CallSeq&CSCmdArg != 0:
			if cmdp.OneArgCmd != nil {
				cmdp.OneArgCmd(g, player, cause, key, buf, cargs)
			}
		default:
			if cmdp.OneArg != nil {
				cmdp.OneArg(g, player, cause, key, buf)
			}
		}

	case CSTwoArg:
		rawArg1, rawArg2, _ := eval.ParseTo(arg, '=', eval.EvStripTS)
		arg1 := g.exec(player, cause, cause, rawArg1, eval.EvStrip|eval.EvFCheck|eval.EvEval, cargs)

		if cmdp.CallSeq&CSArgv != 0 {
			var args []string
			if interp&eval.EvEval != 0 {
				ctx := g.evalContext(player, cause, cause)
				args = ctx.ParseArgList(rawArg2, cargs)
			} else {
				// Split but don't evaluate; the handler decides when
				// (and whether) each piece runs.
				for _, p := range eval.SplitTopLevel(rawArg2, ',') {
					piece, _, _ := eval.ParseTo(p, 0, interp|eval.EvStripLS|eval.EvStripTS)
					args = append(args, piece)
				}
			}
			if cmdp.CallSeq&CSCmdArg != 0 {
				if cmdp.TwoArgArgvCmd != nil {
					cmdp.TwoArgArgvCmd(g, player, cause, key, arg1, args, cargs)
				}
			} else {
				if cmdp.TwoArgArgv != nil {
					cmdp.TwoArgArgv(g, player, cause, key, arg1, args)
				}
			}
			break
		}

		var arg2 string
		flags2 := interp
		if cmdp.CallSeq&CSUnparse != 0 {
			flags2 |= eval.EvNoCompress
		}
		if interp&eval.EvEval != 0 {
			arg2 = g.exec(player, cause, cause, rawArg2, flags2|eval.EvFCheck, cargs)
		} else {
			arg2, _, _ = eval.ParseTo(rawArg2, 0, flags2|eval.EvStripLS|eval.EvStripTS)
		}

		if cmdp.CallSeq&CSCmdArg != 0 {
			if cmdp.TwoArgCmd != nil {
				cmdp.TwoArgCmd(g, player, cause, key, arg1, arg2, cargs)
			}
		} else {
			if cmdp.TwoArg != nil {
				cmdp.TwoArg(g, player, cause, key, arg1, arg2)
			}
		}
	}

	g.CallPostHook(cmdp, player, cause, cargs)
}
