package server

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/crystal-mush/gomushcore/pkg/eval"
	"github.com/crystal-mush/gomushcore/pkg/events"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// Handler key values. Switch tables fold these into the key argument.
const (
	SayNoSpace   = 1 // pose/nospace folds into SAY_POSE_NOSPC
	SaySay       = 1
	SayPose      = 2
	SayPoseNoSpc = 3
	SayEmit      = 5
	SayHere      = 64
	SayRoom      = 128
	SayPrefix    = 512

	FrcCommand = 1
	FrcNow     = 2

	HaltAll = 1

	NfyNfy    = 0
	NfyNfyAll = 1
	NfyDrain  = 2

	PemitPemit    = 1
	PemitContents = 8
	PemitList     = 64

	SetQuiet = 1

	SwitchDefault = 0
	SwitchAny     = 1
	SwitchOne     = 2
	SwitchNow     = 4

	TrigQuiet = 1
	TrigNow   = 2

	WaitUntil = 1

	EndcmdBreak  = 0
	EndcmdAssert = 1
)

// switchVar is the token @switch substitutes with the matched expression.
const switchVar = "#$"

var (
	addcmdSwitches = []NameTab{
		{Name: "preserve", MinLen: 1, Perm: CAGod, Flag: AddcmdPreserve},
	}
	emitSwitches = []NameTab{
		{Name: "noeval", MinLen: 1, Perm: CAPublic, Flag: SwNoEval | SwMultiple},
		{Name: "here", MinLen: 1, Perm: CAPublic, Flag: SayHere | SwMultiple},
		{Name: "room", MinLen: 1, Perm: CAPublic, Flag: SayRoom | SwMultiple},
	}
	endSwitches = []NameTab{
		{Name: "assert", MinLen: 1, Perm: CAPublic, Flag: EndcmdAssert},
		{Name: "break", MinLen: 1, Perm: CAPublic, Flag: EndcmdBreak},
	}
	forceSwitches = []NameTab{
		{Name: "now", MinLen: 1, Perm: CAPublic, Flag: FrcNow | SwMultiple},
	}
	haltSwitches = []NameTab{
		{Name: "all", MinLen: 1, Perm: CAWizard, Flag: HaltAll},
	}
	hookSwitches = []NameTab{
		{Name: "before", MinLen: 1, Perm: CAGod, Flag: HookBefore},
		{Name: "after", MinLen: 1, Perm: CAGod, Flag: HookAfter},
		{Name: "permit", MinLen: 1, Perm: CAGod, Flag: HookPermit},
		{Name: "preserve", MinLen: 3, Perm: CAGod, Flag: HookPreserve},
		{Name: "nopreserve", MinLen: 1, Perm: CAGod, Flag: HookNoPreserve},
		{Name: "private", MinLen: 3, Perm: CAGod, Flag: HookPrivate},
	}
	notifySwitches = []NameTab{
		{Name: "all", MinLen: 1, Perm: CAPublic, Flag: NfyNfyAll},
		{Name: "first", MinLen: 1, Perm: CAPublic, Flag: NfyNfy},
	}
	pemitSwitches = []NameTab{
		{Name: "contents", MinLen: 1, Perm: CAPublic, Flag: PemitContents | SwMultiple},
		{Name: "list", MinLen: 1, Perm: CAPublic, Flag: PemitList | SwMultiple},
		{Name: "noeval", MinLen: 1, Perm: CAPublic, Flag: SwNoEval | SwMultiple},
	}
	poseSwitches = []NameTab{
		{Name: "default", MinLen: 1, Perm: CAPublic, Flag: 0},
		{Name: "noeval", MinLen: 3, Perm: CAPublic, Flag: SwNoEval | SwMultiple},
		{Name: "nospace", MinLen: 3, Perm: CAPublic, Flag: SayNoSpace},
	}
	saySwitches = []NameTab{
		{Name: "noeval", MinLen: 1, Perm: CAPublic, Flag: SwNoEval},
	}
	setSwitches = []NameTab{
		{Name: "quiet", MinLen: 1, Perm: CAPublic, Flag: SetQuiet},
	}
	switchSwitches = []NameTab{
		{Name: "all", MinLen: 1, Perm: CAPublic, Flag: SwitchAny},
		{Name: "default", MinLen: 1, Perm: CAPublic, Flag: SwitchDefault},
		{Name: "first", MinLen: 1, Perm: CAPublic, Flag: SwitchOne},
		{Name: "now", MinLen: 1, Perm: CAPublic, Flag: SwitchNow | SwMultiple},
	}
	triggerSwitches = []NameTab{
		{Name: "quiet", MinLen: 1, Perm: CAPublic, Flag: TrigQuiet},
		{Name: "now", MinLen: 1, Perm: CAPublic, Flag: TrigNow | SwMultiple},
	}
	waitSwitches = []NameTab{
		{Name: "until", MinLen: 1, Perm: CAPublic, Flag: WaitUntil | SwMultiple},
	}
	moveSwitches = []NameTab{
		{Name: "quiet", MinLen: 1, Perm: CAPublic, Flag: MoveQuiet},
	}
)

// RegisterBuiltins installs the builtin command table on a fresh Game.
func RegisterBuiltins(g *Game) {
	t := g.Commands

	t.Register(&Command{
		Name: "@addcommand", Switches: addcmdSwitches, Perms: CAGod,
		CallSeq: CSTwoArg, TwoArg: DoAddCommand,
	})
	t.Register(&Command{
		Name: "@delcommand", Perms: CAGod,
		CallSeq: CSTwoArg, TwoArg: DoDelCommand,
	})
	t.Register(&Command{
		Name: "@listcommands", Perms: CAGod,
		CallSeq: CSOneArg, OneArg: DoListCommands,
	})
	t.Register(&Command{
		Name: "@emit", Switches: emitSwitches,
		Perms: CALocation | CANoGuest | CANoSlave, Extra: SayEmit,
		CallSeq: CSOneArg | CSInterp, OneArg: DoSay,
	})
	t.Register(&Command{
		Name: "@end", Switches: endSwitches, Perms: CAGblInterp,
		CallSeq: CSTwoArg | CSCmdArg | CSNoInterp | CSStripAround,
		TwoArgCmd: DoEnd,
	})
	t.Register(&Command{
		Name: "@break", Perms: CAGblInterp, Extra: EndcmdBreak,
		CallSeq: CSTwoArg | CSCmdArg | CSNoInterp | CSStripAround,
		TwoArgCmd: DoEnd,
	})
	t.Register(&Command{
		Name: "@assert", Perms: CAGblInterp, Extra: EndcmdAssert,
		CallSeq: CSTwoArg | CSCmdArg | CSNoInterp | CSStripAround,
		TwoArgCmd: DoEnd,
	})
	t.Register(&Command{
		Name: "@force", Switches: forceSwitches,
		Perms: CANoSlave | CAGblInterp | CANoGuest, Extra: FrcCommand,
		CallSeq: CSTwoArg | CSInterp | CSCmdArg, TwoArgCmd: DoForce,
	})
	t.Register(&Command{
		Name: "@halt", Switches: haltSwitches, Perms: CANoSlave,
		CallSeq: CSOneArg | CSInterp, OneArg: DoHalt,
	})
	t.Register(&Command{
		Name: "@hook", Switches: hookSwitches, Perms: CAGod,
		CallSeq: CSTwoArg | CSInterp, TwoArg: DoHook,
	})
	t.Register(&Command{
		Name: "@list", Perms: CAPublic,
		CallSeq: CSOneArg | CSInterp, OneArg: DoList,
	})
	t.Register(&Command{
		Name: "@notify", Switches: notifySwitches,
		Perms: CAGblInterp | CANoSlave | CANoGuest,
		CallSeq: CSTwoArg, TwoArg: DoNotify,
	})
	t.Register(&Command{
		Name: "@drain", Extra: NfyDrain,
		Perms: CAGblInterp | CANoSlave | CANoGuest,
		CallSeq: CSTwoArg, TwoArg: DoNotify,
	})
	t.Register(&Command{
		Name: "@pemit", Switches: pemitSwitches, Perms: CANoGuest | CANoSlave,
		Extra: PemitPemit, CallSeq: CSTwoArg | CSInterp, TwoArg: DoPemit,
	})
	t.Register(&Command{
		Name: "@readcache", Perms: CAWizard,
		CallSeq: CSNoArgs, NoArg: DoReadCache,
	})
	t.Register(&Command{
		Name: "@set", Perms: CANoSlave | CAGblBuild | CANoGuest,
		Switches: setSwitches, CallSeq: CSTwoArg, TwoArg: DoSet,
	})
	t.Register(&Command{
		Name: "@switch", Switches: switchSwitches, Perms: CAGblInterp,
		CallSeq:       CSTwoArg | CSArgv | CSCmdArg | CSNoInterp | CSStripAround,
		TwoArgArgvCmd: DoSwitch,
	}, "@select")
	t.Register(&Command{
		Name: "@trigger", Switches: triggerSwitches, Perms: CAGblInterp,
		CallSeq: CSTwoArg | CSArgv, TwoArgArgv: DoTrigger,
	}, "@tr")
	t.Register(&Command{
		Name: "@wait", Switches: waitSwitches, Perms: CAGblInterp,
		CallSeq:   CSTwoArg | CSCmdArg | CSNoInterp | CSStripAround,
		TwoArgCmd: DoWait,
	})
	t.Register(&Command{
		Name: "enter", Switches: moveSwitches, Perms: CALocation,
		CallSeq: CSOneArg | CSInterp, OneArg: DoEnter,
	})
	t.Register(&Command{
		Name: "goto", Switches: moveSwitches, Perms: CALocation,
		CallSeq: CSOneArg | CSInterp, OneArg: DoMove,
	}, "go")
	t.Register(&Command{
		Name: "leave", Switches: moveSwitches, Perms: CALocation,
		CallSeq: CSNoArgs | CSInterp, NoArg: DoLeave,
	})
	t.Register(&Command{
		Name: "pose", Switches: poseSwitches, Extra: SayPose,
		CallSeq: CSOneArg | CSInterp, OneArg: DoSay,
	})
	t.Register(&Command{
		Name: "say", Switches: saySwitches, Extra: SaySay,
		CallSeq: CSOneArg | CSInterp, OneArg: DoSay,
	})
	t.Register(&Command{
		Name: "think", Perms: CANoSlave,
		CallSeq: CSOneArg, OneArg: DoThink,
	})

	// Single-character lead-ins. The handler sees the whole command,
	// lead-in character included.
	t.Register(&Command{
		Name: "\"", Extra: SayPrefix | SaySay,
		CallSeq: CSOneArg | CSInterp | CSLeadin, OneArg: DoSay,
	})
	t.Register(&Command{
		Name: ":", Extra: SayPrefix | SayPose,
		CallSeq: CSOneArg | CSInterp | CSLeadin, OneArg: DoSay,
	})
	t.Register(&Command{
		Name: ";", Extra: SayPrefix | SayPoseNoSpc,
		CallSeq: CSOneArg | CSInterp | CSLeadin, OneArg: DoSay,
	})
	t.Register(&Command{
		Name: "\\", Extra: SayPrefix | SayEmit,
		Perms:   CALocation | CANoGuest | CANoSlave,
		CallSeq: CSOneArg | CSInterp | CSLeadin, OneArg: DoSay,
	})
	t.Register(&Command{
		Name:    "#",
		CallSeq: CSOneArg | CSInterp | CSCmdArg | CSLeadin,
		OneArgCmd: DoForcePrefixed,
	})
	t.Register(&Command{
		Name: "&", Perms: CANoGuest | CANoSlave,
		CallSeq: CSTwoArg | CSLeadin, TwoArg: DoSetVAttr,
	})

	g.gotoCmd = t.Lookup("goto")
	g.enterCmd = t.Lookup("enter")
	g.leaveCmd = t.Lookup("leave")
}

// --- Speech ---

// notifySpeech delivers a typed speech event to one object, honoring any
// active pipe sink the same way Notify does. Recipients with a
// MARKER_<TYPE> attribute get the text wrapped in their marker.
func (g *Game) notifySpeech(target gamedb.DBRef, ev events.Event) {
	if sink := g.State.ActiveSink(target); sink != nil {
		sink.buf.WriteString(ev.Text)
		return
	}
	ev.Player = target
	ev.Text = g.WrapMarker(target, strings.ToUpper(ev.Type.String()), ev.Text)
	g.Bus.Emit(ev)
}

// notifyRoomSpeech sends a speech event to everything in loc, optionally
// excluding one object.
func (g *Game) notifyRoomSpeech(loc, except gamedb.DBRef, ev events.Event) {
	if loc == gamedb.Nothing {
		return
	}
	for _, ref := range g.DB.SafeContents(loc) {
		if ref != except {
			g.notifySpeech(ref, ev)
		}
	}
}

// matchListen runs ^pattern listen attributes on monitoring objects in a
// room. The speaker never triggers its own listens.
func (g *Game) matchListen(loc, speaker gamedb.DBRef, msg string) {
	if loc == gamedb.Nothing {
		return
	}
	for _, ref := range g.DB.SafeContents(loc) {
		if ref == speaker {
			continue
		}
		obj := g.DB.Get(ref)
		if obj == nil || !obj.HasFlag2(gamedb.Flag2HasListen) {
			continue
		}
		atrMatch(g, ref, speaker, AmatchListen, msg, msg, true)
	}
}

// DoSay handles say, pose, @emit and their lead-in forms. Lead-in
// messages arrive with the lead-in character still attached.
func DoSay(g *Game, player, cause gamedb.DBRef, key int, message string) {
	sayFlags := key & (SayHere | SayRoom)
	key &^= SayHere | SayRoom

	if key&SayPrefix != 0 {
		key &^= SayPrefix
		if message == "" {
			return
		}
		switch key {
		case SayPose:
			message = message[1:]
			if strings.HasPrefix(message, " ") {
				message = message[1:]
				key = SayPoseNoSpc
			}
		case SaySay, SayPoseNoSpc:
			message = message[1:]
		case SayEmit:
			// A doubled backslash leaves one behind after evaluation.
			if strings.HasPrefix(message, "\\") {
				message = message[1:]
			}
		default:
			return
		}
	}

	loc := g.Location(player)
	if loc == gamedb.Nothing {
		return
	}
	name := g.Name(player)

	switch key {
	case SaySay:
		g.notifySpeech(player, events.Event{
			Type: events.EvSay, Source: player, Room: loc,
			Text: fmt.Sprintf("You say \"%s\"", message),
			Data: map[string]any{"message": message, "speaker": name},
		})
		roomMsg := fmt.Sprintf("%s says \"%s\"", name, message)
		g.notifyRoomSpeech(loc, player, events.Event{
			Type: events.EvSay, Source: player, Room: loc,
			Text: roomMsg,
			Data: map[string]any{"message": message, "speaker": name},
		})
		g.matchListen(loc, player, roomMsg)
	case SayPose, SayPoseNoSpc:
		sep := " "
		if key == SayPoseNoSpc {
			sep = ""
		}
		msg := name + sep + message
		g.notifyRoomSpeech(loc, gamedb.Nothing, events.Event{
			Type: events.EvPose, Source: player, Room: loc,
			Text: msg,
			Data: map[string]any{"pose": message, "speaker": name},
		})
		g.matchListen(loc, player, msg)
	case SayEmit:
		ev := events.Event{
			Type: events.EvEmit, Source: player, Room: loc,
			Text: message,
		}
		if sayFlags == 0 || sayFlags&SayHere != 0 {
			g.notifyRoomSpeech(loc, gamedb.Nothing, ev)
			g.matchListen(loc, player, message)
		}
		if sayFlags&SayRoom != 0 {
			room := loc
			if g.DB.Get(room) != nil && g.DB.Get(room).ObjType() == gamedb.TypeRoom {
				if sayFlags&SayHere != 0 {
					return
				}
			}
			for depth := 0; depth < 20; depth++ {
				obj := g.DB.Get(room)
				if obj == nil || obj.ObjType() == gamedb.TypeRoom {
					break
				}
				next := obj.Location
				if next == gamedb.Nothing || next == room {
					return
				}
				room = next
			}
			if obj := g.DB.Get(room); obj != nil && obj.ObjType() == gamedb.TypeRoom {
				ev.Room = room
				g.notifyRoomSpeech(room, gamedb.Nothing, ev)
				g.matchListen(room, player, message)
			}
		}
	}
}

// DoThink evaluates its argument and shows the result only to the thinker.
func DoThink(g *Game, player, cause gamedb.DBRef, key int, message string) {
	result := g.exec(player, cause, cause, message, eval.EvFCheck|eval.EvEval, nil)
	g.Notify(player, result)
}

// DoPemit sends a message directly to a target, its contents, or a list
// of targets.
func DoPemit(g *Game, player, cause gamedb.DBRef, key int, recipient, message string) {
	if key&PemitList != 0 {
		for _, name := range strings.Fields(recipient) {
			target := g.MatchObject(player, name)
			if target != gamedb.Nothing {
				g.Notify(target, message)
			}
		}
		return
	}

	target := g.MatchObject(player, recipient)
	if target == gamedb.Nothing {
		g.Notify(player, "I don't see that here.")
		return
	}
	if key&PemitContents != 0 {
		if !Controls(g, player, target) && g.Location(player) != target {
			g.Notify(player, g.Conf.NoPermMsg)
			return
		}
		g.NotifyExcept(target, gamedb.Nothing, message)
		return
	}
	g.Notify(target, message)
}

// --- @force and friends ---

// matchControlled finds an object by name and verifies the player
// controls it.
func (g *Game) matchControlled(player gamedb.DBRef, name string) gamedb.DBRef {
	target := g.MatchObject(player, name)
	if target == gamedb.Nothing {
		g.Notify(player, "I don't see that here.")
		return gamedb.Nothing
	}
	if !Controls(g, player, target) {
		g.Notify(player, g.Conf.NoPermMsg)
		return gamedb.Nothing
	}
	return target
}

// DoForce makes another object run a command.
func DoForce(g *Game, player, cause gamedb.DBRef, key int, what, command string, cargs []string) {
	victim := g.matchControlled(player, what)
	if victim == gamedb.Nothing {
		return
	}
	if key&FrcNow != 0 {
		g.ProcessCmdline(victim, player, command, cargs, nil)
		return
	}
	g.Queue.QueueCommand(g, victim, player, command, cargs, g.State.SaveRegs())
}

// DoForcePrefixed handles the "#<dbref> <command>" lead-in form of @force.
func DoForcePrefixed(g *Game, player, cause gamedb.DBRef, key int, command string, cargs []string) {
	target, rest := firstWord(command)
	if len(rest) == 0 {
		g.Notify(player, "I don't see that here.")
		return
	}
	DoForce(g, player, cause, key, target, rest, cargs)
}

// --- Attribute and flag setting ---

// resolveOrCreateAttr finds an attribute number for a name, minting a new
// user-defined attribute when the name is unknown.
func (g *Game) resolveOrCreateAttr(name string) int {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return -1
	}
	if num := g.ResolveAttrNum(name); num >= 0 {
		return num
	}
	num := g.DB.NextAttr
	if num < 256 {
		num = 256
	}
	g.DB.NextAttr = num + 1
	g.DB.AddAttrDef(num, name, 0)
	return num
}

// DoSet sets a flag ("@set obj=FLAG" or "!FLAG") or an attribute
// ("@set obj=attr:value").
func DoSet(g *Game, player, cause gamedb.DBRef, key int, name, what string) {
	target := g.matchControlled(player, name)
	if target == gamedb.Nothing {
		return
	}
	quiet := key&SetQuiet != 0 || g.DB.Get(player) != nil && g.DB.Get(player).HasFlag(gamedb.FlagQuiet)

	if colon := findUnescapedColon(what); colon >= 0 {
		attrName := what[:colon]
		value := what[colon+1:]
		attrNum := g.resolveOrCreateAttr(attrName)
		if attrNum < 0 {
			g.Notify(player, "I don't understand that attribute.")
			return
		}
		_, instFlags := g.atrGetInfo(target, attrNum)
		if !CanSetAttr(g, player, target, g.DB.AttrFlags(attrNum), instFlags) {
			g.Notify(player, g.Conf.NoPermMsg)
			return
		}
		g.setAttr(target, attrNum, value)
		if !quiet {
			if value == "" {
				g.Notifyf(player, "%s - Cleared.", strings.ToUpper(strings.TrimSpace(attrName)))
			} else {
				g.Notify(player, "Set.")
			}
		}
		return
	}

	flagStr := strings.TrimSpace(what)
	if !g.SetFlag(target, flagStr) {
		g.Notify(player, "I don't understand that flag.")
		return
	}
	if !quiet {
		if strings.HasPrefix(flagStr, "!") {
			g.Notify(player, "Cleared.")
		} else {
			g.Notify(player, "Set.")
		}
	}
}

// DoSetVAttr handles the "&attr obj=value" lead-in. The attribute name
// arrives glued to the ampersand in arg1.
func DoSetVAttr(g *Game, player, cause gamedb.DBRef, key int, arg1, value string) {
	spec := strings.TrimPrefix(arg1, "&")
	attrName, objName := firstWord(spec)
	if attrName == "" || objName == "" {
		g.Notify(player, "I don't understand that.")
		return
	}
	DoSet(g, player, cause, key, objName, attrName+":"+value)
}

// --- Queue-driving commands ---

// DoTrigger runs an object's attribute as an action list.
func DoTrigger(g *Game, player, cause gamedb.DBRef, key int, spec string, argv []string) {
	thing, attrNum, ok := g.ParseObjAttr(player, spec)
	if !ok {
		// Bare attribute name means an attribute on the player.
		thing, attrNum, ok = g.ParseObjAttr(player, "me/"+spec)
	}
	if !ok {
		g.Notify(player, "No match.")
		return
	}
	if !Controls(g, player, thing) {
		g.Notify(player, g.Conf.NoPermMsg)
		return
	}
	text := g.atrPGet(thing, attrNum)
	if text != "" {
		if key&TrigNow != 0 {
			g.ProcessCmdline(thing, player, text, argv, nil)
		} else {
			g.Queue.QueueCommand(g, thing, player, text, argv, g.State.SaveRegs())
		}
	}
	if key&TrigQuiet == 0 {
		if obj := g.DB.Get(player); obj == nil || !obj.HasFlag(gamedb.FlagQuiet) {
			g.Notify(player, "Triggered.")
		}
	}
}

// DoSwitch matches an expression against patterns and runs the action
// paired with each match.
func DoSwitch(g *Game, player, cause gamedb.DBRef, key int, expr string, args []string, cargs []string) {
	now := key&SwitchNow != 0
	key &^= SwitchNow
	if key == SwitchDefault {
		if g.Conf.SwitchDefaultAll {
			key = SwitchAny
		} else {
			key = SwitchOne
		}
	}

	run := func(action string) {
		action = strings.ReplaceAll(action, switchVar, expr)
		if now {
			g.ProcessCmdline(player, cause, action, cargs, nil)
		} else {
			g.Queue.QueueCommand(g, player, cause, action, cargs, g.State.SaveRegs())
		}
	}

	any := false
	i := 0
	for ; i+1 < len(args); i += 2 {
		pattern := g.exec(player, cause, cause, args[i],
			eval.EvStrip|eval.EvFCheck|eval.EvEval, cargs)
		if matchWild(pattern, expr, nil) {
			run(args[i+1])
			any = true
			if key == SwitchOne {
				return
			}
		}
	}
	// A trailing unpaired argument is the default action.
	if i < len(args) && !any {
		run(args[i])
	}
}

// DoEnd implements @break and @assert: conditionally stop the enclosing
// action list, optionally queueing a replacement command.
func DoEnd(g *Game, player, cause gamedb.DBRef, key int, cond, command string, cargs []string) {
	wantFalse := key&EndcmdAssert != 0
	result := eval.Xlate(g.exec(player, cause, cause, cond,
		eval.EvStrip|eval.EvFCheck|eval.EvEval, cargs))
	if result == wantFalse {
		return
	}
	g.State.BreakCalled = true
	if command != "" {
		g.Queue.QueueCommand(g, player, cause, command, cargs, g.State.SaveRegs())
	}
}

// semCount adjusts the semaphore count stored on an attribute and returns
// the new value.
func (g *Game) semCount(thing gamedb.DBRef, attrNum, delta int) int {
	n, _ := strconv.Atoi(g.atrGet(thing, attrNum))
	n += delta
	if n == 0 {
		g.setAttr(thing, attrNum, "")
	} else {
		g.setAttr(thing, attrNum, strconv.Itoa(n))
	}
	return n
}

// parseSemaphore resolves an "obj[/attr]" semaphore spec.
func (g *Game) parseSemaphore(player gamedb.DBRef, spec string) (gamedb.DBRef, int, bool) {
	objName := spec
	attrNum := gamedb.A_Semaphore
	if slash := strings.IndexByte(spec, '/'); slash >= 0 {
		objName = spec[:slash]
		attrNum = g.resolveOrCreateAttr(spec[slash+1:])
		if attrNum < 0 {
			return gamedb.Nothing, 0, false
		}
	}
	thing := g.MatchObject(player, objName)
	if thing == gamedb.Nothing {
		g.Notify(player, "I don't see that here.")
		return gamedb.Nothing, 0, false
	}
	if !Controls(g, player, thing) && !linkOK(g, thing) {
		g.Notify(player, g.Conf.NoPermMsg)
		return gamedb.Nothing, 0, false
	}
	return thing, attrNum, true
}

func linkOK(g *Game, thing gamedb.DBRef) bool {
	obj := g.DB.Get(thing)
	return obj != nil && obj.HasFlag(gamedb.FlagLinkOK)
}

// DoWait delays a command, either on a timer or on a semaphore object.
func DoWait(g *Game, player, cause gamedb.DBRef, key int, event, command string, cargs []string) {
	entry := &QueueEntry{
		Executor: player,
		Cause:    cause,
		Command:  command,
		Args:     cargs,
		RData:    g.State.SaveRegs(),
		SemObj:   gamedb.Nothing,
	}

	if secs, err := strconv.ParseFloat(strings.TrimSpace(event), 64); err == nil {
		if key&WaitUntil != 0 {
			entry.WaitUntil = time.Unix(int64(secs), 0)
		} else {
			entry.WaitUntil = time.Now().Add(time.Duration(secs * float64(time.Second)))
		}
		g.Queue.AddWait(entry)
		return
	}

	thing, attrNum, ok := g.parseSemaphore(player, event)
	if !ok {
		return
	}
	entry.SemObj = thing
	entry.SemAttr = attrNum
	if g.semCount(thing, attrNum, 1) <= 0 {
		// Already notified past zero; the command is free to run.
		entry.SemObj = gamedb.Nothing
		g.Queue.Add(entry)
		return
	}
	g.Queue.AddSemaphore(entry)
}

// DoNotify releases commands blocked on a semaphore; as @drain it
// discards them instead.
func DoNotify(g *Game, player, cause gamedb.DBRef, key int, spec, countStr string) {
	thing, attrNum, ok := g.parseSemaphore(player, spec)
	if !ok {
		return
	}
	if key&NfyDrain != 0 {
		g.Queue.DrainSemaphore(thing, attrNum)
		g.setAttr(thing, attrNum, "")
		return
	}
	if key&NfyNfyAll != 0 {
		g.Queue.NotifySemaphore(thing, attrNum, int(^uint(0)>>1))
		g.setAttr(thing, attrNum, "")
		return
	}
	count := 1
	if n, err := strconv.Atoi(strings.TrimSpace(countStr)); err == nil && n > 0 {
		count = n
	}
	g.Queue.NotifySemaphore(thing, attrNum, count)
	g.semCount(thing, attrNum, -count)
}

// DoHalt flushes queued commands for an object, or for everything.
func DoHalt(g *Game, player, cause gamedb.DBRef, key int, target string) {
	if key&HaltAll != 0 {
		n := g.Queue.HaltAll()
		g.Notifyf(player, "Halted: %d queue entries removed.", n)
		return
	}
	victim := player
	if strings.TrimSpace(target) != "" {
		victim = g.matchControlled(player, target)
		if victim == gamedb.Nothing {
			return
		}
	}
	n := g.Queue.Halt(victim)
	obj := g.DB.Get(player)
	if obj == nil || !obj.HasFlag(gamedb.FlagQuiet) {
		g.Notifyf(player, "Halted: %d queue entries removed.", n)
	}
}

// DoList shows administrative tables. Only the command list lives in this
// core; everything else belongs to outer layers.
func DoList(g *Game, player, cause gamedb.DBRef, key int, what string) {
	switch strings.ToLower(strings.TrimSpace(what)) {
	case "commands":
		names := g.Commands.Names()
		sort.Strings(names)
		g.Notify(player, "Commands: "+strings.Join(names, " "))
	case "queue":
		imm, wait, sem := g.Queue.Stats()
		g.Notifyf(player, "Queue: %d immediate, %d waiting, %d on semaphores.",
			imm, wait, sem)
	default:
		g.Notify(player, "I don't understand which list you want.")
	}
}
