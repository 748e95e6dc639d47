package server

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/boltstore"
	"github.com/crystal-mush/gomushcore/pkg/eval"
	"github.com/crystal-mush/gomushcore/pkg/events"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// CommandInterceptor may claim a command line before normal resolution.
// Returning true consumes the line.
type CommandInterceptor func(g *Game, player, cause gamedb.DBRef, interactive bool, command string, args []string) bool

// NoMatchHandler gets a shot at a command nothing else matched. It
// receives both the evaluated, lowercased line and the preserved original.
type NoMatchHandler func(g *Game, player, cause gamedb.DBRef, interactive bool, evaled, preserved string, args []string) bool

// Game holds the database, configuration, interpreter state and command
// table, and owns command resolution end to end.
type Game struct {
	DB    *gamedb.Database
	Store *boltstore.Store // nil = no persistence
	Conf  *GameConf
	State *MushState

	Commands *CmdTable
	Queue    *CommandQueue
	Bus      *events.Bus
	Metrics  *Metrics // nil = metrics disabled

	// External callouts, in the order they are tried.
	Interceptors []CommandInterceptor
	NoMatchHooks []NoMatchHandler

	// Alias-config state.
	FuncAliases map[string]string
	BadNames    []string

	// Help files keyed by the Help* command indexes.
	HelpFiles map[int]*HelpFile

	// Cached connection-screen text files, reloaded on change.
	TextDir string
	Texts   *TextFiles

	// Optional SQLite side store for softcode SQL and scrollback.
	SQLDB *SQLStore

	// Cached entries the resolver consults on hot paths.
	gotoCmd  *Command
	enterCmd *Command
	leaveCmd *Command
}

// NewGame wires a Game around a loaded database and configuration and
// registers the builtin command table.
func NewGame(db *gamedb.Database, conf *GameConf) *Game {
	if conf == nil {
		conf = DefaultGameConf()
	}
	g := &Game{
		DB:       db,
		Conf:     conf,
		State:    NewMushState(),
		Commands: NewCmdTable(),
		Queue:    NewCommandQueue(),
		Bus:      events.NewBus(),
	}
	if !conf.AllowBuilding {
		g.State.ControlFlags &^= CFBuild
	}
	if !conf.AllowTriggering {
		g.State.ControlFlags &^= CFInterp
	}
	RegisterBuiltins(g)
	return g
}

// Notify delivers a message to an object. Output captured by a pipe sink
// never reaches the bus; everything else is published as a text event that
// connected sessions subscribe to. Puppet and audible forwarding hang off
// the bus, not off this core.
func (g *Game) Notify(target gamedb.DBRef, msg string) {
	if sink := g.State.ActiveSink(target); sink != nil {
		sink.buf.WriteString(msg)
		return
	}
	g.Bus.Emit(events.Event{
		Type:   events.EvText,
		Player: target,
		Text:   msg,
	})
}

// Notifyf is Notify with formatting.
func (g *Game) Notifyf(target gamedb.DBRef, format string, args ...any) {
	g.Notify(target, fmt.Sprintf(format, args...))
}

// NotifyOwner sends to an object's owner (the object itself for players).
func (g *Game) NotifyOwner(target gamedb.DBRef, msg string) {
	g.Notify(g.Owner(target), msg)
}

// NotifyExcept sends a message to everything in loc except one object.
func (g *Game) NotifyExcept(loc, except gamedb.DBRef, msg string) {
	if loc == gamedb.Nothing {
		return
	}
	for _, ref := range g.DB.SafeContents(loc) {
		if ref != except {
			g.Notify(ref, msg)
		}
	}
}

// evalContext builds an expression-evaluator context carrying this game's
// state: shared global registers, current pipe output, and the configured
// space compression.
func (g *Game) evalContext(executor, caller, enactor gamedb.DBRef) *eval.EvalContext {
	ctx := eval.NewEvalContext(g.DB)
	ctx.GameState = g
	ctx.Player = executor
	ctx.Caller = caller
	ctx.Cause = enactor
	if g.State.RData == nil {
		g.State.RData = eval.NewRegisterData()
	}
	ctx.RData = g.State.RData
	ctx.CurrCmd = g.State.CurrCmd
	if g.State.HasPout {
		ctx.PipeOut = g.State.Pout
	}
	ctx.SpaceCompress = g.Conf.SpaceCompress
	for alias, target := range g.FuncAliases {
		ctx.AliasFunction(alias, target)
	}
	return ctx
}

// exec runs softcode through the expression evaluator.
func (g *Game) exec(executor, caller, enactor gamedb.DBRef, text string, evflags int, cargs []string) string {
	return g.evalContext(executor, caller, enactor).Exec(text, evflags, cargs)
}

// --- Object helpers ---

// Owner returns the owner of an object, or the object itself when it has
// no valid owner entry.
func (g *Game) Owner(ref gamedb.DBRef) gamedb.DBRef {
	if obj := g.DB.Get(ref); obj != nil && g.DB.Valid(obj.Owner) {
		return obj.Owner
	}
	return ref
}

// Name returns the display name of an object (aliases stripped).
func (g *Game) Name(ref gamedb.DBRef) string {
	if obj := g.DB.Get(ref); obj != nil {
		if idx := strings.IndexByte(obj.Name, ';'); idx >= 0 {
			return obj.Name[:idx]
		}
		return obj.Name
	}
	return fmt.Sprintf("#%d", ref)
}

// Location returns where an object is.
func (g *Game) Location(ref gamedb.DBRef) gamedb.DBRef {
	if obj := g.DB.Get(ref); obj != nil {
		return obj.Location
	}
	return gamedb.Nothing
}

// hasLocation: rooms don't have one, everything else does.
func (g *Game) hasLocation(ref gamedb.DBRef) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.ObjType() != gamedb.TypeRoom
}

// hasContents: exits can't hold anything.
func (g *Game) hasContents(ref gamedb.DBRef) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.ObjType() != gamedb.TypeExit
}

func (g *Game) isPlayer(ref gamedb.DBRef) bool {
	obj := g.DB.Get(ref)
	return obj != nil && obj.ObjType() == gamedb.TypePlayer
}

// MasterRoomRef returns the configured master room.
func (g *Game) MasterRoomRef() gamedb.DBRef {
	return gamedb.DBRef(g.Conf.MasterRoom)
}

// --- Attribute access ---

// attrInfo is the parsed "\x01owner:flags:" prefix of a stored attribute.
type attrInfo struct {
	Owner gamedb.DBRef
	Flags int
}

// parseAttrInfo splits a raw attribute value into its metadata and text.
// Values without the info prefix get zero metadata.
func parseAttrInfo(raw string) (attrInfo, string) {
	info := attrInfo{Owner: gamedb.Nothing}
	if len(raw) == 0 || raw[0] != '\x01' {
		return info, raw
	}
	rest := raw[1:]
	c1 := strings.IndexByte(rest, ':')
	if c1 < 0 {
		return info, raw
	}
	c2 := strings.IndexByte(rest[c1+1:], ':')
	if c2 < 0 {
		return info, raw
	}
	if n, err := strconv.Atoi(rest[:c1]); err == nil {
		info.Owner = gamedb.DBRef(n)
	}
	if n, err := strconv.Atoi(rest[c1+1 : c1+1+c2]); err == nil {
		info.Flags = n
	}
	return info, rest[c1+1+c2+1:]
}

// atrGet returns an attribute's text from the object itself.
func (g *Game) atrGet(obj gamedb.DBRef, attrNum int) string {
	o := g.DB.Get(obj)
	if o == nil {
		return ""
	}
	for i := range o.Attrs {
		if o.Attrs[i].Number == attrNum {
			_, text := parseAttrInfo(o.Attrs[i].Value)
			return text
		}
	}
	return ""
}

// atrGetInfo returns an attribute's text plus the combined attribute flags
// (definition flags OR'd with per-instance flags), walking no parents.
func (g *Game) atrGetInfo(obj gamedb.DBRef, attrNum int) (string, int) {
	o := g.DB.Get(obj)
	if o == nil {
		return "", 0
	}
	for i := range o.Attrs {
		if o.Attrs[i].Number == attrNum {
			info, text := parseAttrInfo(o.Attrs[i].Value)
			return text, info.Flags | g.DB.AttrFlags(attrNum)
		}
	}
	return "", 0
}

// atrGetOwnerFlags returns an attribute's text, owner, and combined flags.
func (g *Game) atrGetOwnerFlags(obj gamedb.DBRef, attrNum int) (string, gamedb.DBRef, int) {
	o := g.DB.Get(obj)
	if o == nil {
		return "", gamedb.Nothing, 0
	}
	for i := range o.Attrs {
		if o.Attrs[i].Number == attrNum {
			info, text := parseAttrInfo(o.Attrs[i].Value)
			return text, info.Owner, info.Flags | g.DB.AttrFlags(attrNum)
		}
	}
	return "", gamedb.Nothing, 0
}

// atrPGet returns an attribute's text, walking the parent chain.
func (g *Game) atrPGet(obj gamedb.DBRef, attrNum int) string {
	current := obj
	seen := make(map[gamedb.DBRef]bool)
	for depth := 0; depth <= g.Conf.ParentNestLim; depth++ {
		o := g.DB.Get(current)
		if o == nil || seen[current] {
			return ""
		}
		seen[current] = true
		for i := range o.Attrs {
			if o.Attrs[i].Number == attrNum {
				_, text := parseAttrInfo(o.Attrs[i].Value)
				return text
			}
		}
		if o.Parent == gamedb.Nothing {
			return ""
		}
		current = o.Parent
	}
	return ""
}

// setAttr writes an attribute on an object, preserving existing
// per-instance flags, and persists the object.
func (g *Game) setAttr(obj gamedb.DBRef, attrNum int, value string) {
	o := g.DB.Get(obj)
	if o == nil {
		return
	}
	o.SetAttr(attrNum, value)
	g.PersistObject(o)
}

// SetAttr is the exported form of setAttr, for tooling.
func (g *Game) SetAttr(obj gamedb.DBRef, attrNum int, value string) {
	g.setAttr(obj, attrNum, value)
}

// GodPlayer returns the configured God dbref.
func (g *Game) GodPlayer() gamedb.DBRef {
	return gamedb.DBRef(g.Conf.GodDBRef)
}

// RunStartup queues the STARTUP attribute of every object flagged
// HAS_STARTUP. Called once at boot, before the first queue pump.
func (g *Game) RunStartup() {
	count := 0
	for ref, obj := range g.DB.Objects {
		if !obj.HasFlag(gamedb.FlagHasStartup) || obj.IsGoing() {
			continue
		}
		if action := g.atrGet(ref, gamedb.A_Startup); action != "" {
			g.Queue.QueueCommand(g, ref, ref, action, nil, nil)
			count++
		}
	}
	if count > 0 {
		log.Printf("STARTUP: queued %d startup actions", count)
	}
}

// --- Persistence ---

// PersistObject writes an object through to the bolt store.
func (g *Game) PersistObject(obj *gamedb.Object) {
	if g.Store == nil || obj == nil {
		return
	}
	if err := g.Store.PutObject(obj); err != nil {
		log.Printf("ERROR: persist object #%d: %v", obj.DBRef, err)
	}
}

// PersistObjects writes several objects in one transaction.
func (g *Game) PersistObjects(objs ...*gamedb.Object) {
	if g.Store == nil {
		return
	}
	if err := g.Store.PutObjects(objs...); err != nil {
		log.Printf("ERROR: persist objects: %v", err)
	}
}

// --- Name resolution used by builtin handlers ---

// MatchObject resolves a name the way a player would use it: me, here,
// #dbref, *playername, then contents of the room and inventory with
// semicolon-separated aliases.
func (g *Game) MatchObject(player gamedb.DBRef, name string) gamedb.DBRef {
	name = strings.TrimSpace(name)
	if name == "" {
		return gamedb.Nothing
	}
	if strings.EqualFold(name, "me") {
		return player
	}
	if strings.EqualFold(name, "here") {
		return g.Location(player)
	}
	if name[0] == '#' {
		if n, err := strconv.Atoi(name[1:]); err == nil {
			return gamedb.DBRef(n)
		}
		return gamedb.Nothing
	}
	if name[0] == '*' {
		return g.LookupPlayer(name[1:])
	}

	matchIn := func(list []gamedb.DBRef) gamedb.DBRef {
		var prefix gamedb.DBRef = gamedb.Nothing
		for _, ref := range list {
			obj := g.DB.Get(ref)
			if obj == nil {
				continue
			}
			for _, alias := range strings.Split(obj.Name, ";") {
				alias = strings.TrimSpace(alias)
				if strings.EqualFold(alias, name) {
					return ref
				}
				if prefix == gamedb.Nothing && len(alias) >= len(name) &&
					strings.EqualFold(alias[:len(name)], name) {
					prefix = ref
				}
			}
		}
		return prefix
	}

	if found := matchIn(g.DB.SafeContents(g.Location(player))); found != gamedb.Nothing {
		return found
	}
	return matchIn(g.DB.SafeContents(player))
}

// LookupPlayer finds a player by name or alias, exact match only.
func (g *Game) LookupPlayer(name string) gamedb.DBRef {
	name = strings.TrimSpace(name)
	if name == "" {
		return gamedb.Nothing
	}
	for ref, obj := range g.DB.Objects {
		if obj.ObjType() != gamedb.TypePlayer {
			continue
		}
		for _, alias := range strings.Split(obj.Name, ";") {
			if strings.EqualFold(strings.TrimSpace(alias), name) {
				return ref
			}
		}
	}
	return gamedb.Nothing
}

// ParseObjAttr splits "obj/attr" into a resolved object and attribute
// number. Unknown attribute names resolve to -1.
func (g *Game) ParseObjAttr(player gamedb.DBRef, spec string) (gamedb.DBRef, int, bool) {
	slash := strings.IndexByte(spec, '/')
	if slash < 0 {
		return gamedb.Nothing, -1, false
	}
	thing := g.MatchObject(player, spec[:slash])
	if !g.DB.Valid(thing) {
		return gamedb.Nothing, -1, false
	}
	attrName := strings.ToUpper(strings.TrimSpace(spec[slash+1:]))
	if attrName == "" {
		return thing, -1, true
	}
	for num, n := range gamedb.WellKnownAttrs {
		if n == attrName {
			return thing, num, true
		}
	}
	if def, ok := g.DB.AttrByName[attrName]; ok {
		return thing, def.Number, true
	}
	return thing, -1, true
}
