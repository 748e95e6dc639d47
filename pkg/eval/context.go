package eval

import (
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// EvalFlags control expression evaluation behavior
const (
	EvEval        = 0x0001 // Evaluate functions
	EvFCheck      = 0x0002 // Check for function invocations
	EvFMand       = 0x0004 // Function evaluation is mandatory (inside [])
	EvStrip       = 0x0008 // Strip {} and leading/trailing spaces
	EvNoCompress  = 0x0010 // Don't compress spaces
	EvStripLS     = 0x0020 // Strip leading spaces
	EvStripTS     = 0x0040 // Strip trailing spaces
	EvStripESC    = 0x0080 // Strip backslash escapes
	EvStripAround = 0x0100 // Strip surrounding {}
	EvNoFCheck    = 0x0200 // Don't check for functions
	EvNoTrace     = 0x0400 // Don't trace
	EvNoLocation  = 0x0800 // Don't resolve %l
)

const MaxGlobalRegs = 36
const MaxNFArgs = 30

// RegisterData holds the q-register state (%q0-%q9, %qa-%qz, named regs)
type RegisterData struct {
	QRegs  [MaxGlobalRegs]string // %q0-%q9, %qa-%qz
	QLens  [MaxGlobalRegs]int
	QAlloc int
	XRegs  map[string]string // Named registers %q<name>
	Dirty  int
}

// NewRegisterData creates a RegisterData with defaults.
func NewRegisterData() *RegisterData {
	return &RegisterData{
		QAlloc: MaxGlobalRegs,
		XRegs:  make(map[string]string),
	}
}

// Clone returns a deep copy of the RegisterData.
func (r *RegisterData) Clone() *RegisterData {
	if r == nil {
		return nil
	}
	nr := &RegisterData{
		QAlloc: r.QAlloc,
		Dirty:  r.Dirty,
		XRegs:  make(map[string]string),
	}
	copy(nr.QRegs[:], r.QRegs[:])
	copy(nr.QLens[:], r.QLens[:])
	for k, v := range r.XRegs {
		nr.XRegs[k] = v
	}
	return nr
}

// LoopState tracks iter()/switch() nesting
type LoopState struct {
	InLoop      int
	InSwitch    int
	LoopTokens  []string // ## values per nesting level
	LoopTokens2 []string // #+ values
	LoopNumbers []int    // #@ values
	SwitchToken string   // #$ value
	BreakLevel  int      // > 0 means break out of this many loop levels
}

// GameState provides attribute permission checks to eval without importing
// the server package.
type GameState interface {
	// CanReadAttrGS checks if player can read a specific attribute on obj.
	// rawValue is the raw attribute value string (with \x01owner:flags:text prefix).
	CanReadAttrGS(player, obj gamedb.DBRef, attrNum int, rawValue string) bool
}

// EvalContext is the execution context for MUSH expression evaluation.
type EvalContext struct {
	// Database reference
	DB *gamedb.Database

	// Game state for attribute permission queries
	GameState GameState

	// Object context
	Player gamedb.DBRef // Executor (the object running code, %!)
	Caller gamedb.DBRef // Caller (%@)
	Cause  gamedb.DBRef // Enactor/trigger cause (%#)

	// Register state
	RData *RegisterData

	// Loop/switch state
	Loop LoopState

	// Function call tracking
	FuncNestLev int
	FuncInvkCtr int
	FuncNestLim int // default 50
	FuncInvkLim int // default 2500

	// Current command text
	CurrCmd string

	// Piped output
	PipeOut string

	// Space compression (default true in most configs)
	SpaceCompress bool

	// ANSI colors enabled
	AnsiColors bool

	// Built-in function registry
	Functions map[string]*Function

	// CArgs holds the current command arguments (%0-%9) from the calling
	// context, so FnNoEval handlers can propagate parent cargs when they
	// call Exec() internally.
	CArgs []string
}

// FnHandler is the signature for built-in function handlers.
type FnHandler func(ctx *EvalContext, args []string, buff *strings.Builder, caller, cause gamedb.DBRef)

// Function is a registered built-in function.
type Function struct {
	Name    string
	Handler FnHandler
	NArgs   int // Expected args (-N means join rest, 0 with VarArgs means any)
	Flags   int
}

// Function flags
const (
	FnVarArgs = 0x0001 // Variable number of args
	FnNoEval  = 0x0002 // Don't evaluate args before calling
	FnPriv    = 0x0004 // Privileged function
	FnNoregs  = 0x0008 // Don't pass registers
	FnPres    = 0x0010 // Preserve registers across call
)

// NewEvalContext creates an EvalContext with reasonable defaults and the
// core function set registered.
func NewEvalContext(db *gamedb.Database) *EvalContext {
	ctx := &EvalContext{
		DB:            db,
		Player:        gamedb.Nothing,
		Caller:        gamedb.Nothing,
		Cause:         gamedb.Nothing,
		RData:         NewRegisterData(),
		FuncNestLim:   50,
		FuncInvkLim:   2500,
		SpaceCompress: true,
		AnsiColors:    true,
		Functions:     make(map[string]*Function),
	}
	RegisterCoreFunctions(ctx)
	return ctx
}

// GetAttrValue fetches an attribute value for an object from the DB.
// Returns the raw value string including owner:flags:data prefix.
func (ctx *EvalContext) GetAttrValue(obj gamedb.DBRef, attrNum int) string {
	dbObj, ok := ctx.DB.Objects[obj]
	if !ok {
		return ""
	}
	for _, attr := range dbObj.Attrs {
		if attr.Number == attrNum {
			return attr.Value
		}
	}
	return ""
}

// GetAttrText fetches the text portion of an attribute (after owner:flags: prefix).
func (ctx *EvalContext) GetAttrText(obj gamedb.DBRef, attrNum int) string {
	raw := ctx.GetAttrValue(obj, attrNum)
	if raw == "" {
		return ""
	}
	return StripAttrPrefix(raw)
}

// StripAttrPrefix removes the "\x01owner:flags:" prefix from a raw attribute value.
// TinyMUSH stores attributes either as raw text (no prefix) or with a \x01 marker
// followed by "owner:flags:text". If no \x01 marker is present, returns the raw value.
func StripAttrPrefix(raw string) string {
	if len(raw) == 0 {
		return raw
	}
	if raw[0] != '\x01' {
		return raw
	}
	// Format is "\x01owner:flags:text" — find second colon after the marker
	colonCount := 0
	for i := 1; i < len(raw); i++ {
		if raw[i] == ':' {
			colonCount++
			if colonCount == 2 {
				return raw[i+1:]
			}
		}
	}
	// Malformed prefix — return everything after the marker
	return raw[1:]
}

// RegisterFunction adds a built-in function to the registry.
func (ctx *EvalContext) RegisterFunction(name string, handler FnHandler, nargs int, flags int) {
	ctx.Functions[name] = &Function{
		Name:    name,
		Handler: handler,
		NArgs:   nargs,
		Flags:   flags,
	}
}

// AliasFunction creates an alias for an existing function.
// Both alias and target should be uppercase.
func (ctx *EvalContext) AliasFunction(alias, target string) {
	if fn, ok := ctx.Functions[target]; ok {
		ctx.Functions[alias] = fn
	}
}
