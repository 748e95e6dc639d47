package server

import (
	"log"
	"strconv"
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/eval"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// Maximum indirection depth for @-locks to prevent infinite loops.
const maxIndirDepth = 20

// ---------- Parser ----------

// boolParser holds the state for parsing a lock string.
type boolParser struct {
	g      *Game
	player gamedb.DBRef
	src    string
	pos    int
}

func (p *boolParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *boolParser) advance() byte {
	ch := p.peek()
	if ch != 0 {
		p.pos++
	}
	return ch
}

func (p *boolParser) skipSpaces() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}

// ParseBoolExp parses a lock string into a BoolExp tree.
// Grammar:
//
//	E → T ('|' E)?
//	T → F ('&' T)?
//	F → '!' F | '@' L | '+' L | '=' L | '$' L | L
//	L → '(' E ')' | '#' number | name ':' pattern | name '/' pattern | name
func ParseBoolExp(g *Game, player gamedb.DBRef, lockStr string) *gamedb.BoolExp {
	lockStr = strings.TrimSpace(lockStr)
	if lockStr == "" {
		return nil
	}
	p := &boolParser{g: g, player: player, src: lockStr}
	return p.parseE()
}

func (p *boolParser) parseE() *gamedb.BoolExp {
	left := p.parseT()
	p.skipSpaces()
	if p.peek() == '|' {
		p.advance()
		right := p.parseE()
		return &gamedb.BoolExp{Type: gamedb.BoolOr, Sub1: left, Sub2: right}
	}
	return left
}

func (p *boolParser) parseT() *gamedb.BoolExp {
	left := p.parseF()
	p.skipSpaces()
	if p.peek() == '&' {
		p.advance()
		right := p.parseT()
		return &gamedb.BoolExp{Type: gamedb.BoolAnd, Sub1: left, Sub2: right}
	}
	return left
}

func (p *boolParser) parseF() *gamedb.BoolExp {
	p.skipSpaces()
	switch p.peek() {
	case '!':
		p.advance()
		sub := p.parseF()
		return &gamedb.BoolExp{Type: gamedb.BoolNot, Sub1: sub}
	case '@':
		p.advance()
		sub := p.parseLiteral()
		if sub == nil || sub.Type != gamedb.BoolConst {
			return nil
		}
		return &gamedb.BoolExp{Type: gamedb.BoolIndir, Sub1: sub}
	case '+':
		p.advance()
		sub := p.parseLiteral()
		if sub == nil || (sub.Type != gamedb.BoolConst && sub.Type != gamedb.BoolAttr) {
			return nil
		}
		return &gamedb.BoolExp{Type: gamedb.BoolCarry, Sub1: sub}
	case '=':
		p.advance()
		sub := p.parseLiteral()
		if sub == nil || (sub.Type != gamedb.BoolConst && sub.Type != gamedb.BoolAttr) {
			return nil
		}
		return &gamedb.BoolExp{Type: gamedb.BoolIs, Sub1: sub}
	case '$':
		p.advance()
		sub := p.parseLiteral()
		if sub == nil || sub.Type != gamedb.BoolConst {
			return nil
		}
		return &gamedb.BoolExp{Type: gamedb.BoolOwner, Sub1: sub}
	default:
		return p.parseLiteral()
	}
}

func (p *boolParser) parseLiteral() *gamedb.BoolExp {
	p.skipSpaces()
	if p.peek() == '(' {
		p.advance()
		sub := p.parseE()
		p.skipSpaces()
		if p.peek() == ')' {
			p.advance()
		}
		return sub
	}

	// Collect a name token, stopping at operator chars
	start := p.pos
	for p.pos < len(p.src) {
		ch := p.src[p.pos]
		if ch == '&' || ch == '|' || ch == '!' || ch == '(' || ch == ')' {
			break
		}
		// : and / separate an attribute name from its pattern
		if ch == ':' || ch == '/' {
			name := strings.TrimSpace(p.src[start:p.pos])
			sep := ch
			p.pos++
			patStart := p.pos
			for p.pos < len(p.src) {
				pc := p.src[p.pos]
				if pc == '&' || pc == '|' || pc == ')' {
					break
				}
				p.pos++
			}
			pattern := strings.TrimSpace(p.src[patStart:p.pos])
			if sep == ':' {
				return &gamedb.BoolExp{Type: gamedb.BoolAttr, Thing: p.resolveAttrNum(name), StrVal: pattern}
			}
			return &gamedb.BoolExp{Type: gamedb.BoolEval, Thing: p.resolveAttrNum(name), StrVal: pattern}
		}
		p.pos++
	}

	token := strings.TrimSpace(p.src[start:p.pos])
	if token == "" {
		return nil
	}

	// #dbref
	if token[0] == '#' {
		if n, err := strconv.Atoi(token[1:]); err == nil {
			return &gamedb.BoolExp{Type: gamedb.BoolConst, Thing: n}
		}
	}

	// Resolve as object name
	ref := p.g.MatchObject(p.player, token)
	if ref == gamedb.Nothing {
		ref = p.g.LookupPlayer(token)
	}
	if ref != gamedb.Nothing {
		return &gamedb.BoolExp{Type: gamedb.BoolConst, Thing: int(ref)}
	}

	// Unresolved names become an impossible lock
	log.Printf("BOOLEXP: unresolved name %q in lock", token)
	return &gamedb.BoolExp{Type: gamedb.BoolConst, Thing: int(gamedb.Nothing)}
}

// resolveAttrNum looks up an attribute name and returns its number.
func (p *boolParser) resolveAttrNum(name string) int {
	// Serialized locks store bare attr numbers like "547:pattern"
	if n, err := strconv.Atoi(name); err == nil && n >= 0 {
		return n
	}
	upper := strings.ToUpper(name)
	for num, n := range gamedb.WellKnownAttrs {
		if n == upper {
			return num
		}
	}
	if def, ok := p.g.DB.AttrByName[upper]; ok {
		return def.Number
	}
	return -1
}

// ---------- Evaluator ----------

// EvalBoolExp evaluates a boolean lock expression tree.
// player = the object being tested against the lock
// thing  = the object that owns the lock
// from   = the object that triggered the lock check (for eval locks)
// depth  = current indirection depth
func EvalBoolExp(g *Game, player, thing, from gamedb.DBRef, b *gamedb.BoolExp, depth int) bool {
	if b == nil {
		return true // nil lock = unlocked
	}
	if depth > maxIndirDepth {
		return false
	}

	switch b.Type {
	case gamedb.BoolAnd:
		return EvalBoolExp(g, player, thing, from, b.Sub1, depth) &&
			EvalBoolExp(g, player, thing, from, b.Sub2, depth)

	case gamedb.BoolOr:
		return EvalBoolExp(g, player, thing, from, b.Sub1, depth) ||
			EvalBoolExp(g, player, thing, from, b.Sub2, depth)

	case gamedb.BoolNot:
		return !EvalBoolExp(g, player, thing, from, b.Sub1, depth)

	case gamedb.BoolConst:
		target := gamedb.DBRef(b.Thing)
		if target == gamedb.Nothing {
			return false
		}
		if player == target {
			return true
		}
		return playerCarries(g, player, target)

	case gamedb.BoolAttr:
		if b.Thing < 0 {
			return false
		}
		pattern := b.StrVal
		if wildMatchCI(pattern, g.atrPGet(player, b.Thing)) {
			return true
		}
		for _, next := range g.DB.SafeContents(player) {
			if wildMatchCI(pattern, g.atrPGet(next, b.Thing)) {
				return true
			}
		}
		return false

	case gamedb.BoolEval:
		// Evaluate the attribute on the triggering object as softcode,
		// then compare the result to the pattern.
		if b.Thing < 0 {
			return false
		}
		attrText := g.atrPGet(from, b.Thing)
		if attrText == "" {
			return false
		}
		result := g.exec(from, from, player, attrText, eval.EvFCheck|eval.EvEval, nil)
		return wildMatchCI(b.StrVal, result)

	case gamedb.BoolIndir:
		// Indirect lock: fetch the LOCK attr from the referenced object
		// and evaluate it in place.
		if b.Sub1 == nil || b.Sub1.Type != gamedb.BoolConst || b.Sub1.Thing < 0 {
			return false
		}
		target := gamedb.DBRef(b.Sub1.Thing)
		lockText := g.atrGet(target, gamedb.A_Lock)
		if lockText == "" {
			if tObj := g.DB.Get(target); tObj != nil && tObj.Lock != nil {
				return EvalBoolExp(g, player, target, from, tObj.Lock, depth+1)
			}
			return true // no lock = pass
		}
		parsed := ParseBoolExp(g, player, lockText)
		return EvalBoolExp(g, player, target, from, parsed, depth+1)

	case gamedb.BoolCarry:
		if b.Sub1 == nil {
			return false
		}
		if b.Sub1.Type == gamedb.BoolConst {
			return playerCarries(g, player, gamedb.DBRef(b.Sub1.Thing))
		}
		if b.Sub1.Type == gamedb.BoolAttr {
			if b.Sub1.Thing < 0 {
				return false
			}
			// Contents only, never the player itself
			for _, next := range g.DB.SafeContents(player) {
				if wildMatchCI(b.Sub1.StrVal, g.atrPGet(next, b.Sub1.Thing)) {
					return true
				}
			}
			return false
		}
		return false

	case gamedb.BoolIs:
		if b.Sub1 == nil {
			return false
		}
		if b.Sub1.Type == gamedb.BoolConst {
			return player == gamedb.DBRef(b.Sub1.Thing)
		}
		if b.Sub1.Type == gamedb.BoolAttr {
			if b.Sub1.Thing < 0 {
				return false
			}
			return wildMatchCI(b.Sub1.StrVal, g.atrPGet(player, b.Sub1.Thing))
		}
		return false

	case gamedb.BoolOwner:
		if b.Sub1 == nil || b.Sub1.Type != gamedb.BoolConst {
			return false
		}
		pObj := g.DB.Get(player)
		tObj := g.DB.Get(gamedb.DBRef(b.Sub1.Thing))
		if pObj == nil || tObj == nil {
			return false
		}
		return pObj.Owner == tObj.Owner
	}

	return false
}

// playerCarries returns true if player has target in their contents chain.
func playerCarries(g *Game, player, target gamedb.DBRef) bool {
	for _, next := range g.DB.SafeContents(player) {
		if next == target {
			return true
		}
	}
	return false
}

// UnparseBoolExp converts a BoolExp tree back to a readable lock string.
func UnparseBoolExp(g *Game, b *gamedb.BoolExp) string {
	if b == nil {
		return ""
	}
	switch b.Type {
	case gamedb.BoolAnd:
		// Parenthesize an OR child, which binds looser
		left := UnparseBoolExp(g, b.Sub1)
		if b.Sub1 != nil && b.Sub1.Type == gamedb.BoolOr {
			left = "(" + left + ")"
		}
		return left + "&" + UnparseBoolExp(g, b.Sub2)
	case gamedb.BoolOr:
		return UnparseBoolExp(g, b.Sub1) + "|" + UnparseBoolExp(g, b.Sub2)
	case gamedb.BoolNot:
		return "!" + UnparseBoolExp(g, b.Sub1)
	case gamedb.BoolConst:
		ref := gamedb.DBRef(b.Thing)
		if ref == gamedb.Nothing {
			return "#-1"
		}
		name := g.Name(ref)
		if name != "" {
			return name + "(#" + strconv.Itoa(b.Thing) + ")"
		}
		return "#" + strconv.Itoa(b.Thing)
	case gamedb.BoolAttr:
		name := g.DB.GetAttrName(b.Thing)
		if name == "" {
			name = strconv.Itoa(b.Thing)
		}
		return name + ":" + b.StrVal
	case gamedb.BoolEval:
		name := g.DB.GetAttrName(b.Thing)
		if name == "" {
			name = strconv.Itoa(b.Thing)
		}
		return name + "/" + b.StrVal
	case gamedb.BoolIndir:
		return "@" + UnparseBoolExp(g, b.Sub1)
	case gamedb.BoolCarry:
		return "+" + UnparseBoolExp(g, b.Sub1)
	case gamedb.BoolIs:
		return "=" + UnparseBoolExp(g, b.Sub1)
	case gamedb.BoolOwner:
		return "$" + UnparseBoolExp(g, b.Sub1)
	}
	return "?"
}

// wildMatchCI performs a case-insensitive wildcard match with no capture.
func wildMatchCI(pattern, str string) bool {
	return matchWild(pattern, str, nil)
}

// ---------- High-level lock checks ----------

// CouldDoItStrict checks if player passes the lock without any wizard or
// power bypass. Empty lock = unlocked.
func CouldDoItStrict(g *Game, player, thing gamedb.DBRef, lockAttr int) bool {
	lockText := g.atrGet(thing, lockAttr)
	if lockText != "" {
		parsed := ParseBoolExp(g, player, lockText)
		return EvalBoolExp(g, player, thing, thing, parsed, 0)
	}
	return true
}

// CouldDoIt checks if player passes the lock on thing for the given lock
// attribute. PASS_LOCKS bypasses everything; wizards pass unless the thing
// is God. Empty lock = unlocked.
func CouldDoIt(g *Game, player, thing gamedb.DBRef, lockAttr int) bool {
	if PassLocks(g, player) {
		return true
	}
	if Wizard(g, player) {
		if !IsGod(g, thing) || IsGod(g, player) {
			return true
		}
	}

	lockText := g.atrGet(thing, lockAttr)
	if lockText != "" {
		parsed := ParseBoolExp(g, player, lockText)
		return EvalBoolExp(g, player, thing, thing, parsed, 0)
	}

	// The default lock may also live in the object header
	if lockAttr == gamedb.A_Lock {
		if tObj := g.DB.Get(thing); tObj != nil && tObj.Lock != nil {
			return EvalBoolExp(g, player, thing, thing, tObj.Lock, 0)
		}
	}
	return true
}

// DidIt shows the succ/fail message pair for an action and queues the
// action attribute: the private message goes to player, the third-person
// message to the rest of the room, and the action attr is queued on thing
// with player as the enactor.
func DidIt(g *Game, player, thing gamedb.DBRef, what int, defMsg string, owhat int, defOMsg string, awhat int) {
	if msg := g.atrPGet(thing, what); msg != "" {
		g.Notify(player, g.exec(thing, thing, player, msg, eval.EvEval|eval.EvFCheck, nil))
	} else if defMsg != "" {
		g.Notify(player, defMsg)
	}

	if owhat > 0 {
		var omsg string
		if raw := g.atrPGet(thing, owhat); raw != "" {
			omsg = g.exec(thing, thing, player, raw, eval.EvEval|eval.EvFCheck, nil)
		} else {
			omsg = defOMsg
		}
		if omsg != "" {
			g.NotifyExcept(g.Location(player), player, g.Name(player)+" "+omsg)
		}
	}

	if awhat > 0 {
		if act := g.atrPGet(thing, awhat); act != "" {
			g.Queue.QueueAttrAction(g, thing, player, act, nil)
		}
	}
}
