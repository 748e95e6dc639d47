package eval

import (
	"strconv"
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// CallUFun calls a user-defined function specified as "obj/attr" with the given arguments.
// It fetches the attribute text, sets up %0-%9 from callArgs, evaluates it, and returns the result.
func (ctx *EvalContext) CallUFun(objAttr string, callArgs []string) string {
	parts := strings.SplitN(objAttr, "/", 2)

	var ref gamedb.DBRef
	var attrName string

	if len(parts) == 2 {
		// obj/attr format
		objStr := strings.TrimSpace(parts[0])
		attrName = strings.ToUpper(strings.TrimSpace(parts[1]))
		ref = ctx.resolveDBRefSimple(objStr)
		if ref == gamedb.Nothing {
			return "#-1 NOT FOUND"
		}
	} else {
		// Just an attr name — use the executor (%!) as the object
		attrName = strings.ToUpper(strings.TrimSpace(objAttr))
		ref = ctx.Player
	}

	if attrName == "" {
		return "#-1 NO SUCH ATTRIBUTE"
	}

	text := ctx.GetAttrByNameHelper(ref, attrName)
	if text == "" {
		return ""
	}

	// Evaluate the attribute text with the target object as executor (%!).
	// In TinyMUSH, u(obj/attr) runs the code "as" obj, so unqualified
	// attribute references resolve on obj.
	oldPlayer := ctx.Player
	ctx.Player = ref
	result := ctx.Exec(text, EvFCheck|EvEval, callArgs)
	ctx.Player = oldPlayer
	return result
}

// resolveDBRefSimple converts a string to a DBRef (handles #N and *player).
func (ctx *EvalContext) resolveDBRefSimple(s string) gamedb.DBRef {
	s = strings.TrimSpace(s)
	if s == "" {
		return gamedb.Nothing
	}

	if strings.EqualFold(s, "me") {
		return ctx.Player
	}

	if strings.EqualFold(s, "here") {
		if obj, ok := ctx.DB.Objects[ctx.Player]; ok {
			return obj.Location
		}
		return gamedb.Nothing
	}

	// Handle #N
	if s[0] == '#' {
		n := 0
		neg := false
		i := 1
		if i < len(s) && s[i] == '-' {
			neg = true
			i++
		}
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			n = n*10 + int(s[i]-'0')
			i++
		}
		if neg {
			n = -n
		}
		return gamedb.DBRef(n)
	}

	// Handle *player
	if s[0] == '*' {
		s = s[1:]
	}

	// Search by name - players first
	for _, obj := range ctx.DB.Objects {
		if obj.ObjType() == gamedb.TypePlayer && strings.EqualFold(obj.Name, s) {
			return obj.DBRef
		}
	}

	return gamedb.Nothing
}

// GetAttrByNameHelper fetches an attribute's text value by name from an object.
// Walks the parent chain like TinyMUSH's atr_pget.
func (ctx *EvalContext) GetAttrByNameHelper(ref gamedb.DBRef, attrName string) string {
	attrNum := -1
	if def, ok := ctx.DB.AttrByName[attrName]; ok {
		attrNum = def.Number
	} else {
		for num, name := range gamedb.WellKnownAttrs {
			if strings.EqualFold(name, attrName) {
				attrNum = num
				break
			}
		}
	}
	if attrNum < 0 {
		return ""
	}

	// Walk the parent chain (up to 10 levels, like TinyMUSH's ITER_PARENTS)
	current := ref
	for depth := 0; depth <= 10; depth++ {
		obj, ok := ctx.DB.Objects[current]
		if !ok {
			return ""
		}
		for _, attr := range obj.Attrs {
			if attr.Number == attrNum {
				if ctx.GameState != nil {
					if !ctx.GameState.CanReadAttrGS(ctx.Player, ref, attrNum, attr.Value) {
						return ""
					}
				}
				return StripAttrPrefix(attr.Value)
			}
		}
		if obj.Parent == gamedb.Nothing || obj.Parent == current {
			return ""
		}
		current = obj.Parent
	}
	return ""
}

// Xlate interprets an evaluation result as a boolean, the way lock and
// conditional checks do. "#n" is true for n >= 0 and for "#-1 <string>"
// style error text it is false; bare integers are true when nonzero; any
// other nonempty string is true.
func Xlate(arg string) bool {
	if len(arg) > 0 && arg[0] == '#' {
		rest := arg[1:]
		if n, err := strconv.Atoi(rest); err == nil {
			return n >= 0
		}
		return !strings.HasPrefix(rest, "-1 ")
	}
	trimmed := strings.TrimSpace(arg)
	if trimmed == "" {
		return false
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return n != 0
	}
	return true
}
