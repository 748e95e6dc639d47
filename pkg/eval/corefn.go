package eval

import (
	"strconv"
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

func toFloat(s string) float64 {
	s = strings.TrimSpace(s)
	// Match C atof() behavior: parse leading numeric characters (including
	// decimal point), ignore trailing non-numeric text.
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	sawDot := false
	for end < len(s) {
		if s[end] == '.' && !sawDot {
			sawDot = true
			end++
		} else if s[end] >= '0' && s[end] <= '9' {
			end++
		} else {
			break
		}
	}
	f, _ := strconv.ParseFloat(s[:end], 64)
	return f
}

func toInt(s string) int {
	s = strings.TrimSpace(s)
	// Match C atoi() behavior: parse leading digits, ignore trailing non-digits.
	neg := false
	i := 0
	if len(s) > 0 && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			neg = true
		}
		s = s[1:]
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		i = i*10 + int(c-'0')
	}
	if neg {
		return -i
	}
	return i
}

func boolToStr(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func writeInt(buf *strings.Builder, i int) {
	buf.WriteString(strconv.Itoa(i))
}

// add() returns integer result (C TinyMUSH ival behavior: parse as float,
// compute, truncate).
func fnAdd(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	sum := 0.0
	for _, a := range args {
		sum += toFloat(a)
	}
	writeInt(buf, int(sum))
}

func fnSub(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	if len(args) < 2 {
		buf.WriteString("0")
		return
	}
	writeInt(buf, int(toFloat(args[0])-toFloat(args[1])))
}

func fnMul(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	if len(args) == 0 {
		buf.WriteString("0")
		return
	}
	prod := 1.0
	for _, a := range args {
		prod *= toFloat(a)
	}
	writeInt(buf, int(prod))
}

func fnDiv(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	b := toInt(args[1])
	if b == 0 {
		buf.WriteString("#-1 DIVIDE BY ZERO")
		return
	}
	writeInt(buf, toInt(args[0])/b)
}

func fnModulo(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	b := toInt(args[1])
	if b == 0 {
		buf.WriteString("#-1 DIVIDE BY ZERO")
		return
	}
	writeInt(buf, toInt(args[0])%b)
}

func fnEq(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	buf.WriteString(boolToStr(toFloat(args[0]) == toFloat(args[1])))
}

func fnGt(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	buf.WriteString(boolToStr(toFloat(args[0]) > toFloat(args[1])))
}

func fnLt(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	buf.WriteString(boolToStr(toFloat(args[0]) < toFloat(args[1])))
}

func fnAnd(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	for _, a := range args {
		if !Xlate(a) {
			buf.WriteString("0")
			return
		}
	}
	buf.WriteString("1")
}

func fnOr(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	for _, a := range args {
		if Xlate(a) {
			buf.WriteString("1")
			return
		}
	}
	buf.WriteString("0")
}

func fnNot(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	buf.WriteString(boolToStr(!Xlate(args[0])))
}

// t() exposes the boolean interpretation used by locks and conditionals.
func fnT(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	if len(args) == 0 {
		buf.WriteString("0")
		return
	}
	buf.WriteString(boolToStr(Xlate(args[0])))
}

// if()/ifelse(): the condition is evaluated, then exactly one branch is.
func fnIf(ctx *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	if len(args) < 2 {
		return
	}
	cond := ctx.Exec(args[0], EvEval|EvFCheck|EvStrip, nil)
	if Xlate(cond) {
		buf.WriteString(ctx.Exec(args[1], EvEval|EvFCheck|EvStrip, nil))
	} else if len(args) > 2 {
		buf.WriteString(ctx.Exec(args[2], EvEval|EvFCheck|EvStrip, nil))
	}
}

func fnStrlen(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	writeInt(buf, len(args[0]))
}

func fnStrcat(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	for _, a := range args {
		buf.WriteString(a)
	}
}

func fnUcstr(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	buf.WriteString(strings.ToUpper(args[0]))
}

func fnLcstr(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	buf.WriteString(strings.ToLower(args[0]))
}

func fnWords(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	writeInt(buf, len(strings.Fields(args[0])))
}

func fnFirst(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	fields := strings.Fields(args[0])
	if len(fields) > 0 {
		buf.WriteString(fields[0])
	}
}

func fnRest(_ *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	fields := strings.Fields(args[0])
	if len(fields) > 1 {
		buf.WriteString(strings.Join(fields[1:], " "))
	}
}

func fnName(ctx *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	ref := ctx.resolveDBRefSimple(args[0])
	if obj, ok := ctx.DB.Objects[ref]; ok {
		buf.WriteString(obj.Name)
	}
}

func fnLoc(ctx *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	ref := ctx.resolveDBRefSimple(args[0])
	if obj, ok := ctx.DB.Objects[ref]; ok {
		buf.WriteString("#" + strconv.Itoa(int(obj.Location)))
	} else {
		buf.WriteString("#-1")
	}
}

// get(obj/attr) reads an attribute through the parent chain, honoring
// attribute visibility.
func fnGet(ctx *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	parts := strings.SplitN(args[0], "/", 2)
	if len(parts) != 2 {
		buf.WriteString("#-1 BAD ARGUMENT FORMAT TO GET")
		return
	}
	ref := ctx.resolveDBRefSimple(strings.TrimSpace(parts[0]))
	if ref == gamedb.Nothing {
		buf.WriteString("#-1 NOT FOUND")
		return
	}
	buf.WriteString(ctx.GetAttrByNameHelper(ref, strings.ToUpper(strings.TrimSpace(parts[1]))))
}

// u(obj/attr, args...) evaluates an attribute as a user function.
func fnU(ctx *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	if len(args) == 0 {
		return
	}
	buf.WriteString(ctx.CallUFun(args[0], args[1:]))
}

func fnSetq(ctx *EvalContext, args []string, buf *strings.Builder, _, _ gamedb.DBRef) {
	if len(args) < 2 || ctx.RData == nil {
		return
	}
	reg := strings.TrimSpace(args[0])
	if len(reg) != 1 {
		buf.WriteString("#-1 INVALID GLOBAL REGISTER")
		return
	}
	idx := qidxChar(reg[0])
	if idx < 0 || idx >= MaxGlobalRegs {
		buf.WriteString("#-1 INVALID GLOBAL REGISTER")
		return
	}
	ctx.RData.QRegs[idx] = args[1]
	ctx.RData.Dirty++
}

// RegisterCoreFunctions installs the built-in function set into ctx.
func RegisterCoreFunctions(ctx *EvalContext) {
	ctx.RegisterFunction("ADD", fnAdd, 0, FnVarArgs)
	ctx.RegisterFunction("SUB", fnSub, 2, 0)
	ctx.RegisterFunction("MUL", fnMul, 0, FnVarArgs)
	ctx.RegisterFunction("DIV", fnDiv, 2, 0)
	ctx.RegisterFunction("MOD", fnModulo, 2, 0)
	ctx.RegisterFunction("EQ", fnEq, 2, 0)
	ctx.RegisterFunction("GT", fnGt, 2, 0)
	ctx.RegisterFunction("LT", fnLt, 2, 0)
	ctx.RegisterFunction("AND", fnAnd, 0, FnVarArgs)
	ctx.RegisterFunction("OR", fnOr, 0, FnVarArgs)
	ctx.RegisterFunction("NOT", fnNot, 1, 0)
	ctx.RegisterFunction("T", fnT, 0, FnVarArgs)
	ctx.RegisterFunction("IF", fnIf, 0, FnVarArgs|FnNoEval)
	ctx.AliasFunction("IFELSE", "IF")
	ctx.RegisterFunction("STRLEN", fnStrlen, 1, 0)
	ctx.RegisterFunction("STRCAT", fnStrcat, 0, FnVarArgs)
	ctx.RegisterFunction("UCSTR", fnUcstr, 1, 0)
	ctx.RegisterFunction("LCSTR", fnLcstr, 1, 0)
	ctx.RegisterFunction("WORDS", fnWords, 1, 0)
	ctx.RegisterFunction("FIRST", fnFirst, 1, 0)
	ctx.RegisterFunction("REST", fnRest, 1, 0)
	ctx.RegisterFunction("NAME", fnName, 1, 0)
	ctx.RegisterFunction("LOC", fnLoc, 1, 0)
	ctx.RegisterFunction("GET", fnGet, 1, 0)
	ctx.RegisterFunction("U", fnU, 0, FnVarArgs)
	ctx.RegisterFunction("SETQ", fnSetq, 2, 0)
}
