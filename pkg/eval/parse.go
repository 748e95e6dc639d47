package eval

import "strings"

// ParseTo splits input at the first top-level occurrence of delim, honoring
// {} grouping, [] and () nesting, and %-escapes. It returns the segment
// before the delimiter, the remainder after it, and whether the delimiter
// was found. EvStripLS/EvStripTS trim surrounding spaces from the segment
// and EvStrip removes one level of enclosing braces.
func ParseTo(input string, delim byte, evalFlags int) (string, string, bool) {
	seg, pos, found := parseTo(input, 0, delim)
	rest := ""
	if found && pos+1 <= len(input) {
		rest = input[pos+1:]
	}
	if evalFlags&EvStripLS != 0 {
		seg = strings.TrimLeft(seg, " ")
	}
	if evalFlags&EvStripTS != 0 {
		seg = strings.TrimRight(seg, " ")
	}
	if evalFlags&EvStrip != 0 {
		seg = StripEnclosingBraces(seg)
	}
	return seg, rest, found
}

// StripEnclosingBraces removes one level of braces when they wrap the whole
// string.
func StripEnclosingBraces(s string) string {
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return s
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 && i != len(s)-1 {
				return s
			}
		}
	}
	if depth != 0 {
		return s
	}
	return s[1 : len(s)-1]
}

// SplitTopLevel splits input on every top-level occurrence of delim,
// honoring the same nesting rules as ParseTo. The delimiters themselves
// are consumed.
func SplitTopLevel(input string, delim byte) []string {
	var out []string
	rest := input
	for {
		seg, next, found := ParseTo(rest, delim, 0)
		out = append(out, seg)
		if !found {
			return out
		}
		rest = next
	}
}

// ParseArgList splits a comma-separated argument list at the top level and
// evaluates each piece. Used for commands that take a vector of arguments
// after the '='.
func (ctx *EvalContext) ParseArgList(input string, cargs []string) []string {
	if strings.TrimSpace(input) == "" {
		return nil
	}
	pieces := SplitTopLevel(input, ',')
	args := make([]string, 0, len(pieces))
	for _, p := range pieces {
		args = append(args, ctx.Exec(p, EvEval|EvStrip|EvFCheck, cargs))
	}
	return args
}
