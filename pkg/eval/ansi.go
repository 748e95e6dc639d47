package eval

import (
	"fmt"
	"strconv"
)

// ParseColorSpec converts an extended color spec from %x<...> into an ANSI
// escape sequence. Accepts xterm-256 palette indexes ("0".."255") and
// 24-bit hex colors ("#RRGGBB"). bg selects a background color code.
// Returns "" for an unrecognized spec.
func ParseColorSpec(spec string, bg bool) string {
	base := 38
	if bg {
		base = 48
	}

	if len(spec) == 7 && spec[0] == '#' {
		r, err1 := strconv.ParseUint(spec[1:3], 16, 8)
		g, err2 := strconv.ParseUint(spec[3:5], 16, 8)
		b, err3 := strconv.ParseUint(spec[5:7], 16, 8)
		if err1 != nil || err2 != nil || err3 != nil {
			return ""
		}
		return fmt.Sprintf("\033[%d;2;%d;%d;%dm", base, r, g, b)
	}

	if n, err := strconv.Atoi(spec); err == nil && n >= 0 && n <= 255 {
		return fmt.Sprintf("\033[%d;5;%dm", base, n)
	}

	return ""
}
