package server

import (
	"log"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// NumEnvVars is the number of %0-%9 environment registers a matched
// command pattern can capture into.
const NumEnvVars = 10

// AmatchCmd is the leadin character for $-command attributes.
const AmatchCmd = '$'

// AmatchListen is the leadin character for ^-listen attributes.
const AmatchListen = '^'

// findUnescapedColon returns the index of the first ':' in s that is not
// preceded by a backslash, or -1.
func findUnescapedColon(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == ':' {
			return i
		}
	}
	return -1
}

// matchWild performs wildcard matching. '*' matches any run of characters
// and '?' matches exactly one. Matching is case-insensitive; captures keep
// the original case. When args is non-nil each '*' and '?' appends its
// matched text, up to NumEnvVars entries.
func matchWild(pattern, str string, args *[]string) bool {
	var caps []string
	matched := matchWildHelper(strings.ToLower(pattern), strings.ToLower(str), str, 0, &caps)
	if matched && args != nil {
		if len(caps) > NumEnvVars {
			caps = caps[:NumEnvVars]
		}
		*args = caps
	}
	return matched
}

// matchWildHelper matches lowered pattern against lowered str, capturing
// from origStr at the corresponding offset to preserve original case.
func matchWildHelper(pattern, str, origStr string, origOff int, args *[]string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			pattern = pattern[1:]
			if len(pattern) == 0 {
				*args = append(*args, origStr[origOff:origOff+len(str)])
				return true
			}
			for i := len(str); i >= 0; i-- {
				testArgs := make([]string, len(*args))
				copy(testArgs, *args)
				testArgs = append(testArgs, origStr[origOff:origOff+i])
				if matchWildHelper(pattern, str[i:], origStr, origOff+i, &testArgs) {
					*args = testArgs
					return true
				}
			}
			return false
		case '?':
			if len(str) == 0 {
				return false
			}
			*args = append(*args, string(origStr[origOff]))
			pattern = pattern[1:]
			str = str[1:]
			origOff++
		default:
			if len(str) == 0 || pattern[0] != str[0] {
				return false
			}
			pattern = pattern[1:]
			str = str[1:]
			origOff++
		}
	}
	return len(str) == 0
}

// regexpMatch matches str against a regular expression pattern. Capture
// group i lands in args[i], with group 0 the whole match. A bad pattern
// is logged and fails the match.
func regexpMatch(pattern, str string, caseless bool, args *[]string) bool {
	opts := regexp2.None
	if caseless {
		opts |= regexp2.IgnoreCase
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		log.Printf("REGEXP: bad pattern %q: %v", pattern, err)
		return false
	}
	m, err := re.FindStringMatch(str)
	if err != nil || m == nil {
		return false
	}
	if args != nil {
		var caps []string
		for i, grp := range m.Groups() {
			if i >= NumEnvVars {
				break
			}
			caps = append(caps, grp.String())
		}
		*args = caps
	}
	return true
}

// atrMatch1 scans the attributes of parent looking for leadin-char command
// patterns and runs each match as thing. Returns the number of matches, or
// -1 if the use lock failed.
func atrMatch1(g *Game, thing, parent, player gamedb.DBRef, leadin byte, str, rawStr string, checkExclude bool, seen map[int]bool) int {
	// Silently fail if the use lock blocks us.
	if !CouldDoIt(g, player, parent, gamedb.A_Luse) {
		return -1
	}

	pObj := g.DB.Get(parent)
	if pObj == nil {
		return 0
	}

	match := 0
	for _, attr := range pObj.Attrs {
		defFlags := g.DB.AttrFlags(attr.Number)
		if defFlags&gamedb.AFNoProg != 0 {
			continue
		}
		if checkExclude && (defFlags&gamedb.AFPrivate != 0 || seen[attr.Number]) {
			continue
		}

		info, text := parseAttrInfo(attr.Value)
		aflags := defFlags | info.Flags

		if checkExclude && aflags&gamedb.AFPrivate != 0 {
			continue
		}
		if seen != nil && !checkExclude {
			// Remember top-level attrs so a child's non-command text
			// blocks the same attr on a parent.
			seen[attr.Number] = true
		}

		if len(text) == 0 || text[0] != leadin || aflags&gamedb.AFNoProg != 0 {
			continue
		}

		sep := findUnescapedColon(text[1:])
		if sep < 0 {
			continue
		}
		pat := text[1 : 1+sep]
		action := text[1+sep+1:]

		subject := str
		if aflags&gamedb.AFNoParse != 0 {
			subject = rawStr
		}

		var args []string
		ok := false
		if aflags&gamedb.AFRegexp != 0 {
			ok = regexpMatch(pat, subject, aflags&gamedb.AFCase == 0, &args)
		} else {
			ok = matchWild(pat, subject, &args)
		}
		if !ok {
			continue
		}

		match++
		if aflags&gamedb.AFNow != 0 {
			g.ProcessCmdline(thing, player, action, args, nil)
		} else {
			g.Queue.QueueCommand(g, thing, player, action, args, g.State.SaveRegs())
		}
	}
	return match
}

// atrMatch checks thing (and optionally its parent chain) for leadin-char
// command patterns matching str, running each hit. Returns nonzero when
// anything matched.
func atrMatch(g *Game, thing, player gamedb.DBRef, leadin byte, str, rawStr string, checkParents bool) int {
	// Halted objects, and things without the COMMANDS flag when it is
	// required, never match.
	if leadin == AmatchCmd && !HasCommands(g, thing) {
		return 0
	}
	if Halted(g, thing) {
		return 0
	}

	tObj := g.DB.Get(thing)
	if tObj == nil {
		return 0
	}

	if !checkParents || tObj.Parent == gamedb.Nothing {
		return maxInt(atrMatch1(g, thing, thing, player, leadin, str, rawStr, false, nil), 0)
	}

	match := 0
	seen := make(map[int]bool)
	exclude := false
	parent := thing
	for lev := 0; lev <= g.Conf.ParentNestLim && parent != gamedb.Nothing; lev++ {
		result := atrMatch1(g, thing, parent, player, leadin, str, rawStr, exclude, seen)
		if result > 0 {
			match = 1
		} else if result < 0 {
			return match
		}
		exclude = true
		pObj := g.DB.Get(parent)
		if pObj == nil {
			break
		}
		parent = pObj.Parent
	}
	return match
}

// listCheck runs atrMatch over a Next-linked contents chain, skipping
// player itself. Sets *stopStatus and stops early when a matched object
// carries STOP_MATCH.
func listCheck(g *Game, thing, player gamedb.DBRef, leadin byte, str, rawStr string, checkParent bool, stopStatus *bool) int {
	match := 0
	for count := 0; thing != gamedb.Nothing && count <= g.DB.Size+1; count++ {
		if thing != player && atrMatch(g, thing, player, leadin, str, rawStr, checkParent) > 0 {
			match = 1
			if StopMatch(g, thing) {
				*stopStatus = true
				return match
			}
		}
		tObj := g.DB.Get(thing)
		if tObj == nil || tObj.Next == thing {
			break
		}
		thing = tObj.Next
	}
	return match
}

// matchMine reports whether player should $-match its own attributes.
func matchMine(g *Game, player gamedb.DBRef) bool {
	o := g.DB.Get(player)
	if o == nil {
		return false
	}
	if o.ObjType() == gamedb.TypePlayer {
		return g.Conf.MatchOwnCommands && g.Conf.PlayerMatchOwnCommands
	}
	return g.Conf.MatchOwnCommands
}

// matchesExitFromList checks a ';'-separated alias list against str with
// prefix matching per alias, the way exit names match.
func matchesExitFromList(str, list string) bool {
	str = strings.TrimSpace(strings.ToLower(str))
	if str == "" {
		return false
	}
	for _, alias := range strings.Split(list, ";") {
		alias = strings.TrimSpace(strings.ToLower(alias))
		if alias == "" {
			continue
		}
		if alias == str {
			return true
		}
	}
	return false
}

// matchExitName checks a command word against an exit's ';'-separated
// aliases, requiring an exact case-insensitive match on one alias.
func matchExitName(g *Game, exit gamedb.DBRef, word string) bool {
	eObj := g.DB.Get(exit)
	if eObj == nil {
		return false
	}
	return matchesExitFromList(word, eObj.Name)
}

// matchExitInRoom finds an exit of loc whose alias matches command,
// checking the room's parent chain for inherited exits.
func matchExitInRoom(g *Game, player, loc gamedb.DBRef, command string) gamedb.DBRef {
	room := loc
	for lev := 0; lev <= g.Conf.ParentNestLim && room != gamedb.Nothing; lev++ {
		for _, ex := range g.DB.SafeExits(room) {
			if matchExitName(g, ex, command) {
				return ex
			}
		}
		rObj := g.DB.Get(room)
		if rObj == nil {
			break
		}
		room = rObj.Parent
	}
	return gamedb.Nothing
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
