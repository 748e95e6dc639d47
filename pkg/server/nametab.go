package server

import (
	"strings"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// NameTab is one entry in a command's switch table.
type NameTab struct {
	Name   string
	MinLen int // shortest allowed abbreviation
	Perm   int // CA_* access mask for this switch
	Flag   int // key bits OR'd into the handler key
}

// Reserved high bits inside switch flag values. They never reach a handler:
// SwMultiple marks a switch as combinable, SwGotUnique marks a command whose
// Extra field already carries a non-combinable default, and SwNoEval turns
// off argument evaluation for commands that honor it.
const (
	SwMultiple  = 0x80000000
	SwGotUnique = 0x40000000
	SwNoEval    = 0x20000000
)

// SearchNameTab results that are not key values.
const (
	SwitchNotFound = -1
	SwitchNoPerm   = -2
)

// minMatch reports whether name is an acceptable abbreviation of target:
// a case-insensitive prefix at least minLen characters long, or the whole
// word when target itself is shorter than minLen.
func minMatch(name, target string, minLen int) bool {
	if len(name) > len(target) {
		return false
	}
	if len(name) < minLen && len(name) < len(target) {
		return false
	}
	return strings.EqualFold(name, target[:len(name)])
}

// SearchNameTab resolves a switch token against a name table. It returns
// the entry's flag value, SwitchNoPerm when the player may not use the
// matched switch, or SwitchNotFound when nothing matches.
func SearchNameTab(g *Game, player gamedb.DBRef, tab []NameTab, name string) int {
	for i := range tab {
		if minMatch(name, tab[i].Name, tab[i].MinLen) {
			if CheckAccess(g, player, tab[i].Perm) {
				return tab[i].Flag
			}
			return SwitchNoPerm
		}
	}
	return SwitchNotFound
}

// FindNameTabEnt returns the table entry matching name, or nil.
func FindNameTabEnt(g *Game, player gamedb.DBRef, tab []NameTab, name string) *NameTab {
	for i := range tab {
		if minMatch(name, tab[i].Name, tab[i].MinLen) && CheckAccess(g, player, tab[i].Perm) {
			return &tab[i]
		}
	}
	return nil
}
