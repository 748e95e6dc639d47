package server

import "testing"

func TestMinMatch(t *testing.T) {
	cases := []struct {
		name, target string
		minLen       int
		want         bool
	}{
		{"noeval", "noeval", 1, true},
		{"noe", "noeval", 3, true},
		{"NOE", "noeval", 3, true},
		{"no", "noeval", 3, false},
		{"nox", "noeval", 3, false},
		{"noevalx", "noeval", 3, false},
		{"", "noeval", 1, false},
	}
	for _, tc := range cases {
		if got := minMatch(tc.name, tc.target, tc.minLen); got != tc.want {
			t.Errorf("minMatch(%q, %q, %d) = %v, want %v",
				tc.name, tc.target, tc.minLen, got, tc.want)
		}
	}
}

func TestSearchNameTab(t *testing.T) {
	g, _ := newTestGame(t)
	tab := []NameTab{
		{Name: "first", MinLen: 1, Perm: CAPublic, Flag: SwitchOne},
		{Name: "all", MinLen: 1, Perm: CAPublic, Flag: SwitchAny},
		{Name: "secret", MinLen: 3, Perm: CAWizard, Flag: 99},
	}

	if got := SearchNameTab(g, testPlayer, tab, "first"); got != SwitchOne {
		t.Errorf("exact match = %d, want %d", got, SwitchOne)
	}
	if got := SearchNameTab(g, testPlayer, tab, "f"); got != SwitchOne {
		t.Errorf("abbreviation = %d, want %d", got, SwitchOne)
	}
	if got := SearchNameTab(g, testPlayer, tab, "ALL"); got != SwitchAny {
		t.Errorf("case-folded match = %d, want %d", got, SwitchAny)
	}
	if got := SearchNameTab(g, testPlayer, tab, "bogus"); got != SwitchNotFound {
		t.Errorf("unknown switch = %d, want %d", got, SwitchNotFound)
	}
	if got := SearchNameTab(g, testPlayer, tab, "sec"); got != SwitchNoPerm {
		t.Errorf("mortal on wizard switch = %d, want %d", got, SwitchNoPerm)
	}
	if got := SearchNameTab(g, testGod, tab, "sec"); got != 99 {
		t.Errorf("God on wizard switch = %d, want 99", got)
	}
}

func TestFindNameTabEnt(t *testing.T) {
	g, _ := newTestGame(t)
	tab := []NameTab{
		{Name: "quiet", MinLen: 1, Perm: CAPublic, Flag: SetQuiet},
	}

	if ent := FindNameTabEnt(g, testPlayer, tab, "q"); ent == nil || ent.Name != "quiet" {
		t.Errorf("FindNameTabEnt(q) = %v, want quiet entry", ent)
	}
	if ent := FindNameTabEnt(g, testPlayer, tab, "loud"); ent != nil {
		t.Errorf("FindNameTabEnt(loud) = %v, want nil", ent)
	}
}
