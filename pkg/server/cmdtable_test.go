package server

import "testing"

func TestCmdTableRegisterAndLookup(t *testing.T) {
	tab := NewCmdTable()
	cmd := &Command{Name: "@trigger", Perms: CAPublic, CallSeq: CSTwoArg}
	tab.Register(cmd, "@tr")

	if tab.Lookup("@trigger") != cmd {
		t.Error("lookup by name failed")
	}
	if tab.Lookup("@TR") != cmd {
		t.Error("alias lookup should be case-insensitive")
	}
	if tab.Lookup("@trig") != nil {
		t.Error("lookup must be exact, not a prefix match")
	}
}

func TestCmdTablePrefix(t *testing.T) {
	tab := NewCmdTable()
	say := &Command{Name: "\"", Perms: CAPublic, CallSeq: CSOneArg | CSLeadin}
	tab.Register(say)

	if tab.Prefix('"') != say {
		t.Error("lead-in registration did not claim its prefix slot")
	}
	if tab.Prefix(':') != nil {
		t.Error("unclaimed prefix slot should be nil")
	}

	tab.Remove("\"")
	if tab.Prefix('"') != nil {
		t.Error("prefix slot should clear on removal")
	}
}

func TestCmdTableReplaceAll(t *testing.T) {
	tab := NewCmdTable()
	old := &Command{Name: "goto", Perms: CAPublic, CallSeq: CSOneArg}
	tab.Register(old, "go")

	repl := &Command{Name: "goto", Perms: CAPublic, CallSeq: CSOneArg | CSAdded}
	tab.ReplaceAll(old, repl)

	if tab.Lookup("goto") != repl || tab.Lookup("go") != repl {
		t.Error("ReplaceAll should repoint every binding")
	}

	tab.ReplaceAll(repl, nil)
	if tab.Lookup("goto") != nil || tab.Lookup("go") != nil {
		t.Error("ReplaceAll with nil should delete every binding")
	}
}

func TestCmdTableBindKeepsAliases(t *testing.T) {
	tab := NewCmdTable()
	orig := &Command{Name: "say", Perms: CAPublic, CallSeq: CSOneArg}
	tab.Register(orig)

	added := &Command{Name: "say", Perms: CAPublic, CallSeq: CSOneArg | CSAdded}
	tab.Bind("__say", orig)
	tab.Bind("say", added)

	if tab.Lookup("say") != added {
		t.Error("bind did not install the shadowing command")
	}
	if tab.Lookup("__say") != orig {
		t.Error("shadowed builtin lost under its parked name")
	}
}
