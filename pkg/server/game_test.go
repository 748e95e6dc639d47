package server

import (
	"strings"
	"sync"
	"testing"

	"github.com/crystal-mush/gomushcore/pkg/events"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// Fixture refs shared by the server package tests.
const (
	testRoomZero   gamedb.DBRef = 0
	testGod        gamedb.DBRef = 1
	testMasterRoom gamedb.DBRef = 2
	testPlayer     gamedb.DBRef = 3
)

// capture is a global bus subscriber that records event text per player.
type capture struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *capture) Receive(ev events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *capture) Closed() bool { return false }

// Lines returns every text line delivered to player, in order.
func (c *capture) Lines(player gamedb.DBRef) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, ev := range c.events {
		if ev.Player == player {
			out = append(out, ev.Text)
		}
	}
	return out
}

// Last returns the most recent line delivered to player, or "".
func (c *capture) Last(player gamedb.DBRef) string {
	lines := c.Lines(player)
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

// Contains reports whether any line delivered to player contains substr.
func (c *capture) Contains(player gamedb.DBRef, substr string) bool {
	for _, line := range c.Lines(player) {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// Reset discards recorded events.
func (c *capture) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = nil
}

// addTestObject creates a minimal object with all refs cleared out.
func addTestObject(db *gamedb.Database, ref gamedb.DBRef, name string, typ gamedb.ObjectType, owner gamedb.DBRef) *gamedb.Object {
	obj := &gamedb.Object{
		DBRef:    ref,
		Name:     name,
		Location: gamedb.Nothing,
		Zone:     gamedb.Nothing,
		Contents: gamedb.Nothing,
		Exits:    gamedb.Nothing,
		Link:     gamedb.Nothing,
		Next:     gamedb.Nothing,
		Parent:   gamedb.Nothing,
		Owner:    owner,
	}
	obj.Flags[0] = int(typ)
	db.Objects[ref] = obj
	if int(ref) >= db.Size {
		db.Size = int(ref) + 1
	}
	return obj
}

// newTestGame builds a small world: Room Zero holding God and a mortal
// player, plus an empty master room, with a global subscriber capturing
// all bus traffic.
func newTestGame(t *testing.T) (*Game, *capture) {
	t.Helper()

	db := gamedb.NewDatabase()
	room := addTestObject(db, testRoomZero, "Room Zero", gamedb.TypeRoom, testGod)
	god := addTestObject(db, testGod, "God", gamedb.TypePlayer, testGod)
	addTestObject(db, testMasterRoom, "Master Room", gamedb.TypeRoom, testGod)
	player := addTestObject(db, testPlayer, "Rhea", gamedb.TypePlayer, testPlayer)

	god.Flags[0] |= gamedb.FlagWizard
	god.Location = testRoomZero
	god.Link = testRoomZero
	player.Location = testRoomZero
	player.Link = testRoomZero

	room.Contents = testGod
	god.Next = testPlayer

	g := NewGame(db, DefaultGameConf())
	cap := &capture{}
	g.Bus.SubscribeGlobal(cap)
	return g, cap
}

// addToRoom links an object into a room's contents chain and sets its
// location.
func addToRoom(db *gamedb.Database, room, thing gamedb.DBRef) {
	rObj := db.Objects[room]
	tObj := db.Objects[thing]
	tObj.Location = room
	tObj.Next = rObj.Contents
	rObj.Contents = thing
}

func TestNotifyReachesBus(t *testing.T) {
	g, cap := newTestGame(t)

	g.Notify(testPlayer, "hello there")
	if got := cap.Last(testPlayer); got != "hello there" {
		t.Errorf("Last(player) = %q, want %q", got, "hello there")
	}
	if lines := cap.Lines(testGod); len(lines) != 0 {
		t.Errorf("god received %v, want nothing", lines)
	}
}

func TestNotifyPipeSinkDiverts(t *testing.T) {
	g, cap := newTestGame(t)

	g.State.PushSink(testPlayer)
	g.Notify(testPlayer, "captured")
	got := g.State.PopSink()
	if got != "captured" {
		t.Errorf("PopSink() = %q, want %q", got, "captured")
	}
	if len(cap.Lines(testPlayer)) != 0 {
		t.Error("sink output leaked to the bus")
	}

	// Sink only diverts its own target.
	g.State.PushSink(testPlayer)
	g.Notify(testGod, "not for the sink")
	g.State.PopSink()
	if cap.Last(testGod) != "not for the sink" {
		t.Error("message to a different object was wrongly diverted")
	}
}

func TestParseAttrInfo(t *testing.T) {
	info, text := parseAttrInfo("\x015:256:hello world")
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if info.Owner != 5 {
		t.Errorf("owner = %d, want 5", info.Owner)
	}
	if info.Flags != 256 {
		t.Errorf("flags = %d, want 256", info.Flags)
	}

	// Plain text carries no header.
	info, text = parseAttrInfo("plain")
	if text != "plain" || info.Owner != gamedb.Nothing {
		t.Errorf("plain text parsed as (%v, %q)", info, text)
	}
}

func TestMatchObject(t *testing.T) {
	g, _ := newTestGame(t)
	jug := addTestObject(g.DB, 10, "Clay Jug;jug", gamedb.TypeThing, testPlayer)
	addToRoom(g.DB, testRoomZero, 10)
	_ = jug

	cases := []struct {
		name string
		want gamedb.DBRef
	}{
		{"me", testPlayer},
		{"here", testRoomZero},
		{"#1", testGod},
		{"*god", testGod},
		{"jug", 10},
		{"clay", 10},
		{"nonesuch", gamedb.Nothing},
	}
	for _, tc := range cases {
		if got := g.MatchObject(testPlayer, tc.name); got != tc.want {
			t.Errorf("MatchObject(%q) = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestLookupPlayer(t *testing.T) {
	g, _ := newTestGame(t)

	if got := g.LookupPlayer("rhea"); got != testPlayer {
		t.Errorf("LookupPlayer(rhea) = %d, want %d", got, testPlayer)
	}
	if got := g.LookupPlayer("Room Zero"); got != gamedb.Nothing {
		t.Errorf("LookupPlayer matched a room: %d", got)
	}
}

func TestNameStripsAliases(t *testing.T) {
	g, _ := newTestGame(t)
	addTestObject(g.DB, 11, "north;n;out", gamedb.TypeExit, testGod)

	if got := g.Name(11); got != "north" {
		t.Errorf("Name(exit) = %q, want %q", got, "north")
	}
}

func TestParseObjAttr(t *testing.T) {
	g, _ := newTestGame(t)
	g.DB.AddAttrDef(256, "REPLY", 0)

	thing, attr, ok := g.ParseObjAttr(testPlayer, "me/reply")
	if !ok || thing != testPlayer || attr != 256 {
		t.Errorf("ParseObjAttr(me/reply) = (%d, %d, %v)", thing, attr, ok)
	}

	// Well-known attributes resolve without a definition.
	thing, attr, ok = g.ParseObjAttr(testPlayer, "me/sex")
	if !ok || thing != testPlayer || attr <= 0 {
		t.Errorf("ParseObjAttr(me/sex) = (%d, %d, %v)", thing, attr, ok)
	}

	if _, _, ok := g.ParseObjAttr(testPlayer, "noslash"); ok {
		t.Error("spec without a slash should not parse")
	}
}
