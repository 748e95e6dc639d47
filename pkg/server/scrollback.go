package server

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/crystal-mush/gomushcore/pkg/events"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// ScrollbackWriter is a global event bus subscriber that writes room
// speech to SQLite for scrollback retrieval.
type ScrollbackWriter struct {
	sqldb  *SQLStore
	game   *Game
	mu     sync.Mutex
	closed bool
}

// NewScrollbackWriter creates a scrollback writer and registers it as a
// global subscriber on the event bus.
func NewScrollbackWriter(game *Game) *ScrollbackWriter {
	if game.SQLDB == nil {
		return nil
	}

	if err := game.SQLDB.InitScrollbackTables(); err != nil {
		log.Printf("WARNING: scrollback: init tables: %v", err)
		return nil
	}

	sw := &ScrollbackWriter{
		sqldb: game.SQLDB,
		game:  game,
	}

	game.Bus.SubscribeGlobal(sw)
	log.Printf("STARTUP: scrollback writer registered on event bus")
	return sw
}

// Receive implements events.Subscriber. Speech events fan out once per
// recipient; only the speaker's own copy is stored, so each utterance
// lands in the log exactly once.
func (sw *ScrollbackWriter) Receive(ev events.Event) {
	switch ev.Type {
	case events.EvSay, events.EvPose, events.EvEmit, events.EvChannel:
	default:
		return
	}
	if ev.Type != events.EvChannel && ev.Player != ev.Source {
		return
	}

	channel := ev.Channel
	if channel == "" {
		if ev.Room == gamedb.Nothing {
			return
		}
		channel = fmt.Sprintf("room:%d", ev.Room)
	}

	senderName := ""
	if ev.Source >= 0 {
		senderName = sw.game.Name(ev.Source)
	}

	if err := sw.sqldb.InsertScrollback(channel, int(ev.Source), senderName, ev.Text); err != nil {
		log.Printf("WARNING: scrollback: insert: %v", err)
	}
}

// Closed implements events.Subscriber.
func (sw *ScrollbackWriter) Closed() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.closed
}

// Close marks the writer as closed so the bus stops delivering events.
func (sw *ScrollbackWriter) Close() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.closed = true
}

// StartRetentionCleanup starts an hourly goroutine that purges old scrollback.
func StartRetentionCleanup(sqldb *SQLStore, retention time.Duration) {
	if sqldb == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			purged, err := sqldb.PurgeOldScrollback(retention)
			if err != nil {
				log.Printf("WARNING: scrollback cleanup: %v", err)
				continue
			}
			if purged > 0 {
				log.Printf("GAME: scrollback: purged %d old channel entries", purged)
			}
			personalPurged, err := sqldb.PurgeOldPersonalScrollback(retention)
			if err != nil {
				log.Printf("WARNING: personal scrollback cleanup: %v", err)
				continue
			}
			if personalPurged > 0 {
				log.Printf("GAME: scrollback: purged %d old personal entries", personalPurged)
			}
		}
	}()
}
