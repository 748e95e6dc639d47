package server

import (
	"runtime"

	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// QueueStats returns command queue depth info.
func (g *Game) QueueStats() map[string]any {
	immediate, waiting, semaphore := g.Queue.Stats()
	return map[string]any{
		"immediate": immediate,
		"waiting":   waiting,
		"semaphore": semaphore,
	}
}

// MemoryStats returns Go runtime memory statistics.
func (g *Game) MemoryStats() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return map[string]any{
		"heap_alloc_bytes":  m.HeapAlloc,
		"heap_inuse_bytes":  m.HeapInuse,
		"heap_alloc_mb":     float64(m.HeapAlloc) / 1024 / 1024,
		"goroutines":        runtime.NumGoroutine(),
		"gc_cycles":         m.NumGC,
		"gc_pause_total_ns": m.PauseTotalNs,
	}
}

// GameStats returns object and command-table stats.
func (g *Game) GameStats() map[string]any {
	typeCounts := map[string]int{
		"rooms":   0,
		"players": 0,
		"things":  0,
		"exits":   0,
		"garbage": 0,
	}

	for _, obj := range g.DB.Objects {
		switch obj.ObjType() {
		case gamedb.TypeRoom:
			typeCounts["rooms"]++
		case gamedb.TypePlayer:
			typeCounts["players"]++
		case gamedb.TypeThing:
			typeCounts["things"]++
		case gamedb.TypeExit:
			typeCounts["exits"]++
		case gamedb.TypeGarbage:
			typeCounts["garbage"]++
		}
	}

	return map[string]any{
		"object_count":   len(g.DB.Objects),
		"attr_def_count": len(g.DB.AttrNames),
		"type_counts":    typeCounts,
		"commands":       len(g.Commands.Names()),
	}
}

// ConnectionStats returns a breakdown of current connections.
func (s *Server) ConnectionStats() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := len(s.descs)
	loginScreen := 0
	connected := 0
	cmdCount := 0
	for _, d := range s.descs {
		switch d.State {
		case ConnLogin:
			loginScreen++
		case ConnConnected:
			connected++
		}
		cmdCount += d.CmdCount
	}

	return map[string]any{
		"total":        total,
		"login_screen": loginScreen,
		"connected":    connected,
		"commands":     cmdCount,
	}
}
