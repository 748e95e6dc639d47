package server

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/gomushcore/pkg/events"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// Config holds the network-facing server configuration.
type Config struct {
	Port        int
	IdleTimeout time.Duration
	WelcomeText string
	QueueTick   time.Duration // how often the wait queue is polled
	QueueBurst  int           // max queue entries run per pump
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:        6250,
		IdleTimeout: 3600 * time.Second,
		WelcomeText: WelcomeText,
		QueueTick:   250 * time.Millisecond,
		QueueBurst:  100,
	}
}

// Server accepts TCP connections and feeds their input lines to the
// command interpreter. All game execution is serialized on gameMu: one
// command line (or queue pump) runs at a time.
type Server struct {
	Config   Config
	Game     *Game
	listener net.Listener

	gameMu sync.Mutex

	mu     sync.Mutex
	nextID int
	descs  map[int]*Descriptor
	done   chan struct{}
}

// NewServer wires a server around an existing game.
func NewServer(game *Game, cfg Config) *Server {
	return &Server{
		Config: cfg,
		Game:   game,
		descs:  make(map[int]*Descriptor),
		done:   make(chan struct{}),
	}
}

// Start listens on the configured port and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.Config.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.listener = ln
	log.Printf("STARTUP: listening on port %d", s.Config.Port)

	go s.queuePump()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.done:
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Printf("NET: accept: %v", err)
			continue
		}
		d := s.addDescriptor(conn)
		go s.serve(d)
	}
}

// Stop closes the listener and every live connection.
func (s *Server) Stop() {
	close(s.done)
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Lock()
	for _, d := range s.descs {
		d.Close()
	}
	s.mu.Unlock()
}

func (s *Server) addDescriptor(conn net.Conn) *Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	d := NewDescriptor(s.nextID, conn)
	s.descs[d.ID] = d
	return d
}

// registerDescriptor adds an externally built descriptor, assigning it
// the next ID. Used by non-TCP transports.
func (s *Server) registerDescriptor(build func(id int) *Descriptor) *Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	d := build(s.nextID)
	s.descs[d.ID] = d
	return d
}

func (s *Server) dropDescriptor(d *Descriptor) {
	s.mu.Lock()
	delete(s.descs, d.ID)
	s.mu.Unlock()
	d.Close()
}

// AllDescriptors returns a snapshot of the live descriptors.
func (s *Server) AllDescriptors() []*Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Descriptor, 0, len(s.descs))
	for _, d := range s.descs {
		out = append(out, d)
	}
	return out
}

// ConnectedPlayers returns the players with at least one live descriptor.
func (s *Server) ConnectedPlayers() []gamedb.DBRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[gamedb.DBRef]bool)
	var out []gamedb.DBRef
	for _, d := range s.descs {
		if d.State == ConnConnected && !seen[d.Player] {
			seen[d.Player] = true
			out = append(out, d.Player)
		}
	}
	return out
}

// queuePump drives the wait and semaphore queues.
func (s *Server) queuePump() {
	tick := time.NewTicker(s.Config.QueueTick)
	defer tick.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-tick.C:
			s.gameMu.Lock()
			s.Game.ProcessQueue(s.Config.QueueBurst)
			s.gameMu.Unlock()
		}
	}
}

func (s *Server) serve(d *Descriptor) {
	defer s.disconnect(d)

	welcome := s.Config.WelcomeText
	if s.Game.Texts != nil {
		if txt := s.Game.Texts.GetConnect(); txt != "" {
			welcome = txt
		}
	}
	d.Send(welcome)
	for {
		if s.Config.IdleTimeout > 0 {
			d.Conn.SetReadDeadline(time.Now().Add(s.Config.IdleTimeout))
		}
		line, err := d.ReadLine()
		if err != nil {
			return
		}
		d.LastCmd = time.Now()
		d.CmdCount++

		switch d.State {
		case ConnLogin:
			if !s.loginCommand(d, line) {
				return
			}
		case ConnConnected:
			if strings.EqualFold(strings.TrimSpace(line), "QUIT") {
				if s.Game.Texts != nil && s.Game.Texts.GetQuit() != "" {
					d.Send(s.Game.Texts.GetQuit())
				} else {
					d.Send("Logged out.")
				}
				return
			}
			s.runInput(d.Player, line)
		}
	}
}

// loginCommand handles one pre-login line. Returns false to drop the
// connection.
func (s *Server) loginCommand(d *Descriptor, line string) bool {
	command, user, password := ParseConnect(line)
	switch command {
	case "":
		return true
	case "quit":
		return false
	case "who":
		s.sendWho(d)
		return true
	case "connect", "ch", "cd":
		player := LookupPlayer(s.Game.DB, user)
		if player == gamedb.Nothing || !CheckPassword(s.Game.DB, player, password) {
			d.Send("Either that player does not exist, or has a different password.")
			log.Printf("NET: failed connect attempt for %q from %s", user, d.Addr)
			return true
		}
		s.attach(d, player)
		return true
	default:
		d.Send("Login format: connect <name> <password>")
		return true
	}
}

// attach binds a logged-in player to the descriptor and announces the
// connection.
func (s *Server) attach(d *Descriptor, player gamedb.DBRef) {
	d.State = ConnConnected
	d.Player = player
	s.Game.Bus.Subscribe(player, d)

	if s.Game.Texts != nil {
		if motd := s.Game.Texts.GetMotd(); motd != "" {
			d.Send(motd)
		}
		if Wizard(s.Game, player) {
			if motd := s.Game.Texts.GetWizMotd(); motd != "" {
				d.Send(motd)
			}
		}
	}

	s.gameMu.Lock()
	defer s.gameMu.Unlock()
	g := s.Game
	if obj := g.DB.Get(player); obj != nil {
		obj.Flags[1] |= gamedb.Flag2Connected
	}
	log.Printf("NET: %s connected from %s", g.Name(player), d.Addr)
	g.Bus.Emit(events.Event{
		Type: events.EvConnect, Player: player, Source: player,
		Text: fmt.Sprintf("Welcome, %s.", g.Name(player)),
	})
	loc := g.Location(player)
	g.NotifyExcept(loc, player, fmt.Sprintf("%s has connected.", g.Name(player)))
}

func (s *Server) disconnect(d *Descriptor) {
	// Drop first so ConnectedPlayers no longer counts this descriptor.
	s.dropDescriptor(d)
	if d.State != ConnConnected || d.Player == gamedb.Nothing {
		return
	}
	s.Game.Bus.Unsubscribe(d.Player, d)

	s.gameMu.Lock()
	defer s.gameMu.Unlock()
	g := s.Game
	stillHere := false
	for _, p := range s.ConnectedPlayers() {
		if p == d.Player {
			stillHere = true
		}
	}
	if !stillHere {
		if obj := g.DB.Get(d.Player); obj != nil {
			obj.Flags[1] &^= gamedb.Flag2Connected
		}
		loc := g.Location(d.Player)
		g.NotifyExcept(loc, d.Player, fmt.Sprintf("%s has disconnected.", g.Name(d.Player)))
	}
	log.Printf("NET: %s disconnected", g.Name(d.Player))
}

// runInput executes one typed command line. Each line is a fresh
// top-level invocation: the nesting and invocation counters reset, and
// resolution runs interactively.
func (s *Server) runInput(player gamedb.DBRef, line string) {
	s.gameMu.Lock()
	defer s.gameMu.Unlock()
	g := s.Game
	g.State.CmdInvkCtr = 0
	g.State.CmdNestLev = 0
	g.ProcessCommand(player, player, true, line, nil)
	g.ProcessQueue(s.Config.QueueBurst)
}

func (s *Server) sendWho(d *Descriptor) {
	players := s.ConnectedPlayers()
	d.Send(fmt.Sprintf("%d player(s) connected.", len(players)))
	for _, p := range players {
		d.Send("  " + s.Game.Name(p))
	}
}
