package server

import (
	"bufio"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/crystal-mush/gomushcore/pkg/events"
	"github.com/crystal-mush/gomushcore/pkg/gamedb"
)

// ConnState tracks the state of a connection.
type ConnState int

const (
	ConnLogin     ConnState = iota // awaiting connect/create
	ConnConnected                  // logged in as a player
)

// Transport names, for WHO and connection stats.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// Descriptor is a single client connection. It implements
// events.Subscriber so the bus can deliver game output to it.
// Non-TCP transports leave Conn nil and supply the Func overrides.
type Descriptor struct {
	ID        int
	Conn      net.Conn
	Reader    *bufio.Reader
	State     ConnState
	Player    gamedb.DBRef
	Addr      string
	Transport string
	ConnTime  time.Time
	LastCmd   time.Time
	CmdCount  int

	SendFunc    func(msg string)
	ReceiveFunc func(ev events.Event)
	CloseFunc   func()

	mu     sync.Mutex
	closed bool
}

// NewDescriptor wraps a net.Conn.
func NewDescriptor(id int, conn net.Conn) *Descriptor {
	now := time.Now()
	return &Descriptor{
		ID:        id,
		Conn:      conn,
		Reader:    bufio.NewReaderSize(conn, 4096),
		State:     ConnLogin,
		Player:    gamedb.Nothing,
		Addr:      conn.RemoteAddr().String(),
		Transport: TransportTCP,
		ConnTime:  now,
		LastCmd:   now,
	}
}

// Send writes one line to the client, adding the telnet line ending when
// the caller didn't.
func (d *Descriptor) Send(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.SendFunc != nil {
		d.SendFunc(msg)
		return
	}
	if !strings.HasSuffix(msg, "\n") {
		msg += "\r\n"
	}
	d.Conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	d.Conn.Write([]byte(msg))
}

// Receive implements events.Subscriber.
func (d *Descriptor) Receive(ev events.Event) {
	if d.ReceiveFunc != nil {
		d.mu.Lock()
		dead := d.closed
		d.mu.Unlock()
		if !dead {
			d.ReceiveFunc(ev)
		}
		return
	}
	d.Send(ev.Text)
}

// Closed implements events.Subscriber.
func (d *Descriptor) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Close shuts the connection down. Safe to call more than once.
func (d *Descriptor) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	if d.CloseFunc != nil {
		d.CloseFunc()
	}
	if d.Conn != nil {
		d.Conn.Close()
	}
}

// ReadLine reads one command line, trimming the line ending.
func (d *Descriptor) ReadLine() (string, error) {
	line, err := d.Reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
