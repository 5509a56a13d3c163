package special

import (
	"fmt"
	"io"
	"net"

	"github.com/magoolation/intmud/transport"
	"github.com/magoolation/intmud/value"
)

// ClientSocket is a network-endpoint special type in client mode: state
// transitions on its underlying transport.Channel dispatch `<field>_conectou`,
// `<field>_fechou`, and `<field>_chegou(text)` on the owning object.
type ClientSocket struct {
	Key
	seq     int
	Channel transport.Channel
}

// ServerSocket is a network-endpoint special type in listening mode: each
// accepted connection registers a new ClientSocket-shaped record and fires
// `<field>_aceitou` on the owner.
type ServerSocket struct {
	Key
	seq      int
	Listener net.Listener
	accepted int
}

// ioEvent is one entry in the single-consumer inbox transports hand bytes
// to through a queue into the Event Loop. Connections run their own
// goroutine for blocking Receive calls but never touch the Arena, the
// Registry, or the VM directly, only the event loop's own thread, via
// DrainIO, does that, keeping all state mutation single-threaded.
type ioEvent struct {
	Owner value.ObjectID
	Func  string
	Args  []value.Value
}

func (m *Manager) enqueue(owner value.ObjectID, fn string, args []value.Value) {
	m.inboxMu.Lock()
	m.inbox = append(m.inbox, ioEvent{Owner: owner, Func: fn, Args: args})
	m.inboxMu.Unlock()
}

// DrainIO moves every I/O event enqueued since the last call into the
// dispatch queue, in arrival order, and reports how many are now pending.
// Splitting poll from dispatch keeps the snapshot stable across the
// collection phases, so a handler sees a consistent view of everything
// collected so far in the tick rather than one that keeps growing under it.
func (m *Manager) DrainIO() int {
	m.inboxMu.Lock()
	pending := m.inbox
	m.inbox = nil
	m.inboxMu.Unlock()

	m.pendingIOMu.Lock()
	m.pendingIO = append(m.pendingIO, pending...)
	n := len(m.pendingIO)
	m.pendingIOMu.Unlock()
	return n
}

// DispatchIO invokes every I/O event DrainIO most recently collected, in
// the order they were collected, via the VM on the calling (event-loop)
// goroutine.
func (m *Manager) DispatchIO() {
	m.pendingIOMu.Lock()
	pending := m.pendingIO
	m.pendingIO = nil
	m.pendingIOMu.Unlock()

	for _, ev := range pending {
		if m.VM == nil {
			continue
		}
		if _, err := m.VM.InvokeHandler(value.Object(ev.Owner), ev.Func, ev.Args); err != nil {
			m.Log.WithError(err).WithField("func", ev.Func).Warn("special: I/O handler fault")
		}
	}
}

// Connect opens a client connection through ch and registers it on k's
// ClientSocket record, enqueueing `<field>_conectou` for the connected state
// transition. The connection's read loop runs on its own goroutine; all
// handler invocation happens later, on the event loop.
func (m *Manager) Connect(k Key, ch transport.Channel) {
	c, ok := m.clients[k]
	if !ok {
		return
	}
	c.Channel = ch
	m.enqueue(k.Owner, k.Field+"_conectou", nil)
	go m.pumpClient(k, c)
}

// AttachClient finds the first (by registration order) unconnected
// ClientSocket field owned by id and connects ch to it. Used the same way
// AttachConsole is: a host accepting a new session knows the object, not
// the script-chosen field name.
func (m *Manager) AttachClient(id value.ObjectID, ch transport.Channel) bool {
	var best *ClientSocket
	for _, c := range m.clients {
		if c.Owner != id || c.Channel != nil {
			continue
		}
		if best == nil || c.seq < best.seq {
			best = c
		}
	}
	if best == nil {
		return false
	}
	m.Connect(best.Key, ch)
	return true
}

// pumpClient blocks reading frames off c.Channel and enqueues each as
// `<field>_chegou(text)` until the channel closes, at which point it
// enqueues `<field>_fechou`.
func (m *Manager) pumpClient(k Key, c *ClientSocket) {
	for {
		p, err := c.Channel.Receive()
		if err != nil {
			if err != io.EOF {
				m.Log.WithError(err).WithField("field", k.Field).Warn("special: socket read fault")
			}
			m.enqueue(k.Owner, k.Field+"_fechou", nil)
			return
		}
		m.enqueue(k.Owner, k.Field+"_chegou", []value.Value{value.Str(string(p))})
	}
}

// Listen starts accepting connections on a ServerSocket record. Each
// accepted connection gets its own synthetic ClientSocket record (same
// owner, a field name suffixed with the accept sequence number so it
// never collides with the listening field itself) and enqueues
// `<field>_aceitou`.
func (m *Manager) Listen(k Key, ln net.Listener, wrap func(net.Conn) transport.Channel) {
	s, ok := m.servers[k]
	if !ok {
		return
	}
	s.Listener = ln
	go m.acceptLoop(k, s, wrap)
}

func (m *Manager) acceptLoop(k Key, s *ServerSocket, wrap func(net.Conn) transport.Channel) {
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			return
		}
		ch := wrap(conn)

		m.regMu.Lock()
		s.accepted++
		sub := Key{Owner: k.Owner, Field: fmt.Sprintf("%s#%d", k.Field, s.accepted)}
		m.seq++
		cs := &ClientSocket{Key: sub, seq: m.seq, Channel: ch}
		m.clients[sub] = cs
		m.regMu.Unlock()

		m.enqueue(k.Owner, k.Field+"_aceitou", nil)
		go m.pumpClient(sub, cs)
	}
}
