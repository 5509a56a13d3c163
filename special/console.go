package special

import (
	"github.com/magoolation/intmud/transport"
	"github.com/magoolation/intmud/value"
)

// Console is a terminal-handle special-type field: output written through
// tela.msg reaches whatever transport is attached, and key events read from
// that transport are routed back to the owning object as `<field>_tecla(key)`.
// Wrapping a channel behind a narrow write surface keeps the special type
// itself transport agnostic, while a transport.Channel's Telnet/WebSocket/raw
// framing decides how bytes actually cross the wire.
type Console struct {
	Key
	seq int

	ch transport.Channel
}

// Attach binds a Console special type to the channel a transport connection
// presents, so subsequent tela.msg calls on the owning object reach that
// connection, and starts a goroutine feeding its key events into the
// single-consumer inbox. A Console with no channel attached (e.g. a
// headless object) silently discards output.
func (m *Manager) Attach(k Key, ch transport.Channel) {
	c, ok := m.consoles[k]
	if !ok {
		return
	}
	c.ch = ch
	go m.pumpConsole(k, c)
}

// pumpConsole reads key frames off c.ch and enqueues each as
// `<field>_tecla(key)` until the channel closes.
func (m *Manager) pumpConsole(k Key, c *Console) {
	for {
		p, err := c.ch.Receive()
		if err != nil {
			return
		}
		m.enqueue(k.Owner, k.Field+"_tecla", []value.Value{value.Str(string(p))})
	}
}

// consoleFor finds the (sole, in practice) Console registered against recv,
// the receiver tela.msg is called with. An object could in principle own
// more than one console field; WriteMessage picks the first match in
// registration order, since multi-console objects are unspecified and real
// scripts declare at most one.
func (m *Manager) consoleFor(recv value.Value) (*Console, bool) {
	if recv.Tag() != value.ObjectRef {
		return nil, false
	}
	id := recv.ObjectID()
	var best *Console
	for _, c := range m.consoles {
		if c.Owner != id {
			continue
		}
		if best == nil || c.seq < best.seq {
			best = c
		}
	}
	return best, best != nil
}

// AttachConsole finds the first (by registration order) Console field owned
// by id and attaches ch to it, for a host (the CLI's local-console or
// accepted-connection wiring) that knows which object a session belongs to
// but not which field name its class gave the console, a detail that
// varies per script, not per host.
func (m *Manager) AttachConsole(id value.ObjectID, ch transport.Channel) bool {
	var best *Console
	for _, c := range m.consoles {
		if c.Owner != id {
			continue
		}
		if best == nil || c.seq < best.seq {
			best = c
		}
	}
	if best == nil {
		return false
	}
	m.Attach(best.Key, ch)
	return true
}

// WriteMessage implements builtins.Console, the interface tela.msg is wired
// through.
func (m *Manager) WriteMessage(recv value.Value, text string) error {
	c, ok := m.consoleFor(recv)
	if !ok || c.ch == nil {
		return nil
	}
	return c.ch.Send([]byte(text))
}
