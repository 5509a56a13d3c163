package special

// Timer is a countdown special-type field: its current value lives in the
// owning Object's field storage; Manager only tracks the back-reference and
// registration order.
type Timer struct {
	Key
	seq int
}

// TickTimers decrements every registered timer's field value by elapsed
// ticks, floored at zero, and returns the keys of timers that crossed from
// positive to zero this tick, in registration order, the tie-break the event
// loop's dispatch phase relies on.
func (m *Manager) TickTimers(elapsed int64) []Key {
	var fired []Key
	for _, t := range m.timers {
		cur := m.getField(t.Key)
		if cur <= 0 {
			continue
		}
		next := cur - elapsed
		if next < 0 {
			next = 0
		}
		m.setField(t.Key, next)
		if next == 0 {
			fired = append(fired, t.Key)
		}
	}
	return fired
}

// SetTimer assigns a timer field's countdown directly, the path a `var x:
// timer` field assignment in script takes (the Compiler lowers an ordinary
// store-field for special-type fields; this is the equivalent host-side
// setter for callers that are not going through the VM, e.g. a transport
// wiring up a connection-timeout timer).
func (m *Manager) SetTimer(k Key, ticks int64) {
	m.setField(k, ticks)
}
