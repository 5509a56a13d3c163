// Package event implements the Event Loop: the single cooperative scheduler
// that drives the Special Type Manager's timers and triggers, dispatches
// collected events to the VM in a fixed order (timers, then triggers, then
// I/O, each by registration or arrival order), and reaps deleted objects at
// the tick boundary.
package event

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/magoolation/intmud/object"
	"github.com/magoolation/intmud/runtimeerr"
	"github.com/magoolation/intmud/special"
	"github.com/magoolation/intmud/value"
)

// VM is the narrow vm.Instance surface the loop dispatches handlers
// through.
type VM interface {
	InvokeHandler(recv value.Value, name string, args []value.Value) (value.Value, error)
}

// Loop runs ticks at a fixed interval until Stop is called, a timer or
// trigger handler raises TERMINATE (the loop stops once that tick is
// finished), or its context is cancelled. A TERMINATE raised by an I/O
// handler is logged by the Special Type Manager and does not stop the loop.
type Loop struct {
	Special  *special.Manager
	Objects  *object.Arena
	VM       VM
	Log      *logrus.Logger
	Interval time.Duration

	stop chan struct{}
}

// DefaultInterval matches a classic MUD's coarse tick granularity; callers
// needing finer timer resolution pass a shorter Interval.
const DefaultInterval = 250 * time.Millisecond

// New returns a Loop ready to Run.
func New(mgr *special.Manager, objects *object.Arena, vm VM, log *logrus.Logger) *Loop {
	if log == nil {
		log = logrus.StandardLogger()
	}
	interval := DefaultInterval
	return &Loop{Special: mgr, Objects: objects, VM: vm, Log: log, Interval: interval, stop: make(chan struct{})}
}

// Run blocks ticking at l.Interval until ctx is cancelled or Stop is
// called.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-ticker.C:
			l.Tick(1)
		}
	}
}

// Stop ends a running Loop after its current tick finishes.
func (l *Loop) Stop() {
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
}

// Tick runs exactly one pass over the event loop's five phases, in order:
// I/O poll, timer tick, trigger scan, dispatch, reap. Host-queued
// tasks (new sessions accepted off a listener goroutine, hot-reloaded
// classes) run first, so the rest of the tick sees a consistent Arena and
// Registry.
func (l *Loop) Tick(elapsedTicks int64) {
	l.Special.RunPendingTasks()
	l.Special.DrainIO()

	firedTimers := l.Special.TickTimers(elapsedTicks)
	firedTriggers := l.Special.ScanTriggers()

	for _, k := range firedTimers {
		l.invoke(k.Owner, k.Field+"_exec")
	}
	for _, k := range firedTriggers {
		l.invoke(k.Owner, k.Field+"_exec")
	}
	l.Special.DispatchIO()

	for _, id := range l.Objects.Reap() {
		l.Special.Unregister(id)
	}
}

func (l *Loop) invoke(owner value.ObjectID, name string) {
	if _, err := l.VM.InvokeHandler(value.Object(owner), name, nil); err != nil {
		l.Log.WithError(err).WithField("func", name).Warn("event: handler fault")
		if runtimeerr.Is(err, runtimeerr.Terminate) {
			l.Stop()
		}
	}
}
