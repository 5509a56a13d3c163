package main

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/magoolation/intmud/builtins"
	"github.com/magoolation/intmud/class"
	"github.com/magoolation/intmud/compile"
	"github.com/magoolation/intmud/event"
	"github.com/magoolation/intmud/loader"
	"github.com/magoolation/intmud/object"
	"github.com/magoolation/intmud/parser"
	"github.com/magoolation/intmud/special"
	"github.com/magoolation/intmud/transport"
	"github.com/magoolation/intmud/value"
	"github.com/magoolation/intmud/vm"
)

// config holds the flags newRootCmd binds: source path, include dirs,
// instruction budget, tick interval, listener addresses, hot-reload, log
// level.
type config struct {
	source       string
	include      []string
	budget       int
	tick         time.Duration
	listenTelnet string
	listenWS     string
	console      bool
	sessionClass string
	reload       bool
	logLevel     string
}

func newRootCmd() *cobra.Command {
	cfg := &config{}
	cmd := &cobra.Command{
		Use:   "intmud",
		Short: "Run a Script Language source tree as a live event-driven world",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cfg)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&cfg.source, "source", "", "main source file to load (required)")
	flags.StringSliceVar(&cfg.include, "include", nil, "additional include directories, beyond the source prologue's own")
	flags.IntVar(&cfg.budget, "budget", compile.DefaultBudget, "per-handler instruction budget")
	flags.DurationVar(&cfg.tick, "tick", event.DefaultInterval, "event loop tick interval")
	flags.StringVar(&cfg.listenTelnet, "listen-telnet", "", "address to accept Telnet connections on, e.g. :2323")
	flags.StringVar(&cfg.listenWS, "listen-ws", "", "address to accept WebSocket connections on, e.g. :8080")
	flags.BoolVar(&cfg.console, "console", false, "attach the local terminal as one session, for interactive local testing")
	flags.StringVar(&cfg.sessionClass, "session-class", "sessao", "class instantiated for each accepted connection")
	flags.BoolVar(&cfg.reload, "reload", false, "watch the source tree and hot-reload changed classes")
	flags.StringVar(&cfg.logLevel, "log-level", "info", "logrus level: trace, debug, info, warn, error")
	cmd.MarkFlagRequired("source")
	return cmd
}

func run(ctx context.Context, cfg *config) error {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.logLevel)
	if err != nil {
		return errors.Wrap(err, "log-level")
	}
	log.SetLevel(level)

	classes := class.New()
	objects := object.New()
	bi := builtins.New()
	mgr := special.New(classes, objects, log)
	builtins.RegisterStandard(bi, mgr)

	instance := vm.New(classes, objects, bi, vm.Budget(cfg.budget), vm.OnInitSpecialType(mgr.Init))
	mgr.VM = instance

	ld := loader.New(parser.New(), classes, log)
	if errs := ld.LoadFile(cfg.source); len(errs) > 0 {
		for _, e := range errs {
			log.WithError(e.Err).WithField("file", e.File).Error("load error")
		}
	}
	for _, dir := range cfg.include {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return errors.Wrapf(err, "include %s", dir)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if errs := ld.LoadFile(dir + string(os.PathSeparator) + entry.Name()); len(errs) > 0 {
				for _, e := range errs {
					log.WithError(e.Err).WithField("file", e.File).Error("load error")
				}
			}
		}
	}

	if cfg.listenTelnet != "" {
		if err := listenAndAccept(cfg.listenTelnet, cfg.sessionClass, instance, mgr, log, telnetWrap); err != nil {
			return errors.Wrap(err, "listen-telnet")
		}
	}
	if cfg.listenWS != "" {
		go serveWebSocket(cfg.listenWS, cfg.sessionClass, instance, mgr, log)
	}
	if cfg.console {
		if err := attachConsole(cfg.sessionClass, instance, mgr, log); err != nil {
			return errors.Wrap(err, "console")
		}
	}

	loop := event.New(mgr, objects, instance, log)
	loop.Interval = cfg.tick

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sig:
			cancel()
		case <-runCtx.Done():
		}
	}()

	if cfg.reload {
		go watchReload(runCtx, ld, objects, mgr, log)
	}

	log.WithField("tick", cfg.tick).Info("event loop starting")
	loop.Run(runCtx)
	log.Info("event loop stopped")
	return nil
}

// reloadPollInterval is how often watchReload stats the loaded source
// files for changes. Source edits are not latency-sensitive the way
// network I/O is, so this runs far coarser than the event loop's own tick.
const reloadPollInterval = 2 * time.Second

// watchReload polls every file ld has loaded for mtime changes and, for
// each one that changed, reparses it and hands each declared class to
// ld.Reload as a task on the event loop's goroutine (loader.Reload mutates
// the Registry and marks live instances for deletion on layout changes,
// both Arena/Registry operations restricted to that thread).
func watchReload(ctx context.Context, ld *loader.Loader, objects *object.Arena, mgr *special.Manager, log *logrus.Logger) {
	p := parser.New()
	mtimes := map[string]time.Time{}
	for _, path := range ld.Files() {
		if info, err := os.Stat(path); err == nil {
			mtimes[path] = info.ModTime()
		}
	}
	ticker := time.NewTicker(reloadPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, path := range ld.Files() {
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			mtime := info.ModTime()
			if !mtime.After(mtimes[path]) {
				continue
			}
			mtimes[path] = mtime
			path := path
			raw, err := os.ReadFile(path)
			if err != nil {
				log.WithError(err).WithField("file", path).Warn("hot reload: read failed")
				continue
			}
			cu, err := p.Parse(path, bytes.NewReader(raw))
			if err != nil {
				log.WithError(err).WithField("file", path).Warn("hot reload: parse failed")
				continue
			}
			mgr.EnqueueTask(func() {
				for _, cls := range cu.Classes {
					ld.Reload(cls, objects)
				}
			})
		}
	}
}

// attachConsole instantiates sessionClass and attaches the process's own
// stdin/stdout for interactive local use. It runs before the event loop
// starts, so (unlike the listener accept paths) it calls spawnSession
// directly rather than going through special.Manager.EnqueueTask: there is
// no loop goroutine yet for a task to race against.
func attachConsole(sessionClass string, vmInst *vm.Instance, mgr *special.Manager, log *logrus.Logger) error {
	con, err := transport.NewConsole()
	if err != nil {
		return err
	}
	spawnSession(sessionClass, con, vmInst, mgr, log)
	return nil
}

// telnetWrap adapts a raw net.Conn into the Telnet framing.
func telnetWrap(conn net.Conn) transport.Channel { return transport.NewTelnet(conn) }

// listenAndAccept opens a TCP listener at addr. Each accepted connection is
// handed to spawnSession as a task on the event loop's own goroutine
// (special.Manager.EnqueueTask) rather than acted on from the accept
// goroutine directly: object creation and field attachment mutate the Arena
// and Registry, restricted to the event-loop thread.
func listenAndAccept(addr, sessionClass string, vmInst *vm.Instance, mgr *special.Manager, log *logrus.Logger, wrap func(net.Conn) transport.Channel) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				log.WithError(err).Warn("accept failed")
				return
			}
			ch := wrap(conn)
			mgr.EnqueueTask(func() { spawnSession(sessionClass, ch, vmInst, mgr, log) })
		}
	}()
	return nil
}

// serveWebSocket mirrors listenAndAccept for the WebSocket upgrade path.
func serveWebSocket(addr, sessionClass string, vmInst *vm.Instance, mgr *special.Manager, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		ch, err := transport.Upgrade(w, r)
		if err != nil {
			log.WithError(err).Warn("websocket upgrade failed")
			return
		}
		mgr.EnqueueTask(func() { spawnSession(sessionClass, ch, vmInst, mgr, log) })
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("websocket listener stopped")
	}
}

// spawnSession instantiates sessionClass and attaches ch to its first
// unconnected client-socket or console field. Must only run on the event
// loop's own goroutine, either before the loop starts (attachConsole) or as
// a task the loop runs at the start of its own tick (listenAndAccept,
// serveWebSocket, via special.Manager.EnqueueTask).
func spawnSession(sessionClass string, ch transport.Channel, vmInst *vm.Instance, mgr *special.Manager, log *logrus.Logger) {
	ref, err := vmInst.Builtins.Call("criar", value.NullValue(), []value.Value{value.Str(sessionClass)})
	if err != nil {
		log.WithError(err).WithField("class", sessionClass).Error("session creation failed")
		ch.Close()
		return
	}
	if !mgr.AttachClient(ref.ObjectID(), ch) && !mgr.AttachConsole(ref.ObjectID(), ch) {
		log.WithField("class", sessionClass).Warn("session class has no socket/console field to attach to")
	}
}
