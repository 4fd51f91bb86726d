package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/websublime/vite-open-api-server-sub004/internal/watch"
	"github.com/websublime/vite-open-api-server-sub004/pkg/command"
	"github.com/websublime/vite-open-api-server-sub004/pkg/compose"
	"github.com/websublime/vite-open-api-server-sub004/pkg/config"
	"github.com/websublime/vite-open-api-server-sub004/pkg/hub"
	"github.com/websublime/vite-open-api-server-sub004/pkg/logging"
)

// WebSocketPath is where inspector clients connect.
const WebSocketPath = "/__ws"

// Server runs one or more spec instances behind a single listener and a
// shared WebSocket hub.
type Server struct {
	cfg       *config.Config
	version   string
	log       *slog.Logger
	hub       *hub.Hub
	instances []*Instance
	httpSrv   *http.Server
	watcher   *watch.Watcher
}

// New builds the server: every spec instance, the hub wiring (single-spec
// direct or multi-spec composed), the HTTP mux, and optionally the file
// watcher.
func New(ctx context.Context, cfg *config.Config, version string, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = logging.Nop()
	}

	s := &Server{
		cfg:     cfg,
		version: version,
		log:     log,
		hub:     hub.New(log),
	}

	for _, specCfg := range cfg.Specs {
		if len(cfg.Specs) > 1 && specCfg.ProxyPath == "" {
			return nil, fmt.Errorf("spec %q: proxyPath is required when serving multiple specs", specCfg.ID)
		}
		inst, err := NewInstance(ctx, specCfg, cfg.Timeline.Capacity, log)
		if err != nil {
			return nil, err
		}
		s.instances = append(s.instances, inst)
	}

	if len(s.instances) == 1 {
		s.wireSingle(s.instances[0])
	} else {
		s.wireComposed()
	}

	mux := http.NewServeMux()
	mux.Handle(WebSocketPath, s.hub)
	for _, inst := range s.instances {
		if inst.cfg.ProxyPath == "" {
			mux.Handle("/", inst)
		} else {
			mux.Handle(inst.cfg.ProxyPath+"/", inst)
		}
	}

	s.httpSrv = &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Watch {
		if err := s.setupWatcher(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// wireSingle connects one instance straight to the hub: the greeting
// carries only the server version and events are not specId-tagged.
func (s *Server) wireSingle(inst *Instance) {
	s.hub.SetWelcome(func() map[string]any {
		return map[string]any{"serverVersion": s.version}
	})

	handler := command.New(inst.CommandDeps())
	s.hub.SetCommandHandler(handler.Bind(s.hub))
	inst.SetBroadcaster(s.hub)
}

// wireComposed routes everything through the orchestrator, which tags every
// event with its originating specId.
func (s *Server) wireComposed() {
	orch := compose.NewOrchestrator(s.hub, s.version, s.log)
	for _, inst := range s.instances {
		title, version, proxyPath := inst.Info()
		orch.Add(&compose.Member{
			Info: compose.SpecInfo{
				ID:        inst.ID(),
				Title:     title,
				Version:   version,
				ProxyPath: proxyPath,
			},
			Handler: command.New(inst.CommandDeps()),
		})
		inst.SetBroadcaster(orch.Broadcaster(inst.ID()))
	}
	orch.Install()
}

func (s *Server) setupWatcher() error {
	w, err := watch.New(watch.DefaultDebounce, s.log)
	if err != nil {
		return err
	}
	for _, inst := range s.instances {
		if err := w.Add(inst.cfg.HandlersDir); err != nil {
			return err
		}
		if err := w.Add(inst.cfg.SeedsDir); err != nil {
			return err
		}
	}
	s.watcher = w
	return nil
}

// Run serves HTTP until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.watcher != nil {
		go s.watcher.Run(ctx)
		go s.reloadLoop()
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("mock server listening",
			"addr", s.httpSrv.Addr,
			"specs", len(s.instances),
			"websocket", WebSocketPath)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.hub.Close()
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	return s.httpSrv.Shutdown(shutdownCtx)
}

// Handler exposes the HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Hub exposes the shared hub for tests.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// reloadLoop reapplies module changes whenever the watcher reports a batch.
func (s *Server) reloadLoop() {
	for batch := range s.watcher.Events() {
		s.log.Info("files changed, reloading modules", "changes", len(batch))
		for _, inst := range s.instances {
			if err := inst.Reload(); err != nil {
				s.log.Warn("reload failed", "spec", inst.ID(), "error", err)
			}
		}
	}
}
