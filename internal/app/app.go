package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/wirerelay/internal/config"
	"github.com/vovakirdan/wirerelay/internal/core"
	"github.com/vovakirdan/wirerelay/internal/store"
	"github.com/vovakirdan/wirerelay/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirerelay/internal/transport/http"
	"github.com/vovakirdan/wirerelay/internal/transport/tcp"
)

// App wires together core, transports and the audit journal.
type App struct {
	hub      *core.Hub
	listener *tcp.Listener

	server          *stdhttp.Server
	httpListener    net.Listener
	shutdownTimeout time.Duration

	journal  store.Journal
	recorder *store.Recorder

	log *zerolog.Logger
}

// New binds every socket and opens the journal. Any error is a startup error and
// nothing is left open when it is returned.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	a := &App{shutdownTimeout: cfg.ShutdownTimeout, log: logger}

	var sink core.EventSink
	if cfg.AuditPath != "" {
		st, err := sqlite.New(cfg.AuditPath)
		if err != nil {
			return nil, fmt.Errorf("init audit journal: %w", err)
		}
		logger.Info().Str("audit_path", cfg.AuditPath).Msg("audit journal initialized")

		a.journal = st
		a.recorder = store.NewRecorder(st, cfg.AuditBuffer, logger)
		sink = journalSink{rec: a.recorder}
	}

	a.hub = core.NewHub(logger, sink)

	ln, err := tcp.Listen(ctx, cfg.ListenAddr(), tcp.Options{
		Linger:       cfg.Linger,
		WriteTimeout: cfg.WriteTimeout,
		MaxPayload:   cfg.MaxPayloadBytes,
	}, logger)
	if err != nil {
		a.cleanup()
		return nil, err
	}
	a.listener = ln

	if cfg.HTTPAddr != "" {
		httpLn, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			_ = ln.Close()
			a.cleanup()
			return nil, fmt.Errorf("listen http %s: %w", cfg.HTTPAddr, err)
		}
		a.httpListener = httpLn
		a.server = transporthttp.NewServer(a.hub, a.journal, cfg, logger)
		logger.Info().Str("addr", httpLn.Addr().String()).Msg("admin http listening")
	}

	return a, nil
}

// Addr is the relay listening address.
func (a *App) Addr() net.Addr {
	return a.listener.Addr()
}

// HTTPAddr is the admin listening address, or nil when disabled.
func (a *App) HTTPAddr() net.Addr {
	if a.httpListener == nil {
		return nil
	}
	return a.httpListener.Addr()
}

// Run serves until ctx is cancelled or the relay listener fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// The recorder outlives the hub so shutdown events are journaled too.
	recCtx, recCancel := context.WithCancel(context.WithoutCancel(ctx))
	defer recCancel()

	g.Go(func() error {
		a.hub.Run(gctx)
		recCancel()
		return nil
	})

	g.Go(func() error {
		return a.listener.Serve(gctx, a.hub)
	})

	if a.recorder != nil {
		g.Go(func() error {
			return a.recorder.Run(recCtx)
		})
	}

	if a.server != nil {
		g.Go(func() error {
			if err := a.server.Serve(a.httpListener); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				return fmt.Errorf("admin http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
			defer cancel()

			a.log.Info().Msg("shutting down http server")
			return a.server.Shutdown(shutdownCtx)
		})
	}

	err := g.Wait()
	a.cleanup()
	return err
}

// cleanup closes the journal.
func (a *App) cleanup() {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close audit journal")
		} else {
			a.log.Info().Msg("audit journal closed")
		}
	}
}
