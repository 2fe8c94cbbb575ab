// Package server wires the chat core together and owns the process's
// single network surface: the websocket upgrade route plus the thin
// admin endpoints that read logs and reports.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/ColdDevYT/Star-Chat/internal/admin"
	"github.com/ColdDevYT/Star-Chat/internal/broadcast"
	"github.com/ColdDevYT/Star-Chat/internal/dispatch"
	"github.com/ColdDevYT/Star-Chat/internal/format"
	"github.com/ColdDevYT/Star-Chat/internal/moderation"
	"github.com/ColdDevYT/Star-Chat/internal/protocol"
	"github.com/ColdDevYT/Star-Chat/internal/ratelimit"
	"github.com/ColdDevYT/Star-Chat/internal/room"
	"github.com/ColdDevYT/Star-Chat/internal/server/middleware"
	"github.com/ColdDevYT/Star-Chat/internal/session"
	"github.com/ColdDevYT/Star-Chat/pkg/config"
	"github.com/ColdDevYT/Star-Chat/pkg/transport"
)

type App struct {
	logger     *slog.Logger
	registry   *session.Registry
	dispatcher *dispatch.Dispatcher
	wg         sync.WaitGroup
	http       *http.Server
	config     *config.Config

	ctx context.Context
}

func NewApp(logger *slog.Logger, rootCtx context.Context, cfg *config.Config) *App {
	mod := moderation.NewState(logger)
	for _, name := range cfg.Moderation.Admins {
		mod.SetRole(name, moderation.RoleAdmin)
	}
	registry := session.NewRegistry(logger, mod.IsBanned)
	rooms := room.NewDirectory(cfg.Chat.HistoryLimit, logger)
	if cfg.Chat.DefaultRoom != "" {
		_ = rooms.Create(cfg.Chat.DefaultRoom)
	}
	engine := broadcast.NewEngine(registry, logger)
	formatter := format.New(cfg.Chat.ProfanityWords, func(name string) bool {
		_, ok := registry.FindByName(name)
		return ok
	})
	authority := admin.NewAuthority(cfg.Admin.Secret, cfg.Admin.TokenTTL, mod, logger)
	logs := admin.NewLogSink()
	reports := admin.NewReportSink()

	dispatcher := dispatch.New(logger, registry, rooms, mod, engine, formatter, authority, logs, reports, dispatch.Options{
		EphemeralDelay: cfg.Chat.EphemeralDelay,
		ClearPolicy:    cfg.Moderation.ClearPolicy,
	})

	app := &App{
		logger:     logger,
		registry:   registry,
		dispatcher: dispatcher,
		config:     cfg,
		ctx:        rootCtx,
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.Chain(
		http.HandlerFunc(app.upgradeHandler),
		middleware.RequestMetadataMiddleware(),
		middleware.NewRequestLogger(logger),
		middleware.NewConnectionLimiter(logger, registry.CountByIP, cfg.Server.MaxConnsPerIP),
	))

	adminAPI := newAdminAPI(logger, authority, logs, reports)
	mux.Handle("/admin/", middleware.Chain(
		adminAPI,
		middleware.RequestMetadataMiddleware(),
		middleware.NewRequestLogger(logger),
		middleware.NewAdminAuth(logger, authority.Verify),
	))

	app.http = &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
		BaseContext: func(l net.Listener) context.Context {
			return app.ctx
		},
	}
	return app
}

func (a *App) Run() error {
	go func() {
		a.logger.Info("Server starting", slog.String("addr", a.http.Addr))
		if err := a.http.ListenAndServe(); err != http.ErrServerClosed {
			a.logger.Error("HTTP server failed", slog.Any("error", err))
		}
	}()

	<-a.ctx.Done()
	return a.Shutdown()
}

func (a *App) upgradeHandler(w http.ResponseWriter, r *http.Request) {
	reqMeta, _ := middleware.ReqMetadataFrom(r.Context())
	connLogger := a.logger.With(slog.String("remoteAddr", reqMeta.IP))

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		a.logger.Error("Failed to accept websocket connection", slog.Any("error", err))
		return
	}

	conn := transport.NewConnection(
		r.Context(),
		&a.wg,
		wsConn,
		transport.ConnectionConfig(a.config.Transport),
		nil,
		nil,
		a.logger,
	)

	limiter := ratelimit.NewWindow(a.config.RateLimit.MaxMessages, a.config.RateLimit.Window)
	sess := a.registry.Register(conn, limiter, reqMeta.IP)

	conn.SetOnMessageHandler(a.dispatcher.HandleMessage)
	conn.SetOnCloseHandler(func(id uuid.UUID, err error) {
		connLogger.Info("Detaching session due to closure", slog.String("connID", id.String()))
		a.dispatcher.HandleDisconnect(id)
	})

	connLogger.Info("Session established", slog.String("sessionID", sess.ID.String()))
	conn.Run()
	<-conn.Done()
}

// Shutdown runs the graceful shutdown sequence.
func (a *App) Shutdown() error {
	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.http.Shutdown(shutdownCtx); err != nil {
		return err
	}

	a.logger.Info("Closing all active connections...")
	for _, s := range a.registry.All() {
		s.Conn.TrySend(protocol.Encode(protocol.System("", "server shutting down")))
		s.Conn.Close(errors.New("graceful shutdown"))
	}

	// wait for all connection goroutines to finish their cleanup.
	a.wg.Wait()
	a.logger.Info("Server shut down gracefully.")
	return nil
}
