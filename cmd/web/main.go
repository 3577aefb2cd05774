// cmd/web/main.go
//
// widgetkit – HTTP entry point.
//
// Boot sequence
// -------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Resolve configuration.  When VAULT_ADDR is set a Vault client is
//     started first so `vault:` references in YAML resolve at load time.
//
//  3. Start daily rotating logger (tees to console when running in a TTY).
//
//  4. Build the schema registry: built-in widget catalog, then YAML
//     declarations from widgets.dir.
//
//  5. Optional session journal (MySQL) and NATS fanout of remote
//     invocations.
//
//  6. Session manager + evictor, session server, and graceful shutdown on
//     SIGINT/SIGTERM.  Shutdown tears every live session down, so
//     session_destroyed callbacks run before the process exits.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/widgetkit/internal/config"
	"github.com/yanizio/widgetkit/internal/database"
	"github.com/yanizio/widgetkit/internal/lifecycle"
	"github.com/yanizio/widgetkit/internal/logger"
	"github.com/yanizio/widgetkit/internal/remote"
	"github.com/yanizio/widgetkit/internal/schema"
	"github.com/yanizio/widgetkit/internal/secrets"
	"github.com/yanizio/widgetkit/internal/server"
	"github.com/yanizio/widgetkit/internal/session"
	"github.com/yanizio/widgetkit/internal/sessionlog"
	"github.com/yanizio/widgetkit/internal/widget"

	_ "github.com/yanizio/widgetkit/apps/buttons" // demo app
)

const serverEnvPath = "/usr/local/etc/widgetkit/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//
	// ── 1.  Config (+ Vault) ────────────────────────────────────────────
	//
	var opts []config.Option
	if os.Getenv("VAULT_ADDR") != "" {
		sec, err := secrets.New(ctx)
		if err != nil {
			log.Fatalf("vault: %v", err)
		}
		opts = append(opts, config.WithSecrets(sec))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logOut, err := logger.New(cfg.Log.Dir, cfg.Log.Level, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}
	defer func() { _ = logOut.Sync() }()

	//
	// ── 2.  Schema registry ─────────────────────────────────────────────
	//
	reg := schema.New()
	if err := widget.Install(reg); err != nil {
		logOut.Fatalf("install widget catalog: %v", err)
	}
	if cfg.Widgets.Dir != "" {
		nodes, err := reg.LoadDir(cfg.Widgets.Dir)
		if err != nil {
			logOut.Fatalf("load widget declarations: %v", err)
		}
		logOut.Infow("widget declarations loaded", "dir", cfg.Widgets.Dir, "types", len(nodes))
	}

	//
	// ── 3.  Session journal (optional) ──────────────────────────────────
	//
	mgrOpts := session.Options{
		IdleTTL:       cfg.Session.IdleTTL,
		MaxSessions:   cfg.Session.MaxSessions,
		EvictInterval: cfg.Session.EvictInterval,
	}
	srvOpts := server.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		SendBuffer:       cfg.Session.SendBuffer,
		ReadLimit:        cfg.Session.ReadLimit,
		KeepOnDisconnect: cfg.Session.KeepOnDisconnect,
	}

	if dsn := cfg.DatabaseDSN(); dsn != "" {
		db, err := database.OpenWithOptions(dsn, database.Pool{
			MaxOpen: cfg.Database.MaxOpen,
			MaxIdle: cfg.Database.MaxIdle,
		})
		if err != nil {
			logOut.Fatalf("connect journal DB: %v", err)
		}
		defer db.Close()

		store := sessionlog.New(db)
		if cfg.Database.Migrate {
			if err := store.Migrate(ctx); err != nil {
				logOut.Fatalf("migrate journal: %v", err)
			}
		}
		mgrOpts.Journal = store
		srvOpts.History = store.Recent
		logOut.Infow("session journal online")
	}

	//
	// ── 4.  NATS fanout (optional) ──────────────────────────────────────
	//
	if cfg.Remote.NATSURL != "" {
		nc, err := remote.Connect(cfg.Remote.NATSURL, "widgetkit")
		if err != nil {
			logOut.Fatalf("nats: %v", err)
		}
		defer drain(nc)

		prefix := cfg.Remote.SubjectPrefix
		srvOpts.Fanout = func(id string) remote.Executor {
			return remote.NewNATS(nc, prefix, id)
		}
		logOut.Infow("nats fanout online", "subjects", remote.Subject(prefix, "*"))
	}

	//
	// ── 5.  Sessions and HTTP ───────────────────────────────────────────
	//
	mgr := session.NewManager(reg, lifecycle.NewDispatcher(), mgrOpts)
	srv := server.New(mgr, reg, srvOpts)
	httpSrv := server.NewHTTP(cfg.HTTP.ListenAddr, srv.Routes(), server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error { return mgr.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		zap.S().Errorw("server stopped", "err", err)
		os.Exit(1)
	}
	logOut.Infow("server stopped")
}

// drain flushes pending invocations before the process exits.
func drain(nc *nats.Conn) {
	if err := nc.Drain(); err != nil {
		zap.S().Warnw("nats drain", "err", err)
	}
}
