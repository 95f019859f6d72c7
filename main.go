// occ — OPT Career Connect API server.
//
// Serves job search and resume analysis for international students plus
// the admin configuration console. Runtime behavior is driven by layered
// settings: database rows override environment variables, which override
// built-in defaults.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/optcareerconnect/occ/internal/admin"
	"github.com/optcareerconnect/occ/internal/config"
	"github.com/optcareerconnect/occ/internal/jobs"
	"github.com/optcareerconnect/occ/internal/resume"
	"github.com/optcareerconnect/occ/internal/webserver"
)

var (
	httpHost = env.Str("HOST", "0.0.0.0")
	httpPort = env.Str("PORT", "3001")

	databaseURL = env.Str("DATABASE_URL", "")
	shortlistDB = env.Str("SHORTLIST_DB", "data/shortlist.db")

	adminPassword = env.Str("ADMIN_PANEL_PASSWORD", "")
	sessionSecret = env.Str("ADMIN_SESSION_SECRET", "")
	encryptionKey = env.Str("ADMIN_ENCRYPTION_KEY", "")

	cacheTTL = env.Duration("SETTINGS_CACHE_TTL", 60*time.Second)
)

func main() {
	slog.Info("starting occ",
		slog.String("host", httpHost),
		slog.String("port", httpPort),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store config.Store
	var pool = connectDatabase(ctx)
	if pool != nil {
		store = config.NewPGStore(pool)
	}

	cipher := config.NewCipher(encryptionKey)
	if !cipher.Configured() {
		slog.Warn("ADMIN_ENCRYPTION_KEY not set; secret settings cannot be saved")
	}

	settings := config.NewService(store, cipher, config.WithCacheTTL(cacheTTL))
	auth := admin.New(adminPassword, sessionSecret, encryptionKey)
	if ready, missing := auth.Readiness(); !ready {
		slog.Warn("admin console not fully configured", slog.Any("missing", missing))
	}

	searcher := jobs.NewSearcher(pool)
	analyzer := resume.NewAnalyzer()

	shortlist, err := jobs.OpenShortlist(shortlistDB)
	if err != nil {
		slog.Warn("shortlist storage unavailable", slog.Any("error", err))
		shortlist = nil
	} else {
		defer shortlist.Close()
	}

	server := webserver.New(webserver.Config{
		Host: httpHost,
		Port: httpPort,
	}, settings, auth, searcher, analyzer, shortlist)

	if err := server.Run(); err != nil {
		slog.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func connectDatabase(ctx context.Context) *pgxpool.Pool {
	if databaseURL == "" {
		slog.Warn("DATABASE_URL not set; running with env/default settings and fallback job data")
		return nil
	}
	pool, err := config.ConnectPool(ctx, databaseURL)
	if err != nil {
		slog.Warn("database connection failed; running degraded", slog.Any("error", err))
		return nil
	}
	return pool
}
