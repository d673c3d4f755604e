package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/sourcemeter/server/internal/api/handlers"
	"github.com/sourcemeter/server/internal/api/middleware"
	"github.com/sourcemeter/server/internal/config"
	"github.com/sourcemeter/server/internal/domain/scoring"
	"github.com/sourcemeter/server/internal/domain/snapshots"
	"github.com/sourcemeter/server/internal/domain/sources"
	"github.com/sourcemeter/server/internal/metrics"
	"github.com/sourcemeter/server/internal/storage/postgres"
	"github.com/sourcemeter/server/internal/telemetry"
	"github.com/sourcemeter/server/internal/worker"
)

// BuildInfo carries ldflags-injected build metadata into the API surface.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// Server owns the HTTP surface and its backing connection pool.
type Server struct {
	handler http.Handler
	pool    *pgxpool.Pool
}

// NewServer connects to the database, wires the domain services, and builds
// the routed handler with the full middleware chain.
func NewServer(ctx context.Context, cfg config.Config, logger zerolog.Logger, build BuildInfo) (*Server, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	poolCfg.MinConns = int32(cfg.Database.MaxIdle)

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("repository init failed: %w", err)
	}

	tables := scoring.DefaultTables()
	if cfg.Scoring.TablesPath != "" {
		tables, err = scoring.LoadTables(cfg.Scoring.TablesPath)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("load scoring tables: %w", err)
		}
	}

	tracer := telemetry.GetTracer("github.com/sourcemeter/server/internal/domain/snapshots")
	meter := scoring.NewMeter(tables, repo.Evidence(), logger)
	sourceSvc := sources.NewService(repo.Sources(), logger)
	snapshotSvc := snapshots.NewService(repo.Snapshots(), logger, tracer, nil)
	batchWorker := worker.New(repo, meter, sourceSvc, logger)

	reliability := handlers.NewReliabilityHandler(snapshotSvc, batchWorker, cfg.Environment)
	stats := handlers.NewStatsHandler(snapshotSvc, cfg.Environment)

	// One limiter store shared by every route; the tier tag must be applied
	// before the limiter reads it.
	rateLimit := middleware.RateLimit(cfg.RateLimit)
	public := func(h http.Handler) http.Handler {
		return rateLimit(h)
	}
	admin := func(h http.Handler) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierAdmin)(
			rateLimit(middleware.AdminAuth(cfg.Admin.TokenHash, cfg.Environment)(h)))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(pool))
	mux.Handle("/version", VersionHandler(build.Version, build.GitCommit, build.BuildDate))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/v1/reliability/top", metrics.InstrumentHandler("/api/v1/reliability/top",
		public(methodMux(map[string]http.Handler{
			http.MethodPost: http.HandlerFunc(reliability.TopK),
		}))))
	mux.Handle("/api/v1/reliability/comparison", metrics.InstrumentHandler("/api/v1/reliability/comparison",
		public(methodMux(map[string]http.Handler{
			http.MethodGet: http.HandlerFunc(reliability.Comparison),
		}))))
	mux.Handle("/api/v1/reliability/refresh", metrics.InstrumentHandler("/api/v1/reliability/refresh",
		admin(methodMux(map[string]http.Handler{
			http.MethodPost: http.HandlerFunc(reliability.Refresh),
		}))))
	mux.Handle("/api/v1/stats", metrics.InstrumentHandler("/api/v1/stats",
		public(methodMux(map[string]http.Handler{
			http.MethodGet: http.HandlerFunc(stats.Stats),
		}))))

	var handler http.Handler = mux
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(logger)(handler)

	return &Server{handler: handler, pool: pool}, nil
}

// Handler returns the fully-wired HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close releases the connection pool.
func (s *Server) Close() {
	s.pool.Close()
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
