package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/liveshop/internal/adapter/httpserver"
	"github.com/pscheid92/liveshop/internal/adapter/postgres"
	"github.com/pscheid92/liveshop/internal/adapter/redis"
	"github.com/pscheid92/liveshop/internal/adapter/websocket"
	"github.com/pscheid92/liveshop/internal/app"
	"github.com/pscheid92/liveshop/internal/casting"
	"github.com/pscheid92/liveshop/internal/catalog"
	"github.com/pscheid92/liveshop/internal/chat"
	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/eventchannel"
	"github.com/pscheid92/liveshop/internal/metrics"
	"github.com/pscheid92/liveshop/internal/overlay"
	"github.com/pscheid92/liveshop/internal/platform/config"
	"github.com/pscheid92/liveshop/internal/platform/logging"
	"github.com/pscheid92/liveshop/internal/platform/retry"
	"github.com/pscheid92/liveshop/internal/platform/version"
	"github.com/pscheid92/liveshop/internal/reaction"
)

const (
	startupTimeout      = 30 * time.Second
	shutdownTimeout     = 10 * time.Second
	cacheEvictionPeriod = time.Minute
)

type metricSet struct {
	events    *metrics.EventMetrics
	overlay   *metrics.OverlayMetrics
	chat      *metrics.ChatMetrics
	reactions *metrics.ReactionMetrics
	lookup    *metrics.LookupMetrics
	redis     *metrics.RedisMetrics
	http      *metrics.HTTPMetrics
	websocket *metrics.WebSocketMetrics
}

func newMetricSet(reg prometheus.Registerer) metricSet {
	return metricSet{
		events:    metrics.NewEventMetrics(reg),
		overlay:   metrics.NewOverlayMetrics(reg),
		chat:      metrics.NewChatMetrics(reg),
		reactions: metrics.NewReactionMetrics(reg),
		lookup:    metrics.NewLookupMetrics(reg),
		redis:     metrics.NewRedisMetrics(reg),
		http:      metrics.NewHTTPMetrics(reg),
		websocket: metrics.NewWebSocketMetrics(reg),
	}
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// slog is not configured yet
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// startupPolicy retries backing services that come up together with us.
func startupPolicy(clock clockwork.Clock, what string) retry.Policy {
	return retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     8 * time.Second,
		Clock:          clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Backing service not ready, retrying", "service", what, "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
}

func alwaysRetry(error) retry.Action { return retry.Retry }

func setupDB(ctx context.Context, cfg *config.Config, clock clockwork.Clock) *pgxpool.Pool {
	pool, err := retry.Do(ctx, startupPolicy(clock, "postgres"), alwaysRetry, func() (*pgxpool.Pool, error) {
		return postgres.Connect(ctx, cfg.DatabaseURL)
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config, clock clockwork.Clock, m *metrics.RedisMetrics) *goredis.Client {
	client, err := retry.Do(ctx, startupPolicy(clock, "redis"), alwaysRetry, func() (*goredis.Client, error) {
		return redis.NewClient(ctx, cfg.RedisURL, m)
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

// buildLookup picks the product catalog backend: Postgres, fronted by Redis
// when available, or nothing at all.
func buildLookup(pool *pgxpool.Pool, rdb *goredis.Client, cfg *config.Config, m *metrics.LookupMetrics) domain.ProductLookup {
	if pool == nil {
		slog.Warn("DATABASE_URL not set, product spotlights will show their fallback payload")
		return catalog.UnavailableLookup{}
	}

	var lookup domain.ProductLookup = postgres.NewProductRepo(pool)
	if rdb != nil {
		lookup = redis.NewProductCache(rdb, lookup, cfg.RedisCacheTTL, m)
	}
	return lookup
}

func buildTransport(cfg *config.Config, rdb *goredis.Client) eventchannel.Transport {
	if cfg.EventSource == config.EventSourceWebSocket {
		return websocket.NewEventTransport(cfg.EventWSURL, nil, websocket.WithPongWait(cfg.EventWSPongWait))
	}
	return redis.NewEventTransport(rdb, cfg.EventChannel)
}

func chatProfile(cfg *config.Config) chat.Profile {
	profile := chat.VerticalProfile
	if cfg.ChatProfile == config.ChatProfileFullscreen {
		profile = chat.FullscreenProfile
	}
	if cfg.ChatMinInterval > 0 {
		profile.MinInterval = cfg.ChatMinInterval
	}
	if cfg.ChatMaxInterval > 0 {
		profile.MaxInterval = cfg.ChatMaxInterval
	}
	if cfg.ViewerFloor > 0 {
		profile.ViewerFloor = cfg.ViewerFloor
	}
	return profile
}

func setupNode(cfg *config.Config, m *metrics.WebSocketMetrics) *centrifuge.Node {
	node, err := websocket.NewNode(cfg.ShowID, m, cfg.LogLevel)
	if err != nil {
		slog.Error("Failed to create realtime node", "error", err)
		os.Exit(1)
	}

	if cfg.RedisURL != "" {
		if err := websocket.SetupRedis(node, cfg.RedisURL); err != nil {
			slog.Error("Failed to set up realtime Redis broker", "error", err)
			os.Exit(1)
		}
	}

	if err := node.Run(); err != nil {
		slog.Error("Failed to start realtime node", "error", err)
		os.Exit(1)
	}
	return node
}

func healthChecks(pool *pgxpool.Pool, rdb *goredis.Client, show *app.Show) []httpserver.HealthCheck {
	var checks []httpserver.HealthCheck
	if rdb != nil {
		checks = append(checks, httpserver.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	if pool != nil {
		checks = append(checks, httpserver.HealthCheck{Name: "postgres", Check: pool.Ping})
	}
	checks = append(checks, httpserver.HealthCheck{Name: "event_channel", Check: func(context.Context) error {
		if !show.EventsConnected() {
			return errors.New("event channel not connected")
		}
		return nil
	}})
	return checks
}

func runGracefulShutdown(srv *httpserver.Server, show *app.Show, node *centrifuge.Node, stopPublishing context.CancelFunc) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		stopPublishing()
		show.Stop()

		if err := node.Shutdown(ctx); err != nil {
			slog.Error("Realtime node shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "version", version.Get().String(), "env", cfg.AppEnv, "port", cfg.Port, "show_id", cfg.ShowID)

	reg := metrics.NewRegistry()
	m := newMetricSet(reg)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), startupTimeout)
	defer cancelStartup()

	var rdb *goredis.Client
	if cfg.RedisURL != "" {
		rdb = setupRedis(startupCtx, cfg, clock, m.redis)
		defer func() { _ = rdb.Close() }()
	}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool = setupDB(startupCtx, cfg, clock)
		defer pool.Close()
	}

	productCache := catalog.NewProductCache(cfg.LookupCacheTTL, clock)
	stopEviction := productCache.StartEvictionTimer(cacheEvictionPeriod)
	defer stopEviction()
	resolver := catalog.NewResolver(buildLookup(pool, rdb, cfg, m.lookup), productCache, clock, m.lookup)

	events := eventchannel.NewClient(buildTransport(cfg, rdb), clock, m.events, eventchannel.Options{
		InitialBackoff: cfg.ReconnectInitialBackoff,
		MaxBackoff:     cfg.ReconnectMaxBackoff,
	})

	castingSession := casting.NewSession()
	show := app.NewShow(cfg.ShowID, clock, app.Components{
		Events:    events,
		Overlay:   overlay.NewController(clock, castingSession, m.overlay),
		Chat:      chat.NewEngine(clock, chatProfile(cfg), m.chat),
		Reactions: reaction.NewTracker(clock, m.reactions, reaction.WithMaxActive(cfg.MaxActiveReactions)),
		Casting:   castingSession,
		Spotlight: catalog.NewSpotlight(resolver, cfg.LookupTimeout),
	})

	node := setupNode(cfg, m.websocket)

	runCtx, stopPublishing := context.WithCancel(context.Background())
	defer stopPublishing()

	show.Start(runCtx)
	ticker := app.NewSnapshotTicker(show, websocket.NewPublisher(node), clock, cfg.PublishInterval, m.websocket)
	go ticker.Run(runCtx)

	realtime := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		CheckOrigin: websocket.NewCheckOrigin(cfg.AppURL, !cfg.IsProduction()),
	})

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		Show:         show,
		Realtime:     realtime,
		Metrics:      metrics.Handler(reg),
		HTTPMetrics:  m.http,
		HealthChecks: healthChecks(pool, rdb, show),
	})

	done := runGracefulShutdown(srv, show, node, stopPublishing)

	if err := srv.Start(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
