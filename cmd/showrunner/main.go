// Command showrunner drives a show from the operator side. It publishes live
// events to the event channel and can seed the product catalog.
//
// Events are read as JSON lines, one {"type": ..., "data": ...} envelope per
// line. Products are read as JSON lines matching postgres.ProductRow.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pscheid92/liveshop/internal/adapter/postgres"
	"github.com/pscheid92/liveshop/internal/adapter/redis"
	"github.com/pscheid92/liveshop/internal/eventchannel"
	"github.com/pscheid92/liveshop/internal/platform/logging"
)

const maxLineBytes = 1 << 20

type publishFunc func(ctx context.Context, payload []byte) (int64, error)

type upsertFunc func(ctx context.Context, row postgres.ProductRow) error

type publishStats struct {
	Published int
	Skipped   int
}

func main() {
	var (
		redisURL    = flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL (or set REDIS_URL env)")
		channel     = flag.String("channel", envOr("EVENT_CHANNEL", "liveshop:events"), "event channel to publish to")
		eventsPath  = flag.String("events", "-", "event file, - for stdin")
		delay       = flag.Duration("delay", 0, "pause between published events")
		skipInvalid = flag.Bool("skip-invalid", false, "skip events that fail validation instead of aborting")
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL for seeding products")
		seedPath    = flag.String("seed-products", "", "product file to upsert before publishing")
		verbose     = flag.Bool("verbose", false, "verbose logging")
	)
	flag.Parse()

	level := "info"
	if *verbose {
		level = "debug"
	}
	logging.InitLogger(level, "text")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *seedPath != "" {
		if err := runSeed(ctx, *databaseURL, *seedPath); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	if *redisURL == "" {
		if *seedPath != "" {
			return
		}
		log.Fatal("Redis URL required (--redis or REDIS_URL env)")
	}

	opts, err := goredis.ParseURL(*redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	rdb := goredis.NewClient(opts)
	defer func() { _ = rdb.Close() }()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	slog.Info("Connected to Redis", "channel", *channel)

	in, closeIn, err := openInput(*eventsPath)
	if err != nil {
		log.Fatalf("Failed to open events: %v", err)
	}
	defer closeIn()

	publish := func(ctx context.Context, payload []byte) (int64, error) {
		return redis.Publish(ctx, rdb, *channel, payload)
	}

	stats, err := publishEvents(ctx, in, publish, clockwork.NewRealClock(), *delay, *skipInvalid)
	if err != nil {
		log.Fatalf("Publishing failed after %d events: %v", stats.Published, err)
	}
	slog.Info("Done", "published", stats.Published, "skipped", stats.Skipped)
}

func runSeed(ctx context.Context, databaseURL, path string) error {
	if databaseURL == "" {
		return errors.New("database URL required for seeding (--database or DATABASE_URL env)")
	}

	pool, err := postgres.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		return err
	}

	in, closeIn, err := openInput(path)
	if err != nil {
		return err
	}
	defer closeIn()

	n, err := seedProducts(ctx, in, postgres.NewProductRepo(pool).Upsert)
	if err != nil {
		return err
	}
	slog.Info("Products seeded", "count", n)
	return nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// publishEvents validates and publishes each non-blank line of r. Lines
// starting with # are comments.
func publishEvents(ctx context.Context, r io.Reader, publish publishFunc, clock clockwork.Clock, delay time.Duration, skipInvalid bool) (publishStats, error) {
	var stats publishStats
	first := true

	err := eachLine(r, func(lineNo int, line []byte) error {
		event, err := eventchannel.Decode(line)
		if err != nil {
			if skipInvalid {
				slog.Warn("Skipping invalid event", "line", lineNo, "error", err)
				stats.Skipped++
				return nil
			}
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		if !first && delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clock.After(delay):
			}
		}
		first = false

		receivers, err := publish(ctx, line)
		if err != nil {
			return fmt.Errorf("line %d: publish: %w", lineNo, err)
		}
		stats.Published++
		slog.Info("Event published", "kind", event.Kind(), "event_id", event.EventID(), "receivers", receivers)
		return nil
	})
	return stats, err
}

func seedProducts(ctx context.Context, r io.Reader, upsert upsertFunc) (int, error) {
	count := 0
	err := eachLine(r, func(lineNo int, line []byte) error {
		var row postgres.ProductRow
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		if row.Ref == "" || row.Name == "" {
			return fmt.Errorf("line %d: ref and name are required", lineNo)
		}
		if err := upsert(ctx, row); err != nil {
			return fmt.Errorf("line %d: upsert %s: %w", lineNo, row.Ref, err)
		}
		count++
		return nil
	})
	return count, err
}

func eachLine(r io.Reader, fn func(lineNo int, line []byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(lineNo, []byte(line)); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
