package eventchannel

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/metrics"
	"github.com/pscheid92/liveshop/internal/observe"
	"github.com/pscheid92/liveshop/internal/platform/correlation"
	"github.com/pscheid92/liveshop/internal/platform/retry"
)

const (
	DefaultInitialBackoff = 500 * time.Millisecond
	DefaultMaxBackoff     = 30 * time.Second
)

// Transport opens streams of raw event payloads.
type Transport interface {
	Open(ctx context.Context) (Stream, error)
	Name() string
}

// Stream yields payloads until it fails or ctx is done. Receive must return
// promptly once ctx is cancelled.
type Stream interface {
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

type Options struct {
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

type Client struct {
	transport Transport
	clock     clockwork.Clock
	metrics   *metrics.EventMetrics
	opts      Options

	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
	latest    map[domain.EventKind]domain.LiveEvent

	subs observe.Subscribers[domain.LiveEvent]
}

func NewClient(transport Transport, clock clockwork.Clock, m *metrics.EventMetrics, opts Options) *Client {
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if opts.MaxBackoff < opts.InitialBackoff {
		opts.MaxBackoff = max(DefaultMaxBackoff, opts.InitialBackoff)
	}

	return &Client{
		transport: transport,
		clock:     clock,
		metrics:   m,
		opts:      opts,
		latest:    make(map[domain.EventKind]domain.LiveEvent),
	}
}

// Connect starts the receive loop. It returns immediately; calling it while
// already connected is a no-op. The loop stops on Disconnect or when ctx is
// done; after that Connect starts a fresh loop.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	slog.Info("Event channel connecting", "transport", c.transport.Name())
	go c.run(loopCtx, c.done)
}

// Disconnect stops the receive loop and waits for it to exit. Safe to call
// when not connected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
	slog.Info("Event channel disconnected", "transport", c.transport.Name())
}

// release forgets the loop owning done so a later Connect can start a new
// one. A concurrent Disconnect has already cleared it.
func (c *Client) release(done chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done != done {
		return
	}
	c.cancel()
	c.cancel, c.done = nil, nil
}

// Connected reports whether a stream is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Latest returns the most recent event of the given kind.
func (c *Client) Latest(kind domain.EventKind) (domain.LiveEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.latest[kind]
	return e, ok
}

// Subscribe registers fn for every decoded event. fn runs on the receive
// goroutine and should not block.
func (c *Client) Subscribe(fn domain.EventSubscriber) (unsubscribe func()) {
	return c.subs.Subscribe(fn)
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.release(done)

	backoff := retry.NewBackoff(c.opts.InitialBackoff, c.opts.MaxBackoff)

	for {
		stream, err := c.transport.Open(ctx)
		if err == nil {
			backoff.Reset()
			c.setConnected(true)
			slog.Info("Event channel connected", "transport", c.transport.Name())

			err = c.consume(ctx, stream)

			c.setConnected(false)
			if closeErr := stream.Close(); closeErr != nil {
				slog.Debug("Event stream close failed", "error", closeErr)
			}
		}

		if ctx.Err() != nil {
			return
		}

		wait := backoff.Next()
		c.metrics.Reconnects.Inc()
		slog.Warn("Event channel unavailable, retrying", "transport", c.transport.Name(), "error", err, "backoff", wait)

		if err := retry.Sleep(ctx, c.clock, wait); err != nil {
			return
		}
	}
}

func (c *Client) consume(ctx context.Context, stream Stream) error {
	for {
		payload, err := stream.Receive(ctx)
		if err != nil {
			return err
		}
		c.handle(ctx, payload)
	}
}

func (c *Client) handle(ctx context.Context, payload []byte) {
	ctx = correlation.WithID(ctx, correlation.NewID())

	event, err := Decode(payload)
	if err != nil {
		reason := dropReason(err)
		c.metrics.Dropped.WithLabelValues(reason).Inc()
		slog.WarnContext(ctx, "Dropping event payload", "reason", reason, "error", err, "bytes", len(payload))
		return
	}

	c.mu.Lock()
	c.latest[event.Kind()] = event
	c.mu.Unlock()

	c.metrics.Received.WithLabelValues(string(event.Kind())).Inc()
	slog.DebugContext(ctx, "Event received", "kind", event.Kind(), "event_id", event.EventID())

	c.subs.Notify(event)
}

func (c *Client) setConnected(connected bool) {
	c.mu.Lock()
	c.connected = connected
	c.mu.Unlock()

	if connected {
		c.metrics.Connected.Set(1)
	} else {
		c.metrics.Connected.Set(0)
	}
}

// ErrStreamClosed is returned by streams whose remote end went away cleanly.
var ErrStreamClosed = errors.New("event stream closed")
