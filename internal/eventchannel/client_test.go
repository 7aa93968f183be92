package eventchannel

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/pscheid92/liveshop/internal/domain"
	"github.com/pscheid92/liveshop/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

type openResult struct {
	stream *fakeStream
	err    error
}

// fakeTransport hands out whatever the test pushes into next, one per Open.
type fakeTransport struct {
	next  chan openResult
	opens atomic.Int32
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{next: make(chan openResult)}
}

func (t *fakeTransport) Name() string { return "fake" }

func (t *fakeTransport) Open(ctx context.Context) (Stream, error) {
	t.opens.Add(1)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-t.next:
		if r.err != nil {
			return nil, r.err
		}
		return r.stream, nil
	}
}

type fakeStream struct {
	payloads chan []byte
	errs     chan error
	closed   atomic.Bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{payloads: make(chan []byte), errs: make(chan error)}
}

func (s *fakeStream) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p := <-s.payloads:
		return p, nil
	case err := <-s.errs:
		return nil, err
	}
}

func (s *fakeStream) Close() error {
	s.closed.Store(true)
	return nil
}

type recorder struct {
	mu     sync.Mutex
	events []domain.LiveEvent
}

func (r *recorder) record(e domain.LiveEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.events))
	for _, e := range r.events {
		ids = append(ids, e.EventID())
	}
	return ids
}

func newTestClient(t *testing.T, transport Transport, clock clockwork.Clock) (*Client, *metrics.EventMetrics) {
	t.Helper()
	m := metrics.NewEventMetrics(prometheus.NewRegistry())
	c := NewClient(transport, clock, m, Options{})
	t.Cleanup(c.Disconnect)
	return c, m
}

func pollPayload(id string) []byte {
	return []byte(`{"type":"poll","data":{"id":"` + id + `","question":"q","options":[{"label":"a"}],"durationSeconds":10}}`)
}

func TestClient_RelaysDecodedEvents(t *testing.T) {
	transport := newFakeTransport()
	client, m := newTestClient(t, transport, clockwork.NewFakeClock())

	rec := &recorder{}
	client.Subscribe(rec.record)
	client.Connect(context.Background())

	stream := newFakeStream()
	transport.next <- openResult{stream: stream}
	stream.payloads <- pollPayload("p1")
	stream.payloads <- []byte(`{"type":"product","data":{"id":"x1","productRef":7}}`)

	assert.Eventually(t, func() bool { return len(rec.ids()) == 2 }, waitFor, tick)
	assert.Equal(t, []string{"p1", "x1"}, rec.ids())
	assert.True(t, client.Connected())

	latest, ok := client.Latest(domain.KindPoll)
	require.True(t, ok)
	assert.Equal(t, "p1", latest.EventID())

	_, ok = client.Latest(domain.KindContest)
	assert.False(t, ok)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Received.WithLabelValues("poll")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Connected), 0)
}

func TestClient_LatestKeepsLastEventPerKind(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, clockwork.NewFakeClock())
	client.Connect(context.Background())

	stream := newFakeStream()
	transport.next <- openResult{stream: stream}
	stream.payloads <- pollPayload("p1")
	stream.payloads <- pollPayload("p2")

	assert.Eventually(t, func() bool {
		e, ok := client.Latest(domain.KindPoll)
		return ok && e.EventID() == "p2"
	}, waitFor, tick)
}

func TestClient_DropsMalformedPayloads(t *testing.T) {
	transport := newFakeTransport()
	client, m := newTestClient(t, transport, clockwork.NewFakeClock())

	rec := &recorder{}
	client.Subscribe(rec.record)
	client.Connect(context.Background())

	stream := newFakeStream()
	transport.next <- openResult{stream: stream}
	stream.payloads <- []byte(`garbage`)
	stream.payloads <- []byte(`{"type":"quiz","data":{"id":"q"}}`)
	stream.payloads <- []byte(`{"type":"poll","data":{"id":"p0"}}`)
	stream.payloads <- pollPayload("p1")

	assert.Eventually(t, func() bool { return len(rec.ids()) == 1 }, waitFor, tick)
	assert.Equal(t, []string{"p1"}, rec.ids())
	assert.True(t, client.Connected(), "drops must not break the stream")

	assert.InDelta(t, 1, testutil.ToFloat64(m.Dropped.WithLabelValues("malformed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Dropped.WithLabelValues("unknown_kind")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Dropped.WithLabelValues("invalid")), 0)
}

func TestClient_ReconnectsWithBackoff(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	transport := newFakeTransport()
	client, m := newTestClient(t, transport, clock)
	client.Connect(context.Background())

	// First dial fails: the client waits the initial backoff on the clock.
	transport.next <- openResult{err: errors.New("connection refused")}
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int32(1), transport.opens.Load())

	clock.Advance(DefaultInitialBackoff)

	stream := newFakeStream()
	transport.next <- openResult{stream: stream}
	assert.Eventually(t, client.Connected, waitFor, tick)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Reconnects), 0)

	// The stream breaks: backoff restarts from the initial delay.
	stream.errs <- io.ErrUnexpectedEOF
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.False(t, client.Connected())
	assert.True(t, stream.closed.Load())

	clock.Advance(DefaultInitialBackoff - time.Millisecond)
	assert.Equal(t, int32(2), transport.opens.Load())

	clock.Advance(time.Millisecond)
	second := newFakeStream()
	transport.next <- openResult{stream: second}
	assert.Eventually(t, client.Connected, waitFor, tick)
	assert.Equal(t, int32(3), transport.opens.Load())
}

func TestClient_BackoffGrowsWhileDialsFail(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clock := clockwork.NewFakeClock()
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, clock)
	client.Connect(context.Background())

	for _, wait := range []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second} {
		transport.next <- openResult{err: errors.New("refused")}
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(wait)
	}

	stream := newFakeStream()
	transport.next <- openResult{stream: stream}
	assert.Eventually(t, client.Connected, waitFor, tick)
}

func TestClient_ConnectAndDisconnectAreIdempotent(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, clockwork.NewFakeClock())

	assert.NotPanics(t, client.Disconnect, "disconnect before connect")

	client.Connect(context.Background())
	client.Connect(context.Background())

	stream := newFakeStream()
	transport.next <- openResult{stream: stream}
	assert.Eventually(t, client.Connected, waitFor, tick)
	assert.Equal(t, int32(1), transport.opens.Load())

	client.Disconnect()
	client.Disconnect()

	assert.False(t, client.Connected())
	assert.True(t, stream.closed.Load())
}

func TestClient_ReconnectAfterDisconnect(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, clockwork.NewFakeClock())

	client.Connect(context.Background())
	transport.next <- openResult{stream: newFakeStream()}
	assert.Eventually(t, client.Connected, waitFor, tick)
	client.Disconnect()

	client.Connect(context.Background())
	transport.next <- openResult{stream: newFakeStream()}
	assert.Eventually(t, client.Connected, waitFor, tick)
	assert.Equal(t, int32(2), transport.opens.Load())
}

func TestClient_UnsubscribeStopsDelivery(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, clockwork.NewFakeClock())

	rec := &recorder{}
	unsubscribe := client.Subscribe(rec.record)
	client.Connect(context.Background())

	stream := newFakeStream()
	transport.next <- openResult{stream: stream}
	stream.payloads <- pollPayload("p1")
	assert.Eventually(t, func() bool { return len(rec.ids()) == 1 }, waitFor, tick)

	unsubscribe()
	stream.payloads <- pollPayload("p2")
	assert.Eventually(t, func() bool {
		e, ok := client.Latest(domain.KindPoll)
		return ok && e.EventID() == "p2"
	}, waitFor, tick)
	assert.Equal(t, []string{"p1"}, rec.ids())
}

func TestClient_ConnectAgainAfterParentContextEnds(t *testing.T) {
	transport := newFakeTransport()
	client, _ := newTestClient(t, transport, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	client.Connect(ctx)
	stream := newFakeStream()
	transport.next <- openResult{stream: stream}
	assert.Eventually(t, client.Connected, waitFor, tick)

	cancel()
	assert.Eventually(t, func() bool { return !client.Connected() && stream.closed.Load() }, waitFor, tick)
	assert.Eventually(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.cancel == nil && client.done == nil
	}, waitFor, tick, "the finished loop is forgotten")

	client.Connect(context.Background())
	transport.next <- openResult{stream: newFakeStream()}
	assert.Eventually(t, client.Connected, waitFor, tick)
	assert.Equal(t, int32(2), transport.opens.Load())
}
