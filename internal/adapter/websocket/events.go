package websocket

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pscheid92/liveshop/internal/eventchannel"
)

const (
	handshakeTimeout = 10 * time.Second
	maxFrameSize     = 64 * 1024

	DefaultPongWait = 60 * time.Second
	pingWriteWait   = 10 * time.Second
)

// EventTransport reads live events from a WebSocket endpoint, one JSON
// payload per text frame.
type EventTransport struct {
	url      string
	header   http.Header
	dialer   *websocket.Dialer
	pongWait time.Duration
}

var _ eventchannel.Transport = (*EventTransport)(nil)

type TransportOption func(*EventTransport)

// WithPongWait sets how long the stream may stay silent before it is treated
// as dead. Pings go out at 9/10 of that interval.
func WithPongWait(d time.Duration) TransportOption {
	return func(t *EventTransport) { t.pongWait = d }
}

func NewEventTransport(url string, header http.Header, opts ...TransportOption) *EventTransport {
	t := &EventTransport{
		url:    url,
		header: header,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		pongWait: DefaultPongWait,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.pongWait <= 0 {
		t.pongWait = DefaultPongWait
	}
	return t
}

func (t *EventTransport) Name() string { return "websocket" }

func (t *EventTransport) Open(ctx context.Context) (eventchannel.Stream, error) {
	conn, resp, err := t.dialer.DialContext(ctx, t.url, t.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.url, err)
	}
	conn.SetReadLimit(maxFrameSize)

	s := &eventStream{conn: conn, pongWait: t.pongWait, stop: make(chan struct{})}
	s.configurePongHandler()
	s.wg.Add(1)
	go s.pingLoop()
	return s, nil
}

type eventStream struct {
	conn     *websocket.Conn
	pongWait time.Duration

	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// configurePongHandler arms the read deadline. Any frame or pong pushes it
// out again, so a peer that goes silent fails the next read.
func (s *eventStream) configurePongHandler() {
	s.updateReadDeadline()
	s.conn.SetPongHandler(func(string) error {
		s.updateReadDeadline()
		return nil
	})
}

func (s *eventStream) updateReadDeadline() {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.pongWait))
}

func (s *eventStream) pingLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.pongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(pingWriteWait)); err != nil {
				return
			}
		}
	}
}

// Receive blocks for the next text frame. Cancelling ctx closes the
// connection, which is the only way to interrupt a blocked read. A peer that
// answers neither frames nor pings within the pong wait fails the read.
func (s *eventStream) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, eventchannel.ErrStreamClosed
			}
			return nil, fmt.Errorf("read frame: %w", err)
		}
		s.updateReadDeadline()
		if kind == websocket.TextMessage {
			return data, nil
		}
	}
}

func (s *eventStream) Close() error {
	s.closeOnce.Do(func() { close(s.stop) })
	defer s.wg.Wait()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
