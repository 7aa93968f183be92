package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/pscheid92/liveshop/internal/eventchannel"
	goredis "github.com/redis/go-redis/v9"
)

// EventTransport receives live events published on a Redis pub/sub channel,
// one JSON payload per message.
type EventTransport struct {
	rdb     *goredis.Client
	channel string
}

var _ eventchannel.Transport = (*EventTransport)(nil)

func NewEventTransport(rdb *goredis.Client, channel string) *EventTransport {
	return &EventTransport{rdb: rdb, channel: channel}
}

func (t *EventTransport) Name() string { return "redis" }

// Open subscribes and waits for the server to confirm the subscription.
func (t *EventTransport) Open(ctx context.Context) (eventchannel.Stream, error) {
	sub := t.rdb.Subscribe(ctx, t.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", t.channel, err)
	}
	return &pubsubStream{sub: sub}, nil
}

type pubsubStream struct {
	sub *goredis.PubSub
}

// Receive waits for the next message. go-redis only honours context
// deadlines on a blocked read, so cancellation closes the subscription.
func (s *pubsubStream) Receive(ctx context.Context) ([]byte, error) {
	stop := context.AfterFunc(ctx, func() { _ = s.sub.Close() })
	defer stop()

	msg, err := s.sub.ReceiveMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, goredis.ErrClosed) {
			return nil, eventchannel.ErrStreamClosed
		}
		return nil, fmt.Errorf("receive message: %w", err)
	}
	return []byte(msg.Payload), nil
}

func (s *pubsubStream) Close() error {
	if err := s.sub.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
		return err
	}
	return nil
}

// Publish sends a raw event payload to channel and reports how many
// subscribers received it.
func Publish(ctx context.Context, rdb goredis.Cmdable, channel string, payload []byte) (int64, error) {
	receivers, err := rdb.Publish(ctx, channel, payload).Result()
	if err != nil {
		return 0, fmt.Errorf("publish to %s: %w", channel, err)
	}
	return receivers, nil
}
