package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/centrifugal/centrifuge"
	"github.com/pscheid92/liveshop/internal/domain"
)

type Publisher struct {
	node *centrifuge.Node
}

var _ domain.SnapshotPublisher = (*Publisher)(nil)

func NewPublisher(node *centrifuge.Node) *Publisher {
	return &Publisher{node: node}
}

func (p *Publisher) PublishSnapshot(_ context.Context, snap domain.ShowSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal show snapshot: %w", err)
	}

	channel := ChannelFor(snap.ShowID)
	if _, err := p.node.Publish(channel, data); err != nil {
		return fmt.Errorf("publish to channel %s: %w", channel, err)
	}
	return nil
}
