package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is the in-process event bus: a go-channel pub/sub with a router on
// top. Handlers are registered before Run; Run blocks until the context is
// canceled.
type Bus struct {
	pubSub *gochannel.GoChannel
	router *message.Router
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)
	router, err := message.NewRouter(message.RouterConfig{}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create event router: %w", err)
	}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	return &Bus{pubSub: pubSub, router: router, logger: logger}, nil
}

// Publish marshals payload as JSON and publishes it on topic.
func (b *Bus) Publish(topic string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}
	return b.pubSub.Publish(topic, message.NewMessage(watermill.NewUUID(), data))
}

// Handle registers a no-publisher handler for topic. The payload is passed
// raw; handlers unmarshal into their own type. A handler error nacks the
// message.
func (b *Bus) Handle(name, topic string, handler func(ctx context.Context, payload []byte) error) {
	b.router.AddNoPublisherHandler(name, topic, b.pubSub, func(msg *message.Message) error {
		if err := handler(msg.Context(), msg.Payload); err != nil {
			b.logger.Error("event handler failed",
				slog.String("handler", name),
				slog.String("topic", topic),
				slog.String("message_id", msg.UUID),
				slog.Any("error", err),
			)
			return err
		}
		return nil
	})
}

// Run starts the router and blocks until ctx is canceled or the router
// stops.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running returns a channel closed once the router is running, so callers
// can publish without racing the subscribers.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubSub.Close()
}
