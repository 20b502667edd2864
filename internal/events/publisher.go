package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/tcg-price-scraper/internal/models"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypePriceLookedUp is published after every successful price lookup
	EventTypePriceLookedUp EventType = "PRICE_LOOKED_UP"
)

// StreamClient is the part of the redis client the publisher needs.
type StreamClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

// PriceLookedUpPayload is the JSON body of a PRICE_LOOKED_UP entry.
type PriceLookedUpPayload struct {
	EventID   string            `json:"event_id"`
	EventType string            `json:"event_type"`
	Timestamp time.Time         `json:"timestamp"`
	Price     *models.CardPrice `json:"price"`
	Source    string            `json:"source"`
}

// Publisher appends lookup events to a redis stream. Nothing in the service
// reads the stream back.
type Publisher struct {
	client StreamClient
	stream string
	maxLen int64
	now    func() time.Time
	logger *slog.Logger
}

func NewPublisher(client StreamClient, stream string, maxLen int64, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		now:    time.Now,
		logger: logger.With("component", "event_publisher", "stream", stream),
	}
}

func (p *Publisher) PublishPriceLookup(ctx context.Context, price *models.CardPrice) error {
	payload := &PriceLookedUpPayload{
		EventID:   uuid.New().String(),
		EventType: string(EventTypePriceLookedUp),
		Timestamp: p.now().UTC(),
		Price:     price,
		Source:    "scraper",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"event_id":   payload.EventID,
			"event_type": payload.EventType,
			"timestamp":  fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
			"payload":    string(data),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	id, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Debug("event published",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"stream_id", id,
	)
	return nil
}
