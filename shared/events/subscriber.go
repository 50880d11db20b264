package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Handler func(ctx context.Context, event Event) error

// Subscriber consumes one stream through a consumer group and dispatches each
// event to the handler registered for its type. Events with no handler are
// acknowledged and skipped.
type Subscriber struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	startID       string
	handlers      map[string]Handler
	batchSize     int64
	blockDuration time.Duration
	retryDelay    time.Duration
	log           zerolog.Logger
}

type SubscriberConfig struct {
	Group    string
	Consumer string
	Stream   string
	// StartID is where a newly created group begins reading; "$" (the default)
	// skips history, "0" replays the whole stream.
	StartID       string
	Handlers      map[string]Handler
	BatchSize     int64
	BlockDuration time.Duration
	// RetryDelay is the pause after a failed read before trying again.
	RetryDelay time.Duration
	Logger     zerolog.Logger
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = time.Second
	}
	if config.StartID == "" {
		config.StartID = "$"
	}

	return &Subscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		startID:       config.StartID,
		handlers:      config.Handlers,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		retryDelay:    config.RetryDelay,
		log:           config.Logger.With().Str("stream", config.Stream).Str("group", config.Group).Logger(),
	}
}

// Start creates the consumer group if needed and consumes until ctx is done.
// It returns ctx.Err() on shutdown.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, s.startID).Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	s.log.Info().Str("consumer", s.consumer).Msg("Subscriber started")

	for {
		if err := s.readMessages(ctx); err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("Error reading messages")
			select {
			case <-ctx.Done():
			case <-time.After(s.retryDelay):
			}
		}
		if ctx.Err() != nil {
			s.log.Info().Msg("Subscriber stopping")
			return ctx.Err()
		}
	}
}

// Destroy removes the consumer group. Used by subscribers whose group is
// private to one process.
func (s *Subscriber) Destroy(ctx context.Context) error {
	if err := s.client.XGroupDestroy(ctx, s.stream, s.group).Err(); err != nil {
		return fmt.Errorf("failed to destroy consumer group: %w", err)
	}
	return nil
}

func (s *Subscriber) readMessages(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			if err := s.dispatch(ctx, message.Values); err != nil {
				s.log.Error().Err(err).Str("message_id", message.ID).Msg("Failed to process message")
				// unacked messages stay pending for redelivery
				continue
			}

			if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
				s.log.Error().Err(err).Str("message_id", message.ID).Msg("Failed to ACK message")
			}
		}
	}

	return nil
}

func (s *Subscriber) dispatch(ctx context.Context, values map[string]any) error {
	event, err := decodeEvent(values)
	if err != nil {
		return err
	}
	handler, ok := s.handlers[event.Type]
	if !ok {
		s.log.Debug().Str("type", event.Type).Msg("No handler for event type")
		return nil
	}
	return handler(ctx, event)
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func decodeEvent(values map[string]any) (Event, error) {
	eventData, ok := values["event"].(string)
	if !ok {
		return Event{}, fmt.Errorf("invalid message format")
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return Event{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
