package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler consumes job messages from a subscription.
type PubSubHandler struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	dispatcher   *Dispatcher
	logger       zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	Config     Config
	Dispatcher *Dispatcher
	Logger     zerolog.Logger
}

// NewPubSubHandler creates a subscriber for cfg.Config.Subscription.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.Config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.Config.Subscription)
	subscriber.ReceiveSettings.MaxOutstandingMessages = cfg.Config.MaxOutstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:       client,
		subscriber:   subscriber,
		subscription: cfg.Config.Subscription,
		dispatcher:   cfg.Dispatcher,
		logger:       cfg.Logger,
	}, nil
}

// Start receives messages until ctx is canceled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().Str("subscription", h.subscription).Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		start := time.Now()
		logger := h.logger.With().Str("message_id", msg.ID).Logger()

		err := h.dispatcher.Handle(ctx, msg.Data)
		switch {
		case errors.Is(err, ErrUnknownJob):
			logger.Warn().Err(err).Msg("dropping message")
			msg.Ack()
		case err != nil:
			logger.Error().Err(err).Msg("job failed")
			msg.Nack()
		default:
			logger.Info().Dur("duration", time.Since(start)).Msg("job completed")
			msg.Ack()
		}
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

// Publisher enqueues jobs for the worker.
type Publisher struct {
	client    *pubsub.Client
	publisher *pubsub.Publisher
}

// NewPublisher creates a publisher for cfg.Topic.
func NewPublisher(ctx context.Context, cfg Config) (*Publisher, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	return &Publisher{client: client, publisher: client.Publisher(cfg.Topic)}, nil
}

// EnqueueReimport publishes a csv_import job and returns the message ID.
func (p *Publisher) EnqueueReimport(ctx context.Context, uploadIDs ...string) (string, error) {
	return p.publish(ctx, Message{JobType: JobCSVImport, UploadIDs: uploadIDs})
}

func (p *Publisher) publish(ctx context.Context, msg Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", err
	}
	id, err := p.publisher.Publish(ctx, &pubsub.Message{Data: data}).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", msg.JobType, err)
	}
	return id, nil
}

// Close flushes pending messages and closes the client.
func (p *Publisher) Close() error {
	p.publisher.Stop()
	return p.client.Close()
}
