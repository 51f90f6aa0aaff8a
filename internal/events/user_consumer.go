package events

import (
	"context"
	"strings"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/myfocus-app/service-billing/internal/kafka"
)

// TrialProvisioner provisions a trial subscription for a new user.
// Implemented by the subscription application service.
type TrialProvisioner interface {
	StartTrial(ctx context.Context, userID uuid.UUID) error
}

// UserEventConsumer listens to user events and provisions trial subscriptions.
type UserEventConsumer struct {
	consumer    *kafka.Consumer
	provisioner TrialProvisioner
	logger      *zap.Logger
}

// NewUserEventConsumer creates a new consumer for user events.
func NewUserEventConsumer(
	brokers []string,
	groupID string,
	provisioner TrialProvisioner,
	logger *zap.Logger,
) *UserEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicUserEvents, logger)
	return &UserEventConsumer{
		consumer:    consumer,
		provisioner: provisioner,
		logger:      logger,
	}
}

// Start begins consuming user events. It blocks until the context is cancelled.
func (c *UserEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// handleMessage routes incoming Kafka messages to the appropriate handler.
func (c *UserEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from user topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return err
	}

	c.logger.Info("received user event",
		zap.String("type", cloudEvent.Type),
		zap.String("id", cloudEvent.ID),
	)

	switch {
	case strings.EqualFold(cloudEvent.Type, UserRegistered):
		return c.handleUserRegistered(ctx, cloudEvent)

	default:
		c.logger.Debug("ignoring unhandled user event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

// handleUserRegistered provisions the trial for a freshly registered user.
func (c *UserEventConsumer) handleUserRegistered(ctx context.Context, ce kafka.CloudEvent) error {
	var event UserRegisteredEvent
	if err := ce.ParseData(&event); err != nil {
		c.logger.Error("failed to parse UserRegisteredEvent data", zap.Error(err))
		return err
	}

	return c.provisioner.StartTrial(ctx, event.UserID)
}

// Close closes the underlying Kafka consumer.
func (c *UserEventConsumer) Close() error {
	return c.consumer.Close()
}
