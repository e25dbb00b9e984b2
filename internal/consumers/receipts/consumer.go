package receipts

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/hearthstay/hearthstay-backend/pkg/db/models"
	"github.com/hearthstay/hearthstay-backend/pkg/enums"
	"github.com/hearthstay/hearthstay-backend/pkg/logger"
	"github.com/hearthstay/hearthstay-backend/pkg/outbox"
	"github.com/hearthstay/hearthstay-backend/pkg/outbox/idempotency"
	"github.com/hearthstay/hearthstay-backend/pkg/outbox/payloads"
)

const receiptConsumerName = "receipts"

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type propertyLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Property, error)
}

// Consumer turns receipt_requested events into guest emails.
type Consumer struct {
	users        userLoader
	properties   propertyLoader
	mailer       Mailer
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a receipt consumer.
func NewConsumer(users userLoader, properties propertyLoader, mailer Mailer, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if properties == nil {
		return nil, fmt.Errorf("properties repository required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("receipt subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		users:        users,
		properties:   properties,
		mailer:       mailer,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventReceiptRequested) {
		c.logg.Info(logCtx, "skipping non-receipt event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, receiptConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.ReceiptRequestedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, receiptConsumerName, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithBookingID(logCtx, payload.BookingID.String())
	if err := c.sendReceipt(logCtx, payload); err != nil {
		c.logg.Error(logCtx, "receipt delivery failed", err)
		_ = c.idempotency.Delete(ctx, receiptConsumerName, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "receipt sent")
	return processResult{ack: true}
}

func (c *Consumer) sendReceipt(ctx context.Context, payload payloads.ReceiptRequestedEvent) error {
	guest, err := c.users.FindByID(ctx, payload.GuestID)
	if err != nil {
		return fmt.Errorf("load guest: %w", err)
	}
	if guest == nil {
		return fmt.Errorf("guest %s not found", payload.GuestID)
	}

	property, err := c.properties.FindByID(ctx, payload.PropertyID)
	if err != nil {
		return fmt.Errorf("load property: %w", err)
	}

	subject, body := renderReceipt(guest, property, payload)
	return c.mailer.Send(ctx, guest.Email, subject, body)
}

func renderReceipt(guest *models.User, property *models.Property, payload payloads.ReceiptRequestedEvent) (string, string) {
	title := "your stay"
	if property != nil {
		title = property.Title
	}
	subject := fmt.Sprintf("Your booking is confirmed: %s", title)

	amount := float64(payload.AmountCents) / 100
	body := fmt.Sprintf(
		"Hi %s,\n\nYour booking %s is confirmed.\n\nProperty: %s\nTotal charged: %.2f %s\n",
		guest.FullName, payload.BookingID, title, amount, payload.Currency,
	)
	if payload.ReceiptURL != "" {
		body += fmt.Sprintf("\nCard receipt: %s\n", payload.ReceiptURL)
	}
	body += "\nThanks for booking with Hearthstay.\n"
	return subject, body
}
