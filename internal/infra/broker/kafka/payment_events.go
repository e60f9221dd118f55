package kafka

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/IBM/sarama"

	"staybook/internal/app/commands"
	"staybook/internal/app/handlers/payments"
)

// PaymentEventsTopic is the broker-delivered alternative to the HTTP webhook.
// Gateways that already verify provider signatures can forward events here.
const PaymentEventsTopic = "payments.events.v1"

type paymentEventMessage struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Session string `json:"session_id"`
	Booking string `json:"booking_id"`
}

// PaymentEventsHandler decodes broker-delivered payment events and dispatches
// them to the reconciler. Malformed messages are acknowledged and dropped;
// replaying them cannot help.
type PaymentEventsHandler struct {
	Bus    commands.Bus
	Logger *slog.Logger
}

func (h *PaymentEventsHandler) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var evt paymentEventMessage
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		h.log().Warn("dropping malformed payment event", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	cmd := payments.PaymentEventCommand{
		EventID:   evt.ID,
		Type:      evt.Type,
		SessionID: evt.Session,
		BookingID: evt.Booking,
	}
	if _, err := h.Bus.Dispatch(ctx, cmd); err != nil {
		h.log().Error("payment event dispatch failed", "event_id", evt.ID, "type", evt.Type, "error", err)
		return err
	}
	return nil
}

func (h *PaymentEventsHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ MessageHandler = (*PaymentEventsHandler)(nil)
