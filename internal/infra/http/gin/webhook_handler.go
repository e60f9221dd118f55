package ginserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	paymentsapp "staybook/internal/app/handlers/payments"
	stripeinfra "staybook/internal/infra/payments/stripe"
)

// WebhookHandler receives payment-provider callbacks. Signature verification
// happens here, at the edge; the reconciler behind the bus only ever sees
// authenticated events.
type WebhookHandler struct {
	Commands commands.Bus
	Verifier *stripeinfra.WebhookVerifier
	Logger   *slog.Logger
}

type checkoutSessionPayload struct {
	ID       string            `json:"id"`
	Metadata map[string]string `json:"metadata"`
}

func (h WebhookHandler) PaymentEvents(c *gin.Context) {
	if h.Commands == nil || h.Verifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhook processing unavailable"})
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}
	event, err := h.Verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		h.log().Warn("webhook rejected", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var session checkoutSessionPayload
	if len(event.Data.Raw) > 0 {
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			h.log().Warn("webhook payload undecodable", "event_id", event.ID, "type", event.Type, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "undecodable event object"})
			return
		}
	}

	cmd := paymentsapp.PaymentEventCommand{
		EventID:   event.ID,
		Type:      string(event.Type),
		SessionID: session.ID,
		BookingID: session.Metadata["booking_id"],
	}
	result, err := commands.Dispatch[paymentsapp.PaymentEventCommand, *paymentsapp.PaymentEventResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		// A 5xx tells the provider to redeliver; the inbox makes the retry safe.
		h.log().Error("payment event failed", "event_id", event.ID, "type", event.Type, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "event processing failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "applied": result != nil && result.Applied})
}

func (h WebhookHandler) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

var _ WebhookHTTP = WebhookHandler{}
