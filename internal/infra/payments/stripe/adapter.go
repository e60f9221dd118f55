package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"staybook/internal/app/policies"
)

// Adapter creates hosted-checkout sessions through the Stripe API. The
// session carries the booking id as metadata so webhook events can be routed
// back to the right booking.
type Adapter struct {
	api        *client.API
	successURL string
	cancelURL  string
	logger     *slog.Logger
}

func New(apiKey, successURL, cancelURL string, logger *slog.Logger) (*Adapter, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("stripe: api key is required")
	}
	api := &client.API{}
	api.Init(apiKey, nil)
	return &Adapter{
		api:        api,
		successURL: successURL,
		cancelURL:  cancelURL,
		logger:     logger,
	}, nil
}

func (a *Adapter) CreateSession(ctx context.Context, req policies.SessionRequest) (policies.PaymentSession, error) {
	currency := strings.ToLower(req.Amount.Currency)
	if currency == "" {
		currency = "usd"
	}
	params := &stripeapi.CheckoutSessionParams{
		Params:        stripeapi.Params{Context: ctx},
		Mode:          stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		SuccessURL:    stripeapi.String(a.successURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:     stripeapi.String(a.cancelURL),
		CustomerEmail: stripeapi.String(req.CustomerEmail),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency: stripeapi.String(currency),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripeapi.String(req.PropertyTitle),
						Description: stripeapi.String(fmt.Sprintf("%d night stay", req.Nights)),
					},
					UnitAmount: stripeapi.Int64(req.Amount.Amount),
				},
				Quantity: stripeapi.Int64(1),
			},
		},
	}
	params.AddMetadata("booking_id", req.BookingID)

	sess, err := a.api.CheckoutSessions.New(params)
	if err != nil {
		return policies.PaymentSession{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	if a.logger != nil {
		a.logger.Info("checkout session created", "session_id", sess.ID, "booking_id", req.BookingID, "amount_cents", req.Amount.Amount)
	}
	return policies.PaymentSession{ID: sess.ID, URL: sess.URL}, nil
}

func (a *Adapter) ExpireSession(ctx context.Context, sessionID string) error {
	params := &stripeapi.CheckoutSessionExpireParams{
		Params: stripeapi.Params{Context: ctx},
	}
	if _, err := a.api.CheckoutSessions.Expire(sessionID, params); err != nil {
		return fmt.Errorf("stripe: expire checkout session: %w", err)
	}
	return nil
}

var _ policies.PaymentsPort = (*Adapter)(nil)
