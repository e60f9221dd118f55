package policies

import (
	"context"
	"errors"

	"staybook/internal/domain/shared/money"
)

var ErrPaymentSession = errors.New("payments: session creation failed")

// PaymentSession is the hosted-checkout handle returned by the payment
// collaborator; the guest is redirected to URL to pay.
type PaymentSession struct {
	ID  string
	URL string
}

// SessionRequest scopes a checkout session to one booking's total.
type SessionRequest struct {
	BookingID     string
	PropertyTitle string
	CustomerEmail string
	Amount        money.Money
	Nights        int
}

// PaymentsPort abstracts the external payment collaborator. Events about
// session outcomes arrive asynchronously through the reconciler, not through
// this interface.
type PaymentsPort interface {
	CreateSession(ctx context.Context, req SessionRequest) (PaymentSession, error)
	ExpireSession(ctx context.Context, sessionID string) error
}
