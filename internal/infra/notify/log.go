package notify

import (
	"context"
	"log/slog"

	"staybook/internal/app/policies"
)

// LogNotifier stands in for the guest-email integration. It records what
// would have been sent so confirmations are at least traceable.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to string, template string, data any) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification", "to", to, "template", template, "data", data)
	return nil
}

var _ policies.Notifier = LogNotifier{}
