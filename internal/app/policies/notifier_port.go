package policies

import "context"

// Notifier is the hook point for guest email on confirmation. The production
// SMTP integration does not exist yet; the wired implementation logs.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}
