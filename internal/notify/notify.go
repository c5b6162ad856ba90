package notify

import "context"

// Notifier delivers an alert message to a recipient. Delivery is
// best-effort; callers log errors and move on, they never retry.
type Notifier interface {
	Send(ctx context.Context, recipientID int64, text string) error
}

type Multi []Notifier

func (m Multi) Send(ctx context.Context, recipientID int64, text string) error {
	var firstErr error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, recipientID, text); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
