package notify

import (
	"context"

	"go.uber.org/zap"
)

// Log writes alerts to the structured log instead of (or next to) a real
// channel. Used when no bot token is configured.
type Log struct {
	Logger *zap.Logger
}

func (l *Log) Send(ctx context.Context, recipientID int64, text string) error {
	l.Logger.Info("alert",
		zap.Int64("recipient_id", recipientID),
		zap.String("text", text),
	)
	return nil
}
