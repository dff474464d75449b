package notifier

import (
	"context"

	"InstabilitySentinel/internal/logger"
)

// Notifier delivers rendered reports.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// LogNotifier writes reports to the application log.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (LogNotifier) Send(_ context.Context, text string) error {
	logger.Log.WithField("notifier", "log").Info("\n" + text)
	return nil
}
