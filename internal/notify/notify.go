// Package notify abstracts the outbound customer-message channel. The
// default provider writes to the log; a real messaging gateway slots in
// behind the same interface.
package notify

import (
	"context"
	"log/slog"
)

// Provider delivers one text message to a phone number.
type Provider interface {
	Send(ctx context.Context, phone, message string) error
}

// LogProvider writes outbound messages to the structured log instead of
// a gateway. Useful in development and as the safe default.
type LogProvider struct {
	logger *slog.Logger
}

// NewLogProvider builds LogProvider.
func NewLogProvider(logger *slog.Logger) *LogProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProvider{logger: logger}
}

func (p *LogProvider) Send(_ context.Context, phone, message string) error {
	p.logger.Info("outbound message",
		slog.String("to", phone),
		slog.String("body", message))
	return nil
}
