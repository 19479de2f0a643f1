package notifier

import (
	"context"

	"go.uber.org/zap"

	"github.com/lyraio/lyra/internal/types"
)

// LogSender implements MulticastSender by logging the would-be send.
// Every token is reported as delivered. Used for dry runs.
type LogSender struct {
	logger *zap.Logger
}

var _ MulticastSender = (*LogSender)(nil)

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("log-sender")}
}

// Name implements MulticastSender.
func (s *LogSender) Name() string { return "log" }

// SendMulticast implements MulticastSender.
func (s *LogSender) SendMulticast(ctx context.Context, tokens []string, p types.Payload) (types.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return types.SendResult{}, err
	}
	s.logger.Info("Multicast send (dry run)",
		zap.Int("tokens", len(tokens)),
		zap.String("title", p.Title),
		zap.String("body", p.Body),
		zap.Any("data", p.Data),
	)
	return types.SendResult{SuccessCount: len(tokens)}, nil
}
