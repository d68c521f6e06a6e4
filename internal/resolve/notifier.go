package resolve

import (
	"context"
	"log/slog"
)

// LogNotifier records notices in the service log. Chat adapters relay the
// notices returned in the resolve response; the daemon itself has no direct
// messaging channel.
type LogNotifier struct {
	logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

func (n *LogNotifier) SendMessage(_ context.Context, conversationID, text string) {
	n.logger.Info("notice", "conversation_id", conversationID, "text", text)
}
