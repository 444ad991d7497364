package relay

import (
	"context"

	"go.uber.org/zap"
)

// Message is the relay request handed to delivery once a ticket is admitted.
type Message struct {
	Text         string
	To           string
	From         string
	AuthorizedBy string
}

// Dispatcher hands an admitted message to the delivery side, which lives
// outside this service.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// LogDispatcher records the hand-off and accepts every message.
type LogDispatcher struct {
	log *zap.Logger
}

func NewLogDispatcher(log *zap.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) Dispatch(_ context.Context, msg Message) error {
	d.log.Info("message accepted for relay",
		zap.String("from", msg.From),
		zap.String("to", msg.To),
		zap.Int("length", len(msg.Text)),
		zap.String("authorized_by", msg.AuthorizedBy),
	)
	return nil
}
