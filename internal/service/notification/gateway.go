// internal/service/notification/gateway.go
package notification

import (
	"context"

	"go.uber.org/zap"
)

// Gateway hands one text message to a transport. Implementations must be
// safe for concurrent use.
type Gateway interface {
	Send(ctx context.Context, msg Message) error
}

// LogGateway only logs messages. It is the default when no SMS transport is configured.
type LogGateway struct {
	logger *zap.Logger
}

func NewLogGateway(logger *zap.Logger) *LogGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogGateway{logger: logger}
}

func (g *LogGateway) Send(_ context.Context, msg Message) error {
	g.logger.Info("sms not configured, would send",
		zap.String("template", string(msg.Template)),
		zap.String("entry_id", msg.EntryID),
		zap.String("phone", maskPhone(msg.Phone)),
		zap.String("text", msg.Text),
	)
	return nil
}

// maskPhone keeps the last four characters only.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	masked := make([]byte, len(phone))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(phone)-4:], phone[len(phone)-4:])
	return string(masked)
}
