package bus

import (
	"context"

	"github.com/yungbote/school-backend/internal/realtime"
)

// Bus fans SSE messages out across instances. Every instance publishes to it
// and forwards what it receives to its local hub.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}
