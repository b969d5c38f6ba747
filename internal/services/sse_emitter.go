package services

import (
	"context"

	"github.com/yungbote/school-backend/internal/realtime"
	"github.com/yungbote/school-backend/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

// HubEmitter delivers to clients connected to this instance only.
type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}

// RedisEmitter publishes to the bus; every instance's forwarder, this one
// included, hands the message to its local hub.
type RedisEmitter struct{ Bus bus.Bus }

func (e *RedisEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	_ = e.Bus.Publish(ctx, msg)
}

// EmitterFunc adapts a function to SSEEmitter.
type EmitterFunc func(ctx context.Context, msg realtime.SSEMessage)

func (f EmitterFunc) Emit(ctx context.Context, msg realtime.SSEMessage) { f(ctx, msg) }
