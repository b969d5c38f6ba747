package llm

import (
	"context"

	"github.com/google/uuid"
)

type callInfoKey struct{}

// CallInfo labels a model call for the agent log.
type CallInfo struct {
	Action    string
	UserID    string
	CourseID  uuid.UUID
	Reasoning string
}

func WithCallInfo(ctx context.Context, info CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey{}, info)
}

// CallInfoFrom returns the labels attached to ctx; Action is "unknown" when
// nothing was attached.
func CallInfoFrom(ctx context.Context) CallInfo {
	if v, ok := ctx.Value(callInfoKey{}).(CallInfo); ok {
		return v
	}
	return CallInfo{Action: "unknown"}
}
