package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	agentlogrepo "github.com/yungbote/school-backend/internal/data/repos/agentlog"
	"github.com/yungbote/school-backend/internal/domain/agentlog"
	"github.com/yungbote/school-backend/internal/platform/llm"
)

// LogRecorder turns model calls into agent log entries. It is built before
// the Service because the provider stack needs it first.
type LogRecorder struct {
	store *Store
	repo  agentlogrepo.AgentLogRepo
}

func NewLogRecorder(store *Store, repo agentlogrepo.AgentLogRepo) *LogRecorder {
	return &LogRecorder{store: store, repo: repo}
}

var _ llm.Recorder = (*LogRecorder)(nil)

func (r *LogRecorder) RecordCall(ctx context.Context, rec llm.CallRecord) error {
	entry := agentlog.AgentLog{
		UserID:       rec.Info.UserID,
		Action:       rec.Info.Action,
		Reasoning:    rec.Info.Reasoning,
		Prompt:       rec.Prompt,
		Response:     rec.Response,
		Status:       agentlog.StatusSuccess,
		DurationMS:   rec.Duration.Milliseconds(),
		InputTokens:  rec.Usage.InputTokens,
		OutputTokens: rec.Usage.OutputTokens,
		Model:        rec.Model,
	}
	if rec.Info.CourseID != uuid.Nil {
		id := rec.Info.CourseID
		entry.CourseID = &id
	}
	if rec.Err != nil {
		entry.Status = agentlog.StatusError
		entry.Error = rec.Err.Error()
	}
	if entry.Reasoning == "" {
		entry.Reasoning = reasoningOf(rec.Response)
	}
	return addLog(ctx, r.store, r.repo, entry)
}

// reasoningOf pulls the optional "reasoning" field out of a JSON response.
func reasoningOf(response string) string {
	var parsed struct {
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return ""
	}
	return parsed.Reasoning
}
