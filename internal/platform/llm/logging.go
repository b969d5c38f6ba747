package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/school-backend/internal/platform/logger"
)

// CallRecord is what the logging decorator hands to a Recorder after every
// model call, successful or not.
type CallRecord struct {
	Info     CallInfo
	Prompt   string
	Response string
	Model    string
	Usage    Usage
	Duration time.Duration
	Err      error
}

type Recorder interface {
	RecordCall(ctx context.Context, rec CallRecord) error
}

type RecorderFunc func(ctx context.Context, rec CallRecord) error

func (f RecorderFunc) RecordCall(ctx context.Context, rec CallRecord) error { return f(ctx, rec) }

type LoggingProvider struct {
	inner    Provider
	recorder Recorder
	log      *logger.Logger
}

// WithLogging traces and logs every call and forwards it to recorder, which
// may be nil. Recorder failures are logged and never fail the call.
func WithLogging(p Provider, recorder Recorder, log *logger.Logger) Provider {
	return &LoggingProvider{inner: p, recorder: recorder, log: log.With("component", "llm")}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	info := CallInfoFrom(ctx)
	ctx, span := otel.Tracer("school/llm").Start(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.action", info.Action),
		attribute.String("llm.model", l.inner.ModelID()),
	)

	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	elapsed := time.Since(start)

	rec := CallRecord{
		Info:     info,
		Prompt:   serializeRequest(req),
		Model:    l.inner.ModelID(),
		Duration: elapsed,
		Err:      err,
	}
	if resp != nil {
		rec.Response = string(resp.Content)
		rec.Usage = resp.Usage
		if resp.Model != "" {
			rec.Model = resp.Model
		}
		span.SetAttributes(
			attribute.Int("llm.input_tokens", resp.Usage.InputTokens),
			attribute.Int("llm.output_tokens", resp.Usage.OutputTokens),
		)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.log.Warn("model call failed", "action", info.Action, "model", rec.Model, "duration_ms", elapsed.Milliseconds(), "error", err)
	} else {
		l.log.Debug("model call", "action", info.Action, "model", rec.Model, "duration_ms", elapsed.Milliseconds(),
			"input_tokens", rec.Usage.InputTokens, "output_tokens", rec.Usage.OutputTokens)
	}

	if l.recorder != nil {
		if recErr := l.recorder.RecordCall(context.WithoutCancel(ctx), rec); recErr != nil {
			l.log.Warn("failed to record model call", "action", info.Action, "error", recErr)
		}
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

func serializeRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString("[system]\n")
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n")
		for _, img := range m.Images {
			fmt.Fprintf(&b, "[image: %s, %d bytes]\n", img.MIME, len(img.Data))
		}
		b.WriteString("\n")
	}
	if req.Schema != nil {
		if schemaDef, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", req.Schema.Name)
			b.Write(schemaDef)
			b.WriteString("\n")
		}
	}
	return b.String()
}
