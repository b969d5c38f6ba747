package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/envutil"
	"github.com/yungbote/school-backend/internal/platform/logger"
	"github.com/yungbote/school-backend/internal/realtime"
	"github.com/yungbote/school-backend/internal/reconciler"
)

type Options struct {
	BaseURL string
	// Token is sent as a bearer token; leave empty against a server running
	// without auth.
	Token      string
	Timeout    time.Duration
	MaxRetries int
}

// Client talks to the course API and its event feed.
type Client struct {
	baseURL string
	rest    *resty.Client
	stream  *resty.Client
}

var (
	_ reconciler.SnapshotFetcher = (*Client)(nil)
	_ reconciler.EventSource     = (*Client)(nil)
)

func New(opts Options) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, ErrBaseURLRequired
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retries := opts.MaxRetries
	if retries < 0 {
		retries = 0
	}

	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(retries).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})
	// The feed stays open for as long as generation runs, so it gets no
	// client timeout and no retries.
	stream := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "text/event-stream")
	if tok := strings.TrimSpace(opts.Token); tok != "" {
		rest.SetAuthToken(tok)
		stream.SetAuthToken(tok)
	}
	return &Client{baseURL: baseURL, rest: rest, stream: stream}, nil
}

func NewFromEnv(log *logger.Logger) (*Client, error) {
	return New(Options{
		BaseURL:    envutil.String("SCHOOL_API_URL", "http://localhost:8080", log),
		Token:      envutil.String("SCHOOL_API_TOKEN", "", log),
		Timeout:    envutil.Duration("SCHOOL_API_TIMEOUT", 30*time.Second, log),
		MaxRetries: envutil.Int("SCHOOL_API_MAX_RETRIES", 2, log),
	})
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) CreateCourse(ctx context.Context, description string, objectives []string) (*learning.Course, error) {
	var out courseEnvelope
	if err := c.do(ctx, http.MethodPost, "/api/courses", createCourseRequest{Description: description, Objectives: objectives}, &out); err != nil {
		return nil, err
	}
	return &out.Course, nil
}

func (c *Client) ListCourses(ctx context.Context, status learning.CourseStatus) ([]CourseSummary, error) {
	path := "/api/courses"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var out coursesEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Courses, nil
}

func (c *Client) Course(ctx context.Context, courseID uuid.UUID) (*Snapshot, error) {
	var out Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/courses/"+courseID.String(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateCourse queues generation and returns the job id.
func (c *Client) GenerateCourse(ctx context.Context, courseID uuid.UUID) (uuid.UUID, error) {
	var out jobAccepted
	if err := c.do(ctx, http.MethodPost, "/api/courses/"+courseID.String()+"/generate", nil, &out); err != nil {
		return uuid.Nil, err
	}
	return out.JobID, nil
}

func (c *Client) TransitionCourse(ctx context.Context, courseID uuid.UUID, target learning.CourseStatus) (*Snapshot, error) {
	var out Snapshot
	if err := c.do(ctx, http.MethodPatch, "/api/courses/"+courseID.String()+"/state", transitionRequest{TargetState: target}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/courses/"+courseID.String(), nil, nil)
}

func (c *Client) FetchSnapshot(ctx context.Context, courseID uuid.UUID) (reconciler.Snapshot, error) {
	snap, err := c.Course(ctx, courseID)
	if err != nil {
		return reconciler.Snapshot{}, err
	}
	out := reconciler.Snapshot{Course: snap.Course}
	if snap.Generation != nil {
		out.Generation = &reconciler.Generation{
			Running:               snap.Generation.Running,
			CurrentObjectiveIndex: snap.Generation.CurrentObjectiveIndex,
		}
	}
	return out, nil
}

// StreamEvents follows the course's event feed, passing generation events
// to fn. opened, if set, runs once the server accepted the subscription. It
// returns nil when the server ends the stream.
func (c *Client) StreamEvents(ctx context.Context, courseID uuid.UUID, opened func() error, fn func(reconciler.Event) error) error {
	resp, err := c.stream.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get("/api/courses/" + courseID.String() + "/events")
	if err != nil {
		return err
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(body, 1<<20))
		return parseHTTPError(resp.StatusCode(), raw)
	}
	// the server subscribes before it writes headers
	if opened != nil {
		if err := opened(); err != nil {
			return err
		}
	}

	channel := realtime.CourseChannel(courseID)
	err = readSSE(body, func(_ string, data string) error {
		var msg message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return nil
		}
		if msg.Channel != channel || !generationEvent(msg.Event) {
			return nil
		}
		var ev realtime.GenerationEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			return fmt.Errorf("decode %s: %w", msg.Event, err)
		}
		return fn(reconciler.Event{Name: msg.Event, Data: ev})
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func generationEvent(e realtime.SSEEvent) bool {
	switch e {
	case realtime.SSEEventCourseOutlined,
		realtime.SSEEventLessonPlanned,
		realtime.SSEEventLessonWritten,
		realtime.SSEEventActivityCreated,
		realtime.SSEEventGenerationError,
		realtime.SSEEventGenerationComplete:
		return true
	}
	return false
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	req := c.rest.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return parseHTTPError(resp.StatusCode(), resp.Body())
	}
	return nil
}
