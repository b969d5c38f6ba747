package worker

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	jobrepo "github.com/yungbote/school-backend/internal/data/repos/jobs"
	"github.com/yungbote/school-backend/internal/data/repos/testutil"
	"github.com/yungbote/school-backend/internal/domain/jobs"
	"github.com/yungbote/school-backend/internal/jobs/runtime"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
)

type handlerFunc struct {
	typ string
	run func(*runtime.Context) error
}

func (h handlerFunc) Type() string                  { return h.typ }
func (h handlerFunc) Run(jc *runtime.Context) error { return h.run(jc) }

func setup(t *testing.T, handlers ...runtime.Handler) (*Worker, jobrepo.JobRunRepo) {
	t.Helper()
	db := testutil.DB(t)
	repo := jobrepo.NewJobRunRepo(db, testutil.Logger(t))
	reg := runtime.NewRegistry()
	for _, h := range handlers {
		if err := reg.Register(h); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	w := NewWorker(testutil.Logger(t), repo, reg, nil, Config{
		Concurrency:  1,
		RetryDelay:   0,
		StaleRunning: time.Hour,
		Heartbeat:    time.Hour,
	})
	return w, repo
}

func enqueue(t *testing.T, repo jobrepo.JobRunRepo, jobType string, payload string) *jobs.JobRun {
	t.Helper()
	id := uuid.New()
	j := &jobs.JobRun{
		ID:          uuid.New(),
		OwnerUserID: "u1",
		JobType:     jobType,
		EntityType:  jobs.EntityCourse,
		EntityID:    &id,
		Status:      jobs.StatusQueued,
		Stage:       "queued",
		Payload:     datatypes.JSON([]byte(payload)),
		Result:      datatypes.JSON([]byte("{}")),
		CreatedAt:   time.Now(),
	}
	if _, err := repo.Create(dbctx.Context{Ctx: context.Background()}, []*jobs.JobRun{j}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return j
}

func reload(t *testing.T, repo jobrepo.JobRunRepo, id uuid.UUID) *jobs.JobRun {
	t.Helper()
	j, err := repo.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil || j == nil {
		t.Fatalf("GetByID: %v", err)
	}
	return j
}

func TestRunOnceSucceeds(t *testing.T) {
	var gotCourse string
	w, repo := setup(t, handlerFunc{typ: "echo", run: func(jc *runtime.Context) error {
		gotCourse = jc.PayloadString("course_id")
		jc.Progress("work", 50, "halfway")
		jc.Succeed("done", map[string]any{"ok": true})
		return nil
	}})
	j := enqueue(t, repo, "echo", `{"course_id":"c1"}`)

	if !w.RunOnce(context.Background(), 1) {
		t.Fatalf("RunOnce claimed nothing")
	}
	if gotCourse != "c1" {
		t.Fatalf("payload course_id = %q", gotCourse)
	}
	got := reload(t, repo, j.ID)
	if got.Status != jobs.StatusSucceeded || got.Progress != 100 || got.Attempts != 1 {
		t.Fatalf("job = status %s progress %d attempts %d", got.Status, got.Progress, got.Attempts)
	}
	if !strings.Contains(string(got.Result), `"ok":true`) {
		t.Fatalf("result = %s", got.Result)
	}
	if w.RunOnce(context.Background(), 1) {
		t.Fatalf("succeeded job claimed again")
	}
}

func TestReturnedErrorFailsJob(t *testing.T) {
	w, repo := setup(t, handlerFunc{typ: "flaky", run: func(jc *runtime.Context) error {
		return errors.New("upstream down")
	}})
	j := enqueue(t, repo, "flaky", `{}`)

	w.RunOnce(context.Background(), 1)
	got := reload(t, repo, j.ID)
	if got.Status != jobs.StatusFailed || got.Error != "upstream down" || got.Stage != "run" {
		t.Fatalf("job = %+v", got)
	}

	// Retry delay is zero, so the failed job is runnable again until the
	// attempt budget is spent.
	for i := 1; i < runtime.MaxAttempts; i++ {
		if !w.RunOnce(context.Background(), 1) {
			t.Fatalf("attempt %d not claimed", i+1)
		}
	}
	if w.RunOnce(context.Background(), 1) {
		t.Fatalf("claimed past MaxAttempts")
	}
	if got := reload(t, repo, j.ID); got.Attempts != runtime.MaxAttempts {
		t.Fatalf("attempts = %d", got.Attempts)
	}
}

func TestPermanentFailureIsNotRetried(t *testing.T) {
	w, repo := setup(t, handlerFunc{typ: "bad", run: func(jc *runtime.Context) error {
		jc.Fail("validate", runtime.Permanent(errors.New("missing course_id")))
		return nil
	}})
	j := enqueue(t, repo, "bad", `{}`)

	w.RunOnce(context.Background(), 1)
	if w.RunOnce(context.Background(), 1) {
		t.Fatalf("permanent failure was claimed again")
	}
	got := reload(t, repo, j.ID)
	if got.Status != jobs.StatusFailed || got.Attempts != runtime.MaxAttempts {
		t.Fatalf("job = status %s attempts %d", got.Status, got.Attempts)
	}
}

func TestPanicIsRecovered(t *testing.T) {
	w, repo := setup(t, handlerFunc{typ: "boom", run: func(jc *runtime.Context) error {
		panic("boom")
	}})
	j := enqueue(t, repo, "boom", `{}`)

	w.RunOnce(context.Background(), 1)
	got := reload(t, repo, j.ID)
	if got.Status != jobs.StatusFailed || got.Stage != "panic" || !strings.Contains(got.Error, "boom") {
		t.Fatalf("job = %+v", got)
	}
}

func TestMissingHandlerFailsPermanently(t *testing.T) {
	w, repo := setup(t)
	j := enqueue(t, repo, "unknown", `{}`)

	w.RunOnce(context.Background(), 1)
	got := reload(t, repo, j.ID)
	if got.Status != jobs.StatusFailed || got.Stage != "dispatch" || got.Attempts != runtime.MaxAttempts {
		t.Fatalf("job = %+v", got)
	}
}

func TestCanceledJobIgnoresLaterUpdates(t *testing.T) {
	var repo jobrepo.JobRunRepo
	w, r := setup(t, handlerFunc{typ: "slow", run: func(jc *runtime.Context) error {
		if err := repo.UpdateFields(dbctx.Context{Ctx: jc.Ctx}, jc.Job.ID, map[string]interface{}{"status": jobs.StatusCanceled}); err != nil {
			return err
		}
		jc.Succeed("done", nil)
		return nil
	}})
	repo = r
	j := enqueue(t, repo, "slow", `{}`)

	w.RunOnce(context.Background(), 1)
	if got := reload(t, repo, j.ID); got.Status != jobs.StatusCanceled {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	done := make(chan struct{})
	w, repo := setup(t, handlerFunc{typ: "echo", run: func(jc *runtime.Context) error {
		jc.Succeed("done", nil)
		close(done)
		return nil
	}})
	w.cfg.PollInterval = 10 * time.Millisecond
	enqueue(t, repo, "echo", `{}`)

	ctx, cancel := context.WithCancel(context.Background())
	w.Start(ctx)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("job never ran")
	}
	cancel()
	w.Wait()
}
