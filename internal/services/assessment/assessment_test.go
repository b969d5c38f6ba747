package assessment

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/school-backend/internal/agents"
	"github.com/yungbote/school-backend/internal/agents/agenttest"
	agentlogrepo "github.com/yungbote/school-backend/internal/data/repos/agentlog"
	learningrepo "github.com/yungbote/school-backend/internal/data/repos/learning"
	"github.com/yungbote/school-backend/internal/data/repos/testutil"
	userrepo "github.com/yungbote/school-backend/internal/data/repos/user"
	"github.com/yungbote/school-backend/internal/domain/learning"
	"github.com/yungbote/school-backend/internal/platform/dbctx"
	"github.com/yungbote/school-backend/internal/platform/llm"
	"github.com/yungbote/school-backend/internal/services"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
	"github.com/yungbote/school-backend/internal/services/profile"
	"github.com/yungbote/school-backend/internal/services/progression"
)

const owner = "u1"

type fixture struct {
	svc    *Service
	orch   *orchestrator.Service
	repo   learningrepo.AssessmentRepo
	script *agenttest.Script
	mock   *llm.MockProvider
	course uuid.UUID
}

// newFixture builds a one-objective course and completes its lesson, which
// leaves it awaiting an assessment.
func newFixture(t *testing.T, policy RetryPolicy) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	courses := learningrepo.NewCourseRepo(db, log)
	logs := agentlogrepo.NewAgentLogRepo(db, log)
	repo := learningrepo.NewAssessmentRepo(db, log)
	store := orchestrator.NewStore(courses, log)
	script := agenttest.NewScript()
	mock := script.Provider()
	ag := agents.New(llm.WithLogging(mock, orchestrator.NewLogRecorder(store, logs), log), agents.DefaultConfig(), log)
	notify := services.NewGenerationNotifier(nil)

	orch := orchestrator.New(orchestrator.Deps{
		Log:         log,
		Store:       store,
		Agents:      ag,
		Learners:    profile.New(log, userrepo.NewProfileRepo(db, log), userrepo.NewSettingsRepo(db, log), ""),
		Lessons:     learningrepo.NewLessonRepo(db, log),
		Assessments: repo,
		AgentLogs:   logs,
		Notify:      notify,
		Policy:      policy,
	})

	c := &learning.Course{
		UserID:           owner,
		SourceType:       learning.SourceCustom,
		InputDescription: "Variables",
		InputObjectives:  datatypes.JSONSlice[string]{"Define variables"},
		Status:           learning.StatusDraft,
	}
	if _, err := courses.Create(dbctx.Context{Ctx: ctx}, []*learning.Course{c}); err != nil {
		t.Fatalf("create course: %v", err)
	}
	if err := orch.GenerateCourse(ctx, owner, c.ID); err != nil {
		t.Fatalf("GenerateCourse: %v", err)
	}
	st, err := orch.Snapshot(ctx, owner, c.ID)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	st, err = orch.CompleteLesson(ctx, owner, st.Course.Lessons[0].ID, 90)
	if err != nil {
		t.Fatalf("CompleteLesson: %v", err)
	}
	if st.Course.Status != learning.StatusAwaitingAssessment {
		t.Fatalf("setup status = %s", st.Course.Status)
	}
	return &fixture{
		svc:    New(log, orch, ag, repo, notify),
		orch:   orch,
		repo:   repo,
		script: script,
		mock:   mock,
		course: c.ID,
	}
}

func (f *fixture) status(t *testing.T) learning.CourseStatus {
	t.Helper()
	st, err := f.orch.Snapshot(context.Background(), owner, f.course)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if st.Running() {
		t.Fatalf("generation guard left set")
	}
	return st.Course.Status
}

func answers(a *learning.Assessment) []learning.ItemResponse {
	out := make([]learning.ItemResponse, 0, len(a.Items))
	for _, it := range a.Items {
		out = append(out, learning.ItemResponse{Objective: it.Objective, Text: "A variable is a named value."})
	}
	return out
}

func TestPassingAttemptCompletesCourse(t *testing.T) {
	f := newFixture(t, progression.DefaultRetryPolicy())
	ctx := context.Background()

	a, err := f.svc.Generate(ctx, owner, f.course)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.Attempt != 1 || a.Status != learning.AssessmentPending || len(a.Items) != 1 || a.Items[0].Objective != "Define variables" {
		t.Fatalf("assessment = %+v", a)
	}
	if got := f.status(t); got != learning.StatusAssessmentReady {
		t.Fatalf("status after generate = %s", got)
	}

	out, err := f.svc.Submit(ctx, owner, a.ID, answers(a))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !out.Passed || out.Score != 80 || out.CourseStatus != learning.StatusCompleted || out.Next != nil {
		t.Fatalf("outcome = %+v", out)
	}
	saved, err := f.repo.GetByID(dbctx.Context{Ctx: ctx}, a.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if saved.Status != learning.AssessmentReviewed || saved.Passed == nil || !*saved.Passed || len(saved.Responses) != 1 {
		t.Fatalf("saved = %+v", saved)
	}
	if _, err := f.svc.Submit(ctx, owner, a.ID, answers(a)); !errors.Is(err, ErrAlreadyReviewed) {
		t.Fatalf("resubmit: %v", err)
	}
}

func TestGenerateRequiresAwaitingAssessment(t *testing.T) {
	f := newFixture(t, progression.DefaultRetryPolicy())
	ctx := context.Background()
	a, _ := f.svc.Generate(ctx, owner, f.course)
	if _, err := f.svc.Submit(ctx, owner, a.ID, answers(a)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	calls := f.mock.CallCount()
	if _, err := f.svc.Generate(ctx, owner, f.course); !errors.Is(err, ErrNotReady) {
		t.Fatalf("generate on completed course: %v", err)
	}
	if f.mock.CallCount() != calls || f.status(t) != learning.StatusCompleted {
		t.Fatalf("rejected generate changed something")
	}
}

func TestEmptyResponsesRejectedBeforeReview(t *testing.T) {
	f := newFixture(t, progression.DefaultRetryPolicy())
	ctx := context.Background()
	a, _ := f.svc.Generate(ctx, owner, f.course)
	calls := f.mock.CallCount()

	for _, rs := range [][]learning.ItemResponse{
		nil,
		{{Objective: "Define variables", Text: "   "}},
		{{Objective: "Something else", Text: "answer"}},
	} {
		if _, err := f.svc.Submit(ctx, owner, a.ID, rs); !errors.Is(err, ErrEmptySubmission) {
			t.Fatalf("responses %+v: %v", rs, err)
		}
	}
	if f.mock.CallCount() != calls {
		t.Fatalf("empty responses reached the reviewer")
	}
	// Unlabelled responses match items by position.
	if _, err := f.svc.Submit(ctx, owner, a.ID, []learning.ItemResponse{{Text: "A named value."}}); err != nil {
		t.Fatalf("positional responses: %v", err)
	}
}

func TestFailedAttemptLoopsWithFreshItems(t *testing.T) {
	f := newFixture(t, RetryPolicy{OnFail: progression.RouteLoop, RegenerateItems: true})
	ctx := context.Background()
	f.script.AssessmentScore = 40

	a, _ := f.svc.Generate(ctx, owner, f.course)
	out, err := f.svc.Submit(ctx, owner, a.ID, answers(a))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Passed || out.CourseStatus != learning.StatusAssessmentReady || out.Next != nil {
		t.Fatalf("outcome = %+v", out)
	}
	again, err := f.svc.Generate(ctx, owner, f.course)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if again.Attempt != 2 || again.ID == a.ID {
		t.Fatalf("second attempt = %+v", again)
	}
}

func TestFailedAttemptLoopsWithSameItems(t *testing.T) {
	f := newFixture(t, RetryPolicy{OnFail: progression.RouteLoop, RegenerateItems: false})
	ctx := context.Background()
	f.script.AssessmentScore = 40

	a, _ := f.svc.Generate(ctx, owner, f.course)
	out, err := f.svc.Submit(ctx, owner, a.ID, answers(a))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Next == nil || out.Next.Attempt != 2 || out.Next.Status != learning.AssessmentPending {
		t.Fatalf("no pending retry: %+v", out.Next)
	}
	if out.Next.Items[0].Prompt != a.Items[0].Prompt {
		t.Fatalf("retry items changed")
	}
	if _, err := f.svc.Generate(ctx, owner, f.course); !errors.Is(err, ErrNotReady) {
		t.Fatalf("regenerate without policy: %v", err)
	}

	f.script.AssessmentScore = 95
	out, err = f.svc.Submit(ctx, owner, out.Next.ID, answers(a))
	if err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if !out.Passed || out.CourseStatus != learning.StatusCompleted {
		t.Fatalf("retry outcome = %+v", out)
	}
}

func TestFailedAttemptRoutesToReview(t *testing.T) {
	f := newFixture(t, RetryPolicy{OnFail: progression.RouteReview, RegenerateItems: true})
	ctx := context.Background()
	f.script.AssessmentScore = 55

	a, _ := f.svc.Generate(ctx, owner, f.course)
	out, err := f.svc.Submit(ctx, owner, a.ID, answers(a))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.CourseStatus != learning.StatusInProgress || out.Next != nil {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestGenerationFailureRestoresStatus(t *testing.T) {
	f := newFixture(t, progression.DefaultRetryPolicy())
	ctx := context.Background()
	f.script.Fail(agents.AssessmentSpecSchema.Name, &llm.ErrRejected{Err: errors.New("quota")})

	if _, err := f.svc.Generate(ctx, owner, f.course); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("err = %v", err)
	}
	if got := f.status(t); got != learning.StatusAwaitingAssessment {
		t.Fatalf("status = %s", got)
	}
	list, err := f.svc.List(ctx, owner, f.course)
	if err != nil || len(list) != 0 {
		t.Fatalf("list = %d, %v", len(list), err)
	}

	f.script.Clear(agents.AssessmentSpecSchema.Name)
	if _, err := f.svc.Generate(ctx, owner, f.course); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestOtherUsersCannotSubmit(t *testing.T) {
	f := newFixture(t, progression.DefaultRetryPolicy())
	a, _ := f.svc.Generate(context.Background(), owner, f.course)
	if _, err := f.svc.Submit(context.Background(), "intruder", a.ID, answers(a)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestPolicyFromEnv(t *testing.T) {
	log := testutil.Logger(t)

	p, err := PolicyFromEnv(log)
	if err != nil || p != progression.DefaultRetryPolicy() {
		t.Fatalf("defaults = %+v, %v", p, err)
	}

	t.Setenv("ASSESSMENT_RETRY_ON_FAIL", "Review")
	t.Setenv("ASSESSMENT_RETRY_REGENERATE", "false")
	p, err = PolicyFromEnv(log)
	if err != nil || p.OnFail != progression.RouteReview || p.RegenerateItems {
		t.Fatalf("from env = %+v, %v", p, err)
	}

	t.Setenv("ASSESSMENT_RETRY_ON_FAIL", "sideways")
	if _, err := PolicyFromEnv(log); err == nil {
		t.Fatalf("unknown route accepted")
	}
}
