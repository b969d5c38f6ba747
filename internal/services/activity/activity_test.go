package activity

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
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

// pngHeader is enough for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

type fixture struct {
	svc    *Service
	orch   *orchestrator.Service
	script *agenttest.Script
	mock   *llm.MockProvider
	course uuid.UUID
	lesson uuid.UUID
}

// newFixture generates a two-lesson course whose first activity has kind.
func newFixture(t *testing.T, kind learning.ActivityKind) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	ctx := context.Background()

	courses := learningrepo.NewCourseRepo(db, log)
	logs := agentlogrepo.NewAgentLogRepo(db, log)
	store := orchestrator.NewStore(courses, log)
	script := agenttest.NewScript()
	script.ActivityType = string(kind)
	mock := script.Provider()
	ag := agents.New(llm.WithLogging(mock, orchestrator.NewLogRecorder(store, logs), log), agents.DefaultConfig(), log)

	orch := orchestrator.New(orchestrator.Deps{
		Log:         log,
		Store:       store,
		Agents:      ag,
		Learners:    profile.New(log, userrepo.NewProfileRepo(db, log), userrepo.NewSettingsRepo(db, log), ""),
		Lessons:     learningrepo.NewLessonRepo(db, log),
		Assessments: learningrepo.NewAssessmentRepo(db, log),
		AgentLogs:   logs,
		Notify:      services.NewGenerationNotifier(nil),
		Policy:      progression.DefaultRetryPolicy(),
	})

	c := &learning.Course{
		UserID:          owner,
		SourceType:      learning.SourceCustom,
		InputObjectives: datatypes.JSONSlice[string]{"Define variables", "Use loops"},
		Status:          learning.StatusDraft,
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
	return &fixture{
		svc:    New(log, orch, ag),
		orch:   orch,
		script: script,
		mock:   mock,
		course: c.ID,
		lesson: st.Course.Lessons[0].ID,
	}
}

func (f *fixture) lessonState(t *testing.T) (orchestrator.State, *learning.Lesson) {
	t.Helper()
	st, l, err := f.orch.Lesson(context.Background(), owner, f.lesson)
	if err != nil {
		t.Fatalf("Lesson: %v", err)
	}
	return st, l
}

func TestEmptyTextRejectedBeforeReview(t *testing.T) {
	f := newFixture(t, learning.KindShortResponse)
	calls := f.mock.CallCount()

	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := f.svc.Submit(context.Background(), owner, f.lesson, Submission{Text: text}); !errors.Is(err, ErrEmptySubmission) {
			t.Fatalf("text %q: err = %v", text, err)
		}
	}
	if f.mock.CallCount() != calls {
		t.Fatalf("empty submission reached the reviewer")
	}
	st, l := f.lessonState(t)
	if st.Submitting || len(l.Submissions) != 0 {
		t.Fatalf("empty submission changed state: submitting=%v submissions=%d", st.Submitting, len(l.Submissions))
	}
}

func TestPassingReviewCompletesLesson(t *testing.T) {
	f := newFixture(t, learning.KindShortResponse)

	res, err := f.svc.Submit(context.Background(), owner, f.lesson, Submission{Text: "A variable names a value so it can be reused."})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Passed || !res.Completed || res.Score != 85 || res.Review.MasteryDecision != learning.MasteryMeets {
		t.Fatalf("result = %+v", res)
	}
	st, l := f.lessonState(t)
	if !l.Completed || l.ComprehensionScore == nil || *l.ComprehensionScore != 85 {
		t.Fatalf("lesson not completed: %+v", l)
	}
	if !l.Review.Data().Reviewed || len(l.Submissions) != 1 || l.Submissions[0].Score != 85 {
		t.Fatalf("review not stored")
	}
	if st.Submitting {
		t.Fatalf("submit guard left set")
	}
}

func TestFailingReviewKeepsLessonOpen(t *testing.T) {
	f := newFixture(t, learning.KindShortResponse)
	f.script.ReviewScore = 40

	res, err := f.svc.Submit(context.Background(), owner, f.lesson, Submission{Text: "not sure"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Passed || res.Completed {
		t.Fatalf("result = %+v", res)
	}
	_, l := f.lessonState(t)
	if l.Completed || l.Review.Data().Score != 40 {
		t.Fatalf("lesson = completed %v score %d", l.Completed, l.Review.Data().Score)
	}
}

func TestReviewerFailureClearsGuard(t *testing.T) {
	f := newFixture(t, learning.KindShortResponse)
	f.script.Fail(agents.ActivityReviewSchema.Name, &llm.ErrRejected{Err: errors.New("down")})

	if _, err := f.svc.Submit(context.Background(), owner, f.lesson, Submission{Text: "answer"}); !errors.Is(err, ErrReviewFailed) {
		t.Fatalf("err = %v", err)
	}
	st, l := f.lessonState(t)
	if st.Submitting || len(l.Submissions) != 0 {
		t.Fatalf("failed review left state behind")
	}
}

func TestChoiceScoredLocally(t *testing.T) {
	f := newFixture(t, learning.KindMultipleChoice)
	calls := f.mock.CallCount()

	res, err := f.svc.Submit(context.Background(), owner, f.lesson, Submission{Answers: []int{0, 0}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if f.mock.CallCount() != calls {
		t.Fatalf("multiple choice called the model")
	}
	if res.Score != 50 || res.Passed || res.Quiz == nil || len(res.Quiz.Missed) != 1 || res.Quiz.Missed[0].Explanation != "b is right" {
		t.Fatalf("result = %+v", res)
	}

	res, err = f.svc.Submit(context.Background(), owner, f.lesson, Submission{Answers: []int{0, 1}})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Score != 100 || !res.Completed {
		t.Fatalf("perfect quiz = %+v", res)
	}
	if _, err := f.svc.Submit(context.Background(), owner, f.lesson, Submission{}); !errors.Is(err, ErrEmptySubmission) {
		t.Fatalf("no answers: %v", err)
	}
}

func TestImageSubmissions(t *testing.T) {
	f := newFixture(t, learning.KindDrawing)
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, owner, f.lesson, Submission{ImageBase64: "data:image/png;base64,"}); !errors.Is(err, ErrEmptySubmission) {
		t.Fatalf("empty image: %v", err)
	}
	if _, err := f.svc.Submit(ctx, owner, f.lesson, Submission{ImageBase64: "!!!"}); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("bad base64: %v", err)
	}
	text := base64.StdEncoding.EncodeToString([]byte("just some text"))
	if _, err := f.svc.Submit(ctx, owner, f.lesson, Submission{ImageBase64: text}); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("non-image payload: %v", err)
	}

	img := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngHeader)
	res, err := f.svc.Submit(ctx, owner, f.lesson, Submission{ImageBase64: img})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Passed {
		t.Fatalf("result = %+v", res)
	}
	_, l := f.lessonState(t)
	if got := l.Submissions[len(l.Submissions)-1]; got.Kind != learning.KindDrawing || got.ImageBytes != len(pngHeader) {
		t.Fatalf("submission = %+v", got)
	}

	review := f.mock.Calls[len(f.mock.Calls)-1]
	if review.Schema == nil || review.Schema.Name != agents.ActivityReviewSchema.Name {
		t.Fatalf("last call was not the review: %+v", review.Schema)
	}
	imgs := review.Messages[0].Images
	if len(imgs) != 1 || imgs[0].MIME != "image/png" || !bytes.Equal(imgs[0].Data, pngHeader) {
		t.Fatalf("reviewer did not receive the drawing: %+v", imgs)
	}
}

func TestUploadReachesReviewer(t *testing.T) {
	f := newFixture(t, learning.KindFileUpload)
	photo := append(append([]byte{}, pngHeader...), []byte("whiteboard photo 7f3a")...)

	if _, err := f.svc.Submit(context.Background(), owner, f.lesson, Submission{ImageBase64: base64.StdEncoding.EncodeToString(photo)}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	review := f.mock.Calls[len(f.mock.Calls)-1]
	if imgs := review.Messages[0].Images; len(imgs) != 1 || !bytes.Equal(imgs[0].Data, photo) {
		t.Fatalf("upload not attached to review request")
	}
	if !strings.Contains(review.Messages[0].Content, "image is attached") {
		t.Fatalf("review prompt = %q", review.Messages[0].Content)
	}
}

func TestViewForLesson(t *testing.T) {
	f := newFixture(t, learning.KindFileUpload)
	v, err := f.svc.View(context.Background(), owner, f.lesson)
	if err != nil {
		t.Fatalf("View: %v", err)
	}
	_, l := f.lessonState(t)
	if v.Widget != WidgetUpload || v.ActivityID != l.ActivityID || len(v.AcceptedTypes) != 1 {
		t.Fatalf("view = %+v", v)
	}
	if _, err := f.svc.View(context.Background(), "intruder", f.lesson); !errors.Is(err, orchestrator.ErrCourseNotFound) {
		t.Fatalf("foreign user: %v", err)
	}
}
