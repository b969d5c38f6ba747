package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/school-backend/internal/agents"
	"github.com/yungbote/school-backend/internal/agents/agenttest"
	agentlogrepo "github.com/yungbote/school-backend/internal/data/repos/agentlog"
	jobrepo "github.com/yungbote/school-backend/internal/data/repos/jobs"
	learningrepo "github.com/yungbote/school-backend/internal/data/repos/learning"
	"github.com/yungbote/school-backend/internal/data/repos/testutil"
	userrepo "github.com/yungbote/school-backend/internal/data/repos/user"
	"github.com/yungbote/school-backend/internal/domain/learning"
	httpH "github.com/yungbote/school-backend/internal/http/handlers"
	httpMW "github.com/yungbote/school-backend/internal/http/middleware"
	"github.com/yungbote/school-backend/internal/jobs/pipeline/course_generate"
	jobrt "github.com/yungbote/school-backend/internal/jobs/runtime"
	"github.com/yungbote/school-backend/internal/jobs/worker"
	"github.com/yungbote/school-backend/internal/platform/llm"
	"github.com/yungbote/school-backend/internal/realtime"
	"github.com/yungbote/school-backend/internal/services"
	"github.com/yungbote/school-backend/internal/services/activity"
	"github.com/yungbote/school-backend/internal/services/assessment"
	"github.com/yungbote/school-backend/internal/services/catalog"
	"github.com/yungbote/school-backend/internal/services/orchestrator"
	"github.com/yungbote/school-backend/internal/services/profile"
	"github.com/yungbote/school-backend/internal/services/progression"
)

type testAPI struct {
	t      *testing.T
	engine *gin.Engine
	hub    *realtime.SSEHub
	worker *worker.Worker
	script *agenttest.Script
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	hub := realtime.NewSSEHub(log)
	emit := &services.HubEmitter{Hub: hub}
	genNotify := services.NewGenerationNotifier(emit)

	courses := learningrepo.NewCourseRepo(db, log)
	agentLogs := agentlogrepo.NewAgentLogRepo(db, log)
	jobRuns := jobrepo.NewJobRunRepo(db, log)
	store := orchestrator.NewStore(courses, log)
	script := agenttest.NewScript()
	provider := llm.WithLogging(script.Provider(), orchestrator.NewLogRecorder(store, agentLogs), log)
	ag := agents.New(provider, agents.DefaultConfig(), log)
	profiles := profile.New(log, userrepo.NewProfileRepo(db, log), userrepo.NewSettingsRepo(db, log), "")
	jobs := services.NewJobService(db, log, jobRuns, services.NewJobNotifier(emit))

	orch := orchestrator.New(orchestrator.Deps{
		Log:         log,
		Store:       store,
		Agents:      ag,
		Learners:    profiles,
		Lessons:     learningrepo.NewLessonRepo(db, log),
		Assessments: learningrepo.NewAssessmentRepo(db, log),
		AgentLogs:   agentLogs,
		Notify:      genNotify,
		Policy:      progression.DefaultRetryPolicy(),
	})
	courseSvc := services.NewCourseService(log, courses, jobs, store, genNotify)

	cat := catalog.New(log, courseSvc)
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "go-basics"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "go-basics", "course.json"), []byte(`{
		"name": "Go Basics", "description": "Types and goroutines",
		"learningObjectives": ["Declare types", "Start goroutines"], "tags": ["go"]
	}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := cat.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}

	reg := jobrt.NewRegistry()
	if err := reg.Register(course_generate.New(log, orch)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	w := worker.NewWorker(log, jobRuns, reg, services.NewJobNotifier(emit), worker.Config{
		Concurrency:  1,
		StaleRunning: time.Hour,
		Heartbeat:    time.Hour,
	})

	engine := NewRouter(RouterConfig{
		Log:               log,
		AuthMiddleware:    httpMW.NewAuthMiddleware(log, "", userrepo.NewUserRepo(db, log)),
		HealthHandler:     httpH.NewHealthHandler(db),
		CatalogHandler:    httpH.NewCatalogHandler(cat),
		CourseHandler:     httpH.NewCourseHandler(courseSvc, orch, jobs),
		LessonHandler:     httpH.NewLessonHandler(orch, jobs),
		ActivityHandler:   httpH.NewActivityHandler(activity.New(log, orch, ag)),
		AssessmentHandler: httpH.NewAssessmentHandler(assessment.New(log, orch, ag, learningrepo.NewAssessmentRepo(db, log), genNotify), orch, jobs),
		JobHandler:        httpH.NewJobHandler(jobs),
		ProfileHandler:    httpH.NewProfileHandler(profiles),
		RealtimeHandler:   httpH.NewRealtimeHandler(log, hub, orch),
	})
	return &testAPI{t: t, engine: engine, hub: hub, worker: w, script: script}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
	return out
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d; body=%s", rec.Code, status, rec.Body)
	}
	got := decode[errorBody](t, rec)
	if got.Error.Code != code || got.Error.Message == "" {
		t.Fatalf("error = %+v, want code %q", got.Error, code)
	}
}

func (a *testAPI) createCourse(objectives ...string) uuid.UUID {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/courses", map[string]any{
		"description": "Learn Go",
		"objectives":  objectives,
	})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}
	return decode[struct {
		Course learning.Course `json:"course"`
	}](a.t, rec).Course.ID
}

func (a *testAPI) snapshot(id uuid.UUID) httpH.SnapshotView {
	a.t.Helper()
	rec := a.do(http.MethodGet, "/api/courses/"+id.String(), nil)
	if rec.Code != http.StatusOK {
		a.t.Fatalf("get status = %d body=%s", rec.Code, rec.Body)
	}
	return decode[httpH.SnapshotView](a.t, rec)
}

func TestHealth(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("health = %d %s", rec.Code, rec.Body)
	}
}

func TestCreateCourseValidates(t *testing.T) {
	a := newTestAPI(t)
	expectError(t, a.do(http.MethodPost, "/api/courses", map[string]any{"objectives": []string{}}), http.StatusBadRequest, "invalid_request")
	expectError(t, a.do(http.MethodPost, "/api/courses", map[string]any{"objectives": []string{" ", ""}}), http.StatusBadRequest, "invalid_objectives")
	expectError(t, a.do(http.MethodGet, "/api/courses/not-a-uuid", nil), http.StatusBadRequest, "invalid_course_id")
	expectError(t, a.do(http.MethodGet, "/api/courses/"+uuid.NewString(), nil), http.StatusNotFound, "course_not_found")
	expectError(t, a.do(http.MethodGet, "/api/courses?status=bogus", nil), http.StatusBadRequest, "invalid_status")
}

func TestCourseLifecycleOverHTTP(t *testing.T) {
	a := newTestAPI(t)
	id := a.createCourse("Declare variables", "Write loops")

	snap := a.snapshot(id)
	if snap.Course.Status != learning.StatusDraft || snap.Generation.Running || snap.Generation.CurrentObjectiveIndex != nil {
		t.Fatalf("draft snapshot = %+v", snap.Generation)
	}

	rec := a.do(http.MethodPost, "/api/courses/"+id.String()+"/generate", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("generate status = %d body=%s", rec.Code, rec.Body)
	}
	jobID := decode[struct {
		JobID uuid.UUID `json:"job_id"`
	}](t, rec).JobID

	// The job is still queued, so a second request is refused.
	expectError(t, a.do(http.MethodPost, "/api/courses/"+id.String()+"/generate", nil), http.StatusConflict, "generation_in_flight")

	if !a.worker.RunOnce(context.Background(), 1) {
		t.Fatalf("worker claimed nothing")
	}
	rec = a.do(http.MethodGet, "/api/jobs/"+jobID.String(), nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"succeeded"`) {
		t.Fatalf("job = %d %s", rec.Code, rec.Body)
	}

	snap = a.snapshot(id)
	if snap.Course.Status != learning.StatusInProgress || len(snap.Course.Lessons) != 1 || len(snap.Course.Roadmap) != 2 {
		t.Fatalf("after generation: status %s lessons %d roadmap %d", snap.Course.Status, len(snap.Course.Lessons), len(snap.Course.Roadmap))
	}
	if snap.Generation.Running {
		t.Fatalf("generation still running")
	}

	// Generating an in-progress course is not a legal transition.
	expectError(t, a.do(http.MethodPost, "/api/courses/"+id.String()+"/generate", nil), http.StatusConflict, "invalid_transition")

	rec = a.do(http.MethodPatch, "/api/courses/"+id.String()+"/navigation", map[string]any{"page_index": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("navigation status = %d body=%s", rec.Code, rec.Body)
	}
	expectError(t, a.do(http.MethodPatch, "/api/courses/"+id.String()+"/navigation", map[string]any{}), http.StatusBadRequest, "empty_navigation")

	lessonID := snap.Course.Lessons[0].ID
	expectError(t, a.do(http.MethodPost, "/api/activities/"+lessonID.String()+"/submit", map[string]any{"text": "   "}), http.StatusBadRequest, "empty_submission")

	rec = a.do(http.MethodPost, "/api/lessons/"+lessonID.String()+"/complete", map[string]any{"comprehension_score": 85})
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d body=%s", rec.Code, rec.Body)
	}
	done := decode[httpH.SnapshotView](t, rec)
	if done.Course.CompletedLessons != 1 || done.Course.Progress != 50 {
		t.Fatalf("after complete: %d lessons, progress %d", done.Course.CompletedLessons, done.Course.Progress)
	}

	rec = a.do(http.MethodPost, "/api/courses/"+id.String()+"/lessons/next", map[string]any{"comprehension_score": 85})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("next lesson status = %d body=%s", rec.Code, rec.Body)
	}

	rec = a.do(http.MethodGet, "/api/courses/"+id.String()+"/logs", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"logs":[{`) {
		t.Fatalf("logs = %d %s", rec.Code, rec.Body)
	}
	if rec = a.do(http.MethodDelete, "/api/courses/"+id.String()+"/logs", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("reset logs status = %d", rec.Code)
	}
	rec = a.do(http.MethodGet, "/api/courses/"+id.String()+"/logs", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"logs":[]`) {
		t.Fatalf("logs after reset = %d %s", rec.Code, rec.Body)
	}

	rec = a.do(http.MethodDelete, "/api/courses/"+id.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	expectError(t, a.do(http.MethodGet, "/api/courses/"+id.String(), nil), http.StatusNotFound, "course_not_found")
}

func TestTransitionEndpoint(t *testing.T) {
	a := newTestAPI(t)
	id := a.createCourse("Only objective")
	expectError(t, a.do(http.MethodPatch, "/api/courses/"+id.String()+"/state", map[string]any{"target_state": "completed"}), http.StatusConflict, "invalid_transition")
	expectError(t, a.do(http.MethodPatch, "/api/courses/"+id.String()+"/state", map[string]any{"target_state": "flying"}), http.StatusBadRequest, "invalid_status")
	expectError(t, a.do(http.MethodPost, "/api/assessments/"+id.String()+"/generate", nil), http.StatusConflict, "assessment_not_ready")
}

func TestCatalogStartCreatesDraft(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(http.MethodGet, "/api/catalog?search=GOROUTINES", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Fatalf("catalog = %d %s", rec.Code, rec.Body)
	}
	rec = a.do(http.MethodPost, "/api/catalog/go-basics/start", nil)
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"source_type":"predefined"`) {
		t.Fatalf("start = %d %s", rec.Code, rec.Body)
	}
	expectError(t, a.do(http.MethodPost, "/api/catalog/nope/start", nil), http.StatusNotFound, "catalog_course_not_found")

	rec = a.do(http.MethodGet, "/api/courses?status=draft", nil)
	if !strings.Contains(rec.Body.String(), `"source_course_id":"go-basics"`) {
		t.Fatalf("courses = %s", rec.Body)
	}
}

func TestProfileAndSettings(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(http.MethodGet, "/api/profile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d", rec.Code)
	}
	rec = a.do(http.MethodPut, "/api/profile", map[string]any{"experience_level": "advanced", "interests": []string{"music"}})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"experience_level":"advanced"`) {
		t.Fatalf("update profile = %d %s", rec.Code, rec.Body)
	}
	expectError(t, a.do(http.MethodPut, "/api/profile", map[string]any{"experience_level": "wizard"}), http.StatusBadRequest, "invalid_request")
	expectError(t, a.do(http.MethodPut, "/api/profile", map[string]any{"interests": []string{" "}}), http.StatusBadRequest, "invalid_request")

	rec = a.do(http.MethodPut, "/api/settings", map[string]any{"visuals_enabled": false, "aspect_ratio": "1:1"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"aspect_ratio":"1:1"`) {
		t.Fatalf("update settings = %d %s", rec.Code, rec.Body)
	}
}

func TestCourseEventsStream(t *testing.T) {
	a := newTestAPI(t)
	id := a.createCourse("Stream me")

	srv := httptest.NewServer(a.engine)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/courses/"+id.String()+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	line, err := r.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, ": connected") {
		t.Fatalf("first line = %q, %v", line, err)
	}
	a.hub.Broadcast(realtime.SSEMessage{
		Channel: realtime.CourseChannel(id),
		Event:   realtime.SSEEventLessonPlanned,
		Data:    realtime.GenerationEvent{CourseID: id, ObjectiveIndex: 0, PlanTitle: "Intro"},
	})
	for {
		line, err = r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			break
		}
	}
	var msg struct {
		Event string                   `json:"event"`
		Data  realtime.GenerationEvent `json:"data"`
	}
	if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &msg); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if msg.Event != string(realtime.SSEEventLessonPlanned) || msg.Data.PlanTitle != "Intro" || msg.Data.ObjectiveIndex != 0 {
		t.Fatalf("event = %+v", msg)
	}
}
