package api

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	"autom8/domain"
)

type fakeService struct {
	mu sync.Mutex

	raw      []domain.RawTask
	tasks    []domain.Task
	genErr   error
	progress domain.Progress
	progErr  error
	saveErr  error
	saved    []string
	project  domain.Project
	status   map[string]string
	removed  []string
	addErr   error
	storeErr error
	roster   *domain.Roster
	refresh  int
}

func newFakeService() *fakeService {
	return &fakeService{roster: domain.NewRoster(func(int) int { return 0 }), status: map[string]string{}}
}

func (f *fakeService) GenerateRaw(_ context.Context, brief string) ([]domain.RawTask, error) {
	if strings.TrimSpace(brief) == "" {
		return []domain.RawTask{}, domain.ErrEmptyBrief
	}
	return f.raw, f.genErr
}

func (f *fakeService) GenerateTasks(_ context.Context, brief string) ([]domain.Task, error) {
	if strings.TrimSpace(brief) == "" {
		return []domain.Task{}, domain.ErrEmptyBrief
	}
	if f.genErr != nil {
		return []domain.Task{}, f.genErr
	}
	return f.tasks, nil
}

func (f *fakeService) SaveProject(_ context.Context, name string, tasks []domain.Task) (domain.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := domain.PrepareTasks(tasks); err != nil {
		return domain.Project{}, err
	}
	f.saved = append(f.saved, name)
	if f.saveErr != nil {
		return f.project, f.saveErr
	}
	p := f.project
	p.Name = name
	p.TaskCount = len(tasks)
	return p, nil
}

func (f *fakeService) UpdateTaskStatus(_ context.Context, projectID, taskID, status string) error {
	if _, ok := domain.ParseStatus(status); !ok {
		return domain.ErrInvalidStatus
	}
	if f.storeErr != nil {
		return f.storeErr
	}
	f.status[projectID+"/"+taskID] = status
	return nil
}

func (f *fakeService) ListProjects(context.Context) ([]domain.Project, error) {
	return nil, f.storeErr
}

func (f *fakeService) ListTasks(context.Context, string) ([]domain.Task, error) {
	return f.tasks, f.storeErr
}

func (f *fakeService) ProjectProgress(context.Context, string) (domain.Progress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress, f.progErr
}

func (f *fakeService) AddMember(_ context.Context, name, role string) (string, error) {
	if _, ok := domain.ParseRole(role); !ok {
		return "", domain.ErrInvalidRole
	}
	return "m-1", f.addErr
}

func (f *fakeService) RemoveMember(_ context.Context, id string) error {
	f.removed = append(f.removed, id)
	return f.storeErr
}

func (f *fakeService) RefreshRoster(context.Context) error {
	f.refresh++
	return nil
}

func (f *fakeService) Roster() *domain.Roster { return f.roster }

type staticAuth struct {
	user string
	err  error
}

func (a staticAuth) UserIDFromAuthHeader(string) (string, error) { return a.user, a.err }

func newTestServer(t *testing.T, svc Service, deduper Deduper) *echo.Echo {
	t.Helper()
	logger, _ := test.NewNullLogger()
	e := echo.New()
	Register(e, svc, staticAuth{user: "user-1"}, deduper, logger, Options{StreamInterval: 10 * time.Millisecond})
	return e
}

func doJSON(e *echo.Echo, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGenerateTasksReturnsRawRecords(t *testing.T) {
	svc := newFakeService()
	svc.raw = []domain.RawTask{{"name": "API", "type": "Backend"}}
	e := newTestServer(t, svc, nil)

	rec := doJSON(e, http.MethodPost, "/api/generateTasks", `{"text":"build it"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp generateTasksResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Tasks) != 1 || resp.Tasks[0]["name"] != "API" {
		t.Fatalf("unexpected tasks: %#v", resp.Tasks)
	}
}

func TestGenerateTasksErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		genErr error
		status int
		msg    string
	}{
		{name: "empty", body: `{"text":"  "}`, status: http.StatusBadRequest, msg: briefRequiredNotice},
		{name: "gateway", body: `{"text":"x"}`, genErr: domain.ErrGenerationFailed, status: http.StatusInternalServerError, msg: processingFailedNotice},
		{name: "malformed", body: `{"text":`, status: http.StatusBadRequest, msg: "invalid body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.genErr = tt.genErr
			e := newTestServer(t, svc, nil)
			rec := doJSON(e, http.MethodPost, "/api/generateTasks", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			var resp generateTasksResponse
			if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error != tt.msg {
				t.Fatalf("expected error %q, got %q", tt.msg, resp.Error)
			}
			if resp.Tasks == nil || len(resp.Tasks) != 0 {
				t.Fatalf("expected empty task list, got %#v", resp.Tasks)
			}
		})
	}
}

func TestPostBriefRendersRows(t *testing.T) {
	svc := newFakeService()
	svc.tasks = []domain.Task{
		{ID: "1", Name: "API", Category: domain.CategoryBackend, Assignee: "Sam", Status: domain.StatusPending, Priority: domain.PriorityHigh},
		{ID: "2", Name: "Mocks", Category: domain.CategoryDesign, Assignee: domain.Unassigned, Status: domain.StatusPending, Priority: domain.PriorityLow},
	}
	e := newTestServer(t, svc, nil)

	rec := doJSON(e, http.MethodPost, "/api/briefs", `{"text":"a dashboard"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp briefResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Tasks) != 2 || len(resp.Rows) != 2 {
		t.Fatalf("expected 2 tasks and rows, got %d/%d", len(resp.Tasks), len(resp.Rows))
	}
	if resp.Rows[0].AssigneeInitial != "S" || resp.Rows[0].PriorityClass != "priority-high" {
		t.Fatalf("unexpected first row: %#v", resp.Rows[0])
	}
	if !resp.Rows[1].Unassigned || resp.Rows[1].AssigneeInitial != "?" {
		t.Fatalf("unexpected unassigned row: %#v", resp.Rows[1])
	}
	if svc.refresh != 1 {
		t.Fatalf("expected roster refresh before generation, got %d", svc.refresh)
	}
}

func TestPostBriefGatewayFailure(t *testing.T) {
	svc := newFakeService()
	svc.genErr = errors.Join(domain.ErrGenerationFailed, errors.New("timeout"))
	e := newTestServer(t, svc, nil)

	rec := doJSON(e, http.MethodPost, "/api/briefs", `{"text":"a dashboard"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var resp briefResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != generationFailedNotice || len(resp.Tasks) != 0 {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestPostBriefEmptyBriefSkipsRefresh(t *testing.T) {
	svc := newFakeService()
	e := newTestServer(t, svc, nil)

	rec := doJSON(e, http.MethodPost, "/api/briefs", `{"text":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.refresh != 0 {
		t.Fatalf("expected no roster refresh for empty brief")
	}
}

func TestTeamRoutes(t *testing.T) {
	svc := newFakeService()
	svc.roster.Replace([]domain.TeamMember{{ID: "m-1", Name: "Alex", Role: domain.RoleQA, Load: 3}})
	e := newTestServer(t, svc, nil)

	rec := doJSON(e, http.MethodGet, "/api/team", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var team teamResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &team); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(team.Rows) != 1 || team.Rows[0].LoadLabel != "3 Tasks" {
		t.Fatalf("unexpected rows: %#v", team.Rows)
	}

	if rec := doJSON(e, http.MethodPost, "/api/team", `{"name":"Kim","role":"Pilot"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid role, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodPost, "/api/team", `{"name":"Kim","role":"DevOps"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	if rec := doJSON(e, http.MethodDelete, "/api/team/m-1", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without confirmation, got %d", rec.Code)
	}
	if len(svc.removed) != 0 {
		t.Fatalf("member removed without confirmation")
	}
	if rec := doJSON(e, http.MethodDelete, "/api/team/m-1?confirm=true", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(svc.removed) != 1 || svc.removed[0] != "m-1" {
		t.Fatalf("unexpected removals: %v", svc.removed)
	}
}

func newTestDeduper(t *testing.T) *RedisDeduper {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewRedisDeduper(rc, time.Hour)
}

func TestPostProjectIdempotencyKey(t *testing.T) {
	svc := newFakeService()
	svc.project = domain.Project{ID: "p-1", Status: domain.ProjectStatusActive}
	e := newTestServer(t, svc, newTestDeduper(t))

	body := `{"name":"Launch","tasks":[{"id":"1","name":"API","category":"Backend"}]}`
	rec := doJSON(e, http.MethodPost, "/api/projects", body, idempotencyHeader, "k1")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp projectResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Project.ID != "p-1" || resp.Project.TaskCount != 1 {
		t.Fatalf("unexpected project: %#v", resp.Project)
	}

	rec = doJSON(e, http.MethodPost, "/api/projects", body, idempotencyHeader, "k1")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on replay, got %d", rec.Code)
	}
	if len(svc.saved) != 1 {
		t.Fatalf("expected one save, got %d", len(svc.saved))
	}

	if rec := doJSON(e, http.MethodPost, "/api/projects", body); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 without key, got %d", rec.Code)
	}
}

func TestPostProjectFailureReleasesKey(t *testing.T) {
	svc := newFakeService()
	svc.saveErr = errors.New("table unavailable")
	e := newTestServer(t, svc, newTestDeduper(t))

	body := `{"name":"Launch","tasks":[]}`
	if rec := doJSON(e, http.MethodPost, "/api/projects", body, idempotencyHeader, "k1"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	svc.saveErr = nil
	svc.project = domain.Project{ID: "p-2"}
	if rec := doJSON(e, http.MethodPost, "/api/projects", body, idempotencyHeader, "k1"); rec.Code != http.StatusCreated {
		t.Fatalf("expected retry to succeed, got %d", rec.Code)
	}
}

func TestPostProjectPartialSaveReportsProject(t *testing.T) {
	svc := newFakeService()
	svc.project = domain.Project{ID: "p-3"}
	svc.saveErr = errors.New("task write failed")
	e := newTestServer(t, svc, nil)

	rec := doJSON(e, http.MethodPost, "/api/projects", `{"name":"Launch","tasks":[{"id":"1","name":"A"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp projectResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Project.ID != "p-3" || resp.Error == "" {
		t.Fatalf("expected partial project in response, got %#v", resp)
	}
}

func TestPatchTaskStatus(t *testing.T) {
	svc := newFakeService()
	e := newTestServer(t, svc, nil)

	if rec := doJSON(e, http.MethodPatch, "/api/projects/p/tasks/t", `{"status":"in progress"}`); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if svc.status["p/t"] != "in progress" {
		t.Fatalf("status not forwarded: %v", svc.status)
	}
	if rec := doJSON(e, http.MethodPatch, "/api/projects/p/tasks/t", `{"status":"Blocked"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", rec.Code)
	}

	svc.storeErr = domain.ErrNotFound
	if rec := doJSON(e, http.MethodPatch, "/api/projects/p/tasks/missing", `{"status":"Done"}`); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStoreFailuresHideDetails(t *testing.T) {
	svc := newFakeService()
	svc.storeErr = errors.New("connection reset by 10.0.0.4")
	e := newTestServer(t, svc, nil)

	rec := doJSON(e, http.MethodGet, "/api/projects", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.4") {
		t.Fatalf("store error leaked: %s", rec.Body.String())
	}
}

func TestGetProjectTasksIncludesProgress(t *testing.T) {
	svc := newFakeService()
	svc.tasks = []domain.Task{
		{ID: "1", Category: domain.CategoryFrontend, Status: domain.StatusDone},
		{ID: "2", Category: domain.CategoryFrontend, Status: domain.StatusPending},
	}
	e := newTestServer(t, svc, nil)

	rec := doJSON(e, http.MethodGet, "/api/projects/p/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp projectTasksResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Progress.Frontend != 50 || resp.Progress.Overall != 50 {
		t.Fatalf("unexpected progress: %#v", resp.Progress)
	}
	if len(resp.Rows) != 2 || resp.Rows[0].StatusColor != "#05CD99" {
		t.Fatalf("unexpected rows: %#v", resp.Rows)
	}
}

func TestRequireUserRejectsUnauthenticated(t *testing.T) {
	logger, _ := test.NewNullLogger()
	e := echo.New()
	Register(e, newFakeService(), staticAuth{err: errMissingAuthorization}, nil, logger, Options{})

	rec := doJSON(e, http.MethodGet, "/api/projects", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz should not require auth, got %d", rec.Code)
	}
}

func TestGzipRequestBody(t *testing.T) {
	svc := newFakeService()
	svc.raw = []domain.RawTask{{"name": "A"}}
	e := newTestServer(t, svc, nil)

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(`{"text":"zipped"}`)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/generateTasks", &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/generateTasks", strings.NewReader("not gzip"))
	req.Header.Set(echo.HeaderContentEncoding, "gzip")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid gzip, got %d", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrEmptyName, http.StatusBadRequest},
		{domain.ErrInvalidRole, http.StatusBadRequest},
		{fmt.Errorf("%w: duplicate id", domain.ErrInvalidTask), http.StatusBadRequest},
		{domain.ErrInvalidKey, http.StatusBadRequest},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{domain.ErrGenerationFailed, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Fatalf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestPostProjectRejectsInvalidTasks(t *testing.T) {
	bodies := map[string]string{
		"status":    `{"name":"Launch","tasks":[{"id":"1","status":"Garbage"}]}`,
		"key":       `{"name":"Launch","tasks":[{"id":"a/b"}]}`,
		"duplicate": `{"name":"Launch","tasks":[{"id":"1"},{"id":"1"}]}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			svc := newFakeService()
			svc.project = domain.Project{ID: "p-1"}
			e := newTestServer(t, svc, newTestDeduper(t))

			rec := doJSON(e, http.MethodPost, "/api/projects", body, idempotencyHeader, "k1")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if len(svc.saved) != 0 {
				t.Fatalf("expected nothing saved, got %v", svc.saved)
			}
			// the rejected key is released so a corrected request can reuse it
			fixed := `{"name":"Launch","tasks":[{"id":"1"}]}`
			if rec := doJSON(e, http.MethodPost, "/api/projects", fixed, idempotencyHeader, "k1"); rec.Code != http.StatusCreated {
				t.Fatalf("expected corrected request to succeed, got %d", rec.Code)
			}
		})
	}
}
