package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/service"
	appErr "codejudge/pkg/errors"

	"github.com/gin-gonic/gin"
)

type fakeStatuses map[string]repository.JudgeStatus

func (f fakeStatuses) Get(ctx context.Context, id string) (repository.JudgeStatus, error) {
	s, ok := f[id]
	if !ok {
		return repository.JudgeStatus{}, appErr.New(appErr.SubmissionNotFound)
	}
	return s, nil
}

type fakeSubmissions map[string]*repository.SubmissionRecord

func (f fakeSubmissions) FindByID(ctx context.Context, tx db.Transaction, id string) (*repository.SubmissionRecord, error) {
	rec, ok := f[id]
	if !ok {
		return nil, appErr.Newf(appErr.SubmissionNotFound, "submission %s not found", id)
	}
	return rec, nil
}

type fakeSources map[string]string

func (f fakeSources) Enabled() bool { return true }
func (f fakeSources) Load(ctx context.Context, key string) (string, error) {
	return f[key], nil
}

type envelope struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

func newRouter(h *JudgeController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/submissions/:id", h.GetSubmission)
	r.GET("/submissions/:id/source", h.GetSource)
	return r
}

func get(t *testing.T, r *gin.Engine, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return rec, env
}

func TestGetSubmissionInFlightUsesCache(t *testing.T) {
	h := NewJudgeController(
		fakeStatuses{"s1": {SubmissionID: "s1", Phase: service.PhaseExecuting, TestCase: 2, Total: 4}},
		fakeSubmissions{},
		nil,
	)
	rec, env := get(t, newRouter(h), "/submissions/s1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var view SubmissionView
	_ = json.Unmarshal(env.Data, &view)
	if view.Phase != service.PhaseExecuting || view.TestCase != 2 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestGetSubmissionDoneReadsDatabase(t *testing.T) {
	finished := time.Now()
	res := model.NewExecutionResult("s1", &model.Submission{UserID: "u1", IsAnswer: true})
	res.Fail(model.StatusWrongAnswer, "Expected 1, got 2")
	payload, _ := res.Encode()
	h := NewJudgeController(
		fakeStatuses{"s1": {SubmissionID: "s1", Phase: service.PhaseDone}},
		fakeSubmissions{"s1": {SubmissionID: "s1", Status: model.StatusWrongAnswer, TotalCases: 3, ResultJSON: payload, FinishedAt: &finished}},
		nil,
	)
	_, env := get(t, newRouter(h), "/submissions/s1")
	var view SubmissionView
	_ = json.Unmarshal(env.Data, &view)
	if view.Phase != service.PhaseDone || view.Status != "wrong_answer" || view.Result == nil {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Result.Error != "Expected 1, got 2" {
		t.Fatalf("unexpected embedded result %+v", view.Result)
	}
}

func TestGetSubmissionNotFound(t *testing.T) {
	h := NewJudgeController(fakeStatuses{}, fakeSubmissions{}, nil)
	rec, env := get(t, newRouter(h), "/submissions/missing")
	if rec.Code != http.StatusNotFound || env.Code != int(appErr.SubmissionNotFound) {
		t.Fatalf("expected 404 SubmissionNotFound, got %d / %d", rec.Code, env.Code)
	}
}

func TestGetSource(t *testing.T) {
	h := NewJudgeController(
		fakeStatuses{},
		fakeSubmissions{"s1": {SubmissionID: "s1", Language: "CPP", SourceKey: "u1/s1/source.cpp"}},
		fakeSources{"u1/s1/source.cpp": "int main(){}"},
	)
	rec, env := get(t, newRouter(h), "/submissions/s1/source")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(env.Data, &body)
	if body["code"] != "int main(){}" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestGetSourceDisabled(t *testing.T) {
	h := NewJudgeController(fakeStatuses{}, fakeSubmissions{}, nil)
	rec, _ := get(t, newRouter(h), "/submissions/s1/source")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
