package repl

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codejudge/internal/cli/command"
	httpclient "codejudge/internal/cli/http"
	"codejudge/internal/common/broker"
	"codejudge/internal/judge/bridge"
	"codejudge/internal/judge/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newSession(t *testing.T, baseURL string) (*Session, *broker.RedisBroker, *bytes.Buffer) {
	t.Helper()
	mr := miniredis.RunT(t)
	b, err := broker.NewRedisBrokerWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("broker: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	out := &bytes.Buffer{}
	s := New(httpclient.New(baseURL, time.Second), b, bridge.DefaultQueues(), command.Registry(), false, out)
	return s, b, out
}

func TestExecuteSubmitEnqueuesJob(t *testing.T) {
	s, b, out := newSession(t, "")
	path := filepath.Join(t.TempDir(), "job.json")
	job := `{"language":"CPP","functionName":"f","paramType":["integer"],"returnType":"integer","userId":"u1","dataInput":"1"}`
	if err := os.WriteFile(path, []byte(job), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctx := context.Background()

	if err := s.Execute(ctx, "submit file="+path); err != nil {
		t.Fatalf("execute: %v", err)
	}
	payload, err := b.BRPop(ctx, time.Second, "SUBMISSION_QUEUE")
	if err != nil {
		t.Fatalf("brpop: %v", err)
	}
	sub, err := model.DecodeSubmission(payload)
	if err != nil || !sub.IsAnswer || sub.UserID != "u1" {
		t.Fatalf("unexpected job %+v (%v)", sub, err)
	}
	if !strings.Contains(out.String(), "queued submit job") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestExecuteMissingFieldWithoutPrompter(t *testing.T) {
	s, _, _ := newSession(t, "")
	if err := s.Execute(context.Background(), "status"); err == nil {
		t.Fatalf("expected missing id error")
	}
}

func TestExecuteUnknownCommand(t *testing.T) {
	s, _, _ := newSession(t, "")
	if err := s.Execute(context.Background(), "compile x=1"); err == nil {
		t.Fatalf("expected unknown command error")
	}
}

func TestExecuteStatusQueriesOpsAPI(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"code":0,"data":{"phase":"done"}}`))
	}))
	defer srv.Close()
	s, _, out := newSession(t, srv.URL)

	if err := s.Execute(context.Background(), "status id=s1"); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if gotPath != "/api/v1/judge/submissions/s1" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if !strings.Contains(out.String(), "HTTP 200") || !strings.Contains(out.String(), `"phase":"done"`) {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestExecuteWatchPrintsPublishedResult(t *testing.T) {
	s, b, out := newSession(t, "")
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.Execute(ctx, "watch count=1 timeout=5s") }()

	res := model.NewExecutionResult("sub-9", &model.Submission{UserID: "u1", IsAnswer: true})
	payload, _ := res.Encode()
	deadline := time.Now().Add(3 * time.Second)
	for {
		// Publish until the subscription is live.
		_ = b.Publish(ctx, "RESULT_CHANNEL", payload)
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("watch: %v", err)
			}
			if !strings.Contains(out.String(), "[submit] sub-9 user=u1") {
				t.Fatalf("unexpected output %q", out.String())
			}
			return
		case <-time.After(50 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatalf("watch did not receive a result")
		}
	}
}
