package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codejudge/internal/judge/language"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/sandbox"
)

type fakeSandbox struct {
	reqs []sandbox.RunRequest
	run  func(req sandbox.RunRequest) (sandbox.RunResult, error)
}

func (f *fakeSandbox) Run(_ context.Context, req sandbox.RunRequest) (sandbox.RunResult, error) {
	f.reqs = append(f.reqs, req)
	if f.run == nil {
		return sandbox.RunResult{}, nil
	}
	return f.run(req)
}

func newTestExecutor(t *testing.T, sb *fakeSandbox) *Executor {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "box"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return New(sb, sandbox.Box{ID: 1, Root: root}, Config{}, nil)
}

func cppHandler() *language.Handler {
	return &language.Handler{
		Language:         model.LanguageCPP,
		Role:             language.RoleUser,
		SourceFile:       "userCode.cpp",
		BinaryFile:       "userCode",
		CompileCmd:       []string{"/usr/bin/g++", "userCode.cpp", "-o", "userCode"},
		RunCmd:           []string{"./userCode"},
		TimeMultiplier:   1,
		MemoryMultiplier: 1,
	}
}

func pythonHandler() *language.Handler {
	return &language.Handler{
		Language:         model.LanguagePython,
		Role:             language.RoleUser,
		SourceFile:       "userCode.py",
		RunCmd:           []string{"/usr/bin/python3", "userCode.py"},
		TimeMultiplier:   2,
		MemoryMultiplier: 1,
	}
}

func writeBox(t *testing.T, box sandbox.Box, name, data string) {
	t.Helper()
	if err := box.WriteFile(name, []byte(data)); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCompileInterpretedWritesSourceOnly(t *testing.T) {
	sb := &fakeSandbox{}
	e := newTestExecutor(t, sb)

	res := e.Compile(context.Background(), pythonHandler(), "print(1)", true)
	if !res.OK() {
		t.Fatalf("expected success, got %+v", res)
	}
	if len(sb.reqs) != 0 {
		t.Fatalf("expected no sandbox run, got %d", len(sb.reqs))
	}
	data, err := e.Box().ReadFile("userCode.py")
	if err != nil || string(data) != "print(1)" {
		t.Fatalf("expected source in box, got %q (%v)", data, err)
	}
}

func TestCompileUserCodeRequestsReport(t *testing.T) {
	sb := &fakeSandbox{}
	e := newTestExecutor(t, sb)
	sb.run = func(req sandbox.RunRequest) (sandbox.RunResult, error) {
		return sandbox.RunResult{Report: sandbox.ParseReport("time:0.5\nmax-rss:1000\n")}, nil
	}

	res := e.Compile(context.Background(), cppHandler(), "int main(){}", true)
	if !res.OK() {
		t.Fatalf("expected success, got %+v", res)
	}
	req := sb.reqs[0]
	if req.ReportPath != e.Box().ReportPath(CompileMetaFile) {
		t.Fatalf("expected compile report path, got %q", req.ReportPath)
	}
	if req.Stderr != CompileStderrFile {
		t.Fatalf("expected compile stderr file, got %q", req.Stderr)
	}
	if req.Limits.CPUTime != 5*time.Second || req.Limits.MemoryKB != 524288 {
		t.Fatalf("unexpected compile limits %+v", req.Limits)
	}
}

func TestCompileErrorPrefersStderr(t *testing.T) {
	sb := &fakeSandbox{}
	e := newTestExecutor(t, sb)
	sb.run = func(req sandbox.RunRequest) (sandbox.RunResult, error) {
		writeBox(t, e.Box(), CompileStderrFile, "userCode.cpp:1:1: error: expected ';'\n")
		return sandbox.RunResult{
			ExitCode: 1,
			Report:   sandbox.ParseReport("status:RE\nexitcode:1\nmessage:Exited with error status 1\n"),
		}, nil
	}

	res := e.Compile(context.Background(), cppHandler(), "int main(){", true)
	if res.Status != model.StatusCompilationError {
		t.Fatalf("expected compilation error, got %v", res.Status)
	}
	if res.Error != "userCode.cpp:1:1: error: expected ';'" {
		t.Fatalf("unexpected message %q", res.Error)
	}
}

func TestCompileReferenceWithoutReport(t *testing.T) {
	sb := &fakeSandbox{}
	e := newTestExecutor(t, sb)
	sb.run = func(req sandbox.RunRequest) (sandbox.RunResult, error) {
		return sandbox.RunResult{ExitCode: 1}, nil
	}
	h := cppHandler()
	h.Role = language.RoleSystem

	res := e.Compile(context.Background(), h, "broken", false)
	if res.Status != model.StatusCompilationError {
		t.Fatalf("expected compilation error, got %v", res.Status)
	}
	if res.Error != msgCompileFailed {
		t.Fatalf("expected default message, got %q", res.Error)
	}
	if sb.reqs[0].ReportPath != "" {
		t.Fatalf("expected no report for reference code")
	}
}

func TestCompileSandboxFailure(t *testing.T) {
	sb := &fakeSandbox{}
	e := newTestExecutor(t, sb)
	sb.run = func(req sandbox.RunRequest) (sandbox.RunResult, error) {
		return sandbox.RunResult{}, sandbox.ErrSandboxFailure
	}

	res := e.Compile(context.Background(), cppHandler(), "int main(){}", true)
	if res.Status != model.StatusError || res.Error != msgSandboxFailure {
		t.Fatalf("expected infrastructure error, got %+v", res)
	}
}

func TestExecuteSplitsAnswer(t *testing.T) {
	sb := &fakeSandbox{}
	e := newTestExecutor(t, sb)
	sb.run = func(req sandbox.RunRequest) (sandbox.RunResult, error) {
		in, _ := e.Box().ReadFile(req.Stdin)
		if string(in) != "2\n3\n" {
			t.Fatalf("unexpected stdin %q", in)
		}
		writeBox(t, e.Box(), req.Stdout, "debug line\n{{CODE_ANSWER}}5\n")
		return sandbox.RunResult{Report: sandbox.ParseReport("time:0.012\nmax-rss:3400\n")}, nil
	}

	res := e.Execute(context.Background(), cppHandler(), "2\n3\n", true)
	if !res.OK() {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Answer != "5" || res.Debug != "debug line" {
		t.Fatalf("unexpected split %q / %q", res.Debug, res.Answer)
	}
	if res.TimeSec != 0.012 || res.MemoryKB != 3400 {
		t.Fatalf("unexpected usage %v / %v", res.TimeSec, res.MemoryKB)
	}
	if sb.reqs[0].ReportPath != e.Box().ReportPath(MetaFile) {
		t.Fatalf("expected run report path, got %q", sb.reqs[0].ReportPath)
	}
}

func TestExecuteScalesLimits(t *testing.T) {
	sb := &fakeSandbox{}
	e := newTestExecutor(t, sb)
	sb.run = func(req sandbox.RunRequest) (sandbox.RunResult, error) {
		writeBox(t, e.Box(), req.Stdout, "{{CODE_ANSWER}}1")
		return sandbox.RunResult{}, nil
	}

	e.Execute(context.Background(), pythonHandler(), "1\n", false)
	lim := sb.reqs[0].Limits
	if lim.CPUTime != 6*time.Second || lim.MemoryKB != 256000 {
		t.Fatalf("unexpected scaled limits %+v", lim)
	}
	if sb.reqs[0].ReportPath != "" {
		t.Fatalf("expected no report for reference runs")
	}
}

func TestExecuteSentinelViolations(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"missing", "42\n"},
		{"twice", "{{CODE_ANSWER}}1{{CODE_ANSWER}}2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := &fakeSandbox{}
			e := newTestExecutor(t, sb)
			sb.run = func(req sandbox.RunRequest) (sandbox.RunResult, error) {
				writeBox(t, e.Box(), req.Stdout, tt.output)
				return sandbox.RunResult{Report: sandbox.ParseReport("time:0.01\n")}, nil
			}
			res := e.Execute(context.Background(), cppHandler(), "1\n", true)
			if res.Status != model.StatusError || res.Error != "Invalid output format" {
				t.Fatalf("expected invalid output format, got %+v", res)
			}
		})
	}
}

func TestExecuteClassification(t *testing.T) {
	tests := []struct {
		name    string
		report  string
		stderr  string
		want    model.Status
		wantMsg string
		wantSec float64
	}{
		{"timeout", "status:TO\ntime:3.001\ntime-wall:3.2\n", "", model.StatusTimeout, "Time limit exceeded", 3.2},
		{"timeout on wall clock", "status:TO\ntime:0.01\ntime-wall:6.0\n", "", model.StatusTimeout, "Time limit exceeded", 6.0},
		{"timeout wall only", "status:TO\ntime-wall:6.1\n", "", model.StatusTimeout, "Time limit exceeded", 6.1},
		{"timeout no figures", "status:TO\n", "", model.StatusTimeout, "Time limit exceeded", 3},
		{"oom flag", "status:SG\nexitsig:9\ncg-oom-killed:1\n", "", model.StatusMemoryLimitExceeded, "Memory limit exceeded", 0},
		{"rss at ceiling", "status:RE\nmax-rss:256000\n", "", model.StatusMemoryLimitExceeded, "Memory limit exceeded", 0},
		{"sigkill alone", "status:SG\nexitsig:9\nmax-rss:1000\nmessage:Caught fatal signal 9\n", "", model.StatusRuntimeError, "Caught fatal signal 9", 0},
		{"stderr wins", "status:RE\nexitcode:1\nmessage:Exited with error status 1\n", "Traceback: ZeroDivisionError\n", model.StatusRuntimeError, "Traceback: ZeroDivisionError", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := &fakeSandbox{}
			e := newTestExecutor(t, sb)
			sb.run = func(req sandbox.RunRequest) (sandbox.RunResult, error) {
				if tt.stderr != "" {
					writeBox(t, e.Box(), req.Stderr, tt.stderr)
				}
				return sandbox.RunResult{ExitCode: 1, Report: sandbox.ParseReport(tt.report)}, nil
			}
			res := e.Execute(context.Background(), cppHandler(), "1\n", true)
			if res.Status != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, res.Status)
			}
			if res.Error != tt.wantMsg {
				t.Fatalf("expected message %q, got %q", tt.wantMsg, res.Error)
			}
			if tt.want == model.StatusTimeout && res.TimeSec != tt.wantSec {
				t.Fatalf("expected time %v, got %v", tt.wantSec, res.TimeSec)
			}
		})
	}
}

func TestExecuteSandboxFailure(t *testing.T) {
	sb := &fakeSandbox{}
	e := newTestExecutor(t, sb)
	sb.run = func(req sandbox.RunRequest) (sandbox.RunResult, error) {
		return sandbox.RunResult{}, errors.Join(sandbox.ErrSandboxFailure, errors.New("exit 2"))
	}

	res := e.Execute(context.Background(), cppHandler(), "1\n", true)
	if res.Status != model.StatusError || res.Error != msgSandboxFailure {
		t.Fatalf("expected sandbox failure, got %+v", res)
	}
}

func TestTruncateLongMessages(t *testing.T) {
	long := strings.Repeat("x", maxMessageBytes+10)
	if got := truncate(long); !strings.HasSuffix(got, "(truncated)") || len(got) > maxMessageBytes+20 {
		t.Fatalf("unexpected truncation, len %d", len(got))
	}
	if truncate("short") != "short" {
		t.Fatalf("short messages must pass through")
	}
}
