package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"codejudge/internal/judge/executor"
	"codejudge/internal/judge/language"
	"codejudge/internal/judge/model"
)

type fakeStages struct {
	compiles []language.Role
	executes []language.Role
	inputs   []string

	compile func(h *language.Handler) executor.CompileResult
	execute func(h *language.Handler, input string) executor.ExecuteResult
}

func (f *fakeStages) Compile(_ context.Context, h *language.Handler, code string, _ bool) executor.CompileResult {
	f.compiles = append(f.compiles, h.Role)
	if f.compile == nil {
		return executor.CompileResult{Status: model.StatusSuccess}
	}
	return f.compile(h)
}

func (f *fakeStages) Execute(_ context.Context, h *language.Handler, input string, _ bool) executor.ExecuteResult {
	f.executes = append(f.executes, h.Role)
	f.inputs = append(f.inputs, input)
	return f.execute(h, input)
}

type fakeProgress struct {
	updates []Progress
	err     error
}

func (f *fakeProgress) ReportProgress(_ context.Context, p Progress) error {
	f.updates = append(f.updates, p)
	return f.err
}

func answer(a string) executor.ExecuteResult {
	return executor.ExecuteResult{Status: model.StatusSuccess, Answer: a, TimeSec: 0.01, MemoryKB: 1024}
}

func newTestProcessor(t *testing.T, stages *fakeStages, progress ProgressReporter) *Processor {
	t.Helper()
	reg, err := language.NewRegistry(language.Config{})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	p, err := NewProcessor(Config{
		Stages:    stages,
		Languages: reg,
		Progress:  progress,
		NewID:     func() string { return "generated-id" },
	})
	if err != nil {
		t.Fatalf("processor: %v", err)
	}
	return p
}

func twoSum(isAnswer bool) *model.Submission {
	return &model.Submission{
		QuestionID:   "two-sum",
		Language:     model.LanguageCPP,
		FunctionName: "twoSum",
		DataInput:    "[2,7,11,15]\n9",
		UserCode:     "class Solution { public: vector<int> twoSum(vector<int>& a, int t) { return {0,1}; } };",
		SystemCode:   "class Solution { public: vector<int> twoSum(vector<int>& a, int t) { return {0,1}; } };",
		ParamTypes:   []string{model.TypeIntegerArray, model.TypeInteger},
		ReturnType:   model.TypeIntegerArray,
		IsAnswer:     isAnswer,
		UserID:       "u1",
	}
}

func TestRunModeAllCorrect(t *testing.T) {
	stages := &fakeStages{execute: func(h *language.Handler, input string) executor.ExecuteResult {
		return answer("[0,1]")
	}}
	p := newTestProcessor(t, stages, nil)

	res := p.Process(context.Background(), twoSum(false))
	if res.Status != model.StatusSuccess {
		t.Fatalf("expected success, got %v (%s)", res.Status, res.Error)
	}
	if res.TotalTestCases != 1 || res.CorrectTestCases != 1 {
		t.Fatalf("unexpected counts %d/%d", res.CorrectTestCases, res.TotalTestCases)
	}
	if res.CodeAnswer[0] != "[0,1]" || res.ExpectedAnswer[0] != "[0,1]" {
		t.Fatalf("unexpected answers %v / %v", res.CodeAnswer, res.ExpectedAnswer)
	}
	if res.SubmissionID != "generated-id" || res.IsAnswer {
		t.Fatalf("unexpected identity %+v", res)
	}
	if stages.inputs[0] != "2 7 11 15\n9\n" {
		t.Fatalf("unexpected program input %q", stages.inputs[0])
	}
	if len(stages.compiles) != 2 || stages.compiles[1] != language.RoleSystem {
		t.Fatalf("expected user then reference compile, got %v", stages.compiles)
	}
}

func TestRunModeRecordsEveryCase(t *testing.T) {
	sub := twoSum(false)
	sub.DataInput = "[1,2]\n3\n[5,5]\n10\n[1,1]\n7"
	call := 0
	stages := &fakeStages{execute: func(h *language.Handler, input string) executor.ExecuteResult {
		if h.Role == language.RoleSystem {
			return answer("[0,1]")
		}
		call++
		switch call {
		case 1:
			return answer("[0,1]")
		case 2:
			return answer("[1,0]")
		}
		return executor.ExecuteResult{Status: model.StatusTimeout, Error: "Time limit exceeded", TimeSec: 3.01}
	}}
	p := newTestProcessor(t, stages, nil)

	res := p.Process(context.Background(), sub)
	if res.Rows() != 3 || len(res.ExpectedAnswer) != 3 || len(res.ExecutionTime) != 3 || len(res.StdOutputList) != 3 {
		t.Fatalf("expected 3 rows in every array, got %+v", res)
	}
	if res.CorrectTestCases != 1 {
		t.Fatalf("expected 1 correct, got %d", res.CorrectTestCases)
	}
	if res.Status != model.StatusTimeout {
		t.Fatalf("expected timeout as job status, got %v", res.Status)
	}
	if res.CodeAnswer[2] != "TIMEOUT" || res.ExecutionTime[2] != "3.01" {
		t.Fatalf("unexpected failed row %v / %v", res.CodeAnswer, res.ExecutionTime)
	}
	if len(res.Errors) != 2 || !strings.HasPrefix(res.Errors[0], "Test case 2: Expected [0,1], got [1,0]") {
		t.Fatalf("unexpected errors %v", res.Errors)
	}
	if res.LastTestCase != nil {
		t.Fatalf("run mode must not set lastTestCase")
	}
	// The reference is skipped when the user run already failed.
	if n := len(stages.executes); n != 5 {
		t.Fatalf("expected 5 executions, got %d", n)
	}
}

func TestRunModeWrongAnswerIsNeverTerminal(t *testing.T) {
	stages := &fakeStages{execute: func(h *language.Handler, input string) executor.ExecuteResult {
		if h.Role == language.RoleSystem {
			return answer("[0,1]")
		}
		return answer("[2,3]")
	}}
	p := newTestProcessor(t, stages, nil)

	res := p.Process(context.Background(), twoSum(false))
	if res.Status != model.StatusError || res.Error != "One or more test cases failed" {
		t.Fatalf("expected generic error, got %v %q", res.Status, res.Error)
	}
}

func TestRunModeLineCountMismatch(t *testing.T) {
	sub := twoSum(false)
	sub.DataInput = "[1,2]\n3\n[4]"
	stages := &fakeStages{}
	p := newTestProcessor(t, stages, nil)

	res := p.Process(context.Background(), sub)
	if res.Status != model.StatusError || res.Error != "Number of test case lines does not match paramType length" {
		t.Fatalf("unexpected verdict %v %q", res.Status, res.Error)
	}
	if len(stages.compiles) != 0 || len(stages.executes) != 0 {
		t.Fatalf("expected no sandbox work")
	}
}

func TestRunModeReferenceCompileFailure(t *testing.T) {
	stages := &fakeStages{compile: func(h *language.Handler) executor.CompileResult {
		if h.Role == language.RoleSystem {
			return executor.CompileResult{Status: model.StatusCompilationError, Error: "systemCode.cpp: error"}
		}
		return executor.CompileResult{Status: model.StatusSuccess}
	}}
	p := newTestProcessor(t, stages, nil)

	res := p.Process(context.Background(), twoSum(false))
	if res.Status != model.StatusInternalError {
		t.Fatalf("expected internal error, got %v", res.Status)
	}
	if res.Rows() != 0 || len(stages.executes) != 0 {
		t.Fatalf("expected no test case attempted")
	}
}

func TestRunModeUserCompileFailure(t *testing.T) {
	stages := &fakeStages{compile: func(h *language.Handler) executor.CompileResult {
		return executor.CompileResult{Status: model.StatusCompilationError, Error: "expected ';'"}
	}}
	p := newTestProcessor(t, stages, nil)

	res := p.Process(context.Background(), twoSum(false))
	if res.Status != model.StatusCompilationError || res.Error != "expected ';'" {
		t.Fatalf("unexpected verdict %v %q", res.Status, res.Error)
	}
	if len(stages.compiles) != 1 {
		t.Fatalf("reference must not compile after a user failure")
	}
	if res.TotalTestCases != 1 {
		t.Fatalf("expected parsed total to survive, got %d", res.TotalTestCases)
	}
}

func TestRunModeReferenceRunFailure(t *testing.T) {
	stages := &fakeStages{execute: func(h *language.Handler, input string) executor.ExecuteResult {
		if h.Role == language.RoleSystem {
			return executor.ExecuteResult{Status: model.StatusRuntimeError, Error: "segfault"}
		}
		return answer("[0,1]")
	}}
	p := newTestProcessor(t, stages, nil)

	res := p.Process(context.Background(), twoSum(false))
	if res.Status != model.StatusInternalError {
		t.Fatalf("expected internal error, got %v", res.Status)
	}
	if res.Rows() != 1 || res.ExpectedAnswer[0] != "" {
		t.Fatalf("expected one row with empty expected answer, got %v", res.ExpectedAnswer)
	}
}

func TestSubmitModeWrongAnswer(t *testing.T) {
	sub := twoSum(true)
	sub.SubmissionID = "sub-1"
	sub.DataInput = "[2,7,11,15]\n9\n[3,3]\n6"
	sub.SystemCode = "[0,1]\n[0,1]\n"
	stages := &fakeStages{execute: func(h *language.Handler, input string) executor.ExecuteResult {
		return answer("[1,0]")
	}}
	progress := &fakeProgress{}
	p := newTestProcessor(t, stages, progress)

	res := p.Process(context.Background(), sub)
	if res.Status != model.StatusWrongAnswer {
		t.Fatalf("expected wrong answer, got %v", res.Status)
	}
	if res.SubmissionID != "sub-1" || !res.IsAnswer {
		t.Fatalf("unexpected identity %+v", res)
	}
	if res.LastTestCase == nil || res.LastTestCase.Number != 1 {
		t.Fatalf("expected lastTestCase 1, got %+v", res.LastTestCase)
	}
	if res.LastTestCase.Output != "[1,0]" || res.LastTestCase.ExpectedOutput != "[0,1]" || res.LastTestCase.Input != "[2,7,11,15]\n9" {
		t.Fatalf("unexpected diagnostic %+v", res.LastTestCase)
	}
	if res.Rows() != 1 || len(stages.executes) != 1 {
		t.Fatalf("expected stop after first case")
	}

	var phases []Phase
	for _, u := range progress.updates {
		phases = append(phases, u.Phase)
	}
	want := []Phase{PhasePending, PhaseCompiling, PhaseExecuting, PhaseComparing, PhaseDone}
	if len(phases) != len(want) {
		t.Fatalf("expected phases %v, got %v", want, phases)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("expected phases %v, got %v", want, phases)
		}
	}
}

func TestSubmitModeAllPass(t *testing.T) {
	sub := twoSum(true)
	sub.SystemCode = "[0,1]"
	stages := &fakeStages{execute: func(h *language.Handler, input string) executor.ExecuteResult {
		return answer("[0,1]")
	}}
	p := newTestProcessor(t, stages, &fakeProgress{err: errors.New("redis down")})

	res := p.Process(context.Background(), sub)
	if res.Status != model.StatusSuccess || res.CorrectTestCases != 1 || res.LastTestCase != nil {
		t.Fatalf("unexpected verdict %+v", res)
	}
	if res.SubmissionID != "generated-id" {
		t.Fatalf("expected a generated id when none was stamped")
	}
	if len(stages.compiles) != 1 {
		t.Fatalf("submit mode compiles only user code")
	}
}

func TestSubmitModeTimeoutStops(t *testing.T) {
	sub := twoSum(true)
	sub.DataInput = "[1,2]\n3\n[5,5]\n10"
	sub.SystemCode = "[0,1]\n[0,1]"
	stages := &fakeStages{execute: func(h *language.Handler, input string) executor.ExecuteResult {
		return executor.ExecuteResult{Status: model.StatusTimeout, Error: "Time limit exceeded", TimeSec: 3.2}
	}}
	p := newTestProcessor(t, stages, nil)

	res := p.Process(context.Background(), sub)
	if res.Status != model.StatusTimeout || res.LastTestCase.Number != 1 {
		t.Fatalf("unexpected verdict %+v", res)
	}
	if res.LastTestCase.ExpectedOutput != "[0,1]" || res.LastTestCase.Input != "[1,2]\n3" {
		t.Fatalf("expected the failing case's expected output, got %+v", res.LastTestCase)
	}
	if res.ExecutionTime[0] != "3.2" || res.CodeAnswer[0] != "TIMEOUT" {
		t.Fatalf("unexpected row %v %v", res.ExecutionTime, res.CodeAnswer)
	}
	if len(res.Errors) != 1 || res.Errors[0] != "Test case 1: Time limit exceeded" {
		t.Fatalf("unexpected errors %v", res.Errors)
	}
}

func TestSubmitModeCompileFailureIsCaseZero(t *testing.T) {
	sub := twoSum(true)
	sub.SystemCode = "[0,1]"
	stages := &fakeStages{compile: func(h *language.Handler) executor.CompileResult {
		return executor.CompileResult{Status: model.StatusCompilationError, Error: "boom"}
	}}
	p := newTestProcessor(t, stages, nil)

	res := p.Process(context.Background(), sub)
	if res.Status != model.StatusCompilationError {
		t.Fatalf("expected compilation error, got %v", res.Status)
	}
	if res.LastTestCase == nil || res.LastTestCase.Number != 0 || len(res.Errors) != 0 {
		t.Fatalf("expected case-zero diagnostic, got %+v / %v", res.LastTestCase, res.Errors)
	}
}

func TestSubmitModeExpectedCountMismatch(t *testing.T) {
	sub := twoSum(true)
	sub.SystemCode = "[0,1]\n[1,2]"
	stages := &fakeStages{}
	p := newTestProcessor(t, stages, nil)

	res := p.Process(context.Background(), sub)
	if res.Status != model.StatusError || res.Error != "Expected 1 outputs, got 2" {
		t.Fatalf("unexpected verdict %v %q", res.Status, res.Error)
	}
	if len(stages.compiles) != 0 {
		t.Fatalf("expected no compile")
	}
}

func TestSubmitModeValidationFailureNamesCase(t *testing.T) {
	sub := twoSum(true)
	sub.DataInput = "[1,2]\n3\n[1,x]\n4"
	sub.SystemCode = "a\nb"
	p := newTestProcessor(t, &fakeStages{}, nil)

	res := p.Process(context.Background(), sub)
	if res.Status != model.StatusError || !strings.HasPrefix(res.Error, "Validation failed for test case 2") {
		t.Fatalf("unexpected verdict %v %q", res.Status, res.Error)
	}
	if res.LastTestCase.Number != 2 {
		t.Fatalf("expected case 2, got %d", res.LastTestCase.Number)
	}
}

func TestUnsupportedLanguage(t *testing.T) {
	sub := twoSum(false)
	sub.Language = "RUST"
	p := newTestProcessor(t, &fakeStages{}, nil)

	res := p.Process(context.Background(), sub)
	if res.Status != model.StatusError || res.Error != "Unsupported language: RUST" {
		t.Fatalf("unexpected verdict %v %q", res.Status, res.Error)
	}
}

func TestForeignErrorsAreHidden(t *testing.T) {
	ee := asExecutionError(errors.New("open /var/local/lib/isolate/0/box: permission denied"))
	if ee.Message != msgInternal || ee.Status != model.StatusError {
		t.Fatalf("expected hidden message, got %+v", ee)
	}
}
