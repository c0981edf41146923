package service

import (
	"context"
	"fmt"

	"codejudge/internal/judge/language"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/testcase"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// ProcessAnswer grades sub in submit mode against precomputed expected
// outputs, stopping at the first failing test case.
func (p *Processor) ProcessAnswer(ctx context.Context, sub *model.Submission) *model.ExecutionResult {
	id := sub.SubmissionID
	if id == "" {
		id = p.newID()
	}
	res := model.NewExecutionResult(id, sub)
	res.IsAnswer = true
	p.reportProgress(ctx, Progress{SubmissionID: id, Phase: PhasePending})

	if err := p.grade(ctx, sub, res); err != nil {
		ee := asExecutionError(err)
		logger.Info(ctx, "grading stopped",
			zap.String("status", string(ee.Status)),
			zap.Int("test_case", ee.TestCase),
		)
		res.Fail(ee.Status, ee.Message)
		if ee.TestCase > 0 {
			res.Errors = append(res.Errors, fmt.Sprintf("Test case %d: %s", ee.TestCase, ee.Message))
		}
		res.LastTestCase = &model.LastTestCase{
			Number:         ee.TestCase,
			Input:          ee.Input,
			Output:         ee.Output,
			ExpectedOutput: ee.Expected,
			Status:         ee.Status,
			Error:          ee.Message,
		}
	}

	p.reportProgress(ctx, Progress{SubmissionID: id, Phase: PhaseDone, TestCase: res.Rows(), Total: res.TotalTestCases})
	p.finish(ctx, sub, res)
	return res
}

func (p *Processor) grade(ctx context.Context, sub *model.Submission, res *model.ExecutionResult) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	user, err := p.languages.Handler(sub.Language, language.RoleUser)
	if err != nil {
		return err
	}
	set, err := testcase.ParseAndValidate(sub.DataInput, sub.ParamTypes)
	if err != nil {
		return err
	}
	res.TotalTestCases = set.Total()

	expected := testcase.ExpectedOutputs(sub.SystemCode)
	if len(expected) != set.Total() {
		return &ExecutionError{
			Status:  model.StatusError,
			Message: fmt.Sprintf("Expected %d outputs, got %d", set.Total(), len(expected)),
		}
	}

	code, err := user.WrapCode(sub.UserCode, sub.FunctionName, sub.ParamTypes, sub.ReturnType)
	if err != nil {
		return err
	}
	p.reportProgress(ctx, Progress{SubmissionID: res.SubmissionID, Phase: PhaseCompiling, Total: set.Total()})
	if cr := p.stages.Compile(ctx, user, code, true); !cr.OK() {
		return &ExecutionError{Status: cr.Status, Message: orDefault(cr.Error, "User code compilation failed")}
	}

	for i, c := range set.Cases {
		p.reportProgress(ctx, Progress{SubmissionID: res.SubmissionID, Phase: PhaseExecuting, TestCase: c.Number, Total: set.Total()})
		got := p.stages.Execute(ctx, user, c.Input(), true)
		if !got.OK() {
			res.AppendRow(failedRow(got, expected[i]))
			return &ExecutionError{Status: got.Status, Message: got.Error, TestCase: c.Number, Input: c.Display(), Expected: expected[i]}
		}

		p.reportProgress(ctx, Progress{SubmissionID: res.SubmissionID, Phase: PhaseComparing, TestCase: c.Number, Total: set.Total()})
		res.AppendRow(answerRow(got, expected[i]))
		if got.Answer != expected[i] {
			return &ExecutionError{
				Status:   model.StatusWrongAnswer,
				Message:  fmt.Sprintf("Expected %s, got %s", expected[i], got.Answer),
				TestCase: c.Number,
				Input:    c.Display(),
				Output:   got.Answer,
				Expected: expected[i],
			}
		}
		res.CorrectTestCases++
	}
	return nil
}
