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

const msgSomeCasesFailed = "One or more test cases failed"

// ProcessSubmission grades sub in run mode: the reference solution derives
// the expected answers and every test case is attempted.
func (p *Processor) ProcessSubmission(ctx context.Context, sub *model.Submission) *model.ExecutionResult {
	res := model.NewExecutionResult(p.newID(), sub)
	res.IsAnswer = false
	if err := p.runAll(ctx, sub, res); err != nil {
		ee := asExecutionError(err)
		logger.Info(ctx, "run aborted", zap.String("status", string(ee.Status)), zap.Error(err))
		res.Fail(ee.Status, ee.Message)
	}
	p.finish(ctx, sub, res)
	return res
}

func (p *Processor) runAll(ctx context.Context, sub *model.Submission, res *model.ExecutionResult) error {
	if err := sub.Validate(); err != nil {
		return err
	}
	user, err := p.languages.Handler(sub.Language, language.RoleUser)
	if err != nil {
		return err
	}
	ref, err := p.languages.Reference()
	if err != nil {
		return &ExecutionError{Status: model.StatusInternalError, Message: err.Error()}
	}
	set, err := testcase.ParseAndValidate(sub.DataInput, sub.ParamTypes)
	if err != nil {
		return err
	}
	res.TotalTestCases = set.Total()

	userCode, err := user.WrapCode(sub.UserCode, sub.FunctionName, sub.ParamTypes, sub.ReturnType)
	if err != nil {
		return err
	}
	if cr := p.stages.Compile(ctx, user, userCode, true); !cr.OK() {
		return &ExecutionError{Status: cr.Status, Message: orDefault(cr.Error, "User code compilation failed")}
	}

	refCode, err := ref.WrapCode(sub.SystemCode, sub.FunctionName, sub.ParamTypes, sub.ReturnType)
	if err != nil {
		return &ExecutionError{Status: model.StatusInternalError, Message: err.Error()}
	}
	if cr := p.stages.Compile(ctx, ref, refCode, false); !cr.OK() {
		return &ExecutionError{Status: model.StatusInternalError, Message: orDefault(cr.Error, "System code compilation failed")}
	}

	for _, c := range set.Cases {
		p.runCase(ctx, res, user, ref, c)
	}
	if len(res.Errors) > 0 && res.Status == model.StatusSuccess {
		res.Fail(model.StatusError, msgSomeCasesFailed)
	}
	return nil
}

// runCase always appends exactly one row.
func (p *Processor) runCase(ctx context.Context, res *model.ExecutionResult, user, ref *language.Handler, c testcase.Case) {
	input := c.Input()
	got := p.stages.Execute(ctx, user, input, true)
	if !got.OK() {
		res.AppendRow(failedRow(got, ""))
		recordRunFailure(res, &ExecutionError{Status: got.Status, Message: got.Error, TestCase: c.Number, Input: c.Display()})
		return
	}

	want := p.stages.Execute(ctx, ref, input, false)
	if !want.OK() {
		res.AppendRow(answerRow(got, ""))
		logger.Error(ctx, "reference solution failed",
			zap.Int("test_case", c.Number),
			zap.String("status", string(want.Status)),
			zap.String("error", want.Error),
		)
		recordRunFailure(res, &ExecutionError{
			Status:   model.StatusInternalError,
			Message:  "System code " + string(want.Status),
			TestCase: c.Number,
			Input:    c.Display(),
		})
		return
	}

	res.AppendRow(answerRow(got, want.Answer))
	if got.Answer != want.Answer {
		recordRunFailure(res, &ExecutionError{
			Status:   model.StatusWrongAnswer,
			Message:  fmt.Sprintf("Expected %s, got %s", want.Answer, got.Answer),
			TestCase: c.Number,
			Input:    c.Display(),
		})
		return
	}
	res.CorrectTestCases++
}

// recordRunFailure keeps the first user-caused status, lets a reference
// failure override it, and never lets WrongAnswer become the job status.
func recordRunFailure(res *model.ExecutionResult, e *ExecutionError) {
	res.Errors = append(res.Errors, fmt.Sprintf("Test case %d: %s", e.TestCase, e.Message))
	switch {
	case e.Status == model.StatusWrongAnswer:
	case e.Status == model.StatusInternalError:
		res.Fail(e.Status, e.Message)
	case res.Status == model.StatusSuccess:
		res.Fail(e.Status, e.Message)
	}
}
