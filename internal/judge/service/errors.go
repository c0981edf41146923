package service

import (
	"errors"
	"fmt"

	"codejudge/internal/judge/model"
	"codejudge/internal/judge/testcase"
	appErr "codejudge/pkg/errors"
)

// ExecutionError is a job-level failure with the verdict status it maps to.
// TestCase 0 means the failure happened before any test case ran.
type ExecutionError struct {
	Status   model.Status
	Message  string
	TestCase int
	Input    string

	// Set for WrongAnswer only.
	Output   string
	Expected string
}

func (e *ExecutionError) Error() string {
	if e.TestCase > 0 {
		return fmt.Sprintf("test case %d: %s: %s", e.TestCase, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

const msgInternal = "Internal error"

// asExecutionError converts any failure into a verdict-ready error. Codes
// from pkg/errors carry user-facing messages; anything else is hidden.
func asExecutionError(err error) *ExecutionError {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee
	}
	var ve *testcase.ValidationError
	if errors.As(err, &ve) {
		return &ExecutionError{
			Status:   model.StatusError,
			Message:  ve.Error(),
			TestCase: ve.Index,
			Input:    ve.Line,
		}
	}
	var ae *appErr.Error
	if errors.As(err, &ae) {
		return &ExecutionError{Status: model.StatusError, Message: ae.Error()}
	}
	return &ExecutionError{Status: model.StatusError, Message: msgInternal}
}
