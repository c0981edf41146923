package model

import (
	"encoding/json"
	"strconv"
	"strings"

	appErr "codejudge/pkg/errors"
)

// Status is the closed verdict taxonomy.
type Status string

const (
	StatusSuccess             Status = "success"
	StatusError               Status = "error"
	StatusTimeout             Status = "timeout"
	StatusRuntimeError        Status = "runtime_error"
	StatusInternalError       Status = "internal_error"
	StatusCompilationError    Status = "compilation_error"
	StatusWrongAnswer         Status = "wrong_answer"
	StatusMemoryLimitExceeded Status = "memory_limit_exceeded"
)

var allStatuses = []Status{
	StatusSuccess, StatusError, StatusTimeout, StatusRuntimeError,
	StatusInternalError, StatusCompilationError, StatusWrongAnswer,
	StatusMemoryLimitExceeded,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, known := range allStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Label is the upper-case form stored as a failed test case's answer.
func (s Status) Label() string {
	return strings.ToUpper(string(s))
}

// LastTestCase describes the test case a graded run stopped at.
// Number 0 means the failure happened before any test case ran.
type LastTestCase struct {
	Number         int    `json:"number"`
	Input          string `json:"input"`
	Output         string `json:"output,omitempty"`
	ExpectedOutput string `json:"expectedOutput,omitempty"`
	Status         Status `json:"status"`
	Error          string `json:"error,omitempty"`
}

// ExecutionResult is the verdict published for every job.
type ExecutionResult struct {
	SubmissionID     string        `json:"submissionId"`
	UserID           string        `json:"userId"`
	QuestionID       string        `json:"questionId"`
	Status           Status        `json:"status"`
	CodeAnswer       []string      `json:"code_answer"`
	StdOutputList    []string      `json:"std_output_list"`
	ExpectedAnswer   []string      `json:"expected_code_answer"`
	ExecutionTime    []string      `json:"execution_time"`
	ExecutionMemory  []string      `json:"execution_memory"`
	CorrectTestCases int           `json:"correctTestCases"`
	TotalTestCases   int           `json:"totalTestCases"`
	LastTestCase     *LastTestCase `json:"lastTestCase,omitempty"`
	IsAnswer         bool          `json:"isAnswer"`
	Error            string        `json:"error,omitempty"`
	Errors           []string      `json:"errors"`
}

// NewExecutionResult starts a verdict for sub with status Success and empty rows.
func NewExecutionResult(id string, sub *Submission) *ExecutionResult {
	return &ExecutionResult{
		SubmissionID:    id,
		UserID:          sub.UserID,
		QuestionID:      sub.QuestionID,
		Status:          StatusSuccess,
		CodeAnswer:      []string{},
		StdOutputList:   []string{},
		ExpectedAnswer:  []string{},
		ExecutionTime:   []string{},
		ExecutionMemory: []string{},
		IsAnswer:        sub.IsAnswer,
		Errors:          []string{},
	}
}

// Row is one test case's entry across the parallel arrays.
type Row struct {
	Answer   string
	Debug    string
	Expected string
	TimeSec  float64
	MemoryKB int64
}

// AppendRow appends one entry to every parallel array. Time and memory
// travel as decimal strings, the way the sandbox reports them.
func (r *ExecutionResult) AppendRow(row Row) {
	r.CodeAnswer = append(r.CodeAnswer, row.Answer)
	r.StdOutputList = append(r.StdOutputList, row.Debug)
	r.ExpectedAnswer = append(r.ExpectedAnswer, row.Expected)
	r.ExecutionTime = append(r.ExecutionTime, strconv.FormatFloat(row.TimeSec, 'f', -1, 64))
	r.ExecutionMemory = append(r.ExecutionMemory, strconv.FormatInt(row.MemoryKB, 10))
}

// Rows reports the current length of the parallel arrays.
func (r *ExecutionResult) Rows() int {
	return len(r.CodeAnswer)
}

// Fail sets the job-level status and message.
func (r *ExecutionResult) Fail(status Status, msg string) {
	r.Status = status
	r.Error = msg
}

// MaxTime is the largest per-test execution time in seconds.
func (r *ExecutionResult) MaxTime() float64 {
	var peak float64
	for _, v := range r.ExecutionTime {
		t, err := strconv.ParseFloat(v, 64)
		if err == nil && t > peak {
			peak = t
		}
	}
	return peak
}

// MaxMemory is the largest per-test peak memory in KiB.
func (r *ExecutionResult) MaxMemory() int64 {
	var peak int64
	for _, v := range r.ExecutionMemory {
		m, err := strconv.ParseInt(v, 10, 64)
		if err == nil && m > peak {
			peak = m
		}
	}
	return peak
}

// DecodeExecutionResult parses a result queue payload.
func DecodeExecutionResult(payload string) (ExecutionResult, error) {
	var res ExecutionResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return ExecutionResult{}, appErr.Wrapf(err, appErr.InvalidFormat, "decode execution result failed")
	}
	if !res.Status.Valid() {
		return ExecutionResult{}, appErr.Newf(appErr.InvalidFormat, "unknown status %q", res.Status)
	}
	return res, nil
}

// Encode serializes the verdict.
func (r *ExecutionResult) Encode() (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.InvalidFormat, "encode execution result failed")
	}
	return string(b), nil
}
