package model

import (
	"encoding/json"
	"strings"

	appErr "codejudge/pkg/errors"
)

// Language codes accepted on the wire.
const (
	LanguageCPP    = "CPP"
	LanguageJava   = "JAVA"
	LanguagePython = "PYTHON"
)

// Submission is one grading job as it travels through the queues.
type Submission struct {
	SubmissionID string   `json:"submissionId,omitempty"`
	QuestionID   string   `json:"questionId"`
	Language     string   `json:"language"`
	FunctionName string   `json:"functionName"`
	DataInput    string   `json:"dataInput"`
	UserCode     string   `json:"userCode"`
	SystemCode   string   `json:"systemCode"`
	ParamTypes   []string `json:"paramType"`
	ReturnType   string   `json:"returnType"`
	IsAnswer     bool     `json:"isAnswer"`
	UserID       string   `json:"userId"`
}

// Mode names the grading mode of the submission.
func (s *Submission) Mode() string {
	if s.IsAnswer {
		return "submit"
	}
	return "run"
}

// Validate checks the fields every job must carry before it is graded.
func (s *Submission) Validate() error {
	switch {
	case strings.TrimSpace(s.Language) == "":
		return appErr.ValidationError("language", "required")
	case strings.TrimSpace(s.FunctionName) == "":
		return appErr.ValidationError("functionName", "required")
	case len(s.ParamTypes) == 0:
		return appErr.ValidationError("paramType", "required")
	case strings.TrimSpace(s.ReturnType) == "":
		return appErr.ValidationError("returnType", "required")
	case strings.TrimSpace(s.UserID) == "":
		return appErr.ValidationError("userId", "required")
	}
	return nil
}

// DecodeSubmission parses a queue payload.
func DecodeSubmission(payload string) (Submission, error) {
	var sub Submission
	if err := json.Unmarshal([]byte(payload), &sub); err != nil {
		return Submission{}, appErr.Wrapf(err, appErr.InvalidFormat, "decode submission failed")
	}
	return sub, nil
}

// Encode serializes the submission for a queue push.
func (s *Submission) Encode() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.InvalidFormat, "encode submission failed")
	}
	return string(b), nil
}
