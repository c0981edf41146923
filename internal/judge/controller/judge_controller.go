package controller

import (
	"context"
	"encoding/json"
	"strings"

	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	"codejudge/internal/judge/service"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatusReader reads the live status cache.
type StatusReader interface {
	Get(ctx context.Context, submissionID string) (repository.JudgeStatus, error)
}

// SubmissionReader reads persisted submissions.
type SubmissionReader interface {
	FindByID(ctx context.Context, tx db.Transaction, submissionID string) (*repository.SubmissionRecord, error)
}

// SourceReader loads archived user code.
type SourceReader interface {
	Enabled() bool
	Load(ctx context.Context, key string) (string, error)
}

// SubmissionView is what the ops API returns for one graded submission.
type SubmissionView struct {
	SubmissionID    string                 `json:"submissionId"`
	Phase           service.Phase          `json:"phase"`
	Status          string                 `json:"status,omitempty"`
	TestCase        int                    `json:"testCase,omitempty"`
	CorrectCases    int                    `json:"correctTestCases"`
	TotalCases      int                    `json:"totalTestCases"`
	ExecutionTime   float64                `json:"executionTime,omitempty"`
	ExecutionMemory int64                  `json:"executionMemory,omitempty"`
	Result          *model.ExecutionResult `json:"result,omitempty"`
}

// JudgeController handles judge status requests.
type JudgeController struct {
	statuses    StatusReader
	submissions SubmissionReader
	sources     SourceReader
}

// NewJudgeController creates a new controller. sources may be nil.
func NewJudgeController(statuses StatusReader, submissions SubmissionReader, sources SourceReader) *JudgeController {
	return &JudgeController{statuses: statuses, submissions: submissions, sources: sources}
}

// GetSubmission answers from the status cache while the job is in flight
// and from MySQL once it is done or the cache entry expired.
func (h *JudgeController) GetSubmission(c *gin.Context) {
	submissionID := strings.TrimSpace(c.Param("id"))
	if submissionID == "" {
		response.Error(c, appErr.ValidationError("id", "required"))
		return
	}
	ctx := c.Request.Context()

	status, err := h.statuses.Get(ctx, submissionID)
	if err == nil && status.Phase != service.PhaseDone {
		response.Success(c, SubmissionView{
			SubmissionID: status.SubmissionID,
			Phase:        status.Phase,
			TestCase:     status.TestCase,
			CorrectCases: status.Correct,
			TotalCases:   status.Total,
		})
		return
	}
	if err != nil && !appErr.Is(err, appErr.SubmissionNotFound) {
		logger.Warn(ctx, "status cache unavailable", zap.Error(err))
	}

	rec, err := h.submissions.FindByID(ctx, nil, submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, viewFromRecord(ctx, rec))
}

// GetSource returns the archived user code of a graded submission.
func (h *JudgeController) GetSource(c *gin.Context) {
	submissionID := strings.TrimSpace(c.Param("id"))
	if submissionID == "" {
		response.Error(c, appErr.ValidationError("id", "required"))
		return
	}
	if h.sources == nil || !h.sources.Enabled() {
		response.Error(c, appErr.New(appErr.ServiceUnavailable).WithMessage("source archive is disabled"))
		return
	}
	ctx := c.Request.Context()
	rec, err := h.submissions.FindByID(ctx, nil, submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if rec.SourceKey == "" {
		response.NotFound(c, "source was not archived")
		return
	}
	code, err := h.sources.Load(ctx, rec.SourceKey)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"submissionId": rec.SubmissionID, "language": rec.Language, "code": code})
}

func viewFromRecord(ctx context.Context, rec *repository.SubmissionRecord) SubmissionView {
	view := SubmissionView{
		SubmissionID:    rec.SubmissionID,
		Phase:           service.PhasePending,
		Status:          string(rec.Status),
		CorrectCases:    rec.CorrectCases,
		TotalCases:      rec.TotalCases,
		ExecutionTime:   rec.ExecutionTime,
		ExecutionMemory: rec.ExecutionMemory,
	}
	if rec.FinishedAt != nil {
		view.Phase = service.PhaseDone
	}
	if rec.ResultJSON != "" {
		var res model.ExecutionResult
		if err := json.Unmarshal([]byte(rec.ResultJSON), &res); err != nil {
			logger.Warn(ctx, "stored verdict is unreadable", zap.String("submission_id", rec.SubmissionID), zap.Error(err))
		} else {
			view.Result = &res
		}
	}
	return view
}
