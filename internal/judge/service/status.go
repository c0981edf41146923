package service

import (
	"context"

	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// Phase is a step of the graded state machine.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseCompiling Phase = "compiling"
	PhaseExecuting Phase = "executing"
	PhaseComparing Phase = "comparing"
	PhaseDone      Phase = "done"
)

// Progress is an intermediate status of a graded job.
type Progress struct {
	SubmissionID string `json:"submissionId"`
	Phase        Phase  `json:"phase"`
	TestCase     int    `json:"testCase,omitempty"`
	Total        int    `json:"totalTestCases,omitempty"`
}

// ProgressReporter receives intermediate status updates.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, p Progress) error
}

// reportProgress never fails the job: progress is advisory.
func (p *Processor) reportProgress(ctx context.Context, update Progress) {
	if p.progress == nil || update.SubmissionID == "" {
		return
	}
	if err := p.progress.ReportProgress(ctx, update); err != nil {
		logger.Warn(ctx, "update intermediate status failed",
			zap.String("phase", string(update.Phase)),
			zap.Error(err),
		)
	}
}
