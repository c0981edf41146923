package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codejudge/internal/common/broker"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/service"
	appErr "codejudge/pkg/errors"
)

const (
	statusKeyPrefix  = "judge:status:"
	defaultStatusTTL = 24 * time.Hour
)

// JudgeStatus is the live view of a graded submission.
type JudgeStatus struct {
	SubmissionID string        `json:"submissionId"`
	Phase        service.Phase `json:"phase"`
	Status       model.Status  `json:"status,omitempty"`
	TestCase     int           `json:"testCase,omitempty"`
	Correct      int           `json:"correctTestCases"`
	Total        int           `json:"totalTestCases"`
	UpdatedAt    int64         `json:"updatedAt"`
}

// StatusRepository keeps live statuses in the broker's key space so
// pollers need not reach MySQL.
type StatusRepository struct {
	kv  broker.KVOps
	TTL time.Duration
}

// NewStatusRepository creates a new repository.
func NewStatusRepository(kv broker.KVOps, ttl time.Duration) *StatusRepository {
	if ttl <= 0 {
		ttl = defaultStatusTTL
	}
	return &StatusRepository{kv: kv, TTL: ttl}
}

// Get returns status by submission id.
func (r *StatusRepository) Get(ctx context.Context, submissionID string) (JudgeStatus, error) {
	if submissionID == "" {
		return JudgeStatus{}, appErr.ValidationError("submission_id", "required")
	}
	if r.kv == nil {
		return JudgeStatus{}, appErr.New(appErr.BrokerError).WithMessage("status store is not initialized")
	}
	val, err := r.kv.Get(ctx, statusKeyPrefix+submissionID)
	if err != nil {
		return JudgeStatus{}, appErr.Wrapf(err, appErr.BrokerError, "load status failed")
	}
	if val == "" {
		return JudgeStatus{}, appErr.New(appErr.SubmissionNotFound).WithMessage("submission status not found")
	}
	var status JudgeStatus
	if err := json.Unmarshal([]byte(val), &status); err != nil {
		return JudgeStatus{}, appErr.Wrapf(err, appErr.BrokerError, "decode status failed")
	}
	return status, nil
}

// Save persists status.
func (r *StatusRepository) Save(ctx context.Context, status JudgeStatus) error {
	if status.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	if r.kv == nil {
		return appErr.New(appErr.BrokerError).WithMessage("status store is not initialized")
	}
	if status.UpdatedAt == 0 {
		status.UpdatedAt = time.Now().Unix()
	}
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("marshal status failed: %w", err)
	}
	if err := r.kv.Set(ctx, statusKeyPrefix+status.SubmissionID, string(data), r.TTL); err != nil {
		return appErr.Wrapf(err, appErr.BrokerError, "store status failed")
	}
	return nil
}

// SavePending marks a freshly accepted graded submission.
func (r *StatusRepository) SavePending(ctx context.Context, submissionID string) error {
	return r.Save(ctx, JudgeStatus{SubmissionID: submissionID, Phase: service.PhasePending})
}

// SaveFinal records the terminal verdict.
func (r *StatusRepository) SaveFinal(ctx context.Context, res *model.ExecutionResult) error {
	return r.Save(ctx, JudgeStatus{
		SubmissionID: res.SubmissionID,
		Phase:        service.PhaseDone,
		Status:       res.Status,
		TestCase:     res.Rows(),
		Correct:      res.CorrectTestCases,
		Total:        res.TotalTestCases,
	})
}

// ReportProgress stores an intermediate phase.
func (r *StatusRepository) ReportProgress(ctx context.Context, p service.Progress) error {
	return r.Save(ctx, JudgeStatus{
		SubmissionID: p.SubmissionID,
		Phase:        p.Phase,
		TestCase:     p.TestCase,
		Total:        p.Total,
	})
}
