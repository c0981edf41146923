package bridge

import (
	"context"

	"codejudge/internal/common/broker"
	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PendingStore creates the row a graded verdict later fills in.
type PendingStore interface {
	CreatePending(ctx context.Context, tx db.Transaction, record *repository.SubmissionRecord) error
}

// StatusStore is the live status cache.
type StatusStore interface {
	SavePending(ctx context.Context, submissionID string) error
	SaveFinal(ctx context.Context, res *model.ExecutionResult) error
}

// Archiver stores user code for graded submissions.
type Archiver interface {
	Archive(ctx context.Context, sub *model.Submission) (string, error)
}

// Fetcher forwards ingress jobs to the local queue, persisting graded ones first.
type Fetcher struct {
	Local    broker.ListOps
	Queue    string
	Pending  PendingStore
	Statuses StatusStore
	// Archive is optional.
	Archive Archiver
	NewID   func() string
}

// Handle is the fetcher loop body.
func (f *Fetcher) Handle(ctx context.Context, payload string) error {
	sub, err := model.DecodeSubmission(payload)
	if err != nil {
		logger.Warn(ctx, "dropping malformed submission", zap.Error(err))
		return nil
	}

	if sub.IsAnswer {
		if err := f.accept(ctx, &sub); err != nil {
			return err
		}
		payload, err = sub.Encode()
		if err != nil {
			return err
		}
	}

	if err := f.Local.LPush(ctx, f.Queue, payload); err != nil {
		return appErr.Wrapf(err, appErr.BrokerError, "forward submission failed")
	}
	logger.Info(logger.WithSubmission(ctx, sub.SubmissionID, sub.UserID), "submission forwarded",
		zap.String("question_id", sub.QuestionID),
		zap.String("mode", sub.Mode()),
	)
	return nil
}

// accept stamps a fresh id, archives the source and writes the pending
// row. A job whose row cannot be written is not forwarded.
func (f *Fetcher) accept(ctx context.Context, sub *model.Submission) error {
	newID := f.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	sub.SubmissionID = newID()
	ctx = logger.WithSubmission(ctx, sub.SubmissionID, sub.UserID)

	var sourceKey string
	if f.Archive != nil {
		key, err := f.Archive.Archive(ctx, sub)
		if err != nil {
			logger.Warn(ctx, "archive source failed", zap.Error(err))
		}
		sourceKey = key
	}

	err := f.Pending.CreatePending(ctx, nil, &repository.SubmissionRecord{
		SubmissionID: sub.SubmissionID,
		UserID:       sub.UserID,
		QuestionID:   sub.QuestionID,
		Language:     sub.Language,
		SourceKey:    sourceKey,
	})
	if err != nil {
		return appErr.Wrapf(err, appErr.SubmissionCreateFailed, "create pending submission failed")
	}

	if f.Statuses != nil {
		if err := f.Statuses.SavePending(ctx, sub.SubmissionID); err != nil {
			logger.Warn(ctx, "save pending status failed", zap.Error(err))
		}
	}
	return nil
}
