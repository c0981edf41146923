package bridge

import (
	"context"

	"codejudge/internal/common/db"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/repository"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// VerdictStore records graded verdicts.
type VerdictStore interface {
	SaveVerdict(ctx context.Context, tx db.Transaction, res *model.ExecutionResult) error
}

// Aggregator persists graded verdicts and publishes every verdict.
type Aggregator struct {
	Verdicts  VerdictStore
	Statuses  StatusStore
	Publisher repository.ResultPublisher
}

// Handle is the aggregator loop body. Persistence failures are logged so
// the verdict still reaches subscribers; a publish failure is returned.
func (a *Aggregator) Handle(ctx context.Context, payload string) error {
	res, err := model.DecodeExecutionResult(payload)
	if err != nil {
		logger.Warn(ctx, "dropping malformed result", zap.Error(err))
		return nil
	}
	ctx = logger.WithSubmission(ctx, res.SubmissionID, res.UserID)

	if res.IsAnswer {
		if err := a.Verdicts.SaveVerdict(ctx, nil, &res); err != nil {
			logger.Error(ctx, "save verdict failed", zap.Error(err))
		}
		if a.Statuses != nil {
			if err := a.Statuses.SaveFinal(ctx, &res); err != nil {
				logger.Warn(ctx, "save final status failed", zap.Error(err))
			}
		}
	}

	if err := a.Publisher.PublishResult(ctx, &res); err != nil {
		return err
	}
	logger.Info(ctx, "result published", zap.String("status", string(res.Status)))
	return nil
}
