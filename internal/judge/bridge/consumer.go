package bridge

import (
	"context"

	"codejudge/internal/common/broker"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// Grader turns a submission into a verdict.
type Grader interface {
	Process(ctx context.Context, sub *model.Submission) *model.ExecutionResult
}

// Consumer grades local jobs one at a time on the worker's box.
type Consumer struct {
	Grader Grader
	Local  broker.ListOps
	Queue  string
}

// Handle is the consumer loop body.
func (c *Consumer) Handle(ctx context.Context, payload string) error {
	sub, err := model.DecodeSubmission(payload)
	if err != nil {
		logger.Warn(ctx, "dropping malformed local submission", zap.Error(err))
		return nil
	}

	res := c.Grader.Process(ctx, &sub)
	out, err := res.Encode()
	if err != nil {
		return err
	}
	if err := c.Local.LPush(ctx, c.Queue, out); err != nil {
		return appErr.Wrapf(err, appErr.BrokerError, "push result failed")
	}
	return nil
}
