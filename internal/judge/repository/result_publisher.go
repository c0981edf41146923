package repository

import (
	"context"

	"codejudge/internal/common/broker"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

// ResultPublisher fans finished verdicts out to subscribers.
type ResultPublisher interface {
	PublishResult(ctx context.Context, res *model.ExecutionResult) error
}

// ChannelResultPublisher publishes verdicts on a broker channel.
type ChannelResultPublisher struct {
	pubsub  broker.PubSubOps
	channel string
}

// NewChannelResultPublisher creates a new channel publisher.
func NewChannelResultPublisher(pubsub broker.PubSubOps, channel string) *ChannelResultPublisher {
	return &ChannelResultPublisher{pubsub: pubsub, channel: channel}
}

// PublishResult publishes one verdict as JSON.
func (p *ChannelResultPublisher) PublishResult(ctx context.Context, res *model.ExecutionResult) error {
	if p == nil || p.pubsub == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("result publisher is not configured")
	}
	if p.channel == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("result channel is required")
	}
	if res == nil || res.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	payload, err := res.Encode()
	if err != nil {
		return err
	}
	if err := p.pubsub.Publish(ctx, p.channel, payload); err != nil {
		return appErr.Wrapf(err, appErr.BrokerError, "publish result failed")
	}
	return nil
}
