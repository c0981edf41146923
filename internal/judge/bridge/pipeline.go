package bridge

import (
	"context"

	"codejudge/internal/common/broker"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// Pipeline runs the worker's three loops and stops them upstream first,
// so a job already taken off the ingress list still reaches the result
// channel when the worker shuts down.
type Pipeline struct {
	Fetcher    *Loop
	Consumer   *Loop
	Aggregator *Loop

	// Results is read after the aggregator stops to flush verdicts the
	// consumer pushed during shutdown.
	Results broker.ListOps
}

// Run blocks until ctx is cancelled and every loop has stopped.
func (p *Pipeline) Run(ctx context.Context) error {
	stages := []*Loop{p.Fetcher, p.Consumer, p.Aggregator}
	done := make([]chan struct{}, len(stages))
	for i, loop := range stages {
		done[i] = make(chan struct{})
		go func(loop *Loop, done chan struct{}) {
			defer close(done)
			_ = loop.Run(ctx)
		}(loop, done[i])
	}

	<-ctx.Done()
	for i, loop := range stages {
		// Only the pop connection is closed; a handler in flight keeps
		// writing through the shared brokers.
		if err := loop.Stop(); err != nil {
			logger.Warn(ctx, "close loop source failed", zap.String("loop", loop.Name), zap.Error(err))
		}
		<-done[i]
	}
	if n := p.Aggregator.Drain(ctx, p.Results); n > 0 {
		logger.Info(ctx, "flushed results during shutdown", zap.Int("count", n))
	}
	return nil
}
