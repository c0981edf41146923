// Package bridge moves jobs and verdicts between the ingress broker, the
// worker-local broker and the processor. Each loop body is a plain
// HandlerFunc; Loop supplies the blocking pop and the retry policy.
package bridge

import (
	"context"
	"errors"
	"time"

	"codejudge/internal/common/broker"
	"codejudge/internal/judge/observer"
	"codejudge/pkg/utils/contextkey"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultRetryDelay is the pause after any failed iteration.
const DefaultRetryDelay = 5 * time.Second

// Queues names the lists and channel the bridge uses.
type Queues struct {
	Submission      string `yaml:"submission"`
	LocalSubmission string `yaml:"localSubmission"`
	LocalResult     string `yaml:"localResult"`
	ResultChannel   string `yaml:"resultChannel"`
}

// DefaultQueues returns the stock key names.
func DefaultQueues() Queues {
	return Queues{
		Submission:      "SUBMISSION_QUEUE",
		LocalSubmission: "LOCAL_SUBMISSION_QUEUE",
		LocalResult:     "LOCAL_RESULT_QUEUE",
		ResultChannel:   "RESULT_CHANNEL",
	}
}

// ApplyDefaults fills empty names.
func (q *Queues) ApplyDefaults() {
	def := DefaultQueues()
	if q.Submission == "" {
		q.Submission = def.Submission
	}
	if q.LocalSubmission == "" {
		q.LocalSubmission = def.LocalSubmission
	}
	if q.LocalResult == "" {
		q.LocalResult = def.LocalResult
	}
	if q.ResultChannel == "" {
		q.ResultChannel = def.ResultChannel
	}
}

// HandlerFunc processes one dequeued payload.
type HandlerFunc func(ctx context.Context, payload string) error

// PopSource is the connection a loop blocks on. Closing it interrupts a
// pending BRPop, so each loop should own one.
type PopSource interface {
	BRPop(ctx context.Context, timeout time.Duration, key string) (string, error)
	Close() error
}

// Loop pops from one list forever and hands each element to Handle.
type Loop struct {
	Name   string
	Source PopSource
	Queue  string
	Handle HandlerFunc

	// PopTimeout zero blocks forever.
	PopTimeout time.Duration
	RetryDelay time.Duration
	Metrics    observer.MetricsRecorder
}

// Run returns nil once ctx is cancelled. Failures never end the loop:
// they are logged and followed by RetryDelay. The failed element is not
// retried; user programs may be non-deterministic.
//
// Handle runs detached from ctx cancellation so an element already popped
// is carried through to its next queue during shutdown.
func (l *Loop) Run(ctx context.Context) error {
	ctx = context.WithValue(ctx, contextkey.Loop, l.Name)
	delay := l.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	metrics := observer.OrNop(l.Metrics)

	logger.Info(ctx, "loop started", zap.String("queue", l.Queue))
	defer logger.Info(ctx, "loop stopped", zap.String("queue", l.Queue))

	for ctx.Err() == nil {
		payload, err := l.Source.BRPop(ctx, l.PopTimeout, l.Queue)
		if errors.Is(err, broker.ErrEmpty) {
			continue
		}
		popped := err == nil
		if popped {
			err = l.Handle(context.WithoutCancel(ctx), payload)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			if popped {
				logger.Warn(ctx, "payload dropped during shutdown", zap.String("payload", payload), zap.Error(err))
			}
			return nil
		}
		metrics.ObserveLoopError(ctx, l.Name)
		logger.Error(ctx, "loop iteration failed", zap.Duration("retry_in", delay), zap.Error(err))

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
	return nil
}

// Stop closes the loop's pop connection.
func (l *Loop) Stop() error {
	return l.Source.Close()
}

// Drain hands every element still queued in src to Handle without blocking
// and returns how many it handled. Failed elements are logged and skipped.
func (l *Loop) Drain(ctx context.Context, src broker.ListOps) int {
	ctx = context.WithValue(context.WithoutCancel(ctx), contextkey.Loop, l.Name)
	n := 0
	for {
		payload, err := src.RPop(ctx, l.Queue)
		if errors.Is(err, broker.ErrEmpty) {
			return n
		}
		if err != nil {
			logger.Error(ctx, "drain pop failed", zap.String("queue", l.Queue), zap.Error(err))
			return n
		}
		n++
		if err := l.Handle(ctx, payload); err != nil {
			logger.Error(ctx, "drain element failed", zap.Error(err))
		}
	}
}
