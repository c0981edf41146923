// Package service grades submissions: it validates test data, drives the
// compile and execute stages and assembles the verdict.
package service

import (
	"context"
	"fmt"

	"codejudge/internal/judge/executor"
	"codejudge/internal/judge/language"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/observer"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stages runs code inside the worker's box.
type Stages interface {
	Compile(ctx context.Context, h *language.Handler, code string, isUserCode bool) executor.CompileResult
	Execute(ctx context.Context, h *language.Handler, input string, isUserCode bool) executor.ExecuteResult
}

// Processor grades one submission at a time. It owns no box of its own;
// callers must not share its Stages across goroutines.
type Processor struct {
	stages    Stages
	languages *language.Registry
	progress  ProgressReporter
	metrics   observer.MetricsRecorder
	newID     func() string
}

// Config holds processor dependencies.
type Config struct {
	Stages    Stages
	Languages *language.Registry
	// Progress is optional.
	Progress ProgressReporter
	Metrics  observer.MetricsRecorder
	// NewID defaults to random UUIDs.
	NewID func() string
}

// NewProcessor creates a processor.
func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.Stages == nil {
		return nil, fmt.Errorf("stages are required")
	}
	if cfg.Languages == nil {
		return nil, fmt.Errorf("language registry is required")
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Processor{
		stages:    cfg.Stages,
		languages: cfg.Languages,
		progress:  cfg.Progress,
		metrics:   observer.OrNop(cfg.Metrics),
		newID:     newID,
	}, nil
}

// Process grades sub in the mode its isAnswer flag selects.
func (p *Processor) Process(ctx context.Context, sub *model.Submission) *model.ExecutionResult {
	ctx = logger.WithSubmission(ctx, sub.SubmissionID, sub.UserID)
	if sub.IsAnswer {
		return p.ProcessAnswer(ctx, sub)
	}
	return p.ProcessSubmission(ctx, sub)
}

func (p *Processor) finish(ctx context.Context, sub *model.Submission, res *model.ExecutionResult) {
	logger.Info(ctx, "submission processed",
		zap.String("result_id", res.SubmissionID),
		zap.String("question_id", sub.QuestionID),
		zap.String("language", sub.Language),
		zap.String("mode", sub.Mode()),
		zap.String("status", string(res.Status)),
		zap.Int("correct", res.CorrectTestCases),
		zap.Int("total", res.TotalTestCases),
	)
	p.metrics.ObserveVerdict(ctx, sub.Mode(), string(res.Status))
}

func failedRow(out executor.ExecuteResult, expected string) model.Row {
	return model.Row{
		Answer:   out.Status.Label(),
		Expected: expected,
		TimeSec:  out.TimeSec,
		MemoryKB: out.MemoryKB,
	}
}

func answerRow(out executor.ExecuteResult, expected string) model.Row {
	return model.Row{
		Answer:   out.Answer,
		Debug:    out.Debug,
		Expected: expected,
		TimeSec:  out.TimeSec,
		MemoryKB: out.MemoryKB,
	}
}

func orDefault(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
