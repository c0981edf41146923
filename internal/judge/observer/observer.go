// Package observer defines metrics hooks for the judge pipeline.
package observer

import "context"

// MetricsRecorder records judge metrics.
type MetricsRecorder interface {
	ObserveCompile(ctx context.Context, language string, status string, seconds float64)
	ObserveRun(ctx context.Context, language string, status string, seconds float64, memoryKB int64)
	ObserveVerdict(ctx context.Context, mode string, status string)
	ObserveLoopError(ctx context.Context, loop string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveCompile(context.Context, string, string, float64) {}
func (Nop) ObserveRun(context.Context, string, string, float64, int64) {}
func (Nop) ObserveVerdict(context.Context, string, string) {}
func (Nop) ObserveLoopError(context.Context, string) {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r MetricsRecorder) MetricsRecorder {
	if r == nil {
		return Nop{}
	}
	return r
}
