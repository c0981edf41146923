// Package executor runs the compile and execute stages of a job inside the
// worker's box and turns isolate reports into verdict statuses.
package executor

import (
	"context"
	"time"

	"codejudge/internal/judge/observer"
	"codejudge/internal/judge/sandbox"
)

// Box-relative and box-root file names shared by every job.
const (
	InputFile         = "input.txt"
	OutputFile        = "output.txt"
	StderrFile        = "stderr.txt"
	CompileStderrFile = "compile_stderr.txt"
	MetaFile          = "meta.txt"
	CompileMetaFile   = "compile_meta.txt"
)

// maxMessageBytes caps compiler and program diagnostics carried in a verdict.
const maxMessageBytes = 8 << 10

// Sandbox is the part of the isolate adapter the stages need.
type Sandbox interface {
	Run(ctx context.Context, req sandbox.RunRequest) (sandbox.RunResult, error)
}

// Config holds the base limits; per-language multipliers scale them.
type Config struct {
	Compile sandbox.Limits `yaml:"compile"`
	Execute sandbox.Limits `yaml:"execute"`
}

// DefaultConfig returns the stock limits.
func DefaultConfig() Config {
	return Config{
		Compile: sandbox.Limits{
			CPUTime:    5 * time.Second,
			WallTime:   10 * time.Second,
			MemoryKB:   524288,
			Processes:  32,
			FileSizeKB: 65536,
		},
		Execute: sandbox.Limits{
			CPUTime:    3 * time.Second,
			WallTime:   6 * time.Second,
			MemoryKB:   256000,
			Processes:  32,
			FileSizeKB: 1024,
		},
	}
}

// ApplyDefaults fills zero fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	fill(&c.Compile, def.Compile)
	fill(&c.Execute, def.Execute)
}

func fill(l *sandbox.Limits, def sandbox.Limits) {
	if l.CPUTime <= 0 {
		l.CPUTime = def.CPUTime
	}
	if l.WallTime <= 0 {
		l.WallTime = def.WallTime
	}
	if l.MemoryKB <= 0 {
		l.MemoryKB = def.MemoryKB
	}
	if l.Processes <= 0 {
		l.Processes = def.Processes
	}
	if l.FileSizeKB <= 0 {
		l.FileSizeKB = def.FileSizeKB
	}
}

// Executor owns one box. It is not safe for concurrent use: every stage
// reuses the same scratch directory.
type Executor struct {
	sb      Sandbox
	box     sandbox.Box
	cfg     Config
	metrics observer.MetricsRecorder
}

// New builds an executor over an initialized box.
func New(sb Sandbox, box sandbox.Box, cfg Config, metrics observer.MetricsRecorder) *Executor {
	cfg.ApplyDefaults()
	return &Executor{
		sb:      sb,
		box:     box,
		cfg:     cfg,
		metrics: observer.OrNop(metrics),
	}
}

// Box is the box the executor runs in.
func (e *Executor) Box() sandbox.Box {
	return e.box
}
