package executor

import (
	"context"
	"time"

	"codejudge/internal/judge/language"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/sandbox"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// CompileResult is the outcome of one compile stage.
type CompileResult struct {
	Status model.Status
	Error  string
	// Report is nil for interpreted languages and reference compiles.
	Report *sandbox.Report
}

// OK reports a successful compile.
func (r CompileResult) OK() bool {
	return r.Status == model.StatusSuccess
}

// Compile writes code to the handler's source file and builds it. Only
// user code gets a report; a failing reference compile is judged on its
// exit code alone.
func (e *Executor) Compile(ctx context.Context, h *language.Handler, code string, isUserCode bool) CompileResult {
	if err := e.box.WriteFile(h.SourceFile, []byte(code)); err != nil {
		logger.Error(ctx, "write source failed", zap.String("file", h.SourceFile), zap.Error(err))
		return CompileResult{Status: model.StatusError, Error: msgWriteFileFailed}
	}
	if !h.Compiled() {
		return CompileResult{Status: model.StatusSuccess}
	}

	limits := e.cfg.Compile.Scaled(h.TimeMultiplier, h.MemoryMultiplier)
	req := sandbox.RunRequest{
		Box:    e.box,
		Argv:   h.CompileCmd,
		Limits: limits,
		Stderr: CompileStderrFile,
	}
	if isUserCode {
		req.ReportPath = e.box.ReportPath(CompileMetaFile)
	}

	start := time.Now()
	res, err := e.sb.Run(ctx, req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		logger.Error(ctx, "compile sandbox failure",
			zap.String("language", h.Language),
			zap.String("role", string(h.Role)),
			zap.Error(err),
		)
		e.metrics.ObserveCompile(ctx, h.Language, string(model.StatusError), elapsed)
		return CompileResult{Status: model.StatusError, Error: msgSandboxFailure}
	}

	out := CompileResult{Status: model.StatusSuccess, Report: res.Report}
	if res.Report.Failed() || (res.Report == nil && res.ExitCode != 0) {
		stderr, _ := e.box.ReadFile(CompileStderrFile)
		status, msg := classify(res.Report, limits.MemoryKB, model.StatusCompilationError, string(stderr))
		out.Status = status
		out.Error = truncate(msg)
	}

	logger.Info(ctx, "compile finished",
		zap.String("language", h.Language),
		zap.String("role", string(h.Role)),
		zap.String("status", string(out.Status)),
		zap.Float64("elapsed_sec", elapsed),
	)
	e.metrics.ObserveCompile(ctx, h.Language, string(out.Status), elapsed)
	return out
}
