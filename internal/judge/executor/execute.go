package executor

import (
	"context"

	"codejudge/internal/judge/language"
	"codejudge/internal/judge/model"
	"codejudge/internal/judge/sandbox"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// ExecuteResult is the outcome of one test case run.
type ExecuteResult struct {
	// Output is the raw stdout; Debug and Answer are its two halves.
	Output string
	Debug  string
	Answer string

	Report *sandbox.Report
	Status model.Status
	Error  string

	TimeSec  float64
	MemoryKB int64
}

// OK reports a clean run with a well-formed answer.
func (r ExecuteResult) OK() bool {
	return r.Status == model.StatusSuccess
}

// Execute runs the handler's program once with input on stdin.
func (e *Executor) Execute(ctx context.Context, h *language.Handler, input string, isUserCode bool) ExecuteResult {
	if err := e.box.WriteFile(InputFile, []byte(input)); err != nil {
		logger.Error(ctx, "write input failed", zap.Error(err))
		return ExecuteResult{Status: model.StatusError, Error: msgWriteFileFailed}
	}

	limits := e.cfg.Execute.Scaled(h.TimeMultiplier, h.MemoryMultiplier)
	req := sandbox.RunRequest{
		Box:    e.box,
		Argv:   h.RunCmd,
		Limits: limits,
		Stdin:  InputFile,
		Stdout: OutputFile,
		Stderr: StderrFile,
	}
	if isUserCode {
		req.ReportPath = e.box.ReportPath(MetaFile)
	}

	res, err := e.sb.Run(ctx, req)
	if err != nil {
		logger.Error(ctx, "execute sandbox failure",
			zap.String("language", h.Language),
			zap.String("role", string(h.Role)),
			zap.Error(err),
		)
		e.metrics.ObserveRun(ctx, h.Language, string(model.StatusError), 0, 0)
		return ExecuteResult{Status: model.StatusError, Error: msgSandboxFailure}
	}

	out := ExecuteResult{
		Report:   res.Report,
		Status:   model.StatusSuccess,
		MemoryKB: res.Report.PeakMemoryKB(),
	}
	if res.Report != nil {
		out.TimeSec = res.Report.Time
	}

	if res.Report.Failed() || (res.Report == nil && res.ExitCode != 0) {
		stderr, _ := e.box.ReadFile(StderrFile)
		status, msg := classify(res.Report, limits.MemoryKB, model.StatusRuntimeError, string(stderr))
		out.Status = status
		out.Error = truncate(msg)
		if status == model.StatusTimeout {
			out.TimeSec = res.Report.TimeoutSeconds(limits.CPUTime.Seconds())
		}
		e.observeRun(ctx, h, out)
		return out
	}

	data, err := e.box.ReadFile(OutputFile)
	if err != nil {
		logger.Warn(ctx, "read program output failed", zap.Error(err))
		out.Status = model.StatusError
		out.Error = msgMissingOutput
		e.observeRun(ctx, h, out)
		return out
	}
	out.Output = string(data)

	debug, answer, ok := splitAnswer(out.Output, language.AnswerSentinel)
	if !ok {
		out.Status = model.StatusError
		out.Error = msgInvalidOutput
		e.observeRun(ctx, h, out)
		return out
	}
	out.Debug = debug
	out.Answer = answer
	e.observeRun(ctx, h, out)
	return out
}

func (e *Executor) observeRun(ctx context.Context, h *language.Handler, out ExecuteResult) {
	logger.Debug(ctx, "execute finished",
		zap.String("language", h.Language),
		zap.String("role", string(h.Role)),
		zap.String("status", string(out.Status)),
		zap.Float64("time_sec", out.TimeSec),
		zap.Int64("memory_kb", out.MemoryKB),
	)
	e.metrics.ObserveRun(ctx, h.Language, string(out.Status), out.TimeSec, out.MemoryKB)
}
