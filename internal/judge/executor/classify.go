package executor

import (
	"strings"

	"codejudge/internal/judge/model"
	"codejudge/internal/judge/sandbox"
)

const (
	msgTimeLimit       = "Time limit exceeded"
	msgMemoryLimit     = "Memory limit exceeded"
	msgSandboxFailure  = "Internal sandbox error"
	msgInvalidOutput   = "Invalid output format"
	msgCompileFailed   = "Compilation failed"
	msgRuntimeFailed   = "Runtime error"
	msgMissingOutput   = "Program output is missing"
	msgWriteFileFailed = "Failed to prepare sandbox files"
)

// classify maps a failed run to a status and message. abnormal is the
// stage's own failure status; stderr wins over the report message.
func classify(rep *sandbox.Report, ceilingKB int64, abnormal model.Status, stderr string) (model.Status, string) {
	if rep == nil {
		return abnormal, firstNonEmpty(stderr, defaultMessage(abnormal))
	}
	switch rep.Status {
	case sandbox.CodeTimeout:
		return model.StatusTimeout, msgTimeLimit
	case sandbox.CodeRuntime, sandbox.CodeSignal:
		if rep.MemoryExceeded(ceilingKB) {
			return model.StatusMemoryLimitExceeded, msgMemoryLimit
		}
		return abnormal, firstNonEmpty(stderr, rep.Message, defaultMessage(abnormal))
	case sandbox.CodeInternal:
		return model.StatusError, msgSandboxFailure
	}
	return abnormal, firstNonEmpty(stderr, rep.Message, defaultMessage(abnormal))
}

func defaultMessage(status model.Status) string {
	if status == model.StatusCompilationError {
		return msgCompileFailed
	}
	return msgRuntimeFailed
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string) string {
	if len(s) <= maxMessageBytes {
		return s
	}
	return s[:maxMessageBytes] + "\n... (truncated)"
}

// splitAnswer separates debug output from the answer. Anything other than
// exactly one sentinel is a malformed run.
func splitAnswer(output, sentinel string) (debug, answer string, ok bool) {
	parts := strings.Split(output, sentinel)
	if len(parts) != 2 {
		return "", "", false
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}
