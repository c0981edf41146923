// Package language holds one capability record per supported language:
// where its source lives in the box, how it is compiled and run, and how
// user code is wrapped in a harness that reads typed parameters from stdin
// and prints the answer after the sentinel.
package language

import (
	"regexp"
	"strings"

	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

// AnswerSentinel separates debug output from the serialized answer.
const AnswerSentinel = "{{CODE_ANSWER}}"

// Role distinguishes the two programs that may share one box.
type Role string

const (
	RoleUser   Role = "userCode"
	RoleSystem Role = "systemCode"
)

// Handler is the per-language, per-role capability record.
type Handler struct {
	Language string
	Role     Role

	// Paths relative to the box directory.
	SourceFile string
	BinaryFile string

	// CompileCmd is nil for interpreted languages.
	CompileCmd []string
	RunCmd     []string

	TimeMultiplier   float64
	MemoryMultiplier float64

	wrap wrapFunc
}

type wrapFunc func(code, functionName string, paramTypes []string, returnType string) string

// Compiled reports whether the language has a compile step.
func (h *Handler) Compiled() bool {
	return len(h.CompileCmd) > 0
}

// WrapCode embeds code in a complete program. It fails before any sandbox
// work when a type tag or the function name cannot be expressed.
func (h *Handler) WrapCode(code, functionName string, paramTypes []string, returnType string) (string, error) {
	if !identifier.MatchString(functionName) {
		return "", appErr.Newf(appErr.InvalidParams, "Invalid function name: %q", functionName)
	}
	for _, tag := range paramTypes {
		if !model.KnownType(tag) {
			return "", appErr.Newf(appErr.TypeNotSupported, "Unsupported type: %s", tag)
		}
	}
	if !model.KnownType(returnType) {
		return "", appErr.Newf(appErr.TypeNotSupported, "Unsupported return type: %s", returnType)
	}
	return h.wrap(code, functionName, paramTypes, returnType), nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// indent prefixes every non-empty line of block with pad.
func indent(block, pad string) string {
	lines := strings.Split(strings.TrimRight(block, "\n"), "\n")
	for i, l := range lines {
		if strings.TrimSpace(l) != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}
