// Package testcase parses raw newline-delimited test data against declared
// parameter types and produces the per-line tokens fed to generated programs.
package testcase

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"math"
	"strings"

	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

// Messages surfaced verbatim in verdicts.
const (
	MsgLineCountMismatch = "Number of test case lines does not match paramType length"
	MsgNoTestCases       = "No test cases provided"
)

// ValidationError reports a malformed token. Index is 1-based.
type ValidationError struct {
	Index  int
	Line   string
	Type   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Validation failed for test case %d: %s", e.Index, e.Reason)
}

// Case is one test case: the raw lines as received and the normalized
// lines written to the program's stdin.
type Case struct {
	Number int
	Raw    []string
	Tokens []string
}

// Input is the stdin payload for the generated program, one line per parameter.
func (c Case) Input() string {
	return strings.Join(c.Tokens, "\n") + "\n"
}

// Display is the raw input as the submitter wrote it.
func (c Case) Display() string {
	return strings.Join(c.Raw, "\n")
}

// Set is a validated list of test cases.
type Set struct {
	Cases []Case
}

// Total is the number of test cases.
func (s Set) Total() int {
	return len(s.Cases)
}

// CountCases reports how many test cases dataInput holds, without validating tokens.
func CountCases(dataInput string, paramCount int) (int, error) {
	lines := nonBlankLines(dataInput)
	if paramCount <= 0 || len(lines)%paramCount != 0 {
		return 0, appErr.New(appErr.TestCaseInvalid).WithMessage(MsgLineCountMismatch)
	}
	return len(lines) / paramCount, nil
}

// ParseAndValidate splits dataInput into test cases of len(paramTypes)
// lines each and validates every line against its declared type.
func ParseAndValidate(dataInput string, paramTypes []string) (Set, error) {
	total, err := CountCases(dataInput, len(paramTypes))
	if err != nil {
		return Set{}, err
	}
	if total == 0 {
		return Set{}, appErr.New(appErr.TestCaseInvalid).WithMessage(MsgNoTestCases)
	}
	for _, tag := range paramTypes {
		if !model.KnownType(tag) {
			return Set{}, appErr.Newf(appErr.TypeNotSupported, "Unsupported parameter type: %s", tag)
		}
	}

	lines := nonBlankLines(dataInput)
	set := Set{Cases: make([]Case, 0, total)}
	n := len(paramTypes)
	for i := 0; i < total; i++ {
		c := Case{Number: i + 1, Raw: lines[i*n : (i+1)*n], Tokens: make([]string, n)}
		for j, tag := range paramTypes {
			tok, err := normalize(tag, c.Raw[j])
			if err != nil {
				return Set{}, &ValidationError{Index: c.Number, Line: c.Raw[j], Type: tag, Reason: err.Error()}
			}
			c.Tokens[j] = tok
		}
		set.Cases = append(set.Cases, c)
	}
	return set, nil
}

// ExpectedOutputs splits precomputed answers, one per non-blank line.
func ExpectedOutputs(systemCode string) []string {
	lines := nonBlankLines(systemCode)
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return lines
}

func nonBlankLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func normalize(tag, line string) (string, error) {
	switch tag {
	case model.TypeInteger:
		v, err := parseInteger(line)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(v, 10), nil
	case model.TypeIntegerArray:
		vals, err := decodeIntegerArray(line)
		if err != nil {
			return "", err
		}
		return JoinIntegers(vals), nil
	case model.TypeString:
		return line, nil
	case model.TypeStringArray:
		vals, err := decodeStringArray(line)
		if err != nil {
			return "", err
		}
		for i, v := range vals {
			vals[i] = strings.TrimSpace(v)
		}
		return strings.TrimSpace(strings.Join(vals, " ")), nil
	case model.TypeCharacter:
		if !singleChar(line) {
			return "", fmt.Errorf("expected a single character, got %q", line)
		}
		return line, nil
	case model.TypeCharacterArray:
		vals, err := decodeStringArray(line)
		if err != nil {
			return "", err
		}
		for _, v := range vals {
			if !singleChar(v) {
				return "", fmt.Errorf("expected single characters, got %q in %s", v, line)
			}
		}
		return strings.Join(vals, " "), nil
	}
	return "", fmt.Errorf("unsupported type %s", tag)
}

// Generated programs read integers into 32-bit ints and characters into
// a single byte, so the codec rejects anything wider.
func parseInteger(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected an integer, got %q", s)
	}
	if !inInt32(v) {
		return 0, fmt.Errorf("integer %d out of 32-bit range", v)
	}
	return v, nil
}

func inInt32(v int64) bool {
	return v >= math.MinInt32 && v <= math.MaxInt32
}

func singleChar(s string) bool {
	return len(s) == 1 && s[0] < 0x80
}

func decodeIntegerArray(line string) ([]int64, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(line)))
	dec.UseNumber()
	var raw []json.Number
	if err := dec.Decode(&raw); err != nil || raw == nil || dec.More() {
		return nil, fmt.Errorf("expected a JSON array of integers, got %s", line)
	}
	vals := make([]int64, len(raw))
	for i, n := range raw {
		v, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("expected a JSON array of integers, got %s", line)
		}
		if !inInt32(v) {
			return nil, fmt.Errorf("integer %d out of 32-bit range in %s", v, line)
		}
		vals[i] = v
	}
	return vals, nil
}

func decodeStringArray(line string) ([]string, error) {
	var vals []string
	if err := json.Unmarshal([]byte(line), &vals); err != nil || vals == nil {
		return nil, fmt.Errorf("expected a JSON array of strings, got %s", line)
	}
	return vals, nil
}

// JoinIntegers renders values as a space-separated token line.
func JoinIntegers(vals []int64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return strings.Join(parts, " ")
}

// SplitIntegers parses a space-separated token line back into values.
func SplitIntegers(line string) ([]int64, error) {
	fields := strings.Fields(line)
	vals := make([]int64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad integer token %q", f)
		}
		vals[i] = v
	}
	return vals, nil
}
