package language

import (
	"fmt"
	"strings"

	"codejudge/internal/judge/model"
)

func wrapPython(code, functionName string, paramTypes []string, returnType string) string {
	var read strings.Builder
	args := make([]string, len(paramTypes))
	for i, tag := range paramTypes {
		p := fmt.Sprintf("param%d", i)
		args[i] = p
		switch tag {
		case model.TypeInteger:
			fmt.Fprintf(&read, "%s = int(_judge_line())\n", p)
		case model.TypeIntegerArray:
			fmt.Fprintf(&read, "%s = [int(v) for v in _judge_line().split()]\n", p)
		case model.TypeString:
			fmt.Fprintf(&read, "%s = _judge_line()\n", p)
		case model.TypeStringArray:
			fmt.Fprintf(&read, "%s = _judge_line().split()\n", p)
		case model.TypeCharacter:
			fmt.Fprintf(&read, "%s = (_judge_line() or ' ')[0]\n", p)
		case model.TypeCharacterArray:
			fmt.Fprintf(&read, "%s = [v[0] for v in _judge_line().split()]\n", p)
		}
	}

	var write string
	switch returnType {
	case model.TypeIntegerArray:
		write = `sys.stdout.write("[" + ",".join(str(int(v)) for v in result) + "]")`
	case model.TypeStringArray, model.TypeCharacterArray:
		write = `sys.stdout.write(json.dumps([str(v) for v in result], separators=(",", ":"), ensure_ascii=False))`
	default:
		write = `sys.stdout.write(str(result))`
	}

	var b strings.Builder
	b.WriteString("import json\nimport sys\n\n")
	b.WriteString(strings.TrimSpace(code))
	b.WriteString("\n\n\ndef _judge_line():\n    return sys.stdin.readline().rstrip(\"\\r\\n\")\n\n\n")
	b.WriteString("if __name__ == \"__main__\":\n")
	b.WriteString(indent(read.String(), "    "))
	b.WriteString("\n")
	fmt.Fprintf(&b, "    result = Solution().%s(%s)\n", functionName, strings.Join(args, ", "))
	fmt.Fprintf(&b, "    sys.stdout.write(%q)\n", AnswerSentinel)
	fmt.Fprintf(&b, "    %s\n", write)
	b.WriteString("    sys.stdout.flush()\n")
	return b.String()
}
