package language

import (
	"fmt"
	"strings"

	"codejudge/internal/judge/model"
)

const javaHelpers = `
    private static String judgeQuote(String s) {
        StringBuilder out = new StringBuilder("\"");
        for (int i = 0; i < s.length(); i++) {
            char c = s.charAt(i);
            switch (c) {
                case '"': out.append("\\\""); break;
                case '\\': out.append("\\\\"); break;
                case '\n': out.append("\\n"); break;
                case '\r': out.append("\\r"); break;
                case '\t': out.append("\\t"); break;
                case '\b': out.append("\\b"); break;
                case '\f': out.append("\\f"); break;
                default:
                    if (c < 0x20) {
                        out.append(String.format("\\u%04x", (int) c));
                    } else {
                        out.append(c);
                    }
            }
        }
        return out.append('"').toString();
    }

    private static String[] judgeTokens(String line) {
        String t = line.trim();
        return t.isEmpty() ? new String[0] : t.split("\\s+");
    }

    private static String judgeLine(BufferedReader in) throws IOException {
        String line = in.readLine();
        return line == null ? "" : line;
    }
`

func wrapJava(code, functionName string, paramTypes []string, returnType string) string {
	var read strings.Builder
	args := make([]string, len(paramTypes))
	for i, tag := range paramTypes {
		p := fmt.Sprintf("param%d", i)
		args[i] = p
		switch tag {
		case model.TypeInteger:
			fmt.Fprintf(&read, "int %s = Integer.parseInt(judgeLine(in).trim());\n", p)
		case model.TypeIntegerArray:
			fmt.Fprintf(&read, "int[] %s = Arrays.stream(judgeTokens(judgeLine(in))).mapToInt(Integer::parseInt).toArray();\n", p)
		case model.TypeString:
			fmt.Fprintf(&read, "String %s = judgeLine(in);\n", p)
		case model.TypeStringArray:
			fmt.Fprintf(&read, "String[] %s = judgeTokens(judgeLine(in));\n", p)
		case model.TypeCharacter:
			fmt.Fprintf(&read, "String raw%d = judgeLine(in);\nchar %s = raw%d.isEmpty() ? ' ' : raw%d.charAt(0);\n", i, p, i, i)
		case model.TypeCharacterArray:
			fmt.Fprintf(&read, "String[] tok%d = judgeTokens(judgeLine(in));\nchar[] %s = new char[tok%d.length];\nfor (int i = 0; i < tok%d.length; i++) %s[i] = tok%d[i].charAt(0);\n", i, p, i, i, p, i)
		}
	}

	var write string
	switch returnType {
	case model.TypeIntegerArray:
		write = javaArrayWriter("String.valueOf(result[i])")
	case model.TypeStringArray:
		write = javaArrayWriter("judgeQuote(result[i])")
	case model.TypeCharacterArray:
		write = javaArrayWriter("judgeQuote(String.valueOf(result[i]))")
	default:
		write = "out.append(result);\n"
	}

	var b strings.Builder
	b.WriteString("import java.util.*;\nimport java.io.*;\n\n")
	b.WriteString(strings.TrimSpace(code))
	b.WriteString("\n\npublic class Main {\n")
	b.WriteString(javaHelpers)
	b.WriteString("\n    public static void main(String[] args) throws Exception {\n")
	b.WriteString("        BufferedReader in = new BufferedReader(new InputStreamReader(System.in));\n")
	b.WriteString(indent(read.String(), "        "))
	b.WriteString("\n")
	fmt.Fprintf(&b, "        var result = new Solution().%s(%s);\n", functionName, strings.Join(args, ", "))
	b.WriteString("        StringBuilder out = new StringBuilder();\n")
	b.WriteString(indent(write, "        "))
	b.WriteString("\n        System.out.flush();\n")
	fmt.Fprintf(&b, "        System.out.print(%q);\n", AnswerSentinel)
	b.WriteString("        System.out.print(out);\n")
	b.WriteString("        System.out.flush();\n    }\n}\n")
	return b.String()
}

func javaArrayWriter(elem string) string {
	return fmt.Sprintf(`out.append('[');
for (int i = 0; i < result.length; i++) {
    if (i > 0) out.append(',');
    out.append(%s);
}
out.append(']');
`, elem)
}
