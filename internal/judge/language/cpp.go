package language

import (
	"fmt"
	"strings"

	"codejudge/internal/judge/model"
)

const cppPrelude = `#include <bits/stdc++.h>
using namespace std;
`

const cppHelpers = `
static string judge_read_line() {
    string line;
    getline(cin, line);
    if (!line.empty() && line.back() == '\r') line.pop_back();
    return line;
}

static string judge_quote(const string& s) {
    string out = "\"";
    for (unsigned char c : s) {
        switch (c) {
        case '"': out += "\\\""; break;
        case '\\': out += "\\\\"; break;
        case '\n': out += "\\n"; break;
        case '\r': out += "\\r"; break;
        case '\t': out += "\\t"; break;
        case '\b': out += "\\b"; break;
        case '\f': out += "\\f"; break;
        default:
            if (c < 0x20) {
                char buf[8];
                snprintf(buf, sizeof buf, "\\u%04x", c);
                out += buf;
            } else {
                out += static_cast<char>(c);
            }
        }
    }
    out += "\"";
    return out;
}
`

func wrapCPP(code, functionName string, paramTypes []string, returnType string) string {
	var read strings.Builder
	args := make([]string, len(paramTypes))
	for i, tag := range paramTypes {
		p := fmt.Sprintf("param%d", i)
		l := fmt.Sprintf("line%d", i)
		args[i] = p
		fmt.Fprintf(&read, "string %s = judge_read_line();\n", l)
		switch tag {
		case model.TypeInteger:
			fmt.Fprintf(&read, "int %s = stoi(%s);\n", p, l)
		case model.TypeIntegerArray:
			fmt.Fprintf(&read, "vector<int> %s;\n{ istringstream iss(%s); int v; while (iss >> v) %s.push_back(v); }\n", p, l, p)
		case model.TypeString:
			fmt.Fprintf(&read, "string %s = %s;\n", p, l)
		case model.TypeStringArray:
			fmt.Fprintf(&read, "vector<string> %s;\n{ istringstream iss(%s); string v; while (iss >> v) %s.push_back(v); }\n", p, l, p)
		case model.TypeCharacter:
			fmt.Fprintf(&read, "char %s = %s.empty() ? ' ' : %s[0];\n", p, l, l)
		case model.TypeCharacterArray:
			fmt.Fprintf(&read, "vector<char> %s;\n{ istringstream iss(%s); string v; while (iss >> v) %s.push_back(v[0]); }\n", p, l, p)
		}
	}

	var write string
	switch returnType {
	case model.TypeIntegerArray:
		write = cppArrayWriter("v")
	case model.TypeStringArray:
		write = cppArrayWriter("judge_quote(v)")
	case model.TypeCharacterArray:
		write = cppArrayWriter("judge_quote(string(1, v))")
	default:
		write = "cout << result;\n"
	}

	var b strings.Builder
	b.WriteString(cppPrelude)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(code))
	b.WriteString("\n")
	b.WriteString(cppHelpers)
	b.WriteString("\nint main() {\n")
	b.WriteString(indent(read.String(), "    "))
	b.WriteString("\n    Solution sol;\n")
	fmt.Fprintf(&b, "    auto result = sol.%s(%s);\n", functionName, strings.Join(args, ", "))
	fmt.Fprintf(&b, "    cout << %q;\n", AnswerSentinel)
	b.WriteString(indent(write, "    "))
	b.WriteString("\n    cout.flush();\n    return 0;\n}\n")
	return b.String()
}

func cppArrayWriter(elem string) string {
	return fmt.Sprintf(`cout << "[";
{
    bool first = true;
    for (const auto& v : result) {
        if (!first) cout << ",";
        first = false;
        cout << %s;
    }
}
cout << "]";
`, elem)
}
