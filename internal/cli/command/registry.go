package command

import (
	"fmt"
	"sort"
	"strings"

	"codejudge/internal/judge/model"
)

var submissionFields = []Field{
	{Name: "language", Aliases: []string{"lang"}, Prompt: "language (CPP|JAVA|PYTHON)", Required: true},
	{Name: "user_id", Aliases: []string{"user"}, Prompt: "user_id", Required: true},
	{Name: "question_id", Aliases: []string{"question"}, Prompt: "question_id"},
	{Name: "function", Aliases: []string{"fn"}, Prompt: "function name", Required: true},
	{Name: "param_types", Aliases: []string{"params"}, Prompt: "parameter types (comma separated)", Required: true},
	{Name: "return_type", Aliases: []string{"returns"}, Prompt: "return type", Required: true},
	{Name: "code_file", Aliases: []string{"code"}, Prompt: "path to user code", Required: true},
	{Name: "system_file", Aliases: []string{"system"}, Prompt: "path to reference code", Required: true},
	{Name: "input_file", Aliases: []string{"input"}, Prompt: "path to test input", Required: true},
	{Name: "file", Prompt: "path to submission json"},
}

// Registry returns all CLI commands keyed by name.
func Registry() map[string]Command {
	commands := []Command{
		{
			Name:   "run",
			Kind:   KindEnqueue,
			Usage:  "run file=job.json | run language=CPP user=u1 fn=solve params=integer returns=integer code=a.cpp system=ref.cpp input=in.txt",
			Fields: submissionFields,
		},
		{
			Name:   "submit",
			Kind:   KindEnqueue,
			Usage:  "submit file=job.json | submit <same fields as run>",
			Fields: submissionFields,
		},
		{
			Name:         "status",
			Kind:         KindQuery,
			Usage:        "status id=<submission id>",
			PathTemplate: "/api/v1/judge/submissions/:id",
			Fields: []Field{
				{Name: "id", Prompt: "submission_id", Required: true},
			},
		},
		{
			Name:         "source",
			Kind:         KindQuery,
			Usage:        "source id=<submission id>",
			PathTemplate: "/api/v1/judge/submissions/:id/source",
			Fields: []Field{
				{Name: "id", Prompt: "submission_id", Required: true},
			},
		},
		{
			Name:  "watch",
			Kind:  KindWatch,
			Usage: "watch [count=1] [timeout=60s]",
			Fields: []Field{
				{Name: "count"},
				{Name: "timeout"},
			},
		},
	}

	out := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		out[cmd.Name] = cmd
	}
	return out
}

// Names returns the sorted command names.
func Names(commands map[string]Command) []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PromptFields lists the fields the REPL must still ask for.
func PromptFields(cmd Command, params Params) []Field {
	if cmd.Kind == KindEnqueue && params.Get("file") != "" {
		return nil
	}
	return params.Missing(cmd.Fields)
}

// BuildPath fills :name placeholders from params.
func BuildPath(cmd Command, params Params) (string, error) {
	segments := strings.Split(cmd.PathTemplate, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		value := strings.TrimSpace(params.Get(seg[1:]))
		if value == "" {
			return "", fmt.Errorf("%s is required", seg[1:])
		}
		segments[i] = value
	}
	return strings.Join(segments, "/"), nil
}

// BuildSubmission assembles the job for run or submit. A submission file
// provides every field; explicit params still override user_id.
func BuildSubmission(cmd Command, params Params) (*model.Submission, error) {
	var sub model.Submission
	if path := params.Get("file"); path != "" {
		raw, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		sub, err = model.DecodeSubmission(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid submission file: %w", err)
		}
		if userID := params.Get("user_id"); userID != "" {
			sub.UserID = userID
		}
	} else {
		var err error
		if sub.UserCode, err = ReadFile(params.Get("code_file")); err != nil {
			return nil, err
		}
		if sub.SystemCode, err = ReadFile(params.Get("system_file")); err != nil {
			return nil, err
		}
		if sub.DataInput, err = ReadFile(params.Get("input_file")); err != nil {
			return nil, err
		}
		sub.Language = strings.ToUpper(params.Get("language"))
		sub.UserID = params.Get("user_id")
		sub.QuestionID = params.Get("question_id")
		sub.FunctionName = params.Get("function")
		sub.ParamTypes = ParseStringList(params.Get("param_types"))
		sub.ReturnType = params.Get("return_type")
	}
	// The fetcher assigns ids to graded jobs.
	sub.SubmissionID = ""
	sub.IsAnswer = cmd.Name == "submit"
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return &sub, nil
}
