package command

import (
	"fmt"
	"os"
	"strings"
)

// Field defines a CLI input field.
type Field struct {
	Name     string
	Aliases  []string
	Prompt   string
	Required bool
}

// Kind selects how the REPL executes a command.
type Kind int

const (
	// KindEnqueue pushes a submission onto the ingress queue.
	KindEnqueue Kind = iota
	// KindQuery calls the worker's ops API.
	KindQuery
	// KindWatch subscribes to the result channel.
	KindWatch
)

// Command defines a CLI command binding.
type Command struct {
	Name         string
	Kind         Kind
	Usage        string
	PathTemplate string
	Fields       []Field
}

// Params holds parsed input params.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func (p Params) Canonicalize(fields []Field) {
	for _, field := range fields {
		for _, alias := range field.Aliases {
			aliasKey := strings.ToLower(alias)
			if value, ok := p[aliasKey]; ok {
				p[strings.ToLower(field.Name)] = value
				delete(p, aliasKey)
			}
		}
	}
}

// Missing lists required fields without a value.
func (p Params) Missing(fields []Field) []Field {
	var out []Field
	for _, field := range fields {
		if field.Required && strings.TrimSpace(p.Get(field.Name)) == "" {
			out = append(out, field)
		}
	}
	return out
}

func ParseStringList(value string) []string {
	raw := strings.Split(value, ",")
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file failed: %w", err)
	}
	return string(data), nil
}
