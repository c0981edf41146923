package language

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"

	"github.com/google/shlex"
)

// Spec is the configurable part of a language: command templates and
// limit multipliers. Templates may reference {src}, {bin} and {dir}.
type Spec struct {
	CompileCommand   string  `yaml:"compileCommand"`
	RunCommand       string  `yaml:"runCommand"`
	TimeMultiplier   float64 `yaml:"timeMultiplier"`
	MemoryMultiplier float64 `yaml:"memoryMultiplier"`
}

// Config selects the reference language and overrides per-language specs.
type Config struct {
	Reference string          `yaml:"reference"`
	Languages map[string]Spec `yaml:"languages"`
}

type variant struct {
	layout   func(role Role) (src, bin, dir string)
	wrap     wrapFunc
	defaults Spec
}

var variants = map[string]variant{
	model.LanguageCPP: {
		layout: func(role Role) (string, string, string) {
			return string(role) + ".cpp", string(role), "."
		},
		wrap: wrapCPP,
		defaults: Spec{
			CompileCommand: "/usr/bin/g++ -std=c++17 -O2 {src} -o {bin}",
			RunCommand:     "./{bin}",
		},
	},
	model.LanguagePython: {
		layout: func(role Role) (string, string, string) {
			return string(role) + ".py", "", "."
		},
		wrap: wrapPython,
		defaults: Spec{
			RunCommand:       "/usr/bin/python3 {src}",
			TimeMultiplier:   2,
			MemoryMultiplier: 1,
		},
	},
	model.LanguageJava: {
		// javac insists on Main.java, so each role gets its own directory.
		layout: func(role Role) (string, string, string) {
			return path.Join(string(role), "Main.java"), path.Join(string(role), "Main.class"), string(role)
		},
		wrap: wrapJava,
		defaults: Spec{
			CompileCommand:   "/usr/bin/javac -encoding UTF-8 -d {dir} {src}",
			RunCommand:       "/usr/bin/java -Xss64m -cp {dir} Main",
			TimeMultiplier:   2,
			MemoryMultiplier: 2,
		},
	},
}

// Registry resolves language codes to handlers.
type Registry struct {
	specs     map[string]Spec
	reference string
}

// NewRegistry merges cfg over the built-in language defaults.
func NewRegistry(cfg Config) (*Registry, error) {
	specs := make(map[string]Spec, len(variants))
	for name, v := range variants {
		specs[name] = v.defaults
	}
	for name, override := range cfg.Languages {
		name = strings.ToUpper(name)
		base, ok := specs[name]
		if !ok {
			return nil, appErr.Newf(appErr.LanguageNotSupported, "language %s has no harness", name)
		}
		if override.CompileCommand != "" {
			base.CompileCommand = override.CompileCommand
		}
		if override.RunCommand != "" {
			base.RunCommand = override.RunCommand
		}
		if override.TimeMultiplier > 0 {
			base.TimeMultiplier = override.TimeMultiplier
		}
		if override.MemoryMultiplier > 0 {
			base.MemoryMultiplier = override.MemoryMultiplier
		}
		specs[name] = base
	}

	reference := strings.ToUpper(cfg.Reference)
	if reference == "" {
		reference = model.LanguageCPP
	}
	if _, ok := specs[reference]; !ok {
		return nil, appErr.Newf(appErr.LanguageNotSupported, "reference language %s is not supported", reference)
	}

	r := &Registry{specs: specs, reference: reference}
	// Surface template errors at startup rather than on the first job.
	for name := range specs {
		for _, role := range []Role{RoleUser, RoleSystem} {
			if _, err := r.Handler(name, role); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

// Handler builds the capability record for language in role.
func (r *Registry) Handler(language string, role Role) (*Handler, error) {
	name := strings.ToUpper(strings.TrimSpace(language))
	v, ok := variants[name]
	spec, okSpec := r.specs[name]
	if !ok || !okSpec {
		return nil, appErr.Newf(appErr.LanguageNotSupported, "Unsupported language: %s", language)
	}

	src, bin, dir := v.layout(role)
	h := &Handler{
		Language:         name,
		Role:             role,
		SourceFile:       src,
		BinaryFile:       bin,
		TimeMultiplier:   multiplier(spec.TimeMultiplier),
		MemoryMultiplier: multiplier(spec.MemoryMultiplier),
		wrap:             v.wrap,
	}
	var err error
	if spec.CompileCommand != "" {
		if h.CompileCmd, err = buildCommand(spec.CompileCommand, src, bin, dir); err != nil {
			return nil, err
		}
	}
	if h.RunCmd, err = buildCommand(spec.RunCommand, src, bin, dir); err != nil {
		return nil, err
	}
	if len(h.RunCmd) == 0 {
		return nil, appErr.Newf(appErr.InvalidParams, "run command for %s is empty", name)
	}
	return h, nil
}

// Reference returns the handler used for reference solutions.
func (r *Registry) Reference() (*Handler, error) {
	return r.Handler(r.reference, RoleSystem)
}

// Languages lists the supported language codes.
func (r *Registry) Languages() []string {
	out := make([]string, 0, len(r.specs))
	for name := range r.specs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func buildCommand(template, src, bin, dir string) ([]string, error) {
	cmd := strings.ReplaceAll(template, "{src}", src)
	cmd = strings.ReplaceAll(cmd, "{bin}", bin)
	cmd = strings.ReplaceAll(cmd, "{dir}", dir)
	parts, err := shlex.Split(cmd)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse command %q failed", template)
	}
	return parts, nil
}

func multiplier(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

func (h *Handler) String() string {
	return fmt.Sprintf("%s/%s", h.Language, h.Role)
}
