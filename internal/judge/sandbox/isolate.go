// Package sandbox drives the isolate CLI: one numbered box per worker,
// initialized once and reused for every compile and run.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultEnv is the environment allow-list passed into the box.
var DefaultEnv = []string{"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"}

// Config holds isolate settings.
type Config struct {
	Path  string `yaml:"path"`
	BoxID int    `yaml:"boxId"`
	// DisableCGroup falls back to --mem; OOM kills then go unreported.
	DisableCGroup bool     `yaml:"disableCgroup"`
	Env           []string `yaml:"env"`
}

// Box is an initialized isolate slot. Root is what --init printed; the
// program sees Dir() as its working directory.
type Box struct {
	ID   int
	Root string
}

// Dir is the host path of the box's scratch directory.
func (b Box) Dir() string {
	return filepath.Join(b.Root, "box")
}

// Path resolves a box-relative name to a host path.
func (b Box) Path(name string) string {
	return filepath.Join(b.Dir(), filepath.FromSlash(name))
}

// ReportPath is where reports live, outside the program's reach.
func (b Box) ReportPath(name string) string {
	return filepath.Join(b.Root, name)
}

// WriteFile overwrites a box-relative file, creating parent directories
// writable by the box user.
func (b Box) WriteFile(name string, data []byte) error {
	path := b.Path(name)
	if dir := filepath.Dir(path); dir != b.Dir() {
		if err := os.MkdirAll(dir, 0o777); err != nil {
			return err
		}
		if err := os.Chmod(dir, 0o777); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadFile reads a box-relative file.
func (b Box) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(b.Path(name))
}

// RunRequest describes one sandboxed execution.
type RunRequest struct {
	Box    Box
	Argv   []string
	Limits Limits

	// Box-relative redirections; empty leaves the stream alone.
	Stdin  string
	Stdout string
	Stderr string

	// ReportPath is a host path. Empty means no report is requested.
	ReportPath string
}

// RunResult carries what isolate left behind.
type RunResult struct {
	ExitCode int
	// Report is nil when none was requested.
	Report *Report
	// Diagnostics is isolate's own stderr, not the program's.
	Diagnostics string
	Elapsed     time.Duration
}

// ErrSandboxFailure marks failures of isolate itself, not of the program.
var ErrSandboxFailure = errors.New("sandbox failure")

// Isolate is the adapter over the isolate CLI.
type Isolate struct {
	cfg Config
	cmd Commander
}

// NewIsolate builds the adapter. cmd may be nil for the exec-based default.
func NewIsolate(cfg Config, cmd Commander) *Isolate {
	if cfg.Path == "" {
		cfg.Path = "isolate"
	}
	if len(cfg.Env) == 0 {
		cfg.Env = DefaultEnv
	}
	if cmd == nil {
		cmd = ExecCommander{}
	}
	return &Isolate{cfg: cfg, cmd: cmd}
}

// BoxID is the configured slot.
func (s *Isolate) BoxID() int {
	return s.cfg.BoxID
}

func (s *Isolate) boxArgs(boxID int) []string {
	args := []string{"--box-id=" + strconv.Itoa(boxID)}
	if !s.cfg.DisableCGroup {
		args = append(args, "--cg")
	}
	return args
}

// Init creates the box and returns its location.
func (s *Isolate) Init(ctx context.Context) (Box, error) {
	boxID := s.cfg.BoxID
	res, err := s.cmd.Run("", s.cfg.Path, append(s.boxArgs(boxID), "--init")...)
	if err == nil && res.ExitCode != 0 {
		err = fmt.Errorf("exit code %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	if err != nil {
		return Box{}, appErr.Wrapf(errors.Join(ErrSandboxFailure, err), appErr.SandboxInitFailed, "init box %d failed", boxID)
	}
	root := strings.TrimSpace(string(res.Stdout))
	if root == "" {
		return Box{}, appErr.Newf(appErr.SandboxInitFailed, "init box %d printed no path", boxID)
	}
	logger.Info(ctx, "sandbox initialized", zap.Int("box_id", boxID), zap.String("root", root))
	return Box{ID: boxID, Root: root}, nil
}

// Cleanup destroys the box. Failures are logged and returned.
func (s *Isolate) Cleanup(ctx context.Context) error {
	boxID := s.cfg.BoxID
	res, err := s.cmd.Run("", s.cfg.Path, append(s.boxArgs(boxID), "--cleanup")...)
	if err == nil && res.ExitCode != 0 {
		err = fmt.Errorf("exit code %d: %s", res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	if err != nil {
		logger.Warn(ctx, "sandbox cleanup failed", zap.Int("box_id", boxID), zap.Error(err))
		return err
	}
	logger.Info(ctx, "sandbox cleaned up", zap.Int("box_id", boxID))
	return nil
}

// Args renders the isolate command line for req.
func (s *Isolate) Args(req RunRequest) []string {
	lim := req.Limits.Normalized()
	args := s.boxArgs(req.Box.ID)
	if !s.cfg.DisableCGroup {
		args = append(args, "--cg-mem="+strconv.FormatInt(lim.MemoryKB, 10))
	} else {
		args = append(args, "--mem="+strconv.FormatInt(lim.MemoryKB, 10))
	}
	args = append(args,
		"--time="+seconds(lim.CPUTime),
		"--wall-time="+seconds(lim.WallTime),
		"--processes="+strconv.Itoa(lim.Processes),
	)
	if lim.FileSizeKB > 0 {
		args = append(args, "--fsize="+strconv.FormatInt(lim.FileSizeKB, 10))
	}
	if req.ReportPath != "" {
		args = append(args, "--meta="+req.ReportPath)
	}
	for _, env := range s.cfg.Env {
		args = append(args, "-E", env)
	}
	if req.Stdin != "" {
		args = append(args, "--stdin="+req.Stdin)
	}
	if req.Stdout != "" {
		args = append(args, "--stdout="+req.Stdout)
	}
	if req.Stderr != "" {
		args = append(args, "--stderr="+req.Stderr)
	}
	args = append(args, "--run", "--")
	return append(args, req.Argv...)
}

// Run executes req.Argv inside the box. A program that fails is not an
// error: the classification lives in the report. Only isolate failures
// (could not start, internal error, missing report) return ErrSandboxFailure.
func (s *Isolate) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if len(req.Argv) == 0 {
		return RunResult{}, appErr.New(appErr.InvalidParams).WithMessage("empty command")
	}
	// The box is reused, so anything a previous run left must go first.
	for _, stale := range []string{req.Stdout, req.Stderr} {
		if stale != "" {
			removeIfExists(req.Box.Path(stale))
		}
	}
	if req.ReportPath != "" {
		removeIfExists(req.ReportPath)
	}

	start := time.Now()
	res, err := s.cmd.Run(req.Box.Dir(), s.cfg.Path, s.Args(req)...)
	out := RunResult{
		ExitCode:    res.ExitCode,
		Diagnostics: strings.TrimSpace(string(res.Stderr)),
		Elapsed:     time.Since(start),
	}
	if err != nil {
		return out, appErr.Wrapf(errors.Join(ErrSandboxFailure, err), appErr.SandboxRunFailed, "run isolate failed")
	}

	if req.ReportPath != "" {
		data, readErr := os.ReadFile(req.ReportPath)
		if readErr == nil {
			out.Report = ParseReport(string(data))
		} else if res.ExitCode != 0 {
			return out, appErr.Wrapf(errors.Join(ErrSandboxFailure, readErr), appErr.SandboxReportBad,
				"isolate exited with %d and left no report: %s", res.ExitCode, out.Diagnostics)
		}
	}
	if out.Report != nil && out.Report.Status == CodeInternal {
		return out, appErr.Wrapf(ErrSandboxFailure, appErr.SandboxRunFailed, "isolate internal error: %s", out.Report.Message)
	}
	// isolate uses exit code 1 for a failed program and 2+ for itself.
	if res.ExitCode > 1 && !out.Report.Failed() {
		return out, appErr.Wrapf(ErrSandboxFailure, appErr.SandboxRunFailed,
			"isolate exited with %d: %s", res.ExitCode, out.Diagnostics)
	}

	logger.Debug(ctx, "sandbox run finished",
		zap.Int("box_id", req.Box.ID),
		zap.Strings("argv", req.Argv),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("elapsed", out.Elapsed),
	)
	return out, nil
}

func removeIfExists(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn(context.Background(), "remove stale sandbox file failed", zap.String("path", path), zap.Error(err))
	}
}
