package repl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"codejudge/internal/cli/command"
	httpclient "codejudge/internal/cli/http"
	"codejudge/internal/common/broker"
	"codejudge/internal/judge/bridge"
	"codejudge/internal/judge/model"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

const defaultWatchTimeout = 60 * time.Second

// Broker is what the REPL needs from the ingress broker.
type Broker interface {
	broker.ListOps
	broker.PubSubOps
}

// Prompter asks for one missing value.
type Prompter func(prompt string) (string, error)

// Session holds REPL state.
type Session struct {
	client     *httpclient.Client
	broker     Broker
	queues     bridge.Queues
	commands   map[string]command.Command
	prettyJSON bool
	out        io.Writer
	prompt     Prompter
}

func New(client *httpclient.Client, b Broker, queues bridge.Queues, commands map[string]command.Command, prettyJSON bool, out io.Writer) *Session {
	return &Session{
		client:     client,
		broker:     b,
		queues:     queues,
		commands:   commands,
		prettyJSON: prettyJSON,
		out:        out,
	}
}

// Run reads lines until exit, EOF or Ctrl-D.
func (s *Session) Run(ctx context.Context, historyFile string) error {
	items := make([]readline.PrefixCompleterInterface, 0, len(s.commands)+2)
	for _, name := range command.Names(s.commands) {
		items = append(items, readline.PcItem(name))
	}
	items = append(items, readline.PcItem("help"), readline.PcItem("exit"))

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "codejudge> ",
		HistoryFile:     historyFile,
		AutoComplete:    readline.NewPrefixCompleter(items...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("init readline failed: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s.out = rl.Stdout()
	s.prompt = func(prompt string) (string, error) {
		rl.SetPrompt(prompt + ": ")
		defer rl.SetPrompt("codejudge> ")
		line, err := rl.Readline()
		return strings.TrimSpace(line), err
	}

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			s.printLine("bye")
			return nil
		}
		if err := s.Execute(ctx, line); err != nil {
			s.printLine("error: %v", err)
		}
	}
}

// Execute runs one command line.
func (s *Session) Execute(ctx context.Context, line string) error {
	if s.handleSystemCommand(line) {
		return nil
	}
	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}
	cmd, ok := s.commands[tokens[0]]
	if !ok {
		return fmt.Errorf("unknown command: %s", tokens[0])
	}
	params := command.Params{}
	for _, token := range tokens[1:] {
		parts := strings.SplitN(token, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid param: %s", token)
		}
		params.Set(parts[0], parts[1])
	}
	params.Canonicalize(cmd.Fields)
	if err := s.promptMissing(cmd, params); err != nil {
		return err
	}

	switch cmd.Kind {
	case command.KindEnqueue:
		return s.enqueue(ctx, cmd, params)
	case command.KindQuery:
		return s.query(ctx, cmd, params)
	case command.KindWatch:
		return s.watch(ctx, params)
	}
	return fmt.Errorf("unsupported command: %s", cmd.Name)
}

func (s *Session) handleSystemCommand(line string) bool {
	switch line {
	case "help":
		s.printHelp()
		return true
	}
	if strings.HasPrefix(line, "set ") {
		s.handleSet(strings.TrimSpace(strings.TrimPrefix(line, "set ")))
		return true
	}
	return false
}

func (s *Session) handleSet(args string) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		s.printLine("usage: set base|timeout <value>")
		return
	}
	switch parts[0] {
	case "base":
		s.client.SetBaseURL(parts[1])
		s.printLine("base set to %s", parts[1])
	case "timeout":
		dur, err := time.ParseDuration(parts[1])
		if err != nil {
			s.printLine("invalid duration: %v", err)
			return
		}
		s.client.SetTimeout(dur)
		s.printLine("timeout set to %s", dur)
	default:
		s.printLine("unknown set command")
	}
}

func (s *Session) promptMissing(cmd command.Command, params command.Params) error {
	missing := command.PromptFields(cmd, params)
	if len(missing) == 0 {
		return nil
	}
	if s.prompt == nil {
		return fmt.Errorf("%s is required", missing[0].Name)
	}
	for _, field := range missing {
		value, err := s.prompt(field.Prompt)
		if err != nil {
			return fmt.Errorf("read input failed: %w", err)
		}
		params.Set(field.Name, value)
	}
	return nil
}

// enqueue pushes onto the ingress list the fetcher pops from.
func (s *Session) enqueue(ctx context.Context, cmd command.Command, params command.Params) error {
	sub, err := command.BuildSubmission(cmd, params)
	if err != nil {
		return err
	}
	payload, err := sub.Encode()
	if err != nil {
		return err
	}
	if err := s.broker.LPush(ctx, s.queues.Submission, payload); err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	s.printLine("queued %s job for user %s on %s", sub.Mode(), sub.UserID, s.queues.Submission)
	return nil
}

func (s *Session) query(ctx context.Context, cmd command.Command, params command.Params) error {
	path, err := command.BuildPath(cmd, params)
	if err != nil {
		return err
	}
	resp, err := s.client.Get(ctx, path)
	if err != nil {
		return err
	}
	s.printLine("HTTP %d (%s)", resp.StatusCode, resp.Duration)
	s.printJSON(resp.Body)
	return nil
}

// watch prints verdicts from the result channel until count arrive or
// the timeout passes.
func (s *Session) watch(ctx context.Context, params command.Params) error {
	count := 1
	if raw := params.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid count: %s", raw)
		}
		count = n
	}
	timeout := defaultWatchTimeout
	if raw := params.Get("timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		timeout = d
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	sub, err := s.broker.Subscribe(ctx, s.queues.ResultChannel)
	if err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}
	defer func() { _ = sub.Close() }()
	s.printLine("watching %s (count=%d, timeout=%s)", s.queues.ResultChannel, count, timeout)

	for received := 0; received < count; {
		select {
		case <-ctx.Done():
			s.printLine("watch ended after %d result(s)", received)
			return nil
		case msg, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			received++
			s.renderResult(msg)
		}
	}
	return nil
}

func (s *Session) renderResult(payload string) {
	res, err := model.DecodeExecutionResult(payload)
	if err != nil {
		s.printLine("%s", payload)
		return
	}
	mode := "run"
	if res.IsAnswer {
		mode = "submit"
	}
	s.printLine("[%s] %s user=%s status=%s %d/%d", mode, res.SubmissionID, res.UserID, res.Status, res.CorrectTestCases, res.TotalTestCases)
	if res.Error != "" {
		s.printLine("  %s", res.Error)
	}
	s.printJSON([]byte(payload))
}

func (s *Session) printJSON(body []byte) {
	if len(body) == 0 {
		return
	}
	if s.prettyJSON {
		var raw interface{}
		if err := json.Unmarshal(body, &raw); err == nil {
			formatted, _ := json.MarshalIndent(raw, "", "  ")
			s.printLine("%s", string(formatted))
			return
		}
	}
	s.printLine("%s", string(body))
}

func (s *Session) printHelp() {
	s.printLine("usage: <command> key=value ...")
	s.printLine("system: help | exit | set base|timeout")
	for _, name := range command.Names(s.commands) {
		s.printLine("  %s", s.commands[name].Usage)
	}
}

func (s *Session) printLine(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.out, format+"\n", args...)
}
