package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"codejudge/internal/cli/command"
	"codejudge/internal/cli/config"
	httpclient "codejudge/internal/cli/http"
	"codejudge/internal/cli/repl"
	"codejudge/internal/common/broker"
)

const defaultConfigPath = "configs/judge_cli.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	baseURL := flag.String("base", "", "Override ops API base URL")
	brokerAddr := flag.String("broker", "", "Override ingress broker address")
	timeout := flag.Duration("timeout", 0, "Override HTTP timeout (e.g. 10s)")
	pretty := flag.Bool("pretty", false, "Pretty print JSON response")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *brokerAddr != "" {
		cfg.Broker.Addr = *brokerAddr
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}
	if *pretty {
		trueValue := true
		cfg.PrettyJSON = &trueValue
	}

	ingress, err := broker.NewRedisBroker(&cfg.Broker)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect broker failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = ingress.Close()
	}()

	client := httpclient.New(cfg.BaseURL, cfg.Timeout)
	session := repl.New(client, ingress, cfg.Queues, command.Registry(), cfg.PrettyJSON != nil && *cfg.PrettyJSON, os.Stdout)
	if err := session.Run(context.Background(), cfg.HistoryFile); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
}
