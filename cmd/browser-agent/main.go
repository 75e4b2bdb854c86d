// Package main provides the browser agent command. It runs tasks in a real
// browser from an interactive prompt, a single -task, or a headless YAML
// run file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/approval"
	"github.com/Lappy000/Browser-Agent-AI/pkg/app"
	"github.com/Lappy000/Browser-Agent-AI/pkg/config"
	"github.com/Lappy000/Browser-Agent-AI/pkg/executor/cli"
	"github.com/Lappy000/Browser-Agent-AI/pkg/task"
)

const version = "0.1.0"

// Flags holds the command-line options.
type Flags struct {
	ConfigPath     string
	Task           string
	Instructions   string
	HeadlessConfig string
	History        int
	Overrides      config.Overrides
	ShowUsage      bool
	ShowVersion    bool
}

func main() {
	flags := parseFlags()

	if flags.ShowVersion {
		fmt.Printf("Browser Agent v%s\n", version)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nShutting down gracefully...")
		cancel()
	}()

	if err := run(ctx, flags); err != nil {
		cancel()
		log.Fatalf("Error: %v", err)
	}
	cancel()
}

func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "", "Path to the configuration file (default: ./browser-agent.yaml, then ~/.config/browser-agent/config.yaml)")
	flag.StringVar(&f.Task, "task", "", "Run a single task and exit")
	flag.StringVar(&f.Instructions, "prompt", "", "Extra instructions appended to the system prompt")
	flag.StringVar(&f.HeadlessConfig, "headless", "", "Run the task described by a headless run file (YAML)")
	flag.IntVar(&f.History, "history", 0, "Print the N most recent runs from the usage ledger and exit")
	flag.StringVar(&f.Overrides.Provider, "provider", "", "LLM provider: anthropic, openai, openrouter or custom")
	flag.StringVar(&f.Overrides.Model, "model", "", "LLM model")
	flag.StringVar(&f.Overrides.APIKey, "api-key", "", "LLM API key (default: the provider's environment variable)")
	flag.StringVar(&f.Overrides.BaseURL, "base-url", "", "LLM API base URL")
	flag.BoolVar(&f.ShowUsage, "usage", false, "Show token usage after every model call")
	flag.BoolVar(&f.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Browser Agent - an LLM that drives a real web browser\n\n")
		fmt.Fprintf(os.Stderr, "Usage: browser-agent [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  ANTHROPIC_API_KEY    Anthropic API key\n")
		fmt.Fprintf(os.Stderr, "  OPENAI_API_KEY       OpenAI API key\n")
		fmt.Fprintf(os.Stderr, "  OPENROUTER_API_KEY   OpenRouter API key\n")
		fmt.Fprintf(os.Stderr, "  HEADLESS             Hide the browser window (true/false)\n")
		fmt.Fprintf(os.Stderr, "  MAX_ITERATIONS       Iteration limit per task\n")
		fmt.Fprintf(os.Stderr, "  MAX_COST_USD         Cost limit per task\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  browser-agent\n")
		fmt.Fprintf(os.Stderr, "  browser-agent -task \"Find the opening hours of the Louvre\"\n")
		fmt.Fprintf(os.Stderr, "  browser-agent -provider openai -model gpt-4o\n")
		fmt.Fprintf(os.Stderr, "  browser-agent -headless run.yaml\n")
		fmt.Fprintf(os.Stderr, "  browser-agent -history 20\n")
	}

	flag.Parse()
	return f
}

func run(ctx context.Context, flags *Flags) error {
	cfg, err := app.LoadConfig(flags.ConfigPath, flags.Overrides)
	if err != nil {
		return err
	}

	if flags.History > 0 {
		return printHistory(ctx, cfg, flags.History)
	}
	if flags.HeadlessConfig != "" {
		return runHeadless(ctx, cfg, flags)
	}
	return runInteractive(ctx, cfg, flags)
}

func runInteractive(ctx context.Context, cfg *config.Config, flags *Flags) error {
	executor := cli.NewExecutor(
		cli.WithShowThinking(cfg.Logging.ShowThinking || cfg.Logging.Verbosity != "quiet"),
		cli.WithShowUsage(flags.ShowUsage || cfg.Logging.Verbosity == "verbose" || cfg.Logging.Verbosity == "debug"),
	)
	approvals := approval.NewManager(cfg.Security.ConfirmationTimeout, executor.HandleEvent)

	stack, err := app.Start(cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	orch, err := stack.NewOrchestrator(app.Hooks{
		Events:       executor.HandleEvent,
		Confirmer:    approvals,
		Answerer:     approvals,
		Instructions: flags.Instructions,
	})
	if err != nil {
		return err
	}

	if flags.Task != "" {
		result, err := executor.RunTask(ctx, orch, approvals, flags.Task)
		if err != nil {
			return err
		}
		if result.Status != task.StatusCompleted || !result.Success {
			return fmt.Errorf("task %s", result.Status)
		}
		return nil
	}

	err = executor.Run(ctx, orch, approvals)
	executor.RenderStats(orch.Machine().Stats())
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
