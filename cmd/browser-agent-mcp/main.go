// Package main serves the browser agent over the Model Context Protocol on
// stdin/stdout, so that another agent can delegate browser tasks to it.
//
// Standard output carries the protocol; diagnostics go to the log files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Lappy000/Browser-Agent-AI/pkg/app"
	"github.com/Lappy000/Browser-Agent-AI/pkg/config"
	"github.com/Lappy000/Browser-Agent-AI/pkg/logging"
	"github.com/Lappy000/Browser-Agent-AI/pkg/mcpserver"
	"github.com/Lappy000/Browser-Agent-AI/pkg/security/risk"
	"github.com/Lappy000/Browser-Agent-AI/pkg/types"
)

const version = "0.1.0"

func main() {
	var (
		configPath  string
		autoApprove bool
		showVersion bool
		overrides   config.Overrides
	)
	flag.StringVar(&configPath, "config", "", "Path to the configuration file")
	flag.BoolVar(&autoApprove, "auto-approve", false, "Approve risky actions (purchases, deletions, sign-ins) without asking")
	flag.StringVar(&overrides.Provider, "provider", "", "LLM provider: anthropic, openai, openrouter or custom")
	flag.StringVar(&overrides.Model, "model", "", "LLM model")
	flag.StringVar(&overrides.BaseURL, "base-url", "", "LLM API base URL")
	flag.BoolVar(&showVersion, "version", false, "Show version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("Browser Agent MCP v%s\n", version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, configPath, overrides, autoApprove); err != nil {
		fmt.Fprintf(os.Stderr, "browser-agent-mcp: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, overrides config.Overrides, autoApprove bool) error {
	cfg, err := app.LoadConfig(configPath, overrides)
	if err != nil {
		return err
	}

	eventLog, err := logging.NewLogger("events")
	if err != nil {
		eventLog.Warnf("event log falls back to stderr: %v", err)
	}

	stack, err := app.Start(cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	orch, err := stack.NewOrchestrator(app.Hooks{
		Events:    logEvent(eventLog),
		Confirmer: risk.AutoConfirmer(autoApprove),
		Instructions: "You were started by another agent, not a person: nobody can answer ask_user. " +
			"Decide on your own and report the result with complete_task.",
	})
	if err != nil {
		return err
	}

	return mcpserver.New(orch, version).Run(ctx)
}

func logEvent(l *logging.Logger) func(*types.AgentEvent) {
	return func(event *types.AgentEvent) {
		switch event.Type {
		case types.EventTypeToolCall:
			l.Infof("tool call: %s", event.ToolName)
		case types.EventTypeToolResultError, types.EventTypeError:
			l.Warnf("%s: %s %v", event.Type, event.ToolName, event.Error)
		case types.EventTypeLoopDetected:
			l.Warnf("loop detected on %s: %s", event.ToolName, event.Content)
		case types.EventTypeCostWarning:
			l.Warnf("cost warning: $%v spent", event.Metadata["total_cost_usd"])
		default:
			l.Debugf("%s", event.Type)
		}
	}
}
