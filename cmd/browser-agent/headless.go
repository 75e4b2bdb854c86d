package main

import (
	"context"
	"fmt"
	"log"

	"github.com/Lappy000/Browser-Agent-AI/pkg/app"
	"github.com/Lappy000/Browser-Agent-AI/pkg/config"
	"github.com/Lappy000/Browser-Agent-AI/pkg/executor/headless"
)

// runHeadless runs the task of a run file without a terminal conversation.
// Confirmations follow auto_approve and ask_user is unavailable.
func runHeadless(ctx context.Context, cfg *config.Config, flags *Flags) error {
	runConfig, err := headless.LoadConfig(flags.HeadlessConfig)
	if err != nil {
		return err
	}
	if flags.Task != "" {
		runConfig.Task = flags.Task
	}

	executor, err := headless.NewExecutor(runConfig)
	if err != nil {
		return err
	}

	// nobody is watching the window
	cfg.Browser.Headless = true

	stack, err := app.Start(cfg)
	if err != nil {
		return err
	}
	defer stack.Close()

	budget := runConfig.Budget(app.Budget(cfg.Limits))
	orch, err := stack.NewOrchestrator(app.Hooks{
		Events:       executor.HandleEvent,
		Confirmer:    executor,
		Actuator:     executor.Constrain(stack.Session),
		Budget:       &budget,
		Instructions: headlessInstructions(runConfig),
	})
	if err != nil {
		return err
	}

	summary, err := executor.Run(ctx, orch)
	if err != nil {
		return fmt.Errorf("run %s: %w", summary.Status, err)
	}
	log.Printf("Run finished: %s", summary.Status)
	return nil
}

func headlessInstructions(c *headless.Config) string {
	text := "You are running unattended: nobody can answer ask_user, so decide on your own and finish with complete_task."
	if c.Mode == headless.ModeObserve {
		text += " This run is read-only: navigate, scroll and extract data, but do not click, type or submit anything."
	}
	return text
}
