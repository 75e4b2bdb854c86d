package agent

import (
	"time"

	agentcontext "github.com/Lappy000/Browser-Agent-AI/pkg/agent/context"
	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/extraction"
	"github.com/Lappy000/Browser-Agent-AI/pkg/llm/tokenizer"
	"github.com/Lappy000/Browser-Agent-AI/pkg/security/risk"
	"github.com/Lappy000/Browser-Agent-AI/pkg/task"
	"github.com/Lappy000/Browser-Agent-AI/pkg/usage"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBudget sets the iteration, time and cost ceilings of every run.
func WithBudget(budget task.Budget) Option {
	return func(o *Orchestrator) {
		o.budget = budget
	}
}

// WithRiskGate sets the gate consulted before every action. Without one,
// every medium or high risk action is refused.
func WithRiskGate(gate *risk.Gate) Option {
	return func(o *Orchestrator) {
		o.gate = gate
	}
}

// WithAnswerer sets who answers ask_user questions.
func WithAnswerer(answerer Answerer) Option {
	return func(o *Orchestrator) {
		o.answerer = answerer
	}
}

// WithCostFunc sets how backend calls are priced.
func WithCostFunc(fn usage.CostFunc) Option {
	return func(o *Orchestrator) {
		o.cost = fn
	}
}

// WithLedger persists usage records and task outcomes.
func WithLedger(ledger Ledger) Option {
	return func(o *Orchestrator) {
		o.ledger = ledger
	}
}

// WithEventHandler registers the event callback.
func WithEventHandler(handler EventHandler) Option {
	return func(o *Orchestrator) {
		o.onEvent = handler
	}
}

// WithAssemblerConfig configures history retention and prompt rendering.
// The wire shape always comes from the backend.
func WithAssemblerConfig(cfg agentcontext.Config) Option {
	return func(o *Orchestrator) {
		o.assemblerCfg = cfg
	}
}

// WithTokenizer sets the tokenizer used for the context token budget.
func WithTokenizer(tok *tokenizer.Tokenizer) Option {
	return func(o *Orchestrator) {
		o.tokenizer = tok
	}
}

// WithLoopDetection tunes the repeated action detector. Zero values keep
// the defaults.
func WithLoopDetection(repetitions, window int) Option {
	return func(o *Orchestrator) {
		o.loopRepetitions = repetitions
		o.loopWindow = window
	}
}

// WithExtractionOptions configures the extracted data safeguard.
func WithExtractionOptions(opts ...extraction.Option) Option {
	return func(o *Orchestrator) {
		o.extractionOpts = append(o.extractionOpts, opts...)
	}
}

// WithSessionID tags ledger records.
func WithSessionID(id string) Option {
	return func(o *Orchestrator) {
		o.sessionID = id
	}
}

// WithCustomInstructions appends user instructions to the system prompt.
func WithCustomInstructions(instructions string) Option {
	return func(o *Orchestrator) {
		o.customInstructions = instructions
	}
}

// WithClock replaces the time source of the task state machine.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		o.now = now
	}
}
