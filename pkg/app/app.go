// Package app assembles the browser agent from its configuration: model
// backend, browser session, usage ledger and the orchestrator options that
// tie them together. The command-line entry points share it.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Lappy000/Browser-Agent-AI/pkg/agent"
	agentcontext "github.com/Lappy000/Browser-Agent-AI/pkg/agent/context"
	"github.com/Lappy000/Browser-Agent-AI/pkg/agent/extraction"
	"github.com/Lappy000/Browser-Agent-AI/pkg/config"
	"github.com/Lappy000/Browser-Agent-AI/pkg/llm"
	"github.com/Lappy000/Browser-Agent-AI/pkg/llm/tokenizer"
	"github.com/Lappy000/Browser-Agent-AI/pkg/logging"
	"github.com/Lappy000/Browser-Agent-AI/pkg/security/risk"
	"github.com/Lappy000/Browser-Agent-AI/pkg/security/urlguard"
	"github.com/Lappy000/Browser-Agent-AI/pkg/task"
	"github.com/Lappy000/Browser-Agent-AI/pkg/tools/browser"
	"github.com/Lappy000/Browser-Agent-AI/pkg/usage"
)

var appLog *logging.Logger

func init() {
	var err error
	appLog, err = logging.NewLogger("app")
	if err != nil {
		appLog.Warnf("Failed to initialize app logger, using stderr fallback: %v", err)
	}
}

// LoadConfig resolves the configuration: defaults, then the file at path
// (or the first default location), then the environment, then overrides.
func LoadConfig(path string, overrides config.Overrides) (*config.Config, error) {
	found, err := config.FindConfig(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(found)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	overrides.Apply(&cfg.LLM)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logging.SetLevel(level)

	if found != "" {
		appLog.Infof("configuration loaded from %s", found)
	}
	return cfg, nil
}

// Stack is the set of long-lived resources a run needs.
type Stack struct {
	Config    *config.Config
	Backend   llm.Backend
	Tokenizer *tokenizer.Tokenizer
	Browser   *browser.Manager
	Session   *browser.Session
	// Ledger is nil when usage recording is disabled.
	Ledger *usage.Store
}

// Start creates the backend, opens the ledger and launches the browser.
func Start(cfg *config.Config) (*Stack, error) {
	backend, err := config.BuildBackend(cfg.LLM)
	if err != nil {
		return nil, err
	}

	s := &Stack{Config: cfg, Backend: backend}

	tok, err := tokenizer.New()
	if err != nil {
		// the assembler falls back to the character estimate
		appLog.Warnf("tokenizer unavailable: %v", err)
	} else {
		s.Tokenizer = tok
	}

	if path := cfg.Usage.DatabasePath; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create usage directory: %w", err)
		}
		store, err := usage.Open(path)
		if err != nil {
			return nil, err
		}
		s.Ledger = store
	}

	guard, err := urlguard.New(URLGuardConfig(cfg.Security))
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("invalid url rules: %w", err)
	}

	s.Browser = browser.NewManager()
	if err := s.Browser.Initialize(); err != nil {
		s.Close()
		return nil, err
	}
	s.Session, err = s.Browser.StartSession("main", browser.OptionsFromConfig(cfg.Browser), guard)
	if err != nil {
		s.Close()
		return nil, err
	}

	appLog.Infof("stack started: provider=%s model=%s", cfg.LLM.Provider, cfg.LLM.Model)
	return s, nil
}

// Close shuts the browser down and closes the ledger.
func (s *Stack) Close() error {
	var errs []error
	if s.Browser != nil {
		errs = append(errs, s.Browser.Shutdown())
	}
	if s.Ledger != nil {
		errs = append(errs, s.Ledger.Close())
	}
	return errors.Join(errs...)
}

// Hooks are the parts of a run that depend on the front end.
type Hooks struct {
	Events    agent.EventHandler
	Confirmer risk.Confirmer
	Answerer  agent.Answerer
	// Actuator replaces the browser session as the action target. The
	// session still observes the page.
	Actuator agent.Actuator
	Budget   *task.Budget
	// Instructions are appended to the system prompt.
	Instructions string
}

// NewOrchestrator builds an orchestrator over the stack.
func (s *Stack) NewOrchestrator(h Hooks) (*agent.Orchestrator, error) {
	cfg := s.Config

	gate, err := risk.New(RiskConfig(cfg.Security), h.Confirmer)
	if err != nil {
		return nil, fmt.Errorf("invalid risk rules: %w", err)
	}
	asmCfg, err := AssemblerConfig(cfg)
	if err != nil {
		return nil, err
	}

	budget := Budget(cfg.Limits)
	if h.Budget != nil {
		budget = *h.Budget
	}

	opts := []agent.Option{
		agent.WithBudget(budget),
		agent.WithRiskGate(gate),
		agent.WithCostFunc(usage.Pricer(cfg.LLM.Pricing)),
		agent.WithAssemblerConfig(asmCfg),
		agent.WithLoopDetection(cfg.Loop.Repetitions, cfg.Loop.Window),
		agent.WithExtractionOptions(ExtractionOptions(cfg.Extraction)...),
		agent.WithSessionID(logging.GetSessionID()),
	}
	if s.Tokenizer != nil {
		opts = append(opts, agent.WithTokenizer(s.Tokenizer))
	}
	if s.Ledger != nil {
		opts = append(opts, agent.WithLedger(s.Ledger))
	}
	if h.Events != nil {
		opts = append(opts, agent.WithEventHandler(h.Events))
	}
	if h.Answerer != nil {
		opts = append(opts, agent.WithAnswerer(h.Answerer))
	}
	if h.Instructions != "" {
		opts = append(opts, agent.WithCustomInstructions(h.Instructions))
	}

	var act agent.Actuator = s.Session
	if h.Actuator != nil {
		act = h.Actuator
	}
	return agent.New(s.Backend, act, s.Session, opts...)
}

// Budget maps the limits section onto a task budget.
func Budget(l config.LimitsConfig) task.Budget {
	return task.Budget{
		MaxIterations: l.MaxIterations,
		Timeout:       l.Timeout,
		MaxCostUSD:    l.MaxCostUSD,
		WarnCostUSD:   l.WarnCostUSD,
	}
}

// AssemblerConfig maps the vision and limits sections onto the context
// assembler configuration.
func AssemblerConfig(cfg *config.Config) (agentcontext.Config, error) {
	freq, err := agentcontext.ParseFrequency(cfg.Vision.Frequency)
	if err != nil {
		return agentcontext.Config{}, err
	}
	return agentcontext.Config{
		Visual: agentcontext.VisualPolicy{
			Enabled:   cfg.Vision.Enabled,
			Frequency: freq,
			FullPage:  cfg.Vision.FullPage,
		},
		MaxRetained:      cfg.Limits.MaxRetainedMessages,
		MaxContextTokens: cfg.Limits.MaxContextTokens,
		MaxElements:      cfg.Limits.MaxElements,
		MaxTextLength:    cfg.Limits.MaxTextLength,
		HistoryLines:     cfg.Limits.MaxHistory,
	}, nil
}

// RiskConfig maps the security section onto the risk gate configuration.
func RiskConfig(sec config.SecurityConfig) risk.Config {
	return risk.Config{
		URLPatterns: sec.HighRiskURLPatterns,
		Disabled:    !sec.Enabled,
	}
}

// URLGuardConfig maps the security section onto the navigation rules.
func URLGuardConfig(sec config.SecurityConfig) urlguard.Config {
	return urlguard.Config{
		AllowedSchemes: sec.AllowedSchemes,
		BlockedSchemes: sec.BlockedSchemes,
		AllowedHosts:   sec.AllowedHosts,
		DeniedHosts:    sec.DeniedHosts,
	}
}

// ExtractionOptions maps the extraction section onto guard options. Unset
// values keep the guard defaults.
func ExtractionOptions(ex config.ExtractionConfig) []extraction.Option {
	var opts []extraction.Option
	if len(ex.Keywords) > 0 {
		opts = append(opts, extraction.WithKeywords(ex.Keywords))
	}
	if len(ex.BoilerplatePhrases) > 0 {
		opts = append(opts, extraction.WithBoilerplate(ex.BoilerplatePhrases))
	}
	if ex.MinResultLength > 0 {
		opts = append(opts, extraction.WithMinLength(ex.MinResultLength))
	}
	return opts
}
