// Package triage classifies an enriched case: ordered hard rules first,
// then a behavioral anomaly score blended into a composite classifier, and
// a typology assessment for confirmed-suspicious cases.
package triage

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Rule is one hard triage rule. Rules are evaluated in ascending priority
// order and the first match wins; later rules are never evaluated once one
// matches.
type Rule struct {
	ID             string                `json:"id"`
	Priority       int                   `json:"priority"`
	Description    string                `json:"description"`
	Expression     string                `json:"expression"` // CEL, must return bool
	Classification domain.Classification `json:"classification"`
	Reason         string                `json:"reason"`
	Enabled        bool                  `json:"enabled"`
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Rule    Rule
	Program cel.Program
}

// Match is the outcome of the rule layer when a hard rule fires.
type Match struct {
	RuleID         string
	Classification domain.Classification
	Reason         string
}

// Engine is the CEL-based hard-rule evaluation engine.
type Engine struct {
	mu    sync.RWMutex
	env   *cel.Env
	rules []*CompiledRule // sorted by ascending priority
}

// NewEngine creates a rule engine with the triage activation variables.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("has_sanctions_hits", cel.BoolType),
		cel.Variable("prior_sar_count", cel.IntType),
		cel.Variable("volume_deviation_factor", cel.DoubleType),
		cel.Variable("salary_exception", cel.BoolType),
		cel.Variable("seasonal_exception", cel.BoolType),
		cel.Variable("is_pep", cel.BoolType),
		cel.Variable("has_adverse_media", cel.BoolType),
		cel.Variable("velocity_spike", cel.BoolType),
		cel.Variable("new_counterparties_count", cel.IntType),
		cel.Variable("alert_risk_score", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{env: env}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *Engine) ValidateRule(r Rule) error {
	_, err := e.compileRule(r)
	return err
}

// LoadRules compiles the enabled rules and replaces the loaded set,
// re-sorted by priority.
func (e *Engine) LoadRules(rules []Rule) error {
	compiled := make([]*CompiledRule, 0, len(rules))
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		c, err := e.compileRule(r)
		if err != nil {
			return err
		}
		compiled = append(compiled, c)
	}
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Rule.Priority < compiled[j].Rule.Priority
	})

	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()
	return nil
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// EvaluateFirst evaluates the loaded rules in priority order and returns
// the first match, or nil when no rule fires. A rule whose evaluation
// errors is skipped; the remaining rules still run.
func (e *Engine) EvaluateFirst(activation map[string]any) *Match {
	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	for _, r := range rules {
		out, _, err := r.Program.Eval(activation)
		if err != nil {
			slog.Warn("triage rule evaluation error",
				"rule_id", r.Rule.ID,
				"error", err,
			)
			continue
		}
		if b, ok := out.(types.Bool); ok && bool(b) {
			return &Match{
				RuleID:         r.Rule.ID,
				Classification: r.Rule.Classification,
				Reason:         r.Rule.Reason,
			}
		}
	}
	return nil
}

func (e *Engine) compileRule(r Rule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(r.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", r.ID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", r.ID, ast.OutputType())
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", r.ID, err)
	}
	return &CompiledRule{Rule: r, Program: program}, nil
}
