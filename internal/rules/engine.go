package rules

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Effect is the closed outcome a matched rule produces. Rule authors cannot
// attach arbitrary payloads; anything beyond the fixed fields goes into the
// string-valued metadata map.
type Effect struct {
	Action    string            `json:"action,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	NextSteps []string          `json:"next_steps,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Rule is a single declarative rule. The raw condition documents are kept so
// modules round-trip losslessly through the export endpoint; the compiled
// condition is built once at load time.
type Rule struct {
	ID       string            `json:"id"`
	Priority int               `json:"priority"`
	Note     string            `json:"note,omitempty"`
	When     json.RawMessage   `json:"when,omitempty"`
	WhenAll  []json.RawMessage `json:"when_all,omitempty"`
	WhenAny  []json.RawMessage `json:"when_any,omitempty"`
	Then     Effect            `json:"then"`

	cond *Condition
}

// RuleModule is a named, ordered collection of rules evaluated with
// first-match-wins semantics after a stable sort by descending priority.
type RuleModule struct {
	Name        string   `json:"module"`
	Version     string   `json:"version,omitempty"`
	Description string   `json:"description,omitempty"`
	Inputs      []string `json:"inputs,omitempty"`
	Rules       []*Rule  `json:"rules"`
}

// Match reports which rule fired and its effect.
type Match struct {
	RuleID string `json:"rule_id"`
	Effect Effect `json:"effect"`
}

// compile builds the rule's condition tree from whichever of when, when_all
// and when_any are present. A rule with none of them matches everything,
// which is how modules express a default disposition.
func (r *Rule) compile() error {
	var children []*Condition

	if len(r.When) > 0 {
		c, err := ParseCondition(r.When)
		if err != nil {
			return fmt.Errorf("when: %w", err)
		}
		children = append(children, c)
	}
	if len(r.WhenAll) > 0 {
		cs, err := ParseAll(r.WhenAll)
		if err != nil {
			return fmt.Errorf("when_all: %w", err)
		}
		children = append(children, &Condition{Op: opAnd, Children: cs})
	}
	if len(r.WhenAny) > 0 {
		cs, err := ParseAll(r.WhenAny)
		if err != nil {
			return fmt.Errorf("when_any: %w", err)
		}
		children = append(children, &Condition{Op: opOr, Children: cs})
	}

	switch len(children) {
	case 0:
		r.cond = nil
	case 1:
		r.cond = children[0]
	default:
		r.cond = &Condition{Op: opAnd, Children: children}
	}
	return nil
}

// Matches evaluates the rule's compiled condition.
func (r *Rule) Matches(ctx map[string]interface{}) bool {
	if r.cond == nil {
		return true
	}
	return r.cond.Eval(ctx)
}

// LoadModule parses and compiles a rule module document. Rules are sorted by
// descending priority; the sort is stable so equal-priority rules keep their
// authored order.
func LoadModule(raw []byte) (*RuleModule, error) {
	var module RuleModule
	if err := json.Unmarshal(raw, &module); err != nil {
		return nil, fmt.Errorf("failed to parse rule module: %w", err)
	}
	if module.Name == "" {
		return nil, fmt.Errorf("rule module has no name")
	}
	for _, rule := range module.Rules {
		if rule.ID == "" {
			return nil, fmt.Errorf("module %s: rule without id", module.Name)
		}
		if err := rule.compile(); err != nil {
			return nil, fmt.Errorf("module %s rule %s: %w", module.Name, rule.ID, err)
		}
	}
	sort.SliceStable(module.Rules, func(i, j int) bool {
		return module.Rules[i].Priority > module.Rules[j].Priority
	})
	return &module, nil
}

// Engine holds compiled rule modules and evaluates cases against them.
type Engine struct {
	logger  *logrus.Logger
	modules map[string]*RuleModule
	order   []string
}

// NewEngine creates an empty rule engine.
func NewEngine(logger *logrus.Logger) *Engine {
	return &Engine{
		logger:  logger,
		modules: make(map[string]*RuleModule),
	}
}

// Register loads a module document into the engine. Registering a module
// with an existing name replaces it but keeps its position in the pipeline
// order.
func (e *Engine) Register(raw []byte) (*RuleModule, error) {
	module, err := LoadModule(raw)
	if err != nil {
		return nil, err
	}
	if _, exists := e.modules[module.Name]; !exists {
		e.order = append(e.order, module.Name)
	}
	e.modules[module.Name] = module

	e.logger.WithFields(logrus.Fields{
		"module": module.Name,
		"rules":  len(module.Rules),
	}).Debug("Registered rule module")
	return module, nil
}

// Module returns a registered module by name.
func (e *Engine) Module(name string) (*RuleModule, bool) {
	m, ok := e.modules[name]
	return m, ok
}

// ModuleNames returns the registration order of all modules.
func (e *Engine) ModuleNames() []string {
	names := make([]string, len(e.order))
	copy(names, e.order)
	return names
}

// Evaluate runs a single module against the context. It returns the first
// matching rule in priority order, or nil when nothing matches.
func (e *Engine) Evaluate(moduleName string, ctx map[string]interface{}) (*Match, error) {
	module, ok := e.modules[moduleName]
	if !ok {
		return nil, fmt.Errorf("unknown rule module %q", moduleName)
	}

	for _, rule := range module.Rules {
		if !rule.Matches(ctx) {
			continue
		}
		e.logger.WithFields(logrus.Fields{
			"module":   moduleName,
			"rule_id":  rule.ID,
			"priority": rule.Priority,
			"action":   rule.Then.Action,
		}).Debug("Rule matched")
		return &Match{RuleID: rule.ID, Effect: rule.Then}, nil
	}

	e.logger.WithField("module", moduleName).Debug("No rule matched")
	return nil, nil
}
