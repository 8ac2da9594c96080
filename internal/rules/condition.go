// Package rules implements a small declarative rule engine. Rule modules are
// JSON documents whose conditions are evaluated against a flattened case
// context; within a module the highest-priority matching rule wins.
package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Operator names accepted in condition documents.
const (
	opAnd     = "and"
	opOr      = "or"
	opNot     = "not"
	opAny     = "any"
	opAll     = "all"
	opEq      = "eq"
	opIn      = "in"
	opGT      = ">"
	opGTE     = ">="
	opLT      = "<"
	opLTE     = "<="
	opBetween = "between"
	opEmpty   = "empty_or_absent"
	opAbsent  = "is_absent"
)

// Condition is the compiled form of a rule condition. Both authoring
// encodings (operator-keyed arrays and path-keyed shorthand objects) compile
// into the same tree, so evaluation never has to care which style a module
// author used.
type Condition struct {
	Op       string
	Path     string
	Value    interface{}
	Values   []interface{}
	Children []*Condition
}

// ParseCondition compiles a raw JSON condition document. It accepts the
// operator-keyed encoding, e.g.
//
//	{">=": ["nodule.size_cm", 1.0]}
//	{"and": [ {...}, {...} ]}
//
// and the path-keyed shorthand, e.g.
//
//	{"nodule.size_cm": ">= 1.0", "cytology.system": "Bethesda"}
//
// where multiple keys combine as a conjunction.
func ParseCondition(raw json.RawMessage) (*Condition, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("condition must be a JSON object: %w", err)
	}
	if len(obj) == 0 {
		return nil, fmt.Errorf("condition object is empty")
	}

	if len(obj) == 1 {
		for key, val := range obj {
			if isOperator(key) {
				return parseOperator(key, val)
			}
		}
	}

	// Path-keyed shorthand. Every key is a context path; multiple keys are
	// an implicit "and".
	children := make([]*Condition, 0, len(obj))
	for path, val := range obj {
		if isOperator(path) {
			return nil, fmt.Errorf("operator %q cannot be mixed with path keys", path)
		}
		child, err := parseShorthand(path, val)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return &Condition{Op: opAnd, Children: children}, nil
}

// ParseAll compiles a list of condition documents.
func ParseAll(raws []json.RawMessage) ([]*Condition, error) {
	conds := make([]*Condition, 0, len(raws))
	for i, raw := range raws {
		c, err := ParseCondition(raw)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		conds = append(conds, c)
	}
	return conds, nil
}

func isOperator(key string) bool {
	switch key {
	case opAnd, opOr, opNot, opAny, opAll,
		opEq, opIn, opGT, opGTE, opLT, opLTE,
		opBetween, opEmpty, opAbsent:
		return true
	}
	return false
}

func parseOperator(op string, raw json.RawMessage) (*Condition, error) {
	switch op {
	case opAnd, opOr:
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, fmt.Errorf("%q expects an array of conditions: %w", op, err)
		}
		children, err := ParseAll(parts)
		if err != nil {
			return nil, err
		}
		return &Condition{Op: op, Children: children}, nil

	case opNot:
		child, err := ParseCondition(raw)
		if err != nil {
			return nil, fmt.Errorf("%q operand: %w", op, err)
		}
		return &Condition{Op: op, Children: []*Condition{child}}, nil

	case opAny, opAll:
		// Module authors use "any"/"all" as synonyms for "or"/"and".
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, fmt.Errorf("%q expects an array of conditions: %w", op, err)
		}
		children, err := ParseAll(parts)
		if err != nil {
			return nil, err
		}
		alias := opAnd
		if op == opAny {
			alias = opOr
		}
		return &Condition{Op: alias, Children: children}, nil

	case opEmpty, opAbsent:
		var path string
		if err := json.Unmarshal(raw, &path); err != nil {
			// Also accept the [path] spelling for symmetry with the
			// binary operators.
			var arr []string
			if err2 := json.Unmarshal(raw, &arr); err2 != nil || len(arr) != 1 {
				return nil, fmt.Errorf("%q expects a path string", op)
			}
			path = arr[0]
		}
		return &Condition{Op: op, Path: path}, nil

	case opIn:
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
			return nil, fmt.Errorf("%q expects [path, values]", op)
		}
		var path string
		if err := json.Unmarshal(parts[0], &path); err != nil {
			return nil, fmt.Errorf("%q path: %w", op, err)
		}
		var values []interface{}
		if err := json.Unmarshal(parts[1], &values); err != nil {
			return nil, fmt.Errorf("%q values: %w", op, err)
		}
		return &Condition{Op: op, Path: path, Values: values}, nil

	case opBetween:
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 3 {
			return nil, fmt.Errorf("%q expects [path, low, high]", op)
		}
		var path string
		if err := json.Unmarshal(parts[0], &path); err != nil {
			return nil, fmt.Errorf("%q path: %w", op, err)
		}
		var low, high float64
		if err := json.Unmarshal(parts[1], &low); err != nil {
			return nil, fmt.Errorf("%q low bound: %w", op, err)
		}
		if err := json.Unmarshal(parts[2], &high); err != nil {
			return nil, fmt.Errorf("%q high bound: %w", op, err)
		}
		return &Condition{Op: op, Path: path, Values: []interface{}{low, high}}, nil

	default: // eq, >, >=, <, <=
		var parts []json.RawMessage
		if err := json.Unmarshal(raw, &parts); err != nil || len(parts) != 2 {
			return nil, fmt.Errorf("%q expects [path, value]", op)
		}
		var path string
		if err := json.Unmarshal(parts[0], &path); err != nil {
			return nil, fmt.Errorf("%q path: %w", op, err)
		}
		var value interface{}
		if err := json.Unmarshal(parts[1], &value); err != nil {
			return nil, fmt.Errorf("%q value: %w", op, err)
		}
		return &Condition{Op: op, Path: path, Value: value}, nil
	}
}

// parseShorthand handles a single "path: expectation" pair. String
// expectations beginning with a comparator become numeric comparisons,
// arrays become set membership, everything else is equality.
func parseShorthand(path string, raw json.RawMessage) (*Condition, error) {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, fmt.Errorf("path %q: %w", path, err)
	}

	switch v := value.(type) {
	case string:
		for _, cmp := range []string{opGTE, opLTE, opGT, opLT} {
			if !strings.HasPrefix(v, cmp) {
				continue
			}
			numStr := strings.TrimSpace(strings.TrimPrefix(v, cmp))
			num, err := strconv.ParseFloat(numStr, 64)
			if err != nil {
				return nil, fmt.Errorf("path %q: bad comparison %q: %w", path, v, err)
			}
			return &Condition{Op: cmp, Path: path, Value: num}, nil
		}
		return &Condition{Op: opEq, Path: path, Value: v}, nil
	case []interface{}:
		return &Condition{Op: opIn, Path: path, Values: v}, nil
	default:
		return &Condition{Op: opEq, Path: path, Value: value}, nil
	}
}

// Eval evaluates the condition against a flattened context. Numeric
// comparisons against a missing or non-numeric value are false, never an
// error; only the absence predicates treat a missing value as a match.
func (c *Condition) Eval(ctx map[string]interface{}) bool {
	switch c.Op {
	case opAnd:
		for _, child := range c.Children {
			if !child.Eval(ctx) {
				return false
			}
		}
		return true

	case opOr:
		for _, child := range c.Children {
			if child.Eval(ctx) {
				return true
			}
		}
		return false

	case opNot:
		return !c.Children[0].Eval(ctx)

	case opEmpty:
		val, present := lookup(ctx, c.Path)
		if !present || val == nil {
			return true
		}
		switch v := val.(type) {
		case string:
			return v == ""
		case []interface{}:
			return len(v) == 0
		case map[string]interface{}:
			return len(v) == 0
		}
		return false

	case opAbsent:
		val, present := lookup(ctx, c.Path)
		return !present || val == nil

	case opEq:
		val, present := lookup(ctx, c.Path)
		if !present {
			return false
		}
		return looseEqual(val, c.Value)

	case opIn:
		val, present := lookup(ctx, c.Path)
		if !present {
			return false
		}
		for _, candidate := range c.Values {
			if looseEqual(val, candidate) {
				return true
			}
		}
		return false

	case opGT, opGTE, opLT, opLTE:
		actual, ok := lookupNumber(ctx, c.Path)
		if !ok {
			return false
		}
		expected, ok := toNumber(c.Value)
		if !ok {
			return false
		}
		switch c.Op {
		case opGT:
			return actual > expected
		case opGTE:
			return actual >= expected
		case opLT:
			return actual < expected
		default:
			return actual <= expected
		}

	case opBetween:
		actual, ok := lookupNumber(ctx, c.Path)
		if !ok {
			return false
		}
		low, okL := toNumber(c.Values[0])
		high, okH := toNumber(c.Values[1])
		if !okL || !okH {
			return false
		}
		return actual >= low && actual <= high
	}
	return false
}

// lookup resolves a dotted path against nested maps.
func lookup(ctx map[string]interface{}, path string) (interface{}, bool) {
	if val, ok := ctx[path]; ok {
		return val, true
	}
	parts := strings.Split(path, ".")
	var current interface{} = ctx
	for _, part := range parts {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func lookupNumber(ctx map[string]interface{}, path string) (float64, bool) {
	val, present := lookup(ctx, path)
	if !present {
		return 0, false
	}
	return toNumber(val)
}

func toNumber(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// looseEqual compares context values against rule literals. Numbers compare
// numerically regardless of concrete type; everything else compares by
// equality of the JSON representations.
func looseEqual(actual, expected interface{}) bool {
	if an, aok := toNumber(actual); aok {
		if en, eok := toNumber(expected); eok {
			return an == en
		}
		return false
	}
	if actual == expected {
		return true
	}
	// Case of bool vs bool and string vs string is covered above; fall back
	// to string forms for mixed scalar encodings.
	as, aok := actual.(string)
	es, eok := expected.(string)
	return aok && eok && as == es
}
