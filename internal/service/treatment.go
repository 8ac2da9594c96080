package service

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/thyroid-dss-server/internal/domain"
)

// fieldCond is a compiled condition over the fixed case-field mapping. Unlike
// the rules package, there is no path resolver here: every accessible field
// is enumerated in an accessor switch, and a field the accessor does not know
// simply never matches.
type fieldCond struct {
	Op       string
	Field    string
	Value    interface{}
	Values   []interface{}
	Low      float64
	High     float64
	Reason   string
	Children []*fieldCond
}

// fieldAccessor resolves a rule field name to its case value. The second
// return reports whether the field is set on this case.
type fieldAccessor func(field string) (interface{}, bool)

// parseFieldCond compiles one condition object. The object holds exactly one
// operator key plus an optional "reason" annotation.
func parseFieldCond(raw json.RawMessage) (*fieldCond, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("condition must be a JSON object: %w", err)
	}

	cond := &fieldCond{}
	if reasonRaw, ok := obj["reason"]; ok {
		if err := json.Unmarshal(reasonRaw, &cond.Reason); err != nil {
			return nil, fmt.Errorf("reason must be a string: %w", err)
		}
		delete(obj, "reason")
	}
	if len(obj) != 1 {
		return nil, fmt.Errorf("condition must hold exactly one operator, got %d", len(obj))
	}

	for op, args := range obj {
		cond.Op = op
		switch op {
		case "and", "or":
			var parts []json.RawMessage
			if err := json.Unmarshal(args, &parts); err != nil {
				return nil, fmt.Errorf("%q expects an array of conditions: %w", op, err)
			}
			for _, part := range parts {
				child, err := parseFieldCond(part)
				if err != nil {
					return nil, err
				}
				cond.Children = append(cond.Children, child)
			}
		case "not":
			child, err := parseFieldCond(args)
			if err != nil {
				return nil, err
			}
			cond.Children = []*fieldCond{child}
		case "empty_or_absent":
			var fields []string
			if err := json.Unmarshal(args, &fields); err != nil || len(fields) != 1 {
				return nil, fmt.Errorf("%q expects [field]", op)
			}
			cond.Field = fields[0]
		case "between":
			var parts []json.RawMessage
			if err := json.Unmarshal(args, &parts); err != nil || len(parts) != 3 {
				return nil, fmt.Errorf("%q expects [field, low, high]", op)
			}
			if err := json.Unmarshal(parts[0], &cond.Field); err != nil {
				return nil, err
			}
			if err := json.Unmarshal(parts[1], &cond.Low); err != nil {
				return nil, err
			}
			if err := json.Unmarshal(parts[2], &cond.High); err != nil {
				return nil, err
			}
		case "in":
			var parts []json.RawMessage
			if err := json.Unmarshal(args, &parts); err != nil || len(parts) != 2 {
				return nil, fmt.Errorf("%q expects [field, values]", op)
			}
			if err := json.Unmarshal(parts[0], &cond.Field); err != nil {
				return nil, err
			}
			if err := json.Unmarshal(parts[1], &cond.Values); err != nil {
				return nil, err
			}
		case "eq", ">", ">=", "<", "<=":
			var parts []json.RawMessage
			if err := json.Unmarshal(args, &parts); err != nil || len(parts) != 2 {
				return nil, fmt.Errorf("%q expects [field, value]", op)
			}
			if err := json.Unmarshal(parts[0], &cond.Field); err != nil {
				return nil, err
			}
			if err := json.Unmarshal(parts[1], &cond.Value); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unknown operator %q", op)
		}
	}
	return cond, nil
}

func parseFieldConds(raws []json.RawMessage) ([]*fieldCond, error) {
	conds := make([]*fieldCond, 0, len(raws))
	for i, raw := range raws {
		c, err := parseFieldCond(raw)
		if err != nil {
			return nil, fmt.Errorf("condition %d: %w", i, err)
		}
		conds = append(conds, c)
	}
	return conds, nil
}

// eval evaluates the condition and collects the reason annotations of every
// satisfied part. Combinator reasons are prepended before their children's.
func (c *fieldCond) eval(get fieldAccessor) (bool, []string) {
	switch c.Op {
	case "and":
		var reasons []string
		for _, child := range c.Children {
			ok, rs := child.eval(get)
			if !ok {
				return false, nil
			}
			reasons = append(reasons, rs...)
		}
		if c.Reason != "" {
			reasons = append([]string{c.Reason}, reasons...)
		}
		return true, reasons

	case "or":
		var reasons []string
		matched := false
		for _, child := range c.Children {
			ok, rs := child.eval(get)
			if ok {
				matched = true
				reasons = append(reasons, rs...)
			}
		}
		if !matched {
			return false, nil
		}
		if c.Reason != "" {
			reasons = append([]string{c.Reason}, reasons...)
		}
		return true, reasons

	case "not":
		ok, _ := c.Children[0].eval(get)
		if ok {
			return false, nil
		}
		if c.Reason != "" {
			return true, []string{c.Reason}
		}
		return true, nil
	}

	if c.evalLeaf(get) {
		if c.Reason != "" {
			return true, []string{c.Reason}
		}
		return true, nil
	}
	return false, nil
}

// evalLeaf evaluates a single predicate. An unknown or unset field fails the
// predicate, never errors; empty_or_absent is the only operator an absent
// field satisfies.
func (c *fieldCond) evalLeaf(get fieldAccessor) bool {
	value, present := get(c.Field)

	switch c.Op {
	case "empty_or_absent":
		if !present || value == nil {
			return true
		}
		if list, ok := value.([]string); ok {
			return len(list) == 0
		}
		if list, ok := value.([]interface{}); ok {
			return len(list) == 0
		}
		return false

	case "eq":
		return present && equalValues(value, c.Value)

	case "in":
		if !present {
			return false
		}
		// A list-valued field matches when any of its elements is in the
		// candidate set (gross_ETE_planes rules rely on this).
		if list, ok := toInterfaceList(value); ok {
			for _, elem := range list {
				for _, cand := range c.Values {
					if equalValues(elem, cand) {
						return true
					}
				}
			}
			return false
		}
		for _, cand := range c.Values {
			if equalValues(value, cand) {
				return true
			}
		}
		return false

	case ">", ">=", "<", "<=":
		num, ok := numValue(value)
		if !present || !ok {
			return false
		}
		bound, ok := numValue(c.Value)
		if !ok {
			return false
		}
		switch c.Op {
		case ">":
			return num > bound
		case ">=":
			return num >= bound
		case "<":
			return num < bound
		default:
			return num <= bound
		}

	case "between":
		num, ok := numValue(value)
		if !present || !ok {
			return false
		}
		return num >= c.Low && num <= c.High
	}
	return false
}

func toInterfaceList(value interface{}) ([]interface{}, bool) {
	switch v := value.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func numValue(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

func equalValues(a, b interface{}) bool {
	if an, ok := numValue(a); ok {
		bn, ok := numValue(b)
		return ok && an == bn
	}
	return a == b
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// surgicalRule is one row of an initial treatment rule table.
type surgicalRule struct {
	WhenAll []json.RawMessage `json:"when_all,omitempty"`
	WhenAny []json.RawMessage `json:"when_any,omitempty"`
	Surgery string            `json:"surgery"`
	Levels  []string          `json:"levels,omitempty"`
	Label   string            `json:"label"`
	Explain string            `json:"explain"`

	allConds []*fieldCond
	anyConds []*fieldCond
}

func (r *surgicalRule) compile() error {
	var err error
	if r.allConds, err = parseFieldConds(r.WhenAll); err != nil {
		return err
	}
	r.anyConds, err = parseFieldConds(r.WhenAny)
	return err
}

// evaluate checks the rule and collects reasons from satisfied conditions.
func (r *surgicalRule) evaluate(get fieldAccessor) (bool, []string) {
	if len(r.allConds) > 0 {
		var reasons []string
		for _, cond := range r.allConds {
			ok, rs := cond.eval(get)
			if !ok {
				return false, nil
			}
			reasons = append(reasons, rs...)
		}
		return true, dedupe(reasons)
	}
	if len(r.anyConds) > 0 {
		var reasons []string
		matched := false
		for _, cond := range r.anyConds {
			ok, rs := cond.eval(get)
			if ok {
				matched = true
				reasons = append(reasons, rs...)
			}
		}
		if matched {
			return true, dedupe(reasons)
		}
	}
	return false, nil
}

// TreatmentEngine recommends the initial thyroid and neck operations from
// ordered rule tables, first match wins per table.
type TreatmentEngine struct {
	logger       *logrus.Logger
	thyroidRules []*surgicalRule
	neckRules    []*surgicalRule
}

// NewTreatmentEngine compiles the built-in surgery rule tables.
func NewTreatmentEngine(logger *logrus.Logger) (*TreatmentEngine, error) {
	var tables struct {
		ThyroidSurgery []*surgicalRule `json:"thyroid_surgery"`
		NeckSurgery    []*surgicalRule `json:"neck_surgery"`
	}
	if err := json.Unmarshal([]byte(initialTreatmentRulesJSON), &tables); err != nil {
		return nil, fmt.Errorf("parse treatment rules: %w", err)
	}
	for _, rule := range tables.ThyroidSurgery {
		if err := rule.compile(); err != nil {
			return nil, fmt.Errorf("thyroid rule %s: %w", rule.Surgery, err)
		}
	}
	for _, rule := range tables.NeckSurgery {
		if err := rule.compile(); err != nil {
			return nil, fmt.Errorf("neck rule %s: %w", rule.Surgery, err)
		}
	}
	return &TreatmentEngine{
		logger:       logger,
		thyroidRules: tables.ThyroidSurgery,
		neckRules:    tables.NeckSurgery,
	}, nil
}

// ComputeInitial evaluates both rule tables against the case. The clinical
// nodal pattern defaults to the computed staging N when the case does not
// assert one.
func (e *TreatmentEngine) ComputeInitial(c *domain.CancerCase, stagingN string) domain.TreatmentOutput {
	get := treatmentAccessor(c, stagingN)

	out := domain.TreatmentOutput{
		ThyroidSurgery: e.findRecommendation(e.thyroidRules, get),
		NeckSurgery:    e.findRecommendation(e.neckRules, get),
	}

	e.logger.WithFields(logrus.Fields{
		"histology": c.Histology,
		"thyroid":   planID(out.ThyroidSurgery),
		"neck":      planID(out.NeckSurgery),
	}).Info("Initial treatment computed")
	return out
}

func planID(rec *domain.TreatmentRecommendation) string {
	if rec == nil {
		return ""
	}
	return rec.PlanID
}

func (e *TreatmentEngine) findRecommendation(table []*surgicalRule, get fieldAccessor) *domain.TreatmentRecommendation {
	for _, rule := range table {
		ok, reasons := rule.evaluate(get)
		if !ok {
			continue
		}
		return &domain.TreatmentRecommendation{
			PlanID:      rule.Surgery,
			Label:       rule.Label,
			Rationale:   rule.Explain,
			Indications: reasons,
			Levels:      rule.Levels,
		}
	}
	return nil
}

// treatmentAccessor enumerates every field the surgery rules may reference.
func treatmentAccessor(c *domain.CancerCase, stagingN string) fieldAccessor {
	nPattern := c.NPattern
	if nPattern == "" {
		nPattern = stagingN
	}

	return func(field string) (interface{}, bool) {
		switch field {
		case "histology":
			return string(c.Histology), c.Histology != ""
		case "size_cm":
			if c.Primary == nil || c.Primary.SizeCM == nil {
				return nil, false
			}
			return *c.Primary.SizeCM, true
		case "distant_mets":
			confirmed := c.Metastasis != nil && c.Metastasis.Confirmed
			return confirmed, true
		case "gross_ETE_planes":
			if c.Primary == nil {
				return nil, false
			}
			return c.Primary.GrossETEPlanes, true
		case "cN_pattern":
			return nPattern, nPattern != ""
		case "invasion_SAN_or_IJV_or_SCM":
			if c.Nodes == nil {
				return nil, false
			}
			return c.Nodes.InvasionOfCriticalStructures, true
		case "index_surgery":
			return string(c.IndexSurgery), c.IndexSurgery != ""
		case "lymphatic_invasion":
			return boolField(c.LymphaticInvasion)
		case "vascular_invasion":
			return boolField(c.VascularInvasion)
		case "multifocal_macroscopic":
			return boolField(c.MultifocalMacroscopic)
		case "high_risk_variant":
			return boolField(c.HistVariantHighRisk)
		case "margins_positive":
			return c.MarginStatus == domain.MarginPositive, true
		case "lateral_nodes_involved":
			if c.Nodes == nil {
				return nil, false
			}
			return c.Nodes.LateralNeckOrRetropharyngeal, true
		case "level_VII_nodes_involved":
			if c.Nodes == nil {
				return nil, false
			}
			return c.Nodes.LevelVIVII, true
		}
		return nil, false
	}
}

func boolField(v *bool) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}
