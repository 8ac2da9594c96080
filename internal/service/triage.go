package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/thyroid-dss-server/internal/domain"
	"github.com/thyroid-dss-server/internal/rules"
)

// triagePipeline is the module order for a full nodule triage run. A match
// can jump forward with the next_module metadata key; an override_fna match
// ends the run after its target module fires.
var triagePipeline = []string{
	rules.ModuleTSHGating,
	rules.ModuleScanOverride,
	rules.ModuleHyperSelector,
	rules.ModuleUSToFNAC,
	rules.ModuleBethesdaMgmt,
	rules.ModuleSurgeryExtent,
}

// TriageService runs a case through the declarative rule modules in
// pipeline order and records the trace.
type TriageService struct {
	logger *logrus.Logger
	engine *rules.Engine
}

// NewTriageService builds a triage service on the embedded rule modules.
func NewTriageService(logger *logrus.Logger) (*TriageService, error) {
	engine, err := rules.NewDefaultEngine(logger)
	if err != nil {
		return nil, fmt.Errorf("load triage modules: %w", err)
	}
	return &TriageService{logger: logger, engine: engine}, nil
}

// Engine exposes the compiled rule modules for the export endpoints.
func (s *TriageService) Engine() *rules.Engine {
	return s.engine
}

// Evaluate walks the pipeline. Every module visited contributes a step to
// the trace whether or not a rule fired; the disposition is the action of
// the last matching rule.
func (s *TriageService) Evaluate(c *domain.TriageCase) (*domain.TriageResult, error) {
	ctx := triageContext(c)
	result := &domain.TriageResult{}

	haltAfter := ""
	for i := 0; i < len(triagePipeline); i++ {
		name := triagePipeline[i]

		match, err := s.engine.Evaluate(name, ctx)
		if err != nil {
			return nil, err
		}

		step := domain.TriageStep{Module: name}
		if match != nil {
			step.RuleID = match.RuleID
			step.Action = match.Effect.Action
			step.Reason = match.Effect.Reason
			step.Matched = true
			step.Metadata = match.Effect.Metadata
			result.Disposition = match.Effect.Action
		}
		result.Steps = append(result.Steps, step)

		if name == haltAfter {
			result.Halted = true
			break
		}
		if match == nil {
			continue
		}

		if next := match.Effect.Metadata["next_module"]; next != "" {
			if j := pipelineIndex(next); j > i {
				i = j - 1
			}
			if match.Effect.Metadata["override_fna"] == "true" {
				haltAfter = next
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"steps":       len(result.Steps),
		"disposition": result.Disposition,
		"halted":      result.Halted,
	}).Info("Triage pipeline complete")
	return result, nil
}

func pipelineIndex(name string) int {
	for i, n := range triagePipeline {
		if n == name {
			return i
		}
	}
	return -1
}

// triageContext flattens the case into the key names the rule modules
// reference. Unset optional fields are omitted so absence predicates work.
func triageContext(c *domain.TriageCase) map[string]interface{} {
	ctx := map[string]interface{}{
		"red_flags_present":         len(c.RedFlags) > 0,
		"tsh_status":                statusOrUnknown(c.TSHStatus),
		"pregnant":                  c.Pregnant || c.Lactating,
		"suspicious_cervical_nodes": c.SuspiciousNodes,
		"prior_nondiagnostic_count": c.PriorNondiagnosticCount,
	}
	putString(ctx, "system", c.USSystem)
	putString(ctx, "pattern", c.Pattern)
	putString(ctx, "scan_pattern", c.ScanPattern)
	putString(ctx, "concordance", c.Concordance)
	putString(ctx, "etiology", c.Etiology)
	putString(ctx, "preference", c.Preference)
	putString(ctx, "nodal_status", c.NodalStatus)
	putString(ctx, "bethesda_category", string(c.BethesdaCategory))
	if c.SizeCM != nil {
		ctx["size_cm"] = *c.SizeCM
	}
	putBool(ctx, "compressive_symptoms", c.CompressiveSymptoms)
	putBool(ctx, "malignancy_confirmed", c.MalignancyConfirmed)
	putBool(ctx, "gross_ete", c.GrossETE)
	putBool(ctx, "multifocality", c.Multifocality)
	putBool(ctx, "distant_metastasis", c.DistantMetastasis)
	putBool(ctx, "bilateral_disease", c.BilateralDisease)
	putBool(ctx, "molecular_available", c.MolecularAvailable)
	return ctx
}

func statusOrUnknown(s string) string {
	if s == "" {
		return "UNKNOWN"
	}
	return s
}

func putString(ctx map[string]interface{}, key, value string) {
	if value != "" {
		ctx[key] = value
	}
}

func putBool(ctx map[string]interface{}, key string, value *bool) {
	if value != nil {
		ctx[key] = *value
	}
}
