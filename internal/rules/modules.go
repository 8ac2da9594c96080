package rules

import (
	"embed"
	"fmt"

	"github.com/sirupsen/logrus"
)

//go:embed modules/*.json
var moduleFS embed.FS

// Module names in pipeline order. Triage walks these in sequence; each
// module sees the same flattened context plus whatever earlier matches
// contributed.
const (
	ModuleTSHGating      = "TSH_INITIAL_GATING_V1"
	ModuleScanOverride   = "LOW_TSH_SCAN_OVERRIDE_V1"
	ModuleHyperSelector  = "HYPERTHYROID_TREATMENT_SELECTOR_V1"
	ModuleUSToFNAC       = "US_TO_FNAC_DECISION_V1"
	ModuleBethesdaMgmt   = "BETHESDA_FNAC_MANAGEMENT_V1"
	ModuleSurgeryExtent  = "SURGERY_EXTENT_AND_NECK_MANAGEMENT_V1"
)

var moduleFiles = []string{
	"modules/tsh_initial_gating.json",
	"modules/low_tsh_scan_override.json",
	"modules/hyperthyroid_treatment_selector.json",
	"modules/us_to_fnac_decision.json",
	"modules/bethesda_fnac_management.json",
	"modules/surgery_extent_and_neck_management.json",
}

// NewDefaultEngine loads the built-in triage rule modules in pipeline order.
func NewDefaultEngine(logger *logrus.Logger) (*Engine, error) {
	engine := NewEngine(logger)
	for _, name := range moduleFiles {
		raw, err := moduleFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read embedded module %s: %w", name, err)
		}
		if _, err := engine.Register(raw); err != nil {
			return nil, fmt.Errorf("load embedded module %s: %w", name, err)
		}
	}
	return engine, nil
}
