package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thyroid-dss-server/internal/domain"
	"github.com/thyroid-dss-server/internal/rules"
)

func newTriageService(t *testing.T) *TriageService {
	t.Helper()
	svc, err := NewTriageService(testLogger())
	require.NoError(t, err)
	return svc
}

func TestTriageHotNoduleHaltsAfterHyperthyroidSelector(t *testing.T) {
	svc := newTriageService(t)

	c := &domain.TriageCase{
		TSHStatus:           "LOW_OR_SUPPRESSED",
		ScanPattern:         "HOT",
		Concordance:         "MATCH",
		Etiology:            "TOXIC_ADENOMA",
		CompressiveSymptoms: boolPtr(false),
		Preference:          "RAI",
	}
	result, err := svc.Evaluate(c)
	require.NoError(t, err)

	// The concordant hot nodule routes into the hyperthyroid selector and
	// ends the run there; the FNA modules never execute.
	require.Len(t, result.Steps, 3)
	assert.Equal(t, rules.ModuleTSHGating, result.Steps[0].Module)
	assert.Equal(t, "LOW_TSH_SCAN_PATHWAY", result.Steps[0].RuleID)
	assert.Equal(t, "HOT_NODULE_SKIP_FNA", result.Steps[1].RuleID)
	assert.Equal(t, "true", result.Steps[1].Metadata["override_fna"])
	assert.Equal(t, "TOXIC_ADENOMA_RAI", result.Steps[2].RuleID)
	assert.Equal(t, "RAI", result.Disposition)
	assert.True(t, result.Halted)
}

func TestTriagePregnantHotNoduleForbidsRAI(t *testing.T) {
	svc := newTriageService(t)

	c := &domain.TriageCase{
		TSHStatus:   "LOW_OR_SUPPRESSED",
		Lactating:   true,
		ScanPattern: "HOT",
		Concordance: "MATCH",
	}
	result, err := svc.Evaluate(c)
	require.NoError(t, err)

	assert.Equal(t, "ATD_LONG_TERM", result.Disposition)
	assert.True(t, result.Halted)
	last := result.Steps[len(result.Steps)-1]
	assert.Equal(t, "PREGNANCY_ATD_ONLY", last.RuleID)
	assert.Equal(t, "RAI", last.Metadata["forbidden"])
}

func TestTriageDiscordantHotNoduleContinuesToFNA(t *testing.T) {
	svc := newTriageService(t)

	c := &domain.TriageCase{
		TSHStatus:   "LOW_OR_SUPPRESSED",
		ScanPattern: "HOT",
		Concordance: "MISMATCH",
		USSystem:    "ATA_2015",
		Pattern:     "HIGH",
		SizeCM:      mm(1.5),
	}
	result, err := svc.Evaluate(c)
	require.NoError(t, err)

	assert.False(t, result.Halted)
	assert.Equal(t, "HOT_NODULE_DISCORDANCE", result.Steps[1].RuleID)
	assert.Equal(t, "FNA", result.Disposition)
}

func TestTriageRedFlagsUrgentReferral(t *testing.T) {
	svc := newTriageService(t)

	c := &domain.TriageCase{
		RedFlags:  []string{"rapid_growth"},
		TSHStatus: "NORMAL",
	}
	result, err := svc.Evaluate(c)
	require.NoError(t, err)

	require.Len(t, result.Steps, len(triagePipeline))
	assert.Equal(t, "URGENT_RED_FLAGS", result.Steps[0].RuleID)
	assert.Equal(t, "URGENT_REFERRAL", result.Disposition)
	assert.False(t, result.Halted)
}

func TestTriageEveryModuleContributesAStep(t *testing.T) {
	svc := newTriageService(t)

	result, err := svc.Evaluate(&domain.TriageCase{TSHStatus: "NORMAL"})
	require.NoError(t, err)

	require.Len(t, result.Steps, len(triagePipeline))
	for i, step := range result.Steps {
		assert.Equal(t, triagePipeline[i], step.Module)
	}
	// Only the gating module has anything to say about a bare case.
	assert.True(t, result.Steps[0].Matched)
	for _, step := range result.Steps[1:] {
		assert.False(t, step.Matched)
	}
	assert.Equal(t, "PROCEED_TO_ULTRASOUND", result.Disposition)
}

func TestTriageUnknownTSHProceedsToUltrasound(t *testing.T) {
	svc := newTriageService(t)

	result, err := svc.Evaluate(&domain.TriageCase{})
	require.NoError(t, err)

	assert.Equal(t, "NORMAL_HIGH_TSH", result.Steps[0].RuleID)
}

func TestTriageSuspiciousNodesOverrideSize(t *testing.T) {
	svc := newTriageService(t)

	c := &domain.TriageCase{
		TSHStatus:       "NORMAL",
		USSystem:        "ATA_2015",
		Pattern:         "VERY_LOW",
		SizeCM:          mm(0.6),
		SuspiciousNodes: true,
	}
	result, err := svc.Evaluate(c)
	require.NoError(t, err)

	assert.Equal(t, "FNA_NODE", result.Disposition)
	assert.Equal(t, "NODE_FNA_OVERRIDE", result.Steps[3].RuleID)
	assert.Equal(t, "true", result.Steps[3].Metadata["node_fna"])
}

func TestTriageSizeThresholds(t *testing.T) {
	svc := newTriageService(t)

	tests := []struct {
		name    string
		system  string
		pattern string
		sizeCM  float64
		rule    string
		action  string
	}{
		{"ATA high at threshold", "ATA_2015", "HIGH", 1.0, "ATA_HIGH_FNA", "FNA"},
		{"ATA intermediate", "ATA_2015", "INTERMEDIATE", 1.2, "ATA_INTERMEDIATE_FNA", "FNA"},
		{"ATA low", "ATA_2015", "LOW", 1.5, "ATA_LOW_FNA", "FNA"},
		{"ATA very low consider", "ATA_2015", "VERY_LOW", 2.4, "ATA_VERY_LOW_FNA", "CONSIDER_FNA"},
		{"ACR TR3", "ACR_TI_RADS_2017", "TR3", 2.6, "ACR_TR3_FNA", "FNA"},
		{"ACR TR4", "ACR_TI_RADS_2017", "TR4", 1.5, "ACR_TR4_FNA", "FNA"},
		{"ACR TR5", "ACR_TI_RADS_2017", "TR5", 1.1, "ACR_TR5_FNA", "FNA"},
		{"ACR TR2 any size", "ACR_TI_RADS_2017", "TR2", 5.0, "ACR_TR2_OBSERVE", "NO_FNA_SURVEILLANCE"},
		{"ACR TR1", "ACR_TI_RADS_2017", "TR1", 3.0, "ACR_TR1_BENIGN", "NO_FNA_BENIGN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &domain.TriageCase{
				TSHStatus: "NORMAL",
				USSystem:  tt.system,
				Pattern:   tt.pattern,
				SizeCM:    mm(tt.sizeCM),
			}
			result, err := svc.Evaluate(c)
			require.NoError(t, err)
			assert.Equal(t, tt.rule, result.Steps[3].RuleID)
			assert.Equal(t, tt.action, result.Disposition)
		})
	}
}

func TestTriageBelowThresholdNoFNAMatch(t *testing.T) {
	svc := newTriageService(t)

	c := &domain.TriageCase{
		TSHStatus: "NORMAL",
		USSystem:  "ATA_2015",
		Pattern:   "HIGH",
		SizeCM:    mm(0.8),
	}
	result, err := svc.Evaluate(c)
	require.NoError(t, err)

	assert.False(t, result.Steps[3].Matched)
	assert.Equal(t, "PROCEED_TO_ULTRASOUND", result.Disposition)
}

func TestTriageBethesdaLadder(t *testing.T) {
	svc := newTriageService(t)

	tests := []struct {
		cat    domain.BethesdaCategory
		rule   string
		action string
	}{
		{domain.BethesdaI, "BETHESDA_I_REPEAT", "REPEAT_FNAC"},
		{domain.BethesdaII, "BETHESDA_II_OBSERVE", "OBSERVE_US_SURVEILLANCE"},
		{domain.BethesdaIII, "BETHESDA_III_MOLECULAR", "REPEAT_FNAC"},
		{domain.BethesdaIV, "BETHESDA_IV_LOBECTOMY", "DIAGNOSTIC_LOBECTOMY"},
	}
	for _, tt := range tests {
		c := &domain.TriageCase{
			TSHStatus:        "NORMAL",
			BethesdaCategory: tt.cat,
		}
		result, err := svc.Evaluate(c)
		require.NoError(t, err)
		assert.Equal(t, tt.rule, result.Steps[4].RuleID, "Bethesda %s", tt.cat)
		assert.Equal(t, tt.action, result.Disposition, "Bethesda %s", tt.cat)
	}
}

func TestTriageBethesdaVIRoutesToSurgeryExtent(t *testing.T) {
	svc := newTriageService(t)

	c := &domain.TriageCase{
		TSHStatus:           "NORMAL",
		BethesdaCategory:    domain.BethesdaVI,
		MalignancyConfirmed: boolPtr(true),
		NodalStatus:         "cN0",
		SizeCM:              mm(2.0),
		GrossETE:            boolPtr(false),
		Multifocality:       boolPtr(false),
	}
	result, err := svc.Evaluate(c)
	require.NoError(t, err)

	assert.Equal(t, "BETHESDA_VI_SURGERY", result.Steps[4].RuleID)
	assert.Equal(t, "LOBECTOMY_LOW_RISK_DTC", result.Steps[5].RuleID)
	assert.Equal(t, "LOBECTOMY", result.Disposition)
	assert.Equal(t, "NONE", result.Steps[5].Metadata["neck"])
	assert.False(t, result.Halted)
}

func TestTriageLateralNodesTotalThyroidectomy(t *testing.T) {
	svc := newTriageService(t)

	c := &domain.TriageCase{
		TSHStatus:           "NORMAL",
		BethesdaCategory:    domain.BethesdaV,
		MalignancyConfirmed: boolPtr(true),
		NodalStatus:         "cN1b",
	}
	result, err := svc.Evaluate(c)
	require.NoError(t, err)

	assert.Equal(t, "TOTAL_THYROIDECTOMY", result.Disposition)
	last := result.Steps[len(result.Steps)-1]
	assert.Equal(t, "LATERAL_NECK_DISSECTION", last.RuleID)
	assert.Equal(t, "THERAPEUTIC_LATERAL_DISSECTION", last.Metadata["neck"])
}

func TestTriageLargeTumorHighRiskSurgery(t *testing.T) {
	svc := newTriageService(t)

	c := &domain.TriageCase{
		TSHStatus:           "NORMAL",
		MalignancyConfirmed: boolPtr(true),
		NodalStatus:         "cN0",
		SizeCM:              mm(4.5),
		GrossETE:            boolPtr(false),
		Multifocality:       boolPtr(false),
	}
	result, err := svc.Evaluate(c)
	require.NoError(t, err)

	last := result.Steps[len(result.Steps)-1]
	assert.Equal(t, "TOTAL_THYROID_HIGH_RISK", last.RuleID)
	assert.Equal(t, "CONSIDER_CENTRAL_NECK", last.Metadata["neck"])
}
