package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thyroid-dss-server/internal/domain"
)

func newTreatmentEngine(t *testing.T) *TreatmentEngine {
	t.Helper()
	e, err := NewTreatmentEngine(testLogger())
	require.NoError(t, err)
	return e
}

func TestTreatment_MetastaticMTCGetsSystemicTherapy(t *testing.T) {
	e := newTreatmentEngine(t)

	c := &domain.CancerCase{
		Histology:  domain.HistologyMedullary,
		Metastasis: &domain.Metastasis{Confirmed: true},
	}
	out := e.ComputeInitial(c, "N0")

	require.NotNil(t, out.ThyroidSurgery)
	assert.Equal(t, "SYSTEMIC_THERAPY_MTC", out.ThyroidSurgery.PlanID)
	assert.Contains(t, out.ThyroidSurgery.Indications, "Medullary histology")
	assert.Contains(t, out.ThyroidSurgery.Indications, "Distant metastasis present")
}

func TestTreatment_NonMetastaticMTCGetsTotalThyroidectomy(t *testing.T) {
	e := newTreatmentEngine(t)

	c := &domain.CancerCase{
		Histology: domain.HistologyMedullary,
		Primary:   &domain.PrimaryTumor{SizeCM: mm(1.2)},
	}
	out := e.ComputeInitial(c, "N0")

	require.NotNil(t, out.ThyroidSurgery)
	assert.Equal(t, "TOTAL_THYROIDECTOMY_MTC", out.ThyroidSurgery.PlanID)

	// MTC always gets at least a prophylactic central dissection.
	require.NotNil(t, out.NeckSurgery)
	assert.Equal(t, "CENTRAL_VI_PROPHYLACTIC", out.NeckSurgery.PlanID)
	assert.Equal(t, []string{"VI"}, out.NeckSurgery.Levels)
}

func TestTreatment_ResectableATC(t *testing.T) {
	e := newTreatmentEngine(t)

	c := &domain.CancerCase{
		Histology: domain.HistologyAnaplastic,
		Primary:   &domain.PrimaryTumor{SizeCM: mm(5.0), GrossETEPlanes: []string{"strap"}},
	}
	out := e.ComputeInitial(c, "N0")

	require.NotNil(t, out.ThyroidSurgery)
	assert.Equal(t, "TOTAL_THYROIDECTOMY_EN_BLOC_AS_FEASIBLE", out.ThyroidSurgery.PlanID)

	require.NotNil(t, out.NeckSurgery)
	assert.Equal(t, "THERAPEUTIC_ONLY_WHEN_CLEARABLE", out.NeckSurgery.PlanID)
}

func TestTreatment_UnresectableATCGetsNoSurgicalPlan(t *testing.T) {
	e := newTreatmentEngine(t)

	c := &domain.CancerCase{
		Histology: domain.HistologyAnaplastic,
		Primary:   &domain.PrimaryTumor{SizeCM: mm(6.0), GrossETEPlanes: []string{"prevertebral"}},
	}
	out := e.ComputeInitial(c, "N0")

	assert.Nil(t, out.ThyroidSurgery)
}

func TestTreatment_DTCHighRiskGetsTotalThyroidectomy(t *testing.T) {
	e := newTreatmentEngine(t)

	c := &domain.CancerCase{
		Histology: domain.HistologyPapillary,
		Primary:   &domain.PrimaryTumor{SizeCM: mm(4.5)},
	}
	out := e.ComputeInitial(c, "N0")

	require.NotNil(t, out.ThyroidSurgery)
	assert.Equal(t, "TOTAL_THYROIDECTOMY", out.ThyroidSurgery.PlanID)
	assert.Contains(t, out.ThyroidSurgery.Indications, "Tumor size > 4 cm")
}

func TestTreatment_DTCMidSizeN0GetsLobectomy(t *testing.T) {
	e := newTreatmentEngine(t)

	c := &domain.CancerCase{
		Histology: domain.HistologyPapillary,
		Primary:   &domain.PrimaryTumor{SizeCM: mm(2.5)},
	}
	out := e.ComputeInitial(c, "N0")

	require.NotNil(t, out.ThyroidSurgery)
	assert.Equal(t, "THYROID_LOBECTOMY", out.ThyroidSurgery.PlanID)

	require.NotNil(t, out.NeckSurgery)
	assert.Equal(t, "NO_PROPHYLACTIC_CENTRAL", out.NeckSurgery.PlanID)
}

func TestTreatment_MicrocarcinomaOffersSurveillance(t *testing.T) {
	e := newTreatmentEngine(t)

	c := &domain.CancerCase{
		Histology: domain.HistologyPapillary,
		Primary:   &domain.PrimaryTumor{SizeCM: mm(0.8)},
	}
	out := e.ComputeInitial(c, "N0")

	require.NotNil(t, out.ThyroidSurgery)
	assert.Equal(t, "ACTIVE_SURVEILLANCE_OR_LOBECTOMY", out.ThyroidSurgery.PlanID)
}

func TestTreatment_CompletionThyroidectomyAfterLobectomy(t *testing.T) {
	e := newTreatmentEngine(t)

	c := &domain.CancerCase{
		Histology:    domain.HistologyPapillary,
		IndexSurgery: domain.SurgeryLobectomy,
		Primary:      &domain.PrimaryTumor{SizeCM: mm(0.9)},
		MarginStatus: domain.MarginPositive,
	}
	out := e.ComputeInitial(c, "N0")

	require.NotNil(t, out.ThyroidSurgery)
	assert.Equal(t, "COMPLETION_THYROIDECTOMY", out.ThyroidSurgery.PlanID)
	assert.Contains(t, out.ThyroidSurgery.Indications, "Positive margins on final pathology")
	assert.NotContains(t, out.ThyroidSurgery.Indications, "Vascular invasion found")
}

func TestTreatment_StagingNFeedsNeckRules(t *testing.T) {
	e := newTreatmentEngine(t)

	c := &domain.CancerCase{
		Histology: domain.HistologyPapillary,
		Primary:   &domain.PrimaryTumor{SizeCM: mm(2.0)},
	}

	out := e.ComputeInitial(c, "N1b")
	require.NotNil(t, out.NeckSurgery)
	assert.Equal(t, "LATERAL_SND_II_TO_IV_V", out.NeckSurgery.PlanID)

	// An asserted case pattern takes precedence over the staging N.
	c.NPattern = "N1a"
	out = e.ComputeInitial(c, "N1b")
	require.NotNil(t, out.NeckSurgery)
	assert.Equal(t, "CENTRAL_NECK_DISSECTION_LEVEL_VI_VII", out.NeckSurgery.PlanID)
}

func TestTreatment_LevelVIIDissection(t *testing.T) {
	e := newTreatmentEngine(t)

	c := &domain.CancerCase{
		Histology: domain.HistologyAnaplastic,
		Nodes:     &domain.NodalDisease{LevelVIVII: true},
		Metastasis: &domain.Metastasis{
			Confirmed: true,
		},
	}
	out := e.ComputeInitial(c, "N1a")

	// Metastatic ATC matches no thyroid rule; level VII involvement still
	// drives the mediastinal dissection row.
	require.NotNil(t, out.NeckSurgery)
	assert.Equal(t, "SUPERIOR_MEDIASTINAL_LEVEL_VII_DISSECTION", out.NeckSurgery.PlanID)
}

func TestTreatment_ReasonsAreDeduplicated(t *testing.T) {
	e := newTreatmentEngine(t)

	c := &domain.CancerCase{
		Histology:           domain.HistologyPapillary,
		Primary:             &domain.PrimaryTumor{SizeCM: mm(5.0)},
		HistVariantHighRisk: boolp(true),
	}
	out := e.ComputeInitial(c, "N1b")

	require.NotNil(t, out.ThyroidSurgery)
	seen := map[string]int{}
	for _, reason := range out.ThyroidSurgery.Indications {
		seen[reason]++
		assert.Equal(t, 1, seen[reason], "duplicate reason %q", reason)
	}
}
