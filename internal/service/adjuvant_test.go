package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thyroid-dss-server/internal/domain"
)

func newAdjuvantEngine(t *testing.T) *AdjuvantEngine {
	t.Helper()
	e, err := NewAdjuvantEngine(testLogger())
	require.NoError(t, err)
	return e
}

func TestAdjuvant_LobectomyWithAdverseFeatures(t *testing.T) {
	e := newAdjuvantEngine(t)

	out := e.Evaluate(&domain.CancerCase{
		Histology:        domain.HistologyPapillary,
		IndexSurgery:     domain.SurgeryLobectomy,
		VascularInvasion: boolp(true),
	})

	require.NotNil(t, out)
	assert.Contains(t, out.Plan, "completion thyroidectomy")
	// Differentiated histology always carries the TSH timing note.
	assert.Contains(t, out.Notes, adjuvantTimingNoteTSH)
}

func TestAdjuvant_LobectomyWithoutAdverseFeaturesIsSurveillance(t *testing.T) {
	e := newAdjuvantEngine(t)

	out := e.Evaluate(&domain.CancerCase{
		Histology:    domain.HistologyPapillary,
		IndexSurgery: domain.SurgeryLobectomy,
	})

	require.NotNil(t, out)
	assert.Contains(t, out.Plan, "Observation and TSH suppression")
}

func TestAdjuvant_LowRiskTotalThyroidectomyNoRAI(t *testing.T) {
	e := newAdjuvantEngine(t)

	out := e.Evaluate(&domain.CancerCase{
		Histology:              domain.HistologyPapillary,
		IndexSurgery:           domain.SurgeryTotalThyroidectomy,
		LargestFocusCM:         mm(1.5),
		GrossETE:               boolp(false),
		NPattern:               "N0",
		TgAb:                   boolp(false),
		TgUnstimNgML:           mm(0.4),
		NeckUltrasoundNegative: boolp(true),
	})

	require.NotNil(t, out)
	assert.Contains(t, out.Plan, "No radioiodine ablation indicated")
	assert.NotContains(t, out.Notes, adjuvantTimingNoteRAI)
}

func TestAdjuvant_HighRiskGetsRoutineRAIWithTimingNotes(t *testing.T) {
	e := newAdjuvantEngine(t)

	out := e.Evaluate(&domain.CancerCase{
		Histology:    domain.HistologyPapillary,
		IndexSurgery: domain.SurgeryTotalThyroidectomy,
		NPattern:     "N1b",
	})

	require.NotNil(t, out)
	assert.Contains(t, out.Plan, "RAI 100-200 mCi")
	assert.Contains(t, out.Notes, adjuvantTimingNoteTSH)
	assert.Contains(t, out.Notes, adjuvantTimingNoteRAI)
}

func TestAdjuvant_RAIContraindicationNote(t *testing.T) {
	e := newAdjuvantEngine(t)

	out := e.Evaluate(&domain.CancerCase{
		Histology:    domain.HistologyPapillary,
		IndexSurgery: domain.SurgeryTotalThyroidectomy,
		NPattern:     "N1b",
		Patient:      &domain.Patient{RAIContraindicated: boolp(true)},
	})

	require.NotNil(t, out)
	assert.Contains(t, out.Notes, "RAI is contraindicated in this patient.")
}

func TestAdjuvant_MTCPositiveMarginsGetEBRT(t *testing.T) {
	e := newAdjuvantEngine(t)

	out := e.Evaluate(&domain.CancerCase{
		Histology:       domain.HistologyMedullary,
		MarginStatusMTC: "positive",
	})

	require.NotNil(t, out)
	assert.Contains(t, out.Plan, "EBRT")
	// MTC never gets the DTC timing notes.
	assert.Empty(t, out.Notes)
}

func TestAdjuvant_MTCNegativeMarginsObserves(t *testing.T) {
	e := newAdjuvantEngine(t)

	out := e.Evaluate(&domain.CancerCase{
		Histology:       domain.HistologyMedullary,
		MarginStatusMTC: "negative",
	})

	require.NotNil(t, out)
	assert.Contains(t, out.Plan, "calcitonin monitoring")
}

func TestAdjuvant_ResectableATCGetsChemoRadiation(t *testing.T) {
	e := newAdjuvantEngine(t)

	out := e.Evaluate(&domain.CancerCase{
		Histology:  domain.HistologyAnaplastic,
		StageGroup: "IVB",
		Resectable: boolp(true),
	})

	require.NotNil(t, out)
	assert.Contains(t, out.Plan, "chemoradiation")
}

func TestAdjuvant_NoMatchFallsBackToMDT(t *testing.T) {
	e := newAdjuvantEngine(t)

	// MTC with no margin information matches neither medullary rule.
	out := e.Evaluate(&domain.CancerCase{
		Histology: domain.HistologyMedullary,
	})

	require.NotNil(t, out)
	assert.Equal(t, "No specific recommendation found", out.Plan)
	assert.Contains(t, out.Explain, "MDT")
}

func TestAdjuvant_NoHistologyReturnsNil(t *testing.T) {
	e := newAdjuvantEngine(t)

	assert.Nil(t, e.Evaluate(&domain.CancerCase{}))
}
