package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/thyroid-dss-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func mm(v float64) *float64 { return &v }

func domainFeatures(comp, echo, margins, shape, calc string, diameterMM float64) domain.USFeatures {
	return domain.USFeatures{
		Composition:    comp,
		Echogenicity:   echo,
		Margins:        margins,
		Shape:          shape,
		Calcifications: calc,
		MaxDiameterMM:  mm(diameterMM),
	}
}

func TestATAClassifier_NodeOverride(t *testing.T) {
	c := NewATAClassifier(testLogger())

	result := c.Classify(domainFeatures(compSolid, echoHypo, marginSmooth, shapeWiderThanTall, calcNone, 5), true)

	assert.Equal(t, "Node-driven evaluation", result.Category)
	assert.Equal(t, "FNA of suspicious lymph node", result.Action)
}

func TestATAClassifier_HighSuspicion(t *testing.T) {
	c := NewATAClassifier(testLogger())

	result := c.Classify(domainFeatures(compSolid, echoHypo, marginSmooth, shapeWiderThanTall, calcMicro, 12), false)

	assert.Equal(t, "High Suspicion", result.Category)
	assert.Equal(t, "70-90%", result.Risk)
	assert.Equal(t, 10.0, result.BiopsyMM)
	assert.Equal(t, "FNA recommended", result.Action)
}

func TestATAClassifier_HighSuspicionBelowThresholdObserves(t *testing.T) {
	c := NewATAClassifier(testLogger())

	result := c.Classify(domainFeatures(compSolid, echoHypo, marginIrregular, shapeWiderThanTall, calcNone, 8), false)

	assert.Equal(t, "High Suspicion", result.Category)
	assert.Equal(t, "Observe", result.Action)
}

func TestATAClassifier_IntermediateSuspicion(t *testing.T) {
	c := NewATAClassifier(testLogger())

	result := c.Classify(domainFeatures(compSolid, echoHypo, marginSmooth, shapeWiderThanTall, calcNone, 11), false)

	assert.Equal(t, "Intermediate Suspicion", result.Category)
	assert.Equal(t, "FNA recommended", result.Action)
}

func TestATAClassifier_LowSuspicion(t *testing.T) {
	c := NewATAClassifier(testLogger())

	result := c.Classify(domainFeatures(compSolid, echoIso, marginSmooth, shapeWiderThanTall, calcNone, 16), false)

	assert.Equal(t, "Low Suspicion", result.Category)
	assert.Equal(t, 15.0, result.BiopsyMM)
	assert.Equal(t, "FNA recommended", result.Action)
}

func TestATAClassifier_VeryLowSuspicionSpongiform(t *testing.T) {
	c := NewATAClassifier(testLogger())

	small := c.Classify(domainFeatures(compSpongiform, echoIso, marginSmooth, shapeWiderThanTall, calcNone, 15), false)
	assert.Equal(t, "Very Low Suspicion", small.Category)
	assert.Equal(t, "Observe", small.Action)

	large := c.Classify(domainFeatures(compSpongiform, echoIso, marginSmooth, shapeWiderThanTall, calcNone, 22), false)
	assert.Equal(t, "Optional FNA or Observation", large.Action)
}

func TestATAClassifier_PureCystBenign(t *testing.T) {
	c := NewATAClassifier(testLogger())

	result := c.Classify(domainFeatures(compPureCyst, echoAnechoic, marginSmooth, shapeWiderThanTall, calcNone, 30), false)

	assert.Equal(t, "Benign", result.Category)
	assert.Equal(t, "No FNA (observe if symptomatic)", result.Action)
}

func TestATAClassifier_IncompleteFeatures(t *testing.T) {
	c := NewATAClassifier(testLogger())

	result := c.Classify(domainFeatures(compSolid, "", marginSmooth, shapeWiderThanTall, calcNone, 12), false)

	assert.Equal(t, "Unclassified", result.Category)
	assert.Equal(t, "Awaiting Inputs", result.Action)
}
