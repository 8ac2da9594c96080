// Package service implements the clinical decision logic: ultrasound risk
// classifiers, the nodule workflow state machine, AJCC staging and the
// treatment and adjuvant therapy rule engines.
package service

import (
	"github.com/sirupsen/logrus"

	"github.com/thyroid-dss-server/internal/domain"
)

// Feature vocabulary shared by the classifiers. The BTA and ACR lexicons use
// slightly different words for the same findings, so each classifier
// normalizes before matching.
const (
	compSolid      = "solid"
	compPartCystic = "part_cystic"
	compMixed      = "mixed"
	compSpongiform = "spongiform"
	compPureCyst   = "pure_cyst"
	compCystic     = "cystic"

	echoAnechoic     = "anechoic"
	echoHyper        = "hyperechoic"
	echoIso          = "isoechoic"
	echoHypo         = "hypoechoic"
	echoMarkedlyHypo = "markedly_hypoechoic"
	echoVeryHypo     = "very_hypoechoic"

	marginSmooth     = "smooth"
	marginIrregular  = "irregular"
	marginLobulated  = "lobulated"
	marginIllDefined = "ill_defined"
	marginETE        = "extrathyroidal"

	shapeTallerThanWide = "taller_than_wide"
	shapeWiderThanTall  = "wider_than_tall"

	calcMicro      = "microcalcifications"
	calcMacro      = "macrocalcifications"
	calcPeripheral = "peripheral"
	calcLargeComet = "large_comet"
	calcNone       = "none"
)

// ATAClassifier assigns the ATA 2015 sonographic pattern and its FNA size
// threshold.
type ATAClassifier struct {
	logger *logrus.Logger
}

// NewATAClassifier creates an ATA 2015 pattern classifier.
func NewATAClassifier(logger *logrus.Logger) *ATAClassifier {
	return &ATAClassifier{logger: logger}
}

// Classify evaluates the nodule's sonographic features. A suspicious cervical
// lymph node overrides all nodule-level logic; missing required features
// produce an explicit Unclassified result instead of a guess.
func (c *ATAClassifier) Classify(features domain.USFeatures, suspiciousNode bool) domain.ClassificationResult {
	if suspiciousNode {
		return domain.ClassificationResult{
			Guideline: domain.GuidelineATA,
			Category:  "Node-driven evaluation",
			Risk:      "Metastatic suspicion",
			Action:    "FNA of suspicious lymph node",
			Rationale: "Presence of a suspicious cervical lymph node overrides nodule thresholds. Perform FNA of the node first.",
		}
	}

	comp := features.Composition
	echo := features.Echogenicity
	margins := features.Margins
	shape := features.Shape
	calc := features.Calcifications

	if comp == "" || echo == "" || margins == "" || shape == "" || calc == "" {
		return domain.ClassificationResult{
			Guideline: domain.GuidelineATA,
			Category:  "Unclassified",
			Risk:      "Incomplete Data",
			Action:    "Awaiting Inputs",
			Rationale: "Please select all ultrasound features to get a recommendation.",
		}
	}

	diameter := 0.0
	if features.MaxDiameterMM != nil {
		diameter = *features.MaxDiameterMM
	}
	hypoechoic := echo == echoHypo || echo == echoMarkedlyHypo

	// High suspicion: solid or partially cystic hypoechoic nodule with at
	// least one high-risk feature.
	if (comp == compSolid || comp == compPartCystic) && hypoechoic &&
		(margins == marginIrregular || margins == marginLobulated ||
			shape == shapeTallerThanWide || calc == calcMicro || features.ETE) {
		return c.result("High Suspicion", "70-90%", 10, diameter,
			"Solid or partially cystic hypoechoic nodule with >=1 high-risk feature. ATA recommends FNA >=1 cm.")
	}

	// Intermediate suspicion: smooth-margin hypoechoic nodule without
	// high-risk features.
	if comp == compSolid && hypoechoic && margins == marginSmooth &&
		shape != shapeTallerThanWide && calc != calcMicro && !features.ETE {
		return c.result("Intermediate Suspicion", "10-20%", 10, diameter,
			"Smooth-margin hypoechoic nodule without high-risk features. FNA indicated >=1 cm.")
	}

	// Low suspicion: iso/hyperechoic or partially cystic with smooth margins.
	if (comp == compSolid || comp == compPartCystic) &&
		(echo == echoIso || echo == echoHyper) &&
		margins == marginSmooth && !features.ETE {
		return c.result("Low Suspicion", "5-10%", 15, diameter,
			"Iso/hyperechoic or partially cystic nodule with smooth margins and no suspicious features. FNA >=1.5 cm.")
	}

	// Very low suspicion: spongiform, or partially cystic without any
	// suspicious feature.
	if comp == compSpongiform ||
		(comp == compPartCystic && echo != echoHypo && !features.ETE && calc != calcMicro) {
		action := "Observe"
		if diameter >= 20 {
			action = "Optional FNA or Observation"
		}
		return domain.ClassificationResult{
			Guideline: domain.GuidelineATA,
			Category:  "Very Low Suspicion",
			Risk:      "<3%",
			BiopsyMM:  20,
			Action:    action,
			Rationale: "Spongiform or partially cystic nodule without suspicious features. FNA optional >=2 cm.",
		}
	}

	if comp == compPureCyst {
		return domain.ClassificationResult{
			Guideline: domain.GuidelineATA,
			Category:  "Benign",
			Risk:      "~0%",
			Action:    "No FNA (observe if symptomatic)",
			Rationale: "Purely cystic nodules are benign; FNA only if symptomatic for drainage.",
		}
	}

	return domain.ClassificationResult{
		Guideline: domain.GuidelineATA,
		Category:  "Unclassified",
		Risk:      "Unknown",
		Action:    "Clinical correlation and follow-up",
		Rationale: "Features do not fit standard ATA categories. Recommend repeat US in 12-24 months.",
	}
}

func (c *ATAClassifier) result(pattern, risk string, thresholdMM, diameterMM float64, rationale string) domain.ClassificationResult {
	action := "Observe"
	if diameterMM >= thresholdMM {
		action = "FNA recommended"
	}
	c.logger.WithFields(logrus.Fields{
		"pattern":     pattern,
		"diameter_mm": diameterMM,
		"action":      action,
	}).Debug("ATA pattern assigned")
	return domain.ClassificationResult{
		Guideline: domain.GuidelineATA,
		Category:  pattern,
		Risk:      risk,
		BiopsyMM:  thresholdMM,
		Action:    action,
		Rationale: rationale,
	}
}
