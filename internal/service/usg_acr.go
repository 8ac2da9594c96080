package service

import (
	"github.com/sirupsen/logrus"

	"github.com/thyroid-dss-server/internal/domain"
)

// ACRClassifier assigns the ACR TI-RADS 2017 level from the five-axis point
// score, or applies the standard size thresholds to a manually asserted
// level.
type ACRClassifier struct {
	logger *logrus.Logger
}

// NewACRClassifier creates an ACR TI-RADS 2017 classifier.
func NewACRClassifier(logger *logrus.Logger) *ACRClassifier {
	return &ACRClassifier{logger: logger}
}

// Classify computes the TI-RADS point total and level. A suspicious node
// short-circuits to a node-driven TR5; missing required features yield an
// explicit Unclassified result.
func (c *ACRClassifier) Classify(features domain.USFeatures, suspiciousNode bool) domain.ClassificationResult {
	if suspiciousNode {
		return domain.ClassificationResult{
			Guideline:   domain.GuidelineACR,
			Category:    "TR5 (Node Driven)",
			Description: "Suspicious lymph node presence overrides nodule scoring.",
			Risk:        "High",
			Action:      "FNA of suspicious node",
			Rationale:   "Presence of suspicious node mandates biopsy regardless of nodule score.",
		}
	}

	comp := features.Composition
	echo := features.Echogenicity
	margins := features.Margins
	shape := features.Shape
	foci := features.Calcifications

	if comp == "" || echo == "" || margins == "" || shape == "" || foci == "" {
		return domain.ClassificationResult{
			Guideline:   domain.GuidelineACR,
			Category:    "Unclassified",
			Description: "Incomplete Data",
			Risk:        "Unknown",
			Action:      "Awaiting Inputs",
			Rationale:   "Please select all ultrasound features to get a TI-RADS score.",
		}
	}

	points := 0

	switch comp {
	case compCystic, compPureCyst, compSpongiform:
		// 0 points
	case compMixed, compPartCystic:
		points += 1
	case compSolid:
		points += 2
	}

	switch echo {
	case echoAnechoic:
	case echoHyper, echoIso:
		points += 1
	case echoHypo:
		points += 2
	case echoVeryHypo, echoMarkedlyHypo:
		points += 3
	}

	if shape == shapeTallerThanWide {
		points += 3
	}

	switch margins {
	case marginSmooth, marginIllDefined:
	case marginLobulated, marginIrregular:
		points += 2
	case marginETE:
		points += 3
	}

	switch foci {
	case calcNone, calcLargeComet:
	case calcMacro, "macro":
		points += 1
	case calcPeripheral:
		points += 2
	case calcMicro, "punctate", "micro":
		points += 3
	}

	diameter := 0.0
	if features.MaxDiameterMM != nil {
		diameter = *features.MaxDiameterMM
	}

	c.logger.WithFields(logrus.Fields{
		"points":      points,
		"diameter_mm": diameter,
	}).Debug("ACR TI-RADS points computed")

	return c.categorize(points, diameter)
}

// ClassifyManual applies the standard TI-RADS size thresholds to a directly
// asserted level, for reports where the radiologist already graded the
// nodule.
func (c *ACRClassifier) ClassifyManual(level string, diameterMM float64) domain.ClassificationResult {
	var points int
	switch level {
	case "TR1":
		points = 0
	case "TR2":
		points = 2
	case "TR3":
		points = 3
	case "TR4":
		points = 4
	case "TR5":
		points = 7
	default:
		return domain.ClassificationResult{
			Guideline:   domain.GuidelineACR,
			Category:    "Unclassified",
			Description: "Unknown TI-RADS level",
			Risk:        "Unknown",
			Action:      "Awaiting Inputs",
			Rationale:   "Manual TI-RADS level must be one of TR1 through TR5.",
		}
	}
	return c.categorize(points, diameterMM)
}

// categorize maps a point total and diameter onto the TI-RADS bands. The
// published chart defines TR1 at 0 points and TR2 at 2; single-point totals
// fall into the gap and are treated as TR1.
func (c *ACRClassifier) categorize(points int, diameterMM float64) domain.ClassificationResult {
	result := domain.ClassificationResult{
		Guideline: domain.GuidelineACR,
		Score:     points,
	}

	switch {
	case points >= 7:
		result.Category = "TR5"
		result.Description = "Highly Suspicious"
		result.Risk = ">20%"
		result.BiopsyMM = 10
		result.FollowMM = 5
		switch {
		case diameterMM >= 10:
			result.Action = "FNA recommended"
		case diameterMM >= 5:
			result.Action = "US Follow-up"
		default:
			result.Action = "No Follow-up typically required (<0.5cm)"
		}
		result.Rationale = "TR5: Highly suspicious. Biopsy >= 1cm, Follow-up >= 0.5cm."

	case points >= 4:
		result.Category = "TR4"
		result.Description = "Moderately Suspicious"
		result.Risk = "5-20%"
		result.BiopsyMM = 15
		result.FollowMM = 10
		switch {
		case diameterMM >= 15:
			result.Action = "FNA recommended"
		case diameterMM >= 10:
			result.Action = "US Follow-up"
		default:
			result.Action = "No Follow-up required (<1cm)"
		}
		result.Rationale = "TR4: Moderately suspicious. Biopsy >= 1.5cm, Follow-up >= 1cm."

	case points == 3:
		result.Category = "TR3"
		result.Description = "Mildly Suspicious"
		result.Risk = "5%"
		result.BiopsyMM = 25
		result.FollowMM = 15
		switch {
		case diameterMM >= 25:
			result.Action = "FNA recommended"
		case diameterMM >= 15:
			result.Action = "US Follow-up"
		default:
			result.Action = "No Follow-up required (<1.5cm)"
		}
		result.Rationale = "TR3: Mildly suspicious. Biopsy >= 2.5cm, Follow-up >= 1.5cm."

	case points == 2:
		result.Category = "TR2"
		result.Description = "Not Suspicious"
		result.Risk = "<2%"
		result.Action = "No FNA"
		result.Rationale = "TR2: Not suspicious. No biopsy required."

	default:
		result.Category = "TR1"
		result.Description = "Benign"
		result.Risk = "<2%"
		result.Action = "No FNA"
		result.Rationale = "TR1 (0-1 points): Benign features. No biopsy required."
	}

	return result
}
