package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/thyroid-dss-server/internal/domain"
)

// BTAClassifier assigns the BTA 2017 U grade using the additive point score.
type BTAClassifier struct {
	logger *logrus.Logger
}

// NewBTAClassifier creates a BTA 2017 U-grade classifier.
func NewBTAClassifier(logger *logrus.Logger) *BTAClassifier {
	return &BTAClassifier{logger: logger}
}

// Classify scores the nodule into U2 through U5. A suspicious node maps to
// U5 before any scoring; explicitly benign compositions short-circuit to U2.
func (c *BTAClassifier) Classify(features domain.USFeatures, suspiciousNode bool) domain.ClassificationResult {
	if suspiciousNode {
		return domain.ClassificationResult{
			Guideline:   domain.GuidelineBTA,
			Category:    "U5 (Metastatic Pattern)",
			Description: "Suspicious lymph node overrides nodule category.",
			Risk:        "~100%",
			Action:      "FNA of suspicious node (mandatory)",
			Rationale:   "Presence of a pathologic node indicates metastatic disease; FNA is required regardless of nodule size.",
		}
	}

	comp := features.Composition
	if comp == compSpongiform || comp == compCystic || comp == compPureCyst {
		return domain.ClassificationResult{
			Guideline:   domain.GuidelineBTA,
			Category:    "U2 (Benign)",
			Description: "Nodule with benign features (e.g., purely cystic or spongiform).",
			Risk:        "~1-2%",
			Action:      "No FNA",
			Rationale:   "Benign-appearing nodule (U2). No biopsy indicated unless symptomatic.",
		}
	}

	score := 0
	if features.Echogenicity == echoHypo || features.Echogenicity == echoMarkedlyHypo {
		score += 2
	}
	if features.Shape == shapeTallerThanWide {
		score += 3
	}
	if features.Margins == marginIrregular || features.Margins == marginLobulated {
		score += 3
	}
	switch features.Calcifications {
	case calcMicro, "micro":
		score += 3
	case calcMacro, "macro":
		score += 1
	}

	diameter := 0.0
	if features.MaxDiameterMM != nil {
		diameter = *features.MaxDiameterMM
	}

	c.logger.WithFields(logrus.Fields{
		"score":       score,
		"diameter_mm": diameter,
	}).Debug("BTA score computed")

	switch {
	case score >= 5:
		action := "Observe with repeat US"
		if diameter >= 10 {
			action = "FNA recommended"
		}
		return domain.ClassificationResult{
			Guideline:   domain.GuidelineBTA,
			Category:    "U5 (Malignant)",
			Description: fmt.Sprintf("Point score of %d suggests malignant features.", score),
			Risk:        ">= 85-100%",
			Score:       score,
			BiopsyMM:    10,
			Action:      action,
			Rationale:   "High suspicion based on BTA score. FNA indicated if >=1 cm.",
		}
	case score >= 3:
		action := "Observe with follow-up"
		if diameter >= 10 {
			action = "FNA recommended"
		}
		return domain.ClassificationResult{
			Guideline:   domain.GuidelineBTA,
			Category:    "U4 (Suspicious)",
			Description: fmt.Sprintf("Point score of %d suggests suspicious features.", score),
			Risk:        "~60-75%",
			Score:       score,
			BiopsyMM:    10,
			Action:      action,
			Rationale:   "Suspicious features based on BTA score. FNA indicated if >=1 cm.",
		}
	case score == 2:
		action := "Surveillance"
		if diameter >= 15 {
			action = "FNA recommended"
		}
		return domain.ClassificationResult{
			Guideline:   domain.GuidelineBTA,
			Category:    "U3 (Indeterminate)",
			Description: fmt.Sprintf("Point score of %d suggests indeterminate/equivocal features.", score),
			Risk:        "~10-20%",
			Score:       score,
			BiopsyMM:    15,
			Action:      action,
			Rationale:   "Indeterminate features based on BTA score. FNA if >=1.5 cm.",
		}
	default:
		return domain.ClassificationResult{
			Guideline:   domain.GuidelineBTA,
			Category:    "U2 (Benign)",
			Description: fmt.Sprintf("Point score of %d suggests benign/low-risk features.", score),
			Risk:        "~1-2%",
			Score:       score,
			Action:      "No FNA",
			Rationale:   "Very low risk based on BTA score. No biopsy indicated.",
		}
	}
}
