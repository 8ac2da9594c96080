package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/thyroid-dss-server/internal/domain"
)

const adjuvantTimingNoteRAI = "RAI is administered post-recovery with TSH stimulation and low-iodine diet per protocol."
const adjuvantTimingNoteTSH = "Typical TSH targets: Low-risk 0.5-2; Intermediate 0.1-0.5; High-risk <0.1."

// Adjuvant therapy rules per histology family, ATA 2015 / NCCN / BTA 2017.
// Row order matters within a family.
const adjuvantRulesJSON = `{
  "differentiated": [
    {
      "id": "lobectomy_completion",
      "title": "Completion Thyroidectomy Considered",
      "when_all": [
        {"eq": ["index_surgery", "lobectomy"]},
        {"or": [
          {">": ["largest_focus_cm", 4.0]}, {"eq": ["lymphatic_invasion", true]},
          {"eq": ["vascular_invasion", true]}, {"eq": ["multifocal_macroscopic", true]},
          {"eq": ["hist_variant_high_risk", true]}, {"eq": ["gross_ETE", true]},
          {"in": ["margin_status", ["close", "positive"]]},
          {"in": ["N_pattern", ["N1a_micro", "N1a", "N1b"]]}
        ]}
      ],
      "recommendation": "Consider completion thyroidectomy before adjuvant therapy; reassess risk after total resection.",
      "rationale": "Post-lobectomy adverse features suggest higher risk. Completion thyroidectomy allows for full staging and facilitates RAI for higher-risk disease."
    },
    {
      "id": "lobectomy_surveillance",
      "title": "Observation / TSH Suppression Only",
      "when_all": [{"eq": ["index_surgery", "lobectomy"]}],
      "recommendation": "Observation and TSH suppression; no RAI possible after lobectomy.",
      "rationale": "For low to intermediate-risk DTC without high-risk features on final pathology, lobectomy is considered sufficient treatment. Active surveillance with neck US and thyroglobulin is recommended."
    },
    {
      "id": "low_risk_no_RAI",
      "title": "No Adjuvant Therapy Needed (Low Risk)",
      "when_all": [
        {"eq": ["index_surgery", "total_thyroidectomy"]}, {"<=": ["largest_focus_cm", 2.0]},
        {"eq": ["gross_ETE", false]}, {"in": ["N_pattern", ["N0", "N1a_tiny"]]},
        {"eq": ["tg_ab", false]}, {"<": ["tg_unstim_ng_ml", 1.0]},
        {"eq": ["neck_ultrasound_negative", true]}
      ],
      "recommendation": "TSH suppression to 0.1-0.5 mIU/L. No radioiodine ablation indicated.",
      "rationale": "Low-risk differentiated carcinoma has recurrence <5%; RAI offers no survival benefit."
    },
    {
      "id": "intermediate_selective_RAI",
      "title": "Selective RAI Ablation (Intermediate Risk)",
      "when_all": [
        {"eq": ["index_surgery", "total_thyroidectomy"]},
        {"or": [
          {">": ["largest_focus_cm", 4.0]}, {"eq": ["hist_variant_high_risk", true]},
          {"eq": ["lymphatic_invasion", true]}, {"eq": ["multifocal_macroscopic", true]},
          {"and": [{">=": ["tg_unstim_ng_ml", 1.0]}, {"<": ["tg_unstim_ng_ml", 10.0]}]},
          {"eq": ["margin_status", "close"]}, {"eq": ["N_pattern", "N1a_micro"]}
        ]}
      ],
      "recommendation": "Consider RAI 30-100 mCi for remnant ablation; TSH suppression 0.1-0.5 mIU/L.",
      "rationale": "Intermediate-risk patients may benefit from selective ablation for improved recurrence monitoring and reduced regional relapse."
    },
    {
      "id": "high_risk_routine_RAI",
      "title": "Routine RAI Ablation (High Risk)",
      "when_all": [
        {"eq": ["index_surgery", "total_thyroidectomy"]},
        {"or": [
          {"eq": ["N_pattern", "N1b"]}, {"eq": ["gross_ETE", true]},
          {">=": ["tg_unstim_ng_ml", 10.0]}, {">=": ["nodes_positive_count", 5]},
          {"eq": ["vascular_invasion", true]}, {"eq": ["differentiated_high_grade", true]},
          {"eq": ["margin_status", "positive"]}
        ]}
      ],
      "recommendation": "Adjuvant RAI 100-200 mCi after total thyroidectomy; TSH suppression <0.1 mIU/L.",
      "rationale": "High-risk differentiated thyroid carcinoma benefits from routine RAI to reduce recurrence and disease-specific mortality."
    }
  ],
  "medullary": [
    {
      "id": "MTC_EBRT",
      "title": "EBRT Consideration",
      "when_all": [
        {"or": [
          {"eq": ["margin_status_mtc", "positive"]}, {"eq": ["gross_residual", true]}
        ]}
      ],
      "recommendation": "Consider EBRT 60 Gy to neck/mediastinum to reduce locoregional recurrence.",
      "rationale": "EBRT improves local control when surgical margins are close or residual microscopic disease persists and re-resection is not feasible."
    },
    {
      "id": "MTC_no_adjuvant",
      "title": "No Adjuvant Therapy Indicated",
      "when_all": [{"eq": ["margin_status_mtc", "negative"]}],
      "recommendation": "Observation and serum calcitonin monitoring every 6-12 months.",
      "rationale": "MTC does not uptake iodine; RAI is ineffective. Primary adjuvant management is biochemical surveillance. TSH suppression is not indicated."
    }
  ],
  "anaplastic": [
    {
      "id": "ATC_combined",
      "title": "Combined Modality Therapy",
      "when_all": [
        {"in": ["stage_group", ["IVA", "IVB"]]},
        {"eq": ["resectable", true]}
      ],
      "recommendation": "Concurrent chemoradiation (60 Gy + weekly paclitaxel/carboplatin); consider adjuvant therapy trials.",
      "rationale": "Aggressive adjuvant management improves local control and short-term survival in resectable ATC."
    }
  ]
}`

// adjuvantRule is one row of an adjuvant therapy table.
type adjuvantRule struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	WhenAll        []json.RawMessage `json:"when_all"`
	Recommendation string            `json:"recommendation"`
	Rationale      string            `json:"rationale"`

	conds []*fieldCond
}

// AdjuvantEngine selects post-surgical therapy from per-histology rule
// tables and appends the DTC timing notes.
type AdjuvantEngine struct {
	logger         *logrus.Logger
	differentiated []*adjuvantRule
	medullary      []*adjuvantRule
	anaplastic     []*adjuvantRule
}

// NewAdjuvantEngine compiles the built-in adjuvant rule tables.
func NewAdjuvantEngine(logger *logrus.Logger) (*AdjuvantEngine, error) {
	var tables struct {
		Differentiated []*adjuvantRule `json:"differentiated"`
		Medullary      []*adjuvantRule `json:"medullary"`
		Anaplastic     []*adjuvantRule `json:"anaplastic"`
	}
	if err := json.Unmarshal([]byte(adjuvantRulesJSON), &tables); err != nil {
		return nil, fmt.Errorf("parse adjuvant rules: %w", err)
	}
	for _, set := range [][]*adjuvantRule{tables.Differentiated, tables.Medullary, tables.Anaplastic} {
		for _, rule := range set {
			var err error
			if rule.conds, err = parseFieldConds(rule.WhenAll); err != nil {
				return nil, fmt.Errorf("adjuvant rule %s: %w", rule.ID, err)
			}
		}
	}
	return &AdjuvantEngine{
		logger:         logger,
		differentiated: tables.Differentiated,
		medullary:      tables.Medullary,
		anaplastic:     tables.Anaplastic,
	}, nil
}

// Evaluate picks the first matching rule for the case's histology family.
// Nil is returned only when the case has no histology at all; an unmatched
// case gets the explicit manual-review fallback.
func (e *AdjuvantEngine) Evaluate(c *domain.CancerCase) *domain.AdjuvantOutput {
	if c.Histology == "" {
		return nil
	}

	var ruleset []*adjuvantRule
	switch {
	case c.Histology.IsDifferentiated():
		ruleset = e.differentiated
	case c.Histology == domain.HistologyMedullary:
		ruleset = e.medullary
	case c.Histology == domain.HistologyAnaplastic:
		ruleset = e.anaplastic
	}

	get := adjuvantAccessor(c)
	for _, rule := range ruleset {
		if !allMatch(rule.conds, get) {
			continue
		}

		var notes []string
		if c.Histology.IsDifferentiated() {
			notes = append(notes, adjuvantTimingNoteTSH)
			if strings.Contains(rule.Recommendation, "RAI") {
				notes = append(notes, adjuvantTimingNoteRAI)
			}
		}
		if c.Patient != nil && c.Patient.RAIContraindicated != nil && *c.Patient.RAIContraindicated &&
			strings.Contains(rule.Recommendation, "RAI") {
			notes = append(notes, "RAI is contraindicated in this patient.")
		}

		e.logger.WithFields(logrus.Fields{
			"histology": c.Histology,
			"rule_id":   rule.ID,
		}).Info("Adjuvant rule matched")

		return &domain.AdjuvantOutput{
			Plan:    rule.Recommendation,
			Explain: rule.Rationale,
			Notes:   notes,
		}
	}

	return &domain.AdjuvantOutput{
		Plan:    "No specific recommendation found",
		Explain: "The patient's parameters did not match a specific rule. Please review manually or with MDT.",
	}
}

func allMatch(conds []*fieldCond, get fieldAccessor) bool {
	for _, cond := range conds {
		if ok, _ := cond.eval(get); !ok {
			return false
		}
	}
	return true
}

// adjuvantAccessor enumerates every field the adjuvant rules may reference.
// Unset optional fields report absent and fail their predicates.
func adjuvantAccessor(c *domain.CancerCase) fieldAccessor {
	return func(field string) (interface{}, bool) {
		switch field {
		case "histology":
			return string(c.Histology), c.Histology != ""
		case "stage_group":
			// Accept both the bare group ("IVB") and the staging engine's
			// long form ("Stage IVB").
			group := strings.TrimPrefix(c.StageGroup, "Stage ")
			return group, group != ""
		case "rai_contraindicated":
			if c.Patient == nil {
				return nil, false
			}
			return boolField(c.Patient.RAIContraindicated)
		case "index_surgery":
			return string(c.IndexSurgery), c.IndexSurgery != ""
		case "largest_focus_cm":
			return floatField(c.LargestFocusCM)
		case "gross_ETE":
			return boolField(c.GrossETE)
		case "N_pattern":
			return c.NPattern, c.NPattern != ""
		case "nodes_positive_count":
			if c.NodesPositiveCount == nil {
				return nil, false
			}
			return *c.NodesPositiveCount, true
		case "lymphatic_invasion":
			return boolField(c.LymphaticInvasion)
		case "vascular_invasion":
			return boolField(c.VascularInvasion)
		case "multifocal_macroscopic":
			return boolField(c.MultifocalMacroscopic)
		case "hist_variant_high_risk":
			return boolField(c.HistVariantHighRisk)
		case "differentiated_high_grade":
			return boolField(c.DifferentiatedHighGrade)
		case "margin_status":
			return string(c.MarginStatus), c.MarginStatus != ""
		case "tg_unstim_ng_ml":
			return floatField(c.TgUnstimNgML)
		case "tg_ab":
			return boolField(c.TgAb)
		case "neck_ultrasound_negative":
			return boolField(c.NeckUltrasoundNegative)
		case "margin_status_mtc":
			return c.MarginStatusMTC, c.MarginStatusMTC != ""
		case "gross_residual":
			return boolField(c.GrossResidual)
		case "resectable":
			return boolField(c.Resectable)
		}
		return nil, false
	}
}

func floatField(v *float64) (interface{}, bool) {
	if v == nil {
		return nil, false
	}
	return *v, true
}
