package service

import (
	"github.com/thyroid-dss-server/internal/domain"
)

// postFNARule maps a cytology category to its management action.
type postFNARule struct {
	Cat            string
	Action         domain.NoduleAction
	IntervalMonths string
	Why            string
}

// Post-FNA management tables, keyed by reporting system.
var postFNAActions = map[domain.CytologySystem][]postFNARule{
	domain.SystemBethesda: {
		{
			Cat:    "I",
			Action: domain.ActionRepeatUSGuidedFNA,
			Why:    "Nondiagnostic (Bethesda I). The sample is insufficient for diagnosis. Repeat US-guided FNA is recommended.",
		},
		{
			Cat:            "II",
			Action:         domain.ActionUSSurveillance,
			IntervalMonths: "12-24",
			Why:            "Benign (Bethesda II). Follow-up with ultrasound is recommended. Repeat FNA only if significant growth or new suspicious features are seen.",
		},
		{
			Cat:    "III",
			Action: domain.ActionRepeatFNAOrCNBMolecular,
			Why:    "AUS/FLUS (Bethesda III). This is an indeterminate result. Options include repeat FNA, core biopsy, molecular testing, or diagnostic lobectomy based on US risk and clinical judgment.",
		},
		{
			Cat:    "IV",
			Action: domain.ActionDiagnosticLobectomy,
			Why:    "Follicular Neoplasm (Bethesda IV). FNA cannot distinguish benign from malignant follicular tumors. Diagnostic lobectomy is required for definitive histology.",
		},
		{
			Cat:    "V",
			Action: domain.ActionSurgery,
			Why:    "Suspicious for Malignancy (Bethesda V). High probability of cancer (~60-75%). Proceed to the cancer management module to plan surgery.",
		},
		{
			Cat:    "VI",
			Action: domain.ActionSurgery,
			Why:    "Malignant (Bethesda VI). Confirmed malignancy (~97-99% risk). Proceed to the cancer management module for definitive surgical planning.",
		},
	},
	domain.SystemRCPath: {
		{
			Cat:    "Thy1/1c",
			Action: domain.ActionRepeatUSGuidedFNA,
			Why:    "Nondiagnostic (Thy1/1c). The sample is inadequate for diagnosis. Repeat US-guided FNA is recommended.",
		},
		{
			Cat:            "Thy2/2c",
			Action:         domain.ActionUSSurveillance,
			IntervalMonths: "12-24",
			Why:            "Benign (Thy2/2c). Follow-up with ultrasound is recommended. Consider repeat FNA if US features are high-risk (U4/U5) due to discordance.",
		},
		{
			Cat:    "Thy3a",
			Action: domain.ActionRepeatFNAOrCNBMolecular,
			Why:    "Atypia / Indeterminate (Thy3a). Options include repeat FNA or diagnostic surgery, guided by sonographic (U-class) and clinical risk.",
		},
		{
			Cat:    "Thy3f",
			Action: domain.ActionDiagnosticLobectomy,
			Why:    "Follicular Neoplasm Likely (Thy3f). Histological confirmation is required via diagnostic lobectomy.",
		},
		{
			Cat:    "Thy4",
			Action: domain.ActionSurgery,
			Why:    "Suspicious for Malignancy (Thy4). High suspicion of cancer. Proceed to the cancer management module to plan surgery after MDT discussion.",
		},
		{
			Cat:    "Thy5",
			Action: domain.ActionSurgery,
			Why:    "Malignant (Thy5). Confirmed malignancy. Proceed to the cancer management module for definitive surgical planning.",
		},
	},
}

// Declarative rule modules evaluated by the nodule flow. These compile
// through the same engine as the triage modules, so conditions use the
// operator-keyed encoding.
const postOpRulesJSON = `{
  "module": "POST_OP_HISTOLOGY_V1",
  "version": "1.0.0",
  "inputs": ["post_op_histology"],
  "rules": [
    {
      "id": "NIFTP_SURVEILLANCE",
      "priority": 400,
      "when_all": [
        {"eq": ["post_op_histology.final_histology", "NIFTP"]}
      ],
      "then": {
        "action": "SURVEILLANCE_ONLY",
        "reason": "Final pathology is NIFTP, which is managed like a benign entity. No completion thyroidectomy or RAI is indicated. Continue routine surveillance.",
        "metadata": {"proceed_to_management": "false"}
      }
    },
    {
      "id": "MINIMALLY_INVASIVE_FTC",
      "priority": 300,
      "when_all": [
        {"in": ["post_op_histology.final_histology", ["FTC", "Oncocytic"]]},
        {"eq": ["post_op_histology.widely_invasive", false]},
        {"in": ["post_op_histology.vascular_invasion_vessels", ["none", "1-3"]]}
      ],
      "then": {
        "action": "SURVEILLANCE_ONLY",
        "reason": "Final pathology is minimally invasive FTC or Oncocytic carcinoma without significant vascular invasion (fewer than 4 vessels). Lobectomy is considered sufficient treatment.",
        "metadata": {"proceed_to_management": "false"}
      }
    },
    {
      "id": "HIGH_RISK_COMPLETION",
      "priority": 200,
      "when_any": [
        {"eq": ["post_op_histology.margin_status", "positive"]},
        {"eq": ["post_op_histology.gross_ete", true]},
        {"and": [
          {"in": ["post_op_histology.final_histology", ["FTC", "Oncocytic"]]},
          {"eq": ["post_op_histology.vascular_invasion_vessels", ">=4"]}
        ]},
        {"and": [
          {"in": ["post_op_histology.final_histology", ["FTC", "Oncocytic"]]},
          {"eq": ["post_op_histology.widely_invasive", true]}
        ]},
        {"eq": ["post_op_histology.nodes_path_positive", true]}
      ],
      "then": {
        "action": "RECOMMEND_COMPLETION_TT",
        "reason": "High-risk features found on final pathology (e.g., positive margin, gross ETE, extensive vascular invasion, positive nodes) warrant completion thyroidectomy to ensure oncologic control and enable adjuvant therapy if needed.",
        "metadata": {"proceed_to_management": "true"}
      }
    }
  ]
}`

const discordanceRulesJSON = `{
  "module": "CYTOLOGY_DISCORDANCE_V1",
  "version": "1.0.0",
  "inputs": ["assigned_pattern", "assigned_u", "bethesda_cat", "rcpath_thy"],
  "rules": [
    {
      "id": "HIGH_RISK_US_BENIGN_CYTOLOGY",
      "priority": 100,
      "when_all": [
        {"or": [
          {"in": ["assigned_pattern", ["ATA_high", "ATA_intermediate"]]},
          {"in": ["assigned_u", ["U4", "U5"]]}
        ]},
        {"or": [
          {"eq": ["bethesda_cat", "II"]},
          {"eq": ["rcpath_thy", "Thy2/2c"]}
        ]}
      ],
      "then": {
        "action": "REPEAT_FNA_OR_CNB_MOLECULAR",
        "reason": "Discordance: High-risk US features with benign cytology warrants repeat sampling to reduce false negatives."
      }
    }
  ]
}`

const precheckRulesJSON = `{
  "module": "ULTRASOUND_PRECHECKS_V1",
  "version": "1.0.0",
  "inputs": ["tsh", "scan_pattern"],
  "rules": [
    {
      "id": "SUPPRESSED_TSH_OR_HOT",
      "priority": 100,
      "when_all": [
        {"or": [
          {"<": ["tsh", 0.4]},
          {"eq": ["scan_pattern", "hot_nodule"]}
        ]}
      ],
      "then": {
        "action": "NO_FNA_US_FOLLOW_OR_TREAT_HYPERFUNCTION",
        "reason": "Suppressed TSH / hyperfunctioning nodule has very low malignancy risk; FNA usually not indicated unless discordant.",
        "metadata": {"next": "manage_thyrotoxicosis_and_surveillance"}
      }
    }
  ]
}`
