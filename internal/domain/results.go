package domain

// ActionResult is the outcome of a nodule flow evaluation. Exactly one action
// is recommended per evaluation; Why is a human-readable justification and
// NextSteps are ordered clinician instructions.
type ActionResult struct {
	Step                WorkflowStep      `json:"step"`
	Action              NoduleAction      `json:"action"`
	Why                 string            `json:"why,omitempty"`
	NextSteps           []string          `json:"next_steps,omitempty"`
	Washout             Washout           `json:"washout,omitempty"`
	AssignedPattern     string            `json:"assigned_pattern,omitempty"`
	IntervalMonths      string            `json:"interval_months,omitempty"`
	ProceedToManagement bool              `json:"proceed_to_management"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// ClassificationResult is the per-guideline sonographic risk assignment.
type ClassificationResult struct {
	Guideline   Guideline `json:"guideline"`
	Category    string    `json:"category"` // pattern name, U grade or TR level
	Description string    `json:"description,omitempty"`
	Risk        string    `json:"risk,omitempty"`
	Score       int       `json:"score,omitempty"`     // BTA and ACR point totals
	BiopsyMM    float64   `json:"biopsy_mm,omitempty"` // size threshold to biopsy, 0 when none
	FollowMM    float64   `json:"follow_mm,omitempty"` // size threshold to follow, 0 when none
	Action      string    `json:"action"`
	Rationale   string    `json:"rationale,omitempty"`
}

// StagingResult carries the AJCC 8th edition TNM assignment and stage group.
type StagingResult struct {
	T          string `json:"t"`
	N          string `json:"n"`
	M          string `json:"m"`
	StageGroup string `json:"stage_group"` // long form: "Stage I" .. "Stage IVC" | "Unknown"
	Basis      string `json:"basis,omitempty"`
}

// TreatmentRecommendation is a single matched surgical recommendation. The
// indications list collects the reason annotations of every satisfied
// condition, deduplicated and in evaluation order.
type TreatmentRecommendation struct {
	PlanID      string   `json:"plan_id"`
	Label       string   `json:"label"`
	Rationale   string   `json:"rationale,omitempty"`
	Indications []string `json:"indications,omitempty"`
	Levels      []string `json:"levels,omitempty"`
}

// TreatmentOutput bundles the initial surgery recommendations for a case.
type TreatmentOutput struct {
	ThyroidSurgery *TreatmentRecommendation `json:"thyroid_surgery,omitempty"`
	NeckSurgery    *TreatmentRecommendation `json:"neck_surgery,omitempty"`
}

// AdjuvantOutput is the post-surgical therapy recommendation.
type AdjuvantOutput struct {
	Plan    string   `json:"plan"`
	Explain string   `json:"explain,omitempty"`
	Notes   []string `json:"notes,omitempty"`
}

// CaseResults is the aggregate answer for a full cancer case evaluation.
type CaseResults struct {
	Staging   *StagingResult   `json:"staging,omitempty"`
	Treatment *TreatmentOutput `json:"treatment,omitempty"`
	Adjuvant  *AdjuvantOutput  `json:"adjuvant,omitempty"`
}

// TriageStep records one rule module's verdict during pipeline triage.
type TriageStep struct {
	Module   string            `json:"module"`
	RuleID   string            `json:"rule_id,omitempty"`
	Action   string            `json:"action,omitempty"`
	Reason   string            `json:"reason,omitempty"`
	Matched  bool              `json:"matched"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// TriageResult is the ordered trace of a full triage pipeline run plus the
// terminal disposition.
type TriageResult struct {
	Steps       []TriageStep `json:"steps"`
	Disposition string       `json:"disposition,omitempty"`
	Halted      bool         `json:"halted"`
}
