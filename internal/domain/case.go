package domain

// The case records below are the root entities a clinician builds up across a
// workflow. Every field is optional until explicitly set; pointer fields keep
// "unknown" distinct from a negative finding, which matters clinically (an
// unmeasured TSH is not a normal TSH). Callers replace the whole record on
// every edit; the evaluation services never mutate it.

// USFeatures holds the sonographic features of the index nodule.
type USFeatures struct {
	Composition    string   `json:"composition,omitempty"`     // solid | part_cystic | pure_cyst | spongiform
	Echogenicity   string   `json:"echogenicity,omitempty"`    // markedly_hypoechoic | hypoechoic | isoechoic | hyperechoic
	Margins        string   `json:"margins,omitempty"`         // smooth | irregular | lobulated | ill_defined
	Shape          string   `json:"shape,omitempty"`           // taller_than_wide | wider_than_tall
	Calcifications string   `json:"calcifications,omitempty"`  // microcalcifications | macrocalcifications | peripheral | none
	Vascularity    string   `json:"vascularity,omitempty"`     // none | peripheral | central
	ETE            bool     `json:"extrathyroidal_extension"`
	MaxDiameterMM  *float64 `json:"max_diameter_mm,omitempty"`
}

// PostOpHistology captures the final pathology after a diagnostic lobectomy.
type PostOpHistology struct {
	FinalHistology          string       `json:"final_histology,omitempty"` // PTC | FTC | Oncocytic | NIFTP | Poorly-differentiated
	MarginStatus            MarginStatus `json:"margin_status,omitempty"`
	GrossETE                bool         `json:"gross_ete"`
	VascularInvasionVessels string       `json:"vascular_invasion_vessels,omitempty"` // none | 1-3 | >=4
	WidelyInvasive          bool         `json:"widely_invasive"`
	NodesPathPositive       bool         `json:"nodes_path_positive"`
}

// NoduleCase is the full snapshot of a thyroid nodule workup.
type NoduleCase struct {
	PatientAge *int   `json:"patient_age,omitempty"`
	PatientSex string `json:"patient_sex,omitempty"`

	TSH *float64 `json:"tsh,omitempty"`

	ScanPattern            ScanPattern `json:"scan_pattern,omitempty"`
	ScanConcordant         *bool       `json:"scan_concordant,omitempty"`
	ContinueDespiteLowTSH  bool        `json:"continue_despite_low_tsh"`

	Guideline         Guideline  `json:"guideline,omitempty"`
	ManualTIRADSLevel string     `json:"manual_ti_rads_level,omitempty"` // TR1..TR5, asserted directly
	Features          USFeatures `json:"features"`

	NodeSuspicious     bool `json:"node_suspicious"`
	CalcitoninElevated bool `json:"calcitonin_elevated"`

	// Derived during evaluation, visible to discordance rules.
	AssignedPattern string `json:"assigned_pattern,omitempty"`
	AssignedU       string `json:"assigned_u,omitempty"`

	CytologySystem CytologySystem   `json:"cytology_system,omitempty"`
	BethesdaCat    BethesdaCategory `json:"bethesda_cat,omitempty"`
	RCPathThy      RCPathCategory   `json:"rcpath_thy,omitempty"`

	NodeFNAPerformed bool   `json:"node_fna_performed"`
	NodeFNAResult    string `json:"node_fna_result,omitempty"`

	PostOp *PostOpHistology `json:"post_op_histology,omitempty"`
}

// PrimaryTumor describes the primary lesion for staging.
type PrimaryTumor struct {
	SizeCM        *float64 `json:"size_cm,omitempty"`
	GrossETEPlanes []string `json:"gross_ete_planes,omitempty"` // strap | subcut | larynx | trachea | esophagus | RLN | prevertebral | carotid/mediastinal
}

// NodalDisease describes regional lymph node involvement.
type NodalDisease struct {
	LevelVIVII                  bool `json:"level_vi_vii"`
	LateralNeckOrRetropharyngeal bool `json:"lateral_neck_or_retropharyngeal"`
	InvasionOfCriticalStructures bool `json:"invasion_of_critical_structures"`
}

// Metastasis describes distant disease.
type Metastasis struct {
	Confirmed bool     `json:"confirmed"`
	Suspected bool     `json:"suspected"`
	Sites     []string `json:"sites,omitempty"`
}

// Patient holds demographics and treatment contraindications.
type Patient struct {
	AgeYears                *int  `json:"age_years,omitempty"`
	RAIContraindicated      *bool `json:"rai_contraindicated,omitempty"`
	PheochromocytomaRuledOut *bool `json:"pheochromocytoma_ruled_out,omitempty"`
}

// CancerCase is the full snapshot of a thyroid cancer management case,
// covering staging, initial surgery and adjuvant therapy decisions.
type CancerCase struct {
	Histology  Histology `json:"histology,omitempty"`
	Resectable *bool     `json:"resectable,omitempty"`

	Primary    *PrimaryTumor `json:"primary,omitempty"`
	Nodes      *NodalDisease `json:"nodes,omitempty"`
	Metastasis *Metastasis   `json:"metastasis,omitempty"`
	Patient    *Patient      `json:"patient,omitempty"`

	// Clinical nodal pattern used by surgery rules (N0, N1a, N1b and the
	// adjuvant refinements N1a_tiny, N1a_micro).
	NPattern string `json:"n_pattern,omitempty"`

	StageGroup string `json:"stage_group,omitempty"` // "II" or "Stage II"; the "Stage " prefix is optional

	// Post-surgical facts driving adjuvant therapy selection.
	IndexSurgery            IndexSurgery `json:"index_surgery,omitempty"`
	LargestFocusCM          *float64     `json:"largest_focus_cm,omitempty"`
	GrossETE                *bool        `json:"gross_ete,omitempty"`
	NodesPositiveCount      *int         `json:"nodes_positive_count,omitempty"`
	LymphaticInvasion       *bool        `json:"lymphatic_invasion,omitempty"`
	VascularInvasion        *bool        `json:"vascular_invasion,omitempty"`
	MultifocalMacroscopic   *bool        `json:"multifocal_macroscopic,omitempty"`
	HistVariantHighRisk     *bool        `json:"hist_variant_high_risk,omitempty"`
	DifferentiatedHighGrade *bool        `json:"differentiated_high_grade,omitempty"`
	MarginStatus            MarginStatus `json:"margin_status,omitempty"`
	TgUnstimNgML            *float64     `json:"tg_unstim_ng_ml,omitempty"`
	TgAb                    *bool        `json:"tg_ab,omitempty"`
	NeckUltrasoundNegative  *bool        `json:"neck_ultrasound_negative,omitempty"`

	// MTC-specific adjuvant facts.
	MarginStatusMTC string `json:"margin_status_mtc,omitempty"` // negative | positive
	GrossResidual   *bool  `json:"gross_residual,omitempty"`
}

// TriageCase is the flattened-context case used by the declarative triage
// rule modules (TSH gating, scan override, hyperthyroid selection, Bethesda
// management, surgery extent).
type TriageCase struct {
	TSHValue  *float64 `json:"tsh_value_miu_l,omitempty"`
	TSHStatus string   `json:"tsh_status,omitempty"` // LOW_OR_SUPPRESSED | NORMAL | HIGH | UNKNOWN

	RedFlags  []string `json:"red_flags,omitempty"`
	Pregnant  bool     `json:"pregnant"`
	Lactating bool     `json:"lactating"`

	USSystem        string   `json:"us_system,omitempty"` // ATA_2015 | ACR_TI_RADS_2017
	SuspiciousNodes bool     `json:"suspicious_cervical_nodes"`
	Pattern         string   `json:"pattern,omitempty"` // HIGH | INTERMEDIATE | LOW | VERY_LOW | TR1..TR5
	SizeCM          *float64 `json:"size_cm,omitempty"`

	ScanPattern string `json:"scan_pattern,omitempty"` // HOT | COLD | WARM | DIFFUSE | PATCHY
	Concordance string `json:"concordance,omitempty"`  // MATCH | MISMATCH | UNCERTAIN

	Etiology            string `json:"etiology,omitempty"` // TOXIC_ADENOMA | TMNG | GRAVES | THYROIDITIS
	CompressiveSymptoms *bool  `json:"compressive_symptoms,omitempty"`
	Preference          string `json:"preference,omitempty"` // RAI | SURGERY | MEDS

	BethesdaCategory        BethesdaCategory `json:"bethesda_category,omitempty"`
	PriorNondiagnosticCount int              `json:"prior_nondiagnostic_count"`
	MolecularAvailable      *bool            `json:"molecular_available,omitempty"`

	MalignancyConfirmed *bool  `json:"malignancy_confirmed,omitempty"`
	NodalStatus         string `json:"nodal_status,omitempty"` // cN0 | cN1a | cN1b
	GrossETE            *bool  `json:"gross_ete,omitempty"`
	Multifocality       *bool  `json:"multifocality,omitempty"`
	DistantMetastasis   *bool  `json:"distant_metastasis,omitempty"`
	BilateralDisease    *bool  `json:"bilateral_disease,omitempty"`
}
