// Package domain contains the core business entities for thyroid nodule and
// thyroid cancer decision support, following the published ATA 2015, BTA 2017,
// ACR TI-RADS 2017, AJCC 8th edition and NCCN guideline rule sets.
//
// Every enumeration here is a closed set: rule tables and classifiers only
// ever emit values defined in this package, which keeps results renderable
// and auditable by the consuming UI layer.
package domain

// Guideline identifies the ultrasound risk-stratification system selected for
// a nodule workup.
type Guideline string

const (
	GuidelineATA Guideline = "ATA"
	GuidelineBTA Guideline = "BTA"
	GuidelineACR Guideline = "ACR"
)

// CytologySystem identifies the FNA cytology reporting system in use.
// Bethesda pairs with ATA/ACR workups, RCPath Thy with BTA.
type CytologySystem string

const (
	SystemBethesda CytologySystem = "Bethesda"
	SystemRCPath   CytologySystem = "RCPath_Thy"
)

// BethesdaCategory is a Bethesda cytology category (I to VI).
type BethesdaCategory string

const (
	BethesdaI   BethesdaCategory = "I"
	BethesdaII  BethesdaCategory = "II"
	BethesdaIII BethesdaCategory = "III"
	BethesdaIV  BethesdaCategory = "IV"
	BethesdaV   BethesdaCategory = "V"
	BethesdaVI  BethesdaCategory = "VI"
)

// IsMalignant reports whether the category confirms or strongly suggests
// malignancy (Bethesda V or VI), which gates handoff to cancer management.
func (b BethesdaCategory) IsMalignant() bool {
	return b == BethesdaV || b == BethesdaVI
}

// RCPathCategory is an RCPath Thy cytology category.
type RCPathCategory string

const (
	Thy1  RCPathCategory = "Thy1/1c"
	Thy2  RCPathCategory = "Thy2/2c"
	Thy3a RCPathCategory = "Thy3a"
	Thy3f RCPathCategory = "Thy3f"
	Thy4  RCPathCategory = "Thy4"
	Thy5  RCPathCategory = "Thy5"
)

// IsMalignant reports whether the category confirms or strongly suggests
// malignancy (Thy4 or Thy5).
func (r RCPathCategory) IsMalignant() bool {
	return r == Thy4 || r == Thy5
}

// ScanPattern is the radionuclide scan result pattern used by the hot-nodule
// override logic.
type ScanPattern string

const (
	ScanNotPerformed  ScanPattern = "not_performed"
	ScanHotNodule     ScanPattern = "hot_nodule"
	ScanDiffuseGraves ScanPattern = "diffuse_graves"
	ScanPatchyMNG     ScanPattern = "patchy_mng"
	ScanColdNodule    ScanPattern = "cold_nodule"
	ScanIndeterminate ScanPattern = "indeterminate_warm"
)

// Histology is the thyroid carcinoma histology family.
type Histology string

const (
	HistologyPapillary  Histology = "DTC_papillary"
	HistologyFollicular Histology = "DTC_follicular"
	HistologyOncocytic  Histology = "DTC_oncocytic"
	HistologyMedullary  Histology = "MTC"
	HistologyAnaplastic Histology = "ATC"
)

// IsDifferentiated reports whether the histology belongs to the
// differentiated (DTC) family, which carries the age-55 staging split.
func (h Histology) IsDifferentiated() bool {
	switch h {
	case HistologyPapillary, HistologyFollicular, HistologyOncocytic:
		return true
	default:
		return false
	}
}

// IsValid validates the histology value.
func (h Histology) IsValid() bool {
	switch h {
	case HistologyPapillary, HistologyFollicular, HistologyOncocytic,
		HistologyMedullary, HistologyAnaplastic:
		return true
	default:
		return false
	}
}

// WorkflowStep tags an ActionResult with the workup stage that produced it.
type WorkflowStep string

const (
	StepPrecheck WorkflowStep = "precheck"
	StepUSFNA    WorkflowStep = "us_fna"
	StepPostFNA  WorkflowStep = "post_fna"
	StepPostOp   WorkflowStep = "post_op"
)

// NoduleAction is the closed enumeration of recommendations the nodule flow
// can emit.
type NoduleAction string

const (
	ActionNoFNAFollowOrTreatHyperfunction NoduleAction = "NO_FNA_US_FOLLOW_OR_TREAT_HYPERFUNCTION"
	ActionTreatHyperthyroidism            NoduleAction = "TREAT_HYPERTHYROIDISM"
	ActionFNAPrimary                      NoduleAction = "FNA_PRIMARY"
	ActionFNANodeWithWashout              NoduleAction = "FNA_NODE_WITH_WASHOUT"
	ActionConsiderFNAOrObserve            NoduleAction = "CONSIDER_FNA_OR_OBSERVE"
	ActionUSSurveillance                  NoduleAction = "US_SURVEILLANCE"
	ActionRepeatUSGuidedFNA               NoduleAction = "REPEAT_US_GUIDED_FNA"
	ActionRepeatFNAOrCNBMolecular         NoduleAction = "REPEAT_FNA_OR_CNB_MOLECULAR"
	ActionDiagnosticLobectomy             NoduleAction = "DIAGNOSTIC_LOBECTOMY"
	ActionSurgery                         NoduleAction = "SURGERY"
	ActionNoFNATherapeuticAspiration      NoduleAction = "NO_FNA_THERAPEUTIC_ASPIRATION_IF_SYMPTOMATIC"
	ActionNoFNARoutine                    NoduleAction = "NO_FNA_ROUTINE"
	ActionRecommendCompletionTT           NoduleAction = "RECOMMEND_COMPLETION_TT"
	ActionSurveillanceOnly                NoduleAction = "SURVEILLANCE_ONLY"
	ActionAwaitingInputs                  NoduleAction = "AWAITING_INPUTS"
)

// Washout identifies which biochemical washout assay accompanies a node FNA.
type Washout string

const (
	WashoutTg         Washout = "Tg_washout"
	WashoutCalcitonin Washout = "Calcitonin_washout"
)

// MarginStatus is the surgical margin status on final pathology.
type MarginStatus string

const (
	MarginNegative MarginStatus = "negative"
	MarginClose    MarginStatus = "close"
	MarginPositive MarginStatus = "positive"
)

// IndexSurgery is the operation already performed before adjuvant decisions.
type IndexSurgery string

const (
	SurgeryLobectomy          IndexSurgery = "lobectomy"
	SurgeryTotalThyroidectomy IndexSurgery = "total_thyroidectomy"
)

// IsValid validates the guideline value.
func (g Guideline) IsValid() bool {
	switch g {
	case GuidelineATA, GuidelineBTA, GuidelineACR:
		return true
	default:
		return false
	}
}

func (g Guideline) String() string  { return string(g) }
func (h Histology) String() string  { return string(h) }
func (a NoduleAction) String() string { return string(a) }
