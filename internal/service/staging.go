package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/thyroid-dss-server/internal/domain"
)

// stageRule is a single row of an AJCC 8th edition stage group table.
type stageRule struct {
	T     []string
	N     []string
	M     string
	AnyT  bool
	AnyN  bool
	Stage string
}

// Stage group tables per histology family, AJCC 8th edition. Row order
// matters: the first matching row wins.
var dtcStageRulesAge55Plus = []stageRule{
	{T: []string{"T1a", "T1b"}, N: []string{"N0"}, M: "M0", Stage: "Stage I"},
	{T: []string{"T2", "T3a", "T3b"}, N: []string{"N0"}, M: "M0", Stage: "Stage II"},
	{T: []string{"T1a", "T1b", "T2", "T3a", "T3b"}, N: []string{"N1a", "N1b"}, M: "M0", Stage: "Stage II"},
	{T: []string{"T4a"}, AnyN: true, M: "M0", Stage: "Stage III"},
	{T: []string{"T4b"}, AnyN: true, M: "M0", Stage: "Stage IVA"},
	{AnyT: true, AnyN: true, M: "M1", Stage: "Stage IVB"},
}

var mtcStageRules = []stageRule{
	{T: []string{"T1a", "T1b"}, N: []string{"N0"}, M: "M0", Stage: "Stage I"},
	{T: []string{"T2", "T3"}, N: []string{"N0"}, M: "M0", Stage: "Stage II"},
	{T: []string{"T1a", "T1b", "T2", "T3"}, N: []string{"N1a"}, M: "M0", Stage: "Stage III"},
	{T: []string{"T1a", "T1b", "T2", "T3"}, N: []string{"N1b"}, M: "M0", Stage: "Stage IVA"},
	{T: []string{"T4a"}, AnyN: true, M: "M0", Stage: "Stage IVA"},
	{T: []string{"T4b"}, AnyN: true, M: "M0", Stage: "Stage IVB"},
	{AnyT: true, AnyN: true, M: "M1", Stage: "Stage IVC"},
}

// Anaplastic carcinoma is always stage IV. This table matches exact T codes
// rather than T stems.
var atcStageRules = []stageRule{
	{T: []string{"T1a", "T1b", "T2", "T3a"}, N: []string{"N0"}, M: "M0", Stage: "Stage IVA"},
	{T: []string{"T1a", "T1b", "T2", "T3a"}, N: []string{"N1"}, M: "M0", Stage: "Stage IVB"},
	{T: []string{"T3b", "T4a", "T4b"}, AnyN: true, M: "M0", Stage: "Stage IVB"},
	{AnyT: true, AnyN: true, M: "M1", Stage: "Stage IVC"},
}

// Gross extension planes in T precedence order.
var (
	t4bPlanes = []string{"prevertebral", "carotid/mediastinal"}
	t4aPlanes = []string{"subcut", "larynx", "trachea", "esophagus", "RLN"}
)

// StagingEngine computes the AJCC 8th edition TNM categories and stage
// group.
type StagingEngine struct {
	logger *logrus.Logger
}

// NewStagingEngine creates a staging engine.
func NewStagingEngine(logger *logrus.Logger) *StagingEngine {
	return &StagingEngine{logger: logger}
}

// Compute stages the case. When no table row matches, or age is missing for
// a differentiated carcinoma, the stage group is Unknown with an explanatory
// basis rather than a guessed stage.
func (e *StagingEngine) Compute(c *domain.CancerCase) domain.StagingResult {
	tCat, tWhy := e.computeT(c)
	nCat, nWhy := e.computeN(c)
	mCat, mWhy := e.computeM(c)
	stage, stageWhy := e.computeStage(tCat, nCat, mCat, c)

	e.logger.WithFields(logrus.Fields{
		"histology": c.Histology,
		"t":         tCat,
		"n":         nCat,
		"m":         mCat,
		"stage":     stage,
	}).Info("Staging computed")

	return domain.StagingResult{
		T:          tCat,
		N:          nCat,
		M:          mCat,
		StageGroup: stage,
		Basis:      strings.Join([]string{tWhy, nWhy, mWhy, stageWhy}, " "),
	}
}

func (e *StagingEngine) computeT(c *domain.CancerCase) (string, string) {
	var planes []string
	var size *float64
	if c.Primary != nil {
		planes = c.Primary.GrossETEPlanes
		size = c.Primary.SizeCM
	}

	if hasAnyPlane(planes, t4bPlanes) {
		return "T4b", "Very advanced disease: invasion of prevertebral fascia, carotid artery, or mediastinal vessels."
	}
	if hasAnyPlane(planes, t4aPlanes) {
		return "T4a", "Gross extrathyroidal extension into subcutaneous tissue, larynx, trachea, esophagus, or recurrent laryngeal nerve."
	}
	if hasAnyPlane(planes, []string{"strap"}) {
		return "T3b", "Minimal extrathyroidal extension (invasion of strap muscles only)."
	}

	if size != nil {
		switch {
		case *size > 4:
			// MTC uses an undivided T3; DTC and ATC split it into T3a/T3b.
			if c.Histology == domain.HistologyMedullary {
				return "T3", "Tumor >4cm, limited to thyroid."
			}
			return "T3a", "Tumor >4cm, limited to thyroid."
		case *size > 2:
			return "T2", "Tumor >2cm but <=4cm, limited to thyroid."
		case *size > 1:
			return "T1b", "Tumor >1cm but <=2cm, limited to thyroid."
		default:
			return "T1a", "Tumor <=1cm, limited to thyroid."
		}
	}

	return "TX", "Primary tumor cannot be assessed."
}

func (e *StagingEngine) computeN(c *domain.CancerCase) (string, string) {
	if c.Nodes != nil && c.Nodes.LateralNeckOrRetropharyngeal {
		if c.Histology == domain.HistologyMedullary {
			return "N1b", "Metastasis to lateral cervical or mediastinal nodes."
		}
		return "N1b", "Metastasis to lateral neck (I-V) or retropharyngeal nodes."
	}
	if c.Nodes != nil && c.Nodes.LevelVIVII {
		if c.Histology == domain.HistologyMedullary {
			return "N1a", "Metastasis to central compartment (Level VI) nodes."
		}
		return "N1a", "Metastasis to central compartment (VI) or upper mediastinal (VII) nodes."
	}
	return "N0", "No clinical evidence of regional lymph node metastasis."
}

func (e *StagingEngine) computeM(c *domain.CancerCase) (string, string) {
	if c.Metastasis != nil && c.Metastasis.Confirmed {
		return "M1", "Distant metastasis confirmed."
	}
	return "M0", "No distant metastasis."
}

func (e *StagingEngine) computeStage(t, n, m string, c *domain.CancerCase) (string, string) {
	switch {
	case c.Histology.IsDifferentiated():
		if c.Patient == nil || c.Patient.AgeYears == nil {
			return "Unknown", "Patient age is required for DTC staging."
		}
		age := *c.Patient.AgeYears
		if age < 55 {
			stage := "Stage I"
			if m == "M1" {
				stage = "Stage II"
			}
			return stage, "Patient age < 55. Stage is determined solely by metastatic status."
		}
		for _, rule := range dtcStageRulesAge55Plus {
			if rule.matches(t, n, m, true) {
				return rule.Stage, "Patient age >= 55. TNM combination matches " + rule.Stage + " criteria."
			}
		}

	case c.Histology == domain.HistologyMedullary:
		for _, rule := range mtcStageRules {
			if rule.matches(t, n, m, true) {
				return rule.Stage, "TNM combination matches " + rule.Stage + " criteria for MTC."
			}
		}

	case c.Histology == domain.HistologyAnaplastic:
		for _, rule := range atcStageRules {
			if rule.matches(t, n, m, false) {
				return rule.Stage, "All anaplastic carcinomas are considered Stage IV."
			}
		}
	}

	return "Unknown", "No matching staging rule found for the provided inputs."
}

// matches checks a table row against computed TNM. T comparison is by prefix
// for DTC and MTC (rows are authored against T stems) and exact for ATC.
func (r stageRule) matches(t, n, m string, tPrefix bool) bool {
	tMatch := r.AnyT
	if !tMatch {
		for _, cand := range r.T {
			if (tPrefix && strings.HasPrefix(t, cand)) || (!tPrefix && t == cand) {
				tMatch = true
				break
			}
		}
	}
	nMatch := r.AnyN
	if !nMatch {
		for _, cand := range r.N {
			if n == cand {
				nMatch = true
				break
			}
		}
	}
	return tMatch && nMatch && m == r.M
}

func hasAnyPlane(planes, wanted []string) bool {
	for _, p := range planes {
		for _, w := range wanted {
			if p == w {
				return true
			}
		}
	}
	return false
}
