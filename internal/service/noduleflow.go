package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/thyroid-dss-server/internal/domain"
	"github.com/thyroid-dss-server/internal/rules"
)

// NoduleFlowService runs the nodule workup state machine: post-op histology
// review, the hot-nodule scan override, input completeness gating, the
// legacy suppressed-TSH precheck, then the selected guideline's classifier
// with cytology-aware action mapping.
type NoduleFlowService struct {
	logger *logrus.Logger
	ata    *ATAClassifier
	bta    *BTAClassifier
	acr    *ACRClassifier

	postOpModule      *rules.RuleModule
	discordanceModule *rules.RuleModule
	precheckModule    *rules.RuleModule
}

// NewNoduleFlowService creates the flow service and compiles its built-in
// rule modules.
func NewNoduleFlowService(logger *logrus.Logger) (*NoduleFlowService, error) {
	postOp, err := rules.LoadModule([]byte(postOpRulesJSON))
	if err != nil {
		return nil, fmt.Errorf("compile post-op rules: %w", err)
	}
	discordance, err := rules.LoadModule([]byte(discordanceRulesJSON))
	if err != nil {
		return nil, fmt.Errorf("compile discordance rules: %w", err)
	}
	precheck, err := rules.LoadModule([]byte(precheckRulesJSON))
	if err != nil {
		return nil, fmt.Errorf("compile precheck rules: %w", err)
	}
	return &NoduleFlowService{
		logger:            logger,
		ata:               NewATAClassifier(logger),
		bta:               NewBTAClassifier(logger),
		acr:               NewACRClassifier(logger),
		postOpModule:      postOp,
		discordanceModule: discordance,
		precheckModule:    precheck,
	}, nil
}

// caseContext flattens a case into the map form the rule conditions expect.
func caseContext(c *domain.NoduleCase) map[string]interface{} {
	raw, err := json.Marshal(c)
	if err != nil {
		return map[string]interface{}{}
	}
	var ctx map[string]interface{}
	if err := json.Unmarshal(raw, &ctx); err != nil {
		return map[string]interface{}{}
	}
	return ctx
}

// firstMatch runs a compiled module against the case context.
func firstMatch(module *rules.RuleModule, ctx map[string]interface{}) *rules.Match {
	for _, rule := range module.Rules {
		if rule.Matches(ctx) {
			return &rules.Match{RuleID: rule.ID, Effect: rule.Then}
		}
	}
	return nil
}

// Evaluate produces the single recommended next action for the case.
// Evaluation is a pure function of the case snapshot; calling it twice with
// the same input yields the same result.
func (s *NoduleFlowService) Evaluate(c *domain.NoduleCase) domain.ActionResult {
	if result := s.evaluatePostOp(c); result != nil {
		return *result
	}

	// Scan override runs before the completeness gate: a concordant hot
	// nodule is a toxic adenoma and needs no diameter to dispose of.
	if c.ScanPattern == domain.ScanHotNodule && c.ScanConcordant != nil && *c.ScanConcordant {
		return domain.ActionResult{
			Step:   domain.StepPrecheck,
			Action: domain.ActionTreatHyperthyroidism,
			Why: "Scan confirms Toxic Adenoma. Biopsy is NOT indicated (Hot Nodule override). " +
				"The nodule is hyperfunctioning with <1% malignancy risk. Proceed to Hyperthyroid Treatment (RAI, ATDs, or Surgery).",
		}
	}

	if c.TSH == nil || c.Features.MaxDiameterMM == nil {
		return domain.ActionResult{
			Step:   domain.StepUSFNA,
			Action: domain.ActionAwaitingInputs,
			Why:    "Please provide TSH and Nodule Size to receive a recommendation.",
		}
	}

	// Legacy suppressed-TSH precheck, only when no scan was performed and
	// the user has not elected to continue anyway. An omitted scan_pattern
	// counts as not performed.
	if !c.ContinueDespiteLowTSH && (c.ScanPattern == "" || c.ScanPattern == domain.ScanNotPerformed) {
		if match := firstMatch(s.precheckModule, caseContext(c)); match != nil {
			return domain.ActionResult{
				Step:     domain.StepPrecheck,
				Action:   domain.NoduleAction(match.Effect.Action),
				Why:      match.Effect.Reason,
				Metadata: match.Effect.Metadata,
			}
		}
	}

	switch c.Guideline {
	case domain.GuidelineBTA:
		return s.evaluateBTA(c)
	case domain.GuidelineATA:
		return s.evaluateATA(c)
	case domain.GuidelineACR:
		return s.evaluateACR(c)
	}

	return domain.ActionResult{
		Step:   domain.StepUSFNA,
		Action: domain.ActionAwaitingInputs,
		Why:    "No matching rule found or guideline not supported.",
	}
}

// evaluatePostOp reviews final pathology when present. Nil means the case
// has no post-op histology to act on, or the histology carries no further
// action from this step.
func (s *NoduleFlowService) evaluatePostOp(c *domain.NoduleCase) *domain.ActionResult {
	if c.PostOp == nil || c.PostOp.FinalHistology == "" {
		return nil
	}

	if match := firstMatch(s.postOpModule, caseContext(c)); match != nil {
		s.logger.WithFields(logrus.Fields{
			"rule_id": match.RuleID,
			"action":  match.Effect.Action,
		}).Debug("Post-op histology rule matched")
		return &domain.ActionResult{
			Step:                domain.StepPostOp,
			Action:              domain.NoduleAction(match.Effect.Action),
			Why:                 match.Effect.Reason,
			ProceedToManagement: match.Effect.Metadata["proceed_to_management"] == "true",
		}
	}

	// Any remaining confirmed malignancy defaults to completion surgery.
	// NIFTP is handled by rule and is not malignant for this purpose.
	final := c.PostOp.FinalHistology
	if final == "NIFTP" {
		return nil
	}
	why := fmt.Sprintf("Malignancy (%s) confirmed on final pathology. Completion thyroidectomy is typically recommended to enable adjuvant therapy and simplify surveillance.", final)
	switch final {
	case "PTC":
		why = "Final pathology confirmed Papillary Thyroid Carcinoma. Completion thyroidectomy is recommended."
	case "Poorly-differentiated":
		why = "Final pathology confirmed Poorly-differentiated Carcinoma. Completion thyroidectomy is strongly recommended."
	}
	return &domain.ActionResult{
		Step:                domain.StepPostOp,
		Action:              domain.ActionRecommendCompletionTT,
		Why:                 why,
		ProceedToManagement: true,
	}
}

// checkDiscordance fires when high-risk sonography meets benign cytology.
func (s *NoduleFlowService) checkDiscordance(c *domain.NoduleCase, assignedPattern, assignedU string) *domain.ActionResult {
	classified := *c
	classified.AssignedPattern = assignedPattern
	classified.AssignedU = assignedU
	if match := firstMatch(s.discordanceModule, caseContext(&classified)); match != nil {
		return &domain.ActionResult{
			Step:   domain.StepPostFNA,
			Action: domain.NoduleAction(match.Effect.Action),
			Why:    match.Effect.Reason,
		}
	}
	return nil
}

// postFNAResult looks up the cytology management table for the category.
func postFNAResult(system domain.CytologySystem, cat string, malignant bool) *domain.ActionResult {
	for _, rule := range postFNAActions[system] {
		if rule.Cat != cat {
			continue
		}
		return &domain.ActionResult{
			Step:                domain.StepPostFNA,
			Action:              rule.Action,
			Why:                 rule.Why,
			IntervalMonths:      rule.IntervalMonths,
			ProceedToManagement: malignant,
		}
	}
	return nil
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func washoutFor(c *domain.NoduleCase) domain.Washout {
	if c.CalcitoninElevated {
		return domain.WashoutCalcitonin
	}
	return domain.WashoutTg
}

func (s *NoduleFlowService) evaluateBTA(c *domain.NoduleCase) domain.ActionResult {
	// BTA treats hyperechoic as isoechoic for scoring.
	features := c.Features
	if features.Echogenicity == echoHyper {
		features.Echogenicity = echoIso
	}
	btaResult := s.bta.Classify(features, c.NodeSuspicious)

	assignedU := ""
	if len(btaResult.Category) >= 2 && btaResult.Category[0] == 'U' {
		assignedU = btaResult.Category[:2]
	}

	if c.CytologySystem == domain.SystemRCPath && c.RCPathThy != "" {
		if result := s.checkDiscordance(c, "", assignedU); result != nil {
			return *result
		}
		if result := postFNAResult(domain.SystemRCPath, string(c.RCPathThy), c.RCPathThy.IsMalignant()); result != nil {
			return *result
		}
	}

	actionMap := map[string]domain.NoduleAction{
		"FNA of suspicious node (mandatory)": domain.ActionFNANodeWithWashout,
		"FNA recommended":                    domain.ActionFNAPrimary,
		"Observe with repeat US":             domain.ActionUSSurveillance,
		"Observe with follow-up":             domain.ActionUSSurveillance,
		"Surveillance":                       domain.ActionUSSurveillance,
		"Observe":                            domain.ActionUSSurveillance,
		"Optional FNA or Observe":            domain.ActionConsiderFNAOrObserve,
		"No FNA":                             domain.ActionNoFNARoutine,
	}
	action, ok := actionMap[btaResult.Action]
	if !ok {
		action = domain.ActionUSSurveillance
	}

	result := domain.ActionResult{
		Step:            domain.StepUSFNA,
		Action:          action,
		Why:             btaResult.Rationale,
		AssignedPattern: btaResult.Category,
	}
	if action == domain.ActionFNANodeWithWashout {
		result.Washout = washoutFor(c)
	}
	return result
}

func (s *NoduleFlowService) evaluateATA(c *domain.NoduleCase) domain.ActionResult {
	ataResult := s.ata.Classify(c.Features, c.NodeSuspicious)

	patternMap := map[string]string{
		"High Suspicion":         "ATA_high",
		"Intermediate Suspicion": "ATA_intermediate",
		"Low Suspicion":          "ATA_low",
		"Very Low Suspicion":     "ATA_very_low",
		"Benign":                 "ATA_benign",
	}
	assignedPattern := patternMap[ataResult.Category]

	if c.CytologySystem == domain.SystemBethesda && c.BethesdaCat != "" {
		if result := s.checkDiscordance(c, assignedPattern, ""); result != nil {
			return *result
		}
		if result := postFNAResult(domain.SystemBethesda, string(c.BethesdaCat), c.BethesdaCat.IsMalignant()); result != nil {
			return *result
		}
	}

	actionMap := map[string]domain.NoduleAction{
		"FNA recommended":                  domain.ActionFNAPrimary,
		"Observe":                          domain.ActionUSSurveillance,
		"Optional FNA or Observation":      domain.ActionConsiderFNAOrObserve,
		"No FNA (observe if symptomatic)":  domain.ActionNoFNATherapeuticAspiration,
		"FNA of suspicious lymph node":     domain.ActionFNANodeWithWashout,
		"Clinical correlation and follow-up": domain.ActionUSSurveillance,
		"Awaiting Inputs":                  domain.ActionAwaitingInputs,
	}
	action, ok := actionMap[ataResult.Action]
	if !ok {
		action = domain.ActionUSSurveillance
	}

	result := domain.ActionResult{
		Step:            domain.StepUSFNA,
		Action:          action,
		Why:             ataResult.Rationale,
		AssignedPattern: ataResult.Category,
	}
	if action == domain.ActionFNANodeWithWashout {
		result.Washout = washoutFor(c)
	}
	// High-risk patterns with a primary FNA recommendation may hand off
	// directly to cancer management.
	highRisk := assignedPattern == "ATA_high" || assignedPattern == "ATA_intermediate"
	result.ProceedToManagement = highRisk && action == domain.ActionFNAPrimary
	return result
}

func (s *NoduleFlowService) evaluateACR(c *domain.NoduleCase) domain.ActionResult {
	diameter := 0.0
	if c.Features.MaxDiameterMM != nil {
		diameter = *c.Features.MaxDiameterMM
	}

	var acrResult domain.ClassificationResult
	if c.ManualTIRADSLevel != "" {
		acrResult = s.acr.ClassifyManual(c.ManualTIRADSLevel, diameter)
	} else {
		features := c.Features
		// A pure cyst reads as anechoic on the ACR echogenicity axis.
		if features.Composition == compPureCyst {
			features.Echogenicity = echoAnechoic
		}
		if features.ETE {
			features.Margins = marginETE
		}
		acrResult = s.acr.Classify(features, c.NodeSuspicious)
	}

	if c.CytologySystem == domain.SystemBethesda && c.BethesdaCat != "" {
		// ACR levels do not participate in the ATA/BTA discordance
		// patterns; the cytology table applies directly.
		if result := postFNAResult(domain.SystemBethesda, string(c.BethesdaCat), c.BethesdaCat.IsMalignant()); result != nil {
			return *result
		}
	}

	var action domain.NoduleAction
	switch {
	case acrResult.Action == "Awaiting Inputs":
		action = domain.ActionAwaitingInputs
	case acrResult.Action == "FNA of suspicious node":
		action = domain.ActionFNANodeWithWashout
	case containsAny(acrResult.Action, "No FNA", "No Follow-up"):
		action = domain.ActionNoFNARoutine
	case containsAny(acrResult.Action, "FNA"):
		action = domain.ActionFNAPrimary
	default:
		action = domain.ActionUSSurveillance
	}

	result := domain.ActionResult{
		Step:            domain.StepUSFNA,
		Action:          action,
		Why:             acrResult.Rationale,
		AssignedPattern: acrResult.Category,
	}
	if action == domain.ActionFNANodeWithWashout {
		result.Washout = washoutFor(c)
	}
	result.ProceedToManagement = acrResult.Category == "TR5" && action == domain.ActionFNAPrimary
	return result
}
