package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/thyroid-dss-server/internal/domain"
)

const defaultEvalCacheSize = 512

// EvalCacheStats tracks evaluator cache performance.
type EvalCacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// CaseEvaluator runs the staged cancer-case pipeline. Staging feeds its
// clinical N into the treatment engine; adjuvant selection runs on the
// case as given. Results for identical cases are served from an LRU cache
// keyed by the case's canonical JSON digest.
type CaseEvaluator struct {
	logger    *logrus.Logger
	staging   *StagingEngine
	treatment *TreatmentEngine
	adjuvant  *AdjuvantEngine

	cache   *lru.Cache[string, *domain.CaseResults]
	stats   EvalCacheStats
	statsMu sync.Mutex
}

// NewCaseEvaluator wires the staging, treatment and adjuvant engines.
func NewCaseEvaluator(logger *logrus.Logger) (*CaseEvaluator, error) {
	treatment, err := NewTreatmentEngine(logger)
	if err != nil {
		return nil, fmt.Errorf("init treatment engine: %w", err)
	}
	adjuvant, err := NewAdjuvantEngine(logger)
	if err != nil {
		return nil, fmt.Errorf("init adjuvant engine: %w", err)
	}
	cache, err := lru.New[string, *domain.CaseResults](defaultEvalCacheSize)
	if err != nil {
		return nil, fmt.Errorf("init result cache: %w", err)
	}
	return &CaseEvaluator{
		logger:    logger,
		staging:   NewStagingEngine(logger),
		treatment: treatment,
		adjuvant:  adjuvant,
		cache:     cache,
	}, nil
}

// Evaluate produces staging, initial treatment and adjuvant results for a
// cancer case. The same case always produces the same results, so cache
// hits are returned as-is.
func (e *CaseEvaluator) Evaluate(c *domain.CancerCase) (*domain.CaseResults, error) {
	if c == nil {
		return nil, domain.NewValidationError("case", "case is required", nil)
	}
	if c.Histology != "" && !c.Histology.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidHistology, c.Histology)
	}

	key, err := caseDigest(c)
	if err != nil {
		return nil, fmt.Errorf("hash case: %w", err)
	}
	if cached, ok := e.cache.Get(key); ok {
		e.statsMu.Lock()
		e.stats.Hits++
		e.statsMu.Unlock()
		e.logger.WithField("case_key", key[:12]).Debug("Evaluation cache hit")
		return cached, nil
	}
	e.statsMu.Lock()
	e.stats.Misses++
	e.statsMu.Unlock()

	results := &domain.CaseResults{}

	var staging domain.StagingResult
	e.runPhase("staging", func() {
		staging = e.staging.Compute(c)
		results.Staging = &staging
	})

	// Stage group is an input to adjuvant selection when the caller has
	// not pinned one. Filled on a copy; the caller's record is never
	// touched.
	cc := *c
	if cc.StageGroup == "" {
		cc.StageGroup = staging.StageGroup
	}

	e.runPhase("treatment", func() {
		treatment := e.treatment.ComputeInitial(&cc, staging.N)
		results.Treatment = &treatment
	})

	e.runPhase("adjuvant", func() {
		results.Adjuvant = e.adjuvant.Evaluate(&cc)
	})

	e.cache.Add(key, results)
	e.logger.WithFields(logrus.Fields{
		"histology":   c.Histology,
		"stage_group": staging.StageGroup,
		"tnm":         fmt.Sprintf("%s %s %s", staging.T, staging.N, staging.M),
	}).Info("Case evaluation complete")
	return results, nil
}

// runPhase executes one pipeline phase with a panic guard, so a failure in
// one engine still yields partial results from the others.
func (e *CaseEvaluator) runPhase(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.WithFields(logrus.Fields{
				"phase": name,
				"panic": r,
			}).Error("Evaluation phase failed")
		}
	}()
	fn()
}

// CacheStats returns a snapshot of the evaluation cache counters.
func (e *CaseEvaluator) CacheStats() EvalCacheStats {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	return e.stats
}

// caseDigest is the SHA-256 of the case's JSON encoding. encoding/json
// emits struct fields in declaration order, so equal cases hash equal.
func caseDigest(c *domain.CancerCase) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
