// Package match implements pairwise compatibility scoring and candidate
// ranking over normalized profile vectors. Scoring is pure computation on
// already-fetched snapshots; callers are responsible for prefetching the
// candidate pool.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/duskbound/affinity/internal/cache"
	"github.com/duskbound/affinity/internal/profile"
	"github.com/duskbound/affinity/internal/ranking"
	"github.com/duskbound/affinity/internal/scoring"
)

// ErrIncompleteProfile is returned when a vector is missing a required
// component (role or a battery). Not retryable until the user supplies
// the missing data.
var ErrIncompleteProfile = errors.New("profile is incomplete")

// Pagination bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// Candidate skip reasons reported in ranking diagnostics.
const (
	SkipIncompleteProfile = "incomplete_profile"
	SkipValidationFailed  = "validation_failed"
	SkipScoringFailed     = "scoring_failed"
)

// PairVersions records which vector versions a result was computed from,
// in canonical (id-sorted) order so the same pair always reports the
// same fingerprint regardless of argument order.
type PairVersions struct {
	UserA    string `json:"user_a"`
	VersionA int64  `json:"version_a"`
	UserB    string `json:"user_b"`
	VersionB int64  `json:"version_b"`
}

// CompatibilityResult is the outcome of scoring one pair.
type CompatibilityResult struct {
	// Score is the compatibility percentage in [0,100].
	Score float64 `json:"score"`

	// Breakdown explains each dimension's sub-score and the effective
	// weight applied to it.
	Breakdown map[string]ranking.BreakdownEntry `json:"breakdown"`

	// ComputedAtVersion is the pair of vector versions used, for cache
	// validation.
	ComputedAtVersion PairVersions `json:"computed_at_version"`
}

// RoleIncompatible reports whether this result was hard-gated to zero by
// the role matrix.
func (r CompatibilityResult) RoleIncompatible() bool {
	entry, ok := r.Breakdown[scoring.DimensionRole]
	return ok && entry.SubScore == 0
}

// RankedCandidate is one entry in a ranked page.
type RankedCandidate struct {
	CandidateID string              `json:"candidate_id"`
	Result      CompatibilityResult `json:"result"`
}

// Diagnostic reports a candidate that was skipped during ranking, out of
// band from the ranked entries themselves.
type Diagnostic struct {
	CandidateID string `json:"candidate_id"`
	Reason      string `json:"reason"`
	Detail      string `json:"detail,omitempty"`
}

// RankRequest describes one candidate ranking call.
type RankRequest struct {
	// Requester must be a complete vector.
	Requester *profile.ProfileVector

	// Pool is the prefetched candidate snapshots to score.
	Pool []*profile.RawProfile

	// Exclude holds userIds the requester has already interacted with
	// (matched or passed); they are filtered before scoring.
	Exclude map[string]struct{}

	// Cursor resumes a previous page; empty starts from the top.
	Cursor string

	// PageSize caps returned entries; 0 uses DefaultPageSize.
	PageSize int

	// IncludeIncompatible keeps role-gated zero scores in the page,
	// for debugging. They are still computed either way so breakdowns
	// stay consistent.
	IncludeIncompatible bool
}

// Page is one page of ranked candidates plus skip diagnostics.
type Page struct {
	Candidates  []RankedCandidate `json:"candidates"`
	NextCursor  string            `json:"next_cursor,omitempty"`
	Diagnostics []Diagnostic      `json:"diagnostics,omitempty"`
}

// Config configures an Engine. Zero values fall back to defaults.
type Config struct {
	Weights          *ranking.Weights
	ProximityDecayKm float64
	CacheCapacity    int
	CacheTTL         time.Duration
	Workers          int
	Logger           *slog.Logger
	Metrics          *Metrics
}

// Engine scores pairs and ranks candidate pools. It holds no mutable
// state beyond the pair cache and is safe for concurrent use.
type Engine struct {
	weights    *ranking.Weights
	decayKm    float64
	cache      *cache.PairCache[CompatibilityResult]
	workers    int
	logger     *slog.Logger
	metrics    *Metrics
	normalizer *profile.Normalizer
	tracer     trace.Tracer
}

// NewEngine creates an Engine from the given configuration.
func NewEngine(cfg Config) *Engine {
	if cfg.Weights == nil {
		cfg.Weights = ranking.DefaultWeights()
	}
	if cfg.ProximityDecayKm <= 0 {
		cfg.ProximityDecayKm = scoring.DefaultProximityDecayKm
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		weights:    cfg.Weights,
		decayKm:    cfg.ProximityDecayKm,
		cache:      cache.NewPairCache[CompatibilityResult](cfg.CacheCapacity, cfg.CacheTTL),
		workers:    cfg.Workers,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		normalizer: profile.NewNormalizer(cfg.Logger),
		tracer:     otel.Tracer("affinity/match"),
	}
}

// CacheStats exposes cumulative pair cache hits and misses.
func (e *Engine) CacheStats() (hits, misses int64) {
	return e.cache.Stats()
}

// ScorePair computes the compatibility result for two complete vectors.
// Results are memoized by (pair, vector versions); a version bump on
// either side naturally produces a fresh computation.
func (e *Engine) ScorePair(ctx context.Context, a, b *profile.ProfileVector) (CompatibilityResult, error) {
	_, span := e.tracer.Start(ctx, "match.ScorePair",
		trace.WithAttributes(attribute.String("pair.user_a", a.UserID), attribute.String("pair.user_b", b.UserID)))
	defer span.End()

	if !a.Complete() {
		return CompatibilityResult{}, fmt.Errorf("%w: user %s", ErrIncompleteProfile, a.UserID)
	}
	if !b.Complete() {
		return CompatibilityResult{}, fmt.Errorf("%w: user %s", ErrIncompleteProfile, b.UserID)
	}

	key := cache.NewPairKey(a.UserID, a.VectorVersion, b.UserID, b.VectorVersion)
	if cached, ok := e.cache.Get(key); ok {
		e.metrics.IncCacheHits()
		return cached, nil
	}
	e.metrics.IncCacheMisses()

	start := time.Now()
	result, err := e.compute(a, b, key)
	if err != nil {
		e.metrics.IncScoreErrors()
		if errors.Is(err, ranking.ErrComputation) {
			e.logger.Error("pair scoring failed closed",
				"user_a", a.UserID,
				"user_b", b.UserID,
				"error", err)
		}
		return CompatibilityResult{}, err
	}

	e.cache.Add(key, result)
	e.metrics.IncPairsScored()
	e.metrics.ObserveScoreDuration(time.Since(start).Seconds())
	return result, nil
}

// compute runs the dimension scorers in fixed order and aggregates them.
func (e *Engine) compute(a, b *profile.ProfileVector, key cache.PairKey) (CompatibilityResult, error) {
	personality := scoring.Personality(a, b)
	style := scoring.RelationshipStyle(a, b)
	role := scoring.RoleCompatibility(a, b)
	traits := scoring.TraitOverlap(a, b)
	kink := scoring.KinkOverlap(a, b)
	proximity := scoring.Proximity(a, b, e.decayKm)

	components := []ranking.Component{
		{Dimension: scoring.DimensionPersonality, Score: personality.Score, Confidence: personality.Confidence},
		{Dimension: scoring.DimensionRelationshipStyle, Score: style.Score, Confidence: style.Confidence},
		{Dimension: scoring.DimensionRole, Score: role.Score, Confidence: role.Confidence},
		{Dimension: scoring.DimensionTraits, Score: traits.Score, Confidence: traits.Confidence},
		{Dimension: scoring.DimensionKink, Score: kink.Score, Confidence: kink.Confidence},
		{Dimension: scoring.DimensionProximity, Score: proximity.Score, Confidence: proximity.Confidence},
	}

	aggregated, err := ranking.Aggregate(components, e.weights)
	if err != nil {
		return CompatibilityResult{}, err
	}

	return CompatibilityResult{
		Score:     aggregated.Score,
		Breakdown: aggregated.Breakdown,
		ComputedAtVersion: PairVersions{
			UserA:    key.UserA,
			VersionA: key.VersionA,
			UserB:    key.UserB,
			VersionB: key.VersionB,
		},
	}, nil
}

// candidateOutcome is the fan-out result slot for one pool candidate.
type candidateOutcome struct {
	entry *RankedCandidate
	diag  *Diagnostic
}

// RankCandidates scores the requester against a candidate pool and
// returns one page of the deterministic ordering: score descending, ties
// broken by candidateId ascending. Incomplete or invalid candidates are
// skipped into the diagnostics list; they never abort the page.
func (e *Engine) RankCandidates(ctx context.Context, req RankRequest) (*Page, error) {
	ctx, span := e.tracer.Start(ctx, "match.RankCandidates",
		trace.WithAttributes(attribute.Int("pool.size", len(req.Pool))))
	defer span.End()

	e.metrics.IncRankRequests()
	start := time.Now()

	if req.Requester == nil || !req.Requester.Complete() {
		id := ""
		if req.Requester != nil {
			id = req.Requester.UserID
		}
		return nil, fmt.Errorf("%w: user %s", ErrIncompleteProfile, id)
	}

	cursor, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	// Pre-filter the pool: drop the requester themself and anyone in
	// the exclusion set before spending scoring work on them.
	work := make([]*profile.RawProfile, 0, len(req.Pool))
	for _, raw := range req.Pool {
		if raw == nil || raw.UserID == req.Requester.UserID {
			continue
		}
		if _, excluded := req.Exclude[raw.UserID]; excluded {
			continue
		}
		work = append(work, raw)
	}

	outcomes := e.fanOut(ctx, req.Requester, work)
	if err := ctx.Err(); err != nil {
		// Caller abandoned the request; partial results are discarded.
		return nil, err
	}

	// Collect in pool order so diagnostics are deterministic, then sort
	// the scored entries.
	var entries []RankedCandidate
	var diagnostics []Diagnostic
	for _, o := range outcomes {
		if o.diag != nil {
			diagnostics = append(diagnostics, *o.diag)
			e.metrics.IncSkipped(o.diag.Reason)
			continue
		}
		if o.entry.Result.RoleIncompatible() && !req.IncludeIncompatible {
			continue
		}
		entries = append(entries, *o.entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Result.Score != entries[j].Result.Score {
			return entries[i].Result.Score > entries[j].Result.Score
		}
		return entries[i].CandidateID < entries[j].CandidateID
	})

	if cursor != nil {
		filtered := entries[:0]
		for _, entry := range entries {
			if cursor.after(entry.Result.Score, entry.CandidateID) {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	page := &Page{Diagnostics: diagnostics}
	if len(entries) > pageSize {
		page.Candidates = entries[:pageSize]
		last := page.Candidates[pageSize-1]
		page.NextCursor = encodeCursor(pageCursor{Score: last.Result.Score, ID: last.CandidateID})
	} else {
		page.Candidates = entries
	}

	e.metrics.ObserveRankDuration(time.Since(start).Seconds())
	return page, nil
}

// fanOut scores candidates on a bounded worker pool and returns one
// outcome per work item, index-aligned. The barrier is the WaitGroup;
// the merge happens single-threaded in the caller.
func (e *Engine) fanOut(ctx context.Context, requester *profile.ProfileVector, work []*profile.RawProfile) []candidateOutcome {
	outcomes := make([]candidateOutcome, len(work))
	if len(work) == 0 {
		return outcomes
	}

	workers := e.workers
	if workers > len(work) {
		workers = len(work)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i] = e.scoreCandidate(ctx, requester, work[i])
			}
		}()
	}

	for i := range work {
		select {
		case <-ctx.Done():
			// Stop feeding; in-flight slots finish and get discarded
			// by the caller's ctx check.
			close(jobs)
			wg.Wait()
			return outcomes
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return outcomes
}

// scoreCandidate normalizes and scores one candidate, converting every
// failure into a diagnostic instead of an error.
func (e *Engine) scoreCandidate(ctx context.Context, requester *profile.ProfileVector, raw *profile.RawProfile) candidateOutcome {
	vec, err := e.normalizer.Normalize(raw)
	if err != nil {
		return candidateOutcome{diag: &Diagnostic{
			CandidateID: raw.UserID,
			Reason:      SkipValidationFailed,
			Detail:      err.Error(),
		}}
	}
	if !vec.Complete() {
		return candidateOutcome{diag: &Diagnostic{
			CandidateID: raw.UserID,
			Reason:      SkipIncompleteProfile,
		}}
	}

	result, err := e.ScorePair(ctx, requester, vec)
	if err != nil {
		return candidateOutcome{diag: &Diagnostic{
			CandidateID: raw.UserID,
			Reason:      SkipScoringFailed,
			Detail:      err.Error(),
		}}
	}
	return candidateOutcome{entry: &RankedCandidate{CandidateID: raw.UserID, Result: result}}
}
