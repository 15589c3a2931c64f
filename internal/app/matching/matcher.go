package matching

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
	"github.com/yigit/credittransfer/internal/pkg/embedding"
	"github.com/yigit/credittransfer/internal/pkg/metrics"
)

const defaultTimeout = 30 * time.Second

// MatchResult is the outcome of a best-match search.
type MatchResult struct {
	Course    *models.TargetCourse
	Score     float64 // In [0, 1]
	Rationale string
	Found     bool
	Outcome   string // One of the metrics outcome labels
}

// Engine scores course descriptions against each other. It is built once
// at startup and shared; it holds no per-call state.
type Engine struct {
	embedder embedding.Engine
	timeout  time.Duration
	log      zerolog.Logger
}

// NewEngine creates a matching engine on top of an embedding engine.
func NewEngine(embedder embedding.Engine, timeout time.Duration, log zerolog.Logger) *Engine {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Engine{
		embedder: embedder,
		timeout:  timeout,
		log:      log.With().Str("component", "matcher").Logger(),
	}
}

// embed runs one bounded embedding call.
func (e *Engine) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	vecs, err := e.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrEmbeddingUnavailable, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", apperrors.ErrEmbeddingUnavailable, len(vecs), len(texts))
	}
	return vecs, nil
}

// Similarity returns the cosine similarity of two descriptions clamped to
// [0, 1]. Blank input scores 0 without calling the embedder.
func (e *Engine) Similarity(ctx context.Context, a, b string) (float64, error) {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0, nil
	}

	vecs, err := e.embed(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}

	sim, err := embedding.CosineSimilarity(vecs[0], vecs[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", apperrors.ErrEmbeddingUnavailable, err)
	}
	return clamp(sim), nil
}

// FindBestMatch picks the candidate whose description is closest to the
// source. Candidates must arrive in a stable order; on equal scores the
// earliest candidate wins. Missing candidates or a blank source are reported
// through MatchResult, not as errors. An error means the embedder failed.
func (e *Engine) FindBestMatch(ctx context.Context, source *models.SourceCourse, candidates []*models.TargetCourse) (MatchResult, error) {
	start := time.Now()
	result, err := e.findBestMatch(ctx, source, candidates)
	metrics.MatchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MatchTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		return MatchResult{Outcome: metrics.OutcomeFailed}, err
	}
	metrics.MatchTotal.WithLabelValues(result.Outcome).Inc()
	return result, nil
}

func (e *Engine) findBestMatch(ctx context.Context, source *models.SourceCourse, candidates []*models.TargetCourse) (MatchResult, error) {
	if len(candidates) == 0 {
		return MatchResult{Rationale: NoCandidatesMessage, Outcome: metrics.OutcomeNoCandidates}, nil
	}
	if source == nil || strings.TrimSpace(source.Description) == "" {
		return MatchResult{Rationale: InsufficientDataMessage, Outcome: metrics.OutcomeNoData}, nil
	}

	// Blank candidates score 0, are never sent to the embedder and are never
	// suggested while any candidate has a description.
	texts := []string{source.Description}
	var embedded []int
	for i, c := range candidates {
		if c != nil && strings.TrimSpace(c.Description) != "" {
			texts = append(texts, c.Description)
			embedded = append(embedded, i)
		}
	}
	if len(embedded) == 0 {
		return MatchResult{Rationale: InsufficientDataMessage, Outcome: metrics.OutcomeNoData}, nil
	}

	vecs, err := e.embed(ctx, texts)
	if err != nil {
		return MatchResult{}, err
	}

	best, bestScore := -1, math.Inf(-1)
	for j, idx := range embedded {
		sim, err := embedding.CosineSimilarity(vecs[0], vecs[j+1])
		if err != nil {
			return MatchResult{}, fmt.Errorf("%w: %w", apperrors.ErrEmbeddingUnavailable, err)
		}
		if sim > bestScore {
			best, bestScore = idx, sim
		}
	}

	course := candidates[best]
	e.log.Debug().
		Int64("sourceCourseID", source.ID).
		Int64("targetCourseID", course.ID).
		Float64("score", bestScore).
		Msg("Best match selected")

	return MatchResult{
		Course:    course,
		Score:     clamp(bestScore),
		Rationale: GenerateReasoning(source.Description, course.Description),
		Found:     true,
		Outcome:   metrics.OutcomeMatched,
	}, nil
}

func clamp(sim float64) float64 {
	return math.Max(0, math.Min(1, sim))
}
