package matching

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/credittransfer/internal/app/models"
	"github.com/yigit/credittransfer/internal/pkg/apperrors"
	"github.com/yigit/credittransfer/internal/pkg/embedding"
	"github.com/yigit/credittransfer/internal/pkg/metrics"
)

// stubEmbedder counts calls and can fail or block.
type stubEmbedder struct {
	embedding.Engine
	calls int32
	err   error
	block bool
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.Engine.EmbedBatch(ctx, texts)
}

func newStub() *stubEmbedder {
	return &stubEmbedder{Engine: embedding.NewLocalEngine(256)}
}

func source(desc string) *models.SourceCourse {
	return &models.SourceCourse{Course: models.Course{ID: 1, Code: "COMP101", Description: desc}}
}

func target(id int64, code, desc string) *models.TargetCourse {
	return &models.TargetCourse{Course: models.Course{ID: id, Code: code, Description: desc}, CurriculumID: 7}
}

func TestSimilarity_BlankShortCircuits(t *testing.T) {
	stub := newStub()
	engine := NewEngine(stub, time.Second, zerolog.Nop())

	for _, pair := range [][2]string{{"", "graphs"}, {"graphs", ""}, {" ", "\t"}} {
		got, err := engine.Similarity(context.Background(), pair[0], pair[1])
		require.NoError(t, err)
		assert.Zero(t, got)
	}
	assert.Zero(t, atomic.LoadInt32(&stub.calls), "embedder must not be called for blank input")
}

func TestSimilarity_SymmetricAndSelf(t *testing.T) {
	engine := NewEngine(newStub(), time.Second, zerolog.Nop())
	ctx := context.Background()

	a := "Data structures: lists, trees and graph traversal"
	b := "Graph algorithms and tree data structures"

	ab, err := engine.Similarity(ctx, a, b)
	require.NoError(t, err)
	ba, err := engine.Similarity(ctx, b, a)
	require.NoError(t, err)
	assert.InDelta(t, ab, ba, 1e-9)
	assert.GreaterOrEqual(t, ab, 0.0)
	assert.LessOrEqual(t, ab, 1.0)

	aa, err := engine.Similarity(ctx, a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, aa, 1e-6)
}

func TestSimilarity_EmbedderFailure(t *testing.T) {
	stub := newStub()
	stub.err = errors.New("model not loaded")
	engine := NewEngine(stub, time.Second, zerolog.Nop())

	_, err := engine.Similarity(context.Background(), "a b c", "d e f")
	assert.ErrorIs(t, err, apperrors.ErrEmbeddingUnavailable)
}

func TestSimilarity_Timeout(t *testing.T) {
	stub := newStub()
	stub.block = true
	engine := NewEngine(stub, 20*time.Millisecond, zerolog.Nop())

	_, err := engine.Similarity(context.Background(), "slow", "model")
	assert.ErrorIs(t, err, apperrors.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFindBestMatch_NoCandidates(t *testing.T) {
	stub := newStub()
	engine := NewEngine(stub, time.Second, zerolog.Nop())

	res, err := engine.FindBestMatch(context.Background(), source("graph algorithms"), nil)
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Nil(t, res.Course)
	assert.Zero(t, res.Score)
	assert.Equal(t, NoCandidatesMessage, res.Rationale)
	assert.Equal(t, metrics.OutcomeNoCandidates, res.Outcome)
	assert.Zero(t, atomic.LoadInt32(&stub.calls))
}

func TestFindBestMatch_BlankSource(t *testing.T) {
	engine := NewEngine(newStub(), time.Second, zerolog.Nop())

	res, err := engine.FindBestMatch(context.Background(), source(""), []*models.TargetCourse{target(1, "CS1", "graphs")})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, InsufficientDataMessage, res.Rationale)
}

func TestFindBestMatch_PicksClosest(t *testing.T) {
	engine := NewEngine(newStub(), time.Second, zerolog.Nop())
	candidates := []*models.TargetCourse{
		target(10, "CS101", "Organic chemistry laboratory techniques"),
		target(11, "CS102", ""),
		target(12, "CS211", "Data structures and graph algorithms"),
	}

	res, err := engine.FindBestMatch(context.Background(), source("Graph algorithms and data structures"), candidates)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, int64(12), res.Course.ID)
	assert.Greater(t, res.Score, 0.5)
	assert.LessOrEqual(t, res.Score, 1.0)
	assert.Contains(t, res.Rationale, "algorithms")
	assert.Equal(t, metrics.OutcomeMatched, res.Outcome)
}

func TestFindBestMatch_TieGoesToFirst(t *testing.T) {
	engine := NewEngine(newStub(), time.Second, zerolog.Nop())
	candidates := []*models.TargetCourse{
		target(20, "CS300", "Computer networks"),
		target(21, "CS301", "Computer networks"),
	}

	res, err := engine.FindBestMatch(context.Background(), source("Computer networks and protocols"), candidates)
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.Course.ID)
}

func TestFindBestMatch_Deterministic(t *testing.T) {
	engine := NewEngine(newStub(), time.Second, zerolog.Nop())
	src := source("Operating systems: processes, threads and memory")
	candidates := []*models.TargetCourse{
		target(1, "CS201", "Process scheduling and memory management"),
		target(2, "CS202", "Threads and concurrency"),
		target(3, "CS203", "Database systems"),
	}

	first, err := engine.FindBestMatch(context.Background(), src, candidates)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := engine.FindBestMatch(context.Background(), src, candidates)
		require.NoError(t, err)
		assert.Equal(t, first.Course.ID, again.Course.ID)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, first.Rationale, again.Rationale)
	}
}

func TestFindBestMatch_AllCandidatesBlank(t *testing.T) {
	stub := newStub()
	engine := NewEngine(stub, time.Second, zerolog.Nop())

	res, err := engine.FindBestMatch(context.Background(), source("graphs"), []*models.TargetCourse{target(1, "A", ""), target(2, "B", " ")})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Equal(t, InsufficientDataMessage, res.Rationale)
	assert.Zero(t, atomic.LoadInt32(&stub.calls))
}

// fixedEmbedder returns preset vectors by text.
type fixedEmbedder struct {
	embedding.Engine
	vectors map[string][]float32
}

func (f *fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectors[text]
	}
	return out, nil
}

func TestFindBestMatch_BlankCandidateNeverSuggested(t *testing.T) {
	embedder := &fixedEmbedder{
		Engine: embedding.NewLocalEngine(2),
		vectors: map[string][]float32{
			"graph algorithms": {1, 0},
			"organic chemistry": {-0.99, 0.14},
		},
	}
	engine := NewEngine(embedder, time.Second, zerolog.Nop())
	candidates := []*models.TargetCourse{
		target(1, "CS100", ""),
		target(2, "CS200", "organic chemistry"),
	}

	res, err := engine.FindBestMatch(context.Background(), source("graph algorithms"), candidates)
	require.NoError(t, err)
	require.True(t, res.Found)
	assert.Equal(t, int64(2), res.Course.ID)
	assert.Zero(t, res.Score)
}

func TestFindBestMatch_EmbedderFailure(t *testing.T) {
	stub := newStub()
	stub.err = errors.New("inference failed")
	engine := NewEngine(stub, time.Second, zerolog.Nop())

	res, err := engine.FindBestMatch(context.Background(), source("graphs"), []*models.TargetCourse{target(1, "A", "graphs")})
	assert.ErrorIs(t, err, apperrors.ErrEmbeddingUnavailable)
	assert.False(t, res.Found)
	assert.Equal(t, metrics.OutcomeFailed, res.Outcome)
}
