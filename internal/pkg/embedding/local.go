package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/yigit/credittransfer/internal/pkg/textnorm"
)

const defaultLocalDimensions = 384

// LocalEngine hashes description tokens and character trigrams into a fixed
// number of buckets. It needs no model server and is fully deterministic,
// which makes it the default for development and tests.
type LocalEngine struct {
	dims int
}

// NewLocalEngine creates a hashing engine with the given vector length.
func NewLocalEngine(dims int) *LocalEngine {
	if dims <= 0 {
		dims = defaultLocalDimensions
	}
	return &LocalEngine{dims: dims}
}

// Embed implements Engine.
func (e *LocalEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dims)
	for tok := range textnorm.Normalize(text) {
		e.add(vec, "w:"+tok, 1)
		runes := []rune(tok)
		for i := 0; i+3 <= len(runes); i++ {
			e.add(vec, "t:"+string(runes[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// add spreads a feature over one bucket with a hash-derived sign, so
// unrelated features cancel instead of always accumulating.
func (e *LocalEngine) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dims))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

// EmbedBatch implements Engine.
func (e *LocalEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions implements Engine.
func (e *LocalEngine) Dimensions() int {
	return e.dims
}

// Name implements Engine.
func (e *LocalEngine) Name() string {
	return fmt.Sprintf("local:hash%d", e.dims)
}
