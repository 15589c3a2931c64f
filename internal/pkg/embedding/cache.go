package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/yigit/credittransfer/internal/pkg/metrics"
)

// CachedEngine is a Redis read-through cache in front of another engine.
// Redis failures are logged and the wrapped engine is called directly.
type CachedEngine struct {
	next   Engine
	client redis.Cmdable
	ttl    time.Duration
	log    zerolog.Logger
}

// NewCachedEngine wraps next with a Redis cache.
func NewCachedEngine(next Engine, client redis.Cmdable, ttl time.Duration, log zerolog.Logger) *CachedEngine {
	return &CachedEngine{
		next:   next,
		client: client,
		ttl:    ttl,
		log:    log.With().Str("component", "embedding_cache").Logger(),
	}
}

func (c *CachedEngine) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + c.next.Name() + ":" + hex.EncodeToString(sum[:])
}

// Embed implements Engine.
func (c *CachedEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Engine. Only cache misses are sent to the wrapped engine.
func (c *CachedEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.key(text)
	}

	out := make([][]float32, len(texts))
	var missIdx []int

	cached, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.log.Warn().Err(err).Msg("Embedding cache read failed")
		metrics.EmbeddingCacheTotal.WithLabelValues("error").Inc()
		cached = nil
	}

	for i := range texts {
		if cached != nil {
			if s, ok := cached[i].(string); ok {
				if vec, err := decodeVector([]byte(s)); err == nil {
					out[i] = vec
					metrics.EmbeddingCacheTotal.WithLabelValues("hit").Inc()
					continue
				}
			}
		}
		metrics.EmbeddingCacheTotal.WithLabelValues("miss").Inc()
		missIdx = append(missIdx, i)
	}

	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}

	fresh, err := c.next.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missTexts) {
		return nil, fmt.Errorf("engine returned %d embeddings for %d inputs", len(fresh), len(missTexts))
	}

	pipe := c.client.Pipeline()
	for j, i := range missIdx {
		out[i] = fresh[j]
		pipe.Set(ctx, keys[i], encodeVector(fresh[j]), c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn().Err(err).Int("count", len(missIdx)).Msg("Embedding cache write failed")
	}

	return out, nil
}

// Dimensions implements Engine.
func (c *CachedEngine) Dimensions() int {
	return c.next.Dimensions()
}

// Name implements Engine.
func (c *CachedEngine) Name() string {
	return c.next.Name()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

var errCorruptVector = errors.New("corrupt cached vector")

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, errCorruptVector
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
