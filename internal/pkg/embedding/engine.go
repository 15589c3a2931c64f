// Package embedding turns course descriptions into dense vectors.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Engine produces fixed-size vectors for text. Implementations must return
// the same vector for identical input and be safe for concurrent use.
type Engine interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector length.
	Dimensions() int

	// Name identifies the engine and model.
	Name() string
}

// Config holds embedding engine configuration.
type Config struct {
	Provider   string // local | ollama | genai | openai
	Endpoint   string
	Model      string
	APIKey     string
	TaskType   string
	Dimensions int
	Timeout    time.Duration
}

// NewEngine creates an engine for the configured provider.
func NewEngine(cfg Config) (Engine, error) {
	switch strings.ToLower(cfg.Provider) {
	case "local", "":
		return NewLocalEngine(cfg.Dimensions), nil
	case "ollama":
		return NewOllamaEngine(cfg.Endpoint, cfg.Model, cfg.Dimensions, cfg.Timeout)
	case "genai":
		return NewGenAIEngine(cfg.APIKey, cfg.Model, cfg.TaskType, cfg.Dimensions)
	case "openai":
		return NewOpenAIEngine(cfg.APIKey, cfg.Endpoint, cfg.Model, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}
}

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// Zero vectors have similarity 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimensions mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push identical vectors just past 1.
	return math.Max(-1, math.Min(1, sim)), nil
}

// Warmup runs one embedding so that model loading happens before the first
// request is served.
func Warmup(ctx context.Context, engine Engine) (time.Duration, error) {
	start := time.Now()
	vec, err := engine.Embed(ctx, "warmup")
	if err != nil {
		return time.Since(start), fmt.Errorf("warmup embed failed: %w", err)
	}
	if dims := engine.Dimensions(); dims > 0 && len(vec) != dims {
		return time.Since(start), fmt.Errorf("engine %s returned %d dimensions, expected %d", engine.Name(), len(vec), dims)
	}
	return time.Since(start), nil
}
