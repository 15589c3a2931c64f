package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// OpenAIEngine talks to any OpenAI-compatible embeddings endpoint.
type OpenAIEngine struct {
	client *openai.Client
	model  string
	dims   int
}

// NewOpenAIEngine creates an engine for the OpenAI API or a compatible server
// when endpoint is set.
func NewOpenAIEngine(apiKey, endpoint, model string, dims int) (*OpenAIEngine, error) {
	if apiKey == "" && endpoint == "" {
		return nil, fmt.Errorf("OpenAI API key or endpoint is required")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(endpoint, "/")
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		dims:   dims,
	}, nil
}

// Embed implements Engine.
func (e *OpenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Engine.
func (e *OpenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model:      openai.EmbeddingModel(e.model),
		Input:      texts,
		Dimensions: e.dims,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), len(texts))
	}

	// Data carries its own index; do not rely on response order.
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai returned out of range index %d", d.Index)
		}
		embeddings[d.Index] = d.Embedding
	}
	return embeddings, nil
}

// Dimensions implements Engine.
func (e *OpenAIEngine) Dimensions() int {
	return e.dims
}

// Name implements Engine.
func (e *OpenAIEngine) Name() string {
	return fmt.Sprintf("openai:%s", e.model)
}
