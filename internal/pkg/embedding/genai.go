package embedding

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIEngine uses the Gemini embedding API.
type GenAIEngine struct {
	client   *genai.Client
	model    string
	taskType string
	dims     int
}

// NewGenAIEngine creates a Gemini engine.
func NewGenAIEngine(apiKey, model, taskType string, dims int) (*GenAIEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	switch strings.ToUpper(taskType) {
	case "", "SEMANTIC_SIMILARITY":
		taskType = "SEMANTIC_SIMILARITY"
	case "CLASSIFICATION", "CLUSTERING", "RETRIEVAL_DOCUMENT", "RETRIEVAL_QUERY":
		taskType = strings.ToUpper(taskType)
	default:
		return nil, fmt.Errorf("unsupported GenAI task type: %s", taskType)
	}

	return &GenAIEngine{
		client:   client,
		model:    model,
		taskType: taskType,
		dims:     dims,
	}, nil
}

func (e *GenAIEngine) config() *genai.EmbedContentConfig {
	cfg := &genai.EmbedContentConfig{TaskType: e.taskType}
	if e.dims > 0 {
		dims := int32(e.dims)
		cfg.OutputDimensionality = &dims
	}
	return cfg
}

// Embed implements Engine.
func (e *GenAIEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Engine.
func (e *GenAIEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, e.config())
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("GenAI returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		embeddings[i] = emb.Values
	}
	return embeddings, nil
}

// Dimensions implements Engine.
func (e *GenAIEngine) Dimensions() int {
	return e.dims
}

// Name implements Engine.
func (e *GenAIEngine) Name() string {
	return fmt.Sprintf("genai:%s", e.model)
}
