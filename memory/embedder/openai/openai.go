// Package openai embeds text through the OpenAI embeddings API.
package openai

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder calls the OpenAI embeddings endpoint.
type Embedder struct {
	client     *openai.Client
	model      string
	dimensions int
}

// New creates an OpenAI embedder using OPENAI_API_KEY. model defaults
// to text-embedding-3-small (1536 dims).
func New(model string) (*Embedder, error) {
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not set")
	}
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	dims := 1536
	if model == string(openai.LargeEmbedding3) {
		dims = 3072
	}
	return &Embedder{
		client:     openai.NewClient(key),
		model:      model,
		dimensions: dims,
	}, nil
}

// Embed requests an embedding for text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}
	return resp.Data[0].Embedding, nil
}

// Dimensions returns the embedding size for the configured model.
func (e *Embedder) Dimensions() int { return e.dimensions }
