package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skizzehq/skizze/internal/util"
	"github.com/skizzehq/skizze/pkg/ai"

	"github.com/openai/openai-go/v3"
)

const defaultDimensions = 1024

var errNoEmbeddingClient = errors.New("no embedding client configured")

// GenerateEmbedding creates a vector embedding for the given input text
// using the configured embedding model.
//
// The returned vector is truncated or zero-padded to the configured
// dimension so it always fits the vector column it is stored in. Empty
// input yields a zero vector without a model round-trip.
func (c *OpenAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	dim := int(util.GetEnvNumeric("AI_EMBED_DIM", defaultDimensions))
	if len(strings.TrimSpace(string(input))) == 0 {
		return make([]float32, dim), nil
	}
	if c.EmbeddingClient == nil {
		return nil, errNoEmbeddingClient
	}

	rCtx, cancel := context.WithTimeout(ctx, time.Minute*time.Duration(c.timeoutMin))
	defer cancel()

	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(string(input))},
		Model: c.embeddingModel,
	}

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	start := time.Now()
	response, err := c.EmbeddingClient.Embeddings.New(rCtx, body)
	if err != nil {
		return nil, err
	}

	c.modifyMetrics(ai.ModelMetrics{
		InputTokens: int(response.Usage.PromptTokens),
		TotalTokens: int(response.Usage.TotalTokens),
		DurationMs:  time.Since(start).Milliseconds(),
	})

	if len(response.Data) != 1 {
		return nil, fmt.Errorf("unexpected embedding result size: got %d want 1", len(response.Data))
	}

	out := make([]float32, dim)
	for i, v := range response.Data[0].Embedding {
		if i >= dim {
			break
		}
		out[i] = float32(v)
	}
	return out, nil
}
