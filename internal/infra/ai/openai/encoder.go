package openai

import (
	"context"
	"fmt"
	"sync"

	"github.com/sashabaranov/go-openai"

	domain "github.com/bryanwahyu/seo-audit/internal/domain/analyses"
	"github.com/bryanwahyu/seo-audit/internal/domain/semantics"
)

// maxInputChars keeps one page under the embedding token limit.
const maxInputChars = 24000

// Encoder wraps the OpenAI embeddings API behind the semantics port. One
// instance per process, the model version is pinned by the startup probe
// and every vector it produces shares one dimension.
type Encoder struct {
	client *openai.Client
	model  string

	mu  sync.RWMutex
	dim int
}

func NewEncoder(apiKey, model string) *Encoder {
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &Encoder{client: openai.NewClient(apiKey), model: model}
}

// ModelVersion identifies which model produced the vectors. Vectors are
// only comparable within one version.
func (e *Encoder) ModelVersion() string { return e.model }

// Dimension is 0 until the probe ran.
func (e *Encoder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dim
}

// Probe embeds a fixed sentinel once at startup. Failure means the process
// must refuse analysis submissions.
func (e *Encoder) Probe(ctx context.Context) error {
	vecs, err := e.Encode(ctx, []string{"startup probe"})
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrModelUnavailable)
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return domain.ErrModelUnavailable
	}
	return nil
}

// Encode implements semantics.Encoder.
func (e *Encoder) Encode(ctx context.Context, texts []string) ([]semantics.Vector, error) {
	input := make([]string, len(texts))
	for i, t := range texts {
		if len(t) > maxInputChars {
			t = t[:maxInputChars]
		}
		if t == "" {
			t = " " // API rejects empty strings
		}
		input[i] = t
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: input,
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %w", err)
	}
	if len(resp.Data) != len(input) {
		return nil, fmt.Errorf("embeddings: got %d vectors for %d inputs", len(resp.Data), len(input))
	}

	out := make([]semantics.Vector, len(resp.Data))
	for i, d := range resp.Data {
		out[i] = semantics.Vector(d.Embedding)
		if err := e.checkDim(len(d.Embedding)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// checkDim pins the vector dimension on first sight and rejects drift, a
// changed dimension means the provider swapped models under us.
func (e *Encoder) checkDim(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dim == 0 {
		e.dim = n
		return nil
	}
	if e.dim != n {
		return fmt.Errorf("embedding dimension changed from %d to %d: %w", e.dim, n, domain.ErrModelUnavailable)
	}
	return nil
}
