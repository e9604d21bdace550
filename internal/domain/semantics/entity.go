package semantics

import (
	"context"
	"math"
)

// Vector is a fixed-dimension embedding. Never mutated after creation and
// only comparable to vectors from the same model version.
type Vector []float32

// Encoder port, backed by one process-wide embedding model loaded at startup.
type Encoder interface {
	Encode(ctx context.Context, texts []string) ([]Vector, error)
	ModelVersion() string
}

// Cosine returns cosine similarity clamped to [0,1]. Negative cosine maps to
// 0, content similarity is not meaningfully negative here. Returns 0 for
// mismatched dimensions or zero-magnitude vectors.
func Cosine(a, b Vector) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

// CompetitorSimilarity pairs one competitor page with its similarity score.
// Order mirrors SERP rank order at selection time.
type CompetitorSimilarity struct {
	URL        string  `json:"url"`
	Rank       int     `json:"rank"`
	Similarity float64 `json:"similarity"`
}

// GapReport is the output of comparing one target against its competitors.
type GapReport struct {
	TargetURL      string                 `json:"target_url"`
	ModelVersion   string                 `json:"model_version"`
	Competitors    []CompetitorSimilarity `json:"competitors"`
	MissingTopics  []string               `json:"missing_topics,omitempty"`
	MeanSimilarity float64                `json:"mean_similarity"`
}
