package semantics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/bryanwahyu/seo-audit/internal/domain/content"
)

// Comparator encodes pages and scores similarity/gap against competitors.
// Deterministic for a fixed model version and fixed inputs.
type Comparator struct {
	Encoder Encoder

	// MaxTopics caps the missing-topic list, default 10.
	MaxTopics int

	// MinTargetCount is the occurrence count at which a term is considered
	// already well represented in the target, default 2.
	MinTargetCount int
}

func NewComparator(enc Encoder) *Comparator {
	return &Comparator{Encoder: enc, MaxTopics: 10, MinTargetCount: 2}
}

// Compare embeds target and competitor texts in one call and builds the gap
// report. Competitor order in the report mirrors the input order.
func (c *Comparator) Compare(ctx context.Context, target *content.Page, competitors []*content.Page) (*GapReport, error) {
	if target == nil {
		return nil, fmt.Errorf("compare: nil target page")
	}

	texts := make([]string, 0, len(competitors)+1)
	texts = append(texts, target.Text)
	for _, p := range competitors {
		texts = append(texts, p.Text)
	}

	vecs, err := c.Encoder.Encode(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("encode pages: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("encoder returned %d vectors for %d texts", len(vecs), len(texts))
	}

	rep := &GapReport{
		TargetURL:    target.URL,
		ModelVersion: c.Encoder.ModelVersion(),
		Competitors:  make([]CompetitorSimilarity, 0, len(competitors)),
	}

	var sum float64
	for i, p := range competitors {
		sim := Cosine(vecs[0], vecs[i+1])
		sum += sim
		rep.Competitors = append(rep.Competitors, CompetitorSimilarity{
			URL:        p.URL,
			Rank:       i + 1,
			Similarity: sim,
		})
	}
	if len(competitors) > 0 {
		rep.MeanSimilarity = sum / float64(len(competitors))
	}

	rep.MissingTopics = c.missingTopics(target, competitors)
	return rep, nil
}

// missingTopics extracts top-weighted competitor terms absent (or barely
// present) in the target, ranked by aggregate competitor weight.
func (c *Comparator) missingTopics(target *content.Page, competitors []*content.Page) []string {
	maxTopics := c.MaxTopics
	if maxTopics <= 0 {
		maxTopics = 10
	}
	minCount := c.MinTargetCount
	if minCount <= 0 {
		minCount = 2
	}

	targetFreq := termFrequencies(target.Text)

	agg := make(map[string]float64)
	for _, p := range competitors {
		for term, w := range topTerms(p.Text, 30) {
			agg[term] += w
		}
	}

	type scored struct {
		term   string
		weight float64
	}
	var gaps []scored
	for term, w := range agg {
		if targetFreq[term] >= minCount {
			continue
		}
		gaps = append(gaps, scored{term, w})
	}
	// weight desc, term asc as tie-break so output is stable
	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].weight != gaps[j].weight {
			return gaps[i].weight > gaps[j].weight
		}
		return gaps[i].term < gaps[j].term
	})

	if len(gaps) > maxTopics {
		gaps = gaps[:maxTopics]
	}
	out := make([]string, len(gaps))
	for i, g := range gaps {
		out[i] = g.term
	}
	return out
}

// topTerms returns the n highest-weighted terms of a text. Weight is
// frequency scaled by term length, longer terms carry more topical signal.
func topTerms(text string, n int) map[string]float64 {
	freq := termFrequencies(text)

	type scored struct {
		term   string
		weight float64
	}
	all := make([]scored, 0, len(freq))
	for term, count := range freq {
		w := float64(count) * (1 + math.Log(float64(len(term))))
		all = append(all, scored{term, w})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].weight != all[j].weight {
			return all[i].weight > all[j].weight
		}
		return all[i].term < all[j].term
	})
	if len(all) > n {
		all = all[:n]
	}
	out := make(map[string]float64, len(all))
	for _, s := range all {
		out[s.term] = s.weight
	}
	return out
}

func termFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, tok := range tokenize(text) {
		if len(tok) < 4 || stopwords[tok] {
			continue
		}
		freq[tok]++
	}
	return freq
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Compact multilingual stopword set (en/es/fr/de), enough to keep function
// words out of the topic list.
var stopwords = func() map[string]bool {
	words := []string{
		// en
		"this", "that", "with", "from", "have", "will", "your", "they",
		"been", "were", "their", "which", "about", "when", "what", "more",
		"also", "other", "some", "there", "would", "could", "should",
		// es
		"para", "como", "esta", "este", "pero", "porque", "donde", "cuando",
		"sobre", "entre", "desde", "hasta", "todos", "todas", "mismo",
		// fr
		"dans", "pour", "avec", "cette", "sont", "mais", "plus", "tout",
		"nous", "vous", "elle", "leur", "sans", "entre", "aussi",
		// de
		"eine", "einen", "einer", "nicht", "auch", "sind", "wird", "werden",
		"diese", "dieser", "durch", "nach", "beim", "oder", "aber",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()
