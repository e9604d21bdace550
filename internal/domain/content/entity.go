package content

import "strings"

// Heading is one document heading in document order.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Page is the reduced view of one fetched page. RawHTML is transient working
// data, it is excluded from marshalling and must never reach persistence.
type Page struct {
	URL           string         `json:"url"`
	RawHTML       string         `json:"-"`
	Text          string         `json:"text"`
	WordCount     int            `json:"word_count"`
	Headings      []Heading      `json:"headings,omitempty"`
	KeywordCounts map[string]int `json:"keyword_counts,omitempty"`
}

// H1 returns the first level-1 heading text, empty when absent.
func (p *Page) H1() string {
	for _, h := range p.Headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}

// KeywordDensity returns occurrences per 100 words for a keyword, 0 when the
// page has no words.
func (p *Page) KeywordDensity(keyword string) float64 {
	if p.WordCount == 0 {
		return 0
	}
	return float64(p.KeywordCounts[strings.ToLower(keyword)]) / float64(p.WordCount) * 100
}

// CountOccurrences counts whole-phrase, case-insensitive occurrences of
// keyword inside text.
func CountOccurrences(text, keyword string) int {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return 0
	}
	return strings.Count(strings.ToLower(text), keyword)
}
