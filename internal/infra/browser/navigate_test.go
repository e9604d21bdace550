package browser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockedByStatus(t *testing.T) {
	assert.True(t, blocked("https://www.google.com/search?q=x", "<html></html>", 429))
	assert.False(t, blocked("https://www.google.com/search?q=x", "<html></html>", 200))
	// status unknown (no document event seen) falls back to content checks
	assert.False(t, blocked("https://www.google.com/search?q=x", "<html></html>", 0))
}

func TestBlockedByRedirectLocation(t *testing.T) {
	assert.True(t, blocked("https://www.google.com/sorry/index?continue=x", "<html></html>", 200))
}

func TestBlockedByBodyMarkerOnlyWhenSmall(t *testing.T) {
	small := "<html><body>please solve this captcha to continue</body></html>"
	assert.True(t, blocked("https://www.google.com/search", small, 200))

	// a long article mentioning the word is not a block page
	large := "<html><body>what is a captcha anyway " + strings.Repeat("lorem ipsum ", 2000) + "</body></html>"
	assert.False(t, blocked("https://www.google.com/search", large, 200))
}
