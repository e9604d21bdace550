package middleware

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

// supportedLocales matches the scraper's locale table
var supportedLocales = map[string]bool{
	"us": true, "uk": true, "ca": true, "au": true,
	"es": true, "mx": true, "fr": true, "de": true, "id": true,
}

// ValidateURL validates and sanitizes URLs
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	// Parse URL
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}

	// Check scheme
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s (allowed: http, https)", u.Scheme)
	}

	// Check for localhost/internal IPs (SSRF protection)
	host := strings.ToLower(u.Hostname())
	blocked := []string{"localhost", "127.0.0.1", "0.0.0.0", "[::]", "::1"}
	for _, b := range blocked {
		if strings.Contains(host, b) {
			return fmt.Errorf("localhost/internal IPs are not allowed")
		}
	}

	// Block private IP ranges (basic check)
	if strings.HasPrefix(host, "10.") ||
		strings.HasPrefix(host, "192.168.") ||
		strings.HasPrefix(host, "172.16.") ||
		strings.HasPrefix(host, "172.31.") {
		return fmt.Errorf("private IP ranges are not allowed")
	}

	return nil
}

// ValidateLocale checks the locale against the scraper's table
func ValidateLocale(locale string) error {
	if locale == "" {
		return nil // default applies
	}
	if !supportedLocales[strings.ToLower(locale)] {
		return fmt.Errorf("unsupported locale: %s", locale)
	}
	return nil
}

// ValidateKeyword rejects empty or oversized keywords and query operators
// that would change the meaning of a search
func ValidateKeyword(keyword string) error {
	kw := strings.TrimSpace(keyword)
	if kw == "" {
		return fmt.Errorf("keyword cannot be empty")
	}
	if len(kw) > 128 {
		return fmt.Errorf("keyword too long (max 128 chars)")
	}
	dangerous := []string{"site:", "inurl:", "intitle:", "filetype:", "\n", "\r"}
	lower := strings.ToLower(kw)
	for _, d := range dangerous {
		if strings.Contains(lower, d) {
			return fmt.Errorf("invalid characters in keyword")
		}
	}
	return nil
}

// ValidateAnalysisID validates analysis ID format (UUID)
func ValidateAnalysisID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}

	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	matched, _ := regexp.MatchString(pattern, id)
	if !matched {
		return fmt.Errorf("invalid analysis ID format")
	}

	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
