package text

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true,
}

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "ref", "source"}

var (
	nonWordRe     = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	articlePrefix = regexp.MustCompile(`(?i)^(breaking|exclusive|update):\s*`)
)

// Fingerprint is the article's immutable identity: MD5 of
// normalize(title) || "||" || canonicalize(url). Body content never
// participates so minor edits don't change identity.
func Fingerprint(title, rawURL string) string {
	input := NormalizeForHash(title) + "||" + CanonicalizeURL(rawURL)
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

// NormalizeForHash lowercases, collapses whitespace, strips punctuation,
// and drops stop words and tokens of length <= 2.
func NormalizeForHash(s string) string {
	if s == "" {
		return ""
	}
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = whitespaceRe.ReplaceAllString(normalized, " ")
	normalized = nonWordRe.ReplaceAllString(normalized, "")

	words := strings.Fields(normalized)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if stopWords[w] || len(w) <= 2 {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// CanonicalizeURL lowercases, strips fragments/queries, trims the trailing
// slash, and removes known tracking params.
func CanonicalizeURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	normalized := strings.ToLower(strings.TrimSpace(rawURL))

	if idx := strings.IndexAny(normalized, "?#"); idx != -1 {
		normalized = normalized[:idx]
	}
	normalized = strings.TrimRight(normalized, "/")

	for _, p := range trackingParams {
		normalized = regexp.MustCompile(`[?&]`+p+`=[^&]*`).ReplaceAllString(normalized, "")
	}
	return normalized
}

// SimilarityHash is the first 8 hex of SHA-256 over the first 1000
// characters of the content, HTML-stripped and whitespace-collapsed.
// Used only for diagnostics, never for equality.
func SimilarityHash(content string) string {
	if content == "" {
		return "00000000"
	}
	normalized := normalizeForSimilarity(content)
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:8]
}

func normalizeForSimilarity(content string) string {
	sample := content
	if len(sample) > 1000 {
		sample = sample[:1000]
	}
	sample = strings.ToLower(sample)
	sample = htmlTagRe.ReplaceAllString(sample, "")
	sample = whitespaceRe.ReplaceAllString(sample, " ")
	sample = strings.TrimSpace(sample)
	sample = articlePrefix.ReplaceAllString(sample, "")
	return sample
}

// NormalizeTitleForDedup is the title-similarity strategy's normalization:
// lowercase, strip a leading "breaking:"/"exclusive:"/etc prefix, strip a
// trailing " - <source>" suffix, remove non-word characters, and collapse
// whitespace.
func NormalizeTitleForDedup(title string) string {
	normalized := strings.ToLower(strings.TrimSpace(title))
	normalized = articlePrefix.ReplaceAllString(normalized, "")
	if idx := strings.LastIndex(normalized, " - "); idx != -1 {
		normalized = normalized[:idx]
	}
	normalized = nonWordRe.ReplaceAllString(normalized, " ")
	normalized = whitespaceRe.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// URLDomain extracts the host portion of a URL for the deduplicator's
// domain-based grouping strategy.
func URLDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
