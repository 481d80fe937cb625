package text

import "strings"

const defaultMaxSummaryLength = 300

// ExtractSummary implements §4.1's summary extraction: the first paragraph
// if it fits within maxLength; otherwise a sentence-greedy fill up to
// maxLength; otherwise a word-boundary truncation with an ellipsis.
func ExtractSummary(body string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = defaultMaxSummaryLength
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}

	firstParagraph := body
	if idx := strings.Index(body, "\n\n"); idx != -1 {
		firstParagraph = body[:idx]
	}
	firstParagraph = strings.TrimSpace(firstParagraph)
	if len(firstParagraph) <= maxLength {
		return firstParagraph
	}

	sentences := splitSentences(body)
	var b strings.Builder
	for _, sentence := range sentences {
		candidate := b.String() + sentence
		if len(candidate) > maxLength {
			break
		}
		b.WriteString(sentence)
	}
	if b.Len() > 0 {
		return strings.TrimSpace(b.String())
	}

	return truncateAtWordBoundary(body, maxLength) + "..."
}

func splitSentences(s string) []string {
	var sentences []string
	start := 0
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			end := i + 1
			if end > start {
				sentences = append(sentences, strings.TrimSpace(s[start:end])+" ")
			}
			start = end
		}
	}
	if start < len(s) {
		sentences = append(sentences, strings.TrimSpace(s[start:]))
	}
	return sentences
}

func truncateAtWordBoundary(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	truncated := s[:maxLength]
	if idx := strings.LastIndexByte(truncated, ' '); idx != -1 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}
