package collector

import (
	"strings"
	"time"

	"catchup-feed/internal/utils/text"
)

const minPreferredContentLen = 50

// extractedEntry is a RawEntry after content-candidate selection and date
// resolution — everything the caller needs to build an Article.
type extractedEntry struct {
	Title       string
	Link        string
	Content     string
	PublishedAt time.Time
}

// extractEntry implements §4.3's extraction rule: the longest candidate at
// least minPreferredContentLen chars wins; otherwise the longest of any;
// otherwise the title is the content fallback. Title and link are
// mandatory — the caller skips an entry when extraction returns false.
func extractEntry(raw RawEntry, now time.Time) (extractedEntry, bool) {
	title := strings.TrimSpace(raw.Title)
	link := strings.TrimSpace(raw.Link)
	if title == "" || link == "" {
		return extractedEntry{}, false
	}

	content := selectContent(raw.ContentCandidates, title)
	publishedAt := resolveDate(raw, now)

	return extractedEntry{
		Title:       title,
		Link:        link,
		Content:     content,
		PublishedAt: publishedAt,
	}, true
}

func selectContent(candidates []string, titleFallback string) string {
	var best string
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if len(c) >= minPreferredContentLen {
			if len(c) > len(best) || len(best) < minPreferredContentLen {
				best = c
			}
			continue
		}
		if len(best) < minPreferredContentLen && len(c) > len(best) {
			best = c
		}
	}
	if best == "" {
		return titleFallback
	}
	return best
}

// resolveDate tries the caller-ordered date candidates (published, updated,
// created, pubDate) before falling back to a feed's structured time field,
// and finally to now when nothing parses.
func resolveDate(raw RawEntry, now time.Time) time.Time {
	for _, candidate := range raw.DateCandidates {
		if candidate == "" {
			continue
		}
		if t, err := text.ParseDate(candidate); err == nil {
			return t
		}
	}
	if raw.StructuredTime != nil {
		return *raw.StructuredTime
	}
	return now
}
