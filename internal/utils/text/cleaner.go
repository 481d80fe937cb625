package text

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var discardedTags = map[string]bool{
	"script": true, "style": true, "meta": true, "link": true,
	"noscript": true, "iframe": true, "embed": true, "object": true,
	"applet": true, "form": true,
}

// blockSeparators maps block-level tags to the separator inserted after
// their text content, preserving paragraph/line structure when markup is
// stripped.
var blockSeparators = map[string]string{
	"p": "\n\n", "div": "\n", "br": "\n", "li": "\n",
	"h1": "\n\n", "h2": "\n\n", "h3": "\n\n", "h4": "\n\n",
	"tr": "\n", "blockquote": "\n\n",
}

var junkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)read more.*$`),
	regexp.MustCompile(`(?i)continue reading.*$`),
	regexp.MustCompile(`(?i)share this (article|post|story).*$`),
	regexp.MustCompile(`(?i)follow us on (twitter|facebook|instagram).*$`),
	regexp.MustCompile(`(?i)subscribe to our newsletter.*$`),
	regexp.MustCompile(`(?i)advertisement\s*`),
	regexp.MustCompile(`(?i)\[sponsored\]`),
}

// CleanHTML parses markup, discards non-content tag subtrees, preserves
// block formatting via separators, decodes entities (goquery/html already
// do so while parsing), normalizes unicode, and strips a fixed catalog of
// junk patterns. Input that fails to parse as HTML is returned
// whitespace-normalized as plain text.
func CleanHTML(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return stripJunk(normalizeUnicode(collapseWhitespace(raw)))
	}

	for tag := range discardedTags {
		doc.Find(tag).Remove()
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			if sep, ok := blockSeparators[n.Data]; ok {
				b.WriteString(sep)
			}
		}
	}
	if doc.Selection.Length() > 0 {
		for _, n := range doc.Nodes {
			walk(n)
		}
	}

	cleaned := collapseWhitespace(b.String())
	cleaned = normalizeUnicode(cleaned)
	cleaned = stripJunk(cleaned)
	return cleaned
}

func collapseWhitespace(s string) string {
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// normalizeUnicode approximates NFKC (compatibility composition) by
// filtering to printable runes and stripping control characters left
// behind by markup decoding.
func normalizeUnicode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsControl(r) && r != '\n' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func stripJunk(s string) string {
	for _, p := range junkPatterns {
		s = p.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// WordCount counts whitespace-delimited tokens, used for reading-time
// estimation and the processor's length-based quality score.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
