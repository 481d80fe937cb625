package processor

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/utils/text"
)

const (
	topicWindow      = 1000
	geoWindow        = 2000
	importanceWindow = 500
	minSummaryLen    = 50
	maxSummaryLen    = 400
	minBodyForSummary = 300
	qualityScoreEpsilon = 1.0
)

var tickerPattern = regexp.MustCompile(`\b[A-Z]{3,5}\b`)

// enhance applies the six per-article enhancement steps in place, mutating
// only the fields each step owns. It never flips Flags.ContentProcessed —
// the caller does that only after every step for the batch succeeds.
func (s *Service) enhance(a *entity.Article, now time.Time) {
	s.recomputeFingerprint(a)
	a.WordCount = text.WordCount(a.Body)
	a.ReadingMinutes = entity.ReadingMinutesFor(a.WordCount)
	s.classifyTopic(a)
	s.extractGeography(a)
	s.classifyImportance(a)
	s.extractTickers(a)
	s.scoreQuality(a, now)
	s.regenerateSummary(a)
}

func (s *Service) recomputeFingerprint(a *entity.Article) {
	fp := text.Fingerprint(a.Title, a.URL)
	if fp != a.Fingerprint {
		a.Fingerprint = fp
	}
}

func lowerWindow(s string, n int) string {
	if len(s) > n {
		s = s[:n]
	}
	return strings.ToLower(s)
}

func (s *Service) classifyTopic(a *entity.Article) {
	haystack := lowerWindow(a.Title+" "+a.Body, topicWindow)

	type scored struct {
		topic entity.Topic
		score int
	}
	var scores []scored
	for _, topic := range defaultTopicOrder {
		score := 0
		for _, kw := range s.tables.Topics[topic] {
			if strings.Contains(haystack, kw) {
				score++
			}
		}
		if score > 0 {
			scores = append(scores, scored{topic, score})
		}
	}
	if len(scores) == 0 {
		return
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	a.PrimaryTopic = scores[0].topic
	secondary := make([]entity.Topic, 0, 3)
	for _, sc := range scores[1:] {
		if len(secondary) == 3 {
			break
		}
		secondary = append(secondary, sc.topic)
	}
	a.SecondaryTopics = secondary
}

func (s *Service) extractGeography(a *entity.Article) {
	haystack := lowerWindow(a.Title+" "+a.Body, geoWindow)

	seen := make(map[string]bool, len(a.CountriesMentioned))
	for _, c := range a.CountriesMentioned {
		seen[c] = true
	}
	for country, aliases := range s.tables.Countries {
		if seen[country] {
			continue
		}
		for _, alias := range aliases {
			if strings.Contains(haystack, alias) {
				seen[country] = true
				break
			}
		}
	}
	countries := make([]string, 0, len(seen))
	for c := range seen {
		countries = append(countries, c)
	}
	sort.Strings(countries)
	a.CountriesMentioned = countries
	if a.PrimaryRegion == "" && len(countries) > 0 {
		a.PrimaryRegion = countries[0]
	}
}

func countKeywords(haystack string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(haystack, kw) {
			count++
		}
	}
	return count
}

func (s *Service) classifyImportance(a *entity.Article) {
	haystack := lowerWindow(a.Title+" "+a.Body, importanceWindow)
	breaking := countKeywords(haystack, breakingKeywords)
	important := countKeywords(haystack, importantKeywords)

	switch {
	case breaking >= 2 || (breaking >= 1 && a.SourceReliability >= 90):
		a.Importance = entity.ImportanceBreaking
	case important >= 2 || (important >= 1 && breaking >= 1):
		a.Importance = entity.ImportanceImportant
	default:
		a.Importance = entity.ImportanceRegular
	}
}

func (s *Service) extractTickers(a *entity.Article) {
	matches := tickerPattern.FindAllString(a.Body, -1)
	seen := make(map[string]bool)
	tickers := make([]string, 0, maxTickers)
	for _, m := range matches {
		if tickerBlacklist[m] || seen[m] {
			continue
		}
		seen[m] = true
		tickers = append(tickers, m)
		if len(tickers) == maxTickers {
			break
		}
	}
	a.Tickers = tickers

	haystack := strings.ToLower(a.Body)
	bestSector := ""
	bestScore := 0
	for sector, kws := range s.tables.Sectors {
		score := countKeywords(haystack, kws)
		if score > bestScore {
			bestScore = score
			bestSector = sector
		}
	}
	a.MarketSector = bestSector
}

// scoreQuality implements §8 scenario 5's worked example: length tier
// (0-30), reliability·0.25 (0-~24), title richness (0-15), recency (0-15),
// topic specificity (0-10), and geographic hits (0-5).
func (s *Service) scoreQuality(a *entity.Article, now time.Time) {
	lengthScore := a.BodyLengthTier()
	reliabilityScore := float64(a.SourceReliability) * 0.25

	titleScore := float64(len(a.Title)) / 40 * 15
	if titleScore > 15 {
		titleScore = 15
	}

	age := now.Sub(a.PublishedAt)
	var recencyScore float64
	switch {
	case age <= 6*time.Hour:
		recencyScore = 15
	case age <= 24*time.Hour:
		recencyScore = 10
	case age <= 72*time.Hour:
		recencyScore = 5
	default:
		recencyScore = 0
	}

	topicScore := 0.0
	if a.PrimaryTopic != "" && a.PrimaryTopic != entity.TopicGeneral {
		topicScore = 10
	}

	geoScore := 0.0
	if len(a.CountriesMentioned) > 0 {
		geoScore = 5
	}

	score := lengthScore + reliabilityScore + titleScore + recencyScore + topicScore + geoScore
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	if diff := score - a.QualityScore; diff > qualityScoreEpsilon || diff < -qualityScoreEpsilon {
		a.QualityScore = score
	}
}

func (s *Service) regenerateSummary(a *entity.Article) {
	if len(a.Body) < minBodyForSummary {
		return
	}
	if n := len(a.Summary); n >= minSummaryLen && n <= maxSummaryLen {
		return
	}
	a.Summary = text.ExtractSummary(a.Body, maxSummaryLen)
}
