package collector

import (
	"strings"

	"catchup-feed/internal/domain/entity"
)

// provisionalTopicKeywords is the keyword rule used at ingest when a
// source carries no topic tags. The richer classifier in the content
// processor (§4.4) supersedes this once the article is enhanced.
var provisionalTopicOrder = []entity.Topic{entity.TopicTechnology, entity.TopicBusiness, entity.TopicPolitics}

var provisionalTopicKeywords = map[entity.Topic][]string{
	entity.TopicTechnology: {"software", "ai", "startup", "chip", "app", "tech", "cyber", "robot"},
	entity.TopicBusiness:   {"market", "stock", "earnings", "ipo", "merger", "economy", "trade", "bank"},
	entity.TopicPolitics:   {"election", "senate", "president", "congress", "minister", "policy", "parliament"},
}

// classifyProvisional implements §4.3's ingest-time classification: the
// first tag in the source's topic list if present, otherwise a keyword
// rule over title+content scoped to {technology, business, politics,
// general}.
func classifyProvisional(sourceTopics []string, title, content string) entity.Topic {
	if len(sourceTopics) > 0 {
		return entity.Topic(sourceTopics[0])
	}

	haystack := strings.ToLower(title + " " + content)
	best := entity.TopicGeneral
	bestScore := 0
	for _, topic := range provisionalTopicOrder {
		score := 0
		for _, kw := range provisionalTopicKeywords[topic] {
			if strings.Contains(haystack, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = topic
		}
	}
	return best
}
