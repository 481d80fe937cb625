package processor

import (
	"os"

	"gopkg.in/yaml.v3"

	"catchup-feed/internal/domain/entity"
)

// KeywordTables holds the static classification tables the processor scores
// articles against. The defaults below cover the closed topic/country sets;
// an operator may override them with a YAML file (see LoadKeywordTables) to
// extend country aliases or tune topic keywords without a rebuild.
type KeywordTables struct {
	Topics    map[entity.Topic][]string `yaml:"topics"`
	Countries map[string][]string       `yaml:"countries"`
	Sectors   map[string][]string       `yaml:"sectors"`
}

var defaultTopicOrder = []entity.Topic{
	entity.TopicTechnology,
	entity.TopicBusiness,
	entity.TopicPolitics,
	entity.TopicHealth,
	entity.TopicScience,
	entity.TopicSports,
}

func defaultKeywordTables() *KeywordTables {
	return &KeywordTables{
		Topics: map[entity.Topic][]string{
			entity.TopicTechnology: {"software", "ai", "startup", "chip", "app", "tech", "cyber", "robot", "semiconductor", "algorithm"},
			entity.TopicBusiness:   {"market", "stock", "earnings", "ipo", "merger", "economy", "trade", "bank", "revenue", "investor"},
			entity.TopicPolitics:   {"election", "senate", "president", "congress", "minister", "policy", "parliament", "governor", "legislation"},
			entity.TopicHealth:     {"vaccine", "hospital", "disease", "patient", "clinical", "fda", "outbreak", "treatment"},
			entity.TopicScience:    {"research", "study", "discovery", "physics", "biology", "telescope", "nasa", "genome"},
			entity.TopicSports:     {"championship", "tournament", "league", "coach", "match", "athlete", "olympic"},
		},
		Countries: map[string][]string{
			"US": {"united states", "u.s.", "usa", "washington"},
			"UK": {"united kingdom", "britain", "london"},
			"JP": {"japan", "tokyo"},
			"CN": {"china", "beijing"},
			"DE": {"germany", "berlin"},
			"FR": {"france", "paris"},
			"IN": {"india", "new delhi"},
			"BR": {"brazil", "brasilia"},
		},
		Sectors: map[string][]string{
			"technology": {"software", "semiconductor", "cloud", "ai", "chip"},
			"finance":    {"bank", "lender", "insurer", "credit", "loan"},
			"energy":     {"oil", "gas", "solar", "pipeline", "renewable"},
			"healthcare": {"pharma", "biotech", "hospital", "drug"},
			"retail":     {"retailer", "store", "e-commerce", "consumer"},
		},
	}
}

// LoadKeywordTables starts from the defaults and merges in a YAML override
// file when path is non-empty; a missing or unreadable file is not an error
// — the defaults remain authoritative (fail-open, matching the rest of the
// configuration layer).
func LoadKeywordTables(path string) *KeywordTables {
	tables := defaultKeywordTables()
	if path == "" {
		return tables
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tables
	}
	var override KeywordTables
	if err := yaml.Unmarshal(data, &override); err != nil {
		return tables
	}
	for topic, kws := range override.Topics {
		tables.Topics[topic] = kws
	}
	for country, aliases := range override.Countries {
		tables.Countries[country] = aliases
	}
	for sector, kws := range override.Sectors {
		tables.Sectors[sector] = kws
	}
	return tables
}

var breakingKeywords = []string{"breaking", "urgent", "alert", "just in", "developing", "exclusive", "emergency", "crisis", "disaster", "tragedy"}

var importantKeywords = []string{"major", "significant", "historic", "unprecedented", "announcement", "decision", "ruling", "verdict"}

var tickerBlacklist = map[string]bool{
	"THE": true, "AND": true, "FOR": true, "ARE": true, "BUT": true, "NOT": true,
	"YOU": true, "ALL": true, "NEW": true, "ONE": true, "OUR": true, "OUT": true,
	"HER": true, "HAS": true, "HIS": true, "HOW": true, "WHO": true, "WAS": true,
	"USA": true, "CEO": true, "CFO": true, "CTO": true, "INC": true, "LLC": true,
	"LTD": true, "HTML": true, "CSS": true, "HTTP": true, "HTTPS": true, "JSON": true,
}

const maxTickers = 10
