package classify

import (
	"strings"

	"github.com/keralagri/newsreel/internal/core/domain"
)

// Weights tune the Kerala relevance score. They are configuration, not
// a correctness contract; the defaults favour explicit place and scheme
// mentions over generic agriculture vocabulary.
type Weights struct {
	PlaceName    float64
	SourceOrigin float64
	AgriKeyword  float64
}

func DefaultWeights() Weights {
	return Weights{
		PlaceName:    0.5,
		SourceOrigin: 0.3,
		AgriKeyword:  0.2,
	}
}

type categoryRule struct {
	category domain.Category
	keywords []string
}

// Rules are evaluated in a fixed order so classification stays
// deterministic and the leading category is the most specific match.
var categoryRules = []categoryRule{
	{domain.CategorySchemes, []string{
		"scheme", "subsidy", "policy", "pradhan mantri", "pm kisan",
		"cabinet", "budget allocation", "sanction", "ministry",
	}},
	{domain.CategoryMarket, []string{
		"price", "market", "selling", "procurement", "msp", "mandi",
		"arrival", "export",
	}},
	{domain.CategoryTechnology, []string{
		"technology", "innovation", "modern", "digital", "drone",
		"app", "sensor",
	}},
	{domain.CategoryWeather, []string{
		"weather", "climate", "rain", "monsoon", "drought", "flood",
	}},
}

// keralaTerms are the fourteen districts plus common state markers.
var keralaTerms = []string{
	"kerala", "malayalam", "kochi", "thiruvananthapuram", "kozhikode",
	"kannur", "alappuzha", "kollam", "palakkad", "thrissur", "ernakulam",
	"wayanad", "kasargod", "pathanamthitta", "idukki", "malappuram",
}

// keralaSchemes are state scheme and institution names that imply
// Kerala relevance even without a place name.
var keralaSchemes = []string{
	"karshaka", "kudumbashree", "supplyco", "krishi bhavan",
	"kerala farmers", "vfpck",
}

var agriKeywords = []string{
	"farmer", "agriculture", "crop", "farming", "kisan", "irrigation",
	"fertilizer", "seed", "harvest", "production", "rural", "village",
	"loan", "paddy", "coconut", "rubber", "spices",
}

// Classifier is the deterministic rule engine assigning categories and
// the Kerala relevance score. The same article text always produces the
// same output, which keeps re-runs idempotent.
type Classifier struct {
	weights       Weights
	keralaSources map[string]bool
}

// New builds a classifier. keralaSources lists source IDs whose origin
// metadata marks them as Kerala-focused outlets.
func New(weights Weights, keralaSources []string) *Classifier {
	origin := make(map[string]bool, len(keralaSources))
	for _, id := range keralaSources {
		origin[id] = true
	}
	return &Classifier{weights: weights, keralaSources: origin}
}

func (c *Classifier) Classify(article *domain.Article) domain.Classification {
	text := strings.ToLower(article.Title + " " + article.Body)

	var categories []domain.Category
	for _, rule := range categoryRules {
		if containsAny(text, rule.keywords) {
			categories = append(categories, rule.category)
		}
	}
	if len(categories) == 0 {
		categories = []domain.Category{domain.CategoryGeneral}
	}

	return domain.Classification{
		Categories:  categories,
		KeralaScore: c.keralaScore(text, article.SourceRefs),
	}
}

// keralaScore is a weighted sum clamped to [0,1]: explicit place or
// scheme mentions weigh most, source origin next, generic agriculture
// vocabulary least.
func (c *Classifier) keralaScore(text string, refs []domain.SourceRef) float64 {
	var score float64

	hits := countMatches(text, keralaTerms) + countMatches(text, keralaSchemes)
	if hits > 0 {
		score += c.weights.PlaceName * saturate(hits, 2)
	}

	for _, ref := range refs {
		if c.keralaSources[ref.SourceID] {
			score += c.weights.SourceOrigin
			break
		}
	}

	if agriHits := countMatches(text, agriKeywords); agriHits > 0 {
		score += c.weights.AgriKeyword * saturate(agriHits, 4)
	}

	return clamp01(score)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func countMatches(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}

// saturate maps a hit count onto (0,1], reaching 1 at the given ceiling
// so a single extra keyword cannot dominate the score.
func saturate(hits, ceiling int) float64 {
	if hits >= ceiling {
		return 1
	}
	return float64(hits) / float64(ceiling)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
