package parser

import (
	"regexp"

	"github.com/rl1809/voice-inventory/internal/core/domain"
)

type IntentRule struct {
	Name    string
	Pattern *regexp.Regexp
	Action  domain.Action
}

// DefaultIntentRules is evaluated top to bottom and the first match wins, so
// "remove tomato completely" is a delete and "change price" or "new price"
// is not an add.
func DefaultIntentRules() []IntentRule {
	return []IntentRule{
		{
			Name:    "delete-completely",
			Pattern: regexp.MustCompile(`(?i)\b(?:remove|take\s+out|clear)\b.*\b(?:completely|entirely|fully|altogether)\b`),
			Action:  domain.ActionDelete,
		},
		{
			Name:    "update-price",
			Pattern: regexp.MustCompile(`(?i)\b(?:update|change|modify|edit|set|correct|revise|new\s+(?:price|rate))\b`),
			Action:  domain.ActionUpdatePrice,
		},
		{
			Name:    "price-to",
			Pattern: regexp.MustCompile(`(?i)\b(?:price|rate)\b.*\b(?:to|now)\s*(?:₹|rs\.?)?\s*\d`),
			Action:  domain.ActionUpdatePrice,
		},
		{
			Name:    "remove",
			Pattern: regexp.MustCompile(`(?i)\b(?:remove|take\s+out|sell|sold|consume|consumed|use|used|reduce|subtract|minus)\b`),
			Action:  domain.ActionRemove,
		},
		{
			Name:    "add",
			Pattern: regexp.MustCompile(`(?i)\b(?:add|adding|added|create|store|insert|new|buy|bought|purchase|purchased|restock|put)\b`),
			Action:  domain.ActionAdd,
		},
		{
			Name:    "delete",
			Pattern: regexp.MustCompile(`(?i)\b(?:delete|del|erase|discard|drop)\b`),
			Action:  domain.ActionDelete,
		},
		{
			Name:    "list",
			Pattern: regexp.MustCompile(`(?i)\b(?:list|everything|show\s+all|display\s+all|all\s+(?:products|items)|show\s+(?:products|items|inventory))\b`),
			Action:  domain.ActionList,
		},
		{
			Name:    "search",
			Pattern: regexp.MustCompile(`(?i)\b(?:search|find|look\s*up|look\s+for|check|where\s+is|show)\b`),
			Action:  domain.ActionSearch,
		},
		{
			Name:    "stock",
			Pattern: regexp.MustCompile(`(?i)\b(?:stock|inventory|how\s+much|how\s+many|available|remaining|left)\b`),
			Action:  domain.ActionStock,
		},
	}
}

type IntentClassifier struct {
	rules []IntentRule
}

func NewIntentClassifier(rules []IntentRule) *IntentClassifier {
	if rules == nil {
		rules = DefaultIntentRules()
	}
	return &IntentClassifier{rules: rules}
}

// Classify returns the action of the first matching rule and the rule's name.
func (c *IntentClassifier) Classify(text string) (domain.Action, string, bool) {
	for _, rule := range c.rules {
		if rule.Pattern.MatchString(text) {
			return rule.Action, rule.Name, true
		}
	}
	return domain.ActionUnknown, "", false
}
