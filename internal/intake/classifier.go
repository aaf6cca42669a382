// Package intake classifies free-text problem descriptions into coarse
// categories by keyword matching.
package intake

import (
	"strings"

	"golang.org/x/text/cases"
)

type Category string

const (
	Browser Category = "BROWSER"
	Startup Category = "STARTUP"
	Generic Category = "GENERIC"
)

// Rule maps any of its keywords to a category.
type Rule struct {
	Category Category
	Keywords []string
	Summary  string // optional, overrides the built-in diagnosis line
}

// DefaultRules is the built-in rule order. Order matters: text that mentions
// both a browser and startup is classified as Browser.
var DefaultRules = []Rule{
	{Category: Browser, Keywords: []string{"брауз", "browser", "chrome", "firefox"}},
	{Category: Startup, Keywords: []string{"автозапуск", "запуск", "вмика", "startup", "boot"}},
}

var summaries = map[Category]string{
	Browser: "Схоже на проблему з браузером/розширеннями або апаратним прискоренням.",
	Startup: "Схоже на перевантажений автозапуск або системні служби.",
	Generic: "Схоже на навантаження системи (автозапуск/диск/служби).",
}

// Classifier is safe for concurrent use; it is never mutated after New.
type Classifier struct {
	rules     []Rule
	summaries map[Category]string
}

// New builds a classifier over rules, folding keywords once up front.
// Nil or empty rules fall back to DefaultRules.
func New(rules []Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules
	}

	folded := make([]Rule, 0, len(rules))
	custom := make(map[Category]string)
	for _, rule := range rules {
		if rule.Summary != "" {
			custom[rule.Category] = rule.Summary
		}
		keywords := make([]string, 0, len(rule.Keywords))
		for _, keyword := range rule.Keywords {
			if keyword = fold(strings.TrimSpace(keyword)); keyword != "" {
				keywords = append(keywords, keyword)
			}
		}
		folded = append(folded, Rule{Category: rule.Category, Keywords: keywords})
	}

	return &Classifier{rules: folded, summaries: custom}
}

// Classify returns the category of the first rule with a keyword contained
// in text, or Generic.
func (c *Classifier) Classify(text string) Category {
	text = fold(text)
	for _, rule := range c.rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(text, keyword) {
				return rule.Category
			}
		}
	}
	return Generic
}

// Summary is the diagnosis line shown for a category.
func (c *Classifier) Summary(category Category) string {
	if s, ok := c.summaries[category]; ok {
		return s
	}
	if s, ok := summaries[category]; ok {
		return s
	}
	return summaries[Generic]
}

// cases.Caser keeps state, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}
