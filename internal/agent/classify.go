package agent

import "strings"

// Classifier maps a task message to the intents it expresses, most
// specific first.
type Classifier interface {
	Classify(message string) []string
}

// Rule matches when the message contains every All keyword and, if Any is
// set, at least one Any keyword. Matching is case-insensitive.
type Rule struct {
	Intent string
	All    []string
	Any    []string
}

func (r Rule) matches(lower string) bool {
	for _, kw := range r.All {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, kw := range r.Any {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// KeywordClassifier evaluates rules in order.
type KeywordClassifier []Rule

func (c KeywordClassifier) Classify(message string) []string {
	lower := strings.ToLower(message)
	var intents []string
	for _, r := range c {
		if r.matches(lower) {
			intents = append(intents, r.Intent)
		}
	}
	return intents
}

func firstIntent(c Classifier, message string) string {
	if intents := c.Classify(message); len(intents) > 0 {
		return intents[0]
	}
	return ""
}
