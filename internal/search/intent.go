package search

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

// File-name-like tokens point at code.
var fileNamePattern = regexp.MustCompile(`(?i)^[\w\-./\\]+\.(go|ts|tsx|js|jsx|py|rb|rs|java|kt|c|cc|cpp|h|hpp|cs|php|swift|sh|sql|proto|tf|yaml|yml|toml)$`)

// defaultTriggers maps single lowercase tokens to the source type they suggest.
var defaultTriggers = map[string]store.SourceType{
	// issue tracker
	"ticket":  store.SourceIssue,
	"tickets": store.SourceIssue,
	"bug":     store.SourceIssue,
	"bugs":    store.SourceIssue,
	"issue":   store.SourceIssue,
	"issues":  store.SourceIssue,
	"jira":    store.SourceIssue,
	"epic":    store.SourceIssue,
	"sprint":  store.SourceIssue,
	"backlog": store.SourceIssue,

	// wiki
	"confluence": store.SourceWiki,
	"wiki":       store.SourceWiki,
	"page":       store.SourceWiki,
	"pages":      store.SourceWiki,

	// code
	"repo":       store.SourceCode,
	"repos":      store.SourceCode,
	"repository": store.SourceCode,
	"git":        store.SourceCode,
	"github":     store.SourceCode,
	"commit":     store.SourceCode,
	"function":   store.SourceCode,
	"source":     store.SourceCode,

	// docs
	"docs":     store.SourceDoc,
	"readme":   store.SourceDoc,
	"manual":   store.SourceDoc,
	"handbook": store.SourceDoc,
	"guide":    store.SourceDoc,
}

// defaultPhraseTriggers match multi-word phrases on the lowercased query.
var defaultPhraseTriggers = map[string]store.SourceType{
	"pull request":   store.SourceCode,
	"source code":    store.SourceCode,
	"user story":     store.SourceIssue,
	"public docs":    store.SourceDoc,
	"knowledge base": store.SourceWiki,
}

// IntentClassifier maps query text to the source types it mentions.
// It is pure pattern matching: deterministic, no I/O, never fails.
type IntentClassifier struct {
	triggers map[string]store.SourceType
	phrases  map[string]store.SourceType
}

// NewIntentClassifier returns a classifier with the default trigger tables.
func NewIntentClassifier() *IntentClassifier {
	return &IntentClassifier{triggers: defaultTriggers, phrases: defaultPhraseTriggers}
}

// Classify returns the union of source types triggered by text, sorted.
// An empty result means no filter.
func (c *IntentClassifier) Classify(text string) []store.SourceType {
	lower := strings.ToLower(text)
	var found []store.SourceType

	for _, field := range strings.Fields(lower) {
		field = strings.Trim(field, "?!,;:\"'()[]")
		if fileNamePattern.MatchString(field) {
			found = append(found, store.SourceCode)
		}
		for _, tok := range splitWords(field) {
			if st, ok := c.triggers[tok]; ok {
				found = append(found, st)
			}
		}
	}

	padded := " " + strings.Join(splitWords(lower), " ") + " "
	for phrase, st := range c.phrases {
		if strings.Contains(padded, " "+phrase+" ") {
			found = append(found, st)
		}
	}

	return store.NewFilter(found...).SourceTypes
}

// splitWords splits on anything that is not a letter or digit.
func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
