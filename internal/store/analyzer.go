package store

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/registry"
)

const (
	// WordTokenizerName splits on non-alphanumeric boundaries and breaks
	// identifiers into their camelCase and snake_case parts.
	WordTokenizerName = "loadermcp_words"

	analyzerName = "loadermcp"

	minTermRunes = 2
)

func init() {
	_ = registry.RegisterTokenizer(WordTokenizerName, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return wordTokenizer{}, nil
	})
}

// AnalyzerOptions controls term extraction.
type AnalyzerOptions struct {
	StopWords bool
}

// Analyzer turns text into index terms. The same Analyzer must be used to
// build the CorpusIndex and to analyse queries.
type Analyzer struct {
	opts     AnalyzerOptions
	analyzer analysis.Analyzer
}

// NewAnalyzer builds the bleve analysis chain: word tokenizer, lowercase,
// and optionally the English stop list.
func NewAnalyzer(opts AnalyzerOptions) (*Analyzer, error) {
	cache := registry.NewCache()
	a, err := cache.DefineAnalyzer(analyzerName, analyzerConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("failed to build analyzer: %w", err)
	}
	return &Analyzer{opts: opts, analyzer: a}, nil
}

// analyzerConfig is the bleve definition of the chain, shared by the
// standalone Analyzer and the KeywordIndex mapping.
func analyzerConfig(opts AnalyzerOptions) map[string]interface{} {
	filters := []string{lowercase.Name}
	if opts.StopWords {
		filters = append(filters, en.StopName)
	}
	return map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     WordTokenizerName,
		"token_filters": filters,
	}
}

// Options returns the options the analyzer was built with.
func (a *Analyzer) Options() AnalyzerOptions {
	return a.opts
}

// Terms returns the analysed terms of text in order, with repeats.
func (a *Analyzer) Terms(text string) []string {
	stream := a.analyzer.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// TermFrequencies returns term counts and the total term count of text.
func (a *Analyzer) TermFrequencies(text string) (map[string]int, int) {
	terms := a.Terms(text)
	tf := make(map[string]int, len(terms))
	for _, t := range terms {
		tf[t]++
	}
	return tf, len(terms)
}

// UniqueTerms returns the distinct terms of text in first-seen order.
func (a *Analyzer) UniqueTerms(text string) []string {
	terms := a.Terms(text)
	seen := make(map[string]struct{}, len(terms))
	out := terms[:0]
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// wordTokenizer emits every alphanumeric run and, for compound identifiers
// such as parseHTTPRequest or max_retries, each of their parts as well.
// Terms shorter than two runes are dropped.
type wordTokenizer struct{}

func (wordTokenizer) Tokenize(input []byte) analysis.TokenStream {
	var (
		stream analysis.TokenStream
		pos    = 1
	)
	emit := func(term string, start, end int) {
		if utf8.RuneCountInString(term) < minTermRunes {
			return
		}
		stream = append(stream, &analysis.Token{
			Term:     []byte(term),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
	}

	text := string(input)
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		word := text[start:end]
		parts := splitIdentifier(word)
		if len(parts) == 1 {
			emit(word, start, end)
		} else {
			emit(strings.ReplaceAll(word, "_", ""), start, end)
			for _, p := range parts {
				emit(p, start, end)
			}
		}
		start = -1
	}

	for i, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(text))
	return stream
}

// splitIdentifier breaks word on underscores and case changes.
//
//	getUserById      -> get User By Id
//	parseHTTPRequest -> parse HTTP Request
//	max_retries      -> max retries
func splitIdentifier(word string) []string {
	var parts []string
	for _, seg := range strings.Split(word, "_") {
		if seg == "" {
			continue
		}
		parts = append(parts, splitCamel(seg)...)
	}
	if len(parts) == 0 {
		return []string{word}
	}
	return parts
}

func splitCamel(s string) []string {
	runes := []rune(s)
	var (
		parts []string
		from  int
	)
	for i := 1; i < len(runes); i++ {
		if !unicode.IsUpper(runes[i]) {
			continue
		}
		prevLower := unicode.IsLower(runes[i-1])
		nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
		if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
			parts = append(parts, string(runes[from:i]))
			from = i
		}
	}
	return append(parts, string(runes[from:]))
}
