// Package utils provides shared utilities for text, math, and logging.
package utils

import (
	"regexp"
	"strings"
	"unicode"
)

// Truncate returns s truncated to maxLen runes, with "..." appended if truncated.
// If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

var sentenceRe = regexp.MustCompile(`[^.!?\n]+(?:[.!?]+|\n|$)`)

// SplitSentences splits text into trimmed sentences. Line breaks also end a sentence
// so that list items and table rows stay separate.
func SplitSentences(text string) []string {
	var out []string
	for _, m := range sentenceRe.FindAllString(text, -1) {
		if s := strings.TrimSpace(m); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again all am an and any are as at be because been
	before being below between both but by can could did do does doing down during each few for from
	further get got had has have having he her here hers him his how i if in into is it its itself just
	let me more most my no nor not of off on once only or other our ours out over own same she should so
	some such than that the their theirs them then there these they this those through to too under
	until up very was we were what when where which while who whom why will with would you your yours
	many much tell please`) {
		stopwords[w] = struct{}{}
	}
}

// IsStopword reports whether w (lower case) carries no retrieval signal.
func IsStopword(w string) bool {
	_, ok := stopwords[w]
	return ok
}

// Terms returns the normalized content terms of text: lower-cased, split on
// non-alphanumerics, stopwords dropped and plural suffixes folded.
func Terms(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	terms := make([]string, 0, len(words))
	for _, w := range words {
		if IsStopword(w) {
			continue
		}
		terms = append(terms, Stem(w))
	}
	return terms
}

// Stem folds common English plural endings so "days" and "day" share a term.
func Stem(w string) string {
	n := len(w)
	switch {
	case n > 4 && strings.HasSuffix(w, "ies"):
		return w[:n-3] + "y"
	case n > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && !strings.HasSuffix(w, "us"):
		return w[:n-1]
	}
	return w
}
