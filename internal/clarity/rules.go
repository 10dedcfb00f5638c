package clarity

import (
	"regexp"
	"strings"
	"unicode"
)

// jargonRule maps a commonly misheard phrase to its canonical technical term.
// Phrases are matched case-insensitively as literal text. Canonical forms are
// deliberately never used as keys, so correcting an already-corrected string
// is a no-op.
type jargonRule struct {
	misheard  string
	canonical string
	pattern   *regexp.Regexp
}

// jargonRules is applied in order; order also fixes the order of recorded
// correction pairs.
var jargonRules = compileJargon([]jargonRule{
	{misheard: "get hub", canonical: "github"},
	{misheard: "git hub", canonical: "github"},
	{misheard: "pie torch", canonical: "pytorch"},
	{misheard: "dock her", canonical: "docker"},
	{misheard: "colonel", canonical: "kernel"},
	{misheard: "my sequel", canonical: "mysql"},
	{misheard: "pose gres", canonical: "postgres"},
	{misheard: "kuber netties", canonical: "kubernetes"},
})

func compileJargon(rules []jargonRule) []jargonRule {
	for i := range rules {
		rules[i].pattern = regexp.MustCompile("(?i)" + regexp.QuoteMeta(rules[i].misheard))
	}
	return rules
}

// applyJargon replaces every literal occurrence of each misheard phrase and
// records one (original, corrected) pair per matched rule.
func applyJargon(text string) (string, []Correction) {
	var corrections []Correction
	for _, r := range jargonRules {
		if !r.pattern.MatchString(text) {
			continue
		}
		text = r.pattern.ReplaceAllString(text, r.canonical)
		corrections = append(corrections, Correction{Original: r.misheard, Corrected: r.canonical})
	}
	return text, corrections
}

// homophoneRule substitutes a word only when the following word belongs to
// the rule's disambiguating set. Unmatched contexts are left unchanged rather
// than guessed at.
type homophoneRule struct {
	replacement string
	next        map[string]bool
}

// homophoneRules is keyed by the (lower-cased, punctuation-stripped) spoken
// word. A word may carry several rules tried in order.
var homophoneRules = map[string][]homophoneRule{
	"too": {
		// "too the store" → "to the store": articles and destination nouns.
		{replacement: "to", next: wordSet("the", "a", "an", "this", "that", "school", "work", "home")},
	},
	"your": {
		{replacement: "you're", next: wordSet("going", "coming", "looking", "getting", "doing", "working")},
	},
	"there": {
		{replacement: "they're", next: wordSet("going", "coming", "doing")},
		{replacement: "their", next: wordSet("house", "car", "phone", "computer", "job")},
	},
	"its": {
		{replacement: "it's", next: wordSet("going", "time", "ready", "working")},
	},
}

func wordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

const tokenPunct = `.,!?;:"()[]{}`

// applyHomophones walks the text word by word and applies context-conditioned
// substitutions based on the following word.
func applyHomophones(text string) (string, []Correction) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text, nil
	}

	var corrections []Correction
	out := make([]string, len(words))
	for i, word := range words {
		out[i] = word
		if i+1 >= len(words) {
			continue
		}
		clean := strings.ToLower(strings.Trim(word, tokenPunct))
		rules, ok := homophoneRules[clean]
		if !ok {
			continue
		}
		next := strings.ToLower(strings.Trim(words[i+1], tokenPunct))
		for _, r := range rules {
			if !r.next[next] {
				continue
			}
			out[i] = replaceToken(word, clean, r.replacement)
			corrections = append(corrections, Correction{Original: clean, Corrected: r.replacement})
			break
		}
	}
	return strings.Join(out, " "), corrections
}

// replaceToken swaps from for to inside token, preserving a leading capital
// and any surrounding punctuation.
func replaceToken(token, from, to string) string {
	token = strings.ReplaceAll(token, from, to)
	return strings.ReplaceAll(token, capitalize(from), capitalize(to))
}

// capitalize upper-cases the first rune of s.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
