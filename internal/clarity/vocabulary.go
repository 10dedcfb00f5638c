package clarity

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// VocabOption configures a [Vocabulary].
type VocabOption func(*Vocabulary)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score for a
// phonetically matched term to be accepted. Default 0.70.
func WithPhoneticThreshold(threshold float64) VocabOption {
	return func(v *Vocabulary) { v.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score when no phonetic
// candidate exists and matching falls back to pure string similarity.
// Default 0.85.
func WithFuzzyThreshold(threshold float64) VocabOption {
	return func(v *Vocabulary) { v.fuzzyThreshold = threshold }
}

// term is one vocabulary entry with its phonetic codes precomputed at
// construction.
type term struct {
	display string
	lower   string
	tokens  []string
	codes   map[string]struct{}
}

// Vocabulary snaps misrecognised words to a fixed set of domain terms using
// Double Metaphone codes filtered by Jaro-Winkler similarity. A Vocabulary is
// read-only after construction and safe for concurrent use.
type Vocabulary struct {
	terms    []term
	maxWords int

	phoneticThreshold float64
	fuzzyThreshold    float64
}

// NewVocabulary precomputes phonetic codes for each term. Blank terms are
// dropped.
func NewVocabulary(terms []string, opts ...VocabOption) *Vocabulary {
	v := &Vocabulary{
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, raw := range terms {
		display := strings.TrimSpace(raw)
		if display == "" {
			continue
		}
		lower := strings.ToLower(display)
		tokens := strings.Fields(lower)
		v.terms = append(v.terms, term{
			display: display,
			lower:   lower,
			tokens:  tokens,
			codes:   metaphoneCodes(tokens),
		})
		if len(tokens) > v.maxWords {
			v.maxWords = len(tokens)
		}
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Apply scans text with n-gram windows, longest first, so multi-word terms
// win over partial single-word matches. Windows that already equal a term
// are consumed without recording a correction.
func (v *Vocabulary) Apply(text string) (string, []Correction) {
	if len(v.terms) == 0 {
		return text, nil
	}
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return text, nil
	}

	var out []string
	var corrections []Correction

	i := 0
	for i < len(tokens) {
		maxN := v.maxWords
		if i+maxN > len(tokens) {
			maxN = len(tokens) - i
		}

		matched := false
		for n := maxN; n >= 1; n-- {
			window := strings.Join(tokens[i:i+n], " ")
			corrected, _, ok := v.match(window)
			if !ok {
				continue
			}
			if !strings.EqualFold(window, corrected) {
				corrections = append(corrections, Correction{Original: window, Corrected: corrected})
				out = append(out, corrected)
			} else {
				out = append(out, tokens[i:i+n]...)
			}
			i += n
			matched = true
			break
		}
		if !matched {
			out = append(out, tokens[i])
			i++
		}
	}

	return strings.Join(out, " "), corrections
}

// match finds the vocabulary term most similar to window. Phonetic
// candidates (Double Metaphone code overlap) are ranked by Jaro-Winkler and
// accepted above phoneticThreshold; without any phonetic candidate a pure
// similarity pass applies the stricter fuzzyThreshold.
func (v *Vocabulary) match(window string) (corrected string, confidence float64, matched bool) {
	lower := strings.ToLower(strings.TrimSpace(window))
	if lower == "" {
		return window, 0, false
	}
	tokens := strings.Fields(lower)
	codes := metaphoneCodes(tokens)

	type candidate struct {
		term     string
		score    float64
		phonetic bool
	}
	var best candidate

	for _, t := range v.terms {
		score := bestSimilarity(tokens, t.tokens, lower, t.lower)
		if codesOverlap(codes, t.codes) {
			if score >= v.phoneticThreshold && (!best.phonetic || score > best.score) {
				best = candidate{term: t.display, score: score, phonetic: true}
			}
		} else if !best.phonetic && score >= v.fuzzyThreshold && score > best.score {
			best = candidate{term: t.display, score: score}
		}
	}

	if best.term == "" {
		return window, 0, false
	}
	return best.term, best.score, true
}

// metaphoneCodes returns the union of Double Metaphone codes over tokens.
// Empty codes (short or vowel-only words) are excluded.
func metaphoneCodes(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestSimilarity is the highest Jaro-Winkler score across three comparisons:
// the full strings, the space-stripped strings, and the best pairwise token
// score. The latter two handle word-boundary mismatches in multi-word terms.
func bestSimilarity(inputTokens, termTokens []string, inputFull, termFull string) float64 {
	score := matchr.JaroWinkler(inputFull, termFull, false)

	if len(inputTokens) > 1 || len(termTokens) > 1 {
		joined := matchr.JaroWinkler(strings.Join(inputTokens, ""), strings.Join(termTokens, ""), false)
		if joined > score {
			score = joined
		}
	}

	for _, it := range inputTokens {
		for _, tt := range termTokens {
			if s := matchr.JaroWinkler(it, tt, false); s > score {
				score = s
			}
		}
	}
	return score
}
