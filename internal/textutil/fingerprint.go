package textutil

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Fingerprint represents a term-frequency vector for text similarity comparison.
type Fingerprint struct {
	tokens map[string]float64
	keys   []string
	norm   float64
}

// NewFingerprint creates a fingerprint from the provided text.
// Returns nil if the text produces no valid tokens.
func NewFingerprint(text string) *Fingerprint {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	keys := make([]string, 0, len(counts))
	for token := range counts {
		keys = append(keys, token)
	}
	sort.Strings(keys)
	var sum float64
	for _, key := range keys {
		sum += counts[key] * counts[key]
	}
	return &Fingerprint{
		tokens: counts,
		keys:   keys,
		norm:   math.Sqrt(sum),
	}
}

// Normalize applies NFKC folding, lowercasing, and whitespace collapsing.
func Normalize(text string) string {
	folded := strings.ToLower(norm.NFKC.String(text))
	return strings.Join(strings.Fields(folded), " ")
}

// Tokenize splits normalized text into word tokens and CJK bigrams.
// Single-letter Latin tokens are dropped; numbers of any length are kept
// because volume and edition numbers distinguish otherwise identical titles.
func Tokenize(text string) []string {
	normalized := Normalize(text)
	var (
		terms []string
		word  []rune
		cjk   []rune
	)
	flushWord := func() {
		if len(word) >= 2 || (len(word) == 1 && unicode.IsDigit(word[0])) {
			terms = append(terms, string(word))
		}
		word = word[:0]
	}
	flushCJK := func() {
		switch len(cjk) {
		case 0:
		case 1:
			terms = append(terms, string(cjk))
		default:
			for i := 0; i+1 < len(cjk); i++ {
				terms = append(terms, string(cjk[i:i+2]))
			}
		}
		cjk = cjk[:0]
	}
	for _, r := range normalized {
		switch {
		case isCJK(r):
			flushWord()
			cjk = append(cjk, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushCJK()
			word = append(word, r)
		default:
			flushWord()
			flushCJK()
		}
	}
	flushWord()
	flushCJK()
	return terms
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r) ||
		r == 'ー'
}

// CosineSimilarity computes the cosine similarity between two fingerprints.
// Returns 0 if either fingerprint is nil or has zero norm. Terms are summed
// in sorted order so repeated calls produce identical floats.
func CosineSimilarity(a, b *Fingerprint) float64 {
	if a == nil || b == nil || a.norm == 0 || b.norm == 0 {
		return 0
	}
	var dot float64
	for _, token := range a.keys {
		if other, ok := b.tokens[token]; ok {
			dot += a.tokens[token] * other
		}
	}
	if dot == 0 {
		return 0
	}
	return math.Min(1, dot/(a.norm*b.norm))
}

// TitleSimilarity returns the cosine similarity of two titles scaled to 0-100.
// ok is false when either title yields no tokens.
func TitleSimilarity(a, b string) (score float64, ok bool) {
	fa := NewFingerprint(a)
	fb := NewFingerprint(b)
	if fa == nil || fb == nil {
		return 0, false
	}
	return CosineSimilarity(fa, fb) * 100, true
}

// SanitizeToken converts a string to a lowercase filesystem-safe token.
// Letters are lowercased, digits and hyphens/underscores are kept, everything
// else becomes an underscore. Returns "unknown" for empty input.
func SanitizeToken(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "unknown"
	}
	return out
}
