package usecase

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// accentFolder decomposes characters and drops combining marks so that
// "Árfigyelő" and "arfigyelo" compare equal after lowercasing.
var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// noiseTokenPattern matches standalone quantity tokens like "1.75l", "3,5%",
// "500g" or bare numbers. These are stripped only when building grouping keys;
// scoring keeps them because package sizes are query-discriminating.
var noiseTokenPattern = regexp.MustCompile(`^\d+([.,]\d+)?(%|g|kg|mg|ml|cl|dl|l|db|x)?$`)

// defaultNoiseTokens are packaging words dropped from grouping keys.
var defaultNoiseTokens = map[string]bool{
	"darab": true, "doboz": true, "palack": true, "uveg": true,
	"csomag": true, "kiszereles": true, "pack": true, "bottle": true,
}

// NormalizerConfig holds configuration for text normalization
type NormalizerConfig struct {
	// ExtraNoiseTokens extends the built-in packaging noise token set used
	// for grouping-key normalization.
	ExtraNoiseTokens []string
}

// Normalizer converts raw catalog text into the canonical form used for both
// grouping and scoring. All methods are pure and total over any input.
type Normalizer struct {
	noiseTokens map[string]bool
}

// NewNormalizer creates a normalizer with the given configuration
func NewNormalizer(config NormalizerConfig) *Normalizer {
	noise := make(map[string]bool, len(defaultNoiseTokens)+len(config.ExtraNoiseTokens))
	for token := range defaultNoiseTokens {
		noise[token] = true
	}
	for _, token := range config.ExtraNoiseTokens {
		if folded := foldToken(token); folded != "" {
			noise[folded] = true
		}
	}
	return &Normalizer{noiseTokens: noise}
}

// Normalize lowercases, strips accents, and collapses punctuation and
// whitespace runs to single spaces. Decimal separators inside numbers and a
// percent sign following a digit survive, so "1.75l" and "3,5%" remain single
// tokens. Idempotent: Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(text string) string {
	folded, _, err := transform.String(accentFolder, text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)

	rs := []rune(folded)
	var b strings.Builder
	b.Grow(len(folded))
	for i, r := range rs {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case (r == '.' || r == ',') && i > 0 && i+1 < len(rs) &&
			unicode.IsDigit(rs[i-1]) && unicode.IsDigit(rs[i+1]):
			b.WriteRune(r)
		case r == '%' && i > 0 && unicode.IsDigit(rs[i-1]):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeKey produces the grouping form of a field: Normalize plus removal
// of quantity and packaging noise tokens, so "Tej 2,8% 1l" and "Tej" group
// under comparable keys when name, brand and package are combined.
func (n *Normalizer) NormalizeKey(text string) string {
	normalized := n.Normalize(text)
	if normalized == "" {
		return ""
	}

	var kept []string
	for _, token := range strings.Fields(normalized) {
		if noiseTokenPattern.MatchString(token) {
			continue
		}
		if n.noiseTokens[token] {
			continue
		}
		kept = append(kept, token)
	}
	return strings.Join(kept, " ")
}

// Tokenize splits normalized text into its ordered word tokens. Tokens are
// non-empty; order is preserved.
func (n *Normalizer) Tokenize(normalized string) []string {
	return strings.Fields(normalized)
}

// foldToken applies scoring normalization to a single configured token
func foldToken(token string) string {
	folded, _, err := transform.String(accentFolder, token)
	if err != nil {
		folded = token
	}
	return strings.TrimSpace(strings.ToLower(folded))
}
