package narration

import (
	"regexp"
	"strings"
)

const whitespaceRegexPattern = `\s+`

// Normalizer prepares chunk text for the speech engine: spoken forms for
// common abbreviations and collapsed whitespace, so line breaks inside a
// paragraph do not read as sentence boundaries.
type Normalizer struct {
	whitespacePattern    *regexp.Regexp
	abbreviationReplacer *strings.Replacer
}

// NewNormalizer creates a normalizer with precompiled patterns and
// replacers.
func NewNormalizer() *Normalizer {
	abbreviations := []string{
		"Mr.", "Mister",
		"Mrs.", "Misses",
		"Ms.", "Miss",
		"Dr.", "Doctor",
		"St.", "Saint",
		"Co.", "Company",
		"Ltd.", "Limited",
		"Corp.", "Corporation",
		"Inc.", "Incorporated",
	}

	return &Normalizer{
		whitespacePattern:    regexp.MustCompile(whitespaceRegexPattern),
		abbreviationReplacer: strings.NewReplacer(abbreviations...),
	}
}

// Normalize applies abbreviation expansion and whitespace collapsing.
// Text that is already a clean single-line chunk passes through unchanged.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return text
	}

	normalized := n.abbreviationReplacer.Replace(text)
	normalized = n.whitespacePattern.ReplaceAllString(normalized, " ")

	return strings.TrimSpace(normalized)
}
