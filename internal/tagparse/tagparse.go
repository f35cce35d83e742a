// Package tagparse turns the OCR text of a product tag photo into structured
// fields.
//
// Each field has an ordered rule table. Rules are tried against the whole
// tag text (lines joined by single spaces, lower-cased); the first rule whose
// cleaned capture passes the field's acceptance check wins. Labelled rules
// ("article:", "stze:-", ...) come first, then shape rules ("sketch-7",
// "6x9 7x10"), then fallbacks over the whole text.
package tagparse

import (
	"regexp"
	"strconv"
	"strings"
)

// Fields is what one tag yields. Any field may be empty.
type Fields struct {
	Article     string `json:"article"`
	Colour      string `json:"colour"`
	Size        string `json:"size"`
	Pair        string `json:"pair"`
	Description string `json:"description"`
	RawText     string `json:"raw_text"`
}

// Empty reports whether no field was extracted.
func (f Fields) Empty() bool {
	return f.Article == "" && f.Colour == "" && f.Size == "" && f.Pair == ""
}

// rule captures a candidate with the last non-empty group of re, or the
// whole match when re has no groups.
type rule struct {
	name string
	re   *regexp.Regexp
}

func (r rule) find(text string) string {
	m := r.re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	for i := len(m) - 1; i > 0; i-- {
		if m[i] != "" {
			return m[i]
		}
	}
	return m[0]
}

// field describes how one value is found, cleaned and accepted.
type field struct {
	rules    []rule
	allowed  *regexp.Regexp // leading run of allowed characters
	trailing *regexp.Regexp // garbage removed after the allowed cut
	minLen   int
	fallback func(text string) string
}

func (f field) clean(v string) string {
	v = leadingJunk.ReplaceAllString(v, "")
	v = f.allowed.FindString(v)
	if f.trailing != nil {
		v = f.trailing.ReplaceAllString(v, "")
	}
	return strings.Join(strings.Fields(v), " ")
}

func (f field) extract(text string) string {
	for _, r := range f.rules {
		if v := f.clean(r.find(text)); len(v) >= f.minLen {
			return v
		}
	}
	if f.fallback != nil {
		if v := f.clean(f.fallback(text)); len(v) >= f.minLen {
			return v
		}
	}
	return ""
}

var (
	leadingJunk = regexp.MustCompile(`^[^a-z0-9]+`)

	// KnownColours are tried, in text order, when no colour rule matched.
	KnownColours = []string{
		"black", "white", "grey", "gray", "blue", "red", "green", "yellow",
		"brown", "pink", "purple", "orange", "tan", "navy", "sky", "beige",
		"maroon", "olive", "cream",
	}

	// labelWords never count as an article by themselves.
	labelWords = map[string]bool{
		"article": true, "aaticle": true, "colour": true, "color": true,
		"size": true, "stze": true, "pair": true, "pairs": true, "poir": true,
		"paie": true, "made": true, "india": true,
	}

	articleShape = regexp.MustCompile(`\b[a-z]+-\d+\b`)
	sizeShape    = regexp.MustCompile(`\d+[x/-]\d+`)
	wordRE       = regexp.MustCompile(`\b[a-z]{4,}\b`)
)

func re(expr string) *regexp.Regexp { return regexp.MustCompile(expr) }

var article = field{
	rules: []rule{
		{"label", re(`(?:article|aaticle|articl|aticl|ticle)[^:\s]*\s*:\s*(\S+)`)},
		{"label-short", re(`\bart[^:\s]*\s*:\s*(\S+)`)},
		{"shape", re(`\b((?:sketch|sktch|runner|mukeson|safari)\s*-?\s*\d+)`)},
		{"keyword", re(`\b(?:article|aaticle|art)\s+(\S+)`)},
	},
	allowed: re(`^[a-z0-9\-_ ]+`),
	minLen:  3,
	fallback: func(text string) string {
		if v := articleShape.FindString(text); v != "" {
			return v
		}
		for _, w := range wordRE.FindAllString(text, -1) {
			if !labelWords[w] && !isColourWord(w) {
				return w
			}
		}
		return ""
	},
}

var colour = field{
	rules: []rule{
		{"label", re(`(?:colour|color|col)[^:\s]*\s*:\s*(\S+)`)},
		{"label-dash", re(`\bcol\s*-\s*(\S+)`)},
		{"keyword", re(`\b(?:colour|color)\s+(\S+)`)},
		{"shape-dotted", re(`(?:^|\s)([a-z]+[./][a-z]+(?:\.[a-z]+)?)(?:\s|$)`)},
		{"shape-dashed", re(`(?:^|\s)([a-z]+-[a-z]+(?:/[a-z]+)?)(?:\s|$)`)},
	},
	allowed: re(`^[a-z0-9\-/. ]+`),
	minLen:  2,
	fallback: func(text string) string {
		for _, tok := range strings.Fields(text) {
			if containsColourWord(tok) {
				return tok
			}
		}
		return ""
	},
}

var size = field{
	rules: []rule{
		{"label", re(`(?:size|stze|sise|ize)[^:\s]*\s*:\s*-?\s*(\d+[x/]\d+(?:[\s-]+\d+[x/]\d+)*|\S+)`)},
		{"keyword", re(`\b(?:size|stze)\s+(\d+[x/]\d+(?:[\s-]+\d+[x/]\d+)*)`)},
		{"shape-x", re(`(\d+x\d+(?:\s+\d+x\d+)*)`)},
		{"shape-slash", re(`(\d+/\d+(?:-\d+/\d+)*)`)},
	},
	allowed:  re(`^[a-z0-9\-/x. ]+`),
	trailing: re(`\s+(?:poir|pairs?|paie|air|ss|ui|ag|wa)\b.*$`),
	minLen:   2,
	fallback: func(text string) string { return sizeShape.FindString(text) },
}

var pair = field{
	rules: []rule{
		{"label", re(`(?:pairs?|poir|paie|air)[^:\s]*\s*:\s*(\S+)`)},
		{"keyword", re(`\b(?:pairs?|poir|paie)\s+(\d+)\b`)},
		{"suffix", re(`\b(\d+)\s*(?:pairs?|poir|prs)\b`)},
	},
	allowed: re(`^[a-z0-9\-. ]+`),
	minLen:  1,
	fallback: func(text string) string {
		for _, tok := range strings.Fields(text) {
			if n, err := strconv.Atoi(tok); err == nil && n >= 1 && n <= 100 {
				return tok
			}
		}
		return ""
	},
}

func isColourWord(w string) bool {
	for _, c := range KnownColours {
		if w == c {
			return true
		}
	}
	return false
}

func containsColourWord(tok string) bool {
	for _, c := range KnownColours {
		if strings.Contains(tok, c) {
			return true
		}
	}
	return false
}

// Parse extracts the tag fields from OCR text. It is pure: the same text
// always yields the same Fields.
func Parse(text string) Fields {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	out := Fields{RawText: text}
	if len(lines) == 0 {
		return out
	}

	full := strings.ToLower(strings.Join(lines, " "))
	out.Article = article.extract(full)
	out.Colour = colour.extract(full)
	out.Size = size.extract(full)
	out.Pair = pair.extract(full)
	out.Description = describe(lines, out.Article, out.Colour, out.Size, out.Pair)
	return out
}

// describe keeps the lines that mention none of the extracted values.
func describe(lines []string, values ...string) string {
	var keep []string
	for _, line := range lines {
		lower := strings.ToLower(line)
		mentioned := false
		for _, v := range values {
			if v != "" && strings.Contains(lower, v) {
				mentioned = true
				break
			}
		}
		if !mentioned && len(line) > 2 {
			keep = append(keep, line)
		}
	}
	return strings.Join(keep, " ")
}
