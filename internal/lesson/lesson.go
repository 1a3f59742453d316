package lesson

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

// Content is a generated lesson as a schemaless value tree, exactly as
// decoded from the generation service's JSON. Sections are looked up by
// name through the accessors below; an absent section is simply absent,
// never an error.
type Content map[string]any

// Decode parses raw JSON into a Content tree.
func Decode(raw []byte) (Content, error) {
	var c Content
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return c, nil
}

// Pacing markers embedded in narration text. [Beat] is a short pause,
// [Pause] a longer reflection pause, [Emphasis: word] marks vocabulary
// for vocal stress.
var (
	beatRe     = regexp.MustCompile(`\[Beat\]`)
	pauseRe    = regexp.MustCompile(`\[Pause\]`)
	emphasisRe = regexp.MustCompile(`\[Emphasis:\s*(\w+)\]`)
)

// FlattenText recursively joins every string leaf of the tree into one
// space-separated blob, in sorted key order for maps and element order
// for lists. The order is fixed so repeated calls on the same content
// produce identical text, which keeps sentence boundaries stable.
func (c Content) FlattenText() string {
	var parts []string
	var walk func(v any)
	walk = func(v any) {
		switch t := v.(type) {
		case string:
			parts = append(parts, t)
		case Content:
			walk(map[string]any(t))
		case map[string]any:
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k])
			}
		case []any:
			for _, item := range t {
				walk(item)
			}
		}
	}
	walk(map[string]any(c))
	return strings.Join(parts, " ")
}

// StripMarkers removes all three pacing markers from text.
func StripMarkers(text string) string {
	text = beatRe.ReplaceAllString(text, "")
	text = pauseRe.ReplaceAllString(text, "")
	return emphasisRe.ReplaceAllString(text, "")
}

// Sentences splits text into sentences after stripping pacing markers.
// A sentence ends at terminal punctuation (. ! ?) followed by whitespace
// or end of input; a trailing fragment without punctuation counts too.
func Sentences(text string) []string {
	cleaned := strings.TrimSpace(StripMarkers(text))
	if cleaned == "" {
		return nil
	}

	var out []string
	var b strings.Builder
	runes := []rune(cleaned)
	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(b.String()); s != "" {
					out = append(out, s)
				}
				b.Reset()
			}
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}

var wordRe = regexp.MustCompile(`[a-zA-Z0-9]`)

// CountWords counts whitespace-separated tokens that contain at least
// one letter or digit, so punctuation-only tokens are ignored.
func CountWords(sentence string) int {
	n := 0
	for _, tok := range strings.Fields(sentence) {
		if wordRe.MatchString(tok) {
			n++
		}
	}
	return n
}

// EmphasisTerms returns the distinct words marked [Emphasis: word]
// across the text, in first-seen order.
func EmphasisTerms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, m := range emphasisRe.FindAllStringSubmatch(text, -1) {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		terms = append(terms, m[1])
	}
	return terms
}

// CountMarkers returns the number of [Beat], [Pause], and [Emphasis]
// markers in the text, in that order.
func CountMarkers(text string) (beats, pauses, emphases int) {
	return len(beatRe.FindAllString(text, -1)),
		len(pauseRe.FindAllString(text, -1)),
		len(emphasisRe.FindAllString(text, -1))
}

// Quiz returns the quick_quiz items, or nil when the section is absent
// or not a list.
func (c Content) Quiz() []Content {
	items, ok := c["quick_quiz"].([]any)
	if !ok {
		return nil
	}
	var quiz []Content
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			quiz = append(quiz, Content(m))
		}
	}
	return quiz
}

// Activity returns the interactive_activity section, or nil when absent.
func (c Content) Activity() Content {
	m, ok := c["interactive_activity"].(map[string]any)
	if !ok {
		return nil
	}
	return Content(m)
}

// Opening returns all string values of the opening_narration section
// joined with spaces in sorted key order. A plain-string opening is
// returned as is.
func (c Content) Opening() string {
	switch t := c["opening_narration"].(type) {
	case string:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			if s, ok := t[k].(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return ""
}

// ExplanationText returns the concatenated teacher_explains text of all
// narrated_explanation entries.
func (c Content) ExplanationText() string {
	items, ok := c["narrated_explanation"].([]any)
	if !ok {
		return ""
	}
	var parts []string
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			if s, ok := m["teacher_explains"].(string); ok {
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, " ")
}

// Str returns the named field as a string, or "" when absent or not a
// string.
func (c Content) Str(key string) string {
	s, _ := c[key].(string)
	return s
}

// Level returns the named field normalized as a cognitive level tag
// (upper-cased, trimmed), e.g. "L3".
func (c Content) Level(key string) string {
	return strings.ToUpper(strings.TrimSpace(c.Str(key)))
}
