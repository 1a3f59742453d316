package kb

import (
	"regexp"
	"strconv"
	"strings"
)

// Fallback ceilings applied when a grade section omits a match. These
// mirror the most permissive grade in the reference documents.
const (
	DefaultMaxSentenceLength = 18
	DefaultMaxNewVocab       = 10
)

// allConnectors is the canonical expansion for sections that allow
// "all common conjunctions".
var allConnectors = []string{
	"and", "but", "or", "so", "because",
	"when", "if", "although", "however", "therefore",
}

// LanguageCeiling holds the language complexity constraints for one grade.
type LanguageCeiling struct {
	Grade             string   `json:"grade"`
	MaxSentenceLength int      `json:"max_sentence_length"`
	MaxNewVocab       int      `json:"max_new_vocab"`
	AllowedConnectors []string `json:"allowed_connectors"`
	CanUseBecause     bool     `json:"can_use_because"`
}

// BloomDistribution maps cognitive levels L1..L5 to required question
// counts for one grade's quiz.
type BloomDistribution map[string]int

// DefaultBloomDistribution is the grade 3 row from the reference
// pedagogy tables. It is the last-resort quiz distribution when neither
// the requested grade nor the fallback grade has a parsed row, so the
// quiz check never runs against an empty requirement.
var DefaultBloomDistribution = BloomDistribution{
	"L1": 2, "L2": 3, "L3": 3, "L4": 1, "L5": 1,
}

var (
	gradeSectionRe = regexp.MustCompile(`(?m)^## Grade (\w+)`)
	sentenceLenRe  = regexp.MustCompile(`(?i)Maximum sentence length:\s*\d+[\x{2013}-]\s*(\d+)\s*words`)
	newVocabRe     = regexp.MustCompile(`(?i)New words per lesson:\s*\d+[\x{2013}-]\s*(\d+)`)
	connectorsRe   = regexp.MustCompile(`(?im)Allowed connectors:\s*(.+)$`)
	allWordRe      = regexp.MustCompile(`(?i)\ball\b`)
	quotedConnRe   = regexp.MustCompile(`(?i)"(and|but|or|so|because|when|if|although),?"`)
	bloomRowRe     = regexp.MustCompile(`\|\s*([K1-5])\s*\|\s*(\d+)\s*\|\s*(\d+)\s*\|\s*(\d+)\s*\|\s*(\d+)\s*\|\s*(\d+)\s*\|`)
	subHeadingRe   = regexp.MustCompile(`\n###`)
	categoryRe     = regexp.MustCompile(`\*\*[^:]+:\*\*\s*(.+)`)
	anyHeadingRe   = regexp.MustCompile(`\n#{1,3}\s+`)
)

// gradeSections splits a document on "## Grade <code>" headings and
// returns (code, body) pairs in document order.
func gradeSections(content string) [][2]string {
	locs := gradeSectionRe.FindAllStringSubmatchIndex(content, -1)
	sections := make([][2]string, 0, len(locs))
	for i, loc := range locs {
		code := strings.TrimSpace(content[loc[2]:loc[3]])
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		sections = append(sections, [2]string{code, content[loc[1]:end]})
	}
	return sections
}

// parseLanguageGuidelines extracts per-grade language ceilings.
// Ranges like "10–12 words" contribute their upper bound; a grade
// section without a match falls back to the documented defaults.
func parseLanguageGuidelines(content string) map[string]LanguageCeiling {
	ceilings := make(map[string]LanguageCeiling)
	if content == "" {
		return ceilings
	}

	for _, section := range gradeSections(content) {
		grade, body := section[0], section[1]

		maxSentence := DefaultMaxSentenceLength
		if m := sentenceLenRe.FindStringSubmatch(body); m != nil {
			maxSentence, _ = strconv.Atoi(m[1])
		}

		maxVocab := DefaultMaxNewVocab
		if m := newVocabRe.FindStringSubmatch(body); m != nil {
			maxVocab, _ = strconv.Atoi(m[1])
		}

		// Only the explicitly labeled connectors line counts; connectors
		// mentioned in negative context ("no 'because'") must not match.
		var connectors []string
		if m := connectorsRe.FindStringSubmatch(body); m != nil {
			line := m[1]
			if allWordRe.MatchString(line) {
				connectors = append(connectors, allConnectors...)
			} else {
				for _, q := range quotedConnRe.FindAllStringSubmatch(line, -1) {
					connectors = append(connectors, strings.ToLower(q[1]))
				}
			}
		}
		connectors = dedupe(connectors)

		ceilings[grade] = LanguageCeiling{
			Grade:             grade,
			MaxSentenceLength: maxSentence,
			MaxNewVocab:       maxVocab,
			AllowedConnectors: connectors,
			CanUseBecause:     contains(connectors, "because"),
		}
	}

	return ceilings
}

// parseBloomDistributions extracts per-grade question count tables from
// markdown rows of the form "| 3 | 2 | 3 | 3 | 1 | 1 |" read as
// Grade | L1 | L2 | L3 | L4 | L5.
func parseBloomDistributions(content string) map[string]BloomDistribution {
	distributions := make(map[string]BloomDistribution)
	if content == "" {
		return distributions
	}

	for _, m := range bloomRowRe.FindAllStringSubmatch(content, -1) {
		dist := make(BloomDistribution, 5)
		for i, level := range []string{"L1", "L2", "L3", "L4", "L5"} {
			n, _ := strconv.Atoi(m[i+2])
			dist[level] = n
		}
		distributions[m[1]] = dist
	}
	return distributions
}

// parseAllowedInteractions extracts the permitted interaction type names
// per grade. Within each grade section the "### Allowed Types"
// subsection is bounded by the next sub-heading, and types are collected
// from comma-separated items after bold category labels.
func parseAllowedInteractions(content string) map[string][]string {
	interactions := make(map[string][]string)
	if content == "" {
		return interactions
	}

	const marker = "### Allowed Types"
	for _, section := range gradeSections(content) {
		grade, body := section[0], section[1]

		start := strings.Index(body, marker)
		if start == -1 {
			continue
		}
		allowed := body[start:]
		if loc := subHeadingRe.FindStringIndex(allowed[len(marker):]); loc != nil {
			allowed = allowed[:len(marker)+loc[0]]
		}

		var names []string
		for _, m := range categoryRe.FindAllStringSubmatch(allowed, -1) {
			for _, item := range strings.Split(m[1], ",") {
				if item = strings.TrimSpace(item); item != "" {
					names = append(names, item)
				}
			}
		}
		if len(names) > 0 {
			interactions[grade] = names
		}
	}

	return interactions
}

// findDefinition returns the text under a level 1-3 heading matching the
// concept (case-insensitive), up to the next heading of those levels.
// Returns "" when the concept has no heading.
func findDefinition(content, concept string) string {
	if content == "" || concept == "" {
		return ""
	}
	headingRe, err := regexp.Compile(`(?im)^#{1,3}\s+` + regexp.QuoteMeta(concept) + `\b`)
	if err != nil {
		return ""
	}
	loc := headingRe.FindStringIndex(content)
	if loc == nil {
		return ""
	}
	rest := content[loc[1]:]
	if next := anyHeadingRe.FindStringIndex(rest); next != nil {
		rest = rest[:next[0]]
	}
	return strings.TrimSpace(rest)
}

func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, s := range items {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func contains(items []string, want string) bool {
	for _, s := range items {
		if s == want {
			return true
		}
	}
	return false
}
