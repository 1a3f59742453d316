package generator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/brightpath/lessongate/internal/kb"
	"github.com/brightpath/lessongate/internal/types"
)

// assemblePrompt builds the master generation prompt from the knowledge
// base snapshot, the grade's constraint tables, and the topic metadata.
// The constraints are stated twice on purpose: once as raw reference
// documents and once as explicit rules, so the model sees both.
func assemblePrompt(topic types.Topic, snap *kb.Snapshot,
	ceiling kb.LanguageCeiling, dist kb.BloomDistribution, interactions []string) string {

	levels := make([]string, 0, len(dist))
	for level := range dist {
		levels = append(levels, level)
	}
	sort.Strings(levels)
	bloomParts := make([]string, 0, len(levels))
	for _, level := range levels {
		bloomParts = append(bloomParts, fmt.Sprintf("%s: %d", level, dist[level]))
	}

	interactionLines := make([]string, 0, len(interactions))
	for _, name := range interactions {
		interactionLines = append(interactionLines, "  - "+name)
	}

	prereq := "None"
	if len(topic.Prerequisites) > 0 {
		prereq = strings.Join(topic.Prerequisites, ", ")
	}
	exclusions := "None"
	if len(topic.Exclusions) > 0 {
		exclusions = strings.Join(topic.Exclusions, ", ")
	}
	connectors := "simple only"
	if len(ceiling.AllowedConnectors) > 0 {
		connectors = strings.Join(ceiling.AllowedConnectors, ", ")
	}

	var b strings.Builder
	w := func(lines ...string) {
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	w("# LESSON GENERATION PROMPT: AUDIO-FIRST PRIMARY SCHOOL CONTENT",
		"",
		"## GLOBAL CONTEXT",
		"You are an expert educational content designer creating curriculum-aligned",
		"lessons for primary school students (Grades K-5).",
		"",
		"## KNOWLEDGE BASE",
		"",
		"[SECTION 1: PEDAGOGICAL PRINCIPLES]",
		docOr(snap, "pedagogical_style.md"),
		"",
		fmt.Sprintf("[SECTION 2: LANGUAGE GUIDELINES FOR GRADE %s]", topic.Grade),
		docOr(snap, "language_guidelines.md"),
		"",
		fmt.Sprintf("[SECTION 3: DIGITAL INTERACTIONS FOR GRADE %s]", topic.Grade),
		docOr(snap, "digital_interactions.md"),
		"",
		"[SECTION 4: QUESTION BANK & FEEDBACK TEMPLATES]",
		docOr(snap, "question_bank.md"),
		"",
		fmt.Sprintf("[SECTION 5: DEFINITIONS & EXAMPLES FOR %s]", topic.Subject),
		docOr(snap, "definitions_and_examples.md"),
		"",
		"---",
		"",
		"## LESSON SPECIFICATION",
		"",
		fmt.Sprintf("**Topic:** %s", topic.Name),
		fmt.Sprintf("**Grade:** %s", topic.Grade),
		fmt.Sprintf("**Subject:** %s", topic.Subject),
		fmt.Sprintf("**Chapter:** %s", topic.Chapter),
		fmt.Sprintf("**Chapter Context:** %s", valueOr(topic.Narrative, "None provided")),
		"",
		fmt.Sprintf("**Topic Prerequisites:** %s", prereq),
		fmt.Sprintf("**Content to EXCLUDE:** %s", exclusions),
		"",
		"---",
		"",
		"## OUTPUT STRUCTURE",
		"",
		"Generate a complete lesson as a single JSON object with these sections:",
		"learning_objective, opening_narration (4 lines), on_screen_opening,",
		"narrated_explanation (list of concepts, each with concept_name,",
		"teacher_explains, bloom_level, on_screen, transition), interactive_activity",
		"(type, bloom_level, instructions, on_screen, feedback_hint_1,",
		"feedback_hint_2, feedback_reveal), doubts_discussion, quick_quiz (each item",
		"with question_number, type, bloom_level, prompt, options, answer,",
		"feedback_correct, feedback_incorrect), conclusion.",
		"",
		"## CONSTRAINTS & RULES",
		"",
		"### Audio-First Design",
		"- Every narrated line will be spoken aloud by a voice engine",
		"- Use [Beat] for short pauses after questions",
		"- Use [Pause] for longer reflection pauses (once per section)",
		"- Use [Emphasis: word] to mark key vocabulary for vocal stress",
		"",
		fmt.Sprintf("### Language Ceiling (Grade %s)", topic.Grade),
		fmt.Sprintf("- Max sentence length: %d words", ceiling.MaxSentenceLength),
		fmt.Sprintf("- New vocabulary per lesson: %d maximum", ceiling.MaxNewVocab),
		fmt.Sprintf("- Allowed connectors: %s", connectors),
		"",
		"### Cognitive Level Requirements",
		fmt.Sprintf("- Quiz must have exactly: %s", strings.Join(bloomParts, ", ")),
		"- Questions must progress from the lowest levels to the highest",
		"- Activity must be L3 (Apply) or L4 (Analyze)",
		"",
		fmt.Sprintf("### Interaction Types: MUST select from this list for Grade %s", topic.Grade))
	w(interactionLines...)
	w("",
		"### Content Isolation",
		fmt.Sprintf("- Do NOT teach concepts in: %s", exclusions),
		fmt.Sprintf("- Assume prerequisites are met: %s", prereq),
		"",
		"### Feedback Design",
		"- Correct feedback: affirm warmly and restate the reasoning",
		"- Activity feedback: three tiers (nudge, explicit hint, reveal with reasoning)",
		"- Quiz feedback: restate the correct answer and explain why",
		"",
		"---",
		"",
		"## OUTPUT FORMAT",
		"",
		"Return ONLY valid JSON (no markdown fences, no explanation).")

	return b.String()
}

func docOr(snap *kb.Snapshot, name string) string {
	if snap == nil || snap.Raw[name] == "" {
		return "(not loaded)"
	}
	return snap.Raw[name]
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
