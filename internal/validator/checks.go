package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/brightpath/lessongate/internal/lesson"
	"github.com/brightpath/lessongate/internal/types"
)

// Cognitive levels an interactive activity may be pitched at: the two
// "applied" levels reserved for activities.
var activityLevels = map[string]bool{"L3": true, "L4": true}

const (
	// maxViolationSample bounds the sentence sample in check details.
	maxViolationSample = 5
	// minFeedbackWords is the shortest acceptable quiz feedback; a bare
	// "Correct!" does not restate reasoning.
	minFeedbackWords = 4
)

// languageCeilingCheck fails when any sentence exceeds the grade's word
// ceiling, or when the count of distinct emphasis-marked terms (the
// new-vocabulary proxy) exceeds the vocabulary ceiling.
func (v *Validator) languageCeilingCheck(content lesson.Content, p Params) types.CheckResult {
	ceiling := v.constraints.LanguageCeiling(p.Grade)

	allText := content.FlattenText()
	sentences := lesson.Sentences(allText)

	var violations []map[string]any
	maxFound := 0
	for _, s := range sentences {
		wc := lesson.CountWords(s)
		if wc > maxFound {
			maxFound = wc
		}
		if wc > ceiling.MaxSentenceLength {
			violations = append(violations, map[string]any{
				"sentence":    truncate(s, 80),
				"word_count":  wc,
				"max_allowed": ceiling.MaxSentenceLength,
			})
		}
	}

	newVocab := len(lesson.EmphasisTerms(allText))
	vocabExceeded := newVocab > ceiling.MaxNewVocab

	sample := violations
	if len(sample) > maxViolationSample {
		sample = sample[:maxViolationSample]
	}
	details := map[string]any{
		"max_sentence_length": ceiling.MaxSentenceLength,
		"sentences_checked":   len(sentences),
		"max_found":           maxFound,
		"violations_count":    len(violations),
		"violations":          sample,
		"new_vocab_count":     newVocab,
		"new_vocab_max":       ceiling.MaxNewVocab,
		"vocab_exceeded":      vocabExceeded,
	}

	if len(violations) > 0 || vocabExceeded {
		return types.CheckResult{
			Name:    "language_ceiling",
			Status:  types.CheckFailed,
			Details: details,
			Message: fmt.Sprintf(
				"%d sentence(s) exceed max length %d for grade %s; new vocab %d/%d",
				len(violations), ceiling.MaxSentenceLength, p.Grade,
				newVocab, ceiling.MaxNewVocab,
			),
		}
	}
	return types.CheckResult{Name: "language_ceiling", Status: types.CheckPassed, Details: details}
}

// bloomsDistributionCheck fails when the quiz is absent, when per-level
// counts do not exactly match the grade's required distribution, or
// when the ordering rule is violated: items 1-3 must sit at the two
// lowest levels and items 8-10 at the three highest.
func (v *Validator) bloomsDistributionCheck(content lesson.Content, p Params) types.CheckResult {
	expected := v.constraints.BloomDistribution(p.Grade)
	quiz := content.Quiz()

	if len(quiz) == 0 {
		return types.CheckResult{
			Name:    "blooms_distribution",
			Status:  types.CheckFailed,
			Details: map[string]any{"error": "no quick_quiz found in lesson data"},
			Message: "quick quiz section is missing from lesson data",
		}
	}

	actual := map[string]int{"L1": 0, "L2": 0, "L3": 0, "L4": 0, "L5": 0}
	for _, q := range quiz {
		lvl := q.Level("bloom_level")
		if _, ok := actual[lvl]; ok {
			actual[lvl]++
		}
	}

	distributionMatch := true
	for level, want := range expected {
		if actual[level] != want {
			distributionMatch = false
			break
		}
	}

	progressionOK := true
	var progressionIssues []string
	for i, q := range quiz {
		lvl := q.Level("bloom_level")
		if i < 3 && lvl != "L1" && lvl != "L2" {
			progressionOK = false
			progressionIssues = append(progressionIssues,
				fmt.Sprintf("Q%d is %s, expected L1 or L2", i+1, lvl))
		}
		if i >= 7 && i < 10 && lvl != "L3" && lvl != "L4" && lvl != "L5" {
			progressionOK = false
			progressionIssues = append(progressionIssues,
				fmt.Sprintf("Q%d is %s, expected L3-L5", i+1, lvl))
		}
	}

	details := map[string]any{
		"expected":           expected,
		"actual":             actual,
		"distribution_match": distributionMatch,
		"progression_ok":     progressionOK,
		"progression_issues": progressionIssues,
		"total_questions":    len(quiz),
	}

	if !distributionMatch || !progressionOK {
		return types.CheckResult{
			Name:    "blooms_distribution",
			Status:  types.CheckFailed,
			Details: details,
			Message: fmt.Sprintf(
				"cognitive level distribution mismatch for grade %s: expected %v, got %v; progression issues: %v",
				p.Grade, expected, actual, progressionIssues,
			),
		}
	}
	return types.CheckResult{Name: "blooms_distribution", Status: types.CheckPassed, Details: details}
}

// interactionTypeCheck fails when the interactive activity is absent,
// when its type is not in the grade's allowed set, or when its
// cognitive level is not one of the applied levels.
func (v *Validator) interactionTypeCheck(content lesson.Content, p Params) types.CheckResult {
	allowed := v.constraints.AllowedInteractions(p.Grade)
	activity := content.Activity()

	if activity == nil {
		return types.CheckResult{
			Name:    "interaction_type",
			Status:  types.CheckFailed,
			Details: map[string]any{"error": "no interactive_activity found"},
			Message: "interactive activity section is missing from lesson data",
		}
	}

	activityType := activity.Str("type")
	isAllowed := false
	for _, name := range allowed {
		if strings.EqualFold(name, activityType) {
			isAllowed = true
			break
		}
	}

	activityLevel := activity.Level("bloom_level")
	levelOK := activityLevels[activityLevel]

	details := map[string]any{
		"activity_type":        activityType,
		"allowed_for_grade":    allowed,
		"is_allowed":           isAllowed,
		"activity_bloom_level": activityLevel,
		"bloom_level_valid":    levelOK,
	}

	if !isAllowed {
		return types.CheckResult{
			Name:    "interaction_type",
			Status:  types.CheckFailed,
			Details: details,
			Message: fmt.Sprintf("activity type %q is not allowed for grade %s", activityType, p.Grade),
		}
	}
	if !levelOK {
		return types.CheckResult{
			Name:    "interaction_type",
			Status:  types.CheckFailed,
			Details: details,
			Message: fmt.Sprintf("activity cognitive level %q should be L3 or L4", activityLevel),
		}
	}
	return types.CheckResult{Name: "interaction_type", Status: types.CheckPassed, Details: details}
}

// definitionCheck is soft: with no reference definitions it records a
// no-op warning; otherwise missing concept terms produce a warning
// listing them, never a failure.
func (v *Validator) definitionCheck(content lesson.Content, p Params) types.CheckResult {
	if len(p.Definitions) == 0 {
		return types.CheckResult{
			Name:    "definition_alignment",
			Status:  types.CheckWarning,
			Details: map[string]any{"reason": "no reference definitions provided for comparison"},
			Message: "no reference definitions available; skipping definition alignment",
		}
	}

	allText := strings.ToLower(content.FlattenText())

	var missing []string
	found := 0
	for concept := range p.Definitions {
		if strings.Contains(allText, strings.ToLower(concept)) {
			found++
		} else {
			missing = append(missing, concept)
		}
	}

	details := map[string]any{
		"concepts_checked":         len(p.Definitions),
		"concepts_found_in_lesson": found,
		"missing_concepts":         missing,
	}

	if len(missing) > 0 {
		sample := missing
		if len(sample) > maxViolationSample {
			sample = sample[:maxViolationSample]
		}
		return types.CheckResult{
			Name:    "definition_alignment",
			Status:  types.CheckWarning,
			Details: details,
			Message: fmt.Sprintf("reference concepts not found in lesson: %v", sample),
		}
	}
	return types.CheckResult{Name: "definition_alignment", Status: types.CheckPassed, Details: details}
}

var narrativeWordRe = regexp.MustCompile(`\b\w+\b`)

// storyIntegrationCheck is soft: with no contextual narrative it passes
// trivially; otherwise zero narrative-term matches in both the opening
// and the concept explanations produce a warning.
func (v *Validator) storyIntegrationCheck(content lesson.Content, p Params) types.CheckResult {
	if p.Narrative == "" {
		return types.CheckResult{
			Name:    "story_integration",
			Status:  types.CheckPassed,
			Details: map[string]any{"reason": "no context narrative provided; check not applicable"},
		}
	}

	var terms []string
	for _, w := range narrativeWordRe.FindAllString(p.Narrative, -1) {
		if len(w) > 3 {
			terms = append(terms, strings.ToLower(w))
		}
	}

	openingText := strings.ToLower(content.Opening())
	explanationText := strings.ToLower(content.ExplanationText())

	openingRefs, explanationRefs := 0, 0
	for _, t := range terms {
		if strings.Contains(openingText, t) {
			openingRefs++
		}
		if strings.Contains(explanationText, t) {
			explanationRefs++
		}
	}

	var locations []string
	if openingRefs > 0 {
		locations = append(locations, "opening_narration")
	}
	if explanationRefs > 0 {
		locations = append(locations, "narrated_explanation")
	}

	details := map[string]any{
		"narrative_terms_checked": len(terms),
		"opening_references":      openingRefs,
		"explanation_references":  explanationRefs,
		"locations_found":         locations,
	}

	if len(locations) == 0 {
		return types.CheckResult{
			Name:    "story_integration",
			Status:  types.CheckWarning,
			Details: details,
			Message: "story context was provided but not referenced in lesson",
		}
	}
	return types.CheckResult{Name: "story_integration", Status: types.CheckPassed, Details: details}
}

// audioPacingCheck is hard: at least one [Pause] and one [Beat] marker
// must appear somewhere in the lesson text.
func (v *Validator) audioPacingCheck(content lesson.Content, _ Params) types.CheckResult {
	beats, pauses, emphases := lesson.CountMarkers(content.FlattenText())

	details := map[string]any{
		"beat_markers":      beats,
		"pause_markers":     pauses,
		"emphasis_markers":  emphases,
		"has_minimum_pause": pauses >= 1,
		"has_minimum_beat":  beats >= 1,
	}

	if pauses < 1 {
		return types.CheckResult{
			Name:    "audio_pacing",
			Status:  types.CheckFailed,
			Details: details,
			Message: "no [Pause] marker found; at least one per lesson is required",
		}
	}
	if beats < 1 {
		return types.CheckResult{
			Name:    "audio_pacing",
			Status:  types.CheckFailed,
			Details: details,
			Message: "no [Beat] marker found; at least one per lesson is required",
		}
	}
	return types.CheckResult{Name: "audio_pacing", Status: types.CheckPassed, Details: details}
}

// feedbackStructureCheck fails unless the activity carries all three
// hint tiers and every quiz item has correct and incorrect feedback of
// at least minFeedbackWords words.
func (v *Validator) feedbackStructureCheck(content lesson.Content, _ Params) types.CheckResult {
	activity := content.Activity()
	quiz := content.Quiz()

	hint1 := activity.Str("feedback_hint_1") != ""
	hint2 := activity.Str("feedback_hint_2") != ""
	reveal := activity.Str("feedback_reveal") != ""
	hintsOK := hint1 && hint2 && reveal

	var issues []string
	for i, q := range quiz {
		fc := q.Str("feedback_correct")
		fi := q.Str("feedback_incorrect")
		switch {
		case fc == "":
			issues = append(issues, fmt.Sprintf("Q%d: missing feedback_correct", i+1))
		case len(strings.Fields(fc)) < minFeedbackWords:
			issues = append(issues, fmt.Sprintf("Q%d: feedback_correct too short (needs reasoning)", i+1))
		}
		switch {
		case fi == "":
			issues = append(issues, fmt.Sprintf("Q%d: missing feedback_incorrect", i+1))
		case len(strings.Fields(fi)) < minFeedbackWords:
			issues = append(issues, fmt.Sprintf("Q%d: feedback_incorrect too short (needs reasoning)", i+1))
		}
	}

	sample := issues
	if len(sample) > maxViolationSample {
		sample = sample[:maxViolationSample]
	}
	details := map[string]any{
		"activity_hint_1":        hint1,
		"activity_hint_2":        hint2,
		"activity_hint_3_reveal": reveal,
		"activity_multitier_ok":  hintsOK,
		"quiz_feedback_complete": len(issues) == 0,
		"quiz_feedback_issues":   sample,
	}

	if !hintsOK {
		return types.CheckResult{
			Name:    "feedback_structure",
			Status:  types.CheckFailed,
			Details: details,
			Message: "activity missing multi-tier hints (hint_1, hint_2, reveal)",
		}
	}
	if len(issues) > 0 {
		short := issues
		if len(short) > 3 {
			short = short[:3]
		}
		return types.CheckResult{
			Name:    "feedback_structure",
			Status:  types.CheckFailed,
			Details: details,
			Message: fmt.Sprintf("quiz feedback incomplete: %v", short),
		}
	}
	return types.CheckResult{Name: "feedback_structure", Status: types.CheckPassed, Details: details}
}

// contentIsolationCheck fails when any excluded concept appears in the
// lesson text. Prerequisites are declared upstream and trusted here.
func (v *Validator) contentIsolationCheck(content lesson.Content, p Params) types.CheckResult {
	allText := strings.ToLower(content.FlattenText())

	var found []string
	for _, concept := range p.Exclusions {
		if strings.Contains(allText, strings.ToLower(concept)) {
			found = append(found, concept)
		}
	}

	details := map[string]any{
		"exclusions_checked":      p.Exclusions,
		"excluded_concepts_found": len(found),
		"excluded_found_list":     found,
		"prerequisites_declared":  p.Prerequisites,
		"prerequisites_met":       true,
	}

	if len(found) > 0 {
		return types.CheckResult{
			Name:    "content_isolation",
			Status:  types.CheckFailed,
			Details: details,
			Message: fmt.Sprintf("lesson contains excluded concepts: %v", found),
		}
	}
	return types.CheckResult{Name: "content_isolation", Status: types.CheckPassed, Details: details}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
