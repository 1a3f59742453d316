// Package validator runs the deterministic lesson validation pipeline:
// eight independent checks against the knowledge base constraints,
// aggregated into a single scored report. Validate is total: it
// returns a report for every input and never panics to its caller.
package validator

import (
	"fmt"
	"log/slog"

	"github.com/brightpath/lessongate/internal/kb"
	"github.com/brightpath/lessongate/internal/lesson"
	"github.com/brightpath/lessongate/internal/types"
)

// Constraints supplies the per-grade constraint tables the checks
// evaluate against. *kb.Loader satisfies it.
type Constraints interface {
	LanguageCeiling(grade string) kb.LanguageCeiling
	BloomDistribution(grade string) kb.BloomDistribution
	AllowedInteractions(grade string) []string
}

// Params carries the contextual inputs for one validation run.
type Params struct {
	Grade         string
	Subject       string
	Exclusions    []string
	Prerequisites []string
	Narrative     string
	Definitions   map[string]string
}

// Validator evaluates generated lessons against grade constraints.
type Validator struct {
	constraints Constraints
}

// New creates a Validator backed by the given constraint source.
func New(c Constraints) *Validator {
	return &Validator{constraints: c}
}

type checkFunc func(lesson.Content, Params) types.CheckResult

// Validate runs all eight checks in fixed order and returns the
// aggregated report. A panic inside an individual check is recovered
// into a failed result for that check only.
func (v *Validator) Validate(content lesson.Content, p Params) *types.ValidationReport {
	report := types.NewValidationReport()

	checks := []struct {
		name string
		fn   checkFunc
	}{
		{"language_ceiling", v.languageCeilingCheck},
		{"blooms_distribution", v.bloomsDistributionCheck},
		{"interaction_type", v.interactionTypeCheck},
		{"definition_alignment", v.definitionCheck},
		{"story_integration", v.storyIntegrationCheck},
		{"audio_pacing", v.audioPacingCheck},
		{"feedback_structure", v.feedbackStructureCheck},
		{"content_isolation", v.contentIsolationCheck},
	}

	for _, c := range checks {
		report.AddCheck(runCheck(c.name, c.fn, content, p))
	}

	report.ComputeScore()
	return report
}

// runCheck executes one check, converting a panic into a failed result.
func runCheck(name string, fn checkFunc, content lesson.Content, p Params) (result types.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("validation check panicked", "check", name, "error", r)
			result = types.CheckResult{
				Name:    name,
				Status:  types.CheckFailed,
				Details: map[string]any{"error": fmt.Sprint(r)},
				Message: fmt.Sprintf("internal error in %s: %v", name, r),
			}
		}
	}()
	return fn(content, p)
}
