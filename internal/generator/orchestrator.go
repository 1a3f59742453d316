package generator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/brightpath/lessongate/internal/kb"
	"github.com/brightpath/lessongate/internal/lesson"
	"github.com/brightpath/lessongate/internal/types"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 1 * time.Second
)

// GenerationError indicates that lesson generation failed after all
// retry attempts. It carries the attempt count and the last cause.
type GenerationError struct {
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("lesson generation failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Orchestrator assembles the generation prompt from the knowledge base
// and topic metadata, calls the generation service with retry, and
// decodes the returned lesson structure.
type Orchestrator struct {
	loader      *kb.Loader
	generator   Generator
	maxAttempts int
	backoffBase time.Duration
}

// NewOrchestrator creates an orchestrator with the default retry policy
// (3 attempts, exponential backoff from 1s).
func NewOrchestrator(loader *kb.Loader, g Generator) *Orchestrator {
	return &Orchestrator{
		loader:      loader,
		generator:   g,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
	}
}

// NewOrchestratorWithRetry creates an orchestrator with an explicit
// retry policy. Non-positive values fall back to the defaults.
func NewOrchestratorWithRetry(loader *kb.Loader, g Generator, maxAttempts int, backoffBase time.Duration) *Orchestrator {
	o := NewOrchestrator(loader, g)
	if maxAttempts > 0 {
		o.maxAttempts = maxAttempts
	}
	if backoffBase > 0 {
		o.backoffBase = backoffBase
	}
	return o
}

// GenerateLesson produces a lesson content tree for the topic. It
// returns the decoded lesson and the number of attempts used. On
// exhaustion the returned error is a *GenerationError.
func (o *Orchestrator) GenerateLesson(ctx context.Context, topic types.Topic) (lesson.Content, int, error) {
	start := time.Now()
	slog.Info("starting lesson generation",
		"topic", topic.Name, "grade", topic.Grade, "subject", topic.Subject)

	snap, err := o.loader.Load()
	if err != nil {
		return nil, 0, err
	}

	prompt := assemblePrompt(topic, snap,
		o.loader.LanguageCeiling(topic.Grade),
		o.loader.BloomDistribution(topic.Grade),
		o.loader.AllowedInteractions(topic.Grade),
	)

	var lastErr error
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		content, err := o.generateOnce(ctx, prompt, attempt)
		if err == nil {
			slog.Info("lesson generation completed",
				"topic", topic.Name,
				"attempts", attempt,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return content, attempt, nil
		}
		lastErr = err
		slog.Warn("generation attempt failed",
			"attempt", attempt, "max_attempts", o.maxAttempts, "error", err)

		if attempt < o.maxAttempts {
			wait := o.backoffBase * (1 << (attempt - 1))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, attempt, &GenerationError{Attempts: attempt, Err: ctx.Err()}
			}
		}
	}

	return nil, o.maxAttempts, &GenerationError{Attempts: o.maxAttempts, Err: lastErr}
}

func (o *Orchestrator) generateOnce(ctx context.Context, prompt string, attempt int) (lesson.Content, error) {
	slog.Debug("calling generation service", "attempt", attempt, "model", o.generator.ModelName())

	raw, err := o.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return parseResponse(raw)
}

var (
	openFenceRe  = regexp.MustCompile("(?i)^```(?:json)?[ \t]*\n?")
	closeFenceRe = regexp.MustCompile("\n?```[ \t]*$")
)

// parseResponse extracts the JSON lesson from the response text.
// Responses may arrive wrapped in markdown code fences despite the
// prompt asking for raw JSON.
func parseResponse(raw string) (lesson.Content, error) {
	text := stripFences(raw)

	content, err := lesson.Decode([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("generation response is not a valid JSON lesson: %w", err)
	}
	return content, nil
}

func stripFences(raw string) string {
	text := strings.TrimSpace(raw)
	text = openFenceRe.ReplaceAllString(text, "")
	text = closeFenceRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
