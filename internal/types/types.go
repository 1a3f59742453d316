package types

import (
	"encoding/json"
	"math"
	"time"
)

// CheckStatus represents the outcome of a single validation check.
type CheckStatus string

const (
	CheckPassed  CheckStatus = "passed"
	CheckFailed  CheckStatus = "failed"
	CheckWarning CheckStatus = "warning"
)

// CheckResult holds the outcome of one validation check.
type CheckResult struct {
	Name    string         `json:"name"`
	Status  CheckStatus    `json:"status"`
	Details map[string]any `json:"details"`
	Message string         `json:"message,omitempty"`
}

// ReportWarning is a non-blocking validation finding.
type ReportWarning struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// ReportError is a blocking validation finding.
type ReportError struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// ValidationReport is the aggregate result of running all validation
// checks against one generated lesson.
type ValidationReport struct {
	Passed       bool            `json:"passed"`
	Checks       []CheckResult   `json:"checks"`
	Warnings     []ReportWarning `json:"warnings"`
	Errors       []ReportError   `json:"errors"`
	OverallScore float64         `json:"overall_score"`
}

// NewValidationReport returns an empty report that passes until a
// failed check is added.
func NewValidationReport() *ValidationReport {
	return &ValidationReport{Passed: true}
}

// AddCheck appends a check result and updates the pass flag and the
// warning/error lists. Warnings never flip Passed; failures always do.
func (r *ValidationReport) AddCheck(c CheckResult) {
	r.Checks = append(r.Checks, c)
	switch c.Status {
	case CheckFailed:
		r.Passed = false
		r.Errors = append(r.Errors, ReportError{
			Type:     c.Name,
			Message:  c.Message,
			Severity: "high",
		})
	case CheckWarning:
		r.Warnings = append(r.Warnings, ReportWarning{
			Type:     c.Name,
			Message:  c.Message,
			Severity: "low",
		})
	}
}

// ComputeScore recalculates OverallScore as (passed + 0.5*warnings)/total,
// rounded to two decimals. A report with no checks scores 0.0.
func (r *ValidationReport) ComputeScore() {
	if len(r.Checks) == 0 {
		r.OverallScore = 0.0
		return
	}
	var passed, warned int
	for _, c := range r.Checks {
		switch c.Status {
		case CheckPassed:
			passed++
		case CheckWarning:
			warned++
		}
	}
	raw := (float64(passed) + 0.5*float64(warned)) / float64(len(r.Checks))
	r.OverallScore = math.Round(raw*100) / 100
}

// MarshalJSON ensures nil slices in ValidationReport marshal as [] not null.
func (r ValidationReport) MarshalJSON() ([]byte, error) {
	if r.Checks == nil {
		r.Checks = []CheckResult{}
	}
	if r.Warnings == nil {
		r.Warnings = []ReportWarning{}
	}
	if r.Errors == nil {
		r.Errors = []ReportError{}
	}
	type Alias ValidationReport
	return json.Marshal(Alias(r))
}

// RequestStatus tracks a generation request through its lifecycle.
type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestProcessing RequestStatus = "processing"
	RequestCompleted  RequestStatus = "completed"
	RequestFailed     RequestStatus = "failed"
)

// Topic is a curriculum topic a lesson can be generated for.
type Topic struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Grade         string   `json:"grade"`
	Subject       string   `json:"subject"`
	Chapter       string   `json:"chapter"`
	Narrative     string   `json:"narrative,omitempty"`
	Prerequisites []string `json:"prerequisites"`
	Exclusions    []string `json:"exclusions"`
}

// MarshalJSON ensures nil slices in Topic marshal as [] not null.
func (t Topic) MarshalJSON() ([]byte, error) {
	if t.Prerequisites == nil {
		t.Prerequisites = []string{}
	}
	if t.Exclusions == nil {
		t.Exclusions = []string{}
	}
	type Alias Topic
	return json.Marshal(Alias(t))
}

// GenerationRequest tracks one lesson generation attempt end to end.
type GenerationRequest struct {
	ID        string        `json:"id"`
	TopicID   int64         `json:"topic_id"`
	Status    RequestStatus `json:"status"`
	Attempts  int           `json:"attempts"`
	Error     string        `json:"error,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// GeneratedLesson is the persisted output of a completed generation run.
type GeneratedLesson struct {
	ID                string          `json:"id"`
	RequestID         string          `json:"request_id"`
	TopicID           int64           `json:"topic_id"`
	Lesson            json.RawMessage `json:"lesson"`
	Report            json.RawMessage `json:"validation_report"`
	Score             float64         `json:"score"`
	GenerationSeconds float64         `json:"generation_seconds"`
	CreatedAt         time.Time       `json:"created_at"`
}

// AuditEvent is one entry in a generation request's audit trail. Events
// record the request lifecycle as it happened: received, generation
// outcome, validation outcome.
type AuditEvent struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Audit event names written during lesson generation.
const (
	AuditRequestReceived     = "request_received"
	AuditGenerationCompleted = "generation_completed"
	AuditGenerationFailed    = "generation_failed"
	AuditValidationCompleted = "validation_completed"
)

// GenerateRequest is the payload for POST /api/v1/lessons/generate.
type GenerateRequest struct {
	TopicID int64 `json:"topic_id"`
}

// GenerateResponse is the payload returned by POST /api/v1/lessons/generate.
type GenerateResponse struct {
	RequestID         string            `json:"request_id"`
	Status            RequestStatus     `json:"status"`
	LessonID          string            `json:"lesson_id,omitempty"`
	ValidationReport  *ValidationReport `json:"validation_report,omitempty"`
	GenerationSeconds float64           `json:"generation_seconds,omitempty"`
}

// StatusResponse is the payload for GET /api/v1/lessons/{id}/status.
type StatusResponse struct {
	RequestID  string        `json:"request_id"`
	Status     RequestStatus `json:"status"`
	Percentage int           `json:"percentage"`
	Message    string        `json:"message"`
	LessonID   string        `json:"lesson_id,omitempty"`
}

// VersionInfo describes the currently loaded knowledge base.
type VersionInfo struct {
	Version         string   `json:"version"`
	Checksum        string   `json:"checksum"`
	DocumentsLoaded []string `json:"documents_loaded"`
}

// MarshalJSON ensures nil slices in VersionInfo marshal as [] not null.
func (v VersionInfo) MarshalJSON() ([]byte, error) {
	if v.DocumentsLoaded == nil {
		v.DocumentsLoaded = []string{}
	}
	type Alias VersionInfo
	return json.Marshal(Alias(v))
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	KBLoaded        bool   `json:"kb_loaded"`
	KBChecksum      string `json:"kb_checksum,omitempty"`
	GenerationModel string `json:"generation_model"`
	TopicCount      int64  `json:"topic_count"`
}
