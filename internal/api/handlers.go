package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brightpath/lessongate/internal/kb"
	"github.com/brightpath/lessongate/internal/lesson"
	"github.com/brightpath/lessongate/internal/store"
	"github.com/brightpath/lessongate/internal/types"
	"github.com/brightpath/lessongate/internal/validation"
	"github.com/brightpath/lessongate/internal/validator"
)

// KB is the knowledge base surface the API depends on.
type KB interface {
	Reload() (*kb.Snapshot, error)
	VersionInfo() types.VersionInfo
	IsLoaded() bool
	Definition(concept, grade string) string
}

// LessonGenerator produces a lesson content tree for a topic, returning
// the number of attempts used.
type LessonGenerator interface {
	GenerateLesson(ctx context.Context, topic types.Topic) (lesson.Content, int, error)
}

// LessonValidator scores generated content against grade constraints.
type LessonValidator interface {
	Validate(content lesson.Content, p validator.Params) *types.ValidationReport
}

// Handler implements the API handlers
type Handler struct {
	store     store.Store
	kb        KB
	generator LessonGenerator
	validator LessonValidator
	apiKey    string
	version   string
	modelName string
}

// NewHandler creates a new Handler wired to the service dependencies.
func NewHandler(s store.Store, k KB, g LessonGenerator, v LessonValidator, apiKey, version, modelName string) *Handler {
	return &Handler{
		store:     s,
		kb:        k,
		generator: g,
		validator: v,
		apiKey:    apiKey,
		version:   version,
		modelName: modelName,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.CountTopics(r.Context())
	if err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	info := h.kb.VersionInfo()
	resp := types.HealthResponse{
		Status:          "healthy",
		Version:         h.version,
		KBLoaded:        h.kb.IsLoaded(),
		KBChecksum:      info.Checksum,
		GenerationModel: h.modelName,
		TopicCount:      count,
	}

	writeJSON(w, http.StatusOK, resp)
}

// KBVersion handles GET /api/v1/kb/version
func (h *Handler) KBVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.kb.VersionInfo())
}

// KBReload handles POST /api/v1/kb/reload
func (h *Handler) KBReload(w http.ResponseWriter, r *http.Request) {
	if _, err := h.kb.Reload(); err != nil {
		slog.Error("kb reload failed", "error", err)
		var loadErr *kb.LoadError
		if errors.As(err, &loadErr) {
			WriteProblem(w, r, http.StatusServiceUnavailable, loadErr.Error())
			return
		}
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	writeJSON(w, http.StatusOK, h.kb.VersionInfo())
}

// ListTopics handles GET /api/v1/topics
func (h *Handler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.store.ListTopics(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"topics": topics,
		"count":  len(topics),
	})
}

// GetTopic handles GET /api/v1/topics/{id}
func (h *Handler) GetTopic(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		WriteProblem(w, r, http.StatusBadRequest, "Topic ID must be a positive integer")
		return
	}

	topic, err := h.store.GetTopic(r.Context(), id)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, topic)
}

// GenerateLesson handles POST /api/v1/lessons/generate. Generation runs
// synchronously: the request is persisted up front, transitions through
// processing, and ends completed or failed before the response is sent.
func (h *Handler) GenerateLesson(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if req.TopicID <= 0 {
		WriteProblemWithErrors(w, r, "Request contains invalid fields", []validation.ValidationError{
			{Field: "topic_id", Message: "must be a positive integer"},
		})
		return
	}

	topic, err := h.store.GetTopic(r.Context(), req.TopicID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	genReq, err := h.store.CreateRequest(r.Context(), topic.ID)
	if err != nil {
		slog.Error("failed to create generation request", "error", err, "topic_id", topic.ID)
		MapStoreError(w, r, err)
		return
	}

	h.audit(r.Context(), genReq.ID, types.AuditRequestReceived,
		fmt.Sprintf("topic %d (%s, grade %s)", topic.ID, topic.Name, topic.Grade))

	if err := h.store.UpdateRequest(r.Context(), genReq.ID, types.RequestProcessing, 0, ""); err != nil {
		slog.Error("failed to update generation request", "error", err, "request_id", genReq.ID)
	}

	start := time.Now()
	content, attempts, err := h.generator.GenerateLesson(r.Context(), *topic)
	if err != nil {
		slog.Error("lesson generation failed",
			"error", err, "request_id", genReq.ID, "topic_id", topic.ID, "attempts", attempts)
		h.audit(r.Context(), genReq.ID, types.AuditGenerationFailed,
			fmt.Sprintf("after %d attempts: %s", attempts, err.Error()))
		if uerr := h.store.UpdateRequest(r.Context(), genReq.ID, types.RequestFailed, attempts, err.Error()); uerr != nil {
			slog.Error("failed to mark request failed", "error", uerr, "request_id", genReq.ID)
		}
		WriteProblem(w, r, http.StatusBadGateway,
			fmt.Sprintf("Lesson generation failed after %d attempts", attempts))
		return
	}
	elapsed := time.Since(start).Seconds()
	h.audit(r.Context(), genReq.ID, types.AuditGenerationCompleted,
		fmt.Sprintf("%d attempts in %.1fs", attempts, elapsed))

	report := h.validator.Validate(content, h.validationParams(*topic))
	h.audit(r.Context(), genReq.ID, types.AuditValidationCompleted,
		fmt.Sprintf("passed %t, score %.2f", report.Passed, report.OverallScore))

	lessonJSON, err := json.Marshal(content)
	if err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	saved, err := h.store.SaveLesson(r.Context(), types.GeneratedLesson{
		RequestID:         genReq.ID,
		TopicID:           topic.ID,
		Lesson:            lessonJSON,
		Report:            reportJSON,
		Score:             report.OverallScore,
		GenerationSeconds: elapsed,
	})
	if err != nil {
		slog.Error("failed to save lesson", "error", err, "request_id", genReq.ID)
		MapStoreError(w, r, err)
		return
	}

	if err := h.store.UpdateRequest(r.Context(), genReq.ID, types.RequestCompleted, attempts, ""); err != nil {
		slog.Error("failed to mark request completed", "error", err, "request_id", genReq.ID)
	}

	writeJSON(w, http.StatusOK, types.GenerateResponse{
		RequestID:         genReq.ID,
		Status:            types.RequestCompleted,
		LessonID:          saved.ID,
		ValidationReport:  report,
		GenerationSeconds: elapsed,
	})
}

// audit appends one event to a request's audit trail. A write failure
// is logged and swallowed so the trail never blocks generation.
func (h *Handler) audit(ctx context.Context, requestID, event, detail string) {
	if err := h.store.AppendAudit(ctx, requestID, event, detail); err != nil {
		slog.Error("failed to write audit event",
			"error", err, "request_id", requestID, "event", event)
	}
}

// validationParams assembles the validator inputs for a topic, including
// definitions looked up for the topic name and each prerequisite concept.
func (h *Handler) validationParams(topic types.Topic) validator.Params {
	definitions := make(map[string]string)
	if def := h.kb.Definition(topic.Name, topic.Grade); def != "" {
		definitions[topic.Name] = def
	}
	for _, prereq := range topic.Prerequisites {
		if def := h.kb.Definition(prereq, topic.Grade); def != "" {
			definitions[prereq] = def
		}
	}

	return validator.Params{
		Grade:         topic.Grade,
		Subject:       topic.Subject,
		Exclusions:    topic.Exclusions,
		Prerequisites: topic.Prerequisites,
		Narrative:     topic.Narrative,
		Definitions:   definitions,
	}
}

// GetLesson handles GET /api/v1/lessons/{id}
func (h *Handler) GetLesson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateULID("id", id); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Lesson ID %s", err.Message))
		return
	}

	l, err := h.store.GetLesson(r.Context(), id)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, l)
}

// LessonStatus handles GET /api/v1/lessons/{id}/status. The ID is the
// generation request ID returned by GenerateLesson.
func (h *Handler) LessonStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateULID("id", id); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Request ID %s", err.Message))
		return
	}

	req, err := h.store.GetRequest(r.Context(), id)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	resp := types.StatusResponse{RequestID: req.ID, Status: req.Status}
	switch req.Status {
	case types.RequestPending:
		resp.Percentage = 0
		resp.Message = "queued for generation"
	case types.RequestProcessing:
		resp.Percentage = 50
		resp.Message = "generating lesson"
	case types.RequestCompleted:
		resp.Percentage = 100
		resp.Message = "lesson ready"
		if l, lerr := h.store.GetLessonByRequest(r.Context(), req.ID); lerr == nil {
			resp.LessonID = l.ID
		}
	case types.RequestFailed:
		resp.Percentage = 100
		resp.Message = req.Error
	}

	writeJSON(w, http.StatusOK, resp)
}

// LessonAudit handles GET /api/v1/lessons/{id}/audit. The ID is the
// generation request ID; the response lists the request's lifecycle
// events in write order.
func (h *Handler) LessonAudit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := validation.ValidateULID("id", id); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Request ID %s", err.Message))
		return
	}

	if _, err := h.store.GetRequest(r.Context(), id); err != nil {
		MapStoreError(w, r, err)
		return
	}

	events, err := h.store.ListAudit(r.Context(), id)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	if events == nil {
		events = []types.AuditEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"request_id": id,
		"events":     events,
	})
}
