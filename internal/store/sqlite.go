package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/brightpath/lessongate/internal/types"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is the SQLite-backed persistence layer for topics,
// generation requests, and generated lessons.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// validGrades mirrors the CHECK constraint on topics.grade so callers get
// a typed error instead of a raw constraint failure from the driver.
var validGrades = map[string]bool{"K": true, "1": true, "2": true, "3": true, "4": true, "5": true}

// CreateTopic inserts a topic and returns it with its assigned ID.
func (s *SQLiteStore) CreateTopic(ctx context.Context, t types.Topic) (*types.Topic, error) {
	if !validGrades[t.Grade] {
		return nil, fmt.Errorf("grade %q: %w", t.Grade, ErrInvalidGrade)
	}

	prereqs, err := json.Marshal(sliceOrEmpty(t.Prerequisites))
	if err != nil {
		return nil, err
	}
	exclusions, err := json.Marshal(sliceOrEmpty(t.Exclusions))
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO topics (name, grade, subject, chapter, narrative, prerequisites, exclusions, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Name, t.Grade, t.Subject, t.Chapter, t.Narrative, string(prereqs), string(exclusions),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}

	t.ID, err = res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTopic returns one topic by ID, or ErrNotFound.
func (s *SQLiteStore) GetTopic(ctx context.Context, id int64) (*types.Topic, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, grade, subject, chapter, narrative, prerequisites, exclusions
		FROM topics WHERE id = ?
	`, id)
	return scanTopic(row)
}

// ListTopics returns all topics ordered by grade then name.
func (s *SQLiteStore) ListTopics(ctx context.Context) ([]types.Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, grade, subject, chapter, narrative, prerequisites, exclusions
		FROM topics ORDER BY grade, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var topics []types.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, *t)
	}
	return topics, rows.Err()
}

// CountTopics returns the number of stored topics.
func (s *SQLiteStore) CountTopics(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM topics").Scan(&count)
	return count, err
}

// CreateRequest records a new pending generation request for a topic.
func (s *SQLiteStore) CreateRequest(ctx context.Context, topicID int64) (*types.GenerationRequest, error) {
	now := time.Now().UTC()
	req := types.GenerationRequest{
		ID:        ulid.Make().String(),
		TopicID:   topicID,
		Status:    types.RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generation_requests (id, topic_id, status, attempts, error, created_at, updated_at)
		VALUES (?, ?, ?, 0, '', ?, ?)
	`, req.ID, req.TopicID, string(req.Status),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert generation request: %w", err)
	}
	return &req, nil
}

// UpdateRequest advances a request's lifecycle status.
func (s *SQLiteStore) UpdateRequest(ctx context.Context, id string, status types.RequestStatus, attempts int, errMsg string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE generation_requests
		SET status = ?, attempts = ?, error = ?, updated_at = ?
		WHERE id = ?
	`, string(status), attempts, errMsg, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("update generation request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetRequest returns one generation request by ID, or ErrNotFound.
func (s *SQLiteStore) GetRequest(ctx context.Context, id string) (*types.GenerationRequest, error) {
	var req types.GenerationRequest
	var status, created, updated string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, topic_id, status, attempts, error, created_at, updated_at
		FROM generation_requests WHERE id = ?
	`, id).Scan(&req.ID, &req.TopicID, &status, &req.Attempts, &req.Error, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	req.Status = types.RequestStatus(status)
	if req.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if req.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &req, nil
}

// SaveLesson persists a generated lesson with its validation report.
func (s *SQLiteStore) SaveLesson(ctx context.Context, l types.GeneratedLesson) (*types.GeneratedLesson, error) {
	l.ID = ulid.Make().String()
	l.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generated_lessons (id, request_id, topic_id, lesson, validation_report, score, generation_seconds, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.RequestID, l.TopicID, string(l.Lesson), string(l.Report),
		l.Score, l.GenerationSeconds, l.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("insert generated lesson: %w", err)
	}
	return &l, nil
}

// GetLesson returns one generated lesson by ID, or ErrNotFound.
func (s *SQLiteStore) GetLesson(ctx context.Context, id string) (*types.GeneratedLesson, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, request_id, topic_id, lesson, validation_report, score, generation_seconds, created_at
		FROM generated_lessons WHERE id = ?
	`, id)
	return scanLesson(row)
}

// GetLessonByRequest returns the most recent lesson for a request, or
// ErrNotFound.
func (s *SQLiteStore) GetLessonByRequest(ctx context.Context, requestID string) (*types.GeneratedLesson, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, request_id, topic_id, lesson, validation_report, score, generation_seconds, created_at
		FROM generated_lessons WHERE request_id = ?
		ORDER BY created_at DESC LIMIT 1
	`, requestID)
	return scanLesson(row)
}

// AppendAudit records one lifecycle event for a generation request.
func (s *SQLiteStore) AppendAudit(ctx context.Context, requestID, event, detail string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (request_id, event, detail, created_at)
		VALUES (?, ?, ?, ?)
	`, requestID, event, detail, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListAudit returns a request's audit trail in the order it was written.
func (s *SQLiteStore) ListAudit(ctx context.Context, requestID string) ([]types.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, event, detail, created_at
		FROM audit_log WHERE request_id = ?
		ORDER BY id
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.AuditEvent
	for rows.Next() {
		var e types.AuditEvent
		var created string
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Event, &e.Detail, &created); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner) (*types.Topic, error) {
	var t types.Topic
	var prereqs, exclusions string
	err := row.Scan(&t.ID, &t.Name, &t.Grade, &t.Subject, &t.Chapter, &t.Narrative, &prereqs, &exclusions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(prereqs), &t.Prerequisites); err != nil {
		return nil, fmt.Errorf("decode prerequisites: %w", err)
	}
	if err := json.Unmarshal([]byte(exclusions), &t.Exclusions); err != nil {
		return nil, fmt.Errorf("decode exclusions: %w", err)
	}
	return &t, nil
}

func scanLesson(row rowScanner) (*types.GeneratedLesson, error) {
	var l types.GeneratedLesson
	var lessonJSON, reportJSON, created string
	err := row.Scan(&l.ID, &l.RequestID, &l.TopicID, &lessonJSON, &reportJSON,
		&l.Score, &l.GenerationSeconds, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	l.Lesson = json.RawMessage(lessonJSON)
	l.Report = json.RawMessage(reportJSON)
	if l.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &l, nil
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
