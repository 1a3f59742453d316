package store

import (
	"context"

	"github.com/brightpath/lessongate/internal/types"
)

// Store defines the interface contract for all persistence operations.
type Store interface {
	CreateTopic(ctx context.Context, t types.Topic) (*types.Topic, error)
	GetTopic(ctx context.Context, id int64) (*types.Topic, error)
	ListTopics(ctx context.Context) ([]types.Topic, error)
	CountTopics(ctx context.Context) (int64, error)

	CreateRequest(ctx context.Context, topicID int64) (*types.GenerationRequest, error)
	UpdateRequest(ctx context.Context, id string, status types.RequestStatus, attempts int, errMsg string) error
	GetRequest(ctx context.Context, id string) (*types.GenerationRequest, error)

	SaveLesson(ctx context.Context, l types.GeneratedLesson) (*types.GeneratedLesson, error)
	GetLesson(ctx context.Context, id string) (*types.GeneratedLesson, error)
	GetLessonByRequest(ctx context.Context, requestID string) (*types.GeneratedLesson, error)

	AppendAudit(ctx context.Context, requestID, event, detail string) error
	ListAudit(ctx context.Context, requestID string) ([]types.AuditEvent, error)

	Close() error
}
