package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
	"github.com/intelligentbasedhms/hms-gateway/internal/engine"
)

// ThreadRepo is the read side of thread storage used for history pages.
type ThreadRepo interface {
	GetThread(ctx context.Context, db *gorm.DB, id string) (*domain.Thread, error)
	CountMessages(ctx context.Context, db *gorm.DB, threadID string) (int64, error)
	ListMessagesPage(ctx context.Context, db *gorm.DB, threadID string, offset, limit int) ([]domain.Message, error)
	MessagesStats(ctx context.Context, db *gorm.DB, threadID string) (int64, *time.Time, error)
}

// ThreadService lists threads and pages through their messages.
type ThreadService struct {
	Engine engine.Engine
	DB     *gorm.DB
	Repo   ThreadRepo
}

// NewThreadService constructs a ThreadService.
func NewThreadService(e engine.Engine, db *gorm.DB, r ThreadRepo) *ThreadService {
	return &ThreadService{Engine: e, DB: db, Repo: r}
}

// List returns every thread id known to the engine. An empty store yields
// an empty, non-nil slice.
func (s *ThreadService) List(ctx context.Context) ([]string, error) {
	ids, err := s.Engine.Threads(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// History returns one page of a thread's messages, oldest first, with the
// total message count.
func (s *ThreadService) History(ctx context.Context, threadID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/ThreadService")
	ctx, span := tr.Start(ctx, "History", trace.WithAttributes(
		attribute.String("thread.id", threadID),
		attribute.Int("page", page),
		attribute.Int("page_size", pageSize),
	))
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	if _, err := s.Repo.GetThread(ctx, s.DB, threadID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrThreadNotFound
		}
		return nil, 0, err
	}

	total, err := s.Repo.CountMessages(ctx, s.DB, threadID)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}
	items, err := s.Repo.ListMessagesPage(ctx, s.DB, threadID, (page-1)*pageSize, pageSize)
	if err != nil {
		span.RecordError(err)
		return nil, 0, err
	}
	span.SetAttributes(attribute.Int("messages", len(items)))
	return items, total, nil
}

// Version returns the message count and latest update time of a thread,
// used to build conditional-request validators.
func (s *ThreadService) Version(ctx context.Context, threadID string) (int64, *time.Time, error) {
	return s.Repo.MessagesStats(ctx, s.DB, threadID)
}
