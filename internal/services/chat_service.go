package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
	"github.com/intelligentbasedhms/hms-gateway/internal/engine"
	"github.com/intelligentbasedhms/hms-gateway/internal/observability"
	"github.com/intelligentbasedhms/hms-gateway/internal/repo"
)

// ChatResponse is the aggregated result of one chat turn.
type ChatResponse struct {
	ThreadID  string `json:"thread_id" example:"5b3c1f0e-8d7a-4a53-9a51-1c6f3e0b2d4e"`
	Assistant string `json:"assistant" example:"Adults generally need seven to nine hours of sleep per night."`
}

// IdempotencyRepo stores and looks up remembered chat turns.
type IdempotencyRepo interface {
	GetIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.Idempotency, error)
	CreateIdempotency(ctx context.Context, db *gorm.DB, key, threadID, assistant string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// ChatService runs chat turns against the conversational engine.
type ChatService struct {
	Engine engine.Engine

	// DB and Idem are optional; without them turns are never replayed.
	DB   *gorm.DB
	Idem IdempotencyRepo

	// IdempotencyTTL bounds how long a remembered turn can be replayed.
	IdempotencyTTL time.Duration
	// Now is the clock used for replay lookups.
	Now func() time.Time
}

// NewChatService constructs a ChatService with a 24h replay window.
func NewChatService(e engine.Engine, db *gorm.DB, idem IdempotencyRepo) *ChatService {
	return &ChatService{
		Engine:         e,
		DB:             db,
		Idem:           idem,
		IdempotencyTTL: 24 * time.Hour,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

// Turn submits message to the thread identified by threadID (a new thread
// when empty), reads the reply stream to the end and returns the fragments
// joined in arrival order.
//
// An empty message fails with ErrEmptyMessage before the engine is called.
// Any engine failure, including one that arrives after some fragments, is
// returned as an *EngineError and no partial reply is returned.
func (s *ChatService) Turn(ctx context.Context, message, threadID string) (*ChatResponse, error) {
	if message == "" {
		observability.ObserveChatTurn(observability.OutcomeRejected, 0, 0)
		return nil, ErrEmptyMessage
	}
	tid := ResolveThreadID(threadID)

	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Turn", trace.WithAttributes(
		attribute.String("thread.id", tid),
		attribute.Bool("thread.new", threadID == ""),
		attribute.Int("message.len", len(message)),
	))
	defer span.End()

	start := time.Now()
	reply, fragments, err := s.collect(ctx, tid, message)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "engine")
		observability.ObserveChatTurn(observability.OutcomeError, fragments, time.Since(start))
		return nil, &EngineError{Err: err}
	}
	span.SetAttributes(attribute.Int("fragments", fragments))
	observability.ObserveChatTurn(observability.OutcomeOK, fragments, time.Since(start))
	return &ChatResponse{ThreadID: tid, Assistant: reply}, nil
}

func (s *ChatService) collect(ctx context.Context, threadID, message string) (string, int, error) {
	sr, err := s.Engine.Stream(ctx, threadID, schema.UserMessage(message))
	if err != nil {
		return "", 0, err
	}
	defer sr.Close()

	var (
		b strings.Builder
		n int
	)
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return b.String(), n, nil
		}
		if err != nil {
			return "", n, err
		}
		if chunk == nil {
			continue
		}
		b.WriteString(chunk.Content)
		n++
	}
}

// Replay returns the remembered response for key, if one is still valid.
// Lookup failures are treated as a miss.
func (s *ChatService) Replay(ctx context.Context, key string) (*ChatResponse, bool) {
	if key == "" || s.DB == nil || s.Idem == nil {
		return nil, false
	}
	rec, err := s.Idem.GetIdempotency(ctx, s.DB, key, s.now())
	if err != nil || rec == nil {
		return nil, false
	}
	observability.ObserveChatTurn(observability.OutcomeReplayed, 0, 0)
	return &ChatResponse{ThreadID: rec.ThreadID, Assistant: rec.Assistant}, true
}

// Remember stores resp under key so retries of the same request are
// answered without running the engine again. A key that is already taken
// keeps its first response.
func (s *ChatService) Remember(ctx context.Context, key string, resp *ChatResponse) error {
	if key == "" || resp == nil || s.DB == nil || s.Idem == nil {
		return nil
	}
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, err := s.Idem.CreateIdempotency(ctx, s.DB, key, resp.ThreadID, resp.Assistant, http.StatusOK, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

func (s *ChatService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
