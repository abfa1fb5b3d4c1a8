package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
	"github.com/intelligentbasedhms/hms-gateway/internal/repo"
)

// fakeEngine replays scripted fragments and counts calls.
type fakeEngine struct {
	fragments []string
	streamErr error // returned by Stream itself
	midErr    error // delivered after the fragments
	threads   []string
	listErr   error

	mu         sync.Mutex
	calls      int
	lastThread string
	lastMsg    *schema.Message
	closed     chan bool
}

func (f *fakeEngine) Stream(_ context.Context, threadID string, msg *schema.Message) (*schema.StreamReader[*schema.Message], error) {
	f.mu.Lock()
	f.calls++
	f.lastThread, f.lastMsg = threadID, msg
	f.mu.Unlock()

	if f.streamErr != nil {
		return nil, f.streamErr
	}
	if f.midErr == nil && f.closed == nil {
		chunks := make([]*schema.Message, 0, len(f.fragments))
		for _, s := range f.fragments {
			chunks = append(chunks, schema.AssistantMessage(s, nil))
		}
		return schema.StreamReaderFromArray(chunks), nil
	}

	// Unbuffered pipe: the writer learns whether the reader was closed.
	sr, sw := schema.Pipe[*schema.Message](0)
	go func() {
		defer sw.Close()
		for _, s := range f.fragments {
			if sw.Send(schema.AssistantMessage(s, nil), nil) {
				return
			}
		}
		if f.midErr != nil {
			sw.Send(nil, f.midErr)
		}
		if f.closed != nil {
			f.closed <- sw.Send(schema.AssistantMessage("late", nil), nil)
		}
	}()
	return sr, nil
}

func (f *fakeEngine) Threads(context.Context) ([]string, error) {
	return f.threads, f.listErr
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// repoShim adapts the repo package functions to the service interfaces.
type repoShim struct{}

func (repoShim) GetThread(ctx context.Context, db *gorm.DB, id string) (*domain.Thread, error) {
	return repo.GetThread(ctx, db, id)
}
func (repoShim) CountMessages(ctx context.Context, db *gorm.DB, threadID string) (int64, error) {
	return repo.CountMessages(ctx, db, threadID)
}
func (repoShim) ListMessagesPage(ctx context.Context, db *gorm.DB, threadID string, offset, limit int) ([]domain.Message, error) {
	return repo.ListMessagesPage(ctx, db, threadID, offset, limit)
}
func (repoShim) MessagesStats(ctx context.Context, db *gorm.DB, threadID string) (int64, *time.Time, error) {
	return repo.MessagesStats(ctx, db, threadID)
}
func (repoShim) GetIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, key, now)
}
func (repoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, key, threadID, assistant string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, key, threadID, assistant, status, ttl)
}

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}
