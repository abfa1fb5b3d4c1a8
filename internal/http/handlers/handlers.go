package handlers

import (
	"context"
	"time"

	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
	"github.com/intelligentbasedhms/hms-gateway/internal/predict"
	"github.com/intelligentbasedhms/hms-gateway/internal/services"
)

// ChatService runs chat turns and remembers them for idempotent retries.
type ChatService interface {
	Turn(ctx context.Context, message, threadID string) (*services.ChatResponse, error)
	Replay(ctx context.Context, key string) (*services.ChatResponse, bool)
	Remember(ctx context.Context, key string, resp *services.ChatResponse) error
}

// ThreadService lists threads and pages through their history.
type ThreadService interface {
	List(ctx context.Context) ([]string, error)
	History(ctx context.Context, threadID string, page, pageSize int) ([]domain.Message, int64, error)
	Version(ctx context.Context, threadID string) (int64, *time.Time, error)
}

// Predictor submits one assessment to the prediction service.
type Predictor interface {
	Predict(ctx context.Context, a predict.Assessment) (*predict.Result, error)
}

// Handlers groups the HTTP endpoints and the services behind them.
type Handlers struct {
	chat      ChatService
	threads   ThreadService
	predictor Predictor
}

// New constructs Handlers bound to the given services.
func New(chat ChatService, threads ThreadService, predictor Predictor) *Handlers {
	return &Handlers{chat: chat, threads: threads, predictor: predictor}
}

// Pagination carries paging metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}
