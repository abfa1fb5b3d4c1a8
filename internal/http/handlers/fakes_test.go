package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
	"github.com/intelligentbasedhms/hms-gateway/internal/predict"
	"github.com/intelligentbasedhms/hms-gateway/internal/services"
	"github.com/intelligentbasedhms/hms-gateway/internal/web"
)

type fakeChat struct {
	resp  *services.ChatResponse
	err   error
	turns int

	gotMessage, gotThread string

	replay      *services.ChatResponse
	replayKeys  []string
	remembered  map[string]*services.ChatResponse
	rememberErr error
}

func (f *fakeChat) Turn(_ context.Context, message, threadID string) (*services.ChatResponse, error) {
	f.turns++
	f.gotMessage, f.gotThread = message, threadID
	if message == "" {
		return nil, services.ErrEmptyMessage
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeChat) Replay(_ context.Context, key string) (*services.ChatResponse, bool) {
	f.replayKeys = append(f.replayKeys, key)
	return f.replay, f.replay != nil
}

func (f *fakeChat) Remember(_ context.Context, key string, resp *services.ChatResponse) error {
	if f.remembered == nil {
		f.remembered = map[string]*services.ChatResponse{}
	}
	f.remembered[key] = resp
	return f.rememberErr
}

type fakeThreads struct {
	ids     []string
	listErr error

	items    []domain.Message
	total    int64
	histErr  error
	gotPage  int
	gotSize  int
	histHits int

	count  int64
	maxTS  *time.Time
	verErr error
}

func (f *fakeThreads) List(context.Context) ([]string, error) { return f.ids, f.listErr }

func (f *fakeThreads) History(_ context.Context, _ string, page, pageSize int) ([]domain.Message, int64, error) {
	f.histHits++
	f.gotPage, f.gotSize = page, pageSize
	return f.items, f.total, f.histErr
}

func (f *fakeThreads) Version(context.Context, string) (int64, *time.Time, error) {
	return f.count, f.maxTS, f.verErr
}

type fakePredictor struct {
	res   *predict.Result
	err   error
	calls int
	got   predict.Assessment
}

func (f *fakePredictor) Predict(_ context.Context, a predict.Assessment) (*predict.Result, error) {
	f.calls++
	f.got = a
	return f.res, f.err
}

var errBoom = errors.New("boom")

func newTestRouter(h *Handlers) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.SetHTMLTemplate(web.MustTemplates())
	r.POST("/chat", h.Chat)
	r.GET("/threads", h.ListThreads)
	r.GET("/threads/:id/messages", h.ListMessages)
	r.GET("/assessment", h.AssessmentForm)
	r.POST("/assessment", h.SubmitAssessment)
	return r
}
