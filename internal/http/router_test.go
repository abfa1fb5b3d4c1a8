package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/intelligentbasedhms/hms-gateway/internal/config"
	"github.com/intelligentbasedhms/hms-gateway/internal/engine"
	"github.com/intelligentbasedhms/hms-gateway/internal/knowledge"
	"github.com/intelligentbasedhms/hms-gateway/internal/predict"
	"github.com/intelligentbasedhms/hms-gateway/internal/repo"
)

const sleepFact = "Adults generally need seven to nine hours of sleep per night for good mental health."

type stubPredictor struct{ calls int }

func (s *stubPredictor) Predict(context.Context, predict.Assessment) (*predict.Result, error) {
	s.calls++
	return &predict.Result{RiskStatus: "Low Risk"}, nil
}

// newTestDB opens a private in-memory database (pure-Go sqlite, no CGO).
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestServer(t *testing.T, cfg config.Config) (*gin.Engine, *stubPredictor) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	kb := knowledge.FromMarkdown([]byte("# Sleep\n\n" + sleepFact + "\n"))
	eng, err := engine.New(context.Background(), db, &engine.LocalModel{Index: kb, Threshold: 0.1},
		engine.Options{Knowledge: kb, Threshold: 0.1, HistoryLimit: 10})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	sp := &stubPredictor{}
	r := gin.New()
	RegisterRoutes(r, db, eng, sp, cfg)
	return r, sp
}

func do(r http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_HealthMetricsFallbacks(t *testing.T) {
	r, _ := newTestServer(t, config.Config{APIBasePath: "/", OTEL: config.OTELConfig{ServiceName: "test-svc"}})

	w := do(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-all CORS expected '*', got %q", got)
	}
	if w.Header().Get("X-Request-ID") == "" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing request id or security headers")
	}

	w = do(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("GET /metrics = %d", w.Code)
	}

	w = do(r, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"code":"not_found"`) {
		t.Fatalf("NoRoute = %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodDelete, "/threads", "", nil)
	if w.Code != http.StatusMethodNotAllowed || !strings.Contains(w.Body.String(), `"code":"method_not_allowed"`) {
		t.Fatalf("NoMethod = %d %s", w.Code, w.Body.String())
	}

	// Swagger is off unless enabled.
	if w := do(r, http.MethodGet, "/swagger/index.html", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("swagger served while disabled: %d", w.Code)
	}
}

func TestRegisterRoutes_ChatThenThreads(t *testing.T) {
	r, _ := newTestServer(t, config.Config{APIBasePath: "/"})
	jsonHdr := map[string]string{"Content-Type": "application/json"}

	w := do(r, http.MethodGet, "/threads", "", nil)
	if w.Code != http.StatusOK || strings.TrimSpace(w.Body.String()) != `{"threads":[]}` {
		t.Fatalf("empty threads = %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodPost, "/chat", `{"message":"How many hours of sleep do adults need?"}`, jsonHdr)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /chat = %d %s", w.Code, w.Body.String())
	}
	var turn struct {
		ThreadID  string `json:"thread_id"`
		Assistant string `json:"assistant"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &turn); err != nil {
		t.Fatal(err)
	}
	if turn.ThreadID == "" || turn.Assistant != sleepFact {
		t.Fatalf("turn = %+v", turn)
	}

	w = do(r, http.MethodGet, "/threads", "", nil)
	if !strings.Contains(w.Body.String(), turn.ThreadID) {
		t.Fatalf("thread not listed: %s", w.Body.String())
	}

	w = do(r, http.MethodGet, "/threads/"+turn.ThreadID+"/messages", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":2`) {
		t.Fatalf("history = %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("ETag") == "" {
		t.Fatalf("history without etag")
	}

	w = do(r, http.MethodGet, "/threads/unknown/messages", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown thread = %d", w.Code)
	}

	w = do(r, http.MethodPost, "/chat", `{"message":""}`, jsonHdr)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"detail":"Message is required"`) {
		t.Fatalf("empty message = %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_IdempotentReplay(t *testing.T) {
	r, _ := newTestServer(t, config.Config{APIBasePath: "/"})
	hdr := map[string]string{"Content-Type": "application/json", "Idempotency-Key": "turn-1"}

	first := do(r, http.MethodPost, "/chat", `{"message":"How many hours of sleep do adults need?"}`, hdr)
	if first.Code != http.StatusOK || first.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("first = %d", first.Code)
	}
	second := do(r, http.MethodPost, "/chat", `{"message":"How many hours of sleep do adults need?"}`, hdr)
	if second.Code != http.StatusOK || second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("second = %d replayed=%q", second.Code, second.Header().Get("Idempotency-Replayed"))
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replay differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}

	w := do(r, http.MethodGet, "/threads", "", nil)
	var list struct {
		Threads []string `json:"threads"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Threads) != 1 {
		t.Fatalf("replay ran a second turn: %v", list.Threads)
	}
}

func TestRegisterRoutes_BasePathAndSwagger(t *testing.T) {
	r, _ := newTestServer(t, config.Config{APIBasePath: "/api/v1", SwaggerEnabled: true})

	if w := do(r, http.MethodGet, "/api/v1/threads", "", nil); w.Code != http.StatusOK {
		t.Fatalf("prefixed threads = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/threads", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unprefixed threads = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/swagger/doc.json", "", nil); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/threads") {
		t.Fatalf("swagger doc = %d", w.Code)
	}
}

func TestRegisterRoutes_CORSAllowlist(t *testing.T) {
	r, _ := newTestServer(t, config.Config{
		APIBasePath: "/",
		CORS:        config.CORSConfig{AllowedOrigins: []string{"https://app.example"}},
	})

	w := do(r, http.MethodGet, "/health", "", map[string]string{"Origin": "https://app.example"})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("allowed origin ACAO = %q", got)
	}
	w = do(r, http.MethodGet, "/health", "", map[string]string{"Origin": "https://evil.example"})
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("disallowed origin echoed")
	}
}

func TestRegisterRoutes_CORSAllowAllPreflight(t *testing.T) {
	r, _ := newTestServer(t, config.Config{APIBasePath: "/"})

	w := do(r, http.MethodOptions, "/chat", "", map[string]string{
		"Origin":                         "https://client.example",
		"Access-Control-Request-Method":  "DELETE",
		"Access-Control-Request-Headers": "content-type,x-session-token",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("ACAO = %q", got)
	}
	methods := w.Header().Get("Access-Control-Allow-Methods")
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		if !strings.Contains(methods, m) {
			t.Fatalf("ACAM %q missing %s", methods, m)
		}
	}
	allowed := strings.Split(w.Header().Get("Access-Control-Allow-Headers"), ",")
	hasWildcard, hasAuth := false, false
	for _, h := range allowed {
		switch strings.TrimSpace(h) {
		case "*":
			hasWildcard = true
		case "Authorization":
			hasAuth = true
		}
	}
	if !hasWildcard || !hasAuth {
		t.Fatalf("ACAH = %v", allowed)
	}
}

func TestRegisterRoutes_CORSAllowlistPreflightKeepsNamedHeaders(t *testing.T) {
	r, _ := newTestServer(t, config.Config{
		APIBasePath: "/",
		CORS:        config.CORSConfig{AllowedOrigins: []string{"https://app.example"}},
	})

	w := do(r, http.MethodOptions, "/chat", "", map[string]string{
		"Origin":                         "https://app.example",
		"Access-Control-Request-Method":  "POST",
		"Access-Control-Request-Headers": "content-type",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d", w.Code)
	}
	acah := w.Header().Get("Access-Control-Allow-Headers")
	if strings.Contains(acah, "*") || !strings.Contains(acah, "Idempotency-Key") {
		t.Fatalf("ACAH = %q", acah)
	}
	if strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Fatalf("allowlist mode widened methods")
	}
}

func TestRegisterRoutes_EmptyMessageNotReplayed(t *testing.T) {
	r, _ := newTestServer(t, config.Config{APIBasePath: "/"})
	hdr := map[string]string{"Content-Type": "application/json", "Idempotency-Key": "turn-empty"}

	if w := do(r, http.MethodPost, "/chat", `{"message":"How many hours of sleep do adults need?"}`, hdr); w.Code != http.StatusOK {
		t.Fatalf("seed = %d", w.Code)
	}
	w := do(r, http.MethodPost, "/chat", `{"message":""}`, hdr)
	if w.Code != http.StatusBadRequest || w.Header().Get("Idempotency-Replayed") != "" {
		t.Fatalf("empty message = %d replayed=%q", w.Code, w.Header().Get("Idempotency-Replayed"))
	}
	if !strings.Contains(w.Body.String(), "Message is required") {
		t.Fatalf("body %s", w.Body.String())
	}
}

func TestRegisterRoutes_RateLimitOptIn(t *testing.T) {
	r, _ := newTestServer(t, config.Config{APIBasePath: "/", RateRPS: 0.001, RateBurst: 1})
	if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
		t.Fatalf("first = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d", w.Code)
	}

	// Disabled by default.
	r, _ = newTestServer(t, config.Config{APIBasePath: "/"})
	for i := 0; i < 5; i++ {
		if w := do(r, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK {
			t.Fatalf("request %d = %d", i, w.Code)
		}
	}
}

func TestRegisterRoutes_AssessmentForm(t *testing.T) {
	r, sp := newTestServer(t, config.Config{APIBasePath: "/api/v1"})

	w := do(r, http.MethodGet, "/assessment", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Depression Prediction") {
		t.Fatalf("GET /assessment = %d", w.Code)
	}
	if w.Header().Get("Content-Security-Policy") == "" || w.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("form security headers missing")
	}

	w = do(r, http.MethodGet, "/assessment", "", map[string]string{"Accept-Encoding": "gzip"})
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("form not compressed")
	}

	form := url.Values{
		"gender": {"Male"}, "succide": {"No"}, "age": {"25"}, "work_hours": {"6"},
		"profession": {"Working Professional"}, "sleep": {"7"}, "financial": {"2"},
		"family": {"No"}, "pressure": {"2"}, "dietary": {"Healthy"}, "satisfaction": {"3"},
	}
	w = do(r, http.MethodPost, "/assessment", form.Encode(), map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Low Risk") || sp.calls != 1 {
		t.Fatalf("POST /assessment = %d calls=%d", w.Code, sp.calls)
	}
}

func TestLimitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(8))
	r.POST("/echo", func(c *gin.Context) {
		b, err := c.GetRawData()
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(b))
	})

	if w := do(r, http.MethodPost, "/echo", "short", nil); w.Code != http.StatusOK || w.Body.String() != "short" {
		t.Fatalf("small body = %d %q", w.Code, w.Body.String())
	}
	if w := do(r, http.MethodPost, "/echo", "much too long", nil); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("large body = %d", w.Code)
	}
}

func TestGroupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for prefix, path := range map[string]string{"": "/x", "/": "/x", "/api": "/api/x"} {
		r := gin.New()
		groupWithPrefix(r, prefix).GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		if w := do(r, http.MethodGet, path, "", nil); w.Code != http.StatusNoContent {
			t.Fatalf("prefix %q: GET %s = %d", prefix, path, w.Code)
		}
	}
}
