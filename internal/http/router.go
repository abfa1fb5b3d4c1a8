// Package httpapi wires the Gin transport to the application services,
// middleware and handlers. It owns cross-cutting concerns: tracing,
// correlation ids, logging with redaction, panic recovery, metrics,
// idempotency, optional rate limiting, CORS and security headers.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/intelligentbasedhms/hms-gateway/docs"
	"github.com/intelligentbasedhms/hms-gateway/internal/config"
	"github.com/intelligentbasedhms/hms-gateway/internal/domain"
	"github.com/intelligentbasedhms/hms-gateway/internal/engine"
	"github.com/intelligentbasedhms/hms-gateway/internal/http/handlers"
	"github.com/intelligentbasedhms/hms-gateway/internal/http/middleware"
	"github.com/intelligentbasedhms/hms-gateway/internal/repo"
	"github.com/intelligentbasedhms/hms-gateway/internal/services"
	"github.com/intelligentbasedhms/hms-gateway/internal/web"
)

// threadRepoShim adapts the repo functions to services.ThreadRepo.
type threadRepoShim struct{}

func (threadRepoShim) GetThread(ctx context.Context, db *gorm.DB, id string) (*domain.Thread, error) {
	return repo.GetThread(ctx, db, id)
}

func (threadRepoShim) CountMessages(ctx context.Context, db *gorm.DB, threadID string) (int64, error) {
	return repo.CountMessages(ctx, db, threadID)
}

func (threadRepoShim) ListMessagesPage(ctx context.Context, db *gorm.DB, threadID string, offset, limit int) ([]domain.Message, error) {
	return repo.ListMessagesPage(ctx, db, threadID, offset, limit)
}

func (threadRepoShim) MessagesStats(ctx context.Context, db *gorm.DB, threadID string) (int64, *time.Time, error) {
	return repo.MessagesStats(ctx, db, threadID)
}

// idemRepoShim adapts the repo functions to services.IdempotencyRepo.
type idemRepoShim struct{}

func (idemRepoShim) GetIdempotency(ctx context.Context, db *gorm.DB, key string, now time.Time) (*domain.Idempotency, error) {
	return repo.GetIdempotency(ctx, db, key, now)
}

func (idemRepoShim) CreateIdempotency(ctx context.Context, db *gorm.DB, key, threadID, assistant string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	return repo.CreateIdempotency(ctx, db, key, threadID, assistant, status, ttl)
}

var (
	corsMethods = []string{"GET", "POST", "OPTIONS"}
	corsHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey}
	corsExpose  = []string{"X-Request-ID", "Content-Length", "ETag", handlers.HeaderIdempotencyReplayed}

	// Wildcard mode. Browsers never match Authorization against "*", so it
	// stays listed by name.
	corsAnyMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"}
	corsAnyHeaders = []string{"*", "Authorization"}
)

// RegisterRoutes attaches middleware and endpoints to r.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Idempotency validator (before the limiter so replays bypass it)
//  8. Rate limiter, only when RATE_RPS > 0
//  9. CORS and security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, eng engine.Engine, predictor handlers.Predictor, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", middleware.MetricsHandler())

	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200},
		func(ctx context.Context, key string, now time.Time) (bool, error) {
			rec, err := repo.GetIdempotency(ctx, db, key, now)
			if errors.Is(err, repo.ErrNotFound) {
				return false, nil
			}
			if err != nil {
				return false, err
			}
			return rec != nil, nil
		},
	))

	if cfg.RateRPS > 0 {
		rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIP())
		r.Use(rl.Handler())
	}

	if cfg.CORS.AllowAll() {
		// Force ACAO: * even without an Origin header so plain health checks see it.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins: true,
			AllowMethods:    corsAnyMethods,
			AllowHeaders:    corsAnyHeaders,
			ExposeHeaders:   corsExpose,
			MaxAge:          12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORS.AllowedOrigins,
			AllowMethods:  corsMethods,
			AllowHeaders:  corsHeaders,
			ExposeHeaders: corsExpose,
			MaxAge:        12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	chatSvc := services.NewChatService(eng, db, idemRepoShim{})
	if cfg.IdempotencyTTL > 0 {
		chatSvc.IdempotencyTTL = cfg.IdempotencyTTL
	}
	threadSvc := services.NewThreadService(eng, db, threadRepoShim{})
	h := handlers.New(chatSvc, threadSvc, predictor)

	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.POST("/chat", h.Chat)
		api.GET("/threads", h.ListThreads)
		api.GET("/threads/:id/messages", h.ListMessages)
	}

	// Server-rendered assessment form.
	r.SetHTMLTemplate(web.MustTemplates())
	form := r.Group("/assessment",
		gzip.Gzip(gzip.DefaultCompression),
		middleware.SecurityHeaders(middleware.SecurityOptions{
			NoStore:               true,
			ContentSecurityPolicy: middleware.AssessmentCSP,
		}),
	)
	{
		form.GET("", h.AssessmentForm)
		form.POST("", h.SubmitAssessment)
	}
}

// limitBody caps the request body at maxBytes; larger bodies fail on read.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
