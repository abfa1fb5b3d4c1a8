// Command api serves the chat gateway, the thread history API and the
// assessment form.
//
// @title       HMS Gateway API
// @version     1.0
// @description Chat assistant and thread history API of the health management service.
// @BasePath    /
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/intelligentbasedhms/hms-gateway/internal/config"
	"github.com/intelligentbasedhms/hms-gateway/internal/engine"
	httpapi "github.com/intelligentbasedhms/hms-gateway/internal/http"
	"github.com/intelligentbasedhms/hms-gateway/internal/knowledge"
	"github.com/intelligentbasedhms/hms-gateway/internal/observability"
	"github.com/intelligentbasedhms/hms-gateway/internal/predict"
	"github.com/intelligentbasedhms/hms-gateway/internal/repo"
	"github.com/intelligentbasedhms/hms-gateway/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const purgeEvery = time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load configuration")
	}
	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn().Err(envErr).Msg("failed to load .env file, using process environment only")
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing, err := observability.SetupTracing(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	kb, err := knowledge.Load(cfg.Engine.KnowledgePath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.Engine.KnowledgePath).Msg("knowledge base unavailable, answers will decline")
		kb = knowledge.FromStrings(nil)
	} else {
		log.Info().Int("passages", kb.Len()).Str("path", cfg.Engine.KnowledgePath).Msg("knowledge base loaded")
	}

	chatModel, err := engine.NewChatModel(ctx, cfg.Engine, kb)
	if err != nil {
		return err
	}
	if cfg.Engine.UseArk() {
		log.Info().Str("model", cfg.Engine.ArkModel).Msg("using Ark chat model")
	} else {
		log.Info().Msg("Ark credentials not configured, using local knowledge model")
	}
	eng, err := engine.New(ctx, db, chatModel, engine.Options{
		Knowledge:    kb,
		Threshold:    cfg.Engine.Threshold,
		HistoryLimit: cfg.Engine.HistoryLimit,
	})
	if err != nil {
		return err
	}

	predictor := predict.NewClient(cfg.Predict.BackendURL, predict.WithTimeout(cfg.Predict.Timeout))

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	httpapi.RegisterRoutes(router, db, eng, predictor, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		t := time.NewTicker(purgeEvery)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-t.C:
				n, err := repo.PurgeExpiredIdempotency(gctx, db, now.UTC())
				if err != nil {
					log.Warn().Err(err).Msg("purge idempotency records")
					continue
				}
				if n > 0 {
					log.Debug().Int64("purged", n).Msg("expired idempotency records removed")
				}
			}
		}
	})
	return g.Wait()
}
