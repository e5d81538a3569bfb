// Command taskpilotd runs the task assistant HTTP service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sirupsen/logrus"

	"taskpilot/config"
	"taskpilot/engine"
	"taskpilot/history"
	redishistory "taskpilot/history/redis"
	"taskpilot/provider/anthropic"
	"taskpilot/server"
	"taskpilot/store"
	mongostore "taskpilot/store/mongo"
	pgstore "taskpilot/store/postgres"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(log)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	st, err := buildStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize store")
	}
	defer st.Close()

	saver, err := buildHistory(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize history")
	}

	api := anthropicsdk.NewClient(option.WithAPIKey(cfg.AnthropicAPIKey))
	client := anthropic.New(&api, cfg.Model, anthropic.WithMaxTokens(cfg.MaxTokens))

	eng := engine.NewEngine(client, st, saver)
	srv := server.New(eng, log)

	go func() {
		log.WithField("addr", cfg.ListenAddr()).Info("starting service")
		if err := srv.Start(cfg.ListenAddr()); err != nil {
			log.WithError(err).Info("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}

func buildStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (store.Store, error) {
	var backend store.Store
	var err error

	switch cfg.DatabaseType {
	case config.DatabasePostgres:
		log.Info("using postgres store")
		backend, err = pgstore.Open(ctx, cfg.PostgresDSN())
	case config.DatabaseMongo:
		log.Info("using mongo store")
		backend, err = mongostore.New(ctx, cfg.MongoURI, cfg.MongoDBName)
	default:
		log.Info("using in-memory store")
		backend = store.NewInMemory()
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheEnabled {
		log.Info("record cache enabled")
		return store.NewCached(backend)
	}
	return backend, nil
}

func buildHistory(ctx context.Context, cfg *config.Config, log *logrus.Logger) (history.Saver, error) {
	if cfg.HistoryType == config.HistoryRedis {
		log.Info("using redis history")
		return redishistory.New(ctx, redishistory.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.HistoryTTL,
		})
	}
	log.Info("using in-memory history")
	return history.NewInMemory(), nil
}
