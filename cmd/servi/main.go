package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	servi "github.com/servimatch/go-servi"
	"github.com/servimatch/go-servi/api"
	"github.com/servimatch/go-servi/common"
	"github.com/servimatch/go-servi/common/backend"
	"github.com/servimatch/go-servi/common/db"
	"github.com/servimatch/go-servi/common/loggers"
	"github.com/servimatch/go-servi/common/metrics"
	"github.com/servimatch/go-servi/common/notifs"
	"github.com/servimatch/go-servi/common/photos"
	"github.com/servimatch/go-servi/common/sessions"
	"github.com/servimatch/go-servi/models"
	"github.com/servimatch/go-servi/services"
)

func main() {
	envFile := "env/.env"
	if _, err := os.Stat(envFile); err == nil {
		if err = godotenv.Load(envFile); err != nil {
			log.Fatalf("error loading %s file: %v", envFile, err)
		}
	}

	logger := loggers.NewLogger()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricService, err := metrics.NewMetricService(ctx, logger)
	if err != nil {
		logger.Fatalf("error creating metric service: %v", err)
	}
	defer metricService.Shutdown(ctx)

	backendClient := backend.NewClient(os.Getenv(servi.Env_BackendUrl), logger, metricService)

	historyDb := db.NewHistoryDb(db.HistoryDbOpts{
		Host:     os.Getenv(common.Env_DbHost),
		Port:     os.Getenv(common.Env_DbPort),
		User:     os.Getenv(common.Env_DbUsername),
		Password: os.Getenv(common.Env_DbPassword),
		Name:     os.Getenv(common.Env_DbName),
	}, logger)

	sessionStore, err := sessions.NewRedisStore(os.Getenv(common.Env_RedisUrl), logger)
	if err != nil {
		logger.Fatalf("error creating session store: %v", err)
	}

	notifier, err := notifs.NewDiscordHandler(logger)
	if err != nil {
		logger.Fatalf("error creating notifier: %v", err)
	}

	photoStore, err := photos.NewCloudinaryStore(os.Getenv(common.Env_CloudinaryUrl), logger)
	if err != nil {
		logger.Fatalf("error creating photo store: %v", err)
	}

	cache := services.NewRequestCache()
	lifecycle := services.NewLifecycleService(backendClient, cache, historyDb, notifier, photoStore, metricService, logger)

	if err = metricService.Gauge(ctx, models.MetricName_PendingRequests, cache.PendingMonitor()); err != nil {
		logger.Fatalf("error registering pending gauge: %v", err)
	}

	// Pollers keep the cache fresh; the API serves UI surfaces from it.
	ownerScopes := strings.Split(os.Getenv(servi.Env_OwnerScopes), ",")
	wg := sync.WaitGroup{}
	for _, ownerScope := range ownerScopes {
		ownerScope = strings.TrimSpace(ownerScope)
		if len(ownerScope) == 0 {
			continue
		}
		wg.Add(1)
		poller := services.NewRefreshPoller(ownerScope, backendClient, cache, historyDb, metricService, logger)
		go func() {
			defer wg.Done()
			poller.Run(ctx)
		}()
	}

	if err = api.NewServer(lifecycle, cache, sessionStore, historyDb, logger).Run(ctx); err != nil {
		logger.Errorf("error running api server: %v", err)
	}
	wg.Wait()
}
