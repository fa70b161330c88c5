package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"primerjalnik/server/config"
	"primerjalnik/server/internal/api"
	"primerjalnik/server/internal/catalog"
	"primerjalnik/server/internal/handoff"
	"primerjalnik/server/internal/prefs"
	"primerjalnik/server/internal/recommend"
	"primerjalnik/server/internal/scheduler"
	"primerjalnik/server/internal/session"
	"primerjalnik/server/internal/snapshot"
	"primerjalnik/server/internal/store"
	"primerjalnik/server/internal/watchlist"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		logger.WithError(err).Fatal("Failed to create database directory")
	}
	logger.Infof("Using database at: %s", cfg.DatabasePath)

	local, err := store.Open(cfg.DatabasePath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open local store")
	}

	catalogClient := catalog.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, logger)
	sessions := session.NewManager(cfg.BackendBaseURL, cfg.BackendTimeout, logger)
	prefsStore := prefs.NewStore(cfg.BackendBaseURL, cfg.BackendTimeout, logger)
	watchlistStore := watchlist.NewStore(local, logger)
	handoffChannel := handoff.NewChannel(local)

	queue := snapshot.NewListingQueue(cfg.Snapshot.QueueSize, logger)
	writer, err := snapshot.NewWriter(local.DB(), queue, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize snapshot writer")
	}
	writer.Start()
	defer writer.Stop()
	defer queue.Close()

	recommender := recommend.New(catalogClient, writer, logger)

	retention := time.Duration(cfg.Snapshot.RetentionDays) * 24 * time.Hour
	jobs := scheduler.NewScheduler(catalogClient, writer, retention, logger)
	jobs.Start()
	defer jobs.Stop()

	handler := api.NewHandler(catalogClient, sessions, watchlistStore, prefsStore, recommender, handoffChannel, queue, logger)

	router := gin.Default()
	api.SetupRoutes(router, handler, cfg)

	logger.Infof("Starting server on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
