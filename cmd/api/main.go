package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/presenter"
	"github.com/prisma-monitor/indexer/repository"
)

func main() {
	logger := logging.New()

	cfg, err := config.ReadConfigFromFile("config.yml")
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.Presenter == nil {
		logger.Fatal("presenter is not configured")
	}

	dbConn, err := db.NewDB(cfg.DBConfig)
	if err != nil {
		logger.WithError(err).Fatal("can't connect to database")
	}
	defer dbConn.Close()

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		err := http.ListenAndServe(":2112", nil) //nolint:gosec
		if err != nil {
			logger.WithError(err).Fatal("can't start listener for prometheus metrics")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := repository.NewRepo(dbConn)
	hub := presenter.NewHub(logger.WithField("service", "hub"), repo, cfg)
	if cfg.Redis != nil {
		redisClient, err2 := messaging.NewRedisClient(ctx, cfg.Redis, logger.WithField("service", "redis"))
		if err2 != nil {
			logger.WithError(err2).Fatal("can't connect to redis")
		}
		defer redisClient.Close()
		listener := messaging.NewListener(redisClient, logger.WithField("service", "listener"))
		hub.RegisterHandlers(listener)
		go listener.Run(ctx)
	} else {
		logger.Warn("redis is not configured, websocket clients only get snapshots")
	}

	pr := presenter.NewPresenter(logger.WithField("service", "presenter"), repo, cfg, hub)
	go func() {
		if err := pr.Serve(ctx, cfg.Presenter.Host); err != nil {
			logger.WithError(err).Fatal("can't serve presenter")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Warn("caught termination signal, gracefully terminating")
}
