package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/contract"
	"github.com/prisma-monitor/indexer/contract/abi"
	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/indexer/dao"
	"github.com/prisma-monitor/indexer/indexer/staking"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/repository"
	"github.com/prisma-monitor/indexer/scheduler"
	"github.com/prisma-monitor/indexer/subgraph"
)

func main() {
	logger := logging.New()

	cfg, err := config.ReadConfigFromFile("config.yml")
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger.SetLevel(cfg.LogLevel)

	dbConn, err := db.ConnectToDBAndMigrate(cfg.DBConfig)
	if err != nil {
		logger.WithError(err).Fatal("can't connect to database and apply migrations")
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

	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.Redis != nil {
		redisClient, err2 := messaging.NewRedisClient(ctx, cfg.Redis, logger.WithField("service", "redis"))
		if err2 != nil {
			logger.WithError(err2).Fatal("can't connect to redis")
		}
		defer redisClient.Close()
		publisher = messaging.NewRedisPublisher(redisClient, cfg.Publisher, logger.WithField("service", "publisher"))
	} else {
		logger.Warn("redis is not configured, live updates are disabled")
	}

	sources := make([]contract.ABISource, 0, 2)
	if cfg.Etherscan != nil {
		etherscan, err2 := contract.NewEtherscanSource(cfg.Etherscan, logger.WithField("service", "etherscan"))
		if err2 != nil {
			logger.WithError(err2).Fatal("can't create etherscan abi source")
		}
		sources = append(sources, etherscan)
	}
	sources = append(sources, contract.NewStaticSource(abi.PrismaCoreABI))
	decoder := contract.NewPayloadDecoder(logger.WithField("service", "decoder"), sources...)

	repo := repository.NewRepo(dbConn)
	registry := scheduler.NewRegistry()
	for _, name := range cfg.ChainNames() {
		chain := cfg.Chains[name]
		chainLogger := logger.WithField("chain", name)
		deps := &indexer.Deps{
			Chain:     chain,
			Client:    subgraph.NewClient(chain.Subgraph, cfg.Subgraph, chainLogger.WithField("service", "subgraph")),
			Repo:      repo,
			Publisher: publisher,
			Logger:    chainLogger,
		}
		if err = indexer.ValidateEnums(ctx, deps.Client, chainLogger, entity.Enums); err != nil {
			chainLogger.WithError(err).Fatal("subgraph schema does not match stored enums")
		}
		registerChainJobs(registry, deps, decoder, cfg)
	}

	queue := scheduler.NewQueue(ctx, logger.WithField("service", "queue"), registry, cfg.Scheduler)
	sched, err := scheduler.NewScheduler(logger.WithField("service", "scheduler"), registry, queue, cfg.Scheduler.Schedules)
	if err != nil {
		logger.WithError(err).Fatal("can't create scheduler")
	}
	sched.RunNow()
	sched.Start()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Warn("caught termination signal, gracefully terminating")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Minute)
	defer stopCancel()
	if err = sched.Stop(stopCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("jobs did not stop in time")
	}
}

func registerChainJobs(registry *scheduler.Registry, deps *indexer.Deps, decoder dao.PayloadDecoder, cfg *config.Config) {
	chain := deps.Chain
	register := func(domain string, fn scheduler.RunFunc) {
		if chain.HasDomain(domain) {
			registry.Register(chain.Name, domain, fn)
		}
	}

	chainSyncer := indexer.NewChainSyncer(deps)
	register(scheduler.DomainChain, chainSyncer.SyncChain)
	register(scheduler.DomainRevenue, chainSyncer.SyncRevenue)
	register(scheduler.DomainZaps, chainSyncer.SyncZaps)

	daoSyncer := dao.NewSyncer(deps, decoder)
	register(scheduler.DomainDAOOwnership, daoSyncer.SyncOwnership)
	register(scheduler.DomainDAOIncentives, daoSyncer.SyncIncentives)
	register(scheduler.DomainDAOBoost, daoSyncer.SyncBoost)
	register(scheduler.DomainDAOWeights, daoSyncer.SyncWeights)

	if chain.StakingSubgraph == "" {
		deps.Logger.Info("no staking subgraph configured, staking sync is disabled")
		return
	}
	stakingDeps := *deps
	stakingDeps.Client = subgraph.NewClient(chain.StakingSubgraph, cfg.Subgraph, deps.Logger.WithField("service", "staking_subgraph"))
	register(scheduler.DomainStaking, staking.NewSyncer(&stakingDeps).Sync)
}
