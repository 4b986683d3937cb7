package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/db"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/indexer"
	"github.com/prisma-monitor/indexer/indexer/staking"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/repository"
	"github.com/prisma-monitor/indexer/repository/memory"
	"github.com/prisma-monitor/indexer/subgraph"
)

type reimportOpts struct {
	config string
	chain  string
	stream string
	owner  string
	from   uint64
	to     uint64
	dryRun bool
}

var reimportFlags reimportOpts

func main() {
	logger := logging.New()

	app := &cli.App{
		Name:  "reimport",
		Usage: "Re-import a range of a stream without touching its cursor.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Usage:       "Path of the config file.",
				EnvVars:     []string{"INDEXER_CONFIG"},
				Value:       "config.yml",
				Destination: &reimportFlags.config,
			},
			&cli.StringFlag{
				Name:        "chain",
				Usage:       "Configured chain name.",
				Required:    true,
				Destination: &reimportFlags.chain,
			},
			&cli.StringFlag{
				Name:        "stream",
				Usage:       fmt.Sprintf("Stream to re-import, one of %v.", entity.Streams()),
				Required:    true,
				Destination: &reimportFlags.stream,
			},
			&cli.StringFlag{
				Name:        "owner",
				Usage:       "Address of the trove manager or staking contract owning the stream.",
				Destination: &reimportFlags.owner,
			},
			&cli.Uint64Flag{
				Name:        "from",
				Usage:       "First stream index, inclusive.",
				Destination: &reimportFlags.from,
			},
			&cli.Uint64Flag{
				Name:        "to",
				Usage:       "Last stream index, exclusive.",
				Required:    true,
				Destination: &reimportFlags.to,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Import into an in-memory store and report row counts.",
				Destination: &reimportFlags.dryRun,
			},
		},
		Action: func(cctx *cli.Context) error {
			return reimport(cctx.Context, logger)
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logger.Warn("caught termination signal, gracefully terminating")
		cancel()
	}()

	if err := app.RunContext(ctx, os.Args); err != nil {
		logger.WithError(err).Fatal("reimport failed")
	}
}

func reimport(ctx context.Context, logger logging.Logger) error {
	opts := reimportFlags
	if opts.from >= opts.to {
		return fmt.Errorf("empty range [%d, %d)", opts.from, opts.to)
	}
	stream := entity.Stream(opts.stream)
	if _, err := stream.Column(); err != nil {
		return err
	}

	cfg, err := config.ReadConfigFromFile(opts.config)
	if err != nil {
		return fmt.Errorf("can't read config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)
	chain, err := cfg.ChainByName(opts.chain)
	if err != nil {
		return err
	}

	endpoint := chain.Subgraph
	if staking.IsStakingStream(stream) {
		if chain.StakingSubgraph == "" {
			return fmt.Errorf("chain %s has no staking subgraph", chain.Name)
		}
		endpoint = chain.StakingSubgraph
	}

	logger = logger.WithFields(logrus.Fields{
		"chain":  chain.Name,
		"stream": stream,
		"owner":  opts.owner,
		"from":   opts.from,
		"to":     opts.to,
	})
	deps := &indexer.Deps{
		Chain:     chain,
		Client:    subgraph.NewClient(endpoint, cfg.Subgraph, logger.WithField("service", "subgraph")),
		Publisher: messaging.NopPublisher{},
		Logger:    logger,
	}

	var store *memory.Store
	if opts.dryRun {
		deps.Repo, store = memory.NewRepo()
		if err = seed(ctx, deps, stream); err != nil {
			return err
		}
	} else {
		dbConn, err2 := db.NewDB(cfg.DBConfig)
		if err2 != nil {
			return fmt.Errorf("can't connect to database: %w", err2)
		}
		defer dbConn.Close()
		deps.Repo = repository.NewRepo(dbConn)
	}

	var importer indexer.Importer
	if staking.IsStakingStream(stream) {
		importer, err = staking.NewStreamImporter(deps, stream, opts.owner)
	} else {
		importer, err = indexer.NewStreamImporter(ctx, deps, stream, opts.owner)
	}
	if err != nil {
		return err
	}

	logger.Info("re-importing stream range")
	if err = importer.ImportRange(ctx, opts.from, opts.to); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("re-import interrupted")
		}
		return err
	}

	if store != nil {
		printCounts(store.Counts())
	}
	logger.Info("re-import finished")
	return nil
}

// seed fills an empty in-memory store with the parent rows the stream importers look up.
func seed(ctx context.Context, deps *indexer.Deps, stream entity.Stream) error {
	if err := deps.Repo.Chains.Ensure(ctx, &entity.Chain{ID: deps.Chain.ChainID, Name: deps.Chain.Name}); err != nil {
		return err
	}
	if staking.IsStakingStream(stream) {
		_, err := staking.NewContractsImporter(deps).Import(ctx)
		return err
	}
	_, err := indexer.NewBaseEntitiesImporter(deps).Import(ctx)
	return err
}

func printCounts(counts map[string]int) {
	names := make([]string, 0, len(counts))
	for name, n := range counts {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"table", "rows"})
	for _, name := range names {
		t.AppendRow(table.Row{name, counts[name]})
	}
	t.Render()
}
