package indexer

import (
	"context"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/repository"
	"github.com/prisma-monitor/indexer/subgraph"
)

// Deps are the collaborators shared by the importers of one chain.
type Deps struct {
	Chain     *config.ChainConfig
	Client    subgraph.Client
	Repo      *repository.Repo
	Publisher messaging.Publisher
	Logger    logging.Logger
}

// publish sends a live update. Failures never abort an import.
func (d *Deps) publish(ctx context.Context, channel string, payload interface{}) {
	if err := d.Publisher.Publish(ctx, channel, payload); err != nil {
		d.Logger.WithError(err).WithField("channel", channel).Warn("can't publish live update")
	}
}

func (d *Deps) imported(stream string, n int) {
	ImportedItems.WithLabelValues(d.Chain.Name, stream).Add(float64(n))
}
