package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/logging"
)

const defaultRollbackTimeout = 30 * time.Second

// StreamRunner moves stream cursors: forward after a successful import, back
// to the prior value after a failed one.
type StreamRunner struct {
	*Deps
	rollbackTimeout time.Duration
}

func NewStreamRunner(deps *Deps) *StreamRunner {
	return &StreamRunner{Deps: deps, rollbackTimeout: defaultRollbackTimeout}
}

// RunStream imports [prev, remote) of one stream and reports whether the cursor advanced.
func (s *StreamRunner) RunStream(ctx context.Context, stream entity.Stream, ownerID interface{}, owner string, prev, remote uint64, importer Importer) (bool, error) {
	logger := s.Logger.WithFields(logrus.Fields{
		"chain":  s.Chain.Name,
		"stream": stream,
		"owner":  owner,
		"from":   prev,
		"to":     remote,
	})
	RemoteCount.WithLabelValues(s.Chain.Name, string(stream), owner).Set(float64(remote))
	if remote < prev {
		logger.Warn("remote count is below stored cursor, keeping cursor")
		return false, nil
	}
	if remote == prev {
		return false, nil
	}

	logger.Debug("importing stream")
	err := importer.ImportRange(ctx, prev, remote)
	if err == nil {
		err = s.Repo.Cursors.Write(ctx, stream, ownerID, remote)
	}
	if err != nil {
		StreamFailures.WithLabelValues(s.Chain.Name, string(stream)).Inc()
		logger.WithError(err).Error("stream import failed, resetting cursor")
		s.resetCursor(ctx, logger, stream, ownerID, prev)
		return false, fmt.Errorf("stream %s of %s: %w", stream, owner, err)
	}
	CursorValue.WithLabelValues(s.Chain.Name, string(stream), owner).Set(float64(remote))
	logger.Info("imported stream")
	return true, nil
}

// resetCursor writes the prior cursor back even when the pass context is already cancelled.
func (s *StreamRunner) resetCursor(ctx context.Context, logger logging.Logger, stream entity.Stream, ownerID interface{}, value uint64) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.rollbackTimeout)
	defer cancel()
	if err := s.Repo.Cursors.Write(ctx, stream, ownerID, value); err != nil {
		RollbackFailures.WithLabelValues(s.Chain.Name, string(stream)).Inc()
		logger.WithError(err).Error("can't reset stream cursor, manual reset required")
	}
}
