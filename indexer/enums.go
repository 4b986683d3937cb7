package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/subgraph"
)

// ValidateEnums checks every enum table locally and against the remote schema.
// Types the schema does not expose as enums are only checked locally.
func ValidateEnums(ctx context.Context, client subgraph.Client, logger logging.Logger, tables []entity.EnumValidator) error {
	for _, table := range tables {
		if err := table.Validate(); err != nil {
			return fmt.Errorf("invalid enum table: %w", err)
		}
		values, err := subgraph.Introspect(ctx, client, table.GraphQLType())
		if errors.Is(err, subgraph.ErrNotEnum) {
			logger.WithField("type", table.GraphQLType()).Debug("remote schema has no such enum, skipping remote check")
			continue
		}
		if err != nil {
			return err
		}
		if err = table.ValidateRemote(values); err != nil {
			return err
		}
	}
	return nil
}
