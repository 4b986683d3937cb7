package postgres

import (
	"strings"

	"github.com/prisma-monitor/indexer/db"
)

type basePostgresRepo struct {
	table string
	db    *db.DB
}

func newBasePostgresRepo(table string, db *db.DB) *basePostgresRepo {
	return &basePostgresRepo{
		table: table,
		db:    db,
	}
}

func normalizeAddress(addr string) string {
	return strings.ToLower(addr)
}
