package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/messaging"
	"github.com/prisma-monitor/indexer/presenter/http/render"
	"github.com/prisma-monitor/indexer/repository"
	"github.com/prisma-monitor/indexer/utils"
)

type ctxKey int

const (
	chainCfgCtxKey ctxKey = iota
	managerCtxKey
	paginationCtxKey
)

// maxPageNumber keeps offsets within int64 range.
const maxPageNumber = 1 << 32

func GetChainConfigMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			chainCfg, err := cfg.ChainByName(chi.URLParam(r, "chain"))
			if err != nil {
				render.Error(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), chainCfgCtxKey, chainCfg)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ChainConfig(ctx context.Context) *config.ChainConfig {
	if cfg, ok := ctx.Value(chainCfgCtxKey).(*config.ChainConfig); ok {
		return cfg
	}
	return new(config.ChainConfig)
}

// GetTroveManagerMiddleware resolves the {manager} address of the chain in context.
func GetTroveManagerMiddleware(repo *repository.Repo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			address := utils.NormalizeAddress(chi.URLParam(r, "manager"))
			manager, err := repo.TroveManagers.GetByChainIDAndAddress(r.Context(), ChainConfig(r.Context()).ChainID, address)
			if err != nil {
				render.Error(w, r, fmt.Errorf("trove manager %s: %w", address, err))
				return
			}
			ctx := context.WithValue(r.Context(), managerCtxKey, manager)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TroveManager(ctx context.Context) *entity.TroveManager {
	if m, ok := ctx.Value(managerCtxKey).(*entity.TroveManager); ok {
		return m
	}
	return new(entity.TroveManager)
}

func GetPaginationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		pagination := new(messaging.Pagination)
		for param, dst := range map[string]*uint64{"page": &pagination.Page, "items": &pagination.Items} {
			raw := query.Get(param)
			if raw == "" {
				continue
			}
			v, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || v > maxPageNumber {
				render.Error(w, r, fmt.Errorf("invalid %s parameter %q: %w", param, raw, render.ErrBadRequest))
				return
			}
			*dst = v
		}
		ctx := context.WithValue(r.Context(), paginationCtxKey, pagination)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Pagination returns the requested page and page size with defaults applied.
func Pagination(ctx context.Context) (limit, offset uint64) {
	p, _ := ctx.Value(paginationCtxKey).(*messaging.Pagination)
	page, items := p.Normalize()
	return items, (page - 1) * items
}
