package presenter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/entity"
	"github.com/prisma-monitor/indexer/logging"
	middleware2 "github.com/prisma-monitor/indexer/presenter/http/middleware"
	"github.com/prisma-monitor/indexer/presenter/http/render"
	"github.com/prisma-monitor/indexer/repository"
	"github.com/prisma-monitor/indexer/utils"
)

const (
	defaultTroveOrder = "last_update"
	maxWeeksInRange   = 520
)

// troveOrders lists the sort fields accepted by the troves listing.
var troveOrders = map[string]entity.TroveOrder{
	"collateral_usd":   entity.TroveOrderCollateralUSD,
	"debt":             entity.TroveOrderDebt,
	"collateral_ratio": entity.TroveOrderCollateralRatio,
	"last_update":      entity.TroveOrderUpdatedAt,
}

type Presenter struct {
	logger logging.Logger
	repo   *repository.Repo
	cfg    *config.Config
	hub    *Hub
	root   chi.Router
	now    func() time.Time
}

func NewPresenter(logger logging.Logger, repo *repository.Repo, cfg *config.Config, hub *Hub) *Presenter {
	p := &Presenter{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
		hub:    hub,
		root:   chi.NewMux(),
		now:    time.Now,
	}
	p.routes()
	return p
}

func (p *Presenter) routes() {
	p.root.Use(middleware.RequestID)
	p.root.Use(middleware2.NewLoggerMiddleware(p.logger))
	p.root.Use(middleware2.Recoverer)

	p.root.Get("/ws", p.hub.ServeHTTP)
	p.root.Group(func(r chi.Router) {
		r.Use(middleware.Throttle(5))
		r.Route("/chains/{chain}", func(r chi.Router) {
			r.Use(middleware2.GetChainConfigMiddleware(p.cfg))
			r.Get("/status", p.GetStatus)
			r.With(middleware2.GetTroveManagerMiddleware(p.repo), middleware2.GetPaginationMiddleware).
				Get("/managers/{manager:0x[0-9a-fA-F]{40}}/troves", p.GetTroves)
			r.Get("/incentives/{voter:0x[0-9a-fA-F]{40}}", p.GetIncentives)
		})
	})
}

func (p *Presenter) Handler() http.Handler {
	return p.root
}

// Serve listens on addr until ctx is cancelled.
func (p *Presenter) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: p.root, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			p.logger.WithError(err).Error("can't shut down presenter")
		}
	}()
	p.logger.WithField("addr", addr).Info("starting presenter service")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (p *Presenter) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chain := middleware2.ChainConfig(ctx)

	cursors, err := p.repo.Cursors.FindByChainID(ctx, chain.ChainID)
	if err != nil {
		render.Error(w, r, fmt.Errorf("can't find cursors: %w", err))
		return
	}
	render.JSON(w, r, http.StatusOK, &StatusResult{
		Chain:   chain.Name,
		ChainID: chain.ChainID,
		Cursors: cursors,
	})
}

func (p *Presenter) GetTroves(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	manager := middleware2.TroveManager(ctx)
	query := r.URL.Query()

	orderBy := query.Get("order_by")
	if orderBy == "" {
		orderBy = defaultTroveOrder
	}
	order, ok := troveOrders[orderBy]
	if !ok {
		render.Error(w, r, fmt.Errorf("unknown order_by %q: %w", orderBy, render.ErrBadRequest))
		return
	}
	var desc bool
	if raw := query.Get("desc"); raw != "" {
		var err error
		if desc, err = strconv.ParseBool(raw); err != nil {
			render.Error(w, r, fmt.Errorf("invalid desc %q: %w", raw, render.ErrBadRequest))
			return
		}
	}
	limit, offset := middleware2.Pagination(ctx)

	troves, err := p.repo.Troves.Find(ctx, &entity.TrovesFilter{
		ManagerID: manager.ID,
		OrderBy:   order,
		Desc:      desc,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		render.Error(w, r, fmt.Errorf("can't find troves: %w", err))
		return
	}
	res := &TrovesResult{
		Manager: manager.Address,
		OrderBy: orderBy,
		Desc:    desc,
		Troves:  make([]*TroveInfo, len(troves)),
	}
	for i, t := range troves {
		res.Troves[i] = troveToTroveInfo(t)
	}
	render.JSON(w, r, http.StatusOK, res)
}

func (p *Presenter) GetIncentives(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	chain := middleware2.ChainConfig(ctx)
	voter := utils.NormalizeAddress(chi.URLParam(r, "voter"))
	query := r.URL.Query()

	from, err := weekParam(query.Get("from"), 0)
	if err != nil {
		render.Error(w, r, err)
		return
	}
	to, err := weekParam(query.Get("to"), utils.Week(p.now(), chain.StartTime))
	if err != nil {
		render.Error(w, r, err)
		return
	}
	if from > to || to-from >= maxWeeksInRange {
		render.Error(w, r, fmt.Errorf("invalid week range [%d, %d]: %w", from, to, render.ErrBadRequest))
		return
	}

	seed, err := p.repo.IncentivePoints.LatestBefore(ctx, chain.ChainID, voter, from)
	if err != nil {
		render.Error(w, r, fmt.Errorf("can't find prior allocation: %w", err))
		return
	}
	rows, err := p.repo.IncentivePoints.FindByVoter(ctx, chain.ChainID, voter, from, to)
	if err != nil {
		render.Error(w, r, fmt.Errorf("can't find incentive points: %w", err))
		return
	}
	render.JSON(w, r, http.StatusOK, &IncentivesResult{
		Voter: voter,
		From:  from,
		To:    to,
		Weeks: ForwardFill(seed, rows, from, to),
	})
}

func weekParam(raw string, def int64) (int64, error) {
	if raw == "" {
		return def, nil
	}
	week, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || week < 0 {
		return 0, fmt.Errorf("invalid week %q: %w", raw, render.ErrBadRequest)
	}
	return week, nil
}
