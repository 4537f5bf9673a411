package services

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	servi "github.com/servimatch/go-servi"
	"github.com/servimatch/go-servi/models"
)

// RefreshPoller keeps one owner scope's cached request list approximately fresh by
// re-fetching the full list on a fixed tick and replacing the cached collection
// wholesale. A tick is skipped while the previous fetch is still in flight, never
// queued behind it. Cancelling the context stops the poller; a fetch that resolves
// after cancellation is discarded rather than applied to torn-down state.
type RefreshPoller struct {
	ownerScope    string
	backend       models.RequestBackend
	cache         *RequestCache
	history       models.HistoryRepository
	metricService models.MetricService
	logger        models.Logger
	tick          time.Duration
	fetching      int32
}

func NewRefreshPoller(
	ownerScope string,
	backend models.RequestBackend,
	cache *RequestCache,
	history models.HistoryRepository,
	metricService models.MetricService,
	logger models.Logger,
) *RefreshPoller {
	tick := models.DefaultPollTick
	if configTick, found := os.LookupEnv(servi.Env_PollTick); found {
		if parsedTick, err := time.ParseDuration(configTick); err == nil {
			tick = parsedTick
		}
	}
	return &RefreshPoller{
		ownerScope:    ownerScope,
		backend:       backend,
		cache:         cache,
		history:       history,
		metricService: metricService,
		logger:        logger,
		tick:          tick,
	}
}

func (p *RefreshPoller) Run(ctx context.Context) {
	p.logger.Infof("refresh: started for scope %s", p.ownerScope)
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.logger.Infof("refresh: stopped for scope %s", p.ownerScope)
			return
		case <-ticker.C:
			if !atomic.CompareAndSwapInt32(&p.fetching, 0, 1) {
				p.metricService.Count(ctx, models.MetricName_PollTickSkipped, 1)
				continue
			}
			go p.refresh(ctx)
		}
	}
}

func (p *RefreshPoller) refresh(ctx context.Context) {
	defer atomic.StoreInt32(&p.fetching, 0)

	p.metricService.Count(ctx, models.MetricName_PollTick, 1)
	requests, err := p.backend.ListRequests(ctx, p.ownerScope)
	if err != nil {
		p.logger.Errorf("refresh: error loading requests for scope %s: %v", p.ownerScope, err)
		return
	}
	if ctx.Err() != nil {
		// The owning screen is gone; applying this result would mutate torn-down
		// state.
		p.metricService.Count(context.Background(), models.MetricName_PollStaleDiscarded, 1)
		return
	}
	changes := p.cache.Replace(p.ownerScope, requests)
	for _, change := range changes {
		p.logger.Debugw("refresh: detected status change",
			"requestId", change.RequestId,
			"from", change.From.String(),
			"to", change.To.String(),
		)
		p.metricService.Count(ctx, models.MetricName_TransitionDetected, 1)
		if err = p.history.RecordTransition(ctx, change); err != nil {
			p.logger.Errorf("refresh: error recording transition for request %s: %v", change.RequestId, err)
		}
	}
}
