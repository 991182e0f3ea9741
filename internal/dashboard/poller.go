package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"vilapos/m/domain"
	"vilapos/m/internal/logging"
)

// Poller re-issues the dashboard queries on a fixed interval and hands each
// snapshot to a consumer. Ticks for a shop whose previous refresh is still
// running join it through the Refresher.
type Poller struct {
	sched     *cron.Cron
	refresher *Refresher
	interval  time.Duration
	log       *zap.Logger
}

func NewPoller(r *Refresher, interval time.Duration, loc *time.Location, logger *zap.Logger) *Poller {
	if loc == nil {
		loc = time.Local
	}
	return &Poller{
		sched:     cron.New(cron.WithLocation(loc)),
		refresher: r,
		interval:  interval,
		log:       logging.OrNop(logger).Named("poller"),
	}
}

// Watch schedules a refresh of shopID every interval.
func (p *Poller) Watch(shopID string, consume func(domain.DashboardMetrics)) (cron.EntryID, error) {
	if p.interval <= 0 {
		return 0, fmt.Errorf("%w: refresh interval must be positive", domain.ErrInvalid)
	}
	return p.sched.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		defer func() {
			if err := recover(); err != nil {
				p.log.Error("dashboard refresh panicked", zap.Any("panic", err))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), p.interval)
		defer cancel()

		m, shared, err := p.refresher.Refresh(ctx, shopID)
		if err != nil {
			p.log.Warn("dashboard refresh failed", zap.String("shop", shopID), zap.Error(err))
			return
		}
		p.log.Debug("dashboard refreshed", zap.String("shop", shopID), zap.Bool("shared", shared))
		consume(m)
	})
}

// Unwatch removes a scheduled refresh.
func (p *Poller) Unwatch(id cron.EntryID) {
	p.sched.Remove(id)
}

func (p *Poller) Start() {
	p.sched.Start()
}

// Stop halts scheduling and returns a context that is done once running
// refreshes have finished.
func (p *Poller) Stop() context.Context {
	return p.sched.Stop()
}
