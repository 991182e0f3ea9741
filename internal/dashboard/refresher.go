package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"vilapos/m/domain"
)

// computeTimeout bounds a shared computation once it no longer follows the
// caller that started it.
const computeTimeout = 30 * time.Second

// Computer produces a dashboard snapshot. *Service implements it.
type Computer interface {
	Compute(ctx context.Context, shopID string) (domain.DashboardMetrics, error)
}

// Refresher guards against overlapping fetches: callers asking for a shop
// whose snapshot is already being computed wait for that result instead of
// starting another one.
type Refresher struct {
	computer Computer
	group    singleflight.Group
}

func NewRefresher(c Computer) *Refresher {
	return &Refresher{computer: c}
}

// Refresh returns a fresh snapshot. shared is true when the result came from
// a computation started by another caller.
//
// The computation runs detached from the caller that started it, so a
// cancelled caller does not fail the others waiting on the same shop. Each
// caller still stops waiting when its own ctx is done.
func (r *Refresher) Refresh(ctx context.Context, shopID string) (m domain.DashboardMetrics, shared bool, err error) {
	ch := r.group.DoChan(shopID, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()
		return r.computer.Compute(cctx, shopID)
	})
	select {
	case <-ctx.Done():
		return domain.DashboardMetrics{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.DashboardMetrics{}, res.Shared, res.Err
		}
		return res.Val.(domain.DashboardMetrics), res.Shared, nil
	}
}
