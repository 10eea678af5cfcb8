package inventory

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Collector gathers the instances matching one role from every region.
type Collector struct {
	pool        *Pool
	keys        TagKeys
	health      *HealthGate
	calls       *caller
	concurrency int
	log         logrus.FieldLogger
}

// Collect fails as a whole when any region fails; partial results are never returned.
// Regions run concurrently but the output is laid out in pool order.
func (c *Collector) Collect(ctx context.Context, mc MatchContext) ([]Instance, error) {
	clients := c.pool.Clients()
	filter := c.keys.CoarseFilter(mc.Application)
	perRegion := make([][]Instance, len(clients))

	g, gctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for idx, client := range clients {
		g.Go(func() error {
			var candidates []Instance
			err := c.calls.do(gctx, callInfo{region: client.Region(), op: OpListInstances, role: mc.Role}, func(ctx context.Context) (int, error) {
				var err error
				candidates, err = client.ListInstances(ctx, filter)
				return len(candidates), err
			})
			if err != nil {
				return err
			}
			matched, err := c.filter(gctx, candidates, mc)
			if err != nil {
				return err
			}
			perRegion[idx] = matched
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Instance
	for _, instances := range perRegion {
		out = append(out, instances...)
	}
	SortByName(out, c.keys.Name)
	c.log.WithFields(logrus.Fields{"role": mc.Role, "count": len(out)}).Debug("collected role")
	return out, nil
}

func (c *Collector) filter(ctx context.Context, candidates []Instance, mc MatchContext) ([]Instance, error) {
	matched := make([]Instance, 0, len(candidates))
	for _, inst := range candidates {
		if !c.keys.Matches(inst, mc) {
			continue
		}
		if mc.RequireHealthOK {
			ok, err := c.health.IsHealthy(ctx, inst)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, inst)
	}
	return matched, nil
}
