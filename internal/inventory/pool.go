package inventory

import (
	"context"
	"fmt"
)

type StatusRecord struct {
	InstanceID     string
	State          string
	InstanceStatus string
	SystemStatus   string
}

// RegionClient is one region's view of the instance inventory.
//
// InstanceStatuses returns the records whose instance status is ok; an id the
// region does not hold yields no records. InstanceByID reports false for the same case.
type RegionClient interface {
	Region() string
	ListInstances(ctx context.Context, filter Filter) ([]Instance, error)
	InstanceStatuses(ctx context.Context, instanceID string) ([]StatusRecord, error)
	InstanceByID(ctx context.Context, instanceID string) (Instance, bool, error)
}

// Pool is the fixed, ordered set of region clients built at startup.
type Pool struct {
	clients []RegionClient
}

func NewPool(clients ...RegionClient) (*Pool, error) {
	if len(clients) == 0 {
		return nil, ErrNoRegions
	}
	seen := map[string]bool{}
	out := make([]RegionClient, 0, len(clients))
	for _, client := range clients {
		if client == nil {
			return nil, fmt.Errorf("nil region client")
		}
		region := client.Region()
		if seen[region] {
			return nil, fmt.Errorf("duplicate region client for %s", region)
		}
		seen[region] = true
		out = append(out, client)
	}
	return &Pool{clients: out}, nil
}

func (p *Pool) Clients() []RegionClient {
	return append([]RegionClient(nil), p.clients...)
}

func (p *Pool) Regions() []string {
	regions := make([]string, 0, len(p.clients))
	for _, client := range p.clients {
		regions = append(regions, client.Region())
	}
	return regions
}

func (p *Pool) Len() int {
	return len(p.clients)
}
