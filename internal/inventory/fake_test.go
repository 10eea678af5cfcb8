package inventory

import (
	"context"
	"sync"
)

type fakeRegion struct {
	region    string
	instances []Instance
	healthy   map[string]bool
	listErr   error
	statusErr error
	block     bool

	mu          sync.Mutex
	listCalls   int
	statusCalls int
	lookupCalls int
	filters     []Filter
}

func (f *fakeRegion) Region() string {
	return f.region
}

func (f *fakeRegion) ListInstances(ctx context.Context, filter Filter) ([]Instance, error) {
	f.mu.Lock()
	f.listCalls++
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]Instance(nil), f.instances...), nil
}

func (f *fakeRegion) InstanceStatuses(ctx context.Context, instanceID string) ([]StatusRecord, error) {
	f.mu.Lock()
	f.statusCalls++
	f.mu.Unlock()
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if f.healthy[instanceID] {
		return []StatusRecord{{InstanceID: instanceID, InstanceStatus: "ok", SystemStatus: "ok", State: StateRunning}}, nil
	}
	return nil, nil
}

func (f *fakeRegion) InstanceByID(ctx context.Context, instanceID string) (Instance, bool, error) {
	f.mu.Lock()
	f.lookupCalls++
	f.mu.Unlock()
	for _, inst := range f.instances {
		if inst.ID == instanceID {
			return inst, true, nil
		}
	}
	return Instance{}, false, nil
}

func tagged(id, name, roles, stages, project string) Instance {
	var tags []Tag
	if name != "" {
		tags = append(tags, Tag{Key: "Name", Value: name})
	}
	tags = append(tags,
		Tag{Key: "Roles", Value: roles},
		Tag{Key: "Stages", Value: stages},
		Tag{Key: "Project", Value: project},
	)
	inst := NewInstance(id, tags)
	inst.State = StateRunning
	return inst
}
