package inventory

import "context"

// HealthGate checks provider-reported instance health across every region.
type HealthGate struct {
	pool  *Pool
	calls *caller
}

// IsHealthy asks each region in order and stops at the first one reporting
// exactly one ok record for the instance.
func (g *HealthGate) IsHealthy(ctx context.Context, inst Instance) (bool, error) {
	for _, client := range g.pool.Clients() {
		var records []StatusRecord
		err := g.calls.do(ctx, callInfo{region: client.Region(), op: OpInstanceStatus, instanceID: inst.ID}, func(ctx context.Context) (int, error) {
			var err error
			records, err = client.InstanceStatuses(ctx, inst.ID)
			return len(records), err
		})
		if err != nil {
			return false, err
		}
		if len(records) == 1 {
			return true, nil
		}
	}
	return false, nil
}
