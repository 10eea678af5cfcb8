package inventory

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"ec2roles/internal/audit"
)

type Options struct {
	Stage            string
	Application      string
	FilterByStatusOK bool
	Keys             TagKeys
	RoleGroups       map[string][]string
	Timeout          time.Duration
	Concurrency      int
	Logger           logrus.FieldLogger
	Audit            *audit.Logger
}

// Handler answers which instances serve the deployment's roles.
type Handler struct {
	pool      *Pool
	keys      TagKeys
	stage     string
	app       string
	healthOK  bool
	roles     []string
	calls     *caller
	collector *Collector
	log       logrus.FieldLogger
}

func NewHandler(pool *Pool, opts Options) (*Handler, error) {
	if pool == nil || pool.Len() == 0 {
		return nil, ErrNoRegions
	}
	keys := opts.Keys
	if keys == (TagKeys{}) {
		keys = DefaultTagKeys()
	}
	if keys.Delimiter == "" {
		keys.Delimiter = DefaultDelimiter
	}
	logger := opts.Logger
	if logger == nil {
		discard := logrus.New()
		discard.Out = io.Discard
		logger = discard
	}
	auditLog := opts.Audit
	if auditLog == nil {
		auditLog = audit.NewLogger(nil)
	}
	calls := &caller{timeout: opts.Timeout, audit: auditLog, log: logger}
	health := &HealthGate{pool: pool, calls: calls}
	return &Handler{
		pool:     pool,
		keys:     keys,
		stage:    strings.TrimSpace(opts.Stage),
		app:      strings.TrimSpace(opts.Application),
		healthOK: opts.FilterByStatusOK,
		roles:    ResolveRoles(opts.RoleGroups),
		calls:    calls,
		collector: &Collector{
			pool:        pool,
			keys:        keys,
			health:      health,
			calls:       calls,
			concurrency: opts.Concurrency,
			log:         logger,
		},
		log: logger,
	}, nil
}

func (h *Handler) Roles() []string {
	return append([]string(nil), h.roles...)
}

func (h *Handler) Keys() TagKeys {
	return h.keys
}

func (h *Handler) Regions() []string {
	return h.pool.Regions()
}

func (h *Handler) matchContext(role string) MatchContext {
	return MatchContext{
		Role:            strings.TrimSpace(role),
		Stage:           h.stage,
		Application:     h.app,
		RequireHealthOK: h.healthOK,
	}
}

func (h *Handler) InstancesForRole(ctx context.Context, role string) ([]Instance, error) {
	return h.collector.Collect(ctx, h.matchContext(role))
}

// StatusTable returns every distinct instance serving any resolved role.
func (h *Handler) StatusTable(ctx context.Context) ([]Instance, error) {
	perRole := make([][]Instance, 0, len(h.roles))
	for _, role := range h.roles {
		instances, err := h.InstancesForRole(ctx, role)
		if err != nil {
			return nil, err
		}
		perRole = append(perRole, instances)
	}
	merged := Merge(perRole, h.keys.Name)
	h.log.WithFields(logrus.Fields{"roles": len(h.roles), "instances": len(merged)}).Debug("status table")
	return merged, nil
}

func (h *Handler) NamesForAllRoles(ctx context.Context) ([]string, error) {
	instances, err := h.StatusTable(ctx)
	if err != nil {
		return nil, err
	}
	return Names(instances, h.keys.Name), nil
}

func (h *Handler) IDsForAllRoles(ctx context.Context) ([]string, error) {
	instances, err := h.StatusTable(ctx)
	if err != nil {
		return nil, err
	}
	return IDs(instances), nil
}

// GetInstance returns the first region's match for id without asking later regions.
// Not holding the id is not an error: found is false once every region is exhausted.
func (h *Handler) GetInstance(ctx context.Context, id string) (Instance, bool, error) {
	id = strings.TrimSpace(id)
	for _, client := range h.pool.Clients() {
		var (
			inst  Instance
			found bool
		)
		err := h.calls.do(ctx, callInfo{region: client.Region(), op: OpGetInstance, instanceID: id}, func(ctx context.Context) (int, error) {
			var err error
			inst, found, err = client.InstanceByID(ctx, id)
			if found {
				return 1, err
			}
			return 0, err
		})
		if err != nil {
			return Instance{}, false, err
		}
		if found {
			return inst, true, nil
		}
	}
	return Instance{}, false, nil
}
