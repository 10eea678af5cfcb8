package sdk

import (
	"context"

	"github.com/sirupsen/logrus"

	"ec2roles/internal/audit"
	"ec2roles/internal/config"
	"ec2roles/internal/inventory"
	"ec2roles/pkg/app"
)

// Inventory types.
type Instance = inventory.Instance

type Tag = inventory.Tag

type TagKeys = inventory.TagKeys

type MatchContext = inventory.MatchContext

type Filter = inventory.Filter

type StatusRecord = inventory.StatusRecord

type RegionClient = inventory.RegionClient

type Handler = inventory.Handler

type Options = inventory.Options

// Errors.
type QueryError = inventory.QueryError

type ConfigError = config.ConfigError

type Kind = inventory.Kind

const (
	KindConfiguration = inventory.KindConfiguration
	KindQuery         = inventory.KindQuery
	KindTimeout       = inventory.KindTimeout
)

var ErrNoRegions = inventory.ErrNoRegions

func IsTimeout(err error) bool {
	return inventory.IsTimeout(err)
}

func IsQueryFailure(err error) bool {
	return inventory.IsQueryFailure(err)
}

func RegionOf(err error) (string, bool) {
	return inventory.RegionOf(err)
}

func KindOf(err error) Kind {
	return inventory.KindOf(err)
}

// Configuration.
type Config = config.Config

type Overrides = config.Overrides

func LoadConfig(path, dir string, overrides Overrides) (Config, error) {
	return app.LoadConfig(path, dir, overrides)
}

// Open builds a handler backed by EC2 in every configured region.
func Open(ctx context.Context, cfg Config, logger logrus.FieldLogger) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	handler, _, err := app.BuildHandler(ctx, cfg, logger, audit.NewLogger(nil))
	return handler, err
}

// NewHandler builds a handler over caller-supplied region clients.
func NewHandler(clients []RegionClient, opts Options) (*Handler, error) {
	pool, err := inventory.NewPool(clients...)
	if err != nil {
		return nil, err
	}
	return inventory.NewHandler(pool, opts)
}

func HasTag(inst Instance, key, expected string) bool {
	return inventory.HasTag(inst, key, expected)
}

func NewInstance(id string, tags []Tag) Instance {
	return inventory.NewInstance(id, tags)
}
