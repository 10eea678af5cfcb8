package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/sirupsen/logrus"

	"ec2roles/internal/audit"
	awslib "ec2roles/internal/aws"
	awsec2 "ec2roles/internal/aws/ec2"
	"ec2roles/internal/config"
	"ec2roles/internal/inventory"
	"ec2roles/internal/redact"
	"ec2roles/internal/render"
)

const envConfig = "EC2ROLES_CONFIG"

// ErrInstanceNotFound is returned by Instance when no region holds the id.
var ErrInstanceNotFound = errors.New("instance not found")

var (
	loadAWSConfig   = awslib.LoadConfig
	newRegionClient = func(cfg sdkaws.Config) inventory.RegionClient {
		return awsec2.NewFromConfig(cfg)
	}
	newIdentityClient = func(cfg sdkaws.Config) awslib.CallerIdentityAPI {
		return sts.NewFromConfig(cfg)
	}
)

type Options struct {
	ConfigPath string
	ConfigDir  string
	Overrides  config.Overrides
	Output     string
	Version    string
	Stdout     io.Writer
	Stderr     io.Writer
}

// App is one configured CLI invocation.
type App struct {
	cfg      config.Config
	handler  *inventory.Handler
	awsCfg   sdkaws.Config
	renderer *render.Renderer
	log      *logrus.Logger
	closers  []io.Closer
}

func Open(ctx context.Context, opts Options) (*App, error) {
	errOut := opts.Stderr
	if errOut == nil {
		errOut = os.Stderr
	}
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	cfg, err := LoadConfig(opts.ConfigPath, opts.ConfigDir, opts.Overrides)
	if err != nil {
		return nil, err
	}
	format, err := render.ParseFormat(opts.Output)
	if err != nil {
		return nil, &config.ConfigError{Field: "output", Reason: err.Error()}
	}
	logger, err := NewLogger(cfg.LogLevel, errOut)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: logger}
	auditLog, err := a.openAudit()
	if err != nil {
		return nil, err
	}
	handler, awsCfg, err := BuildHandler(ctx, cfg, logger, auditLog)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init failed: %w", err)
	}
	a.handler = handler
	a.awsCfg = awsCfg
	a.renderer = render.NewRenderer(out, format, handler.Keys(), cfg.ContactPoint)
	logger.WithFields(logrus.Fields{
		"version": opts.Version,
		"regions": handler.Regions(),
		"roles":   handler.Roles(),
	}).Debug("ec2roles ready")
	return a, nil
}

// LoadConfig resolves the config path, fills the region from the environment
// when unset and validates the result.
func LoadConfig(path, dir string, overrides config.Overrides) (config.Config, error) {
	if path == "" {
		path = os.Getenv(envConfig)
	}
	cfg, err := config.Load(path, dir, overrides)
	if err != nil {
		return cfg, fmt.Errorf("config load failed: %w", err)
	}
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = awslib.ResolveRegion("")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func NewLogger(level string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.Out = out
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, &config.ConfigError{Field: "log_level", Reason: err.Error()}
	}
	logger.SetLevel(parsed)
	return logger, nil
}

// BuildHandler loads SDK configuration once and shares its credentials across
// one EC2 client per configured region.
func BuildHandler(ctx context.Context, cfg config.Config, logger logrus.FieldLogger, auditLog *audit.Logger) (*inventory.Handler, sdkaws.Config, error) {
	regions := cfg.Regions()
	if len(regions) == 0 {
		return nil, sdkaws.Config{}, inventory.ErrNoRegions
	}
	base, err := loadAWSConfig(ctx, regions[0], awslib.Credentials{
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		RoleARN:         cfg.RoleARN,
	})
	if err != nil {
		return nil, sdkaws.Config{}, err
	}
	clients := make([]inventory.RegionClient, 0, len(regions))
	for _, region := range regions {
		regional := base.Copy()
		regional.Region = region
		clients = append(clients, newRegionClient(regional))
	}
	pool, err := inventory.NewPool(clients...)
	if err != nil {
		return nil, sdkaws.Config{}, err
	}
	handler, err := inventory.NewHandler(pool, inventory.Options{
		Stage:            cfg.Stage,
		Application:      cfg.Application,
		FilterByStatusOK: cfg.FilterByStatusOK,
		Keys: inventory.TagKeys{
			Roles:     cfg.Tags.Roles,
			Stages:    cfg.Tags.Stages,
			Project:   cfg.Tags.Project,
			Name:      cfg.Tags.Name,
			Delimiter: cfg.Tags.Delimiter,
		},
		RoleGroups:  cfg.Roles,
		Timeout:     cfg.QueryTimeout(),
		Concurrency: cfg.Query.Concurrency,
		Logger:      logger,
		Audit:       auditLog,
	})
	if err != nil {
		return nil, sdkaws.Config{}, err
	}
	return handler, base, nil
}

func (a *App) openAudit() (*audit.Logger, error) {
	path := strings.TrimSpace(a.cfg.AuditLog)
	if path == "" {
		return audit.NewLogger(nil), nil
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	a.closers = append(a.closers, file)
	return audit.NewLogger(file), nil
}

func (a *App) Close() error {
	var errs []error
	for _, closer := range a.closers {
		errs = append(errs, closer.Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) Handler() *inventory.Handler {
	return a.handler
}

func (a *App) Status(ctx context.Context) error {
	instances, err := a.handler.StatusTable(ctx)
	if err != nil {
		return err
	}
	return a.renderer.Instances(instances)
}

func (a *App) Names(ctx context.Context) error {
	names, err := a.handler.NamesForAllRoles(ctx)
	if err != nil {
		return err
	}
	return a.renderer.Values(names)
}

func (a *App) IDs(ctx context.Context) error {
	ids, err := a.handler.IDsForAllRoles(ctx)
	if err != nil {
		return err
	}
	return a.renderer.Values(ids)
}

func (a *App) Role(ctx context.Context, role string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return &config.ConfigError{Field: "role", Reason: "required"}
	}
	instances, err := a.handler.InstancesForRole(ctx, role)
	if err != nil {
		return err
	}
	return a.renderer.Instances(instances)
}

func (a *App) Instance(ctx context.Context, id string) error {
	inst, found, err := a.handler.GetInstance(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrInstanceNotFound, strings.TrimSpace(id))
	}
	return a.renderer.Instances([]inventory.Instance{inst})
}

func (a *App) Identity(ctx context.Context) error {
	identity, err := awslib.CallerIdentity(ctx, newIdentityClient(a.awsCfg), a.awsCfg.Region)
	if err != nil {
		return fmt.Errorf("caller identity: %w", err)
	}
	return a.renderer.JSON(identity)
}

// Config writes the effective configuration with credentials masked.
func (a *App) Config() error {
	return a.renderer.JSON(RedactedConfig(a.cfg))
}

func RedactedConfig(cfg config.Config) map[string]any {
	redactor := redact.New()
	return redactor.RedactMap(map[string]any{
		"region":              cfg.Regions(),
		"role_arn":            cfg.RoleARN,
		"access_key_id":       cfg.AccessKeyID,
		"secret_access_key":   cfg.SecretAccessKey,
		"stage":               cfg.Stage,
		"application":         cfg.Application,
		"filter_by_status_ok": cfg.FilterByStatusOK,
		"contact_point":       cfg.ContactPoint,
		"log_level":           cfg.LogLevel,
		"audit_log":           cfg.AuditLog,
		"tags": map[string]any{
			"roles":     cfg.Tags.Roles,
			"stages":    cfg.Tags.Stages,
			"project":   cfg.Tags.Project,
			"name":      cfg.Tags.Name,
			"delimiter": cfg.Tags.Delimiter,
		},
		"roles": cfg.Roles,
		"query": map[string]any{
			"timeout_seconds": cfg.Query.TimeoutSeconds,
			"concurrency":     cfg.Query.Concurrency,
		},
	})
}
