package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	ContactPublicDNS  = "public_dns"
	ContactPublicIP   = "public_ip"
	ContactPrivateIP  = "private_ip"
	ContactPrivateDNS = "private_dns"
)

type Config struct {
	Region           string              `toml:"region"`
	RoleARN          string              `toml:"role_arn"`
	AccessKeyID      string              `toml:"access_key_id"`
	SecretAccessKey  string              `toml:"secret_access_key"`
	Stage            string              `toml:"stage"`
	Application      string              `toml:"application"`
	FilterByStatusOK bool                `toml:"filter_by_status_ok"`
	ContactPoint     string              `toml:"contact_point"`
	LogLevel         string              `toml:"log_level"`
	AuditLog         string              `toml:"audit_log"`
	Tags             TagConfig           `toml:"tags"`
	Roles            map[string][]string `toml:"roles"`
	Query            QueryConfig         `toml:"query"`
}

type TagConfig struct {
	Roles     string `toml:"roles"`
	Stages    string `toml:"stages"`
	Project   string `toml:"project"`
	Name      string `toml:"name"`
	Delimiter string `toml:"delimiter"`
}

type QueryConfig struct {
	TimeoutSeconds int `toml:"timeout_seconds"`
	Concurrency    int `toml:"concurrency"`
}

type Overrides struct {
	Region           *string
	RoleARN          *string
	Stage            *string
	Application      *string
	FilterByStatusOK *bool
	ContactPoint     *string
	LogLevel         *string
}

// ConfigError reports a missing or conflicting setting. It is never retried.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) IsConfiguration() bool {
	return true
}

func DefaultConfig() Config {
	return Config{
		ContactPoint: ContactPublicDNS,
		LogLevel:     "info",
		Tags: TagConfig{
			Roles:     "Roles",
			Stages:    "Stages",
			Project:   "Project",
			Name:      "Name",
			Delimiter: ",",
		},
		Query: QueryConfig{
			TimeoutSeconds: 30,
			Concurrency:    4,
		},
	}
}

func Load(path string, dir string, overrides Overrides) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		fileCfg, err := readFile(path)
		if err != nil {
			return cfg, err
		}
		merge(&cfg, fileCfg)
	}

	if dir != "" {
		files, err := dropInFiles(dir)
		if err != nil {
			return cfg, err
		}
		for _, file := range files {
			fileCfg, err := readFile(file)
			if err != nil {
				return cfg, err
			}
			merge(&cfg, fileCfg)
		}
	}

	applyOverrides(&cfg, overrides)
	applyEnvCredentials(&cfg)
	return cfg, nil
}

// Regions splits the comma-delimited region setting, dropping blanks and repeats.
func (c Config) Regions() []string {
	seen := map[string]bool{}
	var out []string
	for _, part := range strings.Split(c.Region, ",") {
		region := strings.TrimSpace(part)
		if region == "" || seen[region] {
			continue
		}
		seen[region] = true
		out = append(out, region)
	}
	return out
}

func (c Config) QueryTimeout() time.Duration {
	if c.Query.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Query.TimeoutSeconds) * time.Second
}

func (c Config) HasStaticCredentials() bool {
	return strings.TrimSpace(c.AccessKeyID) != "" || strings.TrimSpace(c.SecretAccessKey) != ""
}

func (c Config) Validate() error {
	if len(c.Regions()) == 0 {
		return &ConfigError{Field: "region", Reason: "no regions configured"}
	}
	hasRole := strings.TrimSpace(c.RoleARN) != ""
	hasStatic := c.HasStaticCredentials()
	switch {
	case hasRole && hasStatic:
		return &ConfigError{Field: "role_arn", Reason: "static credentials and role_arn are mutually exclusive"}
	case !hasRole && !hasStatic:
		return &ConfigError{Field: "access_key_id", Reason: "either static credentials or role_arn is required"}
	case hasStatic && (strings.TrimSpace(c.AccessKeyID) == "" || strings.TrimSpace(c.SecretAccessKey) == ""):
		return &ConfigError{Field: "secret_access_key", Reason: "access_key_id and secret_access_key must be set together"}
	}
	if strings.TrimSpace(c.Stage) == "" {
		return &ConfigError{Field: "stage", Reason: "required"}
	}
	if strings.TrimSpace(c.Application) == "" {
		return &ConfigError{Field: "application", Reason: "required"}
	}
	tagKeys := []struct{ field, value string }{
		{"tags.roles", c.Tags.Roles},
		{"tags.stages", c.Tags.Stages},
		{"tags.project", c.Tags.Project},
		{"tags.name", c.Tags.Name},
	}
	for _, key := range tagKeys {
		if strings.TrimSpace(key.value) == "" {
			return &ConfigError{Field: key.field, Reason: "tag key must not be empty"}
		}
	}
	switch c.ContactPoint {
	case ContactPublicDNS, ContactPublicIP, ContactPrivateIP, ContactPrivateDNS:
	default:
		return &ConfigError{Field: "contact_point", Reason: fmt.Sprintf("unsupported value %q", c.ContactPoint)}
	}
	return nil
}

func readFile(path string) (Config, error) {
	var cfg Config
	if _, err := os.Stat(path); err != nil {
		return cfg, err
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func dropInFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func merge(dst *Config, src Config) {
	if src.Region != "" {
		dst.Region = src.Region
	}
	if src.RoleARN != "" {
		dst.RoleARN = src.RoleARN
	}
	if src.AccessKeyID != "" {
		dst.AccessKeyID = src.AccessKeyID
	}
	if src.SecretAccessKey != "" {
		dst.SecretAccessKey = src.SecretAccessKey
	}
	if src.Stage != "" {
		dst.Stage = src.Stage
	}
	if src.Application != "" {
		dst.Application = src.Application
	}
	if src.FilterByStatusOK {
		dst.FilterByStatusOK = src.FilterByStatusOK
	}
	if src.ContactPoint != "" {
		dst.ContactPoint = src.ContactPoint
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.AuditLog != "" {
		dst.AuditLog = src.AuditLog
	}
	if src.Tags.Roles != "" {
		dst.Tags.Roles = src.Tags.Roles
	}
	if src.Tags.Stages != "" {
		dst.Tags.Stages = src.Tags.Stages
	}
	if src.Tags.Project != "" {
		dst.Tags.Project = src.Tags.Project
	}
	if src.Tags.Name != "" {
		dst.Tags.Name = src.Tags.Name
	}
	if src.Tags.Delimiter != "" {
		dst.Tags.Delimiter = src.Tags.Delimiter
	}
	if len(src.Roles) > 0 {
		dst.Roles = make(map[string][]string, len(src.Roles))
		for group, roles := range src.Roles {
			dst.Roles[group] = append([]string{}, roles...)
		}
	}
	if src.Query.TimeoutSeconds != 0 {
		dst.Query.TimeoutSeconds = src.Query.TimeoutSeconds
	}
	if src.Query.Concurrency != 0 {
		dst.Query.Concurrency = src.Query.Concurrency
	}
}

func applyOverrides(cfg *Config, overrides Overrides) {
	if overrides.Region != nil {
		cfg.Region = *overrides.Region
	}
	if overrides.RoleARN != nil {
		cfg.RoleARN = *overrides.RoleARN
	}
	if overrides.Stage != nil {
		cfg.Stage = *overrides.Stage
	}
	if overrides.Application != nil {
		cfg.Application = *overrides.Application
	}
	if overrides.FilterByStatusOK != nil {
		cfg.FilterByStatusOK = *overrides.FilterByStatusOK
	}
	if overrides.ContactPoint != nil {
		cfg.ContactPoint = *overrides.ContactPoint
	}
	if overrides.LogLevel != nil {
		cfg.LogLevel = *overrides.LogLevel
	}
}

// Static keys fall back to the standard AWS variables unless a role is configured.
func applyEnvCredentials(cfg *Config) {
	if strings.TrimSpace(cfg.RoleARN) != "" || cfg.HasStaticCredentials() {
		return
	}
	cfg.AccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.SecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
}
