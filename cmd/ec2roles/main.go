package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ec2roles/internal/inventory"
	"ec2roles/pkg/app"
)

const version = "0.1.0"

const (
	exitFailure       = 1
	exitConfiguration = 2
	exitTimeout       = 3
	exitNotFound      = 4
)

type runner interface {
	Status(ctx context.Context) error
	Names(ctx context.Context) error
	IDs(ctx context.Context) error
	Role(ctx context.Context, role string) error
	Instance(ctx context.Context, id string) error
	Identity(ctx context.Context) error
	Config() error
	Close() error
}

var openApp = func(ctx context.Context, opts app.Options) (runner, error) {
	return app.Open(ctx, opts)
}

var exit = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if code != 0 {
		exit(code)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		return exitCode(err)
	}
	return 0
}

type rootFlags struct {
	configPath     string
	configDir      string
	region         string
	stage          string
	application    string
	roleARN        string
	filterStatusOK bool
	contactPoint   string
	logLevel       string
	output         string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "ec2roles",
		Short:         "Find the EC2 instances serving each deployment role",
		Long:          `ec2roles queries every configured region for running instances tagged with a role, stage and project.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file path (env: EC2ROLES_CONFIG)")
	pf.StringVar(&flags.configDir, "config-dir", "", "Directory of drop-in config files")
	pf.StringVar(&flags.region, "region", "", "Comma-separated regions to query")
	pf.StringVar(&flags.stage, "stage", "", "Deployment stage")
	pf.StringVar(&flags.application, "application", "", "Application (project tag value)")
	pf.StringVar(&flags.roleARN, "role-arn", "", "IAM role to assume for queries")
	pf.BoolVar(&flags.filterStatusOK, "filter-status-ok", false, "Only include instances whose status checks pass")
	pf.StringVar(&flags.contactPoint, "contact-point", "", "Address used for hosts output (public_dns, public_ip, private_ip, private_dns)")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level")
	pf.StringVarP(&flags.output, "output", "o", "table", "Output format (table, json, hosts)")

	withApp := func(fn func(ctx context.Context, a runner, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), flags.options(cmd, stdout, stderr))
			if err != nil {
				return err
			}
			defer a.Close()
			return fn(cmd.Context(), a, args)
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show every instance serving a configured role",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a runner, args []string) error {
			return a.Status(ctx)
		}),
	})
	root.AddCommand(&cobra.Command{
		Use:   "names",
		Short: "List instance names across all roles",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a runner, args []string) error {
			return a.Names(ctx)
		}),
	})
	root.AddCommand(&cobra.Command{
		Use:   "ids",
		Short: "List instance ids across all roles",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a runner, args []string) error {
			return a.IDs(ctx)
		}),
	})
	root.AddCommand(&cobra.Command{
		Use:   "role <name>",
		Short: "List instances serving one role",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a runner, args []string) error {
			return a.Role(ctx, args[0])
		}),
	})
	root.AddCommand(&cobra.Command{
		Use:   "instance <id>",
		Short: "Look up one instance by id",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a runner, args []string) error {
			return a.Instance(ctx, args[0])
		}),
	})
	root.AddCommand(&cobra.Command{
		Use:   "identity",
		Short: "Show the AWS identity queries run as",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a runner, args []string) error {
			return a.Identity(ctx)
		}),
	})
	root.AddCommand(&cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: withApp(func(ctx context.Context, a runner, args []string) error {
			return a.Config()
		}),
	})
	return root
}

// options only overrides settings whose flags were given explicitly.
func (f *rootFlags) options(cmd *cobra.Command, stdout, stderr io.Writer) app.Options {
	opts := app.Options{
		ConfigPath: f.configPath,
		ConfigDir:  f.configDir,
		Output:     f.output,
		Version:    version,
		Stdout:     stdout,
		Stderr:     stderr,
	}
	changed := cmd.Flags().Changed
	if changed("region") {
		opts.Overrides.Region = &f.region
	}
	if changed("stage") {
		opts.Overrides.Stage = &f.stage
	}
	if changed("application") {
		opts.Overrides.Application = &f.application
	}
	if changed("role-arn") {
		opts.Overrides.RoleARN = &f.roleARN
	}
	if changed("filter-status-ok") {
		opts.Overrides.FilterByStatusOK = &f.filterStatusOK
	}
	if changed("contact-point") {
		opts.Overrides.ContactPoint = &f.contactPoint
	}
	if changed("log-level") {
		opts.Overrides.LogLevel = &f.logLevel
	}
	return opts
}

func exitCode(err error) int {
	if errors.Is(err, app.ErrInstanceNotFound) {
		return exitNotFound
	}
	switch inventory.KindOf(err) {
	case inventory.KindConfiguration:
		return exitConfiguration
	case inventory.KindTimeout:
		return exitTimeout
	default:
		return exitFailure
	}
}
