// Command deskctl manages the collections of one deskcore application from
// the terminal: listing, editing, dashboards, exports, image attachments and
// AI analysis over the configured storage backend.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"deskcore/internal/config"
	"deskcore/internal/core"
	"deskcore/internal/logging"
	"deskcore/pkg/domain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "deskctl:", err)
		os.Exit(1)
	}
}

// cli carries the global flags and the state built from them.
type cli struct {
	configPath string
	app        string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "deskctl",
		Short: "Operate a deskcore application from the terminal",
		Long: `deskctl reads and edits the collections of one deskcore application.

Configuration comes from deskcore.yaml (or --config) overlaid by DESKCORE_*
environment variables. The application is one of: ` + strings.Join(domain.AppNames(), ", ") + `.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML config file (default ./deskcore.yaml or $DESKCORE_CONFIG)")
	root.PersistentFlags().StringVar(&c.app, "app", "", "application to operate on; overrides the config")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level; overrides the config")

	root.AddCommand(
		c.appsCmd(),
		c.listCmd(),
		c.getCmd(),
		c.setCmd(),
		c.deleteCmd(),
		c.statsCmd(),
		c.exportCmd(),
		c.attachCmd(),
		c.analyzeCmd(),
		c.watchCmd(),
		c.seedCmd(),
	)
	return root
}

func (c *cli) setup() error {
	var (
		cfg *config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath, true)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if c.app != "" {
		cfg.App = c.app
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: validate: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger.With(zap.String("app", cfg.App))
	return nil
}

// open loads the service over the configured storage. The returned func
// closes the storage.
func (c *cli) open(ctx context.Context, opts ...core.Option) (*core.Service, func(), error) {
	all := append([]core.Option{core.WithTracer(core.NewZapTracer(c.logger.Named("trace")))}, opts...)
	svc, store, err := core.Open(ctx, c.cfg, c.logger, all...)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			c.logger.Warn("close storage", zap.Error(err))
		}
	}
	return svc, closeFn, nil
}

func (c *cli) appsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List the applications and their collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, name := range domain.AppNames() {
				catalog, err := domain.CatalogFor(name)
				if err != nil {
					return err
				}
				keys := make([]string, 0, len(catalog.Descriptors()))
				for _, d := range catalog.Descriptors() {
					keys = append(keys, d.Key())
				}
				marker := " "
				if name == c.cfg.App {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", marker, name, strings.Join(keys, ", "))
			}
			return nil
		},
	}
}
