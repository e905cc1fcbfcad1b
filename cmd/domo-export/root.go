package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/saturnines/domo-export/pkg/config"
	"github.com/saturnines/domo-export/pkg/domo"
	"github.com/saturnines/domo-export/pkg/output"
	"github.com/saturnines/domo-export/pkg/pipeline"
)

type options struct {
	configPath string
	envFile    string
	output     string
	baseURL    string
	limit      int
	offset     int
	preview    int
	timeout    time.Duration
	verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "domo-export",
		Short: "Export every Domo dataset into one combined CSV file",
		Long: `Authenticates with DOMO_CLIENT_ID / DOMO_CLIENT_SECRET, lists the datasets the
client can see, exports each one as CSV and writes them into a single file with a
leading datasetId column.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	bindFlags(cmd.Flags(), opts)

	return cmd
}

func bindFlags(flags *pflag.FlagSet, opts *options) {
	flags.StringVarP(&opts.configPath, "config", "c", "", "YAML config file (optional)")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded into the environment when present")
	flags.StringVarP(&opts.output, "output", "o", "", "output file (default combined_datasets.csv beside the executable)")
	flags.StringVar(&opts.baseURL, "base-url", "", "API base URL (default "+config.DefaultBaseURL+")")
	flags.IntVar(&opts.limit, "limit", config.DefaultLimit, "rows exported per dataset")
	flags.IntVar(&opts.offset, "offset", 0, "first row exported per dataset")
	flags.IntVar(&opts.preview, "preview", config.DefaultPreview, "lines of the result printed after saving, 0 disables")
	flags.DurationVar(&opts.timeout, "timeout", config.DefaultTimeout, "HTTP request timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
}

func run(cmd *cobra.Command, opts *options) error {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := godotenv.Load(opts.envFile); err != nil {
		logger.Debug(".env file not loaded", zap.String("path", opts.envFile), zap.Error(err))
	}

	exeDir, err := output.ExecutableDir()
	if err != nil {
		logger.Warn("cannot locate executable, output goes to the working directory", zap.Error(err))
		exeDir = ""
	}

	cfg, err := config.NewDefaultLoader(exeDir).
		WithOverride(flagOverrides(cmd, opts)).
		Load(opts.configPath)
	if err != nil {
		logger.Error("Configuration error", zap.Error(err))
		return err
	}

	client, err := domo.NewClient(cfg, domo.WithLogger(logger))
	if err != nil {
		logger.Error("Client setup failed", zap.Error(err))
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := pipeline.NewRunner(cfg, client, output.NewWriter(nil, cmd.OutOrStdout()), logger)
	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("run finished",
		zap.Stringer("stage", res.Stage),
		zap.Int("datasets", len(res.Datasets)),
		zap.Bool("written", res.Written),
	)
	return nil
}

// flagOverrides applies only the flags the user actually set, so file values survive
func flagOverrides(cmd *cobra.Command, opts *options) func(*config.Config) {
	return func(cfg *config.Config) {
		flags := cmd.Flags()
		if flags.Changed("output") {
			cfg.Output.Path = opts.output
		}
		if flags.Changed("base-url") {
			cfg.API.BaseURL = opts.baseURL
		}
		if flags.Changed("limit") {
			cfg.Export.Limit = opts.limit
		}
		if flags.Changed("offset") {
			cfg.Export.Offset = opts.offset
		}
		if flags.Changed("preview") {
			preview := opts.preview
			cfg.Output.Preview = &preview
		}
		if flags.Changed("timeout") {
			cfg.API.Timeout = opts.timeout
		}
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
