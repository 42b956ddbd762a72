package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/config"
	apperrors "github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/errors"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/internal/infrastructure"
	"github.com/mguneri19/Retail-Cust-Segmentation-Unsupervised-Project/pkg/contracts"
)

// shutdownTimeout bounds telemetry flushing after a run
const shutdownTimeout = 5 * time.Second

// globalFlags are shared by every subcommand
type globalFlags struct {
	configPath string
	outputDir  string
	delimiter  string
	sheet      string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the segment command tree
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "Omni-channel customer segmentation",
		Long: `segment clusters retail customers by their online and offline purchase
history. It derives recency, tenure and value features, normalizes skewed
columns, picks a cluster count with the elbow method, and fits both k-means
and Ward hierarchical models. Each segment is summarized and ranked by value.

Configuration is read from defaults, an optional YAML file, SEGMENT_*
environment variables and command-line flags, in increasing precedence.`,
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML configuration file")
	pf.StringVarP(&g.outputDir, "output-dir", "o", "", "directory for every output file")
	pf.StringVar(&g.delimiter, "delimiter", "", "CSV field separator")
	pf.StringVar(&g.sheet, "sheet", "", "worksheet to read from an .xlsx input")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&g.logFormat, "log-format", "", "json or text")

	root.AddCommand(
		newRunCommand(g),
		newDescribeCommand(g),
		newElbowCommand(g),
	)
	return root
}

// Execute runs the command tree until completion or an interrupt and exits
// with status 1 on any error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration of one command: file and
// environment first, then the persistent flags, then the command's own
// overrides. The result is validated again after the overrides.
func (g *globalFlags) loadConfig(cmd *cobra.Command, args []string, override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}

	fs := cmd.Flags()
	if fs.Changed("output-dir") {
		cfg.Output.Dir = g.outputDir
	}
	if fs.Changed("delimiter") {
		cfg.Input.Delimiter = g.delimiter
	}
	if fs.Changed("sheet") {
		cfg.Input.Sheet = g.sheet
	}
	if fs.Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Logging.Format = g.logFormat
	}
	if len(args) > 0 {
		cfg.Input.Path = args[0]
	}
	if override != nil {
		override(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Input.Path == "" {
		return nil, apperrors.NewConfigError("no input file: pass a path or set input.path", nil)
	}
	return cfg, nil
}

// session is the logger and telemetry of one command invocation
type session struct {
	logger    *slog.Logger
	telemetry *infrastructure.Telemetry
	logFile   *os.File
}

func newSession(cmd *cobra.Command, cfg *config.Config) (*session, error) {
	logger, file, err := infrastructure.NewLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, apperrors.NewConfigError("failed to initialize logger", err)
	}
	slog.SetDefault(logger)

	telemetry, err := infrastructure.InitializeTelemetry(cfg.Telemetry, logger)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, apperrors.NewConfigError("failed to initialize telemetry", err)
	}

	return &session{logger: logger, telemetry: telemetry, logFile: file}, nil
}

// close flushes telemetry and releases the log file. It uses its own
// deadline so an interrupted run still writes its trace and metrics.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.telemetry.Shutdown(ctx); err != nil {
		s.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
	}
	if s.logFile != nil {
		s.logFile.Close()
	}
}

// fail logs a command error with its type and returns it unchanged
func (s *session) fail(ctx context.Context, msg string, err error) error {
	infrastructure.WithError(s.logger, err).ErrorContext(ctx, msg,
		slog.String("error_type", string(apperrors.TypeOf(err))))
	return err
}
