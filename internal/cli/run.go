package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yaklabco/tmscope/internal/logging"
	"github.com/yaklabco/tmscope/internal/ui/pretty"
	"github.com/yaklabco/tmscope/pkg/config"
	"github.com/yaklabco/tmscope/pkg/fsutil"
	"github.com/yaklabco/tmscope/pkg/metrics"
	"github.com/yaklabco/tmscope/pkg/runner"
)

const metricsShutdownTimeout = 5 * time.Second

// ErrParseFailures is returned when some files of a run failed.
var ErrParseFailures = errors.New("some files failed to parse")

type runFlags struct {
	jobs       int
	ignore     []string
	include    []string
	extensions []string
	detect     bool
	files      bool
	compact    bool
	metrics    bool
	metricsOut string
	serveAddr  string
}

func newRunCommand() *cobra.Command {
	var cfg config.Config
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [paths...]",
		Short: "Parse many files concurrently",
		Long: `Parse every file under the given paths that a registered grammar claims
and print a summary. Directories are walked recursively; hidden entries are
skipped unless named explicitly.

Examples:
  tmscope run                       # Parse the current directory
  tmscope run src/ --files          # Show a row per file
  tmscope run --jobs 4 --metrics    # Limit workers, show engine counters
  tmscope run --ignore "vendor/**"
  tmscope run --serve-metrics :9464 # Expose /metrics until interrupted`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, &cfg, flags)
		},
	}

	cmd.Flags().IntVar(&flags.jobs, "jobs", 0, "number of parallel workers (0 = auto)")
	cmd.Flags().StringSliceVar(&flags.ignore, "ignore", nil, "glob patterns to ignore")
	cmd.Flags().StringSliceVar(&flags.include, "include", nil, "only parse files matching these globs")
	cmd.Flags().StringSliceVar(&flags.extensions, "ext", nil, "only parse files with these extensions")
	cmd.Flags().BoolVar(&flags.detect, "detect", false, "guess the grammar of unclaimed files from their content")
	cmd.Flags().BoolVar(&flags.files, "files", false, "print a row per file")
	cmd.Flags().BoolVar(&flags.compact, "compact", false, "print a one-line summary")
	cmd.Flags().BoolVar(&flags.metrics, "metrics", false, "print engine counters")
	cmd.Flags().StringVar(&flags.metricsOut, "metrics-out", "",
		"write all metrics to this file in the Prometheus text format")
	cmd.Flags().StringVar(&flags.serveAddr, "serve-metrics", "",
		"serve /metrics at this address during the run and until interrupted")

	return cmd
}

func runRun(cmd *cobra.Command, args []string, cfg *config.Config, flags *runFlags) error {
	// Only set values that were explicitly provided via CLI flags.
	cfg.Jobs = flags.jobs
	cfg.Ignore = flags.ignore
	if cmd.Flags().Changed("detect") {
		cfg.DetectLanguage = &flags.detect
	}

	env, err := loadEnvironment(cmd, cfg)
	if err != nil {
		return err
	}

	collector := metrics.New()
	opts := runner.Options{
		Paths:          args,
		WorkingDir:     env.workDir,
		Extensions:     flags.extensions,
		IncludeGlobs:   flags.include,
		ExcludeGlobs:   env.cfg.Ignore,
		Jobs:           env.cfg.Jobs,
		DetectLanguage: env.cfg.ShouldDetectLanguage(),
		Parse:          env.parseOptions(),
		Metrics:        collector,
	}

	env.logger.Debug("starting run",
		logging.FieldPaths, opts.Paths,
		logging.FieldWorkingDir, opts.WorkingDir,
		logging.FieldJobs, opts.Jobs,
	)

	ctx := cmd.Context()
	var server *metrics.Server
	if flags.serveAddr != "" {
		server, err = collector.Serve(ctx, flags.serveAddr)
		if err != nil {
			return err
		}
		env.logger.Info("serving metrics", logging.FieldAddr, "http://"+server.Addr()+metrics.MetricsPath)
	}

	start := time.Now()
	result, err := runner.New(env.registry).Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}
	elapsed := time.Since(start)

	env.logger.Debug("run complete",
		logging.FieldFilesDiscovered, result.Stats.FilesDiscovered,
		logging.FieldFilesProcessed, result.Stats.FilesProcessed,
		logging.FieldFilesFailed, result.Stats.FilesErrored,
		logging.FieldDuration, elapsed,
	)

	out := cmd.OutOrStdout()
	if flags.files {
		fmt.Fprint(out, newTable(env).FormatFiles(result.Files, env.workDir))
	} else {
		for _, f := range result.Files {
			if f.Error != nil {
				env.logger.Error("parse failed", logging.FieldPath, f.Path, logging.FieldError, f.Error)
			}
		}
	}

	if flags.compact {
		fmt.Fprint(out, env.styles.FormatSummaryOneLine(result.Stats, elapsed))
	} else {
		fmt.Fprint(out, env.styles.FormatSummary(result.Stats, elapsed))
	}

	if flags.metrics {
		if err := env.printMetrics(out, collector); err != nil {
			return err
		}
	}

	if flags.metricsOut != "" {
		if err := writeMetricsFile(cmd.Context(), flags.metricsOut, collector); err != nil {
			return err
		}
	}

	if server != nil {
		if err := holdMetrics(ctx, server); err != nil {
			return err
		}
	}

	if ExitCodeFromResult(result) != ExitSuccess {
		return ErrParseFailures
	}
	return nil
}

// holdMetrics keeps the final counters available for scraping until ctx is
// cancelled, then shuts the server down.
func holdMetrics(ctx context.Context, server *metrics.Server) error {
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), metricsShutdownTimeout)
	defer cancel()
	return server.Close(shutdownCtx)
}

// writeMetricsFile replaces path atomically so that a textfile collector
// never reads a partial file.
func writeMetricsFile(ctx context.Context, path string, collector *metrics.Collector) error {
	var buf bytes.Buffer
	if err := collector.WriteText(&buf); err != nil {
		return err
	}
	if err := fsutil.WriteAtomic(ctx, path, buf.Bytes(), 0); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

func newTable(env *environment) *pretty.TableFormatter {
	return pretty.NewTableFormatter(env.styles, env.width)
}
