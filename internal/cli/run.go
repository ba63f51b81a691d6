package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/catsim/internal/catalog"
	"github.com/roach88/catsim/internal/config"
	"github.com/roach88/catsim/internal/engine"
	"github.com/roach88/catsim/internal/sink"
	"github.com/roach88/catsim/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	MetricsFile string

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunResult is the structured output of the run command.
type RunResult struct {
	RunID   string         `json:"run_id" yaml:"run_id"`
	Files   []string       `json:"files" yaml:"files"`
	Classes []ClassSummary `json:"classes" yaml:"classes"`
	OK      int            `json:"ok" yaml:"ok"`
	Failed  int            `json:"failed" yaml:"failed"`
	Aborted int            `json:"cancelled" yaml:"cancelled"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <manifest-dir>",
		Short: "Generate every catalog in a manifest",
		Long: `Compile a catalog manifest and write each catalog to its output file.

Catalogs sharing a row source are fed by a single query. A class that
fails does not stop the others unless --all-or-nothing is set.

Settings come from flags, CATSIM_* environment variables, the --config
file (or ./catsim.yaml), and built-in defaults, in that order.

Exit codes:
  0 - Every catalog written
  1 - One or more classes failed or the run was interrupted
  2 - Command error (bad manifest, database unavailable, etc.)

Example:
  catsim run --db ./cat.db --out-dir ./out ./manifest
  catsim run --db ./cat.db --chunk-size 5000 --compress ./manifest`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogs(opts, args[0], cmd)
		},
	}

	d := config.Defaults()
	cmd.Flags().String("db", d.Database, "database path or DSN")
	cmd.Flags().String("driver", d.Driver, "database driver (sqlite3|pgx)")
	cmd.Flags().Int("chunk-size", d.ChunkSize, "rows fetched per chunk")
	cmd.Flags().Int("workers", d.Workers, "classes evaluated concurrently")
	cmd.Flags().Bool("all-or-nothing", d.AllOrNothing, "fail the run when any class fails")
	cmd.Flags().Bool("compress", d.Compress, "zstd-compress catalog files")
	cmd.Flags().String("out-dir", d.OutDir, "directory for catalog files")
	cmd.Flags().Bool("write-ids", d.WriteIDs, "prepend the unique identifier to every row")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write run metrics in Prometheus text format")

	return cmd
}

func runCatalogs(opts *RunOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := config.Load(opts.Config, cmd.Flags())
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if cfg.Database == "" {
		_ = formatter.Error(ErrCodeConfig, "no database configured", nil)
		return NewExitError(ExitCommandError, "no database configured (use --db or CATSIM_DATABASE)")
	}

	loaded, err := LoadCatalogs(dir)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load catalogs", err)
	}
	logger.Debug("manifest compiled", "dir", dir, "catalogs", len(loaded.Specs))

	st, err := store.OpenDriver(cfg.Driver, cfg.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	sinks, files, err := createSinks(cfg, loaded)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to create catalog files", err)
	}

	entries := make([]engine.Entry, len(loaded.Specs))
	for i, spec := range loaded.Specs {
		entries[i] = engine.Entry{Spec: spec, Sink: sinks[i]}
	}

	reg := prometheus.NewRegistry()
	engineOpts := append(cfg.EngineOptions(),
		engine.WithMetrics(engine.NewMetrics(reg)),
		engine.WithLogger(logger),
	)
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}

	coord, err := engine.New(st, entries, engineOpts...)
	if err != nil {
		_ = closeSinks(sinks, loaded.Specs, logger.Error)
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid run configuration", err)
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := coord.Run(ctx)
	if err := closeSinks(sinks, loaded.Specs, logger.Error); err != nil && runErr == nil {
		runErr = err
	}
	if report == nil {
		_ = formatter.Error(ErrCodeGeneric, runErr.Error(), nil)
		return WrapExitError(ExitCommandError, "run could not start", runErr)
	}

	if opts.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.MetricsFile, reg); err != nil {
			logger.Error("failed to write metrics", "path", opts.MetricsFile, "error", err)
		}
	}

	result := summarize(report, files)
	if err := outputRun(formatter, cmd, result); err != nil {
		return err
	}

	switch {
	case result.Failed > 0:
		return WrapExitError(ExitFailure, fmt.Sprintf("%d of %d class(es) failed", result.Failed, len(result.Classes)), report.Err())
	case result.Aborted > 0:
		return NewExitError(ExitFailure, "run cancelled")
	case runErr != nil:
		return WrapExitError(ExitFailure, "run failed", runErr)
	}
	return nil
}

// createSinks opens one text sink per catalog under cfg.OutDir.
// On error every sink already opened is closed.
func createSinks(cfg *config.Config, loaded *LoadResult) ([]*sink.TextSink, []string, error) {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create output directory: %w", err)
	}

	sinks := make([]*sink.TextSink, 0, len(loaded.Specs))
	files := make([]string, 0, len(loaded.Specs))
	seen := map[string]string{}
	for i, spec := range loaded.Specs {
		path := filepath.Join(cfg.OutDir, loaded.Manifest.Catalogs[i].Output)
		if cfg.Compress && !strings.HasSuffix(path, ".zst") {
			path += ".zst"
		}
		if owner, dup := seen[path]; dup {
			closeAll(sinks)
			return nil, nil, fmt.Errorf("catalogs %s and %s both write %s", owner, spec.Name(), path)
		}
		seen[path] = spec.Name()

		var textOpts []sink.TextOption
		if cfg.WriteIDs {
			textOpts = append(textOpts, sink.WithIDColumn(spec.Source().IDColumn))
		}
		s, err := sink.CreateTextFile(path, cfg.Compress, textOpts...)
		if err != nil {
			closeAll(sinks)
			return nil, nil, err
		}
		sinks = append(sinks, s)
		files = append(files, path)
	}
	return sinks, files, nil
}

// closeSinks writes a header for catalogs that received no rows, then
// closes every sink.
func closeSinks(sinks []*sink.TextSink, specs []*catalog.Spec, logError func(string, ...any)) error {
	var errs []error
	for i, s := range sinks {
		if err := s.WriteHeader(specs[i].Outputs()); err != nil {
			errs = append(errs, err)
		}
		if err := s.Close(); err != nil {
			logError("failed to close catalog file", "catalog", specs[i].Name(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func closeAll(sinks []*sink.TextSink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}

func summarize(report *engine.Report, files []string) RunResult {
	result := RunResult{
		RunID:   report.RunID,
		Files:   files,
		OK:      report.Count(engine.StatusOK),
		Failed:  report.Count(engine.StatusFailed),
		Aborted: report.Count(engine.StatusCancelled),
	}
	for _, oc := range report.Classes {
		cs := ClassSummary{
			Source:   oc.Key.String(),
			Catalogs: oc.Catalogs,
			Status:   string(oc.Status),
			Chunks:   oc.Chunks,
			Rows:     oc.Rows,
		}
		if oc.Err != nil {
			cs.Error = oc.Err.Error()
		}
		result.Classes = append(result.Classes, cs)
	}
	return result
}

func outputRun(formatter *OutputFormatter, cmd *cobra.Command, result RunResult) error {
	if formatter.structured() {
		status := "ok"
		if result.Failed > 0 || result.Aborted > 0 {
			status = "error"
		}
		return formatter.Encode(CLIResponse{Status: status, Data: result, RunID: result.RunID})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run %s\n", result.RunID)
	for _, c := range result.Classes {
		mark := "✓"
		if c.Status != string(engine.StatusOK) {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s [%s] %d row(s) in %d chunk(s)\n", mark, strings.Join(c.Catalogs, ", "), c.Status, c.Rows, c.Chunks)
		if c.Error != "" {
			fmt.Fprintf(w, "  %s\n", c.Error)
		}
	}
	fmt.Fprintf(w, "\n%d ok, %d failed, %d cancelled\n", result.OK, result.Failed, result.Aborted)
	return nil
}
