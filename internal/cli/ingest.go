package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/catsim/internal/config"
	"github.com/roach88/catsim/internal/store"
)

// IngestOptions holds flags for the ingest command.
type IngestOptions struct {
	*RootOptions
	Table    string
	IDColumn string
	Replace  bool
}

// IngestResult is the structured output of the ingest command.
type IngestResult struct {
	Table string `json:"table" yaml:"table"`
	Rows  int    `json:"rows" yaml:"rows"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Load a text table into the database",
		Long: `Load a whitespace-separated text table into a new database table.

The first line is a '#' header naming the columns; column types are
inferred from the data. The id column becomes the primary key.

Example:
  catsim ingest --db ./cat.db --table table1 table1.txt
  catsim ingest --db ./cat.db --table table2 --id objid --replace table2.txt`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Table, "table", "", "destination table (required)")
	cmd.Flags().StringVar(&opts.IDColumn, "id", "id", "unique identifier column")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "drop an existing table first")
	cmd.Flags().String("db", "", "database path or DSN")
	cmd.Flags().String("driver", store.DriverSQLite, "database driver (sqlite3|pgx)")
	_ = cmd.MarkFlagRequired("table")

	return cmd
}

func runIngest(opts *IngestOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(opts.Config, cmd.Flags())
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	if cfg.Database == "" {
		_ = formatter.Error(ErrCodeConfig, "no database configured", nil)
		return NewExitError(ExitCommandError, "no database configured (use --db or CATSIM_DATABASE)")
	}

	f, err := os.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open table file", err)
	}
	defer f.Close()

	st, err := store.OpenDriver(cfg.Driver, cfg.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	formatter.VerboseLog("Ingesting %s into %s.%s", path, cfg.Database, opts.Table)
	n, err := st.IngestText(cmd.Context(), opts.Table, f, store.IngestOptions{
		IDColumn: opts.IDColumn,
		Replace:  opts.Replace,
	})
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "ingest failed", err)
	}

	if formatter.structured() {
		return formatter.Success(IngestResult{Table: opts.Table, Rows: n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d row(s) into %s\n", n, opts.Table)
	return nil
}
