package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// CatalogSummary is the printable form of one validated catalog.
type CatalogSummary struct {
	Name     string   `json:"name" yaml:"name"`
	Source   string   `json:"source" yaml:"source"`
	Outputs  []string `json:"outputs" yaml:"outputs"`
	Requires []string `json:"requires" yaml:"requires"`
	Output   string   `json:"output" yaml:"output"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool             `json:"valid" yaml:"valid"`
	Catalogs []CatalogSummary `json:"catalogs" yaml:"catalogs"`
	Classes  []ClassSummary   `json:"classes" yaml:"classes"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <manifest-dir>",
		Short: "Validate a catalog manifest without running it",
		Long: `Compile a catalog manifest and construct every catalog.

Reports dependency cycles, missing fields and unknown columns, then prints
the equivalence classes: catalogs listed together share one query.
No database is opened.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting structured output
		Verbose:   opts.Verbose,
	}

	loaded, err := LoadCatalogs(dir)
	if err != nil {
		_ = formatter.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "validation failed", err)
	}

	plans, err := planClasses(loaded.Specs)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "validation failed", err)
	}

	result := ValidationResult{Valid: true}
	for i, spec := range loaded.Specs {
		formatter.VerboseLog("Validated catalog: %s", spec.Name())
		result.Catalogs = append(result.Catalogs, CatalogSummary{
			Name:     spec.Name(),
			Source:   loaded.Manifest.Catalogs[i].Source,
			Outputs:  spec.Outputs(),
			Requires: spec.RequiredFields(),
			Output:   loaded.Manifest.Catalogs[i].Output,
		})
	}
	for _, p := range plans {
		result.Classes = append(result.Classes, ClassSummary{Source: p.Key.String(), Catalogs: p.Catalogs})
	}

	if formatter.structured() {
		return formatter.Success(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ %d catalog(s), %d equivalence class(es)\n", len(result.Catalogs), len(result.Classes))
	for _, c := range result.Classes {
		fmt.Fprintf(w, "  %s\n    %s\n", strings.Join(c.Catalogs, ", "), c.Source)
	}
	return nil
}
