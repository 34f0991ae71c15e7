// Package cli wires the migration engine to its one-shot command surface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds the global flags.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	DryRun     bool
}

// NewRootCommand creates the replant root command. Running it with no
// arguments performs the full migration; there is nothing else this tool
// does.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "replant",
		Short: "One-shot legacy shop migration",
		Long: `replant reads the entire legacy store, transforms every entity into
the new schema, and loads the destination store, preserving references
across the two schemas' incompatible primary keys.

The destination is wiped first: a run replaces everything, so re-running
after any failure is always safe. Connection details and the exception
tables come from the YAML config file.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath(), "path to YAML config")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "run every stage, then roll the destination back")

	return cmd
}

// defaultConfigPath honors the REPLANT_CONFIG environment variable before
// falling back to a file beside the binary's working directory.
func defaultConfigPath() string {
	if path := os.Getenv("REPLANT_CONFIG"); path != "" {
		return path
	}
	return "replant.yaml"
}
