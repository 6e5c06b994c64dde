// Command pyscope is the whole-program static analyzer's CLI: the
// concrete realization of §6.4's subcommand tree over the layered source,
// type, call-graph, and taint-analysis environments this module builds.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pyscope-dev/pyscope/internal/config"
)

var (
	verbose     bool
	configPath  string
	workspace   string
	noCache     bool
	logger      = mustNopLogger()
	settingsCur *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "pyscope",
	Short: "Whole-program static analysis for gradually-typed, indentation-based scripts",
	Long: `pyscope checks and analyzes a pyscope project: structural and
gradual type checking over a layered source/type environment, and
whole-program taint analysis over a call graph and model-DSL rule set.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if workspace != "" {
			if err := os.Chdir(workspace); err != nil {
				return fmt.Errorf("chdir workspace: %w", err)
			}
		}
		path := configPath
		if path == "" {
			path = "pyscope.yaml"
		}
		settings, err := config.LoadSettings(path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		if noCache {
			settings.CacheDir = ""
		}
		settingsCur = settings

		l, err := newLogger()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to pyscope.yaml (default: ./pyscope.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "Disable reading/writing the persisted model cache")

	rootCmd.AddCommand(checkCmd, analyzeCmd, queryCmd, serverCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
