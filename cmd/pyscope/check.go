package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Run the layered type-check environment once and report diagnostics",
	Long: `check resolves every module under the configured search roots
through the Alias/ClassSummary/AttributeResolver/AnnotatedGlobal/TypeCheck
layers and prints the resulting diagnostics. Exits non-zero iff at least
one Error-severity diagnostic was produced.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	proj, err := loadProject(settingsCur)
	if err != nil {
		return err
	}

	qualifiers := append([]string(nil), proj.qualifiers...)
	sort.Strings(qualifiers)

	errorCount := 0
	for _, q := range qualifiers {
		ds := proj.types.Diagnostics(q)
		errorCount += printDiagnostics(os.Stdout, q, ds)
	}

	if errorCount > 0 {
		fmt.Fprintf(os.Stderr, "%d error(s)\n", errorCount)
		os.Exit(1)
	}
	return nil
}
