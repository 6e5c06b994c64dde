package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <qualifier>[.ClassName[.attr]]",
	Short: "Resolve a qualifier and dump its layered environment state",
	Long: `query is a read-only probe: it resolves a dotted expression
against the layered source/type environment and prints whatever it finds
— the module's alias table, a class's summary, or one attribute's
resolved type — without writing to any cache.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	proj, err := loadProject(settingsCur)
	if err != nil {
		return err
	}

	qualifier, className, attr := splitQueryExpr(args[0])

	switch {
	case attr != "":
		a := proj.types.Attrs.Get(qualifier, className, attr, nil)
		if !a.Found {
			fmt.Printf("%s.%s.%s: not found\n", qualifier, className, attr)
			return nil
		}
		fmt.Printf("%s.%s.%s: %s (declared on %s)\n", qualifier, className, attr, a.Type.String(), a.DeclaringClass)

	case className != "":
		summary := proj.types.Classes.Get(qualifier, className, nil)
		if summary == nil {
			fmt.Printf("%s.%s: not found\n", qualifier, className)
			return nil
		}
		fmt.Printf("%s.%s bases=%v\n", qualifier, className, summary.Bases)
		for name, sig := range summary.Methods {
			fmt.Printf("  def %s(...) -> %s\n", name, sig.Return.String())
		}
		for name, typ := range summary.Fields {
			fmt.Printf("  %s: %s\n", name, typ.String())
		}

	default:
		aliases := proj.types.Alias.Get(qualifier, nil)
		fmt.Printf("%s aliases:\n", qualifier)
		for local, resolved := range aliases {
			fmt.Printf("  %s -> %s\n", local, resolved)
		}
		diags := proj.types.Diagnostics(qualifier)
		fmt.Printf("%s: %d diagnostic(s)\n", qualifier, len(diags))
		for _, d := range diags {
			fmt.Printf("  [%d] %s:%d:%d %s\n", d.Code, d.Location.Path, d.Location.Line, d.Location.Col, d.Message)
		}
	}
	return nil
}

// splitQueryExpr splits "pkg.mod.ClassName.attr" into (qualifier,
// className, attr). The first dotted segment after the leading one that
// starts with an upper-case letter names the class; everything before it is
// the qualifier and everything after it the attribute. An expression with
// no such segment is a bare qualifier.
func splitQueryExpr(expr string) (qualifier, className, attr string) {
	parts := strings.Split(expr, ".")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" && parts[i][0] >= 'A' && parts[i][0] <= 'Z' {
			return strings.Join(parts[:i], "."), parts[i], strings.Join(parts[i+1:], ".")
		}
	}
	return expr, "", ""
}
