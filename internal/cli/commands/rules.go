package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rowbridge/rowbridge/internal/rules"
	"github.com/rowbridge/rowbridge/internal/script"
)

// NewRulesCommand creates the rules command group.
func NewRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Work with declarative rule files",
	}
	cmd.AddCommand(newRulesValidateCommand())
	return cmd
}

func newRulesValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a rule file for structural and expression errors",
		Long: `Parse a rule file and compile every enabled rule's expression without
running anything. Disabled rules are reported but not compiled, matching
how the engine treats them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesValidate(cmd, args[0])
		},
	}
}

func runRulesValidate(cmd *cobra.Command, path string) error {
	doc, err := rules.Load(path)
	if err != nil {
		return err
	}

	ev := script.NewEvaluator()
	out := cmd.OutOrStdout()
	var bad int
	for i, rule := range doc.Transformations {
		label := rule.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}
		if !rule.IsEnabled() {
			fmt.Fprintf(out, "  %s (%s): disabled, skipped\n", label, rule.Kind)
			continue
		}
		var exprErr error
		switch rule.Kind {
		case rules.KindFilter:
			_, exprErr = ev.CompileExpr(label, rule.Condition)
		case rules.KindCalculate:
			_, exprErr = ev.CompileExpr(label, rule.Expression)
		}
		if exprErr != nil {
			bad++
			fmt.Fprintf(out, "  %s (%s): %v\n", label, rule.Kind, exprErr)
			continue
		}
		fmt.Fprintf(out, "  %s (%s): ok\n", label, rule.Kind)
	}
	if bad > 0 {
		return fmt.Errorf("%d of %d rules failed validation", bad, len(doc.Transformations))
	}
	fmt.Fprintf(out, "%s: %d rules valid\n", path, len(doc.Transformations))
	return nil
}
