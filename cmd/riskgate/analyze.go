package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/davidleathers/change-risk-gate/internal/domain/formula"
	formulasvc "github.com/davidleathers/change-risk-gate/internal/service/formula"
)

func newAnalyzeCommand(a *app) *cobra.Command {
	var dialect string

	cmd := &cobra.Command{
		Use:   "analyze [FILE]",
		Short: "Analyze formula or workflow source for complexity and unsafe operations",
		Long:  "Analyze reads FILE, or stdin when FILE is omitted or -, and prints the analysis as JSON.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := formula.ParseDialect(dialect)
			if !ok {
				return fmt.Errorf("unknown dialect %q", dialect)
			}

			var (
				code []byte
				err  error
			)
			if len(args) == 0 || args[0] == "-" {
				code, err = io.ReadAll(cmd.InOrStdin())
			} else {
				code, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("reading source: %w", err)
			}

			result := formulasvc.NewAnalyzer(a.logger.Named("formula")).Analyze(string(code), d)
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", string(formula.DialectExpression), "expression or workflow_xml")
	return cmd
}
