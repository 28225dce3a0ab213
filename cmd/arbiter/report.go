package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newReportCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the accuracy report replayed from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("format must be text or json, got %q", format)
			}

			defer a.close()
			eng, err := a.engine(cmd.Context(), false)
			if err != nil {
				return err
			}

			report := eng.Report()
			if format == "json" {
				return report.WriteJSON(cmd.OutOrStdout())
			}
			return report.WriteText(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	return cmd
}
