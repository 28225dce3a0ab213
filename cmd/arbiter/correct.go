package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/arbiter/internal/category"
	"github.com/JaimeStill/arbiter/internal/engine"
)

func newCorrectCmd(a *app) *cobra.Command {
	var (
		original   string
		confidence float64
		reviewer   string
		note       string
	)

	cmd := &cobra.Command{
		Use:   "correct <document-id> <category>",
		Short: "Record a reviewer's verdict on an earlier decision",
		Long: `Records the reviewer's category for a document. A category equal to
--original confirms the decision. --confidence is the final confidence the
engine reported for the original decision.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			corrected, err := category.Parse(args[1])
			if err != nil {
				return err
			}
			orig, err := category.Parse(original)
			if err != nil {
				return err
			}

			defer a.close()
			eng, err := a.engine(cmd.Context(), false)
			if err != nil {
				return err
			}

			res, err := eng.SubmitCorrection(cmd.Context(), engine.Correction{
				DocumentID: args[0],
				Original:   orig,
				Corrected:  corrected,
				Confidence: confidence,
				Reviewer:   reviewer,
				Note:       note,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&original, "original", "", "category the engine decided")
	cmd.Flags().Float64Var(&confidence, "confidence", 0, "final confidence of the original decision")
	cmd.Flags().StringVar(&reviewer, "reviewer", os.Getenv("USER"), "reviewer recorded with the correction")
	cmd.Flags().StringVar(&note, "note", "", "reviewer note")
	cmd.MarkFlagRequired("original")
	cmd.MarkFlagRequired("confidence")
	return cmd
}
