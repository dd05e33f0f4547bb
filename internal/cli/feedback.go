package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	feedbackText     string
	feedbackCategory string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Incorporate a classification correction",
	Long: `Record that a review belongs in a given category. The text becomes a new
exemplar of that category (creating it when absent) and the vector index is
updated, so similar reviews classify correctly from now on.

Example:
  reviewcat feedback -t "App crashed on payment" -c "App issues"`,
	RunE: runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
	feedbackCmd.Flags().StringVarP(&feedbackText, "text", "t", "", "review text (required)")
	feedbackCmd.Flags().StringVarP(&feedbackCategory, "category", "c", "", "corrected category (required)")
	feedbackCmd.MarkFlagRequired("text")
	feedbackCmd.MarkFlagRequired("category")
}

func runFeedback(cmd *cobra.Command, args []string) error {
	cat, cleanup, err := buildCategorizer()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := cat.IncorporateCorrection(context.Background(), feedbackText, feedbackCategory); err != nil {
		return fmt.Errorf("failed to incorporate correction: %w", err)
	}

	fmt.Printf("Recorded %q as an exemplar of %q.\n", feedbackText, feedbackCategory)
	return nil
}
