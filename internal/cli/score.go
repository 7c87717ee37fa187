package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anime-shed/comicvault-grader/internal/analyzer"
)

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score IMAGE...",
		Short: "Print the 0-10 feature score of each image",
		Long: `Print the 0-10 feature score of each image.

The score blends edge strength and mid-tone brightness. Images that cannot be
decoded, or are smaller than 3x3 pixels, score the neutral midpoint.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scorer := analyzer.NewFeatureScorer()
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.1f\n", path, scorer.ScoreBytes(data))
			}
			return nil
		},
	}
}
