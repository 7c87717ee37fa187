package cli

import (
	"github.com/spf13/cobra"

	"github.com/anime-shed/comicvault-grader/internal/config"
	"github.com/anime-shed/comicvault-grader/internal/logger"
)

// Version is stamped at build time
var Version = "dev"

// NewRootCmd assembles the comicgrade command tree. Flag defaults come from
// the environment and an optional .env file.
func NewRootCmd() *cobra.Command {
	tool, err := config.LoadToolFromEnv()
	return newRootCmd(tool, err)
}

func newRootCmd(tool *config.Tool, loadErr error) *cobra.Command {
	if tool == nil {
		tool = &config.Tool{}
	}
	logLevel := tool.LogLevel

	root := &cobra.Command{
		Use:     "comicgrade",
		Version: Version,
		Short:   "Grade comic books from front and back photographs",
		Long: `comicgrade estimates the condition of a comic book from two photographs.

It collects a strict and a lenient opinion, merges them into five subgrades
(corners, spine, surface, centering, color), and reports a weighted final
grade on the 0.5-10 scale together with a confidence value.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if loadErr != nil {
				return loadErr
			}
			logger.SetOutput(cmd.ErrOrStderr())
			logger.SetFormat("text")
			logger.SetLevel(logLevel)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newGradeCmd(tool.Provider), newScoreCmd())
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
