package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/next-exp/g4me_go/pkg/logging"
)

var (
	logger         logging.Logger
	VerbosityLevel int
)

func init() {
	logger = logging.New(slog.LevelDebug)
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "g4me",
		Short:         "detector geometry configuration and event recording",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().IntVarP(&VerbosityLevel, "verbosity", "v", 0, "verbosity level")

	rootCmd.AddCommand(newGeometryCmd(), newRunCmd(), newBatchCmd(), newInspectCmd())

	if err := rootCmd.Execute(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}
