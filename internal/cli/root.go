// Package cli wires the stof commands: local and remote run, package
// archive creation, dependency add/remove, publish/unpublish, and
// remote user administration.
package cli

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// Version is set via -ldflags at build time.
var Version = "dev"

var (
	verbose bool

	logger = log.NewWithOptions(os.Stderr, log.Options{})
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stof",
	Short: "Package distribution and remote execution for stof",
	Long: `stof resolves named packages against registries, installs
dependencies into a workspace, publishes package archives, and runs
files or whole packages on remote runners.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logger.SetLevel(log.DebugLevel)
		}
	},
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(Version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(pkgCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(unpublishCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(setUserCmd)
	rootCmd.AddCommand(deleteUserCmd)
}
