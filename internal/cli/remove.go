package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stof/internal/pkg"
)

var removeDir string

var removeCmd = &cobra.Command{
	Use:   "remove PACKAGE",
	Short: "Remove an installed package from this workspace",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !pkg.Remove(removeDir, args[0]) {
			return fmt.Errorf("failed to remove %s", args[0])
		}
		fmt.Printf("removed %s\n", args[0])
		return nil
	},
}

func init() {
	removeCmd.Flags().StringVarP(&removeDir, "dir", "d", ".", "workspace directory")
}
