package cli

import (
	"github.com/spf13/cobra"

	"stof/internal/pkg"
)

var (
	addDir      string
	addRegistry string
	addUsername string
	addPassword string
)

var addCmd = &cobra.Command{
	Use:   "add PACKAGE",
	Short: "Add a remote package to this workspace",
	Long: `Download a package from a registry defined in the workspace
manifest and place it, with its transitive dependencies, under the
__stof__ directory for "@path" import access. Without --registry the
manifest's default-tagged registry (or its first one) is used.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentialsFromFlags(addUsername, addPassword)
		if err != nil {
			return err
		}

		installer := pkg.NewInstaller(newClient(), logger)
		return installer.Install(cmd.Context(), addDir, args[0], addRegistry, creds)
	},
}

func init() {
	addCmd.Flags().StringVarP(&addDir, "dir", "d", ".", "workspace directory containing pkg.stof")
	addCmd.Flags().StringVarP(&addRegistry, "registry", "r", "", "registry name to download from")
	addCmd.Flags().StringVarP(&addUsername, "username", "u", "", "registry username")
	addCmd.Flags().StringVarP(&addPassword, "password", "p", "", "registry password")
}
