package cli

import (
	"github.com/spf13/cobra"

	"stof/internal/client"
	"stof/internal/remote"
)

var (
	setUserPerms int64
	setUserScope string
)

var setUserCmd = &cobra.Command{
	Use:   "set-remote-user SERVER ADMIN_USER ADMIN_PASS USERNAME PASSWORD",
	Short: "Create or update a user on a runner",
	Long: `Create or update a user account on a remote runner. Permissions
are a bitmask over read=1, write=2, delete=4, exec=8; the default of 9
grants read and exec. The scope restricts which registry paths the user
may write or delete, by prefix.`,
	Args: cobra.ExactArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin := remote.NewAdmin(newClient(), logger)
		adminCreds := client.Credentials{Username: args[1], Password: args[2]}
		return admin.SetUser(cmd.Context(), args[0], adminCreds,
			args[3], args[4], remote.Permission(setUserPerms), setUserScope)
	},
}

var deleteUserCmd = &cobra.Command{
	Use:   "delete-remote-user SERVER ADMIN_USER ADMIN_PASS USERNAME",
	Short: "Remove a user on a runner",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		admin := remote.NewAdmin(newClient(), logger)
		adminCreds := client.Credentials{Username: args[1], Password: args[2]}
		return admin.DeleteUser(cmd.Context(), args[0], adminCreds, args[3])
	},
}

func init() {
	setUserCmd.Flags().Int64VarP(&setUserPerms, "perms", "P", int64(remote.DefaultPermissions),
		"permission bitmask (read=1, write=2, delete=4, exec=8)")
	setUserCmd.Flags().StringVarP(&setUserScope, "scope", "s", "", "path scope prefix for writes and deletes")
}
