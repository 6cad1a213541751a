package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stof/internal/pkg"
)

var (
	publishDir      string
	publishRegistry string
	publishUsername string
	publishPassword string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish this package to its manifest's registries",
	Long: `Archive the package and upload it to every registry in the
manifest's publish list, concurrently. With --registry, publish only to
that named registry. Per-registry results are reported; one registry
failing does not stop the others.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentialsFromFlags(publishUsername, publishPassword)
		if err != nil {
			return err
		}

		pub := pkg.NewPublisher(newClient(), logger)
		results, err := pub.Publish(cmd.Context(), publishDir, publishRegistry, creds)
		if err != nil {
			return err
		}
		reportResults(results)
		return nil
	},
}

var unpublishCmd = &cobra.Command{
	Use:   "unpublish",
	Short: "Remove this package from its manifest's registries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := credentialsFromFlags(publishUsername, publishPassword)
		if err != nil {
			return err
		}

		pub := pkg.NewPublisher(newClient(), logger)
		results, err := pub.Unpublish(cmd.Context(), publishDir, publishRegistry, creds)
		if err != nil {
			return err
		}
		reportResults(results)
		return nil
	},
}

func reportResults(results []pkg.PublishResult) {
	for _, res := range results {
		if res.Err != nil {
			fmt.Printf("%s ... error: %v\n", res.URL, res.Err)
		} else {
			fmt.Printf("%s ... %s\n", res.URL, res.Text)
		}
	}
}

func init() {
	for _, cmd := range []*cobra.Command{publishCmd, unpublishCmd} {
		cmd.Flags().StringVarP(&publishDir, "dir", "d", ".", "package directory containing pkg.stof")
		cmd.Flags().StringVarP(&publishRegistry, "registry", "r", "", "publish to this named registry only")
		cmd.Flags().StringVarP(&publishUsername, "username", "u", "", "registry username")
		cmd.Flags().StringVarP(&publishPassword, "password", "p", "", "registry password")
	}
}
