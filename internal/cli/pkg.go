package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stof/internal/manifest"
	"stof/internal/pkg"
)

var pkgCmd = &cobra.Command{
	Use:   "pkg DIR [OUT]",
	Short: "Create a package archive (.pkg) from a package directory",
	Long: `Create a package archive from a directory containing a pkg.stof
manifest. The manifest's include and exclude patterns filter the
archive's contents. Default output path is <DIR>.pkg.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		out := dir
		if len(args) > 1 {
			out = args[1]
		}

		m, err := manifest.Load(dir)
		if err != nil {
			return err
		}

		path, err := pkg.CreateArchiveFile(dir, out, m.Include, m.Exclude)
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", path)
		return nil
	},
}
