package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"stof/internal/config"
	"stof/internal/engine"
	"stof/internal/remote"
)

var (
	runOn         string
	runRemoteFlag bool
	runParseLocal bool
	runUsername   string
	runPassword   string
)

var runCmd = &cobra.Command{
	Use:   "run [path]",
	Short: "Run a file or package, locally or on a remote runner",
	Long: `Run a file or package directory. With --on (or --remote), the unit
of work is shipped to a runner's /run endpoint; the result document is
decoded and any functions the runner tagged "local" are invoked here.

With --parse-local the file is decoded on this side first and sent in
the binary document form.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		creds, err := credentialsFromFlags(runUsername, runPassword)
		if err != nil {
			return err
		}

		address := runOn
		if address == "" && runRemoteFlag {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Runner == "" {
				return fmt.Errorf("no default runner configured in config.toml")
			}
			address = cfg.Runner
		}

		eng := engine.NewHost(logger)

		if address != "" {
			runner := remote.NewRunner(newClient(), eng, logger)
			if runParseLocal {
				doc, err := decodeLocal(eng, path)
				if err != nil {
					return err
				}
				return runner.RunDocument(cmd.Context(), address, doc, creds)
			}
			return runner.Run(cmd.Context(), address, path, creds)
		}

		// Local run: decode the unit and dispatch its main-tagged
		// functions through the engine.
		doc, err := decodeLocal(eng, path)
		if err != nil {
			return err
		}
		for _, fn := range doc.Functions() {
			if !fn.HasAttribute("main") {
				continue
			}
			if err := eng.Call(cmd.Context(), fn); err != nil {
				logger.Error("run", "function", fn.Name, "err", err)
			}
		}
		return nil
	},
}

// decodeLocal reads a file and decodes it with its extension as the
// format tag. Package directories need a full engine on the other side.
func decodeLocal(eng engine.Engine, path string) (*engine.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("parse error %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("package directories can only run remotely; pass --on ADDRESS")
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return nil, fmt.Errorf("parse error %s: cannot determine format from extension", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse error %s: %w", path, err)
	}
	return eng.Decode(data, ext)
}

func init() {
	runCmd.Flags().StringVarP(&runOn, "on", "o", "", "run on a remote runner at this address")
	runCmd.Flags().BoolVar(&runRemoteFlag, "remote", false, "run on the runner configured in config.toml")
	runCmd.Flags().BoolVarP(&runParseLocal, "parse-local", "l", false, "decode locally before sending")
	runCmd.Flags().StringVarP(&runUsername, "username", "u", "", "remote username")
	runCmd.Flags().StringVarP(&runPassword, "password", "p", "", "remote password")
}
