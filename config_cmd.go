package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/gradecal/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Long: `Print the configuration after defaults, the config file, GRADECAL_*
environment variables and command-line flags have been applied.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			if cc.Flags.JSON {
				return writeJSON(os.Stdout, cc.Cfg.Redacted())
			}

			return config.RenderEffective(cc.Cfg, cc.CfgPath, os.Stdout)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location and whether it exists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			_, err := os.Stat(cc.CfgPath)

			switch {
			case err == nil:
				fmt.Println(cc.CfgPath)
			case errors.Is(err, fs.ErrNotExist):
				fmt.Printf("%s (not found, using defaults)\n", cc.CfgPath)
			default:
				return fmt.Errorf("checking %s: %w", cc.CfgPath, err)
			}

			return nil
		},
	})

	return cmd
}
