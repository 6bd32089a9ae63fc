// Package cmd implements the og-prerender command-line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	infraconfig "github.com/originesmedia/og-prerender/infrastructure/config"
)

// configPath holds the --config flag.
var configPath string

// NewRootCommand builds the command tree. Running the root command without a
// subcommand starts the server.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "og-prerender",
		Short:        "Serves social-crawler previews for the Origines SPA",
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.PersistentFlags().StringVar(
		&configPath,
		"config",
		infraconfig.GetConfigPath("config.yml"),
		"config file (CONFIG_PATH overrides the default)",
	)

	root.AddCommand(newServeCommand())
	root.AddCommand(newRenderCommand())
	root.AddCommand(newVersionCommand())

	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().ExecuteContext(context.Background())
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the configured service version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", cfg.Service.Name, cfg.Service.Version)
			return err
		},
	}
}
