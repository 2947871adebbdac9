// Package cli wires the lakeadvisor commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	// Engine adapters and SQL grammars register themselves on import.
	_ "github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine/doris"
	_ "github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine/mssql"
	_ "github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine/postgres"
	_ "github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine/trino"
	_ "github.com/Vvil1568/lct-hackathone/pkg/sqlast/mysql"
	_ "github.com/Vvil1568/lct-hackathone/pkg/sqlast/postgres"

	"github.com/Vvil1568/lct-hackathone/pkg/config"
	"github.com/Vvil1568/lct-hackathone/pkg/logging"
)

type rootOptions struct {
	configPath string
	logLevel   string
	version    string
}

func newRootCmd(version string) *cobra.Command {
	opts := &rootOptions{version: version}

	root := &cobra.Command{
		Use:          "lakeadvisor",
		Short:        "Data-lake SQL advisor",
		Long:         "Profiles a query workload against a live engine, detects costly patterns and asks a language model for a validated remediation.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (default config.yaml, environment only if absent)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(newVersionCmd(version))
	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newEnginesCmd())

	return root
}

// load reads configuration and builds the logger for a command.
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath, o.version)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	logger, err := logging.NewLogger(cfg.Env, cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "lakeadvisor "+version)
		},
	}
}

// Execute runs the root command.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}
