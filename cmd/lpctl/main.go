// Package main is lpctl, a thin cobra wrapper proving the library wires
// together end to end. It is deliberately minimal: no shell completion,
// no interactive prompts, no config-file discovery beyond what config.Load
// already does.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/launchpad-hq/lpcore/dialect/mysql"
	_ "github.com/launchpad-hq/lpcore/dialect/postgres"
	_ "github.com/launchpad-hq/lpcore/dialect/sqlite"
	_ "github.com/launchpad-hq/lpcore/introspect/mysql"
	_ "github.com/launchpad-hq/lpcore/introspect/postgres"
	_ "github.com/launchpad-hq/lpcore/introspect/sqlite"
)

var (
	flagDSN       string
	flagDialect   string
	flagConfig    string
	flagScope     string
	flagTemplate  string
	flagAppID     string
	flagNamespace string
)

func newLogger() *zap.Logger {
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "lpctl",
		Short: "Launchpad core convenience CLI",
	}

	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "", "Database connection string (required)")
	rootCmd.PersistentFlags().StringVar(&flagDialect, "dialect", "postgres", "Database dialect: postgres, mysql, or sqlite")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a JSON config file (optional; env vars and defaults still apply)")
	rootCmd.PersistentFlags().StringVar(&flagScope, "scope", "core", "Migration scope: core or template")
	rootCmd.PersistentFlags().StringVar(&flagTemplate, "template-key", "", "Template key when --scope=template")
	rootCmd.PersistentFlags().StringVar(&flagAppID, "app-id", "", "Application id for schema registry / sync operations")
	rootCmd.PersistentFlags().StringVar(&flagNamespace, "namespace", "public", "Database namespace/schema")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(schemaCmd())
	rootCmd.AddCommand(branchCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
