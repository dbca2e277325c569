package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/launchpad-hq/lpcore/config"
	"github.com/launchpad-hq/lpcore/sync"
)

type schemaFlags struct {
	env    string
	force  bool
	dryRun bool
	format string
}

func schemaCmd() *cobra.Command {
	flags := &schemaFlags{}
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Diff, pull, and push the local schema against the project's remote authority",
	}

	cmd.PersistentFlags().StringVar(&flags.env, "env", "development", "Remote environment name")

	cmd.AddCommand(schemaDiffCmd(flags))
	cmd.AddCommand(schemaPullCmd(flags))
	cmd.AddCommand(schemaPushCmd(flags))

	return cmd
}

func newSyncService(e *env) (*sync.Service, error) {
	if flagAppID == "" {
		return nil, fmt.Errorf("--app-id is required")
	}

	creds, err := config.LoadCredentials(e.cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	remote := sync.NewRemote(sync.RemoteConfig{
		BaseURL:   e.cfg.Remote.BaseURL,
		ProjectID: e.cfg.Remote.ProjectID,
		Token:     creds.Token,
		Retries:   e.cfg.Remote.Retries,
		CacheTTL:  e.cfg.Remote.CacheTTL,
	})

	metadata := sync.NewSQLStore(e.driver, e.dialect)
	if err := metadata.EnsureSchema(cmdContext()); err != nil {
		return nil, fmt.Errorf("ensuring lp_sync_metadata schema: %w", err)
	}

	return sync.NewService(sync.Config{
		AppID: flagAppID, Namespace: flagNamespace, Remote: remote,
		Introspecter: e.introspecter, Driver: e.driver, Dialect: e.dialect,
		Metadata: metadata, Logger: e.logger,
	}), nil
}

func schemaDiffCmd(flags *schemaFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Show the structural diff between local and remote schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := cmdContext()
			e, err := setupEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := newSyncService(e)
			if err != nil {
				return err
			}
			out, err := svc.Diff(ctx, flags.env, sync.Format(flags.format))
			if err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.format, "format", string(sync.FormatJSON), "Output format: text, json or sql")
	return cmd
}

func schemaPullCmd(flags *schemaFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Converge the local database onto the remote schema",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := cmdContext()
			e, err := setupEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := newSyncService(e)
			if err != nil {
				return err
			}
			result, err := svc.Pull(ctx, flags.env, flags.force, flags.dryRun)
			if err != nil {
				return err
			}
			fmt.Printf("applied: %v, changes: %d\n", result.Applied, len(result.Diff.Changes))
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.force, "force", false, "Apply even if the pull includes breaking changes")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report the pull without applying it")
	return cmd
}

func schemaPushCmd(flags *schemaFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Publish the local schema to the remote authority",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := cmdContext()
			e, err := setupEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()

			svc, err := newSyncService(e)
			if err != nil {
				return err
			}
			outcome, err := svc.Push(ctx, flags.env, flags.force, flags.dryRun)
			if err != nil {
				return err
			}
			fmt.Printf("%+v\n", outcome)
			return nil
		},
	}
	cmd.Flags().BoolVar(&flags.force, "force", false, "Push even if the push includes breaking changes")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report the push without applying it")
	return cmd
}
