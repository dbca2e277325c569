package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/launchpad-hq/lpcore/migrate"
)

type migrateFlags struct {
	dir        string
	steps      int
	toVersion  int64
	dryRun     bool
	executedBy string
}

func migrateCmd() *cobra.Command {
	flags := &migrateFlags{}
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back, verify, or report the status of core/template migrations",
	}

	cmd.PersistentFlags().StringVar(&flags.dir, "dir", "migrations", "Directory of <version>__<name>.sql migration files")

	cmd.AddCommand(migrateUpCmd(flags))
	cmd.AddCommand(migrateDownCmd(flags))
	cmd.AddCommand(migrateStatusCmd())
	cmd.AddCommand(migrateVerifyCmd(flags))

	return cmd
}

func migrateUpCmd(flags *migrateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMigrateUp(flags)
		},
	}
	cmd.Flags().IntVar(&flags.steps, "steps", 0, "Limit to this many migrations (0 = no limit)")
	cmd.Flags().Int64Var(&flags.toVersion, "to-version", 0, "Stop once this version is applied (0 = no limit)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report what would apply without executing")
	cmd.Flags().StringVar(&flags.executedBy, "executed-by", "", "Identity recorded against each applied migration")
	return cmd
}

func migrateDownCmd(flags *migrateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recently applied migration(s)",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMigrateDown(flags)
		},
	}
	cmd.Flags().IntVar(&flags.steps, "steps", 1, "Number of migrations to roll back")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report what would roll back without executing")
	return cmd
}

func migrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the current version and applied history for a scope",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMigrateStatus()
		},
	}
}

func migrateVerifyCmd(flags *migrateFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check applied checksums against the migration files on disk",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runMigrateVerify(flags)
		},
	}
}

func migrateOptions(flags *migrateFlags) (migrate.Options, error) {
	scope, err := migrateScope()
	if err != nil {
		return migrate.Options{}, err
	}
	return migrate.Options{
		Scope:       scope,
		TemplateKey: flagTemplate,
		Steps:       flags.steps,
		ToVersion:   flags.toVersion,
		DryRun:      flags.dryRun,
		ExecutedBy:  flags.executedBy,
	}, nil
}

func runMigrateUp(flags *migrateFlags) error {
	ctx := cmdContext()
	e, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	files, err := migrate.LoadDir(flags.dir)
	if err != nil {
		return err
	}

	store := migrate.NewSQLStore(e.driver, e.dialect)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring lp_migrations schema: %w", err)
	}

	opts, err := migrateOptions(flags)
	if err != nil {
		return err
	}

	engine := migrate.New(e.driver, e.dialect, store, e.logger)
	results, err := engine.Up(ctx, files, opts)
	for _, r := range results {
		printResult(r)
	}
	return err
}

func runMigrateDown(flags *migrateFlags) error {
	ctx := cmdContext()
	e, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	store := migrate.NewSQLStore(e.driver, e.dialect)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring lp_migrations schema: %w", err)
	}

	opts, err := migrateOptions(flags)
	if err != nil {
		return err
	}

	engine := migrate.New(e.driver, e.dialect, store, e.logger)
	results, err := engine.Down(ctx, opts)
	for _, r := range results {
		printResult(r)
	}
	return err
}

func runMigrateStatus() error {
	ctx := cmdContext()
	e, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	store := migrate.NewSQLStore(e.driver, e.dialect)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring lp_migrations schema: %w", err)
	}

	scope, err := migrateScope()
	if err != nil {
		return err
	}

	engine := migrate.New(e.driver, e.dialect, store, e.logger)
	current, applied, err := engine.Status(migrate.Options{Scope: scope, TemplateKey: flagTemplate})
	if err != nil {
		return err
	}

	fmt.Printf("current version: %d\n", current)
	for _, row := range applied {
		fmt.Printf("  %d  %s  applied %s by %s\n", row.Version, row.Name, row.AppliedAt.Format("2006-01-02 15:04:05"), row.ExecutedBy)
	}
	return nil
}

func runMigrateVerify(flags *migrateFlags) error {
	ctx := cmdContext()
	e, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	files, err := migrate.LoadDir(flags.dir)
	if err != nil {
		return err
	}

	store := migrate.NewSQLStore(e.driver, e.dialect)
	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring lp_migrations schema: %w", err)
	}

	opts, err := migrateOptions(flags)
	if err != nil {
		return err
	}

	engine := migrate.New(e.driver, e.dialect, store, e.logger)
	issues, err := engine.Verify(opts, files)
	if err != nil {
		return err
	}
	if len(issues) == 0 {
		fmt.Println("no issues found")
		return nil
	}
	for _, issue := range issues {
		fmt.Printf("  %d  %s  %s: %s\n", issue.Version, issue.Name, issue.Kind, issue.Detail)
	}
	return fmt.Errorf("found %d issue(s)", len(issues))
}

func printResult(r migrate.Result) {
	status := "ok"
	if !r.Success {
		status = fmt.Sprintf("FAILED: %v", r.Error)
	}
	fmt.Printf("  %d  %s  %s (%s)\n", r.Version, r.Name, status, r.Duration)
}
