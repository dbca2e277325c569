package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/launchpad-hq/lpcore/branch"
	"github.com/launchpad-hq/lpcore/migrate"
)

type branchFlags struct {
	parent         string
	copyData       bool
	piiMasking     bool
	protected      bool
	autoDeleteDays int
	gitRef         string
	pullRequestURL string
	force          bool
	dryRun         bool
	deleteSource   bool
	maxAgeDays     int
	skipProtected  bool
	branchPrefix   string
	mainNamespace  string
}

func branchCmd() *cobra.Command {
	flags := &branchFlags{}
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Create, switch, diff, merge, delete, and clean up schema branches (Postgres only)",
	}

	cmd.PersistentFlags().StringVar(&flags.branchPrefix, "branch-prefix", "br_", "Namespace prefix for created branches")
	cmd.PersistentFlags().StringVar(&flags.mainNamespace, "main-namespace", "public", "Namespace branches clone from by default")

	cmd.AddCommand(branchCreateCmd(flags))
	cmd.AddCommand(branchSwitchCmd())
	cmd.AddCommand(branchDiffCmd())
	cmd.AddCommand(branchMergeCmd(flags))
	cmd.AddCommand(branchDeleteCmd(flags))
	cmd.AddCommand(branchCleanupCmd(flags))

	return cmd
}

func branchEngine(e *env, flags *branchFlags) *branch.Engine {
	store := branch.NewSQLStore(e.driver, e.dialect)
	history := migrate.NewSQLStore(e.driver, e.dialect)
	cfg := branch.Config{BranchPrefix: flags.branchPrefix, MainNamespace: flags.mainNamespace}
	return branch.New(e.driver, e.dialect, e.introspecter, store, history, cfg, e.logger)
}

func ensureBranchSchema(e *env) error {
	store := branch.NewSQLStore(e.driver, e.dialect)
	return store.EnsureSchema(cmdContext())
}

func branchCreateCmd(flags *branchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a branch by cloning a parent namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBranchCreate(args[0], flags)
		},
	}
	cmd.Flags().StringVar(&flags.parent, "parent", "", "Parent branch slug (empty clones main-namespace)")
	cmd.Flags().BoolVar(&flags.copyData, "copy-data", false, "Copy table data in addition to structure")
	cmd.Flags().BoolVar(&flags.piiMasking, "pii-masking", false, "Mask PII columns while copying data")
	cmd.Flags().BoolVar(&flags.protected, "protected", false, "Exempt the branch from cleanup sweeps")
	cmd.Flags().IntVar(&flags.autoDeleteDays, "auto-delete-days", 0, "Auto-delete days recorded in the branch metadata (cleanup uses --max-age-days, not this value)")
	cmd.Flags().StringVar(&flags.gitRef, "git-ref", "", "Associated git ref")
	cmd.Flags().StringVar(&flags.pullRequestURL, "pull-request-url", "", "Associated pull request URL")
	return cmd
}

func runBranchCreate(name string, flags *branchFlags) error {
	ctx := cmdContext()
	e, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	if err := ensureBranchSchema(e); err != nil {
		return err
	}

	engine := branchEngine(e, flags)
	b, err := engine.Create(ctx, branch.CreateOptions{
		Name: name, ParentSlug: flags.parent, CopyData: flags.copyData, PIIMasking: flags.piiMasking,
		Protected: flags.protected, AutoDeleteDays: flags.autoDeleteDays, GitRef: flags.gitRef, PullRequestURL: flags.pullRequestURL,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created branch %q (namespace %s)\n", b.Slug, b.Namespace)
	return nil
}

func branchSwitchCmd() *cobra.Command {
	flags := &branchFlags{}
	return &cobra.Command{
		Use:   "switch <slug>",
		Short: "Touch a branch's last-accessed time and print its connection info",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := cmdContext()
			e, err := setupEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()
			if err := ensureBranchSchema(e); err != nil {
				return err
			}
			engine := branchEngine(e, flags)
			result, err := engine.Switch(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("search_path: %s\nschema: %s\nconnection: %s\n", result.SearchPath, result.SchemaName, result.ConnectionString)
			return nil
		},
	}
}

func branchDiffCmd() *cobra.Command {
	flags := &branchFlags{}
	return &cobra.Command{
		Use:   "diff <source> <target>",
		Short: "Diff two branch namespaces",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := cmdContext()
			e, err := setupEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()
			if err := ensureBranchSchema(e); err != nil {
				return err
			}
			engine := branchEngine(e, flags)
			result, err := engine.Diff(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("%d change(s), %d conflict(s), can auto-merge: %v\n", len(result.Changes), len(result.Conflicts), result.CanAutoMerge)
			for _, c := range result.Conflicts {
				fmt.Printf("  conflict: %s on %s: %s\n", c.Kind, c.Table, c.Detail)
			}
			return nil
		},
	}
}

func branchMergeCmd(flags *branchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <source> <target>",
		Short: "Merge source branch's structural changes onto target",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return runBranchMerge(args[0], args[1], flags)
		},
	}
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report the merge without applying it")
	cmd.Flags().BoolVar(&flags.deleteSource, "delete-source", false, "Delete the source branch after a successful merge")
	return cmd
}

func runBranchMerge(source, target string, flags *branchFlags) error {
	ctx := cmdContext()
	e, err := setupEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()
	if err := ensureBranchSchema(e); err != nil {
		return err
	}

	engine := branchEngine(e, flags)
	result, err := engine.Merge(ctx, source, target, branch.MergeOptions{DryRun: flags.dryRun, DeleteSource: flags.deleteSource})
	if err != nil {
		return err
	}
	fmt.Printf("success: %v, migrations applied: %d, conflicts: %d\n", result.Success, result.MigrationsApplied, len(result.Conflicts))
	return nil
}

func branchDeleteCmd(flags *branchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <slug>",
		Short: "Delete a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx := cmdContext()
			e, err := setupEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()
			if err := ensureBranchSchema(e); err != nil {
				return err
			}
			engine := branchEngine(e, flags)
			return engine.Delete(ctx, args[0], flags.force)
		},
	}
	cmd.Flags().BoolVar(&flags.force, "force", false, "Delete even if the branch is protected")
	return cmd
}

func branchCleanupCmd(flags *branchFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete branches not accessed within --max-age-days",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := cmdContext()
			e, err := setupEnv(ctx)
			if err != nil {
				return err
			}
			defer e.close()
			if err := ensureBranchSchema(e); err != nil {
				return err
			}
			engine := branchEngine(e, flags)
			result, err := engine.Cleanup(ctx, branch.CleanupOptions{MaxAgeDays: flags.maxAgeDays, SkipProtected: flags.skipProtected})
			if err != nil {
				return err
			}
			fmt.Printf("deleted: %v\nskipped: %v\n", result.Deleted, result.Skipped)
			return nil
		},
	}
	cmd.Flags().IntVar(&flags.maxAgeDays, "max-age-days", 14, "Delete branches last accessed more than this many days ago")
	cmd.Flags().BoolVar(&flags.skipProtected, "skip-protected", true, "Never delete protected branches")
	return cmd
}
