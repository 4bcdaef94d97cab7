package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newMigrateCmd(app *cliApp) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn := app.cfg.Database.ConnString()
			if err := app.deps.migrateUp(conn); err != nil {
				return err
			}
			return printVersion(cmd, app, conn)
		},
	}

	var (
		steps int
		yes   bool
	)
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert migrations",
		Long: `Revert the given number of migrations, or all of them when --steps is 0.
WARNING: reverting drops tables and their data.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("migrate down drops data, re-run with --yes to confirm")
			}
			conn := app.cfg.Database.ConnString()
			if err := app.deps.migrateDown(conn, steps); err != nil {
				return err
			}
			return printVersion(cmd, app, conn)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert (0 = all)")
	down.Flags().BoolVar(&yes, "yes", false, "confirm the destructive operation")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printVersion(cmd, app, app.cfg.Database.ConnString())
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func printVersion(cmd *cobra.Command, app *cliApp, conn string) error {
	v, dirty, err := app.deps.schemaVersion(conn)
	if err != nil {
		return errors.Wrap(err, "read schema version")
	}
	out := cmd.OutOrStdout()
	if dirty {
		printWarn(out, "schema version %d (dirty)", v)
		return nil
	}
	printSuccess(out, "schema version %d", v)
	return nil
}
