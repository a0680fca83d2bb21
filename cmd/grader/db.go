package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"aigrader/internal/database"
	"aigrader/internal/database/migration"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	Long: `Migrate creates or upgrades the users and comparisons tables. Running it
against an up-to-date database is a no-op.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		db, err := database.NewPostgres(cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()

		return migration.Run(db, log)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify database connectivity and schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		log, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		db, err := database.NewPostgres(cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()

		status, err := migration.CheckSchema(cmd.Context(), db)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "database: %s\n", database.RedactedDSN(cfg.Database))
		tables := make([]string, 0, len(status.Tables))
		for t := range status.Tables {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			state := "ok"
			if !status.Tables[t] {
				state = "MISSING"
			}
			fmt.Fprintf(out, "table %-12s %s\n", t, state)
		}
		if !status.Ready() {
			log.Warn("schema incomplete", zap.Strings("missing", status.Missing))
			return fmt.Errorf("schema incomplete: run 'grader migrate'")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd, checkCmd)
}
