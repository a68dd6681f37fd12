package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/contactload/internal/config"
	"github.com/JonMunkholm/contactload/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the contacts schema if it does not exist",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := store.Connect(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := store.Migrate(cmd.Context(), pool); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
	return nil
}
