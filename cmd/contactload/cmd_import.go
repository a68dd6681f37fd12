package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/contactload/internal/config"
	"github.com/JonMunkholm/contactload/internal/core"
	"github.com/JonMunkholm/contactload/internal/store"
)

var importFlags struct {
	dryRun bool
	mode   string
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Validate and store the contacts in a CSV file",
	Long: "Read name, telephone and email rows from a CSV file, store the valid\n" +
		"ones and print the batch result as JSON. With --dry-run rows are\n" +
		"validated against an in-memory store and nothing is written.",
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.BoolVar(&importFlags.dryRun, "dry-run", false, "validate without writing to the database")
	f.StringVar(&importFlags.mode, "persist-failure", "", "override PERSIST_FAILURE_MODE (row or abort)")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var (
		cfg *config.Config
		err error
	)
	if importFlags.dryRun {
		cfg, err = config.LoadOffline()
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	modeName := cfg.Process.PersistFailureMode
	if importFlags.mode != "" {
		modeName = importFlags.mode
	}
	mode, err := core.ParsePersistFailureMode(modeName)
	if err != nil {
		return err
	}

	var contacts core.ContactStore
	if importFlags.dryRun {
		contacts = store.NewMemory()
	} else {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		contacts = store.NewPostgres(pool)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer f.Close()

	service := core.NewService(contacts, core.Options{PersistFailure: mode})
	result := service.StoreBatch(ctx, f)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	if result.Failed() {
		return fmt.Errorf("import %s stopped early: %w", args[0], result.Fault)
	}
	return nil
}
