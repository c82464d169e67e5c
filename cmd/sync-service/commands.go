package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"cablesync/internal/constants"
	"cablesync/internal/importer"
	"cablesync/pkg/bootstrap"
	"cablesync/pkg/migrations"
)

// importCmd runs one import from a local file and prints the result as JSON.
// It uses the same stores as the server, so a concurrent import of the same
// scope loses the pointer race instead of forking history.
func importCmd() *cobra.Command {
	var (
		scopeID string
		file    string
		format  string
		note    string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import one snapshot file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadRuntime()
			if err != nil {
				return err
			}
			defer log.Sync()

			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			base := bootstrap.NewBase(cfg, log, constants.ServiceNameSync)
			defer base.Shutdown(context.Background(), nil)

			if err := base.Connect(ctx); err != nil {
				return err
			}
			if err := base.InitProducer(); err != nil {
				return err
			}
			stack, err := base.NewImportStack(ctx)
			if err != nil {
				return err
			}

			result, err := stack.Service.Run(ctx, importer.RunRequest{
				ScopeID: scopeID,
				Source:  data,
				Format:  format,
				Note:    note,
			})
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(result)
		},
	}

	cmd.Flags().StringVar(&scopeID, "scope", "", "Dataset scope to import into (required)")
	cmd.Flags().StringVar(&file, "file", "", "Path to the CSV or XLSX snapshot (required)")
	cmd.Flags().StringVar(&format, "format", "", "Source format (csv or xlsx); detected when empty")
	cmd.Flags().StringVar(&note, "note", "", "Free-text note stored with the import")
	_ = cmd.MarkFlagRequired("scope")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the PostgreSQL schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withDatabase(func(ctx context.Context, base *bootstrap.Base, cmd *cobra.Command, args []string) error {
			if err := migrations.UpPostgres(base.Postgres); err != nil {
				return err
			}
			return printVersion(cmd, base)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Revert applied migrations (default 1)",
		Args:  cobra.MaximumNArgs(1),
		RunE: withDatabase(func(ctx context.Context, base *bootstrap.Base, cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid steps %q: %w", args[0], err)
				}
				steps = n
			}
			if err := migrations.DownPostgres(base.Postgres, steps); err != nil {
				return err
			}
			return printVersion(cmd, base)
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		RunE: withDatabase(func(ctx context.Context, base *bootstrap.Base, cmd *cobra.Command, args []string) error {
			return printVersion(cmd, base)
		}),
	})

	return cmd
}

// withDatabase connects only to Postgres; migrations never touch the optional stores.
func withDatabase(fn func(ctx context.Context, base *bootstrap.Base, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadRuntime()
		if err != nil {
			return err
		}
		defer log.Sync()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		base := bootstrap.NewBase(cfg, log, constants.ServiceNameSync)
		db, err := bootstrap.NewDatabaseConnector(cfg, log).InitPostgreSQL(ctx)
		if err != nil {
			return err
		}
		base.Postgres = db
		defer base.Shutdown(context.Background(), nil)

		return fn(ctx, base, cmd, args)
	}
}

func printVersion(cmd *cobra.Command, base *bootstrap.Base) error {
	version, dirty, err := migrations.PostgresVersion(base.Postgres)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
	return nil
}
