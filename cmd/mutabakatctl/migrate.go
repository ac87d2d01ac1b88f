package main

import (
	"fmt"

	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/app"
	"github.com/bakiucartasarim/iletigo-mutabakat-sub000/cmd/internal/reconlink"

	"github.com/spf13/cobra"
)

func migrateCmd(g *globals) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the link tables if they do not exist",
		Long: `Create the companies, reconciliations, records, links and link events tables.

The statements are idempotent and safe to run on every deploy.

Examples:
  mutabakatctl migrate
  mutabakatctl migrate --schema staging --print`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if printOnly {
				schema := g.schema
				if schema == "" {
					schema = app.LoadConfig().DBSchema
				}
				fmt.Fprintln(cmd.OutOrStdout(), reconlink.SchemaSQL(schema))
				return nil
			}

			e, err := openEnv(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer e.close()

			if err := reconlink.ApplySchema(cmd.Context(), e.pool, e.cfg.DBSchema); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema %q is up to date\n", e.cfg.DBSchema)
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "print the DDL instead of applying it")
	return cmd
}
