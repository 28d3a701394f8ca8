package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vcf2loc/internal/duckdb"
	"github.com/inodb/vcf2loc/internal/locus"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query the DuckDB catalog of conversion runs",
		Long: `Query the DuckDB catalog written by 'vcf2loc convert --catalog'.
The catalog path comes from --catalog or the catalog.path config key.`,
		Example: `  vcf2loc catalog runs --catalog markers.duckdb
  vcf2loc catalog markers --catalog markers.duckdb <run-id>
  vcf2loc catalog lookup --catalog markers.duckdb rs58108140`,
	}

	cmd.PersistentFlags().String("catalog", "", "DuckDB catalog file")

	cmd.AddCommand(newCatalogRunsCmd())
	cmd.AddCommand(newCatalogMarkersCmd())
	cmd.AddCommand(newCatalogLookupCmd())

	return cmd
}

// openCatalog binds --catalog and opens the configured catalog.
func openCatalog(cmd *cobra.Command) (*duckdb.Store, error) {
	if err := bindFlags(cmd, map[string]string{"catalog.path": "catalog"}); err != nil {
		return nil, err
	}
	path := viper.GetString("catalog.path")
	if path == "" {
		return nil, &usageError{command: "catalog " + cmd.Name(), err: errors.New("--catalog is required")}
	}
	return duckdb.Open(path)
}

func newCatalogRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List recorded conversion runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tINPUT\tOUTPUT\tMARKERS\tSKIPPED\tMISMATCHED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					r.ID, r.StartedAt.Format(time.RFC3339), r.Input.Path, r.Output,
					r.Stats.Emitted, r.Stats.Skipped, r.Stats.Mismatched)
			}
			return tw.Flush()
		},
	}
}

func newCatalogMarkersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "markers <run-id>",
		Short: "Print the marker blocks of a run in .loc format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			markers, err := store.Markers(args[0])
			if err != nil {
				return err
			}
			if len(markers) == 0 {
				return fmt.Errorf("no markers recorded for run %q", args[0])
			}

			w := locus.NewWriter(cmd.OutOrStdout())
			for _, m := range markers {
				if err := w.Write(m.Record); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
}

func newCatalogLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <marker-id>",
		Short: "Show a marker across all recorded runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openCatalog(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			markers, err := store.LookupMarker(args[0])
			if err != nil {
				return err
			}
			if len(markers) == 0 {
				return fmt.Errorf("marker %q not found in catalog", args[0])
			}

			out := cmd.OutOrStdout()
			for _, m := range markers {
				fmt.Fprintf(out, "# run %s\n%s", m.RunID, locus.Format(m.Record))
			}
			return nil
		},
	}
}
