package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"library-records/internal/snapshot"
)

func newExportCmd(a *app) *cobra.Command {
	var out string
	var force bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Copy the tables into a SQLite database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.open(); err != nil {
				return err
			}
			defer a.close()

			db, err := snapshot.Open(out)
			if err != nil {
				return err
			}
			defer db.Close()

			res, err := db.Export(cmd.Context(), a.lm, force)
			if err != nil {
				a.logger.Error("export failed", "out", out, "err", err)
				return err
			}
			w := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintf(w, "%s is up to date.\n", out)
				return nil
			}
			fmt.Fprintf(w, "%-10s %-6s %s\n", "Table", "Rows", "Digest")
			for _, s := range res.Sources {
				digest := s.Digest
				if digest == "" {
					digest = "(missing)"
				} else if len(digest) > 16 {
					digest = digest[:16]
				}
				fmt.Fprintf(w, "%-10s %-6d %s\n", s.Name, s.Rows, digest)
			}
			a.logger.Info("exported", "out", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "library.db", "SQLite file to write")
	cmd.Flags().BoolVar(&force, "force", false, "Export even when the tables did not change")
	return cmd
}
