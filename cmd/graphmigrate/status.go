package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dfryer1193/graphmigrate/api"
	"github.com/spf13/cobra"
)

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long:  "Show every migration file and whether it is applied, new, excluded or in conflict with the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			statuses, err := a.manager.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			return printStatus(cmd.OutOrStdout(), statuses)
		},
	}
}

func printStatus(out io.Writer, statuses []api.MigrationStatus) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "VERSION\tFILE\tSTATUS\tCHECKSUM\tAPPLIED AT")
	fmt.Fprintln(w, "-------\t----\t------\t--------\t----------")

	for _, s := range statuses {
		appliedAt := "-"
		if s.AppliedAt != nil {
			appliedAt = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
		}

		checksum := s.Checksum
		if s.State == api.MigrationStateConflict {
			checksum = fmt.Sprintf("%s (recorded %s)", s.Checksum, s.RecordedChecksum)
		}

		fmt.Fprintf(w, "%03d\t%s\t%s\t%s\t%s\n", s.Version, s.FileName, s.State, checksum, appliedAt)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}
