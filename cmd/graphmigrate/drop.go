package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func dropCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "drop",
		Short: "Drop the configured graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.schema.Drop(cmd.Context()); err != nil {
				return fmt.Errorf("failed to drop graph %s: %w", a.schema.Name(), err)
			}
			return nil
		},
	}
}
