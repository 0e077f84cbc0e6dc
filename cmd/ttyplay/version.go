package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/ttyplay/internal/version"
)

func newVersionCmd() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if long {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Read())
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.Module(), version.Current())
			return err
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "include VCS revision and Go version")
	return cmd
}
