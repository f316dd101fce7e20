package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func MigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the submissions schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withBackend(cmd, func(b *Backend) error {
					if err := b.Migrator.Up(cmd.Context()); err != nil {
						return err
					}
					return printVersion(cmd, b)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withBackend(cmd, func(b *Backend) error {
					if err := b.Migrator.Down(cmd.Context()); err != nil {
						return err
					}
					return printVersion(cmd, b)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show applied migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withBackend(cmd, func(b *Backend) error {
					if err := b.Migrator.Status(cmd.Context()); err != nil {
						return err
					}
					return printVersion(cmd, b)
				})
			},
		},
	)
	return cmd
}

func printVersion(cmd *cobra.Command, b *Backend) error {
	v, err := b.Migrator.Version(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
	return nil
}
