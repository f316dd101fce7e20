// Package cli implements funnelctl, the operator CLI for submissions,
// schema migrations and local drafts.
package cli

import (
	"context"

	"tulipai-funnel/internal/admin"
	"tulipai-funnel/internal/models"

	"github.com/spf13/cobra"
)

// Admin is the part of admin.Service the CLI drives.
type Admin interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	UpdateStatus(ctx context.Context, id string, status models.SubmissionStatus) (*models.Submission, error)
	Pipeline(ctx context.Context) (*admin.Pipeline, error)
}

type Migrator interface {
	Up(ctx context.Context) error
	Down(ctx context.Context) error
	Status(ctx context.Context) error
	Version(ctx context.Context) (int64, error)
}

// Backend is what a command needs from the database. Close releases it.
type Backend struct {
	Admin    Admin
	Migrator Migrator
	Close    func() error
}

// Opener connects to the backend described by the config file at path. An
// empty path uses the default config lookup.
type Opener func(ctx context.Context, configPath string) (*Backend, error)

type rootOptions struct {
	configPath string
	open       Opener
}

func (o *rootOptions) withBackend(cmd *cobra.Command, fn func(b *Backend) error) error {
	b, err := o.open(cmd.Context(), o.configPath)
	if err != nil {
		return err
	}
	if b.Close != nil {
		defer b.Close()
	}
	return fn(b)
}

func NewRoot(open Opener) *cobra.Command {
	opts := &rootOptions{open: open}
	root := &cobra.Command{
		Use:           "funnelctl",
		Short:         "Operate the TulipAI funnel: submissions, migrations, drafts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.yaml")

	root.AddCommand(
		ListCmd(opts),
		StatusCmd(opts),
		PipelineCmd(opts),
		MigrateCmd(opts),
		DraftCmd(),
	)
	return root
}
