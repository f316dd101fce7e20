package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"tulipai-funnel/internal/models"
	"tulipai-funnel/internal/submission"

	"github.com/spf13/cobra"
)

func ListCmd(opts *rootOptions) *cobra.Command {
	var (
		filter models.SubmissionFilter
		status string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List submissions",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter.Status = models.SubmissionStatus(status)
			if filter.Status != "" && !filter.Status.Valid() {
				return fmt.Errorf("%w: %q", submission.ErrInvalidStatus, status)
			}
			return opts.withBackend(cmd, func(b *Backend) error {
				subs, err := b.Admin.List(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(subs)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tSUBMITTED\tSTATUS\tCOMPANY\tEMAIL\tBUDGET")
				for _, s := range subs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n",
						s.ID, s.SubmittedAt.Format("2006-01-02"), s.Status, s.CompanyName, s.Email, s.BudgetValue())
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (new, in_progress, proposal_sent, closed)")
	cmd.Flags().StringVarP(&filter.Query, "query", "q", "", "Search company, contact and email")
	cmd.Flags().StringVar(&filter.SortKey, "sort", "submittedAt", "Sort key")
	cmd.Flags().BoolVar(&filter.Ascending, "asc", false, "Sort ascending")
	cmd.Flags().IntVar(&filter.Limit, "limit", 50, "Maximum rows")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func StatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a submission to another pipeline status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := models.SubmissionStatus(args[1])
			if !status.Valid() {
				return fmt.Errorf("%w: %q", submission.ErrInvalidStatus, args[1])
			}
			return opts.withBackend(cmd, func(b *Backend) error {
				sub, err := b.Admin.UpdateStatus(cmd.Context(), args[0], status)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", sub.ID, sub.Status)
				return nil
			})
		},
	}
}

func PipelineCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "pipeline",
		Aliases: []string{"stats"},
		Short:   "Show pipeline figures",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withBackend(cmd, func(b *Backend) error {
				p, err := b.Admin.Pipeline(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "total\t%d\n", p.Total)
				for _, st := range models.AllStatuses {
					fmt.Fprintf(out, "%s\t%d\n", st, p.ByStatus[st])
				}
				fmt.Fprintf(out, "conversion\t%.1f%%\n", p.ConversionRate)
				fmt.Fprintf(out, "avg days to proposal\t%.1f\n", p.AvgDaysToProposal)
				fmt.Fprintf(out, "pipeline value\t%d\n", p.PipelineValue)
				return nil
			})
		},
	}
}
