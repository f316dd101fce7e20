package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"tulipai-funnel/internal/common/logger"
	"tulipai-funnel/internal/funnel/draft"
	"tulipai-funnel/internal/funnel/validate"
	"tulipai-funnel/internal/models"

	"github.com/spf13/cobra"
)

func defaultDraftFile() string {
	return filepath.Join(os.TempDir(), "tulipai_funnel_draft.json")
}

// DraftCmd inspects a file-backed draft, as written by the server with
// funnel.draft_store=file.
func DraftCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Inspect or clear a file-backed wizard draft",
	}
	cmd.PersistentFlags().StringVar(&path, "file", defaultDraftFile(), "Draft file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the draft and the blocking errors of its first step",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := draft.NewFileStore(path, logger.NewNoOpLogger())
			d, ok := store.Load(cmd.Context())
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "no draft")
				return nil
			}

			fmt.Fprintf(out, "step %d (%s)\n", d.CurrentStep, d.CurrentStep.Title())
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(d.FormData); err != nil {
				return err
			}

			errs := validate.Validate(models.StepBusinessInfo, d.FormData)
			fields := make([]string, 0, len(errs))
			for f := range errs {
				fields = append(fields, f)
			}
			sort.Strings(fields)
			for _, f := range fields {
				fmt.Fprintf(out, "invalid %s: %s\n", f, errs[f])
			}
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the draft",
		RunE: func(cmd *cobra.Command, args []string) error {
			draft.NewFileStore(path, logger.NewNoOpLogger()).Clear(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "draft cleared")
			return nil
		},
	}

	cmd.AddCommand(show, clearCmd)
	return cmd
}
