package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/juris/internal/core/domain"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <document-id>",
	Short: "Show the stored summary of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	if statusService == nil {
		return errors.New("status service not configured")
	}

	summary, err := statusService.Summary(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no summary for %q, run 'juris ingest' first", args[0])
	}
	if err != nil {
		return err
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.title.Render(summary.DocumentID))
	cmd.Println(st.muted.Render(fmt.Sprintf("%s, %s", summary.Model, formatTime(summary.CreatedAt))))
	cmd.Println()

	cmd.Println(st.heading.Render("Parties"))
	if len(summary.Parties) == 0 {
		cmd.Println("  (none)")
	}
	for _, p := range summary.Parties {
		cmd.Printf("  - %s\n", p)
	}
	cmd.Println()

	cmd.Println(st.heading.Render("Essential facts"))
	cmd.Println(summary.EssentialFacts)
	cmd.Println()

	cmd.Println(st.heading.Render("Inconsistencies"))
	if summary.Inconsistencies == "" {
		cmd.Println("(none)")
	} else {
		cmd.Println(summary.Inconsistencies)
	}

	if len(summary.Sourcing) > 0 {
		cmd.Println()
		cmd.Println(st.heading.Render("Sourcing"))
		keys := make([]string, 0, len(summary.Sourcing))
		for k := range summary.Sourcing {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Printf("  %s: %s\n", k, summary.Sourcing[k])
		}
	}
	return nil
}
