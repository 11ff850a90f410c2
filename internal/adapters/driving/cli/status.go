package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/juris/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the index state and recent runs",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var forgetCmd = &cobra.Command{
	Use:   "forget <document-id>...",
	Short: "Remove documents from the index",
	Long: `Deletes the chunks, summary and ingestion record of each document.
A document still present in the source is processed again by the next
ingestion run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runForget,
}

func init() {
	statusCmd.Flags().Bool("documents", false, "list every ingested document")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(forgetCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusService == nil {
		return errors.New("status service not configured")
	}
	showDocs, _ := cmd.Flags().GetBool("documents")

	status, err := statusService.Status(cmd.Context())
	if err != nil {
		return err
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.title.Render("Index"))
	if status.Model == "" {
		cmd.Println("  Embedding model: (not bound yet)")
	} else {
		cmd.Printf("  Embedding model: %s (%d dimensions)\n", status.Model, status.Dimensions)
	}
	cmd.Printf("  Documents: %d ingested, %d with chunks\n", status.Documents, status.Index.Documents)
	cmd.Printf("  Chunks: %d\n", status.Index.Chunks)
	cmd.Printf("  Summaries: %d\n", status.Summaries)
	cmd.Printf("  Last success: %s\n", formatTime(status.LastSuccess))

	if len(status.Index.ByType) > 0 {
		types := make([]string, 0, len(status.Index.ByType))
		for t := range status.Index.ByType {
			types = append(types, string(t))
		}
		sort.Strings(types)
		cmd.Println()
		cmd.Println(st.title.Render("Document types"))
		for _, t := range types {
			cmd.Printf("  %-15s %d\n", t, status.Index.ByType[domain.DocumentType(t)])
		}
	}

	if len(status.Runs) > 0 {
		cmd.Println()
		cmd.Println(st.title.Render("Recent runs"))
		for _, r := range status.Runs {
			line := fmt.Sprintf("  %s  %s  %d ok, %d skipped, %d failed, %d removed",
				formatTime(r.Started), r.Source, r.Succeeded, r.Skipped, r.Failed, r.Removed)
			switch {
			case r.Error != "":
				line += st.failure.Render("  " + r.Error)
			case r.Cancelled:
				line += st.warning.Render("  cancelled")
			}
			cmd.Println(line)
		}
	}

	if showDocs {
		cmd.Println()
		cmd.Println(st.title.Render("Documents"))
		for _, wm := range status.Watermarks {
			cmd.Printf("  %s  %s  %s\n", wm.DocumentID,
				st.muted.Render(plural(wm.ChunkCount, "chunk")), formatTime(wm.LastSuccess))
		}
	}
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	if statusService == nil {
		return errors.New("status service not configured")
	}

	var errs []error
	for _, id := range args {
		if err := statusService.Forget(cmd.Context(), id); err != nil {
			errs = append(errs, err)
			continue
		}
		cmd.Printf("Forgot %s\n", id)
	}
	return errors.Join(errs...)
}
