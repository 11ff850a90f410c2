package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driving"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest the documents of the configured source",
	Long: `Lists the configured source and processes every new or changed document:
OCR, normalisation, summary, chunking and embedding. Unchanged documents are
skipped. Documents removed from the source are pruned when ingest.prune is on.

With --watch, ingest runs once and then again every time the source reports
a change, until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Bool("watch", false, "keep running and ingest again when the source changes")
	ingestCmd.Flags().Int("workers", 0, "documents processed concurrently (default from settings)")
	ingestCmd.Flags().Bool("force", false, "re-process every document, ignoring previous runs")
	ingestCmd.Flags().StringSlice("only", nil, "restrict the run to these document IDs")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	watch, _ := cmd.Flags().GetBool("watch")
	workers, _ := cmd.Flags().GetInt("workers")
	force, _ := cmd.Flags().GetBool("force")
	only, _ := cmd.Flags().GetStringSlice("only")

	out := cmd.OutOrStdout()
	st := newStyles(out)

	var mu sync.Mutex
	opts := driving.IngestOptions{
		Workers: workers,
		Force:   force,
		Only:    only,
		OnOutcome: func(o domain.IngestOutcome) {
			mu.Lock()
			defer mu.Unlock()
			printOutcome(out, st, o)
		},
	}

	return withEngine(cmd.Context(), func(engine *Engine) error {
		if !watch {
			report, err := engine.Runner.RunOnce(cmd.Context(), opts)
			if report != nil {
				printReport(out, st, report)
			}
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if n := report.Count(domain.IngestFailed); n > 0 {
				return fmt.Errorf("ingest: %s failed", plural(n, "document"))
			}
			return nil
		}

		if engine.Watcher == nil {
			return fmt.Errorf("the configured source cannot be watched: %w", domain.ErrUnsupportedType)
		}
		triggers, err := engine.Watcher.Watch(cmd.Context())
		if err != nil {
			return fmt.Errorf("watch source: %w", err)
		}
		fmt.Fprintln(out, st.muted.Render("Watching for changes, press Ctrl+C to stop."))
		return engine.Runner.Watch(cmd.Context(), triggers, opts)
	})
}

func printOutcome(w io.Writer, st styles, o domain.IngestOutcome) {
	name := o.Name
	if name == "" {
		name = o.DocumentID
	}
	line := fmt.Sprintf("%-8s %s", st.status(o.Status), name)
	switch {
	case o.Status == domain.IngestFailed && o.Err != nil:
		line += st.failure.Render(": " + o.Err.Error())
	case o.Status == domain.IngestSuccess:
		detail := plural(o.Chunks, "chunk")
		if o.SummaryReused {
			detail += ", summary reused"
		}
		if o.EmbeddingReused {
			detail += ", embeddings reused"
		}
		line += st.muted.Render(fmt.Sprintf(" (%s, %s)", detail, o.Duration.Round(time.Millisecond)))
	}
	fmt.Fprintln(w, line)
}

func printReport(w io.Writer, st styles, r *domain.BatchReport) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s from %s in %s\n",
		st.title.Render("Run"), r.RunID, r.Source, r.Finished.Sub(r.Started).Round(time.Millisecond))
	fmt.Fprintf(w, "  %d succeeded, %d skipped, %d failed, %d removed\n",
		r.Count(domain.IngestSuccess), r.Count(domain.IngestSkipped),
		r.Count(domain.IngestFailed), r.Count(domain.IngestRemoved))
	if r.Cancelled {
		fmt.Fprintln(w, st.warning.Render("  cancelled before every document was processed"))
	}
}
