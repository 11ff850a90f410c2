package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/juris/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the case file",
	Long: `Retrieves the passages most relevant to the question and asks every
configured model to answer from them. Each answer cites its sources as
[doc:<id>]; citations to documents that were not retrieved are flagged.

The question is read from standard input when it is not given as arguments.`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Int("top-k", 0, "number of passages to retrieve (default from settings)")
	askCmd.Flags().Float64("min-score", 0, "relevance threshold between -1 and 1 (default from settings)")
	askCmd.Flags().StringSlice("model", nil, "restrict to these models (provider:model)")
	askCmd.Flags().Bool("context", false, "print the retrieved passages")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question, err := readQuestion(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	topK, _ := cmd.Flags().GetInt("top-k")
	models, _ := cmd.Flags().GetStringSlice("model")
	showContext, _ := cmd.Flags().GetBool("context")
	opts := domain.QueryOptions{TopK: topK, Models: models}
	if cmd.Flags().Changed("min-score") {
		minScore, _ := cmd.Flags().GetFloat64("min-score")
		opts.MinScore = &minScore
	}

	return withEngine(cmd.Context(), func(engine *Engine) error {
		result, err := engine.Query.Answer(cmd.Context(), question, opts)
		if result != nil {
			printResult(cmd.OutOrStdout(), result, showContext)
		}
		return err
	})
}

// readQuestion joins the arguments, or reads standard input when it is
// piped.
func readQuestion(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("a question is required")
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("read question: %w", err)
	}
	question := strings.TrimSpace(string(data))
	if question == "" {
		return "", errors.New("a question is required")
	}
	return question, nil
}

func printResult(w io.Writer, result *domain.QueryResult, showContext bool) {
	st := newStyles(w)

	if result.NoContext {
		fmt.Fprintln(w, st.warning.Render("No passage of the case file is relevant to this question."))
		return
	}

	fmt.Fprintln(w, st.title.Render("Sources"))
	best := make(map[string]float64)
	for _, sc := range result.Chunks {
		if sc.Score > best[sc.Chunk.DocumentID] {
			best[sc.Chunk.DocumentID] = sc.Score
		}
	}
	for _, id := range result.DocumentIDs() {
		fmt.Fprintf(w, "  [doc:%s] %s\n", id, st.muted.Render(fmt.Sprintf("%.2f", best[id])))
	}

	if showContext {
		fmt.Fprintln(w)
		fmt.Fprintln(w, st.title.Render("Passages"))
		for _, sc := range result.Chunks {
			fmt.Fprintf(w, "%s %s\n%s\n\n",
				st.heading.Render("[doc:"+sc.Chunk.DocumentID+"]"),
				st.muted.Render(fmt.Sprintf("%.2f", sc.Score)),
				sc.Chunk.Content)
		}
	}

	box := st.box
	if width := boxWidth(w); width > 0 {
		box = box.Width(width)
	}
	for _, answer := range result.Answers {
		fmt.Fprintln(w)
		header := st.heading.Render(answer.Model)
		if answer.Latency > 0 {
			header += st.muted.Render(" " + answer.Latency.Round(10*time.Millisecond).String())
		}
		fmt.Fprintln(w, header)

		if answer.Err != nil {
			fmt.Fprintln(w, st.failure.Render("  failed: "+answer.Err.Error()))
			continue
		}
		fmt.Fprintln(w, box.Render(answer.Text))
		if invalid := answer.InvalidCitations(); len(invalid) > 0 {
			ids := make([]string, len(invalid))
			for i, c := range invalid {
				ids[i] = c.DocumentID
			}
			fmt.Fprintln(w, st.warning.Render("  cites documents that were not retrieved: "+strings.Join(ids, ", ")))
		}
	}
}
