package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/juris/internal/core/domain"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities [query]",
	Short: "List the people and organisations cited in the case file",
	Long: `Rebuilds the entity map from the stored summaries and lists every entity
with the documents that cite it. A query filters the list; matching ignores
case and accents.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEntities,
}

var entitiesShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the spellings and mentions of one entity",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntitiesShow,
}

func init() {
	entitiesCmd.AddCommand(entitiesShowCmd)
	rootCmd.AddCommand(entitiesCmd)
}

func runEntities(cmd *cobra.Command, args []string) error {
	if entityService == nil {
		return errors.New("entity service not configured")
	}

	var entities []*domain.Entity
	if len(args) == 1 {
		found, err := entityService.Search(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("search entities: %w", err)
		}
		entities = found
	} else {
		m, err := entityService.Build(cmd.Context())
		if err != nil {
			return fmt.Errorf("build entity map: %w", err)
		}
		for _, key := range m.Keys() {
			entities = append(entities, m.Entities[key])
		}
	}

	if len(entities) == 0 {
		cmd.Println("No entities found.")
		return nil
	}

	st := newStyles(cmd.OutOrStdout())
	for _, e := range entities {
		docs := e.Documents()
		cmd.Printf("%s %s\n", st.heading.Render(e.Name), st.muted.Render("("+plural(len(docs), "document")+")"))
		cmd.Printf("  %s\n", joinOrNone(docs))
	}
	return nil
}

func runEntitiesShow(cmd *cobra.Command, args []string) error {
	if entityService == nil {
		return errors.New("entity service not configured")
	}

	e, err := entityService.Lookup(cmd.Context(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no entity named %q", args[0])
	}
	if err != nil {
		return fmt.Errorf("lookup entity: %w", err)
	}

	st := newStyles(cmd.OutOrStdout())
	cmd.Println(st.title.Render(e.Name))
	cmd.Printf("Spellings: %s\n", joinOrNone(e.Variants))
	cmd.Println()
	for _, m := range e.Mentions {
		cmd.Println(st.heading.Render("[doc:" + m.DocumentID + "]"))
		if m.Excerpt != "" {
			cmd.Printf("  %s\n", m.Excerpt)
		}
	}
	return nil
}
