package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/juris/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change the settings stored in ~/.juris/config.toml.

API keys set in the environment (OPENAI_API_KEY, ANTHROPIC_API_KEY,
GEMINI_API_KEY, MISTRAL_API_KEY) or in a .env file take precedence over
stored keys.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a setting",
	Long: `Set one setting. Lists are comma separated.

Examples:
  juris settings set source.kind filesystem
  juris settings set source.path ~/dossiers/affaire-durand
  juris settings set embedding.provider openai
  juris settings set llm.models openai:gpt-4o-mini,anthropic:claude-sonnet-4-5
  juris settings set ocr.provider vision
  juris settings set ingest.workers 8`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a setting so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key <provider>",
	Short: "Store the API key of a provider",
	Long: `Prompts for the API key of a provider (openai, anthropic, gemini,
mistral) without echoing it, and stores it in the configuration file.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSetKey,
}

var settingsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate settings and ping every provider",
	Args:  cobra.NoArgs,
	RunE:  runSettingsCheck,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsUnsetCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsCheckCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	st := newStyles(cmd.OutOrStdout())

	cmd.Println(st.title.Render("[Source]"))
	cmd.Printf("  Kind: %s\n", settings.Source.Kind)
	switch settings.Source.Kind {
	case domain.SourceKindGDrive:
		cmd.Printf("  Folders: %s\n", joinOrNone(settings.Source.FolderIDs))
		cmd.Printf("  Credentials: %s\n", orNotSet(settings.Source.CredentialsFile))
		if settings.Source.ClientID != "" {
			cmd.Printf("  Client ID: %s\n", settings.Source.ClientID)
		}
	default:
		cmd.Printf("  Path: %s\n", orNotSet(settings.Source.Path))
	}
	cmd.Printf("  Extensions: %s\n", joinOrNone(settings.Source.Extensions))
	cmd.Println()

	cmd.Println(st.title.Render("[OCR]"))
	cmd.Printf("  Provider: %s\n", settings.OCR.Provider)
	if settings.OCR.HTTPURL != "" {
		cmd.Printf("  HTTP service: %s\n", settings.OCR.HTTPURL)
	}
	if settings.OCR.CredentialsFile != "" {
		cmd.Printf("  Vision credentials: %s\n", settings.OCR.CredentialsFile)
	}
	cmd.Printf("  Languages: %s\n", joinOrNone(settings.OCR.LanguageHints))
	cmd.Println()

	cmd.Println(st.title.Render("[Embedding]"))
	cmd.Printf("  Provider: %s\n", orNotSet(string(settings.Embedding.Provider)))
	cmd.Printf("  Model: %s\n", orNotSet(settings.Embedding.Model))
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.Provider.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", keyStatus(settings.Embedding.APIKey))
	}
	cmd.Println()

	cmd.Println(st.title.Render("[LLM]"))
	models := make([]string, len(settings.LLM.Models))
	for i, m := range settings.LLM.Models {
		models[i] = m.String()
	}
	cmd.Printf("  Models: %s\n", joinOrNone(models))
	for _, p := range []domain.AIProvider{
		domain.AIProviderOllama, domain.AIProviderOpenAI, domain.AIProviderAnthropic,
		domain.AIProviderGemini, domain.AIProviderMistral,
	} {
		if key := settings.LLM.APIKeys[p]; key != "" {
			cmd.Printf("  %s API Key: %s\n", p.Description(), maskAPIKey(key))
		}
		if url := settings.LLM.BaseURLs[p]; url != "" {
			cmd.Printf("  %s Base URL: %s\n", p.Description(), url)
		}
	}
	cmd.Println()

	cmd.Println(st.title.Render("[Ingestion]"))
	cmd.Printf("  Workers: %d\n", settings.Ingest.Workers)
	cmd.Printf("  Call timeout: %s\n", settings.Ingest.CallTimeout)
	cmd.Printf("  Max attempts: %d\n", settings.Ingest.MaxAttempts)
	cmd.Printf("  Prune removed documents: %t\n", settings.Ingest.Prune)
	if settings.Ingest.RequestsPerSecond > 0 {
		cmd.Printf("  Requests per second: %g\n", settings.Ingest.RequestsPerSecond)
	}
	cmd.Printf("  Pipeline: %s\n", strings.Join(settings.Pipeline.Processors, " -> "))
	cmd.Println()

	cmd.Println(st.title.Render("[Retrieval]"))
	cmd.Printf("  Top K: %d\n", settings.Retrieval.TopK)
	cmd.Printf("  Min score: %g\n", settings.Retrieval.MinScore)
	cmd.Printf("  Max context: %d characters\n", settings.Retrieval.MaxContextChars)
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Println(st.warning.Render("Warning: " + err.Error()))
		cmd.Println("Run 'juris settings set' to fix configuration issues.")
	} else {
		cmd.Println(st.success.Render("Settings are complete."))
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Set(args[0], args[1]); err != nil {
		return err
	}
	cmd.Printf("%s updated.\n", args[0])
	return nil
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if err := settingsService.Unset(args[0]); err != nil {
		return err
	}
	cmd.Printf("%s reset to its default.\n", args[0])
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	provider := domain.AIProvider(strings.ToLower(args[0]))
	if !provider.IsValid() || !provider.RequiresAPIKey() {
		return fmt.Errorf("%q does not take an API key", args[0])
	}

	cmd.Printf("%s API key: ", provider.Description())
	key := readPassword(cmd.InOrStdin())
	cmd.Println()
	if key == "" {
		return errors.New("no key entered")
	}

	if err := settingsService.SetAPIKey(provider, key); err != nil {
		return err
	}
	cmd.Printf("Stored %s API key %s.\n", provider.Description(), maskAPIKey(key))
	if env := provider.APIKeyEnv(); env != "" && os.Getenv(env) != "" {
		cmd.Printf("Note: %s is set and takes precedence.\n", env)
	}
	return nil
}

func runSettingsCheck(cmd *cobra.Command, _ []string) error {
	if settingsService == nil || checkProviders == nil {
		return errors.New("settings service not configured")
	}
	st := newStyles(cmd.OutOrStdout())

	if err := settingsService.Validate(); err != nil {
		cmd.Println(st.failure.Render("settings: " + err.Error()))
		return errors.New("settings are incomplete")
	}

	checks, err := checkProviders(cmd.Context())
	if err != nil {
		return err
	}
	failed := 0
	for _, c := range checks {
		if c.Err != nil {
			failed++
			cmd.Printf("%s %s: %v\n", st.failure.Render("FAIL"), c.Name, c.Err)
			continue
		}
		cmd.Printf("%s %s\n", st.success.Render("OK  "), c.Name)
	}
	if failed > 0 {
		return fmt.Errorf("%s unreachable", plural(failed, "provider"))
	}
	return nil
}

func keyStatus(key string) string {
	if key == "" {
		return "(not set)"
	}
	return maskAPIKey(key)
}

// readPassword reads a line without echo when in is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readPassword(in io.Reader) string {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		password, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	input, _ := bufio.NewReader(in).ReadString('\n')
	return strings.TrimSpace(input)
}
