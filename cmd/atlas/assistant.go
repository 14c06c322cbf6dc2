package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matsen/atlas/internal/assistant"
	"github.com/matsen/atlas/internal/config"
	"github.com/matsen/atlas/internal/interchange"
)

// Environment variables read by the assistant, also from a .env file.
const (
	EnvOllamaHost = "OLLAMA_HOST"
	EnvModel      = "ATLAS_MODEL"
)

var assistantImport bool

func init() {
	// Load .env file if present (for OLLAMA_HOST, ATLAS_MODEL)
	_ = godotenv.Load()

	assistantAskCmd.Flags().BoolVar(&assistantImport, "import", false, "Merge the proposed graph into the repository")
	assistantCmd.AddCommand(assistantAskCmd)
	rootCmd.AddCommand(assistantCmd)
}

var assistantCmd = &cobra.Command{
	Use:   "assistant",
	Short: "Ask a local Ollama model to propose graph content",
}

var assistantAskCmd = &cobra.Command{
	Use:   "ask <text...>",
	Short: "Describe what you are learning and get a proposed graph",
	Long: `Send a description to a local Ollama model and print its reply.

The model is asked for a graph document in the import format. With --import,
the proposed nodes and edges are merged into the graph: existing names are
kept and invalid records are skipped.

Settings, first match wins:
  OLLAMA_HOST / ATLAS_MODEL environment variables (or .env)
  ollama-url / ollama-model in .atlas/config.json
  ollama_url / ollama_model in ~/.config/atlas/config.yml

Examples:
  atlas assistant ask "I am reading about MCMC for phylogenetics with BEAST 2"
  atlas assistant ask --import "Variational inference relies on the ELBO"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAssistantAsk,
}

// AssistantResult is the response for assistant ask.
type AssistantResult struct {
	Model      string                `json:"model"`
	Suggestion *assistant.Suggestion `json:"suggestion"`
	Report     *interchange.Report   `json:"report,omitempty"`
}

func runAssistantAsk(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	cfg := mustLoadConfig(root)

	url, model := assistantSettings(cfg)
	provider := assistant.NewOllamaProvider(
		assistant.WithBaseURL(url),
		assistant.WithModel(model),
	)
	logger.Debug("assistant provider", zap.String("url", url), zap.String("model", provider.Model()))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	mustCheckModel(ctx, provider)

	var conv assistant.Conversation
	conv.Add(strings.Join(args, " "))

	suggestion, err := assistant.Suggest(ctx, provider, &conv)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	result := AssistantResult{Model: provider.Model(), Suggestion: suggestion}
	if assistantImport {
		if !suggestion.HasJSON {
			exitWithError(ExitDataError, "the reply contains no graph document to import")
		}
		proposed, parsed, err := interchange.Import([]byte(suggestion.JSON), interchange.WithLogger(logger))
		if err != nil {
			exitWithErr(err)
		}
		sess, _ := mustLoadSession(root)
		result.Report = applyImport(sess, proposed, parsed, true)
		mustSaveGraph(root, sess.Graph)
	}

	if humanOutput {
		printAssistantResult(result)
	} else {
		outputJSON(result)
	}
	return nil
}

// assistantSettings resolves the Ollama URL and model. Empty values fall
// through to the provider defaults.
func assistantSettings(cfg *config.Config) (url, model string) {
	url, model = cfg.OllamaURL, cfg.OllamaModel
	if global, err := config.LoadGlobalConfig(); err == nil {
		if url == "" {
			url = global.OllamaURL
		}
		if model == "" {
			model = global.OllamaModel
		}
	} else {
		logger.Warn("ignoring global config", zap.Error(err))
	}
	url = normalizeOllamaHost(config.GetConfigValue(EnvOllamaHost, url))
	model = config.GetConfigValue(EnvModel, model)
	return url, model
}

// normalizeOllamaHost accepts OLLAMA_HOST values without a scheme, as
// Ollama itself does.
func normalizeOllamaHost(host string) string {
	if host == "" || strings.Contains(host, "://") {
		return strings.TrimRight(host, "/")
	}
	return "http://" + strings.TrimRight(host, "/")
}

// mustCheckModel exits with setup instructions when Ollama or the model is missing.
func mustCheckModel(ctx context.Context, provider *assistant.OllamaProvider) {
	if err := provider.IsAvailable(ctx); err != nil {
		exitWithError(ExitError, "%v\n\nStart it with 'ollama serve' or set %s.", err, EnvOllamaHost)
	}
	ok, err := provider.HasModel(ctx)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if !ok {
		exitWithError(ExitConfigError, "model %s is not available\n\nPull it with 'ollama pull %s' or set %s.",
			provider.Model(), provider.Model(), EnvModel)
	}
}

func printAssistantResult(r AssistantResult) {
	styleSubtle.Printf("[%s]\n", r.Model)
	fmt.Println(strings.TrimSpace(r.Suggestion.Raw))
	if r.Report == nil {
		if r.Suggestion.HasJSON {
			styleInfo.Println("\nRun again with --import to merge the proposed graph.")
		}
		return
	}
	fmt.Println()
	fmt.Printf("%s %d nodes and %d edges\n", styleGood.Sprint("Merged"), r.Report.NodesAccepted, r.Report.EdgesAccepted)
	for _, d := range r.Report.Rejected {
		styleWarn.Printf("  skipped: %s\n", d)
	}
}
