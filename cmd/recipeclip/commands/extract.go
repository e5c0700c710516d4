package commands

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/recipeclip/recipeclip/internal/instagram"
	"github.com/recipeclip/recipeclip/internal/logger"
	"github.com/recipeclip/recipeclip/internal/output"
	"github.com/recipeclip/recipeclip/internal/pipeline"
	"github.com/recipeclip/recipeclip/internal/recipe"
	"github.com/recipeclip/recipeclip/internal/scrape"
)

// extractResult is the CLI-facing shape of one extraction.
type extractResult struct {
	URL        string         `json:"url" yaml:"url"`
	IsRecipe   bool           `json:"is_recipe" yaml:"is_recipe"`
	Reason     string         `json:"reason,omitempty" yaml:"reason,omitempty"`
	Confidence float64        `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	SourceURL  string         `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	SourceName string         `json:"source_name,omitempty" yaml:"source_name,omitempty"`
	Recipe     *recipe.Recipe `json:"recipe,omitempty" yaml:"recipe,omitempty"`
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a recipe from one URL to stdout",
	Long: `Run the extraction pipeline for a single URL and print the result.

Nothing is stored or notified; this is the serve pipeline without its
collaborators, for trying out URLs and debugging extractions.

Examples:
  # A social post
  recipeclip extract -u "https://www.instagram.com/p/abc123/"

  # A recipe page, rendered in headless Chrome, as YAML
  recipeclip extract -u "https://example.com/chili" --fetch-mode dynamic --format yaml`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()

	flags.StringP("url", "u", "", "URL to extract (required)")
	flags.String("format", "json", "output format: json, yaml")
	flags.StringP("output", "o", "", "output file (default: stdout)")

	// LLM settings
	flags.StringP("provider", "p", "", "LLM provider: anthropic, openai, openrouter, ollama (auto-detects from env vars)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.String("base-url", "", "custom API base URL")

	// Fetch settings
	flags.String("apify-token", "", "Apify API token for post fetching")
	flags.String("fetch-mode", "static", "page fetch mode: static, dynamic")
	flags.Duration("timeout", 10*time.Second, "page fetch timeout")
	flags.String("max-content-size", "2MB", "max fetched page size fed to extraction (e.g. 500KB, 0=unlimited)")

	_ = extractCmd.MarkFlagRequired("url")

	_ = viper.BindPFlag("provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("model", flags.Lookup("model"))
	_ = viper.BindPFlag("api_key", flags.Lookup("api-key"))
	_ = viper.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("apify_token", flags.Lookup("apify-token"))
}

func runExtract(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	targetURL, _ := cmd.Flags().GetString("url")

	format, err := output.ParseFormat(cmd.Flags().Lookup("format").Value.String())
	if err != nil {
		logError("%v", err)
		return err
	}

	maxContentSizeStr, _ := cmd.Flags().GetString("max-content-size")
	var maxContentSize int
	if strings.TrimSpace(maxContentSizeStr) != "" && maxContentSizeStr != "0" {
		bytes, err := humanize.ParseBytes(maxContentSizeStr)
		if err != nil {
			logError("invalid max-content-size %q: %v", maxContentSizeStr, err)
			return err
		}
		maxContentSize = int(bytes)
	}

	synthesizer, err := newSynthesizer()
	if err != nil {
		logError("%v", err)
		return err
	}

	fetchMode, _ := cmd.Flags().GetString("fetch-mode")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	fetcher, err := newFetcher(fetchMode, timeout)
	if err != nil {
		logError("%v", err)
		return err
	}
	defer fetcher.Close()

	posts := instagram.NewClient(instagram.Config{Token: viper.GetString("apify_token")})

	extractor := pipeline.New(posts, limitFetcher{fetcher, maxContentSize}, synthesizer, scrape.DownloadImage)

	logger.Info("extracting", "url", targetURL)
	outcome, err := extractor.Extract(ctx, targetURL)
	if err != nil {
		logError("extraction failed: %v", err)
		return err
	}

	result := extractResult{
		URL:        targetURL,
		IsRecipe:   !outcome.NotRecipe,
		Reason:     outcome.Reason,
		Confidence: outcome.Confidence,
		SourceURL:  outcome.SourceURL,
		SourceName: outcome.SourceName,
		Recipe:     outcome.Recipe,
	}

	dest := os.Stdout
	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			logError("creating output file: %v", err)
			return err
		}
		defer f.Close()
		dest = f
	}

	return output.Write(dest, format, result)
}

// limitFetcher truncates fetched HTML to a size cap. JSON-LD blocks live in
// the document head, so truncation rarely loses recipe data.
type limitFetcher struct {
	scrape.Fetcher
	max int
}

func (l limitFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	html, err := l.Fetcher.FetchPage(ctx, url)
	if err != nil {
		return "", err
	}
	if l.max > 0 && len(html) > l.max {
		logger.Debug("truncating fetched page", "url", url, "size", len(html), "max", l.max)
		html = html[:l.max]
	}
	return html, nil
}
