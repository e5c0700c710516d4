package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/recipeclip/recipeclip/internal/anylist"
	"github.com/recipeclip/recipeclip/internal/instagram"
	"github.com/recipeclip/recipeclip/internal/ledger"
	"github.com/recipeclip/recipeclip/internal/logger"
	"github.com/recipeclip/recipeclip/internal/notify"
	"github.com/recipeclip/recipeclip/internal/pipeline"
	"github.com/recipeclip/recipeclip/internal/scrape"
	"github.com/recipeclip/recipeclip/internal/server"
	"github.com/recipeclip/recipeclip/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recipe ingestion service",
	Long: `Serve the HTTP front door and process ingestion jobs.

POST a URL to /api/ingest with the configured bearer token; the outcome
arrives as a push notification. Unresolved attempts can be inspected
and retried at /admin/attempts.

Examples:
  # Minimal: auth token plus credentials from the environment
  recipeclip serve --auth-token $TOKEN

  # Custom listen address and ledger location
  recipeclip serve --auth-token $TOKEN --listen :9090 --ledger /var/lib/recipeclip/attempts.db`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()

	// HTTP settings
	flags.String("listen", ":8080", "listen address")
	flags.String("auth-token", "", "bearer token required on /api and /admin (required)")
	flags.Duration("job-timeout", 5*time.Minute, "per-job deadline")

	// LLM settings
	flags.StringP("provider", "p", "", "LLM provider: anthropic, openai, openrouter, ollama (auto-detects from env vars)")
	flags.StringP("model", "m", "", "model name (provider-specific)")
	flags.StringP("api-key", "k", "", "API key (or use env var)")
	flags.String("base-url", "", "custom API base URL")
	flags.Duration("llm-timeout", 60*time.Second, "model request timeout")

	// Post scraping
	flags.String("apify-token", "", "Apify API token for post fetching")
	flags.String("apify-actor", "", "scraping actor id (default apify~instagram-scraper)")

	// Recipe list sink
	flags.String("anylist-email", "", "AnyList account email")
	flags.String("anylist-password", "", "AnyList account password")

	// Notifications
	flags.String("ntfy-topic", "", "ntfy topic for outcome notifications (empty disables)")
	flags.String("ntfy-server", "https://ntfy.sh", "ntfy server URL")

	// Storage and fetching
	flags.String("ledger", "recipeclip.db", "path to the attempt ledger database")
	flags.String("fetch-mode", "static", "page fetch mode: static, dynamic")

	_ = viper.BindPFlag("listen", flags.Lookup("listen"))
	_ = viper.BindPFlag("auth_token", flags.Lookup("auth-token"))
	_ = viper.BindPFlag("job_timeout", flags.Lookup("job-timeout"))
	_ = viper.BindPFlag("provider", flags.Lookup("provider"))
	_ = viper.BindPFlag("model", flags.Lookup("model"))
	_ = viper.BindPFlag("api_key", flags.Lookup("api-key"))
	_ = viper.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("llm_timeout", flags.Lookup("llm-timeout"))
	_ = viper.BindPFlag("apify_token", flags.Lookup("apify-token"))
	_ = viper.BindPFlag("apify_actor", flags.Lookup("apify-actor"))
	_ = viper.BindPFlag("anylist_email", flags.Lookup("anylist-email"))
	_ = viper.BindPFlag("anylist_password", flags.Lookup("anylist-password"))
	_ = viper.BindPFlag("ntfy_topic", flags.Lookup("ntfy-topic"))
	_ = viper.BindPFlag("ntfy_server", flags.Lookup("ntfy-server"))
	_ = viper.BindPFlag("ledger", flags.Lookup("ledger"))
	_ = viper.BindPFlag("fetch_mode", flags.Lookup("fetch-mode"))
}

func runServe(cmd *cobra.Command, args []string) error {
	initLogger()

	authToken := viper.GetString("auth_token")
	if authToken == "" {
		logError("an auth token is required; set --auth-token or RECIPECLIP_AUTH_TOKEN")
		return fmt.Errorf("missing auth token")
	}

	synthesizer, err := newSynthesizer()
	if err != nil {
		logError("%v", err)
		return err
	}

	fetcher, err := newFetcher(viper.GetString("fetch_mode"), 0)
	if err != nil {
		logError("%v", err)
		return err
	}
	defer fetcher.Close()

	posts := instagram.NewClient(instagram.Config{
		Token: viper.GetString("apify_token"),
		Actor: viper.GetString("apify_actor"),
	})

	extractor := pipeline.New(posts, fetcher, synthesizer, scrape.DownloadImage)

	sink := anylist.NewClient(anylist.Config{
		Email:    viper.GetString("anylist_email"),
		Password: viper.GetString("anylist_password"),
	})

	notifier := notify.New(notify.Config{
		Server: viper.GetString("ntfy_server"),
		Topic:  viper.GetString("ntfy_topic"),
	})

	attempts, err := ledger.Open(viper.GetString("ledger"))
	if err != nil {
		logError("%v", err)
		return err
	}
	defer attempts.Close()

	logger.Info("recipeclip starting",
		"version", version.String(),
		"fetch_mode", viper.GetString("fetch_mode"),
		"ledger", viper.GetString("ledger"))

	srv := server.New(server.Config{
		ListenAddr: viper.GetString("listen"),
		AuthToken:  authToken,
		JobTimeout: viper.GetDuration("job_timeout"),
	}, extractor, sink, notifier, attempts)

	return srv.Run()
}
