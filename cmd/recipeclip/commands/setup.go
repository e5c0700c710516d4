package commands

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/recipeclip/recipeclip/internal/llm"
	"github.com/recipeclip/recipeclip/internal/logger"
	"github.com/recipeclip/recipeclip/internal/scrape"
	"github.com/recipeclip/recipeclip/internal/synth"
)

func initLogger() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("log_json"),
	})
}

// newSynthesizer builds the model-backed synthesizer from provider settings,
// auto-detecting the provider from API key env vars when unset.
func newSynthesizer() (*synth.Synthesizer, error) {
	providerName := viper.GetString("provider")
	apiKey := viper.GetString("api_key")
	if providerName == "" {
		providerName, apiKey = llm.DetectProvider()
		logger.Debug("provider auto-detected", "provider", providerName)
	}

	provider, err := llm.NewProvider(providerName, llm.ProviderConfig{
		APIKey:  apiKey,
		Model:   viper.GetString("model"),
		BaseURL: viper.GetString("base_url"),
		Timeout: viper.GetDuration("llm_timeout"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}

	return synth.New(provider, synth.DefaultConfig()), nil
}

// newFetcher creates a page fetcher for the configured fetch mode.
func newFetcher(mode string, timeout time.Duration) (scrape.Fetcher, error) {
	cfg := scrape.FetcherConfig{Timeout: timeout}
	switch mode {
	case "", "static":
		return scrape.NewStaticFetcher(cfg), nil
	case "dynamic":
		return scrape.NewDynamicFetcher(cfg)
	default:
		return nil, fmt.Errorf("unknown fetch mode: %s (want static or dynamic)", mode)
	}
}
