// Package synth turns captions and structured recipe data into validated
// recipes by prompting a text-generation model.
package synth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/recipeclip/recipeclip/internal/llm"
	"github.com/recipeclip/recipeclip/internal/logger"
	"github.com/recipeclip/recipeclip/internal/recipe"
	"github.com/recipeclip/recipeclip/internal/scrape"
)

// Mode selects the prompt strategy. The three variants share the result
// schema and differ only in system instructions and input shape.
type Mode int

const (
	// ModeCaption synthesizes from free-form caption text alone. The model
	// infers missing structure and flags heavy inference with low confidence.
	ModeCaption Mode = iota
	// ModeStructured synthesizes from a schema.org Recipe document alone.
	ModeStructured
	// ModeMerge synthesizes from structured data plus a caption. Structured
	// data is authoritative for every measurable field; the caption only
	// contributes notes.
	ModeMerge
)

func (m Mode) String() string {
	switch m {
	case ModeCaption:
		return "caption"
	case ModeStructured:
		return "structured"
	case ModeMerge:
		return "merge"
	}
	return "unknown"
}

// Request carries the inputs for one synthesis call. Caption is required
// for ModeCaption and ModeMerge; Data for ModeStructured and ModeMerge.
type Request struct {
	Mode    Mode
	Caption string
	Data    scrape.StructuredData
}

// Result is the discriminated synthesis outcome. Either the input was not a
// recipe (IsRecipe false, Reason set) or it was (Recipe set, Confidence in
// [0,1]).
type Result struct {
	IsRecipe   bool           `json:"is_recipe"`
	Reason     string         `json:"reason,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Recipe     *recipe.Recipe `json:"recipe,omitempty"`
}

// SynthesisError indicates the model call failed or its output never passed
// schema validation. It is fatal to the job; an invalid response is never
// silently downgraded.
type SynthesisError struct {
	Mode Mode
	Err  error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis (%s): %v", e.Mode, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Config holds synthesizer settings.
type Config struct {
	MaxRetries  int // schema-invalid responses re-prompted this many times
	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  1,
		Temperature: 0.1,
		MaxTokens:   8192,
	}
}

// Synthesizer invokes a model with one of the three prompt strategies and
// validates its output.
type Synthesizer struct {
	provider llm.Provider
	config   Config
}

// New creates a Synthesizer.
func New(provider llm.Provider, cfg Config) *Synthesizer {
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultConfig().MaxTokens
	}
	return &Synthesizer{provider: provider, config: cfg}
}

// Synthesize runs one synthesis request. A provider failure or a response
// that still fails validation after retries returns a *SynthesisError.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Result, error) {
	// Normalize ISO-8601 durations up front so measurable timing fields
	// reach the model as plain minutes it can copy verbatim.
	if req.Data != nil {
		req.Data = normalizeDurations(req.Data)
	}

	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		logger.Debug("synthesis attempt",
			"mode", req.Mode.String(),
			"attempt", attempt+1,
			"provider", s.provider.Name())

		resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
			Messages: []llm.Message{
				{Role: llm.RoleSystem, Content: systemPrompt(req.Mode)},
				{Role: llm.RoleUser, Content: buildUserPrompt(req, lastErr)},
			},
			MaxTokens:   s.config.MaxTokens,
			Temperature: s.config.Temperature,
			JSONSchema:  resultJSONSchema(),
		})
		if err != nil {
			// Provider errors are not self-correctable; fail the job.
			return Result{}, &SynthesisError{Mode: req.Mode, Err: err}
		}

		result, err := parseResult(resp.Content, req.Mode)
		if err == nil {
			logger.Debug("synthesis complete",
				"mode", req.Mode.String(),
				"is_recipe", result.IsRecipe,
				"confidence", result.Confidence,
				"input_tokens", resp.Usage.InputTokens,
				"output_tokens", resp.Usage.OutputTokens)
			return result, nil
		}

		logger.Warn("synthesis output failed validation, retrying",
			"mode", req.Mode.String(),
			"attempt", attempt+1,
			"error", err)
		lastErr = err
	}

	return Result{}, &SynthesisError{
		Mode: req.Mode,
		Err:  fmt.Errorf("response invalid after %d attempts: %w", s.config.MaxRetries+1, lastErr),
	}
}

// parseResult decodes and validates one model response.
func parseResult(content string, mode Mode) (Result, error) {
	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return Result{}, fmt.Errorf("response is not valid JSON: %w", err)
	}

	if !result.IsRecipe {
		if result.Reason == "" {
			result.Reason = "model reported the input is not a recipe"
		}
		result.Recipe = nil
		return result, nil
	}

	if result.Recipe == nil {
		return Result{}, fmt.Errorf(`"is_recipe" is true but "recipe" is missing`)
	}
	if err := result.Recipe.Validate(); err != nil {
		return Result{}, err
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return Result{}, fmt.Errorf(`"confidence" must be between 0 and 1, got %v`, result.Confidence)
	}

	// Confidence is only meaningful for caption inference. Structured data
	// is trusted as-is.
	if mode != ModeCaption {
		result.Confidence = 1.0
	}

	return result, nil
}
