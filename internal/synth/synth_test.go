package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/recipeclip/recipeclip/internal/llm"
	"github.com/recipeclip/recipeclip/internal/scrape"
)

// fakeProvider replays canned responses and records the prompts it saw.
type fakeProvider struct {
	responses []string
	err       error
	requests  []llm.CompletionRequest
}

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return llm.CompletionResponse{}, f.err
	}
	idx := len(f.requests) - 1
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	return llm.CompletionResponse{Content: f.responses[idx]}, nil
}

func (f *fakeProvider) Name() string             { return "fake" }
func (f *fakeProvider) SupportsJSONSchema() bool { return true }

const validRecipeJSON = `{
	"is_recipe": true,
	"confidence": 0.9,
	"recipe": {
		"name": "Weeknight Chili",
		"ingredients": [{"name": "ground beef", "quantity": "1.5 lbs"}],
		"steps": ["Brown the beef.", "Simmer 30 minutes."]
	}
}`

func TestSynthesizeCaptionMode(t *testing.T) {
	provider := &fakeProvider{responses: []string{validRecipeJSON}}
	s := New(provider, DefaultConfig())

	result, err := s.Synthesize(context.Background(), Request{
		Mode:    ModeCaption,
		Caption: "My famous chili! 1.5 lbs ground beef, brown it, simmer 30 min.",
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !result.IsRecipe {
		t.Fatal("IsRecipe = false, want true")
	}
	if result.Recipe.Name != "Weeknight Chili" {
		t.Errorf("Name = %q", result.Recipe.Name)
	}
	if result.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9 preserved in caption mode", result.Confidence)
	}

	req := provider.requests[0]
	if req.Messages[0].Role != llm.RoleSystem {
		t.Errorf("first message role = %v, want system", req.Messages[0].Role)
	}
	if !strings.Contains(req.Messages[1].Content, "## Post Caption") {
		t.Error("user prompt missing caption section")
	}
	if strings.Contains(req.Messages[1].Content, "## Structured Recipe Data") {
		t.Error("caption mode should not carry structured data")
	}
}

func TestSynthesizeMergeModeNormalizesDurations(t *testing.T) {
	provider := &fakeProvider{responses: []string{`{
		"is_recipe": true,
		"confidence": 0.5,
		"recipe": {
			"name": "Pasta",
			"prepTime": 20,
			"ingredients": [{"name": "pasta", "quantity": "1 lb"}],
			"steps": ["Boil."]
		}
	}`}}
	s := New(provider, DefaultConfig())

	result, err := s.Synthesize(context.Background(), Request{
		Mode:    ModeMerge,
		Caption: "Try it with extra basil!",
		Data: scrape.StructuredData{
			"@type":    "Recipe",
			"name":     "Pasta",
			"prepTime": "PT20M",
		},
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	prompt := provider.requests[0].Messages[1].Content
	if !strings.Contains(prompt, `"prepTime": 20`) {
		t.Errorf("prompt should carry normalized minutes, got:\n%s", prompt)
	}
	if strings.Contains(prompt, "PT20M") {
		t.Error("ISO-8601 duration leaked into the prompt")
	}
	if !strings.Contains(prompt, "## Post Caption") {
		t.Error("merge mode should include the caption")
	}

	// Structured inputs are trusted; confidence is forced to 1.
	if result.Confidence != 1.0 {
		t.Errorf("Confidence = %v, want 1.0 in merge mode", result.Confidence)
	}
}

func TestSynthesizeStructuredModeOmitsCaption(t *testing.T) {
	provider := &fakeProvider{responses: []string{validRecipeJSON}}
	s := New(provider, DefaultConfig())

	_, err := s.Synthesize(context.Background(), Request{
		Mode:    ModeStructured,
		Caption: "should be ignored",
		Data:    scrape.StructuredData{"@type": "Recipe", "name": "Chili"},
	})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}

	prompt := provider.requests[0].Messages[1].Content
	if strings.Contains(prompt, "## Post Caption") {
		t.Error("structured mode must not include the caption")
	}
}

func TestSynthesizeNotRecipe(t *testing.T) {
	provider := &fakeProvider{responses: []string{`{"is_recipe": false, "reason": "travel vlog"}`}}
	s := New(provider, DefaultConfig())

	result, err := s.Synthesize(context.Background(), Request{Mode: ModeCaption, Caption: "Greetings from Lisbon!"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if result.IsRecipe {
		t.Fatal("IsRecipe = true, want false")
	}
	if result.Reason != "travel vlog" {
		t.Errorf("Reason = %q", result.Reason)
	}
	if result.Recipe != nil {
		t.Error("Recipe should be nil for non-recipes")
	}
}

func TestSynthesizeRetriesWithFeedback(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		`{"is_recipe": true, "recipe": {"name": "", "ingredients": [], "steps": []}}`,
		validRecipeJSON,
	}}
	s := New(provider, DefaultConfig())

	result, err := s.Synthesize(context.Background(), Request{Mode: ModeCaption, Caption: "chili recipe"})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if !result.IsRecipe {
		t.Fatal("IsRecipe = false after retry")
	}
	if len(provider.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(provider.requests))
	}
	if !strings.Contains(provider.requests[1].Messages[1].Content, "## Previous Attempt Errors") {
		t.Error("retry prompt missing validation feedback")
	}
}

func TestSynthesizeExhaustsRetries(t *testing.T) {
	provider := &fakeProvider{responses: []string{"not json at all"}}
	s := New(provider, DefaultConfig())

	_, err := s.Synthesize(context.Background(), Request{Mode: ModeCaption, Caption: "chili"})
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("error = %v, want *SynthesisError", err)
	}
	if synthErr.Mode != ModeCaption {
		t.Errorf("Mode = %v, want ModeCaption", synthErr.Mode)
	}
	if len(provider.requests) != 2 {
		t.Errorf("requests = %d, want initial attempt plus one retry", len(provider.requests))
	}
}

func TestSynthesizeProviderErrorIsFatal(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited")}
	s := New(provider, DefaultConfig())

	_, err := s.Synthesize(context.Background(), Request{Mode: ModeCaption, Caption: "chili"})
	var synthErr *SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("error = %v, want *SynthesisError", err)
	}
	if len(provider.requests) != 1 {
		t.Errorf("requests = %d, provider errors must not be retried", len(provider.requests))
	}
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		content string
		mode    Mode
		wantErr bool
	}{
		{name: "valid", content: validRecipeJSON, mode: ModeCaption},
		{name: "recipe missing", content: `{"is_recipe": true}`, mode: ModeCaption, wantErr: true},
		{name: "confidence out of range", content: `{"is_recipe": true, "confidence": 1.5, "recipe": {"name": "x", "ingredients": [{"name": "y"}], "steps": []}}`, mode: ModeCaption, wantErr: true},
		{name: "no ingredients", content: `{"is_recipe": true, "confidence": 0.8, "recipe": {"name": "x", "ingredients": [], "steps": ["go"]}}`, mode: ModeCaption, wantErr: true},
		{name: "not recipe without reason gets default", content: `{"is_recipe": false}`, mode: ModeCaption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseResult(tt.content, tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseResult() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !result.IsRecipe && result.Reason == "" {
				t.Error("not-recipe result missing default reason")
			}
		})
	}
}
