package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/recipeclip/recipeclip/internal/instagram"
	"github.com/recipeclip/recipeclip/internal/recipe"
	"github.com/recipeclip/recipeclip/internal/synth"
)

type fakePosts struct {
	post instagram.Post
	err  error
}

func (f *fakePosts) FetchPost(context.Context, string) (instagram.Post, error) {
	return f.post, f.err
}

type fakePages struct {
	pages map[string]string
	err   error
	urls  []string
}

func (f *fakePages) FetchPage(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return "", f.err
	}
	return f.pages[url], nil
}

type fakeSynth struct {
	result   synth.Result
	err      error
	requests []synth.Request
}

func (f *fakeSynth) Synthesize(_ context.Context, req synth.Request) (synth.Result, error) {
	f.requests = append(f.requests, req)
	return f.result, f.err
}

func chiliRecipe() *recipe.Recipe {
	return &recipe.Recipe{
		Name:        "Weeknight Chili",
		Ingredients: []recipe.Ingredient{{Name: "ground beef", Quantity: "1.5 lbs"}},
		Steps:       []string{"Brown the beef."},
	}
}

const recipePage = `<html><head>
<script type="application/ld+json">{"@type": "Recipe", "name": "Weeknight Chili", "prepTime": "PT20M"}</script>
<meta property="og:image" content="https://example.com/cover.jpg">
</head><body></body></html>`

const blogPage = `<html><head><title>My travel blog</title></head><body></body></html>`

func TestExtractDirectPage(t *testing.T) {
	pages := &fakePages{pages: map[string]string{"https://www.example.com/chili": recipePage}}
	syn := &fakeSynth{result: synth.Result{IsRecipe: true, Confidence: 1, Recipe: chiliRecipe()}}
	var downloaded []string
	ext := New(nil, pages, syn, func(_ context.Context, url string) []byte {
		downloaded = append(downloaded, url)
		return []byte("jpg")
	})

	out, err := ext.Extract(context.Background(), "https://www.example.com/chili")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.NotRecipe {
		t.Fatalf("NotRecipe = true, reason %q", out.Reason)
	}
	if out.SourceURL != "https://www.example.com/chili" {
		t.Errorf("SourceURL = %q", out.SourceURL)
	}
	if out.SourceName != "example.com" {
		t.Errorf("SourceName = %q, want www-stripped hostname", out.SourceName)
	}
	if len(syn.requests) != 1 || syn.requests[0].Mode != synth.ModeStructured {
		t.Errorf("synthesis mode = %v, want structured", syn.requests[0].Mode)
	}
	if len(downloaded) != 1 || downloaded[0] != "https://example.com/cover.jpg" {
		t.Errorf("downloaded = %v", downloaded)
	}
	if string(out.Photo) != "jpg" {
		t.Errorf("Photo = %q", out.Photo)
	}
}

func TestExtractDirectPageNoStructuredData(t *testing.T) {
	pages := &fakePages{pages: map[string]string{"https://example.com/blog": blogPage}}
	syn := &fakeSynth{}
	ext := New(nil, pages, syn, nil)

	out, err := ext.Extract(context.Background(), "https://example.com/blog")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !out.NotRecipe {
		t.Fatal("NotRecipe = false, want true")
	}
	if out.Reason != "no structured recipe data found" {
		t.Errorf("Reason = %q", out.Reason)
	}
	if len(syn.requests) != 0 {
		t.Error("model must not be invoked when no structured data exists")
	}
}

func TestExtractDirectPageFetchFailureIsFatal(t *testing.T) {
	pages := &fakePages{err: errors.New("connection refused")}
	ext := New(nil, pages, &fakeSynth{}, nil)

	_, err := ext.Extract(context.Background(), "https://example.com/chili")
	if err == nil {
		t.Fatal("Extract() error = nil, want fetch failure")
	}
}

func TestExtractSocialCaptionOnly(t *testing.T) {
	posts := &fakePosts{post: instagram.Post{
		Caption:       "My chili! 1.5 lbs beef, brown and simmer. #dinner",
		OwnerUsername: "chef_dana",
		OwnerFullName: "Dana Cooks",
		Type:          instagram.TypeImage,
		DisplayURL:    "https://cdn.example.com/post.jpg",
	}}
	syn := &fakeSynth{result: synth.Result{IsRecipe: true, Confidence: 0.6, Recipe: chiliRecipe()}}
	ext := New(posts, &fakePages{}, syn, func(context.Context, string) []byte { return []byte("jpg") })

	out, err := ext.Extract(context.Background(), "https://www.instagram.com/p/abc123/")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.SourceURL != "https://www.instagram.com/p/abc123/" {
		t.Errorf("SourceURL = %q, want original post URL", out.SourceURL)
	}
	if out.SourceName != "Dana Cooks" {
		t.Errorf("SourceName = %q, want owner display name", out.SourceName)
	}
	if out.Confidence != 0.6 {
		t.Errorf("Confidence = %v", out.Confidence)
	}
	if syn.requests[0].Mode != synth.ModeCaption {
		t.Errorf("mode = %v, want caption", syn.requests[0].Mode)
	}
}

func TestExtractSocialWithLinkedPage(t *testing.T) {
	posts := &fakePosts{post: instagram.Post{
		Caption:       "Full recipe at https://example.com/chili. Enjoy!",
		OwnerUsername: "chef_dana",
		Type:          instagram.TypeImage,
		DisplayURL:    "https://cdn.example.com/post.jpg",
	}}
	pages := &fakePages{pages: map[string]string{"https://example.com/chili": recipePage}}
	syn := &fakeSynth{result: synth.Result{IsRecipe: true, Confidence: 1, Recipe: chiliRecipe()}}
	ext := New(posts, pages, syn, nil)

	out, err := ext.Extract(context.Background(), "https://www.instagram.com/p/abc123/")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.SourceURL != "https://example.com/chili" {
		t.Errorf("SourceURL = %q, want the caption link", out.SourceURL)
	}
	req := syn.requests[0]
	if req.Mode != synth.ModeMerge {
		t.Errorf("mode = %v, want merge", req.Mode)
	}
	if req.Data == nil || req.Caption == "" {
		t.Error("merge request must carry both structured data and caption")
	}
}

func TestExtractSocialLinkFetchDegrades(t *testing.T) {
	posts := &fakePosts{post: instagram.Post{
		Caption:       "Full recipe at https://example.com/chili",
		OwnerUsername: "chef_dana",
		Type:          instagram.TypeImage,
		DisplayURL:    "https://cdn.example.com/post.jpg",
	}}
	pages := &fakePages{err: errors.New("timeout")}
	syn := &fakeSynth{result: synth.Result{IsRecipe: true, Confidence: 0.5, Recipe: chiliRecipe()}}
	ext := New(posts, pages, syn, nil)

	out, err := ext.Extract(context.Background(), "https://www.instagram.com/p/abc123/")
	if err != nil {
		t.Fatalf("Extract() error = %v, link fetch must degrade", err)
	}
	if syn.requests[0].Mode != synth.ModeCaption {
		t.Errorf("mode = %v, want caption fallback", syn.requests[0].Mode)
	}
	if out.SourceURL != "https://www.instagram.com/p/abc123/" {
		t.Errorf("SourceURL = %q, want original post URL on fallback", out.SourceURL)
	}
}

func TestExtractSocialNotRecipe(t *testing.T) {
	posts := &fakePosts{post: instagram.Post{
		Caption:       "Greetings from Lisbon!",
		OwnerUsername: "traveler",
		Type:          instagram.TypeImage,
	}}
	syn := &fakeSynth{result: synth.Result{IsRecipe: false, Reason: "travel post"}}
	ext := New(posts, &fakePages{}, syn, nil)

	out, err := ext.Extract(context.Background(), "https://instagram.com/p/xyz/")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !out.NotRecipe || out.Reason != "travel post" {
		t.Errorf("outcome = %+v", out)
	}
	if out.SourceURL != "https://instagram.com/p/xyz/" {
		t.Errorf("SourceURL = %q", out.SourceURL)
	}
}

func TestExtractSocialPostFetchFailureIsFatal(t *testing.T) {
	posts := &fakePosts{err: &instagram.UpstreamError{URL: "x", Err: errors.New("boom")}}
	ext := New(posts, &fakePages{}, &fakeSynth{}, nil)

	_, err := ext.Extract(context.Background(), "https://instagram.com/p/abc/")
	var upstream *instagram.UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("error = %v, want *instagram.UpstreamError", err)
	}
}

func TestExtractSocialPhotoFailureDegrades(t *testing.T) {
	posts := &fakePosts{post: instagram.Post{
		Caption:       "chili time",
		OwnerUsername: "chef_dana",
		Type:          instagram.TypeVideo,
		DisplayURL:    "https://cdn.example.com/thumb.jpg",
	}}
	syn := &fakeSynth{result: synth.Result{IsRecipe: true, Confidence: 0.8, Recipe: chiliRecipe()}}
	ext := New(posts, &fakePages{}, syn, func(context.Context, string) []byte { return nil })

	out, err := ext.Extract(context.Background(), "https://instagram.com/p/abc/")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out.Photo != nil {
		t.Error("Photo should be nil after failed download")
	}
	if out.Recipe == nil {
		t.Error("recipe must survive a failed photo download")
	}
}

func TestPageHostname(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.com/chili", "example.com"},
		{"https://cooking.example.org/a/b", "cooking.example.org"},
		{"not a url", "not a url"},
	}
	for _, tt := range tests {
		if got := pageHostname(tt.in); got != tt.want {
			t.Errorf("pageHostname(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
