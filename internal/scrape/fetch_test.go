package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStaticFetcher_FetchPage(t *testing.T) {
	var gotUA, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	f := NewStaticFetcher(DefaultFetcherConfig())
	html, err := f.FetchPage(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchPage() error = %v", err)
	}

	if !strings.Contains(html, "ok") {
		t.Errorf("unexpected body: %q", html)
	}
	if !strings.Contains(gotUA, "Mozilla") {
		t.Errorf("expected browser-like user agent, got %q", gotUA)
	}
	if !strings.Contains(gotAccept, "text/html") {
		t.Errorf("expected browser-like accept header, got %q", gotAccept)
	}
}

func TestStaticFetcher_Non2xxIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewStaticFetcher(DefaultFetcherConfig())
	_, err := f.FetchPage(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected *NetworkError, got %T", err)
	}
	if ne.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", ne.StatusCode)
	}
}

func TestStaticFetcher_UnreachableHost(t *testing.T) {
	f := NewStaticFetcher(DefaultFetcherConfig())
	_, err := f.FetchPage(context.Background(), "http://127.0.0.1:1/nothing")
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}

	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected *NetworkError, got %T", err)
	}
}

func TestDownloadImage(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantNil     bool
	}{
		{"jpeg ok", http.StatusOK, "image/jpeg", "jpegbytes", false},
		{"png ok", http.StatusOK, "image/png", "pngbytes", false},
		{"html page is not an image", http.StatusOK, "text/html", "<html>", true},
		{"not found", http.StatusNotFound, "image/jpeg", "", true},
		{"server error", http.StatusInternalServerError, "image/jpeg", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got := DownloadImage(context.Background(), srv.URL)
			if tt.wantNil {
				if got != nil {
					t.Errorf("expected nil, got %d bytes", len(got))
				}
				return
			}
			if string(got) != tt.body {
				t.Errorf("got %q, want %q", got, tt.body)
			}
		})
	}
}

func TestDownloadImage_NeverErrors(t *testing.T) {
	// Unreachable host and empty URL both degrade to nil.
	if got := DownloadImage(context.Background(), "http://127.0.0.1:1/img.jpg"); got != nil {
		t.Errorf("expected nil for unreachable host, got %d bytes", len(got))
	}
	if got := DownloadImage(context.Background(), ""); got != nil {
		t.Errorf("expected nil for empty URL, got %d bytes", len(got))
	}
}
