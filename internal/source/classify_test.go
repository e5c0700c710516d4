package source

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		url      string
		expected Route
	}{
		{"https://www.instagram.com/p/abc123/", RouteSocial},
		{"https://instagram.com/reel/xyz/", RouteSocial},
		{"https://m.instagram.com/p/abc123/", RouteSocial},
		{"https://www.seriouseats.com/some-recipe", RouteDirect},
		{"https://example.com/", RouteDirect},
		{"https://notinstagram.com/p/abc", RouteDirect},
		{"://invalid", RouteDirect},
		{"", RouteDirect},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := Classify(tt.url)
			if got != tt.expected {
				t.Errorf("Classify(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestRouteString(t *testing.T) {
	if RouteSocial.String() != "social" {
		t.Errorf("RouteSocial.String() = %q", RouteSocial.String())
	}
	if RouteDirect.String() != "direct" {
		t.Errorf("RouteDirect.String() = %q", RouteDirect.String())
	}
}
