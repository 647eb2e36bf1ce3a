package data

import "testing"

func TestNormalizeDir(t *testing.T) {
	tests := map[string]string{
		"":      "/",
		"/":     "/",
		"///":   "/",
		"/a":    "/a",
		"/a/":   "/a",
		"/a/b/": "/a/b",
	}

	for input, expected := range tests {
		if got := NormalizeDir(input); got != expected {
			t.Errorf("NormalizeDir(%q): expected %q, got %q", input, expected, got)
		}
	}
}

func TestIsDirectChild(t *testing.T) {
	tests := []struct {
		dir      string
		path     string
		expected bool
	}{
		{"/a", "/a/b", true},
		{"/a", "/a", false},
		{"/a", "/a/b/c", false},
		{"/a", "/ab", false},
		{"/a", "/ab/c", false},
		{"/", "/a", true},
		{"/", "/", false},
		{"/", "/a/b", false},
	}

	for _, tc := range tests {
		if got := IsDirectChild(tc.dir, tc.path); got != tc.expected {
			t.Errorf("IsDirectChild(%q, %q): expected %t, got %t", tc.dir, tc.path, tc.expected, got)
		}
	}
}
