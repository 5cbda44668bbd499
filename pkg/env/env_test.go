package env

import "testing"

func TestGetPrefersNamespacedKey(t *testing.T) {
	t.Setenv("LOG_FORMAT", "console")
	if got := Get("LOG_FORMAT", "json"); got != "console" {
		t.Fatalf("expected bare key, got %q", got)
	}
	t.Setenv("LIBRARYDESK_LOG_FORMAT", "json")
	if got := Get("LOG_FORMAT", "console"); got != "json" {
		t.Fatalf("expected namespaced key to win, got %q", got)
	}
	if got := Get("LIBRARYDESK_UNSET_KEY", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
