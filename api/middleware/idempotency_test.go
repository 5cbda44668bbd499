package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/librarydesk-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

const checkoutPath = "/api/v1/carts/6f1c2b8e-0d8a-4f59-9a57-0a3c1e9b7c11/checkout"

func TestMatchRule(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		path     string
		ttl      time.Duration
		required bool
		ok       bool
	}{
		{"checkout", http.MethodPost, checkoutPath, criticalIdempotencyTTL, true, true},
		{"loan return", http.MethodPost, "/api/v1/loans/abc/return", defaultIdempotencyTTL, false, true},
		{"loan renew", http.MethodPost, "/api/v1/loans/abc/renew", defaultIdempotencyTTL, false, true},
		{"return all", http.MethodPost, "/api/v1/members/abc/return-all", defaultIdempotencyTTL, false, true},
		{"create book", http.MethodPost, "/api/v1/books/", defaultIdempotencyTTL, false, true},
		{"create member", http.MethodPost, "/api/v1/members", defaultIdempotencyTTL, false, true},
		{"book read", http.MethodGet, "/api/v1/books", 0, false, false},
		{"cart items", http.MethodPost, "/api/v1/carts/abc/items", 0, false, false},
		{"nested too deep", http.MethodPost, "/api/v1/loans/abc/return/extra", 0, false, false},
	}

	for _, tt := range tests {
		rule, ok := matchRule(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if !ok {
			continue
		}
		if rule.ttl != tt.ttl {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.ttl, rule.ttl)
		}
		if rule.required != tt.required {
			t.Fatalf("%s: expected required=%v got %v", tt.name, tt.required, rule.required)
		}
	}
}

func TestIdempotencyCheckoutRequiresHeader(t *testing.T) {
	for name, store := range map[string]*fakeStore{"with store": newFakeStore(), "without store": nil} {
		var mw func(http.Handler) http.Handler
		if store == nil {
			mw = Idempotency(nil, nil)
		} else {
			mw = Idempotency(store, nil)
		}
		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			w.WriteHeader(http.StatusCreated)
		})

		req := httptest.NewRequest(http.MethodPost, checkoutPath, strings.NewReader(`{"confirmed":true}`))
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)

		if resp.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 got %d", name, resp.Code)
		}
		if handlerCalled {
			t.Fatalf("%s: handler should not run without idempotency key", name)
		}
	}
}

func TestIdempotencyOptionalRoutePassesThroughWithoutHeader(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/abc/return", nil)
		Idempotency(store, nil)(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected handler to run twice, got %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected nothing stored, got %d records", len(store.data))
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, checkoutPath, strings.NewReader(`{"confirmed":true}`))
		req.Header.Set("Idempotency-Key", "abc")
		req = req.WithContext(WithClientID(req.Context(), "desk-1"))
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)
		return rec
	}

	if first := send(); first.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", first.Code)
	}
	rec := send()
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Idempotent-Replay") != "true" {
		t.Fatalf("expected replay marker header")
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyScopesByClient(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	for _, client := range []string{"desk-1", "desk-2"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/members/abc/return-all", nil)
		req.Header.Set("Idempotency-Key", "same")
		req = req.WithContext(WithClientID(req.Context(), client))
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected each client to reach the handler, got %d calls", calls)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, checkoutPath, strings.NewReader(`{}`))
		req.Header.Set("Idempotency-Key", "retry")
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Fatalf("expected retry to reach handler, got %d calls", calls)
	}
}

func TestIdempotencyDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(`{"title":"Dune"}`))
	req.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	replay := httptest.NewRequest(http.MethodPost, "/api/v1/books", strings.NewReader(`{"title":"Emma"}`))
	replay.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, replay)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}
