//go:build !integration

package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"masterclass-reconciler/internal/domain"
)

func TestResendSender_Send(t *testing.T) {
	t.Run("should post bearer-authenticated json to /emails", func(t *testing.T) {
		// --- Arrange ---
		var got resendRequest
		var auth, path string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			path = r.URL.Path
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"id":"em_1"}`))
		}))
		defer srv.Close()
		s := NewResendSender("re_key", "Classes <no-reply@example.com>", srv.URL)

		// --- Act ---
		err := s.Send(context.Background(), "u1@example.com", "Hello", "<p>hi</p>")

		// --- Assert ---
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if auth != "Bearer re_key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if path != "/emails" {
			t.Errorf("unexpected path %q", path)
		}
		if len(got.To) != 1 || got.To[0] != "u1@example.com" || got.Subject != "Hello" || got.HTML != "<p>hi</p>" {
			t.Errorf("unexpected payload %+v", got)
		}
	})

	t.Run("should map non-2xx to ErrDownstream", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"name":"rate_limit_exceeded","message":"Too many requests"}`))
		}))
		defer srv.Close()
		s := NewResendSender("re_key", "no-reply@example.com", srv.URL)

		err := s.Send(context.Background(), "u1@example.com", "Hello", "<p>hi</p>")

		if !errors.Is(err, domain.ErrDownstream) {
			t.Fatalf("expected ErrDownstream, got %v", err)
		}
	})
}

func TestNoopSender(t *testing.T) {
	s := NewNoopSender(nil)
	if err := s.Send(context.Background(), "a@example.com", "s", "b"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if sent := s.Sent(); len(sent) != 1 || sent[0].To != "a@example.com" {
		t.Errorf("unexpected captured mail %+v", sent)
	}
}
