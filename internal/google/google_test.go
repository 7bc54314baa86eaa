package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(tokenURL, userinfoURL string) *Client {
	return &Client{
		log:              zap.NewNop(),
		clientID:         "client-id",
		clientSecret:     "client-secret",
		redirectURL:      "https://app.example.com/callback",
		tokenEndpoint:    tokenURL,
		userinfoEndpoint: userinfoURL,
		http:             &http.Client{Timeout: time.Second},
	}
}

func TestExchangeCode(t *testing.T) {
	userinfo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-abc" {
			t.Errorf("authorization header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"sub":     "10769150350006150715113082367",
			"email":   "jane@example.com",
			"name":    "Jane Doe",
			"picture": "https://lh3.googleusercontent.com/photo.jpg",
		})
	}))
	defer userinfo.Close()

	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("code"); got != "auth-code" {
			t.Errorf("code = %q", got)
		}
		if got := r.PostForm.Get("redirect_uri"); got != "https://app.example.com/callback" {
			t.Errorf("redirect_uri = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"access_token": "access-abc", "token_type": "Bearer"})
	}))
	defer token.Close()

	client := newTestClient(token.URL, userinfo.URL)

	profile, err := client.ExchangeCode(context.Background(), "auth-code", "")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if profile.ID != "10769150350006150715113082367" {
		t.Errorf("ID = %q", profile.ID)
	}
	if profile.Email != "jane@example.com" {
		t.Errorf("Email = %q", profile.Email)
	}
	if profile.DisplayName != "Jane Doe" {
		t.Errorf("DisplayName = %q", profile.DisplayName)
	}
}

func TestExchangeCodeMissingCode(t *testing.T) {
	client := newTestClient("http://invalid", "http://invalid")
	if _, err := client.ExchangeCode(context.Background(), "  ", ""); err != ErrMissingCode {
		t.Fatalf("err = %v, want ErrMissingCode", err)
	}
}

func TestExchangeCodeUnconfigured(t *testing.T) {
	client := newTestClient("http://invalid", "http://invalid")
	client.clientSecret = ""
	if _, err := client.ExchangeCode(context.Background(), "code", ""); err != ErrNotConfigured {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
}

func TestExchangeCodeProviderRejects(t *testing.T) {
	token := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer token.Close()

	client := newTestClient(token.URL, "http://invalid")
	if _, err := client.ExchangeCode(context.Background(), "stale-code", ""); err == nil {
		t.Fatal("expected error for rejected code")
	}
}
