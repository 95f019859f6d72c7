package config

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGroqConnectionSuccess(t *testing.T) {
	var gotAuth string
	var gotReq groqChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	s := NewService(newFakeStore(), NewCipher("master"), WithGroqEndpoint(srv.URL))
	result := s.TestGroqConnection(context.Background(), map[string]string{
		"ai.groq.api_key": "gsk_test_key",
		"ai.groq.model":   "llama-3.1-8b",
	})

	if !result.Success {
		t.Fatalf("probe failed: %+v", result)
	}
	if result.Status != http.StatusOK || result.Model != "llama-3.1-8b" {
		t.Fatalf("result = %+v", result)
	}
	if gotAuth != "Bearer gsk_test_key" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != "llama-3.1-8b" || gotReq.MaxTokens != 10 {
		t.Fatalf("request = %+v", gotReq)
	}
}

func TestGroqConnectionMissingKey(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "")

	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	s := NewService(newFakeStore(), NewCipher("master"), WithGroqEndpoint(srv.URL))
	result := s.TestGroqConnection(context.Background(), nil)

	if result.Success {
		t.Fatal("probe without a key succeeded")
	}
	if result.Message != "Groq API key is missing." {
		t.Fatalf("message = %q", result.Message)
	}
	if calls != 0 {
		t.Fatalf("probe made %d network calls without a key", calls)
	}
}

func TestGroqConnectionAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API Key"}}`))
	}))
	defer srv.Close()

	s := NewService(newFakeStore(), NewCipher("master"), WithGroqEndpoint(srv.URL))
	result := s.TestGroqConnection(context.Background(), map[string]string{
		"ai.groq.api_key": "gsk_bad_key",
	})

	if result.Success {
		t.Fatal("probe succeeded on 401")
	}
	if result.Status != http.StatusUnauthorized {
		t.Fatalf("status = %d", result.Status)
	}
	if result.Message != "Invalid API Key" {
		t.Fatalf("message = %q, want provider error message", result.Message)
	}
}

func TestGroqConnectionUsesStoredSecret(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	store := newFakeStore()
	cipher := NewCipher("master")
	s := NewService(store, cipher, WithGroqEndpoint(srv.URL))

	res := s.UpdateSettings(context.Background(), map[string]UpdateValue{
		"ai.groq.api_key": SetTo("gsk_stored_key"),
	}, "tester")
	if !res.Success {
		t.Fatalf("setup update failed: %+v", res)
	}

	result := s.TestGroqConnection(context.Background(), nil)
	if !result.Success {
		t.Fatalf("probe failed: %+v", result)
	}
	if gotAuth != "Bearer gsk_stored_key" {
		t.Fatalf("Authorization = %q, want stored key", gotAuth)
	}
}
