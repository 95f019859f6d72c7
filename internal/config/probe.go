package config

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// GroqTestResult is the outcome of one provider health check.
type GroqTestResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Status    int    `json:"status,omitempty"`
	LatencyMs int64  `json:"latencyMs,omitempty"`
	Model     string `json:"model,omitempty"`
}

type groqChatRequest struct {
	Model       string            `json:"model"`
	Messages    []groqChatMessage `json:"messages"`
	MaxTokens   int               `json:"max_tokens"`
	Temperature float64           `json:"temperature"`
}

type groqChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// TestGroqConnection checks connectivity and credentials against the
// provider using the resolved configuration plus any caller-supplied
// key/model overrides (used to test credentials before saving them).
// Interactive health check: one attempt, short timeout, no retry.
func (s *Service) TestGroqConnection(ctx context.Context, overrides map[string]string) GroqTestResult {
	runtime := s.RuntimeConfig(ctx, false)
	apiKey := runtime.AI.GroqAPIKey
	model := runtime.AI.GroqModel

	if v, ok := overrides[string(KeyAIGroqAPIKey)]; ok && v != "" {
		apiKey = v
	}
	if v, ok := overrides[string(KeyAIGroqModel)]; ok && v != "" {
		model = v
	}

	if apiKey == "" {
		return GroqTestResult{Message: "Groq API key is missing."}
	}

	body, err := json.Marshal(groqChatRequest{
		Model:       model,
		Messages:    []groqChatMessage{{Role: "user", Content: "Respond with exactly: ok"}},
		MaxTokens:   10,
		Temperature: 0,
	})
	if err != nil {
		return GroqTestResult{Message: fmt.Sprintf("Could not build test request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.groqEndpoint, bytes.NewReader(body))
	if err != nil {
		return GroqTestResult{Message: fmt.Sprintf("Could not build test request: %v", err)}
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	startedAt := s.now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return GroqTestResult{Message: fmt.Sprintf("Groq connection error: %v", err)}
	}
	defer resp.Body.Close()
	latencyMs := s.now().Sub(startedAt).Milliseconds()

	if resp.StatusCode != http.StatusOK {
		message := fmt.Sprintf("Groq request failed with status %d.", resp.StatusCode)
		var payload groqErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error.Message != "" {
			message = payload.Error.Message
		}
		return GroqTestResult{
			Message:   message,
			Status:    resp.StatusCode,
			LatencyMs: latencyMs,
			Model:     model,
		}
	}

	return GroqTestResult{
		Success:   true,
		Message:   "Groq connection successful.",
		Status:    resp.StatusCode,
		LatencyMs: latencyMs,
		Model:     model,
	}
}
