package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func chatResponse(content, model string) openaiResponse {
	return openaiResponse{
		Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: content}}},
		Model:   model,
		Usage:   openaiUsage{PromptTokens: 10, CompletionTokens: 5},
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("unexpected content type: %s", r.Header.Get("Content-Type"))
		}

		var req openaiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Model != "gpt-4o" {
			t.Errorf("model = %q, want %q", req.Model, "gpt-4o")
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Content != "hello" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.Temperature == nil || *req.Temperature != 0.3 {
			t.Errorf("temperature = %v, want 0.3", req.Temperature)
		}

		_ = json.NewEncoder(w).Encode(chatResponse("Hi there!", "gpt-4o"))
	}))
	defer server.Close()

	provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))

	resp, err := provider.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hello"},
		},
		Temperature: 0.3,
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "Hi there!" {
		t.Errorf("content = %q, want %q", resp.Content, "Hi there!")
	}
	if resp.InputTokens != 10 {
		t.Errorf("input_tokens = %d, want 10", resp.InputTokens)
	}
	if resp.OutputTokens != 5 {
		t.Errorf("output_tokens = %d, want 5", resp.OutputTokens)
	}
}

func TestOpenAIProvider_Complete_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"api error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error": "rate limited"}`))
		}},
		{"empty choices", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(openaiResponse{})
		}},
		{"invalid body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))
			_, err := provider.Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: "user", Content: "hello"}},
			})
			if err == nil {
				t.Fatal("Complete() should return error")
			}
		})
	}
}

func TestOpenAIProvider_DefaultModels(t *testing.T) {
	tests := []struct {
		name     string
		provider func(url string) *OpenAIProvider
		wantPath string
		want     string
		wantAuth bool
	}{
		{"openai", func(u string) *OpenAIProvider { return NewOpenAIProvider("k", WithBaseURL(u)) }, "/chat/completions", "gpt-4o", true},
		{"openai override", func(u string) *OpenAIProvider {
			return NewOpenAIProvider("k", WithBaseURL(u), WithDefaultModel("gpt-4o-mini"))
		}, "/chat/completions", "gpt-4o-mini", true},
		{"deepseek", func(u string) *OpenAIProvider { return NewDeepSeekProvider("k", WithBaseURL(u)) }, "/chat/completions", "deepseek-chat", true},
		{"openrouter", func(u string) *OpenAIProvider { return NewOpenRouterProvider("k", WithBaseURL(u)) }, "/chat/completions", "openai/gpt-4o", true},
		{"ollama", func(u string) *OpenAIProvider { return NewOllamaProvider(u + "/") }, "/v1/chat/completions", "llama3.1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotModel, gotPath, gotAuth string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req openaiRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				gotModel = req.Model
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				_ = json.NewEncoder(w).Encode(chatResponse("ok", req.Model))
			}))
			defer server.Close()

			_, err := tt.provider(server.URL).Complete(context.Background(), CompletionRequest{
				Messages: []Message{{Role: "user", Content: "hi"}},
			})
			if err != nil {
				t.Fatalf("Complete() error = %v", err)
			}
			if gotModel != tt.want {
				t.Errorf("model = %q, want %q", gotModel, tt.want)
			}
			if gotPath != tt.wantPath {
				t.Errorf("path = %q, want %q", gotPath, tt.wantPath)
			}
			if (gotAuth != "") != tt.wantAuth {
				t.Errorf("Authorization = %q, wantAuth %v", gotAuth, tt.wantAuth)
			}
		})
	}
}

func TestOpenRouterProvider_SendsTitleHeader(t *testing.T) {
	var title string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.Header.Get("X-Title")
		_ = json.NewEncoder(w).Encode(chatResponse("ok", "m"))
	}))
	defer server.Close()

	p := NewOpenRouterProvider("k", WithBaseURL(server.URL))
	if _, err := p.Complete(context.Background(), CompletionRequest{}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if title != "iQRM Classbot" {
		t.Errorf("X-Title = %q", title)
	}
	if p.Name() != "openrouter" {
		t.Errorf("Name() = %q", p.Name())
	}
}

func TestOpenAIProvider_HealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{"healthy", http.StatusOK, false},
		{"unhealthy", http.StatusUnauthorized, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/models" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			provider := NewOpenAIProvider("test-key", WithBaseURL(server.URL))
			err := provider.HealthCheck(context.Background())

			if (err != nil) != tt.wantErr {
				t.Errorf("HealthCheck() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenAIProvider_Models(t *testing.T) {
	if models := NewOpenAIProvider("k").Models(); len(models) != 1 || models[0].ID != "gpt-4o" {
		t.Errorf("Models() = %+v, want default gpt-4o", models)
	}

	custom := []ModelInfo{{ID: "custom-model", Name: "Custom"}}
	if models := NewOpenAIProvider("k", WithModels(custom)).Models(); len(models) != 1 || models[0].ID != "custom-model" {
		t.Errorf("Models() = %+v, want custom models", models)
	}
}
