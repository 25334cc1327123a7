package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/custodia-labs/kb-sync/internal/core/domain"
)

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format"`
	Dimensions     int      `json:"dimensions"`
}

type embeddingDatum struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

func writeEmbeddings(w http.ResponseWriter, data ...embeddingDatum) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"object": "list",
		"data":   data,
		"model":  "text-embedding-3-small",
		"usage":  map[string]int{"prompt_tokens": 2, "total_tokens": 2},
	})
}

func TestNewOpenAIEmbedding_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedding(Settings{Model: "text-embedding-3-small"})
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNewOpenAIEmbedding_Defaults(t *testing.T) {
	svc, err := NewOpenAIEmbedding(Settings{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if svc.Model() != DefaultEmbeddingModel {
		t.Errorf("expected default model %s, got %s", DefaultEmbeddingModel, svc.Model())
	}
	if svc.sendDimensions {
		t.Error("dimensions must not be sent unless configured")
	}
}

func TestOpenAIEmbedding_Dimensions(t *testing.T) {
	testCases := []struct {
		model      string
		configured int
		dimensions int
	}{
		{"text-embedding-3-small", 0, 1536},
		{"text-embedding-3-large", 0, 3072},
		{"text-embedding-ada-002", 0, 1536},
		{"unknown-model", 0, 1536},
		{"text-embedding-3-large", 256, 256},
	}

	for _, tc := range testCases {
		t.Run(tc.model, func(t *testing.T) {
			svc, err := NewOpenAIEmbedding(Settings{APIKey: "sk-test", Model: tc.model, Dimensions: tc.configured})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if svc.Dimensions() != tc.dimensions {
				t.Errorf("expected dimensions %d, got %d", tc.dimensions, svc.Dimensions())
			}
		})
	}
}

func TestOpenAIEmbedding_Embed_EmptyInput(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	svc, err := NewOpenAIEmbedding(Settings{APIKey: "sk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Embed(context.Background(), []string{})
	if err != nil {
		t.Errorf("unexpected error for empty input: %v", err)
	}
	if result != nil {
		t.Error("expected nil result for empty input")
	}
	if calls.Load() != 0 {
		t.Error("expected no request for empty input")
	}
}

func TestOpenAIEmbedding_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected /embeddings, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Error("expected Authorization header")
		}

		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Input) != 2 || req.Input[0] != "hello" {
			t.Errorf("unexpected input %v", req.Input)
		}
		if req.Model != "text-embedding-3-small" {
			t.Errorf("unexpected model %s", req.Model)
		}

		// Out of order on purpose
		writeEmbeddings(w,
			embeddingDatum{Object: "embedding", Index: 1, Embedding: []float64{0.4, 0.5, 0.6}},
			embeddingDatum{Object: "embedding", Index: 0, Embedding: []float64{0.1, 0.2, 0.3}},
		)
	}))
	defer server.Close()

	svc, err := NewOpenAIEmbedding(Settings{APIKey: "sk-test", BaseURL: server.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := svc.Embed(context.Background(), []string{"hello", "world"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result))
	}
	if len(result[0]) != 3 || result[0][0] != 0.1 {
		t.Errorf("unexpected first embedding %v", result[0])
	}
	if result[1][2] != 0.6 {
		t.Errorf("unexpected second embedding %v", result[1])
	}
}

func TestOpenAIEmbedding_Embed_SendsConfiguredDimensions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Dimensions != 4 {
			t.Errorf("expected dimensions 4, got %d", req.Dimensions)
		}
		writeEmbeddings(w, embeddingDatum{Object: "embedding", Index: 0, Embedding: []float64{1, 0, 0, 0}})
	}))
	defer server.Close()

	svc, err := NewOpenAIEmbedding(Settings{APIKey: "sk-test", BaseURL: server.URL, Dimensions: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpenAIEmbedding_Embed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, embeddingDatum{Object: "embedding", Index: 0, Embedding: []float64{0.1}})
	}))
	defer server.Close()

	svc, _ := NewOpenAIEmbedding(Settings{APIKey: "sk-test", BaseURL: server.URL})

	if _, err := svc.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("expected error when fewer vectors than inputs are returned")
	}
}

func TestOpenAIEmbedding_Embed_APIError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error","code":"internal"}}`))
	}))
	defer server.Close()

	svc, _ := NewOpenAIEmbedding(Settings{APIKey: "sk-test", BaseURL: server.URL})

	if _, err := svc.Embed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error for 500 response")
	}
	if calls.Load() != 1 {
		t.Errorf("expected exactly one request, got %d", calls.Load())
	}
}

func TestOpenAIEmbedding_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, embeddingDatum{Object: "embedding", Index: 0, Embedding: []float64{0.1}})
	}))
	defer server.Close()

	svc, _ := NewOpenAIEmbedding(Settings{APIKey: "sk-test", BaseURL: server.URL})
	if err := svc.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy service, got %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("expected no error from Close, got %v", err)
	}
}

func TestNewEmbeddingService(t *testing.T) {
	svc, err := NewEmbeddingService(Settings{Provider: "OpenAI", APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Model() != DefaultEmbeddingModel {
		t.Errorf("expected default model, got %s", svc.Model())
	}

	svc, err = NewEmbeddingService(Settings{Provider: ProviderOllama})
	if err != nil {
		t.Fatalf("unexpected error for ollama: %v", err)
	}
	emb := svc.(*OpenAIEmbedding)
	if emb.baseURL != DefaultOllamaURL {
		t.Errorf("expected ollama base URL, got %s", emb.baseURL)
	}
	if emb.Dimensions() != 768 {
		t.Errorf("expected 768 dimensions, got %d", emb.Dimensions())
	}

	_, err = NewEmbeddingService(Settings{Provider: "cohere", APIKey: "x"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
