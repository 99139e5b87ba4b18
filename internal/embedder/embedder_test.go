package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/embed/faces", handler)
	return httptest.NewServer(mux)
}

func TestEmbedFaces_SingleFace(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("expected multipart file field: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"dim":        4,
			"embeddings": [][]float32{{0.1, 0.2, 0.3, 0.4}},
		})
	})
	defer server.Close()

	client := NewClient(server.URL)
	embeddings, err := client.EmbedFaces(context.Background(), []byte("fake-jpeg"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(embeddings) != 1 {
		t.Fatalf("expected 1 embedding, got %d", len(embeddings))
	}
	if len(embeddings[0]) != 4 {
		t.Errorf("expected dim 4, got %d", len(embeddings[0]))
	}
}

func TestEmbedFaces_NoFaces(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"dim":        512,
			"embeddings": [][]float32{},
		})
	})
	defer server.Close()

	client := NewClient(server.URL)
	embeddings, err := client.EmbedFaces(context.Background(), []byte("fake-jpeg"))
	if err != nil {
		t.Fatalf("no-face response is valid, got error: %v", err)
	}
	if len(embeddings) != 0 {
		t.Errorf("expected 0 embeddings, got %d", len(embeddings))
	}
}

func TestEmbedFaces_ServerError(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.EmbedFaces(context.Background(), []byte("fake-jpeg")); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestEmbedFaces_DimDisagreement(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"dim":        4,
			"embeddings": [][]float32{{0.1, 0.2}},
		})
	})
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.EmbedFaces(context.Background(), []byte("fake-jpeg")); err == nil {
		t.Error("expected error when vector length disagrees with declared dim")
	}
}

func TestEmbedFaces_InvalidJSON(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.EmbedFaces(context.Background(), []byte("fake-jpeg")); err == nil {
		t.Error("expected error for malformed response")
	}
}

func TestNewClient_DefaultURL(t *testing.T) {
	client := NewClient("")
	if client.baseURL != defaultBaseURL {
		t.Errorf("expected default base URL, got %s", client.baseURL)
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient("http://embed:8000/")
	if client.baseURL != "http://embed:8000" {
		t.Errorf("expected trailing slash trimmed, got %s", client.baseURL)
	}
}
