// Package embedder talks to the external face-embedding service. The service
// is an opaque function from an image to zero or more fixed-length vectors;
// the core never learns how the vectors are produced and discovers their
// dimensionality from the first successful response.
package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://localhost:8000"

	// requestTimeout bounds a single embedding call; the core surfaces a
	// timeout as an error instead of hanging the recognition loop.
	requestTimeout = 30 * time.Second
)

// Client computes face embeddings using the embedding server.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new embedding client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// facesResponse represents the response from the embedding server. One
// vector per detected face; an image with no detectable face yields an
// empty list, which is a valid response, not an error.
type facesResponse struct {
	Dim        int         `json:"dim"`
	Embeddings [][]float32 `json:"embeddings"`
}

// postMultipartImage posts the image as a multipart form to the endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// EmbedFaces returns one embedding per face detected in the image, possibly
// none. All vectors in one response share the reported dimensionality.
func (c *Client) EmbedFaces(ctx context.Context, imageData []byte) ([][]float32, error) {
	body, err := c.postMultipartImage(ctx, "/embed/faces", imageData)
	if err != nil {
		return nil, err
	}

	var resp facesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	for i, emb := range resp.Embeddings {
		if len(emb) != resp.Dim {
			return nil, fmt.Errorf("embedding %d has dim %d, response declares %d", i, len(emb), resp.Dim)
		}
	}

	return resp.Embeddings, nil
}
