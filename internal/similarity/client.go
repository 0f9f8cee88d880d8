// internal/similarity/client.go
//
// HTTP client for the external word-embedding service.
// Responsibilities:
//   - Fetch the candidate word list (GET /get-words).
//   - Fetch the embedding vector for a single word (POST /get-embedding).
//   - Evaluate a free-text expression into a vector (POST /calculate-vector).
//   - Compare a vector against a target word (POST /compare-to-target).
//
// Error taxonomy:
//   - ErrUnavailable: transport failure or 5xx from the service.
//   - ErrInvalid:     4xx from the service or a malformed/empty response body.
//
// The client performs no retries; retry policy (one word-list refresh on an
// empty list, nothing else) belongs to the round coordinator.

package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrUnavailable indicates the embedding service could not be reached
	// or answered with a server-side error.
	ErrUnavailable = errors.New("similarity: service unavailable")

	// ErrInvalid indicates the service rejected the request or returned a
	// response the client could not use (e.g. a missing vector field).
	ErrInvalid = errors.New("similarity: invalid request or response")
)

// Client talks to the embedding service. Safe for concurrent use.
type Client struct {
	base string
	hc   *http.Client
}

// New constructs a Client for the service at baseURL (no trailing slash
// required). The underlying http.Client bounds each call at 10 seconds.
func New(baseURL string) *Client {
	for len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		baseURL = baseURL[:len(baseURL)-1]
	}
	return &Client{
		base: baseURL,
		hc:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Words returns the service's current candidate word list.
func (c *Client) Words(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/get-words", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var out struct {
		Words []string `json:"words"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Words, nil
}

// Embedding returns the embedding vector for word.
func (c *Client) Embedding(ctx context.Context, word string) ([]float64, error) {
	var out struct {
		Vector []float64 `json:"vector"`
	}
	if err := c.post(ctx, "/get-embedding", map[string]string{"word": word}, &out); err != nil {
		return nil, err
	}
	if len(out.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector for %q", ErrInvalid, word)
	}
	return out.Vector, nil
}

// ExpressionVector evaluates a word-arithmetic expression (e.g. "king - man
// + woman") into a single vector. Parsing happens service-side.
func (c *Client) ExpressionVector(ctx context.Context, expr string) ([]float64, error) {
	var out struct {
		Vector []float64 `json:"vector"`
	}
	if err := c.post(ctx, "/calculate-vector", map[string]string{"expression": expr}, &out); err != nil {
		return nil, err
	}
	if len(out.Vector) == 0 {
		return nil, fmt.Errorf("%w: empty vector for expression", ErrInvalid)
	}
	return out.Vector, nil
}

// Similarity returns the cosine similarity in [-1, 1] between vector and the
// stored embedding of target.
func (c *Client) Similarity(ctx context.Context, target string, vector []float64) (float64, error) {
	var out struct {
		Similarity float64 `json:"similarity"`
	}
	body := map[string]any{"target_word": target, "calculated_vector": vector}
	if err := c.post(ctx, "/compare-to-target", body, &out); err != nil {
		return 0, err
	}
	return out.Similarity, nil
}

// post marshals body, issues a POST, and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do executes the request and maps failures onto the error taxonomy.
func (c *Client) do(req *http.Request, out any) error {
	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode >= 500:
		return fmt.Errorf("%w: %s returned %d", ErrUnavailable, req.URL.Path, res.StatusCode)
	case res.StatusCode >= 400:
		return fmt.Errorf("%w: %s returned %d", ErrInvalid, req.URL.Path, res.StatusCode)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrInvalid, req.URL.Path, err)
	}
	return nil
}
