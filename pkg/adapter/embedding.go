package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/engram/pkg/errs"
	"github.com/m-mizutani/goerr/v2"
)

// Embedder converts text to fixed-dimension vectors via an external
// provider. Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed converts a single text to a vector of Dimension() length
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts texts in one provider call. The result is
	// order-preserving and has the same length as texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the configured vector length
	Dimension() int
}

// OpenAIClient calls an OpenAI-compatible /v1/embeddings endpoint
type OpenAIClient struct {
	endpoint   string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
}

type OpenAIOption func(*OpenAIClient)

// WithModel overrides the provider-side embedding model
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.model = model
	}
}

// WithDimension sets the expected vector length of the model output
func WithDimension(dim int) OpenAIOption {
	return func(c *OpenAIClient) {
		c.dimension = dim
	}
}

// WithHTTPClient replaces the underlying HTTP client, e.g. to adjust
// the per-call timeout
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(c *OpenAIClient) {
		c.httpClient = client
	}
}

// NewOpenAI creates an embedding client for an OpenAI-compatible API.
// endpoint is the full embeddings URL, e.g. https://api.openai.com/v1/embeddings
func NewOpenAI(endpoint, apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		endpoint:   endpoint,
		apiKey:     apiKey,
		model:      "text-embedding-3-small",
		dimension:  1536,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type embedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, goerr.New("no texts to embed", goerr.T(errs.TagInvalidInput))
	}
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, goerr.New("text must not be empty", goerr.T(errs.TagInvalidInput))
		}
	}

	body, err := json.Marshal(embedRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal embedding request",
			goerr.T(errs.TagEmbeddingUnavailable))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build embedding request",
			goerr.T(errs.TagEmbeddingUnavailable))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "embedding request failed",
			goerr.T(errs.TagEmbeddingUnavailable))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, goerr.New("embedding provider returned an error",
			goerr.T(errs.TagEmbeddingUnavailable),
			goerr.V("status", resp.StatusCode), goerr.V("body", string(msg)))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, goerr.Wrap(err, "failed to decode embedding response",
			goerr.T(errs.TagEmbeddingUnavailable))
	}

	if len(result.Data) != len(texts) {
		return nil, goerr.New("embedding response length mismatch",
			goerr.T(errs.TagEmbeddingUnavailable),
			goerr.V("want", len(texts)), goerr.V("got", len(result.Data)))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range result.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, goerr.New("embedding response index out of range",
				goerr.T(errs.TagEmbeddingUnavailable), goerr.V("index", d.Index))
		}
		if len(d.Embedding) != c.dimension {
			return nil, goerr.New("embedding dimension mismatch",
				goerr.T(errs.TagEmbeddingUnavailable),
				goerr.V("want", c.dimension), goerr.V("got", len(d.Embedding)))
		}
		vectors[d.Index] = d.Embedding
	}

	return vectors, nil
}

func (c *OpenAIClient) Dimension() int {
	return c.dimension
}
