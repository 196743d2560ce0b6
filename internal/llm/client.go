package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// ChunkFunc receives incremental text chunks during a streaming call, in
// arrival order. Returning an error aborts the stream.
type ChunkFunc func(chunk string) error

// Client is an abstraction over LLM providers
type Client interface {
	// Generate awaits the full response and returns it as one string
	Generate(ctx context.Context, req Request) (string, error)
	// GenerateStream yields incremental text chunks through onChunk
	GenerateStream(ctx context.Context, req Request, onChunk ChunkFunc) error
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a new LLM client based on configuration
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	default:
		return NewGeminiClient(ctx, config, apiKey)
	}
}

// GeminiClient implements Client for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
	pool   *pool
}

// NewGeminiClient creates a new Gemini client with a bounded request pool
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
		pool:   newPool(config.MaxConcurrent),
	}, nil
}

// model builds a configured generative model for the request. The
// reasoning variant leaves decoding parameters at the model's defaults;
// the standard variant pins temperature and top-k.
func (c *GeminiClient) model(req Request) (*genai.GenerativeModel, string, error) {
	name := req.model(c.config)
	if name == "" {
		return nil, "", &LLMError{Message: fmt.Sprintf("no model configured for variant %s", req.Variant)}
	}

	model := c.client.GenerativeModel(name)
	if req.Variant != VariantReasoning {
		model.SetTemperature(defaultTemperature)
		model.SetTopK(defaultTopK)
	}
	return model, name, nil
}

// Generate awaits the full response and returns it as one string
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	model, name, err := c.model(req)
	if err != nil {
		return "", err
	}

	if err := c.pool.acquire(ctx); err != nil {
		return "", &LLMError{Model: name, Message: "request pool acquisition aborted", Cause: err}
	}
	defer c.pool.release()

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", &LLMError{Model: name, Message: "generation failed", Cause: err}
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", &LLMError{Model: name, Message: "empty response", Cause: err}
	}
	return text, nil
}

// GenerateStream yields incremental text chunks through onChunk in arrival
// order, with no reordering or buffering.
func (c *GeminiClient) GenerateStream(ctx context.Context, req Request, onChunk ChunkFunc) error {
	model, name, err := c.model(req)
	if err != nil {
		return err
	}

	if err := c.pool.acquire(ctx); err != nil {
		return &LLMError{Model: name, Message: "request pool acquisition aborted", Cause: err}
	}
	defer c.pool.release()

	iter := model.GenerateContentStream(ctx, genai.Text(req.Prompt))
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return &LLMError{Model: name, Message: "stream failed", Cause: err}
		}

		chunk, err := extractTextFromResponse(resp)
		if err != nil {
			// Candidate without text parts (e.g. safety metadata), skip
			continue
		}
		if err := onChunk(chunk); err != nil {
			return err
		}
	}
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from a Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
