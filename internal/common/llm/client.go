// internal/common/llm/client.go
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

var (
	ErrEmptyResponse = errors.New("LLM_EMPTY_RESPONSE")
	ErrLLMTimeout    = errors.New("LLM_TIMEOUT")
)

// Blob is inline binary input such as a voice note.
type Blob struct {
	MIMEType string
	Data     []byte
}

type Request struct {
	Prompt string
	Audio  *Blob
	// JSON asks the model for a JSON document. Schema, when set, constrains it.
	JSON        bool
	Schema      *genai.Schema
	Temperature *float32
}

// Generator produces model text for a request. Integrations depend on this
// rather than on the SDK so tests can substitute a fake.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: c, model: model, timeout: timeout}, nil
}

func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	m := c.client.GenerativeModel(c.model)
	if req.JSON {
		m.ResponseMIMEType = "application/json"
		m.ResponseSchema = req.Schema
	}
	if req.Temperature != nil {
		m.SetTemperature(*req.Temperature)
	}

	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.Audio != nil {
		parts = append(parts, genai.Blob{MIMEType: req.Audio.MIMEType, Data: req.Audio.Data})
	}

	resp, err := m.GenerateContent(ctx, parts...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrLLMTimeout, err)
		}
		return "", fmt.Errorf("gemini: %w", err)
	}
	return TextOf(resp)
}

func (c *Client) Close() error {
	return c.client.Close()
}

// TextOf concatenates the text parts of the first candidate.
func TextOf(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrEmptyResponse
	}
	return b.String(), nil
}

// StripFences removes a surrounding ``` or ```json markdown fence.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
