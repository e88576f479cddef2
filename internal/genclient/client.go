// Package genclient calls an OpenRouter-style chat completions API that
// returns generated images inlined as data URLs.
package genclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNoAPIKey means generation was requested without a configured credential.
var ErrNoAPIKey = errors.New("OPENROUTER_API_KEY not set")

// NoImageError means the API answered successfully but produced no image.
// Text carries whatever explanation the model returned.
type NoImageError struct {
	Text string
}

func (e *NoImageError) Error() string {
	if e.Text == "" {
		return "no image generated"
	}
	return "no image generated: " + e.Text
}

// Result is a successful generation: raw image bytes plus any accompanying
// model text.
type Result struct {
	Image []byte
	Text  string
}

// Fixed instruction appended for panorama generation: the reference image
// drives the equirectangular aspect ratio while composition is preserved.
const panoramaInstruction = "Use the first image as the reference for final aspect ratio. " +
	"This is an equirectangular panorama photo. Keep all the details and composition " +
	"but transform the style/setting as described."

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates a client for baseURL with a bounded request timeout.
// An empty apiKey is allowed; Generate then fails fast with ErrNoAPIKey.
func NewClient(baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured reports whether the API credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// GeneratePanorama augments prompt with the panorama instruction and runs a
// single-turn generation with imageB64 as the inline reference image.
func (c *Client) GeneratePanorama(ctx context.Context, prompt, imageB64, mimeType string) (*Result, error) {
	full := fmt.Sprintf("Generate an image: %s\n\n%s", prompt, panoramaInstruction)
	return c.Generate(ctx, full, imageB64, mimeType)
}

// Generate posts a single-turn chat completion. When imageB64 is empty the
// message is text-only; otherwise the prompt is paired with a data-URL image
// part. The first data-URL image in the response is decoded and returned.
func (c *Client) Generate(ctx context.Context, prompt, imageB64, mimeType string) (*Result, error) {
	const op = "genclient.Generate"

	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	var content any = prompt
	if imageB64 != "" {
		content = []contentPart{
			{Type: "text", Text: prompt},
			{Type: "image_url", ImageURL: &imageURL{
				URL: fmt.Sprintf("data:%s;base64,%s", mimeType, imageB64),
			}},
		}
	}
	payload, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: roleUser, Content: content}},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %v", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: new request: %v", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %v", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, apiErrorText(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: decode response: %v", op, err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("%s: api error: %s", op, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty choices", op)
	}

	msg := parsed.Choices[0].Message
	for _, part := range msg.Images {
		if part.Type != "image_url" || part.ImageURL == nil {
			continue
		}
		url := part.ImageURL.URL
		if !strings.HasPrefix(url, "data:image") {
			continue
		}
		i := strings.IndexByte(url, ',')
		if i < 0 {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(url[i+1:])
		if err != nil {
			return nil, fmt.Errorf("%s: decode image data: %v", op, err)
		}
		return &Result{Image: raw, Text: msg.Content}, nil
	}

	return nil, &NoImageError{Text: msg.Content}
}

// apiErrorText pulls the error message out of an error body, falling back to
// the raw body text.
func apiErrorText(body []byte) string {
	var wrapper struct {
		Error apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Message != "" {
		return wrapper.Error.Message
	}
	return strings.TrimSpace(string(body))
}
