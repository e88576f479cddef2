package genclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func respondWith(t *testing.T, w http.ResponseWriter, resp chatResponse) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func imageResponse(text string, data []byte) chatResponse {
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
	return chatResponse{Choices: []chatChoice{{
		Message: responseMessage{
			Role:    "assistant",
			Content: text,
			Images: []contentPart{
				{Type: "image_url", ImageURL: &imageURL{URL: url}},
			},
		},
	}}}
}

func TestGenerate_Success(t *testing.T) {
	want := []byte{0x89, 0x50, 0x4e, 0x47}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content []struct {
					Type     string `json:"type"`
					Text     string `json:"text"`
					ImageURL *struct {
						URL string `json:"url"`
					} `json:"image_url"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request json: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 1 {
			t.Fatalf("unexpected request: %+v", req)
		}
		parts := req.Messages[0].Content
		if len(parts) != 2 || parts[0].Type != "text" || parts[1].Type != "image_url" {
			t.Fatalf("unexpected content parts: %+v", parts)
		}
		if !strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,") {
			t.Fatalf("unexpected data url: %q", parts[1].ImageURL.URL)
		}
		respondWith(t, w, imageResponse("here you go", want))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-key", "test-model", 2*time.Second)
	res, err := c.Generate(context.Background(), "a beach at dusk", "aW1n", "image/jpeg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Image) != string(want) {
		t.Fatalf("unexpected image bytes: %v", res.Image)
	}
	if res.Text != "here you go" {
		t.Fatalf("unexpected text: %q", res.Text)
	}
}

func TestGenerate_TextOnlyMessageWithoutInputImage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content any `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request json: %v", err)
		}
		if _, ok := req.Messages[0].Content.(string); !ok {
			t.Fatalf("content should be a plain string, got %T", req.Messages[0].Content)
		}
		respondWith(t, w, imageResponse("", []byte{1}))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", "m", 2*time.Second)
	if _, err := c.Generate(context.Background(), "just a prompt", "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGeneratePanorama_AugmentsPrompt(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content []contentPart `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request json: %v", err)
		}
		text := req.Messages[0].Content[0].Text
		if !strings.Contains(text, "snowy mountains") || !strings.Contains(text, "equirectangular") {
			t.Fatalf("prompt not augmented: %q", text)
		}
		respondWith(t, w, imageResponse("", []byte{1}))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", "m", 2*time.Second)
	if _, err := c.GeneratePanorama(context.Background(), "snowy mountains", "aW1n", "image/png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenerate_NoImageInResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWith(t, w, chatResponse{Choices: []chatChoice{{
			Message: responseMessage{Role: "assistant", Content: "cannot do that"},
		}}})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", "m", 2*time.Second)
	_, err := c.Generate(context.Background(), "p", "aW1n", "image/jpeg")
	var noImg *NoImageError
	if !errors.As(err, &noImg) {
		t.Fatalf("got %v, want NoImageError", err)
	}
	if noImg.Text != "cannot do that" {
		t.Fatalf("unexpected text: %q", noImg.Text)
	}
}

func TestGenerate_MissingAPIKey(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "", "m", time.Second)
	if _, err := c.Generate(context.Background(), "p", "", ""); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("got %v, want ErrNoAPIKey", err)
	}
	if c.Configured() {
		t.Fatal("Configured should be false without a key")
	}
}

func TestGenerate_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "k", "m", 2*time.Second)
	_, err := c.Generate(context.Background(), "p", "", "")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("got %v, want quota error", err)
	}
}
