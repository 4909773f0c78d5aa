package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultOllamaURL = "http://localhost:11434"
	ollamaChatPath   = "/api/chat"
	defaultTimeout   = 60 * time.Second
)

// OllamaProvider implements StreamingProvider for the Ollama local API.
type OllamaProvider struct {
	model        string
	apiURL       string
	httpClient   *http.Client
	streamClient *http.Client
}

// ollamaRequest is the request body sent to the Ollama API.
type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

// ollamaMessage is a single message in the Ollama chat format.
type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ollamaOptions controls generation parameters.
type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

// ollamaResponse is one response object. Non-streaming calls get exactly
// one; streaming calls get one per line until Done.
type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// NewOllamaProvider creates a provider that talks to an Ollama instance.
// An empty baseURL means the local default.
func NewOllamaProvider(model, baseURL string, timeout time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &OllamaProvider{
		model:        model,
		apiURL:       strings.TrimRight(baseURL, "/") + ollamaChatPath,
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: newStreamClient(timeout),
	}
}

// Complete sends messages to Ollama and returns the response text.
func (o *OllamaProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := o.post(ctx, messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(respBody, &ollamaResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if ollamaResp.Error != "" {
		return "", fmt.Errorf("Ollama API error: %s", ollamaResp.Error)
	}

	return strings.TrimSpace(ollamaResp.Message.Content), nil
}

// CompleteStream sends messages to Ollama with streaming enabled. Ollama
// answers with one JSON object per line.
func (o *OllamaProvider) CompleteStream(ctx context.Context, messages []Message) <-chan Fragment {
	ch := make(chan Fragment)
	go func() {
		defer close(ch)

		resp, err := o.post(ctx, messages, true)
		if err != nil {
			send(ctx, ch, Fragment{Err: err})
			return
		}
		defer resp.Body.Close()

		dec := json.NewDecoder(resp.Body)
		for {
			var chunk ollamaResponse
			if err := dec.Decode(&chunk); err != nil {
				if errors.Is(err, io.EOF) {
					send(ctx, ch, Fragment{Err: fmt.Errorf("Ollama stream ended before completion")})
					return
				}
				send(ctx, ch, Fragment{Err: fmt.Errorf("failed to parse stream: %w", err)})
				return
			}
			if chunk.Error != "" {
				send(ctx, ch, Fragment{Err: fmt.Errorf("Ollama API error: %s", chunk.Error)})
				return
			}
			if !send(ctx, ch, Fragment{Content: chunk.Message.Content}) {
				return
			}
			if chunk.Done {
				return
			}
		}
	}()
	return ch
}

func (o *OllamaProvider) post(ctx context.Context, messages []Message, stream bool) (*http.Response, error) {
	// Convert provider-agnostic messages to Ollama format.
	ollamaMsgs := make([]ollamaMessage, len(messages))
	for i, m := range messages {
		ollamaMsgs[i] = ollamaMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(ollamaRequest{
		Model:    o.model,
		Messages: ollamaMsgs,
		Stream:   stream,
		Options:  ollamaOptions{Temperature: 0.7},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := o.httpClient
	if stream {
		client = o.streamClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("could not reach Ollama at %s — is it running? (start with: ollama serve): %w", o.apiURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		errMsg := string(respBody)
		if strings.Contains(errMsg, "model") && strings.Contains(errMsg, "not found") {
			return nil, fmt.Errorf("model %q not found — run: ollama pull %s", o.model, o.model)
		}
		return nil, fmt.Errorf("Ollama API error (status %d): %s", resp.StatusCode, errMsg)
	}
	return resp, nil
}
