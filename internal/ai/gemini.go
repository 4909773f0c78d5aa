package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const (
	defaultGeminiURL = "https://generativelanguage.googleapis.com"
	geminiAPIVersion = "v1beta"
	maxErrorBody     = 4096
	maxSSELine       = 1 << 20
)

// ErrMalformedChunk is returned when a Gemini response is not valid JSON.
var ErrMalformedChunk = errors.New("malformed Gemini response chunk")

// GeminiProvider implements StreamingProvider for the Gemini API.
type GeminiProvider struct {
	apiKey       string
	model        string
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// NewGeminiProvider creates a provider for the Gemini API. An empty
// baseURL means the public endpoint.
func NewGeminiProvider(apiKey, model, baseURL string, timeout time.Duration) *GeminiProvider {
	if baseURL == "" {
		baseURL = defaultGeminiURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &GeminiProvider{
		apiKey:       apiKey,
		model:        model,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: newStreamClient(timeout),
	}
}

// Complete sends messages to generateContent and returns the response text.
func (g *GeminiProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := g.post(ctx, g.httpClient, "generateContent", nil, messages)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	text, err := parseGeminiChunk(string(body))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// CompleteStream calls streamGenerateContent with server-sent events. Every
// "data:" line carries one GenerateContentResponse.
func (g *GeminiProvider) CompleteStream(ctx context.Context, messages []Message) <-chan Fragment {
	ch := make(chan Fragment)
	go func() {
		defer close(ch)

		resp, err := g.post(ctx, g.streamClient, "streamGenerateContent", url.Values{"alt": {"sse"}}, messages)
		if err != nil {
			send(ctx, ch, Fragment{Err: err})
			return
		}
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data:")
			if !ok {
				continue
			}
			data = strings.TrimSpace(data)
			if data == "" || data == "[DONE]" {
				continue
			}
			text, err := parseGeminiChunk(data)
			if err != nil {
				send(ctx, ch, Fragment{Err: err})
				return
			}
			if !send(ctx, ch, Fragment{Content: text}) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				return
			}
			send(ctx, ch, Fragment{Err: fmt.Errorf("Gemini stream interrupted: %w", err)})
		}
	}()
	return ch
}

// parseGeminiChunk extracts the text of the first candidate.
func parseGeminiChunk(data string) (string, error) {
	if !gjson.Valid(data) {
		return "", ErrMalformedChunk
	}
	if msg := gjson.Get(data, "error.message"); msg.Exists() {
		return "", fmt.Errorf("Gemini API error: %s", msg.String())
	}
	if reason := gjson.Get(data, "promptFeedback.blockReason"); reason.Exists() {
		return "", fmt.Errorf("prompt blocked by Gemini: %s", reason.String())
	}

	var text strings.Builder
	for _, part := range gjson.Get(data, "candidates.0.content.parts.#.text").Array() {
		text.WriteString(part.String())
	}
	return text.String(), nil
}

func (g *GeminiProvider) post(ctx context.Context, client *http.Client, method string, query url.Values, messages []Message) (*http.Response, error) {
	body, err := json.Marshal(buildGeminiRequest(messages))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:%s", g.baseURL, geminiAPIVersion, url.PathEscape(g.model), method)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("could not reach Gemini at %s — check your connection: %w", g.baseURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, geminiStatusError(resp.StatusCode, g.model, errBody)
	}
	return resp, nil
}

func geminiStatusError(status int, model string, body []byte) error {
	msg := gjson.GetBytes(body, "error.message").String()
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		if strings.Contains(strings.ToLower(msg), "api key") {
			return fmt.Errorf("Gemini rejected the API key — run: gallery config set-key <key> (%s)", msg)
		}
	case http.StatusNotFound:
		return fmt.Errorf("model %q not found — run: gallery config set-model <model>", model)
	case http.StatusTooManyRequests:
		return fmt.Errorf("Gemini quota exceeded (status %d): %s", status, msg)
	}
	return fmt.Errorf("Gemini API error (status %d): %s", status, msg)
}

// buildGeminiRequest maps provider-agnostic messages onto Gemini contents.
// System messages become the system instruction; assistant turns use the
// "model" role.
func buildGeminiRequest(messages []Message) geminiRequest {
	var req geminiRequest
	var system []string
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}
	return req
}
