package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sseChunk(text string) string {
	return fmt.Sprintf(`data: {"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`+"\r\n\r\n", text)
}

func TestGeminiCompleteStream_ParsesSSE(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	var gotBody geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseChunk("We're open "))
		io.WriteString(w, ": keep-alive comment\n\n")
		io.WriteString(w, sseChunk("9am to 5pm."))
	}))
	defer srv.Close()

	g := NewGeminiProvider("test-key", "gemini-2.5-flash", srv.URL, time.Second)
	msgs := []Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "earlier"},
		{Role: RoleAssistant, Content: "reply"},
		{Role: RoleUser, Content: "Tell me about the gallery hours"},
	}

	result, err := Collect(g.CompleteStream(context.Background(), msgs))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "We're open 9am to 5pm." {
		t.Errorf("unexpected result: %q", result)
	}
	if gotPath != "/v1beta/models/gemini-2.5-flash:streamGenerateContent" {
		t.Errorf("unexpected path: %s", gotPath)
	}
	if gotQuery != "alt=sse" {
		t.Errorf("expected alt=sse, got %q", gotQuery)
	}
	if gotKey != "test-key" {
		t.Errorf("expected api key header, got %q", gotKey)
	}
	if gotBody.SystemInstruction == nil || gotBody.SystemInstruction.Parts[0].Text != "persona" {
		t.Errorf("expected system instruction, got %+v", gotBody.SystemInstruction)
	}
	if len(gotBody.Contents) != 3 || gotBody.Contents[1].Role != "model" {
		t.Errorf("unexpected contents: %+v", gotBody.Contents)
	}
}

func TestGeminiCompleteStream_ErrorMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, sseChunk("partial"))
		io.WriteString(w, `data: {"error":{"code":503,"message":"overloaded"}}`+"\n\n")
		io.WriteString(w, sseChunk("never"))
	}))
	defer srv.Close()

	g := NewGeminiProvider("k", "m", srv.URL, time.Second)
	result, err := Collect(g.CompleteStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("expected overloaded error, got: %v", err)
	}
	if result != "partial" {
		t.Errorf("expected 'partial' before the error, got %q", result)
	}
}

func TestGeminiCompleteStream_MalformedChunk(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {not json\n\n")
	}))
	defer srv.Close()

	g := NewGeminiProvider("k", "m", srv.URL, time.Second)
	_, err := Collect(g.CompleteStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
	if !errors.Is(err, ErrMalformedChunk) {
		t.Fatalf("expected ErrMalformedChunk, got %v", err)
	}
}

func TestGeminiCompleteStream_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"bad key", http.StatusBadRequest, `{"error":{"message":"API key not valid. Please pass a valid API key."}}`, "set-key"},
		{"unknown model", http.StatusNotFound, `{"error":{"message":"models/x is not found"}}`, "set-model"},
		{"quota", http.StatusTooManyRequests, `{"error":{"message":"Resource has been exhausted"}}`, "quota"},
		{"plain body", http.StatusInternalServerError, `boom`, "status 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			g := NewGeminiProvider("k", "x", srv.URL, time.Second)
			_, err := Collect(g.CompleteStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got: %v", tt.want, err)
			}
		})
	}
}

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Hello "},{"text":"there\n"}]}}]}`)
	}))
	defer srv.Close()

	g := NewGeminiProvider("k", "m", srv.URL, time.Second)
	text, err := g.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Hello there" {
		t.Errorf("expected 'Hello there', got %q", text)
	}
}

func TestGeminiCompleteStream_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	g := NewGeminiProvider("k", "m", url, time.Second)
	_, err := Collect(g.CompleteStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
	if err == nil || !strings.Contains(err.Error(), "could not reach Gemini") {
		t.Fatalf("expected connection error, got: %v", err)
	}
}

func TestParseGeminiChunk(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{"single part", `{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`, "hi", false},
		{"multi part", `{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}]}`, "ab", false},
		{"no text", `{"candidates":[{"finishReason":"STOP"}]}`, "", false},
		{"blocked", `{"promptFeedback":{"blockReason":"SAFETY"}}`, "", true},
		{"api error", `{"error":{"message":"nope"}}`, "", true},
		{"invalid", `{`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGeminiChunk(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("wantErr=%v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestGeminiCompleteStream_OutlastsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for i := 0; i < 5; i++ {
			io.WriteString(w, sseChunk(fmt.Sprintf("w%d ", i)))
			flusher.Flush()
			time.Sleep(100 * time.Millisecond)
		}
	}))
	defer srv.Close()

	g := NewGeminiProvider("k", "m", srv.URL, 250*time.Millisecond)
	result, err := Collect(g.CompleteStream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}))
	if err != nil {
		t.Fatalf("long stream should complete, got: %v", err)
	}
	if result != "w0 w1 w2 w3 w4 " {
		t.Errorf("unexpected result: %q", result)
	}
}
