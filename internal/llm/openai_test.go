package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/1Browser/backend/internal/model"
)

// writeChunk はOpenAI形式のストリーミングチャンクを1イベント書き込む。
func writeChunk(w http.ResponseWriter, content string) {
	payload := map[string]interface{}{
		"id":      "chatcmpl-test",
		"object":  "chat.completion.chunk",
		"created": 1700000000,
		"model":   "gpt-4-turbo",
		"choices": []map[string]interface{}{
			{"index": 0, "delta": map[string]string{"content": content}},
		},
	}
	b, _ := json.Marshal(payload)
	fmt.Fprintf(w, "data: %s\n\n", b)
	w.(http.Flusher).Flush()
}

func newCompletionServer(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(Config{
		APIKey:     "sk-test",
		BaseURL:    srv.URL + "/v1",
		Model:      "gpt-4-turbo",
		HTTPClient: srv.Client(),
	})
}

func TestOpenAIClient_OpenStream_ReceivesDeltas(t *testing.T) {
	client := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		var body struct {
			Model    string `json:"model"`
			Stream   bool   `json:"stream"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if body.Model != "gpt-4-turbo" || !body.Stream {
			t.Errorf("model = %q, stream = %v", body.Model, body.Stream)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "hello" {
			t.Errorf("unexpected messages: %+v", body.Messages)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		writeChunk(w, "")
		writeChunk(w, "Hel")
		writeChunk(w, "lo")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	stream, err := client.OpenStream(context.Background(), Request{Messages: []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hello"},
	}})
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	defer stream.Close()

	var got []string
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		got = append(got, delta)
	}

	want := []string{"", "Hel", "lo"}
	if len(got) != len(want) {
		t.Fatalf("deltas = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delta[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestOpenAIClient_OpenStream_HTTPError_IsUpstream(t *testing.T) {
	client := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
	})

	_, err := client.OpenStream(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if !errors.Is(err, model.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestOpenAIClient_OpenStream_Unreachable_IsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := NewOpenAIClient(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "m"})
	srv.Close()

	_, err := client.OpenStream(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if !errors.Is(err, model.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestOpenAIClient_Recv_MalformedChunk_IsUpstream(t *testing.T) {
	client := newCompletionServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		writeChunk(w, "ok")
		fmt.Fprint(w, "data: {not json\n\n")
	})

	stream, err := client.OpenStream(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	if err != nil {
		t.Fatalf("OpenStream() error = %v", err)
	}
	defer stream.Close()

	if delta, err := stream.Recv(); err != nil || delta != "ok" {
		t.Fatalf("first Recv() = %q, %v", delta, err)
	}
	if _, err := stream.Recv(); !errors.Is(err, model.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}
