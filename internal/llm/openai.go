// Package llm はOpenAI互換のチャット補完APIへのストリーミング接続を提供する。
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/1Browser/backend/internal/model"
)

// メッセージのロール
const (
	RoleSystem = openai.ChatMessageRoleSystem
	RoleUser   = openai.ChatMessageRoleUser
)

// Message はプロンプトを構成する1メッセージ。
type Message struct {
	Role    string
	Content string
}

// Request は補完リクエスト。
type Request struct {
	Messages []Message
}

// Stream は開始済みの補完ストリーム。
// Recvは次の差分テキストを返し、終端ではio.EOFを返す。
// 差分が空のイベント（ロールのみ等）では空文字列を返す。
type Stream interface {
	Recv() (string, error)
	Close() error
}

// StreamOpener は補完ストリームを開始する。
type StreamOpener interface {
	OpenStream(ctx context.Context, req Request) (Stream, error)
}

// Config はOpenAIクライアントの設定。
type Config struct {
	APIKey string
	// BaseURL が空の場合はOpenAIの公開エンドポイントを使う。
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// OpenAIClient はgo-openaiによるStreamOpenerの実装。
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient はOpenAIClientを生成する。
func NewOpenAIClient(cfg Config) *OpenAIClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
	}
}

// OpenStream はストリーミング補完を開始する。
// 接続失敗・非2xxのレスポンスはErrUpstreamとなる。
func (c *OpenAIClient) OpenStream(ctx context.Context, req Request) (Stream, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open completion stream: %w", model.ErrUpstream, err)
	}

	return &openAIStream{stream: stream}, nil
}

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

func (s *openAIStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if errors.Is(err, io.EOF) {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (s *openAIStream) Close() error {
	s.stream.Close()
	return nil
}

// compile-time interface check
var _ StreamOpener = (*OpenAIClient)(nil)
