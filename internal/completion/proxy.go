// Package completion はLLMの補完ストリームをクライアントへ中継するプロキシを提供する。
package completion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/1Browser/backend/internal/llm"
	"github.com/1Browser/backend/internal/metrics"
	"github.com/1Browser/backend/internal/model"
	"github.com/1Browser/backend/internal/security"
)

// ストリーム結果ラベル
const (
	OutcomeCompleted          = "completed"
	OutcomeUpstreamError      = "upstream_error"
	OutcomeCanceled           = "canceled"
	OutcomeOpenFailed         = "open_failed"
	OutcomeFetchFailed        = "fetch_failed"
	OutcomeContextUnavailable = "context_unavailable"
)

// エンドポイントラベル
const (
	EndpointStream  = "stream"
	EndpointSummary = "summary"
	EndpointChat    = "chat"
)

const summarySystemPrompt = `Summarize the key points of the following text concisely.
The summary should be in the same language as the original text.
Use plain text without any special characters or formatting.
Avoid repeating the text verbatim.
Instead, synthesize the key ideas into a brief, coherent summary.
Also, ignore any links or descriptions of images in the text.`

// Chunk はクライアントへ送る1チャンク。Errが非nilの場合はストリームの最後の要素となる。
type Chunk struct {
	Text string
	Err  error
}

// Extractor は記事URLから本文を取得する。
type Extractor interface {
	Extract(ctx context.Context, articleURL string) (string, error)
}

// ContextLedger は会話ターンを取得または作成する。
type ContextLedger interface {
	GetOrCreate(ctx context.Context, userID, articleURL, message string) (*model.Chat, error)
}

// Proxy は補完ストリームを開始し、差分テキストをチャネルへ転送する。
type Proxy struct {
	opener    llm.StreamOpener
	extractor Extractor
	ledger    ContextLedger
	logger    *slog.Logger
	metrics   metrics.MetricsCollector
}

// NewProxy はProxyを生成する。
func NewProxy(opener llm.StreamOpener, extractor Extractor, ledger ContextLedger, logger *slog.Logger, mc metrics.MetricsCollector) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Proxy{
		opener:    opener,
		extractor: extractor,
		ledger:    ledger,
		logger:    logger,
		metrics:   mc,
	}
}

// Stream は要約指示のシステムメッセージとcontentで補完を開始する。
// 開始に失敗した場合はErrUpstreamを返す。成功時のチャネルは上流の終端、
// 上流エラー、ctxの終了のいずれかで閉じられる。再開はできない。
func (p *Proxy) Stream(ctx context.Context, content string) (<-chan Chunk, error) {
	return p.open(ctx, EndpointStream, summaryMessages(content))
}

// Summarize はcontentを要約する。contentがhttp(s)の絶対URLの場合は先に本文を取得する。
// 本文の取得に失敗した場合はストリームを開始せずErrFetchを返す。
func (p *Proxy) Summarize(ctx context.Context, content string) (<-chan Chunk, error) {
	if trimmed := strings.TrimSpace(content); security.IsHTTPURL(trimmed) {
		text, err := p.extractor.Extract(ctx, trimmed)
		if err != nil {
			p.metrics.RecordCompletionStream(EndpointSummary, OutcomeFetchFailed)
			if !errors.Is(err, model.ErrFetch) {
				err = fmt.Errorf("%w: %w", model.ErrFetch, err)
			}
			return nil, err
		}
		content = text
	}
	return p.open(ctx, EndpointSummary, summaryMessages(content))
}

// Chat は会話ターンを取得または作成し、保存されたmessageを要約と同じプロンプトで補完する。
// 会話ターンを用意できない場合はErrContextUnavailableを返す。
func (p *Proxy) Chat(ctx context.Context, userID, articleURL, message string) (<-chan Chunk, error) {
	turn, err := p.ledger.GetOrCreate(ctx, userID, articleURL, message)
	if err != nil {
		p.metrics.RecordCompletionStream(EndpointChat, OutcomeContextUnavailable)
		p.logger.Warn("failed to get or create chat context",
			slog.String("user_id", userID),
			slog.String("article_url", articleURL),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %w", model.ErrContextUnavailable, err)
	}
	return p.open(ctx, EndpointChat, summaryMessages(turn.Message))
}

func summaryMessages(content string) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: summarySystemPrompt},
		{Role: llm.RoleUser, Content: content},
	}
}

func (p *Proxy) open(ctx context.Context, endpoint string, messages []llm.Message) (<-chan Chunk, error) {
	start := time.Now()
	stream, err := p.opener.OpenStream(ctx, llm.Request{Messages: messages})
	p.metrics.RecordUpstreamLatency("llm", time.Since(start))
	if err != nil {
		p.metrics.RecordCompletionStream(endpoint, OutcomeOpenFailed)
		p.logger.Error("failed to open completion stream",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		if !errors.Is(err, model.ErrUpstream) {
			err = fmt.Errorf("%w: %w", model.ErrUpstream, err)
		}
		return nil, err
	}

	// 未送信のチャンクを溜めないようバッファは持たない
	out := make(chan Chunk)
	go p.pump(ctx, endpoint, stream, out)
	return out, nil
}

// pump は上流の差分を読み出してoutへ送る。outを閉じ、上流を解放してから終了する。
func (p *Proxy) pump(ctx context.Context, endpoint string, stream llm.Stream, out chan<- Chunk) {
	defer close(out)
	defer stream.Close()

	for {
		text, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			p.metrics.RecordCompletionStream(endpoint, OutcomeCompleted)
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				p.metrics.RecordCompletionStream(endpoint, OutcomeCanceled)
				return
			}
			p.metrics.RecordCompletionStream(endpoint, OutcomeUpstreamError)
			p.logger.Error("completion stream failed",
				slog.String("endpoint", endpoint),
				slog.String("error", err.Error()),
			)
			select {
			case out <- Chunk{Err: err}:
			case <-ctx.Done():
			}
			return
		}
		if text == "" {
			continue
		}

		select {
		case out <- Chunk{Text: text}:
			p.metrics.RecordCompletionChunk()
		case <-ctx.Done():
			p.metrics.RecordCompletionStream(endpoint, OutcomeCanceled)
			return
		}
	}
}
