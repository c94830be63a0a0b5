// Package reader は記事URLから本文テキストを抽出するリーダーサービスのクライアントを提供する。
// リーダーサービスは {BaseURL}{記事URL} へのGETに対して本文をテキストで返す。
package reader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/1Browser/backend/internal/metrics"
	"github.com/1Browser/backend/internal/model"
	"github.com/1Browser/backend/internal/security"
)

const (
	defaultBaseURL = "https://r.jina.ai/"
	defaultMaxSize = 2 << 20
)

// URLValidator はユーザー指定URLの事前検証を行う。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// Config はリーダークライアントの設定。
type Config struct {
	BaseURL string
	MaxSize int64
}

// Client はリーダーサービスのクライアント。
type Client struct {
	httpClient *http.Client
	validator  URLValidator
	sanitizer  *security.TextSanitizer
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    string
	maxSize    int64
}

// NewClient はClientを生成する。
// httpClientには本番ではSSRFGuardService.NewSafeClientで生成したクライアントを渡す。
func NewClient(httpClient *http.Client, validator URLValidator, logger *slog.Logger, mc metrics.MetricsCollector, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultMaxSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		validator:  validator,
		sanitizer:  security.NewTextSanitizer(),
		logger:     logger,
		metrics:    mc,
		baseURL:    cfg.BaseURL,
		maxSize:    cfg.MaxSize,
	}
}

// Extract は記事URLの本文を平文で返す。
// URLの拒否・通信失敗・200以外のステータス・空の本文はすべてErrFetchとなる。
// MaxSizeを超える本文は先頭MaxSizeバイトに切り詰める。
func (c *Client) Extract(ctx context.Context, articleURL string) (string, error) {
	text, err := c.extract(ctx, articleURL)
	if err != nil {
		c.metrics.RecordExtraction(metrics.ResultFailure)
		c.logger.Warn("failed to extract article content",
			slog.String("article_url", articleURL),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: %w", model.ErrFetch, err)
	}
	c.metrics.RecordExtraction(metrics.ResultSuccess)
	return text, nil
}

func (c *Client) extract(ctx context.Context, articleURL string) (string, error) {
	if err := c.validator.ValidateURL(articleURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+articleURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create reader request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("User-Agent", "1browser/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordUpstreamLatency("reader", time.Since(start))
	if err != nil {
		return "", fmt.Errorf("reader request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("reader returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return "", fmt.Errorf("failed to read reader response: %w", err)
	}
	if int64(len(body)) > c.maxSize {
		c.logger.Info("article content truncated",
			slog.String("article_url", articleURL),
			slog.Int64("max_size", c.maxSize),
		)
		body = body[:c.maxSize]
	}

	text := c.sanitizer.Sanitize(strings.ToValidUTF8(string(body), ""))
	if text == "" {
		return "", fmt.Errorf("reader returned empty content")
	}
	return text, nil
}
