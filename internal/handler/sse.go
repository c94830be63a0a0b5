package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// SSEイベント名
const (
	sseEventError = "error"
	sseEventInfo  = "info"
)

// sseWriter はtext/event-streamのイベントを書き込む。
type sseWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// newSSEWriter はSSE用のヘッダーを書き込み、sseWriterを返す。
func newSSEWriter(w http.ResponseWriter) *sseWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

// send は1イベントを書き込んで即時送信する。dataの各行はそれぞれdata:フィールドになる。
// eventが空の場合はevent:フィールドを省略する。
func (s *sseWriter) send(event, data string) error {
	var b strings.Builder
	if event != "" {
		b.WriteString("event: ")
		b.WriteString(event)
		b.WriteByte('\n')
	}
	for _, line := range splitSSELines(data) {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if _, err := fmt.Fprint(s.w, b.String()); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// splitSSELines はCR・LF・CRLFのいずれでも行を分割する。
func splitSSELines(data string) []string {
	data = strings.ReplaceAll(data, "\r\n", "\n")
	data = strings.ReplaceAll(data, "\r", "\n")
	return strings.Split(data, "\n")
}
