package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hitoshi/bookstorage/internal/model"
)

// maxDrainBytes は接続再利用のために読み捨てる応答ボディの上限。
const maxDrainBytes = 4 << 10

// WebhookPublisher はイベントをJSONでPOSTする。
// clientには本番ではSSRFGuardService.NewSafeClientの結果を渡す。
type WebhookPublisher struct {
	client *http.Client
	url    string
}

// NewWebhookPublisher はWebhookPublisherを生成する。
func NewWebhookPublisher(client *http.Client, url string) *WebhookPublisher {
	return &WebhookPublisher{client: client, url: url}
}

// Publish はイベントを送信し、応答ステータスで成否を判定する。
// X-Event-IDヘッダーで受信側の重複排除を可能にする。
func (p *WebhookPublisher) Publish(ctx context.Context, event model.BookDeletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return Permanent(fmt.Errorf("failed to marshal event: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return Permanent(fmt.Errorf("failed to build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "bookstorage-notifier/1.0")
	req.Header.Set("X-Event-ID", event.EventID)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return ClassifyHTTPStatus(resp.StatusCode)
}

// Name はPublisherの識別名を返す。
func (p *WebhookPublisher) Name() string { return "webhook" }

// compile-time interface check
var _ Publisher = (*WebhookPublisher)(nil)
