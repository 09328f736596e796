package notify

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	// initialBackoff は指数バックオフの初回遅延。
	initialBackoff = 200 * time.Millisecond
	// maxBackoff は指数バックオフの最大遅延。
	maxBackoff = 10 * time.Second
)

// CalculateBackoff は失敗回数に基づいて指数バックオフ遅延を計算する。
// 初回200ms、2倍ずつ増加、最大10秒。
func CalculateBackoff(failures int) time.Duration {
	delay := initialBackoff
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// permanentError は再試行しても成功しない失敗を表す。
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent はerrを再試行不要の失敗としてマークする。
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent はエラーチェーンに再試行不要の失敗が含まれるかを判定する。
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// ClassifyHTTPStatus はWebhook応答のステータスコードを配信結果に分類する。
// 2xxはnil、429/5xxは再試行可能なエラー、それ以外は再試行不要なエラーを返す。
func ClassifyHTTPStatus(statusCode int) error {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("webhook rate limited: %d", statusCode)
	case statusCode >= 500:
		return fmt.Errorf("webhook server error: %d", statusCode)
	default:
		return Permanent(fmt.Errorf("webhook rejected event: %d", statusCode))
	}
}
