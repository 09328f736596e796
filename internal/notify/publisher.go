// Package notify は書籍削除イベントの非同期配信を提供する。
// Dispatcherがキューとワーカーを持ち、Publisherが実際の送信先へ書き込む。
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/bookstorage/internal/model"
)

// Publisher はイベントを1件送信する。
// 返したエラーはDispatcherが再試行の判断に使う。
type Publisher interface {
	Publish(ctx context.Context, event model.BookDeletedEvent) error
	Name() string
}

// LogPublisher は送信先が未設定の場合にイベントをログへ出力する。
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher はLogPublisherを生成する。loggerがnilの場合はslog.Default()を使う。
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// Publish はイベントをINFOレベルで出力する。
func (p *LogPublisher) Publish(ctx context.Context, event model.BookDeletedEvent) error {
	p.logger.InfoContext(ctx, "book deleted event",
		slog.String("event_id", event.EventID),
		slog.Int64("book_id", event.BookID),
		slog.String("isbn", event.ISBN),
		slog.Time("deleted_at", event.DeletedAt),
	)
	return nil
}

// Name はPublisherの識別名を返す。
func (p *LogPublisher) Name() string { return "log" }

// Fanout は複数のPublisherへ同じイベントを送信する。
// いずれかが失敗した場合はエラーを返し、Dispatcherが全体を再試行する。
// 受信側はevent_idで重複を排除する前提。
type Fanout []Publisher

// Publish は全Publisherへ送信し、失敗をまとめて返す。
// 全ての失敗が再試行不要な場合のみ再試行不要として扱う。
func (f Fanout) Publish(ctx context.Context, event model.BookDeletedEvent) error {
	var errs []error
	allPermanent := true
	for _, p := range f {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
			if !IsPermanent(err) {
				allPermanent = false
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	joined := errors.Join(errs...)
	if allPermanent {
		return Permanent(joined)
	}
	return joined
}

// Name はPublisherの識別名を返す。
func (f Fanout) Name() string { return "fanout" }

// compile-time interface check
var (
	_ Publisher = (*LogPublisher)(nil)
	_ Publisher = Fanout(nil)
)
