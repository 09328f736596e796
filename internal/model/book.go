// Package model はドメインモデルを定義する。
package model

import "time"

// Book は蔵書を表す。ISBNは全書籍で一意。
type Book struct {
	ID          int64
	ISBN        string
	Title       string
	Genre       string
	Description string // サニタイズ済み（HTMLタグなし）
	Author      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BookDeletedEvent は書籍削除後に外部へ通知するイベント。
// EventIDはコンシューマ側の重複排除に使用する。
type BookDeletedEvent struct {
	EventID   string    `json:"event_id"`
	BookID    int64     `json:"book_id"`
	ISBN      string    `json:"isbn"`
	DeletedAt time.Time `json:"deleted_at"`
}
