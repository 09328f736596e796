// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/bookstorage/internal/model"
)

// UserRepository はユーザーデータ（認証情報ストア）の永続化インターフェース。
// 論理削除済みのユーザーは全ての読み取りメソッドから除外される。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを取得する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// List は全ユーザーをID昇順で返す。0件の場合は空スライスを返す。
	List(ctx context.Context) ([]*model.User, error)

	// Create はユーザーを作成し、採番されたIDとタイムスタンプをuserに設定する。
	// 一意制約違反はKindIntegrityConflictのAPIErrorとして返す。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザー名・パスワードハッシュ・ロールを上書き更新する。
	Update(ctx context.Context, user *model.User) error

	// SoftDelete は指定IDのユーザーに論理削除フラグを設定する。
	SoftDelete(ctx context.Context, id int64) error
}

// BookRepository は書籍データの永続化インターフェース。
type BookRepository interface {
	// FindByID は指定IDの書籍を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Book, error)

	// FindByISBN はISBNで書籍を取得する。見つからない場合はnilを返す。
	FindByISBN(ctx context.Context, isbn string) (*model.Book, error)

	// List は全書籍をID昇順で返す。0件の場合は空スライスを返す。
	List(ctx context.Context) ([]*model.Book, error)

	// Create は書籍を作成し、採番されたIDとタイムスタンプをbookに設定する。
	Create(ctx context.Context, book *model.Book) error

	// Update は書籍の全フィールドを上書き更新する。
	Update(ctx context.Context, book *model.Book) error

	// Delete は指定IDの書籍を物理削除する。
	Delete(ctx context.Context, id int64) error
}
