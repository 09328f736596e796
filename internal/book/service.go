// Package book は書籍カタログのドメインロジックを提供する。
package book

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/bookstorage/internal/model"
	"github.com/hitoshi/bookstorage/internal/repository"
)

// DeleteNotifier は書籍削除イベントの通知先。
// 呼び出し元のリクエストをブロックしてはならない。
type DeleteNotifier interface {
	NotifyBookDeleted(event model.BookDeletedEvent)
}

// TextSanitizer は自由入力テキストからHTMLを除去する。
type TextSanitizer interface {
	SanitizeText(raw string) string
}

// Input は書籍の作成・更新の入力。
type Input struct {
	ISBN        string
	Title       string
	Genre       string
	Description string
	Author      string
}

// Service は書籍カタログのサービス層。
type Service struct {
	bookRepo  repository.BookRepository
	notifier  DeleteNotifier
	sanitizer TextSanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(bookRepo repository.BookRepository, notifier DeleteNotifier, sanitizer TextSanitizer) *Service {
	return &Service{
		bookRepo:  bookRepo,
		notifier:  notifier,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// GetByID は指定IDの書籍を返す。
func (s *Service) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(id)
	}
	return book, nil
}

// GetByISBN はISBNで書籍を返す。
func (s *Service) GetByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	book, err := s.bookRepo.FindByISBN(ctx, isbn)
	if err != nil {
		return nil, fmt.Errorf("failed to get book by isbn: %w", err)
	}
	if book == nil {
		return nil, model.NewBookISBNNotFoundError(isbn)
	}
	return book, nil
}

// GetAll は全書籍を返す。0件の場合は空スライス。
func (s *Service) GetAll(ctx context.Context) ([]*model.Book, error) {
	books, err := s.bookRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	if books == nil {
		books = []*model.Book{}
	}
	return books, nil
}

// Create は書籍を作成する。
// 同一ISBNの書籍が存在する場合はKindDuplicateを返し、書き込みは行わない。
func (s *Service) Create(ctx context.Context, in Input) (*model.Book, error) {
	existing, err := s.bookRepo.FindByISBN(ctx, in.ISBN)
	if err != nil {
		return nil, fmt.Errorf("failed to check isbn: %w", err)
	}
	if existing != nil {
		return nil, model.NewDuplicateISBNError(in.ISBN)
	}

	book := &model.Book{}
	s.apply(book, in)
	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	slog.Info("book created",
		slog.Int64("book_id", book.ID),
		slog.String("isbn", book.ISBN),
	)
	return book, nil
}

// Update は指定IDの書籍の全フィールドを置き換える。
// ISBNを変更する場合、他の書籍と重複していればKindDuplicateを返す。
func (s *Service) Update(ctx context.Context, id int64, in Input) (*model.Book, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(id)
	}

	if in.ISBN != book.ISBN {
		other, err := s.bookRepo.FindByISBN(ctx, in.ISBN)
		if err != nil {
			return nil, fmt.Errorf("failed to check isbn: %w", err)
		}
		if other != nil && other.ID != id {
			return nil, model.NewDuplicateISBNError(in.ISBN)
		}
	}

	s.apply(book, in)
	if err := s.bookRepo.Update(ctx, book); err != nil {
		if model.KindOf(err) == model.KindIntegrityConflict {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}

	slog.Info("book updated", slog.Int64("book_id", id))
	return book, nil
}

// Delete は指定IDの書籍を削除し、削除確定後に通知を発行する。
// 書籍が存在しない場合は削除も通知も行わない。
func (s *Service) Delete(ctx context.Context, id int64) error {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get book: %w", err)
	}
	if book == nil {
		return model.NewBookNotFoundError(id)
	}

	if err := s.bookRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	event := model.BookDeletedEvent{
		EventID:   uuid.NewString(),
		BookID:    book.ID,
		ISBN:      book.ISBN,
		DeletedAt: s.now().UTC(),
	}
	s.notifier.NotifyBookDeleted(event)

	slog.Info("book deleted",
		slog.Int64("book_id", book.ID),
		slog.String("isbn", book.ISBN),
		slog.String("event_id", event.EventID),
	)
	return nil
}

func (s *Service) apply(book *model.Book, in Input) {
	book.ISBN = in.ISBN
	book.Title = in.Title
	book.Genre = in.Genre
	book.Author = in.Author
	book.Description = s.sanitizer.SanitizeText(in.Description)
}
