package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/bookstorage/internal/database"
	"github.com/hitoshi/bookstorage/internal/model"
)

const bookColumns = `id, isbn, title, genre, description, author, created_at, updated_at`

// PostgresBookRepo はPostgreSQLを使用した書籍リポジトリ。
type PostgresBookRepo struct {
	db *sql.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sql.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

// FindByID は指定IDの書籍を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByID(ctx context.Context, id int64) (*model.Book, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`,
		id,
	)
	book, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book by ID: %w", err)
	}
	return book, nil
}

// FindByISBN はISBNで書籍を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE isbn = $1`,
		isbn,
	)
	book, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book by ISBN: %w", err)
	}
	return book, nil
}

// List は全書籍をID昇順で返す。
func (r *PostgresBookRepo) List(ctx context.Context) ([]*model.Book, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	books := make([]*model.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate books: %w", err)
	}
	return books, nil
}

// Create は書籍を作成する。
func (r *PostgresBookRepo) Create(ctx context.Context, book *model.Book) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO books (isbn, title, genre, description, author)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		book.ISBN, book.Title, book.Genre, book.Description, book.Author,
	).Scan(&book.ID, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return model.NewIntegrityConflictError(err)
		}
		return fmt.Errorf("failed to insert book: %w", err)
	}
	return nil
}

// Update は書籍を更新する。
func (r *PostgresBookRepo) Update(ctx context.Context, book *model.Book) error {
	err := r.db.QueryRowContext(ctx,
		`UPDATE books
		 SET isbn = $2, title = $3, genre = $4, description = $5, author = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING created_at, updated_at`,
		book.ID, book.ISBN, book.Title, book.Genre, book.Description, book.Author,
	).Scan(&book.CreatedAt, &book.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.NewBookNotFoundError(book.ID)
	}
	if err != nil {
		if database.IsUniqueViolation(err) {
			return model.NewIntegrityConflictError(err)
		}
		return fmt.Errorf("failed to update book: %w", err)
	}
	return nil
}

// Delete は指定IDの書籍を削除する。
func (r *PostgresBookRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM books WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewBookNotFoundError(id)
	}
	return nil
}

func scanBook(s rowScanner) (*model.Book, error) {
	book := &model.Book{}
	if err := s.Scan(
		&book.ID, &book.ISBN, &book.Title, &book.Genre,
		&book.Description, &book.Author, &book.CreatedAt, &book.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return book, nil
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)
