package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookstorage/internal/book"
	"github.com/hitoshi/bookstorage/internal/middleware"
	"github.com/hitoshi/bookstorage/internal/model"
)

// isbnParamTag はパスパラメータisbnの検証ルール。
const isbnParamTag = "required,max=32,isbn_chars"

// BookServiceInterface は書籍ハンドラーが必要とするサービスインターフェース。
type BookServiceInterface interface {
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	GetByISBN(ctx context.Context, isbn string) (*model.Book, error)
	GetAll(ctx context.Context) ([]*model.Book, error)
	Create(ctx context.Context, in book.Input) (*model.Book, error)
	Update(ctx context.Context, id int64, in book.Input) (*model.Book, error)
	// Delete は書籍を削除し、削除通知を非同期で送る。
	Delete(ctx context.Context, id int64) error
}

// bookRequest は書籍作成・更新リクエストのボディ。
type bookRequest struct {
	ISBN        string `json:"isbn" validate:"required,max=32,isbn_chars"`
	Title       string `json:"title" validate:"required,max=255"`
	Genre       string `json:"genre" validate:"max=100"`
	Description string `json:"description" validate:"max=4000"`
	Author      string `json:"author" validate:"max=255"`
}

func (req bookRequest) input() book.Input {
	return book.Input{
		ISBN:        req.ISBN,
		Title:       req.Title,
		Genre:       req.Genre,
		Description: req.Description,
		Author:      req.Author,
	}
}

// BookHandler は書籍管理のHTTPハンドラー。
type BookHandler struct {
	service   BookServiceInterface
	validator Validator
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service BookServiceInterface, validator Validator) *BookHandler {
	return &BookHandler{service: service, validator: validator}
}

// GetByID は書籍を取得する。
// GET /api/v1/books/{id}
func (h *BookHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, h.validator, "getById")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	b, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toBookResponse(b))
}

// GetByISBN はISBNで書籍を取得する。
// GET /api/v1/books/isbn/{isbn}
func (h *BookHandler) GetByISBN(w http.ResponseWriter, r *http.Request) {
	isbn := chi.URLParam(r, "isbn")
	if err := h.validator.Param("getByIsbn", "isbn", isbn, isbnParamTag); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	b, err := h.service.GetByISBN(r.Context(), isbn)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toBookResponse(b))
}

// GetAll は全書籍を取得する。
// GET /api/v1/books/get-all
func (h *BookHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.GetAll(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toBookResponses(books))
}

// Create は書籍を登録する。
// POST /api/v1/books/create
func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	b, err := h.service.Create(r.Context(), req.input())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, toBookResponse(b))
}

// Update は書籍を更新する。
// PUT /api/v1/books/update/{id}
func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, h.validator, "update")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	var req bookRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	b, err := h.service.Update(r.Context(), id, req.input())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toBookResponse(b))
}

// Delete は書籍を削除する。
// DELETE /api/v1/books/{id}
func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, h.validator, "delete")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
