package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/bookstorage/internal/middleware"
	"github.com/hitoshi/bookstorage/internal/model"
	"github.com/hitoshi/bookstorage/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetAll(ctx context.Context) ([]*model.User, error)
	Create(ctx context.Context, in user.CreateInput) (*model.User, error)
	Update(ctx context.Context, id int64, in user.UpdateInput) (*model.User, error)
	// SoftDelete はユーザーを論理削除する。
	SoftDelete(ctx context.Context, id int64) error
}

// createUserRequest は管理者によるユーザー作成リクエストのボディ。
// rolesを省略した場合はUSERとなる。
type createUserRequest struct {
	Username string       `json:"username" validate:"required,min=3,max=64"`
	Password string       `json:"password" validate:"required,min=8,max=72"`
	Roles    []model.Role `json:"roles" validate:"omitempty,dive,oneof=ADMIN USER"`
}

// updateUserRequest はユーザー更新リクエストのボディ。ロールは変更しない。
type updateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service   UserServiceInterface
	validator Validator
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface, validator Validator) *UserHandler {
	return &UserHandler{service: service, validator: validator}
}

// GetByID はユーザーを取得する。
// GET /api/v1/users/{id}
func (h *UserHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, h.validator, "getById")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	u, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// GetAll は全ユーザーを取得する。
// GET /api/v1/users/get-all
func (h *UserHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetAll(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toUserResponses(users))
}

// Create はユーザーを作成する。
// POST /api/v1/users/create
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	u, err := h.service.Create(r.Context(), user.CreateInput{
		Username: req.Username,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// Update はユーザー名とパスワードを更新する。
// PUT /api/v1/users/update/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, h.validator, "update")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	var req updateUserRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	u, err := h.service.Update(r.Context(), id, user.UpdateInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// Delete はユーザーを論理削除する。
// DELETE /api/v1/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, h.validator, "softDelete")
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	if err := h.service.SoftDelete(r.Context(), id); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
