package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/bookstorage/internal/middleware"
	"github.com/hitoshi/bookstorage/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) (*model.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error)
	// Register はUSERロールのユーザーを作成する。
	Register(ctx context.Context, username, password string) (*model.User, error)
}

// credentialsRequest はログイン・登録リクエストのボディ。
type credentialsRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// loginRequest はログインリクエストのボディ。
// 既存ユーザーのパスワードポリシー変更に影響されないよう長さは検証しない。
type loginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type refreshRequest struct {
	Token string `json:"token" validate:"required"`
}

// AuthHandler は認証エンドポイントのHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	validator Validator
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, validator Validator) *AuthHandler {
	return &AuthHandler{service: service, validator: validator}
}

// Login はユーザー名とパスワードで認証し、トークンの組を返す。
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	pair, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

// Refresh はリフレッシュトークンから新しいトークンの組を発行する。
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.Token)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, toTokenResponse(pair))
}

// Register は新規ユーザーを登録する。
// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeAndValidate(w, r, h.validator, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	u, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}
