// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/bookstorage/internal/auth"
	"github.com/hitoshi/bookstorage/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証済み主体を格納するためのキー。
var principalContextKey = contextKey("principal")

// Principal はアクセストークンから得た認証済みユーザー。
type Principal struct {
	UserID   int64
	Username string
	Roles    []model.Role
}

// HasAnyRole はrolesのいずれかを持つかを判定する。
func (p *Principal) HasAnyRole(roles ...model.Role) bool {
	for _, role := range roles {
		if model.ContainsRole(p.Roles, role) {
			return true
		}
	}
	return false
}

// ContextWithPrincipal はPrincipalを格納したコンテキストを返す。
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	if st := requestStateFrom(ctx); st != nil {
		st.principal = p
	}
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext はコンテキストからPrincipalを取り出す。
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok && p != nil
}

// AccessTokenParser はアクセストークンを検証する。
type AccessTokenParser interface {
	ParseAccessToken(token string) (*auth.Claims, error)
}

// NewJWTMiddleware はAuthorization: Bearerヘッダーのアクセストークンを検証し、
// Principalをリクエストコンテキストに注入するミドルウェアを返す。
// トークンが無い、または無効な場合はKindAuthFailedで応答する。
func NewJWTMiddleware(parser AccessTokenParser) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteError(w, r, model.NewAuthFailedError("missing bearer token", nil))
				return
			}

			claims, err := parser.ParseAccessToken(token)
			if err != nil {
				WriteError(w, r, err)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				WriteError(w, r, model.NewAuthFailedError("invalid token subject", err))
				return
			}

			ctx := ContextWithPrincipal(r.Context(), &Principal{
				UserID:   userID,
				Username: claims.Username,
				Roles:    claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
