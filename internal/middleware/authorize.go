package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookstorage/internal/model"
)

// errNoPrincipal はJWTミドルウェアを通過していないリクエストに対するエラー。
var errNoPrincipal = model.NewAuthFailedError("no principal", nil)

// RequireRoles は主体がrolesのいずれかを持つ場合のみ通過させる。
// NewJWTMiddlewareの後に配置する。
func RequireRoles(roles ...model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, r, errNoPrincipal)
				return
			}
			if !p.HasAnyRole(roles...) {
				WriteError(w, r, model.NewAccessDeniedError(
					fmt.Sprintf("user %d lacks roles %v", p.UserID, roles)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfOrRoles はパスパラメータparamの対象IDが主体自身であるか、
// 主体がrolesのいずれかを持つ場合のみ通過させる。
func RequireSelfOrRoles(param string, roles ...model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, r, errNoPrincipal)
				return
			}
			if p.HasAnyRole(roles...) {
				next.ServeHTTP(w, r)
				return
			}

			targetID, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil {
				WriteError(w, r, model.NewBadRequestError(fmt.Sprintf("invalid %s", param)))
				return
			}
			if targetID != p.UserID {
				WriteError(w, r, model.NewAccessDeniedError(
					fmt.Sprintf("user %d may not access user %d", p.UserID, targetID)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
