package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/bookstorage/internal/model"
)

// ExceptionBody はエラーレスポンスの統一フォーマット。
// errorsは検証失敗時のみ含まれる。
type ExceptionBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// 公開メッセージ。内部の詳細はログにのみ出力する。
const (
	msgRouteNotFound    = "Resource Not Found"
	msgAccessDenied     = "Access denied"
	msgValidationFailed = "Validation failed."
	msgIntegrity        = "This entity already exists."
	msgAuthFailed       = "Failed to authorise"
	msgBadCredentials   = "Invalid username or password"
	msgMethodNotAllowed = "Method not supported"
	msgInternal         = "Internal Server Error"
)

// StatusForKind はエラー種別に対応するHTTPステータスを返す。
func StatusForKind(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound, model.KindRouteNotFound:
		return http.StatusNotFound
	case model.KindDuplicate, model.KindIntegrityConflict:
		return http.StatusConflict
	case model.KindAccessDenied, model.KindAuthFailed:
		return http.StatusForbidden
	case model.KindBadRequest, model.KindValidationFailed, model.KindConstraintViolation,
		model.KindBadCredentials, model.KindMethodNotSupported:
		return http.StatusBadRequest
	case model.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// bodyFor はクライアントに返すレスポンスボディを組み立てる。
func bodyFor(apiErr *model.APIError) ExceptionBody {
	switch apiErr.Kind {
	case model.KindNotFound, model.KindDuplicate, model.KindBadRequest:
		return ExceptionBody{Message: apiErr.Message}
	case model.KindRouteNotFound:
		return ExceptionBody{Message: msgRouteNotFound}
	case model.KindAccessDenied:
		return ExceptionBody{Message: msgAccessDenied}
	case model.KindValidationFailed, model.KindConstraintViolation:
		return ExceptionBody{Message: msgValidationFailed, Errors: apiErr.Fields}
	case model.KindIntegrityConflict:
		return ExceptionBody{Message: msgIntegrity}
	case model.KindAuthFailed:
		return ExceptionBody{Message: msgAuthFailed}
	case model.KindBadCredentials:
		return ExceptionBody{Message: msgBadCredentials}
	case model.KindMethodNotSupported:
		return ExceptionBody{Message: msgMethodNotAllowed}
	default:
		return ExceptionBody{Message: msgInternal}
	}
}

// WriteError はエラーをログに記録し、種別に応じたステータスとボディを書き込む。
// APIErrorを含まないエラーは全て500として扱う。
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		apiErr = &model.APIError{Kind: model.KindInternal, Err: err}
	}

	status := StatusForKind(apiErr.Kind)
	attrs := []any{
		slog.String("kind", apiErr.Kind.String()),
		slog.Int("status", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", attrs...)
	} else {
		slog.WarnContext(r.Context(), "request rejected", attrs...)
	}

	WriteJSON(w, status, bodyFor(apiErr))
}

// WriteJSON はvをJSONで書き込む。
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
