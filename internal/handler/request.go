// Package handler はREST APIのHTTPハンドラーとルーティングを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/bookstorage/internal/model"
)

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// Validator はリクエストの入力検証を行う。
type Validator interface {
	Struct(s any) error
	Param(operation, param string, value any, tag string) error
}

// decodeAndValidate はJSONボディをdstにデコードし、構造体タグで検証する。
// 不正なJSONはKindBadRequest、検証失敗はKindValidationFailedとなる。
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v Validator, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return model.NewBadRequestError("Request body too large")
		}
		if errors.Is(err, io.EOF) {
			return model.NewBadRequestError("Request body is empty")
		}
		return model.NewBadRequestError("Malformed JSON request")
	}
	if dec.More() {
		return model.NewBadRequestError("Malformed JSON request")
	}

	return v.Struct(dst)
}

// pathID はパスパラメータ{id}を正の整数として取り出す。
// 整数でない場合はKindBadRequest、1未満の場合は
// "<operation>.id" をキーとするKindConstraintViolationを返す。
func pathID(r *http.Request, v Validator, operation string) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, model.NewBadRequestError("Invalid id: " + raw)
	}
	if err := v.Param(operation, "id", id, "min=1"); err != nil {
		return 0, err
	}
	return id, nil
}
