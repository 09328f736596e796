// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は書籍の説明文などの自由入力テキストからHTMLを除去し、
// 保存済みデータを経由したXSSを防ぐ。
// bluemondayのStrictPolicyで全てのタグを除去した後、エンティティを元の文字に戻す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキストのサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// SanitizeText は入力から全てのHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// script/styleタグは中身ごと除去される。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemonday.Policyはスレッドセーフなので複数goroutineから共有できる。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はStrictPolicyを保持するTextSanitizerを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はHTMLを除去したプレーンテキストを返す。
// StrictPolicyは "&" などを実体参照にエスケープするため、保存前にアンエスケープする。
// 出力はJSONエンコード時に再度エスケープされる。
func (s *textSanitizer) SanitizeText(raw string) string {
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// compile-time interface check
var _ TextSanitizer = (*textSanitizer)(nil)
