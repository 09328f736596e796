package security

import (
	"strings"
	"testing"
)

// TestSanitizeText_StripsTags はHTMLタグが除去されテキストのみ残ることを検証する。
func TestSanitizeText_StripsTags(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "A classic novel about a whale.",
			want:  "A classic novel about a whale.",
		},
		{
			name:  "pタグが除去される",
			input: "<p>段落テキスト</p>",
			want:  "段落テキスト",
		},
		{
			name:  "ネストしたタグが除去される",
			input: "<div><strong>太字</strong>と<em>強調</em></div>",
			want:  "太字と強調",
		},
		{
			name:  "aタグのhrefごと除去される",
			input: `<a href="https://example.com">リンク</a>`,
			want:  "リンク",
		},
		{
			name:  "アンパサンドは元の文字で保存される",
			input: "Tom & Jerry",
			want:  "Tom & Jerry",
		},
		{
			name:  "前後の空白が除去される",
			input: "  <br>本文  ",
			want:  "本文",
		},
		{
			name:  "空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.SanitizeText(tt.input)
			if got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitizeText_DangerousContent はscript等の危険な要素が中身ごと除去されることを検証する。
func TestSanitizeText_DangerousContent(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name       string
		input      string
		wantAbsent []string
	}{
		{
			name:       "scriptタグは中身ごと除去される",
			input:      `説明<script>alert('xss')</script>`,
			wantAbsent: []string{"<script", "alert"},
		},
		{
			name:       "styleタグは中身ごと除去される",
			input:      `<style>body{display:none}</style>説明`,
			wantAbsent: []string{"<style", "display:none"},
		},
		{
			name:       "onerror属性が除去される",
			input:      `<img src="x" onerror="alert('xss')">説明`,
			wantAbsent: []string{"onerror", "alert", "<img"},
		},
		{
			name:       "iframeが除去される",
			input:      `<iframe src="https://evil.example.com"></iframe>説明`,
			wantAbsent: []string{"<iframe", "evil.example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.SanitizeText(tt.input)
			for _, absent := range tt.wantAbsent {
				if strings.Contains(got, absent) {
					t.Errorf("SanitizeText(%q) = %q, should NOT contain %q", tt.input, got, absent)
				}
			}
			if !strings.Contains(got, "説明") {
				t.Errorf("SanitizeText(%q) = %q, expected text content to remain", tt.input, got)
			}
		})
	}
}

// TestSanitizeText_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitizeText_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()
	input := "<p>Chapter <b>1</b></p>"

	first := sanitizer.SanitizeText(input)
	second := sanitizer.SanitizeText(input)
	if first != second {
		t.Errorf("SanitizeText is not deterministic: %q != %q", first, second)
	}
	if again := sanitizer.SanitizeText(first); again != first {
		t.Errorf("SanitizeText(SanitizeText(x)) = %q, want %q", again, first)
	}
}

// TestTextSanitizerInterface はtextSanitizerがTextSanitizerを満たすことを検証する。
func TestTextSanitizerInterface(t *testing.T) {
	var _ TextSanitizer = NewTextSanitizer()
}
