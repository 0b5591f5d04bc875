package security

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はクライアントから受け取った文字列を表示しても安全な形に正規化する。
// User-Agentのようにダッシュボードへ表示される値の保存前に使用する。
// bluemondayのStrictPolicyはスレッドセーフであり、1インスタンスを共有できる。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// SafeText は前後の空白を取り除き、最大maxBytesバイトに切り詰めた文字列を返す。
// マークアップを含む場合は除去せずにHTMLエスケープするため、空白以外の入力が空になることはない。
// 切り詰めはUTF-8の文字境界で行う。maxBytesが0以下の場合は切り詰めない。
func (s *TextSanitizer) SafeText(raw string, maxBytes int) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}

	if maxBytes > 0 && len(text) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = strings.TrimSpace(text[:cut])
	}

	if s.HasMarkup(text) {
		return html.EscapeString(text)
	}
	return text
}

// HasMarkup はStrictPolicyで除去される要素（タグやコメント）を含むかどうかを返す。
func (s *TextSanitizer) HasMarkup(text string) bool {
	// StrictPolicyは本文をエスケープして返すため、元の文字に戻して比較する
	return html.UnescapeString(s.policy.Sanitize(text)) != html.UnescapeString(text)
}
