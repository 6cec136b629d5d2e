// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer は利用者が入力する名称・タイトル・説明文などのプレーンテキストを検査する。
// 値は書き換えずに保存し、HTMLとして解釈されるマークアップを含む入力は拒否する。
// マークアップの判定にはbluemondayのStrictPolicyを使用する。
package security

import (
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ErrMarkup はテキストにタグ・コメント・文字参照が含まれることを示す。
var ErrMarkup = errors.New("text contains markup")

// TextSanitizer は利用者入力テキストの検査機能のインターフェースを定義する。
type TextSanitizer interface {
	// PlainText は前後の空白を除いたテキストを返す。
	// 改行はLFにそろえる。それ以外は入力のまま。
	// HTMLとして解釈されるマークアップを含む場合はErrMarkupを返す。
	PlainText(raw string) (string, error)
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに使用できる。
type textSanitizer struct {
	strict *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{strict: bluemonday.StrictPolicy()}
}

// PlainText はテキストを検査する。
// StrictPolicyはテキストノードをエスケープして残し、それ以外をすべて除去する。
// 出力を戻した結果が入力と一致しなければ、入力のどこかがテキスト以外として解釈されている。
func (s *textSanitizer) PlainText(raw string) (string, error) {
	text := strings.TrimSpace(newlineNormalizer.Replace(raw))
	if html.UnescapeString(s.strict.Sanitize(text)) != text {
		return "", ErrMarkup
	}
	return text, nil
}

// HTMLトークナイザはテキスト中のCRLFとCRをLFに変換する
var newlineNormalizer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// compile-time interface check
var _ TextSanitizer = (*textSanitizer)(nil)
