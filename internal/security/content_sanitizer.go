// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer は利用者が投稿した記事本文や学校名をサニタイズし、
// 配信先の閲覧者をXSSから保護する。bluemondayの許可リストポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はサニタイズ機能のインターフェース。
// 記事・学校の保存前に使用される。
type ContentSanitizer interface {
	// SanitizeHTML は記事本文のHTMLをサニタイズする。
	// 許可タグ（p, br, a, ul, ol, li, blockquote, strong, em）のみを通過させる。
	// aタグのhrefはhttp/httpsのみ許可し、rel="nofollow noreferrer noopener"を付与する。
	SanitizeHTML(rawHTML string) string

	// SanitizeText はタグを全て除去し、前後の空白を取り除いたプレーンテキストを返す。
	// 結果はHTMLではないため、文字実体参照は元の文字に戻す（"&amp;" は "&" になる）。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerの実装。
// bluemondayのポリシーはスレッドセーフに共有できる。
type contentSanitizer struct {
	html *bluemonday.Policy
	text *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
func NewContentSanitizer() ContentSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)

	return &contentSanitizer{
		html: p,
		text: bluemonday.StrictPolicy(),
	}
}

func (s *contentSanitizer) SanitizeHTML(rawHTML string) string {
	return strings.TrimSpace(s.html.Sanitize(rawHTML))
}

func (s *contentSanitizer) SanitizeText(raw string) string {
	// StrictPolicyはタグ除去と同時にエスケープも行うため、保存用に戻す。
	// 出力先（JSON, XML）でのエスケープはそれぞれのエンコーダが担う。
	return strings.TrimSpace(html.UnescapeString(s.text.Sanitize(raw)))
}
