// Package rss は学校の記事一覧をRSS 2.0として出力する。
package rss

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/schoolnews/internal/model"
)

// titleMaxRunes はアイテムタイトルに使う本文先頭の最大文字数。
const titleMaxRunes = 40

// Feed はRSSチャンネル。
type Feed struct {
	Title       string
	Link        string
	Description string
	Items       []Item
}

// Item はRSSアイテム。Descriptionには記事本文（サニタイズ済みHTML）を入れる。
type Item struct {
	Title       string
	Link        string
	GUID        string
	Description string
	PubDate     time.Time
}

// FromSchool は学校と記事一覧からFeedを組み立てる。
// articlesは呼び出し側で新しい順に並べておくこと。
// plainTextはHTML本文からタグを除いたテキストを返す関数で、アイテムタイトルの生成に使う。
func FromSchool(baseURL string, school *model.School, articles []*model.Article, plainText func(string) string) Feed {
	baseURL = strings.TrimRight(baseURL, "/")

	description := school.Region.Label()
	if school.RegionDetail != "" {
		description = strings.TrimSpace(description + " " + school.RegionDetail)
	}

	feed := Feed{
		Title:       school.Name,
		Link:        fmt.Sprintf("%s/api/schools/%d", baseURL, school.ID),
		Description: description,
		Items:       make([]Item, 0, len(articles)),
	}
	for _, a := range articles {
		link := fmt.Sprintf("%s/api/articles/%d", baseURL, a.ID)
		feed.Items = append(feed.Items, Item{
			Title:       itemTitle(plainText(a.Content), a.ID),
			Link:        link,
			GUID:        link,
			Description: a.Content,
			PubDate:     a.CreatedAt,
		})
	}
	return feed
}

// itemTitle は本文の1行目をtitleMaxRunes文字までに切り詰める。
// 本文が空の場合は記事IDから生成する。
func itemTitle(text string, id int64) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if text == "" {
		return fmt.Sprintf("記事 #%d", id)
	}
	if utf8.RuneCountInString(text) <= titleMaxRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:titleMaxRunes]) + "…"
}
