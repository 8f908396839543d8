package rss

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/security"
)

func TestFromSchool(t *testing.T) {
	created := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	school := &model.School{ID: 5, Name: "부산중학교", Region: "051", RegionDetail: "해운대구"}
	articles := []*model.Article{
		{ID: 12, SchoolID: 5, Content: "<p>졸업식 &amp; 시상식</p>", CreatedAt: created},
		{ID: 7, SchoolID: 5, Content: "", CreatedAt: created.Add(-time.Hour)},
	}

	feed := FromSchool("https://news.example.com/", school, articles, security.NewContentSanitizer().SanitizeText)

	if feed.Title != "부산중학교" {
		t.Errorf("Title = %q", feed.Title)
	}
	if feed.Link != "https://news.example.com/api/schools/5" {
		t.Errorf("Link = %q", feed.Link)
	}
	if feed.Description != "부산광역시 해운대구" {
		t.Errorf("Description = %q", feed.Description)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(feed.Items))
	}
	first := feed.Items[0]
	if first.Title != "졸업식 & 시상식" {
		t.Errorf("first title = %q", first.Title)
	}
	if first.Link != "https://news.example.com/api/articles/12" || first.GUID != first.Link {
		t.Errorf("first link/guid = %q %q", first.Link, first.GUID)
	}
	if first.Description != articles[0].Content || !first.PubDate.Equal(created) {
		t.Errorf("first item = %+v", first)
	}
	if feed.Items[1].Title != "記事 #7" {
		t.Errorf("empty content title = %q", feed.Items[1].Title)
	}
}

func TestItemTitle(t *testing.T) {
	long := strings.Repeat("가", titleMaxRunes+5)
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "短い本文", text: "공지", want: "공지"},
		{name: "1行目のみ", text: "첫 줄\n둘째 줄", want: "첫 줄"},
		{name: "切り詰め", text: long, want: strings.Repeat("가", titleMaxRunes) + "…"},
		{name: "空白のみ", text: "   ", want: "記事 #3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := itemTitle(tt.text, 3); got != tt.want {
				t.Errorf("itemTitle = %q, want %q", got, tt.want)
			}
		})
	}
}
