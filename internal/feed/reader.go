package feed

import (
	"context"
	"fmt"

	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/repository"
)

// Reader は配達記録を参照する読み取り専用のサービス。
type Reader struct {
	feeds repository.FeedRepository
}

// NewReader はReaderの新しいインスタンスを生成する。
func NewReader(feeds repository.FeedRepository) *Reader {
	return &Reader{feeds: feeds}
}

// ListFeedFor はユーザーに配達された記事を記事ID降順で返す。
// 配達記録のない記事は、購読中の学校の記事であっても含めない。
func (r *Reader) ListFeedFor(ctx context.Context, userID string) ([]*model.Article, error) {
	articles, err := r.feeds.ListArticlesDeliveredTo(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ニュースフィードの取得に失敗しました: %w", err)
	}
	return articles, nil
}
