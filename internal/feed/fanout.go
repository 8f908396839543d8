// Package feed は記事の配達（ファンアウト）と配達済み記事の参照を提供する。
//
// 配達記録を作成するのはEngineのみで、記事作成時に一度だけ実行される。
// 記事作成後に購読したユーザーへは遡って配達せず、購読解除しても配達済みの記録は取り消さない。
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/repository"
)

// Engine は記事を学校の現在の購読者へ配達する。
type Engine struct {
	now func() time.Time
}

// NewEngine はEngineの新しいインスタンスを生成する。
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Deliver は記事の学校の購読者集合を読み取り、購読者ごとに配達記録を作成する。
//
// storeは記事作成と同じトランザクションに束縛されている必要がある。
// 購読者集合の読み取りと配達記録の書き込みはそのトランザクションのスナップショット上で行われ、
// 途中で確定した購読・購読解除は反映されない。
// 購読者がいない場合は何も書き込まずに正常終了する。
// 書き込みに失敗した場合はエラーを返し、呼び出し側はトランザクション全体をロールバックする。
func (e *Engine) Deliver(ctx context.Context, store repository.Store, article *model.Article) (*model.FanOutResult, error) {
	result := &model.FanOutResult{
		ArticleID: article.ID,
		SchoolID:  article.SchoolID,
	}

	subscriberIDs, err := store.Subscriptions().ListSubscriberIDs(ctx, article.SchoolID)
	if err != nil {
		return nil, fmt.Errorf("購読者一覧の取得に失敗しました: %w", err)
	}
	result.Subscribers = len(subscriberIDs)

	if len(subscriberIDs) == 0 {
		slog.Debug("購読者がいないため配達をスキップします",
			slog.Int64("article_id", article.ID),
			slog.Int64("school_id", article.SchoolID),
		)
		return result, nil
	}

	delivered, err := store.Feeds().CreateBatch(ctx, article.ID, subscriberIDs, e.now())
	if err != nil {
		return nil, fmt.Errorf("配達記録の作成に失敗しました（記事: %d）: %w", article.ID, err)
	}
	result.Delivered = delivered

	return result, nil
}
