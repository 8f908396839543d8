package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/schoolnews/internal/model"
)

// PostgresFeedRepo はPostgreSQLを使用した配達記録リポジトリ。
// feedsテーブルは (article_id, receiver_id) を主キーに持つ。
type PostgresFeedRepo struct {
	db DBTX
}

// NewPostgresFeedRepo はPostgresFeedRepoを生成する。
func NewPostgresFeedRepo(db DBTX) *PostgresFeedRepo {
	return &PostgresFeedRepo{db: db}
}

// CreateBatch は受信者ごとの配達記録を1文でまとめて作成する。
// 既存の (article_id, receiver_id) はON CONFLICT DO NOTHINGでスキップする。
func (r *PostgresFeedRepo) CreateBatch(ctx context.Context, articleID int64, receiverIDs []string, deliveredAt time.Time) (int, error) {
	if len(receiverIDs) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO feeds (article_id, receiver_id, date_delivered)
		 SELECT $1, rid, $3 FROM unnest($2::uuid[]) AS rid
		 ON CONFLICT (article_id, receiver_id) DO NOTHING`,
		articleID, pq.Array(receiverIDs), deliveredAt,
	)
	if err != nil {
		return 0, fmt.Errorf("配達記録の作成に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("作成結果の取得に失敗しました: %w", err)
	}
	return int(n), nil
}

// ListReceiverIDs は記事の受信者IDを返す。
func (r *PostgresFeedRepo) ListReceiverIDs(ctx context.Context, articleID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT receiver_id FROM feeds WHERE article_id = $1`,
		articleID,
	)
	if err != nil {
		return nil, fmt.Errorf("受信者一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("受信者行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("受信者一覧の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// ListArticlesDeliveredTo は指定ユーザーに配達された記事をID降順で返す。
func (r *PostgresFeedRepo) ListArticlesDeliveredTo(ctx context.Context, receiverID string) ([]*model.Article, error) {
	return queryArticles(ctx, r.db,
		`SELECT `+articleColumns+`
		 FROM articles a
		 JOIN feeds f ON f.article_id = a.id
		 WHERE f.receiver_id = $1
		 ORDER BY a.id DESC`,
		receiverID,
	)
}

// compile-time interface check
var _ FeedRepository = (*PostgresFeedRepo)(nil)
