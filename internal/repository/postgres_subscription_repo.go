package repository

import (
	"context"
	"fmt"

	"github.com/hitoshi/schoolnews/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読台帳リポジトリ。
// subscriptionsテーブルは (user_id, school_id) を主キーに持つ。
type PostgresSubscriptionRepo struct {
	db DBTX
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db DBTX) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{db: db}
}

// Exists は購読が存在するかを返す。
func (r *PostgresSubscriptionRepo) Exists(ctx context.Context, userID string, schoolID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE user_id = $1 AND school_id = $2)`,
		userID, schoolID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("購読の存在確認に失敗しました: %w", err)
	}
	return exists, nil
}

// Create は購読を作成する。
// 同時購読は主キー制約で直列化され、後続はErrDuplicateとなる。
func (r *PostgresSubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO subscriptions (user_id, school_id, date_subscribed) VALUES ($1, $2, $3)`,
		sub.UserID, sub.SchoolID, sub.DateSubscribed,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("購読の作成に失敗しました: %w", err)
	}
	return nil
}

// Delete は購読を削除する。削除対象が存在しなかった場合はfalseを返す。
func (r *PostgresSubscriptionRepo) Delete(ctx context.Context, userID string, schoolID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE user_id = $1 AND school_id = $2`,
		userID, schoolID,
	)
	if err != nil {
		return false, fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListSubscriberIDs は学校の現在の購読者IDを返す。
func (r *PostgresSubscriptionRepo) ListSubscriberIDs(ctx context.Context, schoolID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM subscriptions WHERE school_id = $1`,
		schoolID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読者一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("購読者行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読者一覧の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
