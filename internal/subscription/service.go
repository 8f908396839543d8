// Package subscription は購読台帳のドメインロジックを提供する。
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/schoolnews/internal/metrics"
	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/repository"
)

// Service は購読台帳のサービス層。
// 購読・購読解除はそれぞれ1つのトランザクションで実行する。
type Service struct {
	store   repository.Store
	tx      repository.TxManager
	metrics metrics.MetricsCollector
	now     func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store repository.Store, tx repository.TxManager, m metrics.MetricsCollector) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		store:   store,
		tx:      tx,
		metrics: m,
		now:     time.Now,
	}
}

// Subscribe はユーザーを学校の購読者として登録する。
// 既に購読中の場合はAlreadySubscribedエラーを返す（無視はしない）。
// 同時に同じ組を登録した場合、一意制約で負けた側もAlreadySubscribedになる。
func (s *Service) Subscribe(ctx context.Context, userID string, schoolID int64) (*model.Subscription, error) {
	var sub *model.Subscription
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		if err := requireSchool(ctx, store, schoolID); err != nil {
			return err
		}

		exists, err := store.Subscriptions().Exists(ctx, userID, schoolID)
		if err != nil {
			return fmt.Errorf("購読状態の確認に失敗しました: %w", err)
		}
		if exists {
			return model.NewAlreadySubscribedError(schoolID)
		}

		sub = &model.Subscription{
			UserID:         userID,
			SchoolID:       schoolID,
			DateSubscribed: s.now(),
		}
		if err := store.Subscriptions().Create(ctx, sub); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return model.NewAlreadySubscribedError(schoolID)
			}
			return fmt.Errorf("購読の作成に失敗しました: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSubscription(metrics.ActionSubscribe)
	slog.Info("学校を購読しました",
		slog.String("user_id", userID),
		slog.Int64("school_id", schoolID),
	)
	return sub, nil
}

// Unsubscribe は購読を解除する。購読していない場合はNotSubscribedエラーを返す。
// 既に配達済みの記事は取り消さない。
func (s *Service) Unsubscribe(ctx context.Context, userID string, schoolID int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		if err := requireSchool(ctx, store, schoolID); err != nil {
			return err
		}

		removed, err := store.Subscriptions().Delete(ctx, userID, schoolID)
		if err != nil {
			return fmt.Errorf("購読の削除に失敗しました: %w", err)
		}
		if !removed {
			return model.NewNotSubscribedError(schoolID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.RecordSubscription(metrics.ActionUnsubscribe)
	slog.Info("学校の購読を解除しました",
		slog.String("user_id", userID),
		slog.Int64("school_id", schoolID),
	)
	return nil
}

// CurrentSubscribers は学校の現在の購読者IDを返す。順序は保証しない。
func (s *Service) CurrentSubscribers(ctx context.Context, schoolID int64) ([]string, error) {
	if err := requireSchool(ctx, s.store, schoolID); err != nil {
		return nil, err
	}
	ids, err := s.store.Subscriptions().ListSubscriberIDs(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("購読者一覧の取得に失敗しました: %w", err)
	}
	return ids, nil
}

func requireSchool(ctx context.Context, store repository.Store, schoolID int64) error {
	school, err := store.Schools().FindByID(ctx, schoolID)
	if err != nil {
		return fmt.Errorf("学校の取得に失敗しました: %w", err)
	}
	if school == nil {
		return model.NewSchoolNotFoundError(schoolID)
	}
	return nil
}
