// Package user はユーザープロフィール管理のドメインロジックを提供する。
// プロフィールの参照・更新・退会は本人のみ実行できる。
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/repository"
	"github.com/hitoshi/schoolnews/internal/validation"
)

// Profile はユーザー情報と購読中の学校一覧。
type Profile struct {
	User    *model.User
	Schools []*model.School
}

// UpdateInput はプロフィール更新の入力値。
type UpdateInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

// Service はユーザー管理のサービス層。
type Service struct {
	store repository.Store
	tx    repository.TxManager
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store repository.Store, tx repository.TxManager) *Service {
	return &Service{store: store, tx: tx}
}

// GetProfile はプロフィールと購読中の学校一覧（名前の昇順）を返す。
func (s *Service) GetProfile(ctx context.Context, callerID, userID string) (*Profile, error) {
	if callerID != userID {
		return nil, model.NewNotSelfError()
	}

	u, err := findActive(ctx, s.store, userID)
	if err != nil {
		return nil, err
	}
	schools, err := s.store.Schools().ListSubscribedBy(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("購読中の学校の取得に失敗しました: %w", err)
	}
	return &Profile{User: u, Schools: schools}, nil
}

// UpdateProfile はメールアドレスと氏名を更新する。
func (s *Service) UpdateProfile(ctx context.Context, callerID, userID string, in UpdateInput) (*model.User, error) {
	if callerID != userID {
		return nil, model.NewNotSelfError()
	}
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var u *model.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		u, err = findActive(ctx, store, userID)
		if err != nil {
			return err
		}
		u.Email = in.Email
		u.FirstName = in.FirstName
		u.LastName = in.LastName
		u.UpdatedAt = time.Now()
		if err := store.Users().Update(ctx, u); err != nil {
			return fmt.Errorf("ユーザーの更新に失敗しました: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 管理中の学校がある場合はOwnerProtectedエラーを返す。
// 購読、作成記事、配達記録、セッションはCASCADE削除される。
func (s *Service) Withdraw(ctx context.Context, callerID, userID string) error {
	if callerID != userID {
		return model.NewNotSelfError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		if _, err := findActive(ctx, store, userID); err != nil {
			return err
		}

		owned, err := store.Schools().CountByOwner(ctx, userID)
		if err != nil {
			return fmt.Errorf("管理学校数の取得に失敗しました: %w", err)
		}
		if owned > 0 {
			return model.NewOwnerProtectedError()
		}

		if err := store.Users().DeleteByID(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrProtected) {
				return model.NewOwnerProtectedError()
			}
			return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)
	return nil
}

func findActive(ctx context.Context, store repository.Store, userID string) (*model.User, error) {
	u, err := store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if u == nil || !u.IsActive {
		return nil, model.NewUserNotFoundError()
	}
	return u, nil
}
