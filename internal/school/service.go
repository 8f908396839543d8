// Package school は学校の登録・管理のドメインロジックを提供する。
package school

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/repository"
	"github.com/hitoshi/schoolnews/internal/security"
	"github.com/hitoshi/schoolnews/internal/validation"
)

// Input は学校の作成・更新に使う入力値。
type Input struct {
	Name         string `json:"name" validate:"required,max=256"`
	Region       string `json:"region" validate:"region"`
	RegionDetail string `json:"region_detail" validate:"max=128"`
}

// Service は学校管理のサービス層。
type Service struct {
	store     repository.Store
	tx        repository.TxManager
	sanitizer security.ContentSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store repository.Store, tx repository.TxManager, sanitizer security.ContentSanitizer) *Service {
	return &Service{
		store:     store,
		tx:        tx,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// normalize はサニタイズ後の値で検証する。
func (s *Service) normalize(in Input) (Input, error) {
	in.Name = s.sanitizer.SanitizeText(in.Name)
	in.RegionDetail = s.sanitizer.SanitizeText(in.RegionDetail)
	if err := validation.Struct(in); err != nil {
		return Input{}, err
	}
	return in, nil
}

// CreateSchool は学校を作成する。作成者が管理者となり、以後変更されない。
// 地域コードが許可された17件に含まれない場合はInvalidRegionエラーを返す。
func (s *Service) CreateSchool(ctx context.Context, ownerID string, in Input) (*model.School, error) {
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	school := &model.School{
		OwnerID:      ownerID,
		Name:         in.Name,
		Region:       model.RegionCode(in.Region),
		RegionDetail: in.RegionDetail,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		if err := store.Schools().Create(ctx, school); err != nil {
			return fmt.Errorf("学校の作成に失敗しました: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("学校を作成しました",
		slog.Int64("school_id", school.ID),
		slog.String("owner_id", ownerID),
		slog.String("region", string(school.Region)),
	)
	return school, nil
}

// UpdateSchool は学校名と地域情報を更新する。管理者のみ実行できる。
func (s *Service) UpdateSchool(ctx context.Context, callerID string, schoolID int64, in Input) (*model.School, error) {
	in, err := s.normalize(in)
	if err != nil {
		return nil, err
	}

	var school *model.School
	err = s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		school, err = findOwned(ctx, store, callerID, schoolID)
		if err != nil {
			return err
		}
		school.Name = in.Name
		school.Region = model.RegionCode(in.Region)
		school.RegionDetail = in.RegionDetail
		school.UpdatedAt = s.now()
		if err := store.Schools().Update(ctx, school); err != nil {
			return fmt.Errorf("学校の更新に失敗しました: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return school, nil
}

// DeleteSchool は学校を削除する。管理者のみ実行できる。
// 学校の記事（とその配達記録）と購読はCASCADE削除される。
func (s *Service) DeleteSchool(ctx context.Context, callerID string, schoolID int64) error {
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		if _, err := findOwned(ctx, store, callerID, schoolID); err != nil {
			return err
		}
		if err := store.Schools().Delete(ctx, schoolID); err != nil {
			return fmt.Errorf("学校の削除に失敗しました: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("学校を削除しました",
		slog.Int64("school_id", schoolID),
		slog.String("owner_id", callerID),
	)
	return nil
}

// GetSchool は学校を取得する。
func (s *Service) GetSchool(ctx context.Context, schoolID int64) (*model.School, error) {
	school, err := s.store.Schools().FindByID(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("学校の取得に失敗しました: %w", err)
	}
	if school == nil {
		return nil, model.NewSchoolNotFoundError(schoolID)
	}
	return school, nil
}

// ListSchools は全学校を名前の昇順で返す。
func (s *Service) ListSchools(ctx context.Context) ([]*model.School, error) {
	schools, err := s.store.Schools().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("学校一覧の取得に失敗しました: %w", err)
	}
	return schools, nil
}

// ListRegions は地域コードの一覧を表示順で返す。
func (s *Service) ListRegions() []model.Region {
	return model.Regions()
}

func findOwned(ctx context.Context, store repository.Store, callerID string, schoolID int64) (*model.School, error) {
	school, err := store.Schools().FindByID(ctx, schoolID)
	if err != nil {
		return nil, fmt.Errorf("学校の取得に失敗しました: %w", err)
	}
	if school == nil {
		return nil, model.NewSchoolNotFoundError(schoolID)
	}
	if school.OwnerID != callerID {
		return nil, model.NewNotOwnerError()
	}
	return school, nil
}
