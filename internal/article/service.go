// Package article は記事の投稿・管理のドメインロジックを提供する。
// 記事の作成と購読者への配達は1つの作業単位として実行される。
package article

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/schoolnews/internal/metrics"
	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/repository"
	"github.com/hitoshi/schoolnews/internal/security"
	"github.com/hitoshi/schoolnews/internal/validation"
)

// FanOut は記事を購読者に配達するインターフェース。
type FanOut interface {
	Deliver(ctx context.Context, store repository.Store, article *model.Article) (*model.FanOutResult, error)
}

// CreateInput は記事作成の入力値。
type CreateInput struct {
	SchoolID int64  `json:"school" validate:"required,gt=0"`
	Content  string `json:"content" validate:"required,max=20000"`
}

// UpdateInput は記事更新の入力値。
type UpdateInput struct {
	Content string `json:"content" validate:"required,max=20000"`
}

// fanOutError はファンアウト中のエラーを表す。
// Unwrapで元のエラーを返すため、トランザクション再実行の判定には影響しない。
type fanOutError struct {
	err error
}

func (e *fanOutError) Error() string { return e.err.Error() }
func (e *fanOutError) Unwrap() error { return e.err }

// Service は記事管理のサービス層。
type Service struct {
	store     repository.Store
	tx        repository.TxManager
	fanOut    FanOut
	sanitizer security.ContentSanitizer
	metrics   metrics.MetricsCollector
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	store repository.Store,
	tx repository.TxManager,
	fanOut FanOut,
	sanitizer security.ContentSanitizer,
	m metrics.MetricsCollector,
) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		store:     store,
		tx:        tx,
		fanOut:    fanOut,
		sanitizer: sanitizer,
		metrics:   m,
		now:       time.Now,
	}
}

// CreateArticle は記事を保存し、同じトランザクション内で学校の現在の購読者へ配達する。
// 学校の管理者でなくても投稿できる。存在しない学校を指定した場合はValidationエラーを返す。
// 配達に失敗した場合は記事も保存せず、FanOutFailedエラーを返す。
func (s *Service) CreateArticle(ctx context.Context, authorID string, in CreateInput) (*model.Article, error) {
	in.Content = s.sanitizer.SanitizeHTML(in.Content)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var (
		article  *model.Article
		result   *model.FanOutResult
		duration time.Duration
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		school, err := store.Schools().FindByID(ctx, in.SchoolID)
		if err != nil {
			return fmt.Errorf("学校の取得に失敗しました: %w", err)
		}
		if school == nil {
			// 投稿先の学校は入力値の一部として扱う
			return model.NewValidationError("school(exists)")
		}

		now := s.now()
		article = &model.Article{
			SchoolID:  school.ID,
			OwnerID:   authorID,
			Content:   in.Content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.Articles().Create(ctx, article); err != nil {
			return fmt.Errorf("記事の作成に失敗しました: %w", err)
		}

		start := time.Now()
		result, err = s.fanOut.Deliver(ctx, store, article)
		if err != nil {
			return &fanOutError{err: err}
		}
		duration = time.Since(start)
		return nil
	})
	if err != nil {
		var foErr *fanOutError
		if errors.As(err, &foErr) {
			s.metrics.RecordFanOutFailure()
			slog.Error("記事の配達に失敗しました",
				slog.Int64("school_id", in.SchoolID),
				slog.String("author_id", authorID),
				slog.String("error", err.Error()),
			)
			return nil, model.NewFanOutFailedError(in.SchoolID)
		}
		return nil, err
	}

	s.metrics.RecordArticleCreated()
	if result.Subscribers == 0 {
		s.metrics.RecordFanOutEmpty()
	} else {
		s.metrics.RecordFanOut(result.Delivered, duration)
	}
	slog.Info("記事を作成し配達しました",
		slog.Int64("article_id", article.ID),
		slog.Int64("school_id", article.SchoolID),
		slog.Int("subscribers", result.Subscribers),
		slog.Int("delivered", result.Delivered),
	)
	return article, nil
}

// UpdateArticle は記事本文を更新する。作成者のみ実行できる。
// 配達記録は変更しない。
func (s *Service) UpdateArticle(ctx context.Context, callerID string, articleID int64, in UpdateInput) (*model.Article, error) {
	in.Content = s.sanitizer.SanitizeHTML(in.Content)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var article *model.Article
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		article, err = findAuthored(ctx, store, callerID, articleID)
		if err != nil {
			return err
		}
		article.Content = in.Content
		article.UpdatedAt = s.now()
		if err := store.Articles().UpdateContent(ctx, article); err != nil {
			return fmt.Errorf("記事の更新に失敗しました: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return article, nil
}

// DeleteArticle は記事を削除する。作成者のみ実行できる。配達記録はCASCADE削除される。
func (s *Service) DeleteArticle(ctx context.Context, callerID string, articleID int64) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context, store repository.Store) error {
		if _, err := findAuthored(ctx, store, callerID, articleID); err != nil {
			return err
		}
		if err := store.Articles().Delete(ctx, articleID); err != nil {
			return fmt.Errorf("記事の削除に失敗しました: %w", err)
		}
		return nil
	})
}

// DeliveryReport は記事が何人に配達されたかを返す。作成者のみ実行できる。
// 配達記録は作成時のスナップショットのため、その後の購読・購読解除では変化しない。
func (s *Service) DeliveryReport(ctx context.Context, callerID string, articleID int64) (*model.DeliveryReport, error) {
	if _, err := findAuthored(ctx, s.store, callerID, articleID); err != nil {
		return nil, err
	}
	receivers, err := s.store.Feeds().ListReceiverIDs(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("配達記録の取得に失敗しました: %w", err)
	}
	return &model.DeliveryReport{ArticleID: articleID, Receivers: len(receivers)}, nil
}

// GetArticle は記事を取得する。
func (s *Service) GetArticle(ctx context.Context, articleID int64) (*model.Article, error) {
	article, err := s.store.Articles().FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}
	return article, nil
}

// ListArticles は全記事をID降順（新しい順）で返す。
func (s *Service) ListArticles(ctx context.Context) ([]*model.Article, error) {
	articles, err := s.store.Articles().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("記事一覧の取得に失敗しました: %w", err)
	}
	return articles, nil
}

// ListSchoolArticles は学校と、その記事をID降順で返す。
func (s *Service) ListSchoolArticles(ctx context.Context, schoolID int64) (*model.School, []*model.Article, error) {
	school, err := s.store.Schools().FindByID(ctx, schoolID)
	if err != nil {
		return nil, nil, fmt.Errorf("学校の取得に失敗しました: %w", err)
	}
	if school == nil {
		return nil, nil, model.NewSchoolNotFoundError(schoolID)
	}
	articles, err := s.store.Articles().ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, nil, fmt.Errorf("学校の記事一覧の取得に失敗しました: %w", err)
	}
	return school, articles, nil
}

func findAuthored(ctx context.Context, store repository.Store, callerID string, articleID int64) (*model.Article, error) {
	article, err := store.Articles().FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("記事の取得に失敗しました: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(articleID)
	}
	if article.OwnerID != callerID {
		return nil, model.NewNotAuthorError()
	}
	return article, nil
}
