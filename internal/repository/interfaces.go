// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hitoshi/schoolnews/internal/model"
)

var (
	// ErrDuplicate は一意制約違反を表す。
	ErrDuplicate = errors.New("repository: duplicate key")
	// ErrProtected は削除対象が他の行から参照されているため削除できないことを表す。
	ErrProtected = errors.New("repository: row is referenced by protected rows")
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。ユーザー名が重複する場合はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はメールアドレスと氏名を更新する。
	Update(ctx context.Context, user *model.User) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 購読、作成記事、配達記録、セッションはCASCADE削除される。
	// 管理中の学校が存在する場合はErrProtectedを返す。
	DeleteByID(ctx context.Context, id string) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SchoolRepository は学校データの永続化インターフェース。
type SchoolRepository interface {
	// FindByID は指定IDの学校を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.School, error)

	// List は全学校を名前の昇順で返す。
	List(ctx context.Context) ([]*model.School, error)

	// ListSubscribedBy は指定ユーザーが購読中の学校を名前の昇順で返す。
	ListSubscribedBy(ctx context.Context, userID string) ([]*model.School, error)

	// CountByOwner は指定ユーザーが管理する学校数を返す。
	CountByOwner(ctx context.Context, ownerID string) (int, error)

	// Create は学校を作成し、採番されたIDをschool.IDに設定する。
	Create(ctx context.Context, school *model.School) error

	// Update は学校名と地域情報を更新する。OwnerIDは更新しない。
	Update(ctx context.Context, school *model.School) error

	// Delete は指定IDの学校を削除する。記事と購読はCASCADE削除される。
	Delete(ctx context.Context, id int64) error
}

// SubscriptionRepository は購読台帳の永続化インターフェース。
// (user_id, school_id) の複合キーで管理する。
type SubscriptionRepository interface {
	// Exists は購読が存在するかを返す。
	Exists(ctx context.Context, userID string, schoolID int64) (bool, error)

	// Create は購読を作成する。既に存在する場合はErrDuplicateを返す。
	Create(ctx context.Context, sub *model.Subscription) error

	// Delete は購読を削除する。削除対象が存在しなかった場合はfalseを返す。
	Delete(ctx context.Context, userID string, schoolID int64) (bool, error)

	// ListSubscriberIDs は学校の現在の購読者IDを返す。順序は保証しない。
	ListSubscriberIDs(ctx context.Context, schoolID int64) ([]string, error)
}

// ArticleRepository は記事データの永続化インターフェース。
type ArticleRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Article, error)

	// List は全記事をID降順（新しい順）で返す。
	List(ctx context.Context) ([]*model.Article, error)

	// ListBySchool は学校の記事をID降順で返す。
	ListBySchool(ctx context.Context, schoolID int64) ([]*model.Article, error)

	// Create は記事を作成し、採番されたIDをarticle.IDに設定する。
	Create(ctx context.Context, article *model.Article) error

	// UpdateContent は記事本文を更新する。
	UpdateContent(ctx context.Context, article *model.Article) error

	// Delete は指定IDの記事を削除する。配達記録はCASCADE削除される。
	Delete(ctx context.Context, id int64) error
}

// FeedRepository は配達記録の永続化インターフェース。
// 配達記録を作成できるのはファンアウト処理のみ。
type FeedRepository interface {
	// CreateBatch は記事をreceiverIDsの各ユーザーに配達した記録を作成する。
	// 既に存在する (article_id, receiver_id) はスキップし、新規作成件数を返す。
	CreateBatch(ctx context.Context, articleID int64, receiverIDs []string, deliveredAt time.Time) (int, error)

	// ListReceiverIDs は記事の受信者IDを返す。順序は保証しない。
	ListReceiverIDs(ctx context.Context, articleID int64) ([]string, error)

	// ListArticlesDeliveredTo は指定ユーザーに配達された記事をID降順で返す。
	ListArticlesDeliveredTo(ctx context.Context, receiverID string) ([]*model.Article, error)
}

// Store は1つの作業単位で利用できるリポジトリ群。
type Store interface {
	Users() UserRepository
	Sessions() SessionRepository
	Schools() SchoolRepository
	Subscriptions() SubscriptionRepository
	Articles() ArticleRepository
	Feeds() FeedRepository
}

// TxManager はトランザクション境界を提供する。
// fnがエラーを返した場合はロールバックし、そのエラーをそのまま返す。
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// DBTX は*sql.DBと*sql.Txに共通するクエリ実行インターフェース。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
