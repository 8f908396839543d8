package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// PostgresStore はDBTX（*sql.DB または *sql.Tx）に束縛されたリポジトリ群。
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore はPostgresStoreを生成する。
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Users() UserRepository { return NewPostgresUserRepo(s.db) }
func (s *PostgresStore) Sessions() SessionRepository { return NewPostgresSessionRepo(s.db) }
func (s *PostgresStore) Schools() SchoolRepository { return NewPostgresSchoolRepo(s.db) }
func (s *PostgresStore) Subscriptions() SubscriptionRepository {
	return NewPostgresSubscriptionRepo(s.db)
}
func (s *PostgresStore) Articles() ArticleRepository { return NewPostgresArticleRepo(s.db) }
func (s *PostgresStore) Feeds() FeedRepository { return NewPostgresFeedRepo(s.db) }

// TxConfig はトランザクション再実行の設定。
type TxConfig struct {
	MaxAttempts    int           // 一時的エラー時の最大試行回数（初回を含む）
	InitialBackoff time.Duration // 再実行前の初回待機時間
	MaxBackoff     time.Duration // 待機時間の上限
}

// DefaultTxConfig はデフォルトの再実行設定を返す。
func DefaultTxConfig() TxConfig {
	return TxConfig{
		MaxAttempts:    3,
		InitialBackoff: 20 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// PostgresTxManager はREPEATABLE READトランザクションで作業単位を実行する。
// トランザクション内の読み取りは開始時点のスナップショットを参照するため、
// 並行してコミットされた購読・購読解除は反映されない。
type PostgresTxManager struct {
	begin  func(ctx context.Context) (sqlTx, error)
	config TxConfig
}

// sqlTx は*sql.Txのうち作業単位の実行に必要な部分。
type sqlTx interface {
	DBTX
	Commit() error
	Rollback() error
}

// NewPostgresTxManager はPostgresTxManagerを生成する。
func NewPostgresTxManager(db TxBeginner, config TxConfig) *PostgresTxManager {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &PostgresTxManager{
		begin: func(ctx context.Context) (sqlTx, error) {
			tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
			if err != nil {
				return nil, err
			}
			return tx, nil
		},
		config: config,
	}
}

// WithinTx はfnをトランザクション内で実行する。
// シリアライズ失敗・デッドロックの場合は作業単位全体を再実行する。
func (m *PostgresTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	return RunWithRetry(ctx, m.config, func(ctx context.Context) error {
		return m.runOnce(ctx, fn)
	})
}

func (m *PostgresTxManager) runOnce(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	tx, err := m.begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, NewPostgresStore(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RunWithRetry はattemptを実行し、IsRetryableなエラーの場合は指数バックオフを挟んで
// config.MaxAttempts回まで再実行する。業務エラーなどそれ以外のエラーはそのまま返す。
// 再実行を使い切った場合は最後のエラーをラップして返す。
func RunWithRetry(ctx context.Context, config TxConfig, attempt func(ctx context.Context) error) error {
	maxAttempts := config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for n := 1; n <= maxAttempts; n++ {
		err = attempt(ctx)
		if err == nil || !IsRetryable(err) {
			return err
		}
		if n == maxAttempts {
			break
		}

		delay := CalculateBackoff(n-1, config.InitialBackoff, config.MaxBackoff)
		slog.Warn("transaction conflict, retrying",
			slog.Int("attempt", n),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", maxAttempts, err)
}

// CalculateBackoff は再実行回数に基づいて指数バックオフ遅延を計算する。
// initialから2倍ずつ増加し、maxで頭打ちになる。
func CalculateBackoff(retries int, initial, max time.Duration) time.Duration {
	delay := initial
	for i := 0; i < retries; i++ {
		delay *= 2
		if delay > max {
			return max
		}
	}
	return delay
}

// compile-time interface checks
var (
	_ Store     = (*PostgresStore)(nil)
	_ TxManager = (*PostgresTxManager)(nil)
)
