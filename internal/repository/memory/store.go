// Package memory はサービス・ハンドラーのテストで使うインメモリStore実装を提供する。
// PostgreSQL実装と同じ制約（一意制約、RESTRICT、CASCADE）を再現する。
package memory

import (
	"context"
	"sync"

	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/repository"
)

type subKey struct {
	userID   string
	schoolID int64
}

type feedKey struct {
	articleID  int64
	receiverID string
}

// state はStoreが保持するデータ一式。
type state struct {
	users         map[string]model.User
	sessions      map[string]model.Session
	schools       map[int64]model.School
	subscriptions map[subKey]model.Subscription
	articles      map[int64]model.Article
	feeds         map[feedKey]model.Feed
	nextSchoolID  int64
	nextArticleID int64
}

func newState() *state {
	return &state{
		users:         make(map[string]model.User),
		sessions:      make(map[string]model.Session),
		schools:       make(map[int64]model.School),
		subscriptions: make(map[subKey]model.Subscription),
		articles:      make(map[int64]model.Article),
		feeds:         make(map[feedKey]model.Feed),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:         make(map[string]model.User, len(s.users)),
		sessions:      make(map[string]model.Session, len(s.sessions)),
		schools:       make(map[int64]model.School, len(s.schools)),
		subscriptions: make(map[subKey]model.Subscription, len(s.subscriptions)),
		articles:      make(map[int64]model.Article, len(s.articles)),
		feeds:         make(map[feedKey]model.Feed, len(s.feeds)),
		nextSchoolID:  s.nextSchoolID,
		nextArticleID: s.nextArticleID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.schools {
		c.schools[k] = v
	}
	for k, v := range s.subscriptions {
		c.subscriptions[k] = v
	}
	for k, v := range s.articles {
		c.articles[k] = v
	}
	for k, v := range s.feeds {
		c.feeds[k] = v
	}
	return c
}

// Store はインメモリのrepository.StoreとTxManagerの実装。
// 全ての操作は単一のミューテックスで直列化される。
type Store struct {
	mu    sync.Mutex
	state *state

	// feedWriteErr が設定されている場合、配達記録の作成はこのエラーで失敗する。
	// feedWriteLeft が0より大きい場合は残り回数分だけ失敗し、0は無制限を表す。
	feedWriteErr  error
	feedWriteLeft int

	txConfig repository.TxConfig
}

// NewStore は空のStoreを生成する。
// WithinTxは既定では再実行しない。SetTxConfigでPostgreSQL実装と同じ再実行を有効にできる。
func NewStore() *Store {
	return &Store{state: newState(), txConfig: repository.TxConfig{MaxAttempts: 1}}
}

// SetFeedWriteError は配達記録作成時に返すエラーを設定する。nilで解除する。
func (s *Store) SetFeedWriteError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedWriteErr = err
	s.feedWriteLeft = 0
}

// FailFeedWrites は次のn回の配達記録作成をerrで失敗させる。
func (s *Store) FailFeedWrites(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedWriteErr = err
	s.feedWriteLeft = n
}

// SetTxConfig はWithinTxの再実行設定を変更する。
func (s *Store) SetTxConfig(config repository.TxConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txConfig = config
}

// takeFeedWriteErr は配達記録作成時に返すエラーを取り出す。s.muを保持した状態で呼ぶこと。
func (s *Store) takeFeedWriteErr() error {
	err := s.feedWriteErr
	if err != nil && s.feedWriteLeft > 0 {
		s.feedWriteLeft--
		if s.feedWriteLeft == 0 {
			s.feedWriteErr = nil
		}
	}
	return err
}

// view はロック方法とデータを束ねたリポジトリ群。
// トランザクション外ではStoreのロックを取り、トランザクション内では
// 既にロック済みのクローンを直接操作する。
type view struct {
	lock         func() func()
	st           func() *state
	feedWriteErr func() error
}

func (s *Store) rootView() *view {
	return &view{
		lock: func() func() {
			s.mu.Lock()
			return s.mu.Unlock
		},
		st:           func() *state { return s.state },
		feedWriteErr: s.takeFeedWriteErr,
	}
}

func (s *Store) txView(st *state) *view {
	return &view{
		lock:         func() func() { return func() {} },
		st:           func() *state { return st },
		feedWriteErr: s.takeFeedWriteErr,
	}
}

func (v *view) Users() repository.UserRepository { return &userRepo{v} }
func (v *view) Sessions() repository.SessionRepository { return &sessionRepo{v} }
func (v *view) Schools() repository.SchoolRepository { return &schoolRepo{v} }
func (v *view) Subscriptions() repository.SubscriptionRepository { return &subscriptionRepo{v} }
func (v *view) Articles() repository.ArticleRepository { return &articleRepo{v} }
func (v *view) Feeds() repository.FeedRepository { return &feedRepo{v} }

func (s *Store) Users() repository.UserRepository { return s.rootView().Users() }
func (s *Store) Sessions() repository.SessionRepository { return s.rootView().Sessions() }
func (s *Store) Schools() repository.SchoolRepository { return s.rootView().Schools() }
func (s *Store) Subscriptions() repository.SubscriptionRepository {
	return s.rootView().Subscriptions()
}
func (s *Store) Articles() repository.ArticleRepository { return s.rootView().Articles() }
func (s *Store) Feeds() repository.FeedRepository { return s.rootView().Feeds() }

// WithinTx はStoreのロックを保持したままクローンに対してfnを実行し、
// 成功した場合のみクローンを反映する。fnの実行中は他の操作がブロックされるため、
// 作業単位は直列化される。IsRetryableなエラーはSetTxConfigの設定に従って
// 作業単位全体を再実行する。
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	s.mu.Lock()
	config := s.txConfig
	s.mu.Unlock()

	return repository.RunWithRetry(ctx, config, func(ctx context.Context) error {
		return s.runOnce(ctx, fn)
	})
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context, store repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	if err := fn(ctx, s.txView(working)); err != nil {
		return err
	}
	s.state = working
	return nil
}

// compile-time interface checks
var (
	_ repository.Store     = (*Store)(nil)
	_ repository.TxManager = (*Store)(nil)
	_ repository.Store     = (*view)(nil)
)
