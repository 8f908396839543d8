package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/schoolnews/internal/model"
)

// --- テスト用トランザクション ---

type fakeTx struct {
	commitErr error
	committed bool
	rolled    bool
}

func (f *fakeTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return nil, errors.New("fakeTx: ExecContext not supported")
}

func (f *fakeTx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, errors.New("fakeTx: QueryContext not supported")
}

func (f *fakeTx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}

func (f *fakeTx) Commit() error {
	if f.commitErr != nil {
		return f.commitErr
	}
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback() error {
	if !f.committed {
		f.rolled = true
	}
	return nil
}

// fakeBeginner は開始したトランザクションを記録する。
// commitErrs[i] がi回目のトランザクションのCommitの戻り値になる。
type fakeBeginner struct {
	txs        []*fakeTx
	commitErrs []error
	beginErr   error
}

func (b *fakeBeginner) begin(ctx context.Context) (sqlTx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	tx := &fakeTx{}
	if i := len(b.txs); i < len(b.commitErrs) {
		tx.commitErr = b.commitErrs[i]
	}
	b.txs = append(b.txs, tx)
	return tx, nil
}

func newFakeTxManager(b *fakeBeginner, attempts int) *PostgresTxManager {
	return &PostgresTxManager{
		begin:  b.begin,
		config: TxConfig{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond},
	}
}

var (
	serializationFailure = &pq.Error{Code: "40001"}
	deadlockDetected     = &pq.Error{Code: "40P01"}
	uniqueViolation      = &pq.Error{Code: "23505"}
)

// --- WithinTx ---

// TestWithinTx_RetriesWholeUnitOnSerializationFailure は40001で作業単位全体が新しいトランザクションで再実行されることを検証する。
func TestWithinTx_RetriesWholeUnitOnSerializationFailure(t *testing.T) {
	b := &fakeBeginner{}
	m := newFakeTxManager(b, 3)

	calls := 0
	err := m.WithinTx(context.Background(), func(ctx context.Context, store Store) error {
		calls++
		if calls < 3 {
			return serializationFailure
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if calls != 3 {
		t.Errorf("fn calls = %d, want 3", calls)
	}
	if len(b.txs) != 3 {
		t.Fatalf("transactions = %d, want 3", len(b.txs))
	}
	for i, tx := range b.txs[:2] {
		if !tx.rolled || tx.committed {
			t.Errorf("tx[%d] should be rolled back", i)
		}
	}
	if !b.txs[2].committed {
		t.Error("last transaction should be committed")
	}
}

func TestWithinTx_RetriesOnCommitConflict(t *testing.T) {
	b := &fakeBeginner{commitErrs: []error{deadlockDetected}}
	m := newFakeTxManager(b, 3)

	calls := 0
	err := m.WithinTx(context.Background(), func(ctx context.Context, store Store) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}
	if calls != 2 {
		t.Errorf("fn calls = %d, want 2", calls)
	}
}

func TestWithinTx_DoesNotRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"一意制約違反", uniqueViolation},
		{"業務エラー", model.NewAlreadySubscribedError(1)},
		{"その他のエラー", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBeginner{}
			m := newFakeTxManager(b, 3)

			calls := 0
			err := m.WithinTx(context.Background(), func(ctx context.Context, store Store) error {
				calls++
				return tt.err
			})
			if !errors.Is(err, tt.err) {
				t.Errorf("err = %v, want %v", err, tt.err)
			}
			if calls != 1 {
				t.Errorf("fn calls = %d, want 1", calls)
			}
			if !b.txs[0].rolled {
				t.Error("transaction should be rolled back")
			}
		})
	}
}

func TestWithinTx_ExhaustedRetries(t *testing.T) {
	b := &fakeBeginner{}
	m := newFakeTxManager(b, 3)

	calls := 0
	err := m.WithinTx(context.Background(), func(ctx context.Context, store Store) error {
		calls++
		return serializationFailure
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("fn calls = %d, want 3", calls)
	}
	if !IsRetryable(err) {
		t.Errorf("exhausted error should wrap the last conflict, got %v", err)
	}
	if !strings.Contains(err.Error(), "after 3 attempts") {
		t.Errorf("err = %v, want attempt count", err)
	}
}

// TestWithinTx_ExhaustedRetriesKeepCallerError は呼び出し側が付けたエラー型が再実行を使い切った後も取り出せることを検証する。
func TestWithinTx_ExhaustedRetriesKeepCallerError(t *testing.T) {
	m := newFakeTxManager(&fakeBeginner{}, 2)

	marker := &markerError{err: serializationFailure}
	err := m.WithinTx(context.Background(), func(ctx context.Context, store Store) error {
		return marker
	})
	var got *markerError
	if !errors.As(err, &got) {
		t.Fatalf("err = %v, want *markerError in chain", err)
	}
}

type markerError struct{ err error }

func (e *markerError) Error() string { return "marker: " + e.err.Error() }
func (e *markerError) Unwrap() error { return e.err }

func TestWithinTx_BeginFailure(t *testing.T) {
	b := &fakeBeginner{beginErr: errors.New("connection refused")}
	m := newFakeTxManager(b, 3)

	called := false
	err := m.WithinTx(context.Background(), func(ctx context.Context, store Store) error {
		called = true
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "failed to begin transaction") {
		t.Errorf("err = %v", err)
	}
	if called {
		t.Error("fn should not run when begin fails")
	}
}

// --- RunWithRetry ---

func TestRunWithRetry_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	config := TxConfig{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	calls := 0
	err := RunWithRetry(ctx, config, func(ctx context.Context) error {
		calls++
		cancel()
		return serializationFailure
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRunWithRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	err := RunWithRetry(context.Background(), TxConfig{}, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}
