package repository

import (
	"errors"

	"github.com/lib/pq"
)

// PostgreSQLのSQLSTATEコード
const (
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// isUniqueViolation は一意制約違反かを判定する。
func isUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

// isForeignKeyViolation は外部キー制約違反（RESTRICT含む）かを判定する。
func isForeignKeyViolation(err error) bool {
	return pqCode(err) == pqForeignKeyViolation
}

// IsRetryable はトランザクション全体を再実行すれば成功しうる一時的なエラーかを判定する。
// シリアライズ失敗とデッドロック検出のみが対象で、業務エラーは再実行しない。
func IsRetryable(err error) bool {
	switch pqCode(err) {
	case pqSerializationFailure, pqDeadlockDetected:
		return true
	default:
		return false
	}
}
