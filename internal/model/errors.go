// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: conflict, validation, authorization, auth, not_found, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAlreadySubscribed  = "ALREADY_SUBSCRIBED"
	ErrCodeNotSubscribed      = "NOT_SUBSCRIBED"
	ErrCodeInvalidRegion      = "INVALID_REGION"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeNotOwner           = "NOT_OWNER"
	ErrCodeNotAuthor          = "NOT_AUTHOR"
	ErrCodeNotSelf            = "NOT_SELF"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeSchoolNotFound     = "SCHOOL_NOT_FOUND"
	ErrCodeArticleNotFound    = "ARTICLE_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeOwnerProtected     = "OWNER_PROTECTED"
	ErrCodeDuplicateUsername  = "DUPLICATE_USERNAME"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeFanOutFailed       = "FANOUT_FAILED"
)

// エラーカテゴリ
const (
	CategoryConflict      = "conflict"
	CategoryValidation    = "validation"
	CategoryAuthorization = "authorization"
	CategoryAuth          = "auth"
	CategoryNotFound      = "not_found"
	CategorySystem        = "system"
)

// NewAlreadySubscribedError は既に購読中の学校を再度購読しようとした場合のエラーを生成する。
func NewAlreadySubscribedError(schoolID int64) *APIError {
	return &APIError{
		Code:     ErrCodeAlreadySubscribed,
		Message:  fmt.Sprintf("既に購読中の学校です: %d", schoolID),
		Category: CategoryConflict,
		Action:   "購読中の学校一覧を確認してください。",
	}
}

// NewNotSubscribedError は購読していない学校の購読を解除しようとした場合のエラーを生成する。
func NewNotSubscribedError(schoolID int64) *APIError {
	return &APIError{
		Code:     ErrCodeNotSubscribed,
		Message:  fmt.Sprintf("購読中の学校ではありません: %d", schoolID),
		Category: CategoryConflict,
		Action:   "購読中の学校一覧を確認してください。",
	}
}

// NewInvalidRegionError は許可されていない地域コードのエラーを生成する。
func NewInvalidRegionError(code string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRegion,
		Message:  fmt.Sprintf("無効な地域コードです: %q", code),
		Category: CategoryValidation,
		Action:   "地域コードは /api/regions に掲載されている17種類のいずれかを指定してください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: CategoryValidation,
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: CategoryValidation,
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewNotOwnerError は学校の管理者以外が変更しようとした場合のエラーを生成する。
func NewNotOwnerError() *APIError {
	return &APIError{
		Code:     ErrCodeNotOwner,
		Message:  "学校の管理者のみが変更できます。",
		Category: CategoryAuthorization,
		Action:   "学校を作成したユーザーでログインしてください。",
	}
}

// NewNotAuthorError は記事の作成者以外が変更しようとした場合のエラーを生成する。
func NewNotAuthorError() *APIError {
	return &APIError{
		Code:     ErrCodeNotAuthor,
		Message:  "記事の作成者のみが変更できます。",
		Category: CategoryAuthorization,
		Action:   "記事を作成したユーザーでログインしてください。",
	}
}

// NewNotSelfError は本人以外のプロフィールを操作しようとした場合のエラーを生成する。
func NewNotSelfError() *APIError {
	return &APIError{
		Code:     ErrCodeNotSelf,
		Message:  "本人のプロフィールのみ操作できます。",
		Category: CategoryAuthorization,
		Action:   "ログイン中のユーザーのIDを指定してください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: CategoryAuth,
		Action:   "ログインしてください。",
	}
}

// NewSchoolNotFoundError は学校未検出エラーを生成する。
func NewSchoolNotFoundError(schoolID int64) *APIError {
	return &APIError{
		Code:     ErrCodeSchoolNotFound,
		Message:  fmt.Sprintf("指定された学校が見つかりません: %d", schoolID),
		Category: CategoryNotFound,
		Action:   "学校IDを確認してください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID int64) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %d", articleID),
		Category: CategoryNotFound,
		Action:   "記事IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: CategoryNotFound,
		Action:   "ログインし直してください。",
	}
}

// NewOwnerProtectedError は学校を管理しているユーザーを削除しようとした場合のエラーを生成する。
func NewOwnerProtectedError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnerProtected,
		Message:  "管理中の学校が存在するため削除できません。",
		Category: CategoryConflict,
		Action:   "管理している学校を先に削除してください。",
	}
}

// NewDuplicateUsernameError は既に使用されているユーザー名で登録しようとした場合のエラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("ユーザー名は既に使用されています: %s", username),
		Category: CategoryConflict,
		Action:   "別のユーザー名を指定してください。",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// ユーザー名とパスワードのどちらが誤っているかは区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: CategoryAuth,
		Action:   "入力内容を確認して再度ログインしてください。",
	}
}

// NewFanOutFailedError は記事の配達処理が失敗した場合のエラーを生成する。
// 記事と配達記録はいずれもコミットされていない。
func NewFanOutFailedError(schoolID int64) *APIError {
	return &APIError{
		Code:     ErrCodeFanOutFailed,
		Message:  fmt.Sprintf("記事の配達に失敗しました（学校: %d）。記事は保存されていません。", schoolID),
		Category: CategorySystem,
		Action:   "しばらく待ってから再度投稿してください。",
	}
}
