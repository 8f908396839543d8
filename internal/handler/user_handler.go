package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	GetProfile(ctx context.Context, callerID, userID string) (*user.Profile, error)
	UpdateProfile(ctx context.Context, callerID, userID string, in user.UpdateInput) (*model.User, error)
	Withdraw(ctx context.Context, callerID, userID string) error
}

// UserHandler はプロフィール関連のHTTPハンドラー。
// 操作できるのは本人のみ。
type UserHandler struct {
	service UserServiceInterface
	auth    *AuthHandler
}

// NewUserHandler はUserHandlerを生成する。
// 退会時のセッションCookie削除にauthの設定を使う。
func NewUserHandler(service UserServiceInterface, auth *AuthHandler) *UserHandler {
	return &UserHandler{
		service: service,
		auth:    auth,
	}
}

// targetUserID はURLの{id}を解決する。"me"はログイン中のユーザーを指す。
func targetUserID(r *http.Request, callerID string) string {
	id := chi.URLParam(r, "id")
	if id == "me" {
		return callerID
	}
	return id
}

// GetProfile はプロフィールと購読中の学校一覧を返す。
// GET /api/users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), callerID, targetUserID(r, callerID))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{
		userResponse: toUserResponse(profile.User),
		Schools:      toSchoolResponses(profile.Schools),
	})
}

// UpdateProfile はメールアドレスと氏名を更新する。
// PUT /api/users/{id}
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in user.UpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), callerID, targetUserID(r, callerID), in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(u))
}

// Withdraw は退会処理を行い、セッションCookieを削除する。
// DELETE /api/users/{id}
func (h *UserHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	callerID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Withdraw(r.Context(), callerID, targetUserID(r, callerID)); err != nil {
		handleServiceError(w, err)
		return
	}

	h.auth.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
