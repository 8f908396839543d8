package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/rss"
	"github.com/hitoshi/schoolnews/internal/school"
)

// SchoolServiceInterface は学校ハンドラーが必要とするサービスインターフェース。
type SchoolServiceInterface interface {
	CreateSchool(ctx context.Context, ownerID string, in school.Input) (*model.School, error)
	UpdateSchool(ctx context.Context, callerID string, schoolID int64, in school.Input) (*model.School, error)
	DeleteSchool(ctx context.Context, callerID string, schoolID int64) error
	GetSchool(ctx context.Context, schoolID int64) (*model.School, error)
	ListSchools(ctx context.Context) ([]*model.School, error)
	ListRegions() []model.Region
}

// SubscriptionServiceInterface は購読操作に必要なサービスインターフェース。
type SubscriptionServiceInterface interface {
	Subscribe(ctx context.Context, userID string, schoolID int64) (*model.Subscription, error)
	Unsubscribe(ctx context.Context, userID string, schoolID int64) error
}

// SchoolArticleLister は学校の記事一覧（RSS出力用）を取得するインターフェース。
type SchoolArticleLister interface {
	ListSchoolArticles(ctx context.Context, schoolID int64) (*model.School, []*model.Article, error)
}

// SchoolHandler は学校・購読・RSS出力のHTTPハンドラー。
type SchoolHandler struct {
	schools   SchoolServiceInterface
	subs      SubscriptionServiceInterface
	articles  SchoolArticleLister
	baseURL   string
	plainText func(string) string
}

// NewSchoolHandler はSchoolHandlerを生成する。
// plainTextはRSSアイテムのタイトル生成に使うHTML除去関数。
func NewSchoolHandler(
	schools SchoolServiceInterface,
	subs SubscriptionServiceInterface,
	articles SchoolArticleLister,
	baseURL string,
	plainText func(string) string,
) *SchoolHandler {
	return &SchoolHandler{
		schools:   schools,
		subs:      subs,
		articles:  articles,
		baseURL:   baseURL,
		plainText: plainText,
	}
}

// ListRegions は地域コード一覧を返す。
// GET /api/regions
func (h *SchoolHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions := h.schools.ListRegions()
	out := make([]regionResponse, 0, len(regions))
	for _, rg := range regions {
		out = append(out, regionResponse{Code: string(rg.Code), Label: rg.Label})
	}
	writeJSON(w, http.StatusOK, out)
}

// ListSchools は全学校を名前の昇順で返す。
// GET /api/schools
func (h *SchoolHandler) ListSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := h.schools.ListSchools(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSchoolResponses(schools))
}

// CreateSchool は学校を作成する。作成者が管理者になる。
// POST /api/schools
func (h *SchoolHandler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in school.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	s, err := h.schools.CreateSchool(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSchoolResponse(s))
}

// GetSchool は学校を1件返す。
// GET /api/schools/{id}
func (h *SchoolHandler) GetSchool(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id", model.NewSchoolNotFoundError)
	if !ok {
		return
	}

	s, err := h.schools.GetSchool(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSchoolResponse(s))
}

// UpdateSchool は学校を更新する。管理者のみ実行できる。
// PUT /api/schools/{id}
func (h *SchoolHandler) UpdateSchool(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := int64Param(w, r, "id", model.NewSchoolNotFoundError)
	if !ok {
		return
	}

	var in school.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	s, err := h.schools.UpdateSchool(r.Context(), userID, id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSchoolResponse(s))
}

// DeleteSchool は学校を削除する。管理者のみ実行できる。
// DELETE /api/schools/{id}
func (h *SchoolHandler) DeleteSchool(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := int64Param(w, r, "id", model.NewSchoolNotFoundError)
	if !ok {
		return
	}

	if err := h.schools.DeleteSchool(r.Context(), userID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Subscribe は学校を購読する。既に購読中の場合は409を返す。
// POST /api/schools/{id}/subscribe
func (h *SchoolHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := int64Param(w, r, "id", model.NewSchoolNotFoundError)
	if !ok {
		return
	}

	sub, err := h.subs.Subscribe(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionResponse{
		School:         sub.SchoolID,
		Subscribed:     true,
		DateSubscribed: &sub.DateSubscribed,
	})
}

// Unsubscribe は学校の購読を解除する。購読していない場合は409を返す。
// DELETE /api/schools/{id}/unsubscribe
func (h *SchoolHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := int64Param(w, r, "id", model.NewSchoolNotFoundError)
	if !ok {
		return
	}

	if err := h.subs.Unsubscribe(r.Context(), userID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionResponse{School: id, Subscribed: false})
}

// RSS は学校の記事をRSS 2.0で返す。配達状況とは無関係に全記事を新しい順で出力する。
// GET /api/schools/{id}/rss
func (h *SchoolHandler) RSS(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id", model.NewSchoolNotFoundError)
	if !ok {
		return
	}

	s, articles, err := h.articles.ListSchoolArticles(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	body, err := rss.Render(rss.FromSchool(h.baseURL, s, articles, h.plainText))
	if err != nil {
		slog.Error("RSSの生成に失敗",
			slog.Int64("school_id", id),
			slog.String("error", err.Error()),
		)
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
