package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/schoolnews/internal/article"
	"github.com/hitoshi/schoolnews/internal/model"
)

// ArticleServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type ArticleServiceInterface interface {
	CreateArticle(ctx context.Context, authorID string, in article.CreateInput) (*model.Article, error)
	UpdateArticle(ctx context.Context, callerID string, articleID int64, in article.UpdateInput) (*model.Article, error)
	DeleteArticle(ctx context.Context, callerID string, articleID int64) error
	GetArticle(ctx context.Context, articleID int64) (*model.Article, error)
	ListArticles(ctx context.Context) ([]*model.Article, error)
	DeliveryReport(ctx context.Context, callerID string, articleID int64) (*model.DeliveryReport, error)
}

// FeedReaderInterface はニュースフィード取得に必要なインターフェース。
type FeedReaderInterface interface {
	ListFeedFor(ctx context.Context, userID string) ([]*model.Article, error)
}

// ArticleHandler は記事とニュースフィードのHTTPハンドラー。
type ArticleHandler struct {
	service ArticleServiceInterface
	reader  FeedReaderInterface
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(service ArticleServiceInterface, reader FeedReaderInterface) *ArticleHandler {
	return &ArticleHandler{
		service: service,
		reader:  reader,
	}
}

// ListArticles は全記事をID降順で返す。
// GET /api/articles
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	articles, err := h.service.ListArticles(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponses(articles))
}

// CreateArticle は記事を作成し、学校の現在の購読者へ配達する。
// 配達まで完了してから201を返す。
// POST /api/articles
func (h *ArticleHandler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var in article.CreateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	a, err := h.service.CreateArticle(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toArticleResponse(a))
}

// GetArticle は記事を1件返す。
// GET /api/articles/{id}
func (h *ArticleHandler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := int64Param(w, r, "id", model.NewArticleNotFoundError)
	if !ok {
		return
	}

	a, err := h.service.GetArticle(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponse(a))
}

// UpdateArticle は記事本文を更新する。作成者のみ実行できる。
// PUT /api/articles/{id}
func (h *ArticleHandler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := int64Param(w, r, "id", model.NewArticleNotFoundError)
	if !ok {
		return
	}

	var in article.UpdateInput
	if !decodeJSON(w, r, &in) {
		return
	}

	a, err := h.service.UpdateArticle(r.Context(), userID, id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponse(a))
}

// DeleteArticle は記事を削除する。作成者のみ実行できる。配達記録も削除される。
// DELETE /api/articles/{id}
func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := int64Param(w, r, "id", model.NewArticleNotFoundError)
	if !ok {
		return
	}

	if err := h.service.DeleteArticle(r.Context(), userID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Deliveries は記事が何人に配達されたかを返す。作成者のみ実行できる。
// GET /api/articles/{id}/deliveries
func (h *ArticleHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := int64Param(w, r, "id", model.NewArticleNotFoundError)
	if !ok {
		return
	}

	report, err := h.service.DeliveryReport(r.Context(), userID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deliveryReportResponse{Article: report.ArticleID, Receivers: report.Receivers})
}

// NewsFeed はログイン中のユーザーに配達された記事をID降順で返す。
// GET /api/newsfeed
func (h *ArticleHandler) NewsFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	articles, err := h.reader.ListFeedFor(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleResponses(articles))
}
