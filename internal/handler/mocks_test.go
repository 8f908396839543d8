package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/schoolnews/internal/article"
	"github.com/hitoshi/schoolnews/internal/auth"
	"github.com/hitoshi/schoolnews/internal/middleware"
	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/school"
	"github.com/hitoshi/schoolnews/internal/user"
)

// --- モック定義 ---

type mockAuthService struct {
	registerFn       func(ctx context.Context, in auth.RegisterInput) (*model.User, error)
	loginFn          func(ctx context.Context, username, password string) (*model.Session, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	getCurrentUserFn func(ctx context.Context, sessionID string) (*model.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*model.User, error) {
	return m.registerFn(ctx, in)
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (*model.Session, error) {
	return m.loginFn(ctx, username, password)
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	return m.getCurrentUserFn(ctx, sessionID)
}

type mockUserService struct {
	getProfileFn    func(ctx context.Context, callerID, userID string) (*user.Profile, error)
	updateProfileFn func(ctx context.Context, callerID, userID string, in user.UpdateInput) (*model.User, error)
	withdrawFn      func(ctx context.Context, callerID, userID string) error
}

func (m *mockUserService) GetProfile(ctx context.Context, callerID, userID string) (*user.Profile, error) {
	return m.getProfileFn(ctx, callerID, userID)
}

func (m *mockUserService) UpdateProfile(ctx context.Context, callerID, userID string, in user.UpdateInput) (*model.User, error) {
	return m.updateProfileFn(ctx, callerID, userID, in)
}

func (m *mockUserService) Withdraw(ctx context.Context, callerID, userID string) error {
	return m.withdrawFn(ctx, callerID, userID)
}

type mockSchoolService struct {
	createFn func(ctx context.Context, ownerID string, in school.Input) (*model.School, error)
	updateFn func(ctx context.Context, callerID string, id int64, in school.Input) (*model.School, error)
	deleteFn func(ctx context.Context, callerID string, id int64) error
	getFn    func(ctx context.Context, id int64) (*model.School, error)
	listFn   func(ctx context.Context) ([]*model.School, error)
}

func (m *mockSchoolService) CreateSchool(ctx context.Context, ownerID string, in school.Input) (*model.School, error) {
	return m.createFn(ctx, ownerID, in)
}

func (m *mockSchoolService) UpdateSchool(ctx context.Context, callerID string, id int64, in school.Input) (*model.School, error) {
	return m.updateFn(ctx, callerID, id, in)
}

func (m *mockSchoolService) DeleteSchool(ctx context.Context, callerID string, id int64) error {
	return m.deleteFn(ctx, callerID, id)
}

func (m *mockSchoolService) GetSchool(ctx context.Context, id int64) (*model.School, error) {
	return m.getFn(ctx, id)
}

func (m *mockSchoolService) ListSchools(ctx context.Context) ([]*model.School, error) {
	return m.listFn(ctx)
}

func (m *mockSchoolService) ListRegions() []model.Region {
	return model.Regions()
}

type mockSubscriptionService struct {
	subscribeFn   func(ctx context.Context, userID string, schoolID int64) (*model.Subscription, error)
	unsubscribeFn func(ctx context.Context, userID string, schoolID int64) error
}

func (m *mockSubscriptionService) Subscribe(ctx context.Context, userID string, schoolID int64) (*model.Subscription, error) {
	return m.subscribeFn(ctx, userID, schoolID)
}

func (m *mockSubscriptionService) Unsubscribe(ctx context.Context, userID string, schoolID int64) error {
	return m.unsubscribeFn(ctx, userID, schoolID)
}

type mockArticleService struct {
	createFn     func(ctx context.Context, authorID string, in article.CreateInput) (*model.Article, error)
	updateFn     func(ctx context.Context, callerID string, id int64, in article.UpdateInput) (*model.Article, error)
	deleteFn     func(ctx context.Context, callerID string, id int64) error
	getFn        func(ctx context.Context, id int64) (*model.Article, error)
	listFn       func(ctx context.Context) ([]*model.Article, error)
	listSchoolFn func(ctx context.Context, schoolID int64) (*model.School, []*model.Article, error)
	listFeedFn   func(ctx context.Context, userID string) ([]*model.Article, error)
	reportFn     func(ctx context.Context, callerID string, id int64) (*model.DeliveryReport, error)
}

func (m *mockArticleService) CreateArticle(ctx context.Context, authorID string, in article.CreateInput) (*model.Article, error) {
	return m.createFn(ctx, authorID, in)
}

func (m *mockArticleService) UpdateArticle(ctx context.Context, callerID string, id int64, in article.UpdateInput) (*model.Article, error) {
	return m.updateFn(ctx, callerID, id, in)
}

func (m *mockArticleService) DeleteArticle(ctx context.Context, callerID string, id int64) error {
	return m.deleteFn(ctx, callerID, id)
}

func (m *mockArticleService) GetArticle(ctx context.Context, id int64) (*model.Article, error) {
	return m.getFn(ctx, id)
}

func (m *mockArticleService) ListArticles(ctx context.Context) ([]*model.Article, error) {
	return m.listFn(ctx)
}

func (m *mockArticleService) DeliveryReport(ctx context.Context, callerID string, id int64) (*model.DeliveryReport, error) {
	return m.reportFn(ctx, callerID, id)
}

func (m *mockArticleService) ListSchoolArticles(ctx context.Context, schoolID int64) (*model.School, []*model.Article, error) {
	return m.listSchoolFn(ctx, schoolID)
}

func (m *mockArticleService) ListFeedFor(ctx context.Context, userID string) ([]*model.Article, error) {
	return m.listFeedFn(ctx, userID)
}

// withUserID はセッションミドルウェアを通過した状態のリクエストを作る。
func withUserID(r *http.Request, userID string) *http.Request {
	return r.WithContext(middleware.ContextWithUserID(r.Context(), userID))
}
