package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/repository"
)

type userRepo struct{ v *view }

func (r *userRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	defer r.v.lock()()
	u, ok := r.v.st().users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	defer r.v.lock()()
	for _, u := range r.v.st().users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	defer r.v.lock()()
	st := r.v.st()
	for _, u := range st.users {
		if u.Username == user.Username {
			return fmt.Errorf("failed to create user: %w", repository.ErrDuplicate)
		}
	}
	st.users[user.ID] = *user
	return nil
}

func (r *userRepo) Update(ctx context.Context, user *model.User) error {
	defer r.v.lock()()
	st := r.v.st()
	u, ok := st.users[user.ID]
	if !ok {
		return fmt.Errorf("user not found: %s", user.ID)
	}
	u.Email = user.Email
	u.FirstName = user.FirstName
	u.LastName = user.LastName
	u.UpdatedAt = user.UpdatedAt
	st.users[user.ID] = u
	return nil
}

func (r *userRepo) DeleteByID(ctx context.Context, id string) error {
	defer r.v.lock()()
	st := r.v.st()
	if _, ok := st.users[id]; !ok {
		return fmt.Errorf("user not found: %s", id)
	}
	for _, s := range st.schools {
		if s.OwnerID == id {
			return fmt.Errorf("failed to delete user: %w", repository.ErrProtected)
		}
	}

	delete(st.users, id)
	for k, s := range st.sessions {
		if s.UserID == id {
			delete(st.sessions, k)
		}
	}
	for k := range st.subscriptions {
		if k.userID == id {
			delete(st.subscriptions, k)
		}
	}
	for k, a := range st.articles {
		if a.OwnerID == id {
			st.deleteArticle(k)
		}
	}
	for k := range st.feeds {
		if k.receiverID == id {
			delete(st.feeds, k)
		}
	}
	return nil
}

type sessionRepo struct{ v *view }

func (r *sessionRepo) Create(ctx context.Context, session *model.Session) error {
	defer r.v.lock()()
	r.v.st().sessions[session.ID] = *session
	return nil
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	defer r.v.lock()()
	s, ok := r.v.st().sessions[id]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, nil
	}
	return &s, nil
}

func (r *sessionRepo) DeleteByID(ctx context.Context, id string) error {
	defer r.v.lock()()
	delete(r.v.st().sessions, id)
	return nil
}

func (r *sessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	defer r.v.lock()()
	st := r.v.st()
	for k, s := range st.sessions {
		if s.UserID == userID {
			delete(st.sessions, k)
		}
	}
	return nil
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	defer r.v.lock()()
	st := r.v.st()
	var n int64
	for k, s := range st.sessions {
		if !s.ExpiresAt.After(now) {
			delete(st.sessions, k)
			n++
		}
	}
	return n, nil
}

type schoolRepo struct{ v *view }

func (r *schoolRepo) FindByID(ctx context.Context, id int64) (*model.School, error) {
	defer r.v.lock()()
	s, ok := r.v.st().schools[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *schoolRepo) List(ctx context.Context) ([]*model.School, error) {
	defer r.v.lock()()
	return sortedSchools(r.v.st(), func(model.School) bool { return true }), nil
}

func (r *schoolRepo) ListSubscribedBy(ctx context.Context, userID string) ([]*model.School, error) {
	defer r.v.lock()()
	st := r.v.st()
	return sortedSchools(st, func(s model.School) bool {
		_, ok := st.subscriptions[subKey{userID: userID, schoolID: s.ID}]
		return ok
	}), nil
}

func (r *schoolRepo) CountByOwner(ctx context.Context, ownerID string) (int, error) {
	defer r.v.lock()()
	n := 0
	for _, s := range r.v.st().schools {
		if s.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (r *schoolRepo) Create(ctx context.Context, school *model.School) error {
	defer r.v.lock()()
	st := r.v.st()
	if _, ok := st.users[school.OwnerID]; !ok {
		return fmt.Errorf("failed to create school: owner %s does not exist", school.OwnerID)
	}
	st.nextSchoolID++
	school.ID = st.nextSchoolID
	st.schools[school.ID] = *school
	return nil
}

func (r *schoolRepo) Update(ctx context.Context, school *model.School) error {
	defer r.v.lock()()
	st := r.v.st()
	s, ok := st.schools[school.ID]
	if !ok {
		return fmt.Errorf("school not found: %d", school.ID)
	}
	s.Name = school.Name
	s.Region = school.Region
	s.RegionDetail = school.RegionDetail
	s.UpdatedAt = school.UpdatedAt
	st.schools[school.ID] = s
	return nil
}

func (r *schoolRepo) Delete(ctx context.Context, id int64) error {
	defer r.v.lock()()
	st := r.v.st()
	if _, ok := st.schools[id]; !ok {
		return fmt.Errorf("school not found: %d", id)
	}
	delete(st.schools, id)
	for k := range st.subscriptions {
		if k.schoolID == id {
			delete(st.subscriptions, k)
		}
	}
	for k, a := range st.articles {
		if a.SchoolID == id {
			st.deleteArticle(k)
		}
	}
	return nil
}

type subscriptionRepo struct{ v *view }

func (r *subscriptionRepo) Exists(ctx context.Context, userID string, schoolID int64) (bool, error) {
	defer r.v.lock()()
	_, ok := r.v.st().subscriptions[subKey{userID: userID, schoolID: schoolID}]
	return ok, nil
}

func (r *subscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
	defer r.v.lock()()
	st := r.v.st()
	if _, ok := st.users[sub.UserID]; !ok {
		return fmt.Errorf("failed to create subscription: user %s does not exist", sub.UserID)
	}
	if _, ok := st.schools[sub.SchoolID]; !ok {
		return fmt.Errorf("failed to create subscription: school %d does not exist", sub.SchoolID)
	}
	key := subKey{userID: sub.UserID, schoolID: sub.SchoolID}
	if _, ok := st.subscriptions[key]; ok {
		return fmt.Errorf("failed to create subscription: %w", repository.ErrDuplicate)
	}
	st.subscriptions[key] = *sub
	return nil
}

func (r *subscriptionRepo) Delete(ctx context.Context, userID string, schoolID int64) (bool, error) {
	defer r.v.lock()()
	st := r.v.st()
	key := subKey{userID: userID, schoolID: schoolID}
	if _, ok := st.subscriptions[key]; !ok {
		return false, nil
	}
	delete(st.subscriptions, key)
	return true, nil
}

func (r *subscriptionRepo) ListSubscriberIDs(ctx context.Context, schoolID int64) ([]string, error) {
	defer r.v.lock()()
	var ids []string
	for k := range r.v.st().subscriptions {
		if k.schoolID == schoolID {
			ids = append(ids, k.userID)
		}
	}
	return ids, nil
}

type articleRepo struct{ v *view }

func (r *articleRepo) FindByID(ctx context.Context, id int64) (*model.Article, error) {
	defer r.v.lock()()
	a, ok := r.v.st().articles[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *articleRepo) List(ctx context.Context) ([]*model.Article, error) {
	defer r.v.lock()()
	return sortedArticles(r.v.st(), func(model.Article) bool { return true }), nil
}

func (r *articleRepo) ListBySchool(ctx context.Context, schoolID int64) ([]*model.Article, error) {
	defer r.v.lock()()
	return sortedArticles(r.v.st(), func(a model.Article) bool { return a.SchoolID == schoolID }), nil
}

func (r *articleRepo) Create(ctx context.Context, article *model.Article) error {
	defer r.v.lock()()
	st := r.v.st()
	if _, ok := st.schools[article.SchoolID]; !ok {
		return fmt.Errorf("failed to create article: school %d does not exist", article.SchoolID)
	}
	if _, ok := st.users[article.OwnerID]; !ok {
		return fmt.Errorf("failed to create article: owner %s does not exist", article.OwnerID)
	}
	st.nextArticleID++
	article.ID = st.nextArticleID
	st.articles[article.ID] = *article
	return nil
}

func (r *articleRepo) UpdateContent(ctx context.Context, article *model.Article) error {
	defer r.v.lock()()
	st := r.v.st()
	a, ok := st.articles[article.ID]
	if !ok {
		return fmt.Errorf("article not found: %d", article.ID)
	}
	a.Content = article.Content
	a.UpdatedAt = article.UpdatedAt
	st.articles[article.ID] = a
	return nil
}

func (r *articleRepo) Delete(ctx context.Context, id int64) error {
	defer r.v.lock()()
	st := r.v.st()
	if _, ok := st.articles[id]; !ok {
		return fmt.Errorf("article not found: %d", id)
	}
	st.deleteArticle(id)
	return nil
}

type feedRepo struct{ v *view }

func (r *feedRepo) CreateBatch(ctx context.Context, articleID int64, receiverIDs []string, deliveredAt time.Time) (int, error) {
	defer r.v.lock()()
	if err := r.v.feedWriteErr(); err != nil {
		return 0, fmt.Errorf("failed to create feeds: %w", err)
	}
	st := r.v.st()
	if _, ok := st.articles[articleID]; !ok {
		return 0, fmt.Errorf("failed to create feeds: article %d does not exist", articleID)
	}
	for _, id := range receiverIDs {
		if _, ok := st.users[id]; !ok {
			return 0, fmt.Errorf("failed to create feeds: receiver %s does not exist", id)
		}
	}

	created := 0
	for _, id := range receiverIDs {
		key := feedKey{articleID: articleID, receiverID: id}
		if _, ok := st.feeds[key]; ok {
			continue
		}
		st.feeds[key] = model.Feed{ArticleID: articleID, ReceiverID: id, DateDelivered: deliveredAt}
		created++
	}
	return created, nil
}

func (r *feedRepo) ListReceiverIDs(ctx context.Context, articleID int64) ([]string, error) {
	defer r.v.lock()()
	var ids []string
	for k := range r.v.st().feeds {
		if k.articleID == articleID {
			ids = append(ids, k.receiverID)
		}
	}
	return ids, nil
}

func (r *feedRepo) ListArticlesDeliveredTo(ctx context.Context, receiverID string) ([]*model.Article, error) {
	defer r.v.lock()()
	st := r.v.st()
	return sortedArticles(st, func(a model.Article) bool {
		_, ok := st.feeds[feedKey{articleID: a.ID, receiverID: receiverID}]
		return ok
	}), nil
}

// deleteArticle は記事と配達記録を削除する。
func (s *state) deleteArticle(id int64) {
	delete(s.articles, id)
	for k := range s.feeds {
		if k.articleID == id {
			delete(s.feeds, k)
		}
	}
}

func sortedSchools(st *state, keep func(model.School) bool) []*model.School {
	schools := make([]*model.School, 0)
	for _, s := range st.schools {
		if keep(s) {
			s := s
			schools = append(schools, &s)
		}
	}
	sort.Slice(schools, func(i, j int) bool {
		if schools[i].Name != schools[j].Name {
			return schools[i].Name < schools[j].Name
		}
		return schools[i].ID < schools[j].ID
	})
	return schools
}

func sortedArticles(st *state, keep func(model.Article) bool) []*model.Article {
	articles := make([]*model.Article, 0)
	for _, a := range st.articles {
		if keep(a) {
			a := a
			articles = append(articles, &a)
		}
	}
	sort.Slice(articles, func(i, j int) bool { return articles[i].ID > articles[j].ID })
	return articles
}

// compile-time interface checks
var (
	_ repository.UserRepository         = (*userRepo)(nil)
	_ repository.SessionRepository      = (*sessionRepo)(nil)
	_ repository.SchoolRepository       = (*schoolRepo)(nil)
	_ repository.SubscriptionRepository = (*subscriptionRepo)(nil)
	_ repository.ArticleRepository      = (*articleRepo)(nil)
	_ repository.FeedRepository         = (*feedRepo)(nil)
)
