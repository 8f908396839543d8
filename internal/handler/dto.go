package handler

import (
	"time"

	"github.com/hitoshi/schoolnews/internal/model"
)

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CreatedAt: u.CreatedAt,
	}
}

// profileResponse はプロフィールと購読中の学校一覧のAPIレスポンス。
type profileResponse struct {
	userResponse
	Schools []schoolResponse `json:"schools"`
}

// schoolResponse は学校情報のAPIレスポンス。
type schoolResponse struct {
	ID           int64     `json:"id"`
	Owner        string    `json:"owner"`
	Name         string    `json:"name"`
	Region       string    `json:"region"`
	RegionLabel  string    `json:"region_label"`
	RegionDetail string    `json:"region_detail"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toSchoolResponse(s *model.School) schoolResponse {
	return schoolResponse{
		ID:           s.ID,
		Owner:        s.OwnerID,
		Name:         s.Name,
		Region:       string(s.Region),
		RegionLabel:  s.Region.Label(),
		RegionDetail: s.RegionDetail,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

func toSchoolResponses(schools []*model.School) []schoolResponse {
	out := make([]schoolResponse, 0, len(schools))
	for _, s := range schools {
		out = append(out, toSchoolResponse(s))
	}
	return out
}

// articleResponse は記事のAPIレスポンス。
type articleResponse struct {
	ID        int64     `json:"id"`
	School    int64     `json:"school"`
	Owner     string    `json:"owner"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toArticleResponse(a *model.Article) articleResponse {
	return articleResponse{
		ID:        a.ID,
		School:    a.SchoolID,
		Owner:     a.OwnerID,
		Content:   a.Content,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toArticleResponses(articles []*model.Article) []articleResponse {
	out := make([]articleResponse, 0, len(articles))
	for _, a := range articles {
		out = append(out, toArticleResponse(a))
	}
	return out
}

// deliveryReportResponse は記事の配達状況のAPIレスポンス。
type deliveryReportResponse struct {
	Article   int64 `json:"article"`
	Receivers int   `json:"receivers"`
}

// regionResponse は地域コードのAPIレスポンス。
type regionResponse struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// subscriptionResponse は購読・購読解除のAPIレスポンス。
type subscriptionResponse struct {
	School         int64      `json:"school"`
	Subscribed     bool       `json:"subscribed"`
	DateSubscribed *time.Time `json:"date_subscribed,omitempty"`
}
