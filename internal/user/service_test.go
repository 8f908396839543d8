package user

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/schoolnews/internal/model"
	"github.com/hitoshi/schoolnews/internal/repository/memory"
)

func newTestService(t *testing.T, users ...string) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	for _, id := range users {
		u := &model.User{ID: id, Username: id, Email: id + "@example.com", IsActive: true}
		if err := store.Users().Create(context.Background(), u); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	return NewService(store, store), store
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	return apiErr.Code
}

func TestGetProfile_SelfOnly(t *testing.T) {
	svc, _ := newTestService(t, "u1", "u2")

	_, err := svc.GetProfile(context.Background(), "u2", "u1")
	if got := errorCode(t, err); got != model.ErrCodeNotSelf {
		t.Errorf("code = %q, want %q", got, model.ErrCodeNotSelf)
	}
}

func TestGetProfile_IncludesSubscribedSchools(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "owner", "u1")
	for _, name := range []string{"Zeta", "Alpha", "Unsubscribed"} {
		s := &model.School{OwnerID: "owner", Name: name, Region: "02"}
		if err := store.Schools().Create(ctx, s); err != nil {
			t.Fatalf("seed school: %v", err)
		}
		if name != "Unsubscribed" {
			if err := store.Subscriptions().Create(ctx, &model.Subscription{UserID: "u1", SchoolID: s.ID}); err != nil {
				t.Fatalf("subscribe: %v", err)
			}
		}
	}

	p, err := svc.GetProfile(ctx, "u1", "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if p.User.ID != "u1" {
		t.Errorf("User.ID = %q", p.User.ID)
	}
	if len(p.Schools) != 2 || p.Schools[0].Name != "Alpha" || p.Schools[1].Name != "Zeta" {
		t.Errorf("schools = %+v, want [Alpha Zeta]", p.Schools)
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, "u1")

	u, err := svc.UpdateProfile(ctx, "u1", "u1", UpdateInput{Email: "new@example.com", FirstName: "Jisoo"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.Email != "new@example.com" || u.FirstName != "Jisoo" {
		t.Errorf("user = %+v", u)
	}

	_, err = svc.UpdateProfile(ctx, "u1", "u1", UpdateInput{Email: "broken"})
	if got := errorCode(t, err); got != model.ErrCodeValidation {
		t.Errorf("code = %q, want %q", got, model.ErrCodeValidation)
	}
}

// TestWithdraw_OwnerProtected は学校を管理しているユーザーが退会できないことを検証する。
func TestWithdraw_OwnerProtected(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "owner")
	school := &model.School{OwnerID: "owner", Name: "A", Region: "02"}
	if err := store.Schools().Create(ctx, school); err != nil {
		t.Fatalf("seed school: %v", err)
	}

	err := svc.Withdraw(ctx, "owner", "owner")
	if got := errorCode(t, err); got != model.ErrCodeOwnerProtected {
		t.Errorf("code = %q, want %q", got, model.ErrCodeOwnerProtected)
	}
	if u, _ := store.Users().FindByID(ctx, "owner"); u == nil {
		t.Error("owner should not be deleted")
	}
}

func TestWithdraw_DeletesUser(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t, "u1", "u2")

	if err := svc.Withdraw(ctx, "u2", "u1"); errorCode(t, err) != model.ErrCodeNotSelf {
		t.Errorf("other user withdraw: %v", err)
	}
	if err := svc.Withdraw(ctx, "u1", "u1"); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if u, _ := store.Users().FindByID(ctx, "u1"); u != nil {
		t.Error("user should be deleted")
	}
}
