package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/schoolnews/internal/model"
)

type registration struct {
	Username string `json:"username" validate:"required,min=3,max=150,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type schoolInput struct {
	Name   string `json:"name" validate:"required,max=256"`
	Region string `json:"region" validate:"required,region"`
}

func TestStruct_Valid(t *testing.T) {
	in := registration{Username: "kim.parent", Email: "kim@example.com", Password: "password1"}
	if err := Struct(in); err != nil {
		t.Errorf("Struct() = %v, want nil", err)
	}
}

func TestStruct_ValidationError(t *testing.T) {
	tests := []struct {
		name      string
		in        registration
		wantField string
	}{
		{"ユーザー名が短い", registration{Username: "ab", Email: "a@example.com", Password: "password1"}, "username(min)"},
		{"ユーザー名に空白", registration{Username: "bad name", Email: "a@example.com", Password: "password1"}, "username(username)"},
		{"メール形式不正", registration{Username: "abc", Email: "nope", Password: "password1"}, "email(email)"},
		{"パスワードが短い", registration{Username: "abc", Email: "a@example.com", Password: "short"}, "password(min)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *model.APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeValidation {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
			}
			if !strings.Contains(apiErr.Message, tt.wantField) {
				t.Errorf("Message = %q, want to contain %q", apiErr.Message, tt.wantField)
			}
		})
	}
}

func TestStruct_InvalidRegion(t *testing.T) {
	err := Struct(schoolInput{Name: "학교", Region: "099"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeInvalidRegion {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRegion)
	}
}

func TestStruct_ValidRegion(t *testing.T) {
	if err := Struct(schoolInput{Name: "학교", Region: "064"}); err != nil {
		t.Errorf("Struct() = %v, want nil", err)
	}
}

func TestNewValidator_RegistersCustomTags(t *testing.T) {
	v, err := newValidator()
	if err != nil {
		t.Fatalf("newValidator() error: %v", err)
	}

	tests := []struct {
		tag   string
		value string
		ok    bool
	}{
		{"region", "064", true},
		{"region", "099", false},
		{"username", "kim.parent@school", true},
		{"username", "kim parent", false},
	}
	for _, tt := range tests {
		err := v.Var(tt.value, tt.tag)
		if (err == nil) != tt.ok {
			t.Errorf("Var(%q, %q) = %v, want ok=%v", tt.value, tt.tag, err, tt.ok)
		}
	}
}

func TestInstance_ReturnsSharedValidator(t *testing.T) {
	if instance() != instance() {
		t.Error("instance() should return the same validator")
	}
}
