// Package validation はリクエストペイロードの検証を提供する。
// 構造体タグによる宣言的な検証にgo-playground/validatorを使用する。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/schoolnews/internal/model"
)

// usernamePattern はユーザー名に使用できる文字（英数字と @ . + - _）。
var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

var (
	once     sync.Once
	validate *validator.Validate
)

// customTags は構造体タグで使う独自の検証ルール。
var customTags = map[string]validator.Func{
	"region": func(fl validator.FieldLevel) bool {
		return model.RegionCode(fl.Field().String()).IsValid()
	},
	"username": func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	},
}

// newValidator は独自タグとJSONフィールド名を登録したvalidatorを生成する。
func newValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	for tag, fn := range customTags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return nil, fmt.Errorf("検証タグ %q の登録に失敗しました: %w", tag, err)
		}
	}
	v.RegisterTagNameFunc(jsonFieldName)
	return v, nil
}

func instance() *validator.Validate {
	once.Do(func() {
		v, err := newValidator()
		if err != nil {
			panic(err)
		}
		validate = v
	})
	return validate
}

// Struct は構造体タグに従ってsを検証する。
// 検証エラーは*model.APIErrorとして返す。地域コードの検証失敗はINVALID_REGIONになる。
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("検証処理に失敗しました: %w", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "region" {
			return model.NewInvalidRegionError(fmt.Sprint(fe.Value()))
		}
		fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
	}
	sort.Strings(fields)
	return model.NewValidationError("入力内容が不正です: " + strings.Join(fields, ", "))
}

// jsonFieldName はエラーメッセージにjsonタグ名を使う。
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}
