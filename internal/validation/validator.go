// Package validation はgo-playground/validatorによる入力検証を提供する。
// 検証失敗はmodel.APIErrorに変換され、エラーマッパーで400応答となる。
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/hitoshi/bookstorage/internal/model"
)

// isbnPattern はISBNに許可する文字（数字・ハイフン・X）。
var isbnPattern = regexp.MustCompile(`^[0-9Xx-]+$`)

// Validator は構造体とパラメータの検証を行う。
// validator.Validateはスレッドセーフなので1インスタンスを共有する。
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

// New はJSONタグ名をフィールド名とし、英語メッセージを返すValidatorを生成する。
// ルールや翻訳の登録に失敗した場合はpanicする。
func New() *Validator {
	v := &Validator{validate: validator.New(validator.WithRequiredStructEnabled())}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, found := uni.GetTranslator("en")
	if !found {
		panic("validation: en translator not found")
	}
	v.trans = trans
	mustRegister("default translations", en_translations.RegisterDefaultTranslations(v.validate, v.trans))

	mustRegister("isbn_chars", v.validate.RegisterValidation("isbn_chars", func(fl validator.FieldLevel) bool {
		return isbnPattern.MatchString(fl.Field().String())
	}))
	mustRegister("isbn_chars translation", v.validate.RegisterTranslation("isbn_chars", v.trans,
		func(t ut.Translator) error {
			return t.Add("isbn_chars", "{0} must contain only digits, hyphens and X", true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T("isbn_chars", fe.Field())
			return msg
		},
	))

	return v
}

// mustRegister は起動時の登録失敗をpanicにする。
func mustRegister(what string, err error) {
	if err != nil {
		panic(fmt.Sprintf("validation: register %s: %v", what, err))
	}
}

// Struct はリクエストボディを検証する。
// 失敗時はフィールド名 -> メッセージのKindValidationFailedエラーを返す。
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, exists := fields[fe.Field()]; !exists {
			fields[fe.Field()] = fe.Translate(v.trans)
		}
	}
	return model.NewValidationError(fields)
}

// Param は単一パラメータを検証する。
// 失敗時は "<operation>.<param>" -> メッセージのKindConstraintViolationエラーを返す。
func (v *Validator) Param(operation, param string, value any, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	key := operation + "." + param
	// Varの検証ではフィールド名が空になるため、パラメータ名を前置する
	msg := strings.TrimSpace(verrs[0].Translate(v.trans))
	return model.NewConstraintViolationError(map[string]string{
		key: param + " " + msg,
	})
}
