package utils

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"dost-pmns-api/apperror"
)

var (
	translatorOnce sync.Once
	translator     ut.Translator
)

const requiredText = "{0} is required"

// InitValidators configures gin's validator to report JSON/form field names
// and registers English translations.
func InitValidators() {
	translatorOnce.Do(func() {
		uni := ut.New(en.New())
		translator, _ = uni.GetTranslator("en")

		validate, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
		_ = en_translations.RegisterDefaultTranslations(validate, translator)
		_ = validate.RegisterTranslation("required", translator,
			func(t ut.Translator) error { return t.Add("required", requiredText, true) },
			func(t ut.Translator, fe validator.FieldError) string {
				s, _ := t.T("required", fe.Field())
				return s
			},
		)
	})
}

// BindingError converts a gin binding failure into a validation error that
// lists every offending field.
func BindingError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]apperror.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			msg := fe.Error()
			if translator != nil {
				msg = fe.Translate(translator)
			}
			fields = append(fields, apperror.FieldError{Field: fe.Field(), Message: msg})
		}
		return apperror.Validation(fields...)
	}
	return apperror.BadRequest("Invalid request payload: %v", err)
}
