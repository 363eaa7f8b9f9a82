package public

import (
	"errors"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entrans "github.com/go-playground/validator/v10/translations/en"
)

// validate holds the settings and caches for validating request payloads.
var validate *validator.Validate

// translator is a cache of locale and translation information.
var translator ut.Translator

func init() {
	validate = validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ = uni.GetTranslator("en")

	entrans.RegisterDefaultTranslations(validate, translator)
}

// check validates the provided payload against its validate tags,
// returning human readable field errors.
func check(v any) error {
	if err := validate.Struct(v); err != nil {
		verrors, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}

		var msgs []string
		for _, verror := range verrors {
			msgs = append(msgs, verror.Translate(translator))
		}

		return errors.New(strings.Join(msgs, ", "))
	}

	return nil
}
