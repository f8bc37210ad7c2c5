package domain

import (
	"errors"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

const (
	ReasonEmailLength = "Email must be between 6-254 characters"
	ReasonEmailFormat = "Email format is invalid"
)

// length first, then format: the first failing tag wins.
const emailRules = "min=6,max=254,email"

var (
	emailValidate *validator.Validate
	emailTrans    ut.Translator
)

func init() {
	english := en.New()
	uni := ut.New(english, english)
	emailTrans, _ = uni.GetTranslator("en")

	emailValidate = validator.New()
	if err := en_translations.RegisterDefaultTranslations(emailValidate, emailTrans); err != nil {
		panic(err)
	}

	overrides := map[string]string{
		"min":   ReasonEmailLength,
		"max":   ReasonEmailLength,
		"email": ReasonEmailFormat,
	}
	for tag, msg := range overrides {
		err := emailValidate.RegisterTranslation(tag, emailTrans,
			func(t ut.Translator) error { return t.Add(tag, msg, true) },
			func(t ut.Translator, _ validator.FieldError) string {
				s, _ := t.T(tag)
				return s
			},
		)
		if err != nil {
			panic(err)
		}
	}
}

// EmailCheck is the outcome of ValidateEmail.
type EmailCheck struct {
	Valid  bool
	Reason string
}

// Err converts a failed check into an invalid_field error on "email".
func (c EmailCheck) Err() error {
	if c.Valid {
		return nil
	}
	return ErrInvalidField("email", c.Reason)
}

// ValidateEmail has no side effects; callers run it before persisting a user.
func ValidateEmail(email string) EmailCheck {
	err := emailValidate.Var(email, emailRules)
	if err == nil {
		return EmailCheck{Valid: true}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return EmailCheck{Reason: verrs[0].Translate(emailTrans)}
	}
	return EmailCheck{Reason: ReasonEmailFormat}
}
