package validator

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/highspring-tester/hat/internal/models"
)

// registerBusinessRules registers custom business rule validators
func (v *Validator) registerBusinessRules() {
	v.validate.RegisterValidation("difficulty_tier", func(fl validator.FieldLevel) bool {
		return models.DifficultyTier(fl.Field().String()).IsValid()
	})

	// Bank names must yield a question id prefix.
	v.validate.RegisterValidation("bank_name", func(fl validator.FieldLevel) bool {
		return ValidBankName(fl.Field().String())
	})

	v.validate.RegisterValidation("admin_scope", func(fl validator.FieldLevel) bool {
		return models.Scope(fl.Field().String()).IsAdmin()
	})

	v.validate.RegisterValidation("admin_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).IsValid()
	})

	v.validate.RegisterValidation("fraction", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return f >= 0 && f <= 1
	})

	// Whitespace-only strings pass "required"; notblank rejects them.
	v.validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	v.validate.RegisterValidation("options_list", func(fl validator.FieldLevel) bool {
		for _, opt := range strings.Split(fl.Field().String(), ",") {
			if strings.TrimSpace(opt) != "" {
				return true
			}
		}
		return false
	})
}

// ValidBankName reports whether the first and last words of name start with a letter.
func ValidBankName(name string) bool {
	words := strings.Fields(name)
	if len(words) == 0 {
		return false
	}
	first := []rune(words[0])[0]
	last := []rune(words[len(words)-1])[0]
	return unicode.IsLetter(first) && unicode.IsLetter(last)
}
