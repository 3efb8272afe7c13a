package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// SignupInput is the payload accepted on signup.
type SignupInput struct {
	Email    string `json:"email" validate:"notblank,email"`
	Username string `json:"username" validate:"notblank,min=3,max=24"`
	Password string `json:"password" validate:"notblank,min=6"`
}

// Normalize trims identity fields. Passwords are kept verbatim.
func (in *SignupInput) Normalize() {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
}

// LoginInput accepts either an email or a username.
type LoginInput struct {
	Username string `json:"username" scope:"username/email" validate:"required_without=Email"`
	Email    string `json:"email" scope:"username/email" validate:"required_without=Username"`
	Password string `json:"password" label:"Password" validate:"required"`
}

// Normalize trims identifiers so whitespace-only values count as missing.
func (in *LoginInput) Normalize() {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
}

// TicketInput is the payload for opening a ticket.
type TicketInput struct {
	Title       string `json:"title" label:"ticket title" validate:"notblank"`
	Description string `json:"description" label:"ticket description" validate:"notblank"`
}

// CommentInput is the payload for adding a comment.
type CommentInput struct {
	Body string `json:"body" label:"comment body" validate:"notblank"`
}

var overrides = map[string]string{
	"password.min":                    "password must not be less than %s characters",
	"username/email.required_without": "username or email must be present",
}

// Validator checks request payloads and reports per-field violations.
type Validator struct {
	validate *validator.Validate
}

// New builds a Validator with the custom tags registered.
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		if scope := field.Tag.Get("scope"); scope != "" {
			return scope
		}
		return strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	})
	return &Validator{validate: v}
}

// Violations returns the failed checks for s, in field order.
func (v *Validator) Violations(s any) []apperrors.Violation {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []apperrors.Violation{{Scope: "request", Violation: err.Error()}}
	}

	structType := reflect.Indirect(reflect.ValueOf(s)).Type()
	result := make([]apperrors.Violation, 0, len(fieldErrs))
	seen := map[string]bool{}
	for _, fe := range fieldErrs {
		scope := fe.Field()
		if seen[scope] {
			continue
		}
		seen[scope] = true
		label := scope
		if field, ok := structType.FieldByName(fe.StructField()); ok {
			if l := field.Tag.Get("label"); l != "" {
				label = l
			}
		}
		result = append(result, apperrors.Violation{Scope: scope, Violation: message(label, fe)})
	}
	return result
}

// Validate returns a validation DomainError naming scope when s is invalid.
func (v *Validator) Validate(scope string, s any) error {
	violations := v.Violations(s)
	if len(violations) == 0 {
		return nil
	}
	return apperrors.NewViolations(scope, violations)
}

func message(label string, fe validator.FieldError) string {
	if tmpl, ok := overrides[label+"."+fe.Tag()]; ok {
		if strings.Contains(tmpl, "%s") {
			return fmt.Sprintf(tmpl, fe.Param())
		}
		return tmpl
	}
	switch fe.Tag() {
	case "notblank", "required":
		return label + " must be present"
	case "email":
		return label + " is invalid"
	case "min":
		return fmt.Sprintf("%s must not be shorter than %s characters", label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must not be longer than %s characters", label, fe.Param())
	default:
		return label + " is invalid"
	}
}
