package service

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Error categories. Every sentinel below wraps exactly one of them.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrDenied     = errors.New("denied")
	ErrConflict   = errors.New("conflict")
)

// ErrInvalidCredentials is returned for any username/password mismatch.
var ErrInvalidCredentials = errors.New("invalid username or password")

var (
	ErrActivityNotFound     = categorized(ErrNotFound, "activity not found")
	ErrRegistrationNotFound = categorized(ErrNotFound, "registration not found")
	ErrStudentNotFound      = categorized(ErrNotFound, "student not found")
	ErrUserNotFound         = categorized(ErrNotFound, "user not found")
	ErrAnnouncementNotFound = categorized(ErrNotFound, "announcement not found")
	ErrBackupNotFound       = categorized(ErrNotFound, "backup not found")

	ErrRegistrationClosed = categorized(ErrDenied, "registration is closed")
	ErrActivityStarted    = categorized(ErrDenied, "activity has already started")
	ErrAlreadyAttended    = categorized(ErrDenied, "attended registrations cannot be cancelled")
	ErrActivityNotActive  = categorized(ErrDenied, "only active activities can be completed")

	ErrAlreadyRegistered = categorized(ErrConflict, "already registered for this activity")
	ErrActivityFull      = categorized(ErrConflict, "activity is full")
)

type categoryError struct {
	category error
	message  string
}

func categorized(category error, message string) error {
	return &categoryError{category: category, message: message}
}

func (e *categoryError) Error() string { return e.message }

func (e *categoryError) Unwrap() error { return e.category }

// ValidationError reports field-level problems keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports unique fields that are already taken.
type ConflictError struct {
	Fields map[string]string
}

func (e *ConflictError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("already taken: %s", strings.Join(names, ", "))
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]*$`)
	mobilePattern   = regexp.MustCompile(`^1[3-9]\d{9}$`)
	qqPattern       = regexp.MustCompile(`^\d{5,12}$`)
)

// NewValidator returns a validator that reports JSON field names and knows the
// campus specific rules: username, cnmobile and qq.
func NewValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	_ = validate.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("cnmobile", func(fl validator.FieldLevel) bool {
		return mobilePattern.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation("qq", func(fl validator.FieldLevel) bool {
		return qqPattern.MatchString(fl.Field().String())
	})

	return validate
}

// validateStruct runs the validator and converts failures into a ValidationError.
func validateStruct(validate *validator.Validate, payload interface{}) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	fields := make(map[string]string, len(fieldErrors))
	for _, fieldErr := range fieldErrors {
		fields[fieldErr.Field()] = fieldMessage(fieldErr)
	}
	return NewValidationError(fields)
}

func fieldMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fieldErr.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fieldErr.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fieldErr.Param())
	case "eqfield":
		return "does not match"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fieldErr.Param())
	case "username":
		return "may only contain letters, digits and underscores"
	case "cnmobile":
		return "must be a valid mobile phone number"
	case "qq":
		return "must be a valid QQ number"
	default:
		return fmt.Sprintf("failed %s validation", fieldErr.Tag())
	}
}
