package service

import (
	"database/sql"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

// NewValidator returns a validator that reports JSON field names and knows
// the closed enums of the domain.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("program_type", func(fl validator.FieldLevel) bool {
		return models.ProgramType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("app_status", func(fl validator.FieldLevel) bool {
		return models.NormalizeApplicationStatus(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("content_status", func(fl validator.FieldLevel) bool {
		switch models.ContentStatus(fl.Field().String()) {
		case models.ContentDraft, models.ContentPublished, models.ContentArchived:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("section_type", func(fl validator.FieldLevel) bool {
		switch models.SectionType(fl.Field().String()) {
		case models.SectionText, models.SectionImage, models.SectionHTML, models.SectionJSON:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("rawjson", func(fl validator.FieldLevel) bool {
		raw, ok := fl.Field().Interface().(json.RawMessage)
		return !ok || len(raw) == 0 || json.Valid(raw)
	})
	return v
}

// notFoundOr maps sql.ErrNoRows to a 404 and anything else to an internal error.
func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

// internalErr wraps an unexpected repository failure.
func internalErr(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
