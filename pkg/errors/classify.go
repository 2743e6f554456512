package errors

import (
	"database/sql/driver"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
)

// IsTransient reports whether err is a database connectivity failure that a
// retry from the client could plausibly fix.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		if strings.HasPrefix(code, "08") {
			return true
		}
		switch code {
		case "57P01", "57P02", "57P03", "53300":
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// IsUniqueViolation reports whether err is a postgres unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// IsForeignKeyViolation reports whether err is a postgres foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23503"
}

// Validation converts validator failures into a 400 carrying field details.
func Validation(err error, message string) *Error {
	if message == "" {
		message = ErrValidation.Message
	}
	out := Wrap(err, ErrValidation.Code, http.StatusBadRequest, message)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out.Details = make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out.Details = append(out.Details, FieldError{
				Field:   lowerFirst(fe.Field()),
				Rule:    fe.Tag(),
				Message: describeRule(fe),
			})
		}
	}
	return out
}

// Invalid builds a 400 for a single field outside of validator tags.
func Invalid(field, rule, message string) *Error {
	out := Clone(ErrValidation, message)
	out.Details = []FieldError{{Field: field, Rule: rule, Message: message}}
	return out
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email address"
	case "ltefield":
		return "must not exceed " + lowerFirst(fe.Param())
	case "gtefield":
		return "must be at least " + lowerFirst(fe.Param())
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "json":
		return "must be valid JSON"
	case "url":
		return "must be a valid URL"
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
