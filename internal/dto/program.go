package dto

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

// ProgramFilterKeys are the query parameters GET /programs understands.
var ProgramFilterKeys = []string{
	"specialty", "location", "type", "minDuration", "maxDuration",
	"isFree", "isActive", "isFeatured", "preceptorId", "search", "page", "limit",
}

var programFilterKeySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(ProgramFilterKeys))
	for _, k := range ProgramFilterKeys {
		set[k] = struct{}{}
	}
	return set
}()

// ParseProgramFilter turns catalog query parameters into a ProgramFilter.
// Unknown keys and malformed values are rejected with one detail per field.
func ParseProgramFilter(values url.Values) (models.ProgramFilter, error) {
	var (
		filter  models.ProgramFilter
		details []appErrors.FieldError
	)
	fail := func(field, rule, message string) {
		details = append(details, appErrors.FieldError{Field: field, Rule: rule, Message: message})
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := programFilterKeySet[k]; !ok {
			fail(k, "unknown", "is not a recognised filter")
		}
	}

	text := func(key string) *string {
		raw := strings.TrimSpace(values.Get(key))
		if raw == "" {
			return nil
		}
		return &raw
	}
	integer := func(key string, min int) *int {
		raw := text(key)
		if raw == nil {
			return nil
		}
		n, err := strconv.Atoi(*raw)
		if err != nil {
			fail(key, "int", "must be an integer")
			return nil
		}
		if n < min {
			fail(key, "min", "must be at least "+strconv.Itoa(min))
			return nil
		}
		return &n
	}
	boolean := func(key string) *bool {
		raw := text(key)
		if raw == nil {
			return nil
		}
		b, err := strconv.ParseBool(*raw)
		if err != nil {
			fail(key, "bool", "must be true or false")
			return nil
		}
		return &b
	}

	filter.SpecialtyID = text("specialty")
	filter.Location = text("location")
	if raw := text("type"); raw != nil {
		t := models.ProgramType(strings.ToLower(*raw))
		if t.Valid() {
			filter.Type = &t
		} else {
			fail("type", "oneof", "must be one of observership hands_on fellowship clerkship")
		}
	}
	filter.MinDuration = integer("minDuration", 0)
	filter.MaxDuration = integer("maxDuration", 0)
	if filter.MinDuration != nil && filter.MaxDuration != nil && *filter.MinDuration > *filter.MaxDuration {
		fail("minDuration", "ltefield", "must not exceed maxDuration")
	}
	filter.IsFree = boolean("isFree")
	filter.IsActive = boolean("isActive")
	filter.IsFeatured = boolean("isFeatured")
	filter.PreceptorID = text("preceptorId")
	filter.Search = text("search")
	if page := integer("page", 1); page != nil {
		if *page > models.MaxPage {
			fail("page", "max", "must be at most "+strconv.Itoa(models.MaxPage))
		} else {
			filter.Page = *page
		}
	}
	if limit := integer("limit", 1); limit != nil {
		filter.Limit = *limit
	}

	if len(details) > 0 {
		err := appErrors.Clone(appErrors.ErrValidation, "invalid program filter")
		err.Details = details
		return models.ProgramFilter{}, err
	}
	return filter, nil
}

// ProgramRequest is the body of POST and PUT /programs.
type ProgramRequest struct {
	Title          string   `json:"title" validate:"required,max=200"`
	Description    string   `json:"description" validate:"max=10000"`
	SpecialtyID    *string  `json:"specialtyId"`
	HospitalName   string   `json:"hospitalName" validate:"required,max=200"`
	MentorName     *string  `json:"mentorName" validate:"omitempty,max=200"`
	PreceptorID    *string  `json:"preceptorId"`
	Location       string   `json:"location" validate:"required,max=200"`
	Country        string   `json:"country" validate:"max=100"`
	City           string   `json:"city" validate:"max=100"`
	Type           string   `json:"type" validate:"required,program_type"`
	StartDate      *string  `json:"startDate"`
	Duration       int      `json:"duration" validate:"required,min=1,max=104"`
	IntakeMonths   []string `json:"intakeMonths" validate:"omitempty,dive,required,max=20"`
	TotalSeats     int      `json:"totalSeats" validate:"min=0"`
	AvailableSeats *int     `json:"availableSeats" validate:"omitempty,min=0"`
	Fee            *float64 `json:"fee" validate:"omitempty,min=0"`
	Currency       string   `json:"currency" validate:"omitempty,len=3"`
	Requirements   *string  `json:"requirements"`
	ImageURL       *string  `json:"imageUrl" validate:"omitempty,url"`
	IsActive       *bool    `json:"isActive"`
	IsFeatured     bool     `json:"isFeatured"`
}

// ParseStartDate accepts a calendar date or an RFC3339 timestamp.
func ParseStartDate(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value := strings.TrimSpace(*raw)
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, appErrors.Invalid("startDate", "date", "must be a date (YYYY-MM-DD) or RFC3339 timestamp")
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &day, nil
}

// ProgramList is the body of GET /programs.
type ProgramList struct {
	Programs   []models.ProgramDetail `json:"programs"`
	TotalCount int                    `json:"totalCount"`
	HasMore    bool                   `json:"hasMore"`
}
