package dto

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medrotation-api/internal/models"
	appErrors "github.com/noah-isme/medrotation-api/pkg/errors"
)

func TestParseProgramFilterRecognisedKeys(t *testing.T) {
	values := url.Values{
		"specialty":   {"spec-1"},
		"location":    {"Boston"},
		"type":        {"Hands_On"},
		"minDuration": {"2"},
		"maxDuration": {"8"},
		"isFree":      {"true"},
		"isActive":    {"false"},
		"search":      {" cardio "},
		"page":        {"2"},
		"limit":       {"10"},
	}
	filter, err := ParseProgramFilter(values)
	require.NoError(t, err)
	assert.Equal(t, "spec-1", *filter.SpecialtyID)
	assert.Equal(t, models.ProgramTypeHandsOn, *filter.Type)
	assert.Equal(t, 2, *filter.MinDuration)
	assert.Equal(t, 8, *filter.MaxDuration)
	assert.True(t, *filter.IsFree)
	assert.False(t, *filter.IsActive)
	assert.Nil(t, filter.IsFeatured)
	assert.Equal(t, "cardio", *filter.Search)
	assert.Equal(t, 2, filter.Page)
	assert.Equal(t, 10, filter.Limit)
}

func TestParseProgramFilterEmptyMeansUnconstrained(t *testing.T) {
	filter, err := ParseProgramFilter(url.Values{"location": {""}})
	require.NoError(t, err)
	assert.Equal(t, models.ProgramFilter{}, filter)
}

func TestParseProgramFilterRejectsUnknownAndMalformed(t *testing.T) {
	_, err := ParseProgramFilter(url.Values{
		"colour":      {"red"},
		"isFree":      {"maybe"},
		"minDuration": {"-1"},
		"type":        {"residency"},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusBadRequest, appErr.Status)

	fields := make(map[string]string)
	for _, d := range appErr.Details {
		fields[d.Field] = d.Rule
	}
	assert.Equal(t, "unknown", fields["colour"])
	assert.Equal(t, "bool", fields["isFree"])
	assert.Equal(t, "min", fields["minDuration"])
	assert.Equal(t, "oneof", fields["type"])
}

func TestParseStartDate(t *testing.T) {
	raw := "2025-03-01"
	d, err := ParseStartDate(&raw)
	require.NoError(t, err)
	assert.Equal(t, 2025, d.Year())

	ts := "2025-03-01T10:30:00+02:00"
	d, err = ParseStartDate(&ts)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Hour())

	bad := "next spring"
	_, err = ParseStartDate(&bad)
	assert.Error(t, err)

	d, err = ParseStartDate(nil)
	assert.NoError(t, err)
	assert.Nil(t, d)
}

func TestParseProgramFilterBoundsPage(t *testing.T) {
	_, err := ParseProgramFilter(url.Values{"page": {"9223372036854775807"}})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	require.Len(t, appErr.Details, 1)
	assert.Equal(t, "page", appErr.Details[0].Field)
	assert.Equal(t, "max", appErr.Details[0].Rule)

	filter, err := ParseProgramFilter(url.Values{"page": {"10000"}})
	require.NoError(t, err)
	assert.Equal(t, models.MaxPage, filter.Page)
}
