package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginationHasMore(t *testing.T) {
	first := NewPagination(1, 10, 15)
	assert.True(t, first.HasMore)

	second := NewPagination(2, 10, 15)
	assert.False(t, second.HasMore)
	assert.Equal(t, 15, second.TotalCount)
}

func TestNormalizePage(t *testing.T) {
	page, limit := NormalizePage(0, 500)
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, limit)

	page, limit = NormalizePage(1<<40, 100)
	assert.Equal(t, MaxPage, page)
	assert.Equal(t, 100, limit)
	assert.False(t, NewPagination(page, limit, 15).HasMore)

	page, limit = NormalizePage(3, 50)
	assert.Equal(t, 3, page)
	assert.Equal(t, 50, limit)
}

func TestNormalizeApplicationStatus(t *testing.T) {
	assert.Equal(t, ApplicationAccepted, NormalizeApplicationStatus(" Approved "))
	assert.Equal(t, ApplicationVisaPending, NormalizeApplicationStatus("VISA_PENDING"))
	assert.False(t, NormalizeApplicationStatus("maybe").Valid())
}

func TestApplicationStatusSeats(t *testing.T) {
	assert.True(t, ApplicationEnrolled.HoldsSeat())
	assert.False(t, ApplicationWaitlisted.HoldsSeat())
	assert.True(t, ApplicationWithdrawn.Final())
	assert.False(t, ApplicationPending.Final())
}
