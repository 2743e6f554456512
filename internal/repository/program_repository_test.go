package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medrotation-api/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var programRowColumns = []string{"id", "title", "description", "specialty_id", "hospital_name", "mentor_name", "preceptor_id",
	"location", "country", "city", "type", "start_date", "duration", "intake_months", "total_seats", "available_seats",
	"fee", "currency", "requirements", "image_url", "is_active", "is_featured", "created_at", "updated_at", "specialty_name"}

func addProgramRow(rows *sqlmock.Rows, id string, fee interface{}) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "Cardiology Observership", "Shadow attendings", "spec-cardio", "Mass General", nil, nil,
		"Boston, MA", "USA", "Boston", "observership", nil, 4, "{March,June}", 5, 5,
		fee, "USD", nil, nil, true, false, now, now, "Cardiology")
}

func ptr[T any](v T) *T { return &v }

func renderFilter(clause string, args []interface{}) []byte {
	var b strings.Builder
	b.WriteString(clause)
	b.WriteString("\n")
	for i, a := range args {
		fmt.Fprintf(&b, "$%d = %v\n", i+1, a)
	}
	return []byte(b.String())
}

func TestBuildProgramFilterGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	handsOn := models.ProgramTypeHandsOn

	cases := map[string]models.ProgramFilter{
		"program_filter_none": {},
		"program_filter_all": {
			SpecialtyID: ptr("spec-cardio"),
			Location:    ptr("Boston"),
			Type:        &handsOn,
			MinDuration: ptr(4),
			MaxDuration: ptr(12),
			IsFree:      ptr(true),
			IsActive:    ptr(true),
			Search:      ptr("Mayo Clinic"),
		},
		"program_filter_paid_featured": {
			IsFree:      ptr(false),
			IsFeatured:  ptr(true),
			PreceptorID: ptr("prec-7"),
		},
	}
	for name, filter := range cases {
		t.Run(name, func(t *testing.T) {
			clause, args := buildProgramFilter(filter)
			g.Assert(t, name, renderFilter(clause, args))
		})
	}
}

func TestBuildProgramFilterOmittedKeysDoNotNarrow(t *testing.T) {
	broad, broadArgs := buildProgramFilter(models.ProgramFilter{IsActive: ptr(true)})
	narrow, narrowArgs := buildProgramFilter(models.ProgramFilter{IsActive: ptr(true), Location: ptr("Boston")})

	assert.Equal(t, "WHERE p.is_active = $1", broad)
	assert.True(t, strings.HasPrefix(narrow, "WHERE LOWER(p.location) LIKE $1 AND"))
	assert.Len(t, broadArgs, 1)
	assert.Len(t, narrowArgs, 2)
}

func TestProgramRepositoryListFreeSecondPage(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	rows := sqlmock.NewRows(programRowColumns)
	for i := 0; i < 5; i++ {
		addProgramRow(rows, fmt.Sprintf("p-%d", i), nil)
	}
	mock.ExpectQuery(`(?s)SELECT p\.id, .* FROM programs p LEFT JOIN specialties s ON s\.id = p\.specialty_id\s+` +
		regexp.QuoteMeta(`WHERE (p.fee IS NULL OR p.fee = 0) ORDER BY p.created_at DESC, p.id DESC LIMIT 10 OFFSET 10`)).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM programs p WHERE (p.fee IS NULL OR p.fee = 0)`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(15))

	programs, total, err := repo.List(context.Background(), models.ProgramFilter{IsFree: ptr(true), Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, programs, 5)
	assert.Equal(t, 15, total)
	assert.True(t, programs[0].IsFree())
	assert.Equal(t, []string{"March", "June"}, []string(programs[0].IntakeMonths))
	require.NotNil(t, programs[0].SpecialtyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryListWithoutFilters(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	rows := addProgramRow(sqlmock.NewRows(programRowColumns), "p-1", 100.0)
	mock.ExpectQuery(`(?s)FROM programs p LEFT JOIN specialties s ON s\.id = p\.specialty_id\s+ORDER BY p\.created_at DESC, p\.id DESC LIMIT 20 OFFSET 0`).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM programs p`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	programs, total, err := repo.List(context.Background(), models.ProgramFilter{})
	require.NoError(t, err)
	require.Len(t, programs, 1)
	assert.Equal(t, 1, total)
	assert.False(t, programs[0].IsFree())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryUpdateDetectsSeatRace(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("WHERE id = $23 AND available_seats = $24")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	program := &models.Program{ID: "p-1", Title: "x", Type: models.ProgramTypeClerkship, TotalSeats: 5, AvailableSeats: 5}
	err := repo.Update(context.Background(), program, 4)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryUpdatePersistsPreceptor(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	preceptorID := "prec-2"
	program := &models.Program{ID: "p-1", Title: "x", Type: models.ProgramTypeClerkship, TotalSeats: 5, AvailableSeats: 5, PreceptorID: &preceptorID}
	args := make([]driver.Value, 24)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	args[20] = "prec-2"
	args[22] = "p-1"
	args[23] = 5
	mock.ExpectExec(regexp.QuoteMeta("is_featured = $20, preceptor_id = $21, updated_at = $22")).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), program, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	mock.ExpectExec("INSERT INTO programs").WillReturnResult(sqlmock.NewResult(1, 1))

	program := &models.Program{Title: "Neuro Fellowship", Type: models.ProgramTypeFellowship, Duration: 8, TotalSeats: 3, AvailableSeats: 3}
	require.NoError(t, repo.Create(context.Background(), program))
	assert.NotEmpty(t, program.ID)
	assert.NotNil(t, program.IntakeMonths)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProgramRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()
	repo := NewProgramRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM programs WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "missing"), sql.ErrNoRows)
}
