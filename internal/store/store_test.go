package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"siga-backend/internal/components/chrono"
	"siga-backend/internal/components/telemetry"
	"siga-backend/internal/scrapers/siga"
	"siga-backend/internal/scrapers/siga/sigatest"

	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, clock chrono.API) (Store, *sql.DB) {
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := New(context.Background(), db, clock, telemetry.NewTestAPI())
	require.NoError(t, err)
	return store, db
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	clock := &chrono.FixedImpl{Time: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	store, db := setup(t, clock)

	var report siga.Report
	require.NoError(t, json.Unmarshal(sigatest.Golden(), &report))

	_, err := store.Latest(ctx, report.User.RA)
	require.ErrorIs(t, err, sql.ErrNoRows)

	first, err := store.Save(ctx, report)
	require.NoError(t, err)
	clock.Time = clock.Time.Add(time.Hour)
	second, err := store.Save(ctx, report)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	latest, err := store.Latest(ctx, report.User.RA)
	require.NoError(t, err)
	require.Equal(t, second, latest.ID)
	require.True(t, clock.Time.Equal(latest.TakenAt))
	require.Equal(t, report, latest.Report)

	var attendanceRows, gradeRows int
	require.NoError(t, db.QueryRow("select count(*) from attendance where snapshot_id = ?", second).Scan(&attendanceRows))
	require.NoError(t, db.QueryRow("select count(*) from grade where snapshot_id = ?", second).Scan(&gradeRows))
	require.Equal(t, len(report.Attendance), attendanceRows)
	require.Equal(t, len(report.Grades), gradeRows)

	var average float64
	require.NoError(t, db.QueryRow(
		"select average_grade from grade where snapshot_id = ? and subject_id = ?",
		second, "MAT002",
	).Scan(&average))
	require.Equal(t, 6.25, average)
}

func TestSaveNaNSemester(t *testing.T) {
	ctx := context.Background()
	store, db := setup(t, chrono.FixedImpl{Time: time.Unix(0, 0)})

	id, err := store.Save(ctx, siga.Report{User: siga.User{RA: "1", Semester: siga.ParseSemester("abc")}})
	require.NoError(t, err)

	var semester sql.NullInt64
	require.NoError(t, db.QueryRow("select semester from snapshot where id = ?", id).Scan(&semester))
	require.False(t, semester.Valid)

	latest, err := store.Latest(ctx, "1")
	require.NoError(t, err)
	require.True(t, latest.Report.User.Semester.IsNaN())
}

func TestSaveDuplicateSubject(t *testing.T) {
	store, _ := setup(t, chrono.FixedImpl{Time: time.Unix(0, 0)})

	_, err := store.Save(context.Background(), siga.Report{
		User: siga.User{RA: "1"},
		Grades: []siga.GradeSubject{
			{ID: "ESI001"},
			{ID: "ESI001"},
		},
	})
	require.Error(t, err)

	_, err = store.Latest(context.Background(), "1")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestOpenRequiresDsn(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
