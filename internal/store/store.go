// Package store archives scraped reports to sqlite or libsql.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"siga-backend/internal/components/assert"
	"siga-backend/internal/components/chrono"
	"siga-backend/internal/components/telemetry"
	"siga-backend/internal/scrapers/siga"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var tracer = otel.Tracer("siga-backend/store")

const (
	report_store_save     = "store.save"
	report_store_snapshot = "store.snapshot"
)

var remoteSchemes = []string{"libsql://", "http://", "https://", "ws://", "wss://"}

// Open opens dsn with the libsql driver when it is a remote database url and
// with the sqlite driver otherwise (a file path or ":memory:").
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store: a database was not specified")
	}
	for _, scheme := range remoteSchemes {
		if strings.HasPrefix(dsn, scheme) {
			return sql.Open("libsql", dsn)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite does not handle concurrent writers, and every connection to
	// :memory: is a different database
	db.SetMaxOpenConns(1)
	if dsn != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// Snapshot is an archived report.
type Snapshot struct {
	ID      int64
	TakenAt time.Time
	Report  siga.Report
}

type Store struct {
	db    *sql.DB
	clock chrono.API
	tel   telemetry.API
}

// New creates the archive tables in db if they do not exist.
func New(ctx context.Context, db *sql.DB, clock chrono.API, tel telemetry.API) (Store, error) {
	assert.NotNil(db)
	assert.NotNil(clock)
	assert.NotNil(tel)

	_, err := db.ExecContext(ctx, Schema)
	if err != nil {
		return Store{}, fmt.Errorf("store: create schema: %w", err)
	}
	return Store{
		db:    db,
		clock: clock,
		tel:   telemetry.NewScopedAPI("store", tel),
	}, nil
}

// Save archives report as taken now, returning the id of the snapshot.
func (s Store) Save(ctx context.Context, report siga.Report) (id int64, err error) {
	ctx, span := tracer.Start(ctx, "Save")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.tel.ReportBroken(report_store_save, err, report.User.RA)
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("ra", report.User.RA))

	encoded, err := json.Marshal(report)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var semester any
	if value, ok := report.User.Semester.Int(); ok {
		semester = value
	}
	res, err := tx.ExecContext(
		ctx,
		"insert into snapshot(ra, name, semester, taken_at, report) values (?, ?, ?, ?, ?)",
		report.User.RA, report.User.Name, semester, s.clock.Now().Unix(), string(encoded),
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, record := range report.Attendance {
		_, err = tx.ExecContext(
			ctx,
			"insert into attendance(snapshot_id, subject_id, subject, attendance, absences) values (?, ?, ?, ?, ?)",
			id, record.ID, record.Subject, record.Attendance, record.Absences,
		)
		if err != nil {
			return 0, fmt.Errorf("attendance %s: %w", record.ID, err)
		}
	}
	for _, subject := range report.Grades {
		_, err = tx.ExecContext(
			ctx,
			"insert into grade(snapshot_id, subject_id, subject, average_grade, attendance, frequency) values (?, ?, ?, ?, ?, ?)",
			id, subject.ID, subject.Subject, subject.AverageGrade, subject.Attendance, subject.Frequency,
		)
		if err != nil {
			return 0, fmt.Errorf("grade %s: %w", subject.ID, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, err
	}
	s.tel.ReportDebug(report_store_save, id, report.User.RA)
	return id, nil
}

// Latest returns the most recent snapshot archived for ra, sql.ErrNoRows if
// there is none.
func (s Store) Latest(ctx context.Context, ra string) (Snapshot, error) {
	row := s.db.QueryRowContext(
		ctx,
		"select id, taken_at, report from snapshot where ra = ? order by taken_at desc, id desc limit 1",
		ra,
	)

	var snapshot Snapshot
	var takenAt int64
	var encoded string
	err := row.Scan(&snapshot.ID, &takenAt, &encoded)
	if err != nil {
		return Snapshot{}, err
	}
	err = json.Unmarshal([]byte(encoded), &snapshot.Report)
	if err != nil {
		s.tel.ReportBroken(report_store_snapshot, err, snapshot.ID)
		return Snapshot{}, err
	}
	snapshot.TakenAt = time.Unix(takenAt, 0).In(s.clock.Location())
	return snapshot, nil
}
