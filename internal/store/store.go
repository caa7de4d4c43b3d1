// File: internal/store/store.go

// Package store persists student profiles in an embedded SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/jmosier/campusnav/api/schemas"
)

// ErrNotFound is returned when no student matches the requested id.
var ErrNotFound = errors.New("store: student not found")

const schema = `
CREATE TABLE IF NOT EXISTS students (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	email   TEXT NOT NULL,
	program TEXT NOT NULL DEFAULT '',
	year    TEXT NOT NULL DEFAULT ''
);`

// Store provides a SQLite-backed student profile repository.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// New opens (or creates) the database at path and applies the schema.
func New(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{
		db:  db,
		log: logger.Named("store"),
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns one student profile by id.
func (s *Store) Get(ctx context.Context, id string) (schemas.Student, error) {
	var st schemas.Student
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, program, year FROM students WHERE id = ?`, id)
	err := row.Scan(&st.ID, &st.Name, &st.Email, &st.Program, &st.Year)
	if errors.Is(err, sql.ErrNoRows) {
		return schemas.Student{}, ErrNotFound
	}
	if err != nil {
		return schemas.Student{}, fmt.Errorf("querying student %q: %w", id, err)
	}
	return st, nil
}

// List returns all student profiles ordered by name.
func (s *Store) List(ctx context.Context) ([]schemas.Student, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, program, year FROM students ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing students: %w", err)
	}
	defer rows.Close()

	var students []schemas.Student
	for rows.Next() {
		var st schemas.Student
		if err := rows.Scan(&st.ID, &st.Name, &st.Email, &st.Program, &st.Year); err != nil {
			return nil, fmt.Errorf("scanning student row: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating students: %w", err)
	}
	return students, nil
}

// Upsert inserts or replaces one student profile.
func (s *Store) Upsert(ctx context.Context, st schemas.Student) error {
	if st.ID == "" {
		return fmt.Errorf("store: student id is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO students (id, name, email, program, year)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			program = excluded.program,
			year = excluded.year`,
		st.ID, st.Name, st.Email, st.Program, st.Year)
	if err != nil {
		return fmt.Errorf("upserting student %q: %w", st.ID, err)
	}
	s.log.Debug("Student profile saved", zap.String("student_id", st.ID))
	return nil
}

// Delete removes one student profile. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting student %q: %w", id, err)
	}
	return nil
}
