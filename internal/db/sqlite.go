// Package db holds the account and assignment stores behind the services'
// narrow store interfaces.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/elli-study/elli/internal/services"
)

// SQLiteStore implements services.ResearcherStore and
// services.AssignmentStore over one sqlite file.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) migrate() error {
	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		`CREATE TABLE IF NOT EXISTS researchers (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			pass_hash BLOB NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS assignments (
			id TEXT PRIMARY KEY,
			token TEXT NOT NULL UNIQUE,
			condition TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) FindByEmail(email string) (*services.Researcher, error) {
	row := s.db.QueryRow("SELECT id, email, pass_hash, created_at FROM researchers WHERE email = ?", email)
	var r services.Researcher
	var created string
	if err := row.Scan(&r.ID, &r.Email, &r.PassHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &r, nil
}

func (s *SQLiteStore) Add(r *services.Researcher) error {
	_, err := s.db.Exec(
		"INSERT INTO researchers (id, email, pass_hash, created_at) VALUES (?, ?, ?, ?)",
		r.ID, r.Email, r.PassHash, r.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) FindByToken(token string) (*services.Assignment, error) {
	row := s.db.QueryRow("SELECT id, token, condition, url, created_at FROM assignments WHERE token = ?", token)
	var a services.Assignment
	var created string
	if err := row.Scan(&a.ID, &a.Token, &a.Condition, &a.URL, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &a, nil
}

func (s *SQLiteStore) AddAssignment(a *services.Assignment) error {
	_, err := s.db.Exec(
		"INSERT INTO assignments (id, token, condition, url, created_at) VALUES (?, ?, ?, ?, ?)",
		a.ID, a.Token, a.Condition, a.URL, a.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

// Assignments exposes the assignment half of the store under the narrow
// interface AssignService expects.
func (s *SQLiteStore) Assignments() services.AssignmentStore {
	return assignmentView{s}
}

type assignmentView struct{ s *SQLiteStore }

func (v assignmentView) FindByToken(token string) (*services.Assignment, error) {
	return v.s.FindByToken(token)
}

func (v assignmentView) Add(a *services.Assignment) error { return v.s.AddAssignment(a) }
