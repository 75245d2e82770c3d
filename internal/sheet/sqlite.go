package sheet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the durable sheet backend. Rows live in a fixed-width
// table (one TEXT column per tracked sheet column); the turn log is a
// separate append-only table. Claims run inside an IMMEDIATE transaction
// so two concurrent claims cannot select the same blank row.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	// IMMEDIATE transactions take the write lock up front, so a losing
	// concurrent claim waits on the busy timeout instead of failing mid-scan.
	if !strings.Contains(dsn, "_txlock=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_txlock=immediate&_busy_timeout=5000"
	}
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

func colNames() []string {
	cols := make([]string, NumCols)
	for i := range cols {
		cols[i] = fmt.Sprintf("c%d", i)
	}
	return cols
}

func (s *SQLiteStore) migrate() error {
	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	defs := make([]string, 0, NumCols)
	for _, c := range colNames() {
		defs = append(defs, c+" TEXT NOT NULL DEFAULT ''")
	}
	schema := []string{
		"CREATE TABLE IF NOT EXISTS sheet_rows (row INTEGER PRIMARY KEY AUTOINCREMENT, " + strings.Join(defs, ", ") + ")",
		"CREATE TABLE IF NOT EXISTS turn_log (id INTEGER PRIMARY KEY AUTOINCREMENT, session_id TEXT NOT NULL, role TEXT NOT NULL, content TEXT NOT NULL, at TEXT NOT NULL)",
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate sheet schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) ClaimRow(ctx context.Context, marker string) (RowHandle, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	blank := make([]string, NumCols)
	for i, c := range colNames() {
		blank[i] = c + " = ''"
	}
	var row int64
	err = tx.QueryRowContext(ctx,
		"SELECT row FROM sheet_rows WHERE "+strings.Join(blank, " AND ")+" ORDER BY row LIMIT 1").Scan(&row)
	switch {
	case err == nil:
		if _, err := tx.ExecContext(ctx, "UPDATE sheet_rows SET c0 = ? WHERE row = ?", marker, row); err != nil {
			return 0, err
		}
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, "INSERT INTO sheet_rows (c0) VALUES (?)", marker)
		if err != nil {
			return 0, err
		}
		row, err = res.LastInsertId()
		if err != nil {
			return 0, err
		}
	default:
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return RowHandle(row), nil
}

func (s *SQLiteStore) ReadRow(ctx context.Context, h RowHandle) ([]string, error) {
	cells := NewRow()
	dest := make([]any, NumCols)
	for i := range cells {
		dest[i] = &cells[i]
	}
	err := s.db.QueryRowContext(ctx,
		"SELECT "+strings.Join(colNames(), ", ")+" FROM sheet_rows WHERE row = ?", int(h)).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRowOutOfRange
	}
	if err != nil {
		return nil, err
	}
	return cells, nil
}

func (s *SQLiteStore) WriteRow(ctx context.Context, h RowHandle, row []string) error {
	stored := NewRow()
	copy(stored, row)
	sets := make([]string, NumCols)
	args := make([]any, 0, NumCols+1)
	for i, c := range colNames() {
		sets[i] = c + " = ?"
		args = append(args, stored[i])
	}
	args = append(args, int(h))
	res, err := s.db.ExecContext(ctx,
		"UPDATE sheet_rows SET "+strings.Join(sets, ", ")+" WHERE row = ?", args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRowOutOfRange
	}
	return nil
}

func (s *SQLiteStore) Rows(ctx context.Context) ([][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+strings.Join(colNames(), ", ")+" FROM sheet_rows ORDER BY row")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][]string
	for rows.Next() {
		cells := NewRow()
		dest := make([]any, NumCols)
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) AppendLog(ctx context.Context, e LogEntry) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO turn_log (session_id, role, content, at) VALUES (?, ?, ?, ?)",
		e.SessionID, e.Role, e.Content, e.At.UTC().Format(time.RFC3339))
	return err
}

func (s *SQLiteStore) Log(ctx context.Context) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id, role, content, at FROM turn_log ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var at string
		if err := rows.Scan(&e.SessionID, &e.Role, &e.Content, &at); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339, at)
		out = append(out, e)
	}
	return out, rows.Err()
}
