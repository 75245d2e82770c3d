// Package sheet implements the study's record store: one positional
// 26-column row per participant plus an append-only turn log.
package sheet

import (
	"context"
	"errors"
	"time"
)

// Positional column layout, one row per session. Mirrors the shared
// spreadsheet the study writes into.
const (
	ColCondition  = 0  // A: condition label (chatbot|static); doubles as the claim marker
	ColAge        = 1  // B
	ColGender     = 2  // C
	ColMood       = 3  // D: initial mood exchange, free text
	ColPHQFirst   = 4  // E..M: PHQ-9 items 1..9
	ColGADFirst   = 13 // N..T: GAD-7 items 1..7
	ColPHQTotal   = 20 // U
	ColGADTotal   = 21 // V
	ColTrust      = 22 // W
	ColComfort    = 23 // X
	ColEmpathy    = 24 // Y
	ColReflection = 25 // Z: free-text feedback
	NumCols       = 26
)

// RowHandle is a stable 1-based reference to a session's row.
type RowHandle int

// LogEntry is one row of the forensic turn log.
type LogEntry struct {
	SessionID string
	Role      string
	Content   string
	At        time.Time
}

// ErrRowOutOfRange is returned for handles that reference no row.
var ErrRowOutOfRange = errors.New("sheet: row out of range")

// Store is the record store boundary. ClaimRow must be atomic with respect
// to blank-row scanning: it finds the first row whose tracked columns are
// all blank (or appends one), writes marker into the condition column, and
// returns the handle. Marking at claim time is what keeps two concurrent
// claims from receiving the same row.
type Store interface {
	ClaimRow(ctx context.Context, marker string) (RowHandle, error)
	ReadRow(ctx context.Context, h RowHandle) ([]string, error)
	WriteRow(ctx context.Context, h RowHandle, row []string) error
	Rows(ctx context.Context) ([][]string, error)
	AppendLog(ctx context.Context, e LogEntry) error
	Log(ctx context.Context) ([]LogEntry, error)
}

// Blank reports whether every cell of the row is empty.
func Blank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

// NewRow returns an all-blank row of the tracked width.
func NewRow() []string { return make([]string, NumCols) }
