package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// CSVStore persists the sheet as two CSV files: <path> for the positional
// rows and <path minus extension>.log.csv for the turn log. Every operation
// takes an exclusive flock on a sidecar lock file, so independent processes
// (server and ellictl) can share one sheet. Writes go through a temp file
// and rename so readers never see a partial sheet.
type CSVStore struct {
	path    string
	logPath string
	lock    *flock.Flock
}

func NewCSVStore(path string) (*CSVStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sheet dir: %w", err)
	}
	ext := filepath.Ext(path)
	logPath := path[:len(path)-len(ext)] + ".log" + ext
	return &CSVStore{
		path:    path,
		logPath: logPath,
		lock:    flock.New(path + ".lock"),
	}, nil
}

func (s *CSVStore) withLock(fn func() error) error {
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("lock sheet %s: %w", s.path, err)
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

func (s *CSVStore) load() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := NewRow()
		copy(row, rec)
		rows[i] = row
	}
	return rows, nil
}

func (s *CSVStore) save(rows [][]string) error {
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (s *CSVStore) ClaimRow(_ context.Context, marker string) (RowHandle, error) {
	var h RowHandle
	err := s.withLock(func() error {
		rows, err := s.load()
		if err != nil {
			return err
		}
		for i, row := range rows {
			if Blank(row) {
				row[ColCondition] = marker
				h = RowHandle(i + 1)
				return s.save(rows)
			}
		}
		row := NewRow()
		row[ColCondition] = marker
		rows = append(rows, row)
		h = RowHandle(len(rows))
		return s.save(rows)
	})
	return h, err
}

func (s *CSVStore) ReadRow(_ context.Context, h RowHandle) ([]string, error) {
	var out []string
	err := s.withLock(func() error {
		rows, err := s.load()
		if err != nil {
			return err
		}
		if h < 1 || int(h) > len(rows) {
			return ErrRowOutOfRange
		}
		out = rows[h-1]
		return nil
	})
	return out, err
}

func (s *CSVStore) WriteRow(_ context.Context, h RowHandle, row []string) error {
	return s.withLock(func() error {
		rows, err := s.load()
		if err != nil {
			return err
		}
		if h < 1 || int(h) > len(rows) {
			return ErrRowOutOfRange
		}
		stored := NewRow()
		copy(stored, row)
		rows[h-1] = stored
		return s.save(rows)
	})
}

func (s *CSVStore) Rows(_ context.Context) ([][]string, error) {
	var out [][]string
	err := s.withLock(func() error {
		rows, err := s.load()
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	return out, err
}

func (s *CSVStore) AppendLog(_ context.Context, e LogEntry) error {
	return s.withLock(func() error {
		f, err := os.OpenFile(s.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		w := csv.NewWriter(f)
		rec := []string{e.SessionID, e.Role, e.Content, e.At.UTC().Format(time.RFC3339)}
		if err := w.Write(rec); err != nil {
			f.Close()
			return err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	})
}

func (s *CSVStore) Log(_ context.Context) ([]LogEntry, error) {
	var out []LogEntry
	err := s.withLock(func() error {
		f, err := os.Open(s.logPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		defer f.Close()
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		records, err := r.ReadAll()
		if err != nil {
			return fmt.Errorf("read turn log: %w", err)
		}
		for _, rec := range records {
			if len(rec) < 4 {
				continue
			}
			at, _ := time.Parse(time.RFC3339, rec[3])
			out = append(out, LogEntry{SessionID: rec[0], Role: rec[1], Content: rec[2], At: at})
		}
		return nil
	})
	return out, err
}
