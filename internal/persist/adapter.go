// Package persist adapts the intake state machine's recording needs onto a
// sheet.Store: row claiming, merge-style progress writes, and a pending
// queue so a flaky store never loses data for good.
package persist

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/elli-study/elli/internal/models"
	"github.com/elli-study/elli/internal/services"
	"github.com/elli-study/elli/internal/sheet"
)

var _ services.Recorder = (*Adapter)(nil)

// Adapter implements the services.Recorder boundary.
//
// Writes are merges: a cell already holding a value is never overwritten,
// so the first write per column wins even when a turn is retried. Failed
// writes land in a pending queue that is drained on the next mutation and
// by the background Flusher.
type Adapter struct {
	store  sheet.Store
	claims singleflight.Group

	mu         sync.Mutex
	pending    map[sheet.RowHandle]map[int]string
	pendingLog []sheet.LogEntry
}

func NewAdapter(store sheet.Store) *Adapter {
	return &Adapter{
		store:   store,
		pending: make(map[sheet.RowHandle]map[int]string),
	}
}

// LogTurn appends one message to the turn log, queueing it on failure.
func (a *Adapter) LogTurn(ctx context.Context, sessionID string, m models.Message) error {
	e := sheet.LogEntry{SessionID: sessionID, Role: string(m.Speaker), Content: m.Text, At: m.At}
	if err := a.store.AppendLog(ctx, e); err != nil {
		a.mu.Lock()
		a.pendingLog = append(a.pendingLog, e)
		a.mu.Unlock()
		return fmt.Errorf("append turn log: %w", err)
	}
	return nil
}

// WritePartial merges cols into the session's row, claiming one first if
// needed. Queued cells from earlier failures are retried before the new
// write.
func (a *Adapter) WritePartial(ctx context.Context, s *models.Session, cols map[int]string) error {
	if err := a.ensureRow(ctx, s); err != nil {
		return err
	}
	a.flush(ctx)
	h := sheet.RowHandle(s.Row)
	if err := a.merge(ctx, h, cols); err != nil {
		a.enqueue(h, cols)
		return err
	}
	return nil
}

// WriteFull writes every populated session field to the row. Cells written
// earlier keep their values.
func (a *Adapter) WriteFull(ctx context.Context, s *models.Session) error {
	return a.WritePartial(ctx, s, RowCells(s))
}

// Flush retries all queued writes. It returns the first error encountered;
// whatever could not be written stays queued.
func (a *Adapter) Flush(ctx context.Context) error {
	return a.flush(ctx)
}

// ensureRow claims a sheet row for the session on first need. Concurrent
// claims for the same session are collapsed into one store call.
func (a *Adapter) ensureRow(ctx context.Context, s *models.Session) error {
	if s.Row != 0 {
		return nil
	}
	v, err, _ := a.claims.Do(s.ID, func() (any, error) {
		return a.store.ClaimRow(ctx, s.Condition)
	})
	if err != nil {
		return fmt.Errorf("claim row: %w", err)
	}
	s.Row = int(v.(sheet.RowHandle))
	return nil
}

// merge fills only blank cells of the row with the given values.
func (a *Adapter) merge(ctx context.Context, h sheet.RowHandle, cols map[int]string) error {
	row, err := a.store.ReadRow(ctx, h)
	if err != nil {
		return fmt.Errorf("read row %d: %w", h, err)
	}
	changed := false
	for c, v := range cols {
		if c < 0 || c >= len(row) || v == "" {
			continue
		}
		if row[c] == "" {
			row[c] = v
			changed = true
		}
	}
	if !changed {
		return nil
	}
	if err := a.store.WriteRow(ctx, h, row); err != nil {
		return fmt.Errorf("write row %d: %w", h, err)
	}
	return nil
}

func (a *Adapter) enqueue(h sheet.RowHandle, cols map[int]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	dst := a.pending[h]
	if dst == nil {
		dst = make(map[int]string, len(cols))
		a.pending[h] = dst
	}
	for c, v := range cols {
		if _, ok := dst[c]; !ok {
			dst[c] = v
		}
	}
}

func (a *Adapter) flush(ctx context.Context) error {
	a.mu.Lock()
	rows := a.pending
	logs := a.pendingLog
	a.pending = make(map[sheet.RowHandle]map[int]string)
	a.pendingLog = nil
	a.mu.Unlock()

	if len(rows) == 0 && len(logs) == 0 {
		return nil
	}

	var first error
	for h, cols := range rows {
		if err := a.merge(ctx, h, cols); err != nil {
			a.enqueue(h, cols)
			if first == nil {
				first = err
			}
		}
	}
	var keep []sheet.LogEntry
	for _, e := range logs {
		if err := a.store.AppendLog(ctx, e); err != nil {
			keep = append(keep, e)
			if first == nil {
				first = err
			}
		}
	}
	if len(keep) > 0 {
		a.mu.Lock()
		a.pendingLog = append(keep, a.pendingLog...)
		a.mu.Unlock()
	}
	if first == nil {
		log.Printf("persist: flushed %d queued row write(s), %d queued log entrie(s)", len(rows), len(logs))
	}
	return first
}

// RowCells maps the session's populated fields onto their sheet columns.
// Unset fields are omitted so a merge never blanks anything.
func RowCells(s *models.Session) map[int]string {
	cols := map[int]string{
		sheet.ColCondition: s.Condition,
	}
	if s.Demographics.Age > 0 {
		cols[sheet.ColAge] = strconv.Itoa(s.Demographics.Age)
	}
	if s.Demographics.Gender != "" {
		cols[sheet.ColGender] = s.Demographics.Gender
	}
	if s.InitialMood != "" {
		cols[sheet.ColMood] = moodExchange(s)
	}
	for i, v := range s.PHQAnswers {
		if i < 9 {
			cols[sheet.ColPHQFirst+i] = strconv.Itoa(v)
		}
	}
	for i, v := range s.GADAnswers {
		if i < 7 {
			cols[sheet.ColGADFirst+i] = strconv.Itoa(v)
		}
	}
	if len(s.PHQAnswers) == 9 {
		cols[sheet.ColPHQTotal] = strconv.Itoa(s.PHQTotal)
	}
	if len(s.GADAnswers) == 7 {
		total := 0
		for _, v := range s.GADAnswers {
			total += v
		}
		cols[sheet.ColGADTotal] = strconv.Itoa(total)
	}
	if s.Feedback.Trust > 0 {
		cols[sheet.ColTrust] = strconv.Itoa(s.Feedback.Trust)
	}
	if s.Feedback.Comfort > 0 {
		cols[sheet.ColComfort] = strconv.Itoa(s.Feedback.Comfort)
	}
	if s.Feedback.Empathy > 0 {
		cols[sheet.ColEmpathy] = strconv.Itoa(s.Feedback.Empathy)
	}
	if s.Feedback.Reflection != "" {
		cols[sheet.ColReflection] = s.Feedback.Reflection
	}
	return cols
}

// moodExchange renders column D as both sides of the opening exchange when
// the transcript holds the bot's reply. Static submissions carry no
// transcript and keep the plain mood text.
func moodExchange(s *models.Session) string {
	for i, m := range s.Transcript {
		if m.Speaker == models.SpeakerUser && m.Text == s.InitialMood {
			for _, n := range s.Transcript[i+1:] {
				if n.Speaker == models.SpeakerBot {
					return fmt.Sprintf("User: %s\nElli: %s", s.InitialMood, n.Text)
				}
			}
			break
		}
	}
	return s.InitialMood
}
