package persist

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"
)

// DefaultFlushSchedule retries queued writes once a minute.
const DefaultFlushSchedule = "@every 1m"

// Flusher periodically drains the adapter's pending-write queue.
type Flusher struct {
	cron *cron.Cron
}

// NewFlusher schedules Flush on the given cron spec ("@every 1m" style).
func NewFlusher(a *Adapter, spec string) (*Flusher, error) {
	if spec == "" {
		spec = DefaultFlushSchedule
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := a.Flush(context.Background()); err != nil {
			log.Printf("persist: background flush: %v", err)
		}
	}); err != nil {
		return nil, err
	}
	return &Flusher{cron: c}, nil
}

func (f *Flusher) Start() { f.cron.Start() }

// Stop halts scheduling and waits for a running flush to finish.
func (f *Flusher) Stop() {
	<-f.cron.Stop().Done()
}
