package store

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Recorder queues entries in memory and appends them to a Journal from its own
// goroutine. Record never blocks; entries are dropped when the queue is full.
type Recorder struct {
	journal Journal
	queue   chan Entry
	dropped atomic.Int64
	log     *zerolog.Logger
}

// NewRecorder creates a recorder with a queue of the given size.
func NewRecorder(journal Journal, size int, logger *zerolog.Logger) *Recorder {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Recorder{
		journal: journal,
		queue:   make(chan Entry, size),
		log:     logger,
	}
}

// Record enqueues e.
func (r *Recorder) Record(e Entry) {
	select {
	case r.queue <- e:
	default:
		if n := r.dropped.Add(1); n == 1 || n%100 == 0 {
			r.log.Warn().Int64("dropped", n).Msg("audit queue full, dropping entries")
		}
	}
}

// Dropped returns how many entries were discarded because the queue was full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Run appends queued entries until ctx is cancelled, then flushes what is left.
// Cancelling ctx stops the loop but does not abort an in-flight append.
func (r *Recorder) Run(ctx context.Context) error {
	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case e := <-r.queue:
			r.append(writeCtx, e)
		case <-ctx.Done():
			r.flush(writeCtx)
			return nil
		}
	}
}

func (r *Recorder) flush(ctx context.Context) {
	for {
		select {
		case e := <-r.queue:
			r.append(ctx, e)
		default:
			return
		}
	}
}

func (r *Recorder) append(ctx context.Context, e Entry) {
	if err := r.journal.Append(ctx, e); err != nil {
		r.log.Warn().Err(err).Str("kind", e.Kind).Str("conn_id", e.ConnID).Msg("failed to append audit entry")
	}
}
