package store

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gamebrain/shoplens/internal/table"
)

// Writer serializes SQLite writes through a single goroutine. Snapshot saves
// are enqueued after a table refresh so the HTTP path never waits on disk;
// the bounded channel gives backpressure and Drain flushes pending saves on
// shutdown.
type Writer struct {
	db      *sql.DB
	ch      chan func(*sql.DB)
	wg      sync.WaitGroup
	dropped atomic.Uint64
}

// NewWriter creates an async writer with the given buffer size.
// Call Run() to start processing and Drain() before closing the DB.
func NewWriter(db *DB, bufSize int) *Writer {
	if bufSize <= 0 {
		bufSize = 16
	}
	return &Writer{
		db: db.RawDB(),
		ch: make(chan func(*sql.DB), bufSize),
	}
}

// Run processes queued writes until ctx is cancelled. After cancellation it
// drains remaining items in the channel before returning.
func (w *Writer) Run(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case fn, ok := <-w.ch:
				if !ok {
					return
				}
				fn(w.db)
			case <-ctx.Done():
				for {
					select {
					case fn, ok := <-w.ch:
						if !ok {
							return
						}
						fn(w.db)
					default:
						return
					}
				}
			}
		}
	}()
}

// Enqueue adds a write operation to the queue. If the channel is full the
// write is dropped rather than blocking the caller; a dropped snapshot save
// just means the cache stays one refresh behind.
func (w *Writer) Enqueue(fn func(*sql.DB)) {
	select {
	case w.ch <- fn:
	default:
		count := w.dropped.Add(1)
		if count&(count-1) == 0 {
			slog.Warn("async writer: dropping writes due to backpressure",
				"totalDropped", count, "queueCap", cap(w.ch))
		}
	}
}

// EnqueueSnapshot queues a cache save for the given snapshot. Failures are
// logged, not returned: the cache is best effort and the live table already
// holds the data.
func (w *Writer) EnqueueSnapshot(snap *table.Snapshot) {
	w.Enqueue(func(db *sql.DB) {
		if err := saveSnapshot(db, snap); err != nil {
			slog.Error("snapshot cache save failed", "source", snap.Source, "error", err)
		}
	})
}

// DroppedCount returns the number of writes dropped due to backpressure.
func (w *Writer) DroppedCount() uint64 {
	return w.dropped.Load()
}

// Drain waits for all queued writes to be processed. Call this before
// closing the database.
func (w *Writer) Drain() {
	close(w.ch)
	w.wg.Wait()
}
