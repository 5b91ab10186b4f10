package repo

import (
	"fmt"

	xerrors "xm2m/internal/errors"
)

// Sink receives a repository traversal: Begin, then WriteRecord once
// per record oldest first, then End.
type Sink interface {
	Begin() error
	WriteRecord(rec Record) error
	End() error
}

// Repository is a fixed-capacity FIFO of Records.  When full, a Store
// silently overwrites the oldest record; memory stays bounded and
// writers never block or get told.
type Repository struct {
	records []Record
	head    int // next slot to write; the oldest record once wrapped
}

// New returns an initialized repository with the given capacity.
func New(capacity int) (*Repository, error) {
	r := &Repository{}
	if err := r.Init(capacity); err != nil {
		return nil, err
	}
	return r, nil
}

// Init allocates capacity sentinel slots.  It may succeed only once;
// later calls return ErrAlreadyInitialized and change nothing.
func (r *Repository) Init(capacity int) error {
	if r.records != nil {
		return xerrors.ErrAlreadyInitialized
	}
	if capacity <= 0 {
		return fmt.Errorf("repository capacity must be positive, got %d", capacity)
	}
	r.records = make([]Record, capacity)
	r.head = 0
	return nil
}

// Cap returns the number of slots, 0 before Init.
func (r *Repository) Cap() int { return len(r.records) }

// Len returns the number of records a traversal would yield.
func (r *Repository) Len() int {
	if r.wrapped() {
		return len(r.records)
	}
	return r.head
}

// Store copies rec into the slot at head and advances head.  Storing
// into an uninitialized repository does nothing.
func (r *Repository) Store(rec Record) {
	if r.records == nil {
		return
	}
	r.records[r.head] = rec
	r.head++
	if r.head >= len(r.records) {
		r.head = 0
	}
}

// wrapped reports whether head has come around at least once, in which
// case the slot at head holds the oldest surviving record.
func (r *Repository) wrapped() bool {
	return !r.records[r.head].IsZero()
}

// Emit feeds every stored record to sink, oldest first.  Traversal
// stops at the first sink error.
func (r *Repository) Emit(sink Sink) error {
	if r.records == nil {
		return xerrors.ErrNotInitialized
	}
	if err := sink.Begin(); err != nil {
		return fmt.Errorf("report begin: %w", err)
	}
	if r.wrapped() {
		for i := r.head; i < len(r.records); i++ {
			if err := sink.WriteRecord(r.records[i]); err != nil {
				return fmt.Errorf("report record %d: %w", r.records[i].Seq, err)
			}
		}
	}
	for i := 0; i < r.head; i++ {
		if err := sink.WriteRecord(r.records[i]); err != nil {
			return fmt.Errorf("report record %d: %w", r.records[i].Seq, err)
		}
	}
	if err := sink.End(); err != nil {
		return fmt.Errorf("report end: %w", err)
	}
	return nil
}

// Snapshot returns the stored records oldest first.
func (r *Repository) Snapshot() []Record {
	if r.records == nil {
		return nil
	}
	var c collector
	r.Emit(&c) //nolint:errcheck // collector never fails
	return c.records
}

type collector struct{ records []Record }

func (c *collector) Begin() error { return nil }
func (c *collector) End() error   { return nil }

func (c *collector) WriteRecord(rec Record) error {
	c.records = append(c.records, rec)
	return nil
}
