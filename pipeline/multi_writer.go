package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/freee-sys/parsing/models"
)

// MultiWriter fans every write out to several writers in order. The first
// writer is the primary store; a failure there stops the mirrors from
// seeing the batch.
type MultiWriter struct {
	writers []OutputWriter
	mu      sync.Mutex
}

// NewMultiWriter combines writers. It needs at least one.
func NewMultiWriter(writers ...OutputWriter) (*MultiWriter, error) {
	if len(writers) == 0 {
		return nil, fmt.Errorf("multi writer needs at least one writer")
	}
	return &MultiWriter{writers: writers}, nil
}

// Write writes books to every writer.
func (mw *MultiWriter) Write(books []*models.Book) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for i, w := range mw.writers {
		if err := w.Write(books); err != nil {
			return fmt.Errorf("writer %d: %w", i, err)
		}
	}
	return nil
}

// Close closes every writer, reporting all failures.
func (mw *MultiWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	var errs []error
	for i, w := range mw.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Validate validates every writer.
func (mw *MultiWriter) Validate() error {
	var errs []error
	for i, w := range mw.writers {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("validate writer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
