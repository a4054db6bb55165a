package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/freee-sys/parsing/models"
	"github.com/freee-sys/parsing/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrInvalidBook wraps validation failures.
	ErrInvalidBook = errors.New("pipeline: invalid book")
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(books []*models.Book) error
	Close() error
	Validate() error
}

// Pipeline validates books and hands each one to the writer as soon as it
// arrives. Every Process call is one write, so every saved book is committed
// before the next page is fetched.
type Pipeline struct {
	writer OutputWriter

	metrics metrics

	mu     sync.Mutex // guards closed
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// NewPipeline builds a pipeline that owns writer and closes it on Close.
func NewPipeline(writer OutputWriter) *Pipeline {
	return &Pipeline{
		writer:  writer,
		metrics: newMetrics(),
	}
}

// Process validates and writes one book.
func (p *Pipeline) Process(book *models.Book) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPipelineClosed
	}

	if err := parser.ValidateBook(book); err != nil {
		p.metrics.addValidation("invalid_record")
		return fmt.Errorf("%w: %v", ErrInvalidBook, err)
	}

	if err := p.writer.Write([]*models.Book{book}); err != nil {
		p.metrics.addValidation("write_failed")
		return fmt.Errorf("write book %d: %w", book.BookID, err)
	}

	p.metrics.incrementProcessed()
	return nil
}

// Close prevents more submissions and closes the writer once.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.closeOnce.Do(func() {
		p.closeErr = p.writer.Close()
	})
	return p.closeErr
}

// Validate delegates to the writer's output check.
func (p *Pipeline) Validate() error {
	return p.writer.Validate()
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_books":   m.processed,
		"validation_errors": copyValidation,
	}
}
