package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/freee-sys/parsing/models"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Schema creates the books table when it does not exist yet.
const Schema = `CREATE TABLE IF NOT EXISTS books (
	id INTEGER PRIMARY KEY,
	book_id INTEGER,
	name TEXT,
	author TEXT,
	genre TEXT,
	first_genre TEXT,
	price TEXT,
	discount_price TEXT,
	pubhouse TEXT,
	images TEXT,
	rating TEXT,
	ratings_count INTEGER,
	description TEXT
)`

// SQLiteWriter appends books to the books table, one auto-committed INSERT
// per book.
type SQLiteWriter struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenSQLite opens dsn and makes sure the books table exists. Plain paths use
// the embedded SQLite driver; libsql:// and http(s):// URLs go to libsql.
func OpenSQLite(dsn string) (*SQLiteWriter, error) {
	driver := driverFor(dsn)
	if driver == "sqlite" && dsn != ":memory:" {
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == "sqlite" {
		// one connection keeps :memory: databases shared and writes serialized
		db.SetMaxOpenConns(1)
	}

	writer, err := NewSQLiteWriter(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return writer, nil
}

// NewSQLiteWriter adopts an open database and applies Schema.
func NewSQLiteWriter(db *sql.DB) (*SQLiteWriter, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("create books table: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Write inserts every book as its own row.
func (sw *SQLiteWriter) Write(books []*models.Book) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	for _, book := range books {
		if _, err := sw.db.Exec(insertBook, bookValues(book)...); err != nil {
			return fmt.Errorf("insert book %d: %w", book.BookID, err)
		}
	}
	return nil
}

// Close releases the database handle.
func (sw *SQLiteWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.db.Close()
}

// Validate ensures the books table is readable.
func (sw *SQLiteWriter) Validate() error {
	if _, err := sw.Count(context.Background()); err != nil {
		return err
	}
	return nil
}

// Count returns the number of rows in the books table.
func (sw *SQLiteWriter) Count(ctx context.Context) (int, error) {
	var n int
	if err := sw.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM books").Scan(&n); err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}
	return n, nil
}

// DB exposes the underlying handle for read-side queries.
func (sw *SQLiteWriter) DB() *sql.DB {
	return sw.db
}

func driverFor(dsn string) string {
	for _, prefix := range []string{"libsql://", "http://", "https://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "libsql"
		}
	}
	return "sqlite"
}
