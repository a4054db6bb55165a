package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/freee-sys/parsing/models"
)

func TestCSVWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export", "books.csv")

	writer, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	book := testBook(1005952)
	book.Images = []string{"https://img.test/1.jpg", "https://img.test/2.jpg"}
	if err := writer.Write([]*models.Book{book}); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate csv: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close csv: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records=%d, want 2", len(records))
	}
	if records[0][0] != "book_id" || records[0][11] != "description" {
		t.Fatalf("unexpected header: %v", records[0])
	}
	row := records[1]
	if row[0] != "1005952" || row[2] != "Иванов" || row[5] != "500" {
		t.Fatalf("unexpected row: %v", row)
	}
	if row[6] != "" {
		t.Fatalf("nil discount price should be empty, got %q", row[6])
	}
	if row[8] != "https://img.test/1.jpg, https://img.test/2.jpg" {
		t.Fatalf("images=%q", row[8])
	}
}

func TestJSONWriterWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "books.jsonl")

	writer, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	if err := writer.Write([]*models.Book{testBook(1), testBook(2)}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close json: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open json: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	count := 0
	for scanner.Scan() {
		var decoded models.Book
		if err := json.Unmarshal(scanner.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid json line: %v", err)
		}
		if decoded.DiscountPrice != nil {
			t.Fatalf("discount price should decode as null")
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan json: %v", err)
	}
	if count != 2 {
		t.Fatalf("json lines=%d, want 2", count)
	}
}

func TestMultiWriterWrite(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "books.csv")

	csvWriter, err := NewCSVWriter(csvPath)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	primary := &mockWriter{}

	writer, err := NewMultiWriter(primary, csvWriter)
	if err != nil {
		t.Fatalf("create multi writer: %v", err)
	}

	if err := writer.Write([]*models.Book{testBook(1)}); err != nil {
		t.Fatalf("write multi: %v", err)
	}
	if err := writer.Validate(); err != nil {
		t.Fatalf("validate multi: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multi: %v", err)
	}

	if got := len(primary.batchSizes()); got != 1 {
		t.Fatalf("primary writes = %d, want 1", got)
	}
	if primary.closed != 1 {
		t.Fatalf("primary should be closed")
	}
	if info, err := os.Stat(csvPath); err != nil || info.Size() == 0 {
		t.Fatalf("csv file missing or empty")
	}
}

func TestMultiWriterStopsOnPrimaryFailure(t *testing.T) {
	failing := &mockWriter{writeErr: errors.New("locked")}
	mirror := &mockWriter{}

	writer, err := NewMultiWriter(failing, mirror)
	if err != nil {
		t.Fatalf("create multi writer: %v", err)
	}
	if err := writer.Write([]*models.Book{testBook(1)}); err == nil {
		t.Fatalf("expected write error")
	}
	if got := len(mirror.batchSizes()); got != 0 {
		t.Fatalf("mirror writes = %d, want 0", got)
	}
}

func TestNewMultiWriterRequiresWriter(t *testing.T) {
	if _, err := NewMultiWriter(); err == nil {
		t.Fatalf("expected error for empty writer list")
	}
}
