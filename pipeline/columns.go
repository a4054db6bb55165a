package pipeline

import (
	"strconv"
	"strings"

	"github.com/freee-sys/parsing/models"
	"github.com/freee-sys/parsing/parser"
)

// BookColumns lists the persisted fields in table and export order.
var BookColumns = []string{
	"book_id", "name", "author", "genre", "first_genre", "price",
	"discount_price", "pubhouse", "images", "rating", "ratings_count", "description",
}

var insertBook = "INSERT INTO books (" + strings.Join(BookColumns, ", ") + ") VALUES (" +
	strings.TrimSuffix(strings.Repeat("?, ", len(BookColumns)), ", ") + ")"

// bookValues returns one value per BookColumns entry. Absent attributes come
// back as untyped nil so they are stored as NULL.
func bookValues(book *models.Book) []any {
	return []any{
		book.BookID,
		nullable(book.Name),
		book.Author,
		nullable(book.Genre),
		nullable(book.FirstGenre),
		nullable(book.Price),
		nullable(book.DiscountPrice),
		nullable(book.Pubhouse),
		parser.JoinImages(book.Images),
		book.Rating,
		book.RatingsCount,
		book.Description,
	}
}

// bookRecord renders bookValues as text, with NULL as the empty string.
func bookRecord(book *models.Book) []string {
	values := bookValues(book)
	record := make([]string, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case string:
			record[i] = v
		case int:
			record[i] = strconv.Itoa(v)
		}
	}
	return record
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
