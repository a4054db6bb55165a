// Package models defines data structures for the importer.
package models

import "time"

// Book is one product page extracted from the bookstore. Pointer fields come
// straight from data attributes and stay nil when the attribute is absent.
type Book struct {
	BookID        int      `csv:"book_id" json:"book_id"`
	Name          *string  `csv:"name" json:"name"`
	Author        string   `csv:"author" json:"author"`
	Genre         *string  `csv:"genre" json:"genre"`
	FirstGenre    *string  `csv:"first_genre" json:"first_genre"`
	Price         *string  `csv:"price" json:"price"`
	DiscountPrice *string  `csv:"discount_price" json:"discount_price"`
	Pubhouse      *string  `csv:"pubhouse" json:"pubhouse"`
	Images        []string `csv:"images" json:"images"`
	Rating        string   `csv:"rating" json:"rating"`
	RatingsCount  int      `csv:"ratings_count" json:"ratings_count"`
	Description   string   `csv:"description" json:"description"`
}

// StringValue dereferences an optional attribute, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ImportResult holds the overall result of an import run.
type ImportResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Attempted    int
	SavedCount   int
	SkippedIDs   []int
	SkipReasons  map[string]int
	RequestCount int
}
