package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/freee-sys/parsing/models"
)

// Sentinels stored in place of missing page sections.
const (
	UnknownAuthor = "Неизвестен"
	NoRating      = "Нет рейтинга"
	NoDescription = "Нет описания"
)

// MaxImages caps how many image links are kept per book.
const MaxImages = 4

// ImageSeparator joins image URLs into the single images column.
const ImageSeparator = ", "

// ValidateBook checks the structural shape of a record. Empty text fields and
// negative counts are stored as read from the page.
func ValidateBook(b *models.Book) error {
	if b == nil {
		return fmt.Errorf("book is nil")
	}
	if b.BookID <= 0 {
		return fmt.Errorf("book has invalid id %d", b.BookID)
	}
	if len(b.Images) > MaxImages {
		return fmt.Errorf("book %d has %d images, max %d", b.BookID, len(b.Images), MaxImages)
	}
	return nil
}

// AuthorFromTitle returns the part of the heading before the first colon.
func AuthorFromTitle(title string) string {
	author, _, found := strings.Cut(title, ":")
	if !found {
		return UnknownAuthor
	}
	return strings.TrimSpace(author)
}

// NormalizeRating trims the rating text, falling back to NoRating.
func NormalizeRating(text string, present bool) string {
	if !present {
		return NoRating
	}
	return strings.TrimSpace(text)
}

// ParseRatingsCount reads a label like "(Оценок: 37)".
func ParseRatingsCount(label string) (int, error) {
	label = strings.TrimSpace(label)
	if idx := strings.LastIndex(label, ":"); idx >= 0 {
		label = label[idx+1:]
	}
	label = strings.TrimSpace(strings.ReplaceAll(label, ")", ""))
	count, err := strconv.Atoi(label)
	if err != nil {
		return 0, fmt.Errorf("ratings count %q: %w", label, err)
	}
	return count, nil
}

// JoinImages flattens image URLs for storage.
func JoinImages(images []string) string {
	return strings.Join(images, ImageSeparator)
}
