package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Config holds importer configuration.
type Config struct {
	BaseURL          string
	BookIDs          []int
	DatabasePath     string
	ExportFile       string
	ExportFormat     string // csv or json, used only when ExportFile is set
	Delay            time.Duration
	Timeout          time.Duration
	UserAgent        string
	StrictParsing    bool
	Verbose          bool
	RespectRobotsTxt bool
	MetricsAddr      string
}

// DefaultBookIDs is the identifier list imported when none is configured.
func DefaultBookIDs() []int {
	return []int{
		1005952, 1002469, 992949, 923360, 1005953, 634082, 642466,
		879317, 569173, 809426, 674021, 569758, 877234, 990463,
	}
}

// DefaultConfig returns the settings for a one-shot import of the default id list.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://www.labirint.ru",
		BookIDs:          DefaultBookIDs(),
		DatabasePath:     "books.db",
		ExportFile:       "",
		ExportFormat:     "csv",
		Delay:            0,
		Timeout:          30 * time.Second,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		StrictParsing:    true,
		Verbose:          false,
		RespectRobotsTxt: false,
	}
}

// BookURL builds the product page address for a book identifier.
func (c *Config) BookURL(id int) string {
	return fmt.Sprintf("%s/books/%d/", strings.TrimSuffix(c.BaseURL, "/"), id)
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if len(c.BookIDs) == 0 {
		return fmt.Errorf("book ids cannot be empty")
	}
	for _, id := range c.BookIDs {
		if id <= 0 {
			return fmt.Errorf("book ids must be positive, got %d", id)
		}
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.ExportFile != "" && c.ExportFormat != "csv" && c.ExportFormat != "json" {
		return fmt.Errorf("export format must be csv or json")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// ParseIDs reads a comma or whitespace separated list of book identifiers.
func ParseIDs(raw string) ([]int, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	ids := make([]int, 0, len(fields))
	for _, field := range fields {
		id, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("invalid book id %q: %w", field, err)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no book ids in %q", raw)
	}
	return ids, nil
}
