package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "no book ids",
			mutate: func(cfg *Config) {
				cfg.BookIDs = nil
			},
			wantErr: "book ids",
		},
		{
			name: "negative book id",
			mutate: func(cfg *Config) {
				cfg.BookIDs = []int{1, -5}
			},
			wantErr: "book ids",
		},
		{
			name: "empty database path",
			mutate: func(cfg *Config) {
				cfg.DatabasePath = ""
			},
			wantErr: "database path",
		},
		{
			name: "unknown export format",
			mutate: func(cfg *Config) {
				cfg.ExportFile = "books.xml"
				cfg.ExportFormat = "xml"
			},
			wantErr: "export format",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "negative delay",
			mutate: func(cfg *Config) {
				cfg.Delay = -1 * time.Millisecond
			},
			wantErr: "delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if len(cfg.BookIDs) != 14 {
		t.Fatalf("default ids = %d, want 14", len(cfg.BookIDs))
	}
}

func TestExportFormatIgnoredWithoutFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExportFormat = "xml"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("export format should not matter without export file, got %v", err)
	}
}

func TestBookURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{base: "https://www.labirint.ru", want: "https://www.labirint.ru/books/1005952/"},
		{base: "https://www.labirint.ru/", want: "https://www.labirint.ru/books/1005952/"},
		{base: "http://example.test", want: "http://example.test/books/1005952/"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.BaseURL = tt.base
			if got := cfg.BookURL(1005952); got != tt.want {
				t.Fatalf("BookURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int
		wantErr bool
	}{
		{name: "comma separated", input: "1,2,3", want: []int{1, 2, 3}},
		{name: "spaces and commas", input: " 10, 20  30 ", want: []int{10, 20, 30}},
		{name: "keeps duplicates and order", input: "5,1,5", want: []int{5, 1, 5}},
		{name: "not a number", input: "1,abc", wantErr: true},
		{name: "empty", input: " , ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDs(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseIDs(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ParseIDs(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("SCRAPER_TEST_STRING", "  books.db ")
	t.Setenv("SCRAPER_TEST_INT", "250")
	t.Setenv("SCRAPER_TEST_BAD_INT", "many")
	t.Setenv("SCRAPER_TEST_BOOL", "false")
	t.Setenv("SCRAPER_TEST_EMPTY", "   ")

	if value, ok := EnvString("SCRAPER_TEST_STRING"); !ok || value != "books.db" {
		t.Fatalf("EnvString = %q/%v, want books.db/true", value, ok)
	}
	if _, ok := EnvString("SCRAPER_TEST_EMPTY"); ok {
		t.Fatalf("blank value should count as unset")
	}
	if value, ok, err := EnvInt("SCRAPER_TEST_INT"); err != nil || !ok || value != 250 {
		t.Fatalf("EnvInt = %d/%v/%v, want 250/true/nil", value, ok, err)
	}
	if _, _, err := EnvInt("SCRAPER_TEST_BAD_INT"); err == nil {
		t.Fatalf("expected EnvInt error for non-numeric value")
	}
	if value, ok, err := EnvBool("SCRAPER_TEST_BOOL"); err != nil || !ok || value {
		t.Fatalf("EnvBool = %v/%v/%v, want false/true/nil", value, ok, err)
	}
	if _, ok, err := EnvBool("SCRAPER_TEST_MISSING"); err != nil || ok {
		t.Fatalf("missing bool should be unset without error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SCRAPER_DOTENV_DB=from-file.db\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("SCRAPER_DOTENV_DB", "")
	os.Unsetenv("SCRAPER_DOTENV_DB")

	if err := LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if value, ok := EnvString("SCRAPER_DOTENV_DB"); !ok || value != "from-file.db" {
		t.Fatalf("SCRAPER_DOTENV_DB = %q/%v, want from-file.db", value, ok)
	}
}
