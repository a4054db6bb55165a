package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/freee-sys/parsing/config"
	"github.com/freee-sys/parsing/models"
	"github.com/freee-sys/parsing/pipeline"
)

const (
	ctxStart  = "start"
	ctxBookID = "book_id"
	ctxStatus = "status"
	ctxBook   = "book"
	ctxErr    = "err"
)

// Scraper fetches book pages one at a time and feeds them to the pipeline.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	out       io.Writer
	Metrics   *Metrics

	requestCount int

	handlersOnce sync.Once
}

// Option customises a Scraper.
type Option func(*Scraper)

// WithOutput sets where the per-book confirmation lines go. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Scraper) {
		s.out = w
	}
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config, opts ...Option) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	// no AllowedDomains: only book urls are requested, and redirects to
	// another host (www. or not) must still land on the 200 check
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	// non-200 pages are skipped by us, not reported as collector errors
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       cfg.Delay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	s := &Scraper{
		cfg:       cfg,
		collector: collector,
		out:       os.Stdout,
		Metrics:   NewMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run imports every configured book id in order. Ids without data are
// skipped; the first fatal error stops the run and is returned together with
// the partial result.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ImportResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.ImportResult{
		StartTime:   time.Now(),
		SkipReasons: make(map[string]int),
	}
	defer func() {
		result.EndTime = time.Now()
		result.RequestCount = s.requestCount
	}()

	for _, id := range s.cfg.BookIDs {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("import interrupted before book %d: %w", id, err)
		}
		result.Attempted++

		book, reason, err := s.fetch(id)
		if err != nil {
			var parseErr ErrParse
			if !s.cfg.StrictParsing && errors.As(err, &parseErr) {
				slog.Warn("skipping unparsable book", slog.Int("book_id", id), slog.Any("error", err))
				s.skip(result, id, "parse_error")
				continue
			}
			s.Metrics.IncError(errorTypeLabel(err))
			return result, fmt.Errorf("book %d: %w", id, err)
		}
		if book == nil {
			slog.Debug("no data for book", slog.Int("book_id", id), slog.String("reason", reason))
			s.skip(result, id, reason)
			continue
		}

		if err := p.Process(book); err != nil {
			s.Metrics.IncError("storage")
			return result, fmt.Errorf("save book %d: %w", id, err)
		}
		result.SavedCount++
		s.Metrics.IncSaved()
		fmt.Fprintf(s.out, "Book ID %d saved to database.\n", id)
	}

	return result, nil
}

// Fetch downloads and extracts one book. A nil book with a nil error means
// the page had no data.
func (s *Scraper) Fetch(id int) (*models.Book, error) {
	book, _, err := s.fetch(id)
	return book, err
}

func (s *Scraper) skip(result *models.ImportResult, id int, reason string) {
	result.SkippedIDs = append(result.SkippedIDs, id)
	result.SkipReasons[reason]++
	s.Metrics.IncSkipped(reason)
}

// fetch returns the book, or the reason there is none, or a fatal error.
func (s *Scraper) fetch(id int) (*models.Book, string, error) {
	s.configureHandlers()

	ctx := colly.NewContext()
	ctx.Put(ctxBookID, id)

	link := s.cfg.BookURL(id)
	if err := s.collector.Request(http.MethodGet, link, nil, ctx, nil); err != nil {
		return nil, "", classifyError(fmt.Errorf("get %s: %w", link, err))
	}

	if err, ok := ctx.GetAny(ctxErr).(error); ok && err != nil {
		return nil, "", err
	}
	status, _ := ctx.GetAny(ctxStatus).(int)
	if status != http.StatusOK {
		return nil, skipReason(status), nil
	}
	book, _ := ctx.GetAny(ctxBook).(*models.Book)
	if book == nil {
		return nil, "missing_sections", nil
	}
	return book, "", nil
}

func (s *Scraper) configureHandlers() {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			r.Ctx.Put(ctxStart, time.Now())
			s.requestCount++
			s.Metrics.IncRequest("started")
			slog.Debug("fetching book page", slog.String("url", r.URL.String()))
		})

		s.collector.OnResponse(func(r *colly.Response) {
			r.Ctx.Put(ctxStatus, r.StatusCode)
			if start, ok := r.Ctx.GetAny(ctxStart).(time.Time); ok {
				s.Metrics.ObserveDuration(time.Since(start))
			}
			if r.StatusCode != http.StatusOK {
				s.Metrics.IncRequest("skipped")
				return
			}
			s.Metrics.IncRequest("ok")

			id, _ := r.Ctx.GetAny(ctxBookID).(int)
			doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
			if err != nil {
				r.Ctx.Put(ctxErr, ErrParse{BookID: id, Field: "document", Err: err})
				return
			}
			book, err := ExtractBook(doc.Selection, id)
			if err != nil {
				r.Ctx.Put(ctxErr, err)
				return
			}
			if book != nil {
				r.Ctx.Put(ctxBook, book)
			}
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			link := ""
			if r != nil && r.Request != nil && r.Request.URL != nil {
				link = r.Request.URL.String()
			}
			slog.Debug("request error",
				slog.String("url", link),
				slog.String("category", errorTypeLabel(classifyError(err))),
				slog.Any("error", err),
			)
		})
	})
}
