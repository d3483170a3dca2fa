package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/c360studio/provgraph/config"
	"github.com/sony/gobreaker"
)

// DefaultMaxDocumentSize bounds the response body (64MB).
const DefaultMaxDocumentSize = 64 << 20

// Document is a retrieved provenance document.
type Document struct {
	// Body holds the Turtle serialization. Nil when Found is false.
	Body []byte
	// Found is false when the store has no provenance graph yet.
	Found bool
	// Origin names where the document came from (URL or path).
	Origin string
}

// Reader returns the body as an io.Reader.
func (d *Document) Reader() io.Reader {
	return bytes.NewReader(d.Body)
}

// Source is anything that can produce the provenance document.
type Source interface {
	Fetch(ctx context.Context) (*Document, error)
}

// Fetcher reads the provenance graph from a rawbase endpoint.
type Fetcher struct {
	client   *http.Client
	url      string
	maxBytes int64
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithMaxDocumentSize rejects documents larger than n bytes.
func WithMaxDocumentSize(n int64) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}

// NewFetcher creates a fetcher for the configured endpoint and graph.
func NewFetcher(cfg config.SourceConfig, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		client: &http.Client{Timeout: cfg.Timeout},
		url:      DocumentURL(cfg.Endpoint, cfg.Graph),
		maxBytes: DefaultMaxDocumentSize,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.breaker = newBreaker("provenance-source", cfg.Breaker, logger)
	return f
}

// DocumentURL builds {endpoint}get?graph={graph}.
func DocumentURL(endpoint, graph string) string {
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return endpoint + "get?graph=" + url.QueryEscape(graph)
}

// URL returns the document URL this fetcher reads.
func (f *Fetcher) URL() string {
	return f.url
}

// State returns the breaker state.
func (f *Fetcher) State() gobreaker.State {
	return f.breaker.State()
}

// Fetch retrieves the document. A 404 yields a Document with Found false.
func (f *Fetcher) Fetch(ctx context.Context) (*Document, error) {
	result, err := f.breaker.Execute(func() (any, error) {
		return f.do(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			f.logger.Warn("Provenance fetch rejected by circuit breaker",
				slog.String("url", f.url),
				slog.String("state", f.breaker.State().String()))
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}
	return result.(*Document), nil
}

func (f *Fetcher) do(ctx context.Context) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	req.Header.Set("Accept", "text/turtle")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		f.logger.Debug("No provenance graph at source", slog.String("url", f.url))
		return &Document{Origin: f.url}, nil
	}
	if resp.StatusCode/100 != 2 {
		return nil, &FetchError{URL: f.url, StatusCode: resp.StatusCode}
	}

	// One byte past the limit tells a full document from a cut one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: f.url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBytes {
		return nil, &FetchError{URL: f.url, Err: fmt.Errorf("%w: limit %d bytes", ErrDocumentTooLarge, f.maxBytes)}
	}

	f.logger.Debug("Fetched provenance document",
		slog.String("url", f.url),
		slog.Int("bytes", len(body)))

	return &Document{Body: body, Found: true, Origin: f.url}, nil
}

func newBreaker(name string, cfg config.BreakerConfig, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Client errors say nothing about the health of the store.
			var fe *FetchError
			if errors.As(err, &fe) && !fe.Retryable() {
				return true
			}
			return false
		},
	})
}

// File reads the provenance document from a local Turtle file.
type File struct {
	Path string
}

// Fetch reads the file. A missing file yields a Document with Found false.
func (f File) Fetch(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return &Document{Origin: f.Path}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read provenance file: %w", err)
	}
	return &Document{Body: body, Found: true, Origin: f.Path}, nil
}
