// Package crossref implements papersources.MetadataSource against the
// Crossref REST API.
package crossref

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/identity"
	"github.com/camrobjones/papernet/internal/papersources"
)

const (
	// DefaultBaseURL is the Crossref REST API base URL.
	DefaultBaseURL = "https://api.crossref.org"

	// DefaultRows is the default page size for listings.
	DefaultRows = 20

	// DefaultAuthorRows is the default number of results for author searches.
	DefaultAuthorRows = 200

	// MaxRows is the largest page Crossref serves.
	MaxRows = 1000

	sourceName = "Crossref"
)

// Config holds configuration for the Crossref client.
type Config struct {
	// BaseURL is the API base URL. Defaults to https://api.crossref.org.
	BaseURL string

	// Mailto is sent as the mailto parameter to join the polite pool.
	Mailto string

	// Rows is the default page size for listings.
	Rows int
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Rows <= 0 {
		c.Rows = DefaultRows
	}
}

// Client is a Crossref API client. All calls go through the shared
// papersources.HTTPClient so they are cached and ledgered.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	logger     zerolog.Logger
}

var _ papersources.MetadataSource = (*Client)(nil)

// New creates a Crossref client.
func New(cfg Config, httpClient *papersources.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "crossref").Logger(),
	}
}

// GetWork retrieves the record of a canonical DOI.
func (c *Client) GetWork(ctx context.Context, doi string, opts papersources.FetchOptions) (*domain.Work, error) {
	var env Envelope[*domain.Work]
	if err := c.get(ctx, "/works/"+doi, nil, opts, &env); err != nil {
		return nil, fmt.Errorf("get work %s: %w", doi, err)
	}
	if env.Message == nil {
		return nil, domain.NewUpstreamDataError(sourceName, "empty work message for "+doi)
	}
	return env.Message, nil
}

// GetJournal retrieves the journal record for an ISSN.
func (c *Client) GetJournal(ctx context.Context, issn string, opts papersources.FetchOptions) (*domain.JournalRecord, error) {
	var env Envelope[*domain.JournalRecord]
	if err := c.get(ctx, "/journals/"+issn, nil, opts, &env); err != nil {
		return nil, fmt.Errorf("get journal %s: %w", issn, err)
	}
	if env.Message == nil {
		return nil, domain.NewUpstreamDataError(sourceName, "empty journal message for "+issn)
	}
	return env.Message, nil
}

// Search runs a free-text works query and returns the first rows results
// along with the total number of matches.
func (c *Client) Search(ctx context.Context, query string, rows int) ([]*domain.Work, int, error) {
	if strings.TrimSpace(query) == "" {
		return nil, 0, domain.NewValidationError("query", "must not be empty")
	}
	params := url.Values{
		"query": {query},
		"rows":  {strconv.Itoa(clampRows(rows, c.config.Rows))},
	}

	var env Envelope[WorkList]
	if err := c.get(ctx, "/works", params, papersources.FetchOptions{}, &env); err != nil {
		return nil, 0, fmt.Errorf("search works: %w", err)
	}
	return env.Message.Items, env.Message.TotalResults, nil
}

// SearchAuthor queries works by author name and keeps the ones listing an
// author that matches both the given and the family name.
func (c *Client) SearchAuthor(ctx context.Context, author domain.WorkAuthor, rows int) (*papersources.AuthorSearchResult, error) {
	query := strings.TrimSpace(strings.TrimSpace(author.Given) + " " + strings.TrimSpace(author.Family))
	if query == "" {
		return nil, domain.NewValidationError("author", "given or family name is required")
	}
	if rows <= 0 {
		rows = DefaultAuthorRows
	}

	params := url.Values{
		"query.author": {query},
		"rows":         {strconv.Itoa(clampRows(rows, DefaultAuthorRows))},
	}

	var env Envelope[WorkList]
	if err := c.get(ctx, "/works", params, papersources.FetchOptions{}, &env); err != nil {
		return nil, fmt.Errorf("search author %q: %w", query, err)
	}

	result := &papersources.AuthorSearchResult{}
	for _, w := range env.Message.Items {
		if identity.MatchAuthors(author, w.Author) {
			result.Works = append(result.Works, w)
			continue
		}
		result.Rejected++
		c.logger.Debug().Str("doi", w.DOI).Msg("rejected author match")
	}

	c.logger.Debug().
		Str("author", query).
		Int("added", len(result.Works)).
		Int("rejected", result.Rejected).
		Msg("author query complete")
	return result, nil
}

// ListWorks pages through works matching params and calls fn for each one.
// Paging stops at the reported total, at params.Limit, or at a short page.
// It returns the number of works passed to fn.
func (c *Client) ListWorks(ctx context.Context, params papersources.ListParams, fn func(*domain.Work) error) (int, error) {
	rows := clampRows(params.Rows, c.config.Rows)
	sort := params.Sort
	if sort == "" {
		sort = "issued"
	}
	order := params.Order
	if order == "" {
		order = "desc"
	}
	filter := BuildFilter(params)

	visited, offset, total := 0, 0, -1
	for {
		q := url.Values{
			"rows":   {strconv.Itoa(rows)},
			"offset": {strconv.Itoa(offset)},
			"sort":   {sort},
			"order":  {order},
		}
		if filter != "" {
			q.Set("filter", filter)
		}

		var env Envelope[WorkList]
		if err := c.get(ctx, "/works", q, papersources.FetchOptions{}, &env); err != nil {
			return visited, fmt.Errorf("list works at offset %d: %w", offset, err)
		}

		if env.Message.TotalResults != total {
			total = env.Message.TotalResults
			c.logger.Info().
				Str("filter", filter).
				Int("total", total).
				Int("offset", offset).
				Msg("works listing total updated")
		}

		limit := total
		if params.Limit > 0 && params.Limit < limit {
			limit = params.Limit
		}

		for _, w := range env.Message.Items {
			if visited >= limit {
				return visited, nil
			}
			if err := fn(w); err != nil {
				return visited, err
			}
			visited++
		}

		offset += rows
		if len(env.Message.Items) < rows || offset >= limit {
			return visited, nil
		}
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, opts papersources.FetchOptions, dst interface{ status() string }) error {
	if c.config.Mailto != "" {
		if params == nil {
			params = url.Values{}
		}
		params.Set("mailto", c.config.Mailto)
	}

	if err := c.httpClient.GetJSON(ctx, sourceName, c.config.BaseURL+path, params, opts, dst); err != nil {
		return err
	}
	if s := dst.status(); s != statusOK {
		return domain.NewUpstreamDataError(sourceName, "unexpected status "+strconv.Quote(s))
	}
	return nil
}

func (e *Envelope[T]) status() string { return e.Status }

func clampRows(rows, fallback int) int {
	if rows <= 0 {
		rows = fallback
	}
	if rows > MaxRows {
		rows = MaxRows
	}
	return rows
}
