// Package opencitations implements papersources.CitationIndex against the
// OpenCitations COCI REST API.
package opencitations

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/identity"
	"github.com/camrobjones/papernet/internal/papersources"
)

const (
	// DefaultBaseURL is the COCI API base URL.
	DefaultBaseURL = "https://w3id.org/oc/index/coci/api/v1"

	sourceName = "OpenCitations"
)

// Config holds configuration for the OpenCitations client.
type Config struct {
	// BaseURL is the API base URL.
	BaseURL string
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
}

// Client queries the citation index.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	logger     zerolog.Logger
}

var _ papersources.CitationIndex = (*Client)(nil)

// New creates an OpenCitations client.
func New(cfg Config, httpClient *papersources.HTTPClient, logger zerolog.Logger) *Client {
	cfg.applyDefaults()
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "opencitations").Logger(),
	}
}

// Citations returns the edges pointing at doi.
func (c *Client) Citations(ctx context.Context, doi string, opts papersources.FetchOptions) ([]domain.CitationRecord, error) {
	return c.list(ctx, "/citations/", doi, opts)
}

// References returns the edges leaving doi.
func (c *Client) References(ctx context.Context, doi string, opts papersources.FetchOptions) ([]domain.CitationRecord, error) {
	return c.list(ctx, "/references/", doi, opts)
}

func (c *Client) list(ctx context.Context, endpoint, doi string, opts papersources.FetchOptions) ([]domain.CitationRecord, error) {
	var records []domain.CitationRecord
	if err := c.httpClient.GetJSON(ctx, sourceName, c.config.BaseURL+endpoint+doi, nil, opts, &records); err != nil {
		return nil, fmt.Errorf("%s %s: %w", strings.Trim(endpoint, "/"), doi, err)
	}

	out := records[:0]
	for _, r := range records {
		citing, cited := NormalizeID(r.Citing), NormalizeID(r.Cited)
		if citing == "" || cited == "" {
			c.logger.Warn().
				Str("citing", r.Citing).
				Str("cited", r.Cited).
				Msg("dropping citation record without usable DOIs")
			continue
		}
		r.Citing, r.Cited = citing, cited
		out = append(out, r)
	}
	return out, nil
}

// NormalizeID extracts a DOI from a citation index identifier. The index
// may return bare DOIs, "coci => 10.x/y" values, or space separated
// identifier lists such as "omid:br/06101 doi:10.x/y". It returns "" when no
// DOI is present.
func NormalizeID(raw string) string {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "coci =>"))
	for _, tok := range strings.Fields(raw) {
		tok = strings.TrimPrefix(tok, "doi:")
		if doi, err := identity.CleanDOI(tok); err == nil {
			return doi
		}
	}
	return ""
}
