package identity

import (
	"regexp"
	"strings"

	"github.com/camrobjones/papernet/internal/domain"
)

// doiPattern follows the Crossref recommendation for matching modern DOIs.
var doiPattern = regexp.MustCompile(`(?i)10.\d{4,9}/[-._;()/:A-Z0-9]+`)

// CleanDOI extracts the canonical, lower-cased DOI from raw. Prefixes such
// as "https://doi.org/" or "doi:" are discarded. The result is a fixed point:
// CleanDOI(CleanDOI(x)) == CleanDOI(x).
func CleanDOI(raw string) (string, error) {
	match := doiPattern.FindString(strings.ToLower(raw))
	if match == "" {
		return "", domain.NewInvalidDOIError(raw)
	}
	return match, nil
}

// IsDOI reports whether raw contains a DOI.
func IsDOI(raw string) bool {
	return doiPattern.MatchString(raw)
}
