package workflows

import (
	"sort"

	"github.com/camrobjones/papernet/internal/identity"
)

// NormalizeDOIs cleans every raw DOI and returns the valid ones
// deduplicated and sorted, plus the inputs that could not be cleaned in
// their original order. Workflows iterate the result, so the order must not
// depend on map iteration.
func NormalizeDOIs(raw []string) (valid, invalid []string) {
	seen := make(map[string]struct{}, len(raw))
	valid = make([]string, 0, len(raw))
	for _, r := range raw {
		doi, err := identity.CleanDOI(r)
		if err != nil {
			invalid = append(invalid, r)
			continue
		}
		if _, ok := seen[doi]; ok {
			continue
		}
		seen[doi] = struct{}{}
		valid = append(valid, doi)
	}
	sort.Strings(valid)
	return valid, invalid
}
