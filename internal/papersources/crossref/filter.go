package crossref

import (
	"strings"

	"github.com/camrobjones/papernet/internal/papersources"
)

const filterDateLayout = "2006-01-02"

// BuildFilter renders the Crossref filter expression for params, e.g.
// "from-pub-date:2020-01-01,has-abstract:true,issn:0028-0836".
func BuildFilter(params papersources.ListParams) string {
	var parts []string
	if params.FromPubDate != nil {
		parts = append(parts, "from-pub-date:"+params.FromPubDate.Format(filterDateLayout))
	}
	if params.UntilPubDate != nil {
		parts = append(parts, "until-pub-date:"+params.UntilPubDate.Format(filterDateLayout))
	}
	if params.HasAbstract {
		parts = append(parts, "has-abstract:true")
	}
	if params.ISSN != "" {
		parts = append(parts, "issn:"+params.ISSN)
	}
	return strings.Join(parts, ",")
}
