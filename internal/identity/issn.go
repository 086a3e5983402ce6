package identity

import "github.com/camrobjones/papernet/internal/domain"

const (
	issnTypePrint      = "print"
	issnTypeElectronic = "electronic"
)

// GetISSN extracts the ISSN triple of a work's venue. Entries of
// unrecognized type are ignored and returned so the caller can report them.
// The canonical ISSN is the first listed ISSN, then the electronic one, then
// the print one.
func GetISSN(issns []string, typed []domain.ISSNType) (domain.ISSNTriple, []string) {
	var (
		triple  domain.ISSNTriple
		unknown []string
	)

	for _, it := range typed {
		switch it.Type {
		case issnTypePrint:
			triple.Print = it.Value
		case issnTypeElectronic:
			triple.Electronic = it.Value
		default:
			unknown = append(unknown, it.Type)
		}
	}

	switch {
	case len(issns) > 0 && issns[0] != "":
		triple.ISSN = issns[0]
	case triple.Electronic != "":
		triple.ISSN = triple.Electronic
	default:
		triple.ISSN = triple.Print
	}

	return triple, unknown
}

// WorkISSN is GetISSN applied to a work payload.
func WorkISSN(w *domain.Work) (domain.ISSNTriple, []string) {
	return GetISSN(w.ISSN, w.ISSNType)
}

// JournalISSN is GetISSN applied to a journal record.
func JournalISSN(r *domain.JournalRecord) (domain.ISSNTriple, []string) {
	return GetISSN(r.ISSN, r.ISSNType)
}
