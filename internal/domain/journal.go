package domain

import (
	"time"

	"github.com/google/uuid"
)

// Journal is a venue identified by up to three ISSN values.
type Journal struct {
	ID             uuid.UUID  `json:"id"`
	ISSN           string     `json:"issn"`
	PrintISSN      string     `json:"print_issn,omitempty"`
	ElectronicISSN string     `json:"electronic_issn,omitempty"`
	Title          string     `json:"title,omitempty"`
	Abbreviation   string     `json:"abbreviation,omitempty"`
	Publisher      string     `json:"publisher,omitempty"`
	JournalType    string     `json:"journal_type,omitempty"`
	TotalDOIs      int        `json:"total_dois"`
	LastRetrieved  *time.Time `json:"last_retrieved,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ISSNs returns the non-empty ISSN values held by the journal.
func (j *Journal) ISSNs() []string {
	out := make([]string, 0, 3)
	for _, v := range []string{j.ISSN, j.PrintISSN, j.ElectronicISSN} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// JournalUpdate carries the details written on a journal refresh.
type JournalUpdate struct {
	Title         string
	Publisher     string
	TotalDOIs     int
	LastRetrieved time.Time
}

// ISSNTriple is the canonical, print and electronic ISSN of a work's venue.
type ISSNTriple struct {
	ISSN       string
	Print      string
	Electronic string
}

// IsEmpty reports whether no ISSN is known.
func (t ISSNTriple) IsEmpty() bool {
	return t.ISSN == "" && t.Print == "" && t.Electronic == ""
}

// Values returns the non-empty values of the triple.
func (t ISSNTriple) Values() []string {
	out := make([]string, 0, 3)
	for _, v := range []string{t.ISSN, t.Print, t.Electronic} {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Publication places a paper in a journal.
type Publication struct {
	ID              uuid.UUID  `json:"id"`
	PaperID         uuid.UUID  `json:"paper_id"`
	JournalID       *uuid.UUID `json:"journal_id,omitempty"`
	Published       *time.Time `json:"published,omitempty"`
	PublishedOnline *time.Time `json:"published_online,omitempty"`
	PublishedPrint  *time.Time `json:"published_print,omitempty"`
	Volume          string     `json:"volume,omitempty"`
	Issue           string     `json:"issue,omitempty"`
	Pages           string     `json:"pages,omitempty"`
	Source          string     `json:"source,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PublicationUpdate carries the venue details written on retrieval.
type PublicationUpdate struct {
	Published       *time.Time
	PublishedOnline *time.Time
	PublishedPrint  *time.Time
	Volume          string
	Issue           string
	Pages           string
	Source          string
}

// TopicTypeASJC marks topics taken from the All Science Journal Classification.
const TopicTypeASJC = "ASJC"

// Topic is a subject classification attached to a journal.
type Topic struct {
	ID        uuid.UUID `json:"id"`
	JournalID uuid.UUID `json:"journal_id"`
	Code      int       `json:"code"`
	Name      string    `json:"name"`
	TopicType string    `json:"topic_type"`
}
