package domain

// Work is a bibliographic metadata record in the Crossref works format. It
// is the payload consumed by ingestion regardless of which client produced it.
type Work struct {
	DOI                 string          `json:"DOI"`
	URL                 string          `json:"URL,omitempty"`
	Title               []string        `json:"title,omitempty"`
	ShortTitle          []string        `json:"short-title,omitempty"`
	Subtitle            []string        `json:"subtitle,omitempty"`
	Type                string          `json:"type,omitempty"`
	Abstract            string          `json:"abstract,omitempty"`
	Publisher           string          `json:"publisher,omitempty"`
	ReferencesCount     *int            `json:"references-count,omitempty"`
	IsReferencedByCount *int            `json:"is-referenced-by-count,omitempty"`
	Author              []WorkAuthor    `json:"author,omitempty"`
	ISSN                []string        `json:"ISSN,omitempty"`
	ISSNType            []ISSNType      `json:"issn-type,omitempty"`
	ContainerTitle      []string        `json:"container-title,omitempty"`
	ShortContainerTitle []string        `json:"short-container-title,omitempty"`
	Volume              string          `json:"volume,omitempty"`
	Issue               string          `json:"issue,omitempty"`
	Page                string          `json:"page,omitempty"`
	Source              string          `json:"source,omitempty"`
	Subject             []string        `json:"subject,omitempty"`
	PublishedPrint      *DateObject     `json:"published-print,omitempty"`
	PublishedOnline     *DateObject     `json:"published-online,omitempty"`
	Issued              *DateObject     `json:"issued,omitempty"`
	Created             *DateObject     `json:"created,omitempty"`
	JournalIssue        *JournalIssue   `json:"journal-issue,omitempty"`
	Reference           []WorkReference `json:"reference,omitempty"`
}

// WorkAuthor is a contributor entry of a work.
type WorkAuthor struct {
	Given       string            `json:"given,omitempty"`
	Family      string            `json:"family,omitempty"`
	Name        string            `json:"name,omitempty"`
	Sequence    string            `json:"sequence,omitempty"`
	ORCID       string            `json:"ORCID,omitempty"`
	Affiliation []WorkAffiliation `json:"affiliation,omitempty"`
}

// WorkAffiliation is a free-text affiliation attached to an author entry.
type WorkAffiliation struct {
	Name string `json:"name,omitempty"`
}

// ISSNType tags an ISSN value as print or electronic.
type ISSNType struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// DateObject is a partial date as published by Crossref. Any of the three
// representations may be absent.
type DateObject struct {
	DateParts [][]*int `json:"date-parts,omitempty"`
	DateTime  string   `json:"date-time,omitempty"`
	Timestamp *float64 `json:"timestamp,omitempty"`
}

// JournalIssue holds issue level dates for works lacking their own.
type JournalIssue struct {
	Issue           string      `json:"issue,omitempty"`
	PublishedPrint  *DateObject `json:"published-print,omitempty"`
	PublishedOnline *DateObject `json:"published-online,omitempty"`
}

// WorkReference is one entry of a work's reference list.
type WorkReference struct {
	Key          string `json:"key,omitempty"`
	DOI          string `json:"DOI,omitempty"`
	Author       string `json:"author,omitempty"`
	JournalTitle string `json:"journal-title,omitempty"`
	VolumeTitle  string `json:"volume-title,omitempty"`
	ArticleTitle string `json:"article-title,omitempty"`
	Year         string `json:"year,omitempty"`
	Unstructured string `json:"unstructured,omitempty"`
}

// JournalRecord is a journal description as published by Crossref.
type JournalRecord struct {
	Title     string           `json:"title"`
	Publisher string           `json:"publisher,omitempty"`
	ISSN      []string         `json:"ISSN,omitempty"`
	ISSNType  []ISSNType       `json:"issn-type,omitempty"`
	Counts    JournalCounts    `json:"counts"`
	Subjects  []JournalSubject `json:"subjects,omitempty"`
}

// JournalCounts holds the DOI totals of a journal record.
type JournalCounts struct {
	TotalDOIs   int `json:"total-dois"`
	CurrentDOIs int `json:"current-dois"`
}

// JournalSubject is an ASJC classification of a journal.
type JournalSubject struct {
	ASJC int    `json:"ASJC"`
	Name string `json:"name"`
}
