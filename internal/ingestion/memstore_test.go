package ingestion

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/papersources"
	"github.com/camrobjones/papernet/internal/repository"
)

// graph is an in-memory implementation of every repository used by the
// coordinator.
type graph struct {
	mu           sync.Mutex
	papers       map[string]*domain.Paper
	authors      map[[2]string]*domain.Author
	authorships  []*domain.Authorship
	institutions map[string]*domain.Institution
	affiliations [][2]uuid.UUID
	journals     []*domain.Journal
	topics       []*domain.Topic
	publications []*domain.Publication
	references   []*domain.Reference

	// createJournalHook runs before a journal insert, to simulate races.
	createJournalHook func()
}

func newGraph() *graph {
	return &graph{
		papers:       make(map[string]*domain.Paper),
		authors:      make(map[[2]string]*domain.Author),
		institutions: make(map[string]*domain.Institution),
	}
}

func (g *graph) store() *repository.Store {
	return &repository.Store{
		Papers:       (*memPapers)(g),
		Authors:      (*memAuthors)(g),
		Journals:     (*memJournals)(g),
		Publications: (*memPublications)(g),
		References:   (*memReferences)(g),
	}
}

func clonePaper(p *domain.Paper) *domain.Paper {
	cp := *p
	return &cp
}

type memPapers graph

func (m *memPapers) GetByDOI(_ context.Context, doi string) (*domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.papers[doi]
	if !ok {
		return nil, domain.NewNotFoundError("paper", doi)
	}
	return clonePaper(p), nil
}

func (m *memPapers) GetByID(_ context.Context, id uuid.UUID) (*domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.papers {
		if p.ID == id {
			return clonePaper(p), nil
		}
	}
	return nil, domain.NewNotFoundError("paper", id.String())
}

func (m *memPapers) GetOrCreate(_ context.Context, doi string) (*domain.Paper, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.papers[doi]; ok {
		return clonePaper(p), false, nil
	}
	p := &domain.Paper{ID: uuid.New(), DOI: doi, CreatedAt: time.Now()}
	m.papers[doi] = p
	return clonePaper(p), true, nil
}

func (m *memPapers) Update(_ context.Context, id uuid.UUID, u domain.PaperUpdate) (*domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.papers {
		if p.ID != id {
			continue
		}
		p.Title, p.ShortTitle, p.Subtitle = u.Title, u.ShortTitle, u.Subtitle
		p.ArticleType, p.Abstract, p.URL = u.ArticleType, u.Abstract, u.URL
		p.ReferencesCount, p.IsReferencedByCount = u.ReferencesCount, u.IsReferencedByCount
		at := u.RetrievedAt
		p.RetrievedAt, p.UpdatedAt = &at, &at
		return clonePaper(p), nil
	}
	return nil, domain.NewNotFoundError("paper", id.String())
}

func (m *memPapers) ListByDOIs(_ context.Context, dois []string) ([]*domain.Paper, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Paper
	for _, doi := range dois {
		if p, ok := m.papers[doi]; ok {
			out = append(out, clonePaper(p))
		}
	}
	return out, nil
}

type memAuthors graph

func (m *memAuthors) GetOrCreate(_ context.Context, given, family string) (*domain.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{given, family}
	if a, ok := m.authors[key]; ok {
		return a, nil
	}
	a := &domain.Author{ID: uuid.New(), Given: given, Family: family}
	m.authors[key] = a
	return a, nil
}

func (m *memAuthors) GetOrCreateAuthorship(_ context.Context, authorID, paperID uuid.UUID, position string) (*domain.Authorship, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.authorships {
		if s.AuthorID == authorID && s.PaperID == paperID {
			return s, false, nil
		}
	}
	s := &domain.Authorship{ID: uuid.New(), AuthorID: authorID, PaperID: paperID, Position: position}
	m.authorships = append(m.authorships, s)
	return s, true, nil
}

func (m *memAuthors) GetOrCreateInstitution(_ context.Context, raw string) (*domain.Institution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.institutions[raw]; ok {
		return i, nil
	}
	i := &domain.Institution{ID: uuid.New(), Raw: raw}
	m.institutions[raw] = i
	return i, nil
}

func (m *memAuthors) AddAffiliation(_ context.Context, authorshipID, institutionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	pair := [2]uuid.UUID{authorshipID, institutionID}
	if !slices.Contains(m.affiliations, pair) {
		m.affiliations = append(m.affiliations, pair)
	}
	return nil
}

func (m *memAuthors) ListByPaper(_ context.Context, paperID uuid.UUID) ([]*domain.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Author
	for _, s := range m.authorships {
		if s.PaperID != paperID {
			continue
		}
		for _, a := range m.authors {
			if a.ID == s.AuthorID {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

type memJournals graph

func (m *memJournals) GetByISSN(_ context.Context, issn string) (*domain.Journal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.journals {
		if j.ISSN == issn {
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("journal", issn)
}

func (m *memJournals) FindByAnyISSN(_ context.Context, values []string) ([]*domain.Journal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Journal
	for _, j := range m.journals {
		if slices.Contains(values, j.ISSN) ||
			(j.PrintISSN != "" && slices.Contains(values, j.PrintISSN)) ||
			(j.ElectronicISSN != "" && slices.Contains(values, j.ElectronicISSN)) {
			cp := *j
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memJournals) Create(_ context.Context, j *domain.Journal) (*domain.Journal, error) {
	if m.createJournalHook != nil {
		m.createJournalHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.journals {
		if existing.ISSN == j.ISSN {
			return nil, domain.NewAlreadyExistsError("journal", j.ISSN)
		}
	}
	cp := *j
	cp.ID = uuid.New()
	m.journals = append(m.journals, &cp)
	out := cp
	return &out, nil
}

func (m *memJournals) SetISSNs(_ context.Context, id uuid.UUID, print, electronic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.journals {
		if j.ID == id {
			j.PrintISSN, j.ElectronicISSN = print, electronic
			return nil
		}
	}
	return domain.NewNotFoundError("journal", id.String())
}

func (m *memJournals) Update(_ context.Context, id uuid.UUID, u domain.JournalUpdate) (*domain.Journal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.journals {
		if j.ID == id {
			j.Title, j.Publisher, j.TotalDOIs = u.Title, u.Publisher, u.TotalDOIs
			at := u.LastRetrieved
			j.LastRetrieved = &at
			cp := *j
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("journal", id.String())
}

func (m *memJournals) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, j := range m.journals {
		if j.ID == id {
			m.journals = slices.Delete(m.journals, i, i+1)
			return nil
		}
	}
	return domain.NewNotFoundError("journal", id.String())
}

func (m *memJournals) UpsertTopic(_ context.Context, t *domain.Topic) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.topics {
		if existing.Code == t.Code && existing.JournalID == t.JournalID && existing.TopicType == t.TopicType {
			return nil
		}
	}
	cp := *t
	cp.ID = uuid.New()
	m.topics = append(m.topics, &cp)
	return nil
}

func (m *memJournals) ListTopics(_ context.Context, journalID uuid.UUID) ([]*domain.Topic, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Topic
	for _, t := range m.topics {
		if t.JournalID == journalID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memPublications graph

func sameJournal(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (m *memPublications) GetOrCreate(_ context.Context, paperID uuid.UUID, journalID *uuid.UUID) (*domain.Publication, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.publications {
		if p.PaperID == paperID && sameJournal(p.JournalID, journalID) {
			return p, false, nil
		}
	}
	p := &domain.Publication{ID: uuid.New(), PaperID: paperID}
	if journalID != nil {
		id := *journalID
		p.JournalID = &id
	}
	m.publications = append(m.publications, p)
	return p, true, nil
}

func (m *memPublications) Update(_ context.Context, id uuid.UUID, u domain.PublicationUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.publications {
		if p.ID == id {
			p.Published, p.PublishedOnline, p.PublishedPrint = u.Published, u.PublishedOnline, u.PublishedPrint
			p.Volume, p.Issue, p.Pages, p.Source = u.Volume, u.Issue, u.Pages, u.Source
			return nil
		}
	}
	return domain.NewNotFoundError("publication", id.String())
}

func (m *memPublications) ListByPaper(_ context.Context, paperID uuid.UUID) ([]*domain.Publication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Publication
	for _, p := range m.publications {
		if p.PaperID == paperID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPublications) ListByJournal(_ context.Context, journalID uuid.UUID) ([]*domain.Publication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Publication
	for _, p := range m.publications {
		if p.JournalID != nil && *p.JournalID == journalID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPublications) Reassign(_ context.Context, id, journalID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.publications {
		if p.ID == id {
			jid := journalID
			p.JournalID = &jid
			return nil
		}
	}
	return domain.NewNotFoundError("publication", id.String())
}

func (m *memPublications) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publications = slices.DeleteFunc(m.publications, func(p *domain.Publication) bool { return p.ID == id })
	return nil
}

type memReferences graph

func (m *memReferences) GetOrCreate(_ context.Context, ref *domain.Reference) (*domain.Reference, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.references {
		if r.CitingDOI == ref.CitingDOI && r.CitedDOI == ref.CitedDOI {
			return r, false, nil
		}
	}
	cp := *ref
	cp.ID = uuid.New()
	m.references = append(m.references, &cp)
	return &cp, true, nil
}

func (m *memReferences) ListByCiting(_ context.Context, citingDOI string) ([]*domain.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Reference
	for _, r := range m.references {
		if r.CitingDOI == citingDOI {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memReferences) ListUnresolvedByCiting(_ context.Context, citingDOI string) ([]*domain.Reference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Reference
	for _, r := range m.references {
		if r.CitingDOI == citingDOI && r.CitedPaperID == nil {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memReferences) LinkPaper(_ context.Context, paper *domain.Paper) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.references {
		if r.CitingDOI == paper.DOI && r.CitingPaperID == nil {
			id := paper.ID
			r.CitingPaperID = &id
			n++
		}
		if r.CitedDOI == paper.DOI && r.CitedPaperID == nil {
			id := paper.ID
			r.CitedPaperID = &id
			n++
		}
	}
	return n, nil
}

func (m *memReferences) refs(match func(r *domain.Reference) *uuid.UUID) []domain.PaperRef {
	var out []domain.PaperRef
	for _, r := range m.references {
		other := match(r)
		if other == nil {
			continue
		}
		for _, p := range m.papers {
			if p.ID == *other {
				out = append(out, domain.PaperRef{ID: p.ID, DOI: p.DOI, Title: p.Title})
			}
		}
	}
	return out
}

func (m *memReferences) ListCitedPapers(_ context.Context, citingIDs []uuid.UUID) ([]domain.PaperRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs(func(r *domain.Reference) *uuid.UUID {
		if r.CitingPaperID != nil && slices.Contains(citingIDs, *r.CitingPaperID) {
			return r.CitedPaperID
		}
		return nil
	}), nil
}

func (m *memReferences) ListCitingPapers(_ context.Context, citedIDs []uuid.UUID) ([]domain.PaperRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs(func(r *domain.Reference) *uuid.UUID {
		if r.CitedPaperID != nil && slices.Contains(citedIDs, *r.CitedPaperID) {
			return r.CitingPaperID
		}
		return nil
	}), nil
}

func (m *memReferences) MostCitedMissing(_ context.Context, citingDOIs []string, n int) ([]domain.MissingDOI, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, r := range m.references {
		if r.CitedPaperID != nil {
			continue
		}
		if len(citingDOIs) > 0 && !slices.Contains(citingDOIs, r.CitingDOI) {
			continue
		}
		counts[r.CitedDOI]++
	}
	out := make([]domain.MissingDOI, 0, len(counts))
	for doi, c := range counts {
		out = append(out, domain.MissingDOI{DOI: doi, Citations: c})
	}
	slices.SortFunc(out, func(a, b domain.MissingDOI) int {
		if a.Citations != b.Citations {
			return b.Citations - a.Citations
		}
		if a.DOI < b.DOI {
			return -1
		}
		return 1
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// fakeSource serves works and citation records from maps.
type fakeSource struct {
	mu        sync.Mutex
	works     map[string]*domain.Work
	journals  map[string]*domain.JournalRecord
	citations map[string][]domain.CitationRecord
	authorHit *papersources.AuthorSearchResult
	listed    []*domain.Work
	fetched   []string
	workErr   error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		works:     make(map[string]*domain.Work),
		journals:  make(map[string]*domain.JournalRecord),
		citations: make(map[string][]domain.CitationRecord),
	}
}

func (f *fakeSource) GetWork(_ context.Context, doi string, _ papersources.FetchOptions) (*domain.Work, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, doi)
	if f.workErr != nil {
		return nil, f.workErr
	}
	w, ok := f.works[doi]
	if !ok {
		return nil, domain.NewNotFoundError("work", doi)
	}
	return w, nil
}

func (f *fakeSource) GetJournal(_ context.Context, issn string, _ papersources.FetchOptions) (*domain.JournalRecord, error) {
	r, ok := f.journals[issn]
	if !ok {
		return nil, domain.NewNotFoundError("journal", issn)
	}
	return r, nil
}

func (f *fakeSource) SearchAuthor(_ context.Context, _ domain.WorkAuthor, _ int) (*papersources.AuthorSearchResult, error) {
	if f.authorHit == nil {
		return &papersources.AuthorSearchResult{}, nil
	}
	return f.authorHit, nil
}

func (f *fakeSource) ListWorks(_ context.Context, params papersources.ListParams, fn func(*domain.Work) error) (int, error) {
	n := 0
	for _, w := range f.listed {
		if params.Limit > 0 && n >= params.Limit {
			break
		}
		if err := fn(w); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (f *fakeSource) Citations(_ context.Context, doi string, _ papersources.FetchOptions) ([]domain.CitationRecord, error) {
	return f.citations[doi], nil
}

func (f *fakeSource) References(_ context.Context, _ string, _ papersources.FetchOptions) ([]domain.CitationRecord, error) {
	return nil, nil
}
