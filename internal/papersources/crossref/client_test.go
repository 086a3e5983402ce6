package crossref

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camrobjones/papernet/internal/domain"
	"github.com/camrobjones/papernet/internal/papersources"
)

// newTestClient creates a client configured for testing with the given server URL.
func newTestClient(serverURL string) *Client {
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		BurstSize: 1000,
		UserAgent: "TestClient/1.0",
	})
	return New(Config{BaseURL: serverURL, Mailto: "test@example.com"}, httpClient, zerolog.Nop())
}

func intPtr(v int) *int { return &v }

// sampleWork returns a representative Crossref work record.
func sampleWork() *domain.Work {
	return &domain.Work{
		DOI:                 "10.1038/nature12373",
		Title:               []string{"Nanometre-scale thermometry in a living cell"},
		Type:                "journal-article",
		ReferencesCount:     intPtr(2),
		IsReferencedByCount: intPtr(1500),
		ISSN:                []string{"0028-0836", "1476-4687"},
		ISSNType: []domain.ISSNType{
			{Value: "0028-0836", Type: "print"},
			{Value: "1476-4687", Type: "electronic"},
		},
		ContainerTitle: []string{"Nature"},
		Author: []domain.WorkAuthor{
			{Given: "G.", Family: "Kucsko", Sequence: "first"},
		},
		Reference: []domain.WorkReference{
			{Key: "ref1", DOI: "10.1103/PhysRevLett.1"},
			{Key: "ref2", Unstructured: "A book"},
		},
	}
}

func writeEnvelope(t *testing.T, w http.ResponseWriter, messageType string, message any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
		"status":          "ok",
		"message-type":    messageType,
		"message-version": "1.0.0",
		"message":         message,
	}))
}

func TestClient_GetWork(t *testing.T) {
	t.Run("decodes work", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/works/10.1038/nature12373", r.URL.Path)
			assert.Equal(t, "test@example.com", r.URL.Query().Get("mailto"))
			writeEnvelope(t, w, "work", sampleWork())
		}))
		defer server.Close()

		work, err := newTestClient(server.URL).GetWork(context.Background(), "10.1038/nature12373", papersources.FetchOptions{})
		require.NoError(t, err)
		assert.Equal(t, "10.1038/nature12373", work.DOI)
		assert.Equal(t, 1500, *work.IsReferencedByCount)
		assert.Len(t, work.Reference, 2)
		assert.Equal(t, "first", work.Author[0].Sequence)
	})

	t.Run("not found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Resource not found.", http.StatusNotFound)
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).GetWork(context.Background(), "10.1/missing", papersources.FetchOptions{})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("non ok status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"failed","message":null}`))
		}))
		defer server.Close()

		_, err := newTestClient(server.URL).GetWork(context.Background(), "10.1/x", papersources.FetchOptions{})
		assert.True(t, errors.Is(err, domain.ErrUpstreamData))
	})

	t.Run("second call served from cache", func(t *testing.T) {
		hits := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits++
			writeEnvelope(t, w, "work", sampleWork())
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		_, err := client.GetWork(context.Background(), "10.1038/nature12373", papersources.FetchOptions{})
		require.NoError(t, err)
		_, err = client.GetWork(context.Background(), "10.1038/nature12373", papersources.FetchOptions{})
		require.NoError(t, err)
		assert.Equal(t, 1, hits)
	})
}

func TestClient_GetJournal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/journals/0028-0836", r.URL.Path)
		writeEnvelope(t, w, "journal", domain.JournalRecord{
			Title:     "Nature",
			Publisher: "Springer Science and Business Media LLC",
			ISSN:      []string{"0028-0836", "1476-4687"},
			Counts:    domain.JournalCounts{TotalDOIs: 420000},
			Subjects:  []domain.JournalSubject{{ASJC: 1000, Name: "Multidisciplinary"}},
		})
	}))
	defer server.Close()

	record, err := newTestClient(server.URL).GetJournal(context.Background(), "0028-0836", papersources.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Nature", record.Title)
	assert.Equal(t, 420000, record.Counts.TotalDOIs)
	require.Len(t, record.Subjects, 1)
	assert.Equal(t, 1000, record.Subjects[0].ASJC)
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "citation networks", r.URL.Query().Get("query"))
		assert.Equal(t, "5", r.URL.Query().Get("rows"))
		writeEnvelope(t, w, "work-list", WorkList{TotalResults: 77, Items: []*domain.Work{sampleWork()}})
	}))
	defer server.Close()

	works, total, err := newTestClient(server.URL).Search(context.Background(), "citation networks", 5)
	require.NoError(t, err)
	assert.Equal(t, 77, total)
	assert.Len(t, works, 1)

	_, _, err = newTestClient(server.URL).Search(context.Background(), "  ", 5)
	var vErr *domain.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestClient_SearchAuthor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Cameron Jones", r.URL.Query().Get("query.author"))
		assert.Equal(t, "200", r.URL.Query().Get("rows"))
		writeEnvelope(t, w, "work-list", WorkList{
			TotalResults: 3,
			Items: []*domain.Work{
				{DOI: "10.1/a", Author: []domain.WorkAuthor{{Given: "Cameron R.", Family: "Jones"}}},
				{DOI: "10.1/b", Author: []domain.WorkAuthor{{Given: "Alice", Family: "Jones"}}},
				{DOI: "10.1/c", Author: []domain.WorkAuthor{{Family: "Jones"}}},
			},
		})
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).SearchAuthor(context.Background(), domain.WorkAuthor{Given: "Cameron", Family: "Jones"}, 0)
	require.NoError(t, err)
	require.Len(t, result.Works, 1)
	assert.Equal(t, "10.1/a", result.Works[0].DOI)
	assert.Equal(t, 2, result.Rejected)

	_, err = newTestClient(server.URL).SearchAuthor(context.Background(), domain.WorkAuthor{}, 0)
	var vErr *domain.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestClient_ListWorks(t *testing.T) {
	const total = 5
	var offsets []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "issn:0028-0836", q.Get("filter"))
		assert.Equal(t, "issued", q.Get("sort"))
		assert.Equal(t, "desc", q.Get("order"))

		offset, _ := strconv.Atoi(q.Get("offset"))
		rows, _ := strconv.Atoi(q.Get("rows"))
		offsets = append(offsets, offset)

		var items []*domain.Work
		for i := offset; i < total && i < offset+rows; i++ {
			items = append(items, &domain.Work{DOI: "10.1/w" + strconv.Itoa(i)})
		}
		writeEnvelope(t, w, "work-list", WorkList{TotalResults: total, ItemsPerPage: rows, Items: items})
	}))
	defer server.Close()

	t.Run("pages until total", func(t *testing.T) {
		offsets = nil
		var dois []string
		n, err := newTestClient(server.URL).ListWorks(context.Background(),
			papersources.ListParams{ISSN: "0028-0836", Rows: 2},
			func(w *domain.Work) error {
				dois = append(dois, w.DOI)
				return nil
			})
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, []string{"10.1/w0", "10.1/w1", "10.1/w2", "10.1/w3", "10.1/w4"}, dois)
		assert.Equal(t, []int{0, 2, 4}, offsets)
	})

	t.Run("respects limit", func(t *testing.T) {
		n, err := newTestClient(server.URL).ListWorks(context.Background(),
			papersources.ListParams{ISSN: "0028-0836", Rows: 2, Limit: 3},
			func(*domain.Work) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("stops on callback error", func(t *testing.T) {
		boom := errors.New("boom")
		n, err := newTestClient(server.URL).ListWorks(context.Background(),
			papersources.ListParams{ISSN: "0028-0836", Rows: 2},
			func(*domain.Work) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, n)
	})
}

func TestBuildFilter(t *testing.T) {
	from := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	until := time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "", BuildFilter(papersources.ListParams{}))
	assert.Equal(t,
		"from-pub-date:2020-01-02,until-pub-date:2021-12-31,has-abstract:true,issn:1234-5678",
		BuildFilter(papersources.ListParams{FromPubDate: &from, UntilPubDate: &until, HasAbstract: true, ISSN: "1234-5678"}),
	)
}
