package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camrobjones/papernet/internal/domain"
)

var paperColumnNames = []string{
	"id", "doi", "title", "short_title", "subtitle", "article_type", "abstract", "keywords", "url",
	"references_count", "is_referenced_by_count", "retrieved_at", "updated_at", "created_at",
}

func newTestPaper() *domain.Paper {
	now := time.Now().UTC()
	return &domain.Paper{
		ID:                  uuid.New(),
		DOI:                 "10.1234/test.paper",
		Title:               "Test Paper Title",
		ShortTitle:          "Test Paper",
		ArticleType:         "journal-article",
		ReferencesCount:     25,
		IsReferencedByCount: 10,
		RetrievedAt:         &now,
		UpdatedAt:           &now,
		CreatedAt:           now,
	}
}

func paperRows(papers ...*domain.Paper) *pgxmock.Rows {
	rows := pgxmock.NewRows(paperColumnNames)
	for _, p := range papers {
		rows.AddRow(
			p.ID, p.DOI, p.Title, p.ShortTitle, p.Subtitle, p.ArticleType, p.Abstract, p.Keywords, p.URL,
			p.ReferencesCount, p.IsReferencedByCount, p.RetrievedAt, p.UpdatedAt, p.CreatedAt,
		)
	}
	return rows
}

func TestNewPgPaperRepository(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewPgPaperRepository(mock)
	assert.NotNil(t, repo)
	assert.NotNil(t, repo.db)
}

func TestPgPaperRepository_GetByDOI(t *testing.T) {
	ctx := context.Background()

	t.Run("returns paper when found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		paper := newTestPaper()

		mock.ExpectQuery("SELECT .* FROM papers WHERE doi = \\$1").
			WithArgs(paper.DOI).
			WillReturnRows(paperRows(paper))

		result, err := repo.GetByDOI(ctx, paper.DOI)
		require.NoError(t, err)
		assert.Equal(t, paper.ID, result.ID)
		assert.Equal(t, paper.Title, result.Title)
		assert.True(t, result.IsRetrieved())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		mock.ExpectQuery("SELECT .* FROM papers WHERE doi = \\$1").
			WithArgs("10.1234/missing").
			WillReturnError(pgx.ErrNoRows)

		result, err := repo.GetByDOI(ctx, "10.1234/missing")
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects empty doi", func(t *testing.T) {
		repo := NewPgPaperRepository(nil)
		_, err := repo.GetByDOI(ctx, "")
		var validationErr *domain.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "doi", validationErr.Field)
	})
}

func TestPgPaperRepository_GetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("inserts a stub", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		stub := &domain.Paper{ID: uuid.New(), DOI: "10.1234/new", CreatedAt: time.Now()}

		mock.ExpectQuery("INSERT INTO papers").
			WithArgs(pgxmock.AnyArg(), stub.DOI).
			WillReturnRows(paperRows(stub))

		paper, created, err := repo.GetOrCreate(ctx, stub.DOI)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, stub.ID, paper.ID)
		assert.False(t, paper.IsRetrieved())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns existing paper on conflict", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		existing := newTestPaper()

		mock.ExpectQuery("INSERT INTO papers").
			WithArgs(pgxmock.AnyArg(), existing.DOI).
			WillReturnRows(pgxmock.NewRows(paperColumnNames))
		mock.ExpectQuery("SELECT .* FROM papers WHERE doi = \\$1").
			WithArgs(existing.DOI).
			WillReturnRows(paperRows(existing))

		paper, created, err := repo.GetOrCreate(ctx, existing.DOI)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing.ID, paper.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("propagates insert failure", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		mock.ExpectQuery("INSERT INTO papers").
			WithArgs(pgxmock.AnyArg(), "10.1234/x").
			WillReturnError(errors.New("connection reset"))

		_, _, err = repo.GetOrCreate(ctx, "10.1234/x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create paper")
	})
}

func TestPgPaperRepository_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("writes every field", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		paper := newTestPaper()
		update := domain.PaperUpdate{
			Title:               paper.Title,
			ShortTitle:          paper.ShortTitle,
			ArticleType:         paper.ArticleType,
			ReferencesCount:     paper.ReferencesCount,
			IsReferencedByCount: paper.IsReferencedByCount,
			RetrievedAt:         *paper.RetrievedAt,
		}

		mock.ExpectQuery("UPDATE papers SET").
			WithArgs(paper.ID, update.Title, update.ShortTitle, update.Subtitle, update.ArticleType,
				update.Abstract, update.URL, update.ReferencesCount, update.IsReferencedByCount, update.RetrievedAt).
			WillReturnRows(paperRows(paper))

		result, err := repo.Update(ctx, paper.ID, update)
		require.NoError(t, err)
		assert.Equal(t, paper.Title, result.Title)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		id := uuid.New()
		mock.ExpectQuery("UPDATE papers SET").
			WithArgs(id, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(pgx.ErrNoRows)

		_, err = repo.Update(ctx, id, domain.PaperUpdate{})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestPgPaperRepository_ListByDOIs(t *testing.T) {
	ctx := context.Background()

	t.Run("empty input skips the query", func(t *testing.T) {
		repo := NewPgPaperRepository(nil)
		papers, err := repo.ListByDOIs(ctx, nil)
		require.NoError(t, err)
		assert.Nil(t, papers)
	})

	t.Run("returns found papers", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgPaperRepository(mock)
		a, b := newTestPaper(), newTestPaper()
		b.DOI = "10.1234/other"
		dois := []string{a.DOI, b.DOI, "10.1234/absent"}

		mock.ExpectQuery("SELECT .* FROM papers WHERE doi = ANY\\(\\$1\\)").
			WithArgs(dois).
			WillReturnRows(paperRows(a, b))

		papers, err := repo.ListByDOIs(ctx, dois)
		require.NoError(t, err)
		assert.Len(t, papers, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"no rows", pgx.ErrNoRows, domain.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, domain.ErrAlreadyExists},
		{"foreign key violation", &pgconn.PgError{Code: "23503"}, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(mapError(tt.err, "paper", "x"), tt.target))
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		err := errors.New("boom")
		assert.Equal(t, err, mapError(err, "paper", "x"))
		assert.Nil(t, mapError(nil, "paper", "x"))
	})
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, defaultListLimit, clampLimit(0))
	assert.Equal(t, defaultListLimit, clampLimit(-3))
	assert.Equal(t, 7, clampLimit(7))
	assert.Equal(t, maxListLimit, clampLimit(maxListLimit+1))
}
