package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camrobjones/papernet/internal/domain"
)

var _ PaperRepository = (*PgPaperRepository)(nil)

const paperColumns = `id, doi, title, short_title, subtitle, article_type, abstract, keywords, url,
	references_count, is_referenced_by_count, retrieved_at, updated_at, created_at`

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

// GetByDOI retrieves a paper by canonical DOI.
func (r *PgPaperRepository) GetByDOI(ctx context.Context, doi string) (*domain.Paper, error) {
	if doi == "" {
		return nil, domain.NewValidationError("doi", "doi is required")
	}

	query := `SELECT ` + paperColumns + ` FROM papers WHERE doi = $1`
	paper, err := scanPaper(r.db.QueryRow(ctx, query, doi))
	if err != nil {
		return nil, wrapError(err, "get", "paper", doi)
	}
	return paper, nil
}

// GetByID retrieves a paper by its UUID.
func (r *PgPaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	query := `SELECT ` + paperColumns + ` FROM papers WHERE id = $1`
	paper, err := scanPaper(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapError(err, "get", "paper", id.String())
	}
	return paper, nil
}

// GetOrCreate returns the paper for doi, inserting a stub when none exists.
func (r *PgPaperRepository) GetOrCreate(ctx context.Context, doi string) (*domain.Paper, bool, error) {
	if doi == "" {
		return nil, false, domain.NewValidationError("doi", "doi is required")
	}

	query := `
		INSERT INTO papers (id, doi)
		VALUES ($1, $2)
		ON CONFLICT (doi) DO NOTHING
		RETURNING ` + paperColumns

	paper, err := scanPaper(r.db.QueryRow(ctx, query, uuid.New(), doi))
	if err == nil {
		return paper, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create paper: %w", err)
	}

	paper, err = r.GetByDOI(ctx, doi)
	if err != nil {
		return nil, false, err
	}
	return paper, false, nil
}

// Update overwrites the retrieved metadata of a paper.
func (r *PgPaperRepository) Update(ctx context.Context, id uuid.UUID, u domain.PaperUpdate) (*domain.Paper, error) {
	query := `
		UPDATE papers SET
			title = $2,
			short_title = $3,
			subtitle = $4,
			article_type = $5,
			abstract = $6,
			url = $7,
			references_count = $8,
			is_referenced_by_count = $9,
			retrieved_at = $10,
			updated_at = $10
		WHERE id = $1
		RETURNING ` + paperColumns

	paper, err := scanPaper(r.db.QueryRow(ctx, query,
		id,
		u.Title,
		u.ShortTitle,
		u.Subtitle,
		u.ArticleType,
		u.Abstract,
		u.URL,
		u.ReferencesCount,
		u.IsReferencedByCount,
		u.RetrievedAt,
	))
	if err != nil {
		return nil, wrapError(err, "update", "paper", id.String())
	}
	return paper, nil
}

// ListByDOIs returns the papers among dois that exist.
func (r *PgPaperRepository) ListByDOIs(ctx context.Context, dois []string) ([]*domain.Paper, error) {
	if len(dois) == 0 {
		return nil, nil
	}

	query := `SELECT ` + paperColumns + ` FROM papers WHERE doi = ANY($1)`
	rows, err := r.db.Query(ctx, query, dois)
	if err != nil {
		return nil, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	var papers []*domain.Paper
	for rows.Next() {
		paper, err := scanPaper(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate papers: %w", err)
	}
	return papers, nil
}

// scanPaper scans a single row into a Paper. pgx.Rows satisfies pgx.Row.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var p domain.Paper
	err := row.Scan(
		&p.ID, &p.DOI, &p.Title, &p.ShortTitle, &p.Subtitle, &p.ArticleType, &p.Abstract, &p.Keywords, &p.URL,
		&p.ReferencesCount, &p.IsReferencedByCount, &p.RetrievedAt, &p.UpdatedAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
