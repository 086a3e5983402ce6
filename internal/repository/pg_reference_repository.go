package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camrobjones/papernet/internal/domain"
)

var _ ReferenceRepository = (*PgReferenceRepository)(nil)

const referenceColumns = `id, citing_doi, cited_doi, citing_paper_id, cited_paper_id, oci,
	author, journal, title, publication_year, cite_key, created_at`

// PgReferenceRepository is a PostgreSQL implementation of ReferenceRepository.
type PgReferenceRepository struct {
	db DBTX
}

// NewPgReferenceRepository creates a new PostgreSQL reference repository.
func NewPgReferenceRepository(db DBTX) *PgReferenceRepository {
	return &PgReferenceRepository{db: db}
}

// GetOrCreate returns the edge for ref's DOI pair, inserting ref when missing.
func (r *PgReferenceRepository) GetOrCreate(ctx context.Context, ref *domain.Reference) (*domain.Reference, bool, error) {
	if ref == nil {
		return nil, false, domain.NewValidationError("reference", "reference cannot be nil")
	}
	if ref.CitingDOI == "" || ref.CitedDOI == "" {
		return nil, false, domain.NewValidationError("doi", "citing and cited doi are required")
	}
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	key := ref.CitingDOI + " -> " + ref.CitedDOI

	query := `
		INSERT INTO "references" (
			id, citing_doi, cited_doi, citing_paper_id, cited_paper_id, oci,
			author, journal, title, publication_year, cite_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (citing_doi, cited_doi) DO NOTHING
		RETURNING ` + referenceColumns

	edge, err := scanReference(r.db.QueryRow(ctx, query,
		ref.ID, ref.CitingDOI, ref.CitedDOI, ref.CitingPaperID, ref.CitedPaperID, ref.OCI,
		ref.Author, ref.Journal, ref.Title, ref.Year, ref.Key,
	))
	if err == nil {
		return edge, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrapError(err, "create", "reference", key)
	}

	query = `SELECT ` + referenceColumns + ` FROM "references" WHERE citing_doi = $1 AND cited_doi = $2`
	edge, err = scanReference(r.db.QueryRow(ctx, query, ref.CitingDOI, ref.CitedDOI))
	if err != nil {
		return nil, false, wrapError(err, "get", "reference", key)
	}
	return edge, false, nil
}

// ListByCiting returns the outgoing edges of a DOI.
func (r *PgReferenceRepository) ListByCiting(ctx context.Context, citingDOI string) ([]*domain.Reference, error) {
	query := `SELECT ` + referenceColumns + ` FROM "references" WHERE citing_doi = $1 ORDER BY created_at, cited_doi`
	return r.list(ctx, query, citingDOI)
}

// ListUnresolvedByCiting returns outgoing edges whose cited endpoint has no paper.
func (r *PgReferenceRepository) ListUnresolvedByCiting(ctx context.Context, citingDOI string) ([]*domain.Reference, error) {
	query := `
		SELECT ` + referenceColumns + `
		FROM "references"
		WHERE citing_doi = $1 AND cited_paper_id IS NULL
		ORDER BY created_at, cited_doi`
	return r.list(ctx, query, citingDOI)
}

func (r *PgReferenceRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Reference, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}
	defer rows.Close()

	var refs []*domain.Reference
	for rows.Next() {
		ref, err := scanReference(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reference: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate references: %w", err)
	}
	return refs, nil
}

// LinkPaper fills the paper handle of every dangling edge naming paper's DOI.
func (r *PgReferenceRepository) LinkPaper(ctx context.Context, paper *domain.Paper) (int64, error) {
	citing, err := r.db.Exec(ctx,
		`UPDATE "references" SET citing_paper_id = $1 WHERE citing_doi = $2 AND citing_paper_id IS NULL`,
		paper.ID, paper.DOI,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to link citing edges: %w", err)
	}
	cited, err := r.db.Exec(ctx,
		`UPDATE "references" SET cited_paper_id = $1 WHERE cited_doi = $2 AND cited_paper_id IS NULL`,
		paper.ID, paper.DOI,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to link cited edges: %w", err)
	}
	return citing.RowsAffected() + cited.RowsAffected(), nil
}

// ListCitedPapers returns, once per edge, the papers cited by any of citingIDs.
func (r *PgReferenceRepository) ListCitedPapers(ctx context.Context, citingIDs []uuid.UUID) ([]domain.PaperRef, error) {
	if len(citingIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT p.id, p.doi, p.title
		FROM "references" r
		JOIN papers p ON p.id = r.cited_paper_id
		WHERE r.citing_paper_id = ANY($1)`
	return r.listRefs(ctx, query, citingIDs)
}

// ListCitingPapers returns, once per edge, the papers citing any of citedIDs.
func (r *PgReferenceRepository) ListCitingPapers(ctx context.Context, citedIDs []uuid.UUID) ([]domain.PaperRef, error) {
	if len(citedIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT p.id, p.doi, p.title
		FROM "references" r
		JOIN papers p ON p.id = r.citing_paper_id
		WHERE r.cited_paper_id = ANY($1)`
	return r.listRefs(ctx, query, citedIDs)
}

func (r *PgReferenceRepository) listRefs(ctx context.Context, query string, ids []uuid.UUID) ([]domain.PaperRef, error) {
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked papers: %w", err)
	}
	defer rows.Close()

	var refs []domain.PaperRef
	for rows.Next() {
		var ref domain.PaperRef
		if err := rows.Scan(&ref.ID, &ref.DOI, &ref.Title); err != nil {
			return nil, fmt.Errorf("failed to scan linked paper: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate linked papers: %w", err)
	}
	return refs, nil
}

// MostCitedMissing ranks cited DOIs without a paper by citation count.
func (r *PgReferenceRepository) MostCitedMissing(ctx context.Context, citingDOIs []string, n int) ([]domain.MissingDOI, error) {
	n = clampLimit(n)

	var (
		rows pgx.Rows
		err  error
	)
	if len(citingDOIs) == 0 {
		rows, err = r.db.Query(ctx, `
			SELECT cited_doi, count(*) AS citations
			FROM "references"
			WHERE cited_paper_id IS NULL
			GROUP BY cited_doi
			ORDER BY citations DESC, cited_doi
			LIMIT $1`, n)
	} else {
		rows, err = r.db.Query(ctx, `
			SELECT cited_doi, count(*) AS citations
			FROM "references"
			WHERE cited_paper_id IS NULL AND citing_doi = ANY($1)
			GROUP BY cited_doi
			ORDER BY citations DESC, cited_doi
			LIMIT $2`, citingDOIs, n)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rank missing references: %w", err)
	}
	defer rows.Close()

	var missing []domain.MissingDOI
	for rows.Next() {
		var m domain.MissingDOI
		var count int64
		if err := rows.Scan(&m.DOI, &count); err != nil {
			return nil, fmt.Errorf("failed to scan missing reference: %w", err)
		}
		m.Citations = int(count)
		missing = append(missing, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate missing references: %w", err)
	}
	return missing, nil
}

func scanReference(row pgx.Row) (*domain.Reference, error) {
	var ref domain.Reference
	err := row.Scan(
		&ref.ID, &ref.CitingDOI, &ref.CitedDOI, &ref.CitingPaperID, &ref.CitedPaperID, &ref.OCI,
		&ref.Author, &ref.Journal, &ref.Title, &ref.Year, &ref.Key, &ref.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}
