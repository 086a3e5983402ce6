package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camrobjones/papernet/internal/domain"
)

var _ PublicationRepository = (*PgPublicationRepository)(nil)

const publicationColumns = `id, paper_id, journal_id, published, published_online, published_print,
	volume, issue, pages, source, created_at`

// PgPublicationRepository is a PostgreSQL implementation of PublicationRepository.
type PgPublicationRepository struct {
	db DBTX
}

// NewPgPublicationRepository creates a new PostgreSQL publication repository.
func NewPgPublicationRepository(db DBTX) *PgPublicationRepository {
	return &PgPublicationRepository{db: db}
}

// GetOrCreate returns the publication of paper in journal.
func (r *PgPublicationRepository) GetOrCreate(ctx context.Context, paperID uuid.UUID, journalID *uuid.UUID) (*domain.Publication, bool, error) {
	// The unique index is on an expression over journal_id, so the conflict
	// target is left implicit.
	query := `
		INSERT INTO publications (id, paper_id, journal_id)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
		RETURNING ` + publicationColumns

	p, err := scanPublication(r.db.QueryRow(ctx, query, uuid.New(), paperID, journalID))
	if err == nil {
		return p, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrapError(err, "create", "publication", paperID.String())
	}

	query = `
		SELECT ` + publicationColumns + `
		FROM publications
		WHERE paper_id = $1 AND journal_id IS NOT DISTINCT FROM $2`
	p, err = scanPublication(r.db.QueryRow(ctx, query, paperID, journalID))
	if err != nil {
		return nil, false, wrapError(err, "get", "publication", paperID.String())
	}
	return p, false, nil
}

// Update writes venue details to a publication.
func (r *PgPublicationRepository) Update(ctx context.Context, id uuid.UUID, u domain.PublicationUpdate) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE publications SET
			published = $2,
			published_online = $3,
			published_print = $4,
			volume = $5,
			issue = $6,
			pages = $7,
			source = $8
		WHERE id = $1`,
		id, u.Published, u.PublishedOnline, u.PublishedPrint, u.Volume, u.Issue, u.Pages, u.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to update publication: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("publication", id.String())
	}
	return nil
}

// ListByPaper returns the publications of a paper.
func (r *PgPublicationRepository) ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Publication, error) {
	return r.list(ctx, `SELECT `+publicationColumns+` FROM publications WHERE paper_id = $1 ORDER BY created_at`, paperID)
}

// ListByJournal returns the publications in a journal.
func (r *PgPublicationRepository) ListByJournal(ctx context.Context, journalID uuid.UUID) ([]*domain.Publication, error) {
	return r.list(ctx, `SELECT `+publicationColumns+` FROM publications WHERE journal_id = $1 ORDER BY created_at`, journalID)
}

func (r *PgPublicationRepository) list(ctx context.Context, query string, arg uuid.UUID) ([]*domain.Publication, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}
	defer rows.Close()

	var pubs []*domain.Publication
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan publication: %w", err)
		}
		pubs = append(pubs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate publications: %w", err)
	}
	return pubs, nil
}

// Reassign moves a publication to another journal.
func (r *PgPublicationRepository) Reassign(ctx context.Context, id, journalID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE publications SET journal_id = $2 WHERE id = $1`, id, journalID)
	if err != nil {
		return wrapError(err, "reassign", "publication", id.String())
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("publication", id.String())
	}
	return nil
}

// Delete removes a publication.
func (r *PgPublicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM publications WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete publication: %w", err)
	}
	return nil
}

func scanPublication(row pgx.Row) (*domain.Publication, error) {
	var p domain.Publication
	err := row.Scan(
		&p.ID, &p.PaperID, &p.JournalID, &p.Published, &p.PublishedOnline, &p.PublishedPrint,
		&p.Volume, &p.Issue, &p.Pages, &p.Source, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
