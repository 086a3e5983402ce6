package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camrobjones/papernet/internal/domain"
)

var _ AuthorRepository = (*PgAuthorRepository)(nil)

// PgAuthorRepository is a PostgreSQL implementation of AuthorRepository.
type PgAuthorRepository struct {
	db DBTX
}

// NewPgAuthorRepository creates a new PostgreSQL author repository.
func NewPgAuthorRepository(db DBTX) *PgAuthorRepository {
	return &PgAuthorRepository{db: db}
}

// GetOrCreate returns the author with the given name pair.
func (r *PgAuthorRepository) GetOrCreate(ctx context.Context, given, family string) (*domain.Author, error) {
	var a domain.Author
	err := r.db.QueryRow(ctx, `
		INSERT INTO authors (id, given, family)
		VALUES ($1, $2, $3)
		ON CONFLICT (given, family) DO NOTHING
		RETURNING id, given, family, created_at`,
		uuid.New(), given, family,
	).Scan(&a.ID, &a.Given, &a.Family, &a.CreatedAt)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create author: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT id, given, family, created_at
		FROM authors
		WHERE given = $1 AND family = $2`,
		given, family,
	).Scan(&a.ID, &a.Given, &a.Family, &a.CreatedAt)
	if err != nil {
		return nil, wrapError(err, "get", "author", given+" "+family)
	}
	return &a, nil
}

// GetOrCreateAuthorship links author to paper.
func (r *PgAuthorRepository) GetOrCreateAuthorship(ctx context.Context, authorID, paperID uuid.UUID, position string) (*domain.Authorship, bool, error) {
	var a domain.Authorship
	err := r.db.QueryRow(ctx, `
		INSERT INTO authorships (id, author_id, paper_id, position)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (author_id, paper_id) DO NOTHING
		RETURNING id, author_id, paper_id, position, created_at`,
		uuid.New(), authorID, paperID, position,
	).Scan(&a.ID, &a.AuthorID, &a.PaperID, &a.Position, &a.CreatedAt)
	if err == nil {
		return &a, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrapError(err, "create", "authorship", authorID.String())
	}

	err = r.db.QueryRow(ctx, `
		SELECT id, author_id, paper_id, position, created_at
		FROM authorships
		WHERE author_id = $1 AND paper_id = $2`,
		authorID, paperID,
	).Scan(&a.ID, &a.AuthorID, &a.PaperID, &a.Position, &a.CreatedAt)
	if err != nil {
		return nil, false, wrapError(err, "get", "authorship", authorID.String())
	}
	return &a, false, nil
}

// GetOrCreateInstitution returns the institution with the raw name.
func (r *PgAuthorRepository) GetOrCreateInstitution(ctx context.Context, raw string) (*domain.Institution, error) {
	if raw == "" {
		return nil, domain.NewValidationError("raw", "institution name is required")
	}

	var inst domain.Institution
	err := r.db.QueryRow(ctx, `
		INSERT INTO institutions (id, raw)
		VALUES ($1, $2)
		ON CONFLICT (raw) DO NOTHING
		RETURNING id, raw, created_at`,
		uuid.New(), raw,
	).Scan(&inst.ID, &inst.Raw, &inst.CreatedAt)
	if err == nil {
		return &inst, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to create institution: %w", err)
	}

	err = r.db.QueryRow(ctx, `SELECT id, raw, created_at FROM institutions WHERE raw = $1`, raw).
		Scan(&inst.ID, &inst.Raw, &inst.CreatedAt)
	if err != nil {
		return nil, wrapError(err, "get", "institution", raw)
	}
	return &inst, nil
}

// AddAffiliation joins an authorship to an institution.
func (r *PgAuthorRepository) AddAffiliation(ctx context.Context, authorshipID, institutionID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO affiliations (id, authorship_id, institution_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (authorship_id, institution_id) DO NOTHING`,
		uuid.New(), authorshipID, institutionID,
	)
	if err != nil {
		return wrapError(err, "create", "affiliation", authorshipID.String())
	}
	return nil
}

// ListByPaper returns the authors of a paper.
func (r *PgAuthorRepository) ListByPaper(ctx context.Context, paperID uuid.UUID) ([]*domain.Author, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.id, a.given, a.family, a.created_at
		FROM authors a
		JOIN authorships s ON s.author_id = a.id
		WHERE s.paper_id = $1
		ORDER BY s.created_at, a.family`,
		paperID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	defer rows.Close()

	var authors []*domain.Author
	for rows.Next() {
		var a domain.Author
		if err := rows.Scan(&a.ID, &a.Given, &a.Family, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan author: %w", err)
		}
		authors = append(authors, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate authors: %w", err)
	}
	return authors, nil
}
