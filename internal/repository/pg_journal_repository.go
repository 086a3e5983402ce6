package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/camrobjones/papernet/internal/domain"
)

var _ JournalRepository = (*PgJournalRepository)(nil)

const journalColumns = `id, issn, print_issn, electronic_issn, title, abbreviation, publisher,
	journal_type, total_dois, last_retrieved, created_at`

// PgJournalRepository is a PostgreSQL implementation of JournalRepository.
type PgJournalRepository struct {
	db DBTX
}

// NewPgJournalRepository creates a new PostgreSQL journal repository.
func NewPgJournalRepository(db DBTX) *PgJournalRepository {
	return &PgJournalRepository{db: db}
}

// GetByISSN retrieves a journal by its canonical ISSN.
func (r *PgJournalRepository) GetByISSN(ctx context.Context, issn string) (*domain.Journal, error) {
	query := `SELECT ` + journalColumns + ` FROM journals WHERE issn = $1`
	j, err := scanJournal(r.db.QueryRow(ctx, query, issn))
	if err != nil {
		return nil, wrapError(err, "get", "journal", issn)
	}
	return j, nil
}

// FindByAnyISSN returns every journal claiming one of values.
func (r *PgJournalRepository) FindByAnyISSN(ctx context.Context, values []string) ([]*domain.Journal, error) {
	if len(values) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + journalColumns + `
		FROM journals
		WHERE issn = ANY($1) OR print_issn = ANY($1) OR electronic_issn = ANY($1)
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, values)
	if err != nil {
		return nil, fmt.Errorf("failed to find journals: %w", err)
	}
	defer rows.Close()

	var journals []*domain.Journal
	for rows.Next() {
		j, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal: %w", err)
		}
		journals = append(journals, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate journals: %w", err)
	}
	return journals, nil
}

// Create inserts a journal.
func (r *PgJournalRepository) Create(ctx context.Context, j *domain.Journal) (*domain.Journal, error) {
	if j == nil {
		return nil, domain.NewValidationError("journal", "journal cannot be nil")
	}
	if j.ISSN == "" {
		return nil, domain.NewValidationError("issn", "issn is required")
	}
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}

	query := `
		INSERT INTO journals (id, issn, print_issn, electronic_issn, title, abbreviation, publisher, journal_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + journalColumns

	created, err := scanJournal(r.db.QueryRow(ctx, query,
		j.ID, j.ISSN, j.PrintISSN, j.ElectronicISSN, j.Title, j.Abbreviation, j.Publisher, j.JournalType,
	))
	if err != nil {
		return nil, wrapError(err, "create", "journal", j.ISSN)
	}
	return created, nil
}

// SetISSNs overwrites the print and electronic ISSN of a journal.
func (r *PgJournalRepository) SetISSNs(ctx context.Context, id uuid.UUID, print, electronic string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE journals SET print_issn = $2, electronic_issn = $3 WHERE id = $1`,
		id, print, electronic,
	)
	if err != nil {
		return wrapError(err, "update", "journal", id.String())
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("journal", id.String())
	}
	return nil
}

// Update writes refreshed journal details.
func (r *PgJournalRepository) Update(ctx context.Context, id uuid.UUID, u domain.JournalUpdate) (*domain.Journal, error) {
	query := `
		UPDATE journals SET
			title = $2,
			publisher = $3,
			total_dois = $4,
			last_retrieved = $5
		WHERE id = $1
		RETURNING ` + journalColumns

	j, err := scanJournal(r.db.QueryRow(ctx, query, id, u.Title, u.Publisher, u.TotalDOIs, u.LastRetrieved))
	if err != nil {
		return nil, wrapError(err, "update", "journal", id.String())
	}
	return j, nil
}

// Delete removes a journal.
func (r *PgJournalRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM journals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete journal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("journal", id.String())
	}
	return nil
}

// UpsertTopic records a topic.
func (r *PgJournalRepository) UpsertTopic(ctx context.Context, t *domain.Topic) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO topics (id, journal_id, code, name, topic_type)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (code, journal_id, topic_type) DO NOTHING`,
		t.ID, t.JournalID, t.Code, t.Name, t.TopicType,
	)
	if err != nil {
		return wrapError(err, "create", "topic", fmt.Sprintf("%d", t.Code))
	}
	return nil
}

// ListTopics returns the topics of a journal.
func (r *PgJournalRepository) ListTopics(ctx context.Context, journalID uuid.UUID) ([]*domain.Topic, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, journal_id, code, name, topic_type
		FROM topics
		WHERE journal_id = $1
		ORDER BY code`,
		journalID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics: %w", err)
	}
	defer rows.Close()

	var topics []*domain.Topic
	for rows.Next() {
		var t domain.Topic
		if err := rows.Scan(&t.ID, &t.JournalID, &t.Code, &t.Name, &t.TopicType); err != nil {
			return nil, fmt.Errorf("failed to scan topic: %w", err)
		}
		topics = append(topics, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topics: %w", err)
	}
	return topics, nil
}

func scanJournal(row pgx.Row) (*domain.Journal, error) {
	var j domain.Journal
	err := row.Scan(
		&j.ID, &j.ISSN, &j.PrintISSN, &j.ElectronicISSN, &j.Title, &j.Abbreviation, &j.Publisher,
		&j.JournalType, &j.TotalDOIs, &j.LastRetrieved, &j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
