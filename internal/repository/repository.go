// Package repository provides data access interfaces and their PostgreSQL
// implementations for the citation graph.
//
// # Repository Interfaces
//
//   - PaperRepository: papers keyed by canonical DOI
//   - AuthorRepository: authors, authorships, institutions and affiliations
//   - JournalRepository: journals keyed by ISSN and their topics
//   - PublicationRepository: paper placements in journals
//   - ReferenceRepository: citation edges keyed by the (citing, cited) DOI pair
//
// PgRequestLogRepository additionally implements the outbound call ledger
// used by papersources.HTTPClient.
//
// # Get-or-create
//
// Every get-or-create is an INSERT ... ON CONFLICT DO NOTHING followed by a
// read when nothing was inserted, so two workers racing on the same key both
// end up with the winner's row.
//
// # Error Handling
//
//   - domain.ErrNotFound: pgx.ErrNoRows or a foreign key violation (23503)
//   - domain.ErrAlreadyExists: unique constraint violation (23505)
//   - domain.ErrInvalidInput: invalid parameters provided
//
// # Transactions
//
// Store bundles the repositories over one DBTX. Store.InTx runs a function
// with a Store bound to a transaction:
//
//	err := store.InTx(ctx, func(tx *repository.Store) error {
//	    return tx.Journals.Delete(ctx, id)
//	})
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/camrobjones/papernet/internal/database"
	"github.com/camrobjones/papernet/internal/domain"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// PostgreSQL error codes mapped to domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Pagination limits for listing queries.
const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func clampLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}

// Store groups the repositories sharing one connection or transaction.
type Store struct {
	Papers       PaperRepository
	Authors      AuthorRepository
	Journals     JournalRepository
	Publications PublicationRepository
	References   ReferenceRepository

	db     DBTX
	logger zerolog.Logger
}

// NewStore creates PostgreSQL repositories over db.
func NewStore(db DBTX, logger zerolog.Logger) *Store {
	return &Store{
		Papers:       NewPgPaperRepository(db),
		Authors:      NewPgAuthorRepository(db),
		Journals:     NewPgJournalRepository(db),
		Publications: NewPgPublicationRepository(db),
		References:   NewPgReferenceRepository(db),
		db:           db,
		logger:       logger,
	}
}

// InTx runs fn with a Store bound to a new transaction, committing when fn
// returns nil. A Store built without a database (as in tests using
// in-memory repositories) runs fn directly against itself.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	return database.RunInTx(ctx, s.db, s.logger, func(tx pgx.Tx) error {
		return fn(NewStore(tx, s.logger))
	})
}

// mapError converts driver errors into domain errors for entity/id.
func mapError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewNotFoundError(entity, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.NewAlreadyExistsError(entity, id)
		case pgForeignKeyViolation:
			return domain.NewNotFoundError(entity, id)
		}
	}
	return err
}

// wrapError maps err and adds the failed action as context.
func wrapError(err error, action, entity, id string) error {
	mapped := mapError(err, entity, id)
	if mapped != err {
		return mapped
	}
	return fmt.Errorf("failed to %s %s: %w", action, entity, err)
}
