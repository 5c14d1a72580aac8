// Package postgres implements the application's repository ports with raw
// SQL over pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/infrastructure/persistence"
)

// Store bundles the repositories over a shared executor. The zero-tx store
// runs each call on the pool; WithinTx hands the closure a store whose
// repositories all run on one transaction.
type Store struct {
	pool *pgxpool.Pool
	q    persistence.Executor

	entries *EntryRepository
	drivers *DriverRepository
	events  *EventRepository
	rentals *RentalRepository
	scanLog *ScanLogRepository
	audit   *AuditRepository
}

func NewStore(db *persistence.DB) *Store {
	return newStore(db.Pool, db.Pool)
}

func newStore(pool *pgxpool.Pool, q persistence.Executor) *Store {
	return &Store{
		pool:    pool,
		q:       q,
		entries: &EntryRepository{q: q, pool: pool},
		drivers: &DriverRepository{q: q},
		events:  &EventRepository{q: q},
		rentals: &RentalRepository{q: q},
		scanLog: &ScanLogRepository{q: q},
		audit:   &AuditRepository{q: q},
	}
}

func (s *Store) Entries() application.EntryRepository { return s.entries }
func (s *Store) Drivers() application.DriverRepository { return s.drivers }
func (s *Store) Events() application.EventRepository   { return s.events }
func (s *Store) Rentals() application.RentalRepository { return s.rentals }
func (s *Store) ScanLog() application.ScanLogRepository { return s.scanLog }
func (s *Store) Audit() application.AuditRepository     { return s.audit }

// WithinTx executes fn inside a database transaction. The closure receives a
// store scoped to that transaction, so row locks taken by ForUpdate finders
// hold until commit or rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx application.Store) error) error {
	pgxTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer pgxTx.Rollback(ctx)

	if err := fn(ctx, newStore(s.pool, pgxTx)); err != nil {
		return err
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
