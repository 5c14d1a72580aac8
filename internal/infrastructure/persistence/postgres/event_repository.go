package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rokthenats/karting-registry/internal/domain"
	"github.com/rokthenats/karting-registry/internal/infrastructure/persistence"
)

type EventRepository struct {
	q persistence.Executor
}

func (r *EventRepository) FindByID(ctx context.Context, eventID string) (*domain.Event, error) {
	query := `
		SELECT event_id, name, start_date, end_date, location, entry_fee_cents,
		       registration_deadline, registration_open, created_at, updated_at
		FROM events WHERE event_id = $1
	`

	var e domain.Event
	var fee int64
	err := r.q.QueryRow(ctx, query, eventID).Scan(
		&e.EventID, &e.Name, &e.StartDate, &e.EndDate, &e.Location, &fee,
		&e.RegistrationDeadline, &e.RegistrationOpen, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewEventNotFoundError(eventID)
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}

	e.EntryFee = domain.Cents(fee)
	return &e, nil
}
