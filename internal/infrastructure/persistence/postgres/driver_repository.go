package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rokthenats/karting-registry/internal/domain"
	"github.com/rokthenats/karting-registry/internal/infrastructure/persistence"
)

const driverColumns = `
	driver_id, first_name, last_name, championship, class, race_number,
	transponder_number, status, season_engine_rental,
	next_race_entry_status, next_race_engine_rental_status,
	is_deleted, deleted_at, created_at, updated_at`

type DriverRepository struct {
	q persistence.Executor
}

func (r *DriverRepository) FindByID(ctx context.Context, driverID string) (*domain.Driver, error) {
	query := `SELECT` + driverColumns + ` FROM drivers WHERE driver_id = $1 AND is_deleted = FALSE`
	return scanDriver(r.q.QueryRow(ctx, query, driverID), driverID)
}

// FindByEmail resolves a driver through the login contact.
func (r *DriverRepository) FindByEmail(ctx context.Context, email string) (*domain.Driver, error) {
	query := `
		SELECT` + driverColumns + `
		FROM drivers d
		JOIN contacts c ON c.driver_id = d.driver_id AND c.is_login
		WHERE lower(c.email) = lower($1) AND d.is_deleted = FALSE
	`
	return scanDriver(r.q.QueryRow(ctx, query, email), email)
}

// LoginEmail returns the email of the driver's login contact.
func (r *DriverRepository) LoginEmail(ctx context.Context, driverID string) (string, error) {
	query := `SELECT email FROM contacts WHERE driver_id = $1 AND is_login`

	var email string
	if err := r.q.QueryRow(ctx, query, driverID).Scan(&email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.NewDriverNotFoundError(driverID)
		}
		return "", fmt.Errorf("failed to look up login email: %w", err)
	}
	return email, nil
}

func (r *DriverRepository) SetSeasonEngineRental(ctx context.Context, driverID string, active bool) error {
	query := `UPDATE drivers SET season_engine_rental = $2, updated_at = now() WHERE driver_id = $1`

	tag, err := r.q.Exec(ctx, query, driverID, active)
	if err != nil {
		return fmt.Errorf("failed to set season engine rental: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDriverNotFoundError(driverID)
	}
	return nil
}

// ResetNextRaceFlags clears the driver-portal banners after the last active
// entry for an event is cancelled.
func (r *DriverRepository) ResetNextRaceFlags(ctx context.Context, driverID string) error {
	query := `
		UPDATE drivers
		SET next_race_entry_status = '', next_race_engine_rental_status = '', updated_at = now()
		WHERE driver_id = $1
	`

	tag, err := r.q.Exec(ctx, query, driverID)
	if err != nil {
		return fmt.Errorf("failed to reset next race flags: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewDriverNotFoundError(driverID)
	}
	return nil
}

func scanDriver(row pgx.Row, key string) (*domain.Driver, error) {
	var d domain.Driver
	var status string

	err := row.Scan(
		&d.DriverID, &d.FirstName, &d.LastName, &d.Championship, &d.Class, &d.RaceNumber,
		&d.TransponderNumber, &status, &d.SeasonEngineRental,
		&d.NextRaceEntryStatus, &d.NextRaceEngineRentalStatus,
		&d.IsDeleted, &d.DeletedAt, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewDriverNotFoundError(key)
		}
		return nil, fmt.Errorf("failed to scan driver: %w", err)
	}

	d.Status = domain.DriverStatus(status)
	return &d, nil
}
