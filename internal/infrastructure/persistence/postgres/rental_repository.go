package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rokthenats/karting-registry/internal/domain"
	"github.com/rokthenats/karting-registry/internal/infrastructure/persistence"
)

type RentalRepository struct {
	q persistence.Executor
}

// Upsert inserts or completes a pool rental. The conflict target is the
// (driver, season, class) key, so repeated deliveries of the same webhook
// converge on one row.
func (r *RentalRepository) Upsert(ctx context.Context, rental *domain.PoolEngineRental) error {
	query := `
		INSERT INTO pool_engine_rentals (
			rental_id, driver_id, season_year, championship_class, engine_type,
			payment_reference, amount_paid_cents, payment_status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (driver_id, season_year, championship_class) DO UPDATE
		SET engine_type = EXCLUDED.engine_type,
		    payment_reference = EXCLUDED.payment_reference,
		    amount_paid_cents = EXCLUDED.amount_paid_cents,
		    payment_status = EXCLUDED.payment_status,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.q.Exec(ctx, query,
		rental.RentalID,
		rental.DriverID,
		rental.SeasonYear,
		rental.ChampionshipClass,
		rental.EngineType,
		rental.PaymentReference,
		int64(rental.AmountPaid),
		string(rental.PaymentStatus),
		rental.CreatedAt,
		rental.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert pool rental: %w", err)
	}
	return nil
}

func (r *RentalRepository) FindByDriverSeason(ctx context.Context, driverID string, seasonYear int, class string) (*domain.PoolEngineRental, error) {
	query := `
		SELECT rental_id, driver_id, season_year, championship_class, engine_type,
		       payment_reference, amount_paid_cents, payment_status, created_at, updated_at
		FROM pool_engine_rentals
		WHERE driver_id = $1 AND season_year = $2 AND championship_class = $3
	`

	var m domain.PoolEngineRental
	var amount int64
	var status string
	err := r.q.QueryRow(ctx, query, driverID, seasonYear, class).Scan(
		&m.RentalID, &m.DriverID, &m.SeasonYear, &m.ChampionshipClass, &m.EngineType,
		&m.PaymentReference, &amount, &status, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewEntryNotFoundError(driverID)
		}
		return nil, fmt.Errorf("failed to scan pool rental: %w", err)
	}

	m.AmountPaid = domain.Cents(amount)
	m.PaymentStatus = domain.PaymentStatus(status)
	return &m, nil
}
