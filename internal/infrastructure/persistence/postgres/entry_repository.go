package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rokthenats/karting-registry/internal/domain"
	"github.com/rokthenats/karting-registry/internal/infrastructure/persistence"
)

const entryColumns = `
	entry_id, event_id, driver_id, payment_reference, race_class, race_number,
	entry_items, amount_paid_cents, payment_status, entry_status,
	ticket_engine_ref, ticket_tyres_ref, ticket_transponder_ref, ticket_fuel_ref,
	engine_serial, engine_assigned_at, engine_returned, engine_returned_at,
	engine_issue, engine_replacement_for,
	transponder_serial, transponder_assigned_at,
	tyre_fl, tyre_fr, tyre_rl, tyre_rr, tyres_registered_at,
	fuel_collected, fuel_collected_at,
	created_at, updated_at`

type EntryRepository struct {
	q persistence.Executor

	// pool runs the holder-name lookup after a unique violation aborted the
	// surrounding transaction.
	pool persistence.Executor
}

const activeEngineIndex = "idx_entries_active_engine"

// engineConflict names the driver currently holding a serial. It runs on the
// pool because the transaction that tripped the index is already aborted.
func (r *EntryRepository) engineConflict(ctx context.Context, serial string) error {
	var holderName string
	err := r.pool.QueryRow(ctx, `
		SELECT d.first_name || ' ' || d.last_name
		FROM race_entries e
		JOIN drivers d ON d.driver_id = e.driver_id
		WHERE e.engine_serial = $1 AND e.engine_returned = FALSE AND e.entry_status <> 'cancelled'
		LIMIT 1`, serial).Scan(&holderName)
	if err != nil {
		holderName = "another entry"
	}
	return domain.NewEquipmentConflictError(serial, holderName)
}

func (r *EntryRepository) Create(ctx context.Context, entry *domain.RaceEntry) error {
	query := `
		INSERT INTO race_entries (
			entry_id, event_id, driver_id, payment_reference, race_class, race_number,
			entry_items, amount_paid_cents, payment_status, entry_status,
			ticket_engine_ref, ticket_tyres_ref, ticket_transponder_ref, ticket_fuel_ref,
			engine_serial, engine_assigned_at, engine_returned, engine_returned_at,
			engine_issue, engine_replacement_for,
			transponder_serial, transponder_assigned_at,
			tyre_fl, tyre_fr, tyre_rl, tyre_rr, tyres_registered_at,
			fuel_collected, fuel_collected_at,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31
		)
	`

	_, err := r.q.Exec(ctx, query, entryArgs(entry)...)
	if err != nil {
		if constraint, ok := persistence.UniqueViolationConstraint(err); ok {
			if constraint == activeEngineIndex {
				return r.engineConflict(ctx, entry.EngineSerial)
			}
			return domain.NewDuplicateEntryError(entry.DriverID, entry.EventID)
		}
		return fmt.Errorf("failed to create race entry: %w", err)
	}
	return nil
}

func (r *EntryRepository) Update(ctx context.Context, entry *domain.RaceEntry) error {
	query := `
		UPDATE race_entries
		SET payment_reference = $2, race_class = $3, race_number = $4,
		    entry_items = $5, amount_paid_cents = $6, payment_status = $7, entry_status = $8,
		    ticket_engine_ref = $9, ticket_tyres_ref = $10, ticket_transponder_ref = $11, ticket_fuel_ref = $12,
		    engine_serial = $13, engine_assigned_at = $14, engine_returned = $15, engine_returned_at = $16,
		    engine_issue = $17, engine_replacement_for = $18,
		    transponder_serial = $19, transponder_assigned_at = $20,
		    tyre_fl = $21, tyre_fr = $22, tyre_rl = $23, tyre_rr = $24, tyres_registered_at = $25,
		    fuel_collected = $26, fuel_collected_at = $27,
		    updated_at = $28
		WHERE entry_id = $1
	`

	tag, err := r.q.Exec(ctx, query,
		entry.EntryID,
		entry.PaymentReference,
		entry.RaceClass,
		entry.RaceNumber,
		itemsToStrings(entry.EntryItems),
		int64(entry.AmountPaid),
		string(entry.PaymentStatus),
		string(entry.EntryStatus),
		entry.TicketEngineRef,
		entry.TicketTyresRef,
		entry.TicketTransponderRef,
		entry.TicketFuelRef,
		entry.EngineSerial,
		entry.EngineAssignedAt,
		entry.EngineReturned,
		entry.EngineReturnedAt,
		entry.EngineIssue,
		entry.EngineReplacementFor,
		entry.TransponderSerial,
		entry.TransponderAssignedAt,
		entry.TyreFL,
		entry.TyreFR,
		entry.TyreRL,
		entry.TyreRR,
		entry.TyresRegisteredAt,
		entry.FuelCollected,
		entry.FuelCollectedAt,
		entry.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := persistence.UniqueViolationConstraint(err); ok && constraint == activeEngineIndex {
			return r.engineConflict(ctx, entry.EngineSerial)
		}
		return fmt.Errorf("failed to update race entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewEntryNotFoundError(entry.EntryID)
	}
	return nil
}

func (r *EntryRepository) FindByID(ctx context.Context, entryID string) (*domain.RaceEntry, error) {
	query := `SELECT` + entryColumns + ` FROM race_entries WHERE entry_id = $1`
	return scanEntry(r.q.QueryRow(ctx, query, entryID), entryID)
}

func (r *EntryRepository) FindByIDForUpdate(ctx context.Context, entryID string) (*domain.RaceEntry, error) {
	query := `SELECT` + entryColumns + ` FROM race_entries WHERE entry_id = $1 FOR UPDATE`
	return scanEntry(r.q.QueryRow(ctx, query, entryID), entryID)
}

func (r *EntryRepository) FindByReference(ctx context.Context, paymentReference string) (*domain.RaceEntry, error) {
	query := `SELECT` + entryColumns + ` FROM race_entries WHERE payment_reference = $1`
	return scanEntry(r.q.QueryRow(ctx, query, paymentReference), paymentReference)
}

func (r *EntryRepository) FindByReferenceForUpdate(ctx context.Context, paymentReference string) (*domain.RaceEntry, error) {
	query := `SELECT` + entryColumns + ` FROM race_entries WHERE payment_reference = $1 FOR UPDATE`
	return scanEntry(r.q.QueryRow(ctx, query, paymentReference), paymentReference)
}

func (r *EntryRepository) FindActiveByDriverEvent(ctx context.Context, driverID, eventID string) ([]*domain.RaceEntry, error) {
	query := `
		SELECT` + entryColumns + `
		FROM race_entries
		WHERE driver_id = $1 AND event_id = $2 AND entry_status <> 'cancelled'
		ORDER BY created_at
	`
	return queryEntries(ctx, r.q, query, driverID, eventID)
}

func (r *EntryRepository) FindByTicketRef(ctx context.Context, item domain.RentalItem, ref string) (*domain.RaceEntry, error) {
	column, ok := map[domain.RentalItem]string{
		domain.RentalEngine:      "ticket_engine_ref",
		domain.RentalTyres:       "ticket_tyres_ref",
		domain.RentalTransponder: "ticket_transponder_ref",
		domain.RentalFuel:        "ticket_fuel_ref",
	}[item]
	if !ok {
		return nil, domain.NewUnknownBarcodeError(ref)
	}

	query := `SELECT` + entryColumns + ` FROM race_entries WHERE ` + column + ` = $1 AND entry_status <> 'cancelled'`
	return scanEntry(r.q.QueryRow(ctx, query, ref), ref)
}

func (r *EntryRepository) FindActiveEngineHolder(ctx context.Context, serial string) (*domain.RaceEntry, error) {
	query := `
		SELECT` + entryColumns + `
		FROM race_entries
		WHERE engine_serial = $1 AND engine_returned = FALSE AND entry_status <> 'cancelled'
	`
	return scanEntry(r.q.QueryRow(ctx, query, serial), serial)
}

func (r *EntryRepository) FindActiveEngineHolderForUpdate(ctx context.Context, serial string) (*domain.RaceEntry, error) {
	query := `
		SELECT` + entryColumns + `
		FROM race_entries
		WHERE engine_serial = $1 AND engine_returned = FALSE AND entry_status <> 'cancelled'
		FOR UPDATE
	`
	return scanEntry(r.q.QueryRow(ctx, query, serial), serial)
}

func (r *EntryRepository) FindLatestByRaceNumber(ctx context.Context, raceNumber string) (*domain.RaceEntry, error) {
	query := `
		SELECT` + entryColumns + `
		FROM race_entries
		WHERE race_number = $1 AND entry_status <> 'cancelled'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanEntry(r.q.QueryRow(ctx, query, raceNumber), raceNumber)
}

func (r *EntryRepository) FindByDriver(ctx context.Context, driverID string) ([]*domain.RaceEntry, error) {
	query := `SELECT` + entryColumns + ` FROM race_entries WHERE driver_id = $1 ORDER BY created_at DESC`
	return queryEntries(ctx, r.q, query, driverID)
}

func (r *EntryRepository) FindByEngineSerial(ctx context.Context, serial string) ([]*domain.RaceEntry, error) {
	query := `SELECT` + entryColumns + ` FROM race_entries WHERE engine_serial = $1 ORDER BY engine_assigned_at`
	return queryEntries(ctx, r.q, query, serial)
}

func (r *EntryRepository) FindWithItem(ctx context.Context, item domain.RentalItem) ([]*domain.RaceEntry, error) {
	query := `
		SELECT` + entryColumns + `
		FROM race_entries
		WHERE $1 = ANY(entry_items) AND entry_status <> 'cancelled'
		ORDER BY created_at DESC
	`
	return queryEntries(ctx, r.q, query, string(item))
}

func entryArgs(entry *domain.RaceEntry) []any {
	return []any{
		entry.EntryID,
		entry.EventID,
		entry.DriverID,
		entry.PaymentReference,
		entry.RaceClass,
		entry.RaceNumber,
		itemsToStrings(entry.EntryItems),
		int64(entry.AmountPaid),
		string(entry.PaymentStatus),
		string(entry.EntryStatus),
		entry.TicketEngineRef,
		entry.TicketTyresRef,
		entry.TicketTransponderRef,
		entry.TicketFuelRef,
		entry.EngineSerial,
		entry.EngineAssignedAt,
		entry.EngineReturned,
		entry.EngineReturnedAt,
		entry.EngineIssue,
		entry.EngineReplacementFor,
		entry.TransponderSerial,
		entry.TransponderAssignedAt,
		entry.TyreFL,
		entry.TyreFR,
		entry.TyreRL,
		entry.TyreRR,
		entry.TyresRegisteredAt,
		entry.FuelCollected,
		entry.FuelCollectedAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	}
}

func scanEntryRow(row pgx.Row) (*domain.RaceEntry, error) {
	var e domain.RaceEntry
	var items []string
	var amount int64
	var paymentStatus, entryStatus string

	err := row.Scan(
		&e.EntryID, &e.EventID, &e.DriverID, &e.PaymentReference, &e.RaceClass, &e.RaceNumber,
		&items, &amount, &paymentStatus, &entryStatus,
		&e.TicketEngineRef, &e.TicketTyresRef, &e.TicketTransponderRef, &e.TicketFuelRef,
		&e.EngineSerial, &e.EngineAssignedAt, &e.EngineReturned, &e.EngineReturnedAt,
		&e.EngineIssue, &e.EngineReplacementFor,
		&e.TransponderSerial, &e.TransponderAssignedAt,
		&e.TyreFL, &e.TyreFR, &e.TyreRL, &e.TyreRR, &e.TyresRegisteredAt,
		&e.FuelCollected, &e.FuelCollectedAt,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.EntryItems = stringsToItems(items)
	e.AmountPaid = domain.Cents(amount)
	e.PaymentStatus = domain.PaymentStatus(paymentStatus)
	e.EntryStatus = domain.EntryStatus(entryStatus)
	return &e, nil
}

func scanEntry(row pgx.Row, key string) (*domain.RaceEntry, error) {
	entry, err := scanEntryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewEntryNotFoundError(key)
		}
		return nil, fmt.Errorf("failed to scan race entry: %w", err)
	}
	return entry, nil
}

func queryEntries(ctx context.Context, q persistence.Executor, query string, args ...any) ([]*domain.RaceEntry, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query race entries: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.RaceEntry, error) {
		return scanEntryRow(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan race entries: %w", err)
	}
	return results, nil
}

func itemsToStrings(items []domain.RentalItem) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = string(item)
	}
	return out
}

func stringsToItems(values []string) []domain.RentalItem {
	out := make([]domain.RentalItem, len(values))
	for i, v := range values {
		out[i] = domain.RentalItem(v)
	}
	return out
}
