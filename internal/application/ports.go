// Package application orchestrates the registry's use cases over the ports
// declared here. Implementations live under infrastructure.
package application

import (
	"context"
	"time"

	"github.com/rokthenats/karting-registry/internal/domain"
)

// Store aggregates the repositories and scopes them to one transaction via
// WithinTx: inside the closure every repository call runs on the same
// pgx transaction, so guard queries and their writes commit or roll back
// together.
type Store interface {
	Entries() EntryRepository
	Drivers() DriverRepository
	Events() EventRepository
	Rentals() RentalRepository
	ScanLog() ScanLogRepository
	Audit() AuditRepository

	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// EntryRepository is the port for race_entries persistence.
type EntryRepository interface {
	Create(ctx context.Context, entry *domain.RaceEntry) error
	Update(ctx context.Context, entry *domain.RaceEntry) error

	FindByID(ctx context.Context, entryID string) (*domain.RaceEntry, error)
	// FindByIDForUpdate takes a row lock; only meaningful inside WithinTx.
	FindByIDForUpdate(ctx context.Context, entryID string) (*domain.RaceEntry, error)
	FindByReference(ctx context.Context, paymentReference string) (*domain.RaceEntry, error)
	FindByReferenceForUpdate(ctx context.Context, paymentReference string) (*domain.RaceEntry, error)

	// FindActiveByDriverEvent returns non-cancelled entries for the pair.
	FindActiveByDriverEvent(ctx context.Context, driverID, eventID string) ([]*domain.RaceEntry, error)

	// FindByTicketRef locates the entry holding a rental ticket barcode.
	FindByTicketRef(ctx context.Context, item domain.RentalItem, ref string) (*domain.RaceEntry, error)

	// FindActiveEngineHolder returns the entry currently holding an engine
	// serial (assigned and not returned), or ErrEntryNotFound.
	FindActiveEngineHolder(ctx context.Context, serial string) (*domain.RaceEntry, error)
	FindActiveEngineHolderForUpdate(ctx context.Context, serial string) (*domain.RaceEntry, error)

	FindLatestByRaceNumber(ctx context.Context, raceNumber string) (*domain.RaceEntry, error)
	FindByDriver(ctx context.Context, driverID string) ([]*domain.RaceEntry, error)
	FindByEngineSerial(ctx context.Context, serial string) ([]*domain.RaceEntry, error)
	FindWithItem(ctx context.Context, item domain.RentalItem) ([]*domain.RaceEntry, error)
}

// DriverRepository is the port for driver and contact lookups.
type DriverRepository interface {
	FindByID(ctx context.Context, driverID string) (*domain.Driver, error)
	FindByEmail(ctx context.Context, email string) (*domain.Driver, error)
	LoginEmail(ctx context.Context, driverID string) (string, error)
	SetSeasonEngineRental(ctx context.Context, driverID string, active bool) error
	ResetNextRaceFlags(ctx context.Context, driverID string) error
}

type EventRepository interface {
	FindByID(ctx context.Context, eventID string) (*domain.Event, error)
}

type RentalRepository interface {
	// Upsert inserts or completes a pool rental keyed by
	// (driver, season, class); duplicate deliveries of the same payment land on
	// the same row.
	Upsert(ctx context.Context, rental *domain.PoolEngineRental) error
	FindByDriverSeason(ctx context.Context, driverID string, seasonYear int, class string) (*domain.PoolEngineRental, error)
}

type ScanLogRepository interface {
	Append(ctx context.Context, record *domain.ScanRecord) error
	ListByEngineSerial(ctx context.Context, serial string) ([]*domain.ScanRecord, error)
}

type AuditRepository interface {
	Append(ctx context.Context, record *domain.AuditRecord) error
}

// Mailer is the transactional email sink. Failures are logged by callers and
// never fail the enclosing request.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// FailedNotification is one durably captured webhook failure.
type FailedNotification struct {
	ReceivedAt time.Time           `json:"received_at"`
	Payload    map[string][]string `json:"payload"`
	Headers    map[string][]string `json:"headers"`
	Error      string              `json:"error"`
	Stack      string              `json:"stack,omitempty"`
}

// FailedNotificationSink is an append-only store for webhook payloads that
// raised an error during processing.
type FailedNotificationSink interface {
	Append(record FailedNotification) error
}
