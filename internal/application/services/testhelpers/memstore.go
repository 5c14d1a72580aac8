// Package testhelpers provides an in-memory Store and factories for the
// service tests.
package testhelpers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/domain"
)

// MemStore is an in-memory application.Store. WithinTx runs the closure
// against the same store; the tests that need rollback semantics assert on
// the service-level error instead.
type MemStore struct {
	mu sync.Mutex

	EntriesByID  map[string]*domain.RaceEntry
	DriversByID  map[string]*domain.Driver
	LoginEmails  map[string]string
	EventsByID   map[string]*domain.Event
	RentalsByKey map[string]*domain.PoolEngineRental
	Scans        []*domain.ScanRecord
	Audits       []*domain.AuditRecord
}

func NewMemStore() *MemStore {
	return &MemStore{
		EntriesByID:  make(map[string]*domain.RaceEntry),
		DriversByID:  make(map[string]*domain.Driver),
		LoginEmails:  make(map[string]string),
		EventsByID:   make(map[string]*domain.Event),
		RentalsByKey: make(map[string]*domain.PoolEngineRental),
	}
}

func (s *MemStore) Entries() application.EntryRepository   { return &memEntries{s} }
func (s *MemStore) Drivers() application.DriverRepository  { return &memDrivers{s} }
func (s *MemStore) Events() application.EventRepository    { return &memEvents{s} }
func (s *MemStore) Rentals() application.RentalRepository  { return &memRentals{s} }
func (s *MemStore) ScanLog() application.ScanLogRepository { return &memScanLog{s} }
func (s *MemStore) Audit() application.AuditRepository     { return &memAudit{s} }

func (s *MemStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx application.Store) error) error {
	return fn(ctx, s)
}

// ScanResults returns the action_result column of every appended scan row,
// oldest first.
func (s *MemStore) ScanResults() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Scans))
	for i, rec := range s.Scans {
		out[i] = rec.ActionResult
	}
	return out
}

func copyEntry(e *domain.RaceEntry) *domain.RaceEntry {
	cp := *e
	cp.EntryItems = append([]domain.RentalItem(nil), e.EntryItems...)
	return &cp
}

type memEntries struct{ s *MemStore }

func (r *memEntries) Create(ctx context.Context, entry *domain.RaceEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.EntriesByID {
		if entry.PaymentReference != "" &&
			existing.DriverID == entry.DriverID &&
			existing.EventID == entry.EventID &&
			existing.PaymentReference == entry.PaymentReference {
			return domain.NewDuplicateEntryError(entry.DriverID, entry.EventID)
		}
	}
	if err := r.engineSerialFree(entry); err != nil {
		return err
	}
	r.s.EntriesByID[entry.EntryID] = copyEntry(entry)
	return nil
}

func (r *memEntries) Update(ctx context.Context, entry *domain.RaceEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.EntriesByID[entry.EntryID]; !ok {
		return domain.NewEntryNotFoundError(entry.EntryID)
	}
	if err := r.engineSerialFree(entry); err != nil {
		return err
	}
	r.s.EntriesByID[entry.EntryID] = copyEntry(entry)
	return nil
}

// engineSerialFree mirrors the partial unique index on active engine
// assignments. Callers must hold the store mutex.
func (r *memEntries) engineSerialFree(entry *domain.RaceEntry) error {
	if entry.EngineSerial == "" || entry.EngineReturned || entry.EntryStatus == domain.EntryCancelled {
		return nil
	}
	for _, existing := range r.s.EntriesByID {
		if existing.EntryID == entry.EntryID {
			continue
		}
		if existing.EngineSerial == entry.EngineSerial &&
			!existing.EngineReturned &&
			existing.EntryStatus != domain.EntryCancelled {
			holderName := "another entry"
			if holder, ok := r.s.DriversByID[existing.DriverID]; ok {
				holderName = holder.FullName()
			}
			return domain.NewEquipmentConflictError(entry.EngineSerial, holderName)
		}
	}
	return nil
}

func (r *memEntries) FindByID(ctx context.Context, entryID string) (*domain.RaceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry, ok := r.s.EntriesByID[entryID]; ok {
		return copyEntry(entry), nil
	}
	return nil, domain.NewEntryNotFoundError(entryID)
}

func (r *memEntries) FindByIDForUpdate(ctx context.Context, entryID string) (*domain.RaceEntry, error) {
	return r.FindByID(ctx, entryID)
}

func (r *memEntries) FindByReference(ctx context.Context, ref string) (*domain.RaceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, entry := range r.s.EntriesByID {
		if entry.PaymentReference == ref {
			return copyEntry(entry), nil
		}
	}
	return nil, domain.NewEntryNotFoundError(ref)
}

func (r *memEntries) FindByReferenceForUpdate(ctx context.Context, ref string) (*domain.RaceEntry, error) {
	return r.FindByReference(ctx, ref)
}

func (r *memEntries) FindActiveByDriverEvent(ctx context.Context, driverID, eventID string) ([]*domain.RaceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.RaceEntry
	for _, entry := range r.s.EntriesByID {
		if entry.DriverID == driverID && entry.EventID == eventID && entry.Active() {
			out = append(out, copyEntry(entry))
		}
	}
	return out, nil
}

func (r *memEntries) FindByTicketRef(ctx context.Context, item domain.RentalItem, ref string) (*domain.RaceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, entry := range r.s.EntriesByID {
		if entry.Active() && entry.TicketRef(item) == ref {
			return copyEntry(entry), nil
		}
	}
	return nil, domain.NewEntryNotFoundError(ref)
}

func (r *memEntries) FindActiveEngineHolder(ctx context.Context, serial string) (*domain.RaceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, entry := range r.s.EntriesByID {
		if entry.EngineSerial == serial && !entry.EngineReturned && entry.Active() {
			return copyEntry(entry), nil
		}
	}
	return nil, domain.NewEntryNotFoundError(serial)
}

func (r *memEntries) FindActiveEngineHolderForUpdate(ctx context.Context, serial string) (*domain.RaceEntry, error) {
	return r.FindActiveEngineHolder(ctx, serial)
}

func (r *memEntries) FindLatestByRaceNumber(ctx context.Context, raceNumber string) (*domain.RaceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var latest *domain.RaceEntry
	for _, entry := range r.s.EntriesByID {
		if entry.RaceNumber != raceNumber || !entry.Active() {
			continue
		}
		if latest == nil || entry.CreatedAt.After(latest.CreatedAt) {
			latest = entry
		}
	}
	if latest == nil {
		return nil, domain.NewEntryNotFoundError(raceNumber)
	}
	return copyEntry(latest), nil
}

func (r *memEntries) FindByDriver(ctx context.Context, driverID string) ([]*domain.RaceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.RaceEntry
	for _, entry := range r.s.EntriesByID {
		if entry.DriverID == driverID {
			out = append(out, copyEntry(entry))
		}
	}
	return out, nil
}

func (r *memEntries) FindByEngineSerial(ctx context.Context, serial string) ([]*domain.RaceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.RaceEntry
	for _, entry := range r.s.EntriesByID {
		if entry.EngineSerial == serial {
			out = append(out, copyEntry(entry))
		}
	}
	return out, nil
}

func (r *memEntries) FindWithItem(ctx context.Context, item domain.RentalItem) ([]*domain.RaceEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.RaceEntry
	for _, entry := range r.s.EntriesByID {
		if entry.Active() && entry.HasItem(item) {
			out = append(out, copyEntry(entry))
		}
	}
	return out, nil
}

type memDrivers struct{ s *MemStore }

func (r *memDrivers) FindByID(ctx context.Context, driverID string) (*domain.Driver, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if d, ok := r.s.DriversByID[driverID]; ok && !d.IsDeleted {
		cp := *d
		return &cp, nil
	}
	return nil, domain.NewDriverNotFoundError(driverID)
}

func (r *memDrivers) FindByEmail(ctx context.Context, email string) (*domain.Driver, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, loginEmail := range r.s.LoginEmails {
		if strings.EqualFold(loginEmail, email) {
			if d, ok := r.s.DriversByID[id]; ok && !d.IsDeleted {
				cp := *d
				return &cp, nil
			}
		}
	}
	return nil, domain.NewDriverNotFoundError(email)
}

func (r *memDrivers) LoginEmail(ctx context.Context, driverID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if email, ok := r.s.LoginEmails[driverID]; ok {
		return email, nil
	}
	return "", domain.NewDriverNotFoundError(driverID)
}

func (r *memDrivers) SetSeasonEngineRental(ctx context.Context, driverID string, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.DriversByID[driverID]
	if !ok {
		return domain.NewDriverNotFoundError(driverID)
	}
	d.SeasonEngineRental = active
	return nil
}

func (r *memDrivers) ResetNextRaceFlags(ctx context.Context, driverID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.DriversByID[driverID]
	if !ok {
		return domain.NewDriverNotFoundError(driverID)
	}
	d.NextRaceEntryStatus = ""
	d.NextRaceEngineRentalStatus = ""
	return nil
}

type memEvents struct{ s *MemStore }

func (r *memEvents) FindByID(ctx context.Context, eventID string) (*domain.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.EventsByID[eventID]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.NewEventNotFoundError(eventID)
}

type memRentals struct{ s *MemStore }

func rentalKey(driverID string, seasonYear int, class string) string {
	return fmt.Sprintf("%s|%d|%s", driverID, seasonYear, class)
}

func (r *memRentals) Upsert(ctx context.Context, rental *domain.PoolEngineRental) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *rental
	r.s.RentalsByKey[rentalKey(rental.DriverID, rental.SeasonYear, rental.ChampionshipClass)] = &cp
	return nil
}

func (r *memRentals) FindByDriverSeason(ctx context.Context, driverID string, seasonYear int, class string) (*domain.PoolEngineRental, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rental, ok := r.s.RentalsByKey[rentalKey(driverID, seasonYear, class)]; ok {
		cp := *rental
		return &cp, nil
	}
	return nil, domain.NewEntryNotFoundError(driverID)
}

type memScanLog struct{ s *MemStore }

func (r *memScanLog) Append(ctx context.Context, record *domain.ScanRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *record
	r.s.Scans = append(r.s.Scans, &cp)
	return nil
}

func (r *memScanLog) ListByEngineSerial(ctx context.Context, serial string) ([]*domain.ScanRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*domain.ScanRecord
	for _, rec := range r.s.Scans {
		if rec.EquipmentSerial == serial {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memAudit struct{ s *MemStore }

func (r *memAudit) Append(ctx context.Context, record *domain.AuditRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *record
	r.s.Audits = append(r.s.Audits, &cp)
	return nil
}
