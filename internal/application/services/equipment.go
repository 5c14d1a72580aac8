package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/domain"
)

// EquipmentService is the officials-portal scan workflow: barcode lookup,
// engine assignment with pool-wide uniqueness, returns, replacements,
// transponders, tyre sets and fuel. Every operation appends one row to the
// scan log; guarded mutations and their log row share a transaction.
type EquipmentService struct {
	store  application.Store
	logger *slog.Logger
}

func NewEquipmentService(store application.Store, logger *slog.Logger) *EquipmentService {
	return &EquipmentService{store: store, logger: logger}
}

// LookupResult is the driver+entry snapshot returned for a scanned ticket.
type LookupResult struct {
	Item       domain.RentalItem `json:"item"`
	Entry      *domain.RaceEntry `json:"entry"`
	Driver     *domain.Driver    `json:"driver"`
	DriverName string            `json:"driver_name"`
}

// Lookup resolves a rental ticket barcode to its entry and driver.
func (s *EquipmentService) Lookup(ctx context.Context, barcode, scannedBy string) (*LookupResult, error) {
	item, err := domain.RentalItemForBarcode(barcode)
	if err != nil {
		return nil, application.FromDomainError(err)
	}

	entry, err := s.store.Entries().FindByTicketRef(ctx, item, barcode)
	if err != nil {
		return nil, application.FromDomainError(err)
	}
	driver, err := s.store.Drivers().FindByID(ctx, entry.DriverID)
	if err != nil {
		return nil, application.FromDomainError(err)
	}

	s.appendScan(ctx, s.store, &domain.ScanRecord{
		ScanType:       domain.ScanLookup,
		BarcodeScanned: barcode,
		EntryID:        entry.EntryID,
		DriverID:       driver.DriverID,
		DriverName:     driver.FullName(),
		ScannedBy:      scannedBy,
		ActionResult:   domain.ScanResultSuccess,
		EventID:        entry.EventID,
		RaceClass:      entry.RaceClass,
	})

	return &LookupResult{
		Item:       item,
		Entry:      entry,
		Driver:     driver,
		DriverName: driver.FullName(),
	}, nil
}

// AssignEngine hands an engine serial to an entry. The guard and the write
// run in one transaction: of two scanners racing on the same serial, exactly
// one wins and the other is told who holds it.
func (s *EquipmentService) AssignEngine(ctx context.Context, cmd AssignEngineCommand) error {
	entry, driver, err := s.loadEntryDriver(ctx, cmd.EntryID)
	if err != nil {
		return err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		if txErr := s.guardEngineFree(ctx, tx, cmd.EngineSerial, cmd.EntryID); txErr != nil {
			return txErr
		}

		txEntry, txErr := tx.Entries().FindByIDForUpdate(ctx, cmd.EntryID)
		if txErr != nil {
			return txErr
		}
		if txErr := txEntry.AssignEngine(cmd.EngineSerial, time.Now()); txErr != nil {
			return txErr
		}
		if txErr := tx.Entries().Update(ctx, txEntry); txErr != nil {
			return txErr
		}

		return s.appendScanTx(ctx, tx, &domain.ScanRecord{
			ScanType:        domain.ScanEngineAssign,
			BarcodeScanned:  cmd.TicketBarcode,
			EntryID:         txEntry.EntryID,
			DriverID:        driver.DriverID,
			DriverName:      driver.FullName(),
			EquipmentSerial: cmd.EngineSerial,
			ScannedBy:       cmd.ScannedBy,
			ActionResult:    domain.ScanResultSuccess,
			EventID:         txEntry.EventID,
			RaceClass:       txEntry.RaceClass,
		})
	})
	if err != nil {
		s.logFailure(ctx, domain.ScanEngineAssign, cmd.TicketBarcode, cmd.EngineSerial, cmd.ScannedBy, entry, driver, err)
		return application.FromDomainError(err)
	}
	return nil
}

// ReturnEngine closes the single active assignment of a serial.
func (s *EquipmentService) ReturnEngine(ctx context.Context, serial, scannedBy string) error {
	var holder *domain.RaceEntry
	var driver *domain.Driver

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		var txErr error
		holder, txErr = tx.Entries().FindActiveEngineHolderForUpdate(ctx, serial)
		if txErr != nil {
			if domain.IsErrorCode(txErr, domain.ErrCodeEntryNotFound) {
				return domain.NewEquipmentNotFoundError(serial)
			}
			return txErr
		}
		driver, txErr = tx.Drivers().FindByID(ctx, holder.DriverID)
		if txErr != nil {
			return txErr
		}

		holder.ReturnEngine(time.Now())
		if txErr := tx.Entries().Update(ctx, holder); txErr != nil {
			return txErr
		}

		return s.appendScanTx(ctx, tx, &domain.ScanRecord{
			ScanType:        domain.ScanEngineReturn,
			BarcodeScanned:  serial,
			EntryID:         holder.EntryID,
			DriverID:        driver.DriverID,
			DriverName:      driver.FullName(),
			EquipmentSerial: serial,
			ScannedBy:       scannedBy,
			ActionResult:    domain.ScanResultSuccess,
			EventID:         holder.EventID,
			RaceClass:       holder.RaceClass,
		})
	})
	if err != nil {
		s.logFailure(ctx, domain.ScanEngineReturn, serial, serial, scannedBy, holder, driver, err)
		return application.FromDomainError(err)
	}
	return nil
}

// ReportEngineIssue returns the engine with an issue note and hands back the
// holder's identifiers so the caller can chain a replacement assignment.
func (s *EquipmentService) ReportEngineIssue(ctx context.Context, serial, issue, scannedBy string) (driverID, entryID string, err error) {
	var holder *domain.RaceEntry
	var driver *domain.Driver

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		var txErr error
		holder, txErr = tx.Entries().FindActiveEngineHolderForUpdate(ctx, serial)
		if txErr != nil {
			if domain.IsErrorCode(txErr, domain.ErrCodeEntryNotFound) {
				return domain.NewEquipmentNotFoundError(serial)
			}
			return txErr
		}
		driver, txErr = tx.Drivers().FindByID(ctx, holder.DriverID)
		if txErr != nil {
			return txErr
		}

		holder.ReportEngineIssue(issue, time.Now())
		if txErr := tx.Entries().Update(ctx, holder); txErr != nil {
			return txErr
		}

		return s.appendScanTx(ctx, tx, &domain.ScanRecord{
			ScanType:        domain.ScanEngineIssue,
			BarcodeScanned:  serial,
			EntryID:         holder.EntryID,
			DriverID:        driver.DriverID,
			DriverName:      driver.FullName(),
			EquipmentSerial: serial,
			ScannedBy:       scannedBy,
			ActionResult:    domain.ScanResultSuccess,
			Notes:           issue,
			EventID:         holder.EventID,
			RaceClass:       holder.RaceClass,
		})
	})
	if err != nil {
		s.logFailure(ctx, domain.ScanEngineIssue, serial, serial, scannedBy, holder, driver, err)
		return "", "", application.FromDomainError(err)
	}
	return holder.DriverID, holder.EntryID, nil
}

// ReplaceEngine assigns a replacement serial to an entry and records which
// returned unit it stands in for.
func (s *EquipmentService) ReplaceEngine(ctx context.Context, cmd ReplaceEngineCommand) error {
	entry, driver, err := s.loadEntryDriver(ctx, cmd.EntryID)
	if err != nil {
		return err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		if txErr := s.guardEngineFree(ctx, tx, cmd.ReplacementSerial, cmd.EntryID); txErr != nil {
			return txErr
		}

		txEntry, txErr := tx.Entries().FindByIDForUpdate(ctx, cmd.EntryID)
		if txErr != nil {
			return txErr
		}
		if txErr := txEntry.ReplaceEngine(cmd.ReplacementSerial, cmd.ReturnedSerial, time.Now()); txErr != nil {
			return txErr
		}
		if txErr := tx.Entries().Update(ctx, txEntry); txErr != nil {
			return txErr
		}

		return s.appendScanTx(ctx, tx, &domain.ScanRecord{
			ScanType:        domain.ScanEngineReplace,
			BarcodeScanned:  cmd.ReplacementSerial,
			EntryID:         txEntry.EntryID,
			DriverID:        driver.DriverID,
			DriverName:      driver.FullName(),
			EquipmentSerial: cmd.ReplacementSerial,
			ScannedBy:       cmd.ScannedBy,
			ActionResult:    domain.ScanResultSuccess,
			Notes:           "replacement for " + cmd.ReturnedSerial,
			EventID:         txEntry.EventID,
			RaceClass:       txEntry.RaceClass,
		})
	})
	if err != nil {
		s.logFailure(ctx, domain.ScanEngineReplace, cmd.ReplacementSerial, cmd.ReplacementSerial, cmd.ScannedBy, entry, driver, err)
		return application.FromDomainError(err)
	}
	return nil
}

// AssignTransponder records a transponder serial on an entry. Transponders
// are not pooled; there is no cross-entry guard.
func (s *EquipmentService) AssignTransponder(ctx context.Context, cmd AssignTransponderCommand) error {
	return s.simpleMutation(ctx, cmd.EntryID, domain.ScanTransponderAssign, cmd.TicketBarcode, cmd.TransponderSerial, cmd.ScannedBy, "",
		func(entry *domain.RaceEntry) error {
			return entry.AssignTransponder(cmd.TransponderSerial, time.Now())
		})
}

// RegisterTyres records the four serials of the issued tyre set.
func (s *EquipmentService) RegisterTyres(ctx context.Context, cmd RegisterTyresCommand) error {
	serials := cmd.FrontLeft + "," + cmd.FrontRight + "," + cmd.RearLeft + "," + cmd.RearRight
	return s.simpleMutation(ctx, cmd.EntryID, domain.ScanTyresRegister, cmd.TicketBarcode, serials, cmd.ScannedBy, "",
		func(entry *domain.RaceEntry) error {
			return entry.RegisterTyres(cmd.FrontLeft, cmd.FrontRight, cmd.RearLeft, cmd.RearRight, time.Now())
		})
}

// CollectFuel marks the fuel allocation as handed out.
func (s *EquipmentService) CollectFuel(ctx context.Context, cmd CollectFuelCommand) error {
	return s.simpleMutation(ctx, cmd.EntryID, domain.ScanFuelCollect, cmd.TicketBarcode, "", cmd.ScannedBy, "",
		func(entry *domain.RaceEntry) error {
			entry.CollectFuel(time.Now())
			return nil
		})
}

// LookupByRaceNumber returns the most recent entry for a race number, used
// at scrutineering to verify mounted tyres against the issued set.
func (s *EquipmentService) LookupByRaceNumber(ctx context.Context, raceNumber string) (*LookupResult, error) {
	entry, err := s.store.Entries().FindLatestByRaceNumber(ctx, raceNumber)
	if err != nil {
		return nil, application.FromDomainError(err)
	}
	driver, err := s.store.Drivers().FindByID(ctx, entry.DriverID)
	if err != nil {
		return nil, application.FromDomainError(err)
	}
	return &LookupResult{Entry: entry, Driver: driver, DriverName: driver.FullName()}, nil
}

// EquipmentByDriver lists a driver's entries with their equipment slots.
func (s *EquipmentService) EquipmentByDriver(ctx context.Context, driverID string) ([]*domain.RaceEntry, error) {
	entries, err := s.store.Entries().FindByDriver(ctx, driverID)
	if err != nil {
		return nil, application.FromDomainError(err)
	}
	return entries, nil
}

// EquipmentByItem lists entries that selected a given rental kind.
func (s *EquipmentService) EquipmentByItem(ctx context.Context, item domain.RentalItem) ([]*domain.RaceEntry, error) {
	if !item.Valid() {
		return nil, application.NewValidationError("unknown equipment item")
	}
	entries, err := s.store.Entries().FindWithItem(ctx, item)
	if err != nil {
		return nil, application.FromDomainError(err)
	}
	return entries, nil
}

// EngineHistory returns the scan-log trail for an engine serial.
func (s *EquipmentService) EngineHistory(ctx context.Context, serial string) ([]*domain.ScanRecord, error) {
	records, err := s.store.ScanLog().ListByEngineSerial(ctx, serial)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	return records, nil
}

// guardEngineFree fails with a conflict naming the current holder when the
// serial is assigned and not yet returned to a different entry.
func (s *EquipmentService) guardEngineFree(ctx context.Context, tx application.Store, serial, entryID string) error {
	holder, err := tx.Entries().FindActiveEngineHolderForUpdate(ctx, serial)
	if err != nil {
		if domain.IsErrorCode(err, domain.ErrCodeEntryNotFound) {
			return nil
		}
		return err
	}
	if holder.EntryID == entryID {
		return nil
	}
	holderDriver, err := tx.Drivers().FindByID(ctx, holder.DriverID)
	if err != nil {
		return err
	}
	return domain.NewEquipmentConflictError(serial, holderDriver.FullName())
}

func (s *EquipmentService) simpleMutation(
	ctx context.Context,
	entryID string,
	scanType domain.ScanType,
	barcode, serial, scannedBy, notes string,
	mutate func(*domain.RaceEntry) error,
) error {
	entry, driver, err := s.loadEntryDriver(ctx, entryID)
	if err != nil {
		return err
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		txEntry, txErr := tx.Entries().FindByIDForUpdate(ctx, entryID)
		if txErr != nil {
			return txErr
		}
		if txErr := mutate(txEntry); txErr != nil {
			return txErr
		}
		if txErr := tx.Entries().Update(ctx, txEntry); txErr != nil {
			return txErr
		}
		return s.appendScanTx(ctx, tx, &domain.ScanRecord{
			ScanType:        scanType,
			BarcodeScanned:  barcode,
			EntryID:         txEntry.EntryID,
			DriverID:        driver.DriverID,
			DriverName:      driver.FullName(),
			EquipmentSerial: serial,
			ScannedBy:       scannedBy,
			ActionResult:    domain.ScanResultSuccess,
			Notes:           notes,
			EventID:         txEntry.EventID,
			RaceClass:       txEntry.RaceClass,
		})
	})
	if err != nil {
		s.logFailure(ctx, scanType, barcode, serial, scannedBy, entry, driver, err)
		return application.FromDomainError(err)
	}
	return nil
}

func (s *EquipmentService) loadEntryDriver(ctx context.Context, entryID string) (*domain.RaceEntry, *domain.Driver, error) {
	entry, err := s.store.Entries().FindByID(ctx, entryID)
	if err != nil {
		return nil, nil, application.FromDomainError(err)
	}
	driver, err := s.store.Drivers().FindByID(ctx, entry.DriverID)
	if err != nil {
		return nil, nil, application.FromDomainError(err)
	}
	return entry, driver, nil
}

func (s *EquipmentService) appendScanTx(ctx context.Context, tx application.Store, record *domain.ScanRecord) error {
	record.ScanID = uuid.New().String()
	record.ScannedAt = time.Now()
	return tx.ScanLog().Append(ctx, record)
}

// appendScan writes a scan row outside any transaction; used for reads and
// for failure rows, which must survive the rolled-back transaction.
func (s *EquipmentService) appendScan(ctx context.Context, store application.Store, record *domain.ScanRecord) {
	record.ScanID = uuid.New().String()
	record.ScannedAt = time.Now()
	if err := store.ScanLog().Append(ctx, record); err != nil {
		s.logger.Error("failed to append scan log", "error", err, "scan_type", record.ScanType)
	}
}

func (s *EquipmentService) logFailure(
	ctx context.Context,
	scanType domain.ScanType,
	barcode, serial, scannedBy string,
	entry *domain.RaceEntry,
	driver *domain.Driver,
	cause error,
) {
	record := &domain.ScanRecord{
		ScanType:        scanType,
		BarcodeScanned:  barcode,
		EquipmentSerial: serial,
		ScannedBy:       scannedBy,
		ActionResult:    domain.ScanResultFailure,
		Notes:           cause.Error(),
	}
	if entry != nil {
		record.EntryID = entry.EntryID
		record.EventID = entry.EventID
		record.RaceClass = entry.RaceClass
	}
	if driver != nil {
		record.DriverID = driver.DriverID
		record.DriverName = driver.FullName()
	}
	s.appendScan(ctx, s.store, record)
}
