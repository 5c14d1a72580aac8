package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rokthenats/karting-registry/internal/domain"
	"github.com/rokthenats/karting-registry/internal/infrastructure/persistence"
)

type ScanLogRepository struct {
	q persistence.Executor
}

func (r *ScanLogRepository) Append(ctx context.Context, record *domain.ScanRecord) error {
	query := `
		INSERT INTO equipment_scan_log (
			scan_id, scanned_at, scan_type, barcode_scanned, entry_id, driver_id,
			driver_name, equipment_serial, scanned_by, action_result, notes,
			event_id, race_class
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.Exec(ctx, query,
		record.ScanID,
		record.ScannedAt,
		string(record.ScanType),
		record.BarcodeScanned,
		nullableID(record.EntryID),
		nullableID(record.DriverID),
		record.DriverName,
		record.EquipmentSerial,
		record.ScannedBy,
		record.ActionResult,
		record.Notes,
		nullableID(record.EventID),
		record.RaceClass,
	)
	if err != nil {
		return fmt.Errorf("failed to append scan log: %w", err)
	}
	return nil
}

func (r *ScanLogRepository) ListByEngineSerial(ctx context.Context, serial string) ([]*domain.ScanRecord, error) {
	query := `
		SELECT scan_id, scanned_at, scan_type, barcode_scanned, entry_id, driver_id,
		       driver_name, equipment_serial, scanned_by, action_result, notes,
		       event_id, race_class
		FROM equipment_scan_log
		WHERE equipment_serial = $1
		ORDER BY scanned_at
	`

	rows, err := r.q.Query(ctx, query, serial)
	if err != nil {
		return nil, fmt.Errorf("query scan log: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.ScanRecord, error) {
		var rec domain.ScanRecord
		var scanType string
		var entryID, driverID, eventID *string
		err := row.Scan(
			&rec.ScanID, &rec.ScannedAt, &scanType, &rec.BarcodeScanned, &entryID, &driverID,
			&rec.DriverName, &rec.EquipmentSerial, &rec.ScannedBy, &rec.ActionResult, &rec.Notes,
			&eventID, &rec.RaceClass,
		)
		rec.ScanType = domain.ScanType(scanType)
		rec.EntryID = deref(entryID)
		rec.DriverID = deref(driverID)
		rec.EventID = deref(eventID)
		return &rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan scan log rows: %w", err)
	}
	return results, nil
}

// nullableID maps the domain's empty-string IDs onto NULL UUID columns.
func nullableID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
