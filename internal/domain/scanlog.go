package domain

import "time"

// ScanType labels each equipment-scan operation in the audit trail.
type ScanType string

const (
	ScanLookup            ScanType = "lookup"
	ScanEngineAssign      ScanType = "engine_assign"
	ScanEngineReturn      ScanType = "engine_return"
	ScanEngineIssue       ScanType = "engine_issue"
	ScanEngineReplace     ScanType = "engine_replace"
	ScanTransponderAssign ScanType = "transponder_assign"
	ScanTyresRegister     ScanType = "tyres_register"
	ScanFuelCollect       ScanType = "fuel_collect"
)

const (
	ScanResultSuccess = "success"
	ScanResultFailure = "failure"
)

// ScanRecord is one append-only row in the equipment scan log. Driver name,
// class and event are denormalized so the trail stays readable after entries
// are edited.
type ScanRecord struct {
	ScanID          string
	ScannedAt       time.Time
	ScanType        ScanType
	BarcodeScanned  string
	EntryID         string
	DriverID        string
	DriverName      string
	EquipmentSerial string
	ScannedBy       string
	ActionResult    string
	Notes           string
	EventID         string
	RaceClass       string
}

// AuditRecord is one append-only field-level change on a driver or entry.
type AuditRecord struct {
	AuditID   string
	DriverID  string
	Actor     string
	Action    string
	FieldName string
	OldValue  string
	NewValue  string
	CreatedAt time.Time
}
