package services

// InitiatePaymentCommand carries the driver portal's payment form.
type InitiatePaymentCommand struct {
	DriverID  string
	EventID   string
	RaceClass string
	Email     string
	Amount    string   // locale formatted, e.g. "R 2 950,00"
	Items     []string // raw item labels from the entry form
}

// ReconcileCommand is the admin's manual stand-in for a webhook that never
// arrived. Either EntryID or PaymentReference identifies the entry.
type ReconcileCommand struct {
	EntryID          string
	PaymentReference string
	AmountPaid       string
	Actor            string
}

// FreeEntryCommand registers a team-code entry: no gateway round trip,
// confirmed at creation with a zero amount.
type FreeEntryCommand struct {
	DriverID  string
	EventID   string
	RaceClass string
	TeamCode  string
	Items     []string
}

// ManualEntryCommand is the admin "add entry" path.
type ManualEntryCommand struct {
	DriverID   string
	EventID    string
	RaceClass  string
	RaceNumber string
	Items      []string
	Actor      string
}

// UpdateEntryCommand applies field-level edits; every change lands in the
// audit log under Actor.
type UpdateEntryCommand struct {
	EntryID    string
	RaceClass  *string
	RaceNumber *string
	AmountPaid *string
	Actor      string
}

// UpdateAndResendCommand corrects an entry's rental set and amount, fills
// ticket refs for newly added items, and resends the confirmation email.
type UpdateAndResendCommand struct {
	EntryID    string
	Items      []string
	AmountPaid string
	Actor      string
}

// Equipment-scan commands. ScannedBy is the official operating the scanner.

type AssignEngineCommand struct {
	TicketBarcode string
	EngineSerial  string
	EntryID       string
	ScannedBy     string
}

type ReplaceEngineCommand struct {
	ReplacementSerial string
	ReturnedSerial    string
	EntryID           string
	ScannedBy         string
}

type AssignTransponderCommand struct {
	TicketBarcode     string
	TransponderSerial string
	EntryID           string
	ScannedBy         string
}

type RegisterTyresCommand struct {
	TicketBarcode string
	FrontLeft     string
	FrontRight    string
	RearLeft      string
	RearRight     string
	EntryID       string
	ScannedBy     string
}

type CollectFuelCommand struct {
	TicketBarcode string
	EntryID       string
	ScannedBy     string
}
