// Package domain encodes the driver registry's entities: race entries and
// their payment state machine, drivers, events, rentals and ticket refs.
package domain

import (
	"time"

	"github.com/samber/lo"
)

// PaymentStatus mirrors the gateway-facing payment state of an entry.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "Pending"
	PaymentCompleted PaymentStatus = "Completed"
	PaymentCancelled PaymentStatus = "Cancelled"
)

// EntryStatus is the registry-facing state of an entry.
type EntryStatus string

const (
	EntryPendingPayment EntryStatus = "pending_payment"
	EntryConfirmed      EntryStatus = "confirmed"
	EntryCancelled      EntryStatus = "cancelled"
)

// entryEvent drives the transition table below.
type entryEvent string

const (
	eventComplete entryEvent = "complete"
	eventCancel   entryEvent = "cancel"
)

// entryTransitions is the full transition graph. Anything not listed is an
// invalid transition.
var entryTransitions = map[EntryStatus]map[entryEvent]EntryStatus{
	EntryPendingPayment: {
		eventComplete: EntryConfirmed,
		eventCancel:   EntryCancelled,
	},
	EntryConfirmed: {
		eventCancel: EntryCancelled,
	},
}

// RaceEntry ties one driver to one event, with at most one payment
// reference. Ticket refs are frozen at creation and never regenerated;
// equipment slots are filled by the officials portal during the race
// weekend.
type RaceEntry struct {
	EntryID          string
	EventID          string
	DriverID         string
	PaymentReference string
	RaceClass        string
	RaceNumber       string
	EntryItems       []RentalItem
	AmountPaid       Cents
	PaymentStatus    PaymentStatus
	EntryStatus      EntryStatus

	TicketEngineRef      string
	TicketTyresRef       string
	TicketTransponderRef string
	TicketFuelRef        string

	EngineSerial         string
	EngineAssignedAt     *time.Time
	EngineReturned       bool
	EngineReturnedAt     *time.Time
	EngineIssue          string
	EngineReplacementFor string

	TransponderSerial     string
	TransponderAssignedAt *time.Time

	TyreFL            string
	TyreFR            string
	TyreRL            string
	TyreRR            string
	TyresRegisteredAt *time.Time

	FuelCollected   bool
	FuelCollectedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPendingEntry creates the row inserted at payment initiation. Ticket
// refs for every selected rental are computed here, once.
func NewPendingEntry(
	entryID, eventID, driverID, paymentReference, raceClass, raceNumber string,
	items []RentalItem,
	amount Cents,
	now time.Time,
) (*RaceEntry, error) {
	if entryID == "" {
		return nil, NewMissingFieldError("entry ID")
	}
	if eventID == "" {
		return nil, NewMissingFieldError("event ID")
	}
	if driverID == "" {
		return nil, NewMissingFieldError("driver ID")
	}
	if paymentReference == "" {
		return nil, NewMissingFieldError("payment reference")
	}

	e := &RaceEntry{
		EntryID:          entryID,
		EventID:          eventID,
		DriverID:         driverID,
		PaymentReference: paymentReference,
		RaceClass:        raceClass,
		RaceNumber:       raceNumber,
		EntryItems:       items,
		AmountPaid:       amount,
		PaymentStatus:    PaymentPending,
		EntryStatus:      EntryPendingPayment,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	e.EnsureTicketRefs()
	return e, nil
}

// NewConfirmedEntry creates an entry that is confirmed from the start: the
// free/team-code path, admin manual inserts, and the notification fallback
// when no pending row exists.
func NewConfirmedEntry(
	entryID, eventID, driverID, paymentReference, raceClass, raceNumber string,
	items []RentalItem,
	amountPaid Cents,
	now time.Time,
) (*RaceEntry, error) {
	e, err := NewPendingEntry(entryID, eventID, driverID, paymentReference, raceClass, raceNumber, items, amountPaid, now)
	if err != nil {
		return nil, err
	}
	e.PaymentStatus = PaymentCompleted
	e.EntryStatus = EntryConfirmed
	return e, nil
}

// NewManualEntry is the admin "add entry" path: confirmed immediately,
// nothing paid, no payment reference. Ticket refs are generated now.
func NewManualEntry(
	entryID, eventID, driverID, raceClass, raceNumber string,
	items []RentalItem,
	now time.Time,
) (*RaceEntry, error) {
	if entryID == "" {
		return nil, NewMissingFieldError("entry ID")
	}
	if eventID == "" {
		return nil, NewMissingFieldError("event ID")
	}
	if driverID == "" {
		return nil, NewMissingFieldError("driver ID")
	}

	e := &RaceEntry{
		EntryID:       entryID,
		EventID:       eventID,
		DriverID:      driverID,
		RaceClass:     raceClass,
		RaceNumber:    raceNumber,
		EntryItems:    items,
		AmountPaid:    0,
		PaymentStatus: PaymentCompleted,
		EntryStatus:   EntryConfirmed,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	e.EnsureTicketRefs()
	return e, nil
}

func (e *RaceEntry) transition(ev entryEvent) error {
	next, ok := entryTransitions[e.EntryStatus][ev]
	if !ok {
		return NewInvalidTransitionError(e.EntryStatus, EntryStatus(ev))
	}
	e.EntryStatus = next
	return nil
}

// Complete moves a pending entry to Completed/confirmed. Safe under
// duplicate notification delivery: completing an already-confirmed entry is
// a no-op and keeps the original amount.
func (e *RaceEntry) Complete(amountPaid Cents, now time.Time) error {
	if e.EntryStatus == EntryConfirmed && e.PaymentStatus == PaymentCompleted {
		return nil
	}
	if err := e.transition(eventComplete); err != nil {
		return err
	}
	e.PaymentStatus = PaymentCompleted
	e.AmountPaid = amountPaid
	e.UpdatedAt = now
	return nil
}

// Cancel soft-cancels the entry. Cancelling twice is a no-op.
func (e *RaceEntry) Cancel(now time.Time) error {
	if e.EntryStatus == EntryCancelled {
		return nil
	}
	if err := e.transition(eventCancel); err != nil {
		return err
	}
	e.PaymentStatus = PaymentCancelled
	e.UpdatedAt = now
	return nil
}

func (e *RaceEntry) Active() bool {
	return e.EntryStatus == EntryPendingPayment || e.EntryStatus == EntryConfirmed
}

func (e *RaceEntry) HasItem(item RentalItem) bool {
	return lo.Contains(e.EntryItems, item)
}

// TicketRef returns the frozen ticket ref for a rental item, or "".
func (e *RaceEntry) TicketRef(item RentalItem) string {
	switch item {
	case RentalEngine:
		return e.TicketEngineRef
	case RentalTyres:
		return e.TicketTyresRef
	case RentalTransponder:
		return e.TicketTransponderRef
	case RentalFuel:
		return e.TicketFuelRef
	}
	return ""
}

// EnsureTicketRefs fills the ticket-ref slot for every selected rental that
// has none yet. Existing refs are never replaced: tickets may already be
// printed.
func (e *RaceEntry) EnsureTicketRefs() {
	for _, item := range e.EntryItems {
		if e.TicketRef(item) != "" {
			continue
		}
		ref := NewItemTicketRef(item)
		switch item {
		case RentalEngine:
			e.TicketEngineRef = ref
		case RentalTyres:
			e.TicketTyresRef = ref
		case RentalTransponder:
			e.TicketTransponderRef = ref
		case RentalFuel:
			e.TicketFuelRef = ref
		}
	}
}

// AssignEngine records an engine going out to this entry. The cross-entry
// uniqueness guard lives in the scan service, inside the same transaction as
// this write.
func (e *RaceEntry) AssignEngine(serial string, now time.Time) error {
	if serial == "" {
		return NewMissingFieldError("engine serial")
	}
	e.EngineSerial = serial
	e.EngineAssignedAt = &now
	e.EngineReturned = false
	e.EngineReturnedAt = nil
	e.UpdatedAt = now
	return nil
}

func (e *RaceEntry) ReturnEngine(now time.Time) {
	e.EngineReturned = true
	e.EngineReturnedAt = &now
	e.UpdatedAt = now
}

// ReportEngineIssue returns the engine and records the issue text so the
// pool crew can pull the unit for inspection.
func (e *RaceEntry) ReportEngineIssue(issue string, now time.Time) {
	e.ReturnEngine(now)
	e.EngineIssue = issue
}

// ReplaceEngine assigns a replacement unit and remembers which serial it
// stands in for.
func (e *RaceEntry) ReplaceEngine(replacementSerial, returnedSerial string, now time.Time) error {
	if err := e.AssignEngine(replacementSerial, now); err != nil {
		return err
	}
	e.EngineReplacementFor = returnedSerial
	return nil
}

func (e *RaceEntry) AssignTransponder(serial string, now time.Time) error {
	if serial == "" {
		return NewMissingFieldError("transponder serial")
	}
	e.TransponderSerial = serial
	e.TransponderAssignedAt = &now
	e.UpdatedAt = now
	return nil
}

// RegisterTyres records the four serials of the issued set, front-left
// through rear-right. All four must be present.
func (e *RaceEntry) RegisterTyres(fl, fr, rl, rr string, now time.Time) error {
	if fl == "" || fr == "" || rl == "" || rr == "" {
		return NewMissingFieldError("all four tyre serials")
	}
	e.TyreFL, e.TyreFR, e.TyreRL, e.TyreRR = fl, fr, rl, rr
	e.TyresRegisteredAt = &now
	e.UpdatedAt = now
	return nil
}

func (e *RaceEntry) CollectFuel(now time.Time) {
	e.FuelCollected = true
	e.FuelCollectedAt = &now
	e.UpdatedAt = now
}
