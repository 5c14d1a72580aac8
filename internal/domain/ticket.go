package domain

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// Ticket refs are short, human-readable, type-prefixed barcodes printed on
// the rental tickets. The four-digit suffix is random, not sequential:
// uniqueness over a race weekend is statistical, and callers inserting refs
// must tolerate the occasional retry if a constraint ever rejects one.
const (
	TicketPrefixEngine      = "ENG"
	TicketPrefixTyres       = "TYR"
	TicketPrefixTransponder = "TX"
	TicketPrefixFuel        = "GAS"
)

// barcodePayloadLen is the tail of the entry reference encoded into the
// Code 39 barcode on the race ticket.
const barcodePayloadLen = 12

func ticketPrefix(item RentalItem) string {
	switch item {
	case RentalEngine:
		return TicketPrefixEngine
	case RentalTyres:
		return TicketPrefixTyres
	case RentalTransponder:
		return TicketPrefixTransponder
	case RentalFuel:
		return TicketPrefixFuel
	}
	return ""
}

// NewItemTicketRef produces a ticket ref like "ENG4821" for one rental item.
func NewItemTicketRef(item RentalItem) string {
	prefix := ticketPrefix(item)
	if prefix == "" {
		return ""
	}
	return fmt.Sprintf("%s%04d", prefix, rand.Intn(10000))
}

// RentalItemForBarcode resolves a scanned barcode back to its rental kind by
// prefix.
func RentalItemForBarcode(barcode string) (RentalItem, error) {
	switch {
	case strings.HasPrefix(barcode, TicketPrefixEngine):
		return RentalEngine, nil
	case strings.HasPrefix(barcode, TicketPrefixTyres):
		return RentalTyres, nil
	case strings.HasPrefix(barcode, TicketPrefixFuel):
		return RentalFuel, nil
	case strings.HasPrefix(barcode, TicketPrefixTransponder):
		return RentalTransponder, nil
	}
	return "", NewUnknownBarcodeError(barcode)
}

// NewRaceEntryRef builds the reference round-tripped through the payment
// gateway and used to find the pending entry when the notification lands.
func NewRaceEntryRef(eventID, driverID string, now time.Time) string {
	return fmt.Sprintf("RACE-%s-%s-%d", eventID, driverID, now.UnixMilli())
}

// NewTeamEntryRef marks entries created through a team code; they never see
// the gateway but keep the same reference shape for the officials portal.
func NewTeamEntryRef(eventID, driverID string, now time.Time) string {
	return fmt.Sprintf("RACE-TEAM-%s-%s-%d", eventID, driverID, now.UnixMilli())
}

// NewPoolRentalRef builds the reference for a season engine rental payment.
func NewPoolRentalRef(class, engineType, driverID string, now time.Time) string {
	return fmt.Sprintf("POOL-%s-%s-%s-%d", class, engineType, driverID, now.UnixMilli())
}

// BarcodePayload returns the portion of an entry reference encoded into the
// Code 39 barcode (the last 12 characters; short refs are used whole).
func BarcodePayload(entryRef string) string {
	if len(entryRef) <= barcodePayloadLen {
		return entryRef
	}
	return entryRef[len(entryRef)-barcodePayloadLen:]
}

// ReferenceKind distinguishes the two payment flows on the notification path.
type ReferenceKind int

const (
	RefKindRace ReferenceKind = iota
	RefKindPool
)

// ParsedReference is the result of decomposing a round-tripped payment
// reference.
type ParsedReference struct {
	Kind       ReferenceKind
	EventID    string
	DriverID   string
	Class      string
	EngineType string
	Raw        string
}

// ParseReference decomposes "RACE-<event>-<driver>-<ts>" and
// "POOL-<class>-<type>-<driver>-<ts>" references. Event and driver IDs are
// UUIDs, which themselves contain dashes, so parsing anchors on the fixed
// segment counts from the ends.
func ParseReference(ref string) (*ParsedReference, error) {
	switch {
	case strings.HasPrefix(ref, "RACE-TEAM-"):
		rest := strings.TrimPrefix(ref, "RACE-TEAM-")
		eventID, driverID, ok := splitUUIDPair(rest)
		if !ok {
			return nil, NewBadReferenceError(ref)
		}
		return &ParsedReference{Kind: RefKindRace, EventID: eventID, DriverID: driverID, Raw: ref}, nil

	case strings.HasPrefix(ref, "RACE-"):
		rest := strings.TrimPrefix(ref, "RACE-")
		eventID, driverID, ok := splitUUIDPair(rest)
		if !ok {
			return nil, NewBadReferenceError(ref)
		}
		return &ParsedReference{Kind: RefKindRace, EventID: eventID, DriverID: driverID, Raw: ref}, nil

	case strings.HasPrefix(ref, "POOL-"):
		rest := strings.TrimPrefix(ref, "POOL-")
		parts := strings.Split(rest, "-")
		// class, type, uuid (5 dash-separated groups), timestamp
		if len(parts) < 8 {
			return nil, NewBadReferenceError(ref)
		}
		class := parts[0]
		engineType := parts[1]
		driverID := strings.Join(parts[2:7], "-")
		if !looksLikeUUID(driverID) {
			return nil, NewBadReferenceError(ref)
		}
		return &ParsedReference{
			Kind:       RefKindPool,
			Class:      class,
			EngineType: engineType,
			DriverID:   driverID,
			Raw:        ref,
		}, nil
	}
	return nil, NewBadReferenceError(ref)
}

// splitUUIDPair splits "<uuid>-<uuid>-<timestamp>".
func splitUUIDPair(s string) (first, second string, ok bool) {
	parts := strings.Split(s, "-")
	if len(parts) < 11 {
		return "", "", false
	}
	first = strings.Join(parts[0:5], "-")
	second = strings.Join(parts[5:10], "-")
	if !looksLikeUUID(first) || !looksLikeUUID(second) {
		return "", "", false
	}
	return first, second, true
}

func looksLikeUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	for i, r := range s {
		switch i {
		case 8, 13, 18, 23:
			if r != '-' {
				return false
			}
		default:
			isHex := (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
			if !isHex {
				return false
			}
		}
	}
	return true
}
