package domain

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// RentalItem is the closed set of equipment a driver can rent with an entry.
type RentalItem string

const (
	RentalEngine      RentalItem = "engine"
	RentalTyres       RentalItem = "tyres"
	RentalTransponder RentalItem = "transponder"
	RentalFuel        RentalItem = "fuel"
)

// AllRentalItems in ticket-printing order.
var AllRentalItems = []RentalItem{RentalEngine, RentalTyres, RentalTransponder, RentalFuel}

func (r RentalItem) Valid() bool {
	return lo.Contains(AllRentalItems, r)
}

// MatchRentalItems maps free-form item labels from the entry form onto the
// closed rental set. Matching is case-insensitive substring matching: the
// labels come from a CMS and have drifted over the seasons ("Engine Rental",
// "Pool engine", "Race Tyres (set)").
func MatchRentalItems(labels []string) []RentalItem {
	var items []RentalItem
	for _, label := range labels {
		l := strings.ToLower(label)
		switch {
		case strings.Contains(l, "engine"), strings.Contains(l, "rental"):
			items = append(items, RentalEngine)
		case strings.Contains(l, "tyre"):
			items = append(items, RentalTyres)
		case strings.Contains(l, "transponder"):
			items = append(items, RentalTransponder)
		case strings.Contains(l, "fuel"):
			items = append(items, RentalFuel)
		}
	}
	return lo.Uniq(items)
}

// ParseItemDescription is the best-effort fallback used when a notification
// arrives for an entry we never saw: the gateway round-trips the original
// item description ("Race entry + Engine Rental + Race Tyres") and we
// reconstruct the rental set from it.
func ParseItemDescription(description string) []RentalItem {
	parts := strings.FieldsFunc(description, func(r rune) bool {
		return r == '+' || r == ',' || r == ';'
	})
	return MatchRentalItems(parts)
}

// PoolEngineRental is a season-long engine pass. A completed rental flips the
// driver's season flag, which suppresses per-event engine charges on
// non-regional race dates.
type PoolEngineRental struct {
	RentalID          string
	DriverID          string
	SeasonYear        int
	ChampionshipClass string
	EngineType        string
	PaymentReference  string
	AmountPaid        Cents
	PaymentStatus     PaymentStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
