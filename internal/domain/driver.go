package domain

import "time"

// DriverStatus follows the admin approval flow: registrations land as
// Pending until an admin activates them. Deleted is a soft state.
type DriverStatus string

const (
	DriverPending DriverStatus = "Pending"
	DriverActive  DriverStatus = "Active"
	DriverDeleted DriverStatus = "Deleted"
)

type Driver struct {
	DriverID          string
	FirstName         string
	LastName          string
	Championship      string
	Class             string
	RaceNumber        string
	TransponderNumber string
	Status            DriverStatus

	// SeasonEngineRental is set when a pool engine rental completes for the
	// current season; it suppresses per-event engine charges on non-regional
	// dates.
	SeasonEngineRental bool

	// Driver-portal banners. Reset when the driver's last active entry for
	// an event is cancelled.
	NextRaceEntryStatus        string
	NextRaceEngineRentalStatus string

	IsDeleted bool
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (d *Driver) FullName() string {
	return d.FirstName + " " + d.LastName
}

// Contact belongs to a driver; exactly one per driver is the login email.
type Contact struct {
	ContactID    string
	DriverID     string
	Name         string
	Email        string
	Phone        string
	Relationship string
	IsLogin      bool
	IsEmergency  bool
	HasConsented bool
	CreatedAt    time.Time
}
