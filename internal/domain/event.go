package domain

import "time"

type Event struct {
	EventID              string
	Name                 string
	StartDate            time.Time
	EndDate              time.Time
	Location             string
	EntryFee             Cents
	RegistrationDeadline time.Time
	RegistrationOpen     bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// RegionalRaceDates is the configured set of calendar dates on which
// season-pass engine substitution does not apply: regional rounds run their
// own engine pools, so the engine charge stays even for season-pass holders.
type RegionalRaceDates map[string]struct{}

const regionalDateLayout = "2006-01-02"

func NewRegionalRaceDates(dates []string) RegionalRaceDates {
	set := make(RegionalRaceDates, len(dates))
	for _, d := range dates {
		if t, err := time.Parse(regionalDateLayout, d); err == nil {
			set[t.Format(regionalDateLayout)] = struct{}{}
		}
	}
	return set
}

// IsRegional reports whether the event's start date is a regional round.
func (r RegionalRaceDates) IsRegional(eventStart time.Time) bool {
	_, ok := r[eventStart.Format(regionalDateLayout)]
	return ok
}
