package testhelpers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rokthenats/karting-registry/internal/config"
	"github.com/rokthenats/karting-registry/internal/domain"
)

// RecordingMailer captures outbound emails for assertions. FailWith makes
// every Send fail, for the "email failures never fail the request" tests.
type RecordingMailer struct {
	mu       sync.Mutex
	Sent     []SentEmail
	FailWith error
}

type SentEmail struct {
	To      string
	Subject string
	HTML    string
}

func (m *RecordingMailer) Send(ctx context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}
	m.Sent = append(m.Sent, SentEmail{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *RecordingMailer) SentTo(to string) []SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SentEmail
	for _, e := range m.Sent {
		if e.To == to {
			out = append(out, e)
		}
	}
	return out
}

// SeedDriver adds an active driver with a login email and returns it.
func SeedDriver(store *MemStore, email string) *domain.Driver {
	d := &domain.Driver{
		DriverID:   uuid.New().String(),
		FirstName:  "Anna",
		LastName:   "van der Merwe",
		Class:      "KZ2",
		RaceNumber: "14",
		Status:     domain.DriverActive,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	store.DriversByID[d.DriverID] = d
	store.LoginEmails[d.DriverID] = email
	return d
}

// SeedEvent adds an event starting on the given date.
func SeedEvent(store *MemStore, start time.Time) *domain.Event {
	e := &domain.Event{
		EventID:              uuid.New().String(),
		Name:                 "Round 4 Zwartkops",
		StartDate:            start,
		EndDate:              start.Add(48 * time.Hour),
		EntryFee:             295000,
		RegistrationDeadline: start.Add(-72 * time.Hour),
		RegistrationOpen:     true,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}
	store.EventsByID[e.EventID] = e
	return e
}

// GatewayConfig returns merchant credentials used across the service tests.
func GatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		MerchantID:  "10000100",
		MerchantKey: "46f0cd694581a",
		Passphrase:  "jt7NOE43FZPn",
		ProcessURL:  "https://sandbox.payfast.co.za/eng/process",
		ReturnURL:   "https://registry.example.com/return",
		CancelURL:   "https://registry.example.com/cancel",
		NotifyURL:   "https://registry.example.com/api/paymentNotify",
	}
}

// RacingConfig returns season settings with one regional date and a known
// team code.
func RacingConfig() config.RacingConfig {
	return config.RacingConfig{
		SeasonYear:           time.Now().Year(),
		RegionalRaceDates:    []string{"2026-03-14"},
		TeamCodes:            []string{"TEAM-ROK-01"},
		EngineRentalFeeCents: 150000,
	}
}
