package services_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rokthenats/karting-registry/internal/application/services"
	"github.com/rokthenats/karting-registry/internal/application/services/testhelpers"
	"github.com/rokthenats/karting-registry/internal/domain"
)

type InitiationServiceTestSuite struct {
	suite.Suite
	store   *testhelpers.MemStore
	mailer  *testhelpers.RecordingMailer
	service *services.InitiationService
}

func TestInitiationServiceSuite(t *testing.T) {
	suite.Run(t, new(InitiationServiceTestSuite))
}

func (s *InitiationServiceTestSuite) SetupTest() {
	s.store = testhelpers.NewMemStore()
	s.mailer = &testhelpers.RecordingMailer{}
	s.service = services.NewInitiationService(
		s.store,
		s.mailer,
		testhelpers.GatewayConfig(),
		testhelpers.RacingConfig(),
		slog.Default(),
	)
}

func (s *InitiationServiceTestSuite) Test_Initiate_CreatesPendingEntryWithTickets() {
	ctx := context.Background()
	t := s.T()
	driver := testhelpers.SeedDriver(s.store, "anna@example.com")
	event := testhelpers.SeedEvent(s.store, time.Date(2026, 4, 18, 8, 0, 0, 0, time.UTC))

	form, err := s.service.Initiate(ctx, services.InitiatePaymentCommand{
		DriverID:  driver.DriverID,
		EventID:   event.EventID,
		RaceClass: "KZ2",
		Email:     "anna@example.com",
		Amount:    "R 2 950,00",
		Items:     []string{"Engine Rental", "Race Tyres"},
	})
	require.NoError(t, err)

	require.Len(t, s.store.EntriesByID, 1)
	var entry *domain.RaceEntry
	for _, e := range s.store.EntriesByID {
		entry = e
	}

	assert.Equal(t, domain.EntryPendingPayment, entry.EntryStatus)
	assert.Equal(t, domain.PaymentPending, entry.PaymentStatus)
	assert.Equal(t, domain.Cents(295000), entry.AmountPaid)
	assert.Equal(t, []domain.RentalItem{domain.RentalEngine, domain.RentalTyres}, entry.EntryItems)
	assert.NotEmpty(t, entry.TicketEngineRef)
	assert.NotEmpty(t, entry.TicketTyresRef)
	assert.Contains(t, entry.PaymentReference, "RACE-"+event.EventID)

	// Auto-submitting form posts raw values plus the signature and the
	// round-tripped reference.
	assert.Contains(t, form, `name="signature"`)
	assert.Contains(t, form, `name="reference" value="`+entry.PaymentReference+`"`)
	assert.Contains(t, form, `value="2950.00"`)

	// Confirmation email with ticket barcodes goes out immediately.
	require.Len(t, s.mailer.Sent, 1)
	assert.Equal(t, "anna@example.com", s.mailer.Sent[0].To)
	assert.Contains(t, s.mailer.Sent[0].HTML, "data:image/png;base64,")
}

func (s *InitiationServiceTestSuite) Test_Initiate_SeasonPassSuppressesEngineCharge() {
	ctx := context.Background()
	t := s.T()
	driver := testhelpers.SeedDriver(s.store, "anna@example.com")
	driver.SeasonEngineRental = true
	// Not on the regional calendar, so the pass applies.
	event := testhelpers.SeedEvent(s.store, time.Date(2026, 4, 18, 8, 0, 0, 0, time.UTC))

	_, err := s.service.Initiate(ctx, services.InitiatePaymentCommand{
		DriverID: driver.DriverID,
		EventID:  event.EventID,
		Email:    "anna@example.com",
		Amount:   "R 2 950,00",
		Items:    []string{"Engine Rental"},
	})
	require.NoError(t, err)

	for _, entry := range s.store.EntriesByID {
		// 2950.00 minus the 1500.00 engine fee.
		assert.Equal(t, domain.Cents(145000), entry.AmountPaid)
		// Ticket ref stays: the entry still records "engine provided".
		assert.NotEmpty(t, entry.TicketEngineRef)
	}
}

func (s *InitiationServiceTestSuite) Test_Initiate_SeasonPassKeepsChargeWhenFeeCoversWholeAmount() {
	ctx := context.Background()
	t := s.T()
	driver := testhelpers.SeedDriver(s.store, "anna@example.com")
	driver.SeasonEngineRental = true
	event := testhelpers.SeedEvent(s.store, time.Date(2026, 4, 18, 8, 0, 0, 0, time.UTC))

	// Amount equals the 1500.00 engine fee: suppression would leave a
	// zero-rand payment, so the charge stands.
	_, err := s.service.Initiate(ctx, services.InitiatePaymentCommand{
		DriverID: driver.DriverID,
		EventID:  event.EventID,
		Email:    "anna@example.com",
		Amount:   "1500.00",
		Items:    []string{"Engine Rental"},
	})
	require.NoError(t, err)

	for _, entry := range s.store.EntriesByID {
		assert.Equal(t, domain.Cents(150000), entry.AmountPaid)
	}
}

func (s *InitiationServiceTestSuite) Test_Initiate_RegionalRoundKeepsEngineCharge() {
	ctx := context.Background()
	t := s.T()
	driver := testhelpers.SeedDriver(s.store, "anna@example.com")
	driver.SeasonEngineRental = true
	// 2026-03-14 is on the configured regional calendar.
	event := testhelpers.SeedEvent(s.store, time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC))

	_, err := s.service.Initiate(ctx, services.InitiatePaymentCommand{
		DriverID: driver.DriverID,
		EventID:  event.EventID,
		Email:    "anna@example.com",
		Amount:   "R 2 950,00",
		Items:    []string{"Engine Rental"},
	})
	require.NoError(t, err)

	for _, entry := range s.store.EntriesByID {
		assert.Equal(t, domain.Cents(295000), entry.AmountPaid)
	}
}

func (s *InitiationServiceTestSuite) Test_Initiate_RejectsBadInput() {
	ctx := context.Background()
	t := s.T()
	driver := testhelpers.SeedDriver(s.store, "anna@example.com")
	event := testhelpers.SeedEvent(s.store, time.Now().Add(240*time.Hour))

	_, err := s.service.Initiate(ctx, services.InitiatePaymentCommand{
		DriverID: driver.DriverID,
		EventID:  event.EventID,
		Email:    "anna@example.com",
		Amount:   "0.00",
	})
	require.Error(t, err)

	_, err = s.service.Initiate(ctx, services.InitiatePaymentCommand{
		DriverID: driver.DriverID,
		EventID:  event.EventID,
		Amount:   "100.00",
	})
	require.Error(t, err)

	_, err = s.service.Initiate(ctx, services.InitiatePaymentCommand{
		DriverID: "unknown",
		EventID:  event.EventID,
		Email:    "anna@example.com",
		Amount:   "100.00",
	})
	require.Error(t, err)

	assert.Empty(t, s.store.EntriesByID)
}

func (s *InitiationServiceTestSuite) Test_Initiate_EmailFailureDoesNotFailRequest() {
	ctx := context.Background()
	t := s.T()
	s.mailer.FailWith = context.DeadlineExceeded
	driver := testhelpers.SeedDriver(s.store, "anna@example.com")
	event := testhelpers.SeedEvent(s.store, time.Now().Add(240*time.Hour))

	form, err := s.service.Initiate(ctx, services.InitiatePaymentCommand{
		DriverID: driver.DriverID,
		EventID:  event.EventID,
		Email:    "anna@example.com",
		Amount:   "100.00",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, form)
	assert.Len(t, s.store.EntriesByID, 1)
}
