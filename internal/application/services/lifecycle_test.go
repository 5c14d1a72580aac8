package services_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/application/services"
	"github.com/rokthenats/karting-registry/internal/application/services/testhelpers"
	"github.com/rokthenats/karting-registry/internal/domain"
)

type LifecycleServiceTestSuite struct {
	suite.Suite
	store   *testhelpers.MemStore
	mailer  *testhelpers.RecordingMailer
	service *services.LifecycleService
	driver  *domain.Driver
	event   *domain.Event
}

func TestLifecycleServiceSuite(t *testing.T) {
	suite.Run(t, new(LifecycleServiceTestSuite))
}

func (s *LifecycleServiceTestSuite) SetupTest() {
	s.store = testhelpers.NewMemStore()
	s.mailer = &testhelpers.RecordingMailer{}
	s.service = services.NewLifecycleService(s.store, s.mailer, testhelpers.RacingConfig(), slog.Default())
	s.driver = testhelpers.SeedDriver(s.store, "anna@example.com")
	s.event = testhelpers.SeedEvent(s.store, time.Now().Add(240*time.Hour))
}

func (s *LifecycleServiceTestSuite) seedPending() *domain.RaceEntry {
	t := s.T()
	entry, err := domain.NewPendingEntry(
		"22222222-2222-2222-2222-222222222222",
		s.event.EventID, s.driver.DriverID,
		domain.NewRaceEntryRef(s.event.EventID, s.driver.DriverID, time.Now()),
		"KZ2", "14",
		[]domain.RentalItem{domain.RentalEngine},
		295000,
		time.Now(),
	)
	require.NoError(t, err)
	require.NoError(t, s.store.Entries().Create(context.Background(), entry))
	return entry
}

func (s *LifecycleServiceTestSuite) Test_Reconcile_ByEntryID() {
	ctx := context.Background()
	t := s.T()
	entry := s.seedPending()

	got, err := s.service.Reconcile(ctx, services.ReconcileCommand{
		EntryID:    entry.EntryID,
		AmountPaid: "R 2 950,00",
		Actor:      "admin:lindiwe",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryConfirmed, got.EntryStatus)
	assert.Equal(t, domain.Cents(295000), got.AmountPaid)

	require.Len(t, s.store.Audits, 1)
	assert.Equal(t, "admin:lindiwe", s.store.Audits[0].Actor)
	assert.Equal(t, "payment_completed", s.store.Audits[0].Action)
}

func (s *LifecycleServiceTestSuite) Test_Reconcile_ByEntryIDIsIdempotent() {
	ctx := context.Background()
	t := s.T()
	entry := s.seedPending()

	cmd := services.ReconcileCommand{EntryID: entry.EntryID, AmountPaid: "2950.00", Actor: "admin"}
	_, err := s.service.Reconcile(ctx, cmd)
	require.NoError(t, err)

	// Second run with a different amount changes nothing.
	cmd.AmountPaid = "9999.99"
	got, err := s.service.Reconcile(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.Cents(295000), got.AmountPaid)
	assert.Len(t, s.store.Audits, 1)
}

func (s *LifecycleServiceTestSuite) Test_Reconcile_ByReferenceFallsBackToInsert() {
	ctx := context.Background()
	t := s.T()
	reference := domain.NewRaceEntryRef(s.event.EventID, s.driver.DriverID, time.Now())

	got, err := s.service.Reconcile(ctx, services.ReconcileCommand{
		PaymentReference: reference,
		AmountPaid:       "2950.00",
		Actor:            "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, reference, got.PaymentReference)
	assert.Equal(t, domain.EntryConfirmed, got.EntryStatus)
	assert.Len(t, s.store.EntriesByID, 1)
}

func (s *LifecycleServiceTestSuite) Test_Reconcile_RejectsPoolRentalReference() {
	ctx := context.Background()
	t := s.T()
	reference := domain.NewPoolRentalRef("KZ2", "TM", s.driver.DriverID, time.Now())

	_, err := s.service.Reconcile(ctx, services.ReconcileCommand{
		PaymentReference: reference,
		AmountPaid:       "15000.00",
		Actor:            "admin",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool rental references are settled by the gateway notification")
	assert.Empty(t, s.store.EntriesByID)
}

func (s *LifecycleServiceTestSuite) Test_Reconcile_RequiresIDOrReference() {
	_, err := s.service.Reconcile(context.Background(), services.ReconcileCommand{AmountPaid: "100.00"})
	require.Error(s.T(), err)
	_, ok := application.IsServiceError(err)
	assert.True(s.T(), ok)
}

func (s *LifecycleServiceTestSuite) Test_RegisterFreeEntry_ValidTeamCode() {
	ctx := context.Background()
	t := s.T()

	entry, err := s.service.RegisterFreeEntry(ctx, services.FreeEntryCommand{
		DriverID:  s.driver.DriverID,
		EventID:   s.event.EventID,
		RaceClass: "KZ2",
		TeamCode:  "TEAM-ROK-01",
		Items:     []string{"Engine Rental"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryConfirmed, entry.EntryStatus)
	assert.Equal(t, domain.Cents(0), entry.AmountPaid)
	assert.True(t, strings.HasPrefix(entry.PaymentReference, "RACE-TEAM-"))
	assert.NotEmpty(t, entry.TicketEngineRef)

	// Tickets go out immediately; there is no payment round trip.
	assert.Len(t, s.mailer.SentTo("anna@example.com"), 1)
}

func (s *LifecycleServiceTestSuite) Test_RegisterFreeEntry_RejectsUnknownCode() {
	_, err := s.service.RegisterFreeEntry(context.Background(), services.FreeEntryCommand{
		DriverID:  s.driver.DriverID,
		EventID:   s.event.EventID,
		RaceClass: "KZ2",
		TeamCode:  "TEAM-NOPE",
	})
	require.Error(s.T(), err)
	assert.Empty(s.T(), s.store.EntriesByID)
	assert.Empty(s.T(), s.mailer.Sent)
}

func (s *LifecycleServiceTestSuite) Test_ManualInsert_CreatesConfirmedEntry() {
	ctx := context.Background()
	t := s.T()

	entry, err := s.service.ManualInsert(ctx, services.ManualEntryCommand{
		DriverID:  s.driver.DriverID,
		EventID:   s.event.EventID,
		RaceClass: "KZ2",
		Items:     []string{"Race Tyres"},
		Actor:     "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.EntryConfirmed, entry.EntryStatus)
	assert.Empty(t, entry.PaymentReference)
	assert.Equal(t, "14", entry.RaceNumber) // falls back to the driver's number
	assert.Equal(t, []domain.RentalItem{domain.RentalTyres}, entry.EntryItems)
}

func (s *LifecycleServiceTestSuite) Test_ManualInsert_RejectsSecondManualEntry() {
	ctx := context.Background()
	t := s.T()

	cmd := services.ManualEntryCommand{
		DriverID:  s.driver.DriverID,
		EventID:   s.event.EventID,
		RaceClass: "KZ2",
		Actor:     "admin",
	}
	_, err := s.service.ManualInsert(ctx, cmd)
	require.NoError(t, err)

	_, err = s.service.ManualInsert(ctx, cmd)
	require.Error(t, err)
	assert.Len(t, s.store.EntriesByID, 1)
}

func (s *LifecycleServiceTestSuite) Test_ManualInsert_AllowedAlongsideGatewayEntry() {
	ctx := context.Background()
	t := s.T()
	s.seedPending()

	_, err := s.service.ManualInsert(ctx, services.ManualEntryCommand{
		DriverID:  s.driver.DriverID,
		EventID:   s.event.EventID,
		RaceClass: "KZ2",
		Actor:     "admin",
	})
	require.NoError(t, err)
	assert.Len(t, s.store.EntriesByID, 2)
}

func (s *LifecycleServiceTestSuite) Test_SoftCancel_ResetsFlagsWhenLastActiveEntry() {
	ctx := context.Background()
	t := s.T()
	entry := s.seedPending()
	s.driver.NextRaceEntryStatus = "entered"
	s.driver.NextRaceEngineRentalStatus = "rented"

	require.NoError(t, s.service.SoftCancel(ctx, entry.EntryID, "admin"))

	assert.Equal(t, domain.EntryCancelled, s.store.EntriesByID[entry.EntryID].EntryStatus)
	assert.Empty(t, s.driver.NextRaceEntryStatus)
	assert.Empty(t, s.driver.NextRaceEngineRentalStatus)

	require.Len(t, s.store.Audits, 1)
	assert.Equal(t, "entry_cancelled", s.store.Audits[0].Action)
}

func (s *LifecycleServiceTestSuite) Test_SoftCancel_TwiceIsIdempotent() {
	ctx := context.Background()
	t := s.T()
	entry := s.seedPending()

	require.NoError(t, s.service.SoftCancel(ctx, entry.EntryID, "admin"))
	require.NoError(t, s.service.SoftCancel(ctx, entry.EntryID, "admin"))
	assert.Len(t, s.store.Audits, 1)
}

func (s *LifecycleServiceTestSuite) Test_UpdateEntry_AuditsEveryChangedField() {
	ctx := context.Background()
	t := s.T()
	entry := s.seedPending()

	newClass := "OK"
	newNumber := "77"
	newAmount := "3100.00"
	got, err := s.service.UpdateEntry(ctx, services.UpdateEntryCommand{
		EntryID:    entry.EntryID,
		RaceClass:  &newClass,
		RaceNumber: &newNumber,
		AmountPaid: &newAmount,
		Actor:      "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, "OK", got.RaceClass)
	assert.Equal(t, "77", got.RaceNumber)
	assert.Equal(t, domain.Cents(310000), got.AmountPaid)

	require.Len(t, s.store.Audits, 3)
	fields := []string{s.store.Audits[0].FieldName, s.store.Audits[1].FieldName, s.store.Audits[2].FieldName}
	assert.ElementsMatch(t, []string{"race_class", "race_number", "amount_paid"}, fields)
}

func (s *LifecycleServiceTestSuite) Test_UpdateEntry_NoChangesNoAudit() {
	ctx := context.Background()
	t := s.T()
	entry := s.seedPending()

	sameClass := entry.RaceClass
	_, err := s.service.UpdateEntry(ctx, services.UpdateEntryCommand{
		EntryID:   entry.EntryID,
		RaceClass: &sameClass,
		Actor:     "admin",
	})
	require.NoError(t, err)
	assert.Empty(t, s.store.Audits)
}

func (s *LifecycleServiceTestSuite) Test_UpdateAndResend_KeepsExistingRefs() {
	ctx := context.Background()
	t := s.T()
	entry := s.seedPending()
	engineRef := entry.TicketEngineRef
	require.NotEmpty(t, engineRef)

	got, err := s.service.UpdateAndResend(ctx, services.UpdateAndResendCommand{
		EntryID: entry.EntryID,
		Items:   []string{"Engine Rental", "Race Tyres"},
		Actor:   "admin",
	})
	require.NoError(t, err)

	// The engine ticket may already be printed; only the new item gets a ref.
	assert.Equal(t, engineRef, got.TicketEngineRef)
	assert.NotEmpty(t, got.TicketTyresRef)
	assert.Len(t, s.mailer.SentTo("anna@example.com"), 1)
}

func (s *LifecycleServiceTestSuite) Test_ResendTickets_UnknownEntry() {
	err := s.service.ResendTickets(context.Background(), "nope")
	require.Error(s.T(), err)
	assert.Empty(s.T(), s.mailer.Sent)
}
