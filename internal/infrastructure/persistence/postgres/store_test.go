package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/application/services/testhelpers"
	"github.com/rokthenats/karting-registry/internal/domain"
	"github.com/rokthenats/karting-registry/internal/infrastructure/persistence/postgres"
)

type StoreIntegrationSuite struct {
	suite.Suite
	testDB   *testhelpers.TestDatabase
	store    *postgres.Store
	driverID string
	eventID  string
}

func TestStoreIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	suite.Run(t, new(StoreIntegrationSuite))
}

func (s *StoreIntegrationSuite) SetupSuite() {
	s.testDB = testhelpers.SetupTestDatabase(s.T())
	s.store = postgres.NewStore(s.testDB.DB)
}

func (s *StoreIntegrationSuite) TearDownSuite() {
	s.testDB.Cleanup(s.T())
}

func (s *StoreIntegrationSuite) SetupTest() {
	s.testDB.CleanTables(s.T())

	ctx := context.Background()
	s.driverID = uuid.New().String()
	s.eventID = uuid.New().String()

	_, err := s.testDB.DB.Pool.Exec(ctx, `
		INSERT INTO drivers (driver_id, first_name, last_name, class, race_number, status)
		VALUES ($1, 'Anna', 'van der Merwe', 'KZ2', '14', 'Active')`,
		s.driverID)
	require.NoError(s.T(), err)

	_, err = s.testDB.DB.Pool.Exec(ctx, `
		INSERT INTO contacts (contact_id, driver_id, name, email, is_login)
		VALUES ($1, $2, 'Anna van der Merwe', 'Anna@Example.com', TRUE)`,
		uuid.New().String(), s.driverID)
	require.NoError(s.T(), err)

	_, err = s.testDB.DB.Pool.Exec(ctx, `
		INSERT INTO events (event_id, name, start_date, end_date, entry_fee_cents, registration_deadline)
		VALUES ($1, 'Round 4 Zwartkops', now() + interval '10 days', now() + interval '12 days', 295000, now() + interval '7 days')`,
		s.eventID)
	require.NoError(s.T(), err)
}

func (s *StoreIntegrationSuite) newPendingEntry() *domain.RaceEntry {
	entry, err := domain.NewPendingEntry(
		uuid.New().String(),
		s.eventID, s.driverID,
		domain.NewRaceEntryRef(s.eventID, s.driverID, time.Now()),
		"KZ2", "14",
		[]domain.RentalItem{domain.RentalEngine, domain.RentalTyres},
		295000,
		time.Now(),
	)
	require.NoError(s.T(), err)
	return entry
}

func (s *StoreIntegrationSuite) Test_Entries_CreateAndFindRoundTrip() {
	ctx := context.Background()
	t := s.T()
	entry := s.newPendingEntry()

	require.NoError(t, s.store.Entries().Create(ctx, entry))

	byID, err := s.store.Entries().FindByID(ctx, entry.EntryID)
	require.NoError(t, err)
	assert.Equal(t, entry.PaymentReference, byID.PaymentReference)
	assert.Equal(t, []domain.RentalItem{domain.RentalEngine, domain.RentalTyres}, byID.EntryItems)
	assert.Equal(t, entry.TicketEngineRef, byID.TicketEngineRef)
	assert.Equal(t, domain.Cents(295000), byID.AmountPaid)

	byRef, err := s.store.Entries().FindByReference(ctx, entry.PaymentReference)
	require.NoError(t, err)
	assert.Equal(t, entry.EntryID, byRef.EntryID)

	byTicket, err := s.store.Entries().FindByTicketRef(ctx, domain.RentalEngine, entry.TicketEngineRef)
	require.NoError(t, err)
	assert.Equal(t, entry.EntryID, byTicket.EntryID)
}

func (s *StoreIntegrationSuite) Test_Entries_DuplicateReferenceRejected() {
	ctx := context.Background()
	t := s.T()
	entry := s.newPendingEntry()
	require.NoError(t, s.store.Entries().Create(ctx, entry))

	dup := s.newPendingEntry()
	dup.PaymentReference = entry.PaymentReference
	err := s.store.Entries().Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeDuplicateEntry))
}

func (s *StoreIntegrationSuite) Test_Entries_ManualEntriesShareEmptyReference() {
	ctx := context.Background()
	t := s.T()

	for i := 0; i < 2; i++ {
		entry, err := domain.NewManualEntry(
			uuid.New().String(), s.eventID, s.driverID, "KZ2", "14", nil, time.Now(),
		)
		require.NoError(t, err)
		require.NoError(t, s.store.Entries().Create(ctx, entry))
	}
}

func (s *StoreIntegrationSuite) Test_Entries_UpdateUnknownEntry() {
	entry := s.newPendingEntry()
	err := s.store.Entries().Update(context.Background(), entry)
	require.Error(s.T(), err)
	assert.True(s.T(), domain.IsErrorCode(err, domain.ErrCodeEntryNotFound))
}

func (s *StoreIntegrationSuite) Test_WithinTx_RollbackDiscardsWrites() {
	ctx := context.Background()
	t := s.T()
	entry := s.newPendingEntry()

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		if txErr := tx.Entries().Create(ctx, entry); txErr != nil {
			return txErr
		}
		return assert.AnError
	})
	require.Error(t, err)

	_, err = s.store.Entries().FindByID(ctx, entry.EntryID)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeEntryNotFound))
}

func (s *StoreIntegrationSuite) Test_Entries_ActiveEngineHolder() {
	ctx := context.Background()
	t := s.T()
	entry := s.newPendingEntry()
	require.NoError(t, s.store.Entries().Create(ctx, entry))

	require.NoError(t, entry.Complete(295000, time.Now()))
	require.NoError(t, entry.AssignEngine("E-107", time.Now()))
	require.NoError(t, s.store.Entries().Update(ctx, entry))

	holder, err := s.store.Entries().FindActiveEngineHolder(ctx, "E-107")
	require.NoError(t, err)
	assert.Equal(t, entry.EntryID, holder.EntryID)

	entry.ReturnEngine(time.Now())
	require.NoError(t, s.store.Entries().Update(ctx, entry))

	_, err = s.store.Entries().FindActiveEngineHolder(ctx, "E-107")
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeEntryNotFound))
}

func (s *StoreIntegrationSuite) Test_Entries_ActiveEngineIndexArbitratesFirstAssignment() {
	ctx := context.Background()
	t := s.T()

	rivalID := uuid.New().String()
	_, err := s.testDB.DB.Pool.Exec(ctx, `
		INSERT INTO drivers (driver_id, first_name, last_name, class, race_number, status)
		VALUES ($1, 'Pieter', 'Botha', 'KZ2', '7', 'Active')`,
		rivalID)
	require.NoError(t, err)

	first := s.newPendingEntry()
	require.NoError(t, first.Complete(295000, time.Now()))
	require.NoError(t, first.AssignEngine("E-300", time.Now()))
	require.NoError(t, s.store.Entries().Create(ctx, first))

	second, err := domain.NewConfirmedEntry(
		uuid.New().String(),
		s.eventID, rivalID,
		domain.NewRaceEntryRef(s.eventID, rivalID, time.Now()),
		"KZ2", "7",
		nil,
		295000,
		time.Now(),
	)
	require.NoError(t, err)
	require.NoError(t, s.store.Entries().Create(ctx, second))

	// Assign the same serial through the repository alone, the way the
	// second of two racing transactions does after its holder query came
	// back empty. The partial unique index must reject it and the error
	// must name the committed holder.
	require.NoError(t, second.AssignEngine("E-300", time.Now()))
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		return tx.Entries().Update(ctx, second)
	})
	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeEquipmentConflict))
	assert.Contains(t, err.Error(), "Anna van der Merwe")

	// A returned engine frees the serial for the same write.
	holder, err := s.store.Entries().FindByID(ctx, first.EntryID)
	require.NoError(t, err)
	holder.ReturnEngine(time.Now())
	require.NoError(t, s.store.Entries().Update(ctx, holder))
	require.NoError(t, s.store.Entries().Update(ctx, second))
}

func (s *StoreIntegrationSuite) Test_Drivers_LookupAndLoginEmail() {
	ctx := context.Background()
	t := s.T()

	driver, err := s.store.Drivers().FindByEmail(ctx, "anna@example.com")
	require.NoError(t, err)
	assert.Equal(t, s.driverID, driver.DriverID)

	email, err := s.store.Drivers().LoginEmail(ctx, s.driverID)
	require.NoError(t, err)
	assert.Equal(t, "Anna@Example.com", email)
}

func (s *StoreIntegrationSuite) Test_Rentals_UpsertIsIdempotentPerSeason() {
	ctx := context.Background()
	t := s.T()
	year := time.Now().Year()

	rental := &domain.PoolEngineRental{
		RentalID:          uuid.New().String(),
		DriverID:          s.driverID,
		SeasonYear:        year,
		ChampionshipClass: "KZ2",
		EngineType:        "TM",
		PaymentReference:  "POOL-KZ2-TM-x",
		AmountPaid:        1500000,
		PaymentStatus:     domain.PaymentCompleted,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
	require.NoError(t, s.store.Rentals().Upsert(ctx, rental))

	second := *rental
	second.RentalID = uuid.New().String()
	second.EngineType = "Vortex"
	require.NoError(t, s.store.Rentals().Upsert(ctx, &second))

	got, err := s.store.Rentals().FindByDriverSeason(ctx, s.driverID, year, "KZ2")
	require.NoError(t, err)
	assert.Equal(t, "Vortex", got.EngineType)

	var count int
	require.NoError(t, s.testDB.DB.Pool.QueryRow(ctx,
		"SELECT count(*) FROM pool_engine_rentals").Scan(&count))
	assert.Equal(t, 1, count)
}

func (s *StoreIntegrationSuite) Test_ScanLog_AppendAndListBySerial() {
	ctx := context.Background()
	t := s.T()

	records := []*domain.ScanRecord{
		{
			ScanID:          uuid.New().String(),
			ScannedAt:       time.Now(),
			ScanType:        domain.ScanEngineAssign,
			BarcodeScanned:  "ENG-abc",
			EntryID:         "",
			DriverID:        s.driverID,
			DriverName:      "Anna van der Merwe",
			EquipmentSerial: "E-107",
			ScannedBy:       "official",
			ActionResult:    domain.ScanResultSuccess,
			EventID:         s.eventID,
			RaceClass:       "KZ2",
		},
		{
			ScanID:       uuid.New().String(),
			ScannedAt:    time.Now().Add(time.Second),
			ScanType:     domain.ScanEngineReturn,
			ActionResult: domain.ScanResultSuccess,
			// Failure-path rows may carry no entry, driver or event at all.
			EquipmentSerial: "E-107",
		},
	}
	for _, rec := range records {
		require.NoError(t, s.store.ScanLog().Append(ctx, rec))
	}

	history, err := s.store.ScanLog().ListByEngineSerial(ctx, "E-107")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ScanEngineAssign, history[0].ScanType)
	assert.Equal(t, domain.ScanEngineReturn, history[1].ScanType)
	assert.Empty(t, history[1].DriverID)
}

func (s *StoreIntegrationSuite) Test_Audit_Append() {
	ctx := context.Background()
	t := s.T()

	require.NoError(t, s.store.Audit().Append(ctx, &domain.AuditRecord{
		AuditID:   uuid.New().String(),
		DriverID:  s.driverID,
		Actor:     "admin",
		Action:    "payment_completed",
		FieldName: "payment_status",
		OldValue:  "Pending",
		NewValue:  "Completed",
		CreatedAt: time.Now(),
	}))

	var count int
	require.NoError(t, s.testDB.DB.Pool.QueryRow(ctx,
		"SELECT count(*) FROM audit_log WHERE driver_id = $1", s.driverID).Scan(&count))
	assert.Equal(t, 1, count)
}
