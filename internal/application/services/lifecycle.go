package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/config"
	"github.com/rokthenats/karting-registry/internal/domain"
)

// LifecycleService owns the admin-facing entry transitions: manual
// reconciliation, team-code registrations, manual inserts, field edits,
// soft-cancel and ticket resending.
type LifecycleService struct {
	store     application.Store
	mailer    application.Mailer
	teamCodes []string
	logger    *slog.Logger
}

func NewLifecycleService(
	store application.Store,
	mailer application.Mailer,
	racingCfg config.RacingConfig,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		store:     store,
		mailer:    mailer,
		teamCodes: racingCfg.TeamCodes,
		logger:    logger,
	}
}

// Reconcile is the manual stand-in for a webhook that never arrived. With an
// entry ID it completes that entry in place; with only a payment reference
// it follows the same update-or-fallback-insert rules as the notification
// path, so both roads end in the same row.
func (s *LifecycleService) Reconcile(ctx context.Context, cmd ReconcileCommand) (*domain.RaceEntry, error) {
	amount, err := domain.ParseAmount(cmd.AmountPaid)
	if err != nil {
		return nil, application.FromDomainError(err)
	}

	var entry *domain.RaceEntry

	switch {
	case cmd.EntryID != "":
		err = s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
			var txErr error
			entry, txErr = tx.Entries().FindByIDForUpdate(ctx, cmd.EntryID)
			if txErr != nil {
				return txErr
			}

			alreadyConfirmed := entry.EntryStatus == domain.EntryConfirmed &&
				entry.PaymentStatus == domain.PaymentCompleted

			if txErr := entry.Complete(amount, time.Now()); txErr != nil {
				return txErr
			}
			if txErr := tx.Entries().Update(ctx, entry); txErr != nil {
				return txErr
			}
			if alreadyConfirmed {
				return nil
			}
			return tx.Audit().Append(ctx, &domain.AuditRecord{
				AuditID:   uuid.New().String(),
				DriverID:  entry.DriverID,
				Actor:     cmd.Actor,
				Action:    "payment_completed",
				FieldName: "payment_status",
				OldValue:  string(domain.PaymentPending),
				NewValue:  string(domain.PaymentCompleted),
				CreatedAt: time.Now(),
			})
		})

	case cmd.PaymentReference != "":
		var parsed *domain.ParsedReference
		parsed, err = domain.ParseReference(cmd.PaymentReference)
		if err != nil {
			return nil, application.FromDomainError(err)
		}
		if parsed.Kind == domain.RefKindPool {
			return nil, application.NewValidationError("pool rental references are settled by the gateway notification, not by entry reconciliation")
		}
		err = s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
			var txErr error
			entry, txErr = completeRaceEntry(ctx, tx, completeArgs{
				reference: cmd.PaymentReference,
				eventID:   parsed.EventID,
				driverID:  parsed.DriverID,
				amount:    amount,
				actor:     cmd.Actor,
				logger:    s.logger,
			})
			return txErr
		})

	default:
		return nil, application.NewValidationError("either entry_id or payment_reference is required")
	}

	if err != nil {
		return nil, application.FromDomainError(err)
	}
	return entry, nil
}

// RegisterFreeEntry admits a driver through a team code: no gateway round
// trip, confirmed at creation, zero amount, tickets issued and emailed
// immediately.
func (s *LifecycleService) RegisterFreeEntry(ctx context.Context, cmd FreeEntryCommand) (*domain.RaceEntry, error) {
	if !lo.Contains(s.teamCodes, cmd.TeamCode) {
		return nil, application.NewValidationError("invalid team code")
	}

	driver, err := s.store.Drivers().FindByID(ctx, cmd.DriverID)
	if err != nil {
		return nil, application.FromDomainError(err)
	}
	event, err := s.store.Events().FindByID(ctx, cmd.EventID)
	if err != nil {
		return nil, application.FromDomainError(err)
	}

	now := time.Now()
	entry, err := domain.NewConfirmedEntry(
		uuid.New().String(),
		event.EventID,
		driver.DriverID,
		domain.NewTeamEntryRef(event.EventID, driver.DriverID, now),
		cmd.RaceClass,
		driver.RaceNumber,
		domain.MatchRentalItems(cmd.Items),
		0,
		now,
	)
	if err != nil {
		return nil, application.FromDomainError(err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		if txErr := tx.Entries().Create(ctx, entry); txErr != nil {
			return txErr
		}
		return tx.Audit().Append(ctx, &domain.AuditRecord{
			AuditID:   uuid.New().String(),
			DriverID:  driver.DriverID,
			Actor:     "team_code",
			Action:    "free_entry_registered",
			FieldName: "entry_status",
			NewValue:  string(domain.EntryConfirmed),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, application.NewInternalError(err)
	}

	s.sendTickets(ctx, driver, event, entry)

	s.logger.Info("free entry registered",
		"entry_id", entry.EntryID,
		"driver_id", driver.DriverID,
		"event_id", event.EventID,
	)
	return entry, nil
}

// ManualInsert is the admin "add entry" path. Rejected when the driver
// already has an uncancelled manual entry for the event.
func (s *LifecycleService) ManualInsert(ctx context.Context, cmd ManualEntryCommand) (*domain.RaceEntry, error) {
	driver, err := s.store.Drivers().FindByID(ctx, cmd.DriverID)
	if err != nil {
		return nil, application.FromDomainError(err)
	}
	if _, err := s.store.Events().FindByID(ctx, cmd.EventID); err != nil {
		return nil, application.FromDomainError(err)
	}

	now := time.Now()
	raceNumber := cmd.RaceNumber
	if raceNumber == "" {
		raceNumber = driver.RaceNumber
	}

	entry, err := domain.NewManualEntry(
		uuid.New().String(),
		cmd.EventID,
		cmd.DriverID,
		cmd.RaceClass,
		raceNumber,
		domain.MatchRentalItems(cmd.Items),
		now,
	)
	if err != nil {
		return nil, application.FromDomainError(err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		active, txErr := tx.Entries().FindActiveByDriverEvent(ctx, cmd.DriverID, cmd.EventID)
		if txErr != nil {
			return txErr
		}
		for _, existing := range active {
			if existing.PaymentReference == "" {
				return domain.NewDuplicateEntryError(cmd.DriverID, cmd.EventID)
			}
		}
		if txErr := tx.Entries().Create(ctx, entry); txErr != nil {
			return txErr
		}
		return tx.Audit().Append(ctx, &domain.AuditRecord{
			AuditID:   uuid.New().String(),
			DriverID:  cmd.DriverID,
			Actor:     cmd.Actor,
			Action:    "entry_added_manually",
			FieldName: "entry_status",
			NewValue:  string(domain.EntryConfirmed),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, application.FromDomainError(err)
	}

	return entry, nil
}

// SoftCancel marks an entry cancelled. When that was the driver's last
// active entry for the event, the portal's next-race flags are reset.
func (s *LifecycleService) SoftCancel(ctx context.Context, entryID, actor string) error {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		entry, txErr := tx.Entries().FindByIDForUpdate(ctx, entryID)
		if txErr != nil {
			return txErr
		}

		wasCancelled := entry.EntryStatus == domain.EntryCancelled
		priorStatus := entry.EntryStatus
		now := time.Now()
		if txErr := entry.Cancel(now); txErr != nil {
			return txErr
		}
		if txErr := tx.Entries().Update(ctx, entry); txErr != nil {
			return txErr
		}
		if wasCancelled {
			return nil
		}

		active, txErr := tx.Entries().FindActiveByDriverEvent(ctx, entry.DriverID, entry.EventID)
		if txErr != nil {
			return txErr
		}
		if len(active) == 0 {
			if txErr := tx.Drivers().ResetNextRaceFlags(ctx, entry.DriverID); txErr != nil {
				return txErr
			}
		}

		return tx.Audit().Append(ctx, &domain.AuditRecord{
			AuditID:   uuid.New().String(),
			DriverID:  entry.DriverID,
			Actor:     actor,
			Action:    "entry_cancelled",
			FieldName: "entry_status",
			OldValue:  string(priorStatus),
			NewValue:  string(domain.EntryCancelled),
			CreatedAt: now,
		})
	})
	if err != nil {
		return application.FromDomainError(err)
	}
	return nil
}

// UpdateEntry applies field-level edits; every change is one audit row.
func (s *LifecycleService) UpdateEntry(ctx context.Context, cmd UpdateEntryCommand) (*domain.RaceEntry, error) {
	var entry *domain.RaceEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		var txErr error
		entry, txErr = tx.Entries().FindByIDForUpdate(ctx, cmd.EntryID)
		if txErr != nil {
			return txErr
		}

		now := time.Now()
		var changes []domain.AuditRecord

		if cmd.RaceClass != nil && *cmd.RaceClass != entry.RaceClass {
			changes = append(changes, auditChange(entry.DriverID, cmd.Actor, "race_class", entry.RaceClass, *cmd.RaceClass, now))
			entry.RaceClass = *cmd.RaceClass
		}
		if cmd.RaceNumber != nil && *cmd.RaceNumber != entry.RaceNumber {
			changes = append(changes, auditChange(entry.DriverID, cmd.Actor, "race_number", entry.RaceNumber, *cmd.RaceNumber, now))
			entry.RaceNumber = *cmd.RaceNumber
		}
		if cmd.AmountPaid != nil {
			amount, perr := domain.ParseAmount(*cmd.AmountPaid)
			if perr != nil {
				return perr
			}
			if amount != entry.AmountPaid {
				changes = append(changes, auditChange(entry.DriverID, cmd.Actor, "amount_paid", entry.AmountPaid.Rand(), amount.Rand(), now))
				entry.AmountPaid = amount
			}
		}

		if len(changes) == 0 {
			return nil
		}

		entry.UpdatedAt = now
		if txErr := tx.Entries().Update(ctx, entry); txErr != nil {
			return txErr
		}
		for i := range changes {
			if txErr := tx.Audit().Append(ctx, &changes[i]); txErr != nil {
				return txErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, application.FromDomainError(err)
	}
	return entry, nil
}

// UpdateAndResend corrects the rental set on an existing entry, generates
// refs only for newly added items, and resends the ticket email. Existing
// refs survive untouched: those tickets may already be printed.
func (s *LifecycleService) UpdateAndResend(ctx context.Context, cmd UpdateAndResendCommand) (*domain.RaceEntry, error) {
	var entry *domain.RaceEntry
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		var txErr error
		entry, txErr = tx.Entries().FindByIDForUpdate(ctx, cmd.EntryID)
		if txErr != nil {
			return txErr
		}

		now := time.Now()
		if cmd.AmountPaid != "" {
			amount, perr := domain.ParseAmount(cmd.AmountPaid)
			if perr != nil {
				return perr
			}
			entry.AmountPaid = amount
		}
		if len(cmd.Items) > 0 {
			entry.EntryItems = domain.MatchRentalItems(cmd.Items)
			entry.EnsureTicketRefs()
		}
		entry.UpdatedAt = now

		if txErr := tx.Entries().Update(ctx, entry); txErr != nil {
			return txErr
		}
		return tx.Audit().Append(ctx, &domain.AuditRecord{
			AuditID:   uuid.New().String(),
			DriverID:  entry.DriverID,
			Actor:     cmd.Actor,
			Action:    "entry_updated_resend",
			FieldName: "entry_items",
			NewValue:  itemsString(entry.EntryItems),
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, application.FromDomainError(err)
	}

	if err := s.ResendTickets(ctx, entry.EntryID); err != nil {
		s.logger.Error("resend after update failed", "error", err, "entry_id", entry.EntryID)
	}
	return entry, nil
}

// ResendTickets rebuilds and resends the confirmation email for an entry.
func (s *LifecycleService) ResendTickets(ctx context.Context, entryID string) error {
	entry, err := s.store.Entries().FindByID(ctx, entryID)
	if err != nil {
		return application.FromDomainError(err)
	}
	driver, err := s.store.Drivers().FindByID(ctx, entry.DriverID)
	if err != nil {
		return application.FromDomainError(err)
	}
	event, err := s.store.Events().FindByID(ctx, entry.EventID)
	if err != nil {
		return application.FromDomainError(err)
	}

	s.sendTickets(ctx, driver, event, entry)
	return nil
}

func (s *LifecycleService) sendTickets(ctx context.Context, driver *domain.Driver, event *domain.Event, entry *domain.RaceEntry) {
	email, err := s.store.Drivers().LoginEmail(ctx, driver.DriverID)
	if err != nil {
		s.logger.Error("failed to resolve driver email", "error", err, "driver_id", driver.DriverID)
		return
	}
	html, err := buildRaceTicketsEmail(driver, event, entry)
	if err != nil {
		s.logger.Error("failed to build ticket email", "error", err, "entry_id", entry.EntryID)
		return
	}
	if err := s.mailer.Send(ctx, email, raceTicketsSubject(event), html); err != nil {
		s.logger.Error("failed to send ticket email", "error", err, "entry_id", entry.EntryID)
	}
}

func auditChange(driverID, actor, field, oldValue, newValue string, now time.Time) domain.AuditRecord {
	return domain.AuditRecord{
		AuditID:   uuid.New().String(),
		DriverID:  driverID,
		Actor:     actor,
		Action:    "entry_updated",
		FieldName: field,
		OldValue:  oldValue,
		NewValue:  newValue,
		CreatedAt: now,
	}
}

func itemsString(items []domain.RentalItem) string {
	strs := lo.Map(items, func(item domain.RentalItem, _ int) string { return string(item) })
	return strings.Join(strs, ",")
}
