package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/config"
	"github.com/rokthenats/karting-registry/internal/domain"
	"github.com/rokthenats/karting-registry/internal/infrastructure/gateway"
)

// NotificationService processes the gateway's server-to-server payment
// notifications. It is safe under duplicate delivery: completing an
// already-confirmed entry is a no-op, and the unique constraint on
// (driver, event, payment_reference) rejects duplicate fallback inserts.
type NotificationService struct {
	store      application.Store
	mailer     application.Mailer
	gatewayCfg config.GatewayConfig
	seasonYear int
	adminEmail string
	logger     *slog.Logger
}

func NewNotificationService(
	store application.Store,
	mailer application.Mailer,
	gatewayCfg config.GatewayConfig,
	racingCfg config.RacingConfig,
	adminEmail string,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		store:      store,
		mailer:     mailer,
		gatewayCfg: gatewayCfg,
		seasonYear: racingCfg.SeasonYear,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

// Handle runs the full notification pipeline. The HTTP handler acknowledges
// with 200 regardless of the returned error; a non-nil error additionally
// lands the raw payload in the failed-notification log.
func (s *NotificationService) Handle(ctx context.Context, values url.Values) error {
	n := gateway.ParseNotification(values)

	// Anything other than COMPLETE is acknowledged and dropped: the gateway
	// sends PENDING and FAILED updates we have no transition for.
	if n.PaymentStatus != gateway.PaymentStatusComplete {
		s.logger.Info("ignoring notification with non-complete status",
			"payment_status", n.PaymentStatus,
			"reference", n.Reference,
		)
		return nil
	}

	if !n.VerifySignature(s.gatewayCfg.Passphrase) {
		s.logger.Warn("notification signature mismatch",
			"reference", n.Reference,
			"pf_payment_id", n.PfPaymentID,
		)
		if s.gatewayCfg.RejectInvalidSignature {
			return fmt.Errorf("signature verification failed for reference %q", n.Reference)
		}
		// Historical behavior: log and continue. Reconciliation reviews the
		// warning trail.
	}

	parsed, err := domain.ParseReference(n.Reference)
	if err != nil {
		return err
	}

	switch parsed.Kind {
	case domain.RefKindPool:
		return s.handlePoolRental(ctx, n, parsed)
	default:
		return s.handleRaceEntry(ctx, n, parsed)
	}
}

func (s *NotificationService) handleRaceEntry(ctx context.Context, n *gateway.Notification, parsed *domain.ParsedReference) error {
	amount, err := domain.ParseAmount(n.AmountGross)
	if err != nil {
		return err
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		_, err := completeRaceEntry(ctx, tx, completeArgs{
			reference:     parsed.Raw,
			eventID:       parsed.EventID,
			driverID:      parsed.DriverID,
			amount:        amount,
			fallbackItems: domain.ParseItemDescription(n.ItemDescription),
			actor:         "gateway",
			logger:        s.logger,
		})
		return err
	})
}

type completeArgs struct {
	reference     string
	eventID       string
	driverID      string
	amount        domain.Cents
	fallbackItems []domain.RentalItem
	actor         string
	logger        *slog.Logger
}

// completeRaceEntry transitions the pending entry for a payment reference to
// Completed/confirmed, or inserts a fallback entry when no pending row
// exists. Shared by the notification path and manual reconciliation; must
// run inside a transaction.
func completeRaceEntry(ctx context.Context, tx application.Store, args completeArgs) (*domain.RaceEntry, error) {
	now := time.Now()

	entry, err := tx.Entries().FindByReferenceForUpdate(ctx, args.reference)
	switch {
	case err == nil:
		alreadyConfirmed := entry.EntryStatus == domain.EntryConfirmed &&
			entry.PaymentStatus == domain.PaymentCompleted

		// Class, items and ticket refs from the pending row are preserved;
		// only payment state and amount move.
		if err := entry.Complete(args.amount, now); err != nil {
			return nil, err
		}
		if err := tx.Entries().Update(ctx, entry); err != nil {
			return nil, err
		}
		if alreadyConfirmed {
			// Duplicate delivery; same final state, no second audit row.
			args.logger.Info("duplicate completion ignored",
				"reference", args.reference,
				"entry_id", entry.EntryID,
			)
			return entry, nil
		}

	case domain.IsErrorCode(err, domain.ErrCodeEntryNotFound):
		// Webhook raced ahead of the pending insert, or the pending row was
		// lost. Reconstruct what we can from the reference and the
		// round-tripped item description.
		args.logger.Warn("no pending entry for reference, inserting fallback",
			"reference", args.reference,
			"event_id", args.eventID,
			"driver_id", args.driverID,
		)

		driver, derr := tx.Drivers().FindByID(ctx, args.driverID)
		if derr != nil {
			return nil, derr
		}

		entry, err = domain.NewConfirmedEntry(
			uuid.New().String(),
			args.eventID,
			args.driverID,
			args.reference,
			driver.Class,
			driver.RaceNumber,
			args.fallbackItems,
			args.amount,
			now,
		)
		if err != nil {
			return nil, err
		}
		if err := tx.Entries().Create(ctx, entry); err != nil {
			return nil, err
		}

	default:
		return nil, err
	}

	audit := &domain.AuditRecord{
		AuditID:   uuid.New().String(),
		DriverID:  entry.DriverID,
		Actor:     args.actor,
		Action:    "payment_completed",
		FieldName: "payment_status",
		OldValue:  string(domain.PaymentPending),
		NewValue:  string(domain.PaymentCompleted),
		CreatedAt: now,
	}
	if err := tx.Audit().Append(ctx, audit); err != nil {
		return nil, err
	}

	args.logger.Info("race entry completed",
		"reference", args.reference,
		"entry_id", entry.EntryID,
		"amount_cents", int64(args.amount),
		"actor", args.actor,
	)
	return entry, nil
}

func (s *NotificationService) handlePoolRental(ctx context.Context, n *gateway.Notification, parsed *domain.ParsedReference) error {
	amount, err := domain.ParseAmount(n.AmountGross)
	if err != nil {
		return err
	}

	var driver *domain.Driver
	now := time.Now()
	rental := &domain.PoolEngineRental{
		RentalID:          uuid.New().String(),
		DriverID:          parsed.DriverID,
		SeasonYear:        s.seasonYear,
		ChampionshipClass: parsed.Class,
		EngineType:        parsed.EngineType,
		PaymentReference:  parsed.Raw,
		AmountPaid:        amount,
		PaymentStatus:     domain.PaymentCompleted,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		var txErr error
		driver, txErr = tx.Drivers().FindByID(ctx, parsed.DriverID)
		if txErr != nil {
			return txErr
		}
		if txErr := tx.Rentals().Upsert(ctx, rental); txErr != nil {
			return txErr
		}
		return tx.Drivers().SetSeasonEngineRental(ctx, parsed.DriverID, true)
	})
	if err != nil {
		return err
	}

	s.logger.Info("pool engine rental completed",
		"reference", parsed.Raw,
		"driver_id", parsed.DriverID,
		"season_year", s.seasonYear,
	)

	// Confirmation emails are best-effort on this path too.
	if email, err := s.store.Drivers().LoginEmail(ctx, parsed.DriverID); err != nil {
		s.logger.Error("failed to resolve driver email", "error", err, "driver_id", parsed.DriverID)
	} else if err := s.mailer.Send(ctx, email, "Season engine rental confirmed", buildPoolRentalEmail(driver, rental)); err != nil {
		s.logger.Error("failed to send rental confirmation", "error", err, "driver_id", parsed.DriverID)
	}
	if s.adminEmail != "" {
		if err := s.mailer.Send(ctx, s.adminEmail, "Pool engine rental completed", buildPoolRentalAdminEmail(driver, rental)); err != nil {
			s.logger.Error("failed to send admin rental notice", "error", err)
		}
	}

	return nil
}
