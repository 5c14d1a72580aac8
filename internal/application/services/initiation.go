// Package services orchestrates the registry's use cases: payment
// initiation, gateway notifications, entry lifecycle administration and the
// equipment-scan workflow.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/rokthenats/karting-registry/internal/application"
	"github.com/rokthenats/karting-registry/internal/config"
	"github.com/rokthenats/karting-registry/internal/domain"
	"github.com/rokthenats/karting-registry/internal/infrastructure/gateway"
)

// InitiationService builds the pending entry and the signed redirect that
// sends the driver off to the gateway.
type InitiationService struct {
	store         application.Store
	mailer        application.Mailer
	gatewayCfg    config.GatewayConfig
	regionalDates domain.RegionalRaceDates
	engineFee     domain.Cents
	logger        *slog.Logger
}

func NewInitiationService(
	store application.Store,
	mailer application.Mailer,
	gatewayCfg config.GatewayConfig,
	racingCfg config.RacingConfig,
	logger *slog.Logger,
) *InitiationService {
	return &InitiationService{
		store:         store,
		mailer:        mailer,
		gatewayCfg:    gatewayCfg,
		regionalDates: domain.NewRegionalRaceDates(racingCfg.RegionalRaceDates),
		engineFee:     domain.Cents(racingCfg.EngineRentalFeeCents),
		logger:        logger,
	}
}

// Initiate validates the payment request, freezes the pending entry with its
// ticket refs, fires the confirmation email, and returns the auto-submitting
// gateway form.
//
// The email goes out before payment completes. That is deliberate: drivers
// print tickets from it at the track, and abandoned payments are cleaned up
// by reconciliation.
func (s *InitiationService) Initiate(ctx context.Context, cmd InitiatePaymentCommand) (string, error) {
	amount, err := domain.ParseAmount(cmd.Amount)
	if err != nil {
		return "", application.FromDomainError(err)
	}
	if cmd.Email == "" {
		return "", application.NewValidationError("email is required")
	}

	driver, err := s.store.Drivers().FindByID(ctx, cmd.DriverID)
	if err != nil {
		return "", application.FromDomainError(err)
	}
	event, err := s.store.Events().FindByID(ctx, cmd.EventID)
	if err != nil {
		return "", application.FromDomainError(err)
	}

	items := domain.MatchRentalItems(cmd.Items)

	// A season engine pass covers the per-event engine charge, except on
	// regional rounds which run their own engine pools. The ticket ref is
	// kept either way: the entry still records "engine provided".
	if driver.SeasonEngineRental &&
		lo.Contains(items, domain.RentalEngine) &&
		!s.regionalDates.IsRegional(event.StartDate) {
		// The charge stands when the fee would swallow the whole amount
		// (amount <= fee): a zero-rand gateway redirect cannot be signed or
		// paid, and the mismatch is for an admin to reconcile.
		if s.engineFee > 0 && amount > s.engineFee {
			amount -= s.engineFee
			s.logger.Info("season pass active, engine charge suppressed",
				"driver_id", driver.DriverID,
				"event_id", event.EventID,
				"fee_cents", int64(s.engineFee),
			)
		} else {
			s.logger.Warn("season pass active but engine charge kept",
				"driver_id", driver.DriverID,
				"event_id", event.EventID,
				"amount_cents", int64(amount),
				"fee_cents", int64(s.engineFee),
			)
		}
	}

	now := time.Now()
	reference := domain.NewRaceEntryRef(event.EventID, driver.DriverID, now)

	entry, err := domain.NewPendingEntry(
		uuid.New().String(),
		event.EventID,
		driver.DriverID,
		reference,
		cmd.RaceClass,
		driver.RaceNumber,
		items,
		amount,
		now,
	)
	if err != nil {
		return "", application.FromDomainError(err)
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, tx application.Store) error {
		return tx.Entries().Create(ctx, entry)
	})
	if err != nil {
		return "", application.NewInternalError(err)
	}

	// Confirmation email with the race ticket and rental ticket barcodes.
	// Failures are logged and swallowed; the payment flow must not stall on
	// the email provider.
	if html, emailErr := buildRaceTicketsEmail(driver, event, entry); emailErr != nil {
		s.logger.Error("failed to build ticket email", "error", emailErr, "entry_id", entry.EntryID)
	} else if emailErr := s.mailer.Send(ctx, cmd.Email, raceTicketsSubject(event), html); emailErr != nil {
		s.logger.Error("failed to send ticket email", "error", emailErr, "entry_id", entry.EntryID)
	}

	form := gateway.RedirectForm(s.gatewayCfg, gateway.RedirectRequest{
		NameFirst:       driver.FirstName,
		NameLast:        driver.LastName,
		EmailAddress:    cmd.Email,
		Amount:          amount.Rand(),
		ItemName:        fmt.Sprintf("Race Entry - %s", event.Name),
		ItemDescription: itemDescription(cmd.Items),
		Reference:       reference,
	})

	s.logger.Info("payment initiated",
		"entry_id", entry.EntryID,
		"driver_id", driver.DriverID,
		"event_id", event.EventID,
		"reference", reference,
		"amount_cents", int64(amount),
	)

	return form, nil
}

// itemDescription is what the gateway round-trips; the notification fallback
// parses rentals back out of it, so the original labels are preserved.
func itemDescription(labels []string) string {
	if len(labels) == 0 {
		return "Race entry"
	}
	return "Race entry + " + strings.Join(labels, " + ")
}
