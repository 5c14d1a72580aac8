package services

import (
	"fmt"
	"html"
	"strings"

	"github.com/rokthenats/karting-registry/internal/domain"
	"github.com/rokthenats/karting-registry/internal/infrastructure/mailer"
)

// Ticket emails carry their own barcodes inline: drivers show them on a
// phone at the gate, often with no signal, so nothing may load remotely.

func raceTicketsSubject(event *domain.Event) string {
	return fmt.Sprintf("Your race tickets - %s", event.Name)
}

func buildRaceTicketsEmail(driver *domain.Driver, event *domain.Event, entry *domain.RaceEntry) (string, error) {
	var b strings.Builder

	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<h2>Race entry confirmed for %s</h2>\n", html.EscapeString(event.Name))
	fmt.Fprintf(&b, "<p>Hi %s,</p>\n", html.EscapeString(driver.FirstName))
	fmt.Fprintf(&b, "<p>Your entry for <strong>%s</strong> (%s) is in. Present these barcodes at the equipment desk.</p>\n",
		html.EscapeString(event.Name), html.EscapeString(entry.RaceClass))

	payload := domain.BarcodePayload(entry.PaymentReference)
	if payload != "" {
		uri, err := mailer.Code39DataURI(payload)
		if err != nil {
			return "", fmt.Errorf("race ticket barcode: %w", err)
		}
		b.WriteString("<h3>Race ticket</h3>\n")
		fmt.Fprintf(&b, "<img src=%q alt=%q><br><code>%s</code>\n",
			uri, payload, html.EscapeString(payload))
	}

	for _, item := range domain.AllRentalItems {
		ref := entry.TicketRef(item)
		if ref == "" {
			continue
		}
		uri, err := mailer.Code39DataURI(ref)
		if err != nil {
			return "", fmt.Errorf("%s ticket barcode: %w", item, err)
		}
		fmt.Fprintf(&b, "<h3>%s ticket</h3>\n", itemTitle(item))
		fmt.Fprintf(&b, "<img src=%q alt=%q><br><code>%s</code>\n", uri, ref, html.EscapeString(ref))
	}

	if entry.AmountPaid > 0 {
		fmt.Fprintf(&b, "<p>Amount: %s</p>\n", entry.AmountPaid.DisplayRand())
	}
	b.WriteString("<p>See you at the track!</p>\n</body></html>\n")

	return b.String(), nil
}

func itemTitle(item domain.RentalItem) string {
	switch item {
	case domain.RentalEngine:
		return "Engine"
	case domain.RentalTyres:
		return "Tyres"
	case domain.RentalTransponder:
		return "Transponder"
	case domain.RentalFuel:
		return "Fuel"
	}
	return string(item)
}

func buildPoolRentalEmail(driver *domain.Driver, rental *domain.PoolEngineRental) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<h2>Season engine rental confirmed</h2>\n")
	fmt.Fprintf(&b, "<p>Hi %s,</p>\n", html.EscapeString(driver.FirstName))
	fmt.Fprintf(&b, "<p>Your %d season engine rental (%s) is active. Per-event engine charges are covered for national rounds; regional rounds still charge separately.</p>\n",
		rental.SeasonYear, html.EscapeString(rental.ChampionshipClass))
	fmt.Fprintf(&b, "<p>Reference: <code>%s</code></p>\n", html.EscapeString(rental.PaymentReference))
	b.WriteString("</body></html>\n")
	return b.String()
}

func buildPoolRentalAdminEmail(driver *domain.Driver, rental *domain.PoolEngineRental) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	fmt.Fprintf(&b, "<p>Pool engine rental completed: %s, season %d, class %s, amount %s.</p>\n",
		html.EscapeString(driver.FullName()), rental.SeasonYear,
		html.EscapeString(rental.ChampionshipClass), rental.AmountPaid.DisplayRand())
	fmt.Fprintf(&b, "<p>Reference: <code>%s</code></p>\n", html.EscapeString(rental.PaymentReference))
	b.WriteString("</body></html>\n")
	return b.String()
}
