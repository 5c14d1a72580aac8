package gateway

import (
	"html"
	"strings"

	"github.com/rokthenats/karting-registry/internal/config"
)

// RedirectRequest carries everything needed to build the signed redirect to
// the gateway's process page.
type RedirectRequest struct {
	NameFirst       string
	NameLast        string
	EmailAddress    string
	Amount          string // "2950.00", already formatted
	ItemName        string
	ItemDescription string
	Reference       string
}

// InitiationFields returns the signed field set for payment initiation in
// the gateway's documented order. The entry reference deliberately rides
// outside the signed set; the gateway round-trips it in a separate form
// field.
func InitiationFields(cfg config.GatewayConfig, req RedirectRequest) []Field {
	return []Field{
		{"merchant_id", cfg.MerchantID},
		{"merchant_key", cfg.MerchantKey},
		{"return_url", cfg.ReturnURL},
		{"cancel_url", cfg.CancelURL},
		{"notify_url", cfg.NotifyURL},
		{"name_first", req.NameFirst},
		{"name_last", req.NameLast},
		{"email_address", req.EmailAddress},
		{"amount", req.Amount},
		{"item_name", req.ItemName},
		{"item_description", req.ItemDescription},
	}
}

// RedirectForm renders the auto-submitting HTML page posted back to the
// driver's browser. The form posts raw (unencoded) values plus the signature
// that was computed over encoded values; the asymmetry is what the gateway
// expects.
func RedirectForm(cfg config.GatewayConfig, req RedirectRequest) string {
	fields := InitiationFields(cfg, req)
	signature := Sign(fields, cfg.Passphrase)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Redirecting to payment...</title></head>\n")
	b.WriteString("<body onload=\"document.forms[0].submit()\">\n")
	b.WriteString("<p>Redirecting to the payment gateway. If nothing happens, click Pay Now.</p>\n")
	b.WriteString(`<form action="` + html.EscapeString(cfg.ProcessURL) + `" method="post">` + "\n")
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		writeHiddenInput(&b, f.Key, f.Value)
	}
	writeHiddenInput(&b, "reference", req.Reference)
	writeHiddenInput(&b, "signature", signature)
	b.WriteString("<button type=\"submit\">Pay Now</button>\n</form>\n</body>\n</html>\n")
	return b.String()
}

func writeHiddenInput(b *strings.Builder, name, value string) {
	b.WriteString(`<input type="hidden" name="` + html.EscapeString(name) +
		`" value="` + html.EscapeString(value) + `">` + "\n")
}
