package gateway

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rokthenats/karting-registry/internal/config"
)

func testGatewayConfig() config.GatewayConfig {
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

func TestSign(t *testing.T) {
	t.Run("known vector", func(t *testing.T) {
		fields := []Field{
			{"amount", "100.00"},
			{"item_name", "Test"},
		}
		assert.Equal(t, "7dcb015e804e364807e85b19c52f4686", Sign(fields, "secret"))
	})

	t.Run("empty fields are skipped and spaces become plus", func(t *testing.T) {
		fields := []Field{
			{"a", "1"},
			{"b", ""},
			{"c", "x y"},
		}
		assert.Equal(t, "9b8d20b29e2fd5b50d370df7f4b965e0", Sign(fields, "p w"))
	})

	t.Run("order matters", func(t *testing.T) {
		forward := Sign([]Field{{"a", "1"}, {"b", "2"}}, "pass")
		reversed := Sign([]Field{{"b", "2"}, {"a", "1"}}, "pass")
		assert.NotEqual(t, forward, reversed)
	})

	t.Run("full initiation field set", func(t *testing.T) {
		fields := InitiationFields(testGatewayConfig(), RedirectRequest{
			NameFirst:       "Anna",
			NameLast:        "van der Merwe",
			EmailAddress:    "anna@example.com",
			Amount:          "2950.00",
			ItemName:        "Race entry",
			ItemDescription: "Race entry + Engine rental",
		})
		assert.Equal(t, "a8dac184d5c4555d4cb93e926b695b17", Sign(fields, "jt7NOE43FZPn"))
	})
}

func TestVerifySignature(t *testing.T) {
	fields := []Field{{"amount", "100.00"}, {"item_name", "Test"}}

	t.Run("accepts matching signature case-insensitively", func(t *testing.T) {
		assert.True(t, VerifySignature(fields, "secret", "7dcb015e804e364807e85b19c52f4686"))
		assert.True(t, VerifySignature(fields, "secret", "7DCB015E804E364807E85B19C52F4686"))
	})

	t.Run("rejects single character perturbation", func(t *testing.T) {
		good := Sign(fields, "secret")
		for i := range good {
			bad := []byte(good)
			if bad[i] == '0' {
				bad[i] = '1'
			} else {
				bad[i] = '0'
			}
			assert.False(t, VerifySignature(fields, "secret", string(bad)))
		}
	})

	t.Run("rejects wrong passphrase", func(t *testing.T) {
		assert.False(t, VerifySignature(fields, "other", Sign(fields, "secret")))
	})
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "van+der+Merwe", encode("van der Merwe"))
	assert.Equal(t, "anna%40example.com", encode("anna@example.com"))
	assert.Equal(t, "Race+entry+%2B+Engine+rental", encode("Race entry + Engine rental"))
	assert.Equal(t, "A-Z_0.9", encode("A-Z_0.9"))
	// Uppercase hex, unlike Go's net/url lowercase default for some paths.
	assert.Equal(t, "%2F%3A", encode("/:"))
}

func TestNotificationVerification(t *testing.T) {
	values := url.Values{
		"m_payment_id":     {"RACE-1b671a64-40d5-491e-99b0-da01ff1f3341"},
		"pf_payment_id":    {"1089250"},
		"payment_status":   {"COMPLETE"},
		"item_name":        {"Race entry"},
		"item_description": {"Race entry + Engine rental"},
		"amount_gross":     {"2950.00"},
		"amount_fee":       {"-65.90"},
		"amount_net":       {"2884.10"},
		"name_first":       {"Anna"},
		"name_last":        {"van der Merwe"},
		"email_address":    {"anna@example.com"},
		"merchant_id":      {"10000100"},
		"signature":        {"276a30ad36a83408dfbae21063def6bc"},
	}

	n := ParseNotification(values)
	require.Equal(t, "COMPLETE", n.PaymentStatus)
	assert.True(t, n.VerifySignature("jt7NOE43FZPn"))

	n.AmountGross = "9999.00"
	assert.False(t, n.VerifySignature("jt7NOE43FZPn"))
}

func TestRedirectForm(t *testing.T) {
	cfg := testGatewayConfig()
	form := RedirectForm(cfg, RedirectRequest{
		NameFirst:       "Anna",
		NameLast:        "van der Merwe",
		EmailAddress:    "anna@example.com",
		Amount:          "2950.00",
		ItemName:        "Race entry",
		ItemDescription: "Race entry + Engine rental",
		Reference:       "RACE-1b671a64-40d5-491e-99b0-da01ff1f3341",
	})

	// Values are posted raw; the signature was computed over encoded values.
	assert.Contains(t, form, `value="van der Merwe"`)
	assert.Contains(t, form, `value="anna@example.com"`)
	assert.Contains(t, form, `name="signature" value="a8dac184d5c4555d4cb93e926b695b17"`)
	assert.Contains(t, form, `name="reference" value="RACE-1b671a64-40d5-491e-99b0-da01ff1f3341"`)
	assert.Contains(t, form, cfg.ProcessURL)
	assert.Equal(t, 1, strings.Count(form, "<form"))
}
