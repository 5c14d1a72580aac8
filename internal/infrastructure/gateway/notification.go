package gateway

import (
	"net/url"
)

// PaymentStatusComplete is the only notification status that moves entry
// state; everything else is acknowledged and ignored.
const PaymentStatusComplete = "COMPLETE"

// Notification is the parsed form body of an inbound ITN post.
type Notification struct {
	MPaymentID      string
	PfPaymentID     string
	PaymentStatus   string
	ItemName        string
	ItemDescription string
	AmountGross     string
	AmountFee       string
	AmountNet       string
	CustomInt       [5]string
	CustomStr       [5]string
	NameFirst       string
	NameLast        string
	EmailAddress    string
	CellNumber      string
	MerchantID      string
	Reference       string
	Signature       string
}

// ParseNotification decodes an ITN form body. Unknown keys are ignored; the
// gateway adds fields without notice.
func ParseNotification(values url.Values) *Notification {
	n := &Notification{
		MPaymentID:      values.Get("m_payment_id"),
		PfPaymentID:     values.Get("pf_payment_id"),
		PaymentStatus:   values.Get("payment_status"),
		ItemName:        values.Get("item_name"),
		ItemDescription: values.Get("item_description"),
		AmountGross:     values.Get("amount_gross"),
		AmountFee:       values.Get("amount_fee"),
		AmountNet:       values.Get("amount_net"),
		NameFirst:       values.Get("name_first"),
		NameLast:        values.Get("name_last"),
		EmailAddress:    values.Get("email_address"),
		CellNumber:      values.Get("cell_number"),
		MerchantID:      values.Get("merchant_id"),
		Reference:       values.Get("reference"),
		Signature:       values.Get("signature"),
	}
	for i := 0; i < 5; i++ {
		n.CustomInt[i] = values.Get(customKey("custom_int", i))
		n.CustomStr[i] = values.Get(customKey("custom_str", i))
	}
	return n
}

func customKey(prefix string, i int) string {
	return prefix + string(rune('1'+i))
}

// VerificationFields returns the notification's signed field set in the
// gateway's documented verification order, which is a superset of the
// initiation order and sorted differently.
func (n *Notification) VerificationFields() []Field {
	fields := []Field{
		{"m_payment_id", n.MPaymentID},
		{"pf_payment_id", n.PfPaymentID},
		{"payment_status", n.PaymentStatus},
		{"item_name", n.ItemName},
		{"item_description", n.ItemDescription},
		{"amount_gross", n.AmountGross},
		{"amount_fee", n.AmountFee},
		{"amount_net", n.AmountNet},
	}
	for i := 0; i < 5; i++ {
		fields = append(fields, Field{customKey("custom_int", i), n.CustomInt[i]})
	}
	for i := 0; i < 5; i++ {
		fields = append(fields, Field{customKey("custom_str", i), n.CustomStr[i]})
	}
	fields = append(fields,
		Field{"name_first", n.NameFirst},
		Field{"name_last", n.NameLast},
		Field{"email_address", n.EmailAddress},
		Field{"cell_number", n.CellNumber},
		Field{"merchant_id", n.MerchantID},
	)
	return fields
}

// VerifySignature checks the notification's signature against the shared
// passphrase.
func (n *Notification) VerifySignature(passphrase string) bool {
	return VerifySignature(n.VerificationFields(), passphrase, n.Signature)
}
