// Package gateway implements the payment gateway's redirect and ITN
// (instant transaction notification) protocol: canonical-order MD5
// signatures, the signed redirect field set, and notification parsing.
package gateway

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Field is one (key, value) pair in a signature's canonical order. The
// gateway signs fields in its documented order, never alphabetically, so the
// order of a Field slice is load-bearing.
type Field struct {
	Key   string
	Value string
}

// Sign produces the MD5 signature over the canonical parameter string:
// every non-empty field in declared order as "key=urlencoded(value)&",
// followed by "passphrase=urlencoded(passphrase)". The values posted to the
// gateway itself stay raw; only the signature sees encoded values.
func Sign(fields []Field, passphrase string) string {
	var b strings.Builder
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(encode(f.Value))
		b.WriteByte('&')
	}
	b.WriteString("passphrase=")
	b.WriteString(encode(passphrase))

	payload := strings.TrimRight(b.String(), " \t\r\n")
	sum := md5.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// VerifySignature compares a received signature against the expected one in
// constant time.
func VerifySignature(fields []Field, passphrase, received string) bool {
	expected := Sign(fields, passphrase)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(received))) == 1
}

const upperhex = "0123456789ABCDEF"

// encode is the gateway's flavor of URL encoding: spaces become '+', hex
// escapes are uppercase, and only unreserved characters pass through. This
// matches PHP's urlencode, which is what the gateway verifies against.
func encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ' ':
			b.WriteByte('+')
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '.':
			b.WriteByte(c)
		default:
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0x0f])
		}
	}
	return b.String()
}
