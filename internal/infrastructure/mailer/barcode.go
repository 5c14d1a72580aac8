package mailer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code39"
)

// Code39DataURI renders a payload as a Code 39 barcode PNG and returns it as
// a data URI for inline embedding in email HTML. Scanners at the gate read
// these off drivers' phones, so the bars are scaled generously.
func Code39DataURI(payload string) (string, error) {
	// Code 39 has no lowercase alphabet; reference tails carry lowercase
	// UUID hex, so payloads are uppercased before encoding.
	payload = strings.ToUpper(payload)
	bc, err := code39.Encode(payload, false, true)
	if err != nil {
		return "", fmt.Errorf("encode barcode %q: %w", payload, err)
	}

	scaled, err := barcode.Scale(bc, 360, 90)
	if err != nil {
		return "", fmt.Errorf("scale barcode: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return "", fmt.Errorf("render barcode png: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
