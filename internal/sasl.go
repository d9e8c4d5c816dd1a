package internal

import (
	"encoding/base64"
)

// SASLCancel is sent by a client to abort a SASL exchange.
//
// See RFC 5034 section 4.
const SASLCancel = "*"

// EncodeSASL encodes a SASL initial response, challenge or response.
//
// A zero-length initial response is encoded as "=".
func EncodeSASL(b []byte) string {
	if len(b) == 0 {
		return "="
	}
	return base64.StdEncoding.EncodeToString(b)
}

// DecodeSASL decodes a SASL challenge or response.
func DecodeSASL(s string) ([]byte, error) {
	switch s {
	case "", "=":
		// go-sasl treats nil as "no data": use a non-nil empty slice
		return []byte{}, nil
	default:
		return base64.StdEncoding.DecodeString(s)
	}
}
