package pop3

import (
	"strings"
)

// Cap represents a POP3 capability.
type Cap string

// Registered capabilities.
//
// See: https://www.iana.org/assignments/pop3-extension-mechanism/
const (
	CapTop            Cap = "TOP"
	CapUser           Cap = "USER"
	CapSASL           Cap = "SASL"
	CapRespCodes      Cap = "RESP-CODES"
	CapLoginDelay     Cap = "LOGIN-DELAY"
	CapPipelining     Cap = "PIPELINING"
	CapExpire         Cap = "EXPIRE"
	CapUIDL           Cap = "UIDL"
	CapImplementation Cap = "IMPLEMENTATION"
	CapSTLS           Cap = "STLS"           // RFC 2595
	CapAuthRespCode   Cap = "AUTH-RESP-CODE" // RFC 3206
	CapUTF8           Cap = "UTF8"           // RFC 6856
)

// CapSet is a set of capabilities, with their parameters.
type CapSet map[Cap][]string

// ParseCapLine parses a single line of a CAPA response.
func ParseCapLine(line string) (Cap, []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return Cap(strings.ToUpper(fields[0])), fields[1:]
}

// Has checks whether a capability is supported.
func (set CapSet) Has(c Cap) bool {
	_, ok := set[c]
	return ok
}

// Args returns the parameters of a capability, if any.
func (set CapSet) Args(c Cap) []string {
	return set[c]
}

// AuthMechanisms returns the list of supported SASL mechanisms.
func (set CapSet) AuthMechanisms() []string {
	return set[CapSASL]
}
