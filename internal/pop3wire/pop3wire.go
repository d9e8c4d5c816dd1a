// Package pop3wire implements the POP3 wire protocol.
//
// The POP3 wire protocol is defined in RFC 1939 section 3: commands and
// replies are CRLF-terminated lines, multi-line replies are terminated by a
// line containing a single dot and lines starting with a dot are
// byte-stuffed.
package pop3wire

import (
	"strings"

	"github.com/emersion/go-pop3"
)

// MaxLineLength is the maximum length of a line accepted by the Decoder,
// including the line terminator.
const MaxLineLength = 64 * 1024

// ParseStatusLine parses the first line of a reply.
//
// The marker must be followed either by the end of the line or by exactly
// one space and free text. Any other line is malformed.
func ParseStatusLine(line string) (pop3.StatusResponseType, string, error) {
	for _, typ := range []pop3.StatusResponseType{pop3.StatusResponseTypeOK, pop3.StatusResponseTypeErr} {
		if !strings.HasPrefix(line, string(typ)) {
			continue
		}
		rest := line[len(typ):]
		if rest == "" {
			return typ, "", nil
		} else if rest[0] != ' ' {
			break
		}
		return typ, rest[1:], nil
	}
	return "", "", &pop3.InvalidReplyError{
		Line:   line,
		Reason: "expected +OK or -ERR status marker",
	}
}

// ValidateArg checks that a command argument doesn't contain characters
// which would break command framing.
func ValidateArg(s string) error {
	if strings.ContainsAny(s, "\r\n\x00") {
		return errInvalidArg
	}
	return nil
}
