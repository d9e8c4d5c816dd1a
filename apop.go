package pop3

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// APOPDigest computes the digest sent with the APOP command.
//
// The timestamp is the one advertised in the server greeting, including
// the angle brackets. See RFC 1939 section 7.
func APOPDigest(timestamp, secret string) string {
	sum := md5.Sum([]byte(timestamp + secret))
	return hex.EncodeToString(sum[:])
}

// ParseGreetingTimestamp extracts the APOP timestamp from a greeting text.
//
// An empty string is returned if the greeting doesn't contain a timestamp.
func ParseGreetingTimestamp(text string) string {
	start := strings.IndexByte(text, '<')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(text[start:], '>')
	if end < 0 {
		return ""
	}
	ts := text[start : start+end+1]
	if !strings.Contains(ts, "@") {
		return ""
	}
	return ts
}
