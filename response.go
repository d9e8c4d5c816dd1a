package pop3

import (
	"errors"
	"fmt"
	"strings"
)

// StatusResponseType is a status response marker.
type StatusResponseType string

const (
	StatusResponseTypeOK  StatusResponseType = "+OK"
	StatusResponseTypeErr StatusResponseType = "-ERR"
)

// ResponseCode is an extended response code.
//
// Response codes are defined in RFC 2449 section 8 and RFC 3206.
type ResponseCode string

const (
	ResponseCodeInUse      ResponseCode = "IN-USE"
	ResponseCodeLoginDelay ResponseCode = "LOGIN-DELAY"
	ResponseCodeSysTemp    ResponseCode = "SYS/TEMP"
	ResponseCodeSysPerm    ResponseCode = "SYS/PERM"
	ResponseCodeAuth       ResponseCode = "AUTH"
)

// Error is a POP3 error caused by a negative "-ERR" reply.
//
// Text holds the server text verbatim. If the text starts with a bracketed
// response code, it is also available in Code.
type Error struct {
	Code ResponseCode
	Text string
}

var _ error = (*Error)(nil)

// NewError creates an Error from the text following the "-ERR" marker.
func NewError(text string) *Error {
	return &Error{Code: parseResponseCode(text), Text: text}
}

// Error implements the error interface.
func (err *Error) Error() string {
	text := err.Text
	if text == "" {
		text = "<unknown>"
	}
	return fmt.Sprintf("pop3: %v %v", StatusResponseTypeErr, text)
}

func parseResponseCode(text string) ResponseCode {
	if !strings.HasPrefix(text, "[") {
		return ""
	}
	end := strings.IndexByte(text, ']')
	if end < 0 {
		return ""
	}
	return ResponseCode(strings.ToUpper(text[1:end]))
}

// ErrConnectionAborted is returned when the server closes the connection
// before a complete reply could be read.
var ErrConnectionAborted = errors.New("pop3: connection aborted")

// InvalidReplyError is returned when a reply is malformed for its expected
// shape.
type InvalidReplyError struct {
	// The offending line, verbatim
	Line string
	// Human-readable reason
	Reason string
}

// Error implements the error interface.
func (err *InvalidReplyError) Error() string {
	return fmt.Sprintf("pop3: invalid reply %q: %v", err.Line, err.Reason)
}
