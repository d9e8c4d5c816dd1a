// Package pop3 implements POP3.
//
// POP3 is defined in RFC 1939. The extension mechanism is defined in RFC 2449,
// STLS in RFC 2595 and the AUTH command in RFC 5034.
//
// This package contains types shared by the client (pop3client) and the
// server (pop3server).
package pop3

import (
	"fmt"
)

// ConnState describes the connection state.
//
// See RFC 1939 section 3.
type ConnState int

const (
	ConnStateNone ConnState = iota
	// AUTHORIZATION state: the client must identify itself.
	ConnStateNotAuthenticated
	// TRANSACTION state: the maildrop is locked and messages can be accessed.
	ConnStateAuthenticated
	// UPDATE state: the client has sent QUIT, the connection is being
	// terminated.
	ConnStateLogout
)

// String implements fmt.Stringer.
func (state ConnState) String() string {
	switch state {
	case ConnStateNone:
		return "none"
	case ConnStateNotAuthenticated:
		return "authorization"
	case ConnStateAuthenticated:
		return "transaction"
	case ConnStateLogout:
		return "update"
	default:
		panic(fmt.Errorf("pop3: unknown connection state %v", int(state)))
	}
}
