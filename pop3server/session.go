package pop3server

import (
	"io"

	"github.com/emersion/go-pop3"
)

// ErrAuthFailed is returned by Session.Login on authentication failure.
var ErrAuthFailed = pop3.NewError("[AUTH] Authentication failed")

// ErrNoSuchMessage is returned by Session methods when a message number
// doesn't refer to an existing message, or refers to a message marked as
// deleted.
var ErrNoSuchMessage = pop3.NewError("No such message")

// Session is a POP3 session.
//
// Messages are identified by their number, starting at 1. Numbers stay the
// same for the whole session, even when messages are marked as deleted.
//
// Errors of type *pop3.Error are sent to the client as-is. Other errors are
// logged and a generic error is sent to the client.
type Session interface {
	Close() error

	// AUTHORIZATION state
	Login(username, password string) error

	// TRANSACTION state
	Stat() (*pop3.StatData, error)
	// List returns messages not marked as deleted, ordered by number.
	List() ([]pop3.ListData, error)
	// UIDL returns messages not marked as deleted, ordered by number.
	UIDL() ([]pop3.UIDLData, error)
	Retr(num uint32) (io.ReadCloser, error)
	Dele(num uint32) error
	Rset() error

	// UPDATE state
	Update() error
}

// SessionAPOP is a POP3 session which supports the APOP command.
type SessionAPOP interface {
	Session

	// APOP authenticates with a digest computed from the greeting timestamp,
	// see pop3.APOPDigest.
	APOP(username, timestamp, digest string) error
}
