package pop3client

import (
	"errors"
	"fmt"

	"github.com/emersion/go-pop3"
)

// ErrTLSAlreadyEnabled is returned by StartTLS if the connection is already
// encrypted.
var ErrTLSAlreadyEnabled = errors.New("pop3client: TLS is already enabled")

// ConnectError is returned when a connection can't be established: the
// network connection failed, the server rejected the greeting or the STLS
// upgrade failed.
//
// No Client is returned alongside a ConnectError, and the network connection
// is closed.
type ConnectError struct {
	Err error
}

// Error implements the error interface.
func (err *ConnectError) Error() string {
	return fmt.Sprintf("pop3client: failed to connect: %v", err.Err)
}

func (err *ConnectError) Unwrap() error {
	return err.Err
}

// UpgradeError is returned when the TLS handshake fails after the server
// accepted the STLS command.
type UpgradeError struct {
	Err error
}

// Error implements the error interface.
func (err *UpgradeError) Error() string {
	return fmt.Sprintf("pop3client: TLS handshake failed: %v", err.Err)
}

func (err *UpgradeError) Unwrap() error {
	return err.Err
}

// StateError is returned when a command isn't allowed in the current
// connection state.
//
// Nothing is sent to the server when a StateError is returned.
type StateError struct {
	Command string
	State   pop3.ConnState
}

// Error implements the error interface.
func (err *StateError) Error() string {
	return fmt.Sprintf("pop3client: %v not allowed in %v state", err.Command, err.State)
}
