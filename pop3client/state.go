package pop3client

import (
	"errors"

	"github.com/emersion/go-pop3"
)

var errZeroNum = errors.New("pop3client: message numbers start at 1")

// checkState returns a *StateError if the current connection state isn't one
// of allowed.
func (c *Client) checkState(cmd string, allowed ...pop3.ConnState) error {
	for _, state := range allowed {
		if c.state == state {
			return nil
		}
	}
	return &StateError{Command: cmd, State: c.state}
}

// checkMsgCmd checks a command operating on a single message of the
// maildrop.
func (c *Client) checkMsgCmd(cmd string, num uint32) error {
	if err := c.checkState(cmd, pop3.ConnStateAuthenticated); err != nil {
		return err
	}
	if num == 0 {
		return errZeroNum
	}
	return nil
}
