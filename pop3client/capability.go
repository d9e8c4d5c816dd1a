package pop3client

import (
	"github.com/emersion/go-pop3"
)

// Capability sends a CAPA command.
//
// The capabilities may change after STLS and after authentication.
func (c *Client) Capability() (pop3.CapSet, error) {
	if err := c.checkState("CAPA", pop3.ConnStateNotAuthenticated, pop3.ConnStateAuthenticated); err != nil {
		return nil, err
	}
	reply, err := c.execute(true, "CAPA")
	if err != nil {
		return nil, err
	}

	caps := make(pop3.CapSet, len(reply.Lines))
	for _, line := range reply.Lines {
		name, args := pop3.ParseCapLine(line)
		if name == "" {
			continue
		}
		caps[name] = args
	}
	return caps, nil
}
