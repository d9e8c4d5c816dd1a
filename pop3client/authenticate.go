package pop3client

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/emersion/go-sasl"

	"github.com/emersion/go-pop3"
	"github.com/emersion/go-pop3/internal"
	"github.com/emersion/go-pop3/internal/pop3wire"
)

// Login authenticates with the USER and PASS commands.
//
// If the server rejects the username, the password is not sent. The
// connection state is only changed if the password is accepted.
func (c *Client) Login(username, password string) error {
	if err := c.checkState("USER", pop3.ConnStateNotAuthenticated); err != nil {
		return err
	}
	// Don't send USER if PASS can't be sent afterwards
	if err := pop3wire.ValidateArg(password); err != nil {
		return err
	}

	if _, err := c.execute(false, "USER", username); err != nil {
		return err
	}
	if _, err := c.execute(false, "PASS", password); err != nil {
		return err
	}

	c.state = pop3.ConnStateAuthenticated
	return nil
}

// APOP authenticates with the APOP command.
//
// The digest can be computed with pop3.APOPDigest from Client.Timestamp and
// the shared secret.
func (c *Client) APOP(username, digest string) error {
	if err := c.checkState("APOP", pop3.ConnStateNotAuthenticated); err != nil {
		return err
	}
	if _, err := c.execute(false, "APOP", username, digest); err != nil {
		return err
	}
	c.state = pop3.ConnStateAuthenticated
	return nil
}

// Authenticate sends an AUTH command.
//
// Unlike other commands, this method blocks until the SASL exchange
// completes. If the SASL client fails, the exchange is cancelled.
func (c *Client) Authenticate(saslClient sasl.Client) error {
	if err := c.checkState("AUTH", pop3.ConnStateNotAuthenticated); err != nil {
		return err
	}

	mech, initialResp, err := saslClient.Start()
	if err != nil {
		return err
	}

	defer c.setDeadline()()

	args := []string{mech}
	if initialResp != nil {
		args = append(args, internal.EncodeSASL(initialResp))
	}
	if err := c.writeCommand("AUTH", args...); err != nil {
		return err
	}

	for {
		challengeStr, cont, _, err := c.dec.ReadAuthReply()
		if err != nil {
			return err
		} else if !cont {
			break
		}

		challenge, err := internal.DecodeSASL(challengeStr)
		if err != nil {
			return c.cancelAuth(fmt.Errorf("pop3client: invalid SASL challenge: %w", err))
		}

		resp, err := saslClient.Next(challenge)
		if err != nil {
			return c.cancelAuth(err)
		}

		// Unlike the initial response, an empty response is an empty line
		if err := c.writeCommand(base64.StdEncoding.EncodeToString(resp)); err != nil {
			return err
		}
	}

	c.state = pop3.ConnStateAuthenticated
	return nil
}

// cancelAuth aborts a SASL exchange. The server's reply is read, but the
// original error is returned.
func (c *Client) cancelAuth(authErr error) error {
	if err := c.writeCommand(internal.SASLCancel); err != nil {
		return err
	}
	_, _, _, err := c.dec.ReadAuthReply()
	var popErr *pop3.Error
	if err != nil && !errors.As(err, &popErr) {
		return err
	}
	return authErr
}
