package pop3server

import (
	"errors"
	"strings"

	"github.com/emersion/go-sasl"

	"github.com/emersion/go-pop3"
	"github.com/emersion/go-pop3/internal"
)

var errTLSRequired = pop3.NewError("[AUTH] TLS is required to authenticate")

func (c *Conn) canAuth() bool {
	return c.server.InsecureAuth || c.isTLS()
}

func (c *Conn) checkAuth() error {
	if err := c.checkState(pop3.ConnStateNotAuthenticated); err != nil {
		return err
	}
	if !c.canAuth() {
		return errTLSRequired
	}
	return nil
}

func (c *Conn) handleUser(args string) error {
	fields, err := parseArgs(args, 1, 1)
	if err != nil {
		return err
	}
	if err := c.checkAuth(); err != nil {
		return err
	}
	c.username = fields[0]
	return c.writeOK("")
}

func (c *Conn) handlePass(args string) error {
	// The password may contain spaces
	password := args
	if err := c.checkAuth(); err != nil {
		return err
	}
	username := c.username
	c.username = ""
	if username == "" {
		return pop3.NewError("USER is required first")
	}
	if err := c.session.Login(username, password); err != nil {
		return err
	}
	c.state = pop3.ConnStateAuthenticated
	return c.writeOK("Logged in")
}

func (c *Conn) handleAPOP(args string) error {
	fields, err := parseArgs(args, 2, 2)
	if err != nil {
		return err
	}
	if err := c.checkAuth(); err != nil {
		return err
	}
	session, ok := c.session.(SessionAPOP)
	if !ok {
		return pop3.NewError("APOP not supported")
	}
	if err := session.APOP(fields[0], c.timestamp, strings.ToLower(fields[1])); err != nil {
		return err
	}
	c.state = pop3.ConnStateAuthenticated
	return c.writeOK("Logged in")
}

func (c *Conn) handleAuthenticate(args string) error {
	fields, err := parseArgs(args, 1, 2)
	if err != nil {
		return err
	}
	if err := c.checkAuth(); err != nil {
		return err
	}

	// TODO: support other SASL mechanisms
	if mech := strings.ToUpper(fields[0]); mech != sasl.Plain {
		return pop3.NewError("SASL mechanism not supported")
	}

	var resp []byte
	if len(fields) > 1 {
		resp, err = decodeSASL(fields[1])
		if err != nil {
			return err
		}
	}

	saslServer := sasl.NewPlainServer(func(identity, username, password string) error {
		if identity != "" && identity != username {
			return pop3.NewError("[AUTH] SASL identity not supported")
		}
		return c.session.Login(username, password)
	})

	for {
		challenge, done, err := saslServer.Next(resp)
		if err != nil {
			var popErr *pop3.Error
			if !errors.As(err, &popErr) {
				return ErrAuthFailed
			}
			return err
		} else if done {
			break
		}

		var challengeStr string
		if len(challenge) > 0 {
			challengeStr = internal.EncodeSASL(challenge)
		}
		if err := c.enc.Atom("+").SP().Text(challengeStr).CRLF(); err != nil {
			return &connError{err}
		}

		respStr, err := c.dec.ReadLine()
		if err != nil {
			return &connError{err}
		} else if respStr == internal.SASLCancel {
			return pop3.NewError("AUTH cancelled")
		}

		resp, err = decodeSASL(respStr)
		if err != nil {
			return err
		}
	}

	c.state = pop3.ConnStateAuthenticated
	return c.writeOK("Logged in")
}

func decodeSASL(s string) ([]byte, error) {
	b, err := internal.DecodeSASL(s)
	if err != nil {
		return nil, pop3.NewError("Malformed SASL response")
	}
	return b, nil
}
