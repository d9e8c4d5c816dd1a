package pop3client

import (
	"bytes"
	"crypto/tls"
	"io"
	"net"

	"github.com/emersion/go-pop3"
)

// StartTLS sends a STLS command and encrypts all further communication.
//
// STLS is only allowed before authentication. If the TLS handshake fails, an
// *UpgradeError is returned and the client should be closed.
//
// A nil config is equivalent to a zero tls.Config. If config.ServerName is
// empty, the host name passed to Dial is used. Clients created with New have
// no host name.
func (c *Client) StartTLS(config *tls.Config) error {
	if c.isTLS {
		return ErrTLSAlreadyEnabled
	}
	if err := c.checkState("STLS", pop3.ConnStateNotAuthenticated); err != nil {
		return err
	}
	if _, err := c.execute(false, "STLS"); err != nil {
		return err
	}
	return c.upgradeStartTLS(tlsConfigForServer(config, c.serverName))
}

func (c *Client) upgradeStartTLS(config *tls.Config) error {
	defer c.setDeadline()()

	// Drain buffered data from our bufio.Reader
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, c.br, int64(c.br.Buffered())); err != nil {
		panic(err) // unreachable
	}

	var cleartextConn net.Conn
	if buf.Len() > 0 {
		r := io.MultiReader(&buf, c.conn)
		cleartextConn = startTLSConn{c.conn, r}
	} else {
		cleartextConn = c.conn
	}

	tlsConn := tls.Client(cleartextConn, config)
	if err := tlsConn.Handshake(); err != nil {
		return &UpgradeError{Err: err}
	}

	// The line reader must sit on top of the TLS connection, not below it
	c.setConn(tlsConn)
	c.isTLS = true
	return nil
}

type startTLSConn struct {
	net.Conn
	r io.Reader
}

func (conn startTLSConn) Read(b []byte) (int, error) {
	return conn.r.Read(b)
}
