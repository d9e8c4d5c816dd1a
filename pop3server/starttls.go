package pop3server

import (
	"bytes"
	"crypto/tls"
	"io"
	"net"

	"github.com/emersion/go-pop3"
)

func (c *Conn) canStartTLS() bool {
	return c.server.TLSConfig != nil && c.state == pop3.ConnStateNotAuthenticated && !c.isTLS()
}

func (c *Conn) handleStartTLS() error {
	if c.server.TLSConfig == nil {
		return pop3.NewError("STLS not supported")
	}
	if !c.canStartTLS() {
		return pop3.NewError("STLS not available")
	}

	if err := c.writeOK("Begin TLS negotiation now"); err != nil {
		return err
	}

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

	tlsConn := tls.Server(cleartextConn, c.server.TLSConfig)

	c.mutex.Lock()
	c.conn = tlsConn
	c.mutex.Unlock()

	rw := c.server.wrapReadWriter(tlsConn)
	c.br.Reset(rw)
	c.bw.Reset(rw)

	// Forget the pending USER, if any
	c.username = ""
	return nil
}

type startTLSConn struct {
	net.Conn
	r io.Reader
}

func (conn startTLSConn) Read(b []byte) (int, error) {
	return conn.r.Read(b)
}
