// Package pop3client implements a POP3 client.
//
// POP3 commands are exposed as methods on Client. Each method blocks until
// the server's reply has been fully read. POP3 is a strictly half-duplex
// protocol: a Client is not safe for concurrent use and never pipelines
// commands.
package pop3client

import (
	"bufio"
	"crypto/tls"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-pop3"
	"github.com/emersion/go-pop3/internal/pop3wire"
)

// Security describes how a connection is secured.
type Security int

const (
	// Plaintext connection.
	SecurityNone Security = iota
	// Plaintext connection upgraded with the STLS command right after the
	// greeting.
	SecurityStartTLS
	// TLS from the start, typically on port 995.
	SecurityImplicitTLS
)

// Options contains options for Client.
type Options struct {
	// Raw ingress and egress data will be written to this writer, if any
	DebugWriter io.Writer
	// TLS configuration used for implicit TLS and STLS. If ServerName is
	// empty, it's populated from the dialed address.
	TLSConfig *tls.Config
	// Security policy, applied once when the connection is established
	Security Security
	// If non-zero, a deadline is set on the connection for each command.
	// Expiry is reported as the network error, commands are never retried.
	CommandTimeout time.Duration
	// Dialer used by Dial. If nil, a dialer with a 30 seconds timeout is
	// used.
	Dialer *net.Dialer
}

func (options *Options) wrapReadWriter(rw io.ReadWriter) io.ReadWriter {
	if options.DebugWriter == nil {
		return rw
	}
	return struct {
		io.Reader
		io.Writer
	}{
		Reader: io.TeeReader(rw, options.DebugWriter),
		Writer: io.MultiWriter(rw, options.DebugWriter),
	}
}

// 30 seconds was chosen as it's the same duration as http.DefaultTransport's
// timeout.
var defaultDialer = net.Dialer{Timeout: 30 * time.Second}

func (options *Options) dialer() *net.Dialer {
	if options.Dialer != nil {
		return options.Dialer
	}
	return &defaultDialer
}

func tlsConfigForServer(config *tls.Config, serverName string) *tls.Config {
	if config == nil {
		config = &tls.Config{}
	}
	if config.ServerName == "" && serverName != "" {
		// Make a copy to avoid polluting argument
		config = config.Clone()
		config.ServerName = serverName
	}
	return config
}

// Client is a POP3 client.
type Client struct {
	conn       net.Conn
	options    Options
	serverName string
	isTLS      bool
	br         *bufio.Reader
	bw         *bufio.Writer
	dec        *pop3wire.Decoder
	enc        *pop3wire.Encoder

	state    pop3.ConnState
	greeting string
}

// Dial connects to a POP3 server.
//
// The address must include a port, as in "mail.example.org:110". The
// connection is secured according to options.Security.
//
// A nil options pointer is equivalent to a zero options value.
func Dial(address string, options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	serverName, _, _ := net.SplitHostPort(address)

	var (
		conn net.Conn
		err  error
	)
	if options.Security == SecurityImplicitTLS {
		tlsDialer := tls.Dialer{
			NetDialer: options.dialer(),
			Config:    tlsConfigForServer(options.TLSConfig, serverName),
		}
		conn, err = tlsDialer.Dial("tcp", address)
	} else {
		conn, err = options.dialer().Dial("tcp", address)
	}
	if err != nil {
		return nil, &ConnectError{Err: err}
	}
	return newClient(conn, options, serverName)
}

// DialTLS connects to a POP3 server with implicit TLS.
func DialTLS(address string, options *Options) (*Client, error) {
	return Dial(address, withSecurity(options, SecurityImplicitTLS))
}

// DialStartTLS connects to a POP3 server and upgrades the connection with
// STLS.
func DialStartTLS(address string, options *Options) (*Client, error) {
	return Dial(address, withSecurity(options, SecurityStartTLS))
}

func withSecurity(options *Options, security Security) *Options {
	var o Options
	if options != nil {
		o = *options
	}
	o.Security = security
	return &o
}

// New creates a new POP3 client from an existing connection.
//
// The server greeting is read. If options.Security is SecurityStartTLS, the
// connection is upgraded with STLS. On error, the connection is closed.
//
// The server hostname isn't known: to use STLS, options.TLSConfig.ServerName
// must be set.
//
// A nil options pointer is equivalent to a zero options value.
func New(conn net.Conn, options *Options) (*Client, error) {
	if options == nil {
		options = &Options{}
	}
	return newClient(conn, options, "")
}

func newClient(conn net.Conn, options *Options, serverName string) (*Client, error) {
	c := &Client{
		options:    *options,
		serverName: serverName,
		state:      pop3.ConnStateNotAuthenticated,
	}
	_, c.isTLS = conn.(*tls.Conn)
	c.setConn(conn)

	if err := c.greet(); err != nil {
		conn.Close()
		return nil, &ConnectError{Err: err}
	}
	if options.Security == SecurityStartTLS {
		if err := c.StartTLS(options.TLSConfig); err != nil {
			c.conn.Close()
			return nil, &ConnectError{Err: err}
		}
	}
	return c, nil
}

// setConn sets the underlying network connection for the client.
//
// The buffered reader and writer are re-created on top of conn, so this must
// only be called when no data is buffered.
func (c *Client) setConn(conn net.Conn) {
	c.conn = conn
	rw := c.options.wrapReadWriter(conn)
	c.br = bufio.NewReader(rw)
	c.bw = bufio.NewWriter(rw)
	c.dec = pop3wire.NewDecoder(c.br)
	c.enc = pop3wire.NewEncoder(c.bw)
}

func (c *Client) greet() error {
	defer c.setDeadline()()

	reply, err := c.dec.ReadReply(false)
	if err != nil {
		return err
	}
	c.greeting = reply.Text
	return nil
}

// setDeadline applies Options.CommandTimeout, if any. The returned function
// clears the deadline.
func (c *Client) setDeadline() func() {
	if c.options.CommandTimeout <= 0 {
		return func() {}
	}
	c.conn.SetDeadline(time.Now().Add(c.options.CommandTimeout))
	return func() {
		c.conn.SetDeadline(time.Time{})
	}
}

// Close immediately closes the connection, without sending QUIT.
//
// Messages marked as deleted are not removed by the server.
func (c *Client) Close() error {
	c.state = pop3.ConnStateLogout
	return c.conn.Close()
}

// State returns the current connection state.
func (c *Client) State() pop3.ConnState {
	return c.state
}

// Greeting returns the text of the server greeting.
func (c *Client) Greeting() string {
	return c.greeting
}

// Timestamp returns the APOP timestamp advertised in the server greeting, if
// any.
func (c *Client) Timestamp() string {
	return pop3.ParseGreetingTimestamp(c.greeting)
}

// IsTLS checks whether the connection is encrypted with TLS.
func (c *Client) IsTLS() bool {
	return c.isTLS
}

// TLSConnectionState returns the TLS connection state, if TLS is enabled.
func (c *Client) TLSConnectionState() (tls.ConnectionState, bool) {
	tlsConn, ok := c.conn.(*tls.Conn)
	if !ok {
		return tls.ConnectionState{}, false
	}
	return tlsConn.ConnectionState(), true
}

// writeCommand writes a single command line.
//
// Arguments are validated before anything is written.
func (c *Client) writeCommand(name string, args ...string) error {
	c.enc.Atom(name)
	for _, arg := range args {
		c.enc.SP().Atom(arg)
	}
	return c.enc.CRLF()
}

// execute sends a command and reads its reply.
func (c *Client) execute(multiline bool, name string, args ...string) (*pop3wire.Reply, error) {
	defer c.setDeadline()()

	if err := c.writeCommand(name, args...); err != nil {
		return nil, err
	}
	return c.dec.ReadReply(multiline)
}

// Noop sends a NOOP command.
func (c *Client) Noop() error {
	if err := c.checkState("NOOP", pop3.ConnStateAuthenticated); err != nil {
		return err
	}
	_, err := c.execute(false, "NOOP")
	return err
}

// Dele sends a DELE command.
//
// The message is marked as deleted. It's only removed by the server once
// QUIT completes.
func (c *Client) Dele(num uint32) error {
	if err := c.checkMsgCmd("DELE", num); err != nil {
		return err
	}
	_, err := c.execute(false, "DELE", formatNum(num))
	return err
}

// Rset sends a RSET command.
//
// All messages marked as deleted are unmarked.
func (c *Client) Rset() error {
	if err := c.checkState("RSET", pop3.ConnStateAuthenticated); err != nil {
		return err
	}
	_, err := c.execute(false, "RSET")
	return err
}

// Quit sends a QUIT command and closes the connection.
//
// The client can't be used anymore after Quit returns, even if it returns an
// error.
func (c *Client) Quit() error {
	if err := c.checkState("QUIT", pop3.ConnStateNotAuthenticated, pop3.ConnStateAuthenticated); err != nil {
		return err
	}
	_, err := c.execute(false, "QUIT")
	if closeErr := c.Close(); err == nil {
		err = closeErr
	}
	return err
}

func formatNum(num uint32) string {
	return strconv.FormatUint(uint64(num), 10)
}
