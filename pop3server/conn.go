package pop3server

import (
	"bufio"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-pop3"
	"github.com/emersion/go-pop3/internal/pop3wire"
)

const (
	// RFC 1939 section 3: the autologout timer must be at least 10 minutes
	cmdReadTimeout   = 10 * time.Minute
	respWriteTimeout = 30 * time.Second
)

var internalServerError = pop3.NewError("[SYS/TEMP] Internal server error")

// Conn represents a POP3 connection to the server.
type Conn struct {
	server *Server
	br     *bufio.Reader
	bw     *bufio.Writer
	dec    *pop3wire.Decoder
	enc    *pop3wire.Encoder

	mutex sync.Mutex
	conn  net.Conn

	state     pop3.ConnState
	session   Session
	timestamp string
	username  string // set by USER, consumed by PASS
}

func newConn(c net.Conn, server *Server) *Conn {
	rw := server.wrapReadWriter(c)
	br := bufio.NewReader(rw)
	bw := bufio.NewWriter(rw)
	return &Conn{
		conn:   c,
		server: server,
		br:     br,
		bw:     bw,
		dec:    pop3wire.NewDecoder(br),
		enc:    pop3wire.NewEncoder(bw),
	}
}

// NetConn returns the underlying connection that is wrapped by the POP3
// connection.
//
// Writing to or reading from this connection directly will corrupt the POP3
// session.
func (c *Conn) NetConn() net.Conn {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.conn
}

// Timestamp returns the APOP timestamp sent in the greeting.
func (c *Conn) Timestamp() string {
	return c.timestamp
}

func (c *Conn) serve() {
	defer func() {
		if v := recover(); v != nil {
			c.server.logger().Printf("panic handling command: %v\n%s", v, debug.Stack())
		}
		c.conn.Close()
	}()

	c.server.trackConn(c, true)
	defer c.server.trackConn(c, false)

	c.timestamp = newTimestamp(c.server.Hostname)

	var err error
	c.session, err = c.server.NewSession(c)
	if err != nil {
		var popErr *pop3.Error
		if !errors.As(err, &popErr) {
			c.server.logger().Printf("failed to create session: %v", err)
			popErr = internalServerError
		}
		if err := c.writeErr(popErr); err != nil {
			c.server.logger().Printf("failed to write greeting: %v", err)
		}
		return
	}

	defer func() {
		if err := c.session.Close(); err != nil {
			c.server.logger().Printf("failed to close session: %v", err)
		}
	}()

	c.state = pop3.ConnStateNotAuthenticated
	if err := c.writeOK("POP3 server ready " + c.timestamp); err != nil {
		c.server.logger().Printf("failed to write greeting: %v", err)
		return
	}

	for c.state != pop3.ConnStateLogout {
		c.setReadTimeout(cmdReadTimeout)
		name, args, err := c.dec.ReadCommand()
		if errors.Is(err, pop3.ErrConnectionAborted) || errors.Is(err, net.ErrClosed) {
			break
		} else if err != nil {
			c.server.logger().Printf("failed to read command: %v", err)
			break
		}

		if err := c.handleCommand(name, args); err != nil {
			if !errors.Is(err, net.ErrClosed) {
				c.server.logger().Printf("failed to write reply: %v", err)
			}
			break
		}
	}
}

// handleCommand handles a single command. An error is only returned if the
// connection is unusable.
func (c *Conn) handleCommand(name, args string) error {
	c.setWriteTimeout(respWriteTimeout)
	defer c.setWriteTimeout(0)

	var err error
	switch name {
	case "CAPA":
		err = c.handleCapability()
	case "QUIT":
		err = c.handleQuit()
	case "STLS":
		err = c.handleStartTLS()
	case "USER":
		err = c.handleUser(args)
	case "PASS":
		err = c.handlePass(args)
	case "APOP":
		err = c.handleAPOP(args)
	case "AUTH":
		err = c.handleAuthenticate(args)
	case "NOOP":
		err = c.handleNoop()
	case "STAT":
		err = c.handleStat()
	case "LIST":
		err = c.handleList(args)
	case "UIDL":
		err = c.handleUIDL(args)
	case "RETR":
		err = c.handleRetr(args)
	case "TOP":
		err = c.handleTop(args)
	case "DELE":
		err = c.handleDele(args)
	case "RSET":
		err = c.handleRset()
	default:
		err = pop3.NewError("Unknown command")
	}

	var (
		popErr  *pop3.Error
		connErr *connError
	)
	if err == nil {
		return nil
	} else if errors.As(err, &connErr) {
		return connErr.err
	} else if !errors.As(err, &popErr) {
		c.server.logger().Printf("handling %v command: %v", name, err)
		popErr = internalServerError
	}
	return c.writeErr(popErr)
}

func (c *Conn) handleNoop() error {
	if err := c.checkState(pop3.ConnStateAuthenticated); err != nil {
		return err
	}
	return c.writeOK("")
}

func (c *Conn) handleQuit() error {
	if c.state == pop3.ConnStateAuthenticated {
		c.state = pop3.ConnStateLogout
		if err := c.session.Update(); err != nil {
			return err
		}
	}
	c.state = pop3.ConnStateLogout
	return c.writeOK("Bye")
}

func (c *Conn) checkState(state pop3.ConnState) error {
	if c.state != state {
		return pop3.NewError(fmt.Sprintf("This command is only valid in the %s state", state))
	}
	return nil
}

// connError is returned by handlers when the connection is unusable.
type connError struct {
	err error
}

func (err *connError) Error() string {
	return err.err.Error()
}

func (err *connError) Unwrap() error {
	return err.err
}

func (c *Conn) writeOK(text string) error {
	if err := c.enc.Status(pop3.StatusResponseTypeOK, text).CRLF(); err != nil {
		return &connError{err}
	}
	return nil
}

func (c *Conn) writeErr(popErr *pop3.Error) error {
	return c.enc.Status(pop3.StatusResponseTypeErr, popErr.Text).CRLF()
}

func (c *Conn) setReadTimeout(dur time.Duration) {
	if dur > 0 {
		c.conn.SetReadDeadline(time.Now().Add(dur))
	} else {
		c.conn.SetReadDeadline(time.Time{})
	}
}

func (c *Conn) setWriteTimeout(dur time.Duration) {
	if dur > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(dur))
	} else {
		c.conn.SetWriteDeadline(time.Time{})
	}
}

func (c *Conn) isTLS() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.conn.(*tls.Conn)
	return ok
}

func newTimestamp(hostname string) string {
	if hostname == "" {
		var err error
		hostname, err = os.Hostname()
		if err != nil || hostname == "" {
			hostname = "localhost"
		}
	}
	return fmt.Sprintf("<%d.%d@%s>", os.Getpid(), time.Now().UnixNano(), hostname)
}

var errSyntax = pop3.NewError("Syntax error")

// parseArgs splits command arguments. The number of arguments must be between
// min and max.
func parseArgs(args string, min, max int) ([]string, error) {
	fields := strings.Fields(args)
	if len(fields) < min || len(fields) > max {
		return nil, errSyntax
	}
	return fields, nil
}

func parseMsgNum(s string) (uint32, error) {
	num, err := strconv.ParseUint(s, 10, 32)
	if err != nil || num == 0 {
		return 0, pop3.NewError("Invalid message number")
	}
	return uint32(num), nil
}
