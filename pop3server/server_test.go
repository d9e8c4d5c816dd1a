package pop3server_test

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-pop3"
	"github.com/emersion/go-pop3/pop3server"
	"github.com/emersion/go-pop3/pop3server/pop3memserver"
)

const (
	testUsername = "test-user"
	testPassword = "test-password"
)

const testMessage = "Subject: Hello\r\n" +
	"\r\n" +
	"Hi!\r\n" +
	".hidden\r\n" +
	"Bye\r\n"

type testLogger struct {
	mutex sync.Mutex
	lines []string
}

func (l *testLogger) Printf(format string, args ...interface{}) {
	l.mutex.Lock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
	l.mutex.Unlock()
}

func (l *testLogger) Lines() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]string(nil), l.lines...)
}

type testConn struct {
	t *testing.T
	net.Conn
	br *bufio.Reader
}

// newTestConn starts a server and connects to it. The greeting is returned.
func newTestConn(t *testing.T, server *pop3server.Server) (*testConn, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err, "net.Listen()")
	go server.Serve(ln)
	t.Cleanup(func() {
		server.Close()
	})

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err, "net.Dial()")
	t.Cleanup(func() {
		conn.Close()
	})

	c := &testConn{t: t, Conn: conn, br: bufio.NewReader(conn)}
	return c, c.ReadLine()
}

func newMemServer(t *testing.T, insecureAuth bool) (*pop3server.Server, *pop3memserver.User, *testLogger) {
	memServer := pop3memserver.New()
	user := pop3memserver.NewUser(testUsername, testPassword)
	require.NoError(t, user.Append(strings.NewReader(testMessage)))
	memServer.AddUser(user)

	logger := &testLogger{}
	server := &pop3server.Server{
		NewSession: func(*pop3server.Conn) (pop3server.Session, error) {
			return memServer.NewSession(), nil
		},
		Logger:       logger,
		InsecureAuth: insecureAuth,
		Hostname:     "pop3.example.org",
	}
	return server, user, logger
}

func (c *testConn) WriteLine(s string) {
	if _, err := io.WriteString(c.Conn, s+"\r\n"); err != nil {
		c.t.Fatalf("failed to write: %v", err)
	}
}

func (c *testConn) ReadLine() string {
	line, err := c.br.ReadString('\n')
	if err != nil {
		c.t.Fatalf("failed to read: %v", err)
	}
	if !strings.HasSuffix(line, "\r\n") {
		c.t.Fatalf("line %q is not CRLF-terminated", line)
	}
	return strings.TrimSuffix(line, "\r\n")
}

// Exec sends a command and reads a single-line reply.
func (c *testConn) Exec(cmd string) string {
	c.WriteLine(cmd)
	return c.ReadLine()
}

// ReadLines reads the payload of a multi-line reply, verbatim.
func (c *testConn) ReadLines() []string {
	var lines []string
	for {
		line := c.ReadLine()
		if line == "." {
			return lines
		}
		lines = append(lines, line)
	}
}

func (c *testConn) login() {
	require.Equal(c.t, "+OK", c.Exec("USER "+testUsername))
	require.Equal(c.t, "+OK Logged in", c.Exec("PASS "+testPassword))
}

func TestServer_greeting(t *testing.T) {
	server, _, _ := newMemServer(t, true)
	_, greeting := newTestConn(t, server)

	assert.True(t, strings.HasPrefix(greeting, "+OK POP3 server ready <"), greeting)
	assert.True(t, strings.HasSuffix(greeting, "@pop3.example.org>"), greeting)
	assert.NotEmpty(t, pop3.ParseGreetingTimestamp(strings.TrimPrefix(greeting, "+OK ")))
}

func TestServer_greetingRejected(t *testing.T) {
	server := &pop3server.Server{
		NewSession: func(*pop3server.Conn) (pop3server.Session, error) {
			return nil, pop3.NewError("[SYS/TEMP] Too many connections")
		},
	}
	c, greeting := newTestConn(t, server)
	assert.Equal(t, "-ERR [SYS/TEMP] Too many connections", greeting)

	_, err := c.br.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF, "connection must be closed")
}

func TestServer_wrongState(t *testing.T) {
	server, _, _ := newMemServer(t, true)
	c, _ := newTestConn(t, server)

	for _, cmd := range []string{"STAT", "LIST", "UIDL", "RETR 1", "TOP 1 0", "DELE 1", "RSET", "NOOP"} {
		assert.Equal(t, "-ERR This command is only valid in the transaction state", c.Exec(cmd), cmd)
	}

	c.login()
	for _, cmd := range []string{"USER foo", "PASS bar", "APOP foo bar", "AUTH PLAIN"} {
		assert.Equal(t, "-ERR This command is only valid in the authorization state", c.Exec(cmd), cmd)
	}
}

func TestServer_unknownCommand(t *testing.T) {
	server, _, _ := newMemServer(t, true)
	c, _ := newTestConn(t, server)

	assert.Equal(t, "-ERR Unknown command", c.Exec("XYZZY"))
	assert.Equal(t, "-ERR Syntax error", c.Exec("USER"))
	assert.Equal(t, "-ERR Syntax error", c.Exec("USER a b"))
}

func TestServer_commandCase(t *testing.T) {
	server, _, _ := newMemServer(t, true)
	c, _ := newTestConn(t, server)

	assert.Equal(t, "+OK", c.Exec("user "+testUsername))
	assert.Equal(t, "+OK Logged in", c.Exec("pass "+testPassword))
	assert.Equal(t, fmt.Sprintf("+OK 1 %d", len(testMessage)), c.Exec("stat"))
}

func TestServer_insecureAuth(t *testing.T) {
	server, _, _ := newMemServer(t, false)
	c, _ := newTestConn(t, server)

	assert.Equal(t, "-ERR [AUTH] TLS is required to authenticate", c.Exec("USER "+testUsername))
	assert.Equal(t, "-ERR [AUTH] TLS is required to authenticate", c.Exec("AUTH PLAIN"))
	assert.Equal(t, "-ERR STLS not supported", c.Exec("STLS"))
}

func TestServer_passWithoutUser(t *testing.T) {
	server, _, _ := newMemServer(t, true)
	c, _ := newTestConn(t, server)

	assert.Equal(t, "-ERR USER is required first", c.Exec("PASS "+testPassword))

	// A failed PASS requires a new USER
	assert.Equal(t, "+OK", c.Exec("USER "+testUsername))
	assert.Equal(t, "-ERR [AUTH] Authentication failed", c.Exec("PASS wrong"))
	assert.Equal(t, "-ERR USER is required first", c.Exec("PASS "+testPassword))
}

func TestServer_passWithSpaces(t *testing.T) {
	memServer := pop3memserver.New()
	memServer.AddUser(pop3memserver.NewUser("alice", "correct horse battery staple"))
	server := &pop3server.Server{
		NewSession: func(*pop3server.Conn) (pop3server.Session, error) {
			return memServer.NewSession(), nil
		},
		InsecureAuth: true,
	}
	c, _ := newTestConn(t, server)

	assert.Equal(t, "+OK", c.Exec("USER alice"))
	assert.Equal(t, "+OK Logged in", c.Exec("PASS correct horse battery staple"))
}

func TestServer_authPlain(t *testing.T) {
	server, _, _ := newMemServer(t, true)
	c, _ := newTestConn(t, server)

	ir := base64.StdEncoding.EncodeToString([]byte("\x00" + testUsername + "\x00" + testPassword))

	assert.Equal(t, "-ERR SASL mechanism not supported", c.Exec("AUTH CRAM-MD5"))

	// Cancelled exchange
	assert.Equal(t, "+ ", c.Exec("AUTH PLAIN"))
	assert.Equal(t, "-ERR AUTH cancelled", c.Exec("*"))

	// Malformed response
	assert.Equal(t, "+ ", c.Exec("AUTH PLAIN"))
	assert.Equal(t, "-ERR Malformed SASL response", c.Exec("!!!"))

	// Without initial response
	assert.Equal(t, "+ ", c.Exec("AUTH PLAIN"))
	assert.Equal(t, "+OK Logged in", c.Exec(ir))
}

func TestServer_authPlainInitialResponse(t *testing.T) {
	server, _, _ := newMemServer(t, true)
	c, _ := newTestConn(t, server)

	wrong := base64.StdEncoding.EncodeToString([]byte("\x00" + testUsername + "\x00wrong"))
	assert.Equal(t, "-ERR [AUTH] Authentication failed", c.Exec("AUTH PLAIN "+wrong))

	ir := base64.StdEncoding.EncodeToString([]byte("\x00" + testUsername + "\x00" + testPassword))
	assert.Equal(t, "+OK Logged in", c.Exec("AUTH plain "+ir))
}

func TestServer_apop(t *testing.T) {
	server, _, _ := newMemServer(t, true)
	c, greeting := newTestConn(t, server)

	timestamp := pop3.ParseGreetingTimestamp(greeting)
	digest := pop3.APOPDigest(timestamp, testPassword)

	assert.Equal(t, "-ERR [AUTH] Authentication failed", c.Exec("APOP "+testUsername+" "+pop3.APOPDigest(timestamp, "wrong")))
	assert.Equal(t, "+OK Logged in", c.Exec("APOP "+testUsername+" "+strings.ToUpper(digest)))
}

func TestServer_maildrop(t *testing.T) {
	server, _, _ := newMemServer(t, true)
	c, _ := newTestConn(t, server)
	c.login()

	size := len(testMessage)
	assert.Equal(t, fmt.Sprintf("+OK 1 %d", size), c.Exec("STAT"))

	assert.Equal(t, fmt.Sprintf("+OK 1 messages (%d octets)", size), c.Exec("LIST"))
	assert.Equal(t, []string{fmt.Sprintf("1 %d", size)}, c.ReadLines())
	assert.Equal(t, fmt.Sprintf("+OK 1 %d", size), c.Exec("LIST 1"))
	assert.Equal(t, "-ERR No such message", c.Exec("LIST 2"))
	assert.Equal(t, "-ERR Invalid message number", c.Exec("LIST 0"))
	assert.Equal(t, "-ERR Invalid message number", c.Exec("LIST foo"))

	assert.Equal(t, "+OK", c.Exec("UIDL"))
	uidl := c.ReadLines()
	require.Len(t, uidl, 1)
	assert.True(t, strings.HasPrefix(uidl[0], "1 "))
	assert.Equal(t, "+OK "+uidl[0], c.Exec("UIDL 1"))

	assert.Equal(t, "+OK message follows", c.Exec("RETR 1"))
	assert.Equal(t, []string{"Subject: Hello", "", "Hi!", "..hidden", "Bye"}, c.ReadLines())

	assert.Equal(t, "+OK top of message follows", c.Exec("TOP 1 0"))
	assert.Equal(t, []string{"Subject: Hello", ""}, c.ReadLines())
	assert.Equal(t, "+OK top of message follows", c.Exec("TOP 1 2"))
	assert.Equal(t, []string{"Subject: Hello", "", "Hi!", "..hidden"}, c.ReadLines())
	assert.Equal(t, "+OK top of message follows", c.Exec("TOP 1 100"))
	assert.Equal(t, []string{"Subject: Hello", "", "Hi!", "..hidden", "Bye"}, c.ReadLines())
	assert.Equal(t, "-ERR Syntax error", c.Exec("TOP 1"))

	assert.Equal(t, "+OK", c.Exec("NOOP"))
}

func TestServer_deleQuit(t *testing.T) {
	server, user, _ := newMemServer(t, true)
	c, _ := newTestConn(t, server)
	c.login()

	assert.Equal(t, "+OK message 1 deleted", c.Exec("DELE 1"))
	assert.Equal(t, "-ERR No such message", c.Exec("DELE 1"))
	assert.Equal(t, "-ERR No such message", c.Exec("RETR 1"))
	assert.Equal(t, "+OK 0 0", c.Exec("STAT"))

	assert.Equal(t, "+OK", c.Exec("RSET"))
	assert.Equal(t, fmt.Sprintf("+OK 1 %d", len(testMessage)), c.Exec("STAT"))

	assert.Equal(t, "+OK message 1 deleted", c.Exec("DELE 1"))
	assert.Equal(t, 1, user.NumMessages())
	assert.Equal(t, "+OK Bye", c.Exec("QUIT"))
	assert.Equal(t, 0, user.NumMessages())

	_, err := c.br.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF, "connection must be closed")
}

type failingSession struct {
	pop3server.Session
}

func (failingSession) Update() error {
	return errors.New("disk on fire")
}

func TestServer_updateFailure(t *testing.T) {
	memServer := pop3memserver.New()
	memServer.AddUser(pop3memserver.NewUser(testUsername, testPassword))
	logger := &testLogger{}
	server := &pop3server.Server{
		NewSession: func(*pop3server.Conn) (pop3server.Session, error) {
			return failingSession{memServer.NewSession()}, nil
		},
		Logger:       logger,
		InsecureAuth: true,
	}
	c, _ := newTestConn(t, server)
	c.login()

	assert.Equal(t, "-ERR [SYS/TEMP] Internal server error", c.Exec("QUIT"))
	require.NotEmpty(t, logger.Lines())
	assert.Contains(t, logger.Lines()[0], "disk on fire")

	_, err := c.br.ReadString('\n')
	assert.ErrorIs(t, err, io.EOF, "connection must be closed")
}

func TestServer_capability(t *testing.T) {
	server, _, _ := newMemServer(t, true)
	c, _ := newTestConn(t, server)

	assert.Equal(t, "+OK Capability list follows", c.Exec("CAPA"))
	caps := c.ReadLines()
	assert.Contains(t, caps, "USER")
	assert.Contains(t, caps, "SASL PLAIN")
	assert.Contains(t, caps, "RESP-CODES")
	assert.NotContains(t, caps, "STLS")

	c.login()
	assert.Equal(t, "+OK Capability list follows", c.Exec("CAPA"))
	caps = c.ReadLines()
	assert.NotContains(t, caps, "USER")
	assert.Contains(t, caps, "TOP")
}

func TestServer_Close(t *testing.T) {
	server, _, _ := newMemServer(t, true)
	c, _ := newTestConn(t, server)

	require.NoError(t, server.Close())
	_, err := c.br.ReadString('\n')
	assert.Error(t, err)

	assert.Error(t, server.Close(), "second Close must fail")
}
