package main

import (
	"crypto/tls"
	"flag"
	"io"
	"net"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/emersion/go-pop3/pop3server"
	"github.com/emersion/go-pop3/pop3server/pop3memserver"
)

var (
	listen       string
	tlsCert      string
	tlsKey       string
	username     string
	password     string
	fixture      string
	debug        bool
	insecureAuth bool
)

func main() {
	flag.StringVar(&listen, "listen", "localhost:110", "listening address")
	flag.StringVar(&tlsCert, "tls-cert", "", "TLS certificate")
	flag.StringVar(&tlsKey, "tls-key", "", "TLS key")
	flag.StringVar(&username, "username", "user", "Username")
	flag.StringVar(&password, "password", "user", "Password")
	flag.StringVar(&fixture, "fixture", "", "TOML file describing users and their messages")
	flag.BoolVar(&debug, "debug", false, "Print all commands and responses")
	flag.BoolVar(&insecureAuth, "insecure-auth", false, "Allow authentication without TLS")
	flag.Parse()

	logger := logrus.New()
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	var tlsConfig *tls.Config
	if tlsCert != "" || tlsKey != "" {
		cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
		if err != nil {
			logger.Fatalf("Failed to load TLS key pair: %v", err)
		}
		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
		}
	}

	memServer := pop3memserver.New()

	if username != "" || password != "" {
		memServer.AddUser(pop3memserver.NewUser(username, password))
	}
	if fixture != "" {
		users, err := loadFixture(fixture)
		if err != nil {
			logger.Fatalf("Failed to load fixture: %v", err)
		}
		for _, u := range users {
			logger.WithField("user", u.Username()).Debugf("loaded %v messages", u.NumMessages())
			memServer.AddUser(u)
		}
	}

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		logger.Fatalf("Failed to listen: %v", err)
	}
	logger.Infof("POP3 server listening on %v", ln.Addr())

	var debugWriter io.Writer
	if debug {
		debugWriter = os.Stdout
	}

	server := &pop3server.Server{
		NewSession: func(conn *pop3server.Conn) (pop3server.Session, error) {
			logger.WithField("remote", conn.NetConn().RemoteAddr()).Debug("new connection")
			return memServer.NewSession(), nil
		},
		Logger:       logger,
		TLSConfig:    tlsConfig,
		InsecureAuth: insecureAuth,
		DebugWriter:  debugWriter,
	}
	if err := server.Serve(ln); err != nil {
		logger.Fatalf("Serve() = %v", err)
	}
}
