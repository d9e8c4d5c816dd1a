// Package pop3memserver implements an in-memory POP3 server.
package pop3memserver

import (
	"sync"

	"github.com/emersion/go-pop3/pop3server"
)

// Server is a server instance.
//
// A server contains a list of users.
type Server struct {
	mutex sync.Mutex
	users map[string]*User
}

// New creates a new server.
func New() *Server {
	return &Server{
		users: make(map[string]*User),
	}
}

// NewSession creates a new POP3 session.
func (s *Server) NewSession() pop3server.Session {
	return &serverSession{server: s}
}

func (s *Server) user(username string) *User {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.users[username]
}

// AddUser adds a user to the server.
func (s *Server) AddUser(user *User) {
	s.mutex.Lock()
	s.users[user.username] = user
	s.mutex.Unlock()
}

type serverSession struct {
	*UserSession // may be nil

	server *Server // immutable
}

var _ pop3server.SessionAPOP = (*serverSession)(nil)

func (sess *serverSession) Login(username, password string) error {
	u := sess.server.user(username)
	if u == nil {
		return pop3server.ErrAuthFailed
	}
	if err := u.Login(username, password); err != nil {
		return err
	}
	return sess.open(u)
}

func (sess *serverSession) APOP(username, timestamp, digest string) error {
	u := sess.server.user(username)
	if u == nil {
		return pop3server.ErrAuthFailed
	}
	if err := u.APOP(username, timestamp, digest); err != nil {
		return err
	}
	return sess.open(u)
}

func (sess *serverSession) open(u *User) error {
	userSession, err := NewUserSession(u)
	if err != nil {
		return err
	}
	sess.UserSession = userSession
	return nil
}
