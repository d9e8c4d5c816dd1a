package pop3memserver

import (
	"bytes"
	"io"

	"github.com/emersion/go-pop3"
	"github.com/emersion/go-pop3/pop3server"
)

type user = User

// UserSession represents a session tied to a specific user.
//
// The maildrop is locked while the session is open. Messages appended in the
// meantime are only visible to the next session.
//
// UserSession implements pop3server.Session. Typically, a UserSession pointer
// is embedded into a larger struct which overrides Login.
type UserSession struct {
	*user // immutable

	messages []*message // immutable
	deleted  map[*message]struct{}
	closed   bool
}

var _ pop3server.SessionAPOP = (*UserSession)(nil)

// NewUserSession creates a new user session.
//
// If the maildrop is already locked by another session, an error with the
// IN-USE response code is returned.
func NewUserSession(user *User) (*UserSession, error) {
	messages, err := user.lock()
	if err != nil {
		return nil, err
	}
	return &UserSession{
		user:     user,
		messages: messages,
		deleted:  make(map[*message]struct{}),
	}, nil
}

func (sess *UserSession) Close() error {
	if sess == nil || sess.closed {
		return nil
	}
	sess.closed = true
	sess.user.unlock()
	return nil
}

func (sess *UserSession) message(num uint32) (*message, error) {
	if num == 0 || int(num) > len(sess.messages) {
		return nil, pop3server.ErrNoSuchMessage
	}
	msg := sess.messages[num-1]
	if _, ok := sess.deleted[msg]; ok {
		return nil, pop3server.ErrNoSuchMessage
	}
	return msg, nil
}

func (sess *UserSession) forEach(f func(num uint32, msg *message)) {
	for i, msg := range sess.messages {
		if _, ok := sess.deleted[msg]; ok {
			continue
		}
		f(uint32(i+1), msg)
	}
}

func (sess *UserSession) Stat() (*pop3.StatData, error) {
	var data pop3.StatData
	sess.forEach(func(num uint32, msg *message) {
		data.NumMessages++
		data.Size += msg.size()
	})
	return &data, nil
}

func (sess *UserSession) List() ([]pop3.ListData, error) {
	var l []pop3.ListData
	sess.forEach(func(num uint32, msg *message) {
		l = append(l, pop3.ListData{Num: num, Size: msg.size()})
	})
	return l, nil
}

func (sess *UserSession) UIDL() ([]pop3.UIDLData, error) {
	var l []pop3.UIDLData
	sess.forEach(func(num uint32, msg *message) {
		l = append(l, pop3.UIDLData{Num: num, UID: msg.uid})
	})
	return l, nil
}

func (sess *UserSession) Retr(num uint32) (io.ReadCloser, error) {
	msg, err := sess.message(num)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(msg.buf)), nil
}

func (sess *UserSession) Dele(num uint32) error {
	msg, err := sess.message(num)
	if err != nil {
		return err
	}
	sess.deleted[msg] = struct{}{}
	return nil
}

func (sess *UserSession) Rset() error {
	sess.deleted = make(map[*message]struct{})
	return nil
}

func (sess *UserSession) Update() error {
	if len(sess.deleted) > 0 {
		sess.user.expunge(sess.deleted)
		sess.deleted = make(map[*message]struct{})
	}
	return nil
}
