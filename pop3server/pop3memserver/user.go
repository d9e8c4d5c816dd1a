package pop3memserver

import (
	"crypto/subtle"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/emersion/go-pop3"
	"github.com/emersion/go-pop3/pop3server"
)

var errInUse = pop3.NewError("[IN-USE] Maildrop already locked")

// User is a user account with a maildrop.
type User struct {
	username, password string

	mutex    sync.Mutex
	messages []*message
	uids     map[string]struct{}
	locked   bool
}

// NewUser creates a new user with an empty maildrop.
func NewUser(username, password string) *User {
	return &User{
		username: username,
		password: password,
		uids:     make(map[string]struct{}),
	}
}

// Username returns the name of the user.
func (u *User) Username() string {
	return u.username
}

// Login checks the credentials of the user.
func (u *User) Login(username, password string) error {
	if username != u.username {
		return pop3server.ErrAuthFailed
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(u.password)) != 1 {
		return pop3server.ErrAuthFailed
	}
	return nil
}

// APOP checks an APOP digest. The password is the shared secret.
func (u *User) APOP(username, timestamp, digest string) error {
	if username != u.username || timestamp == "" {
		return pop3server.ErrAuthFailed
	}
	want := pop3.APOPDigest(timestamp, u.password)
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(digest)), []byte(want)) != 1 {
		return pop3server.ErrAuthFailed
	}
	return nil
}

// Append adds a message to the maildrop.
//
// The message must start with a valid header. Its unique-id is derived from
// the Message-Id header field if possible, from its contents otherwise.
func (u *User) Append(r io.Reader) error {
	buf, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	msg, header, err := newMessage(buf)
	if err != nil {
		return err
	}

	u.mutex.Lock()
	defer u.mutex.Unlock()

	msg.uid = u.uniqueUIDLocked(messageIDUID(header), contentUID(msg.buf))
	u.uids[msg.uid] = struct{}{}
	u.messages = append(u.messages, msg)
	return nil
}

func (u *User) uniqueUIDLocked(candidates ...string) string {
	for _, uid := range candidates {
		if uid == "" {
			continue
		}
		if _, ok := u.uids[uid]; !ok {
			return uid
		}
	}
	// Identical messages: disambiguate the content hash, which is shorter than
	// maxUIDLen
	base := candidates[len(candidates)-1]
	for i := 1; ; i++ {
		uid := fmt.Sprintf("%s.%d", base, i)
		if _, ok := u.uids[uid]; !ok {
			return uid
		}
	}
}

// NumMessages returns the number of messages in the maildrop.
func (u *User) NumMessages() int {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return len(u.messages)
}

func (u *User) lock() ([]*message, error) {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	if u.locked {
		return nil, errInUse
	}
	u.locked = true
	return append([]*message(nil), u.messages...), nil
}

func (u *User) unlock() {
	u.mutex.Lock()
	u.locked = false
	u.mutex.Unlock()
}

func (u *User) expunge(deleted map[*message]struct{}) {
	u.mutex.Lock()
	defer u.mutex.Unlock()

	l := u.messages[:0]
	for _, msg := range u.messages {
		if _, ok := deleted[msg]; ok {
			delete(u.uids, msg.uid)
			continue
		}
		l = append(l, msg)
	}
	u.messages = l
}
