package pop3memserver

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/emersion/go-message/textproto"
)

// RFC 1939 section 7: unique-ids are 1 to 70 characters in the range 0x21 to
// 0x7E
const maxUIDLen = 70

type message struct {
	// immutable
	uid string
	buf []byte
}

func newMessage(buf []byte) (*message, *textproto.Header, error) {
	buf = normalizeCRLF(buf)
	if !bytes.HasSuffix(buf, []byte("\r\n")) {
		buf = append(buf, '\r', '\n')
	}

	br := bufio.NewReader(bytes.NewReader(buf))
	header, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, nil, fmt.Errorf("pop3memserver: invalid message header: %w", err)
	}

	return &message{buf: buf}, &header, nil
}

func (msg *message) size() int64 {
	return int64(len(msg.buf))
}

// messageIDUID derives a unique-id from the Message-Id header field, if it's
// usable as-is.
func messageIDUID(header *textproto.Header) string {
	id := strings.TrimSpace(header.Get("Message-Id"))
	id = strings.TrimSuffix(strings.TrimPrefix(id, "<"), ">")
	if id == "" || len(id) > maxUIDLen {
		return ""
	}
	for _, ch := range []byte(id) {
		if ch < 0x21 || ch > 0x7E {
			return ""
		}
	}
	return id
}

func contentUID(buf []byte) string {
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// normalizeCRLF converts bare LF line terminators to CRLF, so that the
// message size matches the number of octets sent by RETR.
func normalizeCRLF(buf []byte) []byte {
	if bytes.Count(buf, []byte("\n")) == bytes.Count(buf, []byte("\r\n")) {
		return buf
	}
	var out bytes.Buffer
	out.Grow(len(buf))
	for i, ch := range buf {
		if ch == '\n' && (i == 0 || buf[i-1] != '\r') {
			out.WriteByte('\r')
		}
		out.WriteByte(ch)
	}
	return out.Bytes()
}
