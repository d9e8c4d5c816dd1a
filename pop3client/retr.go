package pop3client

import (
	"bytes"
	"strings"

	"github.com/emersion/go-message"
)

// Retr sends a RETR command.
//
// The message is returned with CRLF line terminators. The text of the
// status line is not part of the returned message.
func (c *Client) Retr(num uint32) ([]byte, error) {
	if err := c.checkMsgCmd("RETR", num); err != nil {
		return nil, err
	}
	reply, err := c.execute(true, "RETR", formatNum(num))
	if err != nil {
		return nil, err
	}
	return joinLines(reply.Lines), nil
}

// Top sends a TOP command.
//
// The header of the message and the first n lines of its body are returned.
func (c *Client) Top(num, n uint32) ([]byte, error) {
	if err := c.checkMsgCmd("TOP", num); err != nil {
		return nil, err
	}
	reply, err := c.execute(true, "TOP", formatNum(num), formatNum(n))
	if err != nil {
		return nil, err
	}
	return joinLines(reply.Lines), nil
}

// RetrEntity retrieves a message with RETR and parses it.
//
// Errors are the same as message.Read: callers can check
// message.IsUnknownCharset and message.IsUnknownEncoding, in which case the
// entity is still usable.
func (c *Client) RetrEntity(num uint32) (*message.Entity, error) {
	b, err := c.Retr(num)
	if err != nil {
		return nil, err
	}
	return message.Read(bytes.NewReader(b))
}

func joinLines(lines []string) []byte {
	if len(lines) == 0 {
		return []byte{}
	}
	var sb strings.Builder
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteString("\r\n")
	}
	return []byte(sb.String())
}
