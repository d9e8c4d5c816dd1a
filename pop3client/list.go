package pop3client

import (
	"strconv"
	"strings"

	"github.com/emersion/go-pop3"
)

// Stat sends a STAT command.
func (c *Client) Stat() (*pop3.StatData, error) {
	if err := c.checkState("STAT", pop3.ConnStateAuthenticated); err != nil {
		return nil, err
	}
	reply, err := c.execute(false, "STAT")
	if err != nil {
		return nil, err
	}

	num, size, err := parseNumSize(reply.Text)
	if err != nil {
		return nil, err
	}
	return &pop3.StatData{NumMessages: num, Size: size}, nil
}

// List sends a LIST command for a single message.
func (c *Client) List(num uint32) (*pop3.ListData, error) {
	if err := c.checkMsgCmd("LIST", num); err != nil {
		return nil, err
	}
	reply, err := c.execute(false, "LIST", formatNum(num))
	if err != nil {
		return nil, err
	}

	data, err := parseListData(reply.Text)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// ListAll sends a LIST command for all messages.
//
// Messages marked as deleted are not listed.
func (c *Client) ListAll() ([]pop3.ListData, error) {
	if err := c.checkState("LIST", pop3.ConnStateAuthenticated); err != nil {
		return nil, err
	}
	reply, err := c.execute(true, "LIST")
	if err != nil {
		return nil, err
	}

	l := make([]pop3.ListData, 0, len(reply.Lines))
	for _, line := range reply.Lines {
		data, err := parseListData(line)
		if err != nil {
			return nil, err
		}
		l = append(l, data)
	}
	return l, nil
}

// UIDL sends a UIDL command for a single message.
func (c *Client) UIDL(num uint32) (*pop3.UIDLData, error) {
	if err := c.checkMsgCmd("UIDL", num); err != nil {
		return nil, err
	}
	reply, err := c.execute(false, "UIDL", formatNum(num))
	if err != nil {
		return nil, err
	}

	data, err := parseUIDLData(reply.Text)
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// UIDLAll sends a UIDL command for all messages.
func (c *Client) UIDLAll() ([]pop3.UIDLData, error) {
	if err := c.checkState("UIDL", pop3.ConnStateAuthenticated); err != nil {
		return nil, err
	}
	reply, err := c.execute(true, "UIDL")
	if err != nil {
		return nil, err
	}

	l := make([]pop3.UIDLData, 0, len(reply.Lines))
	for _, line := range reply.Lines {
		data, err := parseUIDLData(line)
		if err != nil {
			return nil, err
		}
		l = append(l, data)
	}
	return l, nil
}

// parseNumSize parses "<number> <size>", optionally followed by more text.
func parseNumSize(s string) (uint32, int64, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return 0, 0, &pop3.InvalidReplyError{Line: s, Reason: "expected message number and size"}
	}
	num, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil || num == 0 {
		return 0, 0, &pop3.InvalidReplyError{Line: s, Reason: "invalid message number"}
	}
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || size < 0 {
		return 0, 0, &pop3.InvalidReplyError{Line: s, Reason: "invalid size"}
	}
	return uint32(num), size, nil
}

func parseListData(s string) (pop3.ListData, error) {
	num, size, err := parseNumSize(s)
	return pop3.ListData{Num: num, Size: size}, err
}

func parseUIDLData(s string) (pop3.UIDLData, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return pop3.UIDLData{}, &pop3.InvalidReplyError{Line: s, Reason: "expected message number and unique-id"}
	}
	num, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil || num == 0 {
		return pop3.UIDLData{}, &pop3.InvalidReplyError{Line: s, Reason: "invalid message number"}
	}
	return pop3.UIDLData{Num: uint32(num), UID: fields[1]}, nil
}
