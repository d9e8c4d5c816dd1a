package pop3server

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/emersion/go-pop3"
)

func (c *Conn) handleStat() error {
	if err := c.checkState(pop3.ConnStateAuthenticated); err != nil {
		return err
	}
	data, err := c.session.Stat()
	if err != nil {
		return err
	}
	return c.writeOK(fmt.Sprintf("%d %d", data.NumMessages, data.Size))
}

func (c *Conn) handleList(args string) error {
	fields, err := parseArgs(args, 0, 1)
	if err != nil {
		return err
	}
	if err := c.checkState(pop3.ConnStateAuthenticated); err != nil {
		return err
	}

	var num uint32
	if len(fields) > 0 {
		if num, err = parseMsgNum(fields[0]); err != nil {
			return err
		}
	}

	l, err := c.session.List()
	if err != nil {
		return err
	}

	if num != 0 {
		for _, data := range l {
			if data.Num == num {
				return c.writeOK(fmt.Sprintf("%d %d", data.Num, data.Size))
			}
		}
		return ErrNoSuchMessage
	}

	var size int64
	for _, data := range l {
		size += data.Size
	}
	return c.writeMultiLine(fmt.Sprintf("%d messages (%d octets)", len(l), size), func(w io.Writer) error {
		for _, data := range l {
			if _, err := fmt.Fprintf(w, "%d %d\r\n", data.Num, data.Size); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Conn) handleUIDL(args string) error {
	fields, err := parseArgs(args, 0, 1)
	if err != nil {
		return err
	}
	if err := c.checkState(pop3.ConnStateAuthenticated); err != nil {
		return err
	}

	var num uint32
	if len(fields) > 0 {
		if num, err = parseMsgNum(fields[0]); err != nil {
			return err
		}
	}

	l, err := c.session.UIDL()
	if err != nil {
		return err
	}

	if num != 0 {
		for _, data := range l {
			if data.Num == num {
				return c.writeOK(fmt.Sprintf("%d %s", data.Num, data.UID))
			}
		}
		return ErrNoSuchMessage
	}

	return c.writeMultiLine("", func(w io.Writer) error {
		for _, data := range l {
			if _, err := fmt.Fprintf(w, "%d %s\r\n", data.Num, data.UID); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Conn) handleRetr(args string) error {
	fields, err := parseArgs(args, 1, 1)
	if err != nil {
		return err
	}
	if err := c.checkState(pop3.ConnStateAuthenticated); err != nil {
		return err
	}
	num, err := parseMsgNum(fields[0])
	if err != nil {
		return err
	}

	rc, err := c.session.Retr(num)
	if err != nil {
		return err
	}
	defer rc.Close()

	return c.writeMultiLine("message follows", func(w io.Writer) error {
		_, err := io.Copy(w, rc)
		return err
	})
}

func (c *Conn) handleTop(args string) error {
	fields, err := parseArgs(args, 2, 2)
	if err != nil {
		return err
	}
	if err := c.checkState(pop3.ConnStateAuthenticated); err != nil {
		return err
	}
	num, err := parseMsgNum(fields[0])
	if err != nil {
		return err
	}
	n, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return errSyntax
	}

	rc, err := c.session.Retr(num)
	if err != nil {
		return err
	}
	defer rc.Close()

	return c.writeMultiLine("top of message follows", func(w io.Writer) error {
		return copyTop(w, bufio.NewReader(rc), uint32(n))
	})
}

// copyTop copies the header of a message, the blank line separating it from
// the body and the first n lines of the body.
func copyTop(w io.Writer, br *bufio.Reader, n uint32) error {
	inHeader := true
	for inHeader || n > 0 {
		line, err := br.ReadString('\n')
		if line != "" {
			if _, err := io.WriteString(w, line); err != nil {
				return err
			}
		}
		if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}

		if !inHeader {
			n--
		} else if line == "\r\n" || line == "\n" {
			inHeader = false
		}
	}
	return nil
}

func (c *Conn) handleDele(args string) error {
	fields, err := parseArgs(args, 1, 1)
	if err != nil {
		return err
	}
	if err := c.checkState(pop3.ConnStateAuthenticated); err != nil {
		return err
	}
	num, err := parseMsgNum(fields[0])
	if err != nil {
		return err
	}
	if err := c.session.Dele(num); err != nil {
		return err
	}
	return c.writeOK(fmt.Sprintf("message %d deleted", num))
}

func (c *Conn) handleRset() error {
	if err := c.checkState(pop3.ConnStateAuthenticated); err != nil {
		return err
	}
	if err := c.session.Rset(); err != nil {
		return err
	}
	return c.writeOK("")
}

// writeMultiLine writes a positive status line followed by a byte-stuffed
// payload.
//
// Once the status line has been written, the reply can't be turned into a
// negative one: any error is fatal to the connection.
func (c *Conn) writeMultiLine(text string, f func(w io.Writer) error) error {
	if err := c.writeOK(text); err != nil {
		return err
	}
	w := c.enc.DotWriter()
	if err := f(w); err != nil {
		return &connError{err}
	}
	if err := w.Close(); err != nil {
		return &connError{err}
	}
	return nil
}
