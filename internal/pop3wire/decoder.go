package pop3wire

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/emersion/go-pop3"
)

// Reply is a positive reply.
type Reply struct {
	// Text following the "+OK" marker
	Text string
	// Payload lines of a multi-line reply, without line terminators and
	// byte-stuffing
	Lines []string
}

// A Decoder reads POP3 data.
//
// The Decoder never reads past the end of the current reply: once a method
// returns, the underlying reader is positioned at the start of the next
// reply.
type Decoder struct {
	r *bufio.Reader
}

// NewDecoder creates a new decoder.
func NewDecoder(r *bufio.Reader) *Decoder {
	return &Decoder{r: r}
}

// ReadLine reads a single line, without the line terminator.
//
// A bare LF is accepted as a line terminator. If the connection is closed
// before a full line has been read, pop3.ErrConnectionAborted is returned.
func (dec *Decoder) ReadLine() (string, error) {
	var (
		buf     []byte
		tooLong *pop3.InvalidReplyError
	)
	for {
		b, err := dec.r.ReadSlice('\n')
		if tooLong == nil && len(buf)+len(b) > MaxLineLength {
			tooLong = &pop3.InvalidReplyError{
				Line:   string(append(buf, b...)[:64]),
				Reason: "line too long",
			}
			buf = nil
		}
		if tooLong == nil {
			buf = append(buf, b...)
		}
		if err == bufio.ErrBufferFull {
			continue
		} else if err == io.EOF {
			return "", pop3.ErrConnectionAborted
		} else if err != nil {
			return "", err
		}
		break
	}
	// The rest of an overlong line is discarded so that the next read starts
	// on a line boundary
	if tooLong != nil {
		return "", tooLong
	}

	line := string(buf[:len(buf)-1])
	return strings.TrimSuffix(line, "\r"), nil
}

// ReadReply reads a reply.
//
// If the reply is negative, a *pop3.Error is returned, regardless of
// multiline. If multiline is true, the payload lines following a positive
// status line are read until the terminating dot line.
func (dec *Decoder) ReadReply(multiline bool) (*Reply, error) {
	line, err := dec.ReadLine()
	if err != nil {
		return nil, err
	}
	reply, err := parseReply(line)
	if err != nil || !multiline {
		return reply, err
	}
	reply.Lines, err = dec.ReadLines()
	if err != nil {
		return nil, err
	}
	return reply, nil
}

func parseReply(line string) (*Reply, error) {
	typ, text, err := ParseStatusLine(line)
	if err != nil {
		return nil, err
	}
	if typ == pop3.StatusResponseTypeErr {
		return nil, pop3.NewError(text)
	}
	return &Reply{Text: text}, nil
}

// ReadLines reads the payload of a multi-line reply.
//
// The terminating line is consumed but not returned. One leading dot is
// removed from byte-stuffed lines.
func (dec *Decoder) ReadLines() ([]string, error) {
	var (
		lines    = []string{}
		firstErr error
	)
	for {
		line, err := dec.ReadLine()
		var replyErr *pop3.InvalidReplyError
		if errors.As(err, &replyErr) {
			// Keep reading up to the terminator
			if firstErr == nil {
				firstErr = err
			}
			continue
		} else if err != nil {
			return nil, err
		}
		if line == "." {
			break
		}
		lines = append(lines, strings.TrimPrefix(line, "."))
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return lines, nil
}

// ReadAuthReply reads a reply during a SASL exchange.
//
// If the server sent a continuation request, cont is true and challenge
// contains the base64-encoded challenge. Otherwise, the line is decoded as a
// single-line reply.
func (dec *Decoder) ReadAuthReply() (challenge string, cont bool, reply *Reply, err error) {
	line, err := dec.ReadLine()
	if err != nil {
		return "", false, nil, err
	}
	if line == "+" {
		return "", true, nil, nil
	} else if strings.HasPrefix(line, "+ ") {
		return line[2:], true, nil, nil
	}
	reply, err = parseReply(line)
	return "", false, reply, err
}

// ReadCommand reads a command line sent by a client.
//
// The command name is upper-cased. The arguments are returned unparsed.
func (dec *Decoder) ReadCommand() (name, args string, err error) {
	line, err := dec.ReadLine()
	if err != nil {
		return "", "", err
	}
	name, args, _ = strings.Cut(line, " ")
	return strings.ToUpper(name), args, nil
}
