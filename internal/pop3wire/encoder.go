package pop3wire

import (
	"bufio"
	"errors"
	"io"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/emersion/go-pop3"
)

var errInvalidArg = errors.New("pop3wire: argument contains CR, LF or NUL")

// An Encoder writes POP3 data.
//
// Most methods don't return an error, instead they defer error handling until
// CRLF is called. These methods return the Encoder so that calls can be
// chained. Nothing is written to the underlying writer until CRLF is called,
// and nothing at all is written if an error occurred.
type Encoder struct {
	w   *bufio.Writer
	sb  strings.Builder
	err error
}

// NewEncoder creates a new encoder.
func NewEncoder(w *bufio.Writer) *Encoder {
	return &Encoder{w: w}
}

func (enc *Encoder) setErr(err error) {
	if enc.err == nil {
		enc.err = err
	}
}

func (enc *Encoder) writeString(s string) *Encoder {
	if enc.err != nil {
		return enc
	}
	if err := ValidateArg(s); err != nil {
		enc.setErr(err)
		return enc
	}
	enc.sb.WriteString(s)
	return enc
}

// Atom writes a command name or a single argument.
func (enc *Encoder) Atom(s string) *Encoder {
	return enc.writeString(s)
}

// SP writes a space.
func (enc *Encoder) SP() *Encoder {
	return enc.writeString(" ")
}

// Number writes a message number.
func (enc *Encoder) Number(n uint32) *Encoder {
	return enc.writeString(strconv.FormatUint(uint64(n), 10))
}

// Text writes free text, e.g. the text of a status line.
func (enc *Encoder) Text(s string) *Encoder {
	return enc.writeString(s)
}

// Status writes a status line marker, followed by the text if any.
func (enc *Encoder) Status(typ pop3.StatusResponseType, text string) *Encoder {
	enc.Atom(string(typ))
	if text != "" {
		enc.SP().Text(text)
	}
	return enc
}

// CRLF writes a "\r\n" sequence and flushes the buffered writer.
//
// If an error occurred while encoding the line, it is returned and the line
// is discarded.
func (enc *Encoder) CRLF() error {
	line := enc.sb.String()
	enc.sb.Reset()
	if err := enc.err; err != nil {
		enc.err = nil
		return err
	}
	if _, err := enc.w.WriteString(line + "\r\n"); err != nil {
		return err
	}
	return enc.w.Flush()
}

// DotWriter returns a writer for the payload of a multi-line reply.
//
// Lines starting with a dot are byte-stuffed and bare LF line terminators
// are converted to CRLF. Close writes the terminating dot line and flushes
// the buffered writer.
func (enc *Encoder) DotWriter() io.WriteCloser {
	return textproto.NewWriter(enc.w).DotWriter()
}
