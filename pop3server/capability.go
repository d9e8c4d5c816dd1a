package pop3server

import (
	"io"
	"strings"

	"github.com/emersion/go-sasl"

	"github.com/emersion/go-pop3"
)

const implementation = "go-pop3"

func (c *Conn) handleCapability() error {
	if c.state == pop3.ConnStateLogout {
		return pop3.NewError("CAPA not available")
	}

	if err := c.writeOK("Capability list follows"); err != nil {
		return err
	}

	w := c.enc.DotWriter()
	for _, line := range c.availableCaps() {
		if _, err := io.WriteString(w, line+"\r\n"); err != nil {
			return &connError{err}
		}
	}
	if err := w.Close(); err != nil {
		return &connError{err}
	}
	return nil
}

func (c *Conn) availableCaps() []string {
	caps := []string{
		string(pop3.CapTop),
		string(pop3.CapUIDL),
		string(pop3.CapRespCodes),
		string(pop3.CapAuthRespCode),
		string(pop3.CapImplementation) + " " + implementation,
	}
	if c.canStartTLS() {
		caps = append(caps, string(pop3.CapSTLS))
	}
	if c.state == pop3.ConnStateNotAuthenticated && c.canAuth() {
		caps = append(caps, string(pop3.CapUser))
		caps = append(caps, strings.Join([]string{string(pop3.CapSASL), sasl.Plain}, " "))
	}
	return caps
}
