package pop3_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/emersion/go-pop3"
)

func TestParseCapLine(t *testing.T) {
	tests := []struct {
		line string
		cap  pop3.Cap
		args []string
	}{
		{"TOP", pop3.CapTop, []string{}},
		{"sasl PLAIN  LOGIN", pop3.CapSASL, []string{"PLAIN", "LOGIN"}},
		{"IMPLEMENTATION Shlemazle-Plotz-v302", pop3.CapImplementation, []string{"Shlemazle-Plotz-v302"}},
		{"  ", "", nil},
	}
	for _, tc := range tests {
		c, args := pop3.ParseCapLine(tc.line)
		assert.Equal(t, tc.cap, c, "ParseCapLine(%q)", tc.line)
		assert.Equal(t, tc.args, args, "ParseCapLine(%q)", tc.line)
	}
}

func TestCapSet(t *testing.T) {
	caps := pop3.CapSet{
		pop3.CapUIDL: nil,
		pop3.CapSASL: {"PLAIN", "XOAUTH2"},
	}
	assert.True(t, caps.Has(pop3.CapUIDL))
	assert.False(t, caps.Has(pop3.CapSTLS))
	assert.Equal(t, []string{"PLAIN", "XOAUTH2"}, caps.AuthMechanisms())
	assert.Nil(t, caps.Args(pop3.CapTop))
}
