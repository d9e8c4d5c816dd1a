package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/sirupsen/logrus"

	"github.com/emersion/go-pop3"
	"github.com/emersion/go-pop3/pop3client"
)

// fetchedMessage describes a message of the maildrop.
type fetchedMessage struct {
	Num     uint32
	UID     string
	Size    int64
	Subject string
	Path    string
}

func login(c *pop3client.Client, cfg *config) error {
	switch authMethod(cfg.Auth) {
	case authAPOP:
		timestamp := c.Timestamp()
		if timestamp == "" {
			return fmt.Errorf("server doesn't support APOP")
		}
		return c.APOP(cfg.Username, pop3.APOPDigest(timestamp, cfg.Password))
	case authPlain:
		return c.Authenticate(sasl.NewPlainClient("", cfg.Username, cfg.Password))
	default:
		return c.Login(cfg.Username, cfg.Password)
	}
}

// fetch lists the maildrop, optionally saving and deleting each message. The
// deletions are only committed by a subsequent QUIT.
func fetch(c *pop3client.Client, cfg *config, logger logrus.FieldLogger) ([]fetchedMessage, error) {
	sizes, err := c.ListAll()
	if err != nil {
		return nil, fmt.Errorf("LIST failed: %w", err)
	}

	// UIDL is optional
	uidl, err := c.UIDLAll()
	var popErr *pop3.Error
	if err != nil && !errors.As(err, &popErr) {
		return nil, fmt.Errorf("UIDL failed: %w", err)
	}
	uids := make(map[uint32]string, len(uidl))
	for _, data := range uidl {
		uids[data.Num] = data.UID
	}

	var out []fetchedMessage
	for _, data := range sizes {
		msg := fetchedMessage{Num: data.Num, UID: uids[data.Num], Size: data.Size}
		log := logger.WithFields(logrus.Fields{"num": msg.Num, "uid": msg.UID})

		var b []byte
		if cfg.Output != "" {
			b, err = c.Retr(msg.Num)
		} else {
			b, err = c.Top(msg.Num, 0)
		}
		if err != nil {
			return out, fmt.Errorf("failed to fetch message %v: %w", msg.Num, err)
		}

		msg.Subject, err = parseSubject(b)
		if err != nil {
			log.Warnf("failed to parse header: %v", err)
		}

		if cfg.Output != "" {
			msg.Path = filepath.Join(cfg.Output, messageFilename(msg))
			if err := os.WriteFile(msg.Path, b, 0o600); err != nil {
				return out, err
			}
			log.WithField("path", msg.Path).Debug("message saved")
		}

		if cfg.Delete {
			if err := c.Dele(msg.Num); err != nil {
				return out, fmt.Errorf("failed to delete message %v: %w", msg.Num, err)
			}
		}

		out = append(out, msg)
	}
	return out, nil
}

func parseSubject(b []byte) (string, error) {
	e, err := message.Read(bytes.NewReader(b))
	if e == nil {
		return "", err
	}
	h := mail.Header{Header: e.Header}
	subject, subjectErr := h.Subject()
	if subjectErr != nil {
		return h.Get("Subject"), subjectErr
	}
	if message.IsUnknownCharset(err) || message.IsUnknownEncoding(err) {
		err = nil
	}
	return subject, err
}

var filenameReplacer = strings.NewReplacer("/", "_", "\\", "_")

func messageFilename(msg fetchedMessage) string {
	name := msg.UID
	if name == "" {
		name = fmt.Sprintf("%v", msg.Num)
	}
	name = filenameReplacer.Replace(name)
	if strings.HasPrefix(name, ".") {
		name = "_" + name
	}
	return name + ".eml"
}
