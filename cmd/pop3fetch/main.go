package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/emersion/go-pop3/pop3client"
)

var (
	configPath string
	debug      bool
)

func main() {
	flag.StringVar(&configPath, "config", "pop3fetch.toml", "account configuration file")
	flag.BoolVar(&debug, "debug", false, "Print all commands and responses")
	flag.Parse()

	logger := logrus.New()
	if debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		logger.Fatal(err)
	}
	security, _ := cfg.security()

	var debugWriter io.Writer
	if debug {
		debugWriter = os.Stderr
	}
	c, err := pop3client.Dial(cfg.Address, &pop3client.Options{
		Security:    security,
		DebugWriter: debugWriter,
	})
	if err != nil {
		logger.Fatalf("failed to connect: %v", err)
	}
	defer c.Close()

	if err := login(c, cfg); err != nil {
		logger.Fatalf("failed to log in: %v", err)
	}
	logger.WithField("username", cfg.Username).Debug("logged in")

	if cfg.Output != "" {
		if err := os.MkdirAll(cfg.Output, 0o700); err != nil {
			logger.Fatal(err)
		}
	}

	msgs, err := fetch(c, cfg, logger)
	for _, msg := range msgs {
		fmt.Printf("%v\t%v\t%v\t%v\n", msg.Num, msg.UID, msg.Size, msg.Subject)
	}
	if err != nil {
		// Leave the maildrop untouched
		logger.Fatal(err)
	}

	if err := c.Quit(); err != nil {
		logger.Fatalf("QUIT failed: %v", err)
	}
}
