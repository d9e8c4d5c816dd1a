package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/emersion/go-pop3/pop3client"
)

// config is an account file:
//
//	address = "mail.example.org:995"
//	security = "tls"
//	username = "alice"
//	password = "s3cret"
//	auth = "user"
//	output = "/home/alice/mail/new"
//	delete = false
type config struct {
	Address  string `toml:"address"`
	Security string `toml:"security"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	Auth     string `toml:"auth"`
	Output   string `toml:"output"`
	Delete   bool   `toml:"delete"`
}

type authMethod string

const (
	authUser  authMethod = "user"
	authAPOP  authMethod = "apop"
	authPlain authMethod = "plain"
)

func loadConfig(path string) (*config, error) {
	cfg := config{
		Security: "tls",
		Auth:     string(authUser),
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, fmt.Errorf("load config: missing address")
	}
	if _, err := cfg.security(); err != nil {
		return nil, err
	}
	switch authMethod(strings.ToLower(cfg.Auth)) {
	case authUser, authAPOP, authPlain:
		cfg.Auth = strings.ToLower(cfg.Auth)
	default:
		return nil, fmt.Errorf("load config: unknown auth method %q", cfg.Auth)
	}
	return &cfg, nil
}

func (cfg *config) security() (pop3client.Security, error) {
	switch strings.ToLower(cfg.Security) {
	case "tls":
		return pop3client.SecurityImplicitTLS, nil
	case "starttls":
		return pop3client.SecurityStartTLS, nil
	case "none":
		return pop3client.SecurityNone, nil
	default:
		return 0, fmt.Errorf("load config: unknown security %q", cfg.Security)
	}
}
