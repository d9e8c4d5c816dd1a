package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/emersion/go-pop3/pop3server/pop3memserver"
)

// fixtureFile is the TOML layout accepted by -fixture:
//
//	[[user]]
//	username = "alice"
//	password = "s3cret"
//	messages = ["hello.eml", "testdata/*.eml"]
//
// Message paths are globs relative to the fixture file.
type fixtureFile struct {
	Users []fixtureUser `toml:"user"`
}

type fixtureUser struct {
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	Messages []string `toml:"messages"`
}

func loadFixture(path string) ([]*pop3memserver.User, error) {
	var raw fixtureFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, fmt.Errorf("load fixture: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load fixture: unknown key %q", undecoded[0].String())
	}

	dir := filepath.Dir(path)
	var users []*pop3memserver.User
	for _, fu := range raw.Users {
		if fu.Username == "" {
			return nil, fmt.Errorf("load fixture: user without a username")
		}
		u := pop3memserver.NewUser(fu.Username, fu.Password)
		for _, pattern := range fu.Messages {
			if !filepath.IsAbs(pattern) {
				pattern = filepath.Join(dir, pattern)
			}
			matches, err := filepath.Glob(pattern)
			if err != nil {
				return nil, fmt.Errorf("load fixture: %w", err)
			} else if len(matches) == 0 {
				return nil, fmt.Errorf("load fixture: no message matches %q", pattern)
			}
			for _, name := range matches {
				if err := appendFile(u, name); err != nil {
					return nil, err
				}
			}
		}
		users = append(users, u)
	}
	return users, nil
}

func appendFile(u *pop3memserver.User, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := u.Append(f); err != nil {
		return fmt.Errorf("failed to append %v: %w", name, err)
	}
	return nil
}
