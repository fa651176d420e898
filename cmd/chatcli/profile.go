package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Profile is the chatcli settings file.
type Profile struct {
	Server   string `toml:"server"`
	Username string `toml:"username"`
	// PasswordEnv names the variable holding the password so it stays out of the file.
	PasswordEnv string `toml:"password_env"`
	Theme       Theme  `toml:"theme"`
}

type Theme struct {
	Accent string `toml:"accent"`
	Muted  string `toml:"muted"`
	Error  string `toml:"error"`
}

func defaultProfile() Profile {
	return Profile{
		Server:      "http://localhost:8080",
		PasswordEnv: "CHATSTREAM_PASSWORD",
		Theme:       Theme{Accent: "#7D56F4", Muted: "#888888", Error: "#FF5F87"},
	}
}

func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "chatcli.toml"
	}
	return filepath.Join(dir, "chatstream", "chatcli.toml")
}

// loadProfile reads path over the defaults. A missing file is not an error.
func loadProfile(path string) (Profile, error) {
	p := defaultProfile()
	if _, err := toml.DecodeFile(path, &p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("read profile %s: %w", path, err)
	}
	return p, nil
}

// password resolves the password from the environment variable the profile names.
func (p Profile) password() string {
	if p.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(p.PasswordEnv)
}

// saveProfile writes p, creating the directory if needed.
func saveProfile(path string, p Profile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(p)
}
