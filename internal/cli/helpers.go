package cli

import (
	"fmt"
	"syscall"
	"time"

	"golang.org/x/term"

	"stof/internal/client"
	"stof/internal/config"
)

// newClient builds the shared HTTP client, honoring a configured timeout.
func newClient() *client.Client {
	opts := []client.Option{client.WithLogger(logger)}
	if cfg, err := config.Load(); err == nil && cfg.TimeoutSeconds > 0 {
		opts = append(opts, client.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	return client.New(opts...)
}

// credentialsFromFlags turns the --username/--password pair into optional
// credentials. A username without a password prompts for one; neither
// flag means anonymous access.
func credentialsFromFlags(username, password string) (*client.Credentials, error) {
	if username == "" {
		return nil, nil
	}
	if password == "" {
		fmt.Print("Password: ")
		passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(passwordBytes)
	}
	return &client.Credentials{Username: username, Password: password}, nil
}
