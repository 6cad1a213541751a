package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"stof/internal/client"
)

// Permission is a runner authorization bitmask.
type Permission int64

const (
	PermRead   Permission = 1
	PermWrite  Permission = 2
	PermDelete Permission = 4
	PermExec   Permission = 8
)

// DefaultPermissions grants read and exec only.
const DefaultPermissions = PermRead | PermExec

// Has reports whether all bits of q are set.
func (p Permission) Has(q Permission) bool {
	return p&q == q
}

// Names decomposes the bitmask into its set permissions.
func (p Permission) Names() []string {
	var names []string
	if p.Has(PermRead) {
		names = append(names, "read")
	}
	if p.Has(PermWrite) {
		names = append(names, "write")
	}
	if p.Has(PermDelete) {
		names = append(names, "delete")
	}
	if p.Has(PermExec) {
		names = append(names, "exec")
	}
	return names
}

func (p Permission) String() string {
	names := p.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Admin performs authenticated user management against a runner. The
// runner owns the account lifecycle; this side only sends requests and
// prints the response text verbatim.
type Admin struct {
	client *client.Client
	logger *log.Logger
	stdout io.Writer
}

// NewAdmin creates an Admin around a shared client.
func NewAdmin(c *client.Client, logger *log.Logger) *Admin {
	if logger == nil {
		logger = log.Default()
	}
	return &Admin{client: c, logger: logger, stdout: os.Stdout}
}

// SetOutput redirects where response text is printed.
func (a *Admin) SetOutput(w io.Writer) {
	a.stdout = w
}

// SetUser creates or updates a user account on the runner. The scope is
// a path prefix restricting the user's write and delete access.
func (a *Admin) SetUser(ctx context.Context, address string, adminCreds client.Credentials, username, password string, perms Permission, scope string) error {
	text, err := a.client.SetUser(ctx, address, adminCreds, username, password, int64(perms), scope)
	if err != nil {
		a.logger.Error("set user", "address", address, "username", username, "err", err)
		return err
	}
	fmt.Fprintln(a.stdout, text)
	return nil
}

// DeleteUser removes a user account on the runner.
func (a *Admin) DeleteUser(ctx context.Context, address string, adminCreds client.Credentials, username string) error {
	text, err := a.client.DeleteUser(ctx, address, adminCreds, username)
	if err != nil {
		a.logger.Error("delete user", "address", address, "username", username, "err", err)
		return err
	}
	fmt.Fprintln(a.stdout, text)
	return nil
}
