// Package session carries the caller's identity and role through an
// interactive run. The ledger itself never checks roles; front ends ask the
// session before dispatching a command.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/subledger/id"
)

// ErrUnknownRole is returned when a role name is not recognized.
var ErrUnknownRole = errors.New("session: unknown role")

// ErrForbidden is returned when the session's role may not run a command.
var ErrForbidden = errors.New("session: command requires admin role")

// Role is the caller's permission level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Command names understood by front ends.
const (
	CommandAdd    = "add"
	CommandList   = "list"
	CommandView   = "view"
	CommandUpdate = "update"
	CommandDelete = "delete"
	CommandReport = "report"
	CommandImport = "import"
	CommandExport = "export"
	CommandCancel = "cancel"
	CommandRenew  = "renew"
	CommandQuota  = "quota"
	CommandTiers  = "tiers"
)

// adminOnly lists the commands that need RoleAdmin.
var adminOnly = map[string]bool{
	CommandUpdate: true,
	CommandDelete: true,
	CommandReport: true,
	CommandImport: true,
	CommandExport: true,
}

// ParseRole resolves a role name, ignoring case.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleAdmin, RoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

func (r Role) String() string { return string(r) }

// Session is one interactive run.
type Session struct {
	ID        id.ID     `json:"id"`
	Role      Role      `json:"role"`
	StartedAt time.Time `json:"started_at"`
}

// New starts a session for role.
func New(role Role) *Session {
	return &Session{
		ID:        id.NewSessionID(),
		Role:      role,
		StartedAt: time.Now().UTC(),
	}
}

// IsAdmin reports whether the session has the admin role.
func (s *Session) IsAdmin() bool { return s.Role == RoleAdmin }

// Can reports whether the session may run command.
func (s *Session) Can(command string) bool {
	if adminOnly[strings.ToLower(command)] {
		return s.IsAdmin()
	}
	return true
}

// Authorize returns ErrForbidden when the session may not run command.
func (s *Session) Authorize(command string) error {
	if !s.Can(command) {
		return fmt.Errorf("%w: %s", ErrForbidden, command)
	}
	return nil
}

// AdminOnly reports whether command needs the admin role.
func AdminOnly(command string) bool { return adminOnly[strings.ToLower(command)] }
