package operator

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidRole  = errors.New("invalid role")
)

// Role controls what an operator may do to a machine. Managers operate the
// machines assigned to them; admins operate any machine; viewers only read.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleViewer  Role = "viewer"
)

func NewRole(s string) (Role, error) {
	switch Role(strings.ToLower(s)) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleManager:
		return RoleManager, nil
	case RoleViewer:
		return RoleViewer, nil
	default:
		return "", ErrInvalidRole
	}
}

func (r Role) String() string {
	return string(r)
}

type Email string

func NewEmail(s string) (Email, error) {
	if s == "" {
		return "", ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(s); err != nil {
		return "", ErrInvalidEmail
	}
	return Email(s), nil
}

func (e Email) String() string {
	return string(e)
}

// Operator is the authenticated actor behind refill and administrative calls.
type Operator struct {
	id           uuid.UUID
	email        Email
	passwordHash string
	role         Role
	active       bool
}

func NewOperator(email Email, passwordHash string, role Role) *Operator {
	return &Operator{
		id:           uuid.New(),
		email:        email,
		passwordHash: passwordHash,
		role:         role,
		active:       true,
	}
}

func ReconstructOperator(id uuid.UUID, email Email, passwordHash string, role Role, active bool) *Operator {
	return &Operator{
		id:           id,
		email:        email,
		passwordHash: passwordHash,
		role:         role,
		active:       active,
	}
}

func (o *Operator) ID() uuid.UUID        { return o.id }
func (o *Operator) Email() Email         { return o.email }
func (o *Operator) PasswordHash() string { return o.passwordHash }
func (o *Operator) Role() Role           { return o.role }
func (o *Operator) IsActive() bool       { return o.active }

func (o *Operator) IsAdmin() bool {
	return o.role == RoleAdmin
}

func (o *Operator) IsManager() bool {
	return o.role == RoleManager
}
