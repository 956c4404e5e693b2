package commands

import (
	"context"

	"vendfleet/internal/domain/operator"
	"vendfleet/internal/infra"
	"vendfleet/internal/pkg/errs"
	"vendfleet/internal/pkg/jwt"
	"vendfleet/internal/pkg/password"
	"vendfleet/internal/usecase/shared"
)

var (
	ErrAuthenticationFailed = errs.New("authentication failed")
	ErrOperatorInactive     = errs.New("operator deactivated")
	ErrDuplicateEmail       = errs.New("email already registered")
	ErrInvalidOperator      = errs.New("invalid operator parameters")
)

type LoginResult struct {
	Token    string
	Operator *operator.Operator
}

type AuthCommands interface {
	Login(ctx context.Context, email, rawPassword string) (*LoginResult, error)
	Register(ctx context.Context, email, rawPassword, role string, actor shared.Actor) (*operator.Operator, error)
}

type authCommandsImpl struct {
	operators shared.OperatorRepository
	tokens    *jwt.Service
}

func NewAuthCommands(operators shared.OperatorRepository, tokens *jwt.Service) AuthCommands {
	return &authCommandsImpl{operators: operators, tokens: tokens}
}

func (uc *authCommandsImpl) Login(ctx context.Context, email, rawPassword string) (*LoginResult, error) {
	o, err := uc.operators.FindByEmail(ctx, email)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			// Same failure for unknown email and wrong password.
			return nil, ErrAuthenticationFailed
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if !o.IsActive() {
		return nil, ErrOperatorInactive
	}

	if err := password.ComparePassword(o.PasswordHash(), rawPassword); err != nil {
		return nil, ErrAuthenticationFailed
	}

	token, err := uc.tokens.GenerateToken(o.ID(), o.Role())
	if err != nil {
		return nil, errs.Wrap(err, "failed to sign token")
	}

	return &LoginResult{Token: token, Operator: o}, nil
}

func (uc *authCommandsImpl) Register(ctx context.Context, email, rawPassword, role string, actor shared.Actor) (*operator.Operator, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	addr, err := operator.NewEmail(email)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidOperator)
	}
	r, err := operator.NewRole(role)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidOperator)
	}

	hash, err := password.HashPassword(rawPassword)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidOperator)
	}

	o := operator.NewOperator(addr, hash, r)
	if err := uc.operators.Create(ctx, o); err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) {
			return nil, ErrDuplicateEmail
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	return o, nil
}
