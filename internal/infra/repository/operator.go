package repository

import (
	"context"

	"vendfleet/internal/domain/operator"
	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/pkg/pgconv"

	"github.com/google/uuid"
)

type OperatorRepository struct {
	db db.DBTX
}

func NewOperatorRepository(dbtx db.DBTX) *OperatorRepository {
	return &OperatorRepository{db: dbtx}
}

const operatorColumns = `id, email, password_hash, role, active`

func (r *OperatorRepository) FindByEmail(ctx context.Context, email string) (*operator.Operator, error) {
	row := r.db.QueryRow(ctx, `SELECT `+operatorColumns+` FROM operators WHERE email = $1`, email)
	return scanOperator(row)
}

func (r *OperatorRepository) FindByID(ctx context.Context, id uuid.UUID) (*operator.Operator, error) {
	row := r.db.QueryRow(ctx, `SELECT `+operatorColumns+` FROM operators WHERE id = $1`, id)
	return scanOperator(row)
}

func (r *OperatorRepository) Create(ctx context.Context, o *operator.Operator) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO operators (id, email, password_hash, role, active)
		VALUES ($1, $2, $3, $4, $5)`,
		o.ID(), o.Email().String(), o.PasswordHash(), o.Role().String(), o.IsActive(),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create operator", err)
	}
	return nil
}

func scanOperator(row rowScanner) (*operator.Operator, error) {
	var (
		id           uuid.UUID
		emailStr     string
		passwordHash string
		roleStr      string
		active       bool
	)

	err := row.Scan(&id, &emailStr, &passwordHash, &roleStr, &active)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("operator not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan operator", err)
	}

	email, err := operator.NewEmail(emailStr)
	if err != nil {
		return nil, infra.WrapRepoErr("stored operator email invalid", err)
	}
	role, err := operator.NewRole(roleStr)
	if err != nil {
		return nil, infra.WrapRepoErr("stored operator role invalid", err)
	}

	return operator.ReconstructOperator(id, email, passwordHash, role, active), nil
}
