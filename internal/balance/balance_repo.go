package balance

import (
	"context"
	"database/sql"

	balanceerrors "github.com/Harshith-Raju/Leave-Management-System/internal/balance/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	CreateForEmployee(ctx context.Context, employeeID uuid.UUID, initial int) error
	GetByEmployee(ctx context.Context, employeeID string) (*LeaveBalance, error)
	DeductDays(ctx context.Context, employeeID string, days int) error
	DeleteByEmployee(ctx context.Context, employeeID string) error
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) CreateForEmployee(ctx context.Context, employeeID uuid.UUID, initial int) error {
	query := `
        INSERT INTO leave_balances (id, employee_id, balance, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
    `

	exec := r.execer()
	_, err := exec.ExecContext(ctx, query, uuid.New(), employeeID, initial)
	return err
}

func (r *repository) GetByEmployee(ctx context.Context, employeeID string) (*LeaveBalance, error) {
	var lb LeaveBalance
	err := r.db.WithContext(ctx).
		First(&lb, "employee_id = ?", employeeID).Error
	return &lb, err
}

// DeductDays subtracts days from the employee's balance in a single
// conditional UPDATE. The WHERE clause is the invariant: the row is only
// touched when the remaining balance covers the deduction, so two concurrent
// approvals can never drive the balance negative.
func (r *repository) DeductDays(ctx context.Context, employeeID string, days int) error {
	query := `
        UPDATE leave_balances
        SET balance = balance - $1, updated_at = NOW()
        WHERE employee_id = $2 AND balance >= $1
    `

	exec := r.execer()
	res, err := exec.ExecContext(ctx, query, days, employeeID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return balanceerrors.ErrInsufficientBalance
	}

	return nil
}

func (r *repository) DeleteByEmployee(ctx context.Context, employeeID string) error {
	query := `DELETE FROM leave_balances WHERE employee_id = $1`

	exec := r.execer()
	_, err := exec.ExecContext(ctx, query, employeeID)
	return err
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db.ConnPool
}
