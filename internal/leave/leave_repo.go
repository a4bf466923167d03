package leave

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, lr *LeaveRequest) error
	FindByID(ctx context.Context, id string) (*LeaveRequest, error)
	FindAll(ctx context.Context) ([]LeaveRequest, error)
	FindAllByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)
	HasApprovedOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error)
	UpdateStatusIfPending(ctx context.Context, id, status, decidedBy string) (int64, error)
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

func (r *repository) Create(ctx context.Context, lr *LeaveRequest) error {
	query := `
        INSERT INTO leave_requests
            (id, employee_id, start_date, end_date, working_days, reason, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
    `

	exec := r.execer()
	_, err := exec.ExecContext(
		ctx, query,
		lr.ID, lr.EmployeeID, lr.StartDate, lr.EndDate,
		lr.WorkingDays, lr.Reason, lr.Status,
	)
	return err
}

func (r *repository) FindByID(ctx context.Context, id string) (*LeaveRequest, error) {
	var lr LeaveRequest
	err := r.db.WithContext(ctx).First(&lr, "id = ?", id).Error
	return &lr, err
}

func (r *repository) FindAll(ctx context.Context) ([]LeaveRequest, error) {
	var lrs []LeaveRequest
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&lrs).Error
	return lrs, err
}

func (r *repository) FindAllByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	var lrs []LeaveRequest
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Order("created_at DESC").
		Find(&lrs).Error
	return lrs, err
}

// HasApprovedOverlap reports whether an APPROVED request of the employee
// intersects [start, end]. Pending requests do not block a new application.
func (r *repository) HasApprovedOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&LeaveRequest{}).
		Where("employee_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
			employeeID, StatusApproved, end, start).
		Count(&count).Error
	return count > 0, err
}

// UpdateStatusIfPending moves the request out of PENDING and returns the
// number of rows changed. Zero rows means another decision won the race.
func (r *repository) UpdateStatusIfPending(ctx context.Context, id, status, decidedBy string) (int64, error) {
	query := `
        UPDATE leave_requests
        SET status = $1, decided_by = $2, decided_at = NOW(), updated_at = NOW()
        WHERE id = $3 AND status = $4
    `

	exec := r.execer()
	res, err := exec.ExecContext(ctx, query, status, decidedBy, id, StatusPending)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *repository) DeleteByEmployee(ctx context.Context, employeeID string) error {
	query := `DELETE FROM leave_requests WHERE employee_id = $1`

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
