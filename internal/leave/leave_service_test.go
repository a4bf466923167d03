package leave_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Harshith-Raju/Leave-Management-System/internal/balance"
	balanceerrors "github.com/Harshith-Raju/Leave-Management-System/internal/balance/errors"
	"github.com/Harshith-Raju/Leave-Management-System/internal/leave"
	leaveerrors "github.com/Harshith-Raju/Leave-Management-System/internal/leave/errors"
	"github.com/Harshith-Raju/Leave-Management-System/internal/messaging/kafka"
)

type fakeLeaveRepository struct {
	withTxFn                func(tx *sql.Tx) leave.Repository
	createFn                func(ctx context.Context, lr *leave.LeaveRequest) error
	findByIDFn              func(ctx context.Context, id string) (*leave.LeaveRequest, error)
	findAllFn               func(ctx context.Context) ([]leave.LeaveRequest, error)
	findAllByEmployeeFn     func(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error)
	hasApprovedOverlapFn    func(ctx context.Context, employeeID string, start, end time.Time) (bool, error)
	updateStatusIfPendingFn func(ctx context.Context, id, status, decidedBy string) (int64, error)
	deleteByEmployeeFn      func(ctx context.Context, employeeID string) error
}

func (f *fakeLeaveRepository) WithTx(tx *sql.Tx) leave.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeLeaveRepository) Create(ctx context.Context, lr *leave.LeaveRequest) error {
	if f.createFn != nil {
		return f.createFn(ctx, lr)
	}
	return nil
}

func (f *fakeLeaveRepository) FindByID(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLeaveRepository) FindAll(ctx context.Context) ([]leave.LeaveRequest, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) FindAllByEmployee(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	if f.findAllByEmployeeFn != nil {
		return f.findAllByEmployeeFn(ctx, employeeID)
	}
	return nil, nil
}

func (f *fakeLeaveRepository) HasApprovedOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	if f.hasApprovedOverlapFn != nil {
		return f.hasApprovedOverlapFn(ctx, employeeID, start, end)
	}
	return false, nil
}

func (f *fakeLeaveRepository) UpdateStatusIfPending(ctx context.Context, id, status, decidedBy string) (int64, error) {
	if f.updateStatusIfPendingFn != nil {
		return f.updateStatusIfPendingFn(ctx, id, status, decidedBy)
	}
	return 1, nil
}

func (f *fakeLeaveRepository) DeleteByEmployee(ctx context.Context, employeeID string) error {
	if f.deleteByEmployeeFn != nil {
		return f.deleteByEmployeeFn(ctx, employeeID)
	}
	return nil
}

type fakeBalanceRepository struct {
	withTxFn            func(tx *sql.Tx) balance.Repository
	createForEmployeeFn func(ctx context.Context, employeeID uuid.UUID, initial int) error
	getByEmployeeFn     func(ctx context.Context, employeeID string) (*balance.LeaveBalance, error)
	deductDaysFn        func(ctx context.Context, employeeID string, days int) error
	deleteByEmployeeFn  func(ctx context.Context, employeeID string) error
}

func (f *fakeBalanceRepository) WithTx(tx *sql.Tx) balance.Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeBalanceRepository) CreateForEmployee(ctx context.Context, employeeID uuid.UUID, initial int) error {
	if f.createForEmployeeFn != nil {
		return f.createForEmployeeFn(ctx, employeeID, initial)
	}
	return nil
}

func (f *fakeBalanceRepository) GetByEmployee(ctx context.Context, employeeID string) (*balance.LeaveBalance, error) {
	if f.getByEmployeeFn != nil {
		return f.getByEmployeeFn(ctx, employeeID)
	}
	return &balance.LeaveBalance{Balance: balance.DefaultInitialBalance}, nil
}

func (f *fakeBalanceRepository) DeductDays(ctx context.Context, employeeID string, days int) error {
	if f.deductDaysFn != nil {
		return f.deductDaysFn(ctx, employeeID, days)
	}
	return nil
}

func (f *fakeBalanceRepository) DeleteByEmployee(ctx context.Context, employeeID string) error {
	if f.deleteByEmployeeFn != nil {
		return f.deleteByEmployeeFn(ctx, employeeID)
	}
	return nil
}

type fakeBalanceService struct {
	invalidated []string
}

func (f *fakeBalanceService) GetByEmployee(ctx context.Context, employeeID string) (balance.BalanceResponse, error) {
	return balance.BalanceResponse{}, nil
}

func (f *fakeBalanceService) InvalidateCache(ctx context.Context, employeeID string) {
	f.invalidated = append(f.invalidated, employeeID)
}

type fakeDirectory struct {
	lookupFn func(ctx context.Context, employeeID string) (leave.EmployeeInfo, error)
}

func (f *fakeDirectory) Lookup(ctx context.Context, employeeID string) (leave.EmployeeInfo, error) {
	if f.lookupFn != nil {
		return f.lookupFn(ctx, employeeID)
	}
	return leave.EmployeeInfo{
		HireDate:     time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		DepartmentID: uuid.NewString(),
	}, nil
}

type fakeOutboxRepository struct {
	withTxFn func(tx *sql.Tx) kafka.OutboxRepository
	createFn func(ctx context.Context, event kafka.OutboxEvent) error
}

func (f *fakeOutboxRepository) WithTx(tx *sql.Tx) kafka.OutboxRepository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}

func (f *fakeOutboxRepository) Create(ctx context.Context, event kafka.OutboxEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	return nil
}

func (f *fakeOutboxRepository) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkSent(ctx context.Context, id string) error {
	return nil
}

func (f *fakeOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return nil
}

type fixedClock struct {
	today time.Time
}

func (c fixedClock) Today() time.Time {
	return c.today
}

type leaveServiceDeps struct {
	db          *sql.DB
	sqlMock     sqlmock.Sqlmock
	service     leave.Service
	repo        *fakeLeaveRepository
	balanceRepo *fakeBalanceRepository
	balanceSvc  *fakeBalanceService
	directory   *fakeDirectory
	outbox      *fakeOutboxRepository
}

// 2026-06-01 is a Monday.
var testToday = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func setupLeaveServiceTest(t *testing.T) *leaveServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeLeaveRepository{}
	balanceRepo := &fakeBalanceRepository{}
	balanceSvc := &fakeBalanceService{}
	dir := &fakeDirectory{}
	outbox := &fakeOutboxRepository{}
	svc := leave.NewService(db, repo, balanceRepo, balanceSvc, dir, outbox, fixedClock{today: testToday}, zap.NewNop())

	return &leaveServiceDeps{
		db:          db,
		sqlMock:     sqlMock,
		service:     svc,
		repo:        repo,
		balanceRepo: balanceRepo,
		balanceSvc:  balanceSvc,
		directory:   dir,
		outbox:      outbox,
	}
}

func expectTx(t *testing.T, mock sqlmock.Sqlmock, commit bool) {
	t.Helper()
	mock.ExpectBegin()
	if commit {
		mock.ExpectCommit()
	} else {
		mock.ExpectRollback()
	}
}

func TestLeaveService_Apply(t *testing.T) {
	ctx := context.Background()
	employeeID := uuid.New().String()

	t.Run("success stores pending request with working days", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		var created *leave.LeaveRequest
		deps.repo.createFn = func(ctx context.Context, lr *leave.LeaveRequest) error {
			created = lr
			return nil
		}

		resp, err := deps.service.Apply(ctx, employeeID, leave.ApplyLeaveRequest{
			StartDate: "2026-06-08",
			EndDate:   "2026-06-14",
			Reason:    "family trip",
		})

		assert.NoError(t, err)
		assert.NotNil(t, created)
		assert.Equal(t, leave.StatusPending, created.Status)
		assert.Equal(t, 5, created.WorkingDays)
		assert.Equal(t, leave.StatusPending, resp.Status)
		assert.Equal(t, 5, resp.WorkingDays)
	})

	t.Run("negative end before start", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Apply(ctx, employeeID, leave.ApplyLeaveRequest{
			StartDate: "2026-06-10",
			EndDate:   "2026-06-08",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidDateRange)
	})

	t.Run("negative malformed date", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Apply(ctx, employeeID, leave.ApplyLeaveRequest{
			StartDate: "08-06-2026",
			EndDate:   "2026-06-10",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrInvalidDateFormat)
	})

	t.Run("negative start in the past", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Apply(ctx, employeeID, leave.ApplyLeaveRequest{
			StartDate: "2026-05-29",
			EndDate:   "2026-06-02",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrPastStartDate)
	})

	t.Run("start today is allowed", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		_, err := deps.service.Apply(ctx, employeeID, leave.ApplyLeaveRequest{
			StartDate: "2026-06-01",
			EndDate:   "2026-06-01",
		})

		assert.NoError(t, err)
	})

	t.Run("negative insufficient balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.balanceRepo.getByEmployeeFn = func(ctx context.Context, employeeID string) (*balance.LeaveBalance, error) {
			return &balance.LeaveBalance{Balance: 3}, nil
		}

		_, err := deps.service.Apply(ctx, employeeID, leave.ApplyLeaveRequest{
			StartDate: "2026-06-08",
			EndDate:   "2026-06-14",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrInsufficientBalance)
	})

	t.Run("weekend only range needs no balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.balanceRepo.getByEmployeeFn = func(ctx context.Context, employeeID string) (*balance.LeaveBalance, error) {
			return &balance.LeaveBalance{Balance: 0}, nil
		}

		var created *leave.LeaveRequest
		deps.repo.createFn = func(ctx context.Context, lr *leave.LeaveRequest) error {
			created = lr
			return nil
		}

		_, err := deps.service.Apply(ctx, employeeID, leave.ApplyLeaveRequest{
			StartDate: "2026-06-06",
			EndDate:   "2026-06-07",
		})

		assert.NoError(t, err)
		assert.Equal(t, 0, created.WorkingDays)
	})

	t.Run("negative overlapping approved request", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.hasApprovedOverlapFn = func(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
			return true, nil
		}

		_, err := deps.service.Apply(ctx, employeeID, leave.ApplyLeaveRequest{
			StartDate: "2026-06-08",
			EndDate:   "2026-06-10",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrOverlappingRequest)
	})

	t.Run("negative before hire date", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.directory.lookupFn = func(ctx context.Context, employeeID string) (leave.EmployeeInfo, error) {
			return leave.EmployeeInfo{HireDate: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)}, nil
		}

		_, err := deps.service.Apply(ctx, employeeID, leave.ApplyLeaveRequest{
			StartDate: "2026-06-08",
			EndDate:   "2026-06-10",
		})

		assert.ErrorIs(t, err, leaveerrors.ErrBeforeHireDate)
	})

	t.Run("negative missing balance row", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.balanceRepo.getByEmployeeFn = func(ctx context.Context, employeeID string) (*balance.LeaveBalance, error) {
			return nil, gorm.ErrRecordNotFound
		}

		_, err := deps.service.Apply(ctx, employeeID, leave.ApplyLeaveRequest{
			StartDate: "2026-06-08",
			EndDate:   "2026-06-10",
		})

		assert.ErrorIs(t, err, balanceerrors.ErrBalanceNotFound)
	})
}

func pendingRequest(id, employeeID uuid.UUID) *leave.LeaveRequest {
	return &leave.LeaveRequest{
		ID:          id,
		EmployeeID:  employeeID,
		StartDate:   time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2026, 6, 12, 0, 0, 0, 0, time.UTC),
		WorkingDays: 5,
		Status:      leave.StatusPending,
	}
}

func TestLeaveService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	leaveID := uuid.New()
	employeeID := uuid.New()
	deciderID := uuid.New().String()

	t.Run("approve success deducts recomputed days", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)

		lr := pendingRequest(leaveID, employeeID)
		calls := 0
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			calls++
			if calls > 1 {
				decided := *lr
				decided.Status = leave.StatusApproved
				return &decided, nil
			}
			return lr, nil
		}

		var deducted int
		deps.balanceRepo.deductDaysFn = func(ctx context.Context, employeeID string, days int) error {
			deducted = days
			return nil
		}

		var outboxTopic string
		deps.outbox.createFn = func(ctx context.Context, event kafka.OutboxEvent) error {
			outboxTopic = event.Topic
			return nil
		}

		resp, err := deps.service.UpdateStatus(ctx, leaveID.String(), deciderID, leave.UpdateStatusRequest{Status: leave.StatusApproved})

		assert.NoError(t, err)
		assert.Equal(t, 5, deducted)
		assert.Equal(t, leave.StatusApproved, resp.Status)
		assert.Equal(t, "lms.leave.status.v1", outboxTopic)
		assert.Equal(t, []string{employeeID.String()}, deps.balanceSvc.invalidated)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("reject success skips the balance", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, true)

		lr := pendingRequest(leaveID, employeeID)
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return lr, nil
		}

		deductCalled := false
		deps.balanceRepo.deductDaysFn = func(ctx context.Context, employeeID string, days int) error {
			deductCalled = true
			return nil
		}

		_, err := deps.service.UpdateStatus(ctx, leaveID.String(), deciderID, leave.UpdateStatusRequest{Status: leave.StatusRejected})

		assert.NoError(t, err)
		assert.False(t, deductCalled)
		assert.Empty(t, deps.balanceSvc.invalidated)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative insufficient balance rolls back", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return pendingRequest(leaveID, employeeID), nil
		}
		deps.balanceRepo.deductDaysFn = func(ctx context.Context, employeeID string, days int) error {
			return balanceerrors.ErrInsufficientBalance
		}

		_, err := deps.service.UpdateStatus(ctx, leaveID.String(), deciderID, leave.UpdateStatusRequest{Status: leave.StatusApproved})

		assert.ErrorIs(t, err, leaveerrors.ErrInsufficientBalance)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative lost decision race", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		expectTx(t, deps.sqlMock, false)

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return pendingRequest(leaveID, employeeID), nil
		}
		deps.repo.updateStatusIfPendingFn = func(ctx context.Context, id, status, decidedBy string) (int64, error) {
			return 0, nil
		}

		_, err := deps.service.UpdateStatus(ctx, leaveID.String(), deciderID, leave.UpdateStatusRequest{Status: leave.StatusApproved})

		assert.ErrorIs(t, err, leaveerrors.ErrAlreadyProcessed)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})

	t.Run("negative already decided", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			lr := pendingRequest(leaveID, employeeID)
			lr.Status = leave.StatusApproved
			return lr, nil
		}

		_, err := deps.service.UpdateStatus(ctx, leaveID.String(), deciderID, leave.UpdateStatusRequest{Status: leave.StatusRejected})

		assert.ErrorIs(t, err, leaveerrors.ErrAlreadyProcessed)
	})

	t.Run("negative not found", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return nil, gorm.ErrRecordNotFound
		}

		_, err := deps.service.UpdateStatus(ctx, leaveID.String(), deciderID, leave.UpdateStatusRequest{Status: leave.StatusApproved})

		assert.ErrorIs(t, err, leaveerrors.ErrLeaveNotFound)
	})

	t.Run("retries on serialization conflict", func(t *testing.T) {
		deps := setupLeaveServiceTest(t)
		defer deps.db.Close()

		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectRollback()
		deps.sqlMock.ExpectBegin()
		deps.sqlMock.ExpectCommit()

		lr := pendingRequest(leaveID, employeeID)
		deps.repo.findByIDFn = func(ctx context.Context, id string) (*leave.LeaveRequest, error) {
			return lr, nil
		}

		attempts := 0
		deps.balanceRepo.deductDaysFn = func(ctx context.Context, employeeID string, days int) error {
			attempts++
			if attempts == 1 {
				return &pgconn.PgError{Code: "40001"}
			}
			return nil
		}

		_, err := deps.service.UpdateStatus(ctx, leaveID.String(), deciderID, leave.UpdateStatusRequest{Status: leave.StatusApproved})

		assert.NoError(t, err)
		assert.Equal(t, 2, attempts)
		assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
	})
}
