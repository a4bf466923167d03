package leave

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Harshith-Raju/Leave-Management-System/internal/balance"
	balanceerrors "github.com/Harshith-Raju/Leave-Management-System/internal/balance/errors"
	"github.com/Harshith-Raju/Leave-Management-System/internal/events"
	leaveerrors "github.com/Harshith-Raju/Leave-Management-System/internal/leave/errors"
	"github.com/Harshith-Raju/Leave-Management-System/internal/messaging/kafka"
	"github.com/Harshith-Raju/Leave-Management-System/internal/shared/apperror"
	"github.com/Harshith-Raju/Leave-Management-System/internal/shared/contextutil"
	"github.com/Harshith-Raju/Leave-Management-System/internal/shared/workcal"
)

// maxDecisionRetries bounds the approval retry loop on serialization
// conflicts (SQLSTATE 40001) and deadlocks (40P01).
const maxDecisionRetries = 3

// EmployeeInfo is the slice of the employee record leave decisions need.
type EmployeeInfo struct {
	HireDate     time.Time
	DepartmentID string
}

// EmployeeDirectory resolves employee facts without coupling this package
// to the employee feature.
type EmployeeDirectory interface {
	Lookup(ctx context.Context, employeeID string) (EmployeeInfo, error)
}

type Service interface {
	Apply(ctx context.Context, employeeID string, req ApplyLeaveRequest) (*LeaveResponse, error)
	UpdateStatus(ctx context.Context, leaveID, deciderID string, req UpdateStatusRequest) (*LeaveResponse, error)
	GetAll(ctx context.Context) ([]LeaveResponse, error)
	GetMine(ctx context.Context, employeeID string) ([]LeaveResponse, error)
	GetByID(ctx context.Context, id string) (*LeaveResponse, error)
}

type service struct {
	db          *sql.DB
	repo        Repository
	balanceRepo balance.Repository
	balanceSvc  balance.Service
	directory   EmployeeDirectory
	outboxRepo  kafka.OutboxRepository
	clock       workcal.Clock
	logger      *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	balanceRepo balance.Repository,
	balanceSvc balance.Service,
	directory EmployeeDirectory,
	outboxRepo kafka.OutboxRepository,
	clock workcal.Clock,
	logger ...*zap.Logger,
) Service {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.L().Named("leave-service")
	}

	if clock == nil {
		clock = workcal.SystemClock{}
	}

	return &service{
		db:          db,
		repo:        repo,
		balanceRepo: balanceRepo,
		balanceSvc:  balanceSvc,
		directory:   directory,
		outboxRepo:  outboxRepo,
		clock:       clock,
		logger:      l,
	}
}

// Apply validates a leave application and stores it as PENDING. Checks run
// cheapest first: date sanity, then balance, then the overlap query, then
// hire date. The balance check here is advisory; the binding one happens at
// approval time.
func (s *service) Apply(ctx context.Context, employeeID string, req ApplyLeaveRequest) (*LeaveResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)
	l.Debug("leave application requested", zap.String("employee_id", employeeID))

	emplID, err := uuid.Parse(employeeID)
	if err != nil {
		return nil, balanceerrors.ErrInvalidEmployeeID
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, leaveerrors.ErrInvalidDateFormat
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		return nil, leaveerrors.ErrInvalidDateFormat
	}
	start = workcal.DateOnly(start)
	end = workcal.DateOnly(end)

	if end.Before(start) {
		return nil, leaveerrors.ErrInvalidDateRange
	}
	if start.Before(s.clock.Today()) {
		l.Warn("leave starts in the past",
			zap.String("employee_id", employeeID),
			zap.String("start_date", req.StartDate),
		)
		return nil, leaveerrors.ErrPastStartDate
	}

	workingDays := workcal.CountWorkingDays(start, end)

	bal, err := s.balanceRepo.GetByEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, balanceerrors.ErrBalanceNotFound
		}
		l.Error("failed to load leave balance", zap.Error(err))
		return nil, err
	}
	if bal.Balance < workingDays {
		l.Warn("insufficient balance for application",
			zap.String("employee_id", employeeID),
			zap.Int("requested", workingDays),
			zap.Int("available", bal.Balance),
		)
		return nil, leaveerrors.ErrInsufficientBalance
	}

	overlap, err := s.repo.HasApprovedOverlap(ctx, employeeID, start, end)
	if err != nil {
		l.Error("overlap check failed", zap.Error(err))
		return nil, err
	}
	if overlap {
		return nil, leaveerrors.ErrOverlappingRequest
	}

	info, err := s.directory.Lookup(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if start.Before(workcal.DateOnly(info.HireDate)) {
		return nil, leaveerrors.ErrBeforeHireDate
	}

	lr := &LeaveRequest{
		ID:          uuid.New(),
		EmployeeID:  emplID,
		StartDate:   start,
		EndDate:     end,
		WorkingDays: workingDays,
		Reason:      req.Reason,
		Status:      StatusPending,
	}
	if err := s.repo.Create(ctx, lr); err != nil {
		l.Error("failed to insert leave request", zap.Error(err))
		return nil, err
	}

	l.Info("leave application stored",
		zap.String("leave_id", lr.ID.String()),
		zap.String("employee_id", employeeID),
		zap.Int("working_days", workingDays),
	)

	lr.CreatedAt = time.Now().UTC()
	return toResponse(lr), nil
}

// UpdateStatus decides a pending request. Approval deducts the working days
// and flips the status inside one transaction so the balance can never go
// negative and a request is decided at most once.
func (s *service) UpdateStatus(ctx context.Context, leaveID, deciderID string, req UpdateStatusRequest) (*LeaveResponse, error) {
	l := contextutil.GetLogger(ctx, s.logger)

	if _, err := uuid.Parse(leaveID); err != nil {
		return nil, leaveerrors.ErrInvalidLeaveID
	}
	if req.Status != StatusApproved && req.Status != StatusRejected {
		return nil, leaveerrors.ErrInvalidStatus
	}

	lr, err := s.repo.FindByID(ctx, leaveID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leaveerrors.ErrLeaveNotFound
		}
		l.Error("failed to load leave request", zap.Error(err))
		return nil, err
	}
	if lr.Status != StatusPending {
		return nil, leaveerrors.ErrAlreadyProcessed
	}

	var decideErr error
	for attempt := 1; attempt <= maxDecisionRetries; attempt++ {
		decideErr = s.decide(ctx, lr, deciderID, req.Status)
		if decideErr == nil || !isRetryableTxError(decideErr) {
			break
		}
		l.Warn("decision transaction conflicted, retrying",
			zap.String("leave_id", leaveID),
			zap.Int("attempt", attempt),
			zap.Error(decideErr),
		)
	}
	if decideErr != nil {
		var appErr *apperror.AppError
		if !errors.As(decideErr, &appErr) {
			l.Error("decision transaction failed",
				zap.String("leave_id", leaveID),
				zap.Error(decideErr),
			)
		}
		return nil, decideErr
	}

	if req.Status == StatusApproved {
		s.balanceSvc.InvalidateCache(ctx, lr.EmployeeID.String())
	}

	l.Info("leave request decided",
		zap.String("leave_id", leaveID),
		zap.String("status", req.Status),
		zap.String("decided_by", deciderID),
	)

	decided, err := s.repo.FindByID(ctx, leaveID)
	if err != nil {
		return nil, err
	}
	return toResponse(decided), nil
}

// decide runs one attempt of the decision transaction.
func (s *service) decide(ctx context.Context, lr *LeaveRequest, deciderID, status string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if status == StatusApproved {
		// Days are recomputed from the stored range so a stale working_days
		// column can never over- or under-charge the balance.
		days := workcal.CountWorkingDays(lr.StartDate, lr.EndDate)

		btx := s.balanceRepo.WithTx(tx)
		if err := btx.DeductDays(ctx, lr.EmployeeID.String(), days); err != nil {
			if errors.Is(err, balanceerrors.ErrInsufficientBalance) {
				return leaveerrors.ErrInsufficientBalance
			}
			return err
		}
	}

	qtx := s.repo.WithTx(tx)
	rows, err := qtx.UpdateStatusIfPending(ctx, lr.ID.String(), status, deciderID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return leaveerrors.ErrAlreadyProcessed
	}

	if err := s.recordStatusEvent(ctx, tx, lr, deciderID, status); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *service) recordStatusEvent(ctx context.Context, tx *sql.Tx, lr *LeaveRequest, deciderID, status string) error {
	departmentID := ""
	if info, err := s.directory.Lookup(ctx, lr.EmployeeID.String()); err == nil {
		departmentID = info.DepartmentID
	}

	event := events.LeaveStatusChangedEvent{
		EventType:    "leave.status_changed",
		RequestID:    contextutil.GetRequestID(ctx),
		LeaveID:      lr.ID.String(),
		EmployeeID:   lr.EmployeeID.String(),
		DepartmentID: departmentID,
		Status:       status,
		WorkingDays:  workcal.CountWorkingDays(lr.StartDate, lr.EndDate),
		DecidedBy:    deciderID,
		OccurredAt:   time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	otx := s.outboxRepo.WithTx(tx)
	return otx.Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     event.RequestID,
		AggregateType: "leave_request",
		AggregateID:   lr.ID.String(),
		EventType:     event.EventType,
		Topic:         events.LeaveStatusChangedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) GetAll(ctx context.Context) ([]LeaveResponse, error) {
	lrs, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("failed to list leave requests", zap.Error(err))
		return nil, err
	}
	return toResponses(lrs), nil
}

func (s *service) GetMine(ctx context.Context, employeeID string) ([]LeaveResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, balanceerrors.ErrInvalidEmployeeID
	}

	lrs, err := s.repo.FindAllByEmployee(ctx, employeeID)
	if err != nil {
		s.logger.Error("failed to list employee leave requests", zap.Error(err))
		return nil, err
	}
	return toResponses(lrs), nil
}

func (s *service) GetByID(ctx context.Context, id string) (*LeaveResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, leaveerrors.ErrInvalidLeaveID
	}

	lr, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, leaveerrors.ErrLeaveNotFound
		}
		return nil, err
	}
	return toResponse(lr), nil
}

func toResponses(lrs []LeaveRequest) []LeaveResponse {
	resp := make([]LeaveResponse, 0, len(lrs))
	for i := range lrs {
		resp = append(resp, *toResponse(&lrs[i]))
	}
	return resp
}

func isRetryableTxError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
