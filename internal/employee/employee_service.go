package employee

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Harshith-Raju/Leave-Management-System/internal/balance"
	"github.com/Harshith-Raju/Leave-Management-System/internal/department"
	employeeerrors "github.com/Harshith-Raju/Leave-Management-System/internal/employee/errors"
	"github.com/Harshith-Raju/Leave-Management-System/internal/events"
	"github.com/Harshith-Raju/Leave-Management-System/internal/leave"
	"github.com/Harshith-Raju/Leave-Management-System/internal/messaging/kafka"
	"github.com/Harshith-Raju/Leave-Management-System/internal/shared/contextutil"
)

type Service interface {
	Create(ctx context.Context, req CreateEmployeeRequest) (*EmployeeResponse, error)
	GetAll(ctx context.Context) ([]EmployeeResponse, error)
	GetByID(ctx context.Context, id string) (*EmployeeResponse, error)
	Update(ctx context.Context, id string, req UpdateEmployeeRequest) (*EmployeeResponse, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	db          *sql.DB
	repo        Repository
	balanceRepo balance.Repository
	leaveRepo   leave.Repository
	deptService department.Service
	outboxRepo  kafka.OutboxRepository
	logger      *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	balanceRepo balance.Repository,
	leaveRepo leave.Repository,
	deptService department.Service,
	outboxRepo kafka.OutboxRepository,
	logger ...*zap.Logger,
) Service {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.L().Named("employee-service")
	}

	return &service{
		db:          db,
		repo:        repo,
		balanceRepo: balanceRepo,
		leaveRepo:   leaveRepo,
		deptService: deptService,
		outboxRepo:  outboxRepo,
		logger:      l,
	}
}

// Create inserts the employee, opens their leave balance at the default
// allocation and records the lifecycle event, all in one transaction.
func (s *service) Create(ctx context.Context, req CreateEmployeeRequest) (*EmployeeResponse, error) {
	s.logger.Debug("create employee requested", zap.String("email", req.Email))

	deptID, err := uuid.Parse(req.DepartmentID)
	if err != nil {
		return nil, employeeerrors.ErrInvalidDepartmentID
	}

	hireDate, err := time.Parse("2006-01-02", req.HireDate)
	if err != nil {
		return nil, employeeerrors.ErrInvalidHireDate
	}

	dept, err := s.deptService.GetByID(ctx, deptID.String())
	if err != nil {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = "employee"
	}

	empl := &Employee{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		DepartmentID: &deptID,
		HireDate:     hireDate,
		Password:     string(hashed),
		Role:         role,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	if err := qtx.Create(ctx, empl); err != nil {
		mapped := mapRepoError(err)
		if mapped == employeeerrors.ErrEmployeeAlreadyExists {
			s.logger.Warn("employee email already registered", zap.String("email", req.Email))
		} else {
			s.logger.Error("failed to insert employee", zap.Error(err))
		}
		return nil, mapped
	}

	btx := s.balanceRepo.WithTx(tx)
	if err := btx.CreateForEmployee(ctx, empl.ID, balance.DefaultInitialBalance); err != nil {
		s.logger.Error("failed to open leave balance", zap.Error(err))
		return nil, err
	}

	if err := s.recordCreatedEvent(ctx, tx, empl); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit employee creation", zap.Error(err))
		return nil, err
	}

	s.logger.Info("employee created",
		zap.String("employee_id", empl.ID.String()),
		zap.String("department", dept.Name),
	)

	resp := toResponse(empl)
	resp.DepartmentName = dept.Name
	return resp, nil
}

func (s *service) recordCreatedEvent(ctx context.Context, tx *sql.Tx, empl *Employee) error {
	event := events.EmployeeCreatedEvent{
		EventType:    "employee.created",
		RequestID:    contextutil.GetRequestID(ctx),
		EmployeeID:   empl.ID.String(),
		DepartmentID: empl.DepartmentID.String(),
		OccurredAt:   time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to marshal employee event", zap.Error(err))
		return err
	}

	otx := s.outboxRepo.WithTx(tx)
	return otx.Create(ctx, kafka.OutboxEvent{
		ID:            uuid.NewString(),
		RequestID:     event.RequestID,
		AggregateType: "employee",
		AggregateID:   empl.ID.String(),
		EventType:     event.EventType,
		Topic:         events.EmployeeCreatedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func (s *service) GetAll(ctx context.Context) ([]EmployeeResponse, error) {
	empls, err := s.repo.FindAll(ctx)
	if err != nil {
		s.logger.Error("failed to list employees", zap.Error(err))
		return nil, err
	}

	resp := make([]EmployeeResponse, 0, len(empls))
	for i := range empls {
		resp = append(resp, *toResponse(&empls[i]))
	}
	return resp, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*EmployeeResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, employeeerrors.ErrInvalidEmployeeID
	}

	empl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	resp := toResponse(empl)
	if empl.DepartmentID != nil {
		if dept, derr := s.deptService.GetByID(ctx, empl.DepartmentID.String()); derr == nil {
			resp.DepartmentName = dept.Name
		}
	}
	return resp, nil
}

func (s *service) Update(ctx context.Context, id string, req UpdateEmployeeRequest) (*EmployeeResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, employeeerrors.ErrInvalidEmployeeID
	}

	empl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err)
	}

	if req.Name != "" {
		empl.Name = req.Name
	}
	if req.DepartmentID != "" {
		deptID, perr := uuid.Parse(req.DepartmentID)
		if perr != nil {
			return nil, employeeerrors.ErrInvalidDepartmentID
		}
		if _, derr := s.deptService.GetByID(ctx, deptID.String()); derr != nil {
			return nil, derr
		}
		empl.DepartmentID = &deptID
	}
	if req.HireDate != "" {
		hireDate, perr := time.Parse("2006-01-02", req.HireDate)
		if perr != nil {
			return nil, employeeerrors.ErrInvalidHireDate
		}
		empl.HireDate = hireDate
	}
	if req.Role != "" {
		empl.Role = req.Role
	}

	if err := s.repo.Update(ctx, empl); err != nil {
		s.logger.Error("failed to update employee", zap.Error(err))
		return nil, mapRepoError(err)
	}

	s.logger.Info("employee updated", zap.String("employee_id", id))
	return toResponse(empl), nil
}

// Delete removes the employee together with their leave requests and
// balance so no orphaned rows survive the account.
func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return employeeerrors.ErrInvalidEmployeeID
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return mapRepoError(err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	ltx := s.leaveRepo.WithTx(tx)
	if err := ltx.DeleteByEmployee(ctx, id); err != nil {
		s.logger.Error("failed to delete leave requests", zap.Error(err))
		return err
	}

	btx := s.balanceRepo.WithTx(tx)
	if err := btx.DeleteByEmployee(ctx, id); err != nil {
		s.logger.Error("failed to delete leave balance", zap.Error(err))
		return err
	}

	qtx := s.repo.WithTx(tx)
	if err := qtx.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete employee", zap.Error(err))
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit employee deletion", zap.Error(err))
		return err
	}

	s.logger.Info("employee deleted", zap.String("employee_id", id))
	return nil
}

func toResponse(empl *Employee) *EmployeeResponse {
	resp := &EmployeeResponse{
		ID:       empl.ID.String(),
		Name:     empl.Name,
		Email:    empl.Email,
		HireDate: empl.HireDate.Format("2006-01-02"),
		Role:     empl.Role,
	}
	if empl.DepartmentID != nil {
		resp.DepartmentID = empl.DepartmentID.String()
	}
	return resp
}
