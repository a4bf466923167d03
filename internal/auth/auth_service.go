package auth

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	autherrors "github.com/Harshith-Raju/Leave-Management-System/internal/auth/errors"
	"github.com/Harshith-Raju/Leave-Management-System/internal/employee"
	employeeerrors "github.com/Harshith-Raju/Leave-Management-System/internal/employee/errors"
)

const tokenTTL = 7 * 24 * time.Hour

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	GetProfile(ctx context.Context, employeeID string) (*ProfileResponse, error)
}

type service struct {
	repo   employee.Repository
	logger *zap.Logger
}

func NewService(repo employee.Repository, logger ...*zap.Logger) Service {
	var l *zap.Logger
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0]
	} else {
		l = zap.L().Named("auth-service")
	}
	return &service{repo: repo, logger: l}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	s.logger.Debug("login requested", zap.String("email", req.Email))

	empl, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("login with unknown email", zap.String("email", req.Email))
			return nil, autherrors.ErrInvalidCredentials
		}
		s.logger.Error("failed to load employee for login", zap.Error(err))
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(empl.Password), []byte(req.Password)); err != nil {
		s.logger.Warn("login with wrong password", zap.String("email", req.Email))
		return nil, autherrors.ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(tokenTTL)
	claims := jwt.MapClaims{
		"id":    empl.ID.String(),
		"email": empl.Email,
		"role":  empl.Role,
		"exp":   expiresAt.Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		s.logger.Error("failed to sign token", zap.Error(err))
		return nil, autherrors.ErrTokenGeneration
	}

	s.logger.Info("login succeeded",
		zap.String("employee_id", empl.ID.String()),
		zap.String("role", empl.Role),
	)

	return &LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		Employee:  toProfile(empl),
	}, nil
}

func (s *service) GetProfile(ctx context.Context, employeeID string) (*ProfileResponse, error) {
	empl, err := s.repo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, employeeerrors.ErrEmployeeNotFound
		}
		return nil, err
	}

	profile := toProfile(empl)
	return &profile, nil
}

func toProfile(empl *employee.Employee) ProfileResponse {
	profile := ProfileResponse{
		ID:       empl.ID.String(),
		Name:     empl.Name,
		Email:    empl.Email,
		Role:     empl.Role,
		HireDate: empl.HireDate.Format("2006-01-02"),
	}
	if empl.DepartmentID != nil {
		profile.DepartmentID = empl.DepartmentID.String()
	}
	return profile
}
