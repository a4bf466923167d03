package balance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	balanceerrors "github.com/Harshith-Raju/Leave-Management-System/internal/balance/errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const balanceCacheTTL = 30 * time.Second

func balanceCacheKey(employeeID string) string {
	return fmt.Sprintf("balance:%s", employeeID)
}

type Service interface {
	GetByEmployee(ctx context.Context, employeeID string) (BalanceResponse, error)
	// InvalidateCache drops the cached read for an employee after a write.
	InvalidateCache(ctx context.Context, employeeID string)
}

type service struct {
	repo   Repository
	rdb    *redis.Client
	logger *zap.Logger
}

func NewService(repo Repository, rdb *redis.Client, logger ...*zap.Logger) Service {
	l := zap.L().Named("balance.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("balance.service")
	}
	return &service{repo: repo, rdb: rdb, logger: l}
}

func (s *service) GetByEmployee(ctx context.Context, employeeID string) (BalanceResponse, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return BalanceResponse{}, balanceerrors.ErrInvalidEmployeeID
	}

	cacheKey := balanceCacheKey(employeeID)
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var resp BalanceResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
		}
	}

	lb, err := s.repo.GetByEmployee(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return BalanceResponse{}, balanceerrors.ErrBalanceNotFound
		}
		s.logger.Error("get balance failed",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
		return BalanceResponse{}, err
	}

	resp := BalanceResponse{
		EmployeeID: lb.EmployeeID.String(),
		Balance:    lb.Balance,
	}

	if s.rdb != nil {
		if payload, err := json.Marshal(resp); err == nil {
			s.rdb.Set(ctx, cacheKey, payload, balanceCacheTTL)
		}
	}

	return resp, nil
}

func (s *service) InvalidateCache(ctx context.Context, employeeID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, balanceCacheKey(employeeID)).Err(); err != nil {
		s.logger.Warn("invalidate balance cache failed",
			zap.String("employee_id", employeeID),
			zap.Error(err),
		)
	}
}
