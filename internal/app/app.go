package app

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Harshith-Raju/Leave-Management-System/internal/balance"
	"github.com/Harshith-Raju/Leave-Management-System/internal/department"
	"github.com/Harshith-Raju/Leave-Management-System/internal/employee"
	"github.com/Harshith-Raju/Leave-Management-System/internal/leave"
	"github.com/Harshith-Raju/Leave-Management-System/internal/messaging/kafka"
	"github.com/Harshith-Raju/Leave-Management-System/internal/shared/connection"
)

// BuildApp connects infrastructure, migrates the schema, seeds master data
// and registers every feature module on the router.
func BuildApp(router *gin.Engine) error {
	logger := zap.L().Named("app")

	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}
	logger.Info("database connection established")

	if err := migrate(gormDB); err != nil {
		return err
	}

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return err
	}
	logger.Info("redis connection established")

	deptRepo := department.NewRepository(gormDB)
	if err := deptRepo.Seed(context.Background(), department.DefaultNames); err != nil {
		return err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}

	return registerModules(router, sqlDB, gormDB, redisClient)
}

func migrate(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(
		&department.Department{},
		&employee.Employee{},
		&balance.LeaveBalance{},
		&leave.LeaveRequest{},
	); err != nil {
		return err
	}
	// The outbox is written with raw SQL, so its table is created from the
	// DDL the repository declares.
	return gormDB.Exec(kafka.OutboxTableDDL).Error
}
