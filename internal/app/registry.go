package app

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Harshith-Raju/Leave-Management-System/internal/auth"
	"github.com/Harshith-Raju/Leave-Management-System/internal/balance"
	"github.com/Harshith-Raju/Leave-Management-System/internal/department"
	"github.com/Harshith-Raju/Leave-Management-System/internal/employee"
	"github.com/Harshith-Raju/Leave-Management-System/internal/leave"
	"github.com/Harshith-Raju/Leave-Management-System/internal/messaging/kafka"
	"github.com/Harshith-Raju/Leave-Management-System/internal/middleware"
	"github.com/Harshith-Raju/Leave-Management-System/internal/rbac"
	"github.com/Harshith-Raju/Leave-Management-System/internal/shared/workcal"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	// --- Repositories ---
	departmentRepo := department.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	balanceRepo := balance.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- RBAC Core ---
	rbacService, err := rbac.NewService()
	if err != nil {
		return err
	}

	// --- Services ---
	departmentService := department.NewService(departmentRepo, rdb)
	balanceService := balance.NewService(balanceRepo, rdb)
	employeeService := employee.NewService(db, employeeRepo, balanceRepo, leaveRepo, departmentService, outboxRepo)
	authService := auth.NewService(employeeRepo)
	leaveService := leave.NewService(
		db,
		leaveRepo,
		balanceRepo,
		balanceService,
		employee.NewDirectory(employeeRepo),
		outboxRepo,
		workcal.SystemClock{},
	)

	// --- Handlers ---
	authHandler := auth.NewHandler(authService)
	departmentHandler := department.NewHandler(departmentService)
	employeeHandler := employee.NewHandler(employeeService)
	balanceHandler := balance.NewHandler(balanceService)
	leaveHandler := leave.NewHandler(leaveService, rdb)

	// --- Routes Registration ---
	router.Use(middleware.RequestID())

	api := router.Group("/api/v1")
	{
		auth.RegisterRoutes(api, authHandler)
		department.RegisterRoutes(api, departmentHandler)
		employee.RegisterRoutes(api, employeeHandler, rbacService)
		balance.RegisterRoutes(api, balanceHandler, rbacService)
		leave.RegisterRoutes(api, leaveHandler, rbacService, rdb)
	}

	return nil
}
