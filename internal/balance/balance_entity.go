package balance

import (
	"time"

	"github.com/google/uuid"
)

// DefaultInitialBalance is granted to every new employee.
const DefaultInitialBalance = 20

type LeaveBalance struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_leave_balance_employee"`
	Balance    int       `gorm:"type:int;not null;default:20;check:chk_balance_non_negative,balance >= 0"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
