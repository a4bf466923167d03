package leave

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

type LeaveRequest struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EmployeeID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_leave_requests_employee"`
	StartDate   time.Time  `gorm:"type:date;not null"`
	EndDate     time.Time  `gorm:"type:date;not null"`
	WorkingDays int        `gorm:"not null"`
	Reason      string     `gorm:"type:text"`
	Status      string     `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_leave_requests_status"`
	DecidedBy   *uuid.UUID `gorm:"type:uuid"`
	DecidedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (LeaveRequest) TableName() string {
	return "leave_requests"
}
