package events

import "time"

const LeaveStatusChangedTopic = "lms.leave.status.v1"

// LeaveStatusChangedEvent is emitted through the outbox whenever a leave
// request reaches a terminal status.
type LeaveStatusChangedEvent struct {
	EventType    string    `json:"event_type"`
	RequestID    string    `json:"request_id,omitempty"`
	LeaveID      string    `json:"leave_id"`
	EmployeeID   string    `json:"employee_id"`
	DepartmentID string    `json:"department_id"`
	Status       string    `json:"status"`
	WorkingDays  int       `json:"working_days"`
	DecidedBy    string    `json:"decided_by"`
	OccurredAt   time.Time `json:"occurred_at"`
}
