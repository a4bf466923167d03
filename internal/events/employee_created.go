package events

import "time"

const EmployeeCreatedTopic = "lms.employee.lifecycle.v1"

type EmployeeCreatedEvent struct {
	EventType    string    `json:"event_type"`
	RequestID    string    `json:"request_id,omitempty"`
	EmployeeID   string    `json:"employee_id"`
	DepartmentID string    `json:"department_id"`
	OccurredAt   time.Time `json:"occurred_at"`
}
