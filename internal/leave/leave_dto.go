package leave

type ApplyLeaveRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason" binding:"omitempty,max=500"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=APPROVED REJECTED"`
}

type LeaveResponse struct {
	ID          string `json:"id"`
	EmployeeID  string `json:"employee_id"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	WorkingDays int    `json:"working_days"`
	Reason      string `json:"reason,omitempty"`
	Status      string `json:"status"`
	DecidedBy   string `json:"decided_by,omitempty"`
	DecidedAt   string `json:"decided_at,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toResponse(lr *LeaveRequest) *LeaveResponse {
	resp := &LeaveResponse{
		ID:          lr.ID.String(),
		EmployeeID:  lr.EmployeeID.String(),
		StartDate:   lr.StartDate.Format("2006-01-02"),
		EndDate:     lr.EndDate.Format("2006-01-02"),
		WorkingDays: lr.WorkingDays,
		Reason:      lr.Reason,
		Status:      lr.Status,
		CreatedAt:   lr.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if lr.DecidedBy != nil {
		resp.DecidedBy = lr.DecidedBy.String()
	}
	if lr.DecidedAt != nil {
		resp.DecidedAt = lr.DecidedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
