package balance

type BalanceResponse struct {
	EmployeeID string `json:"employee_id"`
	Balance    int    `json:"balance"`
}
