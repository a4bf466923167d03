package employee

type CreateEmployeeRequest struct {
	Name         string `json:"name" binding:"required"`
	Email        string `json:"email" binding:"required,email"`
	DepartmentID string `json:"department_id" binding:"required,uuid"`
	HireDate     string `json:"hire_date" binding:"required"`
	Password     string `json:"password" binding:"required,min=6"`
	Role         string `json:"role" binding:"omitempty,oneof=employee manager admin"`
}

type UpdateEmployeeRequest struct {
	Name         string `json:"name" binding:"omitempty"`
	DepartmentID string `json:"department_id" binding:"omitempty,uuid"`
	HireDate     string `json:"hire_date" binding:"omitempty"`
	Role         string `json:"role" binding:"omitempty,oneof=employee manager admin"`
}

type EmployeeResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	DepartmentID   string `json:"department_id,omitempty"`
	DepartmentName string `json:"department_name,omitempty"`
	HireDate       string `json:"hire_date"`
	Role           string `json:"role"`
}
