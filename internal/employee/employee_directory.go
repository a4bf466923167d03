package employee

import (
	"context"
	"errors"

	"gorm.io/gorm"

	employeeerrors "github.com/Harshith-Raju/Leave-Management-System/internal/employee/errors"
	"github.com/Harshith-Raju/Leave-Management-System/internal/leave"
)

// directory adapts the employee repository to the lookup the leave
// feature needs.
type directory struct {
	repo Repository
}

func NewDirectory(repo Repository) leave.EmployeeDirectory {
	return &directory{repo: repo}
}

func (d *directory) Lookup(ctx context.Context, employeeID string) (leave.EmployeeInfo, error) {
	empl, err := d.repo.FindByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return leave.EmployeeInfo{}, employeeerrors.ErrEmployeeNotFound
		}
		return leave.EmployeeInfo{}, err
	}

	info := leave.EmployeeInfo{HireDate: empl.HireDate}
	if empl.DepartmentID != nil {
		info.DepartmentID = empl.DepartmentID.String()
	}
	return info, nil
}
