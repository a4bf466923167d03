package employee

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	employeeerrors "github.com/Harshith-Raju/Leave-Management-System/internal/employee/errors"
)

// mapRepoError translates driver and gorm errors into the employee
// error vocabulary so handlers can render them without inspecting SQLSTATEs.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return employeeerrors.ErrEmployeeNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return employeeerrors.ErrEmployeeAlreadyExists
		case "23503":
			return employeeerrors.ErrInvalidDepartmentID
		}
	}

	return err
}
