package autherrors

import (
	"net/http"

	"github.com/Harshith-Raju/Leave-Management-System/internal/shared/apperror"
)

var (
	ErrInvalidCredentials = apperror.New(
		apperror.CodeUnauthorized,
		"invalid email or password",
		http.StatusUnauthorized,
	)
	ErrTokenGeneration = apperror.New(
		apperror.CodeInternalError,
		"could not issue access token",
		http.StatusInternalServerError,
	)
)
