package service

import (
	"net/http"

	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
)

var (
	ErrInvalidCredentials = commonerrors.NewDomainError(
		"INVALID_CREDENTIALS",
		commonerrors.CategoryUnauthorized,
		http.StatusUnauthorized,
		"invalid credentials",
	)

	ErrEmailTaken = commonerrors.NewConflictError(
		"EMAIL_TAKEN",
		"user already exists",
	)

	ErrAccountNotFound = commonerrors.NewNotFoundError(
		"ACCOUNT_NOT_FOUND",
		"account not found",
	)

	ErrInvalidEmail = commonerrors.NewValidationError(
		"INVALID_EMAIL",
		"invalid email format",
	)

	ErrInvalidMobile = commonerrors.NewValidationError(
		"INVALID_MOBILE",
		"invalid mobile number format",
	)

	ErrInvalidRole = commonerrors.NewValidationError(
		"INVALID_ROLE",
		"invalid role. must be 'owner' or 'seeker'",
	)

	ErrCredentialsRequired = commonerrors.NewValidationError(
		"CREDENTIALS_REQUIRED",
		"email and password are required",
	)
)
