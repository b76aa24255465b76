package service

import (
	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
)

var (
	ErrListingNotFound = commonerrors.NewNotFoundError(
		"LISTING_NOT_FOUND",
		"listing not found",
	)

	ErrOwnerNotFound = commonerrors.NewValidationError(
		"OWNER_NOT_FOUND",
		"owner account does not exist",
	)

	ErrListingInExchange = commonerrors.NewConflictError(
		"LISTING_IN_EXCHANGE",
		"listing is part of an open exchange",
	)
)
