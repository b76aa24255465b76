package service

import (
	commonerrors "github.com/AlibekovAA/book-exchange/backend/internal/common/errors"
)

var (
	ErrExchangeNotFound = commonerrors.NewNotFoundError(
		"EXCHANGE_NOT_FOUND",
		"exchange not found",
	)

	ErrInvalidStatus = commonerrors.NewValidationError(
		"INVALID_STATUS",
		"invalid status",
	)

	ErrInvalidTransition = commonerrors.NewValidationError(
		"INVALID_TRANSITION",
		"invalid status transition",
	)

	ErrSameListing = commonerrors.NewValidationError(
		"SAME_LISTING",
		"requested and offered listings must differ",
	)

	ErrSelfExchange = commonerrors.NewValidationError(
		"SELF_EXCHANGE",
		"owner and requester must differ",
	)

	ErrAccountNotFound = commonerrors.NewNotFoundError(
		"ACCOUNT_NOT_FOUND",
		"account not found",
	)

	ErrListingNotFound = commonerrors.NewNotFoundError(
		"LISTING_NOT_FOUND",
		"listing not found",
	)
)
